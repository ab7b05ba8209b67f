package main

import (
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"newsroom/internal/cache"
	"newsroom/internal/config"
	"newsroom/internal/database"
	"newsroom/internal/handlers"
	"newsroom/internal/repository"
	"newsroom/internal/security"
	"newsroom/internal/service"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize database with config (supports sqlite, postgres, mysql)
	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	log.Printf("Database connection established (type: %s)", cfg.DatabaseType)

	// Run migrations
	if err := db.RunMigrations(cfg.MigrationsPath); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	log.Println("Migrations completed successfully")

	// Initialize repositories
	credRepo := repository.NewCredentialRepository(db)
	principalRepo := repository.NewPrincipalRepository(db)
	profileRepo := repository.NewProfileRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	postRepo := repository.NewPostRepository(db)
	storyRepo := repository.NewStoryRepository(db)
	commentRepo := repository.NewCommentRepository(db)

	// Login attempt state is kept in an in-process cache; a restart resets
	// counters and lockouts.
	attemptStore := cache.New()
	defer attemptStore.Close()
	limiter := security.NewLoginLimiter(attemptStore, cfg.MaxLoginAttempts, cfg.LockoutWindow)

	// Initialize services
	identityService := service.NewIdentityService(principalRepo, profileRepo)
	authService := service.NewAuthService(credRepo, principalRepo, identityService, limiter, cfg.SessionDuration)
	newsService := service.NewNewsService(categoryRepo, postRepo, storyRepo)
	commentService := service.NewCommentService(commentRepo, postRepo)

	emailService, err := service.NewEmailService(cfg.AWSRegion, cfg.SESFromEmail, cfg.SESFromName, cfg.AppBaseURL)
	if err != nil {
		log.Fatalf("Failed to initialize email service: %v", err)
	}

	googleOAuth := &oauth2.Config{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{"openid", "email", "profile"},
	}

	// Initialize handlers
	middleware := handlers.NewMiddleware(authService)
	authHandler := handlers.NewAuthHandler(authService, emailService, googleOAuth, cfg.OAuthRedirectBaseURL)
	newsHandler := handlers.NewNewsHandler(newsService, commentService)
	adminHandler := handlers.NewAdminHandler(newsService, principalRepo)

	// Setup routes
	mux := http.NewServeMux()

	// Auth routes
	mux.HandleFunc("POST /api/signup", authHandler.Signup)
	mux.HandleFunc("POST /api/login", authHandler.Login)
	mux.HandleFunc("POST /api/admin/login", authHandler.SuperuserLogin)
	mux.HandleFunc("POST /api/logout", authHandler.Logout)
	mux.HandleFunc("POST /api/forgot-password", authHandler.ForgotPassword)
	mux.HandleFunc("GET /api/reset-password/{token}", authHandler.CheckResetToken)
	mux.HandleFunc("POST /api/reset-password/{token}", authHandler.ResetPassword)
	mux.HandleFunc("GET /auth/google/start", authHandler.StartGoogleOAuth)
	mux.HandleFunc("GET /auth/google/callback", authHandler.GoogleOAuthCallback)

	// Public content routes
	mux.HandleFunc("GET /api/feed", newsHandler.Feed)
	mux.HandleFunc("GET /api/posts/{id}", newsHandler.Post)

	// Reader routes
	mux.HandleFunc("POST /api/posts/{id}/like", middleware.RequireAuth(newsHandler.TogglePostLike))
	mux.HandleFunc("POST /api/posts/{id}/comments", middleware.RequireAuth(newsHandler.AddComment))
	mux.HandleFunc("POST /api/comments/{id}/like", middleware.RequireAuth(newsHandler.ToggleCommentLike))
	mux.HandleFunc("DELETE /api/comments/{id}", middleware.RequireAuth(newsHandler.DeleteComment))
	mux.HandleFunc("GET /api/profile/posts", middleware.RequireAuth(newsHandler.MyPosts))
	mux.HandleFunc("POST /api/profile/posts", middleware.RequireAuth(newsHandler.CreateMyPost))
	mux.HandleFunc("POST /api/profile/posts/{id}", middleware.RequireAuth(newsHandler.UpdateMyPost))
	mux.HandleFunc("POST /api/profile/posts/delete", middleware.RequireAuth(newsHandler.DeleteMyPosts))

	// Admin routes
	mux.HandleFunc("GET /api/admin/dashboard", middleware.RequireSuperuser(adminHandler.Dashboard))
	mux.HandleFunc("POST /api/admin/categories", middleware.RequireSuperuser(adminHandler.AddCategory))
	mux.HandleFunc("POST /api/admin/categories/{id}", middleware.RequireSuperuser(adminHandler.RenameCategory))
	mux.HandleFunc("DELETE /api/admin/categories/{id}", middleware.RequireSuperuser(adminHandler.DeleteCategory))
	mux.HandleFunc("POST /api/admin/posts", middleware.RequireSuperuser(adminHandler.AddPost))
	mux.HandleFunc("POST /api/admin/posts/{id}", middleware.RequireSuperuser(adminHandler.EditPost))
	mux.HandleFunc("POST /api/admin/posts/delete", middleware.RequireSuperuser(adminHandler.DeletePosts))
	mux.HandleFunc("POST /api/admin/stories", middleware.RequireSuperuser(adminHandler.AddStory))
	mux.HandleFunc("POST /api/admin/stories/delete", middleware.RequireSuperuser(adminHandler.DeleteStories))

	// Wrap with logging middleware
	handler := handlers.Logging(mux)

	// Start server
	addr := ":" + cfg.ServerPort
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start background session and reset-token cleanup
	go cleanupExpiredState(authService)

	// Graceful shutdown
	go func() {
		log.Printf("Server starting on http://localhost%s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Server shutting down...")
}

// cleanupExpiredState periodically removes expired sessions and stale
// reset tokens
func cleanupExpiredState(authService *service.AuthService) {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for range ticker.C {
		if err := authService.CleanupExpiredSessions(); err != nil {
			log.Printf("Error cleaning up expired sessions: %v", err)
		}
		if err := authService.CleanupExpiredResetTokens(); err != nil {
			log.Printf("Error cleaning up expired reset tokens: %v", err)
		}
	}
}
