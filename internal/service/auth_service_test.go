package service

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"newsroom/internal/cache"
	"newsroom/internal/database"
	"newsroom/internal/repository"
	"newsroom/internal/security"
)

type authTestEnv struct {
	db            *database.DB
	credRepo      *repository.CredentialRepository
	principalRepo *repository.PrincipalRepository
	profileRepo   *repository.ProfileRepository
	auth          *AuthService
	email         *EmailService
}

func newAuthTestEnv(t *testing.T, sessionDuration time.Duration) *authTestEnv {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	db, err := database.Initialize(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to initialize database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.RunMigrations("../../migrations"); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	credRepo := repository.NewCredentialRepository(db)
	principalRepo := repository.NewPrincipalRepository(db)
	profileRepo := repository.NewProfileRepository(db)

	store := cache.NewWithClock(time.Now)
	limiter := security.NewLoginLimiter(store, 5, time.Hour)
	identity := NewIdentityService(principalRepo, profileRepo)

	// Disabled email service: sends report an error, nothing leaves the box.
	email, err := NewEmailService("eu-west-1", "", "", "http://localhost:8080")
	if err != nil {
		t.Fatalf("Failed to create email service: %v", err)
	}

	return &authTestEnv{
		db:            db,
		credRepo:      credRepo,
		principalRepo: principalRepo,
		profileRepo:   profileRepo,
		auth:          NewAuthService(credRepo, principalRepo, identity, limiter, sessionDuration),
		email:         email,
	}
}

func (env *authTestEnv) count(t *testing.T, table string) int {
	t.Helper()
	var n int
	if err := env.db.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&n); err != nil {
		t.Fatalf("count %s: %v", table, err)
	}
	return n
}

func TestSignupCreatesIdentityChain(t *testing.T) {
	env := newAuthTestEnv(t, time.Hour)

	session, principal, err := env.auth.Signup("reader_1", "reader1@example.com", "secret1", "secret1")
	if err != nil {
		t.Fatalf("Signup() error = %v", err)
	}
	if principal.Username != "reader_1" {
		t.Errorf("principal username = %q, want reader_1", principal.Username)
	}

	if got := env.count(t, "credentials"); got != 1 {
		t.Errorf("credentials count = %d, want 1", got)
	}
	if got := env.count(t, "principals"); got != 1 {
		t.Errorf("principals count = %d, want 1", got)
	}
	if got := env.count(t, "profiles"); got != 1 {
		t.Errorf("profiles count = %d, want 1", got)
	}

	profile, err := env.profileRepo.GetByPrincipalID(principal.ID)
	if err != nil || profile == nil {
		t.Fatalf("profile missing after signup: %v", err)
	}
	if profile.Provider != ProviderLocal {
		t.Errorf("profile provider = %q, want %q", profile.Provider, ProviderLocal)
	}

	got, err := env.auth.ValidateSession(session.ID)
	if err != nil {
		t.Fatalf("ValidateSession() error = %v", err)
	}
	if got.ID != principal.ID {
		t.Errorf("session principal = %d, want %d", got.ID, principal.ID)
	}
}

func TestSignupDuplicates(t *testing.T) {
	env := newAuthTestEnv(t, time.Hour)

	if _, _, err := env.auth.Signup("reader_1", "reader1@example.com", "secret1", "secret1"); err != nil {
		t.Fatalf("first Signup() error = %v", err)
	}

	if _, _, err := env.auth.Signup("reader_1", "other@example.com", "secret1", "secret1"); !errors.Is(err, ErrUsernameTaken) {
		t.Errorf("duplicate username error = %v, want ErrUsernameTaken", err)
	}
	if _, _, err := env.auth.Signup("reader_2", "reader1@example.com", "secret1", "secret1"); !errors.Is(err, ErrEmailTaken) {
		t.Errorf("duplicate email error = %v, want ErrEmailTaken", err)
	}

	if got := env.count(t, "credentials"); got != 1 {
		t.Errorf("credentials count = %d, want 1", got)
	}
}

func TestSignupValidation(t *testing.T) {
	env := newAuthTestEnv(t, time.Hour)

	tests := []struct {
		name     string
		username string
		email    string
		password string
		confirm  string
	}{
		{name: "bad username", username: "a!", email: "a@example.com", password: "secret1", confirm: "secret1"},
		{name: "bad email", username: "reader_1", email: "nope", password: "secret1", confirm: "secret1"},
		{name: "short password", username: "reader_1", email: "a@example.com", password: "abc", confirm: "abc"},
		{name: "confirm mismatch", username: "reader_1", email: "a@example.com", password: "secret1", confirm: "secret2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := env.auth.Signup(tt.username, tt.email, tt.password, tt.confirm); err == nil {
				t.Error("Signup() succeeded, want error")
			}
		})
	}

	if got := env.count(t, "credentials"); got != 0 {
		t.Errorf("credentials count after failed signups = %d, want 0", got)
	}
}

func TestLoginReconcilesOutOfBandCredential(t *testing.T) {
	env := newAuthTestEnv(t, time.Hour)

	// Credential created outside the signup flow: no principal or profile yet.
	hash, err := security.HashPassword("secret1")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := env.credRepo.Create("reader_1", "reader1@example.com", hash); err != nil {
		t.Fatal(err)
	}
	if got := env.count(t, "principals"); got != 0 {
		t.Fatalf("principals count before login = %d, want 0", got)
	}

	_, principal, err := env.auth.Login("reader_1", "secret1")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if got := env.count(t, "principals"); got != 1 {
		t.Errorf("principals count = %d, want 1", got)
	}
	if got := env.count(t, "profiles"); got != 1 {
		t.Errorf("profiles count = %d, want 1", got)
	}

	// Reconciliation is idempotent: a second login creates nothing new.
	_, again, err := env.auth.Login("reader1@example.com", "secret1")
	if err != nil {
		t.Fatalf("second Login() error = %v", err)
	}
	if again.ID != principal.ID {
		t.Errorf("second login principal = %d, want %d", again.ID, principal.ID)
	}
	if got := env.count(t, "principals"); got != 1 {
		t.Errorf("principals count after second login = %d, want 1", got)
	}
	if got := env.count(t, "profiles"); got != 1 {
		t.Errorf("profiles count after second login = %d, want 1", got)
	}
}

func TestLoginDoesNotEnumerateUsers(t *testing.T) {
	env := newAuthTestEnv(t, time.Hour)

	if _, _, err := env.auth.Signup("reader_1", "reader1@example.com", "secret1", "secret1"); err != nil {
		t.Fatal(err)
	}

	_, _, unknownErr := env.auth.Login("nobody", "secret1")
	_, _, wrongPassErr := env.auth.Login("reader_1", "wrongpass")

	if !errors.Is(unknownErr, ErrInvalidCredentials) {
		t.Errorf("unknown user error = %v, want ErrInvalidCredentials", unknownErr)
	}
	if !errors.Is(wrongPassErr, ErrInvalidCredentials) {
		t.Errorf("wrong password error = %v, want ErrInvalidCredentials", wrongPassErr)
	}
	if unknownErr.Error() != wrongPassErr.Error() {
		t.Errorf("messages differ: %q vs %q", unknownErr, wrongPassErr)
	}
}

func TestLoginLockout(t *testing.T) {
	env := newAuthTestEnv(t, time.Hour)

	if _, _, err := env.auth.Signup("reader_1", "reader1@example.com", "secret1", "secret1"); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 4; i++ {
		if _, _, err := env.auth.Login("reader_1", "wrongpass"); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("failure #%d error = %v, want ErrInvalidCredentials", i+1, err)
		}
	}

	// The attempt that reaches the threshold reports the lockout itself.
	if _, _, err := env.auth.Login("reader_1", "wrongpass"); !errors.Is(err, ErrAccountNowLocked) {
		t.Fatalf("failure #5 error = %v, want ErrAccountNowLocked", err)
	}

	// Locked out now, even with the correct password.
	if _, _, err := env.auth.Login("reader_1", "secret1"); !errors.Is(err, ErrAccountLocked) {
		t.Errorf("locked login error = %v, want ErrAccountLocked", err)
	}

	// Other identifiers are unaffected, including the same account via email.
	if _, _, err := env.auth.Login("reader1@example.com", "secret1"); err != nil {
		t.Errorf("login via email while username locked: %v", err)
	}
}

func TestSuperuserLogin(t *testing.T) {
	env := newAuthTestEnv(t, time.Hour)

	hash, err := security.HashPassword("adminpass")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := env.principalRepo.Create("boss", "boss@example.com", hash, true); err != nil {
		t.Fatal(err)
	}
	readerHash, err := security.HashPassword("readerpass")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := env.principalRepo.Create("plain", "plain@example.com", readerHash, false); err != nil {
		t.Fatal(err)
	}

	t.Run("success", func(t *testing.T) {
		_, principal, err := env.auth.SuperuserLogin("boss", "adminpass")
		if err != nil {
			t.Fatalf("SuperuserLogin() error = %v", err)
		}
		if !principal.IsSuperuser {
			t.Error("principal is not superuser")
		}
	})

	t.Run("wrong password reports remaining attempts", func(t *testing.T) {
		_, _, err := env.auth.SuperuserLogin("boss", "wrongpass")
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("error = %v, want wrapped ErrInvalidCredentials", err)
		}
		if !strings.Contains(err.Error(), "4 attempt(s) remaining.") {
			t.Errorf("error message = %q, want remaining-attempts suffix", err)
		}
	})

	t.Run("non-superuser rejected", func(t *testing.T) {
		_, _, err := env.auth.SuperuserLogin("plain", "readerpass")
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("error = %v, want ErrInvalidCredentials", err)
		}
	})

	t.Run("markup rejected before lookup", func(t *testing.T) {
		if _, _, err := env.auth.SuperuserLogin("<script>", "adminpass"); err == nil {
			t.Error("markup username accepted")
		}
		if _, _, err := env.auth.SuperuserLogin("boss", "https://evil.example"); err == nil {
			t.Error("link password accepted")
		}
	})

	t.Run("lockout after five failures", func(t *testing.T) {
		for i := 0; i < 4; i++ {
			_, _, err := env.auth.SuperuserLogin("target", "wrongpass")
			if errors.Is(err, ErrAccountNowLocked) {
				t.Fatalf("locked after %d failures", i+1)
			}
		}
		if _, _, err := env.auth.SuperuserLogin("target", "wrongpass"); !errors.Is(err, ErrAccountNowLocked) {
			t.Errorf("fifth failure error = %v, want ErrAccountNowLocked", err)
		}
		if _, _, err := env.auth.SuperuserLogin("target", "wrongpass"); !errors.Is(err, ErrAccountLocked) {
			t.Errorf("post-lockout error = %v, want ErrAccountLocked", err)
		}
	})
}

func TestSocialLoginSyncsProfile(t *testing.T) {
	env := newAuthTestEnv(t, time.Hour)

	first := SocialPayload{Name: "Jane Doe", Email: "jane@example.com", PictureURL: "https://img.example/1.png"}
	_, principal, err := env.auth.SocialLogin(ProviderGoogle, first)
	if err != nil {
		t.Fatalf("SocialLogin() error = %v", err)
	}

	if got := env.count(t, "credentials"); got != 0 {
		t.Errorf("credentials count = %d, want 0 for social login", got)
	}
	if got := env.count(t, "principals"); got != 1 {
		t.Errorf("principals count = %d, want 1", got)
	}

	profile, err := env.profileRepo.GetByPrincipalID(principal.ID)
	if err != nil || profile == nil {
		t.Fatalf("profile missing: %v", err)
	}
	if profile.FullName != "Jane Doe" || profile.Avatar != "https://img.example/1.png" {
		t.Errorf("profile = %+v, want first payload applied", profile)
	}
	if profile.Provider != ProviderGoogle {
		t.Errorf("provider = %q, want %q", profile.Provider, ProviderGoogle)
	}

	// Subsequent login overwrites the profile; last payload wins.
	second := SocialPayload{Name: "Jane Q. Doe", Email: "jane@example.com", PictureURL: "https://img.example/2.png"}
	_, again, err := env.auth.SocialLogin(ProviderGoogle, second)
	if err != nil {
		t.Fatalf("second SocialLogin() error = %v", err)
	}
	if again.ID != principal.ID {
		t.Errorf("second login principal = %d, want %d", again.ID, principal.ID)
	}

	profile, _ = env.profileRepo.GetByPrincipalID(principal.ID)
	if profile.FullName != "Jane Q. Doe" || profile.Avatar != "https://img.example/2.png" {
		t.Errorf("profile = %+v, want second payload applied", profile)
	}
	if got := env.count(t, "profiles"); got != 1 {
		t.Errorf("profiles count = %d, want 1", got)
	}
}

func TestPasswordResetFlow(t *testing.T) {
	env := newAuthTestEnv(t, time.Hour)
	ctx := context.Background()

	if _, _, err := env.auth.Signup("reader_1", "reader1@example.com", "secret1", "secret1"); err != nil {
		t.Fatal(err)
	}

	// The email service is disabled, so delivery fails; the token must still
	// be issued and persisted.
	token, err := env.auth.RequestPasswordReset(ctx, env.email, "reader_1")
	if !errors.Is(err, ErrEmailDelivery) {
		t.Fatalf("RequestPasswordReset() error = %v, want ErrEmailDelivery", err)
	}
	if token == "" {
		t.Fatal("no token returned")
	}

	valid, err := env.auth.ValidateResetToken(token)
	if err != nil || !valid {
		t.Fatalf("ValidateResetToken() = %v, %v, want true", valid, err)
	}

	if err := env.auth.ResetPassword(token, "newsecret", "different"); !errors.Is(err, ErrPasswordMismatch) {
		t.Errorf("confirm mismatch error = %v, want ErrPasswordMismatch", err)
	}

	if err := env.auth.ResetPassword(token, "newsecret", "newsecret"); err != nil {
		t.Fatalf("ResetPassword() error = %v", err)
	}

	// Token is single use.
	if valid, _ := env.auth.ValidateResetToken(token); valid {
		t.Error("token still valid after use")
	}
	if err := env.auth.ResetPassword(token, "again123", "again123"); !errors.Is(err, ErrInvalidResetToken) {
		t.Errorf("reuse error = %v, want ErrInvalidResetToken", err)
	}

	// Old password no longer works, new one does.
	if _, _, err := env.auth.Login("reader_1", "secret1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("old password error = %v, want ErrInvalidCredentials", err)
	}
	if _, _, err := env.auth.Login("reader_1", "newsecret"); err != nil {
		t.Errorf("new password login error = %v", err)
	}
}

func TestPasswordResetUnknownIdentifier(t *testing.T) {
	env := newAuthTestEnv(t, time.Hour)

	_, err := env.auth.RequestPasswordReset(context.Background(), env.email, "nobody")
	if !errors.Is(err, ErrUserNotFound) {
		t.Errorf("error = %v, want ErrUserNotFound", err)
	}
}

func TestResetTokenExpiry(t *testing.T) {
	env := newAuthTestEnv(t, time.Hour)

	if _, _, err := env.auth.Signup("reader_1", "reader1@example.com", "secret1", "secret1"); err != nil {
		t.Fatal(err)
	}

	now := time.Now()
	env.auth.now = func() time.Time { return now }

	token, err := env.auth.RequestPasswordReset(context.Background(), env.email, "reader_1")
	if !errors.Is(err, ErrEmailDelivery) {
		t.Fatalf("RequestPasswordReset() error = %v", err)
	}

	now = now.Add(59 * time.Minute)
	if valid, _ := env.auth.ValidateResetToken(token); !valid {
		t.Error("token invalid before expiry")
	}

	now = now.Add(2 * time.Minute)
	if valid, _ := env.auth.ValidateResetToken(token); valid {
		t.Error("token valid after expiry")
	}
	if err := env.auth.ResetPassword(token, "newsecret", "newsecret"); !errors.Is(err, ErrInvalidResetToken) {
		t.Errorf("expired reset error = %v, want ErrInvalidResetToken", err)
	}
}

func TestCleanupExpiredResetTokens(t *testing.T) {
	env := newAuthTestEnv(t, time.Hour)

	if _, _, err := env.auth.Signup("reader_1", "reader1@example.com", "secret1", "secret1"); err != nil {
		t.Fatal(err)
	}
	if _, _, err := env.auth.Signup("reader_2", "reader2@example.com", "secret2", "secret2"); err != nil {
		t.Fatal(err)
	}

	now := time.Now()
	env.auth.now = func() time.Time { return now }

	staleToken, err := env.auth.RequestPasswordReset(context.Background(), env.email, "reader_1")
	if !errors.Is(err, ErrEmailDelivery) {
		t.Fatalf("RequestPasswordReset() error = %v", err)
	}

	now = now.Add(30 * time.Minute)
	freshToken, err := env.auth.RequestPasswordReset(context.Background(), env.email, "reader_2")
	if !errors.Is(err, ErrEmailDelivery) {
		t.Fatalf("RequestPasswordReset() error = %v", err)
	}

	// First token is past its window, second is not.
	now = now.Add(45 * time.Minute)
	if err := env.auth.CleanupExpiredResetTokens(); err != nil {
		t.Fatalf("CleanupExpiredResetTokens() error = %v", err)
	}

	cred, err := env.credRepo.GetByResetToken(staleToken)
	if err != nil {
		t.Fatal(err)
	}
	if cred != nil {
		t.Error("stale token still on the credential row after cleanup")
	}

	if valid, _ := env.auth.ValidateResetToken(freshToken); !valid {
		t.Error("unexpired token removed by cleanup")
	}
}

func TestSessionLifecycle(t *testing.T) {
	env := newAuthTestEnv(t, time.Hour)

	session, _, err := env.auth.Signup("reader_1", "reader1@example.com", "secret1", "secret1")
	if err != nil {
		t.Fatal(err)
	}

	if err := env.auth.Logout(session.ID); err != nil {
		t.Fatalf("Logout() error = %v", err)
	}
	if _, err := env.auth.ValidateSession(session.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("after logout error = %v, want ErrSessionNotFound", err)
	}
}

func TestExpiredSessionRejectedAndRemoved(t *testing.T) {
	env := newAuthTestEnv(t, -time.Minute)

	session, _, err := env.auth.Signup("reader_1", "reader1@example.com", "secret1", "secret1")
	if err != nil {
		t.Fatal(err)
	}

	if _, err := env.auth.ValidateSession(session.ID); !errors.Is(err, ErrSessionExpired) {
		t.Errorf("expired session error = %v, want ErrSessionExpired", err)
	}
	// The expired session is removed on first touch.
	if _, err := env.auth.ValidateSession(session.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("second check error = %v, want ErrSessionNotFound", err)
	}
}
