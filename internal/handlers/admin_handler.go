package handlers

import (
	"net/http"
	"strconv"

	"newsroom/internal/repository"
	"newsroom/internal/service"
)

// AdminHandler serves the superuser dashboard operations. Every route is
// wrapped in RequireSuperuser by the caller.
type AdminHandler struct {
	newsService   *service.NewsService
	principalRepo *repository.PrincipalRepository
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(newsService *service.NewsService, principalRepo *repository.PrincipalRepository) *AdminHandler {
	return &AdminHandler{
		newsService:   newsService,
		principalRepo: principalRepo,
	}
}

// Dashboard lists all reader accounts with their activity state
func (h *AdminHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	users, err := h.principalRepo.GetAllWithProviders()
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Internal server error", "dashboard listing", err)
		return
	}

	active, err := h.principalRepo.ActivePrincipalIDs()
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Internal server error", "active sessions", err)
		return
	}

	views := make([]dashboardUserView, 0, len(users))
	for _, u := range users {
		provider := u.Provider
		if provider == "" {
			provider = service.ProviderLocal
		}
		views = append(views, dashboardUserView{
			ID:        u.Principal.ID,
			Username:  u.Principal.Username,
			Email:     u.Principal.Email,
			Provider:  provider,
			Active:    active[u.Principal.ID],
			LastLogin: u.Principal.LastLogin,
		})
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"users":   views,
	})
}

// AddCategory creates a category
func (h *AdminHandler) AddCategory(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid form data", "", nil)
		return
	}

	category, err := h.newsService.AddCategory(r.FormValue("name"))
	if err != nil {
		respondNewsError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, map[string]interface{}{
		"success":  true,
		"category": toCategoryView(*category),
	})
}

// RenameCategory changes a category's name
func (h *AdminHandler) RenameCategory(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid form data", "", nil)
		return
	}

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid category id", "", nil)
		return
	}

	if err := h.newsService.RenameCategory(id, r.FormValue("name")); err != nil {
		respondNewsError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

// DeleteCategory removes a category and its posts
func (h *AdminHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid category id", "", nil)
		return
	}

	if err := h.newsService.DeleteCategory(id); err != nil {
		respondNewsError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

// AddPost publishes an admin post
func (h *AdminHandler) AddPost(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid form data", "", nil)
		return
	}
	principal := GetPrincipalFromContext(r.Context())

	post, err := h.newsService.CreatePost(principal.ID, postInputFromForm(r))
	if err != nil {
		respondNewsError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"post":    toPostView(*post),
	})
}

// EditPost edits any post
func (h *AdminHandler) EditPost(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid form data", "", nil)
		return
	}

	post, err := h.newsService.UpdatePost(r.PathValue("id"), 0, postInputFromForm(r))
	if err != nil {
		respondNewsError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"post":    toPostView(*post),
	})
}

// DeletePosts bulk-deletes posts by a comma separated id list
func (h *AdminHandler) DeletePosts(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid form data", "", nil)
		return
	}

	ids := service.ParsePostIDs(r.FormValue("ids"))
	if err := h.newsService.DeletePosts(ids, 0); err != nil {
		respondNewsError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

// AddStory publishes a story
func (h *AdminHandler) AddStory(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid form data", "", nil)
		return
	}

	story, err := h.newsService.AddStory(
		r.FormValue("link"),
		r.FormValue("description"),
		r.FormValue("image_url"),
		r.FormValue("video_url"),
	)
	if err != nil {
		respondNewsError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"story": storyView{
			ID:          story.ID,
			Link:        story.Link,
			Description: story.Description,
			ImageURL:    story.ImageURL,
			VideoURL:    story.VideoURL,
			CreatedAt:   story.CreatedAt,
		},
	})
}

// DeleteStories bulk-deletes stories by a comma separated id list
func (h *AdminHandler) DeleteStories(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid form data", "", nil)
		return
	}

	ids := service.ParsePostIDs(r.FormValue("ids"))
	if err := h.newsService.DeleteStories(ids); err != nil {
		respondNewsError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}
