package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"newsroom/internal/repository"
	"newsroom/internal/service"
	"newsroom/internal/validation"
)

// NewsHandler serves the public feed, post pages and reader interactions.
type NewsHandler struct {
	newsService    *service.NewsService
	commentService *service.CommentService
}

// NewNewsHandler creates a new news handler
func NewNewsHandler(newsService *service.NewsService, commentService *service.CommentService) *NewsHandler {
	return &NewsHandler{
		newsService:    newsService,
		commentService: commentService,
	}
}

func statusForNewsError(err error) int {
	var verr validation.ValidationError
	switch {
	case errors.Is(err, service.ErrPostNotFound),
		errors.Is(err, service.ErrCategoryNotFound),
		errors.Is(err, service.ErrCommentNotFound):
		return http.StatusNotFound
	case errors.As(err, &verr),
		errors.Is(err, service.ErrMediaRequired),
		errors.Is(err, service.ErrCommentEmpty):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func respondNewsError(w http.ResponseWriter, err error) {
	status := statusForNewsError(err)
	if status == http.StatusInternalServerError {
		respondWithError(w, status, "Internal server error", "news error", err)
		return
	}
	respondWithError(w, status, err.Error(), "", nil)
}

// feedFilter builds a post filter from query parameters. Unparseable values
// are ignored rather than rejected.
func feedFilter(r *http.Request) repository.PostFilter {
	var filter repository.PostFilter

	if raw := r.URL.Query().Get("category"); raw != "" {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil && id > 0 {
			filter.CategoryID = id
		}
	}
	if media := r.URL.Query().Get("media"); media == "Image" || media == "Video" {
		filter.MediaType = media
	}
	if raw := r.URL.Query().Get("date"); raw != "" {
		if day, err := time.Parse("2006-01-02", raw); err == nil {
			filter.Date = &day
		}
	}

	return filter
}

// Feed serves the front-page post listing with stories and categories
func (h *NewsHandler) Feed(w http.ResponseWriter, r *http.Request) {
	feed, err := h.newsService.GetFeed(feedFilter(r))
	if err != nil {
		respondNewsError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success":     true,
		"posts":       toPostViews(feed.Posts),
		"big_indexes": feed.BigIndexes,
		"stories":     toStoryViews(feed.Stories),
		"categories":  toCategoryViews(feed.Categories),
	})
}

// Post serves a single post with its comments and related posts
func (h *NewsHandler) Post(w http.ResponseWriter, r *http.Request) {
	post, err := h.newsService.GetPost(r.PathValue("id"))
	if err != nil {
		respondNewsError(w, err)
		return
	}

	comments, err := h.commentService.CommentsForPost(post.ID)
	if err != nil {
		respondNewsError(w, err)
		return
	}

	related, err := h.newsService.RelatedPosts(post)
	if err != nil {
		respondNewsError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"post":     toPostView(*post),
		"comments": toCommentViews(comments),
		"related":  toPostViews(related),
	})
}

// TogglePostLike flips the caller's like on a post
func (h *NewsHandler) TogglePostLike(w http.ResponseWriter, r *http.Request) {
	principal := GetPrincipalFromContext(r.Context())

	liked, count, err := h.newsService.TogglePostLike(principal.ID, r.PathValue("id"))
	if err != nil {
		respondNewsError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success":    true,
		"liked":      liked,
		"like_count": count,
	})
}

// AddComment posts a comment or a reply on a post
func (h *NewsHandler) AddComment(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid form data", "", nil)
		return
	}
	principal := GetPrincipalFromContext(r.Context())

	comment, err := h.commentService.AddComment(
		principal.ID,
		r.PathValue("id"),
		r.FormValue("parent_id"),
		r.FormValue("text"),
		r.FormValue("audio_url"),
	)
	if err != nil {
		respondNewsError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"comment": toCommentView(*comment),
	})
}

// ToggleCommentLike flips the caller's like on a comment
func (h *NewsHandler) ToggleCommentLike(w http.ResponseWriter, r *http.Request) {
	principal := GetPrincipalFromContext(r.Context())

	liked, count, err := h.commentService.ToggleLike(principal.ID, r.PathValue("id"))
	if err != nil {
		respondNewsError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success":    true,
		"liked":      liked,
		"like_count": count,
	})
}

// DeleteComment removes the caller's own comment
func (h *NewsHandler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	principal := GetPrincipalFromContext(r.Context())

	if err := h.commentService.DeleteComment(principal.ID, r.PathValue("id")); err != nil {
		respondNewsError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

// MyPosts lists the caller's own posts
func (h *NewsHandler) MyPosts(w http.ResponseWriter, r *http.Request) {
	principal := GetPrincipalFromContext(r.Context())

	posts, err := h.newsService.GetFeed(repository.PostFilter{AuthorID: principal.ID})
	if err != nil {
		respondNewsError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"posts":   toPostViews(posts.Posts),
	})
}

// CreateMyPost creates a post authored by the caller
func (h *NewsHandler) CreateMyPost(w http.ResponseWriter, r *http.Request) {
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

// UpdateMyPost edits a post the caller owns
func (h *NewsHandler) UpdateMyPost(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid form data", "", nil)
		return
	}
	principal := GetPrincipalFromContext(r.Context())

	post, err := h.newsService.UpdatePost(r.PathValue("id"), principal.ID, postInputFromForm(r))
	if err != nil {
		respondNewsError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"post":    toPostView(*post),
	})
}

// DeleteMyPosts bulk-deletes posts the caller owns
func (h *NewsHandler) DeleteMyPosts(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid form data", "", nil)
		return
	}
	principal := GetPrincipalFromContext(r.Context())

	ids := service.ParsePostIDs(r.FormValue("ids"))
	if err := h.newsService.DeletePosts(ids, principal.ID); err != nil {
		respondNewsError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

func postInputFromForm(r *http.Request) service.PostInput {
	return service.PostInput{
		Title:        r.FormValue("title"),
		CategoryName: r.FormValue("category"),
		Description:  r.FormValue("description"),
		ImageURL:     r.FormValue("image_url"),
		VideoURL:     r.FormValue("video_url"),
	}
}
