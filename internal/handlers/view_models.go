package handlers

import (
	"time"

	"newsroom/internal/models"
)

// JSON shapes returned by the API. Kept separate from the models so the
// wire format does not leak storage details.

type categoryView struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type postView struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Category    string    `json:"category"`
	Description string    `json:"description"`
	ImageURL    string    `json:"image_url,omitempty"`
	VideoURL    string    `json:"video_url,omitempty"`
	Author      string    `json:"author,omitempty"`
	AdminPost   bool      `json:"admin_post"`
	LikeCount   int       `json:"like_count"`
	CreatedAt   time.Time `json:"created_at"`
}

type storyView struct {
	ID          string    `json:"id"`
	Link        string    `json:"link,omitempty"`
	Description string    `json:"description,omitempty"`
	ImageURL    string    `json:"image_url,omitempty"`
	VideoURL    string    `json:"video_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type commentView struct {
	ID        string    `json:"id"`
	PostID    string    `json:"post_id"`
	ParentID  string    `json:"parent_id,omitempty"`
	Text      string    `json:"text,omitempty"`
	AudioURL  string    `json:"audio_url,omitempty"`
	Username  string    `json:"username"`
	Avatar    string    `json:"avatar,omitempty"`
	LikeCount int       `json:"like_count"`
	CreatedAt time.Time `json:"created_at"`
}

type dashboardUserView struct {
	ID        int64      `json:"id"`
	Username  string     `json:"username"`
	Email     string     `json:"email"`
	Provider  string     `json:"provider"`
	Active    bool       `json:"active"`
	LastLogin *time.Time `json:"last_login,omitempty"`
}

func toCategoryView(c models.Category) categoryView {
	return categoryView{ID: c.ID, Name: c.Name}
}

func toCategoryViews(categories []models.Category) []categoryView {
	views := make([]categoryView, 0, len(categories))
	for _, c := range categories {
		views = append(views, toCategoryView(c))
	}
	return views
}

func toPostView(p models.Post) postView {
	return postView{
		ID:          p.ID,
		Title:       p.Title,
		Category:    p.CategoryName,
		Description: p.Description,
		ImageURL:    p.ImageURL,
		VideoURL:    p.VideoURL,
		Author:      p.AuthorName,
		AdminPost:   p.IsAdminPost(),
		LikeCount:   p.LikeCount,
		CreatedAt:   p.CreatedAt,
	}
}

func toPostViews(posts []models.Post) []postView {
	views := make([]postView, 0, len(posts))
	for _, p := range posts {
		views = append(views, toPostView(p))
	}
	return views
}

func toStoryViews(stories []models.Story) []storyView {
	views := make([]storyView, 0, len(stories))
	for _, s := range stories {
		views = append(views, storyView{
			ID:          s.ID,
			Link:        s.Link,
			Description: s.Description,
			ImageURL:    s.ImageURL,
			VideoURL:    s.VideoURL,
			CreatedAt:   s.CreatedAt,
		})
	}
	return views
}

func toCommentView(c models.Comment) commentView {
	return commentView{
		ID:        c.ID,
		PostID:    c.PostID,
		ParentID:  c.ParentID,
		Text:      c.Text,
		AudioURL:  c.AudioURL,
		Username:  c.Username,
		Avatar:    c.Avatar,
		LikeCount: c.LikeCount,
		CreatedAt: c.CreatedAt,
	}
}

func toCommentViews(comments []models.Comment) []commentView {
	views := make([]commentView, 0, len(comments))
	for _, c := range comments {
		views = append(views, toCommentView(c))
	}
	return views
}
