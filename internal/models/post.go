package models

import "time"

// Category groups posts for the front-page filters.
type Category struct {
	ID        int64
	Name      string
	CreatedAt time.Time
}

// Post is a news article with at most one media attachment.
// AuthorID is null for admin-published posts whose author was removed.
type Post struct {
	ID          string // UUID
	Title       string
	CategoryID  int64
	Description string
	ImageURL    string
	VideoURL    string
	AuthorID    *int64
	CreatedAt   time.Time

	// Joined fields
	CategoryName  string
	AuthorName    string
	AuthorIsSuper bool
	LikeCount     int
}

// HasMedia reports whether the post carries an image or a video.
func (p *Post) HasMedia() bool {
	return p.ImageURL != "" || p.VideoURL != ""
}

// IsAdminPost reports whether the post was authored by a superuser.
func (p *Post) IsAdminPost() bool {
	return p.AuthorID != nil && p.AuthorIsSuper
}

// PostLike records one like per principal per post.
type PostLike struct {
	PrincipalID int64
	PostID      string
	CreatedAt   time.Time
}
