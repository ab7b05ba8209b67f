package models

import "time"

// Comment is a threaded comment on a post. Text and audio are both optional
// but at least one must be present. ParentID is empty for top-level comments.
type Comment struct {
	ID          string // UUID
	PrincipalID int64
	PostID      string
	ParentID    string
	Text        string
	AudioURL    string
	CreatedAt   time.Time

	// Joined fields
	Username  string
	Avatar    string
	LikeCount int
}

// IsReply reports whether the comment is a reply to another comment.
func (c *Comment) IsReply() bool {
	return c.ParentID != ""
}
