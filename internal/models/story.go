package models

import "time"

// Story is a short-lived carousel item. A story must carry an image or a video.
type Story struct {
	ID          string // UUID
	Link        string
	Description string
	ImageURL    string
	VideoURL    string
	CreatedAt   time.Time
}

// HasMedia reports whether the story carries an image or a video.
func (s *Story) HasMedia() bool {
	return s.ImageURL != "" || s.VideoURL != ""
}
