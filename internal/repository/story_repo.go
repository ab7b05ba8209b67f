package repository

import (
	"database/sql"
	"fmt"
	"strings"

	"newsroom/internal/database"
	"newsroom/internal/models"
)

// StoryRepository handles database operations for stories
type StoryRepository struct {
	db *database.DB
}

// NewStoryRepository creates a new story repository
func NewStoryRepository(db *database.DB) *StoryRepository {
	return &StoryRepository{db: db}
}

// Create inserts a new story
func (r *StoryRepository) Create(story *models.Story) error {
	query := `
		INSERT INTO stories (id, link, description, image_url, video_url)
		VALUES (?, ?, ?, ?, ?)
	`
	_, err := r.db.Exec(query,
		story.ID, story.Link, story.Description, story.ImageURL, story.VideoURL,
	)
	if err != nil {
		return fmt.Errorf("failed to create story: %w", err)
	}
	return nil
}

// GetByID retrieves a story by ID
func (r *StoryRepository) GetByID(id string) (*models.Story, error) {
	query := `
		SELECT id, COALESCE(link, ''), description,
		       COALESCE(image_url, ''), COALESCE(video_url, ''), created_at
		FROM stories
		WHERE id = ?
	`
	story := &models.Story{}
	err := r.db.QueryRow(query, id).Scan(
		&story.ID, &story.Link, &story.Description,
		&story.ImageURL, &story.VideoURL, &story.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get story: %w", err)
	}
	return story, nil
}

// GetAll retrieves all stories, newest first
func (r *StoryRepository) GetAll() ([]models.Story, error) {
	query := `
		SELECT id, COALESCE(link, ''), description,
		       COALESCE(image_url, ''), COALESCE(video_url, ''), created_at
		FROM stories
		ORDER BY created_at DESC
	`
	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query stories: %w", err)
	}
	defer rows.Close()

	var stories []models.Story
	for rows.Next() {
		var story models.Story
		if err := rows.Scan(
			&story.ID, &story.Link, &story.Description,
			&story.ImageURL, &story.VideoURL, &story.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan story: %w", err)
		}
		stories = append(stories, story)
	}

	return stories, rows.Err()
}

// DeleteMany removes the stories with the given IDs
func (r *StoryRepository) DeleteMany(ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]
	query := "DELETE FROM stories WHERE id IN (" + placeholders + ")"

	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	if _, err := r.db.Exec(query, args...); err != nil {
		return fmt.Errorf("failed to delete stories: %w", err)
	}
	return nil
}
