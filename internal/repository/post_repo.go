package repository

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"newsroom/internal/database"
	"newsroom/internal/models"
)

// PostRepository handles database operations for posts and post likes
type PostRepository struct {
	db *database.DB
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *database.DB) *PostRepository {
	return &PostRepository{db: db}
}

// PostFilter narrows the feed listing. Zero values mean no filtering.
type PostFilter struct {
	CategoryID int64
	MediaType  string // "Image" or "Video"
	Date       *time.Time
	AuthorID   int64
}

const postSelect = `
	SELECT p.id, p.title, p.category_id, p.description,
	       COALESCE(p.image_url, ''), COALESCE(p.video_url, ''),
	       p.author_id, p.created_at,
	       c.name,
	       COALESCE(pr.username, ''), COALESCE(pr.is_superuser, ` + "%s" + `),
	       (SELECT COUNT(*) FROM post_likes pl WHERE pl.post_id = p.id)
	FROM posts p
	JOIN categories c ON c.id = p.category_id
	LEFT JOIN principals pr ON pr.id = p.author_id
`

func (r *PostRepository) selectClause() string {
	return fmt.Sprintf(postSelect, r.db.Dialect.BoolValue(false))
}

// Create inserts a new post
func (r *PostRepository) Create(post *models.Post) error {
	query := `
		INSERT INTO posts (id, title, category_id, description, image_url, video_url, author_id)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.Exec(query,
		post.ID, post.Title, post.CategoryID, post.Description,
		post.ImageURL, post.VideoURL, post.AuthorID,
	)
	if err != nil {
		return fmt.Errorf("failed to create post: %w", err)
	}
	return nil
}

// GetByID retrieves a post with its category, author and like count
func (r *PostRepository) GetByID(id string) (*models.Post, error) {
	query := r.selectClause() + " WHERE p.id = ?"
	return r.scanOne(r.db.QueryRow(query, id))
}

func (r *PostRepository) scanOne(row *sql.Row) (*models.Post, error) {
	post := &models.Post{}
	var authorID sql.NullInt64
	err := row.Scan(
		&post.ID, &post.Title, &post.CategoryID, &post.Description,
		&post.ImageURL, &post.VideoURL,
		&authorID, &post.CreatedAt,
		&post.CategoryName,
		&post.AuthorName, &post.AuthorIsSuper,
		&post.LikeCount,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get post: %w", err)
	}
	if authorID.Valid {
		post.AuthorID = &authorID.Int64
	}
	return post, nil
}

// List retrieves posts newest first, optionally filtered
func (r *PostRepository) List(filter PostFilter) ([]models.Post, error) {
	var conditions []string
	var args []interface{}

	if filter.CategoryID != 0 {
		conditions = append(conditions, "p.category_id = ?")
		args = append(args, filter.CategoryID)
	}
	switch filter.MediaType {
	case "Image":
		conditions = append(conditions, "COALESCE(p.image_url, '') <> ''")
	case "Video":
		conditions = append(conditions, "COALESCE(p.video_url, '') <> ''")
	}
	if filter.Date != nil {
		day := filter.Date.Truncate(24 * time.Hour)
		conditions = append(conditions, "p.created_at >= ? AND p.created_at < ?")
		args = append(args, day, day.Add(24*time.Hour))
	}
	if filter.AuthorID != 0 {
		conditions = append(conditions, "p.author_id = ?")
		args = append(args, filter.AuthorID)
	}

	query := r.selectClause()
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY p.created_at DESC"

	return r.list(query, args...)
}

// ListRelated retrieves up to limit posts in the same category, excluding one
func (r *PostRepository) ListRelated(categoryID int64, excludeID string, limit int) ([]models.Post, error) {
	query := r.selectClause() + `
		WHERE p.category_id = ? AND p.id <> ?
		ORDER BY p.created_at DESC
		LIMIT ?
	`
	return r.list(query, categoryID, excludeID, limit)
}

func (r *PostRepository) list(query string, args ...interface{}) ([]models.Post, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query posts: %w", err)
	}
	defer rows.Close()

	var posts []models.Post
	for rows.Next() {
		var post models.Post
		var authorID sql.NullInt64
		if err := rows.Scan(
			&post.ID, &post.Title, &post.CategoryID, &post.Description,
			&post.ImageURL, &post.VideoURL,
			&authorID, &post.CreatedAt,
			&post.CategoryName,
			&post.AuthorName, &post.AuthorIsSuper,
			&post.LikeCount,
		); err != nil {
			return nil, fmt.Errorf("failed to scan post: %w", err)
		}
		if authorID.Valid {
			post.AuthorID = &authorID.Int64
		}
		posts = append(posts, post)
	}

	return posts, rows.Err()
}

// Update saves a post's editable fields
func (r *PostRepository) Update(post *models.Post) error {
	query := `
		UPDATE posts
		SET title = ?, category_id = ?, description = ?, image_url = ?, video_url = ?
		WHERE id = ?
	`
	if _, err := r.db.Exec(query,
		post.Title, post.CategoryID, post.Description,
		post.ImageURL, post.VideoURL, post.ID,
	); err != nil {
		return fmt.Errorf("failed to update post: %w", err)
	}
	return nil
}

// DeleteMany removes the posts with the given IDs
func (r *PostRepository) DeleteMany(ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]
	query := "DELETE FROM posts WHERE id IN (" + placeholders + ")"

	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	if _, err := r.db.Exec(query, args...); err != nil {
		return fmt.Errorf("failed to delete posts: %w", err)
	}
	return nil
}

// ToggleLike adds or removes a like and returns the resulting state and count.
// Runs in a transaction so the returned count matches the toggled state.
func (r *PostRepository) ToggleLike(principalID int64, postID string) (bool, int, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return false, 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var existing int
	err = tx.QueryRow(
		"SELECT COUNT(*) FROM post_likes WHERE principal_id = ? AND post_id = ?",
		principalID, postID,
	).Scan(&existing)
	if err != nil {
		return false, 0, fmt.Errorf("failed to check post like: %w", err)
	}

	liked := existing == 0
	if liked {
		_, err = tx.Exec(
			"INSERT INTO post_likes (principal_id, post_id) VALUES (?, ?)",
			principalID, postID,
		)
		if err != nil {
			return false, 0, fmt.Errorf("failed to like post: %w", err)
		}
	} else {
		_, err = tx.Exec(
			"DELETE FROM post_likes WHERE principal_id = ? AND post_id = ?",
			principalID, postID,
		)
		if err != nil {
			return false, 0, fmt.Errorf("failed to unlike post: %w", err)
		}
	}

	var count int
	err = tx.QueryRow("SELECT COUNT(*) FROM post_likes WHERE post_id = ?", postID).Scan(&count)
	if err != nil {
		return false, 0, fmt.Errorf("failed to count post likes: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return false, 0, fmt.Errorf("failed to commit like toggle: %w", err)
	}
	return liked, count, nil
}
