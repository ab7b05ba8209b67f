package repository

import (
	"database/sql"
	"fmt"

	"newsroom/internal/database"
	"newsroom/internal/models"
)

// CommentRepository handles database operations for comments and comment likes
type CommentRepository struct {
	db *database.DB
}

// NewCommentRepository creates a new comment repository
func NewCommentRepository(db *database.DB) *CommentRepository {
	return &CommentRepository{db: db}
}

const commentSelect = `
	SELECT cm.id, cm.principal_id, cm.post_id, COALESCE(cm.parent_id, ''),
	       cm.text, COALESCE(cm.audio_url, ''), cm.created_at,
	       pr.username, COALESCE(pf.avatar, ''),
	       (SELECT COUNT(*) FROM comment_likes cl WHERE cl.comment_id = cm.id)
	FROM comments cm
	JOIN principals pr ON pr.id = cm.principal_id
	LEFT JOIN profiles pf ON pf.principal_id = pr.id
`

// Create inserts a new comment
func (r *CommentRepository) Create(comment *models.Comment) error {
	var parent interface{}
	if comment.ParentID != "" {
		parent = comment.ParentID
	}
	query := `
		INSERT INTO comments (id, principal_id, post_id, parent_id, text, audio_url)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.Exec(query,
		comment.ID, comment.PrincipalID, comment.PostID,
		parent, comment.Text, comment.AudioURL,
	)
	if err != nil {
		return fmt.Errorf("failed to create comment: %w", err)
	}
	return nil
}

// GetByID retrieves a comment by ID
func (r *CommentRepository) GetByID(id string) (*models.Comment, error) {
	query := commentSelect + " WHERE cm.id = ?"
	comment := &models.Comment{}
	err := r.db.QueryRow(query, id).Scan(
		&comment.ID, &comment.PrincipalID, &comment.PostID, &comment.ParentID,
		&comment.Text, &comment.AudioURL, &comment.CreatedAt,
		&comment.Username, &comment.Avatar,
		&comment.LikeCount,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get comment: %w", err)
	}
	return comment, nil
}

// ListByPost retrieves a post's comments, newest first
func (r *CommentRepository) ListByPost(postID string) ([]models.Comment, error) {
	query := commentSelect + " WHERE cm.post_id = ? ORDER BY cm.created_at DESC"
	rows, err := r.db.Query(query, postID)
	if err != nil {
		return nil, fmt.Errorf("failed to query comments: %w", err)
	}
	defer rows.Close()

	var comments []models.Comment
	for rows.Next() {
		var comment models.Comment
		if err := rows.Scan(
			&comment.ID, &comment.PrincipalID, &comment.PostID, &comment.ParentID,
			&comment.Text, &comment.AudioURL, &comment.CreatedAt,
			&comment.Username, &comment.Avatar,
			&comment.LikeCount,
		); err != nil {
			return nil, fmt.Errorf("failed to scan comment: %w", err)
		}
		comments = append(comments, comment)
	}

	return comments, rows.Err()
}

// Delete removes a comment (replies cascade via foreign key)
func (r *CommentRepository) Delete(id string) error {
	if _, err := r.db.Exec("DELETE FROM comments WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete comment: %w", err)
	}
	return nil
}

// ToggleLike adds or removes a like and returns the resulting count.
// Runs in a transaction so the returned count matches the toggled state.
func (r *CommentRepository) ToggleLike(principalID int64, commentID string) (bool, int, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return false, 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var existing int
	err = tx.QueryRow(
		"SELECT COUNT(*) FROM comment_likes WHERE principal_id = ? AND comment_id = ?",
		principalID, commentID,
	).Scan(&existing)
	if err != nil {
		return false, 0, fmt.Errorf("failed to check comment like: %w", err)
	}

	liked := existing == 0
	if liked {
		_, err = tx.Exec(
			"INSERT INTO comment_likes (principal_id, comment_id) VALUES (?, ?)",
			principalID, commentID,
		)
		if err != nil {
			return false, 0, fmt.Errorf("failed to like comment: %w", err)
		}
	} else {
		_, err = tx.Exec(
			"DELETE FROM comment_likes WHERE principal_id = ? AND comment_id = ?",
			principalID, commentID,
		)
		if err != nil {
			return false, 0, fmt.Errorf("failed to unlike comment: %w", err)
		}
	}

	var count int
	err = tx.QueryRow("SELECT COUNT(*) FROM comment_likes WHERE comment_id = ?", commentID).Scan(&count)
	if err != nil {
		return false, 0, fmt.Errorf("failed to count comment likes: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return false, 0, fmt.Errorf("failed to commit like toggle: %w", err)
	}
	return liked, count, nil
}
