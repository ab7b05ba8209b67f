package service

import (
	"errors"
	"strings"

	"github.com/google/uuid"

	"newsroom/internal/models"
	"newsroom/internal/repository"
	"newsroom/internal/validation"
)

var (
	// ErrCommentNotFound indicates the comment does not exist.
	ErrCommentNotFound = errors.New("Comment not found")
	// ErrCommentEmpty indicates a comment with neither text nor audio.
	ErrCommentEmpty = errors.New("Comment text or audio is required")
)

// CommentService handles threaded comments and their likes.
type CommentService struct {
	commentRepo *repository.CommentRepository
	postRepo    *repository.PostRepository
}

// NewCommentService creates a new comment service
func NewCommentService(commentRepo *repository.CommentRepository, postRepo *repository.PostRepository) *CommentService {
	return &CommentService{commentRepo: commentRepo, postRepo: postRepo}
}

// AddComment creates a comment on a post, optionally as a reply. The parent
// must exist and belong to the same post.
func (s *CommentService) AddComment(principalID int64, postID, parentID, text, audioURL string) (*models.Comment, error) {
	text = strings.TrimSpace(text)
	if text == "" && audioURL == "" {
		return nil, ErrCommentEmpty
	}
	if validation.ContainsSQLKeyword(text) {
		return nil, validation.ValidationError{Field: "text", Message: "Comment contains disallowed content"}
	}

	post, err := s.postRepo.GetByID(postID)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, ErrPostNotFound
	}

	if parentID != "" {
		parent, err := s.commentRepo.GetByID(parentID)
		if err != nil {
			return nil, err
		}
		if parent == nil || parent.PostID != post.ID {
			return nil, ErrCommentNotFound
		}
	}

	comment := &models.Comment{
		ID:          uuid.New().String(),
		PrincipalID: principalID,
		PostID:      post.ID,
		ParentID:    parentID,
		Text:        text,
		AudioURL:    audioURL,
	}
	if err := s.commentRepo.Create(comment); err != nil {
		return nil, err
	}
	return s.commentRepo.GetByID(comment.ID)
}

// CommentsForPost lists a post's comments newest first.
func (s *CommentService) CommentsForPost(postID string) ([]models.Comment, error) {
	return s.commentRepo.ListByPost(postID)
}

// ToggleLike flips the caller's like on a comment and returns the new state.
func (s *CommentService) ToggleLike(principalID int64, commentID string) (bool, int, error) {
	comment, err := s.commentRepo.GetByID(commentID)
	if err != nil {
		return false, 0, err
	}
	if comment == nil {
		return false, 0, ErrCommentNotFound
	}
	return s.commentRepo.ToggleLike(principalID, comment.ID)
}

// DeleteComment removes a comment. Only the author may delete it; replies go
// with it via the schema.
func (s *CommentService) DeleteComment(principalID int64, commentID string) error {
	comment, err := s.commentRepo.GetByID(commentID)
	if err != nil {
		return err
	}
	if comment == nil || comment.PrincipalID != principalID {
		return ErrCommentNotFound
	}
	return s.commentRepo.Delete(comment.ID)
}
