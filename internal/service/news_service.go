package service

import (
	"database/sql"
	"errors"
	"math/rand"
	"strings"

	"github.com/google/uuid"

	"newsroom/internal/models"
	"newsroom/internal/repository"
	"newsroom/internal/validation"
)

var (
	// ErrPostNotFound indicates the post does not exist or is not visible
	// to the caller.
	ErrPostNotFound = errors.New("Post not found")
	// ErrCategoryNotFound indicates the category does not exist.
	ErrCategoryNotFound = errors.New("Category not found")
	// ErrMediaRequired indicates a story or post needs an image or video.
	ErrMediaRequired = errors.New("An image or a video is required")
)

const (
	// bigPostStride is the spacing between feed positions eligible for
	// large rendering.
	bigPostStride = 6
	// maxBigPosts caps how many feed positions render large.
	maxBigPosts = 3
	// relatedPostLimit caps the related-posts strip on the post page.
	relatedPostLimit = 10
)

// NewsService handles categories, posts and stories.
type NewsService struct {
	categoryRepo *repository.CategoryRepository
	postRepo     *repository.PostRepository
	storyRepo    *repository.StoryRepository
	randInt      func(n int) int
}

// NewNewsService creates a new news service
func NewNewsService(categoryRepo *repository.CategoryRepository, postRepo *repository.PostRepository, storyRepo *repository.StoryRepository) *NewsService {
	return &NewsService{
		categoryRepo: categoryRepo,
		postRepo:     postRepo,
		storyRepo:    storyRepo,
		randInt:      rand.Intn,
	}
}

// AddCategory creates the category if it does not exist yet and returns it.
func (s *NewsService) AddCategory(name string) (*models.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, validation.ValidationError{Field: "name", Message: "Category name is required"}
	}
	if len(name) > validation.MaxIdentifierLength {
		return nil, validation.ValidationError{Field: "name", Message: "Category name is too long"}
	}
	return s.categoryRepo.GetOrCreate(name)
}

// RenameCategory changes a category's name.
func (s *NewsService) RenameCategory(id int64, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return validation.ValidationError{Field: "name", Message: "Category name is required"}
	}
	if err := s.categoryRepo.Rename(id, name); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return validation.ValidationError{Field: "name", Message: "Category already exists"}
		}
		if errors.Is(err, sql.ErrNoRows) {
			return ErrCategoryNotFound
		}
		return err
	}
	return nil
}

// DeleteCategory removes a category and, via the schema, its posts.
func (s *NewsService) DeleteCategory(id int64) error {
	return s.categoryRepo.Delete(id)
}

// Categories lists all categories ordered by name.
func (s *NewsService) Categories() ([]models.Category, error) {
	return s.categoryRepo.GetAll()
}

// PostInput carries the submitted fields for creating or editing a post.
type PostInput struct {
	Title        string
	CategoryName string
	Description  string
	ImageURL     string
	VideoURL     string
}

func (s *NewsService) validatePostInput(in *PostInput) error {
	in.Title = strings.TrimSpace(in.Title)
	in.CategoryName = strings.TrimSpace(in.CategoryName)
	if in.Title == "" {
		return validation.ValidationError{Field: "title", Message: "Title is required"}
	}
	if in.CategoryName == "" {
		return validation.ValidationError{Field: "category", Message: "Category is required"}
	}
	// A post carries at most one kind of media.
	if in.VideoURL != "" {
		in.ImageURL = ""
	}
	return nil
}

// CreatePost adds a post authored by the given principal.
func (s *NewsService) CreatePost(authorID int64, in PostInput) (*models.Post, error) {
	if err := s.validatePostInput(&in); err != nil {
		return nil, err
	}

	category, err := s.categoryRepo.GetOrCreate(in.CategoryName)
	if err != nil {
		return nil, err
	}

	post := &models.Post{
		ID:          uuid.New().String(),
		Title:       in.Title,
		CategoryID:  category.ID,
		Description: in.Description,
		ImageURL:    in.ImageURL,
		VideoURL:    in.VideoURL,
		AuthorID:    &authorID,
	}
	if err := s.postRepo.Create(post); err != nil {
		return nil, err
	}
	return s.postRepo.GetByID(post.ID)
}

// GetPost returns a post by id.
func (s *NewsService) GetPost(id string) (*models.Post, error) {
	post, err := s.postRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, ErrPostNotFound
	}
	return post, nil
}

// UpdatePost edits a post. When ownerID is non-zero the post must belong to
// that principal; superuser callers pass zero and may edit any post.
func (s *NewsService) UpdatePost(id string, ownerID int64, in PostInput) (*models.Post, error) {
	post, err := s.GetPost(id)
	if err != nil {
		return nil, err
	}
	if ownerID != 0 && (post.AuthorID == nil || *post.AuthorID != ownerID) {
		return nil, ErrPostNotFound
	}
	if err := s.validatePostInput(&in); err != nil {
		return nil, err
	}

	category, err := s.categoryRepo.GetOrCreate(in.CategoryName)
	if err != nil {
		return nil, err
	}

	post.Title = in.Title
	post.CategoryID = category.ID
	post.Description = in.Description
	post.ImageURL = in.ImageURL
	post.VideoURL = in.VideoURL
	if err := s.postRepo.Update(post); err != nil {
		return nil, err
	}
	return s.postRepo.GetByID(id)
}

// DeletePosts removes the given posts. With a non-zero ownerID only posts
// belonging to that principal are removed.
func (s *NewsService) DeletePosts(ids []string, ownerID int64) error {
	if len(ids) == 0 {
		return nil
	}
	if ownerID != 0 {
		kept := make([]string, 0, len(ids))
		for _, id := range ids {
			post, err := s.postRepo.GetByID(id)
			if err != nil {
				return err
			}
			if post == nil || post.AuthorID == nil || *post.AuthorID != ownerID {
				return ErrPostNotFound
			}
			kept = append(kept, id)
		}
		ids = kept
	}
	return s.postRepo.DeleteMany(ids)
}

// Feed is the front-page listing: filtered posts with big-post positions,
// stories and the category list.
type Feed struct {
	Posts      []models.Post
	BigIndexes []int
	Stories    []models.Story
	Categories []models.Category
}

// GetFeed lists posts under the given filter plus the surrounding page data.
func (s *NewsService) GetFeed(filter repository.PostFilter) (*Feed, error) {
	posts, err := s.postRepo.List(filter)
	if err != nil {
		return nil, err
	}
	stories, err := s.storyRepo.GetAll()
	if err != nil {
		return nil, err
	}
	categories, err := s.categoryRepo.GetAll()
	if err != nil {
		return nil, err
	}
	return &Feed{
		Posts:      posts,
		BigIndexes: s.pickBigIndexes(len(posts)),
		Stories:    stories,
		Categories: categories,
	}, nil
}

// pickBigIndexes samples up to maxBigPosts positions from every
// bigPostStride-th index below total.
func (s *NewsService) pickBigIndexes(total int) []int {
	eligible := make([]int, 0, total/bigPostStride+1)
	for i := 0; i < total; i += bigPostStride {
		eligible = append(eligible, i)
	}
	if len(eligible) <= maxBigPosts {
		return eligible
	}
	picked := make([]int, 0, maxBigPosts)
	for len(picked) < maxBigPosts {
		idx := eligible[s.randInt(len(eligible))]
		seen := false
		for _, p := range picked {
			if p == idx {
				seen = true
				break
			}
		}
		if !seen {
			picked = append(picked, idx)
		}
	}
	return picked
}

// RelatedPosts lists posts sharing the given post's category, excluding it.
func (s *NewsService) RelatedPosts(post *models.Post) ([]models.Post, error) {
	return s.postRepo.ListRelated(post.CategoryID, post.ID, relatedPostLimit)
}

// TogglePostLike flips the caller's like on a post and returns the new state.
func (s *NewsService) TogglePostLike(principalID int64, postID string) (bool, int, error) {
	post, err := s.GetPost(postID)
	if err != nil {
		return false, 0, err
	}
	return s.postRepo.ToggleLike(principalID, post.ID)
}

// AddStory creates a story. A story needs an image or a video.
func (s *NewsService) AddStory(link, description, imageURL, videoURL string) (*models.Story, error) {
	if imageURL == "" && videoURL == "" {
		return nil, ErrMediaRequired
	}
	story := &models.Story{
		ID:          uuid.New().String(),
		Link:        strings.TrimSpace(link),
		Description: description,
		ImageURL:    imageURL,
		VideoURL:    videoURL,
	}
	if err := s.storyRepo.Create(story); err != nil {
		return nil, err
	}
	return story, nil
}

// DeleteStories removes the given stories.
func (s *NewsService) DeleteStories(ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return s.storyRepo.DeleteMany(ids)
}

// Stories lists all stories newest first.
func (s *NewsService) Stories() ([]models.Story, error) {
	return s.storyRepo.GetAll()
}

// ParsePostIDs splits a comma separated id list, dropping blanks and
// anything that is not a UUID.
func ParsePostIDs(csv string) []string {
	parts := strings.Split(csv, ",")
	ids := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if _, err := uuid.Parse(p); err != nil {
			continue
		}
		ids = append(ids, p)
	}
	return ids
}
