package service

import (
	"errors"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"newsroom/internal/database"
	"newsroom/internal/repository"
	"newsroom/internal/validation"
)

type newsTestEnv struct {
	db       *database.DB
	news     *NewsService
	comments *CommentService
	authorID int64
}

func newNewsTestEnv(t *testing.T) *newsTestEnv {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	db, err := database.Initialize(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to initialize database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.RunMigrations("../../migrations"); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	principalRepo := repository.NewPrincipalRepository(db)
	author, err := principalRepo.Create("author", "author@example.com", "x", false)
	if err != nil {
		t.Fatalf("Failed to create author: %v", err)
	}

	categoryRepo := repository.NewCategoryRepository(db)
	postRepo := repository.NewPostRepository(db)
	storyRepo := repository.NewStoryRepository(db)
	commentRepo := repository.NewCommentRepository(db)

	return &newsTestEnv{
		db:       db,
		news:     NewNewsService(categoryRepo, postRepo, storyRepo),
		comments: NewCommentService(commentRepo, postRepo),
		authorID: author.ID,
	}
}

func TestPickBigIndexes(t *testing.T) {
	svc := &NewsService{randInt: func(n int) int { return 0 }}

	tests := []struct {
		name  string
		total int
		want  []int
	}{
		{name: "empty feed", total: 0, want: []int{}},
		{name: "below stride", total: 5, want: []int{0}},
		{name: "two eligible", total: 7, want: []int{0, 6}},
		{name: "exactly three eligible", total: 13, want: []int{0, 6, 12}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := svc.pickBigIndexes(tt.total)
			if len(got) != len(tt.want) {
				t.Fatalf("pickBigIndexes(%d) = %v, want %v", tt.total, got, tt.want)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("pickBigIndexes(%d) = %v, want %v", tt.total, got, tt.want)
					break
				}
			}
		})
	}
}

func TestPickBigIndexesSamplesWithoutDuplicates(t *testing.T) {
	calls := 0
	svc := &NewsService{randInt: func(n int) int {
		calls++
		// Collide on purpose for the first few draws.
		return (calls / 2) % n
	}}

	got := svc.pickBigIndexes(60)
	if len(got) != 3 {
		t.Fatalf("picked %d indexes, want 3", len(got))
	}

	sort.Ints(got)
	for i, idx := range got {
		if idx%6 != 0 || idx >= 60 {
			t.Errorf("index %d out of eligible set", idx)
		}
		if i > 0 && got[i-1] == idx {
			t.Errorf("duplicate index %d", idx)
		}
	}
}

func TestCreatePostMediaExclusivity(t *testing.T) {
	env := newNewsTestEnv(t)

	post, err := env.news.CreatePost(env.authorID, PostInput{
		Title:        "Both media set",
		CategoryName: "tech",
		ImageURL:     "/img/a.jpg",
		VideoURL:     "/vid/a.mp4",
	})
	if err != nil {
		t.Fatalf("CreatePost() error = %v", err)
	}

	if post.ImageURL != "" {
		t.Errorf("image url = %q, want cleared when video is set", post.ImageURL)
	}
	if post.VideoURL != "/vid/a.mp4" {
		t.Errorf("video url = %q, want kept", post.VideoURL)
	}
}

func TestUpdatePostOwnership(t *testing.T) {
	env := newNewsTestEnv(t)

	post, err := env.news.CreatePost(env.authorID, PostInput{Title: "Mine", CategoryName: "tech"})
	if err != nil {
		t.Fatal(err)
	}

	// A different principal cannot edit it.
	_, err = env.news.UpdatePost(post.ID, env.authorID+1, PostInput{Title: "Stolen", CategoryName: "tech"})
	if !errors.Is(err, ErrPostNotFound) {
		t.Errorf("foreign edit error = %v, want ErrPostNotFound", err)
	}

	// The owner can; superuser callers pass zero.
	updated, err := env.news.UpdatePost(post.ID, env.authorID, PostInput{Title: "Edited", CategoryName: "politics"})
	if err != nil {
		t.Fatalf("owner edit error = %v", err)
	}
	if updated.Title != "Edited" || updated.CategoryName != "politics" {
		t.Errorf("updated post = %+v", updated)
	}

	if _, err := env.news.UpdatePost(post.ID, 0, PostInput{Title: "Admin edit", CategoryName: "politics"}); err != nil {
		t.Errorf("superuser edit error = %v", err)
	}
}

func TestFeedFiltersAndRelated(t *testing.T) {
	env := newNewsTestEnv(t)

	for i, in := range []PostInput{
		{Title: "Tech image", CategoryName: "tech", ImageURL: "/img/1.jpg"},
		{Title: "Tech video", CategoryName: "tech", VideoURL: "/vid/1.mp4"},
		{Title: "Politics text", CategoryName: "politics"},
	} {
		if _, err := env.news.CreatePost(env.authorID, in); err != nil {
			t.Fatalf("CreatePost #%d error = %v", i, err)
		}
	}

	feed, err := env.news.GetFeed(repository.PostFilter{})
	if err != nil {
		t.Fatalf("GetFeed() error = %v", err)
	}
	if len(feed.Posts) != 3 {
		t.Errorf("unfiltered feed = %d posts, want 3", len(feed.Posts))
	}
	if len(feed.Categories) != 2 {
		t.Errorf("categories = %d, want 2", len(feed.Categories))
	}

	tech, err := env.news.Categories()
	if err != nil {
		t.Fatal(err)
	}
	var techID int64
	for _, c := range tech {
		if c.Name == "tech" {
			techID = c.ID
		}
	}

	filtered, err := env.news.GetFeed(repository.PostFilter{CategoryID: techID, MediaType: "Video"})
	if err != nil {
		t.Fatalf("filtered GetFeed() error = %v", err)
	}
	if len(filtered.Posts) != 1 || filtered.Posts[0].Title != "Tech video" {
		t.Errorf("filtered feed = %+v, want only the tech video post", filtered.Posts)
	}

	techPost := filtered.Posts[0]
	related, err := env.news.RelatedPosts(&techPost)
	if err != nil {
		t.Fatalf("RelatedPosts() error = %v", err)
	}
	if len(related) != 1 || related[0].Title != "Tech image" {
		t.Errorf("related = %+v, want the other tech post", related)
	}
}

func TestFeedDateFilter(t *testing.T) {
	env := newNewsTestEnv(t)

	if _, err := env.news.CreatePost(env.authorID, PostInput{Title: "Today", CategoryName: "tech"}); err != nil {
		t.Fatal(err)
	}

	today := time.Now()
	feed, err := env.news.GetFeed(repository.PostFilter{Date: &today})
	if err != nil {
		t.Fatal(err)
	}
	if len(feed.Posts) != 1 {
		t.Errorf("today's feed = %d posts, want 1", len(feed.Posts))
	}

	yesterday := today.Add(-24 * time.Hour)
	feed, err = env.news.GetFeed(repository.PostFilter{Date: &yesterday})
	if err != nil {
		t.Fatal(err)
	}
	if len(feed.Posts) != 0 {
		t.Errorf("yesterday's feed = %d posts, want 0", len(feed.Posts))
	}
}

func TestTogglePostLike(t *testing.T) {
	env := newNewsTestEnv(t)

	post, err := env.news.CreatePost(env.authorID, PostInput{Title: "Likeable", CategoryName: "tech"})
	if err != nil {
		t.Fatal(err)
	}

	liked, count, err := env.news.TogglePostLike(env.authorID, post.ID)
	if err != nil {
		t.Fatalf("first toggle error = %v", err)
	}
	if !liked || count != 1 {
		t.Errorf("first toggle = (%v, %d), want (true, 1)", liked, count)
	}

	liked, count, err = env.news.TogglePostLike(env.authorID, post.ID)
	if err != nil {
		t.Fatalf("second toggle error = %v", err)
	}
	if liked || count != 0 {
		t.Errorf("second toggle = (%v, %d), want (false, 0)", liked, count)
	}

	if _, _, err := env.news.TogglePostLike(env.authorID, "00000000-0000-0000-0000-000000000000"); !errors.Is(err, ErrPostNotFound) {
		t.Errorf("missing post toggle error = %v, want ErrPostNotFound", err)
	}
}

func TestStories(t *testing.T) {
	env := newNewsTestEnv(t)

	if _, err := env.news.AddStory("https://example.com", "no media", "", ""); !errors.Is(err, ErrMediaRequired) {
		t.Errorf("mediless story error = %v, want ErrMediaRequired", err)
	}

	story, err := env.news.AddStory("https://example.com", "breaking", "/img/s.jpg", "")
	if err != nil {
		t.Fatalf("AddStory() error = %v", err)
	}

	stories, err := env.news.Stories()
	if err != nil {
		t.Fatal(err)
	}
	if len(stories) != 1 || stories[0].ID != story.ID {
		t.Errorf("stories = %+v, want the one added", stories)
	}

	if err := env.news.DeleteStories([]string{story.ID}); err != nil {
		t.Fatalf("DeleteStories() error = %v", err)
	}
	stories, _ = env.news.Stories()
	if len(stories) != 0 {
		t.Errorf("stories after delete = %d, want 0", len(stories))
	}
}

func TestParsePostIDs(t *testing.T) {
	valid := "2b1f8f3e-7c4a-4a8e-9d2a-0f6b5c4d3e2a"

	tests := []struct {
		name string
		csv  string
		want int
	}{
		{name: "single valid", csv: valid, want: 1},
		{name: "trims and drops blanks", csv: " " + valid + " ,,", want: 1},
		{name: "drops non uuids", csv: valid + ",1;DROP TABLE posts,abc", want: 1},
		{name: "empty", csv: "", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParsePostIDs(tt.csv); len(got) != tt.want {
				t.Errorf("ParsePostIDs(%q) = %v, want %d ids", tt.csv, got, tt.want)
			}
		})
	}
}

func TestRenameCategory(t *testing.T) {
	env := newNewsTestEnv(t)

	local, err := env.news.AddCategory("Local")
	if err != nil {
		t.Fatalf("AddCategory() error = %v", err)
	}
	if _, err := env.news.AddCategory("World"); err != nil {
		t.Fatalf("AddCategory() error = %v", err)
	}

	// Renaming onto an existing name surfaces a validation error, not a
	// wrapped driver error.
	err = env.news.RenameCategory(local.ID, "World")
	var validationErr validation.ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("RenameCategory(duplicate) error = %v, want ValidationError", err)
	}
	if validationErr.Message != "Category already exists" {
		t.Errorf("message = %q, want 'Category already exists'", validationErr.Message)
	}

	if err := env.news.RenameCategory(local.ID+1000, "Sports"); !errors.Is(err, ErrCategoryNotFound) {
		t.Errorf("RenameCategory(missing) error = %v, want ErrCategoryNotFound", err)
	}

	if err := env.news.RenameCategory(local.ID, "Metro"); err != nil {
		t.Fatalf("RenameCategory() error = %v", err)
	}
	renamed, err := env.news.Categories()
	if err != nil {
		t.Fatal(err)
	}
	names := make([]string, 0, len(renamed))
	for _, c := range renamed {
		names = append(names, c.Name)
	}
	if len(names) != 2 || names[0] != "Metro" || names[1] != "World" {
		t.Errorf("categories after rename = %v, want [Metro World]", names)
	}
}
