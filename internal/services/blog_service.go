package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/KGR33N-dev/Portfolio-Backend/internal/models"
	appErrors "github.com/KGR33N-dev/Portfolio-Backend/pkg/errors"
)

var slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

// BlogPostInput describes a post create or update payload.
type BlogPostInput struct {
	Title   string
	Excerpt string
	Content string
	Tags    []string
	Publish bool
}

// BlogService manages blog posts. Access control happens at the route level;
// the service only enforces data rules.
type BlogService struct {
	db  *gorm.DB
	now func() time.Time
}

// NewBlogService constructs a BlogService.
func NewBlogService(db *gorm.DB) (*BlogService, error) {
	if db == nil {
		return nil, errors.New("blog service: db is required")
	}
	return &BlogService{db: db, now: time.Now}, nil
}

// Create stores a new post authored by authorID. Slugs derive from the title
// and collisions surface as ErrConflict.
func (s *BlogService) Create(ctx context.Context, authorID string, input BlogPostInput) (*models.BlogPost, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, appErrors.NewValidation("title is required")
	}

	post := &models.BlogPost{
		Slug:        Slugify(title),
		Title:       title,
		Excerpt:     strings.TrimSpace(input.Excerpt),
		Content:     input.Content,
		AuthorID:    authorID,
		Tags:        datatypes.NewJSONSlice(input.Tags),
		IsPublished: input.Publish,
	}
	if input.Publish {
		now := s.now()
		post.PublishedAt = &now
	}

	if err := s.db.WithContext(ctx).Create(post).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, appErrors.ErrConflict.WithMessage("A post with this title already exists")
		}
		return nil, fmt.Errorf("blog service: create post: %w", err)
	}
	return post, nil
}

// Update modifies an existing post.
func (s *BlogService) Update(ctx context.Context, slug string, input BlogPostInput) (*models.BlogPost, error) {
	post, err := s.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if title := strings.TrimSpace(input.Title); title != "" {
		updates["title"] = title
	}
	if input.Excerpt != "" {
		updates["excerpt"] = strings.TrimSpace(input.Excerpt)
	}
	if input.Content != "" {
		updates["content"] = input.Content
	}
	if input.Tags != nil {
		updates["tags"] = datatypes.NewJSONSlice(input.Tags)
	}
	if input.Publish && !post.IsPublished {
		updates["is_published"] = true
		updates["published_at"] = s.now()
	}

	if len(updates) == 0 {
		return post, nil
	}

	if err := s.db.WithContext(ctx).Model(post).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("blog service: update post: %w", err)
	}
	return s.GetBySlug(ctx, post.Slug)
}

// GetBySlug fetches a single post.
func (s *BlogService) GetBySlug(ctx context.Context, slug string) (*models.BlogPost, error) {
	var post models.BlogPost
	err := s.db.WithContext(ctx).
		Preload("Author").
		Where("slug = ?", strings.TrimSpace(slug)).
		Take(&post).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, appErrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("blog service: query post: %w", err)
	}
	return &post, nil
}

// List returns published posts, newest first.
func (s *BlogService) List(ctx context.Context, includeDrafts bool) ([]models.BlogPost, error) {
	q := s.db.WithContext(ctx).Order("created_at desc")
	if !includeDrafts {
		q = q.Where("is_published = ?", true)
	}

	var posts []models.BlogPost
	if err := q.Find(&posts).Error; err != nil {
		return nil, fmt.Errorf("blog service: list posts: %w", err)
	}
	return posts, nil
}

// Delete removes a post by slug.
func (s *BlogService) Delete(ctx context.Context, slug string) error {
	result := s.db.WithContext(ctx).
		Where("slug = ?", strings.TrimSpace(slug)).
		Delete(&models.BlogPost{})
	if result.Error != nil {
		return fmt.Errorf("blog service: delete post: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return appErrors.ErrNotFound
	}
	return nil
}

// Slugify converts a title into a URL-safe slug.
func Slugify(title string) string {
	slug := strings.ToLower(strings.TrimSpace(title))
	slug = slugPattern.ReplaceAllString(slug, "-")
	return strings.Trim(slug, "-")
}
