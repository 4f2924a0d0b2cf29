package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"blogapp/internal/models"
	"blogapp/internal/repository"
	"blogapp/internal/security"
	"blogapp/internal/validation"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// PostInput is the input for creating a post
type PostInput struct {
	Title    string
	Content  string
	Category string
	Tags     []string
}

// PostService handles post business logic and enforces the access policy
type PostService struct {
	posts  *repository.PostRepository
	policy security.Policy
}

// NewPostService creates a new post service
func NewPostService(posts *repository.PostRepository, policy security.Policy) *PostService {
	return &PostService{posts: posts, policy: policy}
}

// List returns one page of posts, newest first. Pages start at 1.
func (s *PostService) List(ctx context.Context, page, limit int) ([]models.Post, error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	limit = min(limit, MaxPageSize)
	if page < 1 {
		page = 1
	}
	return s.posts.ListPosts(ctx, limit, (page-1)*limit)
}

// Get returns a single post
func (s *PostService) Get(ctx context.Context, id int64) (*models.Post, error) {
	post, err := s.posts.GetPostByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, ErrPostNotFound
	}
	return post, nil
}

// Create publishes a post authored by principal
func (s *PostService) Create(ctx context.Context, principal *models.User, input PostInput) (*models.Post, error) {
	if err := s.policy.Authorize(principal, security.ActionCreatePost, 0); err != nil {
		return nil, err
	}

	post := &models.Post{
		Title:    strings.TrimSpace(input.Title),
		Content:  input.Content,
		Category: strings.TrimSpace(input.Category),
		Tags:     input.Tags,
		Author:   models.Author{ID: principal.ID, Name: principal.DisplayName},
	}
	if err := validatePost(post); err != nil {
		return nil, err
	}

	created, err := s.posts.CreatePost(ctx, post)
	if errors.Is(err, repository.ErrDuplicate) {
		return nil, ErrTitleTaken
	}
	return created, err
}

// Update applies a partial update. Only the author may edit a post.
func (s *PostService) Update(ctx context.Context, principal *models.User, id int64, update models.PostUpdate) (*models.Post, error) {
	post, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.policy.Authorize(principal, security.ActionUpdatePost, post.Author.ID); err != nil {
		return nil, err
	}
	if update.Empty() {
		return post, nil
	}

	if update.Title != nil {
		post.Title = strings.TrimSpace(*update.Title)
	}
	if update.Content != nil {
		post.Content = *update.Content
	}
	if update.Category != nil {
		post.Category = strings.TrimSpace(*update.Category)
	}
	if update.Tags != nil {
		post.Tags = *update.Tags
	}
	if err := validatePost(post); err != nil {
		return nil, err
	}

	err = s.posts.UpdatePost(ctx, post)
	switch {
	case errors.Is(err, repository.ErrDuplicate):
		return nil, ErrTitleTaken
	case errors.Is(err, sql.ErrNoRows):
		return nil, ErrPostNotFound
	case err != nil:
		return nil, err
	}
	return s.Get(ctx, id)
}

// Delete removes a post. Authors may delete their own posts and admins may
// delete any post.
func (s *PostService) Delete(ctx context.Context, principal *models.User, id int64) error {
	post, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.policy.Authorize(principal, security.ActionDeletePost, post.Author.ID); err != nil {
		return err
	}

	err = s.posts.DeletePost(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrPostNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to delete post %d: %w", id, err)
	}
	return nil
}

func validatePost(post *models.Post) error {
	if err := validation.ValidatePostTitle(post.Title); err != nil {
		return err
	}
	return validation.ValidatePostContent(post.Content)
}
