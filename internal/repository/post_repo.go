package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"blogapp/internal/database"
	"blogapp/internal/models"
)

// PostRepository handles database operations for posts
type PostRepository struct {
	db database.DBTX
}

// NewPostRepository creates a new post repository
func NewPostRepository(db database.DBTX) *PostRepository {
	return &PostRepository{db: db}
}

// WithTx returns a repository bound to tx
func (r *PostRepository) WithTx(tx database.DBTX) *PostRepository {
	return &PostRepository{db: tx}
}

const postColumns = `id, title, content, category, tags, likes, comments, author_id, author_name, created_at, updated_at`

func scanPost(row rowScanner) (*models.Post, error) {
	var (
		post     models.Post
		tags     string
		comments string
	)
	err := row.Scan(
		&post.ID,
		&post.Title,
		&post.Content,
		&post.Category,
		&tags,
		&post.Likes,
		&comments,
		&post.Author.ID,
		&post.Author.Name,
		&post.CreatedAt,
		&post.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(tags), &post.Tags); err != nil {
		return nil, fmt.Errorf("failed to decode tags of post %d: %w", post.ID, err)
	}
	if err := json.Unmarshal([]byte(comments), &post.Comments); err != nil {
		return nil, fmt.Errorf("failed to decode comments of post %d: %w", post.ID, err)
	}
	if post.Tags == nil {
		post.Tags = []string{}
	}
	if post.Comments == nil {
		post.Comments = []models.Comment{}
	}
	return &post, nil
}

func encodeList[T any](items []T) (string, error) {
	if items == nil {
		items = []T{}
	}
	b, err := json.Marshal(items)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// CreatePost inserts a post authored by post.Author
func (r *PostRepository) CreatePost(ctx context.Context, post *models.Post) (*models.Post, error) {
	tags, err := encodeList(post.Tags)
	if err != nil {
		return nil, fmt.Errorf("failed to encode tags: %w", err)
	}
	comments, err := encodeList(post.Comments)
	if err != nil {
		return nil, fmt.Errorf("failed to encode comments: %w", err)
	}

	now := time.Now().UTC()
	query := `
		INSERT INTO posts (title, content, category, tags, likes, comments, author_id, author_name, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	id, err := r.db.ExecReturningID(ctx, query,
		post.Title, post.Content, post.Category, tags, post.Likes, comments,
		post.Author.ID, post.Author.Name, now, now)
	if err != nil {
		if r.db.GetDialect().IsUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("failed to create post: %w", err)
	}

	created := *post
	created.ID = id
	created.CreatedAt = now
	created.UpdatedAt = now
	if created.Tags == nil {
		created.Tags = []string{}
	}
	if created.Comments == nil {
		created.Comments = []models.Comment{}
	}
	return &created, nil
}

// GetPostByID retrieves a post, or nil when it does not exist
func (r *PostRepository) GetPostByID(ctx context.Context, id int64) (*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE id = ?`
	post, err := scanPost(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get post: %w", err)
	}
	return post, nil
}

// ListPosts returns posts newest first
func (r *PostRepository) ListPosts(ctx context.Context, limit, offset int) ([]models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`
	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	defer rows.Close()

	posts := []models.Post{}
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan post: %w", err)
		}
		posts = append(posts, *post)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	return posts, nil
}

// UpdatePost writes the editable fields of post
func (r *PostRepository) UpdatePost(ctx context.Context, post *models.Post) error {
	tags, err := encodeList(post.Tags)
	if err != nil {
		return fmt.Errorf("failed to encode tags: %w", err)
	}

	query := `UPDATE posts SET title = ?, content = ?, category = ?, tags = ?, updated_at = ? WHERE id = ?`
	result, err := r.db.ExecContext(ctx, query, post.Title, post.Content, post.Category, tags, time.Now().UTC(), post.ID)
	if err != nil {
		if r.db.GetDialect().IsUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to update post: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("failed to update post: %w", sql.ErrNoRows)
	}
	return nil
}

// DeletePost removes a post
func (r *PostRepository) DeletePost(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM posts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete post: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("failed to delete post: %w", sql.ErrNoRows)
	}
	return nil
}

// DeletePostsByAuthor removes every post of a user
func (r *PostRepository) DeletePostsByAuthor(ctx context.Context, authorID int64) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM posts WHERE author_id = ?`, authorID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete posts of author %d: %w", authorID, err)
	}
	return result.RowsAffected()
}

// RenameAuthor keeps the denormalized author name in sync with the user's display name
func (r *PostRepository) RenameAuthor(ctx context.Context, authorID int64, name string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE posts SET author_name = ? WHERE author_id = ?`, name, authorID)
	if err != nil {
		return fmt.Errorf("failed to rename author %d: %w", authorID, err)
	}
	return nil
}
