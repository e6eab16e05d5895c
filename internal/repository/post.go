// Package repository provides typed post and comment access over the table store.
package repository

import (
	"context"
	"errors"

	"footballsocial/internal/models"
	"footballsocial/internal/tablestore"
)

// PostRepository defines the interface for post data operations
type PostRepository interface {
	List(ctx context.Context) ([]models.Post, error)
	GetByID(ctx context.Context, id uint) (*models.Post, error)
	Create(ctx context.Context, input PostInput) error
	Update(ctx context.Context, post *models.Post) error
	SetUpvotes(ctx context.Context, id uint, upvotes int) error
	Delete(ctx context.Context, id uint) error
}

// PostInput holds the fields a new post is created with. The service assigns
// id, upvotes and created_at.
type PostInput struct {
	Title    string
	Content  string
	ImageURL string
}

// postRepository implements PostRepository
type postRepository struct {
	store tablestore.Store
}

// NewPostRepository creates a new post repository
func NewPostRepository(store tablestore.Store) PostRepository {
	return &postRepository{store: store}
}

// List returns every post, newest first.
func (r *postRepository) List(ctx context.Context) ([]models.Post, error) {
	var posts []models.Post
	q := tablestore.Query{}.OrderBy("created_at", true)
	if err := r.store.Select(ctx, models.PostTable, q, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

// GetByID returns the one post with id. Zero or several matches are an error.
func (r *postRepository) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	q := tablestore.Query{}.Where("id", id).One()
	if err := r.store.Select(ctx, models.PostTable, q, &post); err != nil {
		if errors.Is(err, tablestore.ErrNotSingle) {
			notFound := models.NewNotFoundError("post", id)
			notFound.Err = err
			return nil, notFound
		}
		return nil, err
	}
	return &post, nil
}

func (r *postRepository) Create(ctx context.Context, input PostInput) error {
	return r.store.Insert(ctx, models.PostTable, tablestore.Row{
		"title":     input.Title,
		"content":   input.Content,
		"image_url": input.ImageURL,
	})
}

// Update writes every field of the local copy back to the row with the same id.
func (r *postRepository) Update(ctx context.Context, post *models.Post) error {
	return r.store.Update(ctx, models.PostTable, tablestore.Row{
		"title":      post.Title,
		"content":    post.Content,
		"image_url":  post.ImageURL,
		"upvotes":    post.Upvotes,
		"created_at": post.CreatedAt,
	}, tablestore.Eq("id", post.ID))
}

// SetUpvotes stores an absolute upvote count computed by the caller.
func (r *postRepository) SetUpvotes(ctx context.Context, id uint, upvotes int) error {
	return r.store.Update(ctx, models.PostTable, tablestore.Row{"upvotes": upvotes}, tablestore.Eq("id", id))
}

func (r *postRepository) Delete(ctx context.Context, id uint) error {
	return r.store.Delete(ctx, models.PostTable, tablestore.Eq("id", id))
}
