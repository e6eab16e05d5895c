package repository

import (
	"context"

	"footballsocial/internal/models"
	"footballsocial/internal/tablestore"
)

// CommentRepository defines the interface for comment data operations
type CommentRepository interface {
	ListByPost(ctx context.Context, postID uint) ([]models.Comment, error)
	Create(ctx context.Context, comment models.Comment) error
	DeleteByPost(ctx context.Context, postID uint) error
}

type commentRepository struct {
	store tablestore.Store
}

// NewCommentRepository creates a new comment repository
func NewCommentRepository(store tablestore.Store) CommentRepository {
	return &commentRepository{store: store}
}

// ListByPost returns the comments of a post in the order the service returns them.
func (r *commentRepository) ListByPost(ctx context.Context, postID uint) ([]models.Comment, error) {
	var comments []models.Comment
	q := tablestore.Query{}.Where("post_id", postID)
	if err := r.store.Select(ctx, models.CommentTable, q, &comments); err != nil {
		return nil, err
	}
	return comments, nil
}

// Create inserts a comment. Any id on comment is ignored.
func (r *commentRepository) Create(ctx context.Context, comment models.Comment) error {
	return r.store.Insert(ctx, models.CommentTable, tablestore.Row{
		"post_id": comment.PostID,
		"content": comment.Content,
	})
}

// DeleteByPost removes every comment of a post.
func (r *commentRepository) DeleteByPost(ctx context.Context, postID uint) error {
	return r.store.Delete(ctx, models.CommentTable, tablestore.Eq("post_id", postID))
}
