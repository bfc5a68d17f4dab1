// Package comments stores comments on blog posts.
package comments

import (
	"context"

	"github.com/ComputerAnything/cpta-blog-sub001/internal/server/models"
)

type Repository interface {
	// ListByPost returns the post's comments, oldest first, with Username set.
	ListByPost(ctx context.Context, postID int64) ([]models.Comment, error)
	Get(ctx context.Context, id int64) (*models.Comment, error)
	Create(ctx context.Context, c *models.Comment) (*models.Comment, error)
	Delete(ctx context.Context, id int64) error
}
