// Package posts stores blog posts and their denormalised vote counters.
package posts

import (
	"context"

	"github.com/ComputerAnything/cpta-blog-sub001/internal/server/models"
)

type Repository interface {
	// List returns every post, newest first, with Author set.
	List(ctx context.Context) ([]models.Post, error)
	ListByUser(ctx context.Context, userID int64) ([]models.Post, error)
	Get(ctx context.Context, id int64) (*models.Post, error)
	Create(ctx context.Context, p *models.Post) (*models.Post, error)
	// Update rewrites title, content and tags.
	Update(ctx context.Context, p *models.Post) error
	Delete(ctx context.Context, id int64) error
	// AdjustVotes adds the deltas to the counters and returns the new totals.
	AdjustVotes(ctx context.Context, id int64, up, down int) (upvotes, downvotes int, err error)
}
