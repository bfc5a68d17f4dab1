// Package votes stores one vote per user and post.
package votes

import (
	"context"

	"github.com/ComputerAnything/cpta-blog-sub001/internal/server/models"
)

type Repository interface {
	// Get returns common.ErrorNotFound when the user has not voted on the post.
	Get(ctx context.Context, userID, postID int64) (*models.Vote, error)
	// Put inserts the vote or replaces its kind.
	Put(ctx context.Context, v models.Vote) error
	Delete(ctx context.Context, userID, postID int64) error
}
