// Package revocations remembers logged-out session tokens by jti, and
// per-user cutoffs that kill every token issued before a password change,
// until those tokens would have expired anyway.
package revocations

import (
	"context"
	"time"
)

type Store interface {
	// Revoke marks jti as revoked until the given time. Tokens already past
	// until are ignored.
	Revoke(ctx context.Context, jti string, until time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
	// RevokeUser revokes every token of userID issued at or before
	// issuedBefore. The cutoff is kept until the given time.
	RevokeUser(ctx context.Context, userID int64, issuedBefore, until time.Time) error
	// UserCutoff returns the cutoff set by RevokeUser, or the zero time.
	UserCutoff(ctx context.Context, userID int64) (time.Time, error)
	Close() error
}
