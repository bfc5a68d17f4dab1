package users

import (
	"context"
	"time"

	"github.com/ComputerAnything/cpta-blog-sub001/internal/server/models"
)

// Repository persists accounts. Lookups that find nothing return
// common.ErrorNotFound; a taken username or email returns
// common.ErrorAlreadyExists.
type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
	// GetByLogin matches either the username or the email.
	GetByLogin(ctx context.Context, login string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, f models.UserFilter) (*models.UsersPage, error)

	// SetCode stores a one-time code for the user until expiresAt.
	SetCode(ctx context.Context, id int64, code string, expiresAt time.Time) error
	// ConsumeCode clears a matching, unexpired code and returns its owner.
	ConsumeCode(ctx context.Context, email, code string, now time.Time) (*models.User, error)

	// SetPassword replaces the password hash and drops any pending reset.
	SetPassword(ctx context.Context, id int64, hash []byte) error
	// SetResetToken stores the hash of a password reset token until expiresAt.
	SetResetToken(ctx context.Context, id int64, tokenHash string, expiresAt time.Time) error
	// ConsumeResetToken clears a matching, unexpired reset token and returns
	// its owner.
	ConsumeResetToken(ctx context.Context, tokenHash string, now time.Time) (*models.User, error)
}
