package client

import (
	"context"

	"github.com/ComputerAnything/cpta-blog-sub001/internal/client/models"
)

// AuthAPI covers the session-issuing and account endpoints.
type AuthAPI interface {
	Login(ctx context.Context, in models.Credentials) (*models.AuthResponse, error)
	Verify2FA(ctx context.Context, in models.TwoFactorCode) (*models.AuthResponse, error)
	Register(ctx context.Context, in models.Registration) (string, error)
	VerifyRegistration(ctx context.Context, in models.TwoFactorCode) (*models.AuthResponse, error)
	Logout(ctx context.Context) error
	Profile(ctx context.Context) (*models.User, error)
	UpdateProfile(ctx context.Context, in models.ProfileUpdate) error
	DeleteProfile(ctx context.Context) error
	ExtendSession(ctx context.Context) (*models.AuthResponse, error)
	Ping(ctx context.Context) error

	ChangePassword(ctx context.Context, in models.PasswordChange) (string, error)
	SetTwoFactor(ctx context.Context, enable bool) (*models.TwoFactorStatus, error)
	ResendVerification(ctx context.Context, identifier string) (string, error)
	ForgotPassword(ctx context.Context, email string) (string, error)
	ResetPassword(ctx context.Context, in models.PasswordReset) (string, error)
}

// BlogAPI covers posts, comments, votes and the user directory.
type BlogAPI interface {
	ListPosts(ctx context.Context) ([]models.Post, error)
	GetPost(ctx context.Context, id int64) (*models.Post, error)
	CreatePost(ctx context.Context, in models.PostInput) (*models.Post, error)
	UpdatePost(ctx context.Context, id int64, in models.PostInput) (*models.Post, error)
	DeletePost(ctx context.Context, id int64) error
	Upvote(ctx context.Context, id int64) (*models.VoteCounts, error)
	Downvote(ctx context.Context, id int64) (*models.VoteCounts, error)

	ListComments(ctx context.Context, postID int64) ([]models.Comment, error)
	CreateComment(ctx context.Context, postID int64, content string) (*models.Comment, error)
	DeleteComment(ctx context.Context, postID, commentID int64) error

	ListUsers(ctx context.Context, search string, page, perPage int) (*models.UsersPage, error)
	GetUser(ctx context.Context, username string) (*models.User, error)
	UserPosts(ctx context.Context, username string) ([]models.Post, error)
}

type Client interface {
	AuthAPI
	BlogAPI

	// OnUnauthorized registers the handler the interceptor calls when a
	// request outside the pass-through set is answered with 401.
	OnUnauthorized(fn func(ctx context.Context))

	// Credentials exposes the credential strategy chosen for this client.
	Credentials() Credentials

	Close() error
}
