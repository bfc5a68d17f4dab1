// Package httpapi exposes the auth and blog services over a JSON REST API
// built on fiber. Every route lives under /api.
package httpapi

import (
	"context"
	"time"

	"github.com/ComputerAnything/cpta-blog-sub001/internal/logging"
	"github.com/ComputerAnything/cpta-blog-sub001/internal/server/auth"
	"github.com/ComputerAnything/cpta-blog-sub001/internal/server/models"
	"github.com/ComputerAnything/cpta-blog-sub001/internal/server/services"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

const shutdownTimeout = 5 * time.Second

// Users is the account side of the API.
type Users interface {
	Register(ctx context.Context, username, email, password string) (*models.User, error)
	VerifyRegistration(ctx context.Context, email, code string) (*services.Session, error)
	Login(ctx context.Context, identifier, password string) (*services.LoginResult, error)
	Verify2FA(ctx context.Context, email, code string) (*services.Session, error)
	Authenticate(ctx context.Context, token string) (*auth.Claims, error)
	Extend(ctx context.Context, claims *auth.Claims) (*services.Session, error)
	Logout(ctx context.Context, claims *auth.Claims) error
	Profile(ctx context.Context, userID int64) (*models.User, error)
	UpdateProfile(ctx context.Context, userID int64, username, email string) (*models.User, error)
	DeleteAccount(ctx context.Context, claims *auth.Claims) error
	ChangePassword(ctx context.Context, claims *auth.Claims, current, next string) error
	SetTwoFactor(ctx context.Context, userID int64, enable bool) (*models.User, error)
	ResendVerification(ctx context.Context, identifier string) error
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, password string) error
	GetUser(ctx context.Context, username string) (*models.User, error)
	ListUsers(ctx context.Context, f models.UserFilter) (*models.UsersPage, error)
}

// Blog is the content side of the API.
type Blog interface {
	ListPosts(ctx context.Context) ([]models.Post, error)
	GetPost(ctx context.Context, id int64) (*models.Post, error)
	UserPosts(ctx context.Context, username string) ([]models.Post, error)
	CreatePost(ctx context.Context, userID int64, in services.PostInput) (*models.Post, error)
	UpdatePost(ctx context.Context, userID, postID int64, in services.PostInput) (*models.Post, error)
	DeletePost(ctx context.Context, userID, postID int64) error
	Vote(ctx context.Context, userID, postID int64, kind models.VoteKind) (up, down int, err error)
	ListComments(ctx context.Context, postID int64) ([]models.Comment, error)
	CreateComment(ctx context.Context, userID, postID int64, content string) (*models.Comment, error)
	DeleteComment(ctx context.Context, userID, postID, commentID int64) error
}

// CookieOptions controls the session cookie handed out on login.
type CookieOptions struct {
	Name   string
	Secure bool
}

type Server struct {
	address string
	app     *fiber.App
	users   Users
	blog    Blog
	cookie  CookieOptions
	logger  logging.Logger
}

func NewServer(address string, l logging.Logger, us Users, bs Blog, cookie CookieOptions) *Server {
	s := &Server{
		address: address,
		users:   us,
		blog:    bs,
		cookie:  cookie,
		logger:  l.With("module", "http_server"),
	}

	s.app = fiber.New(fiber.Config{
		AppName:               "blog-api",
		DisableStartupMessage: true,
		ErrorHandler:          s.handleError,
	})
	s.app.Use(recover.New())
	s.app.Use(s.logRequests)
	s.routes()

	return s
}

func (s *Server) routes() {
	s.app.Get("/health", s.health)

	api := s.app.Group("/api")
	api.Get("/health", s.health)

	api.Post("/register", s.register)
	api.Post("/verify-registration", s.verifyRegistration)
	api.Post("/login", s.login)
	api.Post("/verify-2fa", s.verify2FA)
	api.Post("/logout", s.logout)
	api.Post("/resend-verification", s.resendVerification)
	api.Post("/forgot-password", s.forgotPassword)
	api.Post("/reset-password", s.resetPassword)
	api.Post("/auth/extend-session", s.requireAuth, s.extendSession)

	api.Get("/profile", s.requireAuth, s.profile)
	api.Put("/profile", s.requireAuth, s.updateProfile)
	api.Delete("/profile", s.requireAuth, s.deleteProfile)
	api.Post("/change-password", s.requireAuth, s.changePassword)
	api.Post("/toggle-2fa", s.requireAuth, s.toggle2FA)

	api.Get("/users", s.listUsers)
	api.Get("/users/:username", s.getUser)
	api.Get("/users/:username/posts", s.userPosts)

	api.Get("/posts", s.listPosts)
	api.Post("/posts", s.requireAuth, s.createPost)
	api.Get("/posts/:id", s.getPost)
	api.Put("/posts/:id", s.requireAuth, s.updatePost)
	api.Delete("/posts/:id", s.requireAuth, s.deletePost)
	api.Post("/posts/:id/upvote", s.requireAuth, s.vote(models.Upvote))
	api.Post("/posts/:id/downvote", s.requireAuth, s.vote(models.Downvote))
	api.Get("/posts/:id/comments", s.listComments)
	api.Post("/posts/:id/comments", s.requireAuth, s.createComment)
	api.Delete("/posts/:id/comments/:cid", s.requireAuth, s.deleteComment)
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.app.ShutdownWithContext(sctx); err != nil {
			s.logger.Error(ctx, "shutdown error", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)
	return s.app.Listen(s.address)
}

func (s *Server) health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

func (s *Server) logRequests(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()
	if err != nil {
		// Let the error handler pick the status before it is logged.
		if herr := s.handleError(c, err); herr != nil {
			return herr
		}
	}
	s.logger.Debug(c.UserContext(), "request",
		"method", c.Method(),
		"path", c.Path(),
		"status", c.Response().StatusCode(),
		"duration", time.Since(start),
	)
	return nil
}
