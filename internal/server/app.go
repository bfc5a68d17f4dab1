// Package server initializes and runs the development auth and blog backend.
// It opens Postgres, applies migrations, picks a revocation store, and serves
// the REST API until a termination signal arrives.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/ComputerAnything/cpta-blog-sub001/internal/logging"
	"github.com/ComputerAnything/cpta-blog-sub001/internal/server/auth"
	"github.com/ComputerAnything/cpta-blog-sub001/internal/server/config"
	"github.com/ComputerAnything/cpta-blog-sub001/internal/server/httpapi"
	"github.com/ComputerAnything/cpta-blog-sub001/internal/server/repositories/repomanager"
	"github.com/ComputerAnything/cpta-blog-sub001/internal/server/repositories/revocations"
	"github.com/ComputerAnything/cpta-blog-sub001/internal/server/services"
)

type App struct {
	config      *config.Config
	logger      logging.Logger
	db          *sql.DB
	revoked     revocations.Store
	userService *services.UserService
	blogService *services.BlogService
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {

	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	db, err := repomanager.OpenDB(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	revoked, err := newRevocationStore(ctx, c, logger)
	if err != nil {
		db.Close()
		return nil, err
	}

	issuer := auth.NewIssuer([]byte(c.SecretKey), c.SessionTTL, nil)
	us := services.NewUserService(db, rm, issuer, revoked, services.NewLogCodeSender(logger), nil)
	bs := services.NewBlogService(db, rm)

	return &App{config: c, logger: logger, db: db, revoked: revoked, userService: us, blogService: bs}, nil
}

// newRevocationStore returns a Redis store when RedisURL is set, else an
// in-memory one.
func newRevocationStore(ctx context.Context, c *config.Config, logger logging.Logger) (revocations.Store, error) {
	if c.RedisURL == "" {
		logger.Warn(ctx, "no redis configured, revoked sessions are kept in memory")
		return revocations.NewMemoryStore(nil), nil
	}
	s, err := revocations.NewRedisStore(ctx, c.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("redis init error: %w", err)
	}
	return s, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {

	s := httpapi.NewServer(app.config.ListenAddr, app.logger, app.userService, app.blogService,
		httpapi.CookieOptions{Name: app.config.CookieName, Secure: app.config.SecureCookies})

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	if err := app.Close(); err != nil {
		app.logger.Error(context.Background(), "close error", "error", err)
	}
}

// Close releases the database pool and the revocation store.
func (app *App) Close() error {
	return errors.Join(app.revoked.Close(), app.db.Close())
}
