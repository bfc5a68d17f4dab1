package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/ComputerAnything/cpta-blog-sub001/internal/client/client"
	"github.com/ComputerAnything/cpta-blog-sub001/internal/client/config"
	"github.com/ComputerAnything/cpta-blog-sub001/internal/client/repositories/metadata"
	"github.com/ComputerAnything/cpta-blog-sub001/internal/client/services"
	"github.com/ComputerAnything/cpta-blog-sub001/internal/client/session"
	"github.com/ComputerAnything/cpta-blog-sub001/internal/logging"
)

// Bootstrap wires the local store, the HTTP client, the session timer and
// the services into an App. The returned cleanup releases everything
// Bootstrap opened; call it after App.Run returns.
func Bootstrap(ctx context.Context, c *config.Config, in io.Reader, out io.Writer, log logging.Logger) (*App, func(), error) {
	mode, err := client.ParseMode(c.CredentialsMode)
	if err != nil {
		return nil, nil, err
	}
	base, err := client.ParseBaseURL(c.APIBaseURL)
	if err != nil {
		return nil, nil, err
	}

	db, err := client.InitDatabase(ctx, c.DBPath)
	if err != nil {
		return nil, nil, fmt.Errorf("error initializing database: %w", err)
	}
	store := metadata.NewSQLiteRepository(db)

	var creds client.Credentials
	switch mode {
	case client.ModeBearer:
		creds, err = client.NewBearerCredentials(ctx, store)
	default:
		var jar *client.PersistentJar
		if jar, err = client.NewPersistentJar(ctx, base, store, log); err == nil {
			creds = client.NewCookieCredentials(jar)
		}
	}
	if err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("error loading credentials: %w", err)
	}

	api, err := client.NewHTTPClient(c.APIBaseURL, creds, c.RequestTimeout, nil, log)
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}

	timer := session.NewTimer(store,
		session.WithLogger(log),
		session.WithWarningBefore(c.WarningBefore),
		session.WithCheckInterval(c.CheckInterval),
	)

	w := LockedWriter(out)
	auth := services.NewAuthService(services.AuthDeps{
		API:         api,
		Credentials: creds,
		Store:       store,
		Timer:       timer,
		Navigator:   NewNavigator(w),
		Logger:      log,
		Landing:     c.Landing,
	})
	api.OnUnauthorized(auth.HandleUnauthorized)

	// other clients sharing the database may log out or extend the session
	watchCtx, stopWatch := context.WithCancel(ctx)
	watcher, err := session.NewStoreWatcher(c.DBPath, timer, log)
	if err != nil {
		log.Warn(ctx, "store watcher disabled", "error", err)
	} else {
		go watcher.Run(watchCtx)
	}

	app := NewApp(c, auth, services.NewBlogService(api), in, w, log)

	cleanup := func() {
		stopWatch()
		var errs []error
		if watcher != nil {
			errs = append(errs, watcher.Close())
		}
		errs = append(errs, api.Close(), db.Close())
		if err := errors.Join(errs...); err != nil {
			log.Warn(context.Background(), "cleanup failed", "error", err)
		}
	}
	return app, cleanup, nil
}
