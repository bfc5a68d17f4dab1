package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/ComputerAnything/cpta-blog-sub001/internal/client/client"
)

// touch records user activity.
func (a *App) touch() {
	a.mu.Lock()
	a.lastActivity = a.clock.Now()
	a.mu.Unlock()
}

// resume runs before every command. After an idle period longer than
// RevalidateAfter the session is re-checked first, so a session that ended
// while the user was away is noticed before the command runs.
func (a *App) resume(ctx context.Context) {
	now := a.clock.Now()

	a.mu.Lock()
	idle := now.Sub(a.lastActivity)
	a.lastActivity = now
	a.mu.Unlock()

	if a.config.RevalidateAfter <= 0 || idle < a.config.RevalidateAfter {
		return
	}
	a.revalidate(ctx)
}

func (a *App) revalidate(ctx context.Context) {
	err := a.auth.Revalidate(ctx)
	if err != nil && !errors.Is(err, client.ErrSessionExpired) {
		a.log.Warn(ctx, "session revalidation failed", "error", err)
	}
}

// watchResume re-checks the session whenever the process is continued
// after being stopped. It returns when ctx is done.
func (a *App) watchResume(ctx context.Context) {
	if len(resumeSignals) == 0 {
		return
	}
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, resumeSignals...)
	defer signal.Stop(ch)

	for {
		select {
		case <-ch:
			a.log.Debug(ctx, "process resumed")
			a.revalidate(ctx)
		case <-ctx.Done():
			return
		}
	}
}
