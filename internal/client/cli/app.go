package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/ComputerAnything/cpta-blog-sub001/internal/client/config"
	"github.com/ComputerAnything/cpta-blog-sub001/internal/client/services"
	"github.com/ComputerAnything/cpta-blog-sub001/internal/logging"
)

type App struct {
	config *config.Config
	auth   services.AuthService
	blog   services.BlogService
	reader *bufio.Reader
	out    io.Writer
	log    logging.Logger
	clock  clockwork.Clock

	mu           sync.Mutex
	lastActivity time.Time
}

// NewApp builds the REPL around already wired services. out should be
// shared with the Navigator given to the auth service (see LockedWriter).
func NewApp(c *config.Config, auth services.AuthService, blog services.BlogService, in io.Reader, out io.Writer, log logging.Logger) *App {
	if log == nil {
		log = logging.Discard()
	}
	return &App{
		config: c,
		auth:   auth,
		blog:   blog,
		reader: bufio.NewReader(in),
		out:    out,
		log:    log.With("module", "cli"),
		clock:  clockwork.NewRealClock(),
	}
}

// Run restores the previous session, then serves the REPL until the user
// exits or ctx is cancelled. The auth service is disposed on return.
func (a *App) Run(ctx context.Context) {
	defer a.auth.Dispose()

	a.auth.OnSessionWarning(a.warn)

	fmt.Fprintln(a.out, "Welcome to the blog CLI (type 'help' for commands)")
	st := a.auth.Init(ctx)
	switch {
	case st.IsAuthenticated && st.User != nil:
		fmt.Fprintf(a.out, "Signed in as %s\n", st.User.Username)
	case st.IsGuest:
		fmt.Fprintln(a.out, "Browsing as guest")
	}

	a.touch()
	go a.watchResume(ctx)

	runREPL(ctx, a, a.getStatus, a.reader, a.out)
}

func (a *App) isLoggedIn() bool {
	return a.auth.State().IsAuthenticated
}

// getStatus renders the prompt status: user name and time left, guest
// mode, or nothing.
func (a *App) getStatus() string {
	st := a.auth.State()
	switch {
	case st.IsAuthenticated && st.User != nil:
		s := st.User.Username
		if snap := a.auth.Session(); snap.Active() {
			s += " " + formatRemaining(snap.Remaining)
		}
		return "(" + s + ")"
	case st.IsGuest:
		return "(guest)"
	}
	return ""
}

func (a *App) warn(remaining time.Duration) {
	fmt.Fprintf(a.out, "\nYour session expires in %s. Type 'extend' to stay signed in.\n", formatRemaining(remaining))
}

func formatRemaining(d time.Duration) string {
	if d < time.Minute {
		return d.Round(time.Second).String()
	}
	return d.Truncate(time.Minute).String()
}
