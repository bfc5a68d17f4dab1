package cli

import (
	"fmt"
	"io"
	"sync"

	"github.com/ComputerAnything/cpta-blog-sub001/internal/client/nav"
)

// Navigator renders navigation targets requested by the auth service as
// banners. It is safe for concurrent use; the session timer navigates from
// its own goroutine.
type Navigator struct {
	mu   sync.Mutex
	w    io.Writer
	last nav.Signal
}

func NewNavigator(w io.Writer) *Navigator {
	return &Navigator{w: w}
}

func (n *Navigator) Navigate(target string) {
	sig := nav.Parse(target)

	n.mu.Lock()
	defer n.mu.Unlock()
	n.last = sig
	if text := sig.Text(); text != "" {
		fmt.Fprintf(n.w, "\n*** %s ***\n", text)
	}
}

// Last is the most recent navigation.
func (n *Navigator) Last() nav.Signal {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.last
}

// lockedWriter serialises writes from the REPL and from background callbacks.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func LockedWriter(w io.Writer) io.Writer {
	return &lockedWriter{w: w}
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}
