package session

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/jonboulle/clockwork"

	"github.com/ComputerAnything/cpta-blog-sub001/internal/logging"
)

const DefaultDebounce = 250 * time.Millisecond

// Syncer is implemented by Timer.
type Syncer interface {
	Sync(ctx context.Context) error
}

// StoreWatcher calls Sync whenever the store file, or one of its SQLite
// sidecar files, changes on disk. Bursts of events are collapsed into one
// call after the debounce period.
type StoreWatcher struct {
	watcher  *fsnotify.Watcher
	base     string
	syncer   Syncer
	log      logging.Logger
	clock    clockwork.Clock
	debounce time.Duration

	mu      sync.Mutex
	pending clockwork.Timer
}

func NewStoreWatcher(dbPath string, syncer Syncer, log logging.Logger) (*StoreWatcher, error) {
	abs, err := filepath.Abs(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve store path: %w", err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create store watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", filepath.Dir(abs), err)
	}

	return &StoreWatcher{
		watcher:  w,
		base:     filepath.Base(abs),
		syncer:   syncer,
		log:      log.With("module", "store-watcher"),
		clock:    clockwork.NewRealClock(),
		debounce: DefaultDebounce,
	}, nil
}

// SetDebounce must be called before Run.
func (w *StoreWatcher) SetDebounce(d time.Duration) {
	w.debounce = d
}

// Run processes events until ctx is done or the watcher is closed.
func (w *StoreWatcher) Run(ctx context.Context) {
	defer w.stopPending()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if w.relevant(ev) {
				w.schedule(ctx)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warn(ctx, "store watcher error", "error", err)
		}
	}
}

func (w *StoreWatcher) Close() error {
	return w.watcher.Close()
}

func (w *StoreWatcher) relevant(ev fsnotify.Event) bool {
	if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	return strings.HasPrefix(filepath.Base(ev.Name), w.base)
}

func (w *StoreWatcher) schedule(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.pending != nil {
		w.pending.Stop()
	}
	w.pending = w.clock.AfterFunc(w.debounce, func() {
		sctx, cancel := context.WithTimeout(ctx, syncTimeout)
		defer cancel()
		if err := w.syncer.Sync(sctx); err != nil {
			w.log.Warn(sctx, "session sync after store change failed", "error", err)
		}
	})
}

func (w *StoreWatcher) stopPending() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.pending != nil {
		w.pending.Stop()
		w.pending = nil
	}
}
