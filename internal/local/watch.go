package local

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce collapses editor write bursts into one change signal.
const DefaultDebounce = 100 * time.Millisecond

// ErrAlreadyStarted indicates Start was called twice.
var ErrAlreadyStarted = errors.New("local: watcher already started")

// Watcher signals when a pipeline file changes on disk.
type Watcher struct {
	path     string
	debounce time.Duration

	mu      sync.Mutex
	fsw     *fsnotify.Watcher
	timer   *time.Timer
	started bool
	done    chan struct{}
	changes chan struct{}
}

// NewWatcher creates a watcher for the file at path.
func NewWatcher(path string) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("local: resolving %s: %w", path, err)
	}
	return &Watcher{
		path:     abs,
		debounce: DefaultDebounce,
		changes:  make(chan struct{}, 1),
	}, nil
}

// Start begins watching. The containing directory is watched rather than
// the file itself: editors that write via rename would otherwise detach
// the watch.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.started {
		return ErrAlreadyStarted
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("local: creating watcher: %w", err)
	}
	if err := fsw.Add(filepath.Dir(w.path)); err != nil {
		fsw.Close()
		return fmt.Errorf("local: watching %s: %w", filepath.Dir(w.path), err)
	}

	w.fsw = fsw
	w.done = make(chan struct{})
	w.started = true
	go w.run(fsw, w.done)
	return nil
}

// Changed returns a channel that receives after the file changes. The
// channel is never closed; callers select against their own done signal.
func (w *Watcher) Changed() <-chan struct{} {
	return w.changes
}

// Stop stops watching. Safe to call more than once.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.started {
		return
	}
	close(w.done)
	w.fsw.Close()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.started = false
}

func (w *Watcher) run(fsw *fsnotify.Watcher, done chan struct{}) {
	base := filepath.Base(w.path)

	for {
		select {
		case <-done:
			return

		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != base {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.mu.Lock()
			if w.timer != nil {
				w.timer.Stop()
			}
			w.timer = time.AfterFunc(w.debounce, w.notify)
			w.mu.Unlock()

		case _, ok := <-fsw.Errors:
			if !ok {
				return
			}
			// Watch errors are not actionable mid-session; the next
			// manual refresh still rereads the file.
		}
	}
}

func (w *Watcher) notify() {
	select {
	case w.changes <- struct{}{}:
	default:
	}
}
