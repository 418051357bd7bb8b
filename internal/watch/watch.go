package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"fernspiel/internal/paths"
	"fernspiel/pkg/logging"

	"github.com/fsnotify/fsnotify"
)

const subsystem = "Watch"

// DefaultDebounceInterval is the quiet period after the last change before
// OnChange fires.
const DefaultDebounceInterval = 500 * time.Millisecond

// Config holds configuration for the executable watcher.
type Config struct {
	// Path is the executable to watch.
	Path string

	// Debounce defaults to DefaultDebounceInterval.
	Debounce time.Duration

	// OnChange is called after the executable was created, rewritten or
	// replaced.
	OnChange func()
}

// ExecutableWatcher reports replacements of the installed runtime.
//
// The parent directory is watched instead of the file itself because the
// installer replaces the executable with a rename, which would detach a
// watch on the old inode.
type ExecutableWatcher struct {
	config Config

	debounceMu    sync.Mutex
	debounceTimer *time.Timer
}

// New creates a watcher.
func New(config Config) *ExecutableWatcher {
	if config.Debounce <= 0 {
		config.Debounce = DefaultDebounceInterval
	}
	config.Path = filepath.Clean(config.Path)
	return &ExecutableWatcher{config: config}
}

// Run watches until ctx is done. It returns nil on cancellation.
func (w *ExecutableWatcher) Run(ctx context.Context) error {
	dir := filepath.Dir(w.config.Path)
	if err := os.MkdirAll(dir, paths.DefaultDirMode); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	logging.Info(subsystem, "Watching %s for runtime updates", w.config.Path)

	defer w.stopTimer()
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(ctx, event)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logging.Error(subsystem, err, "File watcher error")
		}
	}
}

func (w *ExecutableWatcher) handleEvent(ctx context.Context, event fsnotify.Event) {
	if filepath.Clean(event.Name) != w.config.Path {
		return
	}
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return
	}
	logging.Debug(subsystem, "Runtime executable changed: %s", event)
	w.triggerDebounced(ctx)
}

func (w *ExecutableWatcher) triggerDebounced(ctx context.Context) {
	w.debounceMu.Lock()
	defer w.debounceMu.Unlock()

	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.debounceTimer = time.AfterFunc(w.config.Debounce, func() {
		if ctx.Err() != nil || w.config.OnChange == nil {
			return
		}
		w.config.OnChange()
	})
}

func (w *ExecutableWatcher) stopTimer() {
	w.debounceMu.Lock()
	defer w.debounceMu.Unlock()
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
}
