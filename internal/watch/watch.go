// Package watch reports edits to policy files. The policy a gateway runs
// with is fixed at startup, so a change is only surfaced to the caller,
// which decides whether to log it or shut down for a supervised restart.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long a file must stay quiet before a change fires.
const DefaultDebounce = 500 * time.Millisecond

// Watcher watches a fixed set of files.
type Watcher struct {
	watcher  *fsnotify.Watcher
	paths    []string
	onChange func(path string)
	log      *slog.Logger

	// Debounce overrides DefaultDebounce when positive.
	Debounce time.Duration
}

// New watches the given paths, skipping empty and missing ones.
func New(paths []string, onChange func(path string), log *slog.Logger) (*Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	var watched []string
	for _, p := range paths {
		if p == "" {
			continue
		}
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := watcher.Add(p); err != nil {
			watcher.Close()
			return nil, fmt.Errorf("failed to watch %q: %w", p, err)
		}
		watched = append(watched, p)
	}

	if log == nil {
		log = slog.Default()
	}
	return &Watcher{watcher: watcher, paths: watched, onChange: onChange, log: log}, nil
}

// Paths returns the files actually being watched.
func (w *Watcher) Paths() []string {
	return w.paths
}

// Run delivers debounced change notifications until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	wait := w.Debounce
	if wait <= 0 {
		wait = DefaultDebounce
	}
	var debounce *time.Timer

	for {
		select {
		case <-ctx.Done():
			if debounce != nil {
				debounce.Stop()
			}
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Rename) && !event.Has(fsnotify.Remove) {
				continue
			}
			w.log.Debug("policy file event", "path", event.Name, "op", event.Op.String())
			if debounce != nil {
				debounce.Stop()
			}
			name := event.Name
			debounce = time.AfterFunc(wait, func() {
				if ctx.Err() == nil {
					w.onChange(name)
				}
			})

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("file watcher error", "error", err)
		}
	}
}
