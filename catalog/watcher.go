package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/bep/debounce"
	"github.com/fsnotify/fsnotify"
	"github.com/jsphweid/chordscribe/chord"
)

const defaultDebounce = 250 * time.Millisecond

// Watcher reloads a catalog file into a Store whenever it changes on disk.
// Editors tend to write a file in several steps, so reloads are debounced.
// A file that fails to load leaves the previous bank in place.
type Watcher struct {
	path     string
	store    *Store
	delay    time.Duration
	onReload func(*chord.Bank, error)
}

type WatcherOption func(*Watcher)

func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.delay = d
		}
	}
}

// WithReloadHook is called after every reload attempt.
func WithReloadHook(fn func(*chord.Bank, error)) WatcherOption {
	return func(w *Watcher) {
		w.onReload = fn
	}
}

func NewWatcher(path string, store *Store, opts ...WatcherOption) *Watcher {
	w := &Watcher{path: filepath.Clean(path), store: store, delay: defaultDebounce}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *Watcher) reload() {
	bank, err := Load(w.path)
	if err != nil {
		slog.Warn("catalog reload failed, keeping previous templates", "path", w.path, "err", err)
	} else {
		w.store.Swap(bank)
		slog.Info("catalog reloaded", "path", w.path, "templates", bank.Len())
	}
	if w.onReload != nil {
		w.onReload(bank, err)
	}
}

// Run watches until ctx is done. The parent directory is watched rather than
// the file itself so that rename-over-write saves are seen.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("catalog: create watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("catalog: watch %q: %w", w.path, err)
	}

	debounced := debounce.New(w.delay)
	for {
		select {
		case <-ctx.Done():
			return nil
		case evt, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(evt.Name) != w.path {
				continue
			}
			if evt.Has(fsnotify.Write) || evt.Has(fsnotify.Create) || evt.Has(fsnotify.Rename) {
				debounced(w.reload)
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			slog.Warn("catalog watcher error", "path", w.path, "err", err)
		}
	}
}
