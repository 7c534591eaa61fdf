package catalog

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/dishplayapp/dishplay-server/internal/logger"
)

const reloadDebounce = 500 * time.Millisecond

// Watcher hot-reloads a catalog snapshot file into an index when the file
// changes. Snapshot writers replace the file atomically (write temp, rename),
// so a write event followed by a quiet period means a complete snapshot.
type Watcher struct {
	path    string
	dims    int
	index   *InMemoryIndex
	watcher *fsnotify.Watcher
	logger  *logger.Logger
}

// NewWatcher creates a watcher for the given snapshot path. The parent
// directory is watched rather than the file itself so atomic renames are
// seen.
func NewWatcher(path string, dims int, index *InMemoryIndex, log *logger.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}
	if err := fsw.Add(filepath.Dir(path)); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(path), err)
	}
	return &Watcher{
		path:    filepath.Clean(path),
		dims:    dims,
		index:   index,
		watcher: fsw,
		logger:  log,
	}, nil
}

// Start blocks processing file events until the context is canceled. Reload
// failures are logged and the previous index contents stay in place.
func (w *Watcher) Start(ctx context.Context) error {
	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return w.watcher.Close()

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			// Debounce: editors and atomic writers emit bursts of events.
			if timer == nil {
				timer = time.NewTimer(reloadDebounce)
			} else {
				timer.Reset(reloadDebounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			w.reload()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("catalog watcher error", "error", err)
		}
	}
}

func (w *Watcher) reload() {
	entries, err := LoadSnapshot(w.path, w.dims)
	if err != nil {
		w.logger.WithError(err).Warn("catalog reload failed, keeping previous snapshot",
			"path", w.path,
		)
		return
	}
	w.index.Replace(entries)
	w.logger.Info("catalog reloaded",
		"path", w.path,
		"entries", len(entries),
	)
}
