package feed

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce batches bursts of database writes into one refresh.
const DefaultDebounce = 250 * time.Millisecond

// Watcher refreshes a feed whenever the SQLite database file or its
// WAL/journal companions change on disk.
type Watcher struct {
	feed     *Feed
	dbPath   string
	debounce time.Duration
	logger   *slog.Logger
}

// NewWatcher creates a watcher for the database at dbPath. A debounce of
// zero uses DefaultDebounce; a nil logger uses slog.Default().
func NewWatcher(feed *Feed, dbPath string, debounce time.Duration, logger *slog.Logger) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{feed: feed, dbPath: dbPath, debounce: debounce, logger: logger}
}

// Run watches until ctx is cancelled. It returns nil on cancellation.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating file watcher: %w", err)
	}
	defer func() {
		if err := fw.Close(); err != nil {
			w.logger.Error("closing file watcher", "error", err)
		}
	}()

	// Watch the directory: SQLite replaces the WAL and journal files, which
	// drops watches placed on the files themselves.
	dir := filepath.Dir(w.dbPath)
	if err := fw.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}
	w.logger.Info("watching database for changes", "path", w.dbPath)

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			w.logger.Debug("database changed", "file", filepath.Base(event.Name), "op", event.Op.String())
			timer.Reset(w.debounce)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("file watcher error", "error", err)

		case <-timer.C:
			// Refresh reports failures to subscribers and logs them.
			_ = w.feed.Refresh(ctx)
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return false
	}
	return strings.HasPrefix(filepath.Base(event.Name), filepath.Base(w.dbPath))
}
