package index

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/yswa-var/DOCX-agent/internal/document"
)

// Watcher marks indexes dirty when their file is changed by someone else.
// Parent directories are watched so atomic replace-by-rename is seen. Events
// whose file content matches the index fingerprint (our own writes) are
// ignored.
type Watcher struct {
	fsw    *fsnotify.Watcher
	logger *slog.Logger

	mu      sync.Mutex
	indexes map[string]*Index
	dirs    map[string]bool
}

// NewWatcher creates a watcher. Call Run to start delivering events.
func NewWatcher(logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		fsw:     fsw,
		logger:  logger,
		indexes: make(map[string]*Index),
		dirs:    make(map[string]bool),
	}, nil
}

// Add starts watching idx's document.
func (w *Watcher) Add(idx *Index) error {
	path := filepath.Clean(idx.Path())
	dir := filepath.Dir(path)

	w.mu.Lock()
	defer w.mu.Unlock()
	w.indexes[path] = idx
	if w.dirs[dir] {
		return nil
	}
	if err := w.fsw.Add(dir); err != nil {
		delete(w.indexes, path)
		return err
	}
	w.dirs[dir] = true
	return nil
}

// Run delivers events until ctx is done or the watcher is closed.
func (w *Watcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) &&
				!ev.Has(fsnotify.Rename) && !ev.Has(fsnotify.Remove) {
				continue
			}
			w.mu.Lock()
			idx := w.indexes[filepath.Clean(ev.Name)]
			w.mu.Unlock()
			if idx != nil {
				w.check(ctx, idx)
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error", "error", err)
		}
	}
}

// check compares the file with the index fingerprint and reloads on change.
func (w *Watcher) check(ctx context.Context, idx *Index) {
	data, err := os.ReadFile(idx.Path())
	if err != nil {
		w.logger.Warn("watched document unreadable", "document", idx.Path(), "error", err)
		idx.MarkDirty()
		return
	}
	if document.Fingerprint(data) == idx.Fingerprint() {
		return
	}
	w.logger.Info("external edit detected", "document", idx.Path())
	idx.MarkDirty()
	if err := idx.Load(ctx); err != nil {
		w.logger.Warn("reload after external edit failed", "document", idx.Path(), "error", err)
	}
}

// Close stops the underlying fsnotify watcher.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}
