package index

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/yswa-var/DOCX-agent/internal/errors"
)

// Registry hands out one Index per canonical document path, so every caller
// editing the same file shares its lock and cache.
type Registry struct {
	logger  *slog.Logger
	watcher *Watcher

	mu      sync.Mutex
	indexes map[string]*Index
	group   singleflight.Group
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithRegistryLogger sets the logger shared by the registry and its indexes.
func WithRegistryLogger(l *slog.Logger) RegistryOption {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithWatcher registers every opened index with w.
func WithWatcher(w *Watcher) RegistryOption {
	return func(r *Registry) { r.watcher = w }
}

// NewRegistry returns an empty registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		logger:  slog.Default(),
		indexes: make(map[string]*Index),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Canonical resolves path to an absolute, symlink-free form when the file
// exists, and to an absolute path otherwise.
func Canonical(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved, nil
	}
	return filepath.Clean(abs), nil
}

// Open returns the loaded index for path. Concurrent opens of the same
// document share one parse. Indexes that fail to load are not cached.
func (r *Registry) Open(ctx context.Context, path string) (*Index, error) {
	if path == "" {
		return nil, errors.NewInvalidRequest("document path is required")
	}
	key, err := Canonical(path)
	if err != nil {
		return nil, errors.NewInvalidRequest("invalid document path: " + err.Error())
	}

	r.mu.Lock()
	idx, ok := r.indexes[key]
	r.mu.Unlock()
	if ok {
		if err := idx.Load(ctx); err != nil {
			return nil, err
		}
		return idx, nil
	}

	v, err, _ := r.group.Do(key, func() (any, error) {
		r.mu.Lock()
		if idx, ok := r.indexes[key]; ok {
			r.mu.Unlock()
			return idx, nil
		}
		r.mu.Unlock()

		idx := New(key, WithLogger(r.logger))
		// Detached from the first caller's cancellation: the load is shared.
		if err := idx.Load(context.WithoutCancel(ctx)); err != nil {
			return nil, err
		}

		r.mu.Lock()
		r.indexes[key] = idx
		r.mu.Unlock()

		if r.watcher != nil {
			if err := r.watcher.Add(idx); err != nil {
				r.logger.Warn("cannot watch document", "document", key, "error", err)
			}
		}
		return idx, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Index), nil
}

// Paths lists the canonical paths of open indexes.
func (r *Registry) Paths() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.indexes))
	for p := range r.indexes {
		out = append(out, p)
	}
	return out
}
