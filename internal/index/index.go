// Package index maintains the anchor-addressed paragraph index of one document.
package index

import (
	"context"
	stderrors "errors"
	"log/slog"
	"os"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/yswa-var/DOCX-agent/internal/document"
	"github.com/yswa-var/DOCX-agent/internal/errors"
	"github.com/yswa-var/DOCX-agent/internal/outline"
)

// State is the lifecycle state of an Index.
type State int

const (
	StateUnloaded State = iota
	StateLoaded
	StateDirty
)

func (s State) String() string {
	switch s {
	case StateUnloaded:
		return "unloaded"
	case StateLoaded:
		return "loaded"
	case StateDirty:
		return "dirty"
	}
	return "unknown"
}

// Index caches the paragraph records of exactly one document file.
//
// Reads share mu; persisting an edit and repairing the records take it
// exclusively. Mutations are additionally queued on writeSem so a waiting
// mutation can be cancelled without holding mu.
type Index struct {
	path   string
	logger *slog.Logger

	writeSem *semaphore.Weighted
	persist  func(path string, data []byte) error

	mu          sync.RWMutex
	state       State
	tree        document.Tree
	records     []document.ParagraphRecord
	positions   map[string]int
	fingerprint string
	dirtyFrom   int
}

// Option configures an Index.
type Option func(*Index)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(x *Index) {
		if l != nil {
			x.logger = l
		}
	}
}

// New returns an unloaded index for the document at path.
func New(path string, opts ...Option) *Index {
	x := &Index{
		path:     path,
		logger:   slog.Default(),
		writeSem: semaphore.NewWeighted(1),
		persist:  document.WriteFileAtomic,
	}
	for _, o := range opts {
		o(x)
	}
	x.logger = x.logger.With("document", path)
	return x
}

// Path returns the document path the index was opened with.
func (x *Index) Path() string { return x.path }

// State returns the current lifecycle state.
func (x *Index) State() State {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.state
}

// Fingerprint returns the blake3 digest of the bytes last loaded or written.
func (x *Index) Fingerprint() string {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.fingerprint
}

// MarkDirty forces the next access to re-read the document from disk.
func (x *Index) MarkDirty() {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.state == StateUnloaded {
		return
	}
	x.state = StateDirty
	x.tree = nil
}

// Load parses the document if needed. It is a no-op when loaded, repairs or
// re-scans when dirty, and returns DOCUMENT_PARSE_ERROR for a missing or
// malformed file.
func (x *Index) Load(ctx context.Context) error {
	x.mu.RLock()
	loaded := x.state == StateLoaded
	x.mu.RUnlock()
	if loaded {
		return nil
	}

	x.mu.Lock()
	defer x.mu.Unlock()
	return x.ensureLocked(ctx)
}

// GetParagraph returns the record at anchor.
func (x *Index) GetParagraph(ctx context.Context, a document.Anchor) (*document.ParagraphRecord, error) {
	if err := a.Validate(); err != nil {
		return nil, errors.NewInvalidRequest(err.Error())
	}
	var (
		rec document.ParagraphRecord
		ok  bool
	)
	err := x.read(ctx, func() {
		var pos int
		if pos, ok = x.positions[a.Key()]; ok {
			rec = x.records[pos].Clone()
		}
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.NewAnchorNotFound(a.String())
	}
	return &rec, nil
}

// GetAllParagraphs returns a snapshot of every record in traversal order.
func (x *Index) GetAllParagraphs(ctx context.Context) ([]document.ParagraphRecord, error) {
	var out []document.ParagraphRecord
	err := x.read(ctx, func() {
		out = make([]document.ParagraphRecord, len(x.records))
		for i, r := range x.records {
			out[i] = r.Clone()
		}
	})
	return out, err
}

// read runs fn under the read lock with the index loaded.
func (x *Index) read(ctx context.Context, fn func()) error {
	for {
		if err := ctx.Err(); err != nil {
			return errors.NewCancelled("read")
		}
		x.mu.RLock()
		if x.state == StateLoaded {
			fn()
			x.mu.RUnlock()
			return nil
		}
		x.mu.RUnlock()

		x.mu.Lock()
		err := x.ensureLocked(ctx)
		x.mu.Unlock()
		if err != nil {
			return err
		}
	}
}

// ensureLocked brings the index to StateLoaded. Caller holds mu.
func (x *Index) ensureLocked(ctx context.Context) error {
	switch x.state {
	case StateLoaded:
		return nil
	case StateDirty:
		if x.tree != nil {
			x.repairLocked()
			return nil
		}
	}
	return x.scanLocked(ctx)
}

// scanLocked re-reads and re-parses the file. Caller holds mu.
func (x *Index) scanLocked(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return errors.NewCancelled("load")
	}
	tree, data, err := document.Open(x.path)
	if err != nil {
		if stderrors.Is(err, os.ErrNotExist) {
			x.logger.Warn("document missing", "error", err)
		}
		return errors.NewDocumentParse(x.path, err)
	}
	x.tree = tree
	x.fingerprint = document.Fingerprint(data)
	x.rebuildLocked(tree.Paragraphs())
	x.state = StateLoaded
	x.logger.Debug("document indexed", "paragraphs", len(x.records), "fingerprint", x.fingerprint[:12])
	return nil
}

// repairLocked refreshes records from the in-memory tree after an edit.
// When the paragraph count is unchanged only records from dirtyFrom on are
// recomputed; otherwise the whole record set is rebuilt.
func (x *Index) repairLocked() {
	paras := x.tree.Paragraphs()
	if !sameLayout(paras, x.records) || x.dirtyFrom > len(paras) {
		x.logger.Debug("structural edit, rebuilding index", "before", len(x.records), "after", len(paras))
		x.rebuildLocked(paras)
		x.state = StateLoaded
		return
	}

	var tr outline.Tracker
	for _, r := range x.records[:x.dirtyFrom] {
		tr.Observe(r)
	}
	for i := x.dirtyFrom; i < len(paras); i++ {
		r := recordFor(paras[i])
		r.Breadcrumb = tr.Observe(r)
		x.records[i] = r
	}
	x.state = StateLoaded
}

func (x *Index) rebuildLocked(paras []document.Paragraph) {
	records := make([]document.ParagraphRecord, len(paras))
	positions := make(map[string]int, len(paras))
	var tr outline.Tracker
	for i, p := range paras {
		r := recordFor(p)
		r.Breadcrumb = tr.Observe(r)
		records[i] = r
		positions[p.Anchor.Key()] = i
	}
	x.records = records
	x.positions = positions
	x.dirtyFrom = 0
}

func sameLayout(paras []document.Paragraph, records []document.ParagraphRecord) bool {
	if len(paras) != len(records) {
		return false
	}
	for i := range paras {
		if paras[i].Anchor != records[i].Anchor {
			return false
		}
	}
	return true
}

func recordFor(p document.Paragraph) document.ParagraphRecord {
	return document.ParagraphRecord{
		Anchor:       p.Anchor,
		Text:         p.Text,
		Style:        p.Style,
		OutlineLevel: p.OutlineLevel,
	}
}
