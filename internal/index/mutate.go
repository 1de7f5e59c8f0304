package index

import (
	"context"
	stderrors "errors"
	"os"

	"github.com/yswa-var/DOCX-agent/internal/document"
	"github.com/yswa-var/DOCX-agent/internal/errors"
)

// UpdateOptions tune UpdateParagraph.
type UpdateOptions struct {
	// ExpectedText, when set, must equal the live paragraph text or the
	// update is skipped and reported stale.
	ExpectedText *string
}

// UpdateResult describes the outcome of UpdateParagraph.
type UpdateResult struct {
	Anchor       document.Anchor `json:"anchor"`
	Updated      bool            `json:"updated"`
	Stale        bool            `json:"stale,omitempty"`
	PreviousText string          `json:"previous_text"`
	Text         string          `json:"text"`
	Fingerprint  string          `json:"fingerprint,omitempty"`
}

// UpdateParagraph replaces the text of the anchored paragraph and persists
// the document atomically before returning.
//
// Mutations on one document run one at a time. A failed write discards the
// in-memory tree and leaves the index dirty so the next access reloads from
// disk.
func (x *Index) UpdateParagraph(ctx context.Context, a document.Anchor, text string, opts UpdateOptions) (*UpdateResult, error) {
	if err := a.Validate(); err != nil {
		return nil, errors.NewInvalidRequest(err.Error())
	}
	if err := x.writeSem.Acquire(ctx, 1); err != nil {
		return nil, errors.NewCancelled("update_paragraph")
	}
	defer x.writeSem.Release(1)

	x.mu.Lock()
	defer x.mu.Unlock()

	if err := x.ensureLocked(ctx); err != nil {
		return nil, err
	}
	if err := x.refreshIfChangedLocked(ctx); err != nil {
		return nil, err
	}

	pos, ok := x.positions[a.Key()]
	if !ok {
		return nil, errors.NewAnchorNotFound(a.String())
	}
	prev := x.records[pos].Text

	if opts.ExpectedText != nil && *opts.ExpectedText != prev {
		x.logger.Info("stale edit skipped", "anchor", a.String())
		return &UpdateResult{Anchor: a, Stale: true, PreviousText: prev, Text: prev, Fingerprint: x.fingerprint}, nil
	}

	if err := x.tree.SetText(a, text); err != nil {
		if stderrors.Is(err, document.ErrUnrepresentable) {
			return nil, errors.NewInvalidRequest(err.Error())
		}
		x.discardLocked()
		return nil, errors.NewAnchorNotFound(a.String())
	}
	stored := storedText(x.tree, a, text)
	data, err := x.tree.Encode()
	if err != nil {
		x.discardLocked()
		return nil, errors.NewMutationIO(x.path, err)
	}
	if err := x.persist(x.path, data); err != nil {
		x.discardLocked()
		x.logger.Error("persist failed", "anchor", a.String(), "error", err)
		return nil, errors.NewMutationIO(x.path, err)
	}

	x.fingerprint = document.Fingerprint(data)
	x.state = StateDirty
	x.dirtyFrom = pos
	x.logger.Info("paragraph updated", "anchor", a.String(), "chars", len(text))

	return &UpdateResult{
		Anchor:       a,
		Updated:      true,
		PreviousText: prev,
		Text:         stored,
		Fingerprint:  x.fingerprint,
	}, nil
}

// refreshIfChangedLocked re-scans when the file on disk no longer matches
// the fingerprint of what was indexed. Caller holds mu.
func (x *Index) refreshIfChangedLocked(ctx context.Context) error {
	data, err := os.ReadFile(x.path)
	if err != nil {
		x.discardLocked()
		return errors.NewDocumentParse(x.path, err)
	}
	if document.Fingerprint(data) == x.fingerprint {
		return nil
	}
	x.logger.Info("document changed on disk, reloading before edit")
	return x.scanLocked(ctx)
}

// storedText returns what the tree now holds at a. A split paragraph
// reports its first part.
func storedText(tree document.Tree, a document.Anchor, fallback string) string {
	for _, p := range tree.Paragraphs() {
		if p.Anchor == a {
			return p.Text
		}
	}
	return fallback
}

func (x *Index) discardLocked() {
	x.tree = nil
	x.state = StateDirty
}
