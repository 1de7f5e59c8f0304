package ops

import (
	"context"
	"fmt"

	"github.com/yswa-var/DOCX-agent/internal/approval"
	"github.com/yswa-var/DOCX-agent/internal/config"
	"github.com/yswa-var/DOCX-agent/internal/errors"
	"github.com/yswa-var/DOCX-agent/internal/index"
	"github.com/yswa-var/DOCX-agent/internal/tool"
)

// Invoker runs tool calls against the document registry. It is the
// approval gate's executor.
type Invoker struct {
	docs *index.Registry
	cfg  *config.Config
}

// NewInvoker returns an Invoker over docs.
func NewInvoker(docs *index.Registry, cfg *config.Config) *Invoker {
	return &Invoker{docs: docs, cfg: cfg}
}

// Invoke executes one call.
func (v *Invoker) Invoke(ctx context.Context, c tool.Call) (any, error) {
	switch c.Kind {
	case tool.KindGetOutline:
		return GetOutline(ctx, v.docs, v.cfg, GetOutlineInput{Document: c.Document})
	case tool.KindSearch:
		return Search(ctx, v.docs, v.cfg, SearchInput{Document: c.Document, Query: c.Query, CaseSensitive: c.CaseSensitive})
	case tool.KindGetParagraph:
		return GetParagraph(ctx, v.docs, v.cfg, GetParagraphInput{Document: c.Document, Anchor: c.Anchor})
	case tool.KindUpdateParagraph:
		return UpdateParagraph(ctx, v.docs, v.cfg, UpdateParagraphInput{
			Document:     c.Document,
			Anchor:       c.Anchor,
			NewText:      c.NewText,
			ExpectedText: c.ExpectedText,
		})
	case tool.KindExportIndex:
		return ExportIndex(ctx, v.docs, v.cfg, ExportIndexInput{Document: c.Document, Path: c.Path})
	}
	return nil, errors.NewInvalidRequest(fmt.Sprintf("unknown tool kind %d", int(c.Kind)))
}

// Snapshot records the target paragraph of an edit so that approving a
// request whose paragraph changed in the meantime is reported stale.
func (v *Invoker) Snapshot(ctx context.Context, c tool.Call) (approval.Snapshot, error) {
	if c.Kind != tool.KindUpdateParagraph {
		return approval.Snapshot{}, nil
	}
	a, err := requireAnchor(c.Anchor)
	if err != nil {
		return approval.Snapshot{}, err
	}
	idx, err := openIndex(ctx, v.docs, v.cfg, c.Document)
	if err != nil {
		return approval.Snapshot{}, err
	}
	rec, err := idx.GetParagraph(ctx, a)
	if err != nil {
		return approval.Snapshot{}, err
	}
	text := rec.Text
	return approval.Snapshot{Document: idx.Path(), Fingerprint: idx.Fingerprint(), Text: &text}, nil
}
