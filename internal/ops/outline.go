package ops

import (
	"context"

	"github.com/yswa-var/DOCX-agent/internal/config"
	"github.com/yswa-var/DOCX-agent/internal/index"
	"github.com/yswa-var/DOCX-agent/internal/outline"
)

// GetOutlineInput contains parameters for the GetOutline operation.
type GetOutlineInput struct {
	Document string `json:"document,omitempty"`
}

// GetOutlineOutput contains the result of the GetOutline operation.
type GetOutlineOutput struct {
	Document string          `json:"document"`
	Headings []outline.Entry `json:"headings"`
	Count    int             `json:"count"`
	Skipped  int             `json:"skipped,omitempty"`
}

// GetOutline returns the document's headings with their breadcrumbs.
func GetOutline(ctx context.Context, docs *index.Registry, cfg *config.Config, input GetOutlineInput) (*GetOutlineOutput, error) {
	idx, err := openIndex(ctx, docs, cfg, input.Document)
	if err != nil {
		return nil, err
	}
	records, err := idx.GetAllParagraphs(ctx)
	if err != nil {
		return nil, err
	}

	entries, skipped := outline.Build(records)
	if entries == nil {
		entries = []outline.Entry{}
	}
	return &GetOutlineOutput{
		Document: idx.Path(),
		Headings: entries,
		Count:    len(entries),
		Skipped:  skipped,
	}, nil
}
