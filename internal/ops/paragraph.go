package ops

import (
	"context"

	"github.com/yswa-var/DOCX-agent/internal/config"
	"github.com/yswa-var/DOCX-agent/internal/document"
	"github.com/yswa-var/DOCX-agent/internal/index"
)

// GetParagraphInput contains parameters for the GetParagraph operation.
type GetParagraphInput struct {
	Document string           `json:"document,omitempty"`
	Anchor   *document.Anchor `json:"anchor"`
}

// GetParagraphOutput contains the result of the GetParagraph operation.
type GetParagraphOutput struct {
	Document string `json:"document"`
	document.ParagraphRecord
}

// GetParagraph returns the paragraph at an anchor.
func GetParagraph(ctx context.Context, docs *index.Registry, cfg *config.Config, input GetParagraphInput) (*GetParagraphOutput, error) {
	a, err := requireAnchor(input.Anchor)
	if err != nil {
		return nil, err
	}
	idx, err := openIndex(ctx, docs, cfg, input.Document)
	if err != nil {
		return nil, err
	}
	rec, err := idx.GetParagraph(ctx, a)
	if err != nil {
		return nil, err
	}
	return &GetParagraphOutput{Document: idx.Path(), ParagraphRecord: *rec}, nil
}
