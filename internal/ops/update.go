package ops

import (
	"context"

	"github.com/yswa-var/DOCX-agent/internal/config"
	"github.com/yswa-var/DOCX-agent/internal/document"
	"github.com/yswa-var/DOCX-agent/internal/errors"
	"github.com/yswa-var/DOCX-agent/internal/index"
)

// UpdateParagraphInput contains parameters for the UpdateParagraph operation.
type UpdateParagraphInput struct {
	Document string           `json:"document,omitempty"`
	Anchor   *document.Anchor `json:"anchor"`
	NewText  *string          `json:"new_text"`
	// ExpectedText skips the write when the paragraph no longer holds it.
	ExpectedText *string `json:"expected_text,omitempty"`
}

// UpdateParagraphOutput contains the result of the UpdateParagraph operation.
type UpdateParagraphOutput struct {
	Document string `json:"document"`
	index.UpdateResult
}

// UpdateParagraph replaces a paragraph's text and persists the document.
// It does not ask for approval; callers that need the gate use ProposeEdit.
func UpdateParagraph(ctx context.Context, docs *index.Registry, cfg *config.Config, input UpdateParagraphInput) (*UpdateParagraphOutput, error) {
	a, err := requireAnchor(input.Anchor)
	if err != nil {
		return nil, err
	}
	if input.NewText == nil {
		return nil, errors.NewInvalidRequest("new_text is required")
	}
	idx, err := openIndex(ctx, docs, cfg, input.Document)
	if err != nil {
		return nil, err
	}
	res, err := idx.UpdateParagraph(ctx, a, *input.NewText, index.UpdateOptions{ExpectedText: input.ExpectedText})
	if err != nil {
		return nil, err
	}
	return &UpdateParagraphOutput{Document: idx.Path(), UpdateResult: *res}, nil
}
