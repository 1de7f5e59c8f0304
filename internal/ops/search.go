package ops

import (
	"context"

	"github.com/yswa-var/DOCX-agent/internal/config"
	"github.com/yswa-var/DOCX-agent/internal/index"
)

// SearchInput contains parameters for the Search operation.
type SearchInput struct {
	Document      string `json:"document,omitempty"`
	Query         string `json:"query"`
	CaseSensitive bool   `json:"case_sensitive,omitempty"`
}

// SearchOutput contains the result of the Search operation.
type SearchOutput struct {
	Document string `json:"document"`
	index.SearchResult
}

// Search finds paragraphs containing the query as a plain substring.
func Search(ctx context.Context, docs *index.Registry, cfg *config.Config, input SearchInput) (*SearchOutput, error) {
	idx, err := openIndex(ctx, docs, cfg, input.Document)
	if err != nil {
		return nil, err
	}
	res, err := idx.Search(ctx, input.Query, input.CaseSensitive)
	if err != nil {
		return nil, err
	}
	return &SearchOutput{Document: idx.Path(), SearchResult: *res}, nil
}
