package index

import (
	"context"
	"strings"

	"github.com/yswa-var/DOCX-agent/internal/document"
	"github.com/yswa-var/DOCX-agent/internal/outline"
)

// SearchResult holds paragraphs containing a query, in traversal order.
type SearchResult struct {
	Matches []document.ParagraphRecord `json:"matches"`
	Count   int                        `json:"count"`
	Skipped int                        `json:"skipped"`
}

// Search scans every paragraph for query as a plain substring. Matching is
// case-insensitive unless caseSensitive is set. An empty query matches
// nothing. Malformed records are skipped and counted.
func (x *Index) Search(ctx context.Context, query string, caseSensitive bool) (*SearchResult, error) {
	res := &SearchResult{Matches: make([]document.ParagraphRecord, 0)}
	if query == "" {
		return res, nil
	}

	needle := query
	if !caseSensitive {
		needle = strings.ToLower(query)
	}

	err := x.read(ctx, func() {
		for _, r := range x.records {
			if !outline.Valid(r) {
				res.Skipped++
				continue
			}
			hay := r.Text
			if !caseSensitive {
				hay = strings.ToLower(hay)
			}
			if strings.Contains(hay, needle) {
				res.Matches = append(res.Matches, r.Clone())
			}
		}
	})
	if err != nil {
		return nil, err
	}
	res.Count = len(res.Matches)
	return res, nil
}
