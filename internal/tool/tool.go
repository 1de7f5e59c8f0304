// Package tool defines the closed set of document operations an agent may invoke.
package tool

import (
	"encoding/json"
	"fmt"

	"github.com/yswa-var/DOCX-agent/internal/document"
)

// Kind enumerates the invocable operations.
type Kind int

const (
	KindGetOutline Kind = iota + 1
	KindSearch
	KindGetParagraph
	KindUpdateParagraph
	KindExportIndex
)

// Kinds lists every kind in declaration order.
var Kinds = []Kind{KindGetOutline, KindSearch, KindGetParagraph, KindUpdateParagraph, KindExportIndex}

// Name returns the wire name of the operation.
func (k Kind) Name() string {
	switch k {
	case KindGetOutline:
		return "get_document_outline"
	case KindSearch:
		return "search_document"
	case KindGetParagraph:
		return "get_paragraph"
	case KindUpdateParagraph:
		return "update_paragraph"
	case KindExportIndex:
		return "export_index"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

func (k Kind) String() string { return k.Name() }

// RequiresApproval reports whether invoking k must wait for a human decision.
func (k Kind) RequiresApproval() bool {
	switch k {
	case KindUpdateParagraph:
		return true
	case KindGetOutline, KindSearch, KindGetParagraph, KindExportIndex:
		return false
	}
	return false
}

// ParseKind maps a wire name to its Kind.
func ParseKind(name string) (Kind, error) {
	for _, k := range Kinds {
		if k.Name() == name {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown tool %q", name)
}

func (k Kind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.Name())
}

func (k *Kind) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	parsed, err := ParseKind(name)
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Call is one proposed invocation. Only the fields relevant to Kind are set.
type Call struct {
	ID            string           `json:"id,omitempty"`
	Kind          Kind             `json:"tool"`
	Document      string           `json:"document,omitempty"`
	Anchor        *document.Anchor `json:"anchor,omitempty"`
	Query         string           `json:"query,omitempty"`
	CaseSensitive bool             `json:"case_sensitive,omitempty"`
	NewText       *string          `json:"new_text,omitempty"`
	Path          string           `json:"path,omitempty"`

	// ExpectedText is set by the approval gate to the paragraph text seen
	// when the edit was proposed. It is not part of the call's arguments.
	ExpectedText *string `json:"expected_text,omitempty"`
}

// Validate checks that the arguments required by the kind are present.
func (c Call) Validate() error {
	switch c.Kind {
	case KindGetOutline, KindExportIndex:
		return nil
	case KindSearch:
		return nil
	case KindGetParagraph:
		if c.Anchor == nil {
			return fmt.Errorf("%s: anchor is required", c.Kind.Name())
		}
		return c.Anchor.Validate()
	case KindUpdateParagraph:
		if c.Anchor == nil {
			return fmt.Errorf("%s: anchor is required", c.Kind.Name())
		}
		if c.NewText == nil {
			return fmt.Errorf("%s: new_text is required", c.Kind.Name())
		}
		return c.Anchor.Validate()
	}
	return fmt.Errorf("unknown tool kind %d", int(c.Kind))
}

// Arguments returns the call's arguments as a generic map for display and
// persistence.
func (c Call) Arguments() map[string]any {
	args := map[string]any{}
	if c.Document != "" {
		args["document"] = c.Document
	}
	switch c.Kind {
	case KindSearch:
		args["query"] = c.Query
		args["case_sensitive"] = c.CaseSensitive
	case KindGetParagraph:
		if c.Anchor != nil {
			args["anchor"] = *c.Anchor
		}
	case KindUpdateParagraph:
		if c.Anchor != nil {
			args["anchor"] = *c.Anchor
		}
		if c.NewText != nil {
			args["new_text"] = *c.NewText
		}
	case KindExportIndex:
		if c.Path != "" {
			args["path"] = c.Path
		}
	}
	return args
}
