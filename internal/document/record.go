package document

// Paragraph is a paragraph as a Tree reports it, before breadcrumbs are known.
type Paragraph struct {
	Anchor Anchor
	Text   string
	Style  string

	// OutlineLevel is the explicit outline level (1-based) set on the
	// paragraph itself, or 0 when the style decides.
	OutlineLevel int
}

// ParagraphRecord is an addressable paragraph in traversal order.
type ParagraphRecord struct {
	Anchor     Anchor   `json:"anchor"`
	Text       string   `json:"text"`
	Style      string   `json:"style"`
	Breadcrumb []string `json:"breadcrumb"`

	OutlineLevel int `json:"-"`
}

// Clone returns a deep copy safe to hand to callers.
func (r ParagraphRecord) Clone() ParagraphRecord {
	out := r
	if r.Breadcrumb != nil {
		out.Breadcrumb = append([]string(nil), r.Breadcrumb...)
	} else {
		out.Breadcrumb = []string{}
	}
	return out
}
