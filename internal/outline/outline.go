// Package outline derives heading structure and breadcrumbs from paragraph records.
package outline

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/yswa-var/DOCX-agent/internal/document"
)

// Entry is a heading in the document outline.
type Entry struct {
	Anchor     document.Anchor `json:"anchor"`
	Text       string          `json:"text"`
	Style      string          `json:"style"`
	Level      int             `json:"level"`
	Breadcrumb []string        `json:"breadcrumb"`
}

// Level returns the heading level implied by a style name, or 0 for
// non-heading styles. "Heading N" is level N and "Title" is level 1.
func Level(style string) int {
	s := strings.ToLower(strings.TrimSpace(style))
	if s == "title" {
		return 1
	}
	rest, ok := strings.CutPrefix(s, "heading")
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(strings.TrimSpace(rest))
	if err != nil || n < 1 || n > 9 {
		return 0
	}
	return n
}

// LevelOf prefers an explicit outline level over the style.
func LevelOf(r document.ParagraphRecord) int {
	if r.OutlineLevel > 0 {
		return r.OutlineLevel
	}
	return Level(r.Style)
}

// Valid reports whether a record is well formed enough to report.
func Valid(r document.ParagraphRecord) bool {
	return r.Anchor.Validate() == nil && utf8.ValidString(r.Text)
}

type frame struct {
	level int
	text  string
}

// Tracker maintains the stack of open headings during a single pass.
type Tracker struct {
	stack []frame
}

// Heading closes every open heading at level >= level, returns the breadcrumb
// of the new heading, then opens it.
func (t *Tracker) Heading(level int, text string) []string {
	for len(t.stack) > 0 && t.stack[len(t.stack)-1].level >= level {
		t.stack = t.stack[:len(t.stack)-1]
	}
	crumb := t.Breadcrumb()
	t.stack = append(t.stack, frame{level: level, text: text})
	return crumb
}

// Breadcrumb returns the texts of the open headings, outermost first.
func (t *Tracker) Breadcrumb() []string {
	out := make([]string, len(t.stack))
	for i, f := range t.stack {
		out[i] = f.text
	}
	return out
}

// Observe feeds one record and returns its breadcrumb. Headings get the chain
// above them; other paragraphs get every open heading.
func (t *Tracker) Observe(r document.ParagraphRecord) []string {
	if level := LevelOf(r); level > 0 {
		return t.Heading(level, r.Text)
	}
	return t.Breadcrumb()
}

// Build extracts heading entries in document order. Malformed records are
// skipped and counted.
func Build(records []document.ParagraphRecord) (entries []Entry, skipped int) {
	entries = make([]Entry, 0)
	var tr Tracker
	for _, r := range records {
		if !Valid(r) {
			skipped++
			continue
		}
		level := LevelOf(r)
		if level == 0 {
			continue
		}
		entries = append(entries, Entry{
			Anchor:     r.Anchor,
			Text:       r.Text,
			Style:      r.Style,
			Level:      level,
			Breadcrumb: tr.Heading(level, r.Text),
		})
	}
	return entries, skipped
}
