package document

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
)

var markdownParser parser.Parser = goldmark.New(goldmark.WithExtensions(extension.Table)).Parser()

// markdownTree edits Markdown in place: each paragraph maps to a byte range
// of the source, and SetText splices that range and re-parses. Markup outside
// the edited range is untouched.
type markdownTree struct {
	source []byte
	paras  []Paragraph
	spans  map[string]mdSpan
}

type mdSpan struct {
	start, stop int
	cell        bool
}

// ParseMarkdown parses Markdown source. Headings, paragraphs, list items,
// block quotes and table cells are addressable; code blocks are not.
func ParseMarkdown(data []byte) Tree {
	t := &markdownTree{source: append([]byte(nil), data...)}
	t.reindex()
	return t
}

func (t *markdownTree) Format() Format { return FormatMarkdown }

func (t *markdownTree) Paragraphs() []Paragraph {
	return append([]Paragraph(nil), t.paras...)
}

// SetText splices s into the paragraph's source range. A blank line in s
// splits the paragraph. Text that would re-parse as different markup, such
// as a leading "#" or "- ", fails with ErrUnrepresentable and leaves the
// tree unchanged.
func (t *markdownTree) SetText(a Anchor, s string) error {
	sp, ok := t.spans[a.Key()]
	if !ok {
		return ErrNoParagraph
	}
	if sp.start < 0 {
		return fmt.Errorf("%w: paragraph has no source range", ErrNoParagraph)
	}
	if err := checkText(s); err != nil {
		return err
	}
	if sp.cell && strings.ContainsAny(s, "|\n") {
		return fmt.Errorf("%w: table cells cannot hold a pipe or line break", ErrUnrepresentable)
	}

	before := t.paras
	pos := paragraphIndex(before, a)
	source, spans := t.source, t.spans

	var buf bytes.Buffer
	buf.Grow(len(t.source) + len(s))
	buf.Write(t.source[:sp.start])
	buf.WriteString(s)
	buf.Write(t.source[sp.stop:])
	t.source = buf.Bytes()
	t.reindex()

	if !sameShape(before, t.paras, pos, s) {
		t.source, t.spans, t.paras = source, spans, before
		return fmt.Errorf("%w: %q would change the markdown structure", ErrUnrepresentable, preview(s))
	}
	return nil
}

// sameShape reports whether after is before with the paragraph at pos
// replaced by the blank-line separated parts of text, each reading back
// verbatim in the original style.
func sameShape(before, after []Paragraph, pos int, text string) bool {
	parts := strings.Split(text, "\n\n")
	if pos < 0 || len(after) != len(before)-1+len(parts) {
		return false
	}
	for i := 0; i < pos; i++ {
		if before[i] != after[i] {
			return false
		}
	}
	if after[pos].Anchor != before[pos].Anchor {
		return false
	}
	for j, part := range parts {
		if after[pos+j].Text != part || after[pos+j].Style != before[pos].Style {
			return false
		}
	}
	for i := pos + 1; i < len(before); i++ {
		a := after[i-1+len(parts)]
		if a.Text != before[i].Text || a.Style != before[i].Style {
			return false
		}
	}
	return true
}

func paragraphIndex(paras []Paragraph, a Anchor) int {
	for i, p := range paras {
		if p.Anchor == a {
			return i
		}
	}
	return -1
}

func preview(s string) string {
	if r := []rune(s); len(r) > 40 {
		return string(r[:40]) + "..."
	}
	return s
}

func (t *markdownTree) Encode() ([]byte, error) {
	return append([]byte(nil), t.source...), nil
}

func (t *markdownTree) reindex() {
	t.paras = nil
	t.spans = make(map[string]mdSpan)
	w := mdWalker{tree: t}
	root := markdownParser.Parse(text.NewReader(t.source))
	for n := root.FirstChild(); n != nil; n = n.NextSibling() {
		w.block(n, "Normal")
	}
}

type mdWalker struct {
	tree  *markdownTree
	body  int
	table int
}

func (w *mdWalker) block(n ast.Node, style string) {
	switch node := n.(type) {
	case *ast.Heading:
		w.add(BodyAnchor(w.body), node, fmt.Sprintf("Heading %d", node.Level), false)
		w.body++
	case *ast.Paragraph, *ast.TextBlock:
		w.add(BodyAnchor(w.body), node, style, false)
		w.body++
	case *ast.List:
		for item := node.FirstChild(); item != nil; item = item.NextSibling() {
			for c := item.FirstChild(); c != nil; c = c.NextSibling() {
				w.block(c, "List Paragraph")
			}
		}
	case *ast.Blockquote:
		for c := node.FirstChild(); c != nil; c = c.NextSibling() {
			w.block(c, "Quote")
		}
	case *east.Table:
		row := 0
		for r := node.FirstChild(); r != nil; r = r.NextSibling() {
			col := 0
			for cell := r.FirstChild(); cell != nil; cell = cell.NextSibling() {
				if _, ok := cell.(*east.TableCell); !ok {
					continue
				}
				w.add(TableAnchor(w.table, row, col, 0), cell, "Normal", true)
				col++
			}
			row++
		}
		w.table++
	}
}

func (w *mdWalker) add(a Anchor, n ast.Node, style string, cell bool) {
	src := w.tree.source
	start, stop, value := -1, -1, ""
	if lines := n.Lines(); lines != nil && lines.Len() > 0 {
		start = lines.At(0).Start
		stop = lines.At(lines.Len() - 1).Stop
		parts := make([]string, lines.Len())
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			parts[i] = strings.TrimRight(string(seg.Value(src)), "\r\n")
		}
		value = strings.Join(parts, "\n")
		for stop > start && (src[stop-1] == '\n' || src[stop-1] == '\r') {
			stop--
		}
	} else {
		_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
			if !entering {
				return ast.WalkContinue, nil
			}
			if txt, ok := c.(*ast.Text); ok {
				if start < 0 || txt.Segment.Start < start {
					start = txt.Segment.Start
				}
				if txt.Segment.Stop > stop {
					stop = txt.Segment.Stop
				}
			}
			return ast.WalkContinue, nil
		})
		if start >= 0 {
			value = string(src[start:stop])
		}
	}

	w.tree.spans[a.Key()] = mdSpan{start: start, stop: stop, cell: cell}
	w.tree.paras = append(w.tree.paras, Paragraph{Anchor: a, Text: value, Style: style})
}
