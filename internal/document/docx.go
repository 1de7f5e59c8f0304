package document

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/beevik/etree"
	"github.com/klauspost/compress/zip"
)

const (
	documentPart = "word/document.xml"
	stylesPart   = "word/styles.xml"

	// maxPartSize bounds a single decompressed XML part.
	maxPartSize = 256 << 20
)

// docxTree is a WordprocessingML package with its main part held as a DOM.
// Only word/document.xml is rewritten on Encode; every other part is copied.
type docxTree struct {
	archive *zip.Reader
	doc     *etree.Document
	styles  styleSheet
	nodes   map[string]*etree.Element
}

// ParseDOCX parses a .docx package.
func ParseDOCX(data []byte) (Tree, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open docx container: %w", err)
	}

	var docFile, stylesFile *zip.File
	for _, f := range zr.File {
		switch f.Name {
		case documentPart:
			docFile = f
		case stylesPart:
			stylesFile = f
		}
	}
	if docFile == nil {
		return nil, fmt.Errorf("docx container has no %s", documentPart)
	}

	raw, err := readPart(docFile)
	if err != nil {
		return nil, err
	}
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(raw); err != nil {
		return nil, fmt.Errorf("parse %s: %w", documentPart, err)
	}
	if body := documentBody(doc); body == nil {
		return nil, fmt.Errorf("%s has no body", documentPart)
	}

	styles := styleSheet{names: map[string]string{}, levels: map[string]int{}}
	if stylesFile != nil {
		sraw, err := readPart(stylesFile)
		if err != nil {
			return nil, err
		}
		styles, err = parseStyles(sraw)
		if err != nil {
			return nil, err
		}
	}

	return &docxTree{archive: zr, doc: doc, styles: styles}, nil
}

func readPart(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", f.Name, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(io.LimitReader(rc, maxPartSize+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", f.Name, err)
	}
	if len(data) > maxPartSize {
		return nil, fmt.Errorf("%s exceeds %d bytes", f.Name, maxPartSize)
	}
	return data, nil
}

func (t *docxTree) Format() Format { return FormatDOCX }

// Paragraphs walks the body in document order. Structured document tags are
// transparent. Tables nested inside cells are not addressable.
func (t *docxTree) Paragraphs() []Paragraph {
	body := documentBody(t.doc)
	t.nodes = make(map[string]*etree.Element)
	var out []Paragraph
	bodyIdx, tableIdx := 0, 0

	for _, block := range blocks(body) {
		switch block.Tag {
		case "p":
			a := BodyAnchor(bodyIdx)
			bodyIdx++
			out = append(out, t.paragraph(a, block))
		case "tbl":
			for r, row := range children(block, "tr") {
				for c, cell := range children(row, "tc") {
					pi := 0
					for _, p := range children(cell, "p") {
						a := TableAnchor(tableIdx, r, c, pi)
						pi++
						out = append(out, t.paragraph(a, p))
					}
				}
			}
			tableIdx++
		}
	}
	return out
}

func (t *docxTree) paragraph(a Anchor, p *etree.Element) Paragraph {
	t.nodes[a.Key()] = p
	styleID, level := "", 0
	if pPr := child(p, "pPr"); pPr != nil {
		if ps := child(pPr, "pStyle"); ps != nil {
			styleID = attr(ps, "val")
		}
		if ol := child(pPr, "outlineLvl"); ol != nil {
			level = outlineLevel(attr(ol, "val"))
		}
	}
	if level == 0 && styleID != "" {
		level = t.styles.levels[styleID]
	}
	return Paragraph{
		Anchor:       a,
		Text:         paragraphText(p),
		Style:        t.styles.name(styleID),
		OutlineLevel: level,
	}
}

// SetText replaces the paragraph's runs with a single run. Paragraph
// properties, bookmarks and the first run's character formatting survive.
func (t *docxTree) SetText(a Anchor, text string) error {
	if t.nodes == nil {
		t.Paragraphs()
	}
	p, ok := t.nodes[a.Key()]
	if !ok {
		return ErrNoParagraph
	}
	if err := checkText(text); err != nil {
		return err
	}

	var rPr *etree.Element
	if r := firstRun(p); r != nil {
		if props := child(r, "rPr"); props != nil {
			rPr = props.Copy()
		}
	}

	for _, c := range p.ChildElements() {
		switch c.Tag {
		case "pPr", "bookmarkStart", "bookmarkEnd":
			continue
		}
		p.RemoveChild(c)
	}

	insertAt := 0
	for _, c := range p.ChildElements() {
		if c.Tag == "pPr" || c.Tag == "bookmarkStart" {
			insertAt = c.Index() + 1
		}
	}

	run := etree.NewElement(qualify(p.Space, "r"))
	if rPr != nil {
		run.AddChild(rPr)
	}
	var buf strings.Builder
	flush := func() {
		if buf.Len() == 0 {
			return
		}
		te := run.CreateElement(qualify(p.Space, "t"))
		te.CreateAttr("xml:space", "preserve")
		te.SetText(buf.String())
		buf.Reset()
	}
	for _, r := range text {
		switch {
		case r == '\t':
			flush()
			run.CreateElement(qualify(p.Space, "tab"))
		case r == '\n':
			flush()
			run.CreateElement(qualify(p.Space, "br"))
		default:
			buf.WriteRune(r)
		}
	}
	flush()
	p.InsertChildAt(insertAt, run)
	return nil
}

// Encode rewrites the package with the edited main part.
func (t *docxTree) Encode() ([]byte, error) {
	main, err := t.doc.WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("serialize %s: %w", documentPart, err)
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, f := range t.archive.File {
		method := zip.Deflate
		if f.Method == zip.Store {
			method = zip.Store
		}
		w, err := zw.CreateHeader(&zip.FileHeader{Name: f.Name, Method: method, Modified: f.Modified})
		if err != nil {
			return nil, fmt.Errorf("write %s: %w", f.Name, err)
		}
		if f.Name == documentPart {
			if _, err := w.Write(main); err != nil {
				return nil, fmt.Errorf("write %s: %w", f.Name, err)
			}
			continue
		}
		if strings.HasSuffix(f.Name, "/") {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", f.Name, err)
		}
		_, err = io.Copy(w, rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("copy %s: %w", f.Name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func documentBody(doc *etree.Document) *etree.Element {
	root := doc.Root()
	if root == nil || root.Tag != "document" {
		return nil
	}
	return child(root, "body")
}

// transparent containers wrap content without adding structure.
func transparent(tag string) bool {
	switch tag {
	case "sdt", "sdtContent", "customXml":
		return true
	}
	return false
}

// blocks returns the paragraphs and tables directly under parent.
func blocks(parent *etree.Element) []*etree.Element {
	var out []*etree.Element
	for _, c := range parent.ChildElements() {
		switch {
		case c.Tag == "p" || c.Tag == "tbl":
			out = append(out, c)
		case transparent(c.Tag):
			out = append(out, blocks(c)...)
		}
	}
	return out
}

// children returns the elements named local under parent, looking through
// transparent containers.
func children(parent *etree.Element, local string) []*etree.Element {
	var out []*etree.Element
	for _, c := range parent.ChildElements() {
		switch {
		case c.Tag == local:
			out = append(out, c)
		case transparent(c.Tag):
			out = append(out, children(c, local)...)
		}
	}
	return out
}

func child(parent *etree.Element, local string) *etree.Element {
	for _, c := range parent.ChildElements() {
		if c.Tag == local {
			return c
		}
	}
	return nil
}

func attr(e *etree.Element, local string) string {
	for _, a := range e.Attr {
		if a.Key == local {
			return a.Value
		}
	}
	return ""
}

func qualify(space, local string) string {
	if space == "" {
		return local
	}
	return space + ":" + local
}

func firstRun(e *etree.Element) *etree.Element {
	for _, c := range e.ChildElements() {
		switch c.Tag {
		case "r":
			return c
		case "pPr", "del", "moveFrom":
			continue
		}
		if r := firstRun(c); r != nil {
			return r
		}
	}
	return nil
}

func paragraphText(p *etree.Element) string {
	var b strings.Builder
	appendText(&b, p)
	return b.String()
}

func appendText(b *strings.Builder, e *etree.Element) {
	for _, c := range e.ChildElements() {
		switch c.Tag {
		case "t":
			b.WriteString(c.Text())
		case "tab":
			b.WriteByte('\t')
		case "br":
			if typ := attr(c, "type"); typ == "" || typ == "textWrapping" {
				b.WriteByte('\n')
			}
		case "cr":
			b.WriteByte('\n')
		case "noBreakHyphen":
			b.WriteByte('-')
		case "pPr", "rPr", "del", "delText", "moveFrom", "instrText", "fldChar",
			"txbxContent", "drawing", "pict", "object", "tbl":
			// deleted, hidden, or floating content
		default:
			appendText(b, c)
		}
	}
}

// outlineLevel converts a w:outlineLvl value (0-8, 9 meaning body text) to a
// 1-based level, or 0.
func outlineLevel(v string) int {
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 || n > 8 {
		return 0
	}
	return n + 1
}

// styleSheet maps paragraph style ids to display names and outline levels.
type styleSheet struct {
	names       map[string]string
	levels      map[string]int
	defaultName string
}

func parseStyles(data []byte) (styleSheet, error) {
	ss := styleSheet{names: map[string]string{}, levels: map[string]int{}}
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return ss, fmt.Errorf("parse %s: %w", stylesPart, err)
	}
	root := doc.Root()
	if root == nil {
		return ss, nil
	}
	for _, s := range root.ChildElements() {
		if s.Tag != "style" || attr(s, "type") != "paragraph" {
			continue
		}
		id := attr(s, "styleId")
		name := id
		if n := child(s, "name"); n != nil && attr(n, "val") != "" {
			name = attr(n, "val")
		}
		name = displayStyleName(name)
		ss.names[id] = name
		if pPr := child(s, "pPr"); pPr != nil {
			if ol := child(pPr, "outlineLvl"); ol != nil {
				ss.levels[id] = outlineLevel(attr(ol, "val"))
			}
		}
		if d := attr(s, "default"); d == "1" || d == "true" {
			ss.defaultName = name
		}
	}
	return ss, nil
}

func (ss styleSheet) name(id string) string {
	if id == "" {
		if ss.defaultName != "" {
			return ss.defaultName
		}
		return "Normal"
	}
	if n, ok := ss.names[id]; ok {
		return n
	}
	return styleIDName(id)
}

// displayStyleName capitalizes built-in lowercase names such as "heading 2".
func displayStyleName(name string) string {
	if name == "" || strings.ToLower(name) != name {
		return name
	}
	words := strings.Fields(name)
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + w[size:]
	}
	return strings.Join(words, " ")
}

// styleIDName derives a name from an id with no styles.xml entry:
// "Heading2" becomes "Heading 2".
func styleIDName(id string) string {
	i := len(id)
	for i > 0 && id[i-1] >= '0' && id[i-1] <= '9' {
		i--
	}
	if i == 0 || i == len(id) {
		return id
	}
	return id[:i] + " " + id[i:]
}
