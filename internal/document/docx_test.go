package document

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yswa-var/DOCX-agent/internal/document/docxtest"
)

func sampleDOCX(t *testing.T) []byte {
	t.Helper()
	return docxtest.Build(t, docxtest.Document(
		docxtest.Para("Title", "Quarterly Report"),
		docxtest.Para("", "Intro"),
		docxtest.Para("Heading2", "Scope"),
		docxtest.Table(
			[]string{"Region", "Revenue"},
			[]string{"EMEA", "42"},
		),
		docxtest.Para("Heading1", "Results"),
		docxtest.Para("ListParagraph", "First point"),
	))
}

func TestParseDOCX_DocumentOrder(t *testing.T) {
	tree, err := ParseDOCX(sampleDOCX(t))
	require.NoError(t, err)

	paras := tree.Paragraphs()
	require.Len(t, paras, 9)

	want := []struct {
		anchor Anchor
		text   string
		style  string
	}{
		{BodyAnchor(0), "Quarterly Report", "Title"},
		{BodyAnchor(1), "Intro", "Normal"},
		{BodyAnchor(2), "Scope", "Heading 2"},
		{TableAnchor(0, 0, 0, 0), "Region", "Normal"},
		{TableAnchor(0, 0, 1, 0), "Revenue", "Normal"},
		{TableAnchor(0, 1, 0, 0), "EMEA", "Normal"},
		{TableAnchor(0, 1, 1, 0), "42", "Normal"},
		{BodyAnchor(3), "Results", "Heading 1"},
	}
	for i, w := range want {
		require.Equal(t, w.anchor, paras[i].Anchor, "paragraph %d", i)
		require.Equal(t, w.text, paras[i].Text, "paragraph %d", i)
		require.Equal(t, w.style, paras[i].Style, "paragraph %d", i)
	}
	require.Equal(t, 2, paras[2].OutlineLevel)
	require.Equal(t, "List Paragraph", paras[8].Style)
}

func TestParseDOCX_TextExtraction(t *testing.T) {
	body := `<w:p><w:pPr><w:tabs><w:tab w:val="left" w:pos="720"/></w:tabs></w:pPr>` +
		`<w:r><w:t>a</w:t><w:tab/><w:t>b</w:t><w:br/><w:t>c</w:t></w:r>` +
		`<w:del><w:r><w:delText>gone</w:delText></w:r></w:del>` +
		`<w:ins><w:r><w:t>+new</w:t></w:r></w:ins>` +
		`<w:hyperlink><w:r><w:t> link</w:t></w:r></w:hyperlink>` +
		`<w:r><w:fldChar w:fldCharType="begin"/><w:instrText>PAGE</w:instrText></w:r>` +
		`<w:r><w:br w:type="page"/></w:r>` +
		`</w:p>`
	tree, err := ParseDOCX(docxtest.Build(t, docxtest.Document(body)))
	require.NoError(t, err)

	paras := tree.Paragraphs()
	require.Len(t, paras, 1)
	require.Equal(t, "a\tb\nc+new link", paras[0].Text)
}

func TestParseDOCX_StructuredDocumentTags(t *testing.T) {
	doc := docxtest.Document(
		`<w:sdt><w:sdtPr/><w:sdtContent>`+docxtest.Para("", "inside sdt")+`</w:sdtContent></w:sdt>`,
		docxtest.Para("", "after"),
	)
	tree, err := ParseDOCX(docxtest.Build(t, doc))
	require.NoError(t, err)

	paras := tree.Paragraphs()
	require.Len(t, paras, 2)
	require.Equal(t, "inside sdt", paras[0].Text)
	require.Equal(t, BodyAnchor(1), paras[1].Anchor)
}

func TestParseDOCX_NestedTablesSkipped(t *testing.T) {
	nested := `<w:tbl><w:tr><w:tc>` + docxtest.Para("", "outer") +
		docxtest.Table([]string{"inner"}) + `</w:tc></w:tr></w:tbl>`
	tree, err := ParseDOCX(docxtest.Build(t, docxtest.Document(nested)))
	require.NoError(t, err)

	paras := tree.Paragraphs()
	require.Len(t, paras, 1)
	require.Equal(t, "outer", paras[0].Text)
}

func TestParseDOCX_OutlineLevelOnParagraph(t *testing.T) {
	p := `<w:p><w:pPr><w:outlineLvl w:val="2"/></w:pPr><w:r><w:t>Custom</w:t></w:r></w:p>`
	tree, err := ParseDOCX(docxtest.Build(t, docxtest.Document(p)))
	require.NoError(t, err)
	require.Equal(t, 3, tree.Paragraphs()[0].OutlineLevel)
}

func TestParseDOCX_Errors(t *testing.T) {
	_, err := ParseDOCX([]byte("not a zip"))
	require.Error(t, err)

	noMain, err := docxtest.Package(map[string]string{"word/styles.xml": docxtest.Styles})
	require.NoError(t, err)
	_, err = ParseDOCX(noMain)
	require.Error(t, err)

	badXML, err := docxtest.Package(map[string]string{"word/document.xml": "<w:document"})
	require.NoError(t, err)
	_, err = ParseDOCX(badXML)
	require.Error(t, err)
}

func TestDOCX_SetTextPreservesFormatting(t *testing.T) {
	p := `<w:p><w:pPr><w:pStyle w:val="Heading2"/></w:pPr>` +
		`<w:bookmarkStart w:id="0" w:name="scope"/>` +
		`<w:r><w:rPr><w:b/></w:rPr><w:t>Old </w:t></w:r><w:r><w:t>text</w:t></w:r>` +
		`<w:bookmarkEnd w:id="0"/></w:p>`
	tree, err := ParseDOCX(docxtest.Build(t, docxtest.Document(p, docxtest.Para("", "untouched"))))
	require.NoError(t, err)
	tree.Paragraphs()

	require.NoError(t, tree.SetText(BodyAnchor(0), "New\ttext\nline two"))

	data, err := tree.Encode()
	require.NoError(t, err)

	reparsed, err := ParseDOCX(data)
	require.NoError(t, err)
	paras := reparsed.Paragraphs()
	require.Len(t, paras, 2)
	require.Equal(t, "New\ttext\nline two", paras[0].Text)
	require.Equal(t, "Heading 2", paras[0].Style)
	require.Equal(t, "untouched", paras[1].Text)

	dt := reparsed.(*docxTree)
	el := dt.nodes[BodyAnchor(0).Key()]
	require.NotNil(t, child(el, "pPr"))
	require.NotNil(t, child(el, "bookmarkStart"))
	require.NotNil(t, child(el, "bookmarkEnd"))
	runs := children(el, "r")
	require.Len(t, runs, 1)
	rPr := child(runs[0], "rPr")
	require.NotNil(t, rPr)
	require.NotNil(t, child(rPr, "b"))
}

func TestDOCX_SetTextTableCell(t *testing.T) {
	tree, err := ParseDOCX(sampleDOCX(t))
	require.NoError(t, err)
	tree.Paragraphs()

	require.NoError(t, tree.SetText(TableAnchor(0, 1, 1, 0), "43"))
	paras := tree.Paragraphs()
	require.Equal(t, "43", paras[6].Text)

	require.ErrorIs(t, tree.SetText(TableAnchor(0, 9, 0, 0), "x"), ErrNoParagraph)
	require.ErrorIs(t, tree.SetText(BodyAnchor(99), "x"), ErrNoParagraph)
}

func TestDOCX_SetTextRejectsUnrepresentable(t *testing.T) {
	tree, err := ParseDOCX(sampleDOCX(t))
	require.NoError(t, err)
	before := tree.Paragraphs()

	for _, text := range []string{"a\rb", "bad\xffutf8", "bell\a", "nul\x00", "\uffff"} {
		require.ErrorIs(t, tree.SetText(BodyAnchor(1), text), ErrUnrepresentable, "%q", text)
	}
	require.Equal(t, before, tree.Paragraphs(), "rejected text leaves the tree unchanged")

	require.NoError(t, tree.SetText(BodyAnchor(1), "caf\u00e9 \ufffd ok"))
	require.Equal(t, "caf\u00e9 \ufffd ok", tree.Paragraphs()[1].Text)
}

func TestDOCX_EncodeKeepsOtherParts(t *testing.T) {
	data := sampleDOCX(t)
	tree, err := ParseDOCX(data)
	require.NoError(t, err)

	out, err := tree.Encode()
	require.NoError(t, err)

	again, err := ParseDOCX(out)
	require.NoError(t, err)
	require.Equal(t, tree.Paragraphs(), again.Paragraphs())
	require.Equal(t, "Heading 1", again.(*docxTree).styles.names["Heading1"])
}

func TestStyleNames(t *testing.T) {
	require.Equal(t, "Heading 2", displayStyleName("heading 2"))
	require.Equal(t, "List Paragraph", displayStyleName("List Paragraph"))
	require.Equal(t, "Heading 4", styleIDName("Heading4"))
	require.Equal(t, "Quote", styleIDName("Quote"))

	var ss styleSheet
	require.Equal(t, "Normal", ss.name(""))
	require.Equal(t, "Heading 7", ss.name("Heading7"))
}
