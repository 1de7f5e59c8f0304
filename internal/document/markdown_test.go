package document

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const sampleMarkdown = "# Title\n\nIntro paragraph.\n\n## Scope\n\n- item one\n- item two\n\n> quoted\n\n| A | B |\n|---|---|\n| 1 | 2 |\n\n```go\ncode\n```\n"

func TestParseMarkdown_Paragraphs(t *testing.T) {
	tree := ParseMarkdown([]byte(sampleMarkdown))
	paras := tree.Paragraphs()

	want := []struct {
		anchor Anchor
		text   string
		style  string
	}{
		{BodyAnchor(0), "Title", "Heading 1"},
		{BodyAnchor(1), "Intro paragraph.", "Normal"},
		{BodyAnchor(2), "Scope", "Heading 2"},
		{BodyAnchor(3), "item one", "List Paragraph"},
		{BodyAnchor(4), "item two", "List Paragraph"},
		{BodyAnchor(5), "quoted", "Quote"},
		{TableAnchor(0, 0, 0, 0), "A", "Normal"},
		{TableAnchor(0, 0, 1, 0), "B", "Normal"},
		{TableAnchor(0, 1, 0, 0), "1", "Normal"},
		{TableAnchor(0, 1, 1, 0), "2", "Normal"},
	}
	require.Len(t, paras, len(want))
	for i, w := range want {
		require.Equal(t, w.anchor, paras[i].Anchor, "paragraph %d", i)
		require.Equal(t, w.text, paras[i].Text, "paragraph %d", i)
		require.Equal(t, w.style, paras[i].Style, "paragraph %d", i)
	}
}

func TestMarkdown_SetText(t *testing.T) {
	tree := ParseMarkdown([]byte(sampleMarkdown))

	require.NoError(t, tree.SetText(BodyAnchor(1), "Intro updated."))
	require.NoError(t, tree.SetText(BodyAnchor(2), "Boundaries"))
	require.NoError(t, tree.SetText(TableAnchor(0, 1, 1, 0), "3"))

	out, err := tree.Encode()
	require.NoError(t, err)
	require.Contains(t, string(out), "Intro updated.\n")
	require.Contains(t, string(out), "## Boundaries\n")
	require.Contains(t, string(out), "| 1 | 3 |")
	require.Contains(t, string(out), "```go\ncode\n```")

	paras := tree.Paragraphs()
	require.Equal(t, "Intro updated.", paras[1].Text)
	require.Equal(t, "Boundaries", paras[2].Text)
	require.Equal(t, "Heading 2", paras[2].Style)
}

func TestMarkdown_SetTextSplitsParagraph(t *testing.T) {
	tree := ParseMarkdown([]byte(sampleMarkdown))
	before := len(tree.Paragraphs())

	require.NoError(t, tree.SetText(BodyAnchor(1), "First half.\n\nSecond half."))

	paras := tree.Paragraphs()
	require.Len(t, paras, before+1)
	require.Equal(t, "First half.", paras[1].Text)
	require.Equal(t, "Second half.", paras[2].Text)
	require.Equal(t, BodyAnchor(3), paras[3].Anchor)
	require.Equal(t, "Scope", paras[3].Text)
}

func TestMarkdown_SetTextRejectsMarkup(t *testing.T) {
	tree := ParseMarkdown([]byte(sampleMarkdown))
	before := tree.Paragraphs()
	src, err := tree.Encode()
	require.NoError(t, err)

	tests := []struct {
		anchor Anchor
		text   string
	}{
		{BodyAnchor(1), "# not a heading"},
		{BodyAnchor(1), "- item"},
		{BodyAnchor(1), "> quoted"},
		{BodyAnchor(1), "1. first"},
		{BodyAnchor(1), "x\n\n# heading"},
		{BodyAnchor(1), "a\rb"},
		{BodyAnchor(1), "bad\xffutf8"},
		{BodyAnchor(2), "Scope\n\nbody"},
		{TableAnchor(0, 1, 1, 0), "a | b"},
		{TableAnchor(0, 1, 1, 0), "two\nlines"},
	}
	for _, tt := range tests {
		require.ErrorIs(t, tree.SetText(tt.anchor, tt.text), ErrUnrepresentable, "%q", tt.text)
	}

	require.Equal(t, before, tree.Paragraphs())
	out, err := tree.Encode()
	require.NoError(t, err)
	require.Equal(t, string(src), string(out))

	require.NoError(t, tree.SetText(BodyAnchor(1), "Intro with # inside"))
	require.Equal(t, "Intro with # inside", tree.Paragraphs()[1].Text)
	require.Equal(t, "Normal", tree.Paragraphs()[1].Style)
}

func TestMarkdown_SetTextUnknownAnchor(t *testing.T) {
	tree := ParseMarkdown([]byte("just text\n"))
	require.ErrorIs(t, tree.SetText(BodyAnchor(5), "x"), ErrNoParagraph)
	require.ErrorIs(t, tree.SetText(TableAnchor(0, 0, 0, 0), "x"), ErrNoParagraph)
}

func TestMarkdown_MultiLineParagraph(t *testing.T) {
	tree := ParseMarkdown([]byte("line one\nline two\n\nnext\n"))
	paras := tree.Paragraphs()
	require.Len(t, paras, 2)
	require.Equal(t, "line one\nline two", paras[0].Text)

	require.NoError(t, tree.SetText(BodyAnchor(0), "merged"))
	out, err := tree.Encode()
	require.NoError(t, err)
	require.Equal(t, "merged\n\nnext\n", string(out))
}
