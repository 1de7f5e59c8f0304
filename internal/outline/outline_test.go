package outline

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yswa-var/DOCX-agent/internal/document"
)

func rec(p int, style, text string) document.ParagraphRecord {
	return document.ParagraphRecord{Anchor: document.BodyAnchor(p), Style: style, Text: text}
}

func TestLevel(t *testing.T) {
	tests := []struct {
		style string
		want  int
	}{
		{"Heading 1", 1},
		{"Heading 2", 2},
		{"heading 9", 9},
		{"Heading2", 2},
		{"Title", 1},
		{"Heading 10", 0},
		{"Heading", 0},
		{"Normal", 0},
		{"Headings 2", 0},
		{"", 0},
	}
	for _, tt := range tests {
		if got := Level(tt.style); got != tt.want {
			t.Errorf("Level(%q) = %d, want %d", tt.style, got, tt.want)
		}
	}
}

func TestBuild_IntroAndScope(t *testing.T) {
	records := []document.ParagraphRecord{
		rec(0, "Normal", "Intro"),
		rec(1, "Heading 2", "Heading 2: Scope"),
	}
	entries, skipped := Build(records)
	require.Zero(t, skipped)
	require.Len(t, entries, 1)
	require.Equal(t, document.BodyAnchor(1), entries[0].Anchor)
	require.Equal(t, 2, entries[0].Level)
	require.Empty(t, entries[0].Breadcrumb)
}

func TestBuild_Breadcrumbs(t *testing.T) {
	records := []document.ParagraphRecord{
		rec(0, "Heading 1", "A"),
		rec(1, "Heading 2", "A.1"),
		rec(2, "Heading 3", "A.1.a"),
		rec(3, "Normal", "body"),
		rec(4, "Heading 2", "A.2"),
		rec(5, "Heading 3", "A.2.a"),
		rec(6, "Heading 1", "B"),
		rec(7, "Heading 3", "B..a"),
	}
	entries, _ := Build(records)
	require.Len(t, entries, 7)

	want := [][]string{
		{},
		{"A"},
		{"A", "A.1"},
		{"A"},
		{"A", "A.2"},
		{},
		{"B"},
	}
	for i, w := range want {
		require.Equal(t, w, entries[i].Breadcrumb, "entry %d (%s)", i, entries[i].Text)
	}
}

func TestBuild_BreadcrumbLevelsStrictlyIncrease(t *testing.T) {
	styles := []string{"Heading 3", "Heading 1", "Heading 4", "Heading 2", "Heading 2", "Heading 5", "Heading 3", "Heading 1", "Heading 6"}
	records := make([]document.ParagraphRecord, len(styles))
	levels := map[string]int{}
	for i, s := range styles {
		text := string(rune('a' + i))
		records[i] = rec(i, s, text)
		levels[text] = Level(s)
	}

	entries, _ := Build(records)
	for _, e := range entries {
		prev := 0
		for _, crumb := range e.Breadcrumb {
			l := levels[crumb]
			require.Greater(t, l, prev, "breadcrumb of %q not strictly increasing", e.Text)
			require.Less(t, l, e.Level, "breadcrumb of %q not above entry", e.Text)
			prev = l
		}
	}
}

func TestBuild_DuplicateTextsDistinguishedByAnchor(t *testing.T) {
	entries, _ := Build([]document.ParagraphRecord{
		rec(0, "Heading 1", "Notes"),
		rec(1, "Heading 1", "Notes"),
	})
	require.Len(t, entries, 2)
	require.NotEqual(t, entries[0].Anchor, entries[1].Anchor)
	require.Empty(t, entries[1].Breadcrumb)
}

func TestBuild_SkipsMalformed(t *testing.T) {
	bad := rec(1, "Heading 1", "bad \xff utf8")
	badAnchor := document.ParagraphRecord{Anchor: document.Anchor{Container: "footer"}, Style: "Heading 1", Text: "x"}
	entries, skipped := Build([]document.ParagraphRecord{rec(0, "Heading 1", "ok"), bad, badAnchor})
	require.Equal(t, 2, skipped)
	require.Len(t, entries, 1)
}

func TestBuild_ExplicitOutlineLevel(t *testing.T) {
	r := rec(0, "Normal", "Custom")
	r.OutlineLevel = 2
	entries, _ := Build([]document.ParagraphRecord{r})
	require.Len(t, entries, 1)
	require.Equal(t, 2, entries[0].Level)
}

func TestTracker_Observe(t *testing.T) {
	var tr Tracker
	require.Empty(t, tr.Observe(rec(0, "Normal", "preface")))
	require.Empty(t, tr.Observe(rec(1, "Heading 1", "A")))
	require.Equal(t, []string{"A"}, tr.Observe(rec(2, "Normal", "body")))
	require.Equal(t, []string{"A"}, tr.Observe(rec(3, "Heading 2", "A.1")))
	require.Equal(t, []string{"A", "A.1"}, tr.Observe(rec(4, "Normal", "body")))
}
