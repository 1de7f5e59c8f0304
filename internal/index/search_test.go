package index

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yswa-var/DOCX-agent/internal/document"
)

func TestSearch_Scenario(t *testing.T) {
	ctx := context.Background()
	idx := New(scenarioDOCX(t))

	res, err := idx.Search(ctx, "intro", false)
	require.NoError(t, err)
	require.Equal(t, 1, res.Count)
	require.Equal(t, document.BodyAnchor(0), res.Matches[0].Anchor)

	res, err = idx.Search(ctx, "INTRO", true)
	require.NoError(t, err)
	require.Zero(t, res.Count)
	require.NotNil(t, res.Matches)
}

func TestSearch_EmptyQuery(t *testing.T) {
	idx := New(reportDOCX(t))
	for _, cs := range []bool{false, true} {
		res, err := idx.Search(context.Background(), "", cs)
		require.NoError(t, err)
		require.Zero(t, res.Count)
		require.Empty(t, res.Matches)
	}
}

func TestSearch_OrderAndBreadcrumbs(t *testing.T) {
	idx := New(reportDOCX(t))
	res, err := idx.Search(context.Background(), "budget", false)
	require.NoError(t, err)
	require.Equal(t, 3, res.Count)

	require.Equal(t, document.BodyAnchor(1), res.Matches[0].Anchor)
	require.Equal(t, document.TableAnchor(0, 1, 0, 0), res.Matches[1].Anchor)
	require.Equal(t, document.BodyAnchor(3), res.Matches[2].Anchor)
	require.Equal(t, []string{"Overview", "Details"}, res.Matches[2].Breadcrumb)
}

func TestSearch_IsNotRegex(t *testing.T) {
	path := writeFile(t, "notes.md", []byte("costs (est.) are 5*3\n\nplain\n"))
	idx := New(path)

	res, err := idx.Search(context.Background(), "(est.)", false)
	require.NoError(t, err)
	require.Equal(t, 1, res.Count)

	res, err = idx.Search(context.Background(), "p.ain", false)
	require.NoError(t, err)
	require.Zero(t, res.Count)
}

func TestSearch_SkipsMalformedRecords(t *testing.T) {
	path := writeFile(t, "notes.md", []byte("good text\n\nbad \xff text\n"))
	idx := New(path)

	res, err := idx.Search(context.Background(), "text", false)
	require.NoError(t, err)
	require.Equal(t, 1, res.Count)
	require.Equal(t, 1, res.Skipped)
}

func TestSearch_ParseError(t *testing.T) {
	idx := New(writeFile(t, "bad.docx", []byte("nope")))
	_, err := idx.Search(context.Background(), "x", false)
	require.Error(t, err)
}
