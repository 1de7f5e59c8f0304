package index

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yswa-var/DOCX-agent/internal/document"
	"github.com/yswa-var/DOCX-agent/internal/errors"
)

func TestLoad_StateTransitions(t *testing.T) {
	idx := New(scenarioDOCX(t))
	require.Equal(t, StateUnloaded, idx.State())
	require.Empty(t, idx.Fingerprint())

	require.NoError(t, idx.Load(context.Background()))
	require.Equal(t, StateLoaded, idx.State())
	require.Len(t, idx.Fingerprint(), 64)

	idx.MarkDirty()
	require.Equal(t, StateDirty, idx.State())
	require.NoError(t, idx.Load(context.Background()))
	require.Equal(t, StateLoaded, idx.State())
}

func TestLoad_Idempotent(t *testing.T) {
	ctx := context.Background()
	idx := New(reportDOCX(t))

	require.NoError(t, idx.Load(ctx))
	first, err := idx.GetAllParagraphs(ctx)
	require.NoError(t, err)

	require.NoError(t, idx.Load(ctx))
	idx.MarkDirty()
	require.NoError(t, idx.Load(ctx))
	second, err := idx.GetAllParagraphs(ctx)
	require.NoError(t, err)

	require.Equal(t, first, second)
}

func TestLoad_Errors(t *testing.T) {
	ctx := context.Background()

	missing := New(filepath.Join(t.TempDir(), "missing.docx"))
	err := missing.Load(ctx)
	require.True(t, errors.Is(err, errors.ErrDocumentParse), "got %v", err)
	require.Equal(t, StateUnloaded, missing.State())

	corrupt := New(writeFile(t, "corrupt.docx", []byte("not a zip")))
	require.True(t, errors.Is(corrupt.Load(ctx), errors.ErrDocumentParse))

	unsupported := New(writeFile(t, "sheet.xlsx", []byte("x")))
	require.True(t, errors.Is(unsupported.Load(ctx), errors.ErrDocumentParse))
}

func TestLoad_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	idx := New(scenarioDOCX(t))
	require.True(t, errors.Is(idx.Load(ctx), errors.ErrCancelled))
}

func TestGetAllParagraphs_Breadcrumbs(t *testing.T) {
	idx := New(reportDOCX(t))
	records, err := idx.GetAllParagraphs(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 8)

	require.Equal(t, document.BodyAnchor(0), records[0].Anchor)
	require.Empty(t, records[0].Breadcrumb)
	require.Equal(t, []string{"Overview"}, records[1].Breadcrumb)
	require.Equal(t, document.TableAnchor(0, 1, 0, 0), records[4].Anchor)
	require.Equal(t, []string{"Overview"}, records[4].Breadcrumb)
	require.Equal(t, "Details", records[6].Text)
	require.Equal(t, []string{"Overview"}, records[6].Breadcrumb)
	require.Equal(t, []string{"Overview", "Details"}, records[7].Breadcrumb)
}

func TestGetAllParagraphs_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	idx := New(reportDOCX(t))
	records, err := idx.GetAllParagraphs(ctx)
	require.NoError(t, err)

	records[1].Text = "mutated"
	records[1].Breadcrumb[0] = "mutated"

	again, err := idx.GetAllParagraphs(ctx)
	require.NoError(t, err)
	require.Equal(t, "The budget is approved.", again[1].Text)
	require.Equal(t, "Overview", again[1].Breadcrumb[0])
}

func TestGetParagraph(t *testing.T) {
	ctx := context.Background()
	idx := New(reportDOCX(t))

	rec, err := idx.GetParagraph(ctx, document.TableAnchor(0, 1, 1, 0))
	require.NoError(t, err)
	require.Equal(t, "100", rec.Text)

	tests := []struct {
		name   string
		anchor document.Anchor
		code   errors.ErrorCode
	}{
		{"body out of range", document.BodyAnchor(42), errors.ErrAnchorNotFound},
		{"table out of range", document.TableAnchor(3, 0, 0, 0), errors.ErrAnchorNotFound},
		{"cell paragraph out of range", document.TableAnchor(0, 0, 0, 1), errors.ErrAnchorNotFound},
		{"invalid anchor", document.Anchor{Container: "footer"}, errors.ErrInvalidRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := idx.GetParagraph(ctx, tt.anchor)
			require.True(t, errors.Is(err, tt.code), "got %v", err)
		})
	}
}

func TestGetParagraph_MarkdownDocument(t *testing.T) {
	path := writeFile(t, "notes.md", []byte("# Notes\n\nhello world\n"))
	idx := New(path)
	rec, err := idx.GetParagraph(context.Background(), document.BodyAnchor(1))
	require.NoError(t, err)
	require.Equal(t, "hello world", rec.Text)
	require.Equal(t, []string{"Notes"}, rec.Breadcrumb)
}

func TestMarkDirty_PicksUpDiskChanges(t *testing.T) {
	ctx := context.Background()
	path := writeFile(t, "notes.md", []byte("one\n"))
	idx := New(path)
	require.NoError(t, idx.Load(ctx))

	require.NoError(t, os.WriteFile(path, []byte("one\n\ntwo\n"), 0600))
	idx.MarkDirty()

	records, err := idx.GetAllParagraphs(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)
}
