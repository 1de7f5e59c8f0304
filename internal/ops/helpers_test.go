package ops

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yswa-var/DOCX-agent/internal/approval"
	"github.com/yswa-var/DOCX-agent/internal/config"
	"github.com/yswa-var/DOCX-agent/internal/db"
	"github.com/yswa-var/DOCX-agent/internal/document"
	"github.com/yswa-var/DOCX-agent/internal/document/docxtest"
	"github.com/yswa-var/DOCX-agent/internal/index"
	"github.com/yswa-var/DOCX-agent/internal/threads"
)

type env struct {
	cfg   *config.Config
	docs  *index.Registry
	store threads.Store
	gate  *approval.Gate
	path  string
}

// newEnv wires the full stack over a report document set as the default.
func newEnv(t *testing.T) *env {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "report.docx")
	data := docxtest.Build(t, docxtest.Document(
		docxtest.Para("Heading1", "Overview"),
		docxtest.Para("", "The budget is approved."),
		docxtest.Table(
			[]string{"Item", "Cost"},
			[]string{"Budget line", "100"},
		),
		docxtest.Para("Heading2", "Details"),
		docxtest.Para("", "More budget text."),
	))
	require.NoError(t, os.WriteFile(path, data, 0600))

	database, err := db.Init(filepath.Join(dir, "base"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	cfg := config.DefaultConfig()
	cfg.DocumentPath = path
	cfg.AllowedPaths = []string{dir}

	docs := index.NewRegistry()
	store := threads.NewSQLStore(database)
	return &env{
		cfg:   cfg,
		docs:  docs,
		store: store,
		gate:  approval.New(store, NewInvoker(docs, cfg)),
		path:  path,
	}
}

func (e *env) thread(t *testing.T, user string) string {
	t.Helper()
	out, err := OpenThread(context.Background(), e.store, OpenThreadInput{Platform: "cli", UserID: user})
	require.NoError(t, err)
	return out.ThreadID
}

func anchorPtr(a document.Anchor) *document.Anchor { return &a }

func strPtr(s string) *string { return &s }

func mustTime(t *testing.T, s string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, s)
	require.NoError(t, err)
	return ts
}
