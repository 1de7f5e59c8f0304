package index

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/yswa-var/DOCX-agent/internal/document/docxtest"
)

// scenarioDOCX writes the two-paragraph document: "Intro" then a Heading 2.
func scenarioDOCX(t *testing.T) string {
	t.Helper()
	return writeFile(t, "doc.docx", docxtest.Build(t, docxtest.Document(
		docxtest.Para("", "Intro"),
		docxtest.Para("Heading2", "Heading 2: Scope"),
	)))
}

func reportDOCX(t *testing.T) string {
	t.Helper()
	return writeFile(t, "report.docx", docxtest.Build(t, docxtest.Document(
		docxtest.Para("Heading1", "Overview"),
		docxtest.Para("", "The budget is approved."),
		docxtest.Table(
			[]string{"Item", "Cost"},
			[]string{"Budget line", "100"},
		),
		docxtest.Para("Heading2", "Details"),
		docxtest.Para("", "More budget text."),
	)))
}

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func strPtr(s string) *string { return &s }
