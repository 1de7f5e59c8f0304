package ops

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/yswa-var/DOCX-agent/internal/config"
	"github.com/yswa-var/DOCX-agent/internal/document"
	"github.com/yswa-var/DOCX-agent/internal/errors"
	"github.com/yswa-var/DOCX-agent/internal/index"
)

// ExportIndexInput contains parameters for the ExportIndex operation.
type ExportIndexInput struct {
	Document string `json:"document,omitempty"`
	Path     string `json:"path,omitempty"` // default: ~/.docxagent/exports/<document>-<timestamp>.jsonl
}

// ExportIndexOutput contains the result of the ExportIndex operation.
type ExportIndexOutput struct {
	Path       string `json:"path"`
	Document   string `json:"document"`
	Count      int    `json:"count"`
	ExportedAt int64  `json:"exported_at"`
}

// ExportIndex writes the paragraph index of a document to a JSONL file: a
// header line, then one record per paragraph.
func ExportIndex(ctx context.Context, docs *index.Registry, cfg *config.Config, input ExportIndexInput) (*ExportIndexOutput, error) {
	now := time.Now()

	idx, err := openIndex(ctx, docs, cfg, input.Document)
	if err != nil {
		return nil, err
	}

	exportPath := input.Path
	if exportPath == "" {
		exportPath, err = defaultExportPath(idx.Path(), now)
		if err != nil {
			return nil, err
		}
	}
	// Default paths are validated too: they embed the document name.
	if err := ValidateExportPath(exportPath, cfg); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(exportPath), 0700); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to create export directory: %w", err))
	}

	count := 0
	err = document.WriteAtomic(exportPath, func(w io.Writer) error {
		n, err := idx.Export(ctx, w, now)
		count = n
		return err
	})
	if err != nil {
		if _, ok := errors.As(err); ok {
			return nil, err
		}
		return nil, errors.NewInternal(fmt.Errorf("failed to write export: %w", err))
	}

	return &ExportIndexOutput{
		Path:       exportPath,
		Document:   idx.Path(),
		Count:      count,
		ExportedAt: now.Unix(),
	}, nil
}

// defaultExportPath builds ~/.docxagent/exports/<document>-<timestamp>.jsonl.
func defaultExportPath(docPath string, now time.Time) (string, error) {
	dir, err := DefaultExportsDir()
	if err != nil {
		return "", err
	}
	base := filepath.Base(docPath)
	name := SanitizeForFilename(strings.TrimSuffix(base, filepath.Ext(base)))
	filename := fmt.Sprintf("%s-%s%s", name, now.Format("2006-01-02T150405"), ExportExt)
	return filepath.Join(dir, filename), nil
}
