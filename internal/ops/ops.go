// Package ops implements the public operations of the document agent. The
// MCP server and the CLI are thin callers of this package.
package ops

import (
	"context"
	"strings"

	"github.com/yswa-var/DOCX-agent/internal/config"
	"github.com/yswa-var/DOCX-agent/internal/document"
	"github.com/yswa-var/DOCX-agent/internal/errors"
	"github.com/yswa-var/DOCX-agent/internal/index"
)

// DocumentPath picks the document an operation targets: the explicit path,
// else the configured default.
func DocumentPath(cfg *config.Config, path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" && cfg != nil {
		path = cfg.DocumentPath
	}
	if path == "" {
		return "", errors.NewInvalidRequest("document is required (set document_path in config or pass document)")
	}
	return path, nil
}

func openIndex(ctx context.Context, docs *index.Registry, cfg *config.Config, path string) (*index.Index, error) {
	p, err := DocumentPath(cfg, path)
	if err != nil {
		return nil, err
	}
	return docs.Open(ctx, p)
}

func requireAnchor(a *document.Anchor) (document.Anchor, error) {
	if a == nil {
		return document.Anchor{}, errors.NewInvalidRequest("anchor is required")
	}
	if err := a.Validate(); err != nil {
		return document.Anchor{}, errors.NewInvalidRequest(err.Error())
	}
	return *a, nil
}
