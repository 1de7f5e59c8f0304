package index

import (
	"context"
	"encoding/json"
	"io"
	"time"

	"github.com/yswa-var/DOCX-agent/internal/errors"
)

// ExportSchemaVersion is the version of the JSONL index export layout.
const ExportSchemaVersion = "1.0"

// ExportHeader is the first line of an index export.
type ExportHeader struct {
	DocxIndex     bool   `json:"_docx_index"`
	SchemaVersion string `json:"schema_version"`
	ExportedAt    int64  `json:"exported_at"`
	Document      string `json:"document"`
	Fingerprint   string `json:"fingerprint"`
}

// Export writes a header line followed by one JSON record per paragraph.
func (x *Index) Export(ctx context.Context, w io.Writer, now time.Time) (int, error) {
	records, err := x.GetAllParagraphs(ctx)
	if err != nil {
		return 0, err
	}

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	header := ExportHeader{
		DocxIndex:     true,
		SchemaVersion: ExportSchemaVersion,
		ExportedAt:    now.Unix(),
		Document:      x.path,
		Fingerprint:   x.Fingerprint(),
	}
	if err := enc.Encode(header); err != nil {
		return 0, errors.NewInternal(err)
	}

	for i, r := range records {
		if i%256 == 0 {
			if err := ctx.Err(); err != nil {
				return 0, errors.NewCancelled("export")
			}
		}
		if err := enc.Encode(r); err != nil {
			return 0, errors.NewInternal(err)
		}
	}
	return len(records), nil
}
