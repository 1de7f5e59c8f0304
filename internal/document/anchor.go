package document

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Container identifies where an anchored paragraph lives.
type Container string

const (
	ContainerBody  Container = "body"
	ContainerTable Container = "table"
)

// Anchor is the structural address of a paragraph.
//
// Body anchors carry only Paragraph, the position among top-level body
// paragraphs. Table anchors address paragraph Paragraph inside cell (Row, Col)
// of the Table-th top-level table in document order.
//
// Anchors are positional: a structural edit (a paragraph split or join) can
// shift every anchor after it. Re-search after such edits.
type Anchor struct {
	Container Container
	Table     int
	Row       int
	Col       int
	Paragraph int
}

// BodyAnchor returns the anchor of the n-th top-level body paragraph.
func BodyAnchor(paragraph int) Anchor {
	return Anchor{Container: ContainerBody, Paragraph: paragraph}
}

// TableAnchor returns the anchor of a paragraph inside a table cell.
func TableAnchor(table, row, col, paragraph int) Anchor {
	return Anchor{Container: ContainerTable, Table: table, Row: row, Col: col, Paragraph: paragraph}
}

// Validate reports whether the anchor is well formed.
func (a Anchor) Validate() error {
	switch a.Container {
	case ContainerBody:
		if a.Table != 0 || a.Row != 0 || a.Col != 0 {
			return fmt.Errorf("body anchor must not carry table coordinates")
		}
	case ContainerTable:
		if a.Table < 0 || a.Row < 0 || a.Col < 0 {
			return fmt.Errorf("table anchor indices must be non-negative")
		}
	default:
		return fmt.Errorf("unknown anchor container %q", a.Container)
	}
	if a.Paragraph < 0 {
		return fmt.Errorf("paragraph index must be non-negative")
	}
	return nil
}

// Key returns a compact map key unique per anchor.
func (a Anchor) Key() string {
	if a.Container == ContainerBody {
		return "b:" + strconv.Itoa(a.Paragraph)
	}
	return fmt.Sprintf("t:%d:%d:%d:%d", a.Table, a.Row, a.Col, a.Paragraph)
}

// String returns the JSON array form, e.g. ["body",3] or ["table",0,1,2,0].
func (a Anchor) String() string {
	if a.Container == ContainerBody {
		return fmt.Sprintf(`["body",%d]`, a.Paragraph)
	}
	return fmt.Sprintf(`["%s",%d,%d,%d,%d]`, a.Container, a.Table, a.Row, a.Col, a.Paragraph)
}

// MarshalJSON encodes the anchor as a JSON array.
func (a Anchor) MarshalJSON() ([]byte, error) {
	if a.Container == ContainerBody {
		return json.Marshal([]any{a.Container, a.Paragraph})
	}
	return json.Marshal([]any{a.Container, a.Table, a.Row, a.Col, a.Paragraph})
}

// UnmarshalJSON decodes the array form. Legacy 5-element body anchors with
// zero middle elements are accepted.
func (a *Anchor) UnmarshalJSON(data []byte) error {
	var raw []any
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("anchor must be a JSON array: %w", err)
	}
	parsed, err := anchorFromSlice(raw)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// ParseAnchor converts a loosely typed value into an Anchor. It accepts the
// []any produced by decoding tool arguments, a JSON string holding the array
// form, or an Anchor.
func ParseAnchor(v any) (Anchor, error) {
	switch t := v.(type) {
	case Anchor:
		return t, t.Validate()
	case *Anchor:
		if t == nil {
			return Anchor{}, fmt.Errorf("anchor is required")
		}
		return *t, t.Validate()
	case []any:
		return anchorFromSlice(t)
	case string:
		return ParseAnchorString(t)
	case nil:
		return Anchor{}, fmt.Errorf("anchor is required")
	default:
		return Anchor{}, fmt.Errorf("unsupported anchor type %T", v)
	}
}

// ParseAnchorString parses the JSON array form. A bare comma-separated form
// such as body,3 is also accepted for command-line use.
func ParseAnchorString(s string) (Anchor, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Anchor{}, fmt.Errorf("anchor is required")
	}
	if !strings.HasPrefix(s, "[") {
		parts := strings.Split(s, ",")
		raw := make([]any, len(parts))
		for i, p := range parts {
			p = strings.TrimSpace(p)
			if i == 0 {
				raw[i] = p
				continue
			}
			n, err := strconv.Atoi(p)
			if err != nil {
				return Anchor{}, fmt.Errorf("anchor index %q is not an integer", p)
			}
			raw[i] = float64(n)
		}
		return anchorFromSlice(raw)
	}
	var a Anchor
	if err := json.Unmarshal([]byte(s), &a); err != nil {
		return Anchor{}, err
	}
	return a, nil
}

func anchorFromSlice(raw []any) (Anchor, error) {
	if len(raw) == 0 {
		return Anchor{}, fmt.Errorf("anchor must not be empty")
	}
	name, ok := raw[0].(string)
	if !ok {
		return Anchor{}, fmt.Errorf("anchor container must be a string")
	}
	idx := make([]int, len(raw)-1)
	for i, v := range raw[1:] {
		n, err := anchorIndex(v)
		if err != nil {
			return Anchor{}, err
		}
		idx[i] = n
	}

	var a Anchor
	switch Container(name) {
	case ContainerBody:
		switch len(idx) {
		case 1:
			a = BodyAnchor(idx[0])
		case 4:
			if idx[0] != 0 || idx[1] != 0 || idx[2] != 0 {
				return Anchor{}, fmt.Errorf("body anchor must not carry table coordinates")
			}
			a = BodyAnchor(idx[3])
		default:
			return Anchor{}, fmt.Errorf("body anchor takes 1 index, got %d", len(idx))
		}
	case ContainerTable:
		if len(idx) != 4 {
			return Anchor{}, fmt.Errorf("table anchor takes 4 indices, got %d", len(idx))
		}
		a = TableAnchor(idx[0], idx[1], idx[2], idx[3])
	default:
		return Anchor{}, fmt.Errorf("unknown anchor container %q", name)
	}
	return a, a.Validate()
}

func anchorIndex(v any) (int, error) {
	switch n := v.(type) {
	case float64:
		if n != math.Trunc(n) || math.IsInf(n, 0) {
			return 0, fmt.Errorf("anchor index %v is not an integer", n)
		}
		if n < 0 {
			return 0, fmt.Errorf("anchor index %v is negative", n)
		}
		if n > math.MaxInt32 {
			return 0, fmt.Errorf("anchor index %v out of range", n)
		}
		return int(n), nil
	case int:
		if n < 0 {
			return 0, fmt.Errorf("anchor index %d is negative", n)
		}
		if n > math.MaxInt32 {
			return 0, fmt.Errorf("anchor index %d out of range", n)
		}
		return n, nil
	case json.Number:
		i, err := n.Int64()
		if err != nil || i < 0 {
			return 0, fmt.Errorf("anchor index %s is not a non-negative integer", n)
		}
		if i > math.MaxInt32 {
			return 0, fmt.Errorf("anchor index %s out of range", n)
		}
		return int(i), nil
	default:
		return 0, fmt.Errorf("anchor index must be a number, got %T", v)
	}
}
