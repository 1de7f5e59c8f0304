package document

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAnchor_JSONRoundTrip(t *testing.T) {
	tests := []struct {
		anchor Anchor
		want   string
	}{
		{BodyAnchor(3), `["body",3]`},
		{TableAnchor(0, 1, 2, 0), `["table",0,1,2,0]`},
	}
	for _, tt := range tests {
		data, err := json.Marshal(tt.anchor)
		require.NoError(t, err)
		require.JSONEq(t, tt.want, string(data))
		require.Equal(t, tt.want, tt.anchor.String())

		var got Anchor
		require.NoError(t, json.Unmarshal(data, &got))
		require.Equal(t, tt.anchor, got)
	}
}

func TestParseAnchor(t *testing.T) {
	tests := []struct {
		name    string
		in      any
		want    Anchor
		wantErr bool
	}{
		{"body slice", []any{"body", float64(2)}, BodyAnchor(2), false},
		{"table slice", []any{"table", float64(1), float64(0), float64(3), float64(1)}, TableAnchor(1, 0, 3, 1), false},
		{"legacy body form", []any{"body", float64(0), float64(0), float64(0), float64(7)}, BodyAnchor(7), false},
		{"legacy body with coords", []any{"body", float64(1), float64(0), float64(0), float64(7)}, Anchor{}, true},
		{"json string", `["table",0,0,0,0]`, TableAnchor(0, 0, 0, 0), false},
		{"bare string", "body, 4", BodyAnchor(4), false},
		{"integral float", []any{"body", 1.0}, BodyAnchor(1), false},
		{"fractional", []any{"body", 1.5}, Anchor{}, true},
		{"negative", []any{"body", float64(-1)}, Anchor{}, true},
		{"huge float", []any{"body", 1e300}, Anchor{}, true},
		{"above int32", []any{"table", float64(0), float64(1 << 31), float64(0), float64(0)}, Anchor{}, true},
		{"huge json string", `["body",1e300]`, Anchor{}, true},
		{"max int32", []any{"body", float64(math.MaxInt32)}, BodyAnchor(math.MaxInt32), false},
		{"unknown container", []any{"header", float64(0)}, Anchor{}, true},
		{"short table", []any{"table", float64(0), float64(0)}, Anchor{}, true},
		{"empty", []any{}, Anchor{}, true},
		{"nil", nil, Anchor{}, true},
		{"number container", []any{float64(1), float64(0)}, Anchor{}, true},
		{"wrong type", 42, Anchor{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAnchor(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestAnchor_Key(t *testing.T) {
	if BodyAnchor(0).Key() == TableAnchor(0, 0, 0, 0).Key() {
		t.Error("body and table anchors must not share a key")
	}
	if TableAnchor(0, 1, 0, 0).Key() == TableAnchor(0, 0, 1, 0).Key() {
		t.Error("row and column must be distinguished")
	}
}

func TestAnchor_Validate(t *testing.T) {
	if err := (Anchor{Container: ContainerBody, Row: 1}).Validate(); err == nil {
		t.Error("body anchor with a row should be invalid")
	}
	if err := (Anchor{Container: "footer"}).Validate(); err == nil {
		t.Error("unknown container should be invalid")
	}
	if err := TableAnchor(0, 0, 0, -1).Validate(); err == nil {
		t.Error("negative paragraph should be invalid")
	}
}
