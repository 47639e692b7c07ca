package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fellnerd/dimetrics-mcp-server/internal/entries"
	"github.com/fellnerd/dimetrics-mcp-server/internal/types"
)

// ---------------------------------------------------------------------------
// formatValue / formatCell
// ---------------------------------------------------------------------------

func TestFormatValue(t *testing.T) {
	tests := []struct {
		name  string
		input interface{}
		want  string
	}{
		{name: "nil", input: nil, want: "-"},
		{name: "string", input: "dauerlauf", want: "dauerlauf"},
		{name: "number", input: json.Number("27.50"), want: "27.50"},
		{name: "bool", input: true, want: "true"},
		{name: "object", input: map[string]interface{}{"a": "b"}, want: `{"a":"b"}`},
		{name: "list", input: []interface{}{"x", "y"}, want: `["x","y"]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, formatValue(tt.input))
		})
	}
}

func TestFormatCell_Truncates(t *testing.T) {
	long := strings.Repeat("x", 100)
	got := formatCell(long)
	assert.Len(t, got, maxCellWidth)
	assert.True(t, strings.HasSuffix(got, "..."))

	assert.Equal(t, "short", formatCell("short"))
}

// ---------------------------------------------------------------------------
// columns
// ---------------------------------------------------------------------------

func TestColumns(t *testing.T) {
	rows := []types.Entry{
		{"object_id": "a", "name": "x", "date_created": "2025-01-01"},
		{"object_id": "b", "amount": 1, "date_updated": "2025-01-02"},
	}
	assert.Equal(t, []string{"amount", "name"}, columns(rows, true))
	assert.Equal(t, []string{"amount", "date_created", "date_updated", "name", "object_id"}, columns(rows, false))
}

// ---------------------------------------------------------------------------
// outputResult
// ---------------------------------------------------------------------------

func TestOutputJSON(t *testing.T) {
	var buf bytes.Buffer
	res := &entries.DeleteResult{Resource: "orders", ID: "abc", Deleted: true}
	require.NoError(t, outputResult(&buf, res, "json"))
	assert.JSONEq(t, `{"resource_name":"orders","entry_id":"abc","deleted":true}`, buf.String())
	assert.Contains(t, buf.String(), "\n  ", "json output is indented")
}

func TestOutputYAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, outputResult(&buf, HealthResult{APIURL: "https://example.test/api", Reachable: true}, "yaml"))
	assert.Contains(t, buf.String(), "api_url: https://example.test/api")
	assert.Contains(t, buf.String(), "reachable: true")
}

func TestOutputTable(t *testing.T) {
	count := 2
	tests := []struct {
		name     string
		input    interface{}
		contains []string
		excludes []string
	}{
		{
			name: "list_result",
			input: &entries.ListResult{
				Page: entries.Page{
					Count: count, TotalPages: 1, CurrentPage: 1,
					Results: []types.Entry{
						{"object_id": "a", "name": "Canva Pro", "date_created": "2025-01-01"},
						{"object_id": "b", "name": "Figma"},
					},
				},
				Resource: "orders",
			},
			contains: []string{"RESOURCE", "orders", "TOTAL", "PAGE", "1/1", "ID", "NAME", "Canva Pro", "Figma"},
			excludes: []string{"DATE_CREATED"},
		},
		{
			name: "list_result_empty",
			input: &entries.ListResult{
				Page:     entries.Page{TotalPages: 1, Results: []types.Entry{}},
				Resource: "orders",
			},
			contains: []string{"(none)"},
		},
		{
			name: "aggregated_non_tabular",
			input: &entries.ListResult{
				Page:       entries.Page{TotalPages: 1, Aggregations: json.RawMessage(`{"sum":{"amount":3}}`)},
				Resource:   "orders",
				Aggregated: true,
			},
			contains: []string{"AGGREGATIONS", `{"sum":{"amount":3}}`},
		},
		{
			name:     "entry",
			input:    types.Entry{"object_id": "a", "state": "ok", "note": nil},
			contains: []string{"FIELD", "VALUE", "object_id", "state", "ok", "note", "-"},
		},
		{
			name: "update_result",
			input: &entries.UpdateResult{
				Entry:         types.Entry{"object_id": "a", "state": "completed"},
				ChangedFields: []string{"amount", "state"},
			},
			contains: []string{"UPDATED:", "amount, state", "completed"},
		},
		{
			name:     "delete_result",
			input:    &entries.DeleteResult{Resource: "orders", ID: "abc", Deleted: true},
			contains: []string{"DELETED:", "orders/abc"},
		},
		{
			name:     "health_unreachable",
			input:    HealthResult{APIURL: "https://example.test/api", Error: "connection refused"},
			contains: []string{"UNREACHABLE", "connection refused", "AUTHENTICATED:"},
		},
		{
			name:     "unknown_type_falls_back_to_json",
			input:    map[string]string{"hello": "world"},
			contains: []string{`"hello": "world"`},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, outputResult(&buf, tt.input, "table"))
			for _, s := range tt.contains {
				assert.Contains(t, buf.String(), s)
			}
			for _, s := range tt.excludes {
				assert.NotContains(t, buf.String(), s)
			}
		})
	}
}
