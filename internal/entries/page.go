package entries

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/fellnerd/dimetrics-mcp-server/internal/types"
)

// Page is the normalized pagination envelope.
type Page struct {
	Count       int     `json:"count"`
	TotalPages  int     `json:"total_pages"`
	CurrentPage int     `json:"current_page"`
	PageSize    *int    `json:"page_size"`
	HasNext     bool    `json:"has_next"`
	HasPrevious bool    `json:"has_previous"`
	NextURL     *string `json:"next_url"`
	PreviousURL *string `json:"previous_url"`
	// Results holds entries. It is empty for aggregated requests whose
	// rows arrived in the results field.
	Results []types.Entry `json:"results"`
	// Aggregations holds the backend's aggregation rows verbatim.
	Aggregations json.RawMessage `json:"aggregations,omitempty"`
}

// backendPage is the envelope as the backend sends it. Every field may be
// missing.
type backendPage struct {
	Count        int             `json:"count"`
	Next         *string         `json:"next"`
	Previous     *string         `json:"previous"`
	Results      json.RawMessage `json:"results"`
	Aggregations json.RawMessage `json:"aggregations"`
}

// NormalizePage converts a raw list response into a Page. pageSize and
// page are the values that were sent, nil when the backend default applied.
// A bare JSON array is accepted as a single unpaginated page.
//
// When aggregated is true the rows come from the backend's aggregations
// field and results still decode as entries. Without an aggregations field
// the results field carries the rows and Results is left empty.
func NormalizePage(data json.RawMessage, pageSize, page *int, aggregated bool) (Page, error) {
	raw, err := decodeBackendPage(data)
	if err != nil {
		return Page{}, err
	}
	if raw.Count < 0 {
		raw.Count = 0
	}

	p := Page{
		Count:       raw.Count,
		TotalPages:  totalPages(raw.Count, pageSize),
		CurrentPage: 1,
		PageSize:    pageSize,
		HasNext:     raw.Next != nil,
		HasPrevious: raw.Previous != nil,
		NextURL:     raw.Next,
		PreviousURL: raw.Previous,
		Results:     []types.Entry{},
	}
	if page != nil {
		p.CurrentPage = *page
	}

	if aggregated && isNull(raw.Aggregations) {
		if isNull(raw.Results) {
			p.Aggregations = json.RawMessage(`[]`)
		} else {
			p.Aggregations = raw.Results
		}
		return p, nil
	}

	if !isNull(raw.Results) {
		if err := types.DecodeJSON(raw.Results, &p.Results); err != nil {
			return Page{}, fmt.Errorf("decode list results: %w", err)
		}
		if p.Results == nil {
			p.Results = []types.Entry{}
		}
	}
	if !isNull(raw.Aggregations) {
		p.Aggregations = raw.Aggregations
	}
	return p, nil
}

func decodeBackendPage(data json.RawMessage) (backendPage, error) {
	var raw backendPage
	trimmed := bytes.TrimSpace(data)
	if isNull(trimmed) {
		return raw, nil
	}
	if trimmed[0] == '[' {
		var items []json.RawMessage
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return raw, fmt.Errorf("decode list response: %w", err)
		}
		raw.Count = len(items)
		raw.Results = json.RawMessage(trimmed)
		return raw, nil
	}
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return raw, fmt.Errorf("decode list response: %w", err)
	}
	return raw, nil
}

// totalPages is ceil(count/pageSize), at least 1. Without a page size the
// backend default is unknown and the answer is 1.
func totalPages(count int, pageSize *int) int {
	if pageSize == nil || *pageSize <= 0 {
		return 1
	}
	n := (count + *pageSize - 1) / *pageSize
	if n < 1 {
		return 1
	}
	return n
}

func isNull(data json.RawMessage) bool {
	trimmed := bytes.TrimSpace(data)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
