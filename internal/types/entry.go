// Package types holds the record shapes shared by the orchestrator, the
// catalog passthroughs and the tool surface.
package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// System fields assigned by the backend on every entry.
const (
	FieldObjectID    = "object_id"
	FieldDateCreated = "date_created"
	FieldDateUpdated = "date_updated"
)

// Entry is one record of a resource. Field names are defined by the
// resource's attributes; numbers are kept as json.Number so values
// round-trip exactly.
type Entry map[string]any

// ID returns the entry identity: object_id if present, else id.
func (e Entry) ID() string {
	for _, key := range []string{FieldObjectID, "id"} {
		if v, ok := e[key]; ok && v != nil {
			return fmt.Sprint(v)
		}
	}
	return ""
}

// DecodeEntry decodes a single JSON object.
func DecodeEntry(data []byte) (Entry, error) {
	var e Entry
	if err := DecodeJSON(data, &e); err != nil {
		return nil, err
	}
	if e == nil {
		e = Entry{}
	}
	return e, nil
}

// DecodeJSON decodes data into v preserving numbers and rejecting trailing
// content.
func DecodeJSON(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if _, err := dec.Token(); err != io.EOF {
		return fmt.Errorf("unexpected data after JSON value")
	}
	return nil
}
