package event

import (
	"bytes"
	"encoding/json"
)

// Record is one entry of the events API list. Both fields are passed through
// untouched; only the identifier is inspected, for grouping.
type Record struct {
	Identifier  json.RawMessage `json:"Identifier"`
	ParentEvent json.RawMessage `json:"ParentEvent"`
}

// Key returns the canonical text of the identifier. Records without an
// identifier all share the "null" key.
func (r Record) Key() string {
	if len(r.Identifier) == 0 {
		return "null"
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, r.Identifier); err != nil {
		return string(r.Identifier)
	}
	return buf.String()
}

// Page is the list-events response body.
type Page struct {
	Data         []Record `json:"Data"`
	TotalRecords int      `json:"TotalRecords"`
}
