// Package plan holds the payload types exchanged between the HTTP API, the
// plan service and the bridge. Week, comment, params and coverage payloads
// are opaque JSON owned by the planning document.
package plan

import (
	"encoding/json"
	"errors"
)

// ErrPartialSave wraps the per-bucket failures of a save-all.
var ErrPartialSave = errors.New("save incomplete")

// Bucket names one independently persisted data category.
type Bucket string

const (
	BucketWeeks    Bucket = "weeks"
	BucketComments Bucket = "comments"
	BucketParams   Bucket = "params"
	BucketNotes    Bucket = "notes"
	BucketCoverage Bucket = "coverage"
)

// WeekData is one row of a weekly bucket.
type WeekData struct {
	WeekKey string          `json:"weekKey"`
	Data    json.RawMessage `json:"data"`
}

// Snapshot is the save-all payload. A nil map or empty raw message means the
// bucket is absent and must be left untouched.
type Snapshot struct {
	Weeks    map[string]json.RawMessage `json:"weeks,omitempty"`
	Comments map[string]json.RawMessage `json:"comments,omitempty"`
	Params   json.RawMessage            `json:"params,omitempty"`
	Notes    map[string]string          `json:"notes,omitempty"`
	Coverage json.RawMessage            `json:"coverage,omitempty"`
}

// FullState is the consolidated read model served to the host page.
type FullState struct {
	Weeks         map[string]json.RawMessage `json:"weeks"`
	Params        json.RawMessage            `json:"params"`
	Coverage      json.RawMessage            `json:"coverage"`
	Comments      map[string]json.RawMessage `json:"comments"`
	Notes         map[string]string          `json:"notes"`
	ExpectedWeeks []string                   `json:"expectedWeeks"`
}

// Present reports whether raw carries a value other than JSON null.
func Present(raw json.RawMessage) bool {
	return len(raw) > 0 && string(raw) != "null"
}

// NullIfEmpty returns JSON null for an absent payload so responses always
// carry the key.
func NullIfEmpty(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 {
		return json.RawMessage("null")
	}
	return raw
}
