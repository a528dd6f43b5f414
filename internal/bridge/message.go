// Package bridge implements the host side of the PCP sync protocol: the
// host hydrates an embedded planning document over a message transport,
// pulls its live state on save and hands the result to a persister.
package bridge

import (
	"encoding/json"

	"github.com/dmitrijs2005/pcpboard/internal/plan"
)

type MessageType string

// Host to embedded.
const (
	TypeMode        MessageType = "PCP_MODE"
	TypeSetState    MessageType = "PCP_SET_STATE"
	TypeSetCoverage MessageType = "PCP_SET_COVERAGE"
	TypeGetState    MessageType = "PCP_GET_STATE"
)

// Embedded to host. TypeSetState is also broadcast by the document.
const (
	TypeIframeReady MessageType = "PCP_IFRAME_READY"
	TypeFullState   MessageType = "PCP_FULL_STATE"
	TypeCoverage    MessageType = "PCP_COVERAGE"
)

// stateVersion is the PCP_SET_STATE payload format understood by documents.
const stateVersion = 1

// Message is the envelope of every frame. ID is set on PCP_GET_STATE and
// echoed back on the matching PCP_FULL_STATE.
type Message struct {
	Type    MessageType     `json:"type"`
	ID      string          `json:"id,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type ModePayload struct {
	IsAdmin bool   `json:"isAdmin"`
	Session string `json:"session,omitempty"`
}

// State is the document's plan state, as hydrated and as captured.
type State struct {
	Version  int                        `json:"version,omitempty"`
	Weeks    map[string]json.RawMessage `json:"weeks,omitempty"`
	Comments map[string]json.RawMessage `json:"comments,omitempty"`
	Params   json.RawMessage            `json:"params,omitempty"`
	Notes    map[string]string          `json:"notes,omitempty"`
	Coverage json.RawMessage            `json:"coverage,omitempty"`
}

// hydratePayload is the PCP_SET_STATE sent on hydration. Every bucket is
// always present so the document can reset its state from it.
type hydratePayload struct {
	Version  int                        `json:"version"`
	Weeks    map[string]json.RawMessage `json:"weeks"`
	Comments map[string]json.RawMessage `json:"comments"`
	Params   json.RawMessage            `json:"params"`
	Notes    map[string]string          `json:"notes"`
}

// Snapshot converts a captured state into a save-all payload. Coverage is
// left to the caller, which merges it with cached values.
func (s *State) Snapshot() plan.Snapshot {
	return plan.Snapshot{
		Weeks:    s.Weeks,
		Comments: s.Comments,
		Params:   s.Params,
		Notes:    s.Notes,
	}
}

// coverageEnvelope matches ambient broadcasts, which carry coverage under
// payload.coverage.
type coverageEnvelope struct {
	Coverage json.RawMessage `json:"coverage"`
}

func newMessage(t MessageType, id string, payload any) (Message, error) {
	m := Message{Type: t, ID: id}
	if payload == nil {
		return m, nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return Message{}, err
	}
	m.Payload = raw
	return m, nil
}
