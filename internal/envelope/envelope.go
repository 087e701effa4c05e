// Package envelope defines the outbound unit a participant sends to the
// orchestrator and partner, its wire encoding and the payload contract that
// is checked before anything leaves the process.
package envelope

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Envelope is one outbound message. It is built for a single send and not
// retained afterwards.
type Envelope struct {
	MessageID         string
	DisplayText       string
	Payload           Payload
	SenderID          string
	ConversationEnded bool
}

// New wraps payload for senderID with the action's display text.
func New(senderID string, payload Payload) Envelope {
	return Envelope{
		MessageID:   uuid.NewString(),
		DisplayText: payload.Action().DisplayText(),
		Payload:     payload,
		SenderID:    senderID,
	}
}

// NewChat wraps a free-text chat line.
func NewChat(senderID, text string) Envelope {
	return Envelope{
		MessageID:   uuid.NewString(),
		DisplayText: text,
		Payload:     ChatPayload{},
		SenderID:    senderID,
	}
}

// Action reports which submission the envelope carries.
func (e Envelope) Action() Action {
	if e.Payload == nil {
		return ""
	}
	return e.Payload.Action()
}

type wireTaskData struct {
	Response Payload `json:"response"`
}

type wireEnvelope struct {
	Text        string        `json:"text"`
	TaskData    *wireTaskData `json:"task_data,omitempty"`
	ID          string        `json:"id"`
	EpisodeDone bool          `json:"episode_done"`
	MessageID   string        `json:"message_id,omitempty"`
}

// MarshalJSON renders the orchestrator wire form:
// {"text", "task_data": {"response": payload}, "id", "episode_done"}.
// Chat lines carry no task_data.
func (e Envelope) MarshalJSON() ([]byte, error) {
	if e.Payload == nil {
		return nil, errors.New("envelope: payload is required")
	}
	wire := wireEnvelope{
		Text:        e.DisplayText,
		ID:          e.SenderID,
		EpisodeDone: e.ConversationEnded,
		MessageID:   e.MessageID,
	}
	if e.Action() != ActionChat {
		wire.TaskData = &wireTaskData{Response: e.Payload}
	}
	return json.Marshal(wire)
}

// DecodeDealData parses the orchestrator's deal_data object.
func DecodeDealData(raw json.RawMessage) (DealPayload, error) {
	var p DealPayload
	if len(raw) == 0 {
		return p, errors.New("envelope: deal_data is empty")
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return p, fmt.Errorf("envelope: decode deal_data: %w", err)
	}
	if len(p.YouGet) == 0 || len(p.TheyGet) == 0 {
		return p, errors.New("envelope: deal_data needs issue2youget and issue2theyget")
	}
	return p, nil
}

// payloadMap converts a payload to the generic JSON value the schema
// validator expects.
func payloadMap(p Payload) (any, error) {
	encoded, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(encoded, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Summary renders a one-line description for logs.
func (e Envelope) Summary() string {
	text := strings.TrimSpace(e.DisplayText)
	if runes := []rune(text); len(runes) > 40 {
		text = string(runes[:37]) + "..."
	}
	return fmt.Sprintf("%s from %s (%q)", e.Action(), e.SenderID, text)
}
