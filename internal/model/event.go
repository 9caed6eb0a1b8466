package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventType discriminates MemoryEvent payloads.
type EventType string

const (
	EventCandidate EventType = "candidate"
	EventWrite     EventType = "write"
	EventUpdate    EventType = "update"
	EventForget    EventType = "forget"
	EventPin       EventType = "pin"
	EventSummarize EventType = "summarize"
)

// EventPayload is implemented by one struct per event type.
type EventPayload interface {
	EventType() EventType
}

// CandidatePayload is a planner proposal that fell below the write threshold.
type CandidatePayload struct {
	Scope      Scope   `json:"scope"`
	Kind       Kind    `json:"kind"`
	Content    string  `json:"content"`
	Importance float64 `json:"importance"`
	Reason     string  `json:"reason"`
	SuggestPin bool    `json:"suggest_pin"`
}

// WritePayload records an automatic insert or merge.
type WritePayload struct {
	Content    string `json:"content"`
	Reason     string `json:"reason,omitempty"`
	SuggestPin bool   `json:"suggest_pin,omitempty"`
	Merged     bool   `json:"merged,omitempty"`
}

// UpdatePayload lists the fields a user edit changed.
type UpdatePayload struct {
	Content    *string  `json:"content,omitempty"`
	Scope      *Scope   `json:"scope,omitempty"`
	Kind       *Kind    `json:"kind,omitempty"`
	Importance *float64 `json:"importance,omitempty"`
}

// ForgetPayload keeps the content of a soft-deleted memory.
type ForgetPayload struct {
	Content string `json:"content"`
}

// PinPayload records a user pin.
type PinPayload struct {
	Content string `json:"content"`
}

// SummarizePayload records a summary regeneration.
type SummarizePayload struct {
	Level     int    `json:"level"`
	SummaryID string `json:"summary_id"`
}

func (CandidatePayload) EventType() EventType { return EventCandidate }
func (WritePayload) EventType() EventType     { return EventWrite }
func (UpdatePayload) EventType() EventType    { return EventUpdate }
func (ForgetPayload) EventType() EventType    { return EventForget }
func (PinPayload) EventType() EventType       { return EventPin }
func (SummarizePayload) EventType() EventType { return EventSummarize }

// MemoryEvent is an audit record of a memory operation.
type MemoryEvent struct {
	ID              string       `json:"id"`
	OwnerID         string       `json:"owner_id"`
	RoomID          string       `json:"room_id,omitempty"`
	ThreadID        string       `json:"thread_id,omitempty"`
	Type            EventType    `json:"type"`
	SourceMessageID string       `json:"source_message_id,omitempty"`
	MemoryID        string       `json:"memory_id,omitempty"`
	Payload         EventPayload `json:"payload"`
	CreatedAt       time.Time    `json:"created_at"`
}

// NewEvent builds an event whose Type always matches its payload.
func NewEvent(ownerID, roomID, threadID string, payload EventPayload) MemoryEvent {
	return MemoryEvent{
		OwnerID:  ownerID,
		RoomID:   roomID,
		ThreadID: threadID,
		Type:     payload.EventType(),
		Payload:  payload,
	}
}

// Candidate returns the candidate payload, or false for other event types.
func (e MemoryEvent) Candidate() (CandidatePayload, bool) {
	switch p := e.Payload.(type) {
	case CandidatePayload:
		return p, true
	case *CandidatePayload:
		return *p, true
	}
	return CandidatePayload{}, false
}

// DecodePayload decodes a stored JSON payload into the struct for t.
func DecodePayload(t EventType, raw []byte) (EventPayload, error) {
	var p EventPayload
	switch t {
	case EventCandidate:
		var v CandidatePayload
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", t, err)
		}
		p = v
	case EventWrite:
		var v WritePayload
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", t, err)
		}
		p = v
	case EventUpdate:
		var v UpdatePayload
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", t, err)
		}
		p = v
	case EventForget:
		var v ForgetPayload
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", t, err)
		}
		p = v
	case EventPin:
		var v PinPayload
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", t, err)
		}
		p = v
	case EventSummarize:
		var v SummarizePayload
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", t, err)
		}
		p = v
	default:
		return nil, fmt.Errorf("unknown event type %q", t)
	}
	return p, nil
}
