// Package model defines the core memory data types.
package model

import (
	"fmt"
	"strings"
	"time"
)

// Scope controls where a memory is visible.
type Scope string

const (
	ScopeThread Scope = "thread"
	ScopeRoom   Scope = "room"
	ScopeGlobal Scope = "global"
	ScopeSystem Scope = "system"
)

// Kind classifies what a memory is about.
type Kind string

const (
	KindFact       Kind = "fact"
	KindPreference Kind = "preference"
	KindPlan       Kind = "plan"
	KindIdentity   Kind = "identity"
	KindProject    Kind = "project"
)

// Source records how a memory came to exist.
type Source string

const (
	SourceUserPin       Source = "user_pin"
	SourceUserEdit      Source = "user_edit"
	SourceAutoExtracted Source = "auto_extracted"
	SourceImported      Source = "imported"
)

// Status is the lifecycle state of a memory.
type Status string

const (
	StatusActive   Status = "active"
	StatusArchived Status = "archived"
	StatusDeleted  Status = "deleted"
)

// ValidScopes are the allowed memory scopes.
var ValidScopes = map[Scope]bool{
	ScopeThread: true,
	ScopeRoom:   true,
	ScopeGlobal: true,
	ScopeSystem: true,
}

// PlannerScopes are the scopes the planner may propose. System memories are
// administrative and never extracted from conversation.
var PlannerScopes = map[Scope]bool{
	ScopeThread: true,
	ScopeRoom:   true,
	ScopeGlobal: true,
}

// ValidKinds are the allowed memory kinds.
var ValidKinds = map[Kind]bool{
	KindFact:       true,
	KindPreference: true,
	KindPlan:       true,
	KindIdentity:   true,
	KindProject:    true,
}

// ValidSources are the allowed memory sources.
var ValidSources = map[Source]bool{
	SourceUserPin:       true,
	SourceUserEdit:      true,
	SourceAutoExtracted: true,
	SourceImported:      true,
}

// ValidStatuses are the allowed lifecycle states.
var ValidStatuses = map[Status]bool{
	StatusActive:   true,
	StatusArchived: true,
	StatusDeleted:  true,
}

// Memory represents a stored memory entry.
type Memory struct {
	ID           string     `json:"id"`
	OwnerID      string     `json:"owner_id"`
	Scope        Scope      `json:"scope"`
	RoomID       string     `json:"room_id,omitempty"`
	ThreadID     string     `json:"thread_id,omitempty"`
	Kind         Kind       `json:"kind"`
	Source       Source     `json:"source"`
	Content      string     `json:"content"`
	Importance   float64    `json:"importance"`
	RecencyScore float64    `json:"recency_score"`
	UsedCount    int        `json:"used_count"`
	Status       Status     `json:"status"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	LastUsedAt   *time.Time `json:"last_used_at,omitempty"`
	Embedding    []float32  `json:"embedding,omitempty"`
}

// Snippet renders the memory the way it is shown to the model.
func (m Memory) Snippet() string {
	return fmt.Sprintf("[%s/%s] %s", m.Scope, m.Kind, m.Content)
}

// Validate checks the memory's fields and scope/location consistency.
func (m Memory) Validate() error {
	if strings.TrimSpace(m.OwnerID) == "" {
		return fmt.Errorf("%w: owner is required", ErrValidation)
	}
	if strings.TrimSpace(m.Content) == "" {
		return fmt.Errorf("%w: content is required", ErrValidation)
	}
	if !ValidKinds[m.Kind] {
		return fmt.Errorf("%w: invalid kind %q", ErrValidation, m.Kind)
	}
	if m.Source != "" && !ValidSources[m.Source] {
		return fmt.Errorf("%w: invalid source %q", ErrValidation, m.Source)
	}
	if m.Status != "" && !ValidStatuses[m.Status] {
		return fmt.Errorf("%w: invalid status %q", ErrValidation, m.Status)
	}
	if err := ValidateImportance(m.Importance); err != nil {
		return err
	}
	return ValidateScope(m.Scope, m.RoomID, m.ThreadID)
}

// ValidateImportance rejects importance outside [0,1].
func ValidateImportance(v float64) error {
	if v < 0 || v > 1 {
		return fmt.Errorf("%w: importance %v outside [0,1]", ErrValidation, v)
	}
	return nil
}

// ValidateScope enforces which location ids a scope requires.
func ValidateScope(scope Scope, roomID, threadID string) error {
	switch scope {
	case ScopeThread:
		if threadID == "" || roomID == "" {
			return fmt.Errorf("%w: thread scope requires room and thread", ErrValidation)
		}
	case ScopeRoom:
		if roomID == "" {
			return fmt.Errorf("%w: room scope requires room", ErrValidation)
		}
		if threadID != "" {
			return fmt.Errorf("%w: room scope must not carry a thread", ErrValidation)
		}
	case ScopeGlobal, ScopeSystem:
		if roomID != "" || threadID != "" {
			return fmt.Errorf("%w: %s scope must not carry room or thread", ErrValidation, scope)
		}
	default:
		return fmt.Errorf("%w: invalid scope %q", ErrValidation, scope)
	}
	return nil
}

// Location narrows a scope to the ids it needs: thread scope keeps both,
// room scope drops the thread, global and system drop both.
func Location(scope Scope, roomID, threadID string) (string, string) {
	switch scope {
	case ScopeThread:
		return roomID, threadID
	case ScopeRoom:
		return roomID, ""
	default:
		return "", ""
	}
}

// Summary levels.
const (
	LevelThread = 1
	LevelRoom   = 2
)

// MemorySummary is a condensed description of a thread (level 1) or room
// (level 2). At most one exists per owner, room, thread and level.
type MemorySummary struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	RoomID    string    `json:"room_id"`
	ThreadID  string    `json:"thread_id,omitempty"`
	Level     int       `json:"level"`
	TimeFrom  time.Time `json:"time_from"`
	TimeTo    time.Time `json:"time_to"`
	Content   string    `json:"content"`
	Embedding []float32 `json:"embedding,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
