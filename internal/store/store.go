// Package store provides SQLite persistence for memories, summaries and
// memory events, along with the rooms, threads, messages and settings the
// memory pipeline reads from.
package store

import (
	"context"
	"time"

	"github.com/rcliao/mazlo-memory/internal/model"
)

// CreateMemoryParams holds parameters for storing a new memory.
type CreateMemoryParams struct {
	OwnerID    string
	Scope      model.Scope
	RoomID     string
	ThreadID   string
	Kind       model.Kind
	Source     model.Source
	Content    string
	Importance float64
	Embedding  []float32
}

// UpdateMemoryParams holds a partial update. Nil fields are left unchanged.
// When Scope is set, RoomID and ThreadID replace the stored location.
// Setting RecencyScore also stamps last_used_at, the reference for decay.
type UpdateMemoryParams struct {
	ID           string
	Content      *string
	Scope        *model.Scope
	RoomID       string
	ThreadID     string
	Kind         *model.Kind
	Source       *model.Source
	Importance   *float64
	RecencyScore *float64
	Status       *model.Status
}

// VisibleParams selects the active memories visible from a location.
type VisibleParams struct {
	OwnerID  string
	RoomID   string
	ThreadID string
}

// UpsertSummaryParams identifies a summary slot and its new content.
type UpsertSummaryParams struct {
	OwnerID  string
	RoomID   string
	ThreadID string
	Level    int
	TimeFrom time.Time
	TimeTo   time.Time
	Content  string
}

// EventListParams filters memory events.
type EventListParams struct {
	OwnerID  string
	RoomID   string
	ThreadID string
	Type     model.EventType
	MemoryID string
	Limit    int
}

// CreateRoomParams holds parameters for a new room.
type CreateRoomParams struct {
	OwnerID     string
	Title       string
	Type        model.RoomType
	Description string
}

// AddMessageParams holds parameters for a new chat message.
type AddMessageParams struct {
	RoomID   string
	ThreadID string
	Role     model.Role
	Content  string
}

// MemoryStore persists memories, summaries and their audit events.
type MemoryStore interface {
	// CreateMemory validates and inserts a memory.
	CreateMemory(ctx context.Context, p CreateMemoryParams) (*model.Memory, error)

	// GetMemory returns a memory in any status.
	GetMemory(ctx context.Context, id string) (*model.Memory, error)

	// UpdateMemory applies a partial update and re-validates the result.
	UpdateMemory(ctx context.Context, p UpdateMemoryParams) (*model.Memory, error)

	// SoftDelete marks a memory deleted. Returns false if it already was.
	SoftDelete(ctx context.Context, id string) (bool, *model.Memory, error)

	// ListVisible returns active memories visible from a room/thread.
	ListVisible(ctx context.Context, p VisibleParams) ([]model.Memory, error)

	// ListGlobal returns the owner's active global memories.
	ListGlobal(ctx context.Context, ownerID string) ([]model.Memory, error)

	// UpsertSummary replaces the summary in its (owner, room, thread, level) slot.
	UpsertSummary(ctx context.Context, p UpsertSummaryParams) (*model.MemorySummary, error)

	// ListSummaries returns the room's summaries at level 2 and above plus
	// the level-1 summary of threadID.
	ListSummaries(ctx context.Context, ownerID, roomID, threadID string) ([]model.MemorySummary, error)

	// AddEvent appends a memory event.
	AddEvent(ctx context.Context, e model.MemoryEvent) (*model.MemoryEvent, error)

	// ListEvents returns events newest first.
	ListEvents(ctx context.Context, p EventListParams) ([]model.MemoryEvent, error)

	// Close closes the store.
	Close() error
}

// ChatStore reads and writes the conversation records memories derive from.
type ChatStore interface {
	GetMessage(ctx context.Context, id string) (*model.Message, error)
	// GetRecentMessages returns up to limit latest messages, oldest first.
	GetRecentMessages(ctx context.Context, roomID, threadID string, limit int) ([]model.Message, error)
	GetRoom(ctx context.Context, id string) (*model.Room, error)
	GetThread(ctx context.Context, id string) (*model.Thread, error)
	// ListThreadsByRoom returns up to limit threads, oldest first.
	ListThreadsByRoom(ctx context.Context, roomID string, limit int) ([]model.Thread, error)
	GetSettings(ctx context.Context, ownerID string) (model.Settings, error)
}

var (
	_ MemoryStore = (*SQLiteStore)(nil)
	_ ChatStore   = (*SQLiteStore)(nil)
)
