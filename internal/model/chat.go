package model

import "time"

// Role is the author of a chat message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Label is the single-letter tag used in transcripts fed to the model.
func (r Role) Label() string {
	switch r {
	case RoleUser:
		return "U"
	case RoleAssistant:
		return "M"
	default:
		return "S"
	}
}

// RoomType categorizes a room.
type RoomType string

const (
	RoomDM      RoomType = "dm"
	RoomGroup   RoomType = "group"
	RoomProject RoomType = "project"
	RoomGlobal  RoomType = "global"
)

// ValidRoomTypes are the allowed room types.
var ValidRoomTypes = map[RoomType]bool{
	RoomDM:      true,
	RoomGroup:   true,
	RoomProject: true,
	RoomGlobal:  true,
}

// Room is a conversation space owned by a user.
type Room struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"owner_id"`
	Title       string    `json:"title"`
	Type        RoomType  `json:"type"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Thread is a sub-conversation inside a room.
type Thread struct {
	ID        string    `json:"id"`
	RoomID    string    `json:"room_id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
}

// Message is a single chat turn.
type Message struct {
	ID        string    `json:"id"`
	RoomID    string    `json:"room_id"`
	ThreadID  string    `json:"thread_id,omitempty"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Settings are per-owner memory preferences.
type Settings struct {
	OwnerID               string `json:"owner_id"`
	MemoryEnabled         bool   `json:"memory_enabled"`
	ShowSuggestedMemories bool   `json:"show_suggested_memories"`
}

// DefaultSettings applies when an owner has never saved settings.
func DefaultSettings(ownerID string) Settings {
	return Settings{OwnerID: ownerID, MemoryEnabled: true, ShowSuggestedMemories: true}
}
