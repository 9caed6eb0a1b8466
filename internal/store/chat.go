package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/rcliao/mazlo-memory/internal/model"
)

func (s *SQLiteStore) CreateRoom(ctx context.Context, p CreateRoomParams) (*model.Room, error) {
	if p.OwnerID == "" || strings.TrimSpace(p.Title) == "" {
		return nil, fmt.Errorf("%w: room requires owner and title", model.ErrValidation)
	}
	if p.Type == "" {
		p.Type = model.RoomDM
	}
	if !model.ValidRoomTypes[p.Type] {
		return nil, fmt.Errorf("%w: invalid room type %q", model.ErrValidation, p.Type)
	}

	r := model.Room{
		ID:          s.newID(),
		OwnerID:     p.OwnerID,
		Title:       strings.TrimSpace(p.Title),
		Type:        p.Type,
		Description: p.Description,
		CreatedAt:   s.now(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO rooms (id, owner_id, title, type, description, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		r.ID, r.OwnerID, r.Title, r.Type, r.Description, formatTime(r.CreatedAt))
	if err != nil {
		return nil, fmt.Errorf("insert room: %w", err)
	}
	return &r, nil
}

func (s *SQLiteStore) GetRoom(ctx context.Context, id string) (*model.Room, error) {
	var r model.Room
	var createdAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, owner_id, title, type, description, created_at FROM rooms WHERE id = ?`, id).
		Scan(&r.ID, &r.OwnerID, &r.Title, &r.Type, &r.Description, &createdAt)
	if err != nil {
		return nil, notFound(err, "room %s", id)
	}
	r.CreatedAt = parseTime(createdAt)
	return &r, nil
}

// ListRooms returns the owner's rooms, newest first.
func (s *SQLiteStore) ListRooms(ctx context.Context, ownerID string) ([]model.Room, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, owner_id, title, type, description, created_at FROM rooms
		 WHERE owner_id = ? ORDER BY created_at DESC`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rooms []model.Room
	for rows.Next() {
		var r model.Room
		var createdAt string
		if err := rows.Scan(&r.ID, &r.OwnerID, &r.Title, &r.Type, &r.Description, &createdAt); err != nil {
			return nil, err
		}
		r.CreatedAt = parseTime(createdAt)
		rooms = append(rooms, r)
	}
	return rooms, rows.Err()
}

func (s *SQLiteStore) CreateThread(ctx context.Context, roomID, title string) (*model.Thread, error) {
	if _, err := s.GetRoom(ctx, roomID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(title) == "" {
		return nil, fmt.Errorf("%w: thread title is required", model.ErrValidation)
	}

	t := model.Thread{ID: s.newID(), RoomID: roomID, Title: strings.TrimSpace(title), CreatedAt: s.now()}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO threads (id, room_id, title, created_at) VALUES (?, ?, ?, ?)`,
		t.ID, t.RoomID, t.Title, formatTime(t.CreatedAt))
	if err != nil {
		return nil, fmt.Errorf("insert thread: %w", err)
	}
	return &t, nil
}

func (s *SQLiteStore) GetThread(ctx context.Context, id string) (*model.Thread, error) {
	var t model.Thread
	var createdAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, room_id, title, created_at FROM threads WHERE id = ?`, id).
		Scan(&t.ID, &t.RoomID, &t.Title, &createdAt)
	if err != nil {
		return nil, notFound(err, "thread %s", id)
	}
	t.CreatedAt = parseTime(createdAt)
	return &t, nil
}

func (s *SQLiteStore) ListThreadsByRoom(ctx context.Context, roomID string, limit int) ([]model.Thread, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, room_id, title, created_at FROM threads
		 WHERE room_id = ? ORDER BY created_at ASC, id ASC LIMIT ?`, roomID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var threads []model.Thread
	for rows.Next() {
		var t model.Thread
		var createdAt string
		if err := rows.Scan(&t.ID, &t.RoomID, &t.Title, &createdAt); err != nil {
			return nil, err
		}
		t.CreatedAt = parseTime(createdAt)
		threads = append(threads, t)
	}
	return threads, rows.Err()
}

// AddMessage persists a chat message. The thread, if given, must belong to
// the room.
func (s *SQLiteStore) AddMessage(ctx context.Context, p AddMessageParams) (*model.Message, error) {
	if strings.TrimSpace(p.Content) == "" {
		return nil, fmt.Errorf("%w: message content is required", model.ErrValidation)
	}
	if p.Role == "" {
		p.Role = model.RoleUser
	}
	if _, err := s.GetRoom(ctx, p.RoomID); err != nil {
		return nil, err
	}
	if p.ThreadID != "" {
		t, err := s.GetThread(ctx, p.ThreadID)
		if err != nil {
			return nil, err
		}
		if t.RoomID != p.RoomID {
			return nil, fmt.Errorf("%w: thread %s is not in room %s", model.ErrValidation, p.ThreadID, p.RoomID)
		}
	}

	m := model.Message{
		ID:        s.newID(),
		RoomID:    p.RoomID,
		ThreadID:  p.ThreadID,
		Role:      p.Role,
		Content:   p.Content,
		CreatedAt: s.now(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (id, room_id, thread_id, role, content, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		m.ID, m.RoomID, m.ThreadID, m.Role, m.Content, formatTime(m.CreatedAt))
	if err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}
	return &m, nil
}

func (s *SQLiteStore) GetMessage(ctx context.Context, id string) (*model.Message, error) {
	var m model.Message
	var createdAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, room_id, thread_id, role, content, created_at FROM messages WHERE id = ?`, id).
		Scan(&m.ID, &m.RoomID, &m.ThreadID, &m.Role, &m.Content, &createdAt)
	if err != nil {
		return nil, notFound(err, "message %s", id)
	}
	m.CreatedAt = parseTime(createdAt)
	return &m, nil
}

// GetRecentMessages returns the latest messages of a room's main
// conversation (threadID empty) or of one thread, oldest first.
func (s *SQLiteStore) GetRecentMessages(ctx context.Context, roomID, threadID string, limit int) ([]model.Message, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, room_id, thread_id, role, content, created_at FROM messages
		 WHERE room_id = ? AND thread_id = ?
		 ORDER BY created_at DESC, id DESC LIMIT ?`, roomID, threadID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var msgs []model.Message
	for rows.Next() {
		var m model.Message
		var createdAt string
		if err := rows.Scan(&m.ID, &m.RoomID, &m.ThreadID, &m.Role, &m.Content, &createdAt); err != nil {
			return nil, err
		}
		m.CreatedAt = parseTime(createdAt)
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

// GetMessagesByID returns the requested messages that exist, in the given order.
func (s *SQLiteStore) GetMessagesByID(ctx context.Context, ids []string) ([]model.Message, error) {
	var out []model.Message
	for _, id := range ids {
		m, err := s.GetMessage(ctx, id)
		if errors.Is(err, model.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, nil
}

func (s *SQLiteStore) GetSettings(ctx context.Context, ownerID string) (model.Settings, error) {
	st := model.DefaultSettings(ownerID)
	var enabled, suggested int
	err := s.db.QueryRowContext(ctx,
		`SELECT memory_enabled, show_suggested_memories FROM settings WHERE owner_id = ?`, ownerID).
		Scan(&enabled, &suggested)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return st, nil
		}
		return st, fmt.Errorf("get settings: %w", err)
	}
	st.MemoryEnabled = enabled != 0
	st.ShowSuggestedMemories = suggested != 0
	return st, nil
}

// SaveSettings stores the owner's memory preferences.
func (s *SQLiteStore) SaveSettings(ctx context.Context, st model.Settings) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO settings (owner_id, memory_enabled, show_suggested_memories) VALUES (?, ?, ?)
		 ON CONFLICT(owner_id) DO UPDATE SET
		   memory_enabled = excluded.memory_enabled,
		   show_suggested_memories = excluded.show_suggested_memories`,
		st.OwnerID, boolInt(st.MemoryEnabled), boolInt(st.ShowSuggestedMemories))
	if err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
