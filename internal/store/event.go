package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rcliao/mazlo-memory/internal/model"
)

const eventColumns = `id, owner_id, room_id, thread_id, type, source_message_id, memory_id, payload, created_at`

func (s *SQLiteStore) AddEvent(ctx context.Context, e model.MemoryEvent) (*model.MemoryEvent, error) {
	if e.Payload == nil {
		return nil, fmt.Errorf("%w: event payload is required", model.ErrValidation)
	}
	if e.Type != e.Payload.EventType() {
		return nil, fmt.Errorf("%w: event type %q does not match payload %q",
			model.ErrValidation, e.Type, e.Payload.EventType())
	}
	payload, err := json.Marshal(e.Payload)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}

	e.ID = s.newID()
	e.CreatedAt = s.now()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO memory_events (`+eventColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.OwnerID, e.RoomID, e.ThreadID, e.Type, e.SourceMessageID, e.MemoryID,
		string(payload), formatTime(e.CreatedAt))
	if err != nil {
		return nil, fmt.Errorf("insert event: %w", err)
	}
	return &e, nil
}

// GetEvent returns a single event.
func (s *SQLiteStore) GetEvent(ctx context.Context, id string) (*model.MemoryEvent, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM memory_events WHERE id = ?`, id)
	e, err := scanEvent(row)
	if err != nil {
		return nil, notFound(err, "event %s", id)
	}
	return &e, nil
}

// DeleteEvent removes an event. Only candidate events are ever deleted.
func (s *SQLiteStore) DeleteEvent(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM memory_events WHERE id = ? AND type = ?`, id, model.EventCandidate)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: candidate event %s", model.ErrNotFound, id)
	}
	return nil
}

func (s *SQLiteStore) ListEvents(ctx context.Context, p EventListParams) ([]model.MemoryEvent, error) {
	limit := p.Limit
	if limit <= 0 {
		limit = 20
	}

	where := []string{"owner_id = ?"}
	args := []any{p.OwnerID}
	if p.RoomID != "" {
		where = append(where, "room_id = ?")
		args = append(args, p.RoomID)
	}
	if p.ThreadID != "" {
		where = append(where, "thread_id = ?")
		args = append(args, p.ThreadID)
	}
	if p.Type != "" {
		where = append(where, "type = ?")
		args = append(args, p.Type)
	}
	if p.MemoryID != "" {
		where = append(where, "memory_id = ?")
		args = append(args, p.MemoryID)
	}
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+eventColumns+` FROM memory_events
		 WHERE `+strings.Join(where, " AND ")+`
		 ORDER BY created_at DESC, id DESC LIMIT ?`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []model.MemoryEvent
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func scanEvent(row scanner) (model.MemoryEvent, error) {
	var e model.MemoryEvent
	var payload, createdAt string

	err := row.Scan(&e.ID, &e.OwnerID, &e.RoomID, &e.ThreadID, &e.Type,
		&e.SourceMessageID, &e.MemoryID, &payload, &createdAt)
	if err != nil {
		return e, err
	}
	e.CreatedAt = parseTime(createdAt)
	e.Payload, err = model.DecodePayload(e.Type, []byte(payload))
	return e, err
}

// notFound maps sql.ErrNoRows to model.ErrNotFound and wraps anything else.
func notFound(err error, format string, args ...any) error {
	what := fmt.Sprintf(format, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", model.ErrNotFound, what)
	}
	return fmt.Errorf("get %s: %w", what, err)
}
