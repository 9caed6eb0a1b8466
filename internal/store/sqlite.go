package store

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"github.com/rcliao/mazlo-memory/internal/model"
)

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000Z07:00"

// SQLiteStore implements MemoryStore and ChatStore using SQLite.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteStore opens or creates a SQLite database at the given path.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=foreign_keys(on)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// Intake workers and the reply path share one handle; a single
	// connection serializes their writes.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{
		db:  db,
		now: func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
	}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) newID() string {
	return ulid.Make().String()
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS rooms (
		id          TEXT PRIMARY KEY,
		owner_id    TEXT NOT NULL,
		title       TEXT NOT NULL,
		type        TEXT NOT NULL DEFAULT 'dm',
		description TEXT NOT NULL DEFAULT '',
		created_at  TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_rooms_owner ON rooms(owner_id);

	CREATE TABLE IF NOT EXISTS threads (
		id         TEXT PRIMARY KEY,
		room_id    TEXT NOT NULL REFERENCES rooms(id),
		title      TEXT NOT NULL,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_threads_room ON threads(room_id, created_at);

	CREATE TABLE IF NOT EXISTS messages (
		id         TEXT PRIMARY KEY,
		room_id    TEXT NOT NULL REFERENCES rooms(id),
		thread_id  TEXT NOT NULL DEFAULT '',
		role       TEXT NOT NULL,
		content    TEXT NOT NULL,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_messages_room_thread ON messages(room_id, thread_id, created_at);

	CREATE TABLE IF NOT EXISTS settings (
		owner_id                TEXT PRIMARY KEY,
		memory_enabled          INTEGER NOT NULL DEFAULT 1,
		show_suggested_memories INTEGER NOT NULL DEFAULT 1
	);

	CREATE TABLE IF NOT EXISTS memories (
		id            TEXT PRIMARY KEY,
		owner_id      TEXT NOT NULL,
		scope         TEXT NOT NULL,
		room_id       TEXT NOT NULL DEFAULT '',
		thread_id     TEXT NOT NULL DEFAULT '',
		kind          TEXT NOT NULL,
		source        TEXT NOT NULL,
		content       TEXT NOT NULL,
		importance    REAL NOT NULL,
		recency_score REAL NOT NULL DEFAULT 1.0,
		used_count    INTEGER NOT NULL DEFAULT 0,
		status        TEXT NOT NULL DEFAULT 'active',
		created_at    TEXT NOT NULL,
		updated_at    TEXT NOT NULL,
		last_used_at  TEXT,
		embedding     BLOB
	);
	CREATE INDEX IF NOT EXISTS idx_memories_owner_scope ON memories(owner_id, status, scope);
	CREATE INDEX IF NOT EXISTS idx_memories_room ON memories(room_id);
	CREATE INDEX IF NOT EXISTS idx_memories_thread ON memories(thread_id);

	CREATE TABLE IF NOT EXISTS memory_summaries (
		id         TEXT PRIMARY KEY,
		owner_id   TEXT NOT NULL,
		room_id    TEXT NOT NULL,
		thread_id  TEXT NOT NULL DEFAULT '',
		level      INTEGER NOT NULL,
		time_from  TEXT NOT NULL,
		time_to    TEXT NOT NULL,
		content    TEXT NOT NULL,
		embedding  BLOB,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_summaries_slot ON memory_summaries(owner_id, room_id, thread_id, level);

	CREATE TABLE IF NOT EXISTS memory_events (
		id                TEXT PRIMARY KEY,
		owner_id          TEXT NOT NULL,
		room_id           TEXT NOT NULL DEFAULT '',
		thread_id         TEXT NOT NULL DEFAULT '',
		type              TEXT NOT NULL,
		source_message_id TEXT NOT NULL DEFAULT '',
		memory_id         TEXT NOT NULL DEFAULT '',
		payload           TEXT NOT NULL,
		created_at        TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_events_owner_type ON memory_events(owner_id, type, room_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_events_memory ON memory_events(memory_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the store.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const memoryColumns = `id, owner_id, scope, room_id, thread_id, kind, source, content,
	importance, recency_score, used_count, status, created_at, updated_at, last_used_at, embedding`

func (s *SQLiteStore) CreateMemory(ctx context.Context, p CreateMemoryParams) (*model.Memory, error) {
	now := s.now()
	m := model.Memory{
		ID:           s.newID(),
		OwnerID:      p.OwnerID,
		Scope:        p.Scope,
		RoomID:       p.RoomID,
		ThreadID:     p.ThreadID,
		Kind:         p.Kind,
		Source:       p.Source,
		Content:      strings.TrimSpace(p.Content),
		Importance:   p.Importance,
		RecencyScore: 1.0,
		Status:       model.StatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
		Embedding:    p.Embedding,
	}
	if m.Source == "" {
		return nil, fmt.Errorf("%w: source is required", model.ErrValidation)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO memories (`+memoryColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?, ?, NULL, ?)`,
		m.ID, m.OwnerID, m.Scope, m.RoomID, m.ThreadID, m.Kind, m.Source, m.Content,
		m.Importance, m.RecencyScore, m.Status, formatTime(now), formatTime(now),
		encodeVector(m.Embedding))
	if err != nil {
		return nil, fmt.Errorf("insert memory: %w", err)
	}
	return &m, nil
}

func (s *SQLiteStore) GetMemory(ctx context.Context, id string) (*model.Memory, error) {
	return getMemory(ctx, s.db, id)
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getMemory(ctx context.Context, q queryer, id string) (*model.Memory, error) {
	row := q.QueryRowContext(ctx, `SELECT `+memoryColumns+` FROM memories WHERE id = ?`, id)
	m, err := scanMemory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: memory %s", model.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get memory: %w", err)
	}
	return &m, nil
}

func (s *SQLiteStore) UpdateMemory(ctx context.Context, p UpdateMemoryParams) (*model.Memory, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	m, err := getMemory(ctx, tx, p.ID)
	if err != nil {
		return nil, err
	}

	if p.Content != nil {
		m.Content = strings.TrimSpace(*p.Content)
	}
	if p.Scope != nil {
		m.Scope = *p.Scope
		m.RoomID = p.RoomID
		m.ThreadID = p.ThreadID
	}
	if p.Kind != nil {
		m.Kind = *p.Kind
	}
	if p.Source != nil {
		m.Source = *p.Source
	}
	if p.Importance != nil {
		m.Importance = *p.Importance
	}
	now := s.now()
	if p.RecencyScore != nil {
		m.RecencyScore = *p.RecencyScore
		m.LastUsedAt = &now
	}
	if p.Status != nil {
		m.Status = *p.Status
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	m.UpdatedAt = now

	var lastUsed any
	if m.LastUsedAt != nil {
		lastUsed = formatTime(*m.LastUsedAt)
	}
	_, err = tx.ExecContext(ctx,
		`UPDATE memories SET scope = ?, room_id = ?, thread_id = ?, kind = ?, source = ?, content = ?,
		        importance = ?, recency_score = ?, status = ?, updated_at = ?, last_used_at = ?
		 WHERE id = ?`,
		m.Scope, m.RoomID, m.ThreadID, m.Kind, m.Source, m.Content,
		m.Importance, m.RecencyScore, m.Status, formatTime(m.UpdatedAt), lastUsed, m.ID)
	if err != nil {
		return nil, fmt.Errorf("update memory: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *SQLiteStore) SoftDelete(ctx context.Context, id string) (bool, *model.Memory, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE memories SET status = ?, updated_at = ? WHERE id = ? AND status != ?`,
		model.StatusDeleted, formatTime(s.now()), id, model.StatusDeleted)
	if err != nil {
		return false, nil, fmt.Errorf("delete memory: %w", err)
	}
	n, _ := res.RowsAffected()

	m, err := s.GetMemory(ctx, id)
	if err != nil {
		return false, nil, err
	}
	return n > 0, m, nil
}

// SetEmbedding stores a memory's vector.
func (s *SQLiteStore) SetEmbedding(ctx context.Context, id string, vec []float32) error {
	_, err := s.db.ExecContext(ctx, `UPDATE memories SET embedding = ? WHERE id = ?`, encodeVector(vec), id)
	if err != nil {
		return fmt.Errorf("set embedding: %w", err)
	}
	return nil
}

// ListVisible returns active memories visible from the given location,
// ordered by importance. Thread memories need the current thread, room
// memories need the current room, global and system memories always match.
func (s *SQLiteStore) ListVisible(ctx context.Context, p VisibleParams) ([]model.Memory, error) {
	return s.queryMemories(ctx,
		`SELECT `+memoryColumns+` FROM memories
		 WHERE owner_id = ? AND status = ?
		   AND ((scope = 'thread' AND ? != '' AND thread_id = ?)
		     OR (scope = 'room' AND room_id = ?)
		     OR scope IN ('global', 'system'))
		 ORDER BY importance DESC, created_at DESC`,
		p.OwnerID, model.StatusActive, p.ThreadID, p.ThreadID, p.RoomID)
}

func (s *SQLiteStore) ListGlobal(ctx context.Context, ownerID string) ([]model.Memory, error) {
	return s.queryMemories(ctx,
		`SELECT `+memoryColumns+` FROM memories
		 WHERE owner_id = ? AND status = ? AND scope = 'global'
		 ORDER BY created_at DESC`,
		ownerID, model.StatusActive)
}

// ListAll returns the owner's memories in every scope and status except
// deleted, newest first.
func (s *SQLiteStore) ListAll(ctx context.Context, ownerID string, limit int) ([]model.Memory, error) {
	if limit <= 0 {
		limit = 100
	}
	return s.queryMemories(ctx,
		`SELECT `+memoryColumns+` FROM memories
		 WHERE owner_id = ? AND status != ?
		 ORDER BY created_at DESC LIMIT ?`,
		ownerID, model.StatusDeleted, limit)
}

// MarkUsed bumps usage counters and refreshes recency for memories that
// made it into a bundle.
func (s *SQLiteStore) MarkUsed(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	now := formatTime(s.now())
	args := []any{now}
	for _, id := range ids {
		args = append(args, id)
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE memories SET used_count = used_count + 1, last_used_at = ?, recency_score = 1.0
		 WHERE id IN (`+placeholders(len(ids))+`)`, args...)
	if err != nil {
		return fmt.Errorf("mark used: %w", err)
	}
	return nil
}

// Purge hard-deletes a memory and its events.
func (s *SQLiteStore) Purge(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM memories WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("purge memory: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: memory %s", model.ErrNotFound, id)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM memory_events WHERE memory_id = ?`, id); err != nil {
		return fmt.Errorf("purge events: %w", err)
	}
	return tx.Commit()
}

func (s *SQLiteStore) queryMemories(ctx context.Context, query string, args ...any) ([]model.Memory, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var memories []model.Memory
	for rows.Next() {
		m, err := scanMemory(rows)
		if err != nil {
			return nil, err
		}
		memories = append(memories, m)
	}
	return memories, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMemory(row scanner) (model.Memory, error) {
	var m model.Memory
	var createdAt, updatedAt string
	var lastUsed sql.NullString
	var embedding []byte

	err := row.Scan(
		&m.ID, &m.OwnerID, &m.Scope, &m.RoomID, &m.ThreadID, &m.Kind, &m.Source, &m.Content,
		&m.Importance, &m.RecencyScore, &m.UsedCount, &m.Status,
		&createdAt, &updatedAt, &lastUsed, &embedding,
	)
	if err != nil {
		return m, err
	}

	m.CreatedAt = parseTime(createdAt)
	m.UpdatedAt = parseTime(updatedAt)
	if lastUsed.Valid {
		t := parseTime(lastUsed.String)
		m.LastUsedAt = &t
	}
	m.Embedding = decodeVector(embedding)
	return m, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		t, _ = time.Parse(time.RFC3339Nano, s)
	}
	return t
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// encodeVector packs a vector as little-endian float32s. Nil stays NULL.
func encodeVector(v []float32) []byte {
	if len(v) == 0 {
		return nil
	}
	b := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(b[4*i:], math.Float32bits(f))
	}
	return b
}

func decodeVector(b []byte) []float32 {
	if len(b) == 0 || len(b)%4 != 0 {
		return nil
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return v
}

var durationRegex = regexp.MustCompile(`^(\d+)([dhms])$`)

// ParseDuration parses a duration like "30d", "24h", "30m" or "60s".
func ParseDuration(s string) (time.Duration, error) {
	m := durationRegex.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("invalid format %q (use e.g. 30d, 24h, 30m, 60s)", s)
	}
	n, _ := strconv.Atoi(m[1])
	switch m[2] {
	case "d":
		return time.Duration(n) * 24 * time.Hour, nil
	case "h":
		return time.Duration(n) * time.Hour, nil
	case "m":
		return time.Duration(n) * time.Minute, nil
	case "s":
		return time.Duration(n) * time.Second, nil
	}
	return 0, fmt.Errorf("unknown unit %q", m[2])
}
