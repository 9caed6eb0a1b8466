package store

import (
	"context"
	"fmt"

	"github.com/rcliao/mazlo-memory/internal/model"
)

const summaryColumns = `id, owner_id, room_id, thread_id, level, time_from, time_to, content, embedding, created_at, updated_at`

// UpsertSummary writes a summary into its slot in a single statement, so
// concurrent regenerations of the same slot resolve as last write wins.
// A regenerated summary drops the previous embedding.
func (s *SQLiteStore) UpsertSummary(ctx context.Context, p UpsertSummaryParams) (*model.MemorySummary, error) {
	if p.OwnerID == "" || p.RoomID == "" {
		return nil, fmt.Errorf("%w: summary requires owner and room", model.ErrValidation)
	}
	if p.Level == model.LevelThread && p.ThreadID == "" {
		return nil, fmt.Errorf("%w: thread summary requires thread", model.ErrValidation)
	}
	if p.Level < model.LevelThread {
		return nil, fmt.Errorf("%w: invalid summary level %d", model.ErrValidation, p.Level)
	}

	now := formatTime(s.now())
	row := s.db.QueryRowContext(ctx,
		`INSERT INTO memory_summaries (`+summaryColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, NULL, ?, ?)
		 ON CONFLICT(owner_id, room_id, thread_id, level) DO UPDATE SET
		   time_from = excluded.time_from,
		   time_to = excluded.time_to,
		   content = excluded.content,
		   embedding = NULL,
		   updated_at = excluded.updated_at
		 RETURNING `+summaryColumns,
		s.newID(), p.OwnerID, p.RoomID, p.ThreadID, p.Level,
		formatTime(p.TimeFrom), formatTime(p.TimeTo), p.Content, now, now)

	sum, err := scanSummary(row)
	if err != nil {
		return nil, fmt.Errorf("upsert summary: %w", err)
	}
	return &sum, nil
}

// SetSummaryEmbedding stores a summary's vector.
func (s *SQLiteStore) SetSummaryEmbedding(ctx context.Context, id string, vec []float32) error {
	_, err := s.db.ExecContext(ctx, `UPDATE memory_summaries SET embedding = ? WHERE id = ?`, encodeVector(vec), id)
	if err != nil {
		return fmt.Errorf("set summary embedding: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListSummaries(ctx context.Context, ownerID, roomID, threadID string) ([]model.MemorySummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+summaryColumns+` FROM memory_summaries
		 WHERE owner_id = ? AND room_id = ?
		   AND (level >= ? OR (level = ? AND ? != '' AND thread_id = ?))
		 ORDER BY level DESC, updated_at DESC`,
		ownerID, roomID, model.LevelRoom, model.LevelThread, threadID, threadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.MemorySummary
	for rows.Next() {
		sum, err := scanSummary(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}

// GetSummary returns the summary in a slot, or ErrNotFound.
func (s *SQLiteStore) GetSummary(ctx context.Context, ownerID, roomID, threadID string, level int) (*model.MemorySummary, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+summaryColumns+` FROM memory_summaries
		 WHERE owner_id = ? AND room_id = ? AND thread_id = ? AND level = ?`,
		ownerID, roomID, threadID, level)
	sum, err := scanSummary(row)
	if err != nil {
		return nil, notFound(err, "summary %s/%s/%d", roomID, threadID, level)
	}
	return &sum, nil
}

func scanSummary(row scanner) (model.MemorySummary, error) {
	var sum model.MemorySummary
	var from, to, createdAt, updatedAt string
	var embedding []byte

	err := row.Scan(&sum.ID, &sum.OwnerID, &sum.RoomID, &sum.ThreadID, &sum.Level,
		&from, &to, &sum.Content, &embedding, &createdAt, &updatedAt)
	if err != nil {
		return sum, err
	}
	sum.TimeFrom = parseTime(from)
	sum.TimeTo = parseTime(to)
	sum.CreatedAt = parseTime(createdAt)
	sum.UpdatedAt = parseTime(updatedAt)
	sum.Embedding = decodeVector(embedding)
	return sum, nil
}
