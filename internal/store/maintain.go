package store

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"time"

	"github.com/rcliao/mazlo-memory/internal/model"
)

// DecayRecency recomputes recency_score for every active memory as
// exp(-rate * days since last use, or since creation if never used).
// Returns the number of memories updated.
func (s *SQLiteStore) DecayRecency(ctx context.Context, rate float64) (int, error) {
	now := s.now()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, COALESCE(last_used_at, created_at) FROM memories WHERE status = ?`,
		model.StatusActive)
	if err != nil {
		return 0, err
	}
	type decay struct {
		id    string
		score float64
	}
	var updates []decay
	for rows.Next() {
		var id, ref string
		if err := rows.Scan(&id, &ref); err != nil {
			rows.Close()
			return 0, err
		}
		updates = append(updates, decay{id: id, score: RecencyAt(parseTime(ref), now, rate)})
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	for _, u := range updates {
		if _, err := tx.ExecContext(ctx,
			`UPDATE memories SET recency_score = ? WHERE id = ?`, u.score, u.id); err != nil {
			return 0, fmt.Errorf("decay %s: %w", u.id, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(updates), nil
}

// RecencyAt is the decayed recency of a memory last touched at ref.
func RecencyAt(ref, now time.Time, rate float64) float64 {
	days := now.Sub(ref).Hours() / 24.0
	if days < 0 {
		days = 0
	}
	return math.Exp(-rate * days)
}

// ArchiveParams selects stale memories to archive.
type ArchiveParams struct {
	OlderThan     time.Duration
	MinImportance float64 // memories at or above this are kept
}

// ArchiveStale archives active, unpinned memories below MinImportance that
// have not been used (or created) within OlderThan.
func (s *SQLiteStore) ArchiveStale(ctx context.Context, p ArchiveParams) (int, error) {
	cutoff := formatTime(s.now().Add(-p.OlderThan))
	res, err := s.db.ExecContext(ctx,
		`UPDATE memories SET status = ?, updated_at = ?
		 WHERE status = ? AND source != ? AND importance < ?
		   AND COALESCE(last_used_at, created_at) < ?`,
		model.StatusArchived, formatTime(s.now()),
		model.StatusActive, model.SourceUserPin, p.MinImportance, cutoff)
	if err != nil {
		return 0, fmt.Errorf("archive stale: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// StaleThread is a thread whose level-1 summary is missing or older than
// its latest message.
type StaleThread struct {
	OwnerID      string
	RoomID       string
	ThreadID     string
	MessageCount int
}

// ThreadsNeedingSummary lists threads with more than minMessages messages
// whose summary is missing or out of date.
func (s *SQLiteStore) ThreadsNeedingSummary(ctx context.Context, minMessages int) ([]StaleThread, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT r.owner_id, t.room_id, t.id, COUNT(m.id), MAX(m.created_at)
		 FROM threads t
		 JOIN rooms r ON r.id = t.room_id
		 JOIN messages m ON m.thread_id = t.id
		 GROUP BY t.id
		 HAVING COUNT(m.id) > ?`, minMessages)
	if err != nil {
		return nil, err
	}
	type candidate struct {
		StaleThread
		lastMessage string
	}
	var candidates []candidate
	for rows.Next() {
		var c candidate
		if err := rows.Scan(&c.OwnerID, &c.RoomID, &c.ThreadID, &c.MessageCount, &c.lastMessage); err != nil {
			rows.Close()
			return nil, err
		}
		candidates = append(candidates, c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var out []StaleThread
	for _, c := range candidates {
		var updatedAt string
		err := s.db.QueryRowContext(ctx,
			`SELECT updated_at FROM memory_summaries
			 WHERE owner_id = ? AND room_id = ? AND thread_id = ? AND level = ?`,
			c.OwnerID, c.RoomID, c.ThreadID, model.LevelThread).Scan(&updatedAt)
		switch {
		case err == sql.ErrNoRows:
			out = append(out, c.StaleThread)
		case err != nil:
			return nil, err
		case updatedAt < c.lastMessage:
			out = append(out, c.StaleThread)
		}
	}
	return out, nil
}
