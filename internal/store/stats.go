package store

import (
	"context"
	"os"
)

// Stats holds database statistics for one owner.
type Stats struct {
	DBPath          string       `json:"db_path"`
	DBSizeBytes     int64        `json:"db_size_bytes"`
	TotalMemories   int          `json:"total_memories"`
	ActiveMemories  int          `json:"active_memories"`
	Embedded        int          `json:"embedded"`
	Summaries       int          `json:"summaries"`
	PendingSuggests int          `json:"pending_suggestions"`
	Scopes          []ScopeStats `json:"scopes"`
}

// ScopeStats holds per-scope counts of active memories.
type ScopeStats struct {
	Scope         string  `json:"scope"`
	Count         int     `json:"count"`
	AvgImportance float64 `json:"avg_importance"`
}

// Stats returns database statistics for an owner.
func (s *SQLiteStore) Stats(ctx context.Context, dbPath, ownerID string) (*Stats, error) {
	st := &Stats{DBPath: dbPath}

	if info, err := os.Stat(dbPath); err == nil {
		st.DBSizeBytes = info.Size()
	}

	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM memories WHERE owner_id = ?`, ownerID).Scan(&st.TotalMemories)
	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM memories WHERE owner_id = ? AND status = 'active'`, ownerID).Scan(&st.ActiveMemories)
	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM memories WHERE owner_id = ? AND status = 'active' AND embedding IS NOT NULL`, ownerID).Scan(&st.Embedded)
	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM memory_summaries WHERE owner_id = ?`, ownerID).Scan(&st.Summaries)
	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM memory_events WHERE owner_id = ? AND type = 'candidate'`, ownerID).Scan(&st.PendingSuggests)

	rows, err := s.db.QueryContext(ctx, `
		SELECT scope, COUNT(*) AS cnt, AVG(importance)
		FROM memories WHERE owner_id = ? AND status = 'active'
		GROUP BY scope ORDER BY cnt DESC`, ownerID)
	if err != nil {
		return st, err
	}
	defer rows.Close()

	for rows.Next() {
		var sc ScopeStats
		rows.Scan(&sc.Scope, &sc.Count, &sc.AvgImportance)
		st.Scopes = append(st.Scopes, sc)
	}

	return st, rows.Err()
}
