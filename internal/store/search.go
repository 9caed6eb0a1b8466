package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/rcliao/mazlo-memory/internal/model"
)

// SearchParams holds parameters for searching memories.
type SearchParams struct {
	OwnerID string
	Query   string
	Scope   model.Scope
	Kind    model.Kind
	RoomID  string
	Limit   int
}

// Search finds active memories whose content contains the query substring,
// most important first.
func (s *SQLiteStore) Search(ctx context.Context, p SearchParams) ([]model.Memory, error) {
	limit := p.Limit
	if limit <= 0 {
		limit = 20
	}

	where := []string{"owner_id = ?", "status = ?", "content LIKE ? ESCAPE '\\'"}
	args := []any{p.OwnerID, model.StatusActive, "%" + escapeLike(p.Query) + "%"}

	if p.Scope != "" {
		where = append(where, "scope = ?")
		args = append(args, p.Scope)
	}
	if p.Kind != "" {
		where = append(where, "kind = ?")
		args = append(args, p.Kind)
	}
	if p.RoomID != "" {
		where = append(where, "room_id = ?")
		args = append(args, p.RoomID)
	}
	args = append(args, limit)

	query := fmt.Sprintf(`
		SELECT %s FROM memories
		WHERE %s
		ORDER BY importance DESC, created_at DESC
		LIMIT ?`, memoryColumns, strings.Join(where, " AND "))

	return s.queryMemories(ctx, query, args...)
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
