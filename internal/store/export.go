package store

import (
	"context"
	"fmt"

	"github.com/rcliao/mazlo-memory/internal/model"
)

// ExportAll returns the owner's non-deleted memories, optionally filtered
// by scope, oldest first.
func (s *SQLiteStore) ExportAll(ctx context.Context, ownerID string, scope model.Scope) ([]model.Memory, error) {
	query := `SELECT ` + memoryColumns + ` FROM memories WHERE owner_id = ? AND status != ?`
	args := []any{ownerID, model.StatusDeleted}

	if scope != "" {
		query += ` AND scope = ?`
		args = append(args, scope)
	}
	query += ` ORDER BY scope, created_at`

	return s.queryMemories(ctx, query, args...)
}

// Import stores memories from an export under ownerID with source
// "imported". Embeddings are carried over as-is.
func (s *SQLiteStore) Import(ctx context.Context, ownerID string, memories []model.Memory) (int, error) {
	imported := 0
	for _, m := range memories {
		_, err := s.CreateMemory(ctx, CreateMemoryParams{
			OwnerID:    ownerID,
			Scope:      m.Scope,
			RoomID:     m.RoomID,
			ThreadID:   m.ThreadID,
			Kind:       m.Kind,
			Source:     model.SourceImported,
			Content:    m.Content,
			Importance: m.Importance,
			Embedding:  m.Embedding,
		})
		if err != nil {
			return imported, fmt.Errorf("import memory %d: %w", imported+1, err)
		}
		imported++
	}
	return imported, nil
}
