package store

import (
	"context"
	"testing"

	"github.com/rcliao/mazlo-memory/internal/model"
)

func TestSearch(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	r, _ := seedRoom(t, s)

	mustCreate(t, s, CreateMemoryParams{Scope: model.ScopeGlobal, Content: "Allergic to peanuts", Importance: 0.9})
	mustCreate(t, s, CreateMemoryParams{Scope: model.ScopeRoom, RoomID: r.ID, Kind: model.KindPlan, Content: "Book peanut-free restaurants in Tokyo", Importance: 0.6})
	mustCreate(t, s, CreateMemoryParams{Scope: model.ScopeGlobal, Content: "Likes jazz", Importance: 0.5})
	mustCreate(t, s, CreateMemoryParams{OwnerID: "u2", Scope: model.ScopeGlobal, Content: "peanut butter fan", Importance: 0.5})

	tests := []struct {
		name     string
		params   SearchParams
		expected int
	}{
		{"substring across scopes", SearchParams{OwnerID: "u1", Query: "peanut"}, 2},
		{"case insensitive", SearchParams{OwnerID: "u1", Query: "PEANUT"}, 2},
		{"scope filter", SearchParams{OwnerID: "u1", Query: "peanut", Scope: model.ScopeRoom}, 1},
		{"kind filter", SearchParams{OwnerID: "u1", Query: "peanut", Kind: model.KindPlan}, 1},
		{"room filter", SearchParams{OwnerID: "u1", Query: "", RoomID: r.ID}, 1},
		{"no match", SearchParams{OwnerID: "u1", Query: "sushi"}, 0},
		{"limit", SearchParams{OwnerID: "u1", Query: "", Limit: 1}, 1},
		{"literal percent", SearchParams{OwnerID: "u1", Query: "%"}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.Search(ctx, tt.params)
			if err != nil {
				t.Fatalf("search: %v", err)
			}
			if len(got) != tt.expected {
				t.Errorf("expected %d results, got %d", tt.expected, len(got))
			}
		})
	}

	got, _ := s.Search(ctx, SearchParams{OwnerID: "u1", Query: "peanut"})
	if len(got) == 2 && got[0].Importance < got[1].Importance {
		t.Error("expected results ordered by importance")
	}
}

func TestStatsAndExport(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	r, _ := seedRoom(t, s)

	mustCreate(t, s, CreateMemoryParams{Scope: model.ScopeGlobal, Content: "a", Importance: 0.4})
	mustCreate(t, s, CreateMemoryParams{Scope: model.ScopeGlobal, Content: "b", Importance: 0.8})
	room := mustCreate(t, s, CreateMemoryParams{Scope: model.ScopeRoom, RoomID: r.ID, Content: "c", Importance: 0.5})
	gone := mustCreate(t, s, CreateMemoryParams{Scope: model.ScopeGlobal, Content: "d", Importance: 0.5})
	s.SoftDelete(ctx, gone.ID)
	s.SetEmbedding(ctx, room.ID, []float32{1, 0})

	st, err := s.Stats(ctx, "/nonexistent/path.db", "u1")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if st.TotalMemories != 4 || st.ActiveMemories != 3 || st.Embedded != 1 {
		t.Errorf("unexpected counts: %+v", st)
	}
	if len(st.Scopes) != 2 || st.Scopes[0].Scope != "global" || st.Scopes[0].Count != 2 {
		t.Errorf("unexpected scope stats: %+v", st.Scopes)
	}

	exported, err := s.ExportAll(ctx, "u1", "")
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if len(exported) != 3 {
		t.Fatalf("expected 3 exported, got %d", len(exported))
	}

	n, err := s.Import(ctx, "u9", exported)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if n != 3 {
		t.Errorf("expected 3 imported, got %d", n)
	}
	imported, _ := s.ExportAll(ctx, "u9", model.ScopeRoom)
	if len(imported) != 1 {
		t.Fatalf("expected 1 room memory for u9, got %d", len(imported))
	}
	if imported[0].Source != model.SourceImported {
		t.Errorf("expected source imported, got %s", imported[0].Source)
	}
	if len(imported[0].Embedding) != 2 {
		t.Errorf("expected embedding carried over, got %v", imported[0].Embedding)
	}
}
