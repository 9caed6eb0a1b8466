package store

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rcliao/mazlo-memory/internal/model"
)

func TestRecentMessagesOrder(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	r, th := seedRoom(t, s)

	for i := 0; i < 5; i++ {
		if _, err := s.AddMessage(ctx, AddMessageParams{RoomID: r.ID, ThreadID: th.ID, Role: model.RoleUser, Content: fmt.Sprintf("msg %d", i)}); err != nil {
			t.Fatalf("add message: %v", err)
		}
	}
	s.AddMessage(ctx, AddMessageParams{RoomID: r.ID, Content: "room level"})

	msgs, err := s.GetRecentMessages(ctx, r.ID, th.ID, 3)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(msgs) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(msgs))
	}
	for i, want := range []string{"msg 2", "msg 3", "msg 4"} {
		if msgs[i].Content != want {
			t.Errorf("position %d: expected %q, got %q", i, want, msgs[i].Content)
		}
	}

	room, _ := s.GetRecentMessages(ctx, r.ID, "", 10)
	if len(room) != 1 || room[0].Content != "room level" {
		t.Errorf("expected only the room-level message, got %+v", room)
	}
}

func TestAddMessageValidation(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	r, _ := seedRoom(t, s)
	r2, _ := s.CreateRoom(ctx, CreateRoomParams{OwnerID: "u1", Title: "Other"})
	th2, _ := s.CreateThread(ctx, r2.ID, "elsewhere")

	if _, err := s.AddMessage(ctx, AddMessageParams{RoomID: "missing", Content: "hi"}); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown room, got %v", err)
	}
	if _, err := s.AddMessage(ctx, AddMessageParams{RoomID: r.ID, ThreadID: th2.ID, Content: "hi"}); !errors.Is(err, model.ErrValidation) {
		t.Errorf("expected ErrValidation for foreign thread, got %v", err)
	}
	if _, err := s.AddMessage(ctx, AddMessageParams{RoomID: r.ID, Content: ""}); !errors.Is(err, model.ErrValidation) {
		t.Errorf("expected ErrValidation for empty content, got %v", err)
	}
}

func TestGetMessagesByID(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	r, _ := seedRoom(t, s)
	a, _ := s.AddMessage(ctx, AddMessageParams{RoomID: r.ID, Content: "a"})
	b, _ := s.AddMessage(ctx, AddMessageParams{RoomID: r.ID, Content: "b"})

	got, err := s.GetMessagesByID(ctx, []string{b.ID, "missing", a.ID})
	if err != nil {
		t.Fatalf("get by id: %v", err)
	}
	if len(got) != 2 || got[0].Content != "b" || got[1].Content != "a" {
		t.Errorf("unexpected messages %+v", got)
	}
}

func TestThreadsByRoom(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	r, first := seedRoom(t, s)
	s.CreateThread(ctx, r.ID, "second")
	s.CreateThread(ctx, r.ID, "third")

	got, err := s.ListThreadsByRoom(ctx, r.ID, 2)
	if err != nil {
		t.Fatalf("list threads: %v", err)
	}
	if len(got) != 2 || got[0].ID != first.ID {
		t.Errorf("expected oldest threads first, got %+v", got)
	}

	if _, err := s.CreateThread(ctx, "missing", "x"); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSettings(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	st, err := s.GetSettings(ctx, "u1")
	if err != nil {
		t.Fatalf("get settings: %v", err)
	}
	if !st.MemoryEnabled || !st.ShowSuggestedMemories {
		t.Errorf("expected defaults enabled, got %+v", st)
	}

	st.MemoryEnabled = false
	if err := s.SaveSettings(ctx, st); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, _ := s.GetSettings(ctx, "u1")
	if got.MemoryEnabled || !got.ShowSuggestedMemories {
		t.Errorf("unexpected settings %+v", got)
	}
}

func TestDecayAndArchive(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return base }
	low := mustCreate(t, s, CreateMemoryParams{Scope: model.ScopeGlobal, Content: "low", Importance: 0.2})
	pinned := mustCreate(t, s, CreateMemoryParams{Scope: model.ScopeGlobal, Source: model.SourceUserPin, Content: "pinned", Importance: 0.1})
	high := mustCreate(t, s, CreateMemoryParams{Scope: model.ScopeGlobal, Content: "high", Importance: 0.8})

	s.now = func() time.Time { return base.Add(10 * 24 * time.Hour) }
	n, err := s.DecayRecency(ctx, 0.05)
	if err != nil {
		t.Fatalf("decay: %v", err)
	}
	if n != 3 {
		t.Errorf("expected 3 decayed, got %d", n)
	}
	got, _ := s.GetMemory(ctx, high.ID)
	want := RecencyAt(base, base.Add(10*24*time.Hour), 0.05)
	if diff := got.RecencyScore - want; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("expected recency %v, got %v", want, got.RecencyScore)
	}

	s.now = func() time.Time { return base.Add(31 * 24 * time.Hour) }
	n, err = s.ArchiveStale(ctx, ArchiveParams{OlderThan: 30 * 24 * time.Hour, MinImportance: 0.3})
	if err != nil {
		t.Fatalf("archive: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 archived, got %d", n)
	}
	for id, status := range map[string]model.Status{low.ID: model.StatusArchived, pinned.ID: model.StatusActive, high.ID: model.StatusActive} {
		m, _ := s.GetMemory(ctx, id)
		if m.Status != status {
			t.Errorf("%s: expected %s, got %s", m.Content, status, m.Status)
		}
	}
}

func TestRecencyAt(t *testing.T) {
	now := time.Now()
	if got := RecencyAt(now, now, 0.05); got != 1.0 {
		t.Errorf("expected 1.0 for fresh memory, got %v", got)
	}
	if got := RecencyAt(now.Add(time.Hour), now, 0.05); got != 1.0 {
		t.Errorf("expected clamp to 1.0 for future reference, got %v", got)
	}
	if got := RecencyAt(now.Add(-30*24*time.Hour), now, 0.05); got > 0.23 || got < 0.22 {
		t.Errorf("expected ~0.223 after 30 days, got %v", got)
	}
}

func TestThreadsNeedingSummary(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	r, th := seedRoom(t, s)
	quiet, _ := s.CreateThread(ctx, r.ID, "quiet")

	for i := 0; i < 4; i++ {
		s.AddMessage(ctx, AddMessageParams{RoomID: r.ID, ThreadID: th.ID, Content: fmt.Sprintf("m%d", i)})
	}
	s.AddMessage(ctx, AddMessageParams{RoomID: r.ID, ThreadID: quiet.ID, Content: "only one"})

	stale, err := s.ThreadsNeedingSummary(ctx, 3)
	if err != nil {
		t.Fatalf("threads needing summary: %v", err)
	}
	if len(stale) != 1 || stale[0].ThreadID != th.ID || stale[0].OwnerID != "u1" || stale[0].MessageCount != 4 {
		t.Fatalf("unexpected stale threads %+v", stale)
	}

	now := time.Now()
	s.UpsertSummary(ctx, UpsertSummaryParams{OwnerID: "u1", RoomID: r.ID, ThreadID: th.ID, Level: model.LevelThread, TimeFrom: now, TimeTo: now, Content: "done"})
	stale, _ = s.ThreadsNeedingSummary(ctx, 3)
	if len(stale) != 0 {
		t.Errorf("expected fresh summary to clear the thread, got %+v", stale)
	}
}
