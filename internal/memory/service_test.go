package memory

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/rcliao/mazlo-memory/internal/logging"
	"github.com/rcliao/mazlo-memory/internal/model"
	"github.com/rcliao/mazlo-memory/internal/store"
)

type fixture struct {
	store  *store.SQLiteStore
	svc    *Service
	room   *model.Room
	thread *model.Thread
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	r, err := s.CreateRoom(ctx, store.CreateRoomParams{OwnerID: "u1", Title: "Trip planning", Type: model.RoomProject})
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	th, err := s.CreateThread(ctx, r.ID, "Tokyo")
	if err != nil {
		t.Fatalf("create thread: %v", err)
	}
	return &fixture{store: s, svc: NewService(s, nil, nil, nil, logging.Nop()), room: r, thread: th}
}

func (f *fixture) candidate(t *testing.T, threadID string, p model.CandidatePayload) *model.MemoryEvent {
	t.Helper()
	ev, err := f.store.AddEvent(context.Background(), model.NewEvent("u1", f.room.ID, threadID, p))
	if err != nil {
		t.Fatalf("add event: %v", err)
	}
	return ev
}

func TestPinListRoundTrip(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	m, err := f.svc.Pin(ctx, PinParams{
		OwnerID: "u1", Scope: model.ScopeRoom, RoomID: f.room.ID,
		Kind: model.KindProject, Content: "Trip budget is 3000 USD", Importance: 0.9,
	})
	if err != nil {
		t.Fatalf("pin: %v", err)
	}
	if m.Source != model.SourceUserPin {
		t.Errorf("expected user_pin source, got %s", m.Source)
	}

	list, err := f.svc.ListForRoomAndThread(ctx, "u1", f.room.ID, "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].ID != m.ID || list[0].Content != "Trip budget is 3000 USD" {
		t.Errorf("pinned memory not listed: %+v", list)
	}

	evs, _ := f.store.ListEvents(ctx, store.EventListParams{OwnerID: "u1", MemoryID: m.ID})
	if len(evs) != 1 || evs[0].Type != model.EventPin {
		t.Errorf("expected one pin event, got %+v", evs)
	}
}

func TestPinRejectsInvalid(t *testing.T) {
	f := newFixture(t)
	tests := []struct {
		name string
		p    PinParams
	}{
		{"system scope", PinParams{OwnerID: "u1", Scope: model.ScopeSystem, Kind: model.KindFact, Content: "x", Importance: 0.5}},
		{"room without room id", PinParams{OwnerID: "u1", Scope: model.ScopeRoom, Kind: model.KindFact, Content: "x", Importance: 0.5}},
		{"importance out of range", PinParams{OwnerID: "u1", Scope: model.ScopeGlobal, Kind: model.KindFact, Content: "x", Importance: 1.5}},
		{"empty content", PinParams{OwnerID: "u1", Scope: model.ScopeGlobal, Kind: model.KindFact, Content: " ", Importance: 0.5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.svc.Pin(context.Background(), tt.p); !errors.Is(err, model.ErrValidation) {
				t.Errorf("expected ErrValidation, got %v", err)
			}
		})
	}
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	m, err := f.svc.Pin(ctx, PinParams{OwnerID: "u1", Scope: model.ScopeRoom, RoomID: f.room.ID, Kind: model.KindFact, Content: "old", Importance: 0.5})
	if err != nil {
		t.Fatalf("pin: %v", err)
	}

	content := "new"
	scope := model.ScopeThread
	got, err := f.svc.Update(ctx, UpdateParams{ID: m.ID, Content: &content, Scope: &scope, ThreadID: f.thread.ID})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.Content != "new" || got.Scope != model.ScopeThread || got.RoomID != f.room.ID || got.ThreadID != f.thread.ID {
		t.Errorf("unexpected update result %+v", got)
	}
	if got.Source != model.SourceUserEdit {
		t.Errorf("expected user_edit source, got %s", got.Source)
	}

	evs, _ := f.store.ListEvents(ctx, store.EventListParams{OwnerID: "u1", Type: model.EventUpdate})
	if len(evs) != 1 {
		t.Fatalf("expected one update event, got %d", len(evs))
	}
	up, ok := evs[0].Payload.(model.UpdatePayload)
	if !ok || up.Content == nil || *up.Content != "new" || up.Kind != nil {
		t.Errorf("unexpected update payload %+v", evs[0].Payload)
	}

	global := model.ScopeGlobal
	got, err = f.svc.Update(ctx, UpdateParams{ID: m.ID, Scope: &global})
	if err != nil {
		t.Fatalf("update to global: %v", err)
	}
	if got.RoomID != "" || got.ThreadID != "" {
		t.Errorf("global memory should have no location, got %+v", got)
	}

	system := model.ScopeSystem
	if _, err := f.svc.Update(ctx, UpdateParams{ID: m.ID, Scope: &system}); !errors.Is(err, model.ErrValidation) {
		t.Errorf("expected ErrValidation for system scope, got %v", err)
	}
	if _, err := f.svc.Update(ctx, UpdateParams{ID: m.ID}); !errors.Is(err, model.ErrValidation) {
		t.Errorf("expected ErrValidation for empty update, got %v", err)
	}
	if _, err := f.svc.Update(ctx, UpdateParams{ID: "missing", Content: &content}); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestForgetIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	m, err := f.svc.Pin(ctx, PinParams{OwnerID: "u1", Scope: model.ScopeGlobal, Kind: model.KindPreference, Content: "Likes jazz", Importance: 0.6})
	if err != nil {
		t.Fatalf("pin: %v", err)
	}

	for i := 0; i < 2; i++ {
		if err := f.svc.Forget(ctx, m.ID); err != nil {
			t.Fatalf("forget %d: %v", i, err)
		}
	}
	got, _ := f.store.GetMemory(ctx, m.ID)
	if got.Status != model.StatusDeleted {
		t.Errorf("expected deleted status, got %s", got.Status)
	}
	evs, _ := f.store.ListEvents(ctx, store.EventListParams{OwnerID: "u1", Type: model.EventForget})
	if len(evs) != 1 {
		t.Errorf("expected exactly one forget event, got %d", len(evs))
	}
	if fp, ok := evs[0].Payload.(model.ForgetPayload); !ok || fp.Content != "Likes jazz" {
		t.Errorf("unexpected forget payload %+v", evs[0].Payload)
	}

	content := "x"
	if _, err := f.svc.Update(ctx, UpdateParams{ID: m.ID, Content: &content}); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected deleted memory to be uneditable, got %v", err)
	}
	if err := f.svc.Forget(ctx, "missing"); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestCandidateLifecycle(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	keep := f.candidate(t, f.thread.ID, model.CandidatePayload{Scope: model.ScopeThread, Kind: model.KindPlan, Content: "Book ryokan", Importance: 0.4})
	drop := f.candidate(t, "", model.CandidatePayload{Scope: model.ScopeRoom, Kind: model.KindFact, Content: "Rainy season", Importance: 0.3})

	suggested, err := f.svc.ListSuggested(ctx, "u1", f.room.ID, "")
	if err != nil {
		t.Fatalf("list suggested: %v", err)
	}
	if len(suggested) != 2 {
		t.Errorf("expected 2 suggestions, got %d", len(suggested))
	}
	suggested, _ = f.svc.ListSuggested(ctx, "u1", f.room.ID, f.thread.ID)
	if len(suggested) != 1 || suggested[0].ID != keep.ID {
		t.Errorf("expected the thread suggestion only, got %+v", suggested)
	}

	m, err := f.svc.AcceptCandidate(ctx, keep.ID)
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if m.Source != model.SourceUserPin || m.Scope != model.ScopeThread || m.ThreadID != f.thread.ID || m.Importance != 0.4 {
		t.Errorf("unexpected accepted memory %+v", m)
	}
	if _, err := f.store.GetEvent(ctx, keep.ID); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("accepted candidate should be removed, got %v", err)
	}

	if err := f.svc.DiscardCandidate(ctx, drop.ID); err != nil {
		t.Fatalf("discard: %v", err)
	}
	if err := f.svc.DiscardCandidate(ctx, drop.ID); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected ErrNotFound on second discard, got %v", err)
	}

	pins, _ := f.store.ListEvents(ctx, store.EventListParams{OwnerID: "u1", Type: model.EventPin})
	if err := f.svc.DiscardCandidate(ctx, pins[0].ID); !errors.Is(err, model.ErrValidation) {
		t.Errorf("expected ErrValidation for non-candidate event, got %v", err)
	}
}

func TestListSuggestedHidden(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.candidate(t, "", model.CandidatePayload{Scope: model.ScopeRoom, Kind: model.KindFact, Content: "x", Importance: 0.3})
	if err := f.store.SaveSettings(ctx, model.Settings{OwnerID: "u1", MemoryEnabled: true, ShowSuggestedMemories: false}); err != nil {
		t.Fatalf("save settings: %v", err)
	}
	got, err := f.svc.ListSuggested(ctx, "u1", f.room.ID, "")
	if err != nil {
		t.Fatalf("list suggested: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected no suggestions, got %d", len(got))
	}
}

func TestApplyCommand(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	res, err := f.svc.ApplyCommand(ctx, "u1", f.room.ID, f.thread.ID, Command{Type: CommandRemember, Scope: model.ScopeRoom, Content: "We fly on April 3"})
	if err != nil {
		t.Fatalf("remember: %v", err)
	}
	if res.Pinned == nil || res.Pinned.Scope != model.ScopeRoom || res.Pinned.RoomID != f.room.ID || res.Pinned.Importance != 0.8 || res.Pinned.Kind != model.KindFact {
		t.Errorf("unexpected pinned memory %+v", res.Pinned)
	}

	res, err = f.svc.ApplyCommand(ctx, "u1", f.room.ID, "", Command{Type: CommandRemember, Scope: model.ScopeGlobal, Content: "I am vegetarian"})
	if err != nil {
		t.Fatalf("remember global: %v", err)
	}
	if res.Pinned.Scope != model.ScopeGlobal || res.Pinned.RoomID != "" {
		t.Errorf("unexpected global memory %+v", res.Pinned)
	}

	res, err = f.svc.ApplyCommand(ctx, "u1", f.room.ID, "", Command{Type: CommandForget, Scope: model.ScopeRoom, Content: "APRIL"})
	if err != nil {
		t.Fatalf("forget: %v", err)
	}
	if len(res.Forgotten) != 1 {
		t.Errorf("expected one memory forgotten, got %v", res.Forgotten)
	}
	left, _ := f.svc.ListForRoomAndThread(ctx, "u1", f.room.ID, "")
	if len(left) != 1 || left[0].Content != "I am vegetarian" {
		t.Errorf("unexpected remaining memories %+v", left)
	}

	if _, err := f.svc.ApplyCommand(ctx, "u1", f.room.ID, "", Command{Type: "shout"}); !errors.Is(err, model.ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
}

func TestUnconfiguredComponents(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.svc.SummarizeThread(ctx, f.thread.ID, "u1"); err == nil {
		t.Error("expected error without summarizer")
	}
	if _, err := f.svc.IntakeForMessage(ctx, "m"); err == nil {
		t.Error("expected error without intake")
	}
}
