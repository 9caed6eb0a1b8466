// Package memory is the surface the rest of the application uses to read
// and manage memories: listing, pinning, editing, forgetting, suggestions,
// retrieval for replies, summaries and intake.
package memory

import (
	"context"
	"fmt"
	"strings"

	"github.com/rcliao/mazlo-memory/internal/intake"
	"github.com/rcliao/mazlo-memory/internal/logging"
	"github.com/rcliao/mazlo-memory/internal/model"
	"github.com/rcliao/mazlo-memory/internal/retriever"
	"github.com/rcliao/mazlo-memory/internal/store"
	"github.com/rcliao/mazlo-memory/internal/summarizer"
)

const suggestedLimit = 20

// Store is the persistence the service needs.
type Store interface {
	CreateMemory(ctx context.Context, p store.CreateMemoryParams) (*model.Memory, error)
	GetMemory(ctx context.Context, id string) (*model.Memory, error)
	UpdateMemory(ctx context.Context, p store.UpdateMemoryParams) (*model.Memory, error)
	SoftDelete(ctx context.Context, id string) (bool, *model.Memory, error)
	ListVisible(ctx context.Context, p store.VisibleParams) ([]model.Memory, error)
	ListGlobal(ctx context.Context, ownerID string) ([]model.Memory, error)
	ListAll(ctx context.Context, ownerID string, limit int) ([]model.Memory, error)
	ListSummaries(ctx context.Context, ownerID, roomID, threadID string) ([]model.MemorySummary, error)
	AddEvent(ctx context.Context, e model.MemoryEvent) (*model.MemoryEvent, error)
	GetEvent(ctx context.Context, id string) (*model.MemoryEvent, error)
	DeleteEvent(ctx context.Context, id string) error
	ListEvents(ctx context.Context, p store.EventListParams) ([]model.MemoryEvent, error)
	GetSettings(ctx context.Context, ownerID string) (model.Settings, error)
}

// Service wires the memory components together. Retriever, summarizer and
// intake may be nil when the caller only needs the store-backed operations.
type Service struct {
	store      Store
	retriever  *retriever.Retriever
	summarizer *summarizer.Summarizer
	intake     *intake.Pipeline
	log        *logging.Logger
}

func NewService(st Store, r *retriever.Retriever, s *summarizer.Summarizer, p *intake.Pipeline, log *logging.Logger) *Service {
	return &Service{store: st, retriever: r, summarizer: s, intake: p, log: log.Named("memory")}
}

// ListForRoomAndThread returns active memories visible from the location.
func (s *Service) ListForRoomAndThread(ctx context.Context, ownerID, roomID, threadID string) ([]model.Memory, error) {
	return s.store.ListVisible(ctx, store.VisibleParams{OwnerID: ownerID, RoomID: roomID, ThreadID: threadID})
}

func (s *Service) ListGlobal(ctx context.Context, ownerID string) ([]model.Memory, error) {
	return s.store.ListGlobal(ctx, ownerID)
}

// ListAll returns every non-deleted memory of the owner.
func (s *Service) ListAll(ctx context.Context, ownerID string, limit int) ([]model.Memory, error) {
	return s.store.ListAll(ctx, ownerID, limit)
}

// ListSuggested returns recent candidate events for the room, narrowed to
// the thread when one is given. It is empty when the owner hides
// suggestions.
func (s *Service) ListSuggested(ctx context.Context, ownerID, roomID, threadID string) ([]model.MemoryEvent, error) {
	settings, err := s.store.GetSettings(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if !settings.ShowSuggestedMemories {
		return []model.MemoryEvent{}, nil
	}
	return s.store.ListEvents(ctx, store.EventListParams{
		OwnerID:  ownerID,
		RoomID:   roomID,
		ThreadID: threadID,
		Type:     model.EventCandidate,
		Limit:    suggestedLimit,
	})
}

// Summaries returns the room's summaries and the thread's summary.
func (s *Service) Summaries(ctx context.Context, ownerID, roomID, threadID string) ([]model.MemorySummary, error) {
	return s.store.ListSummaries(ctx, ownerID, roomID, threadID)
}

// PinParams describes a memory the user wants kept.
type PinParams struct {
	OwnerID    string      `json:"owner_id"`
	Scope      model.Scope `json:"scope"`
	RoomID     string      `json:"room_id,omitempty"`
	ThreadID   string      `json:"thread_id,omitempty"`
	Kind       model.Kind  `json:"kind"`
	Content    string      `json:"content"`
	Importance float64     `json:"importance"`
}

// Pin stores a user-pinned memory and records a pin event.
func (s *Service) Pin(ctx context.Context, p PinParams) (*model.Memory, error) {
	if p.Scope == model.ScopeSystem {
		return nil, fmt.Errorf("%w: system memories cannot be pinned", model.ErrValidation)
	}
	m, err := s.store.CreateMemory(ctx, store.CreateMemoryParams{
		OwnerID:    p.OwnerID,
		Scope:      p.Scope,
		RoomID:     p.RoomID,
		ThreadID:   p.ThreadID,
		Kind:       p.Kind,
		Source:     model.SourceUserPin,
		Content:    p.Content,
		Importance: p.Importance,
	})
	if err != nil {
		return nil, err
	}

	ev := model.NewEvent(m.OwnerID, m.RoomID, m.ThreadID, model.PinPayload{Content: m.Content})
	ev.MemoryID = m.ID
	if _, err := s.store.AddEvent(ctx, ev); err != nil {
		return nil, err
	}
	return m, nil
}

// UpdateParams is a partial edit. Nil fields are unchanged. When Scope is
// set, RoomID and ThreadID default to the memory's current location.
type UpdateParams struct {
	ID         string
	Content    *string
	Scope      *model.Scope
	RoomID     string
	ThreadID   string
	Kind       *model.Kind
	Importance *float64
}

// Update edits a memory, marks it user-edited and records what changed.
func (s *Service) Update(ctx context.Context, p UpdateParams) (*model.Memory, error) {
	cur, err := s.store.GetMemory(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	if cur.Status == model.StatusDeleted {
		return nil, fmt.Errorf("%w: memory %s", model.ErrNotFound, p.ID)
	}
	if p.Content == nil && p.Scope == nil && p.Kind == nil && p.Importance == nil {
		return nil, fmt.Errorf("%w: nothing to update", model.ErrValidation)
	}

	source := model.SourceUserEdit
	up := store.UpdateMemoryParams{
		ID:         p.ID,
		Content:    p.Content,
		Kind:       p.Kind,
		Importance: p.Importance,
		Source:     &source,
	}
	if p.Scope != nil {
		if *p.Scope == model.ScopeSystem {
			return nil, fmt.Errorf("%w: cannot move a memory to system scope", model.ErrValidation)
		}
		roomID := firstNonEmpty(p.RoomID, cur.RoomID)
		threadID := firstNonEmpty(p.ThreadID, cur.ThreadID)
		up.Scope = p.Scope
		up.RoomID, up.ThreadID = model.Location(*p.Scope, roomID, threadID)
	}

	m, err := s.store.UpdateMemory(ctx, up)
	if err != nil {
		return nil, err
	}

	ev := model.NewEvent(m.OwnerID, m.RoomID, m.ThreadID, model.UpdatePayload{
		Content:    p.Content,
		Scope:      p.Scope,
		Kind:       p.Kind,
		Importance: p.Importance,
	})
	ev.MemoryID = m.ID
	if _, err := s.store.AddEvent(ctx, ev); err != nil {
		return nil, err
	}
	return m, nil
}

// Forget soft-deletes a memory. Forgetting an already deleted memory is a
// no-op.
func (s *Service) Forget(ctx context.Context, id string) error {
	changed, m, err := s.store.SoftDelete(ctx, id)
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}
	ev := model.NewEvent(m.OwnerID, m.RoomID, m.ThreadID, model.ForgetPayload{Content: m.Content})
	ev.MemoryID = m.ID
	_, err = s.store.AddEvent(ctx, ev)
	return err
}

// DiscardCandidate deletes a candidate event.
func (s *Service) DiscardCandidate(ctx context.Context, eventID string) error {
	if _, err := s.candidate(ctx, eventID); err != nil {
		return err
	}
	return s.store.DeleteEvent(ctx, eventID)
}

// AcceptCandidate pins the suggested memory and removes the suggestion.
func (s *Service) AcceptCandidate(ctx context.Context, eventID string) (*model.Memory, error) {
	ev, err := s.candidate(ctx, eventID)
	if err != nil {
		return nil, err
	}
	c, _ := ev.Candidate()

	scope := c.Scope
	if scope == model.ScopeThread && ev.ThreadID == "" {
		scope = model.ScopeRoom
	}
	roomID, threadID := model.Location(scope, ev.RoomID, ev.ThreadID)
	m, err := s.Pin(ctx, PinParams{
		OwnerID:    ev.OwnerID,
		Scope:      scope,
		RoomID:     roomID,
		ThreadID:   threadID,
		Kind:       c.Kind,
		Content:    c.Content,
		Importance: c.Importance,
	})
	if err != nil {
		return nil, err
	}
	if err := s.store.DeleteEvent(ctx, eventID); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *Service) candidate(ctx context.Context, eventID string) (*model.MemoryEvent, error) {
	ev, err := s.store.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if _, ok := ev.Candidate(); !ok {
		return nil, fmt.Errorf("%w: event %s is a %s event, not a candidate", model.ErrValidation, eventID, ev.Type)
	}
	return ev, nil
}

// RetrieveForReply builds the memory bundle for a reply.
func (s *Service) RetrieveForReply(ctx context.Context, p retriever.Params) (*retriever.Bundle, error) {
	if s.retriever == nil {
		return nil, fmt.Errorf("retrieval is not configured")
	}
	return s.retriever.Retrieve(ctx, p)
}

func (s *Service) SummarizeThread(ctx context.Context, threadID, ownerID string) (*summarizer.Result, error) {
	if s.summarizer == nil {
		return nil, fmt.Errorf("summarization is not configured")
	}
	return s.summarizer.SummarizeThread(ctx, threadID, ownerID)
}

func (s *Service) SummarizeRoom(ctx context.Context, roomID, ownerID string) (*summarizer.Result, error) {
	if s.summarizer == nil {
		return nil, fmt.Errorf("summarization is not configured")
	}
	return s.summarizer.SummarizeRoom(ctx, roomID, ownerID)
}

// IntakeForMessage runs intake synchronously for one message.
func (s *Service) IntakeForMessage(ctx context.Context, messageID string) (*intake.Result, error) {
	if s.intake == nil {
		return nil, fmt.Errorf("intake is not configured")
	}
	return s.intake.Run(ctx, messageID)
}

// CommandResult reports what ApplyCommand changed.
type CommandResult struct {
	Command   Command       `json:"command"`
	Pinned    *model.Memory `json:"pinned,omitempty"`
	Forgotten []string      `json:"forgotten,omitempty"`
}

// Importance given to memories created by a remember command.
const commandImportance = 0.8

// ApplyCommand executes a parsed memory command at a location. Remember pins
// a fact; forget deletes visible memories containing the phrase.
func (s *Service) ApplyCommand(ctx context.Context, ownerID, roomID, threadID string, cmd Command) (*CommandResult, error) {
	res := &CommandResult{Command: cmd}
	switch cmd.Type {
	case CommandRemember:
		pinRoom := roomID
		if cmd.Scope == model.ScopeGlobal {
			pinRoom = ""
		}
		m, err := s.Pin(ctx, PinParams{
			OwnerID:    ownerID,
			Scope:      cmd.Scope,
			RoomID:     pinRoom,
			Kind:       model.KindFact,
			Content:    cmd.Content,
			Importance: commandImportance,
		})
		if err != nil {
			return nil, err
		}
		res.Pinned = m

	case CommandForget:
		mems, err := s.ListForRoomAndThread(ctx, ownerID, roomID, threadID)
		if err != nil {
			return nil, err
		}
		phrase := strings.ToLower(cmd.Content)
		for _, m := range mems {
			if m.Scope == model.ScopeSystem || !strings.Contains(strings.ToLower(m.Content), phrase) {
				continue
			}
			if err := s.Forget(ctx, m.ID); err != nil {
				return nil, err
			}
			res.Forgotten = append(res.Forgotten, m.ID)
		}

	default:
		return nil, fmt.Errorf("%w: unknown command %q", model.ErrValidation, cmd.Type)
	}

	s.log.Info("memory command applied", "type", cmd.Type, "scope", cmd.Scope, "forgotten", len(res.Forgotten))
	return res, nil
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}
