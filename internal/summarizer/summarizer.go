// Package summarizer condenses a thread (level 1) or a room (level 2) into
// a short summary that retrieval can include in prompts.
package summarizer

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/rcliao/mazlo-memory/internal/embedding"
	"github.com/rcliao/mazlo-memory/internal/llm"
	"github.com/rcliao/mazlo-memory/internal/logging"
	"github.com/rcliao/mazlo-memory/internal/model"
	"github.com/rcliao/mazlo-memory/internal/store"
)

const (
	threadMessageLimit  = 200
	roomThreadLimit     = 10
	roomPerThreadLimit  = 50
	roomTranscriptLimit = 100

	temperature     = 0.5
	threadMaxTokens = 500
	roomMaxTokens   = 700
)

// Store is the persistence the summarizer needs.
type Store interface {
	GetRoom(ctx context.Context, id string) (*model.Room, error)
	GetThread(ctx context.Context, id string) (*model.Thread, error)
	ListThreadsByRoom(ctx context.Context, roomID string, limit int) ([]model.Thread, error)
	GetRecentMessages(ctx context.Context, roomID, threadID string, limit int) ([]model.Message, error)
	UpsertSummary(ctx context.Context, p store.UpsertSummaryParams) (*model.MemorySummary, error)
	SetSummaryEmbedding(ctx context.Context, id string, vec []float32) error
	AddEvent(ctx context.Context, e model.MemoryEvent) (*model.MemoryEvent, error)
}

// Result reports what a summarize call did. Skipped means there were no
// messages and nothing was written.
type Result struct {
	Skipped bool                 `json:"skipped"`
	Summary *model.MemorySummary `json:"summary,omitempty"`
}

type Summarizer struct {
	store    Store
	llm      llm.Completer
	embedder embedding.Embedder
	log      *logging.Logger
}

// New builds a Summarizer. embedder may be nil.
func New(st Store, c llm.Completer, e embedding.Embedder, log *logging.Logger) *Summarizer {
	return &Summarizer{store: st, llm: c, embedder: e, log: log.Named("summarizer")}
}

// SummarizeThread regenerates the level-1 summary of a thread.
func (s *Summarizer) SummarizeThread(ctx context.Context, threadID, ownerID string) (*Result, error) {
	thread, err := s.store.GetThread(ctx, threadID)
	if err != nil {
		return nil, err
	}
	room, err := s.store.GetRoom(ctx, thread.RoomID)
	if err != nil {
		return nil, err
	}

	msgs, err := s.store.GetRecentMessages(ctx, room.ID, thread.ID, threadMessageLimit)
	if err != nil {
		return nil, fmt.Errorf("load thread messages: %w", err)
	}
	if len(msgs) == 0 {
		return &Result{Skipped: true}, nil
	}

	user := fmt.Sprintf(`Summarize the thread conversation below. Extract key decisions, important information and progress.

Thread title: %s
Room: %s

Conversation:
%s

Summarize the core content, key decisions and progress of this thread in 3-5 sentences.`,
		thread.Title, room.Title, transcript(msgs))

	content, err := s.complete(ctx, threadSystemPrompt, user, threadMaxTokens)
	if err != nil {
		return nil, fmt.Errorf("summarize thread %s: %w", threadID, err)
	}

	return s.save(ctx, store.UpsertSummaryParams{
		OwnerID:  ownerID,
		RoomID:   room.ID,
		ThreadID: thread.ID,
		Level:    model.LevelThread,
		TimeFrom: msgs[0].CreatedAt,
		TimeTo:   msgs[len(msgs)-1].CreatedAt,
		Content:  content,
	})
}

// SummarizeRoom regenerates the level-2 summary of a room from the recent
// messages of its first threads.
func (s *Summarizer) SummarizeRoom(ctx context.Context, roomID, ownerID string) (*Result, error) {
	room, err := s.store.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	threads, err := s.store.ListThreadsByRoom(ctx, room.ID, roomThreadLimit)
	if err != nil {
		return nil, fmt.Errorf("list threads: %w", err)
	}

	perThread := make([][]model.Message, len(threads))
	g, gctx := errgroup.WithContext(ctx)
	for i, th := range threads {
		g.Go(func() error {
			msgs, err := s.store.GetRecentMessages(gctx, room.ID, th.ID, roomPerThreadLimit)
			if err != nil {
				return fmt.Errorf("load messages for thread %s: %w", th.ID, err)
			}
			perThread[i] = msgs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []model.Message
	for _, msgs := range perThread {
		all = append(all, msgs...)
	}
	if len(all) == 0 {
		return &Result{Skipped: true}, nil
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].CreatedAt.Before(all[j].CreatedAt) })
	if len(all) > roomTranscriptLimit {
		all = all[len(all)-roomTranscriptLimit:]
	}

	var sb strings.Builder
	sb.WriteString("Summarize all conversations in the room below. Extract the room's goals, key decisions, important milestones and overall progress.\n\n")
	fmt.Fprintf(&sb, "Room title: %s\nRoom type: %s\n", room.Title, room.Type)
	if room.Description != "" {
		fmt.Fprintf(&sb, "Room description: %s\n", room.Description)
	}
	fmt.Fprintf(&sb, "\nConversation (from several threads):\n%s\n\n", transcript(all))
	sb.WriteString("Summarize the overall state, project goals, key decisions and milestones of this room in 5-7 sentences.")

	content, err := s.complete(ctx, roomSystemPrompt, sb.String(), roomMaxTokens)
	if err != nil {
		return nil, fmt.Errorf("summarize room %s: %w", roomID, err)
	}

	return s.save(ctx, store.UpsertSummaryParams{
		OwnerID:  ownerID,
		RoomID:   room.ID,
		Level:    model.LevelRoom,
		TimeFrom: all[0].CreatedAt,
		TimeTo:   all[len(all)-1].CreatedAt,
		Content:  content,
	})
}

func (s *Summarizer) complete(ctx context.Context, system, user string, maxTokens int) (string, error) {
	out, err := s.llm.Complete(ctx, system, user, llm.Options{Temperature: temperature, MaxTokens: maxTokens})
	if err != nil {
		if errors.Is(err, model.ErrExternalService) {
			return "", err
		}
		return "", fmt.Errorf("%w: %v", model.ErrExternalService, err)
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "", fmt.Errorf("%w: no summary generated", model.ErrExternalService)
	}
	return out, nil
}

// save upserts the summary, embeds it best effort and records the event.
func (s *Summarizer) save(ctx context.Context, p store.UpsertSummaryParams) (*Result, error) {
	sum, err := s.store.UpsertSummary(ctx, p)
	if err != nil {
		return nil, err
	}

	if s.embedder != nil {
		vecs, err := s.embedder.Embed(ctx, []string{sum.Content})
		switch {
		case err != nil:
			s.log.Warn("summary embedding failed", "summary_id", sum.ID, "error", err)
		case len(vecs) == 1:
			if err := s.store.SetSummaryEmbedding(ctx, sum.ID, vecs[0]); err != nil {
				s.log.Warn("store summary embedding", "summary_id", sum.ID, "error", err)
			} else {
				sum.Embedding = vecs[0]
			}
		}
	}

	ev := model.NewEvent(p.OwnerID, p.RoomID, p.ThreadID, model.SummarizePayload{Level: p.Level, SummaryID: sum.ID})
	if _, err := s.store.AddEvent(ctx, ev); err != nil {
		return nil, err
	}

	s.log.Info("summary updated", "level", p.Level, "room", p.RoomID, "thread", p.ThreadID, "summary_id", sum.ID)
	return &Result{Summary: sum}, nil
}

func transcript(msgs []model.Message) string {
	lines := make([]string, 0, len(msgs))
	for _, m := range msgs {
		lines = append(lines, m.Role.Label()+": "+m.Content)
	}
	return strings.Join(lines, "\n\n")
}

const threadSystemPrompt = `You are Mazlo's summary writer. Turn the conversation history into a concise, useful summary that:
1. Highlights key decisions and important information.
2. Stays short (usually 3-5 sentences).
3. Is easy to retrieve and understand later.`

const roomSystemPrompt = `You are Mazlo's summary writer. Turn all conversations of a room into a concise, useful summary that:
1. Highlights the room's goals and overall state.
2. Covers key decisions and important milestones.
3. Stays short (usually 5-7 sentences).
4. Is easy to retrieve and understand later.`
