// Package intake turns conversation turns into stored memories: it asks the
// planner for candidates, writes or merges the important ones and records
// the rest as suggestions.
package intake

import (
	"context"
	"fmt"

	"github.com/rcliao/mazlo-memory/internal/embedding"
	"github.com/rcliao/mazlo-memory/internal/logging"
	"github.com/rcliao/mazlo-memory/internal/model"
	"github.com/rcliao/mazlo-memory/internal/planner"
	"github.com/rcliao/mazlo-memory/internal/store"
	"github.com/rcliao/mazlo-memory/internal/summarizer"
)

const (
	// WriteThreshold is the importance at which a candidate becomes a memory
	// without being pinned.
	WriteThreshold = 0.6

	recentMessageLimit = 20
	plannerSnippets    = 10
)

// Store is the persistence intake reads and writes.
type Store interface {
	store.ChatStore
	ListVisible(ctx context.Context, p store.VisibleParams) ([]model.Memory, error)
	CreateMemory(ctx context.Context, p store.CreateMemoryParams) (*model.Memory, error)
	UpdateMemory(ctx context.Context, p store.UpdateMemoryParams) (*model.Memory, error)
	SetEmbedding(ctx context.Context, id string, vec []float32) error
	AddEvent(ctx context.Context, e model.MemoryEvent) (*model.MemoryEvent, error)
}

// Planner proposes memories for a conversation turn.
type Planner interface {
	Plan(ctx context.Context, in planner.Input) (*planner.Plan, error)
}

// Summarizer regenerates summaries when the planner asks for it.
type Summarizer interface {
	SummarizeThread(ctx context.Context, threadID, ownerID string) (*summarizer.Result, error)
	SummarizeRoom(ctx context.Context, roomID, ownerID string) (*summarizer.Result, error)
}

// Result reports what one intake run did.
type Result struct {
	CandidatesProcessed   int  `json:"candidates_processed"`
	MemoriesWritten       int  `json:"memories_written"`
	ShouldSummarizeThread bool `json:"should_summarize_thread"`
	ShouldSummarizeRoom   bool `json:"should_summarize_room"`
	Skipped               bool `json:"skipped"`
}

type Pipeline struct {
	store      Store
	planner    Planner
	embedder   embedding.Embedder
	summarizer Summarizer
	log        *logging.Logger
}

type Option func(*Pipeline)

// WithEmbedder enables embedding of written memories.
func WithEmbedder(e embedding.Embedder) Option {
	return func(p *Pipeline) { p.embedder = e }
}

// WithSummarizer lets planner summary signals trigger regeneration.
func WithSummarizer(s Summarizer) Option {
	return func(p *Pipeline) { p.summarizer = s }
}

func New(st Store, pl Planner, log *logging.Logger, opts ...Option) *Pipeline {
	p := &Pipeline{store: st, planner: pl, log: log.Named("intake")}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Run analyses one persisted message. Missing message, room or thread is
// an error; planner failures are logged and produce an empty result.
func (p *Pipeline) Run(ctx context.Context, messageID string) (*Result, error) {
	msg, err := p.store.GetMessage(ctx, messageID)
	if err != nil {
		return nil, err
	}
	room, err := p.store.GetRoom(ctx, msg.RoomID)
	if err != nil {
		return nil, err
	}
	var thread *model.Thread
	if msg.ThreadID != "" {
		if thread, err = p.store.GetThread(ctx, msg.ThreadID); err != nil {
			return nil, err
		}
	}
	owner := room.OwnerID

	settings, err := p.store.GetSettings(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	if !settings.MemoryEnabled {
		return &Result{Skipped: true}, nil
	}

	recent, err := p.store.GetRecentMessages(ctx, room.ID, msg.ThreadID, recentMessageLimit)
	if err != nil {
		return nil, fmt.Errorf("load recent messages: %w", err)
	}
	corpus, err := p.store.ListVisible(ctx, store.VisibleParams{OwnerID: owner, RoomID: room.ID, ThreadID: msg.ThreadID})
	if err != nil {
		return nil, fmt.Errorf("load existing memories: %w", err)
	}

	loc := planner.Location{
		OwnerID:   owner,
		RoomID:    room.ID,
		RoomTitle: room.Title,
		RoomType:  room.Type,
		ThreadID:  msg.ThreadID,
	}
	if thread != nil {
		loc.ThreadTitle = thread.Title
	}
	plan, err := p.planner.Plan(ctx, planner.Input{
		Location: loc,
		Messages: recent,
		Existing: topSnippets(corpus, plannerSnippets),
	})
	if err != nil {
		p.log.Warn("planner failed", "message_id", messageID, "error", err)
		return &Result{}, nil
	}

	res := &Result{
		ShouldSummarizeThread: plan.ShouldSummarizeThread,
		ShouldSummarizeRoom:   plan.ShouldSummarizeRoom,
	}
	var toEmbed []model.Memory
	for _, c := range plan.Candidates {
		res.CandidatesProcessed++

		if c.Scope == model.ScopeThread && msg.ThreadID == "" {
			c.Scope = model.ScopeRoom
		}

		if c.Importance < WriteThreshold && !c.SuggestPin {
			ev := model.NewEvent(owner, room.ID, msg.ThreadID, model.CandidatePayload{
				Scope:      c.Scope,
				Kind:       c.Kind,
				Content:    c.Content,
				Importance: c.Importance,
				Reason:     c.Reason,
				SuggestPin: c.SuggestPin,
			})
			ev.SourceMessageID = msg.ID
			if _, err := p.store.AddEvent(ctx, ev); err != nil {
				return nil, err
			}
			continue
		}

		m, merged, err := p.write(ctx, owner, msg, c, corpus)
		if err != nil {
			return nil, err
		}
		res.MemoriesWritten++
		toEmbed = append(toEmbed, *m)

		ev := model.NewEvent(owner, room.ID, msg.ThreadID, model.WritePayload{
			Content:    m.Content,
			Reason:     c.Reason,
			SuggestPin: c.SuggestPin,
			Merged:     merged,
		})
		ev.SourceMessageID = msg.ID
		ev.MemoryID = m.ID
		if _, err := p.store.AddEvent(ctx, ev); err != nil {
			return nil, err
		}
	}

	p.embed(ctx, toEmbed)
	p.summarize(ctx, owner, room.ID, thread, plan)

	p.log.Debug("intake done", "message_id", messageID,
		"candidates", res.CandidatesProcessed, "written", res.MemoriesWritten)
	return res, nil
}

// write merges the candidate into a matching memory or inserts a new one.
func (p *Pipeline) write(ctx context.Context, owner string, msg *model.Message, c planner.Candidate, corpus []model.Memory) (*model.Memory, bool, error) {
	if existing := findMergeTarget(corpus, c); existing != nil {
		recency := 1.0
		m, err := p.store.UpdateMemory(ctx, store.UpdateMemoryParams{
			ID:           existing.ID,
			Content:      &c.Content,
			Importance:   &c.Importance,
			RecencyScore: &recency,
		})
		if err != nil {
			return nil, false, fmt.Errorf("merge memory %s: %w", existing.ID, err)
		}
		return m, true, nil
	}

	roomID, threadID := model.Location(c.Scope, msg.RoomID, msg.ThreadID)
	m, err := p.store.CreateMemory(ctx, store.CreateMemoryParams{
		OwnerID:    owner,
		Scope:      c.Scope,
		RoomID:     roomID,
		ThreadID:   threadID,
		Kind:       c.Kind,
		Source:     model.SourceAutoExtracted,
		Content:    c.Content,
		Importance: c.Importance,
	})
	if err != nil {
		return nil, false, fmt.Errorf("insert memory: %w", err)
	}
	return m, false, nil
}

// embed vectors the written memories in one batch. Failures leave the
// memories without vectors.
func (p *Pipeline) embed(ctx context.Context, mems []model.Memory) {
	if p.embedder == nil || len(mems) == 0 {
		return
	}
	texts := make([]string, len(mems))
	for i, m := range mems {
		texts[i] = m.Content
	}
	vecs, err := p.embedder.Embed(ctx, texts)
	if err != nil {
		p.log.Warn("embedding failed", "count", len(texts), "error", err)
		return
	}
	for i, v := range vecs {
		if err := p.store.SetEmbedding(ctx, mems[i].ID, v); err != nil {
			p.log.Warn("store embedding", "memory_id", mems[i].ID, "error", err)
		}
	}
}

func (p *Pipeline) summarize(ctx context.Context, owner, roomID string, thread *model.Thread, plan *planner.Plan) {
	if p.summarizer == nil {
		return
	}
	if plan.ShouldSummarizeThread && thread != nil {
		if _, err := p.summarizer.SummarizeThread(ctx, thread.ID, owner); err != nil {
			p.log.Warn("thread summary failed", "thread", thread.ID, "error", err)
		}
	}
	if plan.ShouldSummarizeRoom {
		if _, err := p.summarizer.SummarizeRoom(ctx, roomID, owner); err != nil {
			p.log.Warn("room summary failed", "room", roomID, "error", err)
		}
	}
}

// topSnippets renders the first n memories, which ListVisible orders by
// importance.
func topSnippets(mems []model.Memory, n int) []string {
	if len(mems) > n {
		mems = mems[:n]
	}
	out := make([]string, len(mems))
	for i, m := range mems {
		out[i] = m.Snippet()
	}
	return out
}
