// Package retriever ranks the memories and summaries visible from a
// conversation and packs the best ones into a token budget.
package retriever

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	cache "github.com/patrickmn/go-cache"

	"github.com/rcliao/mazlo-memory/internal/embedding"
	"github.com/rcliao/mazlo-memory/internal/logging"
	"github.com/rcliao/mazlo-memory/internal/model"
	"github.com/rcliao/mazlo-memory/internal/store"
)

// DefaultMaxTokens is the snippet budget when Params.MaxTokens is nil.
const DefaultMaxTokens = 1024

const (
	queryMessages = 5
	maxSummaries  = 3

	similarityWeight        = 0.6
	summarySimilarityWeight = 0.7
)

// Mode selects which memories are candidates.
type Mode string

const (
	// ModeRoom uses what is visible from the room and thread.
	ModeRoom Mode = "room"
	// ModeGlobal also adds every global memory of the owner.
	ModeGlobal Mode = "global"
)

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	return m == ModeRoom || m == ModeGlobal
}

// Params describes one retrieval. MaxTokens caps the estimated tokens of
// the memory snippets: nil means DefaultMaxTokens and zero yields none.
type Params struct {
	Mode             Mode
	OwnerID          string
	RoomID           string
	ThreadID         string
	RecentMessageIDs []string
	MaxTokens        *int
}

// Scored is a memory with its retrieval score.
type Scored struct {
	Memory model.Memory `json:"memory"`
	Score  float64      `json:"score"`
}

// Bundle is what gets interpolated into a prompt. SummaryLevels is parallel
// to Summaries, and Memories holds the packed memories in snippet order.
type Bundle struct {
	MemorySnippets []string `json:"memory_snippets"`
	Summaries      []string `json:"summaries"`
	SummaryLevels  []int    `json:"summary_levels"`
	Memories       []Scored `json:"memories"`
	UsedTokens     int      `json:"used_tokens"`
	Budget         int      `json:"budget"`
}

// Store is the persistence retrieval reads.
type Store interface {
	ListVisible(ctx context.Context, p store.VisibleParams) ([]model.Memory, error)
	ListGlobal(ctx context.Context, ownerID string) ([]model.Memory, error)
	ListSummaries(ctx context.Context, ownerID, roomID, threadID string) ([]model.MemorySummary, error)
	GetMessagesByID(ctx context.Context, ids []string) ([]model.Message, error)
	MarkUsed(ctx context.Context, ids []string) error
}

type Retriever struct {
	store    Store
	embedder embedding.Embedder
	queries  *cache.Cache
	log      *logging.Logger
}

// New builds a Retriever. embedder may be nil, which disables similarity.
// Query vectors are cached for queryTTL.
func New(st Store, e embedding.Embedder, queryTTL time.Duration, log *logging.Logger) *Retriever {
	if queryTTL <= 0 {
		queryTTL = 10 * time.Minute
	}
	return &Retriever{
		store:    st,
		embedder: e,
		queries:  cache.New(queryTTL, 2*queryTTL),
		log:      log.Named("retriever"),
	}
}

// Retrieve builds the bundle. An empty mode means room and any other unknown
// mode is a validation error. Embedding problems only disable similarity;
// store errors are returned.
func (r *Retriever) Retrieve(ctx context.Context, p Params) (*Bundle, error) {
	if p.Mode == "" {
		p.Mode = ModeRoom
	}
	if !p.Mode.Valid() {
		return nil, fmt.Errorf("%w: unknown retrieval mode %q", model.ErrValidation, p.Mode)
	}

	budget := DefaultMaxTokens
	if p.MaxTokens != nil {
		budget = max(*p.MaxTokens, 0)
	}

	candidates, err := r.candidates(ctx, p)
	if err != nil {
		return nil, err
	}

	var query embedding.Vector
	if len(p.RecentMessageIDs) > 0 && anyEmbedded(candidates) {
		query = r.queryVector(ctx, p.RecentMessageIDs)
	}

	scored := make([]Scored, len(candidates))
	for i, m := range candidates {
		scored[i] = Scored{Memory: m, Score: score(m, query)}
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })

	b := &Bundle{MemorySnippets: []string{}, Summaries: []string{}, SummaryLevels: []int{}, Budget: budget}
	for _, s := range scored {
		snippet := s.Memory.Snippet()
		cost := EstimateTokens(snippet)
		if b.UsedTokens+cost > budget {
			break
		}
		b.MemorySnippets = append(b.MemorySnippets, snippet)
		b.Memories = append(b.Memories, s)
		b.UsedTokens += cost
	}

	sums, err := r.store.ListSummaries(ctx, p.OwnerID, p.RoomID, p.ThreadID)
	if err != nil {
		return nil, fmt.Errorf("list summaries: %w", err)
	}
	for _, s := range rankSummaries(sums, query) {
		b.Summaries = append(b.Summaries, s.Content)
		b.SummaryLevels = append(b.SummaryLevels, s.Level)
	}

	if len(b.Memories) > 0 {
		ids := make([]string, len(b.Memories))
		for i, s := range b.Memories {
			ids[i] = s.Memory.ID
		}
		if err := r.store.MarkUsed(ctx, ids); err != nil {
			r.log.Warn("mark used", "count", len(ids), "error", err)
		}
	}
	return b, nil
}

func (r *Retriever) candidates(ctx context.Context, p Params) ([]model.Memory, error) {
	visible, err := r.store.ListVisible(ctx, store.VisibleParams{OwnerID: p.OwnerID, RoomID: p.RoomID, ThreadID: p.ThreadID})
	if err != nil {
		return nil, fmt.Errorf("list visible memories: %w", err)
	}
	if p.Mode != ModeGlobal {
		return visible, nil
	}

	globals, err := r.store.ListGlobal(ctx, p.OwnerID)
	if err != nil {
		return nil, fmt.Errorf("list global memories: %w", err)
	}
	seen := make(map[string]bool, len(visible))
	for _, m := range visible {
		seen[m.ID] = true
	}
	for _, m := range globals {
		if !seen[m.ID] {
			seen[m.ID] = true
			visible = append(visible, m)
		}
	}
	return visible, nil
}

// queryVector embeds the last recent messages. It returns nil on any failure.
func (r *Retriever) queryVector(ctx context.Context, ids []string) embedding.Vector {
	if r.embedder == nil {
		return nil
	}
	if len(ids) > queryMessages {
		ids = ids[len(ids)-queryMessages:]
	}
	msgs, err := r.store.GetMessagesByID(ctx, ids)
	if err != nil {
		r.log.Warn("load query messages", "error", err)
		return nil
	}
	parts := make([]string, 0, len(msgs))
	for _, m := range msgs {
		parts = append(parts, m.Content)
	}
	text := strings.Join(parts, " ")
	if strings.TrimSpace(text) == "" {
		return nil
	}

	if v, ok := r.queries.Get(text); ok {
		return v.(embedding.Vector)
	}
	vecs, err := r.embedder.Embed(ctx, []string{text})
	if err != nil || len(vecs) != 1 {
		r.log.Warn("query embedding failed", "error", err)
		return nil
	}
	r.queries.Set(text, vecs[0], cache.DefaultExpiration)
	return vecs[0]
}

func score(m model.Memory, query embedding.Vector) float64 {
	base := m.Importance * m.RecencyScore
	if len(query) == 0 || len(m.Embedding) == 0 {
		return base
	}
	sim := embedding.CosineSimilarity(query, m.Embedding)
	return sim*similarityWeight + base*(1-similarityWeight)
}

// rankSummaries orders by similarity blended with level when a query vector
// exists, otherwise by level, and keeps the top three.
func rankSummaries(sums []model.MemorySummary, query embedding.Vector) []model.MemorySummary {
	out := append([]model.MemorySummary(nil), sums...)
	scoreOf := func(s model.MemorySummary) float64 {
		level := float64(s.Level)
		if len(query) == 0 || len(s.Embedding) == 0 {
			return level
		}
		sim := embedding.CosineSimilarity(query, s.Embedding)
		return sim*summarySimilarityWeight + level*(1-summarySimilarityWeight)
	}
	if len(query) == 0 {
		sort.SliceStable(out, func(i, j int) bool { return out[i].Level > out[j].Level })
	} else {
		sort.SliceStable(out, func(i, j int) bool { return scoreOf(out[i]) > scoreOf(out[j]) })
	}
	if len(out) > maxSummaries {
		out = out[:maxSummaries]
	}
	return out
}

func anyEmbedded(mems []model.Memory) bool {
	for _, m := range mems {
		if len(m.Embedding) > 0 {
			return true
		}
	}
	return false
}

// EstimateTokens approximates tokens as a quarter of the rune count,
// rounded up.
func EstimateTokens(s string) int {
	return (len([]rune(s)) + 3) / 4
}
