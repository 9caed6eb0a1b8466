// Package orchestrator produces Mazlo's replies: it persists the turn,
// applies memory commands, retrieves memory, asks the model and queues both
// messages for intake.
package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"github.com/rcliao/mazlo-memory/internal/llm"
	"github.com/rcliao/mazlo-memory/internal/logging"
	"github.com/rcliao/mazlo-memory/internal/memory"
	"github.com/rcliao/mazlo-memory/internal/model"
	"github.com/rcliao/mazlo-memory/internal/retriever"
	"github.com/rcliao/mazlo-memory/internal/store"
)

const (
	Temperature    = 0.7
	historyLimit   = 40
	replyMaxTokens = 2000
)

const systemPrompt = `You are Mazlo, a thoughtful assistant that lives inside the user's chat rooms.
Use the summaries and memories below when they are relevant to the conversation.
Never invent memories. If a memory conflicts with what the user just said, trust the user.
Answer in the language the user writes in.`

// Store is the chat persistence a reply touches.
type Store interface {
	GetRoom(ctx context.Context, id string) (*model.Room, error)
	AddMessage(ctx context.Context, p store.AddMessageParams) (*model.Message, error)
	GetRecentMessages(ctx context.Context, roomID, threadID string, limit int) ([]model.Message, error)
}

// Enqueuer accepts messages for background intake.
type Enqueuer interface {
	Submit(messageID string) bool
}

// ReplyParams describes one user turn. Mode defaults to room retrieval and
// a nil MaxTokens uses the retriever default.
type ReplyParams struct {
	OwnerID   string
	RoomID    string
	ThreadID  string
	Content   string
	Mode      retriever.Mode
	MaxTokens *int
}

// Reply is the outcome of one turn.
type Reply struct {
	UserMessage      *model.Message        `json:"user_message"`
	AssistantMessage *model.Message        `json:"assistant_message"`
	Bundle           *retriever.Bundle     `json:"bundle"`
	Command          *memory.CommandResult `json:"command,omitempty"`
	IntakeQueued     int                   `json:"intake_queued"`
}

type Orchestrator struct {
	store  Store
	memory *memory.Service
	llm    llm.Completer
	queue  Enqueuer
	log    *logging.Logger
}

// New builds an Orchestrator. queue may be nil, in which case no intake is
// scheduled.
func New(st Store, mem *memory.Service, c llm.Completer, q Enqueuer, log *logging.Logger) *Orchestrator {
	return &Orchestrator{store: st, memory: mem, llm: c, queue: q, log: log.Named("orchestrator")}
}

// Reply handles a user message end to end. The user message is stored
// before anything else, so it survives a failed completion. A retrieval
// failure does not fail the turn; the reply is produced without memory.
func (o *Orchestrator) Reply(ctx context.Context, p ReplyParams) (*Reply, error) {
	room, err := o.store.GetRoom(ctx, p.RoomID)
	if err != nil {
		return nil, err
	}
	if room.OwnerID != p.OwnerID {
		return nil, fmt.Errorf("%w: room %s", model.ErrNotFound, p.RoomID)
	}
	if p.Mode == "" {
		p.Mode = retriever.ModeRoom
	}
	if !p.Mode.Valid() {
		return nil, fmt.Errorf("%w: unknown retrieval mode %q", model.ErrValidation, p.Mode)
	}

	userMsg, err := o.store.AddMessage(ctx, store.AddMessageParams{
		RoomID: p.RoomID, ThreadID: p.ThreadID, Role: model.RoleUser, Content: p.Content,
	})
	if err != nil {
		return nil, fmt.Errorf("save user message: %w", err)
	}
	out := &Reply{UserMessage: userMsg}
	log := o.log.With("room", p.RoomID, "thread", p.ThreadID)

	if cmd, ok := memory.ParseCommand(p.Content); ok {
		res, err := o.memory.ApplyCommand(ctx, p.OwnerID, p.RoomID, p.ThreadID, cmd)
		if err != nil {
			log.Warn("memory command failed", "type", cmd.Type, "error", err)
		} else {
			out.Command = res
		}
	}

	recent, err := o.store.GetRecentMessages(ctx, p.RoomID, p.ThreadID, historyLimit)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	ids := make([]string, len(recent))
	for i, m := range recent {
		ids[i] = m.ID
	}

	bundle, err := o.memory.RetrieveForReply(ctx, retriever.Params{
		Mode:             p.Mode,
		OwnerID:          p.OwnerID,
		RoomID:           p.RoomID,
		ThreadID:         p.ThreadID,
		RecentMessageIDs: ids,
		MaxTokens:        p.MaxTokens,
	})
	if err != nil {
		log.Warn("retrieval failed, replying without memory", "error", err)
		bundle = &retriever.Bundle{MemorySnippets: []string{}, Summaries: []string{}, SummaryLevels: []int{}}
	}
	out.Bundle = bundle

	system := memory.BuildPrompt(systemPrompt, bundle, withoutMessage(recent, userMsg.ID))
	text, err := o.llm.Complete(ctx, system, p.Content, llm.Options{Temperature: Temperature, MaxTokens: replyMaxTokens})
	if err != nil {
		return nil, fmt.Errorf("%w: reply completion: %v", model.ErrExternalService, err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: empty reply", model.ErrExternalService)
	}

	reply, err := o.store.AddMessage(ctx, store.AddMessageParams{
		RoomID: p.RoomID, ThreadID: p.ThreadID, Role: model.RoleAssistant, Content: text,
	})
	if err != nil {
		return nil, fmt.Errorf("save reply: %w", err)
	}
	out.AssistantMessage = reply

	if o.queue != nil {
		for _, id := range []string{userMsg.ID, reply.ID} {
			if o.queue.Submit(id) {
				out.IntakeQueued++
			}
		}
	}
	log.Info("reply", "memories", len(bundle.MemorySnippets), "summaries", len(bundle.Summaries), "intake_queued", out.IntakeQueued)
	return out, nil
}

// withoutMessage drops the current turn from the history; it is sent as the
// user prompt instead.
func withoutMessage(msgs []model.Message, id string) []model.Message {
	out := make([]model.Message, 0, len(msgs))
	for _, m := range msgs {
		if m.ID != id {
			out = append(out, m)
		}
	}
	return out
}
