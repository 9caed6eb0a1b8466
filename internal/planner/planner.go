// Package planner asks the language model which memories a conversation
// turn should produce and validates its answer.
package planner

import (
	"context"
	"fmt"

	"github.com/rcliao/mazlo-memory/internal/llm"
	"github.com/rcliao/mazlo-memory/internal/logging"
	"github.com/rcliao/mazlo-memory/internal/model"
)

// Sampling for plan requests. Low temperature keeps the JSON parseable.
const (
	Temperature = 0.3
	MaxTokens   = 2000
)

// Input is everything the planner sees.
type Input struct {
	Location Location
	Messages []model.Message
	Existing []string
}

type Planner struct {
	llm llm.Completer
	log *logging.Logger
}

func New(c llm.Completer, log *logging.Logger) *Planner {
	return &Planner{llm: c, log: log.Named("planner")}
}

// Plan returns a validated plan. Completion failures wrap
// model.ErrExternalService, malformed output wraps model.ErrParse.
func (p *Planner) Plan(ctx context.Context, in Input) (*Plan, error) {
	raw, err := p.llm.Complete(ctx, systemPrompt, buildUserPrompt(in.Location, in.Messages, in.Existing), llm.Options{
		Temperature: Temperature,
		MaxTokens:   MaxTokens,
		JSONMode:    true,
	})
	if err != nil {
		return nil, fmt.Errorf("plan completion: %w", err)
	}

	plan, err := Parse(raw)
	if err != nil {
		p.log.Debug("rejected plan", "room", in.Location.RoomID, "raw", raw)
		return nil, err
	}
	return plan, nil
}
