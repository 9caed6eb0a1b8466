package planner

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rcliao/mazlo-memory/internal/model"
)

// Candidate is a proposed memory.
type Candidate struct {
	Scope      model.Scope `json:"scope"`
	Kind       model.Kind  `json:"kind"`
	Importance float64     `json:"importance"`
	Content    string      `json:"content"`
	Reason     string      `json:"reason"`
	SuggestPin bool        `json:"suggestPin"`
}

// Plan is the planner's decision for one message.
type Plan struct {
	Candidates            []Candidate `json:"candidates"`
	ShouldSummarizeThread bool        `json:"shouldSummarizeThread"`
	ShouldSummarizeRoom   bool        `json:"shouldSummarizeRoom"`
}

// Parse validates raw model output into a Plan. Any malformed candidate
// fails the whole plan with model.ErrParse.
func Parse(raw string) (*Plan, error) {
	text := stripFence(raw)

	var top map[string]json.RawMessage
	if err := json.Unmarshal([]byte(text), &top); err != nil {
		return nil, fmt.Errorf("%w: plan is not a JSON object: %v", model.ErrParse, err)
	}

	rawCands, ok := top["candidates"]
	if !ok {
		return nil, fmt.Errorf("%w: candidates missing", model.ErrParse)
	}
	var items []json.RawMessage
	if !isArray(rawCands) || json.Unmarshal(rawCands, &items) != nil {
		return nil, fmt.Errorf("%w: candidates is not an array", model.ErrParse)
	}

	plan := &Plan{Candidates: make([]Candidate, 0, len(items))}
	for i, item := range items {
		c, err := parseCandidate(item)
		if err != nil {
			return nil, fmt.Errorf("%w: candidate %d: %v", model.ErrParse, i, err)
		}
		plan.Candidates = append(plan.Candidates, c)
	}

	var err error
	if plan.ShouldSummarizeThread, err = optionalBool(top, "shouldSummarizeThread"); err != nil {
		return nil, err
	}
	if plan.ShouldSummarizeRoom, err = optionalBool(top, "shouldSummarizeRoom"); err != nil {
		return nil, err
	}
	return plan, nil
}

func parseCandidate(item json.RawMessage) (Candidate, error) {
	var c Candidate
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(item, &fields); err != nil {
		return c, fmt.Errorf("not an object")
	}

	var scope, kind string
	if err := field(fields, "scope", &scope); err != nil {
		return c, err
	}
	if err := field(fields, "kind", &kind); err != nil {
		return c, err
	}
	if err := field(fields, "importance", &c.Importance); err != nil {
		return c, err
	}
	if err := field(fields, "content", &c.Content); err != nil {
		return c, err
	}
	if err := field(fields, "reason", &c.Reason); err != nil {
		return c, err
	}
	if err := field(fields, "suggestPin", &c.SuggestPin); err != nil {
		return c, err
	}

	c.Scope = model.Scope(scope)
	c.Kind = model.Kind(kind)
	if !model.PlannerScopes[c.Scope] {
		return c, fmt.Errorf("invalid scope %q", scope)
	}
	if !model.ValidKinds[c.Kind] {
		return c, fmt.Errorf("invalid kind %q", kind)
	}
	if c.Importance < 0 || c.Importance > 1 {
		return c, fmt.Errorf("importance %v outside [0,1]", c.Importance)
	}
	c.Content = strings.TrimSpace(c.Content)
	if c.Content == "" {
		return c, fmt.Errorf("content is empty")
	}
	return c, nil
}

// field decodes a required, non-null field. json.Unmarshal enforces the
// Go type, so a quoted number or a string boolean is rejected.
func field(fields map[string]json.RawMessage, name string, dst any) error {
	raw, ok := fields[name]
	if !ok || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return fmt.Errorf("%s missing", name)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("%s has wrong type", name)
	}
	return nil
}

func optionalBool(top map[string]json.RawMessage, name string) (bool, error) {
	raw, ok := top[name]
	if !ok {
		return false, nil
	}
	var v bool
	if err := json.Unmarshal(raw, &v); err != nil || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return false, fmt.Errorf("%w: %s is not a boolean", model.ErrParse, name)
	}
	return v, nil
}

func isArray(raw json.RawMessage) bool {
	t := bytes.TrimSpace(raw)
	return len(t) > 0 && t[0] == '['
}

// stripFence removes a surrounding ```json ... ``` or ``` ... ``` block.
func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		// Drop the info string ("json") on the opening line.
		if !strings.Contains(s[:nl], "{") {
			s = s[nl+1:]
		}
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
