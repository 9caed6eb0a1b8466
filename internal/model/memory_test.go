package model

import (
	"errors"
	"testing"
)

func TestValidateScope(t *testing.T) {
	tests := []struct {
		name     string
		scope    Scope
		room     string
		thread   string
		wantFail bool
	}{
		{"thread ok", ScopeThread, "r1", "t1", false},
		{"thread missing thread", ScopeThread, "r1", "", true},
		{"thread missing room", ScopeThread, "", "t1", true},
		{"room ok", ScopeRoom, "r1", "", false},
		{"room with thread", ScopeRoom, "r1", "t1", true},
		{"room missing room", ScopeRoom, "", "", true},
		{"global ok", ScopeGlobal, "", "", false},
		{"global with room", ScopeGlobal, "r1", "", true},
		{"system ok", ScopeSystem, "", "", false},
		{"unknown", Scope("team"), "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateScope(tt.scope, tt.room, tt.thread)
			if tt.wantFail {
				if !errors.Is(err, ErrValidation) {
					t.Errorf("expected validation error, got %v", err)
				}
			} else if err != nil {
				t.Errorf("expected no error, got %v", err)
			}
		})
	}
}

func TestMemoryValidate(t *testing.T) {
	base := Memory{OwnerID: "u1", Scope: ScopeGlobal, Kind: KindFact, Content: "likes tea", Importance: 0.5}
	if err := base.Validate(); err != nil {
		t.Fatalf("expected valid memory, got %v", err)
	}

	bad := base
	bad.Importance = 1.2
	if err := bad.Validate(); !errors.Is(err, ErrValidation) {
		t.Errorf("expected validation error for importance, got %v", err)
	}

	bad = base
	bad.Kind = "opinion"
	if err := bad.Validate(); !errors.Is(err, ErrValidation) {
		t.Errorf("expected validation error for kind, got %v", err)
	}

	bad = base
	bad.Content = "   "
	if err := bad.Validate(); !errors.Is(err, ErrValidation) {
		t.Errorf("expected validation error for empty content, got %v", err)
	}
}

func TestLocation(t *testing.T) {
	r, th := Location(ScopeRoom, "r1", "t1")
	if r != "r1" || th != "" {
		t.Errorf("room scope: got %q %q", r, th)
	}
	r, th = Location(ScopeGlobal, "r1", "t1")
	if r != "" || th != "" {
		t.Errorf("global scope: got %q %q", r, th)
	}
	r, th = Location(ScopeThread, "r1", "t1")
	if r != "r1" || th != "t1" {
		t.Errorf("thread scope: got %q %q", r, th)
	}
}

func TestSnippet(t *testing.T) {
	m := Memory{Scope: ScopeRoom, Kind: KindPlan, Content: "ship v2 in May"}
	if got := m.Snippet(); got != "[room/plan] ship v2 in May" {
		t.Errorf("unexpected snippet %q", got)
	}
}

func TestNewEventDiscriminant(t *testing.T) {
	e := NewEvent("u1", "r1", "", WritePayload{Content: "x"})
	if e.Type != EventWrite {
		t.Errorf("expected write, got %s", e.Type)
	}
	if _, ok := e.Candidate(); ok {
		t.Error("write event must not expose a candidate payload")
	}

	c := NewEvent("u1", "r1", "", CandidatePayload{Content: "y", Importance: 0.4})
	p, ok := c.Candidate()
	if !ok || p.Content != "y" {
		t.Errorf("expected candidate payload, got %+v %v", p, ok)
	}
}

func TestDecodePayload(t *testing.T) {
	p, err := DecodePayload(EventSummarize, []byte(`{"level":2,"summary_id":"s1"}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	sp, ok := p.(SummarizePayload)
	if !ok || sp.Level != 2 || sp.SummaryID != "s1" {
		t.Errorf("unexpected payload %#v", p)
	}

	if _, err := DecodePayload("bogus", []byte(`{}`)); err == nil {
		t.Error("expected error for unknown type")
	}
}
