package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rcliao/mazlo-memory/internal/logging"
	"github.com/rcliao/mazlo-memory/internal/store"
	"github.com/rcliao/mazlo-memory/internal/summarizer"
)

type fakeStore struct {
	decayRate   float64
	archive     store.ArchiveParams
	minMessages int
	threads     []store.StaleThread
	decayErr    error
}

func (f *fakeStore) DecayRecency(_ context.Context, rate float64) (int, error) {
	f.decayRate = rate
	return 7, f.decayErr
}

func (f *fakeStore) ArchiveStale(_ context.Context, p store.ArchiveParams) (int, error) {
	f.archive = p
	return 2, nil
}

func (f *fakeStore) ThreadsNeedingSummary(_ context.Context, minMessages int) ([]store.StaleThread, error) {
	f.minMessages = minMessages
	return f.threads, nil
}

type fakeSummarizer struct {
	calls []string
}

func (f *fakeSummarizer) SummarizeThread(_ context.Context, threadID, ownerID string) (*summarizer.Result, error) {
	f.calls = append(f.calls, ownerID+"/"+threadID)
	switch threadID {
	case "broken":
		return nil, errors.New("model down")
	case "empty":
		return &summarizer.Result{Skipped: true}, nil
	}
	return &summarizer.Result{}, nil
}

func TestRunOnce(t *testing.T) {
	st := &fakeStore{threads: []store.StaleThread{
		{OwnerID: "u1", RoomID: "r1", ThreadID: "t1", MessageCount: 150},
		{OwnerID: "u1", RoomID: "r1", ThreadID: "broken", MessageCount: 120},
		{OwnerID: "u2", RoomID: "r2", ThreadID: "empty", MessageCount: 101},
	}}
	sum := &fakeSummarizer{}
	opts := Options{DecayRate: 0.05, ArchiveAfter: 30 * 24 * time.Hour, ArchiveBelow: 0.3, SummarizeMinMessages: 100}

	r, err := NewMaintainer(st, sum, opts, logging.Nop()).RunOnce(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if st.decayRate != 0.05 || st.archive.OlderThan != opts.ArchiveAfter || st.archive.MinImportance != 0.3 || st.minMessages != 100 {
		t.Errorf("options not passed through: %+v", st)
	}
	want := Report{Decayed: 7, Archived: 2, ThreadsConsidered: 3, Summarized: 1, SummaryFailures: 1}
	if *r != want {
		t.Errorf("got %+v, want %+v", *r, want)
	}
	if len(sum.calls) != 3 || sum.calls[2] != "u2/empty" {
		t.Errorf("unexpected summarize calls %v", sum.calls)
	}
}

func TestRunOnceWithoutSummarizer(t *testing.T) {
	st := &fakeStore{threads: []store.StaleThread{{ThreadID: "t1"}}}
	r, err := NewMaintainer(st, nil, Options{}, logging.Nop()).RunOnce(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if r.ThreadsConsidered != 0 || r.Summarized != 0 {
		t.Errorf("summarization should be skipped, got %+v", r)
	}
}

func TestRunOnceStoreError(t *testing.T) {
	st := &fakeStore{decayErr: errors.New("disk full")}
	if _, err := NewMaintainer(st, nil, Options{}, logging.Nop()).RunOnce(context.Background()); err == nil {
		t.Error("expected error")
	}
}

type countingRunner struct {
	runs atomic.Int32
	done chan struct{}
}

func (c *countingRunner) RunOnce(context.Context) (*Report, error) {
	if c.runs.Add(1) == 1 {
		close(c.done)
	}
	return &Report{}, nil
}

func TestSchedulerRuns(t *testing.T) {
	r := &countingRunner{done: make(chan struct{})}
	s, err := NewScheduler(r, "* * * * * *", time.Second, logging.Nop())
	if err != nil {
		t.Fatalf("new scheduler: %v", err)
	}
	s.Start()
	defer s.Stop()

	select {
	case <-r.done:
	case <-time.After(5 * time.Second):
		t.Fatal("job did not run")
	}
}

func TestSchedulerRejectsBadExpression(t *testing.T) {
	if _, err := NewScheduler(&countingRunner{}, "every day", 0, logging.Nop()); err == nil {
		t.Error("expected error for invalid cron expression")
	}
}
