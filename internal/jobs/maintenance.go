// Package jobs runs periodic memory maintenance: recency decay, archival of
// stale memories and summarization of long threads.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/rcliao/mazlo-memory/internal/logging"
	"github.com/rcliao/mazlo-memory/internal/store"
	"github.com/rcliao/mazlo-memory/internal/summarizer"
)

// Store is the persistence maintenance works on.
type Store interface {
	DecayRecency(ctx context.Context, rate float64) (int, error)
	ArchiveStale(ctx context.Context, p store.ArchiveParams) (int, error)
	ThreadsNeedingSummary(ctx context.Context, minMessages int) ([]store.StaleThread, error)
}

type Summarizer interface {
	SummarizeThread(ctx context.Context, threadID, ownerID string) (*summarizer.Result, error)
}

// Options tune one maintenance pass.
type Options struct {
	DecayRate            float64
	ArchiveAfter         time.Duration
	ArchiveBelow         float64
	SummarizeMinMessages int
}

// Report counts what a pass changed.
type Report struct {
	Decayed           int `json:"decayed"`
	Archived          int `json:"archived"`
	ThreadsConsidered int `json:"threads_considered"`
	Summarized        int `json:"summarized"`
	SummaryFailures   int `json:"summary_failures"`
}

type Maintainer struct {
	store      Store
	summarizer Summarizer
	opts       Options
	log        *logging.Logger
}

// NewMaintainer builds a Maintainer. sum may be nil, which skips thread
// summarization.
func NewMaintainer(st Store, sum Summarizer, opts Options, log *logging.Logger) *Maintainer {
	return &Maintainer{store: st, summarizer: sum, opts: opts, log: log.Named("maintenance")}
}

// RunOnce performs a full pass. Store errors abort the pass; a failed thread
// summary is counted and logged.
func (m *Maintainer) RunOnce(ctx context.Context) (*Report, error) {
	r := &Report{}
	var err error

	if r.Decayed, err = m.store.DecayRecency(ctx, m.opts.DecayRate); err != nil {
		return nil, fmt.Errorf("decay recency: %w", err)
	}
	if r.Archived, err = m.store.ArchiveStale(ctx, store.ArchiveParams{
		OlderThan:     m.opts.ArchiveAfter,
		MinImportance: m.opts.ArchiveBelow,
	}); err != nil {
		return nil, fmt.Errorf("archive stale: %w", err)
	}

	if m.summarizer != nil {
		threads, err := m.store.ThreadsNeedingSummary(ctx, m.opts.SummarizeMinMessages)
		if err != nil {
			return nil, fmt.Errorf("find threads to summarize: %w", err)
		}
		r.ThreadsConsidered = len(threads)
		for _, t := range threads {
			if ctx.Err() != nil {
				return r, ctx.Err()
			}
			res, err := m.summarizer.SummarizeThread(ctx, t.ThreadID, t.OwnerID)
			if err != nil {
				r.SummaryFailures++
				m.log.Warn("summarize thread", "thread", t.ThreadID, "messages", t.MessageCount, "error", err)
				continue
			}
			if !res.Skipped {
				r.Summarized++
			}
		}
	}

	m.log.Info("maintenance done",
		"decayed", r.Decayed, "archived", r.Archived,
		"summarized", r.Summarized, "summary_failures", r.SummaryFailures)
	return r, nil
}
