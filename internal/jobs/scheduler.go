package jobs

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/rcliao/mazlo-memory/internal/logging"
)

const jobName = "memory-maintenance"

// Runner is one maintenance pass.
type Runner interface {
	RunOnce(ctx context.Context) (*Report, error)
}

// Scheduler runs a Runner on a cron schedule in UTC. Runs never overlap; a
// tick that arrives while a pass is still going is skipped.
type Scheduler struct {
	scheduler gocron.Scheduler
	job       gocron.Job
	runner    Runner
	timeout   time.Duration
	log       *logging.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

// NewScheduler registers the maintenance job. expr is a five-field cron
// expression, or six fields with leading seconds. Each pass is bounded by
// timeout when it is positive.
func NewScheduler(r Runner, expr string, timeout time.Duration, log *logging.Logger) (*Scheduler, error) {
	s, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	sch := &Scheduler{
		scheduler: s,
		runner:    r,
		timeout:   timeout,
		log:       log.Named("scheduler"),
		ctx:       ctx,
		cancel:    cancel,
	}

	withSeconds := len(strings.Fields(expr)) == 6
	job, err := s.NewJob(
		gocron.CronJob(expr, withSeconds),
		gocron.NewTask(sch.run),
		gocron.WithName(jobName),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		cancel()
		_ = s.Shutdown()
		return nil, fmt.Errorf("register %s %q: %w", jobName, expr, err)
	}
	sch.job = job
	return sch, nil
}

func (s *Scheduler) Start() {
	s.scheduler.Start()
	if next, err := s.job.NextRun(); err == nil {
		s.log.Info("scheduler started", "job", jobName, "next_run", next)
	}
}

// Stop cancels a pass in progress and waits for the scheduler to shut down.
func (s *Scheduler) Stop() error {
	s.cancel()
	return s.scheduler.Shutdown()
}

func (s *Scheduler) run() {
	ctx := s.ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	start := time.Now()
	if _, err := s.runner.RunOnce(ctx); err != nil {
		s.log.Error("maintenance failed", "error", err, "elapsed", time.Since(start))
		return
	}
	s.log.Debug("maintenance pass", "elapsed", time.Since(start))
}
