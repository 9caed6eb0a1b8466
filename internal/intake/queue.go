package intake

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/rcliao/mazlo-memory/internal/logging"
)

// Runner processes one message.
type Runner interface {
	Run(ctx context.Context, messageID string) (*Result, error)
}

type task struct {
	id        string
	messageID string
}

// Queue runs intake in the background on a fixed pool of workers. Callers
// never wait on it and never see its errors.
type Queue struct {
	runner Runner
	log    *logging.Logger
	tasks  chan task

	mu     sync.RWMutex
	closed bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewQueue starts workers goroutines reading from a buffer of size tasks.
func NewQueue(r Runner, workers, size int, log *logging.Logger) *Queue {
	if workers < 1 {
		workers = 1
	}
	if size < 1 {
		size = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	q := &Queue{
		runner: r,
		log:    log.Named("intake-queue"),
		tasks:  make(chan task, size),
		ctx:    ctx,
		cancel: cancel,
	}
	for i := 0; i < workers; i++ {
		q.wg.Add(1)
		go q.work()
	}
	return q
}

// Submit enqueues a message without blocking. It returns false when the
// queue is full or closed.
func (q *Queue) Submit(messageID string) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		q.log.Warn("intake queue closed, dropping message", "message_id", messageID)
		return false
	}

	t := task{id: uuid.NewString(), messageID: messageID}
	select {
	case q.tasks <- t:
		q.log.Debug("intake queued", "task_id", t.id, "message_id", messageID)
		return true
	default:
		q.log.Warn("intake queue full, dropping message", "message_id", messageID)
		return false
	}
}

// Close stops accepting tasks and waits for queued ones to finish. If ctx
// ends first, in-flight runs are cancelled and ctx.Err() is returned.
func (q *Queue) Close(ctx context.Context) error {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.tasks)
	}
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		q.cancel()
		return nil
	case <-ctx.Done():
		q.cancel()
		<-done
		return ctx.Err()
	}
}

func (q *Queue) work() {
	defer q.wg.Done()
	for t := range q.tasks {
		q.run(t)
	}
}

func (q *Queue) run(t task) {
	log := q.log.With("task_id", t.id, "message_id", t.messageID)
	defer func() {
		if r := recover(); r != nil {
			log.Error("intake panic", "panic", r)
		}
	}()

	res, err := q.runner.Run(q.ctx, t.messageID)
	if err != nil {
		log.Warn("intake failed", "error", err)
		return
	}
	log.Debug("intake finished", "written", res.MemoriesWritten, "skipped", res.Skipped)
}
