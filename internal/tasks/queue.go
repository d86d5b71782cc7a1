package tasks

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

var (
	// ErrQueueFull is returned when the pending buffer is exhausted.
	ErrQueueFull = errors.New("task queue full")
	// ErrDuplicate is returned when a task with the same key is already
	// pending or running.
	ErrDuplicate = errors.New("task already submitted")
)

// Task is one unit of background work. Key identifies the task for
// deduplication and cancellation, e.g. "crawl:<network>".
type Task struct {
	Key string
	Run func(ctx context.Context) error
}

// Queue runs submitted tasks on a fixed pool of workers. Submission is
// non-blocking: a full buffer rejects rather than stalls the caller, and
// a key can only be in flight once. A cancelled task keeps holding its
// key until it returns, so a resubmission can never overlap the old
// task's tail.
type Queue struct {
	ch     chan Task
	logger *slog.Logger

	mu      sync.Mutex
	pending map[string]*entry

	wg sync.WaitGroup
}

// entry tracks one in-flight key. cancel is a placeholder until the
// worker picks the task up; cancelled marks keys whose work should not
// start (or should stop) while the key is still held.
type entry struct {
	cancel    context.CancelFunc
	cancelled bool
}

func NewQueue(size int, logger *slog.Logger) *Queue {
	return &Queue{
		ch:      make(chan Task, size),
		logger:  logger,
		pending: map[string]*entry{},
	}
}

// Start launches workers that drain the queue until ctx is cancelled.
// Tasks already running when ctx ends are cancelled through their own
// task contexts.
func (q *Queue) Start(ctx context.Context, workers int) {
	for i := 0; i < workers; i++ {
		q.wg.Add(1)
		go q.worker(ctx)
	}
}

func (q *Queue) worker(ctx context.Context) {
	defer q.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case t := <-q.ch:
			q.run(ctx, t)
		}
	}
}

func (q *Queue) run(ctx context.Context, t Task) {
	taskCtx, taskCancel := context.WithCancel(ctx)

	q.mu.Lock()
	e, ok := q.pending[t.Key]
	if ok && e.cancelled {
		// Cancelled while still queued.
		delete(q.pending, t.Key)
	} else if ok {
		e.cancel = taskCancel
	}
	q.mu.Unlock()
	if !ok || e.cancelled {
		taskCancel()
		q.logger.Info("task dropped before start", "key", t.Key)
		return
	}

	// The key is released only after the task has fully returned, so a
	// cancelled task can never overlap its own resubmission.
	defer func() {
		taskCancel()
		q.mu.Lock()
		delete(q.pending, t.Key)
		q.mu.Unlock()
	}()

	q.logger.Info("task started", "key", t.Key)
	if err := t.Run(taskCtx); err != nil {
		q.logger.Error("task failed", "key", t.Key, "error", err)
		return
	}
	q.logger.Info("task completed", "key", t.Key)
}

// Submit enqueues a task. The task is rejected if its key is already
// pending or running, or if the buffer is full.
func (q *Queue) Submit(t Task) error {
	q.mu.Lock()
	if _, ok := q.pending[t.Key]; ok {
		q.mu.Unlock()
		return ErrDuplicate
	}
	q.pending[t.Key] = &entry{cancel: func() {}}
	q.mu.Unlock()

	select {
	case q.ch <- t:
		return nil
	default:
		q.mu.Lock()
		delete(q.pending, t.Key)
		q.mu.Unlock()
		return ErrQueueFull
	}
}

// Cancel stops the task with the given key, whether queued or running.
// It reports whether a live task was cancelled; the key stays held until
// the task returns, so an immediate resubmission is rejected rather than
// run alongside the old task's tail.
func (q *Queue) Cancel(key string) bool {
	q.mu.Lock()
	e, ok := q.pending[key]
	if !ok || e.cancelled {
		q.mu.Unlock()
		return false
	}
	e.cancelled = true
	cancel := e.cancel
	q.mu.Unlock()
	cancel()
	return true
}

// Running reports whether a task with the given key is queued or running.
func (q *Queue) Running(key string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	_, ok := q.pending[key]
	return ok
}

// Wait blocks until all workers have exited. Call after cancelling the
// context passed to Start.
func (q *Queue) Wait() {
	q.wg.Wait()
}
