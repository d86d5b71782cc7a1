package tasks

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"
)

func TestQueueRunsSubmittedTasks(t *testing.T) {
	q := NewQueue(4, slog.Default())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q.Start(ctx, 2)

	var ran atomic.Int32
	done := make(chan struct{})
	err := q.Submit(Task{Key: "crawl:net1", Run: func(context.Context) error {
		ran.Add(1)
		close(done)
		return nil
	}})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("task never ran")
	}
	if ran.Load() != 1 {
		t.Errorf("task ran %d times", ran.Load())
	}
}

func TestQueueRejectsDuplicateKey(t *testing.T) {
	q := NewQueue(4, slog.Default())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q.Start(ctx, 1)

	started := make(chan struct{})
	release := make(chan struct{})
	if err := q.Submit(Task{Key: "crawl:net1", Run: func(context.Context) error {
		close(started)
		<-release
		return nil
	}}); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	<-started

	if err := q.Submit(Task{Key: "crawl:net1", Run: func(context.Context) error { return nil }}); !errors.Is(err, ErrDuplicate) {
		t.Errorf("expected ErrDuplicate, got %v", err)
	}
	if !q.Running("crawl:net1") {
		t.Error("key should report as running")
	}
	close(release)
}

func TestQueueRejectsWhenFull(t *testing.T) {
	q := NewQueue(1, slog.Default())
	// No workers started: submissions stay queued.

	if err := q.Submit(Task{Key: "a", Run: func(context.Context) error { return nil }}); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	if err := q.Submit(Task{Key: "b", Run: func(context.Context) error { return nil }}); !errors.Is(err, ErrQueueFull) {
		t.Errorf("expected ErrQueueFull, got %v", err)
	}
	// The rejected key is released for resubmission.
	if q.Running("b") {
		t.Error("rejected task must not hold its key")
	}
}

func TestQueueCancelStopsRunningTask(t *testing.T) {
	q := NewQueue(4, slog.Default())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q.Start(ctx, 1)

	started := make(chan struct{})
	stopped := make(chan error, 1)
	if err := q.Submit(Task{Key: "crawl:net1", Run: func(taskCtx context.Context) error {
		close(started)
		<-taskCtx.Done()
		stopped <- taskCtx.Err()
		return taskCtx.Err()
	}}); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	<-started

	if !q.Cancel("crawl:net1") {
		t.Fatal("Cancel should find the running task")
	}

	select {
	case err := <-stopped:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("task never observed cancellation")
	}

	if q.Cancel("crawl:net1") {
		t.Error("second Cancel should find nothing")
	}
}

func TestQueueCancelHoldsKeyUntilTaskReturns(t *testing.T) {
	q := NewQueue(4, slog.Default())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q.Start(ctx, 2)

	started := make(chan struct{})
	tail := make(chan struct{})
	returned := make(chan struct{})
	if err := q.Submit(Task{Key: "crawl:net1", Run: func(taskCtx context.Context) error {
		close(started)
		<-taskCtx.Done()
		// Cancelled tasks still have a tail: cleanup writes that must
		// not interleave with a restarted task for the same key.
		<-tail
		close(returned)
		return taskCtx.Err()
	}}); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	<-started

	if !q.Cancel("crawl:net1") {
		t.Fatal("Cancel should find the running task")
	}

	// The old task has observed cancellation but not returned yet; a
	// resubmission must be rejected, not run concurrently.
	if err := q.Submit(Task{Key: "crawl:net1", Run: func(context.Context) error { return nil }}); !errors.Is(err, ErrDuplicate) {
		t.Errorf("expected ErrDuplicate while old task winds down, got %v", err)
	}

	close(tail)
	<-returned

	// Once the old task is gone the key frees up.
	deadline := time.After(2 * time.Second)
	for {
		if err := q.Submit(Task{Key: "crawl:net1", Run: func(context.Context) error { return nil }}); err == nil {
			break
		}
		select {
		case <-deadline:
			t.Fatal("key never released after task returned")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestQueueCancelQueuedTask(t *testing.T) {
	q := NewQueue(4, slog.Default())

	var ran atomic.Bool
	if err := q.Submit(Task{Key: "crawl:net1", Run: func(context.Context) error {
		ran.Store(true)
		return nil
	}}); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	if !q.Cancel("crawl:net1") {
		t.Fatal("Cancel should find the queued task")
	}

	// Start workers after cancellation: the dequeued task must be dropped.
	ctx, cancel := context.WithCancel(context.Background())
	q.Start(ctx, 1)
	time.Sleep(50 * time.Millisecond)
	cancel()
	q.Wait()

	if ran.Load() {
		t.Error("cancelled queued task must not run")
	}
}
