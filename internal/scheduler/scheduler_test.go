package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestEnqueueSkipsInFlightTask(t *testing.T) {
	s := New(1, 4)
	task := &Task{Name: "slow", Interval: time.Hour, Run: func(context.Context) error { return nil }}

	s.enqueue(task)
	s.enqueue(task)

	if got := len(s.queue); got != 1 {
		t.Errorf("queued %d runs, want 1 (second must be skipped)", got)
	}
	if !task.inFlight.Load() {
		t.Error("task should be marked in flight after enqueue")
	}
}

func TestEnqueueDropsWhenQueueFull(t *testing.T) {
	s := New(1, 1)
	a := &Task{Name: "a", Interval: time.Hour, Run: func(context.Context) error { return nil }}
	b := &Task{Name: "b", Interval: time.Hour, Run: func(context.Context) error { return nil }}

	s.enqueue(a)
	s.enqueue(b)

	if got := len(s.queue); got != 1 {
		t.Errorf("queued %d runs, want 1", got)
	}
	if b.inFlight.Load() {
		t.Error("dropped task must not stay marked in flight")
	}
}

func TestRunExecutesTaskImmediately(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var runs atomic.Int32
	done := make(chan struct{})
	s := New(2, 4)
	s.Add(&Task{
		Name:     "once",
		Interval: time.Hour,
		Run: func(context.Context) error {
			if runs.Add(1) == 1 {
				close(done)
			}
			return nil
		},
	})

	finished := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(finished)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("task did not run on startup")
	}

	cancel()
	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not shut down")
	}

	if got := runs.Load(); got != 1 {
		t.Errorf("task ran %d times, want 1", got)
	}
}

func TestExecuteRecoversPanicAndClearsGuard(t *testing.T) {
	s := New(1, 4)
	task := &Task{
		Name:     "explosive",
		Interval: time.Hour,
		Run:      func(context.Context) error { panic("boom") },
	}

	task.inFlight.Store(true)
	s.execute(context.Background(), task)

	if task.inFlight.Load() {
		t.Error("in-flight guard not cleared after panic")
	}
}

func TestExecuteClearsGuardAfterRun(t *testing.T) {
	s := New(1, 4)
	var ran bool
	task := &Task{
		Name:     "ok",
		Interval: time.Hour,
		Run: func(context.Context) error {
			ran = true
			return nil
		},
	}

	task.inFlight.Store(true)
	s.execute(context.Background(), task)

	if !ran {
		t.Error("task did not run")
	}
	if task.inFlight.Load() {
		t.Error("in-flight guard not cleared")
	}
}
