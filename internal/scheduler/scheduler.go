package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/AgentPulseDev/agentpulse-web/internal/logger"
)

var tracer = otel.Tracer("agentpulse/scheduler")

// Task is one periodic job. A task never runs concurrently with itself:
// a tick that lands while the previous run is still going is skipped.
type Task struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error

	inFlight atomic.Bool
}

// Scheduler runs periodic tasks on a bounded worker pool.
type Scheduler struct {
	tasks   []*Task
	queue   chan *Task
	workers int
}

func New(workers, queueSize int) *Scheduler {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 16
	}
	return &Scheduler{
		queue:   make(chan *Task, queueSize),
		workers: workers,
	}
}

func (s *Scheduler) Add(task *Task) {
	s.tasks = append(s.tasks, task)
}

// Run starts the workers and tickers and blocks until the context is
// cancelled. Every task runs once immediately on startup.
func (s *Scheduler) Run(ctx context.Context) {
	var workers sync.WaitGroup
	for i := 0; i < s.workers; i++ {
		workers.Add(1)
		go func() {
			defer workers.Done()
			for task := range s.queue {
				s.execute(ctx, task)
			}
		}()
	}

	var tickers sync.WaitGroup
	for _, task := range s.tasks {
		tickers.Add(1)
		go func(task *Task) {
			defer tickers.Done()
			s.enqueue(task)

			ticker := time.NewTicker(task.Interval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					s.enqueue(task)
				}
			}
		}(task)
	}

	<-ctx.Done()
	tickers.Wait()
	close(s.queue)
	workers.Wait()
}

// enqueue hands the task to the pool unless it is already running or the
// queue is full.
func (s *Scheduler) enqueue(task *Task) {
	if !task.inFlight.CompareAndSwap(false, true) {
		logger.Warn("task still in flight, skipping run", "task", task.Name)
		return
	}

	select {
	case s.queue <- task:
	default:
		task.inFlight.Store(false)
		logger.Warn("task queue full, dropping run", "task", task.Name)
	}
}

func (s *Scheduler) execute(ctx context.Context, task *Task) {
	defer task.inFlight.Store(false)
	defer func() {
		if r := recover(); r != nil {
			logger.Error("task panicked", "task", task.Name, "panic", r)
		}
	}()

	ctx, span := tracer.Start(ctx, "scheduler.run_task")
	defer span.End()
	span.SetAttributes(attribute.String("task", task.Name))

	start := time.Now()
	if err := task.Run(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "task failed")
		logger.Error("task failed", "task", task.Name, "error", err, "duration", time.Since(start).String())
		return
	}
	logger.Info("task completed", "task", task.Name, "duration", time.Since(start).String())
}
