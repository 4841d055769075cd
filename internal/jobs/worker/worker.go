package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/yungbote/fred-backend/internal/jobs/runtime"
	"github.com/yungbote/fred-backend/internal/observability"
	"github.com/yungbote/fred-backend/internal/platform/logger"
)

var ErrQueueFull = errors.New("task queue full")

type Config struct {
	Concurrency int
	QueueSize   int
	// TaskTimeout bounds each task run; zero means no bound.
	TaskTimeout time.Duration
}

// Worker runs detached tasks in-process. Enqueue never blocks the caller.
type Worker struct {
	log      *logger.Logger
	registry *runtime.Registry
	cfg      Config
	queue    chan runtime.Task
	wg       sync.WaitGroup
}

func NewWorker(baseLog *logger.Logger, registry *runtime.Registry, cfg Config) *Worker {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if cfg.QueueSize < 1 {
		cfg.QueueSize = 256
	}
	return &Worker{
		log:      baseLog.With("component", "TaskWorker"),
		registry: registry,
		cfg:      cfg,
		queue:    make(chan runtime.Task, cfg.QueueSize),
	}
}

// Enqueue hands a task to the pool, dropping it when the queue is full.
func (w *Worker) Enqueue(task runtime.Task) error {
	select {
	case w.queue <- task:
		return nil
	default:
		observability.BackgroundTasks.WithLabelValues(task.Type, "dropped").Inc()
		w.log.Warn("task dropped, queue full", "task_type", task.Type)
		return ErrQueueFull
	}
}

// Run starts the pool and blocks until ctx is done and in-flight tasks finish.
func (w *Worker) Run(ctx context.Context) error {
	w.log.Info("Starting task worker pool", "concurrency", w.cfg.Concurrency)
	for i := 0; i < w.cfg.Concurrency; i++ {
		workerID := i + 1
		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			w.runLoop(ctx, workerID)
		}()
	}
	w.wg.Wait()
	return nil
}

func (w *Worker) runLoop(ctx context.Context, workerID int) {
	for {
		select {
		case <-ctx.Done():
			w.log.Info("Worker loop stopped", "worker_id", workerID)
			return
		case task := <-w.queue:
			w.runOne(context.WithoutCancel(ctx), workerID, task)
		}
	}
}

func (w *Worker) runOne(ctx context.Context, workerID int, task runtime.Task) {
	h, ok := w.registry.Get(task.Type)
	if !ok {
		w.log.Warn("No handler registered for task type", "worker_id", workerID, "task_type", task.Type)
		observability.BackgroundTasks.WithLabelValues(task.Type, "unhandled").Inc()
		return
	}
	if w.cfg.TaskTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.cfg.TaskTimeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			w.log.Error("Task handler panic", "worker_id", workerID, "task_type", task.Type, "panic", fmt.Sprint(r))
			observability.BackgroundTasks.WithLabelValues(task.Type, "panic").Inc()
		}
	}()

	if err := h.Run(ctx, task); err != nil {
		w.log.Warn("Task failed", "worker_id", workerID, "task_type", task.Type, "error", err)
		observability.BackgroundTasks.WithLabelValues(task.Type, "error").Inc()
		return
	}
	observability.BackgroundTasks.WithLabelValues(task.Type, "ok").Inc()
}
