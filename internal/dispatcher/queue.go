package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

const (
	DefaultWorkers   = 4
	DefaultQueueSize = 1024
	DefaultTimeout   = 30 * time.Second
)

var ErrQueueClosed = errors.New("work queue closed")

type Task struct {
	Name string
	Run  func(ctx context.Context) error
}

// ErrorHandler receives every task failure, panics included.
type ErrorHandler func(task string, err error)

func logTaskError(task string, err error) {
	slog.Error("[Dispatcher] Cascade failed",
		slog.String("task", task),
		slog.String("error", err.Error()))
}

// WorkQueue runs tasks on a fixed set of workers. Tasks never inherit the
// submitter's context: each one gets its own deadline.
type WorkQueue struct {
	tasks   chan Task
	workers int
	timeout time.Duration
	onError ErrorHandler

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

func NewWorkQueue(workers, size int, timeout time.Duration, onError ErrorHandler) *WorkQueue {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if size <= 0 {
		size = DefaultQueueSize
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if onError == nil {
		onError = logTaskError
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &WorkQueue{
		tasks:   make(chan Task, size),
		workers: workers,
		timeout: timeout,
		onError: onError,
		ctx:     ctx,
		cancel:  cancel,
	}
}

func (q *WorkQueue) Start() {
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker()
	}
	slog.Info("[Dispatcher] Work queue started", slog.Int("workers", q.workers))
}

func (q *WorkQueue) worker() {
	defer q.wg.Done()
	for task := range q.tasks {
		q.run(task)
	}
}

func (q *WorkQueue) run(task Task) {
	ctx, cancel := context.WithTimeout(q.ctx, q.timeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			q.onError(task.Name, fmt.Errorf("panic: %v", r))
		}
	}()

	if err := task.Run(ctx); err != nil {
		q.onError(task.Name, err)
	}
}

// Submit enqueues task without blocking. A full or closed queue drops the
// task and reports it to the error handler.
func (q *WorkQueue) Submit(task Task) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		q.onError(task.Name, ErrQueueClosed)
		return false
	}
	select {
	case q.tasks <- task:
		return true
	default:
		q.onError(task.Name, fmt.Errorf("queue full (%d pending), task dropped", len(q.tasks)))
		return false
	}
}

// Shutdown stops accepting tasks and waits for queued ones to finish. When
// ctx expires first, running tasks are cancelled.
func (q *WorkQueue) Shutdown(ctx context.Context) error {
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
		slog.Info("[Dispatcher] Work queue drained")
		return nil
	case <-ctx.Done():
		q.cancel()
		slog.Warn("[Dispatcher] Work queue shutdown timed out, cancelling running tasks")
		return ctx.Err()
	}
}
