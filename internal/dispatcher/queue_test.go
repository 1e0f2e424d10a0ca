package dispatcher

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type errorLog struct {
	mu   sync.Mutex
	errs map[string]error
}

func newErrorLog() *errorLog { return &errorLog{errs: map[string]error{}} }

func (l *errorLog) handle(task string, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errs[task] = err
}

func (l *errorLog) get(task string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.errs[task]
}

func (l *errorLog) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.errs)
}

func TestWorkQueue_RunsTasksAndReportsFailures(t *testing.T) {
	errs := newErrorLog()
	q := NewWorkQueue(2, 8, time.Second, errs.handle)
	q.Start()

	var ran sync.WaitGroup
	ran.Add(1)
	q.Submit(Task{Name: "ok", Run: func(ctx context.Context) error { ran.Done(); return nil }})
	q.Submit(Task{Name: "fails", Run: func(ctx context.Context) error { return errors.New("boom") }})
	q.Submit(Task{Name: "panics", Run: func(ctx context.Context) error { panic("kaboom") }})

	require.NoError(t, q.Shutdown(context.Background()))
	ran.Wait()

	assert.EqualError(t, errs.get("fails"), "boom")
	assert.ErrorContains(t, errs.get("panics"), "kaboom")
	assert.NoError(t, errs.get("ok"))
}

func TestWorkQueue_TaskTimeout(t *testing.T) {
	errs := newErrorLog()
	q := NewWorkQueue(1, 1, 10*time.Millisecond, errs.handle)
	q.Start()

	q.Submit(Task{Name: "slow", Run: func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}})

	require.NoError(t, q.Shutdown(context.Background()))
	assert.ErrorIs(t, errs.get("slow"), context.DeadlineExceeded)
}

func TestWorkQueue_DropsWhenFullOrClosed(t *testing.T) {
	errs := newErrorLog()
	q := NewWorkQueue(1, 1, time.Second, errs.handle)

	assert.True(t, q.Submit(Task{Name: "first", Run: func(ctx context.Context) error { return nil }}))
	assert.False(t, q.Submit(Task{Name: "second", Run: func(ctx context.Context) error { return nil }}))
	assert.Error(t, errs.get("second"))

	q.Start()
	require.NoError(t, q.Shutdown(context.Background()))

	assert.False(t, q.Submit(Task{Name: "late", Run: func(ctx context.Context) error { return nil }}))
	assert.ErrorIs(t, errs.get("late"), ErrQueueClosed)
}
