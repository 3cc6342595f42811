package llm

import (
	"context"
	"sync"
)

// Task is the pending result of a backend request. It resolves exactly once,
// either with a value or as canceled when its session goes away first.
// Then callbacks run on the goroutine that resolves the task, which for the
// narrator is always the tick goroutine.
type Task[T any] struct {
	ctx  context.Context
	done chan struct{}

	mu       sync.Mutex
	settled  bool
	canceled bool
	value    T
	thens    []func(T)
}

func newTask[T any](ctx context.Context) *Task[T] {
	return &Task[T]{ctx: ctx, done: make(chan struct{})}
}

// Done is closed once the task resolves or is canceled.
func (t *Task[T]) Done() <-chan struct{} { return t.done }

// Result returns the value once resolved. ok is false while pending and
// after cancellation.
func (t *Task[T]) Result() (v T, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.settled || t.canceled {
		return v, false
	}
	return t.value, true
}

// Canceled reports whether the task was discarded without a value.
func (t *Task[T]) Canceled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.canceled
}

// Then registers fn to receive the value. If the task already resolved, fn
// runs immediately on the caller's goroutine. It never runs for a canceled task.
func (t *Task[T]) Then(fn func(T)) {
	t.mu.Lock()
	if !t.settled {
		t.thens = append(t.thens, fn)
		t.mu.Unlock()
		return
	}
	canceled, v := t.canceled, t.value
	t.mu.Unlock()
	if !canceled {
		fn(v)
	}
}

func (t *Task[T]) resolve(v T) bool {
	t.mu.Lock()
	if t.settled {
		t.mu.Unlock()
		return false
	}
	if t.ctx != nil && t.ctx.Err() != nil {
		t.mu.Unlock()
		t.cancel()
		return false
	}
	t.settled = true
	t.value = v
	thens := t.thens
	t.thens = nil
	close(t.done)
	t.mu.Unlock()

	for _, fn := range thens {
		fn(v)
	}
	return true
}

func (t *Task[T]) cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.settled {
		return
	}
	t.settled = true
	t.canceled = true
	t.thens = nil
	close(t.done)
}
