package engine

import (
	"context"
	"sync"
)

// Mailbox carries continuations from backend goroutines to the tick goroutine.
type Mailbox struct {
	ch   chan func()
	done chan struct{}
	once sync.Once
}

func NewMailbox(size int) *Mailbox {
	if size <= 0 {
		size = 64
	}
	return &Mailbox{ch: make(chan func(), size), done: make(chan struct{})}
}

// Post queues fn. It blocks while the mailbox is full and returns false once
// the mailbox is closed.
func (m *Mailbox) Post(fn func()) bool {
	select {
	case <-m.done:
		return false
	default:
	}
	select {
	case m.ch <- fn:
		return true
	case <-m.done:
		return false
	}
}

// Drain runs every queued function without blocking and returns how many ran.
func (m *Mailbox) Drain() int {
	n := 0
	for {
		select {
		case fn := <-m.ch:
			fn()
			n++
		default:
			return n
		}
	}
}

// Wait blocks until one function arrives and runs it. It returns false if ctx
// ends or the mailbox closes first.
func (m *Mailbox) Wait(ctx context.Context) bool {
	select {
	case fn := <-m.ch:
		fn()
		return true
	case <-ctx.Done():
		return false
	case <-m.done:
		return false
	}
}

// Close stops accepting posts. Queued functions are dropped.
func (m *Mailbox) Close() {
	m.once.Do(func() { close(m.done) })
}
