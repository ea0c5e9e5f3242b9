// Package serial runs work for the same key one at a time, in the order the
// work was reserved. Different keys never wait on each other.
package serial

import (
	"context"
	"sync"
	"sync/atomic"
)

// Queue is a keyed FIFO. The zero value is ready to use.
type Queue struct {
	mu    sync.Mutex
	tails map[string]*Ticket
}

// Ticket is one reserved slot in a key's lane.
type Ticket struct {
	q    *Queue
	key  string
	prev <-chan struct{}
	done chan struct{}
	once sync.Once

	abandoned atomic.Bool
}

// Reserve appends a slot to the key's lane. Slots are served in Reserve order,
// so callers that need arrival ordering must Reserve on the goroutine that
// observes arrivals.
func (q *Queue) Reserve(key string) *Ticket {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.tails == nil {
		q.tails = make(map[string]*Ticket)
	}
	t := &Ticket{q: q, key: key, done: make(chan struct{})}
	if tail, ok := q.tails[key]; ok {
		t.prev = tail.done
	}
	q.tails[key] = t
	return t
}

// Wait blocks until every earlier ticket of the key is done. If ctx ends
// first, Wait returns ctx.Err() and the ticket gives up its slot by itself once
// its predecessor has finished, so later tickets still never overlap earlier
// ones. Calling Done after a failed Wait is a no-op.
func (t *Ticket) Wait(ctx context.Context) error {
	if t.prev == nil {
		return nil
	}
	select {
	case <-t.prev:
		return nil
	default:
	}
	select {
	case <-t.prev:
		return nil
	case <-ctx.Done():
		t.abandoned.Store(true)
		go func() {
			<-t.prev
			t.release()
		}()
		return ctx.Err()
	}
}

// Done releases the slot. It is safe to call more than once.
func (t *Ticket) Done() {
	if t.abandoned.Load() {
		return
	}
	t.release()
}

func (t *Ticket) release() {
	t.once.Do(func() {
		close(t.done)
		t.q.mu.Lock()
		if t.q.tails[t.key] == t {
			delete(t.q.tails, t.key)
		}
		t.q.mu.Unlock()
	})
}

// Do reserves a slot, waits for it and runs fn.
func (q *Queue) Do(ctx context.Context, key string, fn func(ctx context.Context)) error {
	t := q.Reserve(key)
	if err := t.Wait(ctx); err != nil {
		return err
	}
	defer t.Done()
	fn(ctx)
	return nil
}

// Len returns the number of keys with work queued or running.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tails)
}
