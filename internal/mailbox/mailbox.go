package mailbox

import (
	"github.com/anacrolix/chansync"
	"github.com/anacrolix/chansync/events"
	"github.com/anacrolix/sync"
)

// Inbox is an unbounded FIFO queue from many producers to a single consumer.
// The zero value is ready to use. Puts never block: a worker's mailbox has to
// absorb messages no matter what its owner is doing, or send cycles between
// workers could deadlock.
type Inbox[T any] struct {
	mu     sync.Mutex
	queued []T
	filled chansync.BroadcastCond
	closed chansync.SetOnce
}

// Put appends v to the queue, waking the consumer. Returns false if the Inbox
// is closed and the message was dropped.
func (me *Inbox[T]) Put(v T) bool {
	me.mu.Lock()
	defer me.mu.Unlock()
	if me.closed.IsSet() {
		return false
	}
	me.queued = append(me.queued, v)
	me.filled.Broadcast()
	return true
}

// Drain exchanges everything queued for the consumer's recycled buffer, so
// steady-state operation alternates between two backing arrays. If nothing is
// queued, Drain instead returns a channel that receives when something is,
// acquired before the lock is released as BroadcastCond requires.
func (me *Inbox[T]) Drain(to []T) ([]T, events.Signaled) {
	me.mu.Lock()
	defer me.mu.Unlock()
	if len(me.queued) == 0 {
		return to[:0], me.filled.Signaled()
	}
	got := me.queued
	me.queued = to[:0]
	return got, nil
}

// Len is how many messages are queued right now. It's stale as soon as it
// returns; useful for tests and diagnostics only.
func (me *Inbox[T]) Len() int {
	me.mu.Lock()
	defer me.mu.Unlock()
	return len(me.queued)
}

// Close makes all future Puts drop. Messages already queued can still be
// drained. Returns false if already closed.
func (me *Inbox[T]) Close() bool {
	me.mu.Lock()
	defer me.mu.Unlock()
	return me.closed.Set()
}
