package treeset

import (
	"context"
	"time"

	"github.com/anacrolix/chansync"
	"github.com/anacrolix/chansync/events"
	g "github.com/anacrolix/generics"
	"github.com/anacrolix/log"
	"github.com/anacrolix/missinggo/v2/panicif"
	list "github.com/bahlo/generic-list-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/anacrolix/treeset/internal/mailbox"
)

// Coordinator-internal messages.
type (
	gcRequest      struct{}
	rootTerminated struct{}
)

// Set is a concurrent set of int64, implemented as a binary search tree of
// sequential workers that exchange asynchronous messages and share no state.
// The Set's own worker (the coordinator) holds the root reference, forwards
// Ops, and drives compaction cycles that rebuild the tree without tombstones
// while arriving Ops wait in a FIFO queue for replay after the root swap.
type Set struct {
	config *Config
	logger log.Logger

	inbox  mailbox.Inbox[any]
	closed chansync.SetOnce

	// Everything below is owned by the coordinator goroutine.
	root           *node
	collecting     g.Option[gcCycle]
	pending        list.List[Op]
	removesSinceGC int
}

type gcCycle struct {
	newRoot *node
	span    trace.Span
	started time.Time
}

// GCCycleEvent describes a completed compaction cycle.
type GCCycleEvent struct {
	// Ops that arrived during the cycle and were replayed after the swap.
	QueuedOps int
	Duration  time.Duration
}

func New(cfg *Config) (*Set, error) {
	if cfg == nil {
		cfg = NewDefaultConfig()
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	me := &Set{
		config: cfg,
		logger: cfg.Logger,
	}
	// The initial root holds no element of its own, it just gives routing
	// somewhere to start. Same shape as the fresh root a compaction builds
	// onto.
	me.root = me.spawnNode(0, true)
	go me.run()
	return me, nil
}

// Submit hands an Op to the coordinator. It never blocks; the Reply arrives
// later at the Op's Requester.
func (me *Set) Submit(op Op) error {
	if op.opRequester() == nil {
		return ErrNilRequester
	}
	if !me.inbox.Put(op) {
		return ErrClosed
	}
	opsSubmitted.Add(opName(op), 1)
	return nil
}

// GC requests a compaction cycle: a fresh tree is built containing only the
// live elements, and the coordinator swaps to it once the old tree has torn
// itself down. No reply is ever sent. A request while a cycle is already
// running is a no-op.
func (me *Set) GC() error {
	if !me.inbox.Put(gcRequest{}) {
		return ErrClosed
	}
	return nil
}

// Close stops the coordinator and every node. In-flight Ops may never receive
// replies. Safe to call more than once.
func (me *Set) Close() error {
	if me.closed.Set() {
		me.inbox.Close()
	}
	return nil
}

func opName(op Op) string {
	switch op.(type) {
	case Insert:
		return "insert"
	case Contains:
		return "contains"
	case Remove:
		return "remove"
	default:
		panic(op)
	}
}

func (me *Set) run() {
	buf := make([]any, 0, drainBufCap)
	for {
		var signal events.Signaled
		buf, signal = me.inbox.Drain(buf)
		if signal != nil {
			select {
			case <-signal:
				continue
			case <-me.closed.Done():
				return
			}
		}
		for _, msg := range buf {
			me.handle(msg)
		}
	}
}

func (me *Set) handle(msg any) {
	switch msg := msg.(type) {
	case Op:
		me.handleOp(msg)
	case gcRequest:
		if me.collecting.Ok {
			// At most one cycle runs at a time. Asking again while one is in
			// flight is documented to do nothing.
			gcRequestsCoalesced.Add(1)
			me.logger.Levelf(log.Debug, "gc requested while already collecting")
			return
		}
		me.startGC()
	case rootTerminated:
		me.finishGC()
	default:
		panic(msg)
	}
}

func (me *Set) handleOp(op Op) {
	if me.collecting.Ok {
		// Forwarding now could race with the copy. The queue preserves
		// submission order across the cycle.
		me.pending.PushBack(op)
		gcOpsQueued.Add(1)
		return
	}
	if me.config.Debug {
		me.logger.Levelf(log.Debug, "forwarding %#v", op)
	}
	me.root.send(op)
	if _, ok := op.(Remove); ok {
		me.removesSinceGC++
		me.maybeAutoGC()
	}
}

// Removes forwarded since the last cycle are an upper bound on new
// tombstones: removing an absent element counts too. Good enough to decide
// when compaction is worth it.
func (me *Set) maybeAutoGC() {
	threshold := me.config.AutoGCRemoveThreshold
	if threshold <= 0 || me.removesSinceGC < threshold {
		return
	}
	if !me.config.GCRateLimiter.Allow() {
		return
	}
	gcAutoTriggered.Add(1)
	me.startGC()
}

func (me *Set) startGC() {
	panicif.True(me.collecting.Ok)
	_, span := otel.Tracer(tracerName).Start(context.Background(), gcSpanName)
	oldRoot := me.root
	newRoot := me.spawnNode(0, true)
	oldRoot.send(copyTo{newRoot})
	go func() {
		<-oldRoot.terminated.Done()
		me.inbox.Put(rootTerminated{})
	}()
	me.collecting = g.Some(gcCycle{
		newRoot: newRoot,
		span:    span,
		started: time.Now(),
	})
	me.removesSinceGC = 0
	gcCyclesStarted.Add(1)
	me.logger.Levelf(log.Debug, "gc cycle started")
	if f := me.config.Callbacks.GCStarted; f != nil {
		f()
	}
}

func (me *Set) finishGC() {
	// The old root's termination watcher is the only sender of
	// rootTerminated, and it fires once per cycle.
	panicif.False(me.collecting.Ok)
	cycle := me.collecting.Value
	me.collecting = g.None[gcCycle]()
	cycle.span.AddEvent("old root terminated")
	me.root = cycle.newRoot
	queued := me.pending.Len()
	for {
		e := me.pending.Front()
		if e == nil {
			break
		}
		me.pending.Remove(e)
		me.handleOp(e.Value)
		if me.collecting.Ok {
			// An auto-GC fired on the op we just forwarded. The remainder
			// stays in pending, in order, for that cycle's swap. Forwarding
			// any of it now would race with the new copy, and popping it
			// would only re-queue it forever.
			break
		}
	}
	cycle.span.End()
	gcCyclesCompleted.Add(1)
	ev := GCCycleEvent{
		QueuedOps: queued,
		Duration:  time.Since(cycle.started),
	}
	me.logger.Levelf(log.Debug, "gc cycle finished: %v ops queued, took %v", ev.QueuedOps, ev.Duration)
	if f := me.config.Callbacks.GCFinished; f != nil {
		f(ev)
	}
}
