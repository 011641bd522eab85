package treeset

import (
	"fmt"

	"github.com/anacrolix/chansync"
	"github.com/anacrolix/chansync/events"
	g "github.com/anacrolix/generics"
	"github.com/anacrolix/log"
	"github.com/anacrolix/missinggo/v2/panicif"

	"github.com/anacrolix/treeset/internal/mailbox"
)

type side int

const (
	before side = iota
	after
)

func sideOf(k, element int64) side {
	if k < element {
		return before
	}
	return after
}

// copyTo tells a subtree to inject its live elements into target and then
// terminate. Propagated unconditionally to all children, tombstoned or not.
type copyTo struct {
	target *node
}

// childTerminated is posted into a node's own inbox by the watcher goroutine
// it starts per child when copying begins.
type childTerminated struct{}

// node is an independent sequential worker owning one element of the set.
// Only run's goroutine touches removed, children and copying, so the tree
// needs no locks anywhere: the inbox is the sole point of synchronization.
type node struct {
	set     *Set
	element int64

	// Owned by run.
	removed  bool
	children [2]*node // indexed by side
	copying  g.Option[copyProgress]

	inbox      mailbox.Inbox[any]
	terminated chansync.SetOnce
}

// Both conditions must hold before the node may terminate. They can become
// true in either order.
type copyProgress struct {
	ownInsertDone       bool
	outstandingChildren int
}

func (me *Set) spawnNode(element int64, removed bool) *node {
	n := &node{
		set:     me,
		element: element,
		removed: removed,
	}
	nodesSpawned.Add(1)
	go n.run()
	return n
}

func (me *node) send(msg any) {
	me.inbox.Put(msg)
}

func (me *node) run() {
	// Fires on copy-driven termination and on Set teardown alike, so parents
	// and the coordinator always see us go.
	defer me.terminated.Set()
	defer me.inbox.Close()
	buf := make([]any, 0, drainBufCap)
	for {
		var signal events.Signaled
		buf, signal = me.inbox.Drain(buf)
		if signal != nil {
			select {
			case <-signal:
				continue
			case <-me.set.closed.Done():
				return
			}
		}
		for _, msg := range buf {
			if me.handle(msg) {
				nodesTerminated.Add(1)
				return
			}
		}
	}
}

func (me *node) handle(msg any) (done bool) {
	switch msg := msg.(type) {
	case Op:
		me.handleOp(msg)
		return false
	case copyTo:
		return me.startCopy(msg.target)
	case OperationFinished:
		// The self-insert we sent to the copy target has landed in the new
		// tree.
		panicif.False(me.copying.Ok)
		panicif.NotEq(msg.Id, me.element)
		me.copying.Value.ownInsertDone = true
		return me.copyFinished()
	case childTerminated:
		panicif.False(me.copying.Ok)
		me.copying.Value.outstandingChildren--
		panicif.LessThan(me.copying.Value.outstandingChildren, 0)
		return me.copyFinished()
	default:
		panic(fmt.Sprintf("node %v: unexpected message %#v", me.element, msg))
	}
}

func (me *node) handleOp(op Op) {
	// FIFO mailboxes make an Op after copyTo impossible: the coordinator
	// stops forwarding before the copy starts.
	panicif.True(me.copying.Ok)
	k := op.opElement()
	if k == me.element {
		switch op := op.(type) {
		case Contains:
			me.reply(op.Requester, ContainsResult{Id: op.Id, Found: !me.removed})
		case Insert:
			me.removed = false
			me.reply(op.Requester, OperationFinished{Id: op.Id})
		case Remove:
			me.removed = true
			me.reply(op.Requester, OperationFinished{Id: op.Id})
		}
		return
	}
	s := sideOf(k, me.element)
	if child := me.children[s]; child != nil {
		child.send(op)
		return
	}
	switch op := op.(type) {
	case Contains:
		// Nothing below us on that side, so k can't be present.
		me.reply(op.Requester, ContainsResult{Id: op.Id, Found: false})
	case Insert:
		me.children[s] = me.set.spawnNode(k, false)
		me.reply(op.Requester, OperationFinished{Id: op.Id})
	case Remove:
		// Removing what was never there is already done.
		me.reply(op.Requester, OperationFinished{Id: op.Id})
	}
}

func (me *node) startCopy(target *node) (done bool) {
	if me.copying.Ok {
		// Copy already in progress.
		return false
	}
	var p copyProgress
	for _, child := range me.children {
		if child == nil {
			continue
		}
		child.send(copyTo{target})
		p.outstandingChildren++
		go func() {
			<-child.terminated.Done()
			me.send(childTerminated{})
		}()
	}
	if me.removed {
		copyTombstonesDropped.Add(1)
		p.ownInsertDone = true
	} else {
		copyInsertsSent.Add(1)
		target.send(Insert{
			Requester: RequesterFunc(func(r Reply) { me.send(r) }),
			Id:        me.element,
			Element:   me.element,
		})
	}
	me.copying = g.Some(p)
	return me.copyFinished()
}

// Re-checked after every copy-phase event since the self-insert and the last
// child termination can complete in either order.
func (me *node) copyFinished() bool {
	p := me.copying.Value
	return p.ownInsertDone && p.outstandingChildren == 0
}

func (me *node) reply(to Requester, r Reply) {
	if me.set.config.Debug {
		me.set.logger.Levelf(log.Debug, "node %v replying %#v", me.element, r)
	}
	to.HandleReply(r)
}
