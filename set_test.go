package treeset

import (
	"math/rand"
	"testing"
	"time"

	qt "github.com/go-quicktest/qt"
	"github.com/stretchr/testify/require"
)

func newTestRand() *rand.Rand {
	return rand.New(rand.NewSource(42))
}

// A synchronous caller: submits one Op at a time and waits for its Reply
// before the next, which makes the set's behaviour deterministic.
type testClient struct {
	t      testing.TB
	set    *Set
	ch     chan Reply
	nextId int64
}

func newTestClient(t testing.TB, set *Set) *testClient {
	return &testClient{t: t, set: set, ch: make(chan Reply, 1)}
}

func (me *testClient) HandleReply(r Reply) {
	me.ch <- r
}

func (me *testClient) wait(id int64) Reply {
	select {
	case r := <-me.ch:
		qt.Assert(me.t, qt.Equals(r.replyId(), id))
		return r
	case <-time.After(10 * time.Second):
		me.t.Fatalf("timed out waiting for reply %v", id)
		panic("unreachable")
	}
}

func (me *testClient) insert(k int64) {
	id := me.nextId
	me.nextId++
	require.NoError(me.t, me.set.Submit(Insert{Requester: me, Id: id, Element: k}))
	qt.Assert(me.t, qt.DeepEquals(me.wait(id), Reply(OperationFinished{Id: id})))
}

func (me *testClient) remove(k int64) {
	id := me.nextId
	me.nextId++
	require.NoError(me.t, me.set.Submit(Remove{Requester: me, Id: id, Element: k}))
	qt.Assert(me.t, qt.DeepEquals(me.wait(id), Reply(OperationFinished{Id: id})))
}

func (me *testClient) contains(k int64) bool {
	id := me.nextId
	me.nextId++
	require.NoError(me.t, me.set.Submit(Contains{Requester: me, Id: id, Element: k}))
	r := me.wait(id).(ContainsResult)
	return r.Found
}

func newTestSet(t testing.TB) *Set {
	s, err := New(TestingConfig(t))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// Ids are echoed verbatim, removed elements answer false, and a removed
// element stays absent across a compaction.
func TestExampleScenario(t *testing.T) {
	s := newTestSet(t)
	ch := make(chan Reply, 1)
	req := RequesterFunc(func(r Reply) { ch <- r })
	submit := func(op Op) Reply {
		require.NoError(t, s.Submit(op))
		return <-ch
	}
	qt.Assert(t, qt.DeepEquals(submit(Insert{req, 100, 5}), Reply(OperationFinished{100})))
	qt.Assert(t, qt.DeepEquals(submit(Contains{req, 200, 5}), Reply(ContainsResult{200, true})))
	qt.Assert(t, qt.DeepEquals(submit(Remove{req, 300, 5}), Reply(OperationFinished{300})))
	qt.Assert(t, qt.DeepEquals(submit(Contains{req, 400, 5}), Reply(ContainsResult{400, false})))
	qt.Assert(t, qt.DeepEquals(submit(Insert{req, 500, 3}), Reply(OperationFinished{500})))
	qt.Assert(t, qt.DeepEquals(submit(Insert{req, 600, 8}), Reply(OperationFinished{600})))
	require.NoError(t, s.GC())
	qt.Assert(t, qt.DeepEquals(submit(Contains{req, 700, 3}), Reply(ContainsResult{700, true})))
	// 5 was removed before the compaction, so it stays gone.
	qt.Assert(t, qt.DeepEquals(submit(Contains{req, 800, 5}), Reply(ContainsResult{800, false})))
}

func TestInsertIdempotent(t *testing.T) {
	s := newTestSet(t)
	c := newTestClient(t, s)
	c.insert(5)
	c.insert(5)
	qt.Assert(t, qt.IsTrue(c.contains(5)))
}

func TestRemoveIdempotent(t *testing.T) {
	s := newTestSet(t)
	c := newTestClient(t, s)
	c.insert(5)
	c.remove(5)
	// The second remove of an absent element still succeeds.
	c.remove(5)
	qt.Assert(t, qt.IsFalse(c.contains(5)))
}

func TestRemoveNeverInserted(t *testing.T) {
	s := newTestSet(t)
	c := newTestClient(t, s)
	c.remove(42)
	qt.Assert(t, qt.IsFalse(c.contains(42)))
}

// Element zero shares its key with the root the Set starts with. It must
// still behave like any other element.
func TestElementZero(t *testing.T) {
	s := newTestSet(t)
	c := newTestClient(t, s)
	qt.Assert(t, qt.IsFalse(c.contains(0)))
	c.insert(0)
	qt.Assert(t, qt.IsTrue(c.contains(0)))
	c.remove(0)
	qt.Assert(t, qt.IsFalse(c.contains(0)))
}

func TestNegativeElements(t *testing.T) {
	s := newTestSet(t)
	c := newTestClient(t, s)
	c.insert(-10)
	c.insert(10)
	c.insert(-5)
	qt.Assert(t, qt.IsTrue(c.contains(-10)))
	qt.Assert(t, qt.IsTrue(c.contains(-5)))
	qt.Assert(t, qt.IsFalse(c.contains(-7)))
}

// Replaying a model of the set sequentially: after any prefix, contains
// answers whatever the latest insert/remove for that element said.
func TestSequentialSetSemantics(t *testing.T) {
	s := newTestSet(t)
	c := newTestClient(t, s)
	model := make(map[int64]bool)
	rng := newTestRand()
	for range 3000 {
		k := int64(rng.Intn(50))
		switch rng.Intn(3) {
		case 0:
			c.insert(k)
			model[k] = true
		case 1:
			c.remove(k)
			delete(model, k)
		case 2:
			qt.Assert(t, qt.Equals(c.contains(k), model[k]))
		}
	}
}

func TestSubmitNilRequester(t *testing.T) {
	s := newTestSet(t)
	err := s.Submit(Insert{Id: 1, Element: 5})
	qt.Assert(t, qt.ErrorIs(err, ErrNilRequester))
}

func TestUseAfterClose(t *testing.T) {
	s := newTestSet(t)
	require.NoError(t, s.Close())
	ch := make(chan Reply, 1)
	req := RequesterFunc(func(r Reply) { ch <- r })
	qt.Assert(t, qt.ErrorIs(s.Submit(Insert{req, 1, 5}), ErrClosed))
	qt.Assert(t, qt.ErrorIs(s.GC(), ErrClosed))
	// Close again is fine.
	require.NoError(t, s.Close())
}

func TestConfigValidation(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.AutoGCRemoveThreshold = -1
	_, err := New(cfg)
	qt.Assert(t, qt.IsNotNil(err))
}
