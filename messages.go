package treeset

// Requester is where the single Reply to an Op goes. Replies are delivered
// synchronously from node goroutines, so implementations must not block.
type Requester interface {
	HandleReply(Reply)
}

// RequesterFunc adapts a function to the Requester interface.
type RequesterFunc func(Reply)

func (f RequesterFunc) HandleReply(r Reply) {
	f(r)
}

// Op is one of Insert, Contains or Remove. Ops are immutable values. Exactly
// one node resolves each Op, and sends exactly one Reply carrying the Op's Id
// directly to its Requester. Ids are echoed verbatim and need not be unique.
type Op interface {
	opElement() int64
	opId() int64
	opRequester() Requester
}

// Insert ensures Element is present in the set.
type Insert struct {
	Requester Requester
	Id        int64
	Element   int64
}

// Contains asks whether Element is in the set.
type Contains struct {
	Requester Requester
	Id        int64
	Element   int64
}

// Remove ensures Element is absent from the set. Removing an element that was
// never there succeeds like any other Remove.
type Remove struct {
	Requester Requester
	Id        int64
	Element   int64
}

func (me Insert) opElement() int64 { return me.Element }
func (me Insert) opId() int64      { return me.Id }

func (me Insert) opRequester() Requester { return me.Requester }

func (me Contains) opElement() int64 { return me.Element }
func (me Contains) opId() int64      { return me.Id }

func (me Contains) opRequester() Requester { return me.Requester }

func (me Remove) opElement() int64 { return me.Element }
func (me Remove) opId() int64      { return me.Id }

func (me Remove) opRequester() Requester { return me.Requester }

// Reply is one of ContainsResult or OperationFinished.
type Reply interface {
	replyId() int64
}

// ContainsResult answers a Contains.
type ContainsResult struct {
	Id    int64
	Found bool
}

// OperationFinished answers an Insert or a Remove.
type OperationFinished struct {
	Id int64
}

func (me ContainsResult) replyId() int64 { return me.Id }

func (me OperationFinished) replyId() int64 { return me.Id }
