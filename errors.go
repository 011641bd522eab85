package treeset

import "errors"

var (
	// Returned by Submit and GC after Close.
	ErrClosed = errors.New("treeset closed")
	// Returned by Submit for an Op whose Reply would be undeliverable.
	ErrNilRequester = errors.New("op has nil requester")
)
