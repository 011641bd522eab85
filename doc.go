// Package treeset implements a concurrent set of integers as a binary search
// tree of message-passing workers. Every tree node is a goroutine that
// exclusively owns one element, a removed flag, and up to two children;
// operations route down the tree and the resolving node replies directly to
// the submitter. Removes only tombstone; Set.GC rebuilds the tree without the
// tombstones while the coordinator queues arriving operations and replays
// them, in order, against the new root.
package treeset
