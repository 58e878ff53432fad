package brt

import "errors"

// Error taxonomy per spec.md §7. EAGAIN is not defined here: the weak-put
// transient signal is node.ErrEagain, and no BRT handle operation returns
// it because the tree issues strong puts only.
var (
	// ErrNotFound reports a missing key, or a cursor positioned past an end.
	ErrNotFound = errors.New("brt: not found")

	// ErrKeyEmpty reports that a cursor's current position is still
	// valid but the slot it names was deleted.
	ErrKeyEmpty = errors.New("brt: key empty")

	// ErrKeyExists reports an insert-no-overwrite collision.
	ErrKeyExists = errors.New("brt: key exists")

	// ErrBadFormat reports checksum, magic, or fingerprint corruption.
	// A tree returning ErrBadFormat from any operation is unusable.
	ErrBadFormat = errors.New("brt: bad format")

	// ErrAlreadyThere reports a cachetable double-put of an existing
	// (file, blocknum) entry.
	ErrAlreadyThere = errors.New("brt: already there")

	// ErrClosed reports an operation on a closed handle, cursor, or
	// cachetable file.
	ErrClosed = errors.New("brt: closed")

	// ErrReadOnly reports a mutation attempted on a read-only tree.
	ErrReadOnly = errors.New("brt: read-only")

	// ErrTooLarge reports a key/value pair at or above half the node
	// size (spec.md §1 "Non-goals").
	ErrTooLarge = errors.New("brt: pair too large for node")

	// ErrPinned is a programming error: close (of a cachetable file or
	// a tree) was attempted while an entry was still pinned. The outer
	// layer must quiesce before closing (spec.md §4.1).
	ErrPinned = errors.New("brt: close with pinned entries")
)
