package node

import "errors"

// ErrEagain signals that a weak put could not be completed without I/O
// or without overfilling a node (spec.md §4.2.1). It is internal to the
// node/cachetable/tree layers: a caller receiving it retries as a strong
// put. It must never be returned from a BRT handle operation.
var ErrEagain = errors.New("node: eagain")
