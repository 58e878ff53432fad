// Package fingerprint computes the per-node corruption-detection checksum
// spec.md §3.1/§8 calls local_fingerprint: a salted, order-independent sum
// over every message or pair a node holds, grounded on
// original_source/newbrt/brt2.c's rand4fingerprint/local_fingerprint
// accounting (fixup_child_fingerprint, verify_local_fingerprint_nonleaf).
// Content hashing uses xxhash rather than the original's CRC32, per
// DESIGN.md.
package fingerprint

import "github.com/cespare/xxhash/v2"

// Salt is a node's rand4fingerprint: a value drawn once at node creation
// and held fixed for the node's lifetime so entries contribute
// commutatively regardless of insertion order.
type Salt uint32

// Sum is an accumulated local_fingerprint. It is a plain sum over 32-bit
// contributions, so entries may be added and later subtracted (on
// delete, or when a message moves to a different buffer) without
// rebuilding the whole node.
type Sum uint32

// Contribution returns the fingerprint delta one entry contributes,
// salt*hash(data) computed with wraparound arithmetic exactly like the
// original's rand4fingerprint*toku_calccrc32_cmd.
func Contribution(salt Salt, data []byte) uint32 {
	h := xxhash.Sum64(data)
	fold := uint32(h) ^ uint32(h>>32)
	return uint32(salt) * fold
}

// Add accumulates a contribution into the running sum.
func (s Sum) Add(contribution uint32) Sum {
	return s + Sum(contribution)
}

// Sub removes a contribution previously added, the inverse operation a
// dequeue or delete applies.
func (s Sum) Sub(contribution uint32) Sum {
	return s - Sum(contribution)
}

// CombineChild returns a child's fingerprint unchanged, as the value a
// parent keeps for subtree_fingerprint[i]; the original records this as
// BNC_SUBTREE_FINGERPRINT(node, childnum) and keeps it in lockstep via
// fixup_child_fingerprint whenever the child's fingerprint changes. The
// node package does not call it: a nonleaf's local_fingerprint covers
// only its own buffered messages, and the parent records
// child.TotalFingerprint() directly.
func CombineChild(childLocalFingerprint Sum) Sum {
	return childLocalFingerprint
}
