package node

import (
	"fmt"

	"github.com/brtdb/brt"
	"github.com/brtdb/brt/internal/fingerprint"
	"github.com/brtdb/brt/pma"
)

// childOverhead accounts for a nonleaf child slot's fixed-width fields
// when serialised: child blocknum (8), subtree fingerprint (4), and
// bytes-in-buffer (4), on top of whatever its message buffer holds.
const childOverhead = 8 + 4 + 4

// LeafData is the payload of a height-0 node: a PMA of live pairs
// (spec.md §3.1).
type LeafData struct {
	PMA pma.PMA
}

// ChildInfo is one nonleaf child slot: the child's blocknum, the
// recorded subtree fingerprint (spec.md invariant 4), and the FIFO of
// messages not yet pushed down to it.
type ChildInfo struct {
	Blocknum           int64
	SubtreeFingerprint fingerprint.Sum
	Buffer             MessageBuffer
}

// NonleafData is the payload of a height>0 node: n_children-1 pivot keys
// and n_children child slots (spec.md §3.1).
type NonleafData struct {
	Pivots   [][]byte
	Children []*ChildInfo
}

// Node is a BRT node, leaf or nonleaf distinguished by Height==0. The
// zero value is not usable; construct with NewLeaf or NewNonleaf.
type Node struct {
	Blocknum         int64
	Height           int
	NodeSize         int
	Flags            uint32
	LayoutVersion    uint32
	Rand4Fingerprint fingerprint.Salt
	DiskLSN          uint64
	LogLSN           uint64
	Dirty            bool

	Leaf    *LeafData
	Nonleaf *NonleafData
}

// Policy carries the per-tree configuration a node's put/split/search
// operations need but does not itself own: key/value ordering,
// duplicate-key mode, and the size/fanout bounds of spec.md §3.2/§4.2.2.
type Policy struct {
	Cmp          brt.Comparator
	ValCmp       brt.Comparator
	DupsAllowed  bool
	DupsSorted   bool
	NodeSize     int
	Fanout       int
	FanoutPolicy brt.FanoutPolicy
}

// NewLeaf creates an empty leaf node for blocknum.
func NewLeaf(blocknum int64, policy *Policy, salt fingerprint.Salt) *Node {
	n := &Node{
		Blocknum:         blocknum,
		Height:           0,
		NodeSize:         policy.NodeSize,
		Rand4Fingerprint: salt,
		Dirty:            true,
		Leaf:             &LeafData{},
	}
	n.Leaf.PMA.Init(policy.Cmp.Cmp, valCmpOrNil(policy), policy.DupsAllowed, policy.DupsSorted, nil)
	return n
}

func valCmpOrNil(policy *Policy) func(a, b []byte) int {
	if !policy.DupsSorted || policy.ValCmp == nil {
		return nil
	}
	return policy.ValCmp.Cmp
}

// NewNonleaf creates a nonleaf node of the given height (>=1) with the
// supplied children and pivots. len(pivots) must equal len(children)-1.
func NewNonleaf(blocknum int64, height int, policy *Policy, salt fingerprint.Salt, pivots [][]byte, children []*ChildInfo) (*Node, error) {
	if height < 1 {
		return nil, fmt.Errorf("node: nonleaf height must be >= 1, got %d", height)
	}
	if len(pivots) != len(children)-1 {
		return nil, fmt.Errorf("node: %d pivots for %d children", len(pivots), len(children))
	}
	return &Node{
		Blocknum:         blocknum,
		Height:           height,
		NodeSize:         policy.NodeSize,
		Rand4Fingerprint: salt,
		Dirty:            true,
		Nonleaf:          &NonleafData{Pivots: pivots, Children: children},
	}, nil
}

// IsLeaf reports whether n is a leaf (height 0).
func (n *Node) IsLeaf() bool { return n.Height == 0 }

// NChildren reports the nonleaf fan-out, or 0 for a leaf.
func (n *Node) NChildren() int {
	if n.Nonleaf == nil {
		return 0
	}
	return len(n.Nonleaf.Children)
}

// LocalFingerprintNow recomputes n's own local_fingerprint purely from
// its own content: the live PMA entries for a leaf, or every message
// currently sitting in any child buffer for a nonleaf. It does not fold
// in children's recorded subtree fingerprints; see TotalFingerprint.
func (n *Node) LocalFingerprintNow() fingerprint.Sum {
	var sum fingerprint.Sum
	if n.IsLeaf() {
		n.Leaf.PMA.Items(func(_ int, pair *pma.Pair) bool {
			sum = sum.Add(entryContribution(n.Rand4Fingerprint, pair.Key, pair.Val))
			return true
		})
		return sum
	}
	for _, c := range n.Nonleaf.Children {
		c.Buffer.Items(func(m Message) bool {
			sum = sum.Add(messageContribution(n.Rand4Fingerprint, m))
			return true
		})
	}
	return sum
}

// TotalFingerprint recomputes the fingerprint of n's entire subtree: its
// own local_fingerprint plus every child's recorded SubtreeFingerprint
// (which, if those were kept in sync by the caller, already folds in
// every level below that child). This is the value a parent should store
// as ChildInfo.SubtreeFingerprint for n, and spec.md invariant 4 requires
// that stored value to equal this recomputation at all times.
func (n *Node) TotalFingerprint() fingerprint.Sum {
	sum := n.LocalFingerprintNow()
	if n.IsLeaf() {
		return sum
	}
	for _, c := range n.Nonleaf.Children {
		sum = sum.Add(uint32(c.SubtreeFingerprint))
	}
	return sum
}

func entryContribution(salt fingerprint.Salt, key, val []byte) uint32 {
	buf := make([]byte, 0, len(key)+len(val)+4)
	buf = append(buf, byte(len(key)>>24), byte(len(key)>>16), byte(len(key)>>8), byte(len(key)))
	buf = append(buf, key...)
	buf = append(buf, val...)
	return fingerprint.Contribution(salt, buf)
}

func messageContribution(salt fingerprint.Salt, m Message) uint32 {
	buf := make([]byte, 0, len(m.Key)+len(m.Val)+9)
	buf = append(buf, byte(m.Type))
	innermost := m.XIDs.Innermost()
	buf = append(buf,
		byte(innermost>>56), byte(innermost>>48), byte(innermost>>40), byte(innermost>>32),
		byte(innermost>>24), byte(innermost>>16), byte(innermost>>8), byte(innermost))
	buf = append(buf, m.Key...)
	buf = append(buf, m.Val...)
	return fingerprint.Contribution(salt, buf)
}

// ByteSize estimates the serialised size of n: the fixed header plus
// either the leaf's PMA encoding or the nonleaf's pivot table and child
// buffers (spec.md §4.2.4). Used to decide when a node must split
// (invariant 2).
func (n *Node) ByteSize() int {
	const headerSize = 44 // wire.HeaderSize
	if n.IsLeaf() {
		return headerSize + n.Leaf.PMA.ByteSize()
	}
	size := headerSize
	for _, p := range n.Nonleaf.Pivots {
		size += 2 + len(p)
	}
	for _, c := range n.Nonleaf.Children {
		size += childOverhead + c.Buffer.Bytes()
	}
	return size
}

// OverNodeSize reports whether n currently exceeds its configured
// NodeSize and must split before any further strong put completes
// (invariant 2).
func (n *Node) OverNodeSize() bool {
	return n.ByteSize() > n.NodeSize
}
