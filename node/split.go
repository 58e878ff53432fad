package node

import (
	"fmt"

	"github.com/brtdb/brt/internal/fingerprint"
)

// SplitLeaf splits an over-full leaf per spec.md §4.2.2: left keeps its
// blocknum (log-friendly for recovery) and becomes the left half in
// place; right is freshly allocated at newBlocknum. pivot is the
// greatest key remaining on the left.
func SplitLeaf(left *Node, newBlocknum int64, newSalt fingerprint.Salt) (right *Node, pivot []byte) {
	rightPMA, pivot := left.Leaf.PMA.Split()
	right = &Node{
		Blocknum:         newBlocknum,
		Height:           0,
		NodeSize:         left.NodeSize,
		Rand4Fingerprint: newSalt,
		Dirty:            true,
		Leaf:             &LeafData{PMA: *rightPMA},
	}
	left.Dirty = true
	return right, pivot
}

// SplitNonleaf splits an over-wide nonleaf at child index floor(n/2), per
// spec.md §4.2.2: left keeps children [0,mid) and becomes the left half
// in place; right is freshly allocated holding children [mid,n). The
// pivot separating the halves (formerly pivots[mid-1]) is promoted to
// the caller's parent. Child slots, and the message buffers they own,
// move wholesale to whichever side their child lands on — splitting
// exactly at a child boundary never requires moving an individual
// message between buffers (see DESIGN.md).
func SplitNonleaf(left *Node, newBlocknum int64, newSalt fingerprint.Salt) (right *Node, pivot []byte, err error) {
	n := len(left.Nonleaf.Children)
	if n < 2 {
		return nil, nil, fmt.Errorf("node: cannot split nonleaf with %d children", n)
	}
	mid := n / 2

	children := left.Nonleaf.Children
	pivots := left.Nonleaf.Pivots
	pivot = pivots[mid-1]

	leftChildren := append([]*ChildInfo(nil), children[:mid]...)
	rightChildren := append([]*ChildInfo(nil), children[mid:]...)
	leftPivots := append([][]byte(nil), pivots[:mid-1]...)
	rightPivots := append([][]byte(nil), pivots[mid:]...)

	left.Nonleaf.Children = leftChildren
	left.Nonleaf.Pivots = leftPivots
	left.Dirty = true

	right = &Node{
		Blocknum:         newBlocknum,
		Height:           left.Height,
		NodeSize:         left.NodeSize,
		Rand4Fingerprint: newSalt,
		Dirty:            true,
		Nonleaf:          &NonleafData{Pivots: rightPivots, Children: rightChildren},
	}
	return right, pivot, nil
}

// NeedsSplit reports whether n must split before admitting any further
// message: it is over its serialised NodeSize, or (for a nonleaf) its
// fan-out exceeds policy.Fanout (spec.md invariants 1-2, §4.2.2's
// fan-out bound).
func (n *Node) NeedsSplit(policy *Policy) bool {
	if n.OverNodeSize() {
		return true
	}
	return !n.IsLeaf() && len(n.Nonleaf.Children) > policy.Fanout
}

// AddChild inserts a new child slot immediately after index childIndex,
// with pivot separating it from its left neighbour, the step a parent
// takes after childIndex's node splits off newChild. Reports whether the
// parent now exceeds policy.Fanout. The tree package ignores the result
// and relies on NeedsSplit instead; policy.FanoutPolicy is not consulted.
func (n *Node) AddChild(policy *Policy, childIndex int, pivot []byte, newChild *ChildInfo) (overFanout bool) {
	children := n.Nonleaf.Children
	pivots := n.Nonleaf.Pivots

	newChildren := make([]*ChildInfo, 0, len(children)+1)
	newChildren = append(newChildren, children[:childIndex+1]...)
	newChildren = append(newChildren, newChild)
	newChildren = append(newChildren, children[childIndex+1:]...)

	newPivots := make([][]byte, 0, len(pivots)+1)
	newPivots = append(newPivots, pivots[:childIndex]...)
	newPivots = append(newPivots, pivot)
	newPivots = append(newPivots, pivots[childIndex:]...)

	n.Nonleaf.Children = newChildren
	n.Nonleaf.Pivots = newPivots
	n.Dirty = true

	return len(newChildren) > policy.Fanout
}
