package tree

import (
	"github.com/brtdb/brt/node"
	"github.com/brtdb/brt/pma"
)

// ceilingInSubtree returns the smallest live pair at or above (key,val)
// anywhere under n (pinned by the caller, who is responsible for
// unpinning it). When the child a key routes to holds nothing at or
// above the query — possible once deletions have left a child's range
// sparser than its pivot bound promises — the search falls through to
// the minimum of each later sibling in turn, which is always a valid
// ceiling candidate since every key under a later sibling exceeds the
// current child's pivot. compound additionally orders by val for a
// DuplicatesSorted tree's compound (key,val) cursor position; the empty
// key used for a fallback sibling's own minimum relies on
// brt.ByteswiseComparator treating an empty slice as least, documented
// as an assumption a custom Comparator must also satisfy (see
// DESIGN.md).
func (t *Tree) ceilingInSubtree(n *node.Node, key, val []byte, compound bool) (*pma.Pair, bool, error) {
	if n.IsLeaf() {
		if compound {
			pair, _, ok := n.Leaf.PMA.SeekRangeBoth(key, val)
			return pair, ok, nil
		}
		pair, _, ok := n.Leaf.PMA.SeekRange(key)
		return pair, ok, nil
	}

	ci := n.ChildIndexForKey(t.policy.Cmp.Cmp, key)
	for n.Nonleaf.Children[ci].Buffer.Len() > 0 {
		if err := t.flushChildBuffer(n, ci); err != nil {
			return nil, false, err
		}
		ci = n.ChildIndexForKey(t.policy.Cmp.Cmp, key)
	}

	for {
		child, err := t.pinChild(n, ci)
		if err != nil {
			return nil, false, err
		}
		pair, ok, err := t.ceilingInSubtree(child, key, val, compound)
		if uerr := t.unpin(child); err == nil {
			err = uerr
		}
		if err != nil {
			return nil, false, err
		}
		if ok {
			return pair, true, nil
		}
		ci++
		if ci >= len(n.Nonleaf.Children) {
			return nil, false, nil
		}
		key, val, compound = nil, nil, false
	}
}

// floorInSubtree is ceilingInSubtree's mirror: the largest live pair at
// or below (key,val), falling through to each earlier sibling's maximum
// when the routed child has nothing that low.
func (t *Tree) floorInSubtree(n *node.Node, key, val []byte, compound bool) (*pma.Pair, bool, error) {
	if n.IsLeaf() {
		if compound {
			pair, _, ok := n.Leaf.PMA.FloorBoth(key, val)
			return pair, ok, nil
		}
		pair, _, ok := n.Leaf.PMA.Floor(key)
		return pair, ok, nil
	}

	ci := n.ChildIndexForKey(t.policy.Cmp.Cmp, key)
	for n.Nonleaf.Children[ci].Buffer.Len() > 0 {
		if err := t.flushChildBuffer(n, ci); err != nil {
			return nil, false, err
		}
		ci = n.ChildIndexForKey(t.policy.Cmp.Cmp, key)
	}

	child, err := t.pinChild(n, ci)
	if err != nil {
		return nil, false, err
	}
	pair, ok, err := t.floorInSubtree(child, key, val, compound)
	if uerr := t.unpin(child); err == nil {
		err = uerr
	}
	if err != nil || ok {
		return pair, ok, err
	}

	for ci--; ci >= 0; ci-- {
		if n.Nonleaf.Children[ci].Buffer.Len() > 0 {
			if err := t.flushChildBuffer(n, ci); err != nil {
				return nil, false, err
			}
		}
		child, err := t.pinChild(n, ci)
		if err != nil {
			return nil, false, err
		}
		pair, ok, err := t.maxInSubtree(child)
		if uerr := t.unpin(child); err == nil {
			err = uerr
		}
		if err != nil {
			return nil, false, err
		}
		if ok {
			return pair, true, nil
		}
	}
	return nil, false, nil
}

// maxInSubtree returns the greatest live pair anywhere under n.
func (t *Tree) maxInSubtree(n *node.Node) (*pma.Pair, bool, error) {
	if n.IsLeaf() {
		pair, _, ok := n.Leaf.PMA.Last()
		return pair, ok, nil
	}
	ci := len(n.Nonleaf.Children) - 1
	for {
		if n.Nonleaf.Children[ci].Buffer.Len() > 0 {
			if err := t.flushChildBuffer(n, ci); err != nil {
				return nil, false, err
			}
			ci = len(n.Nonleaf.Children) - 1
		}
		child, err := t.pinChild(n, ci)
		if err != nil {
			return nil, false, err
		}
		pair, ok, err := t.maxInSubtree(child)
		if uerr := t.unpin(child); err == nil {
			err = uerr
		}
		if err != nil {
			return nil, false, err
		}
		if ok {
			return pair, true, nil
		}
		ci--
		if ci < 0 {
			return nil, false, nil
		}
	}
}
