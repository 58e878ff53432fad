package node

import "github.com/brtdb/brt"

func sizeUvarint(x int) int {
	n := 1
	for x >= 0x80 {
		x >>= 7
		n++
	}
	return n
}

func pairSize(key, val []byte) int {
	return sizeUvarint(len(key)) + len(key) + sizeUvarint(len(val)) + len(val)
}

// Put applies msg to n, per spec.md §4.2.1's brtnode_put. A leaf applies
// the message directly to its PMA; a nonleaf enqueues it into the
// affected child buffer(s). weak requests the optimistic form: it
// returns ErrEagain instead of growing n past NodeSize, leaving n
// unmodified. A strong put (weak=false) fails only for a leaf pair too
// large for the node (brt.ErrTooLarge); otherwise it succeeds, possibly
// leaving n temporarily over NodeSize for the caller to split.
func (n *Node) Put(policy *Policy, msg Message, weak bool) error {
	if n.IsLeaf() {
		return n.putLeaf(policy, msg, weak)
	}
	return n.putNonleaf(policy, msg, weak)
}

func (n *Node) putLeaf(policy *Policy, msg Message, weak bool) error {
	if pairSize(msg.Key, msg.Val) >= n.NodeSize/2 {
		return brt.ErrTooLarge
	}
	if weak && msg.Type == Insert {
		projected := n.ByteSize() + pairSize(msg.Key, msg.Val)
		if _, found := n.Leaf.PMA.Get(msg.Key); found && !policy.DupsAllowed {
			projected -= n.existingPairSize(msg.Key)
		}
		if projected > n.NodeSize {
			return ErrEagain
		}
	}
	n.applyLeaf(policy, msg)
	return nil
}

func (n *Node) existingPairSize(key []byte) int {
	val, ok := n.Leaf.PMA.Get(key)
	if !ok {
		return 0
	}
	return pairSize(key, val)
}

func (n *Node) applyLeaf(policy *Policy, msg Message) {
	switch msg.Type {
	case Insert:
		if policy.DupsAllowed {
			n.Leaf.PMA.AddDuplicate(msg.Key, msg.Val)
		} else {
			n.Leaf.PMA.SetUnique(msg.Key, msg.Val)
		}
	case Delete:
		n.Leaf.PMA.Delete(msg.Key)
	case DeleteBoth:
		n.Leaf.PMA.DeleteBoth(msg.Key, msg.Val)
	}
	n.Dirty = true
}

func (n *Node) putNonleaf(policy *Policy, msg Message, weak bool) error {
	var lo, hi int
	if IsReplicating(policy, msg.Type) {
		lo, hi = n.AffectedChildren(policy, msg.Key)
	} else {
		lo = n.ChildIndexForKey(policy.Cmp.Cmp, msg.Key)
		hi = lo
	}

	added := (hi - lo + 1) * messageSize(msg)
	if weak && n.ByteSize()+added > n.NodeSize {
		return ErrEagain
	}

	for i := lo; i <= hi; i++ {
		n.Nonleaf.Children[i].Buffer.Enqueue(msg)
	}
	n.Dirty = true
	return nil
}

// HeaviestChild returns the index of the child whose buffer holds the
// most bytes, the push_down_if_buffers_too_full target of spec.md
// §4.2.1. Returns -1 for a leaf or a nonleaf with no children.
func (n *Node) HeaviestChild() int {
	if n.IsLeaf() || len(n.Nonleaf.Children) == 0 {
		return -1
	}
	best, bestBytes := 0, -1
	for i, c := range n.Nonleaf.Children {
		if c.Buffer.Bytes() > bestBytes {
			best, bestBytes = i, c.Buffer.Bytes()
		}
	}
	return best
}

// DequeueFor removes and returns the next message addressed to child i's
// buffer, for the caller to apply via a weak or strong put into that
// child.
func (n *Node) DequeueFor(childIndex int) (m Message, ok bool) {
	return n.Nonleaf.Children[childIndex].Buffer.Dequeue()
}
