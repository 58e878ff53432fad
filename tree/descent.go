package tree

import (
	"bytes"

	"github.com/brtdb/brt"
	"github.com/brtdb/brt/node"
)

// Insert applies an INSERT message to the tree (spec.md §4.2.1). It is
// enqueued at the root and cascades toward the leaf opportunistically as
// buffers fill, rather than being flushed all the way down immediately.
func (t *Tree) Insert(key, val []byte) error {
	return t.mutate(node.Message{Type: node.Insert, XIDs: node.RootXIDs, Key: key, Val: val})
}

// Delete removes every value for key (or the single value, on a
// DuplicatesAllowed-free tree).
func (t *Tree) Delete(key []byte) error {
	return t.mutate(node.Message{Type: node.Delete, XIDs: node.RootXIDs, Key: key})
}

// DeleteBoth removes the exact (key,val) pair on a duplicate-key tree.
func (t *Tree) DeleteBoth(key, val []byte) error {
	return t.mutate(node.Message{Type: node.DeleteBoth, XIDs: node.RootXIDs, Key: key, Val: val})
}

func (t *Tree) mutate(msg node.Message) error {
	if t.cfg.ReadOnly {
		return brt.ErrReadOnly
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return brt.ErrClosed
	}

	root, err := t.pinRoot()
	if err != nil {
		return err
	}
	if err := t.applyAndCascade(root, msg); err != nil {
		t.unpin(root)
		return err
	}
	if root.NeedsSplit(t.policy) {
		if err := t.splitRoot(root); err != nil {
			t.unpin(root)
			return err
		}
	}
	return t.unpin(root)
}

// applyAndCascade applies msg to n (n must already be pinned) and, for a
// nonleaf, opportunistically pushes buffered messages toward the
// heaviest child while n remains over its NodeSize budget (spec.md
// §4.2.1's push_down_if_buffers_too_full). Children touched along the
// way are pinned and released within this call; n itself is left pinned
// for the caller.
func (t *Tree) applyAndCascade(n *node.Node, msg node.Message) error {
	if err := n.Put(t.policy, msg, false); err != nil {
		return err
	}
	return t.pushDownUntilFits(n)
}

func (t *Tree) pushDownUntilFits(n *node.Node) error {
	if n.IsLeaf() {
		return nil
	}
	for n.OverNodeSize() {
		ci := n.HeaviestChild()
		if ci < 0 {
			return nil
		}
		next, ok := n.DequeueFor(ci)
		if !ok {
			return nil
		}
		n.Dirty = true

		child, err := t.pinChild(n, ci)
		if err != nil {
			return err
		}
		if err := t.applyAndCascade(child, next); err != nil {
			t.unpin(child)
			return err
		}
		if child.NeedsSplit(t.policy) {
			if err := t.splitChild(n, ci, child); err != nil {
				t.unpin(child)
				return err
			}
		}
		if err := t.unpin(child); err != nil {
			return err
		}
	}
	return nil
}

// flushChildBuffer fully drains children[idx]'s buffer into the child,
// the mandatory-flush-before-descend step spec.md §4.2.3 requires of
// every search: a query must never observe a key's value as it was
// before a still-buffered message was applied.
func (t *Tree) flushChildBuffer(n *node.Node, idx int) error {
	child, err := t.pinChild(n, idx)
	if err != nil {
		return err
	}
	for {
		msg, ok := n.DequeueFor(idx)
		if !ok {
			break
		}
		n.Dirty = true
		if err := t.applyAndCascade(child, msg); err != nil {
			t.unpin(child)
			return err
		}
	}
	if child.NeedsSplit(t.policy) {
		if err := t.splitChild(n, idx, child); err != nil {
			t.unpin(child)
			return err
		}
	}
	return t.unpin(child)
}

// descendWithFlush walks from n toward a leaf, fully flushing every
// buffer it crosses first (spec.md §4.2.3's mandatory-flush-before-
// descend), using choose to pick the child index at each nonleaf level.
// It restarts the routing decision at a level whenever that level's
// pivots changed underneath it (restart-on-split), since splitChild may
// have inserted a new pivot/child slot that changes which child choose
// now picks. The returned leaf is pinned; every intermediate node
// visited is unpinned before returning.
func (t *Tree) descendWithFlush(n *node.Node, choose func(*node.Node) int) (*node.Node, error) {
	for {
		if n.IsLeaf() {
			return n, nil
		}
		ci := choose(n)
		if n.Nonleaf.Children[ci].Buffer.Len() > 0 {
			if err := t.flushChildBuffer(n, ci); err != nil {
				return nil, err
			}
			continue
		}
		child, err := t.pinChild(n, ci)
		if err != nil {
			return nil, err
		}
		if err := t.unpin(n); err != nil {
			return nil, err
		}
		n = child
	}
}

// descendToLeaf is descendWithFlush specialised to key-based routing,
// the form Lookup and point mutations need.
func (t *Tree) descendToLeaf(n *node.Node, key []byte) (*node.Node, error) {
	return t.descendWithFlush(n, func(n *node.Node) int {
		return n.ChildIndexForKey(t.policy.Cmp.Cmp, key)
	})
}

// descendToFirstLeaf follows the leftmost child at every level.
func (t *Tree) descendToFirstLeaf(n *node.Node) (*node.Node, error) {
	return t.descendWithFlush(n, func(n *node.Node) int { return 0 })
}

// descendToLastLeaf follows the rightmost child at every level.
func (t *Tree) descendToLastLeaf(n *node.Node) (*node.Node, error) {
	return t.descendWithFlush(n, func(n *node.Node) int { return len(n.Nonleaf.Children) - 1 })
}

// splitChild splits parent's child at idx (already pinned, over its
// bounds) and installs the new right sibling as a fresh child slot.
// Parent's stored fingerprint for the pre-existing slot is refreshed,
// since the child's content (and therefore its TotalFingerprint) changed
// in place (spec.md invariant 4).
func (t *Tree) splitChild(parent *node.Node, idx int, child *node.Node) error {
	newBlocknum := t.alloc.allocBlocknum()
	salt := randSalt()

	var right *node.Node
	var pivot []byte
	var err error
	if child.IsLeaf() {
		right, pivot = node.SplitLeaf(child, newBlocknum, salt)
	} else {
		right, pivot, err = node.SplitNonleaf(child, newBlocknum, salt)
		if err != nil {
			return err
		}
	}

	if err := t.cache.Put(t.file, newBlocknum, right, right.ByteSize(), t.flushNode); err != nil {
		return err
	}
	parent.Nonleaf.Children[idx].SubtreeFingerprint = child.TotalFingerprint()
	parent.AddChild(t.policy, idx, pivot, &node.ChildInfo{
		Blocknum:           newBlocknum,
		SubtreeFingerprint: right.TotalFingerprint(),
	})
	return t.cache.Unpin(t.file, newBlocknum, true, right.ByteSize(), 0)
}

// splitRoot increases the tree's height by one: root (kept at its
// existing blocknum) and a freshly split-off sibling both become
// children of a brand new top-level node, whose blocknum replaces
// header.RootBlocknum (spec.md §6: "new height+1 root, atomic... update
// of the root block pointer").
func (t *Tree) splitRoot(root *node.Node) error {
	newBlocknum := t.alloc.allocBlocknum()
	salt := randSalt()

	var right *node.Node
	var pivot []byte
	var err error
	if root.IsLeaf() {
		right, pivot = node.SplitLeaf(root, newBlocknum, salt)
	} else {
		right, pivot, err = node.SplitNonleaf(root, newBlocknum, salt)
		if err != nil {
			return err
		}
	}
	if err := t.cache.Put(t.file, newBlocknum, right, right.ByteSize(), t.flushNode); err != nil {
		return err
	}

	newRootBlocknum := t.alloc.allocBlocknum()
	children := []*node.ChildInfo{
		{Blocknum: root.Blocknum, SubtreeFingerprint: root.TotalFingerprint()},
		{Blocknum: newBlocknum, SubtreeFingerprint: right.TotalFingerprint()},
	}
	newRoot, err := node.NewNonleaf(newRootBlocknum, root.Height+1, t.policy, randSalt(), [][]byte{pivot}, children)
	if err != nil {
		return err
	}
	if err := t.cache.Put(t.file, newRootBlocknum, newRoot, newRoot.ByteSize(), t.flushNode); err != nil {
		return err
	}
	if err := t.cache.Unpin(t.file, newBlocknum, true, right.ByteSize(), 0); err != nil {
		return err
	}
	if err := t.cache.Unpin(t.file, newRootBlocknum, true, newRoot.ByteSize(), 0); err != nil {
		return err
	}

	t.header.RootBlocknum = newRootBlocknum
	return nil
}

// Lookup returns the value stored for key, per spec.md §4.2.3's GET: it
// descends to key's leaf, forcing every buffer along the path to flush
// first so the answer reflects every message inserted so far, including
// ones still sitting in an ancestor's buffer.
func (t *Tree) Lookup(key []byte) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil, brt.ErrClosed
	}

	root, err := t.pinRoot()
	if err != nil {
		return nil, err
	}
	leaf, err := t.descendToLeaf(root, key)
	if err != nil {
		return nil, err
	}
	defer t.unpin(leaf)

	val, found := leaf.Leaf.PMA.Get(key)
	if !found {
		return nil, brt.ErrNotFound
	}
	return val, nil
}

// Keyrange estimates, for key, how many keys in the tree compare less
// than, equal to, and greater than it. There is no per-subtree row-count
// kept in a node (only a fingerprint), so unlike the original's O(log n)
// estimate this walks every live leaf entry; see DESIGN.md.
func (t *Tree) Keyrange(key []byte) (lessThan, equal, greaterThan int64, err error) {
	c, err := t.NewCursor()
	if err != nil {
		return 0, 0, 0, err
	}
	defer c.Close()

	k, _, err := c.First()
	for {
		if err != nil {
			return 0, 0, 0, err
		}
		if k == nil {
			return lessThan, equal, greaterThan, nil
		}
		switch cmp := bytes.Compare(k, key); {
		case cmp < 0:
			lessThan++
		case cmp == 0:
			equal++
		default:
			greaterThan++
		}
		k, _, err = c.Next()
	}
}
