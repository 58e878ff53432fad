package tree

import (
	"github.com/brtdb/brt"
	"github.com/brtdb/brt/pma"
)

// Cursor walks a Tree in key order (spec.md §4.2.3's CURSOR operations).
// It holds no pin and no node reference between calls: every positioning
// method re-descends from the root using the last-returned position as a
// search key, the resolution this package takes for the cyclic
// leaf<->cursor references the original's intrusive list avoided (see
// DESIGN.md). This costs an extra descent per step in exchange for never
// needing sibling pointers or a teardown list.
type Cursor struct {
	t        *Tree
	valid    bool // true once a positioning call has landed on a live pair
	emptied  bool // valid position, but Delete removed the pair it named
	key, val []byte
}

// NewCursor opens a cursor over t. The cursor starts unpositioned; call
// First, Last, Set, or SetRange before reading Key/Val.
func (t *Tree) NewCursor() (*Cursor, error) {
	t.mu.Lock()
	closed := t.closed
	t.mu.Unlock()
	if closed {
		return nil, brt.ErrClosed
	}
	return &Cursor{t: t}, nil
}

// Close releases the cursor. A Cursor holds no pin between calls, so
// Close never fails; it exists for symmetry with the teacher's other
// resource handles and to let callers defer it unconditionally.
func (c *Cursor) Close() error {
	c.t = nil
	c.valid = false
	return nil
}

func (c *Cursor) land(pair *pma.Pair) (key, val []byte) {
	c.valid = true
	c.emptied = false
	c.key, c.val = pair.Key, pair.Val
	return c.key, c.val
}

// First positions the cursor on the smallest key in the tree.
func (c *Cursor) First() (key, val []byte, err error) {
	t := c.t
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil, nil, brt.ErrClosed
	}
	root, err := t.pinRoot()
	if err != nil {
		return nil, nil, err
	}
	pair, ok, err := t.ceilingInSubtree(root, nil, nil, false)
	if uerr := t.unpin(root); err == nil {
		err = uerr
	}
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		c.valid = false
		return nil, nil, nil
	}
	key, val = c.land(pair)
	return key, val, nil
}

// Last positions the cursor on the greatest key in the tree.
func (c *Cursor) Last() (key, val []byte, err error) {
	t := c.t
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil, nil, brt.ErrClosed
	}
	root, err := t.pinRoot()
	if err != nil {
		return nil, nil, err
	}
	pair, ok, err := t.maxInSubtree(root)
	if uerr := t.unpin(root); err == nil {
		err = uerr
	}
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		c.valid = false
		return nil, nil, nil
	}
	key, val = c.land(pair)
	return key, val, nil
}

// Set positions the cursor on the exact key, failing with ErrNotFound if
// absent.
func (c *Cursor) Set(key []byte) (val []byte, err error) {
	t := c.t
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

	v, ok := leaf.Leaf.PMA.Get(key)
	if !ok {
		c.valid = false
		return nil, brt.ErrNotFound
	}
	c.land(&pma.Pair{Key: key, Val: v})
	return v, nil
}

// SetRange positions the cursor on the smallest key >= key (SET_RANGE),
// or reports end-of-tree with a nil key and no error.
func (c *Cursor) SetRange(key []byte) (k, val []byte, err error) {
	t := c.t
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil, nil, brt.ErrClosed
	}
	root, err := t.pinRoot()
	if err != nil {
		return nil, nil, err
	}
	pair, ok, err := t.ceilingInSubtree(root, key, nil, false)
	if uerr := t.unpin(root); err == nil {
		err = uerr
	}
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		c.valid = false
		return nil, nil, nil
	}
	k, val = c.land(pair)
	return k, val, nil
}

// GetBoth positions the cursor on the exact (key,val) pair, the lookup a
// DuplicatesAllowed tree's GET_BOTH needs.
func (c *Cursor) GetBoth(key, val []byte) error {
	t := c.t
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return brt.ErrClosed
	}
	root, err := t.pinRoot()
	if err != nil {
		return err
	}
	leaf, err := t.descendToLeaf(root, key)
	if err != nil {
		return err
	}
	defer t.unpin(leaf)

	if !leaf.Leaf.PMA.GetBoth(key, val) {
		c.valid = false
		return brt.ErrNotFound
	}
	c.land(&pma.Pair{Key: key, Val: val})
	return nil
}

// Next advances the cursor to the next key (or, on a DuplicatesSorted
// tree, the next (key,val) pair) strictly after its current position. A
// nil key with no error reports the cursor has run off the end.
func (c *Cursor) Next() (key, val []byte, err error) {
	if !c.valid {
		return nil, nil, brt.ErrNotFound
	}
	t := c.t
	compound := t.policy.DupsSorted

	var searchKey, searchVal []byte
	if compound {
		searchKey, searchVal = c.key, nextBytes(c.val)
	} else {
		searchKey, searchVal = nextBytes(c.key), nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil, nil, brt.ErrClosed
	}
	root, err := t.pinRoot()
	if err != nil {
		return nil, nil, err
	}
	pair, ok, err := t.ceilingInSubtree(root, searchKey, searchVal, compound)
	if uerr := t.unpin(root); err == nil {
		err = uerr
	}
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		c.valid = false
		return nil, nil, nil
	}
	key, val = c.land(pair)
	return key, val, nil
}

// Prev retreats the cursor to the previous key (or compound pair on a
// DuplicatesSorted tree) strictly before its current position.
func (c *Cursor) Prev() (key, val []byte, err error) {
	if !c.valid {
		return nil, nil, brt.ErrNotFound
	}
	t := c.t
	compound := t.policy.DupsSorted

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil, nil, brt.ErrClosed
	}
	root, err := t.pinRoot()
	if err != nil {
		return nil, nil, err
	}

	var pair *pma.Pair
	var ok bool
	if compound {
		pair, ok, err = t.floorInSubtree(root, c.key, prevBytes(c.val), true)
	} else {
		pair, ok, err = t.floorInSubtree(root, prevBytes(c.key), nil, false)
	}
	if uerr := t.unpin(root); err == nil {
		err = uerr
	}
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		c.valid = false
		return nil, nil, nil
	}
	key, val = c.land(pair)
	return key, val, nil
}

// nextBytes returns the smallest byte string strictly greater than b
// under ByteswiseComparator: b with a zero byte appended. Any custom
// Comparator used with SetRange/Next must agree that appending 0x00 only
// ever increases a key, the same assumption seek.go's fallback-to-
// sibling-minimum logic depends on (see DESIGN.md).
func nextBytes(b []byte) []byte {
	return append(append([]byte(nil), b...), 0x00)
}

// prevBytes returns the largest byte string strictly less than b under
// ByteswiseComparator: b with its trailing zero bytes stripped and the
// new last byte decremented, which always strictly precedes b since a
// proper prefix of b sorts before b.
func prevBytes(b []byte) []byte {
	out := append([]byte(nil), b...)
	for len(out) > 0 {
		last := len(out) - 1
		if out[last] == 0 {
			out = out[:last]
			continue
		}
		out[last]--
		return out
	}
	return out
}

// NextDup advances within the current key's duplicate run, reporting
// end-of-run with a nil key once the next live pair's key differs.
func (c *Cursor) NextDup() (key, val []byte, err error) {
	if !c.valid {
		return nil, nil, brt.ErrNotFound
	}
	startKey := append([]byte(nil), c.key...)
	key, val, err = c.Next()
	if err != nil || key == nil {
		return nil, nil, err
	}
	if c.t.policy.Cmp.Cmp(key, startKey) != 0 {
		c.valid = false
		return nil, nil, nil
	}
	return key, val, nil
}

// PrevDup retreats within the current key's duplicate run.
func (c *Cursor) PrevDup() (key, val []byte, err error) {
	if !c.valid {
		return nil, nil, brt.ErrNotFound
	}
	startKey := append([]byte(nil), c.key...)
	key, val, err = c.Prev()
	if err != nil || key == nil {
		return nil, nil, err
	}
	if c.t.policy.Cmp.Cmp(key, startKey) != 0 {
		c.valid = false
		return nil, nil, nil
	}
	return key, val, nil
}

// Key returns the cursor's current key. ErrKeyEmpty reports the
// position survived a Delete but no longer names a live pair.
func (c *Cursor) Key() ([]byte, error) {
	if !c.valid {
		return nil, brt.ErrNotFound
	}
	if c.emptied {
		return nil, brt.ErrKeyEmpty
	}
	return c.key, nil
}

// Val mirrors Key for the value half of the pair.
func (c *Cursor) Val() ([]byte, error) {
	if !c.valid {
		return nil, brt.ErrNotFound
	}
	if c.emptied {
		return nil, brt.ErrKeyEmpty
	}
	return c.val, nil
}

// Delete removes the pair at the cursor's current position. The cursor
// stays positioned there (Next/Prev still resume from it) but Key/Val
// now report ErrKeyEmpty until the cursor moves again.
func (c *Cursor) Delete() error {
	if !c.valid {
		return brt.ErrNotFound
	}
	if c.emptied {
		return brt.ErrKeyEmpty
	}
	if err := c.t.DeleteBoth(c.key, c.val); err != nil {
		return err
	}
	c.emptied = true
	return nil
}
