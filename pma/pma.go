package pma

import "bytes"

// Pair is a key/value entry stored in a PMA leaf.
type Pair struct {
	Key, Val []byte
}

// PMA specialises GPMA to (key,val) byte pairs, the container spec.md
// §3.1 assigns to every leaf node. Duplicate-key ordering, when enabled,
// falls back to a value comparator so a tree with DuplicatesAllowed can
// keep same-key entries adjacent and (optionally) value-sorted.
type PMA struct {
	gpma        GPMA[Pair]
	keyCmp      func(a, b []byte) int
	valCmp      func(a, b []byte) int
	dupsAllowed bool
	dupsSorted  bool
}

// Init prepares an empty PMA. dupsAllowed enables multiple values per
// key (spec.md §3.1); dupsSorted additionally orders same-key values by
// valCmp instead of insertion order. valCmp may be nil unless dupsSorted
// is set.
func (p *PMA) Init(keyCmp, valCmp func(a, b []byte) int, dupsAllowed, dupsSorted bool, onMove RenumberFunc) {
	p.keyCmp = keyCmp
	p.valCmp = valCmp
	p.dupsAllowed = dupsAllowed
	p.dupsSorted = dupsSorted
	p.gpma.Init(p.cmpPair, onMove)
}

func (p *PMA) cmpPair(a, b *Pair) int {
	if c := p.keyCmp(a.Key, b.Key); c != 0 || !p.dupsSorted {
		return c
	}
	return p.valCmp(a.Val, b.Val)
}

// Len reports the number of live pairs.
func (p *PMA) Len() int { return p.gpma.Len() }

// Cap reports N, the PMA's current backing array size.
func (p *PMA) Cap() int { return p.gpma.Cap() }

// Get returns the value for key, or (nil,false) if absent. When
// duplicates are allowed without DuplicatesSorted, Get returns the first
// matching occurrence in slot order; with DuplicatesSorted it returns
// the value that sorts first.
func (p *PMA) Get(key []byte) (val []byte, ok bool) {
	idx, found := p.gpma.Find(&Pair{Key: key})
	if !found && (!p.dupsSorted || idx >= p.gpma.Cap() || p.keyCmp(p.gpma.At(idx).Key, key) != 0) {
		return nil, false
	}
	return p.gpma.At(idx).Val, true
}

// GetBoth reports whether the exact (key,val) pair is present, the
// lookup spec.md §4.2.3 requires for GET_BOTH on a duplicate-key tree.
func (p *PMA) GetBoth(key, val []byte) (found bool) {
	idx, found := p.gpma.Find(&Pair{Key: key, Val: val})
	for found && !p.dupsSorted && !bytes.Equal(p.gpma.At(idx).Val, val) {
		_, idx, found = p.Next(idx)
		found = found && p.keyCmp(p.gpma.At(idx).Key, key) == 0
	}
	return found
}

// SetUnique replaces any existing value for key with val (spec.md
// §4.2.1's INSERT on a tree without DuplicatesAllowed).
func (p *PMA) SetUnique(key, val []byte) {
	p.Delete(key)
	p.gpma.Insert(&Pair{Key: key, Val: val})
}

// AddDuplicate inserts (key,val) as an additional entry for key
// (spec.md §4.2.1's INSERT on a DuplicatesAllowed tree). With
// dupsSorted an identical (key,val) pair already present is not added
// again; without it every call adds a new entry, identical pairs
// included.
func (p *PMA) AddDuplicate(key, val []byte) {
	if p.dupsSorted {
		p.gpma.Insert(&Pair{Key: key, Val: val})
		return
	}
	p.gpma.InsertDuplicate(&Pair{Key: key, Val: val})
}

// Delete removes every pair whose key matches when duplicates are
// allowed, or the single matching pair otherwise (spec.md §4.2.1
// DELETE). Reports whether anything was removed.
func (p *PMA) Delete(key []byte) (removed bool) {
	for {
		idx, found := p.gpma.Find(&Pair{Key: key})
		if !found && (!p.dupsSorted || idx >= p.gpma.Cap() || p.keyCmp(p.gpma.At(idx).Key, key) != 0) {
			return removed
		}
		p.gpma.Delete(idx)
		removed = true
		if !p.dupsAllowed {
			return removed
		}
	}
}

// DeleteBoth removes the exact (key,val) pair, if present (spec.md
// §4.2.1 DELETE_BOTH).
func (p *PMA) DeleteBoth(key, val []byte) (removed bool) {
	idx, found := p.gpma.Find(&Pair{Key: key, Val: val})
	for found && !p.dupsSorted && !bytes.Equal(p.gpma.At(idx).Val, val) {
		_, idx, found = p.Next(idx)
		found = found && p.keyCmp(p.gpma.At(idx).Key, key) == 0
	}
	if !found {
		return false
	}
	p.gpma.Delete(idx)
	return true
}

// First returns the leftmost live pair.
func (p *PMA) First() (pair *Pair, index int, ok bool) {
	idx, _ := p.gpma.Bessel(0, func(*Pair) int { return 1 })
	if idx >= p.gpma.Cap() {
		return nil, -1, false
	}
	for p.gpma.At(idx) == nil {
		idx++
		if idx >= p.gpma.Cap() {
			return nil, -1, false
		}
	}
	return p.gpma.At(idx), idx, true
}

// Last returns the rightmost live pair.
func (p *PMA) Last() (pair *Pair, index int, ok bool) {
	for i := p.gpma.Cap() - 1; i >= 0; i-- {
		if it := p.gpma.At(i); it != nil {
			return it, i, true
		}
	}
	return nil, -1, false
}

// Next returns the next live pair strictly after index.
func (p *PMA) Next(index int) (pair *Pair, next int, ok bool) {
	for i := index + 1; i < p.gpma.Cap(); i++ {
		if it := p.gpma.At(i); it != nil {
			return it, i, true
		}
	}
	return nil, -1, false
}

// Prev returns the previous live pair strictly before index.
func (p *PMA) Prev(index int) (pair *Pair, prev int, ok bool) {
	for i := index - 1; i >= 0; i-- {
		if it := p.gpma.At(i); it != nil {
			return it, i, true
		}
	}
	return nil, -1, false
}

// SeekRange returns the smallest live pair with key >= target (SET_RANGE,
// spec.md §4.2.3).
func (p *PMA) SeekRange(key []byte) (pair *Pair, index int, ok bool) {
	idx, found := p.gpma.Find(&Pair{Key: key})
	if found {
		return p.gpma.At(idx), idx, true
	}
	for i := idx; i < p.gpma.Cap(); i++ {
		if it := p.gpma.At(i); it != nil {
			return it, i, true
		}
	}
	return nil, -1, false
}

// SeekRangeBoth returns the smallest live pair with compound order >=
// (key,val), the same query GetBoth uses but returning the ceiling
// instead of requiring an exact match. Used by a cursor's NEXT to
// resume immediately after the last (key,val) pair it returned on a
// DuplicatesSorted tree.
func (p *PMA) SeekRangeBoth(key, val []byte) (pair *Pair, index int, ok bool) {
	idx, found := p.gpma.Find(&Pair{Key: key, Val: val})
	if found {
		return p.gpma.At(idx), idx, true
	}
	for i := idx; i < p.gpma.Cap(); i++ {
		if it := p.gpma.At(i); it != nil {
			return it, i, true
		}
	}
	return nil, -1, false
}

// Floor returns the largest live pair with key <= target, the predecessor
// query a cursor's PREV needs. When target has live duplicates, Floor
// lands on the one with the greatest value, so a PrevDup walk started
// from it visits every duplicate in descending order.
func (p *PMA) Floor(key []byte) (pair *Pair, index int, ok bool) {
	successor := append(append([]byte(nil), key...), 0x00)
	// Whether or not a stored key happens to equal key+0x00 exactly (a
	// distinct, larger key than the original), every live entry at an
	// index strictly before idx still has key <= the original key.
	idx, _ := p.gpma.Find(&Pair{Key: successor})
	return p.Prev(idx)
}

// FloorBoth returns the largest live pair with compound order <=
// (key,val), the predecessor query PrevDup needs to resume immediately
// before the last pair it returned.
func (p *PMA) FloorBoth(key, val []byte) (pair *Pair, index int, ok bool) {
	idx, found := p.gpma.Find(&Pair{Key: key, Val: val})
	if found {
		return p.gpma.At(idx), idx, true
	}
	return p.Prev(idx)
}

// Items yields every live pair in ascending order.
func (p *PMA) Items(yield func(index int, pair *Pair) bool) {
	p.gpma.Items(yield)
}

// ByteSize returns the encoded size a straightforward {uvarint-len, key,
// uvarint-len, val} framing would need for every live pair, the
// accounting node.Node uses to decide whether a leaf exceeds NodeSize.
func (p *PMA) ByteSize() int {
	total := 0
	p.gpma.Items(func(_ int, pair *Pair) bool {
		total += pairSize(pair)
		return true
	})
	return total
}

func pairSize(pair *Pair) int {
	return sizeUvarint(len(pair.Key)) + len(pair.Key) + sizeUvarint(len(pair.Val)) + len(pair.Val)
}

func sizeUvarint(x int) int {
	n := 1
	for x >= 0x80 {
		x >>= 7
		n++
	}
	return n
}

// Split divides p into two PMAs balanced by encoded byte size, as
// spec.md §4.2.2's leaf split requires. p becomes the left half in
// place; the right half is returned. The greatest key remaining on the
// left is returned as the promoted pivot.
func (p *PMA) Split() (right *PMA, pivot []byte) {
	r := &PMA{keyCmp: p.keyCmp, valCmp: p.valCmp, dupsAllowed: p.dupsAllowed, dupsSorted: p.dupsSorted}
	rightGPMA := p.gpma.Split(func(pr *Pair) int { return pairSize(pr) }, r.cmpPair, nil)
	r.gpma = *rightGPMA
	right = r

	if last, _, ok := p.Last(); ok {
		pivot = last.Key
	}
	return right, pivot
}
