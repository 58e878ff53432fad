// Package pma implements the Packed Memory Array and its generalisation
// (GPMA), a sorted sequence of N=2^k slots with interspersed holes whose
// density stays within dynamically computed bounds (spec.md §4.3),
// grounded on original_source/newbrt/pma.c and gpma.c. Slot/offset
// bookkeeping and the smallest-index-satisfying-predicate binary search
// follow the idiom of the teacher's bptree/page.go (search/find).
package pma

// Move describes one slot relocation during a redistribute or resize, as
// reported to a RenumberFunc so a BRT leaf cursor can follow its item.
type Move struct {
	From, To int
}

// RenumberFunc is notified after slots move, carrying every (from, to)
// relocation plus the array size before and after. Matches spec.md
// §4.3's renumber callback, flattened from the original's parallel
// index arrays into a slice of pairs for a more idiomatic Go signature.
type RenumberFunc func(moves []Move, oldN, newN int)

// minSlots is the smallest array size a GPMA will shrink to; below this
// a PMA degenerates to a plain append-only scan and resizing further
// would not amortize.
const minSlots = 4

// GPMA is a generalised packed memory array over opaque items of type T.
// Cmp must implement a strict weak order over non-nil *T values. The
// zero value is an empty array; call Init before use.
type GPMA[T any] struct {
	slots  []*T
	count  int
	cmp    func(a, b *T) int
	onMove RenumberFunc
}

// Init prepares an empty GPMA with the given comparator and optional
// renumber callback (nil is allowed when nothing tracks positions).
func (g *GPMA[T]) Init(cmp func(a, b *T) int, onMove RenumberFunc) {
	g.slots = make([]*T, minSlots)
	g.count = 0
	g.cmp = cmp
	g.onMove = onMove
}

// Len reports the number of live (non-hole) entries.
func (g *GPMA[T]) Len() int { return g.count }

// Cap reports N, the current backing array size (a power of two).
func (g *GPMA[T]) Cap() int { return len(g.slots) }

// At returns the item at a raw slot index, or nil if the slot is a hole.
// index must be in [0, Cap()).
func (g *GPMA[T]) At(index int) *T { return g.slots[index] }

// Items yields every live item in ascending order together with its
// slot index.
func (g *GPMA[T]) Items(yield func(index int, item *T) bool) {
	for i, it := range g.slots {
		if it != nil {
			if !yield(i, it) {
				return
			}
		}
	}
}

// nextLive returns the index of the first live slot at or after i, or
// len(slots) if none exists.
func (g *GPMA[T]) nextLive(i int) int {
	for i < len(g.slots) && g.slots[i] == nil {
		i++
	}
	return i
}

// Find performs the hole-honouring binary search of spec.md §4.3: at
// each probe, skip forward over holes to the next live slot, and if
// that slot's key falls in the upper half, restrict to the lower half.
// Returns the index of the leftmost matching item (found=true) or the
// insertion index where item would belong (found=false).
func (g *GPMA[T]) Find(key *T) (index int, found bool) {
	lo, hi := 0, len(g.slots)
	for lo < hi {
		mid := int(uint(lo+hi) >> 1)
		probe := g.nextLive(mid)
		if probe >= hi {
			hi = mid
			continue
		}
		if g.cmp(g.slots[probe], key) < 0 {
			lo = probe + 1
		} else {
			hi = mid
		}
	}
	index = g.nextLive(lo)
	return index, index < len(g.slots) && g.cmp(g.slots[index], key) == 0
}

// Bessel performs the generalised "bessel search" of spec.md §4.3: sign
// returns a sign (negative/zero/positive) for a candidate item. For
// direction==0 the leftmost zero-sign item is returned; direction<0
// returns the rightmost negative-sign item; direction>0 the leftmost
// positive-sign item. found reports whether index holds a zero-sign
// item (meaningful only for direction==0).
func (g *GPMA[T]) Bessel(direction int, sign func(*T) int) (index int, found bool) {
	lo, hi := 0, len(g.slots)
	bestNeg := -1
	for lo < hi {
		mid := int(uint(lo+hi) >> 1)
		probe := g.nextLive(mid)
		if probe >= hi {
			hi = mid
			continue
		}
		s := sign(g.slots[probe])
		switch {
		case s == 0:
			if direction > 0 {
				lo = probe + 1
			} else {
				hi = probe
			}
		case s < 0:
			bestNeg = probe
			lo = probe + 1
		default:
			hi = mid
		}
	}
	if direction < 0 {
		if bestNeg < 0 {
			return 0, false
		}
		return bestNeg, false
	}
	probe := g.nextLive(lo)
	if probe < len(g.slots) && sign(g.slots[probe]) == 0 {
		return probe, true
	}
	return min(probe, len(g.slots)), false
}

// window returns [lo, hi) for a window of size 2^depth centred on index
// i, clamped to the array bounds.
func window(i, depth, n int) (lo, hi int) {
	size := 1 << depth
	if size > n {
		size = n
	}
	lo = i - size/2
	if lo < 0 {
		lo = 0
	}
	hi = lo + size
	if hi > n {
		hi = n
		lo = hi - size
		if lo < 0 {
			lo = 0
		}
	}
	return
}

// liveIn counts live slots in [lo, hi).
func (g *GPMA[T]) liveIn(lo, hi int) int {
	n := 0
	for i := lo; i < hi; i++ {
		if g.slots[i] != nil {
			n++
		}
	}
	return n
}

// Insert places item at its sorted position, growing the array when no
// enclosing window satisfies its upper density threshold. Reports
// found=true without mutating the array if an equal item already
// exists; the BRT leaf layer applies INSERT as delete-then-insert to get
// replacement semantics on top of this.
func (g *GPMA[T]) Insert(item *T) (found bool) {
	at, found := g.Find(item)
	if found {
		return true
	}
	g.insertAt(at, item)
	return false
}

// InsertDuplicate inserts item at its sorted position without the
// equal-item short-circuit Insert applies, for containers that allow
// more than one item comparing equal under cmp (e.g. a PMA in
// DuplicatesAllowed mode without DuplicatesSorted, where cmp only orders
// by key).
func (g *GPMA[T]) InsertDuplicate(item *T) {
	at, _ := g.Find(item)
	g.insertAt(at, item)
}

func (g *GPMA[T]) insertAt(at int, item *T) {
	n := len(g.slots)
	lgN := lg2(n)

	for depth := 0; depth <= lgN; depth++ {
		lo, hi := window(at, depth, n)
		live := g.liveIn(lo, hi) + 1
		udt, _ := thresholds(depth, lgN)
		if float64(live)/float64(hi-lo) <= udt {
			g.redistribute(lo, hi, at, item)
			g.count++
			return
		}
	}

	g.resize(n * 2)
	at, _ = g.Find(item)
	g.insertAt(at, item)
}

// Delete removes the item at slot index, if any, and rebalances the
// enclosing window per spec.md §4.3. No-op if the slot is already a
// hole.
func (g *GPMA[T]) Delete(index int) {
	if g.slots[index] == nil {
		return
	}
	g.slots[index] = nil
	g.count--

	n := len(g.slots)
	if n > minSlots && float64(g.count)/float64(n) < LDTLow {
		g.resize(n / 2)
		return
	}

	lgN := lg2(n)
	for depth := 0; depth <= lgN; depth++ {
		lo, hi := window(index, depth, n)
		if hi == lo {
			continue
		}
		live := g.liveIn(lo, hi)
		_, ldt := thresholds(depth, lgN)
		if float64(live)/float64(hi-lo) >= ldt || hi-lo >= n {
			g.redistribute(lo, hi, -1, nil)
			return
		}
	}
}

// DeleteItem removes the unique item equal to key, if present.
func (g *GPMA[T]) DeleteItem(key *T) (removed bool) {
	at, found := g.Find(key)
	if !found {
		return false
	}
	g.Delete(at)
	return true
}

// redistribute compacts the live items of [lo,hi) (optionally inserting
// item at sorted position insertAt if insertAt>=0) and spreads them
// evenly back across [lo,hi), reporting every relocation via onMove.
func (g *GPMA[T]) redistribute(lo, hi, insertAt int, item *T) {
	items := make([]*T, 0, hi-lo+1)
	origins := make([]int, 0, hi-lo+1)
	inserted := false
	for i := lo; i < hi; i++ {
		if insertAt >= 0 && !inserted && i >= insertAt {
			items = append(items, item)
			origins = append(origins, -1)
			inserted = true
		}
		if g.slots[i] != nil {
			items = append(items, g.slots[i])
			origins = append(origins, i)
		}
	}
	if insertAt >= 0 && !inserted {
		items = append(items, item)
		origins = append(origins, -1)
	}

	for i := lo; i < hi; i++ {
		g.slots[i] = nil
	}

	var moves []Move
	spread(lo, hi, len(items), func(slot, idx int) {
		g.slots[slot] = items[idx]
		if origins[idx] >= 0 && origins[idx] != slot {
			moves = append(moves, Move{From: origins[idx], To: slot})
		}
	})
	if len(moves) > 0 && g.onMove != nil {
		g.onMove(moves, len(g.slots), len(g.slots))
	}
}

// spread evenly places k items across [lo,hi), calling place(slot,
// itemIndex) for each, in ascending slot order.
func spread(lo, hi, k int, place func(slot, itemIndex int)) {
	if k == 0 {
		return
	}
	width := hi - lo
	for i := 0; i < k; i++ {
		slot := lo + (i*width+width/2)/k
		if slot >= hi {
			slot = hi - 1
		}
		place(slot, i)
	}
}

// nextPow2 returns the smallest power of two >= n, at least minSlots.
func nextPow2(n int) int {
	p := minSlots
	for p < n {
		p *= 2
	}
	return p
}

// Split redistributes the live entries of g so that the sum of
// weight(item) is balanced across two arrays (spec.md §4.3): g itself
// becomes the left side (its container is kept), and a freshly
// constructed right side is returned. Both sides are resized toward the
// whole-array upper threshold so neither is immediately over-dense.
// rightCmp/rightOnMove configure the returned GPMA exactly as Init
// would.
func (g *GPMA[T]) Split(weight func(*T) int, rightCmp func(a, b *T) int, rightOnMove RenumberFunc) (right *GPMA[T]) {
	items := make([]*T, 0, g.count)
	origins := make([]int, 0, g.count)
	for i, it := range g.slots {
		if it != nil {
			items = append(items, it)
			origins = append(origins, i)
		}
	}

	total := 0
	weights := make([]int, len(items))
	for i, it := range items {
		w := weight(it)
		weights[i] = w
		total += w
	}
	half := total / 2
	splitIdx := len(items)
	cum := 0
	for i, w := range weights {
		cum += w
		if cum >= half {
			splitIdx = i + 1
			break
		}
	}

	leftItems, rightItems := items[:splitIdx], items[splitIdx:]
	leftOrigins, rightOrigins := origins[:splitIdx], origins[splitIdx:]
	oldN := len(g.slots)

	newLeftN := nextPow2(len(leftItems) * 2)
	g.slots = make([]*T, newLeftN)
	g.count = len(leftItems)
	var leftMoves []Move
	spread(0, newLeftN, len(leftItems), func(slot, idx int) {
		g.slots[slot] = leftItems[idx]
		if leftOrigins[idx] != slot {
			leftMoves = append(leftMoves, Move{From: leftOrigins[idx], To: slot})
		}
	})
	if g.onMove != nil {
		g.onMove(leftMoves, oldN, newLeftN)
	}

	right = new(GPMA[T])
	right.cmp = rightCmp
	right.onMove = rightOnMove
	newRightN := nextPow2(len(rightItems) * 2)
	right.slots = make([]*T, newRightN)
	right.count = len(rightItems)
	var rightMoves []Move
	spread(0, newRightN, len(rightItems), func(slot, idx int) {
		right.slots[slot] = rightItems[idx]
		rightMoves = append(rightMoves, Move{From: rightOrigins[idx], To: slot})
	})
	if right.onMove != nil {
		right.onMove(rightMoves, oldN, newRightN)
	}
	return
}

// resize rebuilds the array at newN slots, evenly redistributing every
// live item and reporting every relocation via onMove in a single call.
func (g *GPMA[T]) resize(newN int) {
	if newN < minSlots {
		newN = minSlots
	}
	old := g.slots
	oldN := len(old)

	items := make([]*T, 0, g.count)
	origins := make([]int, 0, g.count)
	for i, it := range old {
		if it != nil {
			items = append(items, it)
			origins = append(origins, i)
		}
	}

	g.slots = make([]*T, newN)
	var moves []Move
	spread(0, newN, len(items), func(slot, idx int) {
		g.slots[slot] = items[idx]
		if origins[idx] != slot {
			moves = append(moves, Move{From: origins[idx], To: slot})
		}
	})
	if g.onMove != nil {
		g.onMove(moves, oldN, newN)
	}
}
