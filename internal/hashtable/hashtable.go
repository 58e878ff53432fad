// Package hashtable implements a chained hash table keyed by (file id,
// blocknum), grounded on original_source/newbrt/hashtable.c. It backs the
// cachetable's resident-page index: lookup, insert, and delete are O(1)
// amortised, and the bucket array doubles or halves to keep the average
// chain length bounded, mirroring toku_hash_rehash_everything.
package hashtable

// Key identifies one cachetable-resident page.
type Key struct {
	FileID   uint64
	Blocknum int64
}

type entry[V any] struct {
	key  Key
	val  V
	next *entry[V]
}

// Table is a chained hash table from Key to V. The zero value is ready to
// use.
type Table[V any] struct {
	buckets []*entry[V]
	count   int
}

const initialBuckets = 8

func (t *Table[V]) ensureInit() {
	if t.buckets == nil {
		t.buckets = make([]*entry[V], initialBuckets)
	}
}

// Len reports the number of entries.
func (t *Table[V]) Len() int { return t.count }

func hashKey(k Key) uint64 {
	h := k.FileID*1099511628211 ^ uint64(k.Blocknum)
	h ^= h >> 33
	h *= 0xff51afd7ed558ccd
	h ^= h >> 33
	return h
}

func (t *Table[V]) bucket(k Key) int {
	return int(hashKey(k) % uint64(len(t.buckets)))
}

func (t *Table[V]) find(k Key) (e *entry[V], prev **entry[V]) {
	b := t.bucket(k)
	prev = &t.buckets[b]
	for e = *prev; e != nil; e = *prev {
		if e.key == k {
			return e, prev
		}
		prev = &e.next
	}
	return nil, prev
}

// Get looks up key, reporting its value and whether it was found.
func (t *Table[V]) Get(key Key) (val V, ok bool) {
	if t.buckets == nil {
		return val, false
	}
	e, _ := t.find(key)
	if e == nil {
		return val, false
	}
	return e.val, true
}

// Put inserts or overwrites the value for key, growing the bucket array
// when the load factor would exceed 1, as toku_hash_insert does.
func (t *Table[V]) Put(key Key, val V) {
	t.ensureInit()
	if e, _ := t.find(key); e != nil {
		e.val = val
		return
	}
	b := t.bucket(key)
	t.buckets[b] = &entry[V]{key: key, val: val, next: t.buckets[b]}
	t.count++
	if t.count > len(t.buckets) {
		t.rehash(len(t.buckets) * 2)
	}
}

// Delete removes key, if present, shrinking the bucket array once
// occupancy drops below a quarter, as toku_hash_delete does. Reports
// whether anything was removed.
func (t *Table[V]) Delete(key Key) (removed bool) {
	if t.buckets == nil {
		return false
	}
	e, prev := t.find(key)
	if e == nil {
		return false
	}
	*prev = e.next
	t.count--
	if t.count*4 < len(t.buckets) && len(t.buckets) > initialBuckets {
		t.rehash(len(t.buckets) / 2)
	}
	return true
}

// Rename moves the entry at oldKey to newKey, preserving its value. It is
// the primitive cachetable.Rename uses to follow a blocknum across a split
// or checkpoint remap without disturbing any other entry.
func (t *Table[V]) Rename(oldKey, newKey Key) (ok bool) {
	if t.buckets == nil {
		return false
	}
	e, prev := t.find(oldKey)
	if e == nil {
		return false
	}
	*prev = e.next
	e.key = newKey
	e.next = nil
	b := t.bucket(newKey)
	e.next = t.buckets[b]
	t.buckets[b] = e
	return true
}

func (t *Table[V]) rehash(newSize int) {
	if newSize < initialBuckets {
		newSize = initialBuckets
	}
	newBuckets := make([]*entry[V], newSize)
	for _, head := range t.buckets {
		for e := head; e != nil; {
			next := e.next
			h := int(hashKey(e.key) % uint64(newSize))
			e.next = newBuckets[h]
			newBuckets[h] = e
			e = next
		}
	}
	t.buckets = newBuckets
}

// Items calls yield for every entry in unspecified order, stopping early
// if yield returns false. Used by the cachetable's Flush and Close to
// visit every resident page.
func (t *Table[V]) Items(yield func(key Key, val V) bool) {
	for _, head := range t.buckets {
		for e := head; e != nil; e = e.next {
			if !yield(e.key, e.val) {
				return
			}
		}
	}
}
