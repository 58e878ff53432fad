package tree

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/brtdb/brt"
)

// blockLoc is where a logical blocknum currently lives on disk.
type blockLoc struct {
	Offset int64
	Size   int64
}

// blockAllocator is the append-only allocator and block translation table
// spec.md §6's "freelist / block allocator" names: a node rewrite never
// overwrites its old bytes in place, it is placed at a fresh file offset
// and the translation entry for its (unchanged) logical blocknum is
// updated to point at the new location. The old bytes are simply
// abandoned; only the logical blocknum, never the file range it used to
// occupy, is returned to the free list. This trades file-space reuse for
// a translation table a few dozen lines wide; see DESIGN.md.
type blockAllocator struct {
	mu             sync.Mutex
	nextBlocknum   int64
	nextFileOffset int64
	translations   map[int64]blockLoc
	freeBlocknums  []int64
}

func newBlockAllocator(firstOffset int64) *blockAllocator {
	return &blockAllocator{
		nextBlocknum:   1,
		nextFileOffset: firstOffset,
		translations:   make(map[int64]blockLoc),
	}
}

// allocBlocknum reserves a fresh logical blocknum, reusing one freed by
// FreeBlocknum when available.
func (a *blockAllocator) allocBlocknum() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	if n := len(a.freeBlocknums); n > 0 {
		b := a.freeBlocknums[n-1]
		a.freeBlocknums = a.freeBlocknums[:n-1]
		return b
	}
	b := a.nextBlocknum
	a.nextBlocknum++
	return b
}

// freeBlocknum releases blocknum's logical identity for reuse. Its old
// file range is not reclaimed.
func (a *blockAllocator) freeBlocknum(blocknum int64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.translations, blocknum)
	a.freeBlocknums = append(a.freeBlocknums, blocknum)
}

// place writes data for blocknum at a freshly allocated file offset,
// updating the translation table to point at it.
func (a *blockAllocator) place(file brt.File, blocknum int64, data []byte) error {
	a.mu.Lock()
	off := a.nextFileOffset
	a.nextFileOffset += int64(len(data))
	a.mu.Unlock()

	if _, err := file.WriteAt(data, off); err != nil {
		return fmt.Errorf("tree: write block %d: %w", blocknum, err)
	}

	a.mu.Lock()
	a.translations[blocknum] = blockLoc{Offset: off, Size: int64(len(data))}
	a.mu.Unlock()
	return nil
}

// locate returns where blocknum currently lives.
func (a *blockAllocator) locate(blocknum int64) (blockLoc, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	loc, ok := a.translations[blocknum]
	return loc, ok
}

// encodeTranslationTable serialises the translation table as a flat list
// of (blocknum, offset, size) triples, written verbatim (no compression:
// this is bookkeeping metadata, not a page payload).
func (a *blockAllocator) encodeTranslationTable() []byte {
	a.mu.Lock()
	defer a.mu.Unlock()
	buf := make([]byte, 0, 8+len(a.translations)*24)
	var countBuf [8]byte
	binary.BigEndian.PutUint64(countBuf[:], uint64(len(a.translations)))
	buf = append(buf, countBuf[:]...)
	for blocknum, loc := range a.translations {
		var rec [24]byte
		binary.BigEndian.PutUint64(rec[0:8], uint64(blocknum))
		binary.BigEndian.PutUint64(rec[8:16], uint64(loc.Offset))
		binary.BigEndian.PutUint64(rec[16:24], uint64(loc.Size))
		buf = append(buf, rec[:]...)
	}
	return buf
}

// snapshot reports the allocator state needed to rebuild the header.
func (a *blockAllocator) snapshot() (nextBlocknum, nextFileOffset int64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.nextBlocknum, a.nextFileOffset
}

func decodeTranslationTable(buf []byte) (map[int64]blockLoc, error) {
	if len(buf) < 8 {
		return nil, fmt.Errorf("tree: translation table too short")
	}
	count := binary.BigEndian.Uint64(buf[0:8])
	buf = buf[8:]
	table := make(map[int64]blockLoc, count)
	for i := uint64(0); i < count; i++ {
		if len(buf) < 24 {
			return nil, fmt.Errorf("tree: translation table truncated")
		}
		blocknum := int64(binary.BigEndian.Uint64(buf[0:8]))
		offset := int64(binary.BigEndian.Uint64(buf[8:16]))
		size := int64(binary.BigEndian.Uint64(buf[16:24]))
		table[blocknum] = blockLoc{Offset: offset, Size: size}
		buf = buf[24:]
	}
	return table, nil
}
