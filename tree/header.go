// Package tree implements the top-level Buffered Repository Tree handle
// of spec.md §4.2.3/§6: the on-disk header, the append-only block
// allocator and translation table, the search/push-down orchestration
// that drives node.Put and node.SplitLeaf/SplitNonleaf through a cachetable.Cachetable,
// and cursors. Named tree rather than brt to avoid a doubled
// github.com/brtdb/brt/brt import path; this is the BRT handle spec.md
// describes. Header layout and the BlockOption-style small-struct
// configuration idiom are grounded on the teacher's root smol package
// (MagicCode/BlockSize accessors); the append-only allocator plus a
// separate block translation table is grounded on
// original_source/newbrt/block_table.c's "logical blocknum maps to a
// physical offset, rewrites allocate fresh space" model, adapted: this
// implementation never reclaims file space from a freed block's old
// offset (no online compaction), only its logical blocknum, which keeps
// the allocator a few dozen lines instead of a full GC. See DESIGN.md.
package tree

import (
	"encoding/binary"
	"fmt"
)

// HeaderSize is the fixed size of the block-0 header record.
const HeaderSize = 64

// Magic identifies a BRT file.
var Magic = [4]byte{'B', 'R', 'T', '1'}

// Header is the fixed-size record at file offset 0 (spec.md §6's
// "Header block"). All multi-byte integers are big-endian.
type Header struct {
	Magic             [4]byte
	NodeSize          uint32
	Flags             uint32
	RootBlocknum      int64
	NextBlocknum      int64
	NextFileOffset    int64
	TranslationOffset int64
	TranslationLen    int64
}

func (h Header) encode(buf []byte) {
	copy(buf[0:4], h.Magic[:])
	binary.BigEndian.PutUint32(buf[4:8], h.NodeSize)
	binary.BigEndian.PutUint32(buf[8:12], h.Flags)
	binary.BigEndian.PutUint64(buf[12:20], uint64(h.RootBlocknum))
	binary.BigEndian.PutUint64(buf[20:28], uint64(h.NextBlocknum))
	binary.BigEndian.PutUint64(buf[28:36], uint64(h.NextFileOffset))
	binary.BigEndian.PutUint64(buf[36:44], uint64(h.TranslationOffset))
	binary.BigEndian.PutUint64(buf[44:52], uint64(h.TranslationLen))
}

func decodeHeader(buf []byte) (Header, error) {
	if len(buf) < HeaderSize {
		return Header{}, fmt.Errorf("tree: header buffer too short: %d bytes", len(buf))
	}
	var h Header
	copy(h.Magic[:], buf[0:4])
	if h.Magic != Magic {
		return Header{}, fmt.Errorf("tree: bad header magic")
	}
	h.NodeSize = binary.BigEndian.Uint32(buf[4:8])
	h.Flags = binary.BigEndian.Uint32(buf[8:12])
	h.RootBlocknum = int64(binary.BigEndian.Uint64(buf[12:20]))
	h.NextBlocknum = int64(binary.BigEndian.Uint64(buf[20:28]))
	h.NextFileOffset = int64(binary.BigEndian.Uint64(buf[28:36]))
	h.TranslationOffset = int64(binary.BigEndian.Uint64(buf[36:44]))
	h.TranslationLen = int64(binary.BigEndian.Uint64(buf[44:52]))
	return h, nil
}
