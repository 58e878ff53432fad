// Package wire implements the on-disk framing of spec.md §4.2.4/§6: the
// fixed node header, the length-prefixed-twice compressed page frame that
// can be scanned forward or backward, a small compression codec registry,
// and the backwards buffered reader (BREAD) log recovery walks with.
// Layout follows the teacher's bptree/page.go fixed-width-header idiom;
// the reversible frame and BREAD are grounded on
// original_source/newbrt/bread.c and the header fields listed in
// original_source/newbrt/brt2.c's brtnode struct.
package wire

import (
	"encoding/binary"
	"fmt"
)

// HeaderSize is the encoded size of Header.
const HeaderSize = 4 + 4 + 4 + 8 + 4 + 4 + 4 + 4 + 8

// Header is the fixed-width prefix of every serialised node, spec.md
// §4.2.4: magic, nodesize, flags, blocknum, layout_version, height,
// rand4fingerprint, local_fingerprint, disk_lsn.
type Header struct {
	Magic            [4]byte
	NodeSize         uint32
	Flags            uint32
	Blocknum         int64
	LayoutVersion    uint32
	Height           uint32
	Rand4Fingerprint uint32
	LocalFingerprint uint32
	DiskLSN          uint64
}

// Encode writes h into buf, which must be at least HeaderSize bytes.
func (h Header) Encode(buf []byte) {
	copy(buf[0:4], h.Magic[:])
	binary.BigEndian.PutUint32(buf[4:8], h.NodeSize)
	binary.BigEndian.PutUint32(buf[8:12], h.Flags)
	binary.BigEndian.PutUint64(buf[12:20], uint64(h.Blocknum))
	binary.BigEndian.PutUint32(buf[20:24], h.LayoutVersion)
	binary.BigEndian.PutUint32(buf[24:28], h.Height)
	binary.BigEndian.PutUint32(buf[28:32], h.Rand4Fingerprint)
	binary.BigEndian.PutUint32(buf[32:36], h.LocalFingerprint)
	binary.BigEndian.PutUint64(buf[36:44], h.DiskLSN)
}

// DecodeHeader parses a Header from the front of buf, which must be at
// least HeaderSize bytes.
func DecodeHeader(buf []byte) (h Header, err error) {
	if len(buf) < HeaderSize {
		return h, fmt.Errorf("wire: short header: %d bytes", len(buf))
	}
	copy(h.Magic[:], buf[0:4])
	h.NodeSize = binary.BigEndian.Uint32(buf[4:8])
	h.Flags = binary.BigEndian.Uint32(buf[8:12])
	h.Blocknum = int64(binary.BigEndian.Uint64(buf[12:20]))
	h.LayoutVersion = binary.BigEndian.Uint32(buf[20:24])
	h.Height = binary.BigEndian.Uint32(buf[24:28])
	h.Rand4Fingerprint = binary.BigEndian.Uint32(buf[28:32])
	h.LocalFingerprint = binary.BigEndian.Uint32(buf[32:36])
	h.DiskLSN = binary.BigEndian.Uint64(buf[36:44])
	return h, nil
}

// IsLeaf reports whether the node header describes a leaf (height 0).
func (h Header) IsLeaf() bool { return h.Height == 0 }
