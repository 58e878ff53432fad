package wire

import (
	"fmt"
	"io"
)

// defaultBufSize matches the large buffered chunks the original's
// create_bread_from_fd_initialize_at reads, sized to amortise seeks
// during a tail-first log or node-chain scan.
const defaultBufSize = 1 << 16

// BackReader reads a file tail-first in large buffered chunks, the
// primitive log recovery and frame-chain verification use to walk a file
// backward without re-reading byte by byte. Grounded on
// original_source/newbrt/bread.c.
type BackReader struct {
	r       io.ReaderAt
	offset  int64 // current_offset: unread bytes below this point
	bufSize int
	buf     []byte
	bufOff  int // valid bytes are buf[:bufOff]
}

// NewBackReader creates a BackReader positioned at the end of a region
// of length size readable through r.
func NewBackReader(r io.ReaderAt, size int64) *BackReader {
	return &BackReader{r: r, offset: size, bufSize: defaultBufSize}
}

// HasMore reports whether any unread bytes remain before the current
// offset.
func (b *BackReader) HasMore() bool { return b.offset > 0 }

// ReadBackwards fills p with the nbytes immediately preceding the
// reader's current position, moving the position backward by
// len(p). It refills its internal buffer from the underlying
// ReaderAt as needed, mirroring bread_backwards's buffer-then-pread loop.
func (b *BackReader) ReadBackwards(p []byte) (err error) {
	nbytes := len(p)
	if int64(nbytes) > b.offset {
		return fmt.Errorf("wire: read %d bytes before offset %d", nbytes, b.offset)
	}
	for nbytes > 0 {
		toCopy := b.bufOff
		if toCopy > nbytes {
			toCopy = nbytes
		}
		copy(p[nbytes-toCopy:nbytes], b.buf[b.bufOff-toCopy:b.bufOff])
		nbytes -= toCopy
		b.offset -= int64(toCopy)
		b.bufOff -= toCopy

		if nbytes > 0 {
			toRead := b.bufSize
			if int64(toRead) > b.offset {
				toRead = int(b.offset)
			}
			if cap(b.buf) < toRead {
				b.buf = make([]byte, toRead)
			}
			b.buf = b.buf[:toRead]
			if _, err = b.r.ReadAt(b.buf, b.offset-int64(toRead)); err != nil {
				return fmt.Errorf("wire: backward read at %d: %w", b.offset-int64(toRead), err)
			}
			b.bufOff = toRead
		}
	}
	return nil
}

// NextFrame parses one frame ending at the reader's current position and
// advances the reader past it, returning the decoded payload.
func (b *BackReader) NextFrame(codec Codec) (payload []byte, err error) {
	var trailer [8]byte
	if err = b.ReadBackwards(trailer[:]); err != nil {
		return nil, err
	}
	repeatedLen := beUint32(trailer[4:8])
	bodyAndLen := make([]byte, 4+int(repeatedLen))
	if err = b.ReadBackwards(bodyAndLen); err != nil {
		return nil, err
	}
	full := append(append([]byte{}, bodyAndLen...), trailer[:]...)
	payload, _, err = ParseFrameFromEnd(full, codec)
	return payload, err
}

func beUint32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}
