package wire

import (
	"encoding/binary"
	"fmt"
	"io"
)

// frameOverhead is the twelve bytes of length prefix/suffix around the
// compressed payload: a 4-byte compressed length before the bytes and a
// 4-byte uncompressed length plus a repeated 4-byte compressed length
// after, so the frame is self-delimiting read forward or backward.
const frameOverhead = 4 + 4 + 4

// WriteFrame compresses payload with codec and writes the reversible
// frame spec.md §6 describes: {compressed_len u32, compressed bytes,
// uncompressed_len u32, compressed_len u32}. The codec's id is not part
// of the frame, and the node header does not record it either: a frame
// must be read with the codec it was written with.
func WriteFrame(w io.Writer, codec Codec, payload []byte) (n int, err error) {
	compressed := codec.Compress(nil, payload)
	buf := make([]byte, 4+len(compressed)+8)
	binary.BigEndian.PutUint32(buf[0:4], uint32(len(compressed)))
	copy(buf[4:], compressed)
	binary.BigEndian.PutUint32(buf[4+len(compressed):], uint32(len(payload)))
	binary.BigEndian.PutUint32(buf[8+len(compressed):], uint32(len(compressed)))
	return w.Write(buf)
}

// FrameSize returns the encoded size of a frame whose compressed payload
// is compressedLen bytes.
func FrameSize(compressedLen int) int {
	return frameOverhead + compressedLen
}

// ReadFrame reads one forward frame from r using codec to decompress,
// returning the original payload.
func ReadFrame(r io.Reader, codec Codec) (payload []byte, err error) {
	var lenBuf [4]byte
	if _, err = io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, fmt.Errorf("wire: read frame length: %w", err)
	}
	compressedLen := binary.BigEndian.Uint32(lenBuf[:])

	compressed := make([]byte, compressedLen)
	if _, err = io.ReadFull(r, compressed); err != nil {
		return nil, fmt.Errorf("wire: read frame body: %w", err)
	}

	var trailer [8]byte
	if _, err = io.ReadFull(r, trailer[:]); err != nil {
		return nil, fmt.Errorf("wire: read frame trailer: %w", err)
	}
	uncompressedLen := binary.BigEndian.Uint32(trailer[0:4])
	repeatedLen := binary.BigEndian.Uint32(trailer[4:8])
	if repeatedLen != compressedLen {
		return nil, fmt.Errorf("wire: frame length mismatch: %d != %d", repeatedLen, compressedLen)
	}

	out := make([]byte, uncompressedLen)
	return codec.Decompress(out, compressed)
}

// ParseFrameFromEnd parses one frame given the raw bytes ending exactly
// at the frame's trailing compressed-length repeat (as BackReader
// supplies), returning the payload and the frame's total encoded size so
// the caller can continue scanning backward.
func ParseFrameFromEnd(tail []byte, codec Codec) (payload []byte, frameSize int, err error) {
	if len(tail) < 8 {
		return nil, 0, fmt.Errorf("wire: short frame tail: %d bytes", len(tail))
	}
	repeatedLen := binary.BigEndian.Uint32(tail[len(tail)-4:])
	uncompressedLen := binary.BigEndian.Uint32(tail[len(tail)-8 : len(tail)-4])

	total := frameOverhead + int(repeatedLen)
	if total > len(tail) {
		return nil, 0, fmt.Errorf("wire: frame tail too short for compressed_len=%d", repeatedLen)
	}
	start := len(tail) - total
	compressedLen := binary.BigEndian.Uint32(tail[start : start+4])
	if compressedLen != repeatedLen {
		return nil, 0, fmt.Errorf("wire: frame length mismatch: %d != %d", compressedLen, repeatedLen)
	}
	compressed := tail[start+4 : start+4+int(compressedLen)]

	out := make([]byte, uncompressedLen)
	payload, err = codec.Decompress(out, compressed)
	return payload, total, err
}
