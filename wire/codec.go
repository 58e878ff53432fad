package wire

import (
	"fmt"

	"github.com/klauspost/compress/s2"
)

// Codec compresses and decompresses one node's page payload. Each codec
// has a one-byte ID that CodecByID maps back to it, but node encoding
// does not store that byte: every node of a tree is written and read
// with the one codec selected by Config.Compression, so nodes written
// with different methods cannot be mixed in one file.
type Codec interface {
	ID() byte
	Compress(dst, src []byte) []byte
	Decompress(dst, src []byte) ([]byte, error)
}

// Identity codec IDs.
const (
	CodecIdentity byte = 0
	CodecS2       byte = 1
)

type identityCodec struct{}

func (identityCodec) ID() byte { return CodecIdentity }

func (identityCodec) Compress(dst, src []byte) []byte {
	return append(dst[:0], src...)
}

func (identityCodec) Decompress(dst, src []byte) ([]byte, error) {
	return append(dst[:0], src...), nil
}

type s2Codec struct{}

func (s2Codec) ID() byte { return CodecS2 }

func (s2Codec) Compress(dst, src []byte) []byte {
	return s2.Encode(dst, src)
}

func (s2Codec) Decompress(dst, src []byte) ([]byte, error) {
	n, err := s2.DecodedLen(src)
	if err != nil {
		return nil, fmt.Errorf("wire: s2 decoded length: %w", err)
	}
	if cap(dst) < n {
		dst = make([]byte, n)
	}
	return s2.Decode(dst[:n], src)
}

var codecs = map[byte]Codec{
	CodecIdentity: identityCodec{},
	CodecS2:       s2Codec{},
}

// CodecByID returns the registered codec for id, or an error if the byte
// identifies an unknown compression method.
func CodecByID(id byte) (Codec, error) {
	c, ok := codecs[id]
	if !ok {
		return nil, fmt.Errorf("wire: unknown compression method %d", id)
	}
	return c, nil
}
