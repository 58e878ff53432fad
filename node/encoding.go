package node

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
)

// errBadFormat is wrapped into every decode error; the tree layer maps
// it to brt.ErrBadFormat at the package boundary.
var errBadFormat = errors.New("corrupt node payload")

func putUvarint(buf *bytes.Buffer, x uint64) {
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(tmp[:], x)
	buf.Write(tmp[:n])
}

func getUvarint(r *bytes.Reader) (uint64, error) {
	return binary.ReadUvarint(r)
}

func getBytes(r *bytes.Reader) ([]byte, error) {
	n, err := getUvarint(r)
	if err != nil {
		return nil, err
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return b, nil
}

func readFull(r *bytes.Reader, b []byte) (int, error) {
	return io.ReadFull(r, b)
}

// ErrBadFormat reports that Decode encountered a corrupt or mismatched
// node payload (bad magic, truncated fields, or a fingerprint mismatch).
var ErrBadFormat = errBadFormat
