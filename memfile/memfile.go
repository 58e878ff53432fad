// Package memfile implements brt.File entirely in memory, for tests
// that must never touch a real filesystem (SPEC_FULL.md §9.4). Adapted
// from the teacher's mem package: same ReadAt/WriteAt/Truncate/Sync/
// Close contract and growable semantics, but a single guarded byte
// slice instead of the teacher's unsafe-pointer segment list — this
// module has no build step to catch a pointer-arithmetic mistake in
// that scheme, so a plain slice is the safer trade here.
package memfile

import (
	"io"
	"sync"
)

// File is an in-memory brt.File. The zero value is ready to use.
type File struct {
	mu   sync.RWMutex
	data []byte
}

// Size returns the current file size in bytes.
func (f *File) Size() int64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return int64(len(f.data))
}

// ReadAt implements io.ReaderAt.
func (f *File) ReadAt(p []byte, off int64) (n int, err error) {
	if off < 0 {
		return 0, io.ErrUnexpectedEOF
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	if off >= int64(len(f.data)) {
		return 0, io.EOF
	}
	n = copy(p, f.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// WriteAt implements io.WriterAt, growing the file as needed.
func (f *File) WriteAt(p []byte, off int64) (n int, err error) {
	if off < 0 {
		return 0, io.ErrUnexpectedEOF
	}
	if len(p) == 0 {
		return 0, nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	end := off + int64(len(p))
	if end > int64(len(f.data)) {
		grown := make([]byte, end)
		copy(grown, f.data)
		f.data = grown
	}
	return copy(f.data[off:end], p), nil
}

// Truncate changes the file size, zero-filling on growth.
func (f *File) Truncate(size int64) error {
	if size < 0 {
		return io.ErrUnexpectedEOF
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	switch {
	case size < int64(len(f.data)):
		f.data = f.data[:size]
	case size > int64(len(f.data)):
		grown := make([]byte, size)
		copy(grown, f.data)
		f.data = grown
	}
	return nil
}

// Sync is a no-op; there is no backing store to flush to.
func (f *File) Sync() error { return nil }

// Close discards the file's contents. It is safe to use the File again
// afterwards; it simply starts out empty.
func (f *File) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data = nil
	return nil
}
