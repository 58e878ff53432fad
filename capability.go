// Package brt defines the capability interfaces and shared types consumed
// by every layer of the Buffered Repository Tree core: the storage
// backend a tree is opened on, the key/value comparator, and the logging
// capability. Concrete engines (node, cachetable, tree) depend on these
// interfaces rather than on each other's concrete types, the way the
// teacher's root smol package gives bptree and block a shared File
// contract instead of an inheritance hierarchy.
package brt

import "io"

// File provides access to a storage backend for the key-value database.
// The *os.File type satisfies this interface; so does *memfile.File for
// tests.
type File interface {
	io.ReaderAt
	io.WriterAt
	io.Closer

	// Truncate changes the size of the file.
	Truncate(size int64) error

	// Sync commits the current contents of the file to stable storage.
	Sync() error
}

// Comparator orders keys. Cmp must implement a strict weak order:
// negative if a < b, zero if equal, positive if a > b.
//
// A tree with DuplicatesAllowed set also consults a value comparator to
// order values sharing a key (see Config.ValueComparator).
type Comparator interface {
	Cmp(a, b []byte) int
}

// ComparatorFunc adapts a plain function to a Comparator.
type ComparatorFunc func(a, b []byte) int

func (f ComparatorFunc) Cmp(a, b []byte) int { return f(a, b) }

// ByteswiseComparator orders keys by unsigned byte-wise comparison, the
// default when Config.Comparator is nil.
var ByteswiseComparator Comparator = ComparatorFunc(compareBytes)

func compareBytes(a, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	default:
		return 0
	}
}

// Logger is the structured-logging capability threaded through the
// cachetable and BRT handle. NewLogrusLogger adapts a *logrus.Logger to it.
// A nil Logger is valid; callers get a no-op logger from NopLogger.
type Logger interface {
	WithField(key string, value any) Logger
	Debugf(format string, args ...any)
	Warnf(format string, args ...any)
}

// NopLogger discards every message. It is the default when Config.Logger
// is nil.
var NopLogger Logger = nopLogger{}

type nopLogger struct{}

func (nopLogger) WithField(string, any) Logger { return nopLogger{} }
func (nopLogger) Debugf(string, ...any)        {}
func (nopLogger) Warnf(string, ...any)         {}
