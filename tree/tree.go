package tree

import (
	"fmt"
	"io"
	"math/rand/v2"
	"sync"

	"github.com/brtdb/brt"
	"github.com/brtdb/brt/cachetable"
	"github.com/brtdb/brt/internal/fingerprint"
	"github.com/brtdb/brt/node"
	"github.com/brtdb/brt/wire"
)

// Tree is an open Buffered Repository Tree handle: spec.md §6's BRT
// header plus block allocator, wired to a cachetable.Cachetable that
// pins and evicts *node.Node values keyed by blocknum. One Tree owns one
// brt.File; several Trees may share a Cachetable the way the teacher's
// smol.DB shares one block.Allocator across every bptree.Tree opened on
// it, but here each Tree keeps a private Cachetable for simplicity (see
// DESIGN.md).
type Tree struct {
	mu     sync.Mutex // serialises root/header mutation and split propagation
	file   brt.File
	cfg    brt.Config
	policy *node.Policy
	codec  wire.Codec
	cache  *cachetable.Cachetable
	alloc  *blockAllocator
	header Header
	closed bool
}

// Open opens or creates a BRT on file per cfg. An empty file is
// initialised with a fresh header and an empty root leaf; a non-empty
// file is validated against Magic and its translation table is loaded
// (spec.md testable property 5: reopening an unmodified tree is
// idempotent).
func Open(file brt.File, cfg brt.Config) (*Tree, error) {
	cfg = cfg.WithDefaults()
	codec, err := wire.CodecByID(cfg.Compression)
	if err != nil {
		return nil, err
	}
	policy := &node.Policy{
		Cmp:          cfg.Comparator,
		ValCmp:       cfg.ValueComparator,
		DupsAllowed:  cfg.DuplicatesAllowed,
		DupsSorted:   cfg.DuplicatesSorted,
		NodeSize:     cfg.NodeSize,
		Fanout:       cfg.Fanout,
		FanoutPolicy: cfg.FanoutPolicy,
	}

	t := &Tree{
		file:   file,
		cfg:    cfg,
		policy: policy,
		codec:  codec,
		cache:  cachetable.New(cfg.CacheSize, cfg.Logger),
	}
	if cfg.ShadowCacheSize > 0 {
		t.cache.SetShadow(cachetable.NewShadowCache(int(cfg.ShadowCacheSize)), cachetable.ShadowCodec{
			Encode: func(value any) ([]byte, error) {
				return value.(*node.Node).Encode(t.codec)
			},
			Decode: func(encoded []byte) (any, int, error) {
				n, err := node.Decode(encoded, t.policy, t.codec)
				if err != nil {
					return nil, 0, err
				}
				return n, len(encoded), nil
			},
		})
	}

	headerBuf := make([]byte, HeaderSize)
	n, err := file.ReadAt(headerBuf, 0)
	switch {
	case err == io.EOF && n == 0:
		if cfg.ReadOnly {
			return nil, fmt.Errorf("tree: cannot create %w tree on empty file", brt.ErrReadOnly)
		}
		if err := t.initEmpty(); err != nil {
			return nil, err
		}
	case err != nil && err != io.EOF:
		return nil, fmt.Errorf("tree: read header: %w", err)
	case n < HeaderSize:
		return nil, fmt.Errorf("tree: %w: truncated header", brt.ErrBadFormat)
	default:
		if err := t.loadExisting(headerBuf); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func (t *Tree) initEmpty() error {
	t.alloc = newBlockAllocator(int64(HeaderSize))
	rootBlocknum := t.alloc.allocBlocknum()
	root := node.NewLeaf(rootBlocknum, t.policy, randSalt())
	if err := t.cache.Put(t.file, rootBlocknum, root, root.ByteSize(), t.flushNode); err != nil {
		return err
	}
	if err := t.cache.Unpin(t.file, rootBlocknum, true, root.ByteSize(), 0); err != nil {
		return err
	}
	t.header = Header{
		Magic:        Magic,
		NodeSize:     uint32(t.policy.NodeSize),
		RootBlocknum: rootBlocknum,
	}
	return nil
}

func (t *Tree) loadExisting(headerBuf []byte) error {
	h, err := decodeHeader(headerBuf)
	if err != nil {
		return fmt.Errorf("tree: %w: %v", brt.ErrBadFormat, err)
	}
	t.header = h
	t.alloc = newBlockAllocator(int64(HeaderSize))
	t.alloc.nextBlocknum = h.NextBlocknum
	t.alloc.nextFileOffset = h.NextFileOffset

	if h.TranslationLen > 0 {
		buf := make([]byte, h.TranslationLen)
		if _, err := t.file.ReadAt(buf, h.TranslationOffset); err != nil {
			return fmt.Errorf("tree: read translation table: %w", err)
		}
		table, err := decodeTranslationTable(buf)
		if err != nil {
			return fmt.Errorf("tree: %w: %v", brt.ErrBadFormat, err)
		}
		t.alloc.translations = table
	}
	return nil
}

func randSalt() fingerprint.Salt {
	return fingerprint.Salt(rand.Uint32())
}

// fetchNode is the cachetable.FetchFunc that decodes a node from disk on
// a cache miss.
func (t *Tree) fetchNode(file brt.File, blocknum int64) (any, int, error) {
	loc, ok := t.alloc.locate(blocknum)
	if !ok {
		return nil, 0, fmt.Errorf("tree: unknown blocknum %d", blocknum)
	}
	buf := make([]byte, loc.Size)
	if _, err := file.ReadAt(buf, loc.Offset); err != nil {
		return nil, 0, fmt.Errorf("tree: read block %d: %w", blocknum, err)
	}
	n, err := node.Decode(buf, t.policy, t.codec)
	if err != nil {
		return nil, 0, fmt.Errorf("tree: decode block %d: %w: %w", blocknum, brt.ErrBadFormat, err)
	}
	return n, len(buf), nil
}

// flushNode is the cachetable.FlushFunc that serialises a dirty node and
// places it at a fresh file offset (spec.md §6: "node rewrites may
// allocate a new block rather than overwrite in place").
func (t *Tree) flushNode(file brt.File, blocknum int64, value any, writeMe bool, modifiedLSN uint64) error {
	if !writeMe {
		return nil
	}
	n := value.(*node.Node)
	buf, err := n.Encode(t.codec)
	if err != nil {
		return fmt.Errorf("tree: encode block %d: %w", blocknum, err)
	}
	return t.alloc.place(file, blocknum, buf)
}

func (t *Tree) pinRoot() (*node.Node, error) {
	v, err := t.cache.GetAndPin(t.file, t.header.RootBlocknum, t.fetchNode, t.flushNode)
	if err != nil {
		return nil, err
	}
	return v.(*node.Node), nil
}

func (t *Tree) pinChild(n *node.Node, idx int) (*node.Node, error) {
	ci := n.Nonleaf.Children[idx]
	v, err := t.cache.GetAndPin(t.file, ci.Blocknum, t.fetchNode, t.flushNode)
	if err != nil {
		return nil, err
	}
	return v.(*node.Node), nil
}

func (t *Tree) unpin(n *node.Node) error {
	dirty := n.Dirty
	n.Dirty = false
	return t.cache.Unpin(t.file, n.Blocknum, dirty, n.ByteSize(), 0)
}

// Close flushes and persists every dirty node, writes the translation
// table and header, and releases the underlying file's cachetable
// entries. It fails with brt.ErrPinned if an in-flight operation still
// holds a pin; open cursors hold none.
func (t *Tree) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return brt.ErrClosed
	}
	if err := t.cache.Close(t.file); err != nil {
		return err
	}

	nextBlocknum, nextFileOffset := t.alloc.snapshot()
	table := t.alloc.encodeTranslationTable()
	t.header.NextBlocknum = nextBlocknum
	t.header.NextFileOffset = nextFileOffset
	t.header.TranslationOffset = nextFileOffset
	t.header.TranslationLen = int64(len(table))

	if _, err := t.file.WriteAt(table, t.header.TranslationOffset); err != nil {
		return fmt.Errorf("tree: write translation table: %w", err)
	}

	headerBuf := make([]byte, HeaderSize)
	t.header.encode(headerBuf)
	if _, err := t.file.WriteAt(headerBuf, 0); err != nil {
		return fmt.Errorf("tree: write header: %w", err)
	}
	if err := t.file.Sync(); err != nil {
		return fmt.Errorf("tree: sync: %w", err)
	}
	t.closed = true
	return nil
}
