package brt

// FanoutPolicy resolves the open question in spec.md §9 for the edge
// case n_children==2 at a nonleaf that must absorb one more child from a
// split but cannot grow past Config's fan-out bound.
//
// The tree code does not read this setting, so both values behave the
// same: a nonleaf that a child split leaves over the fan-out bound or
// NodeSize stays oversized until a mutation's cascade returns to its
// parent (for the root, the end of a mutation) and splits it there.
type FanoutPolicy uint8

const (
	// FanoutPolicyEnlargeNode names the choice of letting the serialized
	// node temporarily exceed NodeSize rather than leave a 2-child node
	// unsplittable. This is the default (see DESIGN.md).
	FanoutPolicyEnlargeNode FanoutPolicy = iota

	// FanoutPolicyFatChild names the alternative of propagating a single
	// over-wide child upward and splitting the parent immediately.
	// Selecting it changes nothing; see FanoutPolicy.
	FanoutPolicyFatChild
)

// Config configures a BRT tree at Open. The zero value resolves to the
// documented defaults via WithDefaults, matching the teacher's
// BlockOption pattern of a small value-receiver options struct.
type Config struct {
	// NodeSize bounds the serialized size of every node (spec.md
	// invariant 2). Default 1<<20 (1 MiB); tests commonly use 4096.
	NodeSize int

	// Fanout bounds nonleaf n_children (spec.md §4.2.2). Default 16.
	Fanout int

	// CacheSize is the byte budget of the Cachetable that Open creates
	// for this tree. Every Tree has its own Cachetable, so trees do not
	// share one budget. Default 64 MiB.
	CacheSize int64

	// ShadowCacheSize, if positive, attaches a second-chance byte cache
	// for clean pages evicted from the working set (cachetable.ShadowCache),
	// so a page merely evicted clean skips re-fetching on the next miss.
	// Zero (the default) disables it.
	ShadowCacheSize int64

	// Comparator orders keys. Default ByteswiseComparator.
	Comparator Comparator

	// ValueComparator orders values sharing a key when DuplicatesAllowed
	// is set and DuplicatesSorted requests secondary ordering. Default
	// ByteswiseComparator.
	ValueComparator Comparator

	// DuplicatesAllowed permits more than one value per key.
	DuplicatesAllowed bool

	// DuplicatesSorted, when DuplicatesAllowed is set, additionally
	// orders same-key values by ValueComparator instead of insertion
	// order, enabling GET_BOTH / NEXT_DUP / PREV_DUP.
	DuplicatesSorted bool

	// FanoutPolicy resolves spec.md §9's n_children==2 open question.
	FanoutPolicy FanoutPolicy

	// Compression selects the page codec; see wire.Codec. Zero value is
	// wire.CodecIdentity.
	Compression uint8

	// Logger receives structured diagnostics. Default NopLogger.
	Logger Logger

	// ReadOnly opens the tree without permitting mutation.
	ReadOnly bool
}

const (
	defaultNodeSize  = 1 << 20
	defaultFanout    = 16
	defaultCacheSize = 64 << 20
)

// WithDefaults returns a copy of cfg with zero fields resolved to their
// documented defaults.
func (cfg Config) WithDefaults() Config {
	if cfg.NodeSize <= 0 {
		cfg.NodeSize = defaultNodeSize
	}
	if cfg.Fanout <= 0 {
		cfg.Fanout = defaultFanout
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = defaultCacheSize
	}
	if cfg.Comparator == nil {
		cfg.Comparator = ByteswiseComparator
	}
	if cfg.ValueComparator == nil {
		cfg.ValueComparator = ByteswiseComparator
	}
	if cfg.Logger == nil {
		cfg.Logger = NopLogger
	}
	return cfg
}
