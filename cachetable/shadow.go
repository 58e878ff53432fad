package cachetable

import (
	"encoding/binary"

	"github.com/VictoriaMetrics/fastcache"
)

// ShadowCache is an optional second-chance byte cache for clean pages
// evicted from the working set, consulted by GetAndPin before falling
// to the caller's fetch_cb. It holds encoded node bytes rather than
// materialised values, so it survives eviction cheaply (no flush, no
// pin accounting) at the cost of a re-decode on the next access.
// Grounded on cerc-io/ipld-eth-statedb's database.go codeCache use of
// github.com/VictoriaMetrics/fastcache.
type ShadowCache struct {
	cache *fastcache.Cache
}

// NewShadowCache creates a ShadowCache bounded at maxBytes.
func NewShadowCache(maxBytes int) *ShadowCache {
	return &ShadowCache{cache: fastcache.New(maxBytes)}
}

func shadowKey(fileID uint64, blocknum int64) []byte {
	var buf [16]byte
	binary.BigEndian.PutUint64(buf[0:8], fileID)
	binary.BigEndian.PutUint64(buf[8:16], uint64(blocknum))
	return buf[:]
}

// Get returns the cached encoded bytes for (fileID, blocknum), if any.
func (s *ShadowCache) Get(fileID uint64, blocknum int64) ([]byte, bool) {
	if s == nil {
		return nil, false
	}
	buf := s.cache.GetBig(nil, shadowKey(fileID, blocknum))
	if buf == nil {
		return nil, false
	}
	return buf, true
}

// Set stores the encoded bytes of a clean page so a subsequent miss can
// skip fetch_cb's I/O.
func (s *ShadowCache) Set(fileID uint64, blocknum int64, encoded []byte) {
	if s == nil {
		return
	}
	s.cache.SetBig(shadowKey(fileID, blocknum), encoded)
}

// Del evicts a page's shadow entry. The Cachetable itself never calls
// it; a page's shadow entry is replaced when the page is next evicted.
func (s *ShadowCache) Del(fileID uint64, blocknum int64) {
	if s == nil {
		return
	}
	s.cache.Del(shadowKey(fileID, blocknum))
}

// ShadowCodec lets a Cachetable populate and consult a ShadowCache
// without knowing the concrete node type: Encode turns a resident value
// into bytes for the shadow cache, Decode turns shadow bytes back into a
// value and its accounted size, the way node.Encode/node.Decode do for
// the on-disk format.
type ShadowCodec struct {
	Encode func(value any) ([]byte, error)
	Decode func(encoded []byte) (value any, size int, err error)
}

// SetShadow attaches a shadow cache and its codec. Must be called
// before any Put/GetAndPin if the shadow cache is to be consulted;
// nil disables shadowing (the default).
func (ct *Cachetable) SetShadow(shadow *ShadowCache, codec ShadowCodec) {
	ct.mu.Lock()
	defer ct.mu.Unlock()
	ct.shadow = shadow
	ct.shadowCodec = codec
}

// fetchWithShadow consults the shadow cache before falling back to
// fetch, so a page that was merely evicted clean (not truly absent)
// skips fetch_cb's I/O entirely.
func (ct *Cachetable) fetchWithShadow(k key, file brt.File, blocknum int64, fetch FetchFunc) (value any, size int, err error) {
	ct.mu.Lock()
	shadow, codec := ct.shadow, ct.shadowCodec
	ct.mu.Unlock()

	if shadow != nil && codec.Decode != nil {
		if encoded, ok := shadow.Get(k.FileID, blocknum); ok {
			if value, size, err := codec.Decode(encoded); err == nil {
				return value, size, nil
			}
			ct.log.WithField("blocknum", blocknum).Warnf("cachetable: shadow decode failed, falling back to fetch_cb")
		}
	}
	return fetch(file, blocknum)
}

// populateShadowLocked stores a clean entry's encoded bytes in the
// shadow cache just before it is dropped from the working set, so a
// later miss can skip fetch_cb. Must be called with ct.mu held.
func (ct *Cachetable) populateShadowLocked(k key, e *entry) {
	if ct.shadow == nil || ct.shadowCodec.Encode == nil || e.dirty {
		return
	}
	encoded, err := ct.shadowCodec.Encode(e.value)
	if err != nil {
		return
	}
	ct.shadow.Set(k.FileID, k.Blocknum, encoded)
}
