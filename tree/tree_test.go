package tree

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/brtdb/brt"
	"github.com/brtdb/brt/memfile"
)

func smallConfig() brt.Config {
	return brt.Config{NodeSize: 4096, Fanout: 8}
}

func openTestTree(t *testing.T, file *memfile.File, cfg brt.Config) *Tree {
	t.Helper()
	tr, err := Open(file, cfg)
	require.NoError(t, err)
	return tr
}

func key(i int) []byte { return []byte(fmt.Sprintf("key-%06d", i)) }
func val(i int) []byte { return []byte(fmt.Sprintf("val-%06d", i)) }

// A single insert survives a round trip through Insert/Lookup.
func TestInsertLookupRoundTrip(t *testing.T) {
	file := &memfile.File{}
	tr := openTestTree(t, file, smallConfig())
	defer tr.Close()

	require.NoError(t, tr.Insert([]byte("a"), []byte("1")))
	got, err := tr.Lookup([]byte("a"))
	require.NoError(t, err)
	require.Equal(t, []byte("1"), got)

	_, err = tr.Lookup([]byte("missing"))
	require.ErrorIs(t, err, brt.ErrNotFound)
}

// Scenario A: an ordered walk over many sequential keys visits them in
// order, exercising splits at every level.
func TestCursorOrderedWalk(t *testing.T) {
	file := &memfile.File{}
	tr := openTestTree(t, file, smallConfig())
	defer tr.Close()

	const n = 500
	for i := 0; i < n; i++ {
		require.NoError(t, tr.Insert(key(i), val(i)))
	}

	c, err := tr.NewCursor()
	require.NoError(t, err)
	defer c.Close()

	k, v, err := c.First()
	require.NoError(t, err)
	count := 0
	for k != nil {
		require.Equal(t, key(count), k)
		require.Equal(t, val(count), v)
		count++
		k, v, err = c.Next()
		require.NoError(t, err)
	}
	require.Equal(t, n, count)
}

// Scenario B: keys inserted in random order still read back in sorted
// order via a full cursor walk.
func TestCursorRandomInsertOrderedRead(t *testing.T) {
	file := &memfile.File{}
	tr := openTestTree(t, file, smallConfig())
	defer tr.Close()

	const n = 2000
	order := rand.New(rand.NewSource(1)).Perm(n)
	for _, i := range order {
		require.NoError(t, tr.Insert(key(i), val(i)))
	}

	c, err := tr.NewCursor()
	require.NoError(t, err)
	defer c.Close()

	k, _, err := c.First()
	require.NoError(t, err)
	prev := -1
	count := 0
	for k != nil {
		var idx int
		_, scanErr := fmt.Sscanf(string(k), "key-%06d", &idx)
		require.NoError(t, scanErr)
		require.Greater(t, idx, prev)
		prev = idx
		count++
		k, _, err = c.Next()
		require.NoError(t, err)
	}
	require.Equal(t, n, count)
}

// Scenario C: deleting every key but the last still leaves the cursor's
// FIRST on the one key that survives.
func TestDeleteThenCursorFirst(t *testing.T) {
	file := &memfile.File{}
	tr := openTestTree(t, file, smallConfig())
	defer tr.Close()

	const n = 1000
	for i := 0; i < n; i++ {
		require.NoError(t, tr.Insert(key(i), val(i)))
	}
	for i := 0; i < n-1; i++ {
		require.NoError(t, tr.Delete(key(i)))
	}

	c, err := tr.NewCursor()
	require.NoError(t, err)
	defer c.Close()

	k, v, err := c.First()
	require.NoError(t, err)
	require.Equal(t, key(n-1), k)
	require.Equal(t, val(n-1), v)

	k, _, err = c.Next()
	require.NoError(t, err)
	require.Nil(t, k)
}

// Property 5: reopening an unmodified tree is idempotent — every key
// inserted before Close is still present, unmodified, after Open again.
func TestReopenIsIdempotent(t *testing.T) {
	file := &memfile.File{}
	cfg := smallConfig()
	tr := openTestTree(t, file, cfg)

	const n = 300
	for i := 0; i < n; i++ {
		require.NoError(t, tr.Insert(key(i), val(i)))
	}
	require.NoError(t, tr.Close())

	tr2, err := Open(file, cfg)
	require.NoError(t, err)
	defer tr2.Close()

	for i := 0; i < n; i++ {
		got, err := tr2.Lookup(key(i))
		require.NoError(t, err)
		require.Equal(t, val(i), got)
	}
}

// Property 7: a cursor positioned on a key that is then deleted through
// the cursor itself reports ErrKeyEmpty until it moves again, and Next
// still resumes from that same logical position.
func TestCursorAfterDelete(t *testing.T) {
	file := &memfile.File{}
	tr := openTestTree(t, file, smallConfig())
	defer tr.Close()

	const n = 50
	for i := 0; i < n; i++ {
		require.NoError(t, tr.Insert(key(i), val(i)))
	}

	c, err := tr.NewCursor()
	require.NoError(t, err)
	defer c.Close()

	_, err = c.Set(key(10))
	require.NoError(t, err)
	require.NoError(t, c.Delete())

	_, kerr := c.Key()
	require.ErrorIs(t, kerr, brt.ErrKeyEmpty)

	k, v, err := c.Next()
	require.NoError(t, err)
	require.Equal(t, key(11), k)
	require.Equal(t, val(11), v)
}

// Duplicate-key trees keep same-key values sorted and let NextDup walk
// only within the current key's run.
func TestDuplicatesSortedNextDup(t *testing.T) {
	file := &memfile.File{}
	cfg := smallConfig()
	cfg.DuplicatesAllowed = true
	cfg.DuplicatesSorted = true
	tr := openTestTree(t, file, cfg)
	defer tr.Close()

	k := []byte("shared")
	require.NoError(t, tr.Insert(k, []byte("b")))
	require.NoError(t, tr.Insert(k, []byte("a")))
	require.NoError(t, tr.Insert(k, []byte("c")))
	require.NoError(t, tr.Insert([]byte("zzz"), []byte("last")))

	c, err := tr.NewCursor()
	require.NoError(t, err)
	defer c.Close()

	_, err = c.Set(k)
	require.NoError(t, err)
	v, err := c.Val()
	require.NoError(t, err)
	require.Equal(t, []byte("a"), v)

	_, v, err = c.NextDup()
	require.NoError(t, err)
	require.Equal(t, []byte("b"), v)

	_, v, err = c.NextDup()
	require.NoError(t, err)
	require.Equal(t, []byte("c"), v)

	nk, _, err := c.NextDup()
	require.NoError(t, err)
	require.Nil(t, nk)
}

// Keyrange reports a plausible three-way split around a probed key.
func TestKeyrange(t *testing.T) {
	file := &memfile.File{}
	tr := openTestTree(t, file, smallConfig())
	defer tr.Close()

	const n = 200
	for i := 0; i < n; i++ {
		require.NoError(t, tr.Insert(key(i), val(i)))
	}

	less, equal, greater, err := tr.Keyrange(key(100))
	require.NoError(t, err)
	require.EqualValues(t, 100, less)
	require.EqualValues(t, 1, equal)
	require.EqualValues(t, n-101, greater)
}
