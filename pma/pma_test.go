package pma

import (
	"bytes"
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func byteCmp(a, b []byte) int { return bytes.Compare(a, b) }

func newPMA() *PMA {
	p := new(PMA)
	p.Init(byteCmp, byteCmp, false, false, nil)
	return p
}

func TestPMASetGetDelete(t *testing.T) {
	p := newPMA()
	p.SetUnique([]byte("b"), []byte("2"))
	p.SetUnique([]byte("a"), []byte("1"))
	p.SetUnique([]byte("c"), []byte("3"))

	v, ok := p.Get([]byte("a"))
	require.True(t, ok)
	require.Equal(t, "1", string(v))

	p.SetUnique([]byte("a"), []byte("11"))
	v, ok = p.Get([]byte("a"))
	require.True(t, ok)
	require.Equal(t, "11", string(v))

	require.True(t, p.Delete([]byte("b")))
	_, ok = p.Get([]byte("b"))
	require.False(t, ok)
	require.False(t, p.Delete([]byte("b")))
}

func TestPMAOrderedWalk(t *testing.T) {
	p := newPMA()
	for i := 0; i < 10; i++ {
		k := []byte(fmt.Sprintf("%04d", i))
		p.SetUnique(k, []byte(fmt.Sprintf("v%d", i)))
	}

	pair, idx, ok := p.First()
	require.True(t, ok)
	require.Equal(t, "0000", string(pair.Key))

	count := 1
	for {
		pair, idx, ok = p.Next(idx)
		if !ok {
			break
		}
		count++
		_ = pair
	}
	require.Equal(t, 10, count)
}

func TestPMARandomInsertOrderedRead(t *testing.T) {
	p := newPMA()
	seen := map[uint64]bool{}
	r := rand.New(rand.NewSource(7))
	for len(seen) < 2000 {
		k := r.Uint64()
		seen[k] = true
		var kb [8]byte
		for i := range kb {
			kb[i] = byte(k >> (8 * (7 - i)))
		}
		p.SetUnique(kb[:], kb[:])
	}

	require.Equal(t, len(seen), p.Len())

	pair, idx, ok := p.First()
	require.True(t, ok)
	prev := pair.Key
	count := 1
	for {
		pair, idx, ok = p.Next(idx)
		if !ok {
			break
		}
		require.True(t, bytes.Compare(prev, pair.Key) < 0, "must be strictly ascending")
		prev = pair.Key
		count++
	}
	require.Equal(t, len(seen), count)
}

func TestPMADensityInvariant(t *testing.T) {
	p := newPMA()
	for i := 0; i < 5000; i++ {
		k := []byte(fmt.Sprintf("%05d", i))
		p.SetUnique(k, k)
	}
	n := p.gpma.Cap()
	density := float64(p.Len()) / float64(n)
	require.GreaterOrEqual(t, density, LDTLow)
	require.LessOrEqual(t, density, UDTHigh)

	for i := 0; i < 4990; i++ {
		k := []byte(fmt.Sprintf("%05d", i))
		p.Delete(k)
	}
	n = p.gpma.Cap()
	if p.Len() > 0 {
		density = float64(p.Len()) / float64(n)
		require.GreaterOrEqual(t, density, LDTLow-0.05)
	}
}

func TestPMADeleteThenCursorFirst(t *testing.T) {
	p := newPMA()
	for i := 0; i < 1000; i++ {
		k := []byte(fmt.Sprintf("%04d", i))
		p.SetUnique(k, k)
	}
	for i := 0; i < 999; i++ {
		k := []byte(fmt.Sprintf("%04d", i))
		p.Delete(k)
	}
	pair, _, ok := p.First()
	require.True(t, ok)
	require.Equal(t, "0999", string(pair.Key))
}

func TestPMASplit(t *testing.T) {
	p := newPMA()
	for i := 0; i < 200; i++ {
		k := []byte(fmt.Sprintf("%04d", i))
		p.SetUnique(k, bytes.Repeat([]byte("x"), 8))
	}
	right, pivot := p.Split()
	require.NotNil(t, right)
	require.Greater(t, p.Len(), 0)
	require.Greater(t, right.Len(), 0)
	require.Equal(t, p.Len()+right.Len(), 200)

	leftLast, _, ok := p.Last()
	require.True(t, ok)
	require.Equal(t, string(leftLast.Key), string(pivot))

	rightFirst, _, ok := right.First()
	require.True(t, ok)
	require.True(t, bytes.Compare(leftLast.Key, rightFirst.Key) < 0)
}

func TestPMADuplicatesAllowedUnsorted(t *testing.T) {
	p := new(PMA)
	p.Init(byteCmp, nil, true, false, nil)
	p.AddDuplicate([]byte("k"), []byte("1"))
	p.AddDuplicate([]byte("k"), []byte("2"))
	p.AddDuplicate([]byte("k"), []byte("1")) // exact duplicate collapses via Find+found? no: InsertDuplicate always inserts.

	count := 0
	p.Items(func(_ int, pair *Pair) bool {
		if string(pair.Key) == "k" {
			count++
		}
		return true
	})
	require.Equal(t, 3, count)

	require.True(t, p.DeleteBoth([]byte("k"), []byte("2")))
	require.False(t, p.DeleteBoth([]byte("k"), []byte("2")))
}

func TestPMADuplicatesSorted(t *testing.T) {
	p := new(PMA)
	p.Init(byteCmp, byteCmp, true, true, nil)
	p.AddDuplicate([]byte("k"), []byte("3"))
	p.AddDuplicate([]byte("k"), []byte("1"))
	p.AddDuplicate([]byte("k"), []byte("2"))

	var vals []string
	p.Items(func(_ int, pair *Pair) bool {
		vals = append(vals, string(pair.Val))
		return true
	})
	require.Equal(t, []string{"1", "2", "3"}, vals)
}

func TestPMARenumberCallbackFires(t *testing.T) {
	moved := 0
	p := new(PMA)
	p.Init(byteCmp, byteCmp, false, false, func(moves []Move, oldN, newN int) {
		moved += len(moves)
	})
	for i := 0; i < 500; i++ {
		k := []byte(fmt.Sprintf("%04d", i))
		p.SetUnique(k, k)
	}
	require.Greater(t, moved, 0)
}
