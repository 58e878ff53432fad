package pma

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

type intItem struct{ v int }

func intCmp(a, b *intItem) int {
	switch {
	case a.v < b.v:
		return -1
	case a.v > b.v:
		return 1
	default:
		return 0
	}
}

func newIntGPMA() *GPMA[intItem] {
	g := new(GPMA[intItem])
	g.Init(intCmp, nil)
	return g
}

func TestGPMAInsertFindOrder(t *testing.T) {
	g := newIntGPMA()
	vals := []int{5, 3, 8, 1, 9, 2, 7, 4, 6, 0}
	for _, v := range vals {
		found := g.Insert(&intItem{v})
		require.False(t, found)
	}
	require.Equal(t, 10, g.Len())

	var prev *intItem
	count := 0
	g.Items(func(_ int, it *intItem) bool {
		if prev != nil {
			require.Less(t, prev.v, it.v)
		}
		prev = it
		count++
		return true
	})
	require.Equal(t, 10, count)
}

func TestGPMAInsertDuplicateRejected(t *testing.T) {
	g := newIntGPMA()
	g.Insert(&intItem{1})
	found := g.Insert(&intItem{1})
	require.True(t, found)
	require.Equal(t, 1, g.Len())
}

func TestGPMADeleteByKey(t *testing.T) {
	g := newIntGPMA()
	for i := 0; i < 20; i++ {
		g.Insert(&intItem{i})
	}
	require.True(t, g.DeleteItem(&intItem{10}))
	require.False(t, g.DeleteItem(&intItem{10}))
	require.Equal(t, 19, g.Len())

	idx, found := g.Find(&intItem{10})
	require.False(t, found)
	_ = idx
}

func TestGPMAGrowsAndShrinks(t *testing.T) {
	g := newIntGPMA()
	for i := 0; i < 1000; i++ {
		g.Insert(&intItem{i})
	}
	bigCap := g.Cap()
	require.GreaterOrEqual(t, bigCap, 1000)

	for i := 0; i < 990; i++ {
		g.DeleteItem(&intItem{i})
	}
	require.Equal(t, 10, g.Len())
	require.Less(t, g.Cap(), bigCap)
}

func TestGPMARandomMixedOps(t *testing.T) {
	g := newIntGPMA()
	present := map[int]bool{}
	r := rand.New(rand.NewSource(42))

	for i := 0; i < 5000; i++ {
		v := r.Intn(500)
		if present[v] {
			require.True(t, g.DeleteItem(&intItem{v}))
			delete(present, v)
		} else {
			found := g.Insert(&intItem{v})
			require.False(t, found)
			present[v] = true
		}
		require.Equal(t, len(present), g.Len())
	}

	var got []int
	g.Items(func(_ int, it *intItem) bool {
		got = append(got, it.v)
		return true
	})
	require.Equal(t, len(present), len(got))
	for _, v := range got {
		require.True(t, present[v])
	}
}

func TestGPMABesselDirections(t *testing.T) {
	g := newIntGPMA()
	for _, v := range []int{10, 20, 30, 40, 50} {
		g.Insert(&intItem{v})
	}

	sign := func(pivot int) func(*intItem) int {
		return func(it *intItem) int {
			switch {
			case it.v < pivot:
				return -1
			case it.v > pivot:
				return 1
			default:
				return 0
			}
		}
	}

	idx, found := g.Bessel(0, sign(30))
	require.True(t, found)
	require.Equal(t, 30, g.At(idx).v)

	idx, found = g.Bessel(-1, sign(25))
	require.False(t, found)
	require.Equal(t, 20, g.At(idx).v)

	idx, found = g.Bessel(1, sign(25))
	require.False(t, found)
	require.Equal(t, 30, g.At(idx).v)
}

func TestGPMARenumberCallback(t *testing.T) {
	var lastMoves []Move
	g := new(GPMA[intItem])
	g.Init(intCmp, func(moves []Move, oldN, newN int) {
		lastMoves = moves
	})
	for i := 0; i < 100; i++ {
		g.Insert(&intItem{i})
	}
	require.NotEmpty(t, lastMoves)
	for _, m := range lastMoves {
		require.GreaterOrEqual(t, m.From, 0)
		require.GreaterOrEqual(t, m.To, 0)
	}
}

func TestGPMASplitBalancesWeight(t *testing.T) {
	g := newIntGPMA()
	for i := 0; i < 100; i++ {
		g.Insert(&intItem{i})
	}
	right := g.Split(func(*intItem) int { return 1 }, intCmp, nil)

	require.Equal(t, 100, g.Len()+right.Len())
	require.InDelta(t, 50, g.Len(), 2)

	var leftMax, rightMin int
	g.Items(func(_ int, it *intItem) bool { leftMax = it.v; return true })
	first := true
	right.Items(func(_ int, it *intItem) bool {
		if first {
			rightMin = it.v
			first = false
		}
		return true
	})
	require.Less(t, leftMax, rightMin)
}
