package node

import (
	"testing"

	"github.com/brtdb/brt"
	"github.com/stretchr/testify/require"
)

func TestPutLeafInsertAndDelete(t *testing.T) {
	policy := testPolicy()
	n := NewLeaf(1, policy, 1)

	require.NoError(t, n.Put(policy, Message{Type: Insert, Key: []byte("k"), Val: []byte("v1")}, false))
	val, ok := n.Leaf.PMA.Get([]byte("k"))
	require.True(t, ok)
	require.Equal(t, "v1", string(val))

	require.NoError(t, n.Put(policy, Message{Type: Insert, Key: []byte("k"), Val: []byte("v2")}, false))
	val, ok = n.Leaf.PMA.Get([]byte("k"))
	require.True(t, ok)
	require.Equal(t, "v2", string(val))

	require.NoError(t, n.Put(policy, Message{Type: Delete, Key: []byte("k")}, false))
	_, ok = n.Leaf.PMA.Get([]byte("k"))
	require.False(t, ok)
}

func TestPutLeafRejectsOversizedPair(t *testing.T) {
	policy := testPolicy()
	policy.NodeSize = 32
	n := NewLeaf(1, policy, 1)
	n.NodeSize = 32

	big := make([]byte, 64)
	err := n.Put(policy, Message{Type: Insert, Key: []byte("k"), Val: big}, false)
	require.ErrorIs(t, err, brt.ErrTooLarge)
}

func TestWeakPutLeafReturnsEagainWhenFull(t *testing.T) {
	policy := testPolicy()
	policy.NodeSize = 90
	n := NewLeaf(1, policy, 1)
	n.NodeSize = 90

	// Fill close to capacity with a strong put first.
	require.NoError(t, n.Put(policy, Message{Type: Insert, Key: []byte("a"), Val: []byte("0123456789012345678901234")}, false))

	err := n.Put(policy, Message{Type: Insert, Key: []byte("b"), Val: []byte("0123456789012345678901234")}, true)
	require.ErrorIs(t, err, ErrEagain)

	// Leaf must be unmodified by a rejected weak put.
	_, ok := n.Leaf.PMA.Get([]byte("b"))
	require.False(t, ok)
}

func TestWeakPutLeafSucceedsWhenRoom(t *testing.T) {
	policy := testPolicy()
	n := NewLeaf(1, policy, 1)
	err := n.Put(policy, Message{Type: Insert, Key: []byte("a"), Val: []byte("1")}, true)
	require.NoError(t, err)
	_, ok := n.Leaf.PMA.Get([]byte("a"))
	require.True(t, ok)
}

func nonleafFixture(t *testing.T, policy *Policy) *Node {
	t.Helper()
	children := []*ChildInfo{{Blocknum: 10}, {Blocknum: 11}, {Blocknum: 12}}
	n, err := NewNonleaf(1, 1, policy, 1, [][]byte{[]byte("g"), []byte("m")}, children)
	require.NoError(t, err)
	return n
}

func TestPutNonleafRoutesToSingleChild(t *testing.T) {
	policy := testPolicy()
	n := nonleafFixture(t, policy)

	require.NoError(t, n.Put(policy, Message{Type: Insert, Key: []byte("a"), Val: []byte("1")}, false))
	require.Equal(t, 1, n.Nonleaf.Children[0].Buffer.Len())
	require.Equal(t, 0, n.Nonleaf.Children[1].Buffer.Len())
	require.Equal(t, 0, n.Nonleaf.Children[2].Buffer.Len())

	require.NoError(t, n.Put(policy, Message{Type: Insert, Key: []byte("z"), Val: []byte("1")}, false))
	require.Equal(t, 1, n.Nonleaf.Children[2].Buffer.Len())
}

func TestPutNonleafReplicatingDeleteOnPivotTie(t *testing.T) {
	policy := testPolicy()
	policy.DupsAllowed = true
	n := nonleafFixture(t, policy)

	require.NoError(t, n.Put(policy, Message{Type: Delete, Key: []byte("g")}, false))
	require.Equal(t, 1, n.Nonleaf.Children[0].Buffer.Len())
	require.Equal(t, 1, n.Nonleaf.Children[1].Buffer.Len())
	require.Equal(t, 0, n.Nonleaf.Children[2].Buffer.Len())
}

func TestHeaviestChildAndDequeueFor(t *testing.T) {
	policy := testPolicy()
	n := nonleafFixture(t, policy)

	require.Equal(t, -1, NewLeaf(9, policy, 1).HeaviestChild())

	require.NoError(t, n.Put(policy, Message{Type: Insert, Key: []byte("z"), Val: []byte("aaaaaaaaaa")}, false))
	require.NoError(t, n.Put(policy, Message{Type: Insert, Key: []byte("a"), Val: []byte("b")}, false))

	require.Equal(t, 2, n.HeaviestChild())

	m, ok := n.DequeueFor(2)
	require.True(t, ok)
	require.Equal(t, "z", string(m.Key))
}
