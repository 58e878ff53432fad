package node

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRootXIDsIsEmpty(t *testing.T) {
	require.Equal(t, 0, RootXIDs.Depth())
	require.EqualValues(t, 0, RootXIDs.Innermost())
}

func TestCreateChildAppends(t *testing.T) {
	child, err := RootXIDs.CreateChild(5)
	require.NoError(t, err)
	require.Equal(t, 1, child.Depth())
	require.EqualValues(t, 5, child.Innermost())

	grandchild, err := child.CreateChild(9)
	require.NoError(t, err)
	require.Equal(t, 2, grandchild.Depth())
	require.EqualValues(t, 9, grandchild.Innermost())

	// parent unmodified
	require.Equal(t, 1, child.Depth())
}

func TestCreateChildRejectsNonIncreasing(t *testing.T) {
	child, _ := RootXIDs.CreateChild(5)
	_, err := child.CreateChild(5)
	require.Error(t, err)
	_, err = child.CreateChild(3)
	require.Error(t, err)
}

func TestMessageTypeString(t *testing.T) {
	require.Equal(t, "INSERT", Insert.String())
	require.Equal(t, "DELETE", Delete.String())
	require.Equal(t, "DELETE_BOTH", DeleteBoth.String())
	require.Equal(t, "NONE", None.String())
}
