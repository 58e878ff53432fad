package memfile

import (
	"io"
	"testing"

	"github.com/brtdb/brt"
	"github.com/stretchr/testify/require"
)

var _ brt.File = (*File)(nil)

func TestWriteReadRoundTrip(t *testing.T) {
	var f File
	n, err := f.WriteAt([]byte("hello"), 0)
	require.NoError(t, err)
	require.Equal(t, 5, n)

	buf := make([]byte, 5)
	n, err = f.ReadAt(buf, 0)
	require.NoError(t, err)
	require.Equal(t, 5, n)
	require.Equal(t, "hello", string(buf))
}

func TestWriteAtGrowsFileWithGap(t *testing.T) {
	var f File
	_, err := f.WriteAt([]byte("x"), 10)
	require.NoError(t, err)
	require.Equal(t, int64(11), f.Size())

	buf := make([]byte, 11)
	n, err := f.ReadAt(buf, 0)
	require.NoError(t, err)
	require.Equal(t, 11, n)
	require.Equal(t, make([]byte, 10), buf[:10])
	require.Equal(t, byte('x'), buf[10])
}

func TestReadAtPastEndReturnsEOF(t *testing.T) {
	var f File
	_, _ = f.WriteAt([]byte("abc"), 0)
	buf := make([]byte, 10)
	n, err := f.ReadAt(buf, 0)
	require.ErrorIs(t, err, io.EOF)
	require.Equal(t, 3, n)
}

func TestTruncateShrinksAndGrows(t *testing.T) {
	var f File
	_, _ = f.WriteAt([]byte("abcdef"), 0)
	require.NoError(t, f.Truncate(3))
	require.Equal(t, int64(3), f.Size())

	require.NoError(t, f.Truncate(5))
	require.Equal(t, int64(5), f.Size())
	buf := make([]byte, 5)
	_, _ = f.ReadAt(buf, 0)
	require.Equal(t, "abc\x00\x00", string(buf))
}

func TestCloseResetsContent(t *testing.T) {
	var f File
	_, _ = f.WriteAt([]byte("abc"), 0)
	require.NoError(t, f.Close())
	require.Equal(t, int64(0), f.Size())
}
