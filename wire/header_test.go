package wire

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHeaderRoundTrip(t *testing.T) {
	h := Header{
		Magic:            [4]byte{'b', 'r', 't', '1'},
		NodeSize:         1 << 20,
		Flags:            3,
		Blocknum:         77,
		LayoutVersion:    1,
		Height:           2,
		Rand4Fingerprint: 0xdeadbeef,
		LocalFingerprint: 0x12345678,
		DiskLSN:          9001,
	}

	buf := make([]byte, HeaderSize)
	h.Encode(buf)

	got, err := DecodeHeader(buf)
	require.NoError(t, err)
	require.Equal(t, h, got)
	require.False(t, got.IsLeaf())
}

func TestDecodeHeaderShort(t *testing.T) {
	_, err := DecodeHeader(make([]byte, 4))
	require.Error(t, err)
}

func TestHeaderIsLeaf(t *testing.T) {
	h := Header{Height: 0}
	require.True(t, h.IsLeaf())
}
