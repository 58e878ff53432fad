package pma

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestThresholdsEndpoints(t *testing.T) {
	lgN := 10
	udt, ldt := thresholds(lgN, lgN) // whole array
	require.InDelta(t, UDTLow, udt, 1e-9)
	require.InDelta(t, LDTLow, ldt, 1e-9)

	udt, ldt = thresholds(0, lgN) // single slot
	require.InDelta(t, UDTHigh, udt, 1e-9)
	require.InDelta(t, LDTHigh, ldt, 1e-9)
}

func TestThresholdsMonotonic(t *testing.T) {
	lgN := 8
	var prevU, prevL float64 = 2, -1
	for d := 0; d <= lgN; d++ {
		udt, ldt := thresholds(d, lgN)
		require.LessOrEqual(t, udt, prevU+1e-9, "udt must not increase as depth grows")
		require.GreaterOrEqual(t, ldt, prevL-1e-9, "ldt must not decrease as depth grows")
		prevU, prevL = udt, ldt
	}
}
