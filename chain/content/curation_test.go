package content

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/forumchain/forumchain/types"
)

func TestCubicWeight(t *testing.T) {
	// the legacy scaling inflates both operands, so the quotient keeps
	// one factor of it
	require.EqualValues(t, 8888, cubicWeight(2, 3, true))
	require.EqualValues(t, 0, cubicWeight(2, 3, false))
	require.EqualValues(t, 10_000, cubicWeight(1, 1, true))
	require.EqualValues(t, 500_000_000, cubicWeight(500_000_000, 500_000_000, false))

	require.Zero(t, cubicWeight(-5, 3, true))
	require.Zero(t, cubicWeight(5, 0, true))
}

func TestCurveWeight(t *testing.T) {
	require.Zero(t, curveWeight(0, false))
	require.Zero(t, curveWeight(-10, true))

	// monotonic in rshares, and the legacy scaling inflates the input
	require.Greater(t, curveWeight(2000, false), curveWeight(1000, false))
	require.Greater(t, curveWeight(1000, true), curveWeight(1000, false))
}

func TestAuctionDiscount(t *testing.T) {
	require.EqualValues(t, 500, auctionDiscount(1000, 15, 30))
	require.EqualValues(t, 1000, auctionDiscount(1000, 30, 30))
	require.EqualValues(t, 0, auctionDiscount(1000, -5, 30))
	require.EqualValues(t, 1000, auctionDiscount(1000, 10, 0))
}

func TestWeightedAvgCashout(t *testing.T) {
	require.Equal(t, types.TimeFromUnix(150), weightedAvgCashout(100, 1000, 200, 1000))
	// with no prior stake the incoming vote sets the time outright
	require.Equal(t, types.TimeFromUnix(200), weightedAvgCashout(100, 0, 200, 500))
}
