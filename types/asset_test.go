package types

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseAsset(t *testing.T) {
	tests := []struct {
		input string
		want  Asset
		err   string
	}{
		{input: "12.345 CORE", want: CoreAsset(12345)},
		{input: "0.001 DEBT", want: DebtAsset(1)},
		{input: "1.000000 VESTS", want: VestsAsset(1_000_000)},
		{input: "-3.500 CORE", want: CoreAsset(-3500)},
		{input: "7 CORE", want: CoreAsset(7000)},
		{input: "1.2345 CORE", err: "exceeds precision"},
		{input: "1.000 GOLD", err: "unknown asset symbol"},
		{input: "CORE", err: "malformed asset"},
	}
	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			got, err := ParseAsset(tc.input)
			if tc.err != "" {
				require.ErrorContains(t, err, tc.err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestAssetStringRoundTrip(t *testing.T) {
	for _, a := range []Asset{
		CoreAsset(12345),
		CoreAsset(-12345),
		DebtAsset(0),
		VestsAsset(987654321),
	} {
		parsed, err := ParseAsset(a.String())
		require.NoError(t, err)
		require.Equal(t, a, parsed)
	}
}

func TestAssetArithmeticPanicsOnSymbolMismatch(t *testing.T) {
	require.Panics(t, func() { CoreAsset(1).Add(DebtAsset(1)) })
	require.Panics(t, func() { CoreAsset(1).LT(VestsAsset(1)) })
}

func TestPriceConvert(t *testing.T) {
	// 1.000 CORE = 2.000 DEBT
	p := Price{Base: CoreAsset(1000), Quote: DebtAsset(2000)}

	require.Equal(t, DebtAsset(7000), p.Convert(CoreAsset(3500)))
	require.Equal(t, CoreAsset(1750), p.Convert(DebtAsset(3500)))
	// truncation toward zero
	require.Equal(t, CoreAsset(0), p.Convert(DebtAsset(1)))
	require.Panics(t, func() { p.Convert(VestsAsset(1)) })
}

func TestMulDivWide(t *testing.T) {
	// would overflow int64 without the wide intermediate
	require.Equal(t, int64(math.MaxInt64/2), MulDivWide(math.MaxInt64, 1, 2))
	require.Equal(t, int64(-5), MulDivWide(-10, 1, 2))
	require.Equal(t, int64(5), MulDivWide(-10, -1, 2))
	require.Equal(t, int64(0), MulDivWide(1, 1, 2))
	require.Panics(t, func() { MulDivWide(1, 1, 0) })
}

func TestTimeSentinels(t *testing.T) {
	require.Equal(t, "never", MaxTime.String())
	require.Equal(t, MaxTime, TimeFromUnix(math.MaxInt64))
	require.Equal(t, MinTime, TimeFromUnix(-1))

	now := TimeFromUnix(1_500_000_000)
	require.Equal(t, int64(60), now.AddSeconds(60).SecondsSince(now))
	require.True(t, now.Before(now.AddSeconds(1)))
}

func TestValidateAccountName(t *testing.T) {
	require.NoError(t, ValidateAccountName("alice"))
	require.NoError(t, ValidateAccountName("bob-1"))
	require.NoError(t, ValidateAccountName("abc.def"))

	require.Error(t, ValidateAccountName("ab"))
	require.Error(t, ValidateAccountName("this-name-is-way-too-long"))
	require.Error(t, ValidateAccountName("1abc"))
	require.Error(t, ValidateAccountName("abc-"))
	require.Error(t, ValidateAccountName("ABC"))
	require.Error(t, ValidateAccountName("a..b"))
}
