package types

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestErrorKinds(t *testing.T) {
	t.Run("insufficient funds", func(t *testing.T) {
		err := fmt.Errorf("applying transfer: %w", &InsufficientFundsError{
			Account:  "alice",
			Balance:  MainBalance,
			Required: CoreAsset(1000),
			Actual:   CoreAsset(250),
		})
		require.ErrorIs(t, err, ErrInsufficientFunds)

		var ife *InsufficientFundsError
		require.ErrorAs(t, err, &ife)
		require.Equal(t, AccountName("alice"), ife.Account)
		require.Equal(t, CoreAsset(250), ife.Actual)
	})

	t.Run("logic code", func(t *testing.T) {
		err := Logic(LogicProxyLoop, "proxy %q", "bob")
		require.ErrorIs(t, err, ErrLogic)
		require.True(t, IsLogic(err, LogicProxyLoop))
		require.False(t, IsLogic(err, LogicProxyMustChange))
	})

	t.Run("missing object", func(t *testing.T) {
		err := MissingObject("comment", "alice/first-post")
		require.ErrorIs(t, err, ErrMissingObject)
		require.NotErrorIs(t, err, ErrObjectExists)
	})

	t.Run("unsupported", func(t *testing.T) {
		require.ErrorIs(t, Unsupported("pow is deprecated"), ErrUnsupportedOperation)
	})

	t.Run("unrelated errors do not match", func(t *testing.T) {
		require.NotErrorIs(t, errors.New("boom"), ErrInsufficientFunds)
	})
}

func TestCheckBandwidth(t *testing.T) {
	now := TimeFromUnix(1_000_000)

	// legal exactly at the scheduled second
	require.NoError(t, CheckBandwidth(now, now, VoteBandwidth, ""))
	require.NoError(t, CheckBandwidth(now, now.AddSeconds(-1), VoteBandwidth, ""))

	err := CheckBandwidth(now, now.AddSeconds(1), VoteBandwidth, "can only vote once every 3 seconds")
	require.ErrorIs(t, err, ErrBandwidth)

	var be *BandwidthError
	require.ErrorAs(t, err, &be)
	require.Equal(t, VoteBandwidth, be.Kind)
}
