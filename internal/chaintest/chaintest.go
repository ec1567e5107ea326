// Package chaintest provides the ledger fixtures shared by evaluator
// tests.
package chaintest

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/forumchain/forumchain/chain"
	"github.com/forumchain/forumchain/domain"
	"github.com/forumchain/forumchain/hardfork"
	"github.com/forumchain/forumchain/observability"
	"github.com/forumchain/forumchain/state"
	"github.com/forumchain/forumchain/types"
)

// GenesisTime is the chain start of every test ledger.
const GenesisTime = types.Time(1_600_000_000)

// InitialBalance is the liquid core balance every seeded account starts
// with.
const InitialBalance = int64(1_000_000)

// Key returns a well-formed compressed public key derived from seed.
func Key(seed byte) types.PublicKey {
	key := make(types.PublicKey, types.CompressedPubKeyLength)
	key[0] = 0x02
	key[1] = seed
	return key
}

// NewState builds a committed ledger seeding each named account with
// InitialBalance of the core token.
func NewState(t *testing.T, names ...types.AccountName) *state.Store {
	t.Helper()
	cfg := chain.GenesisConfig{Time: GenesisTime}
	for i, name := range names {
		cfg.Accounts = append(cfg.Accounts, chain.GenesisAccount{
			Name:    name,
			Key:     Key(byte(i + 1)),
			Balance: types.CoreAsset(InitialBalance),
		})
	}
	s := state.NewStore()
	require.NoError(t, chain.InitGenesis(s, cfg))
	return s
}

// NewContext builds a block execution context over s at the given
// hardfork version.
func NewContext(t *testing.T, s *state.Store, hf uint32) *chain.ExecutionContext {
	t.Helper()
	// every active hardfork activated at the chain start
	return &chain.ExecutionContext{
		State:    s,
		HF:       hardfork.NewSet(hf, false),
		Schedule: hardfork.NewSchedule(make([]types.Time, hf)),
		BlockNum: 1,
		Now:      GenesisTime + 60,
		Log:      observability.NOP().Logger(),
	}
}

// Apply round-trips attrs through the wire envelope and runs both
// evaluator phases.
func Apply(ctx *chain.ExecutionContext, m chain.Module, opType string, attrs any) error {
	op := types.MustNewOperation(opType, attrs)
	executors := make(chain.OpExecutors)
	if err := executors.Add(m.OpHandlers()); err != nil {
		return err
	}
	return executors.ValidateAndApply(ctx, &op)
}

// Vest mints vesting shares for name from amount of the core token
// without debiting anything.
func Vest(t *testing.T, s *state.Store, name types.AccountName, amount int64) types.Asset {
	t.Helper()
	shares, err := chain.CreateVesting(s, name, types.CoreAsset(amount))
	require.NoError(t, err)
	return shares
}

// Account reads the account object of name.
func Account(t *testing.T, s *state.Store, name types.AccountName) *domain.Account {
	t.Helper()
	acc, err := domain.GetAccount(s, name)
	require.NoError(t, err)
	return acc
}

// CoreBalance reads the liquid core balance of name.
func CoreBalance(t *testing.T, s *state.Store, name types.AccountName) int64 {
	t.Helper()
	return Account(t, s, name).Balance.Amount
}

// DebtBalance reads the liquid debt balance of name.
func DebtBalance(t *testing.T, s *state.Store, name types.AccountName) int64 {
	t.Helper()
	return Account(t, s, name).DebtBalance.Amount
}

// UpdateMedianProps tweaks the witness-elected governance parameters
// directly, bypassing witness voting.
func UpdateMedianProps(t *testing.T, s *state.Store, update func(p *domain.ChainProperties)) {
	t.Helper()
	err := s.Apply(state.UpdateObject(domain.WitnessScheduleKey(), func(obj state.Object) (state.Object, error) {
		update(&obj.(*domain.WitnessSchedule).MedianProps)
		return obj, nil
	}))
	require.NoError(t, err)
}

// SetFeedPrice installs a median debt price directly, bypassing witness
// feed publication.
func SetFeedPrice(t *testing.T, s *state.Store, price types.Price) {
	t.Helper()
	err := s.Apply(state.UpdateObject(domain.FeedHistoryKey(), func(obj state.Object) (state.Object, error) {
		obj.(*domain.FeedHistory).CurrentMedianPrice = price
		return obj, nil
	}))
	require.NoError(t, err)
}
