package chain_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/forumchain/forumchain/chain"
	"github.com/forumchain/forumchain/chain/funds"
	"github.com/forumchain/forumchain/domain"
	"github.com/forumchain/forumchain/hardfork"
	"github.com/forumchain/forumchain/internal/chaintest"
	"github.com/forumchain/forumchain/observability"
	"github.com/forumchain/forumchain/state"
	"github.com/forumchain/forumchain/types"
)

// scheduleAt activates hardforks 1..count all at the same instant.
func scheduleAt(activation types.Time, count int) *hardfork.Schedule {
	times := make([]types.Time, count)
	for i := range times {
		times[i] = activation
	}
	return hardfork.NewSchedule(times)
}

func newEngine(t *testing.T, s *state.Store, schedule *hardfork.Schedule, hub *chain.NotificationHub) *chain.Engine {
	t.Helper()
	e, err := chain.NewEngine(s, schedule, []chain.Module{funds.NewModule()}, hub, observability.NOP())
	require.NoError(t, err)
	return e
}

func transferTx(from, to types.AccountName, amount int64) *types.Transaction {
	return &types.Transaction{Operations: []types.Operation{
		types.MustNewOperation(funds.OpTransfer, &funds.TransferAttributes{
			From:   from,
			To:     to,
			Amount: types.CoreAsset(amount),
		}),
	}}
}

func TestEngineBlockLifecycle(t *testing.T) {
	s := chaintest.NewState(t, "alice", "bob")
	e := newEngine(t, s, scheduleAt(chaintest.GenesisTime, int(hardfork.Latest)), nil)

	blockTime := chaintest.GenesisTime + 3
	require.NoError(t, e.BeginBlock(1, blockTime, "alice", false))

	// every scheduled hardfork activated at genesis applies in one step
	hs, err := domain.GetHardforkState(s)
	require.NoError(t, err)
	require.Equal(t, hardfork.Latest, hs.LastHardfork)
	require.Len(t, hs.ProcessedHardforks, int(hardfork.Latest)+1)
	require.Equal(t, hardfork.Latest, e.Context().HF.Current())

	gp, err := domain.GetGlobalProperties(s)
	require.NoError(t, err)
	require.Equal(t, types.AccountName("alice"), gp.CurrentWitness)

	require.Error(t, e.BeginBlock(2, blockTime, "alice", false), "block 1 is still open")

	require.NoError(t, e.ApplyTransaction(transferTx("alice", "bob", 250)))
	require.EqualValues(t, chaintest.InitialBalance-250, chaintest.CoreBalance(t, s, "alice"))
	require.EqualValues(t, chaintest.InitialBalance+250, chaintest.CoreBalance(t, s, "bob"))

	blockID := types.BlockID{0, 0, 0, 1, 0xAB}
	require.NoError(t, e.EndBlock(blockID))
	gp, err = domain.GetGlobalProperties(s)
	require.NoError(t, err)
	require.EqualValues(t, 1, gp.HeadBlockNumber)
	require.Equal(t, blockID, gp.HeadBlockID)
	require.Equal(t, blockTime, gp.Time)

	require.NoError(t, e.Commit())
	require.NoError(t, e.BeginBlock(2, blockTime+3, "alice", false))
	require.Equal(t, blockID, e.Context().HeadBlockID)
}

func TestEngineRollsBackFailedTransaction(t *testing.T) {
	s := chaintest.NewState(t, "alice", "bob")
	e := newEngine(t, s, scheduleAt(chaintest.GenesisTime, int(hardfork.Latest)), nil)
	require.NoError(t, e.BeginBlock(1, chaintest.GenesisTime+3, "alice", false))

	// the first operation succeeds, the second overdraws: the whole
	// transaction must leave no trace
	tx := &types.Transaction{Operations: []types.Operation{
		types.MustNewOperation(funds.OpTransfer, &funds.TransferAttributes{
			From: "alice", To: "bob", Amount: types.CoreAsset(100),
		}),
		types.MustNewOperation(funds.OpTransfer, &funds.TransferAttributes{
			From: "alice", To: "bob", Amount: types.CoreAsset(10 * chaintest.InitialBalance),
		}),
	}}
	var insufficient *types.InsufficientFundsError
	require.ErrorAs(t, e.ApplyTransaction(tx), &insufficient)
	require.EqualValues(t, chaintest.InitialBalance, chaintest.CoreBalance(t, s, "alice"))
	require.EqualValues(t, chaintest.InitialBalance, chaintest.CoreBalance(t, s, "bob"))
	require.False(t, s.InTransaction())

	// the block itself stays usable
	require.NoError(t, e.ApplyTransaction(transferTx("alice", "bob", 100)))
	require.NoError(t, e.EndBlock(types.BlockID{0, 0, 0, 1}))
	require.NoError(t, e.Commit())
}

func TestEngineRejectsMalformedTransactions(t *testing.T) {
	s := chaintest.NewState(t, "alice", "bob")
	e := newEngine(t, s, scheduleAt(chaintest.GenesisTime, int(hardfork.Latest)), nil)

	require.Error(t, e.ApplyTransaction(transferTx("alice", "bob", 1)), "no open block")
	require.Error(t, e.EndBlock(types.BlockID{}), "no open block")
	require.Error(t, e.Commit(), "no open block")

	require.NoError(t, e.BeginBlock(1, chaintest.GenesisTime+3, "alice", false))

	var invalid *types.InvalidParameterError
	require.ErrorAs(t, e.ApplyTransaction(&types.Transaction{}), &invalid)
	require.Equal(t, "operations", invalid.Param)

	// an operation type this build cannot decode poisons the transaction
	tx := &types.Transaction{Operations: []types.Operation{
		types.MustNewOperation(funds.OpTransfer, &funds.TransferAttributes{
			From: "alice", To: "bob", Amount: types.CoreAsset(100),
		}),
		{Type: "bogus"},
	}}
	require.ErrorIs(t, e.ApplyTransaction(tx), chain.ErrUnknownOperation)
	require.EqualValues(t, chaintest.InitialBalance, chaintest.CoreBalance(t, s, "alice"))
}

func TestEngineAdvancesHardforksOnSchedule(t *testing.T) {
	s := chaintest.NewState(t, "alice")
	schedule := hardfork.NewSchedule([]types.Time{chaintest.GenesisTime + 10})
	e := newEngine(t, s, schedule, nil)

	require.NoError(t, e.BeginBlock(1, chaintest.GenesisTime+3, "alice", false))
	require.EqualValues(t, 0, e.Context().HF.Current())
	require.NoError(t, e.EndBlock(types.BlockID{0, 0, 0, 1}))
	require.NoError(t, e.Commit())

	require.NoError(t, e.BeginBlock(2, chaintest.GenesisTime+10, "alice", false))
	require.Equal(t, hardfork.HF1, e.Context().HF.Current())

	hs, err := domain.GetHardforkState(s)
	require.NoError(t, err)
	require.Equal(t, hardfork.HF1, hs.LastHardfork)
	require.Equal(t, hardfork.HF1+1, hs.NextHardfork)
	require.Equal(t, types.MaxTime, hs.NextHardforkTime)
	require.Len(t, hs.ProcessedHardforks, 2)
}

func TestEngineRefusesHardforkBeyondBuild(t *testing.T) {
	s := chaintest.NewState(t, "alice")
	e := newEngine(t, s, scheduleAt(chaintest.GenesisTime, int(hardfork.Latest)+1), nil)

	err := e.BeginBlock(1, chaintest.GenesisTime+3, "alice", false)
	require.ErrorIs(t, err, types.ErrUnknownHardfork)
}

func TestEngineAbortDropsOpenBlock(t *testing.T) {
	s := chaintest.NewState(t, "alice", "bob")
	e := newEngine(t, s, scheduleAt(chaintest.GenesisTime, int(hardfork.Latest)), nil)

	require.NoError(t, e.BeginBlock(1, chaintest.GenesisTime+3, "alice", false))
	e.Abort()
	require.NoError(t, e.BeginBlock(1, chaintest.GenesisTime+3, "alice", false))
}

func TestNotificationHubFailurePolicy(t *testing.T) {
	hub := chain.NewNotificationHub(observability.NOP().Logger(), nil)
	hub.Subscribe("flaky", func(chain.Notification) error {
		return errors.New("index write failed")
	})

	n := chain.Notification{Op: types.Operation{Type: funds.OpTransfer}, BlockNum: 1}

	// replay swallows listener errors, a producer must not publish a
	// block its own plugins reject
	require.NoError(t, hub.Publish(n, false))
	require.Error(t, hub.Publish(n, true))
}

func TestEngineNotifiesListeners(t *testing.T) {
	s := chaintest.NewState(t, "alice", "bob")
	hub := chain.NewNotificationHub(observability.NOP().Logger(), nil)
	var seen []string
	hub.Subscribe("recorder", func(n chain.Notification) error {
		seen = append(seen, n.Op.Type)
		return nil
	})
	e := newEngine(t, s, scheduleAt(chaintest.GenesisTime, int(hardfork.Latest)), hub)

	require.NoError(t, e.BeginBlock(1, chaintest.GenesisTime+3, "alice", false))
	require.NoError(t, e.ApplyTransaction(transferTx("alice", "bob", 10)))
	require.Equal(t, []string{funds.OpTransfer}, seen)
}
