package funds

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/forumchain/forumchain/domain"
	"github.com/forumchain/forumchain/hardfork"
	"github.com/forumchain/forumchain/internal/chaintest"
	"github.com/forumchain/forumchain/state"
	"github.com/forumchain/forumchain/types"
)

func giveDebt(t *testing.T, s *state.Store, name types.AccountName, amount int64) {
	t.Helper()
	require.NoError(t, s.Apply(domain.UpdateAccount(name, func(a *domain.Account) {
		a.DebtBalance = a.DebtBalance.Add(types.DebtAsset(amount))
	})))
}

func TestTransfer(t *testing.T) {
	s := chaintest.NewState(t, "alice", "bob")
	ctx := chaintest.NewContext(t, s, hardfork.Latest)
	m := NewModule()

	err := chaintest.Apply(ctx, m, OpTransfer, &TransferAttributes{
		From: "alice", To: "bob", Amount: types.CoreAsset(250),
	})
	require.NoError(t, err)
	require.EqualValues(t, chaintest.InitialBalance-250, chaintest.CoreBalance(t, s, "alice"))
	require.EqualValues(t, chaintest.InitialBalance+250, chaintest.CoreBalance(t, s, "bob"))

	err = chaintest.Apply(ctx, m, OpTransfer, &TransferAttributes{
		From: "alice", To: "alice", Amount: types.CoreAsset(1),
	})
	require.ErrorContains(t, err, "cannot transfer to self")

	err = chaintest.Apply(ctx, m, OpTransfer, &TransferAttributes{
		From: "alice", To: "nobody", Amount: types.CoreAsset(1),
	})
	require.ErrorContains(t, err, "does not exist")

	var insufficient *types.InsufficientFundsError
	err = chaintest.Apply(ctx, m, OpTransfer, &TransferAttributes{
		From: "alice", To: "bob", Amount: types.CoreAsset(chaintest.InitialBalance * 10),
	})
	require.ErrorAs(t, err, &insufficient)
}

func TestTransferClearsActiveChallenge(t *testing.T) {
	s := chaintest.NewState(t, "alice", "bob")
	ctx := chaintest.NewContext(t, s, hardfork.Latest)
	require.NoError(t, s.Apply(domain.UpdateAccount("alice", func(a *domain.Account) {
		a.ActiveChallenged = true
	})))

	err := chaintest.Apply(ctx, NewModule(), OpTransfer, &TransferAttributes{
		From: "alice", To: "bob", Amount: types.CoreAsset(1),
	})
	require.NoError(t, err)
	acc := chaintest.Account(t, s, "alice")
	require.False(t, acc.ActiveChallenged)
	require.Equal(t, ctx.Now, acc.LastActiveProved)
}

func TestSavingsWithdrawLifecycle(t *testing.T) {
	s := chaintest.NewState(t, "alice", "bob")
	ctx := chaintest.NewContext(t, s, hardfork.Latest)
	m := NewModule()

	err := chaintest.Apply(ctx, m, OpTransferToSavings, &TransferToSavingsAttributes{
		From: "alice", To: "alice", Amount: types.CoreAsset(1000),
	})
	require.NoError(t, err)
	require.EqualValues(t, 1000, chaintest.Account(t, s, "alice").SavingsBalance.Amount)

	err = chaintest.Apply(ctx, m, OpTransferFromSavings, &TransferFromSavingsAttributes{
		From: "alice", To: "bob", RequestID: 7, Amount: types.CoreAsset(400),
	})
	require.NoError(t, err)
	require.EqualValues(t, 600, chaintest.Account(t, s, "alice").SavingsBalance.Amount)
	require.EqualValues(t, 1, chaintest.Account(t, s, "alice").SavingsWithdrawRequests)

	// nothing matures before the delay passes
	bobBefore := chaintest.CoreBalance(t, s, "bob")
	require.NoError(t, m.EndBlock(ctx))
	require.EqualValues(t, bobBefore, chaintest.CoreBalance(t, s, "bob"))

	ctx.Now = ctx.Now.AddSeconds(types.SavingsWithdrawDelaySeconds)
	require.NoError(t, m.EndBlock(ctx))
	require.EqualValues(t, bobBefore+400, chaintest.CoreBalance(t, s, "bob"))
	require.EqualValues(t, 0, chaintest.Account(t, s, "alice").SavingsWithdrawRequests)
	require.False(t, s.HasObject(domain.SavingsWithdrawKey("alice", 7)))
}

func TestCancelTransferFromSavings(t *testing.T) {
	s := chaintest.NewState(t, "alice", "bob")
	ctx := chaintest.NewContext(t, s, hardfork.Latest)
	m := NewModule()

	err := chaintest.Apply(ctx, m, OpTransferToSavings, &TransferToSavingsAttributes{
		From: "alice", To: "alice", Amount: types.CoreAsset(1000),
	})
	require.NoError(t, err)
	err = chaintest.Apply(ctx, m, OpTransferFromSavings, &TransferFromSavingsAttributes{
		From: "alice", To: "bob", RequestID: 1, Amount: types.CoreAsset(400),
	})
	require.NoError(t, err)

	err = chaintest.Apply(ctx, m, OpCancelTransferFromSavings, &CancelTransferFromSavingsAttributes{
		From: "alice", RequestID: 1,
	})
	require.NoError(t, err)
	require.EqualValues(t, 1000, chaintest.Account(t, s, "alice").SavingsBalance.Amount)
	require.EqualValues(t, 0, chaintest.Account(t, s, "alice").SavingsWithdrawRequests)

	// the schedule entry is gone too: maturing pays nothing
	ctx.Now = ctx.Now.AddSeconds(types.SavingsWithdrawDelaySeconds)
	require.NoError(t, m.EndBlock(ctx))
	require.EqualValues(t, chaintest.InitialBalance, chaintest.CoreBalance(t, s, "bob"))
}

func TestConvertSettlesAtFeedPrice(t *testing.T) {
	s := chaintest.NewState(t, "alice")
	ctx := chaintest.NewContext(t, s, hardfork.Latest)
	m := NewModule()
	giveDebt(t, s, "alice", 500)

	err := chaintest.Apply(ctx, m, OpConvert, &ConvertAttributes{
		Owner: "alice", RequestID: 1, Amount: types.DebtAsset(100),
	})
	require.True(t, types.IsLogic(err, types.LogicNoPriceFeed))

	// 1 DEBT buys 2 CORE
	chaintest.SetFeedPrice(t, s, types.Price{Base: types.DebtAsset(1000), Quote: types.CoreAsset(2000)})
	err = chaintest.Apply(ctx, m, OpConvert, &ConvertAttributes{
		Owner: "alice", RequestID: 1, Amount: types.DebtAsset(100),
	})
	require.NoError(t, err)
	require.EqualValues(t, 400, chaintest.DebtBalance(t, s, "alice"))

	err = chaintest.Apply(ctx, m, OpConvert, &ConvertAttributes{
		Owner: "alice", RequestID: 1, Amount: types.DebtAsset(100),
	})
	require.ErrorContains(t, err, "already exists")

	coreBefore := chaintest.CoreBalance(t, s, "alice")
	require.NoError(t, m.EndBlock(ctx))
	require.EqualValues(t, coreBefore, chaintest.CoreBalance(t, s, "alice"))

	ctx.Now = ctx.Now.AddSeconds(types.ConversionDelaySeconds)
	require.NoError(t, m.EndBlock(ctx))
	require.EqualValues(t, coreBefore+200, chaintest.CoreBalance(t, s, "alice"))
	require.False(t, s.HasObject(domain.ConvertRequestKey("alice", 1)))
}

func TestEscrowLifecycle(t *testing.T) {
	s := chaintest.NewState(t, "alice", "bob", "carol")
	ctx := chaintest.NewContext(t, s, hardfork.Latest)
	m := NewModule()

	transfer := &EscrowTransferAttributes{
		From: "alice", To: "bob", Agent: "carol", EscrowID: 3,
		CoreAmount:           types.CoreAsset(500),
		DebtAmount:           types.DebtAsset(0),
		Fee:                  types.CoreAsset(10),
		RatificationDeadline: ctx.Now.AddSeconds(3600),
		EscrowExpiration:     ctx.Now.AddSeconds(7200),
	}
	require.NoError(t, chaintest.Apply(ctx, m, OpEscrowTransfer, transfer))
	require.EqualValues(t, chaintest.InitialBalance-510, chaintest.CoreBalance(t, s, "alice"))

	approve := func(who types.AccountName) error {
		return chaintest.Apply(ctx, m, OpEscrowApprove, &EscrowApproveAttributes{
			From: "alice", To: "bob", Agent: "carol", Who: who, EscrowID: 3, Approve: true,
		})
	}
	require.NoError(t, approve("bob"))
	require.True(t, types.IsLogic(approve("bob"), types.LogicEscrowAlreadyApproved))

	// second approval activates the escrow and pays the agent fee
	require.NoError(t, approve("carol"))
	require.EqualValues(t, chaintest.InitialBalance+10, chaintest.CoreBalance(t, s, "carol"))

	err := chaintest.Apply(ctx, m, OpEscrowDispute, &EscrowDisputeAttributes{
		From: "alice", To: "bob", Agent: "carol", Who: "bob", EscrowID: 3,
	})
	require.NoError(t, err)

	// only the agent may settle a disputed escrow
	release := func(who, receiver types.AccountName, amount int64) error {
		return chaintest.Apply(ctx, m, OpEscrowRelease, &EscrowReleaseAttributes{
			From: "alice", To: "bob", Agent: "carol", Who: who, Receiver: receiver, EscrowID: 3,
			CoreAmount: types.CoreAsset(amount), DebtAmount: types.DebtAsset(0),
		})
	}
	require.True(t, types.IsLogic(release("alice", "bob", 100), types.LogicOnlyAgentReleasesDisputed))
	require.NoError(t, release("carol", "bob", 200))
	require.EqualValues(t, chaintest.InitialBalance+200, chaintest.CoreBalance(t, s, "bob"))

	// draining the escrow closes it
	require.NoError(t, release("carol", "alice", 300))
	require.False(t, s.HasObject(domain.EscrowKey("alice", 3)))
}

func TestEscrowRejectionRefunds(t *testing.T) {
	s := chaintest.NewState(t, "alice", "bob", "carol")
	ctx := chaintest.NewContext(t, s, hardfork.Latest)
	m := NewModule()

	giveDebt(t, s, "alice", 100)
	err := chaintest.Apply(ctx, m, OpEscrowTransfer, &EscrowTransferAttributes{
		From: "alice", To: "bob", Agent: "carol", EscrowID: 1,
		CoreAmount:           types.CoreAsset(500),
		DebtAmount:           types.DebtAsset(100),
		Fee:                  types.CoreAsset(10),
		RatificationDeadline: ctx.Now.AddSeconds(3600),
		EscrowExpiration:     ctx.Now.AddSeconds(7200),
	})
	require.NoError(t, err)

	err = chaintest.Apply(ctx, m, OpEscrowApprove, &EscrowApproveAttributes{
		From: "alice", To: "bob", Agent: "carol", Who: "bob", EscrowID: 1, Approve: false,
	})
	require.NoError(t, err)
	require.EqualValues(t, chaintest.InitialBalance, chaintest.CoreBalance(t, s, "alice"))
	require.EqualValues(t, 100, chaintest.DebtBalance(t, s, "alice"))
	require.False(t, s.HasObject(domain.EscrowKey("alice", 1)))
}

func TestBreakFreeReferral(t *testing.T) {
	s := chaintest.NewState(t, "alice", "ref")
	m := NewModule()

	ctx := chaintest.NewContext(t, s, hardfork.HF18)
	err := chaintest.Apply(ctx, m, OpBreakFreeReferral, &BreakFreeReferralAttributes{Referral: "alice"})
	require.ErrorContains(t, err, "later protocol version")

	ctx = chaintest.NewContext(t, s, hardfork.Latest)
	err = chaintest.Apply(ctx, m, OpBreakFreeReferral, &BreakFreeReferralAttributes{Referral: "alice"})
	require.True(t, types.IsLogic(err, types.LogicNoRightToBreakReferral))

	require.NoError(t, s.Apply(domain.UpdateAccount("alice", func(a *domain.Account) {
		a.Referrer = "ref"
		a.ReferrerInterestRate = 1000
		a.ReferralEndDate = ctx.Now.AddSeconds(86400)
		a.ReferralBreakFee = types.CoreAsset(50)
	})))
	err = chaintest.Apply(ctx, m, OpBreakFreeReferral, &BreakFreeReferralAttributes{Referral: "alice"})
	require.NoError(t, err)
	require.EqualValues(t, chaintest.InitialBalance-50, chaintest.CoreBalance(t, s, "alice"))
	require.EqualValues(t, chaintest.InitialBalance+50, chaintest.CoreBalance(t, s, "ref"))

	acc := chaintest.Account(t, s, "alice")
	require.Empty(t, acc.Referrer)
	require.Zero(t, acc.ReferrerInterestRate)
	require.True(t, acc.ReferralBreakFee.IsZero())
}
