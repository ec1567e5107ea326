package domain

import (
	"slices"

	"github.com/forumchain/forumchain/state"
	"github.com/forumchain/forumchain/types"
)

// Account is the primary ledger identity. Accounts are never deleted.
type Account struct {
	Name    types.AccountName
	Created types.Time
	// Mined marks accounts registered through proof of work; they pay a
	// deferred registration fee on their first power down.
	Mined           bool
	RecoveryAccount types.AccountName
	// ResetAccount is kept for the disabled reset flow; empty means no
	// account may issue an owner challenge.
	ResetAccount types.AccountName

	Balance            types.Asset // CORE
	SavingsBalance     types.Asset // CORE
	DebtBalance        types.Asset // DEBT
	SavingsDebtBalance types.Asset // DEBT

	SavingsWithdrawRequests uint16

	VestingShares          types.Asset // VESTS
	DelegatedVestingShares types.Asset // VESTS
	ReceivedVestingShares  types.Asset // VESTS

	VestingWithdrawRate   types.Asset // VESTS per interval
	NextVestingWithdrawal types.Time
	Withdrawn             int64
	ToWithdraw            int64
	WithdrawRoutes        uint16

	Proxy             types.AccountName
	ProxiedVsfVotes   [types.MaxProxyRecursionDepth]int64
	WitnessesVotedFor uint16

	CanVote      bool
	VotingPower  int16
	LastVoteTime types.Time

	LastPost      types.Time
	LastRootPost  types.Time
	PostCount     uint32
	PostBandwidth int64

	LastAccountUpdate   types.Time
	LastAccountRecovery types.Time

	// Authority challenge flags; the challenge operation itself is
	// disabled, but transfers and proofs still clear the active flag.
	OwnerChallenged  bool
	ActiveChallenged bool
	LastOwnerProved  types.Time
	LastActiveProved types.Time

	// Referral program fields, zero for accounts created without a
	// referrer or after the referral term ends.
	Referrer             types.AccountName
	ReferrerInterestRate int16
	ReferralEndDate      types.Time
	ReferralBreakFee     types.Asset // CORE
}

func NewAccount(name types.AccountName, now types.Time) *Account {
	return &Account{
		Name:                   name,
		Created:                now,
		Balance:                types.CoreAsset(0),
		SavingsBalance:         types.CoreAsset(0),
		DebtBalance:            types.DebtAsset(0),
		SavingsDebtBalance:     types.DebtAsset(0),
		VestingShares:          types.VestsAsset(0),
		DelegatedVestingShares: types.VestsAsset(0),
		ReceivedVestingShares:  types.VestsAsset(0),
		VestingWithdrawRate:    types.VestsAsset(0),
		NextVestingWithdrawal:  types.MaxTime,
		ReferralBreakFee:       types.CoreAsset(0),
		CanVote:                true,
		VotingPower:            int16(types.Percent100),
		LastVoteTime:           now,
	}
}

func (a *Account) Copy() state.Object {
	cp := *a
	return &cp
}

// EffectiveVestingShares is own stake plus borrowed minus lent.
func (a *Account) EffectiveVestingShares() types.Asset {
	return a.VestingShares.Add(a.ReceivedVestingShares).Sub(a.DelegatedVestingShares)
}

// ProxiedVsfVotesTotal sums all proxy recursion levels.
func (a *Account) ProxiedVsfVotesTotal() int64 {
	var total int64
	for _, v := range a.ProxiedVsfVotes {
		total += v
	}
	return total
}

// WitnessVoteWeight is the stake weight this account contributes to each
// witness it votes for: proxied votes plus own vesting.
func (a *Account) WitnessVoteWeight() int64 {
	return a.ProxiedVsfVotesTotal() + a.VestingShares.Amount
}

// AccountAuthority holds the three authority levels of an account,
// separate from the account so authority rewrites journal independently.
type AccountAuthority struct {
	Account         types.AccountName
	Owner           types.Authority
	Active          types.Authority
	Posting         types.Authority
	LastOwnerUpdate types.Time
}

func (a *AccountAuthority) Copy() state.Object {
	cp := *a
	cp.Owner = copyAuthority(a.Owner)
	cp.Active = copyAuthority(a.Active)
	cp.Posting = copyAuthority(a.Posting)
	return &cp
}

func copyAuthority(a types.Authority) types.Authority {
	a.AccountAuths = slices.Clone(a.AccountAuths)
	a.KeyAuths = slices.Clone(a.KeyAuths)
	for i := range a.KeyAuths {
		a.KeyAuths[i].Key = slices.Clone(a.KeyAuths[i].Key)
	}
	return a
}

// AccountMetadata is the free-form profile blob, kept out of Account so
// metadata edits do not journal the hot balance object.
type AccountMetadata struct {
	Account      types.AccountName
	JSONMetadata string
}

func (m *AccountMetadata) Copy() state.Object {
	cp := *m
	return &cp
}

// OwnerAuthorityHistory records a superseded owner authority; recovery
// proves identity against one of these within the tracking window.
type OwnerAuthorityHistory struct {
	Account       types.AccountName
	Seq           uint64
	PreviousOwner types.Authority
	LastValidTime types.Time
}

func (h *OwnerAuthorityHistory) Copy() state.Object {
	cp := *h
	cp.PreviousOwner = copyAuthority(h.PreviousOwner)
	return &cp
}
