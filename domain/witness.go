package domain

import (
	"slices"

	"github.com/forumchain/forumchain/state"
	"github.com/forumchain/forumchain/types"
)

// ChainProperties are the witness-tunable governance parameters. The
// median over the active witness set is what evaluators consult.
type ChainProperties struct {
	AccountCreationFee types.Asset // CORE
	MaximumBlockSize   uint32
	DebtInterestRate   int16

	// Account creation with delegation.
	CreateAccountMinFee         types.Asset // CORE
	CreateAccountMinDelegation  types.Asset // CORE-denominated target
	CreateAccountDelegationTime uint32
	MinDelegation               types.Asset // CORE-denominated minimum

	// Curation auction window, tunable once governance gained control
	// over it.
	AuctionWindowSize uint16

	// Referral program bounds.
	MaxReferralInterestRate int16
	MaxReferralTermSeconds  uint32
	MaxReferralBreakFee     types.Asset // CORE
}

func DefaultChainProperties() ChainProperties {
	return ChainProperties{
		AccountCreationFee:          types.CoreAsset(1000),
		MaximumBlockSize:            65536,
		DebtInterestRate:            0,
		CreateAccountMinFee:         types.CoreAsset(1000),
		CreateAccountMinDelegation:  types.CoreAsset(0),
		CreateAccountDelegationTime: types.CreateAccountDelegationTime,
		MinDelegation:               types.CoreAsset(1000),
		AuctionWindowSize:           types.ReverseAuctionWindowSeconds,
		MaxReferralInterestRate:     types.MaxReferralInterestRate,
		MaxReferralTermSeconds:      types.MaxReferralTermSeconds,
		MaxReferralBreakFee:         types.CoreAsset(types.MaxReferralBreakFeeAmount),
	}
}

// Witness is a block producer candidate, one per account name.
type Witness struct {
	Owner   types.AccountName
	Created types.Time
	URL     string

	Votes      int64
	SigningKey types.PublicKey
	Props      ChainProperties

	ExchangeRate       types.Price
	LastExchangeUpdate types.Time

	// PowWorker is nonzero while the witness waits in the proof-of-work
	// scheduling queue; holds the pow counter value at registration.
	PowWorker uint64
	LastWork  [32]byte
}

func (w *Witness) Copy() state.Object {
	cp := *w
	cp.SigningKey = slices.Clone(w.SigningKey)
	return &cp
}

func (w *Witness) ScheduledForWork() bool { return w.PowWorker != 0 }

// WitnessVote is the unique (account, witness) approval record.
type WitnessVote struct {
	Account types.AccountName
	Witness types.AccountName
}

func (v *WitnessVote) Copy() state.Object {
	cp := *v
	return &cp
}

// FeedHistory is the debt token price feed: the rolling median used by
// conversions plus the raw window it is computed from.
type FeedHistory struct {
	CurrentMedianPrice types.Price
	PriceHistory       []types.Price
}

func (f *FeedHistory) Copy() state.Object {
	cp := *f
	cp.PriceHistory = slices.Clone(f.PriceHistory)
	return &cp
}
