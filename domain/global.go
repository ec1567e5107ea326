package domain

import (
	"slices"

	"github.com/forumchain/forumchain/state"
	"github.com/forumchain/forumchain/types"
)

// GlobalProperties is the dynamic global state singleton: head block
// bookkeeping, supply totals and the vesting pool.
type GlobalProperties struct {
	HeadBlockNumber       uint32
	HeadBlockID           types.BlockID
	Time                  types.Time
	LastIrreversibleBlock uint32
	CurrentWitness        types.AccountName

	CurrentSupply     types.Asset // CORE
	CurrentDebtSupply types.Asset // DEBT

	TotalVestingFund   types.Asset // CORE backing the vesting pool
	TotalVestingShares types.Asset // VESTS outstanding

	// Proof-of-work scheduling.
	NumPowWitnesses uint32
	TotalPow        uint64

	VoteRegenerationPerDay uint32

	// NextObjectSeq feeds monotonically increasing ids for objects that
	// need creation-order keys (orders, delegation expirations).
	NextObjectSeq uint64
}

func NewGlobalProperties(genesis types.Time) *GlobalProperties {
	return &GlobalProperties{
		Time:                   genesis,
		CurrentSupply:          types.CoreAsset(0),
		CurrentDebtSupply:      types.DebtAsset(0),
		TotalVestingFund:       types.CoreAsset(0),
		TotalVestingShares:     types.VestsAsset(0),
		VoteRegenerationPerDay: 40,
		NextObjectSeq:          1,
	}
}

func (g *GlobalProperties) Copy() state.Object {
	cp := *g
	return &cp
}

// VestingSharePrice is VESTS per CORE for new vesting deposits. While the
// pool is empty the bootstrap rate is one million share units per core
// unit (both at their native precision).
func (g *GlobalProperties) VestingSharePrice() types.Price {
	if g.TotalVestingFund.Amount == 0 || g.TotalVestingShares.Amount == 0 {
		return types.Price{Base: types.CoreAsset(1000), Quote: types.VestsAsset(1_000_000)}
	}
	return types.Price{Base: g.TotalVestingFund, Quote: g.TotalVestingShares}
}

// WitnessSchedule is the schedule singleton carrying the elected median
// governance parameters and the proof-of-work difficulty.
type WitnessSchedule struct {
	MedianProps ChainProperties
	// CurrentShuffledWitnesses is the active producer rotation.
	CurrentShuffledWitnesses []types.AccountName
	// PowTargetBits is the number of leading zero bits a work hash must
	// have; grows with the pow witness queue length.
	PowTargetBits uint32
}

func NewWitnessSchedule() *WitnessSchedule {
	return &WitnessSchedule{
		MedianProps:   DefaultChainProperties(),
		PowTargetBits: 20,
	}
}

func (w *WitnessSchedule) Copy() state.Object {
	cp := *w
	cp.CurrentShuffledWitnesses = slices.Clone(w.CurrentShuffledWitnesses)
	return &cp
}

// HardforkState is the singleton tracking protocol version progression.
type HardforkState struct {
	// LastHardfork is the highest hardfork applied so far.
	LastHardfork uint32
	// NextHardfork and NextHardforkTime schedule the upcoming one.
	NextHardfork     uint32
	NextHardforkTime types.Time
	// ProcessedHardforks records when each hardfork took effect,
	// indexed by hardfork number (entry 0 is genesis).
	ProcessedHardforks []types.Time
}

func (h *HardforkState) Copy() state.Object {
	cp := *h
	cp.ProcessedHardforks = slices.Clone(h.ProcessedHardforks)
	return &cp
}
