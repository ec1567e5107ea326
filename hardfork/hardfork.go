// Package hardfork models protocol version progression. Evaluators never
// consult global state for the version; they receive an immutable Set
// derived once per block.
package hardfork

import (
	"github.com/forumchain/forumchain/types"
)

// Protocol upgrades, in activation order. The numbers are wire-level
// identifiers and never change meaning.
const (
	// HF1: minimum account creation fee, curation weight scaling fix.
	HF1 uint32 = 1
	// HF2: witness vote cap of 30 per account.
	HF2 uint32 = 2
	// HF3: witness vote weight applied directly to the witness total.
	HF3 uint32 = 3
	// HF4: report_over_production disabled.
	HF4 uint32 = 4
	// HF5: no-op withdraw rate changes and duplicate pow rejected.
	HF5 uint32 = 5
	// HF6: comment interval split into root and reply rules.
	HF6 uint32 = 6
	// HF10: challenged accounts barred from content operations.
	HF10 uint32 = 10
	// HF11: recovery account initialization rule change.
	HF11 uint32 = 11
	// HF12: root post bandwidth, second cashout window, escrow rework.
	HF12 uint32 = 12
	// HF13: pow deprecated in favor of pow2, vote dust rule precursor.
	HF13 uint32 = 13
	// HF14: vote dust threshold, round-up power cost, challenge freeze.
	HF14 uint32 = 14
	// HF15: auth account existence enforced on account creation.
	HF15 uint32 = 15
	// HF16: 13 withdraw intervals, faster conversions, equihash pow,
	// comment options, escrow expiration enforcement.
	HF16 uint32 = 16
	// HF17: fixed cashout window from creation, unlimited comment depth,
	// beneficiaries.
	HF17 uint32 = 17
	// HF18: delegation, savings, witness-tunable creation fees.
	HF18 uint32 = 18
	// HF19: auction window weight redistribution, referral program.
	HF19 uint32 = 19

	Latest = HF19
)

// Set is the per-block view of applied hardforks. Immutable; copied by
// value into every execution context.
type Set struct {
	current   uint32
	producing bool
}

func NewSet(current uint32, producing bool) Set {
	return Set{current: current, producing: producing}
}

// Current returns the highest applied hardfork.
func (s Set) Current() uint32 { return s.current }

// Has reports whether hardfork v has been applied.
func (s Set) Has(v uint32) bool { return s.current >= v }

// Producing is true only on the node assembling a candidate block.
// Checks gated on it are advisory previews and must never reject a
// transaction that a replaying node would accept.
func (s Set) Producing() bool { return s.producing }

// HasOrProducing gates rules that producers enforce optimistically ahead
// of the activation height.
func (s Set) HasOrProducing(v uint32) bool { return s.producing || s.Has(v) }

// Schedule maps hardfork numbers to activation times.
type Schedule struct {
	activations []types.Time // index 0 unused
}

// NewSchedule builds a schedule from activation times for hardforks
// 1..len(times).
func NewSchedule(times []types.Time) *Schedule {
	activations := make([]types.Time, len(times)+1)
	copy(activations[1:], times)
	return &Schedule{activations: activations}
}

// VersionAt returns the highest hardfork whose activation time is not
// after t.
func (s *Schedule) VersionAt(t types.Time) uint32 {
	v := uint32(0)
	for i := 1; i < len(s.activations); i++ {
		if s.activations[i].After(t) {
			break
		}
		v = uint32(i)
	}
	return v
}

// ActivationTime returns when hardfork v takes effect, or MaxTime if it
// is not scheduled.
func (s *Schedule) ActivationTime(v uint32) types.Time {
	if int(v) >= len(s.activations) || v == 0 {
		return types.MaxTime
	}
	return s.activations[v]
}

// MaxScheduled returns the highest hardfork the schedule knows about.
func (s *Schedule) MaxScheduled() uint32 { return uint32(len(s.activations) - 1) }
