package content

import (
	"math"

	"github.com/holiman/uint256"

	"github.com/forumchain/forumchain/types"
)

// rsharesScale compensates the precision change of the first protocol
// upgrade: before it, vote rshares entered the curation curves scaled up
// by this factor.
const rsharesScale = 10_000

// curveWeight is the bounded curation curve W(R) = U64MAX * R / (2S + R):
// monotonic in R, saturating at U64MAX, so a vote's weight is the curve
// delta it contributes. scaled applies the pre-upgrade rshares scaling to
// R (the content constant is left untouched).
func curveWeight(r int64, scaled bool) uint64 {
	if r <= 0 {
		return 0
	}
	rr := new(uint256.Int).SetUint64(uint64(r))
	if scaled {
		rr.Mul(rr, uint256.NewInt(rsharesScale))
	}
	num := new(uint256.Int).Mul(new(uint256.Int).SetUint64(math.MaxUint64), rr)
	den := new(uint256.Int).Add(new(uint256.Int).SetUint64(uint64(2*types.ContentConstant)), rr)
	return new(uint256.Int).Div(num, den).Uint64()
}

// cubicWeight is the original curation curve used before the reverse
// auction era: rshares cubed over the comment total squared. scaled
// applies the pre-upgrade rshares scaling to both operands.
func cubicWeight(rshares, total int64, scaled bool) uint64 {
	if rshares <= 0 || total <= 0 {
		return 0
	}
	r := new(uint256.Int).SetUint64(uint64(rshares))
	t := new(uint256.Int).SetUint64(uint64(total))
	if scaled {
		scale := uint256.NewInt(rsharesScale)
		r.Mul(r, scale)
		t.Mul(t, scale)
	}
	r3 := new(uint256.Int).Mul(r, r)
	r3.Mul(r3, r)
	t2 := new(uint256.Int).Mul(t, t)
	return new(uint256.Int).Div(r3, t2).Uint64()
}

// auctionDiscount scales weight by elapsed/window, the reverse auction
// that shifts early-vote curation weight back to the comment.
func auctionDiscount(weight uint64, elapsed, window int64) uint64 {
	if window <= 0 || elapsed >= window {
		return weight
	}
	if elapsed < 0 {
		elapsed = 0
	}
	w := new(uint256.Int).SetUint64(weight)
	w.Mul(w, new(uint256.Int).SetUint64(uint64(elapsed)))
	w.Div(w, new(uint256.Int).SetUint64(uint64(window)))
	return w.Uint64()
}

// weightedAvgCashout is the stake-weighted average of the current cashout
// time and the incoming vote's preferred cashout time.
func weightedAvgCashout(curSec int64, oldShares int64, newSec int64, addShares int64) types.Time {
	if oldShares < 0 {
		oldShares = 0
	}
	total := new(uint256.Int).Add(
		new(uint256.Int).SetUint64(uint64(oldShares)),
		new(uint256.Int).SetUint64(uint64(addShares)),
	)
	if total.IsZero() {
		return types.TimeFromUnix(newSec)
	}
	sum := new(uint256.Int).Mul(
		new(uint256.Int).SetUint64(uint64(curSec)),
		new(uint256.Int).SetUint64(uint64(oldShares)),
	)
	sum.Add(sum, new(uint256.Int).Mul(
		new(uint256.Int).SetUint64(uint64(newSec)),
		new(uint256.Int).SetUint64(uint64(addShares)),
	))
	return types.TimeFromUnix(int64(new(uint256.Int).Div(sum, total).Uint64()))
}
