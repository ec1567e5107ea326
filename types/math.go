package types

import (
	"github.com/holiman/uint256"
)

// mulDiv computes a*b/c with a 256-bit intermediate, truncating toward
// zero. c must be positive.
func mulDiv(a, b, c int64) int64 {
	if c <= 0 {
		panic("mulDiv: non-positive divisor")
	}
	neg := false
	ua, ub := a, b
	if ua < 0 {
		ua, neg = -ua, !neg
	}
	if ub < 0 {
		ub, neg = -ub, !neg
	}
	x := new(uint256.Int).SetUint64(uint64(ua))
	x.Mul(x, new(uint256.Int).SetUint64(uint64(ub)))
	x.Div(x, new(uint256.Int).SetUint64(uint64(c)))
	r := int64(x.Uint64())
	if neg {
		return -r
	}
	return r
}

// MulDivWide is the exported form used by evaluators that need the
// original's uint128-intermediate semantics on asset amounts.
func MulDivWide(a, b, c int64) int64 { return mulDiv(a, b, c) }

// crossCmp compares a*b against c*d without overflow. All operands must
// be non-negative.
func crossCmp(a, b, c, d int64) int {
	left := new(uint256.Int).Mul(
		new(uint256.Int).SetUint64(uint64(a)),
		new(uint256.Int).SetUint64(uint64(b)),
	)
	right := new(uint256.Int).Mul(
		new(uint256.Int).SetUint64(uint64(c)),
		new(uint256.Int).SetUint64(uint64(d)),
	)
	return left.Cmp(right)
}
