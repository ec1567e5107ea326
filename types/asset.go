package types

import (
	"fmt"
	"strconv"
	"strings"
)

// Symbol identifies one of the three chain assets. CORE is the liquid
// token, DEBT the debt token pegged through the price feed, VESTS the
// non-transferable stake unit.
type Symbol uint8

const (
	SymbolUnknown Symbol = iota
	SymbolCore
	SymbolDebt
	SymbolVests
)

func (s Symbol) String() string {
	switch s {
	case SymbolCore:
		return "CORE"
	case SymbolDebt:
		return "DEBT"
	case SymbolVests:
		return "VESTS"
	}
	return "UNKNOWN"
}

// Precision returns the number of decimal digits carried by the symbol.
func (s Symbol) Precision() int {
	switch s {
	case SymbolVests:
		return 6
	default:
		return 3
	}
}

// Asset is a token amount. Amount is a fixed-point integer scaled by the
// symbol precision, signed so that balance deltas can be expressed.
type Asset struct {
	_      struct{} `cbor:",toarray"`
	Amount int64
	Symbol Symbol
}

func NewAsset(amount int64, symbol Symbol) Asset {
	return Asset{Amount: amount, Symbol: symbol}
}

func CoreAsset(amount int64) Asset  { return Asset{Amount: amount, Symbol: SymbolCore} }
func DebtAsset(amount int64) Asset  { return Asset{Amount: amount, Symbol: SymbolDebt} }
func VestsAsset(amount int64) Asset { return Asset{Amount: amount, Symbol: SymbolVests} }

func (a Asset) IsZero() bool     { return a.Amount == 0 }
func (a Asset) IsNegative() bool { return a.Amount < 0 }

func (a Asset) Neg() Asset { return Asset{Amount: -a.Amount, Symbol: a.Symbol} }

// Add panics on symbol mismatch; asset arithmetic across symbols is always
// a programming error, never a validation failure.
func (a Asset) Add(b Asset) Asset {
	if a.Symbol != b.Symbol {
		panic(fmt.Sprintf("asset symbol mismatch: %s + %s", a.Symbol, b.Symbol))
	}
	return Asset{Amount: a.Amount + b.Amount, Symbol: a.Symbol}
}

func (a Asset) Sub(b Asset) Asset { return a.Add(b.Neg()) }

func (a Asset) LT(b Asset) bool {
	mustSameSymbol(a, b)
	return a.Amount < b.Amount
}

func (a Asset) LTE(b Asset) bool {
	mustSameSymbol(a, b)
	return a.Amount <= b.Amount
}

func (a Asset) GTE(b Asset) bool { return !a.LT(b) }
func (a Asset) GT(b Asset) bool  { return !a.LTE(b) }

func mustSameSymbol(a, b Asset) {
	if a.Symbol != b.Symbol {
		panic(fmt.Sprintf("asset symbol mismatch: %s vs %s", a.Symbol, b.Symbol))
	}
}

func (a Asset) String() string {
	p := a.Symbol.Precision()
	scale := int64(1)
	for i := 0; i < p; i++ {
		scale *= 10
	}
	whole := a.Amount / scale
	frac := a.Amount % scale
	if frac < 0 {
		frac = -frac
	}
	return fmt.Sprintf("%d.%0*d %s", whole, p, frac, a.Symbol)
}

// ParseAsset parses "12.345 CORE" style strings (CLI and test input).
func ParseAsset(s string) (Asset, error) {
	parts := strings.Fields(s)
	if len(parts) != 2 {
		return Asset{}, fmt.Errorf("malformed asset %q", s)
	}
	var symbol Symbol
	switch parts[1] {
	case "CORE":
		symbol = SymbolCore
	case "DEBT":
		symbol = SymbolDebt
	case "VESTS":
		symbol = SymbolVests
	default:
		return Asset{}, fmt.Errorf("unknown asset symbol %q", parts[1])
	}
	p := symbol.Precision()
	num := parts[0]
	neg := strings.HasPrefix(num, "-")
	num = strings.TrimPrefix(num, "-")
	whole, frac := num, ""
	if i := strings.IndexByte(num, '.'); i >= 0 {
		whole, frac = num[:i], num[i+1:]
	}
	if len(frac) > p {
		return Asset{}, fmt.Errorf("asset %q exceeds precision %d", s, p)
	}
	for len(frac) < p {
		frac += "0"
	}
	w, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return Asset{}, fmt.Errorf("malformed asset amount %q: %w", parts[0], err)
	}
	f, err := strconv.ParseInt(frac, 10, 64)
	if err != nil && p > 0 {
		return Asset{}, fmt.Errorf("malformed asset amount %q: %w", parts[0], err)
	}
	scale := int64(1)
	for i := 0; i < p; i++ {
		scale *= 10
	}
	amount := w*scale + f
	if neg {
		amount = -amount
	}
	return Asset{Amount: amount, Symbol: symbol}, nil
}

// Price is an exchange rate between two assets, expressed as a quotient
// of two amounts (base per quote).
type Price struct {
	_     struct{} `cbor:",toarray"`
	Base  Asset
	Quote Asset
}

func (p Price) IsZero() bool { return p.Base.Amount == 0 || p.Quote.Amount == 0 }

// Cmp orders prices by their base/quote ratio using widened cross
// products, so ordering never depends on division rounding. Amounts must
// be positive.
func (p Price) Cmp(q Price) int {
	return crossCmp(p.Base.Amount, q.Quote.Amount, q.Base.Amount, p.Quote.Amount)
}

// Convert exchanges a at price p, truncating toward zero. The multiply is
// widened to avoid int64 overflow on large stake amounts.
func (p Price) Convert(a Asset) Asset {
	if a.Symbol == p.Base.Symbol {
		return Asset{
			Amount: mulDiv(a.Amount, p.Quote.Amount, p.Base.Amount),
			Symbol: p.Quote.Symbol,
		}
	}
	if a.Symbol == p.Quote.Symbol {
		return Asset{
			Amount: mulDiv(a.Amount, p.Base.Amount, p.Quote.Amount),
			Symbol: p.Base.Symbol,
		}
	}
	panic(fmt.Sprintf("cannot convert %s at price %s/%s", a.Symbol, p.Base.Symbol, p.Quote.Symbol))
}
