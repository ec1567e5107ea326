package domain

import (
	"github.com/forumchain/forumchain/state"
	"github.com/forumchain/forumchain/types"
	"github.com/forumchain/forumchain/util"
)

// Order book sides, by the asset being sold.
const (
	BookSideSellCore byte = 0x01
	BookSideSellDebt byte = 0x02
)

// LimitOrder is an open order selling ForSale units of SellPrice.Base.
type LimitOrder struct {
	Owner      types.AccountName
	OrderID    uint32
	Seq        uint64
	Created    types.Time
	Expiration types.Time
	ForSale    int64
	SellPrice  types.Price
}

func (o *LimitOrder) Copy() state.Object {
	cp := *o
	return &cp
}

func (o *LimitOrder) BookSide() byte {
	if o.SellPrice.Base.Symbol == types.SymbolCore {
		return BookSideSellCore
	}
	return BookSideSellDebt
}

// AmountForSale is the remaining base amount offered.
func (o *LimitOrder) AmountForSale() types.Asset {
	return types.NewAsset(o.ForSale, o.SellPrice.Base.Symbol)
}

// AmountToReceive is what full execution at the order's own price yields.
func (o *LimitOrder) AmountToReceive() types.Asset {
	return o.SellPrice.Convert(o.AmountForSale())
}

// BookPriceKey encodes the order's price so that byte-ascending iteration
/// visits the side best-rate-first: sellers asking the fewest base units
// per quote unit sort first. The rate quote/base is inverted and scaled to
// a fixed-point big-endian integer.
func (o *LimitOrder) BookPriceKey() []byte {
	// base/quote as a 64.0 fixed point of base*2^32/quote: lower means a
	// better deal for the taker, so ascending order is best-first.
	rate := types.MulDivWide(o.SellPrice.Base.Amount, int64(1)<<32, o.SellPrice.Quote.Amount)
	if rate < 0 {
		rate = 0
	}
	return util.Uint64ToBytes(uint64(rate))
}

// BookKey is the full order book index key for this order.
func (o *LimitOrder) BookKey() []byte {
	return OrderBookKey(o.BookSide(), o.BookPriceKey(), o.Seq)
}

// OrderRef is the order book index entry pointing at the primary order.
type OrderRef struct {
	Owner   types.AccountName
	OrderID uint32
}

func (r *OrderRef) Copy() state.Object {
	cp := *r
	return &cp
}

// ScheduleRef is a generic time-index entry pointing at a primary object
// processed by one of the end-of-block sweeps.
type ScheduleRef struct {
	Key []byte
}

func (r *ScheduleRef) Copy() state.Object {
	cp := *r
	cp.Key = append([]byte(nil), r.Key...)
	return &cp
}
