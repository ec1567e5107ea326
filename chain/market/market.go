// Package market implements the internal core/debt exchange: limit
// orders matched price-time priority at the maker's rate, with automatic
// refund of expired orders.
package market

import (
	"fmt"

	"github.com/forumchain/forumchain/chain"
	"github.com/forumchain/forumchain/chain/balance"
	"github.com/forumchain/forumchain/domain"
	"github.com/forumchain/forumchain/state"
	"github.com/forumchain/forumchain/types"
)

const (
	OpLimitOrderCreate  = "limit_order_create"
	OpLimitOrderCreate2 = "limit_order_create2"
	OpLimitOrderCancel  = "limit_order_cancel"
	OpFillOrder         = "fill_order"
)

type (
	LimitOrderCreateAttributes struct {
		_            struct{} `cbor:",toarray"`
		Owner        types.AccountName
		OrderID      uint32
		AmountToSell types.Asset
		MinToReceive types.Asset
		FillOrKill   bool
		Expiration   types.Time
	}

	LimitOrderCreate2Attributes struct {
		_            struct{} `cbor:",toarray"`
		Owner        types.AccountName
		OrderID      uint32
		AmountToSell types.Asset
		ExchangeRate types.Price
		FillOrKill   bool
		Expiration   types.Time
	}

	LimitOrderCancelAttributes struct {
		_       struct{} `cbor:",toarray"`
		Owner   types.AccountName
		OrderID uint32
	}

	FillOrderAttributes struct {
		_              struct{} `cbor:",toarray"`
		CurrentOwner   types.AccountName
		CurrentOrderID uint32
		CurrentPays    types.Asset
		OpenOwner      types.AccountName
		OpenOrderID    uint32
		OpenPays       types.Asset
	}

	Module struct{}
)

func NewModule() *Module { return &Module{} }

func (m *Module) OpHandlers() map[string]chain.OpExecutor {
	return map[string]chain.OpExecutor{
		OpLimitOrderCreate:  chain.NewOpHandler(validateLimitOrderCreate, m.applyLimitOrderCreate),
		OpLimitOrderCreate2: chain.NewOpHandler(validateLimitOrderCreate2, m.applyLimitOrderCreate2),
		OpLimitOrderCancel:  chain.NewOpHandler(validateLimitOrderCancel, m.applyLimitOrderCancel),
	}
}

func checkMarketPair(sell, receive types.Symbol) error {
	ok := (sell == types.SymbolCore && receive == types.SymbolDebt) ||
		(sell == types.SymbolDebt && receive == types.SymbolCore)
	if !ok {
		return &types.InvalidParameterError{Param: "amount_to_sell", Reason: "orders must trade the core token against the debt token"}
	}
	return nil
}

func validateLimitOrderCreate(attr *LimitOrderCreateAttributes) error {
	if err := types.ValidateAccountName(attr.Owner); err != nil {
		return err
	}
	if attr.AmountToSell.Amount <= 0 || attr.MinToReceive.Amount <= 0 {
		return &types.InvalidParameterError{Param: "amount_to_sell", Reason: "amounts must be positive"}
	}
	return checkMarketPair(attr.AmountToSell.Symbol, attr.MinToReceive.Symbol)
}

func (m *Module) applyLimitOrderCreate(ctx *chain.ExecutionContext, attr *LimitOrderCreateAttributes) error {
	price := types.Price{Base: attr.AmountToSell, Quote: attr.MinToReceive}
	return m.createOrder(ctx, attr.Owner, attr.OrderID, attr.AmountToSell, price, attr.FillOrKill, attr.Expiration)
}

func validateLimitOrderCreate2(attr *LimitOrderCreate2Attributes) error {
	if err := types.ValidateAccountName(attr.Owner); err != nil {
		return err
	}
	if attr.AmountToSell.Amount <= 0 {
		return &types.InvalidParameterError{Param: "amount_to_sell", Reason: "amount must be positive"}
	}
	if attr.ExchangeRate.Base.Amount <= 0 || attr.ExchangeRate.Quote.Amount <= 0 {
		return &types.InvalidParameterError{Param: "exchange_rate", Reason: "price amounts must be positive"}
	}
	if attr.AmountToSell.Symbol != attr.ExchangeRate.Base.Symbol {
		return &types.InvalidParameterError{Param: "exchange_rate", Reason: "sell asset must be the base of the price"}
	}
	return checkMarketPair(attr.ExchangeRate.Base.Symbol, attr.ExchangeRate.Quote.Symbol)
}

func (m *Module) applyLimitOrderCreate2(ctx *chain.ExecutionContext, attr *LimitOrderCreate2Attributes) error {
	return m.createOrder(ctx, attr.Owner, attr.OrderID, attr.AmountToSell, attr.ExchangeRate, attr.FillOrKill, attr.Expiration)
}

func (m *Module) createOrder(ctx *chain.ExecutionContext, owner types.AccountName, orderID uint32, sell types.Asset, price types.Price, fillOrKill bool, expiration types.Time) error {
	if !expiration.After(ctx.Now) {
		return &types.InvalidParameterError{Param: "expiration", Reason: "order expiration must be in the future"}
	}
	if _, err := domain.GetAccount(ctx.State, owner); err != nil {
		return err
	}
	if ctx.State.HasObject(domain.LimitOrderKey(owner, orderID)) {
		return types.ObjectExists("limit order", fmt.Sprintf("%s/%d", owner, orderID))
	}
	if err := balance.Check(ctx.State, owner, types.MainBalance, sell); err != nil {
		return err
	}
	seq, err := ctx.NextSeq()
	if err != nil {
		return err
	}
	order := &domain.LimitOrder{
		Owner:      owner,
		OrderID:    orderID,
		Seq:        seq,
		Created:    ctx.Now,
		Expiration: expiration,
		ForSale:    sell.Amount,
		SellPrice:  price,
	}
	err = ctx.State.Apply(
		balance.Adjust(owner, sell.Neg()),
		state.AddObject(domain.LimitOrderKey(owner, orderID), order),
		state.AddObject(order.BookKey(), &domain.OrderRef{Owner: owner, OrderID: orderID}),
		state.AddObject(domain.OrderExpirationKey(expiration, seq), &domain.ScheduleRef{
			Key: domain.LimitOrderKey(owner, orderID),
		}),
	)
	if err != nil {
		return err
	}
	filled, err := m.matchOrder(ctx, order)
	if err != nil {
		return err
	}
	if fillOrKill && !filled {
		return types.Logic(types.LogicOrderNotFilled, "order cannot be fully filled immediately")
	}
	return nil
}

// ordersCross reports whether the taker's asked rate is satisfied by the
// maker's offered rate.
func ordersCross(taker, maker types.Price) bool {
	inverse := types.Price{Base: maker.Quote, Quote: maker.Base}
	return taker.Cmp(inverse) >= 0
}

// matchOrder walks the opposite book side best-rate-first and fills the
// new order at each maker's price until it no longer crosses. Returns
// whether the new order was fully filled.
func (m *Module) matchOrder(ctx *chain.ExecutionContext, taker *domain.LimitOrder) (bool, error) {
	oppositeSide := domain.BookSideSellDebt
	if taker.BookSide() == domain.BookSideSellDebt {
		oppositeSide = domain.BookSideSellCore
	}
	for taker.ForSale > 0 {
		var makerRef *domain.OrderRef
		err := ctx.State.IteratePrefix(domain.OrderBookPrefix(oppositeSide), func(_ []byte, obj state.Object) (bool, error) {
			makerRef = obj.(*domain.OrderRef)
			return false, nil
		})
		if err != nil {
			return false, err
		}
		if makerRef == nil {
			break
		}
		maker, err := domain.GetLimitOrder(ctx.State, makerRef.Owner, makerRef.OrderID)
		if err != nil {
			return false, err
		}
		if !ordersCross(taker.SellPrice, maker.SellPrice) {
			break
		}

		// Fill at the maker's rate. Whichever side runs out of inventory
		// first is completely filled.
		matchPrice := maker.SellPrice
		takerGets := matchPrice.Convert(taker.AmountForSale())
		var takerPays, makerPays types.Asset
		if takerGets.Amount <= maker.ForSale {
			takerPays = taker.AmountForSale()
			makerPays = takerGets
		} else {
			makerPays = maker.AmountForSale()
			takerPays = matchPrice.Convert(makerPays)
		}
		if takerPays.Amount <= 0 || makerPays.Amount <= 0 {
			break
		}
		if err := m.fillOrder(ctx, taker, takerPays, makerPays); err != nil {
			return false, err
		}
		if err := m.fillOrder(ctx, maker, makerPays, takerPays); err != nil {
			return false, err
		}
		err = ctx.NotifyVirtual(OpFillOrder, &FillOrderAttributes{
			CurrentOwner:   taker.Owner,
			CurrentOrderID: taker.OrderID,
			CurrentPays:    takerPays,
			OpenOwner:      maker.Owner,
			OpenOrderID:    maker.OrderID,
			OpenPays:       makerPays,
		})
		if err != nil {
			return false, err
		}
	}
	return taker.ForSale == 0, nil
}

// fillOrder pays the counterparty's funds to the order owner and reduces
// or retires the order.
func (m *Module) fillOrder(ctx *chain.ExecutionContext, order *domain.LimitOrder, pays, receives types.Asset) error {
	if err := ctx.State.Apply(balance.Adjust(order.Owner, receives)); err != nil {
		return err
	}
	order.ForSale -= pays.Amount
	if order.ForSale == 0 {
		return ctx.State.Apply(
			state.DeleteObject(domain.LimitOrderKey(order.Owner, order.OrderID)),
			state.DeleteObject(order.BookKey()),
			state.DeleteObject(domain.OrderExpirationKey(order.Expiration, order.Seq)),
		)
	}
	forSale := order.ForSale
	return ctx.State.Apply(state.UpdateObject(domain.LimitOrderKey(order.Owner, order.OrderID), func(obj state.Object) (state.Object, error) {
		obj.(*domain.LimitOrder).ForSale = forSale
		return obj, nil
	}))
}

func validateLimitOrderCancel(attr *LimitOrderCancelAttributes) error {
	return types.ValidateAccountName(attr.Owner)
}

func (m *Module) applyLimitOrderCancel(ctx *chain.ExecutionContext, attr *LimitOrderCancelAttributes) error {
	order, err := domain.GetLimitOrder(ctx.State, attr.Owner, attr.OrderID)
	if err != nil {
		return err
	}
	return cancelOrder(ctx.State, order)
}

func cancelOrder(s *state.Store, order *domain.LimitOrder) error {
	return s.Apply(
		balance.Adjust(order.Owner, order.AmountForSale()),
		state.DeleteObject(domain.LimitOrderKey(order.Owner, order.OrderID)),
		state.DeleteObject(order.BookKey()),
		state.DeleteObject(domain.OrderExpirationKey(order.Expiration, order.Seq)),
	)
}
