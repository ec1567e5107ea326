// Package funds implements the liquid fund movements: plain transfers,
// the savings balances with their delayed withdrawals, the escrow state
// machine, debt conversions and the referral buy-out.
package funds

import (
	"fmt"

	"github.com/forumchain/forumchain/chain"
	"github.com/forumchain/forumchain/chain/balance"
	"github.com/forumchain/forumchain/domain"
	"github.com/forumchain/forumchain/hardfork"
	"github.com/forumchain/forumchain/state"
	"github.com/forumchain/forumchain/types"
)

const (
	OpTransfer                  = "transfer"
	OpTransferToSavings         = "transfer_to_savings"
	OpTransferFromSavings       = "transfer_from_savings"
	OpCancelTransferFromSavings = "cancel_transfer_from_savings"
	OpEscrowTransfer            = "escrow_transfer"
	OpEscrowApprove             = "escrow_approve"
	OpEscrowDispute             = "escrow_dispute"
	OpEscrowRelease             = "escrow_release"
	OpConvert                   = "convert"
	OpBreakFreeReferral         = "break_free_referral"
	OpFillConvertRequest        = "fill_convert_request"
	OpFillTransferFromSavings   = "fill_transfer_from_savings"
)

type (
	TransferAttributes struct {
		_      struct{} `cbor:",toarray"`
		From   types.AccountName
		To     types.AccountName
		Amount types.Asset
		Memo   string
	}

	TransferToSavingsAttributes struct {
		_      struct{} `cbor:",toarray"`
		From   types.AccountName
		To     types.AccountName
		Amount types.Asset
		Memo   string
	}

	TransferFromSavingsAttributes struct {
		_         struct{} `cbor:",toarray"`
		From      types.AccountName
		To        types.AccountName
		RequestID uint32
		Amount    types.Asset
		Memo      string
	}

	CancelTransferFromSavingsAttributes struct {
		_         struct{} `cbor:",toarray"`
		From      types.AccountName
		RequestID uint32
	}

	ConvertAttributes struct {
		_         struct{} `cbor:",toarray"`
		Owner     types.AccountName
		RequestID uint32
		Amount    types.Asset // DEBT
	}

	BreakFreeReferralAttributes struct {
		_        struct{} `cbor:",toarray"`
		Referral types.AccountName
	}

	// FillConvertRequestAttributes is the virtual operation published when
	// the conversion sweep settles a request.
	FillConvertRequestAttributes struct {
		_         struct{} `cbor:",toarray"`
		Owner     types.AccountName
		RequestID uint32
		AmountIn  types.Asset
		AmountOut types.Asset
	}

	// FillTransferFromSavingsAttributes is the virtual operation published
	// when a matured savings withdrawal pays out.
	FillTransferFromSavingsAttributes struct {
		_         struct{} `cbor:",toarray"`
		From      types.AccountName
		To        types.AccountName
		RequestID uint32
		Amount    types.Asset
		Memo      string
	}

	// Module wires the fund movement evaluators and the savings and
	// conversion sweeps.
	Module struct{}
)

func NewModule() *Module { return &Module{} }

func (m *Module) OpHandlers() map[string]chain.OpExecutor {
	return map[string]chain.OpExecutor{
		OpTransfer:                  chain.NewOpHandler(validateTransfer, m.applyTransfer),
		OpTransferToSavings:         chain.NewOpHandler(validateTransferToSavings, m.applyTransferToSavings),
		OpTransferFromSavings:       chain.NewOpHandler(validateTransferFromSavings, m.applyTransferFromSavings),
		OpCancelTransferFromSavings: chain.NewOpHandler(validateCancelTransferFromSavings, m.applyCancelTransferFromSavings),
		OpEscrowTransfer:            chain.NewOpHandler(validateEscrowTransfer, m.applyEscrowTransfer),
		OpEscrowApprove:             chain.NewOpHandler(validateEscrowApprove, m.applyEscrowApprove),
		OpEscrowDispute:             chain.NewOpHandler(validateEscrowDispute, m.applyEscrowDispute),
		OpEscrowRelease:             chain.NewOpHandler(validateEscrowRelease, m.applyEscrowRelease),
		OpConvert:                   chain.NewOpHandler(validateConvert, m.applyConvert),
		OpBreakFreeReferral:         chain.NewOpHandler(validateBreakFreeReferral, m.applyBreakFreeReferral),
	}
}

func checkLiquidSymbol(param string, a types.Asset) error {
	if a.Symbol != types.SymbolCore && a.Symbol != types.SymbolDebt {
		return &types.InvalidParameterError{Param: param, Reason: fmt.Sprintf("%s cannot be transferred", a.Symbol)}
	}
	return nil
}

func checkPositive(param string, a types.Asset) error {
	if a.Amount <= 0 {
		return &types.InvalidParameterError{Param: param, Reason: "amount must be positive"}
	}
	return nil
}

func checkMemo(memo string) error {
	if len(memo) > types.MaxMemoSize {
		return &types.InvalidParameterError{Param: "memo", Reason: "memo is too large"}
	}
	return nil
}

func validateTransfer(attr *TransferAttributes) error {
	if err := types.ValidateAccountName(attr.From); err != nil {
		return err
	}
	if err := types.ValidateAccountName(attr.To); err != nil {
		return err
	}
	if attr.From == attr.To {
		return &types.InvalidParameterError{Param: "to", Reason: "cannot transfer to self"}
	}
	if err := checkPositive("amount", attr.Amount); err != nil {
		return err
	}
	if err := checkLiquidSymbol("amount", attr.Amount); err != nil {
		return err
	}
	return checkMemo(attr.Memo)
}

func (m *Module) applyTransfer(ctx *chain.ExecutionContext, attr *TransferAttributes) error {
	from, err := domain.GetAccount(ctx.State, attr.From)
	if err != nil {
		return err
	}
	if _, err := domain.GetAccount(ctx.State, attr.To); err != nil {
		return err
	}
	if from.ActiveChallenged {
		now := ctx.Now
		if err := ctx.State.Apply(domain.UpdateAccount(attr.From, func(a *domain.Account) {
			a.ActiveChallenged = false
			a.LastActiveProved = now
		})); err != nil {
			return err
		}
	}
	if err := balance.Check(ctx.State, attr.From, types.MainBalance, attr.Amount); err != nil {
		return err
	}
	return ctx.State.Apply(
		balance.Adjust(attr.From, attr.Amount.Neg()),
		balance.Adjust(attr.To, attr.Amount),
	)
}

func validateTransferToSavings(attr *TransferToSavingsAttributes) error {
	if err := types.ValidateAccountName(attr.From); err != nil {
		return err
	}
	if err := types.ValidateAccountName(attr.To); err != nil {
		return err
	}
	if err := checkPositive("amount", attr.Amount); err != nil {
		return err
	}
	if err := checkLiquidSymbol("amount", attr.Amount); err != nil {
		return err
	}
	return checkMemo(attr.Memo)
}

func (m *Module) applyTransferToSavings(ctx *chain.ExecutionContext, attr *TransferToSavingsAttributes) error {
	if _, err := domain.GetAccount(ctx.State, attr.From); err != nil {
		return err
	}
	if _, err := domain.GetAccount(ctx.State, attr.To); err != nil {
		return err
	}
	if err := balance.Check(ctx.State, attr.From, types.MainBalance, attr.Amount); err != nil {
		return err
	}
	return ctx.State.Apply(
		balance.Adjust(attr.From, attr.Amount.Neg()),
		balance.AdjustSavings(attr.To, attr.Amount),
	)
}

func validateTransferFromSavings(attr *TransferFromSavingsAttributes) error {
	if err := types.ValidateAccountName(attr.From); err != nil {
		return err
	}
	if err := types.ValidateAccountName(attr.To); err != nil {
		return err
	}
	if err := checkPositive("amount", attr.Amount); err != nil {
		return err
	}
	if err := checkLiquidSymbol("amount", attr.Amount); err != nil {
		return err
	}
	return checkMemo(attr.Memo)
}

func (m *Module) applyTransferFromSavings(ctx *chain.ExecutionContext, attr *TransferFromSavingsAttributes) error {
	from, err := domain.GetAccount(ctx.State, attr.From)
	if err != nil {
		return err
	}
	if _, err := domain.GetAccount(ctx.State, attr.To); err != nil {
		return err
	}
	if from.SavingsWithdrawRequests >= types.SavingsWithdrawRequestLimit {
		return types.Logic(types.LogicSavingsWithdrawLimit,
			"account has reached limit of %d pending withdraw requests", types.SavingsWithdrawRequestLimit)
	}
	if err := balance.Check(ctx.State, attr.From, types.SavingsBalance, attr.Amount); err != nil {
		return err
	}
	if ctx.State.HasObject(domain.SavingsWithdrawKey(attr.From, attr.RequestID)) {
		return types.ObjectExists("savings withdraw", fmt.Sprintf("%s/%d", attr.From, attr.RequestID))
	}
	complete := ctx.Now.AddSeconds(types.SavingsWithdrawDelaySeconds)
	return ctx.State.Apply(
		balance.AdjustSavings(attr.From, attr.Amount.Neg()),
		state.AddObject(domain.SavingsWithdrawKey(attr.From, attr.RequestID), &domain.SavingsWithdraw{
			From:      attr.From,
			To:        attr.To,
			Memo:      attr.Memo,
			RequestID: attr.RequestID,
			Amount:    attr.Amount,
			Complete:  complete,
		}),
		state.AddObject(domain.SavingsScheduleKey(complete, attr.From, attr.RequestID), &domain.ScheduleRef{
			Key: domain.SavingsWithdrawKey(attr.From, attr.RequestID),
		}),
		domain.UpdateAccount(attr.From, func(a *domain.Account) {
			a.SavingsWithdrawRequests++
		}),
	)
}

func validateCancelTransferFromSavings(attr *CancelTransferFromSavingsAttributes) error {
	return types.ValidateAccountName(attr.From)
}

func (m *Module) applyCancelTransferFromSavings(ctx *chain.ExecutionContext, attr *CancelTransferFromSavingsAttributes) error {
	if _, err := domain.GetAccount(ctx.State, attr.From); err != nil {
		return err
	}
	swo, err := domain.GetSavingsWithdraw(ctx.State, attr.From, attr.RequestID)
	if err != nil {
		return err
	}
	return ctx.State.Apply(
		balance.AdjustSavings(attr.From, swo.Amount),
		state.DeleteObject(domain.SavingsWithdrawKey(attr.From, attr.RequestID)),
		state.DeleteObject(domain.SavingsScheduleKey(swo.Complete, attr.From, attr.RequestID)),
		domain.UpdateAccount(attr.From, func(a *domain.Account) {
			a.SavingsWithdrawRequests--
		}),
	)
}

func validateConvert(attr *ConvertAttributes) error {
	if err := types.ValidateAccountName(attr.Owner); err != nil {
		return err
	}
	if err := checkPositive("amount", attr.Amount); err != nil {
		return err
	}
	if attr.Amount.Symbol != types.SymbolDebt {
		return &types.InvalidParameterError{Param: "amount", Reason: "only the debt token can be converted"}
	}
	return nil
}

func (m *Module) applyConvert(ctx *chain.ExecutionContext, attr *ConvertAttributes) error {
	if _, err := domain.GetAccount(ctx.State, attr.Owner); err != nil {
		return err
	}
	if err := balance.Check(ctx.State, attr.Owner, types.MainBalance, attr.Amount); err != nil {
		return err
	}
	price, err := ctx.FeedPrice()
	if err != nil {
		return err
	}
	if price.IsZero() {
		return types.Logic(types.LogicNoPriceFeed, "cannot convert because there is no price feed")
	}
	delay := int64(types.LegacyConversionDelaySeconds)
	if ctx.HF.Has(hardfork.HF16) {
		delay = types.ConversionDelaySeconds
	}
	if ctx.State.HasObject(domain.ConvertRequestKey(attr.Owner, attr.RequestID)) {
		return types.ObjectExists("convert request", fmt.Sprintf("%s/%d", attr.Owner, attr.RequestID))
	}
	date := ctx.Now.AddSeconds(delay)
	return ctx.State.Apply(
		balance.Adjust(attr.Owner, attr.Amount.Neg()),
		state.AddObject(domain.ConvertRequestKey(attr.Owner, attr.RequestID), &domain.ConvertRequest{
			Owner:          attr.Owner,
			RequestID:      attr.RequestID,
			Amount:         attr.Amount,
			ConversionDate: date,
		}),
		state.AddObject(domain.ConvertScheduleKey(date, attr.Owner, attr.RequestID), &domain.ScheduleRef{
			Key: domain.ConvertRequestKey(attr.Owner, attr.RequestID),
		}),
	)
}

func validateBreakFreeReferral(attr *BreakFreeReferralAttributes) error {
	return types.ValidateAccountName(attr.Referral)
}

func (m *Module) applyBreakFreeReferral(ctx *chain.ExecutionContext, attr *BreakFreeReferralAttributes) error {
	if !ctx.HF.Has(hardfork.HF19) {
		return types.Unsupported("break_free_referral requires a later protocol version")
	}
	referral, err := domain.GetAccount(ctx.State, attr.Referral)
	if err != nil {
		return err
	}
	if referral.ReferralBreakFee.IsZero() {
		return types.Logic(types.LogicNoRightToBreakReferral, "this referral account has no right to break referral")
	}
	if _, err := domain.GetAccount(ctx.State, referral.Referrer); err != nil {
		return err
	}
	if err := balance.Check(ctx.State, attr.Referral, types.MainBalance, referral.ReferralBreakFee); err != nil {
		return err
	}
	return ctx.State.Apply(
		balance.Adjust(attr.Referral, referral.ReferralBreakFee.Neg()),
		balance.Adjust(referral.Referrer, referral.ReferralBreakFee),
		domain.UpdateAccount(attr.Referral, func(a *domain.Account) {
			a.Referrer = ""
			a.ReferrerInterestRate = 0
			a.ReferralEndDate = types.MinTime
			a.ReferralBreakFee = types.CoreAsset(0)
		}),
	)
}
