package funds

import (
	"fmt"

	"github.com/forumchain/forumchain/chain"
	"github.com/forumchain/forumchain/chain/balance"
	"github.com/forumchain/forumchain/domain"
	"github.com/forumchain/forumchain/state"
	"github.com/forumchain/forumchain/types"
)

type (
	EscrowTransferAttributes struct {
		_        struct{} `cbor:",toarray"`
		From     types.AccountName
		To       types.AccountName
		Agent    types.AccountName
		EscrowID uint32

		CoreAmount types.Asset // CORE
		DebtAmount types.Asset // DEBT
		Fee        types.Asset

		RatificationDeadline types.Time
		EscrowExpiration     types.Time
		JSONMeta             string
	}

	EscrowApproveAttributes struct {
		_        struct{} `cbor:",toarray"`
		From     types.AccountName
		To       types.AccountName
		Agent    types.AccountName
		Who      types.AccountName
		EscrowID uint32
		Approve  bool
	}

	EscrowDisputeAttributes struct {
		_        struct{} `cbor:",toarray"`
		From     types.AccountName
		To       types.AccountName
		Agent    types.AccountName
		Who      types.AccountName
		EscrowID uint32
	}

	EscrowReleaseAttributes struct {
		_        struct{} `cbor:",toarray"`
		From     types.AccountName
		To       types.AccountName
		Agent    types.AccountName
		Who      types.AccountName
		Receiver types.AccountName
		EscrowID uint32

		CoreAmount types.Asset // CORE
		DebtAmount types.Asset // DEBT
	}
)

func validateEscrowTransfer(attr *EscrowTransferAttributes) error {
	for _, n := range []struct {
		param string
		name  types.AccountName
	}{{"from", attr.From}, {"to", attr.To}, {"agent", attr.Agent}} {
		if err := types.ValidateAccountName(n.name); err != nil {
			return err
		}
	}
	if attr.CoreAmount.Symbol != types.SymbolCore {
		return &types.InvalidParameterError{Param: "core_amount", Reason: "must be the core token"}
	}
	if attr.DebtAmount.Symbol != types.SymbolDebt {
		return &types.InvalidParameterError{Param: "debt_amount", Reason: "must be the debt token"}
	}
	if attr.CoreAmount.IsNegative() || attr.DebtAmount.IsNegative() {
		return &types.InvalidParameterError{Param: "amount", Reason: "escrow amounts cannot be negative"}
	}
	if attr.CoreAmount.IsZero() && attr.DebtAmount.IsZero() {
		return &types.InvalidParameterError{Param: "amount", Reason: "escrow must transfer a non-zero amount"}
	}
	if attr.Fee.IsNegative() {
		return &types.InvalidParameterError{Param: "fee", Reason: "fee cannot be negative"}
	}
	if err := checkLiquidSymbol("fee", attr.Fee); err != nil {
		return err
	}
	if attr.From == attr.Agent || attr.To == attr.Agent {
		return &types.InvalidParameterError{Param: "agent", Reason: "agent must be a third party"}
	}
	if !attr.RatificationDeadline.Before(attr.EscrowExpiration) {
		return &types.InvalidParameterError{Param: "ratification_deadline", Reason: "must precede escrow expiration"}
	}
	return nil
}

func (m *Module) applyEscrowTransfer(ctx *chain.ExecutionContext, attr *EscrowTransferAttributes) error {
	if _, err := domain.GetAccount(ctx.State, attr.From); err != nil {
		return err
	}
	if _, err := domain.GetAccount(ctx.State, attr.To); err != nil {
		return err
	}
	if _, err := domain.GetAccount(ctx.State, attr.Agent); err != nil {
		return err
	}
	if !attr.RatificationDeadline.After(ctx.Now) {
		return types.Logic(types.LogicEscrowTimeInPast, "ratification deadline must be after head block time")
	}
	if !attr.EscrowExpiration.After(ctx.Now) {
		return types.Logic(types.LogicEscrowTimeInPast, "escrow expiration must be after head block time")
	}

	coreSpent, debtSpent := attr.CoreAmount, attr.DebtAmount
	if attr.Fee.Symbol == types.SymbolCore {
		coreSpent = coreSpent.Add(attr.Fee)
	} else {
		debtSpent = debtSpent.Add(attr.Fee)
	}
	if err := balance.Check(ctx.State, attr.From, types.MainBalance, coreSpent); err != nil {
		return err
	}
	if err := balance.Check(ctx.State, attr.From, types.MainBalance, debtSpent); err != nil {
		return err
	}
	if ctx.State.HasObject(domain.EscrowKey(attr.From, attr.EscrowID)) {
		return types.ObjectExists("escrow", fmt.Sprintf("%s/%d", attr.From, attr.EscrowID))
	}
	return ctx.State.Apply(
		balance.Adjust(attr.From, coreSpent.Neg()),
		balance.Adjust(attr.From, debtSpent.Neg()),
		state.AddObject(domain.EscrowKey(attr.From, attr.EscrowID), &domain.Escrow{
			From:                 attr.From,
			To:                   attr.To,
			Agent:                attr.Agent,
			EscrowID:             attr.EscrowID,
			CoreBalance:          attr.CoreAmount,
			DebtBalance:          attr.DebtAmount,
			PendingFee:           attr.Fee,
			RatificationDeadline: attr.RatificationDeadline,
			EscrowExpiration:     attr.EscrowExpiration,
		}),
	)
}

func validateEscrowApprove(attr *EscrowApproveAttributes) error {
	if err := types.ValidateAccountName(attr.Who); err != nil {
		return err
	}
	if attr.Who != attr.To && attr.Who != attr.Agent {
		return &types.InvalidParameterError{Param: "who", Reason: "only the to or agent account may approve"}
	}
	return nil
}

func (m *Module) applyEscrowApprove(ctx *chain.ExecutionContext, attr *EscrowApproveAttributes) error {
	esc, err := domain.GetEscrow(ctx.State, attr.From, attr.EscrowID)
	if err != nil {
		return err
	}
	if esc.To != attr.To {
		return types.Logic(types.LogicEscrowBadTo, "the to account %q does not match the escrow", attr.To)
	}
	if esc.Agent != attr.Agent {
		return types.Logic(types.LogicEscrowBadAgent, "the agent account %q does not match the escrow", attr.Agent)
	}
	if ctx.Now.After(esc.RatificationDeadline) {
		return types.Logic(types.LogicRatificationDeadlinePassed, "the escrow ratification deadline has passed")
	}

	switch attr.Who {
	case esc.To:
		if esc.ToApproved {
			return types.Logic(types.LogicEscrowAlreadyApproved, "%q has already approved the escrow", attr.Who)
		}
	case esc.Agent:
		if esc.AgentApproved {
			return types.Logic(types.LogicEscrowAlreadyApproved, "%q has already approved the escrow", attr.Who)
		}
	}

	key := domain.EscrowKey(attr.From, attr.EscrowID)
	if !attr.Approve {
		// A rejection by either party refunds everything and closes the
		// escrow.
		return ctx.State.Apply(
			balance.Adjust(esc.From, esc.CoreBalance),
			balance.Adjust(esc.From, esc.DebtBalance),
			balance.Adjust(esc.From, esc.PendingFee),
			state.DeleteObject(key),
		)
	}

	err = ctx.State.Apply(state.UpdateObject(key, func(obj state.Object) (state.Object, error) {
		e := obj.(*domain.Escrow)
		if attr.Who == e.To {
			e.ToApproved = true
		} else {
			e.AgentApproved = true
		}
		return e, nil
	}))
	if err != nil {
		return err
	}
	esc, err = domain.GetEscrow(ctx.State, attr.From, attr.EscrowID)
	if err != nil {
		return err
	}
	if esc.Approved() {
		// Second approval activates the escrow: the agent earns the fee.
		return ctx.State.Apply(
			balance.Adjust(esc.Agent, esc.PendingFee),
			state.UpdateObject(key, func(obj state.Object) (state.Object, error) {
				e := obj.(*domain.Escrow)
				e.PendingFee.Amount = 0
				return e, nil
			}),
		)
	}
	return nil
}

func validateEscrowDispute(attr *EscrowDisputeAttributes) error {
	if err := types.ValidateAccountName(attr.Who); err != nil {
		return err
	}
	if attr.Who != attr.From && attr.Who != attr.To {
		return &types.InvalidParameterError{Param: "who", Reason: "only the from or to account may dispute"}
	}
	return nil
}

func (m *Module) applyEscrowDispute(ctx *chain.ExecutionContext, attr *EscrowDisputeAttributes) error {
	if _, err := domain.GetAccount(ctx.State, attr.From); err != nil {
		return err
	}
	esc, err := domain.GetEscrow(ctx.State, attr.From, attr.EscrowID)
	if err != nil {
		return err
	}
	if !ctx.Now.Before(esc.EscrowExpiration) {
		return types.Logic(types.LogicEscrowExpired, "cannot dispute an expired escrow")
	}
	if !esc.Approved() {
		return types.Logic(types.LogicEscrowNotApproved, "the escrow must be approved before a dispute can be raised")
	}
	if esc.Disputed {
		return types.Logic(types.LogicEscrowAlreadyDisputed, "the escrow is already under dispute")
	}
	if esc.To != attr.To {
		return types.Logic(types.LogicEscrowBadTo, "the to account %q does not match the escrow", attr.To)
	}
	if esc.Agent != attr.Agent {
		return types.Logic(types.LogicEscrowBadAgent, "the agent account %q does not match the escrow", attr.Agent)
	}
	return ctx.State.Apply(state.UpdateObject(domain.EscrowKey(attr.From, attr.EscrowID), func(obj state.Object) (state.Object, error) {
		obj.(*domain.Escrow).Disputed = true
		return obj, nil
	}))
}

func validateEscrowRelease(attr *EscrowReleaseAttributes) error {
	if err := types.ValidateAccountName(attr.Who); err != nil {
		return err
	}
	if err := types.ValidateAccountName(attr.Receiver); err != nil {
		return err
	}
	if attr.CoreAmount.Symbol != types.SymbolCore {
		return &types.InvalidParameterError{Param: "core_amount", Reason: "must be the core token"}
	}
	if attr.DebtAmount.Symbol != types.SymbolDebt {
		return &types.InvalidParameterError{Param: "debt_amount", Reason: "must be the debt token"}
	}
	if attr.CoreAmount.IsNegative() || attr.DebtAmount.IsNegative() {
		return &types.InvalidParameterError{Param: "amount", Reason: "release amounts cannot be negative"}
	}
	if attr.CoreAmount.IsZero() && attr.DebtAmount.IsZero() {
		return &types.InvalidParameterError{Param: "amount", Reason: "must release a non-zero amount"}
	}
	return nil
}

func (m *Module) applyEscrowRelease(ctx *chain.ExecutionContext, attr *EscrowReleaseAttributes) error {
	if _, err := domain.GetAccount(ctx.State, attr.From); err != nil {
		return err
	}
	if _, err := domain.GetAccount(ctx.State, attr.Receiver); err != nil {
		return err
	}
	esc, err := domain.GetEscrow(ctx.State, attr.From, attr.EscrowID)
	if err != nil {
		return err
	}
	if esc.CoreBalance.LT(attr.CoreAmount) {
		return types.Logic(types.LogicEscrowReleaseExceedsBalance,
			"cannot release %s, escrow holds %s", attr.CoreAmount, esc.CoreBalance)
	}
	if esc.DebtBalance.LT(attr.DebtAmount) {
		return types.Logic(types.LogicEscrowReleaseExceedsBalance,
			"cannot release %s, escrow holds %s", attr.DebtAmount, esc.DebtBalance)
	}
	if esc.To != attr.To {
		return types.Logic(types.LogicEscrowBadTo, "the to account %q does not match the escrow", attr.To)
	}
	if esc.Agent != attr.Agent {
		return types.Logic(types.LogicEscrowBadAgent, "the agent account %q does not match the escrow", attr.Agent)
	}
	if attr.Receiver != esc.From && attr.Receiver != esc.To {
		return types.Logic(types.LogicEscrowBadReceiver, "funds can only be released to the from or to account")
	}
	if !esc.Approved() {
		return types.Logic(types.LogicEscrowNotApproved, "funds cannot be released prior to escrow approval")
	}

	if esc.Disputed {
		if attr.Who != esc.Agent {
			return types.Logic(types.LogicOnlyAgentReleasesDisputed, "only the agent can release a disputed escrow")
		}
	} else {
		if attr.Who != esc.From && attr.Who != esc.To {
			return types.Logic(types.LogicOnlyPartiesReleaseEscrow,
				"only the from or to account can release a non-disputed escrow")
		}
		// Before expiration parties can only release to each other; after,
		// either can release to either.
		if esc.EscrowExpiration.After(ctx.Now) {
			if attr.Who == esc.From && attr.Receiver != esc.To {
				return types.Logic(types.LogicFromReleasesOnlyToTo, "from can only release funds to the to account")
			}
			if attr.Who == esc.To && attr.Receiver != esc.From {
				return types.Logic(types.LogicToReleasesOnlyToFrom, "to can only release funds back to the from account")
			}
		}
	}

	key := domain.EscrowKey(attr.From, attr.EscrowID)
	err = ctx.State.Apply(
		balance.Adjust(attr.Receiver, attr.CoreAmount),
		balance.Adjust(attr.Receiver, attr.DebtAmount),
		state.UpdateObject(key, func(obj state.Object) (state.Object, error) {
			e := obj.(*domain.Escrow)
			e.CoreBalance = e.CoreBalance.Sub(attr.CoreAmount)
			e.DebtBalance = e.DebtBalance.Sub(attr.DebtAmount)
			return e, nil
		}),
	)
	if err != nil {
		return err
	}
	esc, err = domain.GetEscrow(ctx.State, attr.From, attr.EscrowID)
	if err != nil {
		return err
	}
	if esc.CoreBalance.IsZero() && esc.DebtBalance.IsZero() {
		return ctx.State.Apply(state.DeleteObject(key))
	}
	return nil
}
