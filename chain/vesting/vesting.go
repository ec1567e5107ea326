// Package vesting implements stake movements: powering up, the staged
// power-down with withdraw routes, and vesting share delegation.
package vesting

import (
	"github.com/forumchain/forumchain/chain"
	"github.com/forumchain/forumchain/chain/balance"
	"github.com/forumchain/forumchain/domain"
	"github.com/forumchain/forumchain/hardfork"
	"github.com/forumchain/forumchain/state"
	"github.com/forumchain/forumchain/types"
	"github.com/forumchain/forumchain/util"
)

const (
	OpTransferToVesting       = "transfer_to_vesting"
	OpWithdrawVesting         = "withdraw_vesting"
	OpSetWithdrawVestingRoute = "set_withdraw_vesting_route"
	OpDelegateVestingShares   = "delegate_vesting_shares"
	OpFillVestingWithdraw     = "fill_vesting_withdraw"
	OpReturnVestingDelegation = "return_vesting_delegation"
)

type (
	TransferToVestingAttributes struct {
		_    struct{} `cbor:",toarray"`
		From types.AccountName
		// To empty powers up the sender's own stake.
		To     types.AccountName
		Amount types.Asset // CORE
	}

	WithdrawVestingAttributes struct {
		_             struct{} `cbor:",toarray"`
		Account       types.AccountName
		VestingShares types.Asset // VESTS; zero cancels the power-down
	}

	SetWithdrawVestingRouteAttributes struct {
		_           struct{} `cbor:",toarray"`
		FromAccount types.AccountName
		ToAccount   types.AccountName
		Percent     uint16
		AutoVest    bool
	}

	DelegateVestingSharesAttributes struct {
		_             struct{} `cbor:",toarray"`
		Delegator     types.AccountName
		Delegatee     types.AccountName
		VestingShares types.Asset // VESTS; the new total, not a delta
	}

	// FillVestingWithdrawAttributes is the virtual operation published per
	// deposit the withdrawal sweep makes.
	FillVestingWithdrawAttributes struct {
		_         struct{} `cbor:",toarray"`
		From      types.AccountName
		To        types.AccountName
		Withdrawn types.Asset // VESTS
		Deposited types.Asset // VESTS or CORE
	}

	// ReturnVestingDelegationAttributes is the virtual operation published
	// when expired delegated shares return to the delegator.
	ReturnVestingDelegationAttributes struct {
		_             struct{} `cbor:",toarray"`
		Account       types.AccountName
		VestingShares types.Asset // VESTS
	}

	Module struct{}
)

func NewModule() *Module { return &Module{} }

func (m *Module) OpHandlers() map[string]chain.OpExecutor {
	return map[string]chain.OpExecutor{
		OpTransferToVesting:       chain.NewOpHandler(validateTransferToVesting, m.applyTransferToVesting),
		OpWithdrawVesting:         chain.NewOpHandler(validateWithdrawVesting, m.applyWithdrawVesting),
		OpSetWithdrawVestingRoute: chain.NewOpHandler(validateSetWithdrawVestingRoute, m.applySetWithdrawVestingRoute),
		OpDelegateVestingShares:   chain.NewOpHandler(validateDelegateVestingShares, m.applyDelegateVestingShares),
	}
}

func validateTransferToVesting(attr *TransferToVestingAttributes) error {
	if err := types.ValidateAccountName(attr.From); err != nil {
		return err
	}
	if attr.To != "" {
		if err := types.ValidateAccountName(attr.To); err != nil {
			return err
		}
	}
	if attr.Amount.Symbol != types.SymbolCore {
		return &types.InvalidParameterError{Param: "amount", Reason: "only the core token can be vested"}
	}
	if attr.Amount.Amount <= 0 {
		return &types.InvalidParameterError{Param: "amount", Reason: "amount must be positive"}
	}
	return nil
}

func (m *Module) applyTransferToVesting(ctx *chain.ExecutionContext, attr *TransferToVestingAttributes) error {
	to := attr.To
	if to == "" {
		to = attr.From
	}
	if _, err := domain.GetAccount(ctx.State, attr.From); err != nil {
		return err
	}
	if _, err := domain.GetAccount(ctx.State, to); err != nil {
		return err
	}
	if err := balance.Check(ctx.State, attr.From, types.MainBalance, attr.Amount); err != nil {
		return err
	}
	if err := ctx.State.Apply(balance.Adjust(attr.From, attr.Amount.Neg())); err != nil {
		return err
	}
	_, err := chain.CreateVesting(ctx.State, to, attr.Amount)
	return err
}

func validateWithdrawVesting(attr *WithdrawVestingAttributes) error {
	if err := types.ValidateAccountName(attr.Account); err != nil {
		return err
	}
	if attr.VestingShares.Symbol != types.SymbolVests {
		return &types.InvalidParameterError{Param: "vesting_shares", Reason: "must be vesting shares"}
	}
	if attr.VestingShares.IsNegative() {
		return &types.InvalidParameterError{Param: "vesting_shares", Reason: "cannot withdraw a negative amount"}
	}
	return nil
}

func (m *Module) applyWithdrawVesting(ctx *chain.ExecutionContext, attr *WithdrawVestingAttributes) error {
	acc, err := domain.GetAccount(ctx.State, attr.Account)
	if err != nil {
		return err
	}
	if err := balance.Check(ctx.State, attr.Account, types.HavingVesting, attr.VestingShares); err != nil {
		return err
	}

	if !acc.Mined && ctx.HF.Has(hardfork.HF1) {
		// Accounts registered through mining never paid a creation fee;
		// everyone else must keep ten fees worth of stake to power down.
		props, err := ctx.MedianProps()
		if err != nil {
			return err
		}
		gp, err := ctx.Globals()
		if err != nil {
			return err
		}
		minVests := gp.VestingSharePrice().Convert(props.AccountCreationFee)
		minVests.Amount *= types.AccountMinedToRegisteredRatio
		cancelling := ctx.HF.Has(hardfork.HF16) && attr.VestingShares.IsZero()
		if !acc.VestingShares.GT(minVests) && !cancelling {
			return types.Logic(types.LogicPowerdownFeeTooLow,
				"account registered by another account requires 10x account creation fee worth of vesting shares before it can be powered down")
		}
	}

	oldNext := acc.NextVestingWithdrawal

	if attr.VestingShares.IsZero() {
		if ctx.HF.HasOrProducing(hardfork.HF5) && acc.VestingWithdrawRate.IsZero() {
			return types.Logic(types.LogicWithdrawRateUnchanged, "this operation would not change the vesting withdraw rate")
		}
		err = ctx.State.Apply(domain.UpdateAccount(attr.Account, func(a *domain.Account) {
			a.VestingWithdrawRate = types.VestsAsset(0)
			a.NextVestingWithdrawal = types.MaxTime
			a.ToWithdraw = 0
			a.Withdrawn = 0
		}))
		if err != nil {
			return err
		}
		return m.reschedule(ctx.State, attr.Account, oldNext, types.MaxTime)
	}

	intervals := int64(types.LegacyVestingWithdrawIntervals)
	if ctx.HF.Has(hardfork.HF16) {
		intervals = types.VestingWithdrawIntervals
	}
	newRate := types.VestsAsset(attr.VestingShares.Amount / intervals)
	if newRate.IsZero() {
		newRate.Amount = 1
	}
	if ctx.HF.HasOrProducing(hardfork.HF5) && acc.VestingWithdrawRate.Amount == newRate.Amount {
		return types.Logic(types.LogicWithdrawRateUnchanged, "this operation would not change the vesting withdraw rate")
	}
	next := ctx.Now.AddSeconds(types.VestingWithdrawIntervalSeconds)
	err = ctx.State.Apply(domain.UpdateAccount(attr.Account, func(a *domain.Account) {
		a.VestingWithdrawRate = newRate
		a.NextVestingWithdrawal = next
		a.ToWithdraw = attr.VestingShares.Amount
		a.Withdrawn = 0
	}))
	if err != nil {
		return err
	}
	return m.reschedule(ctx.State, attr.Account, oldNext, next)
}

// reschedule keeps the time-ordered withdrawal index in step with the
// account's next_vesting_withdrawal field.
func (m *Module) reschedule(s *state.Store, acc types.AccountName, oldNext, newNext types.Time) error {
	var actions []state.Action
	if oldNext != types.MaxTime {
		actions = append(actions, state.DeleteObject(domain.WithdrawScheduleKey(oldNext, acc)))
	}
	if newNext != types.MaxTime {
		actions = append(actions, state.AddObject(domain.WithdrawScheduleKey(newNext, acc), &domain.ScheduleRef{
			Key: domain.AccountKey(acc),
		}))
	}
	return s.Apply(actions...)
}

func validateSetWithdrawVestingRoute(attr *SetWithdrawVestingRouteAttributes) error {
	if err := types.ValidateAccountName(attr.FromAccount); err != nil {
		return err
	}
	if err := types.ValidateAccountName(attr.ToAccount); err != nil {
		return err
	}
	if attr.Percent > uint16(types.Percent100) {
		return &types.InvalidParameterError{Param: "percent", Reason: "percent must be between 0 and 100%"}
	}
	return nil
}

func (m *Module) applySetWithdrawVestingRoute(ctx *chain.ExecutionContext, attr *SetWithdrawVestingRouteAttributes) error {
	from, err := domain.GetAccount(ctx.State, attr.FromAccount)
	if err != nil {
		return err
	}
	if _, err := domain.GetAccount(ctx.State, attr.ToAccount); err != nil {
		return err
	}
	key := domain.WithdrawRouteKey(attr.FromAccount, attr.ToAccount)
	switch {
	case !ctx.State.HasObject(key):
		if attr.Percent == 0 {
			return types.Logic(types.LogicZeroPercentRoute, "cannot create a 0%% destination")
		}
		if from.WithdrawRoutes >= types.MaxWithdrawRoutes {
			return types.Logic(types.LogicMaxWithdrawRoutes, "account already has the maximum number of routes")
		}
		err = ctx.State.Apply(
			state.AddObject(key, &domain.WithdrawRoute{
				From:     attr.FromAccount,
				To:       attr.ToAccount,
				Percent:  attr.Percent,
				AutoVest: attr.AutoVest,
			}),
			domain.UpdateAccount(attr.FromAccount, func(a *domain.Account) {
				a.WithdrawRoutes++
			}),
		)
	case attr.Percent == 0:
		err = ctx.State.Apply(
			state.DeleteObject(key),
			domain.UpdateAccount(attr.FromAccount, func(a *domain.Account) {
				a.WithdrawRoutes--
			}),
		)
	default:
		err = ctx.State.Apply(state.UpdateObject(key, func(obj state.Object) (state.Object, error) {
			r := obj.(*domain.WithdrawRoute)
			r.Percent = attr.Percent
			r.AutoVest = attr.AutoVest
			return r, nil
		}))
	}
	if err != nil {
		return err
	}

	var total uint32
	err = ctx.State.IteratePrefix(domain.WithdrawRoutePrefix(attr.FromAccount), func(_ []byte, obj state.Object) (bool, error) {
		total += uint32(obj.(*domain.WithdrawRoute).Percent)
		return true, nil
	})
	if err != nil {
		return err
	}
	if total > uint32(types.Percent100) {
		return types.Logic(types.LogicRoutesOver100Percent,
			"more than 100%% of vesting withdrawals allocated to destinations")
	}
	return nil
}

func validateDelegateVestingShares(attr *DelegateVestingSharesAttributes) error {
	if err := types.ValidateAccountName(attr.Delegator); err != nil {
		return err
	}
	if err := types.ValidateAccountName(attr.Delegatee); err != nil {
		return err
	}
	if attr.Delegator == attr.Delegatee {
		return &types.InvalidParameterError{Param: "delegatee", Reason: "cannot delegate to self"}
	}
	if attr.VestingShares.Symbol != types.SymbolVests {
		return &types.InvalidParameterError{Param: "vesting_shares", Reason: "must be vesting shares"}
	}
	if attr.VestingShares.IsNegative() {
		return &types.InvalidParameterError{Param: "vesting_shares", Reason: "cannot be negative"}
	}
	return nil
}

func (m *Module) applyDelegateVestingShares(ctx *chain.ExecutionContext, attr *DelegateVestingSharesAttributes) error {
	delegator, err := domain.GetAccount(ctx.State, attr.Delegator)
	if err != nil {
		return err
	}
	if _, err := domain.GetAccount(ctx.State, attr.Delegatee); err != nil {
		return err
	}
	props, err := ctx.MedianProps()
	if err != nil {
		return err
	}
	gp, err := ctx.Globals()
	if err != nil {
		return err
	}
	sharePrice := gp.VestingSharePrice()
	minDelegation := sharePrice.Convert(props.MinDelegation)
	minUpdate := sharePrice.Convert(props.CreateAccountMinFee)

	var existing *domain.VestingDelegation
	if domain.HasDelegation(ctx.State, attr.Delegator, attr.Delegatee) {
		existing, err = domain.GetDelegation(ctx.State, attr.Delegator, attr.Delegatee)
		if err != nil {
			return err
		}
	}
	delta := attr.VestingShares
	if existing != nil {
		delta = attr.VestingShares.Sub(existing.VestingShares)
	}
	increasing := delta.Amount > 0

	absDelta := delta
	if absDelta.IsNegative() {
		absDelta = absDelta.Neg()
	}
	if absDelta.LT(minUpdate) {
		return types.Logic(types.LogicDelegationDiffTooLow, "delegation difference is not enough, minimum %s", minUpdate)
	}

	if increasing {
		if err := balance.Check(ctx.State, attr.Delegator, types.AvailableVesting, delta); err != nil {
			return err
		}
		// The delegable amount is further limited by the delegator's
		// current voting power so stake cannot vote twice via delegation.
		elapsed := ctx.Now.SecondsSince(delegator.LastVoteTime)
		regenerated := int64(types.Percent100) * elapsed / types.VoteRegenerationSeconds
		currentPower := util.Min(int64(delegator.VotingPower)+regenerated, int64(types.Percent100))
		maxAllowed := types.VestsAsset(types.MulDivWide(delegator.VestingShares.Amount, currentPower, int64(types.Percent100)))
		if delegator.DelegatedVestingShares.Add(delta).GT(maxAllowed) {
			return types.Logic(types.LogicDelegationVotingPowerLimit,
				"account allowed to delegate a maximum of %s with current voting power %d", maxAllowed, currentPower)
		}
		if existing == nil {
			if attr.VestingShares.LT(minDelegation) {
				return types.Logic(types.LogicDelegationBelowMinimum, "account must delegate a minimum of %s", minDelegation)
			}
			err = ctx.State.Apply(state.AddObject(domain.DelegationKey(attr.Delegator, attr.Delegatee), &domain.VestingDelegation{
				Delegator:         attr.Delegator,
				Delegatee:         attr.Delegatee,
				VestingShares:     attr.VestingShares,
				MinDelegationTime: ctx.Now,
			}))
			if err != nil {
				return err
			}
		}
		err = ctx.State.Apply(domain.UpdateAccount(attr.Delegator, func(a *domain.Account) {
			a.DelegatedVestingShares = a.DelegatedVestingShares.Add(delta)
		}))
		if err != nil {
			return err
		}
	} else {
		if existing == nil {
			return types.Logic(types.LogicDelegationDiffTooLow, "no delegation to reduce")
		}
		if !attr.VestingShares.IsZero() && attr.VestingShares.LT(minDelegation) {
			return types.Logic(types.LogicDelegationBelowMinimum,
				"delegation must be removed or leave the minimum of %s", minDelegation)
		}
		// Returned shares stay locked until the longer of the payout
		// window and the delegation's own minimum term.
		seq, err := ctx.NextSeq()
		if err != nil {
			return err
		}
		expiration := types.MaxOfTime(ctx.Now.AddSeconds(types.CashoutWindowSeconds), existing.MinDelegationTime)
		err = ctx.State.Apply(state.AddObject(domain.DelegationExpirationKey(expiration, seq), &domain.DelegationExpiration{
			Seq:           seq,
			Delegator:     attr.Delegator,
			VestingShares: delta.Neg(),
			Expiration:    expiration,
		}))
		if err != nil {
			return err
		}
	}

	err = ctx.State.Apply(domain.UpdateAccount(attr.Delegatee, func(a *domain.Account) {
		a.ReceivedVestingShares = a.ReceivedVestingShares.Add(delta)
	}))
	if err != nil {
		return err
	}
	if existing != nil {
		key := domain.DelegationKey(attr.Delegator, attr.Delegatee)
		if attr.VestingShares.Amount > 0 {
			return ctx.State.Apply(state.UpdateObject(key, func(obj state.Object) (state.Object, error) {
				obj.(*domain.VestingDelegation).VestingShares = attr.VestingShares
				return obj, nil
			}))
		}
		return ctx.State.Apply(state.DeleteObject(key))
	}
	return nil
}
