// Package balance is the balance accessor: the single place that resolves
// and mutates the authority-distinct balances of an account. Evaluators
// check sufficiency here before mutating anything.
package balance

import (
	"fmt"

	"github.com/forumchain/forumchain/domain"
	"github.com/forumchain/forumchain/state"
	"github.com/forumchain/forumchain/types"
)

// Get resolves one typed balance. Fails with InvalidParameter when the
// symbol is incompatible with the balance kind.
func Get(s *state.Store, name types.AccountName, kind types.BalanceKind, symbol types.Symbol) (types.Asset, error) {
	acc, err := domain.GetAccount(s, name)
	if err != nil {
		return types.Asset{}, err
	}
	return get(acc, kind, symbol)
}

func get(acc *domain.Account, kind types.BalanceKind, symbol types.Symbol) (types.Asset, error) {
	badSymbol := func() (types.Asset, error) {
		return types.Asset{}, &types.InvalidParameterError{
			Param:  "symbol",
			Reason: fmt.Sprintf("%s balance has no %s component", kind, symbol),
		}
	}
	switch kind {
	case types.MainBalance:
		switch symbol {
		case types.SymbolCore:
			return acc.Balance, nil
		case types.SymbolDebt:
			return acc.DebtBalance, nil
		}
		return badSymbol()
	case types.SavingsBalance:
		switch symbol {
		case types.SymbolCore:
			return acc.SavingsBalance, nil
		case types.SymbolDebt:
			return acc.SavingsDebtBalance, nil
		}
		return badSymbol()
	case types.VestingBalance:
		if symbol != types.SymbolVests {
			return badSymbol()
		}
		return acc.VestingShares, nil
	case types.EffectiveVesting:
		if symbol != types.SymbolVests {
			return badSymbol()
		}
		return acc.EffectiveVestingShares(), nil
	case types.HavingVesting:
		if symbol != types.SymbolVests {
			return badSymbol()
		}
		return acc.VestingShares.Sub(acc.DelegatedVestingShares), nil
	case types.AvailableVesting:
		if symbol != types.SymbolVests {
			return badSymbol()
		}
		// shares already committed to an in-flight withdrawal are not
		// available for delegation
		remaining := acc.ToWithdraw - acc.Withdrawn
		if remaining < 0 {
			remaining = 0
		}
		return acc.VestingShares.Sub(acc.DelegatedVestingShares).Sub(types.VestsAsset(remaining)), nil
	}
	return types.Asset{}, &types.InvalidParameterError{Param: "balance_kind", Reason: "unknown balance kind"}
}

// Check fails with a structured InsufficientFunds when the balance cannot
// cover required.
func Check(s *state.Store, name types.AccountName, kind types.BalanceKind, required types.Asset) error {
	actual, err := Get(s, name, kind, required.Symbol)
	if err != nil {
		return err
	}
	if actual.LT(required) {
		return &types.InsufficientFundsError{
			Account:  name,
			Balance:  kind,
			Required: required,
			Actual:   actual,
		}
	}
	return nil
}

// Adjust moves delta in or out of the main balance of the matching
// symbol. A negative result fails with InsufficientFunds, which makes the
// enclosing transaction roll back.
func Adjust(name types.AccountName, delta types.Asset) state.Action {
	return adjust(name, types.MainBalance, delta)
}

// AdjustSavings is Adjust for the savings balances.
func AdjustSavings(name types.AccountName, delta types.Asset) state.Action {
	return adjust(name, types.SavingsBalance, delta)
}

func adjust(name types.AccountName, kind types.BalanceKind, delta types.Asset) state.Action {
	return state.UpdateObject(domain.AccountKey(name), func(obj state.Object) (state.Object, error) {
		acc := obj.(*domain.Account)
		var target *types.Asset
		switch {
		case kind == types.MainBalance && delta.Symbol == types.SymbolCore:
			target = &acc.Balance
		case kind == types.MainBalance && delta.Symbol == types.SymbolDebt:
			target = &acc.DebtBalance
		case kind == types.SavingsBalance && delta.Symbol == types.SymbolCore:
			target = &acc.SavingsBalance
		case kind == types.SavingsBalance && delta.Symbol == types.SymbolDebt:
			target = &acc.SavingsDebtBalance
		default:
			return nil, &types.InvalidParameterError{
				Param:  "symbol",
				Reason: fmt.Sprintf("cannot adjust %s balance by %s", kind, delta.Symbol),
			}
		}
		next := target.Add(delta)
		if next.IsNegative() {
			return nil, &types.InsufficientFundsError{
				Account:  name,
				Balance:  kind,
				Required: delta.Neg(),
				Actual:   *target,
			}
		}
		*target = next
		return acc, nil
	})
}
