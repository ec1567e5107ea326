package chain

import (
	"github.com/forumchain/forumchain/domain"
	"github.com/forumchain/forumchain/state"
	"github.com/forumchain/forumchain/types"
)

// CreateVesting converts amount of the core token into vesting shares for
// name at the current pool rate, floor-divided; the truncated remainder
// stays in the fund and dilutes in favour of all existing holders. The
// caller is responsible for debiting the source of amount. Returns the
// shares created.
func CreateVesting(s *state.Store, name types.AccountName, amount types.Asset) (types.Asset, error) {
	if amount.Symbol != types.SymbolCore {
		return types.Asset{}, &types.InvalidParameterError{Param: "amount", Reason: "vesting deposits must be the core token"}
	}
	gp, err := domain.GetGlobalProperties(s)
	if err != nil {
		return types.Asset{}, err
	}
	newVesting := gp.VestingSharePrice().Convert(amount)
	err = s.Apply(
		domain.UpdateAccount(name, func(a *domain.Account) {
			a.VestingShares = a.VestingShares.Add(newVesting)
		}),
		domain.UpdateGlobalProperties(func(g *domain.GlobalProperties) {
			g.TotalVestingFund = g.TotalVestingFund.Add(amount)
			g.TotalVestingShares = g.TotalVestingShares.Add(newVesting)
		}),
	)
	if err != nil {
		return types.Asset{}, err
	}
	acc, err := domain.GetAccount(s, name)
	if err != nil {
		return types.Asset{}, err
	}
	if err := AdjustProxiedWitnessVotes(s, acc, newVesting.Amount); err != nil {
		return types.Asset{}, err
	}
	return newVesting, nil
}
