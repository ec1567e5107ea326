package vesting

import (
	"github.com/forumchain/forumchain/chain"
	"github.com/forumchain/forumchain/chain/balance"
	"github.com/forumchain/forumchain/domain"
	"github.com/forumchain/forumchain/state"
	"github.com/forumchain/forumchain/types"
	"github.com/forumchain/forumchain/util"
)

// EndBlock returns expired delegations and processes due vesting
// withdrawal intervals.
func (m *Module) EndBlock(ctx *chain.ExecutionContext) error {
	if err := m.processDelegationExpirations(ctx); err != nil {
		return err
	}
	return m.processWithdrawals(ctx)
}

func dueKeys(s *state.Store, prefix []byte, now types.Time) ([][]byte, error) {
	var due [][]byte
	err := s.IteratePrefix(prefix, func(key []byte, _ state.Object) (bool, error) {
		at := types.Time(util.BytesToUint32(key[len(prefix) : len(prefix)+4]))
		if at.After(now) {
			return false, nil
		}
		due = append(due, append([]byte(nil), key...))
		return true, nil
	})
	return due, err
}

func (m *Module) processDelegationExpirations(ctx *chain.ExecutionContext) error {
	due, err := dueKeys(ctx.State, domain.DelegationExpirationPrefix(), ctx.Now)
	if err != nil {
		return err
	}
	for _, key := range due {
		obj, err := ctx.State.GetObject(key)
		if err != nil {
			return err
		}
		exp := obj.(*domain.DelegationExpiration)
		err = ctx.State.Apply(
			domain.UpdateAccount(exp.Delegator, func(a *domain.Account) {
				a.DelegatedVestingShares = a.DelegatedVestingShares.Sub(exp.VestingShares)
			}),
			state.DeleteObject(key),
		)
		if err != nil {
			return err
		}
		err = ctx.NotifyVirtual(OpReturnVestingDelegation, &ReturnVestingDelegationAttributes{
			Account:       exp.Delegator,
			VestingShares: exp.VestingShares,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (m *Module) processWithdrawals(ctx *chain.ExecutionContext) error {
	due, err := dueKeys(ctx.State, domain.WithdrawSchedulePrefix(), ctx.Now)
	if err != nil {
		return err
	}
	for _, schedKey := range due {
		refObj, err := ctx.State.GetObject(schedKey)
		if err != nil {
			return err
		}
		accObj, err := ctx.State.GetObject(refObj.(*domain.ScheduleRef).Key)
		if err != nil {
			return err
		}
		if err := m.fillWithdrawInterval(ctx, accObj.(*domain.Account), schedKey); err != nil {
			return err
		}
	}
	return nil
}

// fillWithdrawInterval pays out one interval of acc's power-down: the
// routed slices first (re-vested or converted per route), then the
// remainder to the account itself as liquid core.
func (m *Module) fillWithdrawInterval(ctx *chain.ExecutionContext, acc *domain.Account, schedKey []byte) error {
	gp, err := ctx.Globals()
	if err != nil {
		return err
	}
	sharePrice := gp.VestingSharePrice()

	remaining := acc.ToWithdraw - acc.Withdrawn
	var toWithdraw int64
	if remaining < acc.VestingWithdrawRate.Amount {
		toWithdraw = util.Min(acc.VestingShares.Amount, acc.ToWithdraw%acc.VestingWithdrawRate.Amount)
	} else {
		toWithdraw = util.Min(acc.VestingShares.Amount, acc.VestingWithdrawRate.Amount)
	}
	if toWithdraw < 0 {
		toWithdraw = 0
	}

	var routes []*domain.WithdrawRoute
	err = ctx.State.IteratePrefix(domain.WithdrawRoutePrefix(acc.Name), func(_ []byte, obj state.Object) (bool, error) {
		routes = append(routes, obj.(*domain.WithdrawRoute))
		return true, nil
	})
	if err != nil {
		return err
	}

	var depositedVests, depositedAsCore int64
	for _, route := range routes {
		toDeposit := types.MulDivWide(toWithdraw, int64(route.Percent), int64(types.Percent100))
		if toDeposit == 0 {
			continue
		}
		if route.AutoVest {
			depositedVests += toDeposit
			err = ctx.State.Apply(domain.UpdateAccount(route.To, func(a *domain.Account) {
				a.VestingShares = a.VestingShares.Add(types.VestsAsset(toDeposit))
			}))
			if err != nil {
				return err
			}
			toAcc, err := domain.GetAccount(ctx.State, route.To)
			if err != nil {
				return err
			}
			if err := chain.AdjustProxiedWitnessVotes(ctx.State, toAcc, toDeposit); err != nil {
				return err
			}
			err = ctx.NotifyVirtual(OpFillVestingWithdraw, &FillVestingWithdrawAttributes{
				From:      acc.Name,
				To:        route.To,
				Withdrawn: types.VestsAsset(toDeposit),
				Deposited: types.VestsAsset(toDeposit),
			})
			if err != nil {
				return err
			}
		} else {
			depositedAsCore += toDeposit
			converted := sharePrice.Convert(types.VestsAsset(toDeposit))
			err = ctx.State.Apply(
				balance.Adjust(route.To, converted),
				domain.UpdateGlobalProperties(func(g *domain.GlobalProperties) {
					g.TotalVestingFund = g.TotalVestingFund.Sub(converted)
					g.TotalVestingShares = g.TotalVestingShares.Sub(types.VestsAsset(toDeposit))
				}),
			)
			if err != nil {
				return err
			}
			err = ctx.NotifyVirtual(OpFillVestingWithdraw, &FillVestingWithdrawAttributes{
				From:      acc.Name,
				To:        route.To,
				Withdrawn: types.VestsAsset(toDeposit),
				Deposited: converted,
			})
			if err != nil {
				return err
			}
		}
	}

	toConvert := toWithdraw - depositedVests - depositedAsCore
	converted := sharePrice.Convert(types.VestsAsset(toConvert))

	var newNext types.Time
	err = ctx.State.Apply(
		state.UpdateObject(domain.AccountKey(acc.Name), func(obj state.Object) (state.Object, error) {
			a := obj.(*domain.Account)
			a.VestingShares = a.VestingShares.Sub(types.VestsAsset(toWithdraw))
			a.Balance = a.Balance.Add(converted)
			a.Withdrawn += toWithdraw
			if a.Withdrawn >= a.ToWithdraw || a.VestingShares.IsZero() {
				a.VestingWithdrawRate = types.VestsAsset(0)
				a.NextVestingWithdrawal = types.MaxTime
			} else {
				a.NextVestingWithdrawal = a.NextVestingWithdrawal.AddSeconds(types.VestingWithdrawIntervalSeconds)
			}
			newNext = a.NextVestingWithdrawal
			return a, nil
		}),
		domain.UpdateGlobalProperties(func(g *domain.GlobalProperties) {
			g.TotalVestingFund = g.TotalVestingFund.Sub(converted)
			g.TotalVestingShares = g.TotalVestingShares.Sub(types.VestsAsset(toConvert))
		}),
		state.DeleteObject(schedKey),
	)
	if err != nil {
		return err
	}
	if newNext != types.MaxTime {
		err = ctx.State.Apply(state.AddObject(domain.WithdrawScheduleKey(newNext, acc.Name), &domain.ScheduleRef{
			Key: domain.AccountKey(acc.Name),
		}))
		if err != nil {
			return err
		}
	}
	if toWithdraw > 0 {
		updated, err := domain.GetAccount(ctx.State, acc.Name)
		if err != nil {
			return err
		}
		if err := chain.AdjustProxiedWitnessVotes(ctx.State, updated, -toWithdraw); err != nil {
			return err
		}
	}
	if toConvert > 0 {
		err = ctx.NotifyVirtual(OpFillVestingWithdraw, &FillVestingWithdrawAttributes{
			From:      acc.Name,
			To:        acc.Name,
			Withdrawn: types.VestsAsset(toConvert),
			Deposited: converted,
		})
		if err != nil {
			return err
		}
	}
	return nil
}
