package accounts

import (
	"github.com/forumchain/forumchain/chain"
	"github.com/forumchain/forumchain/domain"
	"github.com/forumchain/forumchain/state"
	"github.com/forumchain/forumchain/types"
	"github.com/forumchain/forumchain/util"
)

// EndBlock expires stale recovery requests, makes pending recovery
// partner changes effective, finalizes voting rights declines and prunes
// owner authority history outside the tracking window.
func (m *Module) EndBlock(ctx *chain.ExecutionContext) error {
	if err := m.expireRecoveryRequests(ctx); err != nil {
		return err
	}
	if err := m.effectuateRecoveryChanges(ctx); err != nil {
		return err
	}
	if err := m.effectuateVotingDeclines(ctx); err != nil {
		return err
	}
	return m.pruneOwnerAuthorityHistory(ctx)
}

func dueScheduleKeys(s *state.Store, prefix []byte, now types.Time) ([][]byte, error) {
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

func (m *Module) expireRecoveryRequests(ctx *chain.ExecutionContext) error {
	due, err := dueScheduleKeys(ctx.State, domain.RecoverySchedulePrefix(), ctx.Now)
	if err != nil {
		return err
	}
	for _, schedKey := range due {
		refObj, err := ctx.State.GetObject(schedKey)
		if err != nil {
			return err
		}
		err = ctx.State.Apply(
			state.DeleteObject(refObj.(*domain.ScheduleRef).Key),
			state.DeleteObject(schedKey),
		)
		if err != nil {
			return err
		}
	}
	return nil
}

func (m *Module) effectuateRecoveryChanges(ctx *chain.ExecutionContext) error {
	due, err := dueScheduleKeys(ctx.State, domain.ChangeRecoverySchedulePrefix(), ctx.Now)
	if err != nil {
		return err
	}
	for _, schedKey := range due {
		refObj, err := ctx.State.GetObject(schedKey)
		if err != nil {
			return err
		}
		reqObj, err := ctx.State.GetObject(refObj.(*domain.ScheduleRef).Key)
		if err != nil {
			return err
		}
		req := reqObj.(*domain.ChangeRecoveryRequest)
		err = ctx.State.Apply(
			domain.UpdateAccount(req.AccountToRecover, func(a *domain.Account) {
				a.RecoveryAccount = req.RecoveryAccount
			}),
			state.DeleteObject(refObj.(*domain.ScheduleRef).Key),
			state.DeleteObject(schedKey),
		)
		if err != nil {
			return err
		}
	}
	return nil
}

func (m *Module) effectuateVotingDeclines(ctx *chain.ExecutionContext) error {
	due, err := dueScheduleKeys(ctx.State, domain.DeclineVotingSchedulePrefix(), ctx.Now)
	if err != nil {
		return err
	}
	for _, schedKey := range due {
		refObj, err := ctx.State.GetObject(schedKey)
		if err != nil {
			return err
		}
		reqObj, err := ctx.State.GetObject(refObj.(*domain.ScheduleRef).Key)
		if err != nil {
			return err
		}
		req := reqObj.(*domain.DeclineVotingRightsRequest)
		acc, err := domain.GetAccount(ctx.State, req.Account)
		if err != nil {
			return err
		}

		// Retract the account's stake from the proxy chain before the
		// approvals themselves disappear.
		var delta [types.MaxProxyRecursionDepth + 1]int64
		delta[0] = -acc.VestingShares.Amount
		for i, v := range acc.ProxiedVsfVotes {
			delta[i+1] = -v
		}
		if err := chain.AdjustProxiedWitnessVotesArray(ctx.State, acc, delta); err != nil {
			return err
		}
		if err := chain.ClearWitnessVotes(ctx.State, acc); err != nil {
			return err
		}
		err = ctx.State.Apply(
			domain.UpdateAccount(req.Account, func(a *domain.Account) {
				a.CanVote = false
				a.Proxy = ""
			}),
			state.DeleteObject(refObj.(*domain.ScheduleRef).Key),
			state.DeleteObject(schedKey),
		)
		if err != nil {
			return err
		}
	}
	return nil
}

// pruneOwnerAuthorityHistory deletes superseded owner authorities no
// recovery can legally reference anymore. History is keyed by account,
// not by time, so this is a full scan of the (small) history kind.
func (m *Module) pruneOwnerAuthorityHistory(ctx *chain.ExecutionContext) error {
	cutoff := ctx.Now.Unix() - types.OwnerAuthHistoryTrackingSeconds
	var stale [][]byte
	err := ctx.State.IteratePrefix(domain.OwnerAuthHistoryAllPrefix(), func(key []byte, obj state.Object) (bool, error) {
		h := obj.(*domain.OwnerAuthorityHistory)
		if h.LastValidTime.Unix() < cutoff {
			stale = append(stale, append([]byte(nil), key...))
		}
		return true, nil
	})
	if err != nil {
		return err
	}
	for _, key := range stale {
		if err := ctx.State.Apply(state.DeleteObject(key)); err != nil {
			return err
		}
	}
	return nil
}
