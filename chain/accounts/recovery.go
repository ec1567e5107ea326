package accounts

import (
	"github.com/forumchain/forumchain/chain"
	"github.com/forumchain/forumchain/chain/balance"
	"github.com/forumchain/forumchain/domain"
	"github.com/forumchain/forumchain/hardfork"
	"github.com/forumchain/forumchain/state"
	"github.com/forumchain/forumchain/types"
)

func validateRequestAccountRecovery(attr *RequestAccountRecoveryAttributes) error {
	if err := types.ValidateAccountName(attr.RecoveryAccount); err != nil {
		return err
	}
	if err := types.ValidateAccountName(attr.AccountToRecover); err != nil {
		return err
	}
	return attr.NewOwnerAuthority.Validate()
}

func (m *Module) applyRequestAccountRecovery(ctx *chain.ExecutionContext, attr *RequestAccountRecoveryAttributes) error {
	acc, err := domain.GetAccount(ctx.State, attr.AccountToRecover)
	if err != nil {
		return err
	}
	// An account without a named recovery partner can only be recovered
	// by the top voted witness.
	if acc.RecoveryAccount != "" {
		if acc.RecoveryAccount != attr.RecoveryAccount {
			return types.Logic(types.LogicRecoveryNotPartner,
				"%q is not the recovery account of %q", attr.RecoveryAccount, attr.AccountToRecover)
		}
	} else {
		top, err := domain.TopWitnessByVote(ctx.State)
		if err != nil {
			return err
		}
		if top.Owner != attr.RecoveryAccount {
			return types.Logic(types.LogicRecoveryByTopWitness,
				"account %q has no recovery partner", attr.AccountToRecover)
		}
	}
	if attr.NewOwnerAuthority.IsImpossible() {
		return &types.InvalidParameterError{Param: "new_owner_authority", Reason: "cannot recover using an impossible authority"}
	}
	if attr.NewOwnerAuthority.WeightThreshold != 0 && attr.NewOwnerAuthority.NumAuths() == 0 {
		return &types.InvalidParameterError{Param: "new_owner_authority", Reason: "cannot recover using an open authority"}
	}
	if ctx.HF.HasOrProducing(hardfork.HF15) {
		if err := checkAuthAccountsExist(ctx.State, &attr.NewOwnerAuthority); err != nil {
			return err
		}
	}

	existing, err := domain.GetRecoveryRequest(ctx.State, attr.AccountToRecover)
	switch {
	case err != nil && attr.NewOwnerAuthority.WeightThreshold == 0:
		return err
	case attr.NewOwnerAuthority.WeightThreshold == 0:
		// A zero threshold cancels the open request.
		return ctx.State.Apply(
			state.DeleteObject(domain.RecoveryRequestKey(attr.AccountToRecover)),
			state.DeleteObject(domain.RecoveryScheduleKey(existing.Expires, attr.AccountToRecover)),
		)
	case err == nil:
		expires := ctx.Now.AddSeconds(types.AccountRecoveryRequestExpirationSeconds)
		return ctx.State.Apply(
			state.UpdateObject(domain.RecoveryRequestKey(attr.AccountToRecover), func(obj state.Object) (state.Object, error) {
				r := obj.(*domain.RecoveryRequest)
				r.NewOwnerAuthority = attr.NewOwnerAuthority
				r.Expires = expires
				return r, nil
			}),
			state.DeleteObject(domain.RecoveryScheduleKey(existing.Expires, attr.AccountToRecover)),
			state.AddObject(domain.RecoveryScheduleKey(expires, attr.AccountToRecover), &domain.ScheduleRef{
				Key: domain.RecoveryRequestKey(attr.AccountToRecover),
			}),
		)
	default:
		expires := ctx.Now.AddSeconds(types.AccountRecoveryRequestExpirationSeconds)
		return ctx.State.Apply(
			state.AddObject(domain.RecoveryRequestKey(attr.AccountToRecover), &domain.RecoveryRequest{
				AccountToRecover:  attr.AccountToRecover,
				NewOwnerAuthority: attr.NewOwnerAuthority,
				Expires:           expires,
			}),
			state.AddObject(domain.RecoveryScheduleKey(expires, attr.AccountToRecover), &domain.ScheduleRef{
				Key: domain.RecoveryRequestKey(attr.AccountToRecover),
			}),
		)
	}
}

func validateRecoverAccount(attr *RecoverAccountAttributes) error {
	if err := types.ValidateAccountName(attr.AccountToRecover); err != nil {
		return err
	}
	if attr.NewOwnerAuthority.Equal(&attr.RecentOwnerAuthority) {
		return &types.InvalidParameterError{Param: "new_owner_authority", Reason: "cannot set new owner authority to the recent owner authority"}
	}
	if attr.NewOwnerAuthority.IsImpossible() {
		return &types.InvalidParameterError{Param: "new_owner_authority", Reason: "cannot recover using an impossible authority"}
	}
	if attr.NewOwnerAuthority.WeightThreshold == 0 {
		return &types.InvalidParameterError{Param: "new_owner_authority", Reason: "cannot recover using an open authority"}
	}
	if attr.RecentOwnerAuthority.IsImpossible() {
		return &types.InvalidParameterError{Param: "recent_owner_authority", Reason: "cannot prove an impossible authority"}
	}
	return nil
}

func (m *Module) applyRecoverAccount(ctx *chain.ExecutionContext, attr *RecoverAccountAttributes) error {
	acc, err := domain.GetAccount(ctx.State, attr.AccountToRecover)
	if err != nil {
		return err
	}
	if ctx.HF.Has(hardfork.HF12) {
		err := types.CheckBandwidth(ctx.Now, acc.LastAccountRecovery.AddSeconds(types.OwnerUpdateLimitSeconds),
			types.OwnerUpdateBandwidth, "account can only be recovered once an hour")
		if err != nil {
			return err
		}
	}
	req, err := domain.GetRecoveryRequest(ctx.State, attr.AccountToRecover)
	if err != nil {
		return types.Logic(types.LogicNoActiveRecoveryRequest,
			"no active recovery request for account %q", attr.AccountToRecover)
	}
	if !req.NewOwnerAuthority.Equal(&attr.NewOwnerAuthority) {
		return types.Logic(types.LogicAuthorityMismatchesRequest,
			"new owner authority does not match the recovery request")
	}
	found := false
	err = ctx.State.IteratePrefix(domain.OwnerAuthHistoryPrefix(attr.AccountToRecover), func(_ []byte, obj state.Object) (bool, error) {
		h := obj.(*domain.OwnerAuthorityHistory)
		if h.PreviousOwner.Equal(&attr.RecentOwnerAuthority) {
			found = true
			return false, nil
		}
		return true, nil
	})
	if err != nil {
		return err
	}
	if !found {
		return types.Logic(types.LogicNoRecentAuthority,
			"recent owner authority is not a recent authority of account %q", attr.AccountToRecover)
	}
	err = ctx.State.Apply(
		state.DeleteObject(domain.RecoveryRequestKey(attr.AccountToRecover)),
		state.DeleteObject(domain.RecoveryScheduleKey(req.Expires, attr.AccountToRecover)),
	)
	if err != nil {
		return err
	}
	if err := updateOwnerAuthority(ctx, attr.AccountToRecover, attr.NewOwnerAuthority); err != nil {
		return err
	}
	now := ctx.Now
	return ctx.State.Apply(domain.UpdateAccount(attr.AccountToRecover, func(a *domain.Account) {
		a.LastAccountRecovery = now
	}))
}

func validateChangeRecoveryAccount(attr *ChangeRecoveryAccountAttributes) error {
	if err := types.ValidateAccountName(attr.AccountToRecover); err != nil {
		return err
	}
	return types.ValidateAccountName(attr.NewRecoveryAccount)
}

func (m *Module) applyChangeRecoveryAccount(ctx *chain.ExecutionContext, attr *ChangeRecoveryAccountAttributes) error {
	acc, err := domain.GetAccount(ctx.State, attr.AccountToRecover)
	if err != nil {
		return err
	}
	if _, err := domain.GetAccount(ctx.State, attr.NewRecoveryAccount); err != nil {
		return err
	}
	key := domain.ChangeRecoveryKey(attr.AccountToRecover)
	pending, err := ctx.State.GetObject(key)
	if err == nil {
		req := pending.(*domain.ChangeRecoveryRequest)
		if attr.NewRecoveryAccount == acc.RecoveryAccount {
			// Changing back to the current partner cancels the pending
			// change.
			return ctx.State.Apply(
				state.DeleteObject(key),
				state.DeleteObject(domain.ChangeRecoveryScheduleKey(req.EffectiveOn, attr.AccountToRecover)),
			)
		}
		return ctx.State.Apply(state.UpdateObject(key, func(obj state.Object) (state.Object, error) {
			obj.(*domain.ChangeRecoveryRequest).RecoveryAccount = attr.NewRecoveryAccount
			return obj, nil
		}))
	}
	if attr.NewRecoveryAccount == acc.RecoveryAccount {
		return nil
	}
	effective := ctx.Now.AddSeconds(types.OwnerAuthRecoveryPeriodSeconds)
	return ctx.State.Apply(
		state.AddObject(key, &domain.ChangeRecoveryRequest{
			AccountToRecover: attr.AccountToRecover,
			RecoveryAccount:  attr.NewRecoveryAccount,
			EffectiveOn:      effective,
		}),
		state.AddObject(domain.ChangeRecoveryScheduleKey(effective, attr.AccountToRecover), &domain.ScheduleRef{
			Key: key,
		}),
	)
}

func validateDeclineVotingRights(attr *DeclineVotingRightsAttributes) error {
	return types.ValidateAccountName(attr.Account)
}

func (m *Module) applyDeclineVotingRights(ctx *chain.ExecutionContext, attr *DeclineVotingRightsAttributes) error {
	if !ctx.HF.Has(hardfork.HF14) {
		return types.Unsupported("decline_voting_rights requires a later protocol version")
	}
	acc, err := domain.GetAccount(ctx.State, attr.Account)
	if err != nil {
		return err
	}
	if !acc.CanVote {
		return types.Logic(types.LogicVoterDeclinedVotingRights,
			"account %q has already declined its voting rights", attr.Account)
	}
	key := domain.DeclineVotingKey(attr.Account)
	pending, err := ctx.State.GetObject(key)
	if attr.Decline {
		if err == nil {
			return types.ObjectExists("decline voting rights request", string(attr.Account))
		}
		effective := ctx.Now.AddSeconds(types.OwnerAuthRecoveryPeriodSeconds)
		return ctx.State.Apply(
			state.AddObject(key, &domain.DeclineVotingRightsRequest{
				Account:       attr.Account,
				EffectiveDate: effective,
			}),
			state.AddObject(domain.DeclineVotingScheduleKey(effective, attr.Account), &domain.ScheduleRef{
				Key: key,
			}),
		)
	}
	if err != nil {
		return types.MissingObject("decline voting rights request", string(attr.Account))
	}
	req := pending.(*domain.DeclineVotingRightsRequest)
	return ctx.State.Apply(
		state.DeleteObject(key),
		state.DeleteObject(domain.DeclineVotingScheduleKey(req.EffectiveDate, attr.Account)),
	)
}

func validateChallengeAuthority(attr *ChallengeAuthorityAttributes) error {
	if err := types.ValidateAccountName(attr.Challenger); err != nil {
		return err
	}
	if err := types.ValidateAccountName(attr.Challenged); err != nil {
		return err
	}
	if attr.Challenger == attr.Challenged {
		return &types.InvalidParameterError{Param: "challenged", Reason: "cannot challenge yourself"}
	}
	return nil
}

func (m *Module) applyChallengeAuthority(ctx *chain.ExecutionContext, attr *ChallengeAuthorityAttributes) error {
	if ctx.HF.Has(hardfork.HF14) {
		return types.Unsupported("challenges are disabled")
	}
	if _, err := domain.GetAccount(ctx.State, attr.Challenger); err != nil {
		return err
	}
	challenged, err := domain.GetAccount(ctx.State, attr.Challenged)
	if err != nil {
		return err
	}
	var fee types.Asset
	if attr.RequireOwner {
		fee = types.CoreAsset(types.OwnerChallengeFeeAmount)
		if challenged.ResetAccount != attr.Challenger {
			return &types.InvalidParameterError{Param: "challenger", Reason: "only the reset account may issue an owner challenge"}
		}
		if ctx.Now.Before(challenged.LastOwnerProved.AddSeconds(types.OwnerChallengeCooldown)) {
			return types.Logic(types.LogicAccountChallenged,
				"account %q was owner challenged too recently", attr.Challenged)
		}
	} else {
		fee = types.CoreAsset(types.ActiveChallengeFeeAmount)
		if challenged.ActiveChallenged {
			return types.Logic(types.LogicAccountChallenged,
				"account %q is already challenged", attr.Challenged)
		}
		if ctx.Now.Before(challenged.LastActiveProved.AddSeconds(types.ActiveChallengeCooldown)) {
			return types.Logic(types.LogicAccountChallenged,
				"account %q was active challenged too recently", attr.Challenged)
		}
	}
	if err := balance.Check(ctx.State, attr.Challenger, types.MainBalance, fee); err != nil {
		return err
	}
	now := ctx.Now
	requireOwner := attr.RequireOwner
	return ctx.State.Apply(
		balance.Adjust(attr.Challenger, fee.Neg()),
		balance.Adjust(attr.Challenged, fee),
		domain.UpdateAccount(attr.Challenged, func(a *domain.Account) {
			if requireOwner {
				a.OwnerChallenged = true
			} else {
				a.ActiveChallenged = true
				a.LastActiveProved = now
			}
		}),
	)
}

func validateProveAuthority(attr *ProveAuthorityAttributes) error {
	return types.ValidateAccountName(attr.Challenged)
}

func (m *Module) applyProveAuthority(ctx *chain.ExecutionContext, attr *ProveAuthorityAttributes) error {
	challenged, err := domain.GetAccount(ctx.State, attr.Challenged)
	if err != nil {
		return err
	}
	if !challenged.OwnerChallenged && !challenged.ActiveChallenged {
		return types.Logic(types.LogicAccountNotChallenged, "account %q is not challenged", attr.Challenged)
	}
	if challenged.OwnerChallenged && !attr.RequireOwner {
		return types.Logic(types.LogicAccountChallenged,
			"account %q is owner challenged and must prove its owner authority", attr.Challenged)
	}
	now := ctx.Now
	requireOwner := attr.RequireOwner
	return ctx.State.Apply(domain.UpdateAccount(attr.Challenged, func(a *domain.Account) {
		a.ActiveChallenged = false
		a.LastActiveProved = now
		if requireOwner {
			a.OwnerChallenged = false
			a.LastOwnerProved = now
		}
	}))
}

func (m *Module) applyResetAccount(_ *chain.ExecutionContext, _ *ResetAccountAttributes) error {
	return types.Unsupported("reset_account is disabled")
}

func (m *Module) applySetResetAccount(_ *chain.ExecutionContext, _ *SetResetAccountAttributes) error {
	return types.Unsupported("set_reset_account is disabled")
}
