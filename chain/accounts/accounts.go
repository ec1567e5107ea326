// Package accounts implements account lifecycle operations: creation
// (paid and delegation-backed), authority and profile updates, the
// recovery flow and the irreversible decline of voting rights.
package accounts

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
	OpAccountCreate               = "account_create"
	OpAccountCreateWithDelegation = "account_create_with_delegation"
	OpAccountUpdate               = "account_update"
	OpAccountMetadata             = "account_metadata"
	OpRequestAccountRecovery      = "request_account_recovery"
	OpRecoverAccount              = "recover_account"
	OpChangeRecoveryAccount       = "change_recovery_account"
	OpDeclineVotingRights         = "decline_voting_rights"
	OpChallengeAuthority          = "challenge_authority"
	OpProveAuthority              = "prove_authority"
	OpResetAccount                = "reset_account"
	OpSetResetAccount             = "set_reset_account"

	// InitialRecoveryAccount backed every account before each account
	// named its own recovery partner.
	InitialRecoveryAccount = types.AccountName("initminer")
)

type (
	AccountCreateAttributes struct {
		_              struct{} `cbor:",toarray"`
		Fee            types.Asset // CORE
		Creator        types.AccountName
		NewAccountName types.AccountName
		Owner          types.Authority
		Active         types.Authority
		Posting        types.Authority
		MemoKey        types.PublicKey
		JSONMetadata   string
	}

	// ReferralOptions is the optional referral program extension of
	// delegated account creation.
	ReferralOptions struct {
		_            struct{} `cbor:",toarray"`
		Referrer     types.AccountName
		InterestRate int16
		EndDate      types.Time
		BreakFee     types.Asset // CORE
	}

	AccountCreateWithDelegationAttributes struct {
		_              struct{} `cbor:",toarray"`
		Fee            types.Asset // CORE
		Delegation     types.Asset // VESTS
		Creator        types.AccountName
		NewAccountName types.AccountName
		Owner          types.Authority
		Active         types.Authority
		Posting        types.Authority
		MemoKey        types.PublicKey
		JSONMetadata   string
		Referral       *ReferralOptions
	}

	AccountUpdateAttributes struct {
		_            struct{} `cbor:",toarray"`
		Account      types.AccountName
		Owner        *types.Authority
		Active       *types.Authority
		Posting      *types.Authority
		MemoKey      types.PublicKey
		JSONMetadata string
	}

	AccountMetadataAttributes struct {
		_            struct{} `cbor:",toarray"`
		Account      types.AccountName
		JSONMetadata string
	}

	RequestAccountRecoveryAttributes struct {
		_                 struct{} `cbor:",toarray"`
		RecoveryAccount   types.AccountName
		AccountToRecover  types.AccountName
		NewOwnerAuthority types.Authority
	}

	RecoverAccountAttributes struct {
		_                    struct{} `cbor:",toarray"`
		AccountToRecover     types.AccountName
		NewOwnerAuthority    types.Authority
		RecentOwnerAuthority types.Authority
	}

	ChangeRecoveryAccountAttributes struct {
		_                  struct{} `cbor:",toarray"`
		AccountToRecover   types.AccountName
		NewRecoveryAccount types.AccountName
	}

	DeclineVotingRightsAttributes struct {
		_       struct{} `cbor:",toarray"`
		Account types.AccountName
		Decline bool
	}

	ChallengeAuthorityAttributes struct {
		_            struct{} `cbor:",toarray"`
		Challenger   types.AccountName
		Challenged   types.AccountName
		RequireOwner bool
	}

	ProveAuthorityAttributes struct {
		_            struct{} `cbor:",toarray"`
		Challenged   types.AccountName
		RequireOwner bool
	}

	ResetAccountAttributes struct {
		_                 struct{} `cbor:",toarray"`
		ResetAccount      types.AccountName
		AccountToReset    types.AccountName
		NewOwnerAuthority types.Authority
	}

	SetResetAccountAttributes struct {
		_                   struct{} `cbor:",toarray"`
		Account             types.AccountName
		CurrentResetAccount types.AccountName
		ResetAccount        types.AccountName
	}

	Module struct{}
)

func NewModule() *Module { return &Module{} }

func (m *Module) OpHandlers() map[string]chain.OpExecutor {
	return map[string]chain.OpExecutor{
		OpAccountCreate:               chain.NewOpHandler(validateAccountCreate, m.applyAccountCreate),
		OpAccountCreateWithDelegation: chain.NewOpHandler(validateAccountCreateWithDelegation, m.applyAccountCreateWithDelegation),
		OpAccountUpdate:               chain.NewOpHandler(validateAccountUpdate, m.applyAccountUpdate),
		OpAccountMetadata:             chain.NewOpHandler(validateAccountMetadata, m.applyAccountMetadata),
		OpRequestAccountRecovery:      chain.NewOpHandler(validateRequestAccountRecovery, m.applyRequestAccountRecovery),
		OpRecoverAccount:              chain.NewOpHandler(validateRecoverAccount, m.applyRecoverAccount),
		OpChangeRecoveryAccount:       chain.NewOpHandler(validateChangeRecoveryAccount, m.applyChangeRecoveryAccount),
		OpDeclineVotingRights:         chain.NewOpHandler(validateDeclineVotingRights, m.applyDeclineVotingRights),
		OpChallengeAuthority:          chain.NewOpHandler(validateChallengeAuthority, m.applyChallengeAuthority),
		OpProveAuthority:              chain.NewOpHandler(validateProveAuthority, m.applyProveAuthority),
		OpResetAccount:                chain.NewOpHandler[ResetAccountAttributes](nil, m.applyResetAccount),
		OpSetResetAccount:             chain.NewOpHandler[SetResetAccountAttributes](nil, m.applySetResetAccount),
	}
}

func validateAuthorities(auths ...*types.Authority) error {
	for _, a := range auths {
		if a == nil {
			continue
		}
		if err := a.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func checkJSONSize(meta string) error {
	if len(meta) > types.MaxJSONSize {
		return &types.InvalidParameterError{Param: "json_metadata", Reason: "metadata is too large"}
	}
	return nil
}

func validateAccountCreate(attr *AccountCreateAttributes) error {
	if err := types.ValidateAccountName(attr.Creator); err != nil {
		return err
	}
	if err := types.ValidateAccountName(attr.NewAccountName); err != nil {
		return err
	}
	if attr.Fee.Symbol != types.SymbolCore {
		return &types.InvalidParameterError{Param: "fee", Reason: "fee must be the core token"}
	}
	if attr.Fee.IsNegative() {
		return &types.InvalidParameterError{Param: "fee", Reason: "fee cannot be negative"}
	}
	if err := validateAuthorities(&attr.Owner, &attr.Active, &attr.Posting); err != nil {
		return err
	}
	return checkJSONSize(attr.JSONMetadata)
}

// checkAuthAccountsExist verifies every account member of the given
// authorities exists; producers enforce this ahead of the activation.
func checkAuthAccountsExist(s *state.Store, auths ...*types.Authority) error {
	for _, auth := range auths {
		if auth == nil {
			continue
		}
		for _, member := range auth.AccountAuths {
			if _, err := domain.GetAccount(s, member.Account); err != nil {
				return err
			}
		}
	}
	return nil
}

func (m *Module) applyAccountCreate(ctx *chain.ExecutionContext, attr *AccountCreateAttributes) error {
	if _, err := domain.GetAccount(ctx.State, attr.Creator); err != nil {
		return err
	}
	if err := balance.Check(ctx.State, attr.Creator, types.MainBalance, attr.Fee); err != nil {
		return err
	}
	if ctx.HF.Has(hardfork.HF1) {
		props, err := ctx.MedianProps()
		if err != nil {
			return err
		}
		if attr.Fee.LT(props.AccountCreationFee) {
			return &types.InvalidParameterError{
				Param:  "fee",
				Reason: fmt.Sprintf("insufficient fee, must be at least %s", props.AccountCreationFee),
			}
		}
	}
	if ctx.HF.HasOrProducing(hardfork.HF15) {
		if err := checkAuthAccountsExist(ctx.State, &attr.Owner, &attr.Active, &attr.Posting); err != nil {
			return err
		}
	}
	if domain.HasAccount(ctx.State, attr.NewAccountName) {
		return types.ObjectExists("account", string(attr.NewAccountName))
	}

	recovery := InitialRecoveryAccount
	if ctx.HF.Has(hardfork.HF11) {
		recovery = attr.Creator
	}
	acc := domain.NewAccount(attr.NewAccountName, ctx.Now)
	acc.RecoveryAccount = recovery
	err := ctx.State.Apply(
		balance.Adjust(attr.Creator, attr.Fee.Neg()),
		state.AddObject(domain.AccountKey(attr.NewAccountName), acc),
		state.AddObject(domain.AuthorityKey(attr.NewAccountName), &domain.AccountAuthority{
			Account: attr.NewAccountName,
			Owner:   attr.Owner,
			Active:  attr.Active,
			Posting: attr.Posting,
		}),
		state.AddObject(domain.MetadataKey(attr.NewAccountName), &domain.AccountMetadata{
			Account:      attr.NewAccountName,
			JSONMetadata: attr.JSONMetadata,
		}),
	)
	if err != nil {
		return err
	}
	if attr.Fee.Amount > 0 {
		if _, err := chain.CreateVesting(ctx.State, attr.NewAccountName, attr.Fee); err != nil {
			return err
		}
	}
	return nil
}

func validateAccountCreateWithDelegation(attr *AccountCreateWithDelegationAttributes) error {
	if err := types.ValidateAccountName(attr.Creator); err != nil {
		return err
	}
	if err := types.ValidateAccountName(attr.NewAccountName); err != nil {
		return err
	}
	if attr.Fee.Symbol != types.SymbolCore {
		return &types.InvalidParameterError{Param: "fee", Reason: "fee must be the core token"}
	}
	if attr.Fee.IsNegative() {
		return &types.InvalidParameterError{Param: "fee", Reason: "fee cannot be negative"}
	}
	if attr.Delegation.Symbol != types.SymbolVests {
		return &types.InvalidParameterError{Param: "delegation", Reason: "delegation must be vesting shares"}
	}
	if attr.Delegation.IsNegative() {
		return &types.InvalidParameterError{Param: "delegation", Reason: "delegation cannot be negative"}
	}
	if err := validateAuthorities(&attr.Owner, &attr.Active, &attr.Posting); err != nil {
		return err
	}
	if attr.Referral != nil {
		if err := types.ValidateAccountName(attr.Referral.Referrer); err != nil {
			return err
		}
		if attr.Referral.Referrer == attr.NewAccountName {
			return &types.InvalidParameterError{Param: "referrer", Reason: "cannot refer yourself"}
		}
		if attr.Referral.InterestRate < 0 {
			return &types.InvalidParameterError{Param: "interest_rate", Reason: "cannot be negative"}
		}
		if attr.Referral.BreakFee.Symbol != types.SymbolCore || attr.Referral.BreakFee.IsNegative() {
			return &types.InvalidParameterError{Param: "break_fee", Reason: "must be a non-negative core amount"}
		}
	}
	return checkJSONSize(attr.JSONMetadata)
}

func (m *Module) applyAccountCreateWithDelegation(ctx *chain.ExecutionContext, attr *AccountCreateWithDelegationAttributes) error {
	if !ctx.HF.Has(hardfork.HF18) {
		return types.Unsupported("account_create_with_delegation requires a later protocol version")
	}
	if _, err := domain.GetAccount(ctx.State, attr.Creator); err != nil {
		return err
	}
	if err := balance.Check(ctx.State, attr.Creator, types.MainBalance, attr.Fee); err != nil {
		return err
	}
	if err := balance.Check(ctx.State, attr.Creator, types.AvailableVesting, attr.Delegation); err != nil {
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

	// The fee substitutes for delegation at the elected creation-fee
	// ratio: a larger fee proportionally lowers the stake that must be
	// delegated.
	targetCore := props.CreateAccountMinFee.Add(props.CreateAccountMinDelegation)
	targetDelegation := sharePrice.Convert(targetCore)
	scaledFee := types.CoreAsset(types.MulDivWide(attr.Fee.Amount, targetCore.Amount, props.AccountCreationFee.Amount))
	currentDelegation := sharePrice.Convert(scaledFee).Add(attr.Delegation)
	if currentDelegation.LT(targetDelegation) {
		return types.Logic(types.LogicNotEnoughDelegation,
			"insufficient delegation %s, required %s", currentDelegation, targetDelegation)
	}
	if attr.Fee.LT(props.CreateAccountMinFee) {
		return &types.InvalidParameterError{
			Param:  "fee",
			Reason: fmt.Sprintf("insufficient fee, must be at least %s", props.CreateAccountMinFee),
		}
	}
	if ctx.HF.HasOrProducing(hardfork.HF15) {
		if err := checkAuthAccountsExist(ctx.State, &attr.Owner, &attr.Active, &attr.Posting); err != nil {
			return err
		}
	}
	if attr.Referral != nil {
		if !ctx.HF.Has(hardfork.HF19) {
			return types.Unsupported("referral options require a later protocol version")
		}
		if _, err := domain.GetAccount(ctx.State, attr.Referral.Referrer); err != nil {
			return err
		}
		if attr.Referral.InterestRate > props.MaxReferralInterestRate {
			return &types.InvalidParameterError{Param: "interest_rate", Reason: "exceeds the maximum referral interest rate"}
		}
		maxEnd := ctx.Now.AddSeconds(int64(props.MaxReferralTermSeconds))
		if attr.Referral.EndDate.Before(ctx.Now) || attr.Referral.EndDate.After(maxEnd) {
			return &types.InvalidParameterError{Param: "end_date", Reason: "referral end date out of range"}
		}
		if attr.Referral.BreakFee.GT(props.MaxReferralBreakFee) {
			return &types.InvalidParameterError{Param: "break_fee", Reason: "exceeds the maximum referral break fee"}
		}
	}
	if domain.HasAccount(ctx.State, attr.NewAccountName) {
		return types.ObjectExists("account", string(attr.NewAccountName))
	}

	acc := domain.NewAccount(attr.NewAccountName, ctx.Now)
	acc.RecoveryAccount = attr.Creator
	acc.ReceivedVestingShares = attr.Delegation
	if attr.Referral != nil {
		acc.Referrer = attr.Referral.Referrer
		acc.ReferrerInterestRate = attr.Referral.InterestRate
		acc.ReferralEndDate = attr.Referral.EndDate
		acc.ReferralBreakFee = attr.Referral.BreakFee
	}
	actions := []state.Action{
		balance.Adjust(attr.Creator, attr.Fee.Neg()),
		domain.UpdateAccount(attr.Creator, func(a *domain.Account) {
			a.DelegatedVestingShares = a.DelegatedVestingShares.Add(attr.Delegation)
		}),
		state.AddObject(domain.AccountKey(attr.NewAccountName), acc),
		state.AddObject(domain.AuthorityKey(attr.NewAccountName), &domain.AccountAuthority{
			Account: attr.NewAccountName,
			Owner:   attr.Owner,
			Active:  attr.Active,
			Posting: attr.Posting,
		}),
		state.AddObject(domain.MetadataKey(attr.NewAccountName), &domain.AccountMetadata{
			Account:      attr.NewAccountName,
			JSONMetadata: attr.JSONMetadata,
		}),
	}
	if attr.Delegation.Amount > 0 {
		actions = append(actions, state.AddObject(
			domain.DelegationKey(attr.Creator, attr.NewAccountName),
			&domain.VestingDelegation{
				Delegator:         attr.Creator,
				Delegatee:         attr.NewAccountName,
				VestingShares:     attr.Delegation,
				MinDelegationTime: ctx.Now.AddSeconds(int64(props.CreateAccountDelegationTime)),
			},
		))
	}
	if err := ctx.State.Apply(actions...); err != nil {
		return err
	}
	if attr.Fee.Amount > 0 {
		if _, err := chain.CreateVesting(ctx.State, attr.NewAccountName, attr.Fee); err != nil {
			return err
		}
	}
	return nil
}

func validateAccountUpdate(attr *AccountUpdateAttributes) error {
	if err := types.ValidateAccountName(attr.Account); err != nil {
		return err
	}
	if err := validateAuthorities(attr.Owner, attr.Active, attr.Posting); err != nil {
		return err
	}
	return checkJSONSize(attr.JSONMetadata)
}

func (m *Module) applyAccountUpdate(ctx *chain.ExecutionContext, attr *AccountUpdateAttributes) error {
	if _, err := domain.GetAccount(ctx.State, attr.Account); err != nil {
		return err
	}
	auth, err := domain.GetAuthority(ctx.State, attr.Account)
	if err != nil {
		return err
	}
	if attr.Owner != nil && ctx.HF.Has(hardfork.HF11) {
		err := types.CheckBandwidth(ctx.Now, auth.LastOwnerUpdate.AddSeconds(types.OwnerUpdateLimitSeconds),
			types.OwnerUpdateBandwidth, "owner authority can only be updated once an hour")
		if err != nil {
			return err
		}
	}
	if ctx.HF.HasOrProducing(hardfork.HF15) {
		if err := checkAuthAccountsExist(ctx.State, attr.Owner, attr.Active, attr.Posting); err != nil {
			return err
		}
	}
	if attr.Owner != nil {
		if err := updateOwnerAuthority(ctx, attr.Account, *attr.Owner); err != nil {
			return err
		}
	}
	if attr.Active != nil || attr.Posting != nil {
		err = ctx.State.Apply(state.UpdateObject(domain.AuthorityKey(attr.Account), func(obj state.Object) (state.Object, error) {
			a := obj.(*domain.AccountAuthority)
			if attr.Active != nil {
				a.Active = *attr.Active
			}
			if attr.Posting != nil {
				a.Posting = *attr.Posting
			}
			return a, nil
		}))
		if err != nil {
			return err
		}
	}
	now := ctx.Now
	err = ctx.State.Apply(domain.UpdateAccount(attr.Account, func(a *domain.Account) {
		a.LastAccountUpdate = now
	}))
	if err != nil {
		return err
	}
	if attr.JSONMetadata != "" {
		return m.applyAccountMetadata(ctx, &AccountMetadataAttributes{
			Account:      attr.Account,
			JSONMetadata: attr.JSONMetadata,
		})
	}
	return nil
}

// updateOwnerAuthority records the superseded owner authority so it can
// prove identity during recovery, then swaps the owner in.
func updateOwnerAuthority(ctx *chain.ExecutionContext, account types.AccountName, newOwner types.Authority) error {
	auth, err := domain.GetAuthority(ctx.State, account)
	if err != nil {
		return err
	}
	seq, err := ctx.NextSeq()
	if err != nil {
		return err
	}
	now := ctx.Now
	return ctx.State.Apply(
		state.AddObject(domain.OwnerAuthHistoryKey(account, seq), &domain.OwnerAuthorityHistory{
			Account:       account,
			Seq:           seq,
			PreviousOwner: auth.Owner,
			LastValidTime: now,
		}),
		state.UpdateObject(domain.AuthorityKey(account), func(obj state.Object) (state.Object, error) {
			a := obj.(*domain.AccountAuthority)
			a.Owner = newOwner
			a.LastOwnerUpdate = now
			return a, nil
		}),
	)
}

func validateAccountMetadata(attr *AccountMetadataAttributes) error {
	if err := types.ValidateAccountName(attr.Account); err != nil {
		return err
	}
	return checkJSONSize(attr.JSONMetadata)
}

func (m *Module) applyAccountMetadata(ctx *chain.ExecutionContext, attr *AccountMetadataAttributes) error {
	if _, err := domain.GetAccount(ctx.State, attr.Account); err != nil {
		return err
	}
	return ctx.State.Apply(state.UpdateObject(domain.MetadataKey(attr.Account), func(obj state.Object) (state.Object, error) {
		obj.(*domain.AccountMetadata).JSONMetadata = attr.JSONMetadata
		return obj, nil
	}))
}
