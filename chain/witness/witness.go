// Package witness implements block producer governance: witness
// registration and parameter voting, stake-weighted witness approval with
// optional proxying, the debt price feed and proof-of-work registration.
package witness

import (
	"github.com/forumchain/forumchain/chain"
	"github.com/forumchain/forumchain/domain"
	"github.com/forumchain/forumchain/hardfork"
	"github.com/forumchain/forumchain/state"
	"github.com/forumchain/forumchain/types"
)

const (
	OpWitnessUpdate         = "witness_update"
	OpChainPropertiesUpdate = "chain_properties_update"
	OpAccountWitnessVote    = "account_witness_vote"
	OpAccountWitnessProxy   = "account_witness_proxy"
	OpFeedPublish           = "feed_publish"
	OpPow                   = "pow"
	OpPow2                  = "pow2"
	OpReportOverProduction  = "report_over_production"
)

type (
	WitnessUpdateAttributes struct {
		_               struct{} `cbor:",toarray"`
		Owner           types.AccountName
		URL             string
		BlockSigningKey types.PublicKey
		Props           domain.ChainProperties
		Fee             types.Asset // CORE, burned on registration
	}

	AccountWitnessVoteAttributes struct {
		_       struct{} `cbor:",toarray"`
		Account types.AccountName
		Witness types.AccountName
		Approve bool
	}

	AccountWitnessProxyAttributes struct {
		_       struct{} `cbor:",toarray"`
		Account types.AccountName
		Proxy   types.AccountName
	}

	ChainPropertiesUpdateAttributes struct {
		_     struct{} `cbor:",toarray"`
		Owner types.AccountName
		Props domain.ChainProperties
	}

	FeedPublishAttributes struct {
		_            struct{} `cbor:",toarray"`
		Publisher    types.AccountName
		ExchangeRate types.Price
	}

	ReportOverProductionAttributes struct {
		_        struct{} `cbor:",toarray"`
		Reporter types.AccountName
	}

	Module struct{}
)

func NewModule() *Module { return &Module{} }

func (m *Module) OpHandlers() map[string]chain.OpExecutor {
	return map[string]chain.OpExecutor{
		OpWitnessUpdate:         chain.NewOpHandler(validateWitnessUpdate, m.applyWitnessUpdate),
		OpChainPropertiesUpdate: chain.NewOpHandler(validateChainPropertiesUpdate, m.applyChainPropertiesUpdate),
		OpAccountWitnessVote:    chain.NewOpHandler(validateAccountWitnessVote, m.applyAccountWitnessVote),
		OpAccountWitnessProxy:   chain.NewOpHandler(validateAccountWitnessProxy, m.applyAccountWitnessProxy),
		OpFeedPublish:           chain.NewOpHandler(validateFeedPublish, m.applyFeedPublish),
		OpPow:                   chain.NewOpHandler(validatePow, m.applyPow),
		OpPow2:                  chain.NewOpHandler(validatePow2, m.applyPow2),
		OpReportOverProduction:  chain.NewOpHandler[ReportOverProductionAttributes](nil, m.applyReportOverProduction),
	}
}

func validateChainProps(p *domain.ChainProperties) error {
	if p.AccountCreationFee.Symbol != types.SymbolCore || p.AccountCreationFee.IsNegative() {
		return &types.InvalidParameterError{Param: "account_creation_fee", Reason: "must be a non-negative core amount"}
	}
	if p.MaximumBlockSize < types.MinBlockSizeLimit {
		return &types.InvalidParameterError{Param: "maximum_block_size", Reason: "below the minimum block size limit"}
	}
	if p.DebtInterestRate < 0 || p.DebtInterestRate > types.Percent100 {
		return &types.InvalidParameterError{Param: "debt_interest_rate", Reason: "interest rate out of range"}
	}
	return nil
}

func validateWitnessUpdate(attr *WitnessUpdateAttributes) error {
	if err := types.ValidateAccountName(attr.Owner); err != nil {
		return err
	}
	if attr.URL == "" {
		return &types.InvalidParameterError{Param: "url", Reason: "url cannot be empty"}
	}
	if len(attr.URL) > types.MaxWitnessURLSize {
		return &types.InvalidParameterError{Param: "url", Reason: "url is too long"}
	}
	if err := types.ValidatePublicKey(attr.BlockSigningKey); err != nil {
		return err
	}
	if attr.Fee.Symbol != types.SymbolCore || attr.Fee.IsNegative() {
		return &types.InvalidParameterError{Param: "fee", Reason: "fee must be a non-negative core amount"}
	}
	return validateChainProps(&attr.Props)
}

func (m *Module) applyWitnessUpdate(ctx *chain.ExecutionContext, attr *WitnessUpdateAttributes) error {
	if _, err := domain.GetAccount(ctx.State, attr.Owner); err != nil {
		return err
	}
	// Parameter voting moved to chain_properties_update; from then on this
	// operation only maintains the registration itself.
	setProps := !ctx.HF.Has(hardfork.HF18)
	if domain.HasWitness(ctx.State, attr.Owner) {
		return ctx.State.Apply(domain.UpdateWitness(attr.Owner, func(w *domain.Witness) {
			w.URL = attr.URL
			w.SigningKey = attr.BlockSigningKey
			if setProps {
				w.Props = attr.Props
			}
		}))
	}
	w := &domain.Witness{
		Owner:      attr.Owner,
		Created:    ctx.Now,
		URL:        attr.URL,
		SigningKey: attr.BlockSigningKey,
	}
	if setProps {
		w.Props = attr.Props
	} else {
		w.Props = domain.DefaultChainProperties()
	}
	return ctx.State.Apply(state.AddObject(domain.WitnessKey(attr.Owner), w))
}

func validateChainPropertiesUpdate(attr *ChainPropertiesUpdateAttributes) error {
	if err := types.ValidateAccountName(attr.Owner); err != nil {
		return err
	}
	return validateChainProps(&attr.Props)
}

// applyChainPropertiesUpdate records the owner's parameter vote, creating
// a keyless witness entry when the owner never registered one.
func (m *Module) applyChainPropertiesUpdate(ctx *chain.ExecutionContext, attr *ChainPropertiesUpdateAttributes) error {
	if _, err := domain.GetAccount(ctx.State, attr.Owner); err != nil {
		return err
	}
	if domain.HasWitness(ctx.State, attr.Owner) {
		return ctx.State.Apply(domain.UpdateWitness(attr.Owner, func(w *domain.Witness) {
			w.Props = attr.Props
		}))
	}
	return ctx.State.Apply(state.AddObject(domain.WitnessKey(attr.Owner), &domain.Witness{
		Owner:   attr.Owner,
		Created: ctx.Now,
		Props:   attr.Props,
	}))
}

func validateAccountWitnessVote(attr *AccountWitnessVoteAttributes) error {
	if err := types.ValidateAccountName(attr.Account); err != nil {
		return err
	}
	return types.ValidateAccountName(attr.Witness)
}

func (m *Module) applyAccountWitnessVote(ctx *chain.ExecutionContext, attr *AccountWitnessVoteAttributes) error {
	voter, err := domain.GetAccount(ctx.State, attr.Account)
	if err != nil {
		return err
	}
	if voter.Proxy != "" {
		return types.Logic(types.LogicCannotVoteWithProxySet,
			"a proxy is currently set, clear it before voting for a witness")
	}
	if attr.Approve && !voter.CanVote {
		return types.Logic(types.LogicVoterDeclinedVotingRights,
			"account %q has declined its voting rights", attr.Account)
	}
	if _, err := domain.GetWitness(ctx.State, attr.Witness); err != nil {
		return err
	}
	voteKey := domain.WitnessVoteKey(attr.Account, attr.Witness)

	if !ctx.State.HasObject(voteKey) {
		if !attr.Approve {
			return types.Logic(types.LogicWitnessVoteMissing,
				"vote does not exist, cannot reject witness %q", attr.Witness)
		}
		if ctx.HF.Has(hardfork.HF2) && voter.WitnessesVotedFor >= types.MaxAccountWitnessVotes {
			return types.Logic(types.LogicTooManyWitnessVotes,
				"account %q has voted for too many witnesses", attr.Account)
		}
		if err := m.adjustVoteWeight(ctx, voter, attr.Witness, voter.WitnessVoteWeight()); err != nil {
			return err
		}
		return ctx.State.Apply(
			state.AddObject(voteKey, &domain.WitnessVote{Account: attr.Account, Witness: attr.Witness}),
			domain.UpdateAccount(attr.Account, func(a *domain.Account) {
				a.WitnessesVotedFor++
			}),
		)
	}
	if attr.Approve {
		return types.Logic(types.LogicWitnessVoteExists,
			"vote already exists, cannot approve witness %q again", attr.Witness)
	}
	if err := m.adjustVoteWeight(ctx, voter, attr.Witness, -voter.WitnessVoteWeight()); err != nil {
		return err
	}
	return ctx.State.Apply(
		state.DeleteObject(voteKey),
		domain.UpdateAccount(attr.Account, func(a *domain.Account) {
			a.WitnessesVotedFor--
		}),
	)
}

// adjustVoteWeight applies one vote's weight change. The direct per-witness
// form arrived with HF3; before that the delta rippled through the proxy
// machinery even for unproxied voters.
func (m *Module) adjustVoteWeight(ctx *chain.ExecutionContext, voter *domain.Account, witness types.AccountName, delta int64) error {
	if ctx.HF.Has(hardfork.HF3) {
		return ctx.State.Apply(domain.UpdateWitness(witness, func(w *domain.Witness) {
			w.Votes += delta
		}))
	}
	return chain.AdjustProxiedWitnessVotes(ctx.State, voter, delta)
}

func validateAccountWitnessProxy(attr *AccountWitnessProxyAttributes) error {
	if err := types.ValidateAccountName(attr.Account); err != nil {
		return err
	}
	if attr.Proxy == attr.Account {
		return &types.InvalidParameterError{Param: "proxy", Reason: "cannot proxy to yourself"}
	}
	if attr.Proxy == "" {
		return nil
	}
	return types.ValidateAccountName(attr.Proxy)
}

func (m *Module) applyAccountWitnessProxy(ctx *chain.ExecutionContext, attr *AccountWitnessProxyAttributes) error {
	acc, err := domain.GetAccount(ctx.State, attr.Account)
	if err != nil {
		return err
	}
	if acc.Proxy == attr.Proxy {
		return types.Logic(types.LogicProxyMustChange, "proxy must change")
	}
	if !acc.CanVote {
		return types.Logic(types.LogicVoterDeclinedVotingRights,
			"account %q has declined its voting rights", attr.Account)
	}

	// Retract the account's stake from wherever it currently counts
	// before rerouting it.
	var delta [types.MaxProxyRecursionDepth + 1]int64
	delta[0] = -acc.VestingShares.Amount
	for i, v := range acc.ProxiedVsfVotes {
		delta[i+1] = -v
	}
	if err := chain.AdjustProxiedWitnessVotesArray(ctx.State, acc, delta); err != nil {
		return err
	}

	if attr.Proxy == "" {
		return ctx.State.Apply(domain.UpdateAccount(attr.Account, func(a *domain.Account) {
			a.Proxy = ""
		}))
	}

	if err := m.checkProxyLoop(ctx, attr.Account, attr.Proxy); err != nil {
		return err
	}
	// Proxying replaces direct approvals entirely.
	if err := chain.ClearWitnessVotes(ctx.State, acc); err != nil {
		return err
	}
	err = ctx.State.Apply(domain.UpdateAccount(attr.Account, func(a *domain.Account) {
		a.Proxy = attr.Proxy
	}))
	if err != nil {
		return err
	}
	acc, err = domain.GetAccount(ctx.State, attr.Account)
	if err != nil {
		return err
	}
	for i := range delta {
		delta[i] = -delta[i]
	}
	return chain.AdjustProxiedWitnessVotesArray(ctx.State, acc, delta)
}

func (m *Module) checkProxyLoop(ctx *chain.ExecutionContext, account, proxy types.AccountName) error {
	next := proxy
	for depth := 0; ; depth++ {
		p, err := domain.GetAccount(ctx.State, next)
		if err != nil {
			return err
		}
		if p.Proxy == "" {
			return nil
		}
		if p.Proxy == account {
			return types.Logic(types.LogicProxyLoop, "the proxy chain would loop back to %q", account)
		}
		if depth >= types.MaxProxyRecursionDepth {
			return types.Logic(types.LogicProxyChainTooLong, "proxy chain exceeds maximum depth")
		}
		next = p.Proxy
	}
}

func validateFeedPublish(attr *FeedPublishAttributes) error {
	if err := types.ValidateAccountName(attr.Publisher); err != nil {
		return err
	}
	if attr.ExchangeRate.Base.Symbol != types.SymbolDebt || attr.ExchangeRate.Quote.Symbol != types.SymbolCore {
		return &types.InvalidParameterError{Param: "exchange_rate", Reason: "price must quote the debt token in core"}
	}
	if attr.ExchangeRate.Base.Amount <= 0 || attr.ExchangeRate.Quote.Amount <= 0 {
		return &types.InvalidParameterError{Param: "exchange_rate", Reason: "price amounts must be positive"}
	}
	return nil
}

func (m *Module) applyFeedPublish(ctx *chain.ExecutionContext, attr *FeedPublishAttributes) error {
	if _, err := domain.GetAccount(ctx.State, attr.Publisher); err != nil {
		return err
	}
	if _, err := domain.GetWitness(ctx.State, attr.Publisher); err != nil {
		return err
	}
	now := ctx.Now
	return ctx.State.Apply(domain.UpdateWitness(attr.Publisher, func(w *domain.Witness) {
		w.ExchangeRate = attr.ExchangeRate
		w.LastExchangeUpdate = now
	}))
}

func (m *Module) applyReportOverProduction(ctx *chain.ExecutionContext, _ *ReportOverProductionAttributes) error {
	if ctx.HF.Has(hardfork.HF4) {
		return types.Unsupported("report_over_production is disabled")
	}
	// The double-production penalty was never triggered in practice and
	// the operation only survives for replay of early blocks.
	return nil
}
