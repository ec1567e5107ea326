package witness

import (
	"math/bits"

	"github.com/forumchain/forumchain/chain"
	"github.com/forumchain/forumchain/chain/balance"
	"github.com/forumchain/forumchain/domain"
	"github.com/forumchain/forumchain/hardfork"
	"github.com/forumchain/forumchain/state"
	"github.com/forumchain/forumchain/types"
)

type (
	PowAttributes struct {
		_             struct{} `cbor:",toarray"`
		WorkerAccount types.AccountName
		BlockID       types.BlockID
		Nonce         uint64
		Work          [32]byte
		WorkerKey     types.PublicKey
		Props         domain.ChainProperties
	}

	// Pow2Attributes covers both the legacy summary form and the equihash
	// form that replaced it; Equihash selects the proof rules.
	Pow2Attributes struct {
		_             struct{} `cbor:",toarray"`
		WorkerAccount types.AccountName
		PrevBlock     types.BlockID
		Nonce         uint64
		Work          [32]byte
		Equihash      bool
		// NewOwnerKey must be set exactly when the worker account does
		// not exist yet.
		NewOwnerKey types.PublicKey
		Props       domain.ChainProperties
	}
)

func validatePow(attr *PowAttributes) error {
	if err := types.ValidateAccountName(attr.WorkerAccount); err != nil {
		return err
	}
	if err := types.ValidatePublicKey(attr.WorkerKey); err != nil {
		return err
	}
	return validateChainProps(&attr.Props)
}

func (m *Module) applyPow(ctx *chain.ExecutionContext, attr *PowAttributes) error {
	if ctx.HF.Has(hardfork.HF13) {
		return types.Unsupported("pow is superseded by pow2")
	}
	if attr.BlockID != ctx.HeadBlockID {
		return types.Logic(types.LogicWorkNotForLastBlock, "work is not for the last block")
	}
	if err := m.powApply(ctx, attr.WorkerAccount, attr.WorkerKey, attr.Work, attr.Props); err != nil {
		return err
	}

	// The inclusion reward goes to the witness whose block carries the
	// work, not to the worker.
	gp, err := ctx.Globals()
	if err != nil {
		return err
	}
	reward := types.CoreAsset(types.MiningRewardAmount)
	liquid := ctx.BlockNum < types.StartMinerVotingBlock
	if liquid {
		reward = types.CoreAsset(reward.Amount * types.MaxWitnesses)
	}
	err = ctx.State.Apply(domain.UpdateGlobalProperties(func(g *domain.GlobalProperties) {
		g.CurrentSupply = g.CurrentSupply.Add(reward)
	}))
	if err != nil {
		return err
	}
	if liquid {
		return ctx.State.Apply(balance.Adjust(gp.CurrentWitness, reward))
	}
	_, err = chain.CreateVesting(ctx.State, gp.CurrentWitness, reward)
	return err
}

// powApply is the registration path shared by both proof-of-work forms:
// auto-create the worker account, admit the witness into the scheduling
// queue and bump the global work counters.
func (m *Module) powApply(ctx *chain.ExecutionContext, worker types.AccountName, workerKey types.PublicKey, work [32]byte, props domain.ChainProperties) error {
	if ctx.HF.HasOrProducing(hardfork.HF5) {
		if w, err := domain.GetWitness(ctx.State, worker); err == nil && w.LastWork == work {
			return types.Logic(types.LogicDuplicateWork, "duplicate work discovered")
		}
	}

	if !domain.HasAccount(ctx.State, worker) {
		recovery := InitialMinerRecoveryAccount(ctx.HF)
		acc := domain.NewAccount(worker, ctx.Now)
		acc.Mined = true
		acc.RecoveryAccount = recovery
		auth := types.KeyAuthority(workerKey, 1)
		err := ctx.State.Apply(
			state.AddObject(domain.AccountKey(worker), acc),
			state.AddObject(domain.AuthorityKey(worker), &domain.AccountAuthority{
				Account: worker,
				Owner:   auth,
				Active:  auth,
				Posting: auth,
			}),
			state.AddObject(domain.MetadataKey(worker), &domain.AccountMetadata{Account: worker}),
		)
		if err != nil {
			return err
		}
	} else {
		auth, err := domain.GetAuthority(ctx.State, worker)
		if err != nil {
			return err
		}
		if auth.Active.NumAuths() != 1 {
			return types.Logic(types.LogicMinerSingleKeyAuthority, "miners can only have one key authority")
		}
		if !auth.Active.HasSingleKey(workerKey) {
			return types.Logic(types.LogicWorkBySignedKey, "work must be performed by the key the account is signed with")
		}
	}

	acc, err := domain.GetAccount(ctx.State, worker)
	if err != nil {
		return err
	}
	if ctx.HF.Has(hardfork.HF13) && !acc.LastAccountUpdate.Before(ctx.Now) {
		return types.Logic(types.LogicAccountUpdatedThisBlock, "account must not have been updated in this block")
	}

	ws, err := domain.GetWitnessSchedule(ctx.State)
	if err != nil {
		return err
	}
	if !workMeetsTarget(work, ws.PowTargetBits) {
		return types.Logic(types.LogicInsufficientWork, "insufficient work difficulty")
	}

	if domain.HasWitness(ctx.State, worker) {
		w, err := domain.GetWitness(ctx.State, worker)
		if err != nil {
			return err
		}
		if w.ScheduledForWork() {
			return types.Logic(types.LogicAlreadyScheduledForWork, "account is already scheduled for a witness slot")
		}
	} else {
		err := ctx.State.Apply(state.AddObject(domain.WitnessKey(worker), &domain.Witness{
			Owner:      worker,
			Created:    ctx.Now,
			SigningKey: workerKey,
			Props:      props,
		}))
		if err != nil {
			return err
		}
	}

	gp, err := ctx.Globals()
	if err != nil {
		return err
	}
	workerSlot := gp.TotalPow + 1
	return ctx.State.Apply(
		domain.UpdateGlobalProperties(func(g *domain.GlobalProperties) {
			g.TotalPow++
			g.NumPowWitnesses++
		}),
		domain.UpdateWitness(worker, func(w *domain.Witness) {
			w.PowWorker = workerSlot
			w.LastWork = work
		}),
	)
}

func validatePow2(attr *Pow2Attributes) error {
	if err := types.ValidateAccountName(attr.WorkerAccount); err != nil {
		return err
	}
	if len(attr.NewOwnerKey) > 0 {
		if err := types.ValidatePublicKey(attr.NewOwnerKey); err != nil {
			return err
		}
	}
	if attr.Props.AccountCreationFee.Symbol != types.SymbolCore || attr.Props.AccountCreationFee.IsNegative() {
		return &types.InvalidParameterError{Param: "account_creation_fee", Reason: "must be a non-negative core amount"}
	}
	if attr.Props.MaximumBlockSize < 2*types.MinBlockSizeLimit {
		return &types.InvalidParameterError{Param: "maximum_block_size", Reason: "below twice the minimum block size limit"}
	}
	return nil
}

func (m *Module) applyPow2(ctx *chain.ExecutionContext, attr *Pow2Attributes) error {
	gp, err := ctx.Globals()
	if err != nil {
		return err
	}
	if ctx.HF.HasOrProducing(hardfork.HF16) {
		if !attr.Equihash {
			return types.Unsupported("summary proof of work is superseded by the equihash form")
		}
		// Equihash proofs may reference any block still subject to
		// reorganization; anything older cannot be re-verified.
		if attr.PrevBlock.BlockNum() <= gp.LastIrreversibleBlock {
			return types.Logic(types.LogicWorkTooOld, "work is for a block older than the last irreversible block")
		}
	} else {
		if attr.Equihash {
			return types.Unsupported("equihash proof of work requires a later protocol version")
		}
		if attr.PrevBlock != ctx.HeadBlockID {
			return types.Logic(types.LogicWorkNotForLastBlock, "work is not for the last block")
		}
	}

	if !domain.HasAccount(ctx.State, attr.WorkerAccount) {
		if len(attr.NewOwnerKey) == 0 {
			return types.MissingObject("account", string(attr.WorkerAccount))
		}
		if err := m.powApply(ctx, attr.WorkerAccount, attr.NewOwnerKey, attr.Work, attr.Props); err != nil {
			return err
		}
		// Mined accounts recover through the top witness.
		err := ctx.State.Apply(domain.UpdateAccount(attr.WorkerAccount, func(a *domain.Account) {
			a.RecoveryAccount = ""
		}))
		if err != nil {
			return err
		}
	} else {
		if len(attr.NewOwnerKey) > 0 {
			return types.Logic(types.LogicOwnerKeyOnlyOnCreate, "cannot specify an owner key unless creating the account")
		}
		w, err := domain.GetWitness(ctx.State, attr.WorkerAccount)
		if err != nil {
			return types.Logic(types.LogicWitnessRequiredBeforeMining, "witness must be created before mining")
		}
		if w.ScheduledForWork() {
			return types.Logic(types.LogicAlreadyScheduledForWork, "account is already scheduled for a witness slot")
		}
		ws, err := domain.GetWitnessSchedule(ctx.State)
		if err != nil {
			return err
		}
		if !workMeetsTarget(attr.Work, ws.PowTargetBits) {
			return types.Logic(types.LogicInsufficientWork, "insufficient work difficulty")
		}
		workerSlot := gp.TotalPow + 1
		err = ctx.State.Apply(
			domain.UpdateGlobalProperties(func(g *domain.GlobalProperties) {
				g.TotalPow++
				g.NumPowWitnesses++
			}),
			domain.UpdateWitness(attr.WorkerAccount, func(w *domain.Witness) {
				w.PowWorker = workerSlot
				w.LastWork = attr.Work
				w.Props = attr.Props
			}),
		)
		if err != nil {
			return err
		}
	}

	if !ctx.HF.Has(hardfork.HF16) {
		reward := types.CoreAsset(types.MiningRewardAmount)
		err := ctx.State.Apply(domain.UpdateGlobalProperties(func(g *domain.GlobalProperties) {
			g.CurrentSupply = g.CurrentSupply.Add(reward)
		}))
		if err != nil {
			return err
		}
		if _, err := chain.CreateVesting(ctx.State, gp.CurrentWitness, reward); err != nil {
			return err
		}
	}
	return nil
}

// InitialMinerRecoveryAccount is the recovery partner assigned to mined
// accounts: the bootstrap account early on, later nobody (which routes
// recovery through the top witness).
func InitialMinerRecoveryAccount(hf hardfork.Set) types.AccountName {
	if hf.Has(hardfork.HF11) {
		return ""
	}
	return "initminer"
}

// workMeetsTarget checks that the work hash carries at least targetBits
// leading zero bits.
func workMeetsTarget(work [32]byte, targetBits uint32) bool {
	var zeros uint32
	for _, b := range work {
		if b == 0 {
			zeros += 8
			continue
		}
		zeros += uint32(bits.LeadingZeros8(b))
		break
	}
	return zeros >= targetBits
}
