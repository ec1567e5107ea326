package chain

import (
	"log/slog"

	"github.com/forumchain/forumchain/domain"
	"github.com/forumchain/forumchain/hardfork"
	"github.com/forumchain/forumchain/state"
	"github.com/forumchain/forumchain/types"
)

// ExecutionContext carries everything an evaluator may consult: the
// ledger, the per-block hardfork set and clock, and the notification hub.
// One context is built per block; evaluators must not retain it.
type ExecutionContext struct {
	State    *state.Store
	HF       hardfork.Set
	Schedule *hardfork.Schedule

	BlockNum    uint32
	Now         types.Time
	HeadBlockID types.BlockID

	Log *slog.Logger
	hub *NotificationHub
}

// HardforkTime returns when hardfork v activated on this chain. Rules
// keyed to wall-clock activation moments (not just "is it active now")
// consult this; without a schedule the set decides, with the activation
// collapsing to the chain start.
func (ctx *ExecutionContext) HardforkTime(v uint32) types.Time {
	if ctx.Schedule == nil {
		if ctx.HF.Has(v) {
			return types.MinTime
		}
		return types.MaxTime
	}
	return ctx.Schedule.ActivationTime(v)
}

// Globals loads the dynamic global properties singleton.
func (ctx *ExecutionContext) Globals() (*domain.GlobalProperties, error) {
	return domain.GetGlobalProperties(ctx.State)
}

// MedianProps returns the witness-elected governance parameters.
func (ctx *ExecutionContext) MedianProps() (domain.ChainProperties, error) {
	ws, err := domain.GetWitnessSchedule(ctx.State)
	if err != nil {
		return domain.ChainProperties{}, err
	}
	return ws.MedianProps, nil
}

// FeedPrice returns the current median debt price, zero if no feed has
// been published yet.
func (ctx *ExecutionContext) FeedPrice() (types.Price, error) {
	fh, err := domain.GetFeedHistory(ctx.State)
	if err != nil {
		return types.Price{}, err
	}
	return fh.CurrentMedianPrice, nil
}

// NextSeq draws a creation-order sequence number.
func (ctx *ExecutionContext) NextSeq() (uint64, error) {
	return domain.NextSeq(ctx.State)
}

// Notify fires the post-apply notification for one operation.
func (ctx *ExecutionContext) Notify(op types.Operation, virtual bool) error {
	if ctx.hub == nil {
		return nil
	}
	return ctx.hub.Publish(Notification{
		Op:       op,
		Virtual:  virtual,
		BlockNum: ctx.BlockNum,
	}, ctx.HF.Producing())
}

// NotifyVirtual builds and fires a virtual operation notification; used
// by sweeps to surface internally generated effects (withdraw fills,
// conversion fills, expired delegation returns).
func (ctx *ExecutionContext) NotifyVirtual(opType string, attributes any) error {
	op, err := types.NewOperation(opType, attributes)
	if err != nil {
		return err
	}
	return ctx.Notify(op, true)
}
