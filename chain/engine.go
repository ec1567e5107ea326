package chain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/forumchain/forumchain/domain"
	"github.com/forumchain/forumchain/hardfork"
	"github.com/forumchain/forumchain/logger"
	"github.com/forumchain/forumchain/state"
	"github.com/forumchain/forumchain/types"
)

// Observability is the telemetry surface the engine needs.
type Observability interface {
	Meter(name string, opts ...metric.MeterOption) metric.Meter
	Logger() *slog.Logger
}

// Engine owns the apply pipeline: one block at a time, one transaction at
// a time, every transaction inside its own savepoint. Not safe for
// concurrent use.
type Engine struct {
	store      *state.Store
	executors  OpExecutors
	processors []BlockProcessor
	schedule   *hardfork.Schedule
	hub        *NotificationHub
	log        *slog.Logger

	ctx       *ExecutionContext
	producing bool

	txApplied metric.Int64Counter
	opApplied metric.Int64Counter
	opFailed  metric.Int64Counter
}

func NewEngine(store *state.Store, schedule *hardfork.Schedule, modules []Module, hub *NotificationHub, observe Observability) (*Engine, error) {
	e := &Engine{
		store:     store,
		executors: make(OpExecutors),
		schedule:  schedule,
		hub:       hub,
		log:       observe.Logger().With(logger.Module("engine")),
	}
	for _, module := range modules {
		if err := e.executors.Add(module.OpHandlers()); err != nil {
			return nil, fmt.Errorf("registering operation executors: %w", err)
		}
		if bp, ok := module.(BlockProcessor); ok {
			e.processors = append(e.processors, bp)
		}
	}
	if err := e.initMetrics(observe.Meter("engine")); err != nil {
		return nil, fmt.Errorf("initializing metrics: %w", err)
	}
	return e, nil
}

func (e *Engine) initMetrics(mtr metric.Meter) error {
	var err error
	if e.txApplied, err = mtr.Int64Counter(
		"tx.applied",
		metric.WithDescription("Number of transactions applied."),
		metric.WithUnit("{transaction}"),
	); err != nil {
		return fmt.Errorf("creating tx counter: %w", err)
	}
	if e.opApplied, err = mtr.Int64Counter(
		"op.applied",
		metric.WithDescription("Number of operations applied."),
		metric.WithUnit("{operation}"),
	); err != nil {
		return fmt.Errorf("creating op counter: %w", err)
	}
	if e.opFailed, err = mtr.Int64Counter(
		"op.failed",
		metric.WithDescription("Number of operations rejected during apply."),
		metric.WithUnit("{operation}"),
	); err != nil {
		return fmt.Errorf("creating op failure counter: %w", err)
	}
	if _, err = mtr.Int64ObservableUpDownCounter(
		"object.count",
		metric.WithDescription("Number of objects in the ledger."),
		metric.WithUnit("{object}"),
		metric.WithInt64Callback(func(_ context.Context, io metric.Int64Observer) error {
			io.Observe(int64(e.store.CountPrefix(nil)))
			return nil
		}),
	); err != nil {
		return fmt.Errorf("creating object counter: %w", err)
	}
	return nil
}

// BeginBlock advances the hardfork state to blockTime and prepares the
// execution context every evaluator of this block will see. producer is
// the witness signing the block; the proof-of-work inclusion reward goes
// to it.
func (e *Engine) BeginBlock(blockNum uint32, blockTime types.Time, producer types.AccountName, producing bool) error {
	if e.ctx != nil {
		return fmt.Errorf("block %d still open", e.ctx.BlockNum)
	}
	version, err := e.advanceHardforks(blockTime)
	if err != nil {
		return err
	}
	if producer != "" {
		err = e.store.Apply(domain.UpdateGlobalProperties(func(g *domain.GlobalProperties) {
			g.CurrentWitness = producer
		}))
		if err != nil {
			return err
		}
	}
	gp, err := domain.GetGlobalProperties(e.store)
	if err != nil {
		return err
	}
	e.producing = producing
	e.ctx = &ExecutionContext{
		State:       e.store,
		HF:          hardfork.NewSet(version, producing),
		Schedule:    e.schedule,
		BlockNum:    blockNum,
		Now:         blockTime,
		HeadBlockID: gp.HeadBlockID,
		Log:         e.log.With(logger.Block(blockNum)),
		hub:         e.hub,
	}
	return nil
}

func (e *Engine) advanceHardforks(blockTime types.Time) (uint32, error) {
	hs, err := domain.GetHardforkState(e.store)
	if err != nil {
		return 0, err
	}
	if hs.LastHardfork > hardfork.Latest {
		return 0, fmt.Errorf("%w: ledger is at hardfork %d, this build understands %d",
			types.ErrUnknownHardfork, hs.LastHardfork, hardfork.Latest)
	}
	next := hs.LastHardfork
	for v := hs.LastHardfork + 1; v <= e.schedule.MaxScheduled(); v++ {
		if e.schedule.ActivationTime(v).After(blockTime) {
			break
		}
		if v > hardfork.Latest {
			return 0, fmt.Errorf("%w: hardfork %d scheduled but not understood by this build",
				types.ErrUnknownHardfork, v)
		}
		next = v
	}
	if next != hs.LastHardfork {
		e.log.Info("applying hardfork", slog.Uint64("version", uint64(next)))
		err := e.store.Apply(state.UpdateObject(domain.HardforkStateKey(), func(obj state.Object) (state.Object, error) {
			h := obj.(*domain.HardforkState)
			for v := h.LastHardfork + 1; v <= next; v++ {
				h.ProcessedHardforks = append(h.ProcessedHardforks, blockTime)
			}
			h.LastHardfork = next
			h.NextHardfork = next + 1
			h.NextHardforkTime = e.schedule.ActivationTime(next + 1)
			return h, nil
		}))
		if err != nil {
			return 0, err
		}
	}
	return next, nil
}

// ApplyTransaction applies all operations of tx atomically: any evaluator
// error rolls back every mutation the transaction made. An unknown
// operation type is fatal for the whole block.
func (e *Engine) ApplyTransaction(tx *types.Transaction) (rErr error) {
	if e.ctx == nil {
		return fmt.Errorf("no open block")
	}
	if len(tx.Operations) == 0 {
		return &types.InvalidParameterError{Param: "operations", Reason: "transaction has no operations"}
	}

	savepointID := e.store.Savepoint()
	defer func() {
		if rErr != nil {
			e.store.RollbackToSavepoint(savepointID)
			return
		}
		e.store.ReleaseToSavepoint(savepointID)
		e.txApplied.Add(context.Background(), 1)
	}()

	for i := range tx.Operations {
		op := &tx.Operations[i]
		e.ctx.Log.Debug("apply operation", logger.Op(op.Type))
		if err := e.executors.ValidateAndApply(e.ctx, op); err != nil {
			e.opFailed.Add(context.Background(), 1, metric.WithAttributes(attribute.String("op", op.Type)))
			return err
		}
		e.opApplied.Add(context.Background(), 1, metric.WithAttributes(attribute.String("op", op.Type)))
		if err := e.ctx.Notify(*op, false); err != nil {
			return err
		}
	}
	return nil
}

// EndBlock runs the time-based sweeps and rolls the head block bookkeeping
// forward. Sweep errors are fatal: they mean the ledger cannot reach the
// state every other node will compute.
func (e *Engine) EndBlock(blockID types.BlockID) error {
	if e.ctx == nil {
		return fmt.Errorf("no open block")
	}
	for _, p := range e.processors {
		if err := p.EndBlock(e.ctx); err != nil {
			return fmt.Errorf("end of block processing: %w", err)
		}
	}
	blockNum, now := e.ctx.BlockNum, e.ctx.Now
	return e.store.Apply(domain.UpdateGlobalProperties(func(g *domain.GlobalProperties) {
		g.HeadBlockNumber = blockNum
		g.HeadBlockID = blockID
		g.Time = now
	}))
}

// Commit makes the block's mutations the new baseline.
func (e *Engine) Commit() error {
	if e.ctx == nil {
		return fmt.Errorf("no open block")
	}
	if e.store.InTransaction() {
		return errors.New("commit with open savepoints")
	}
	e.store.Commit()
	e.ctx = nil
	return nil
}

// Abort drops an open block without committing, rolling back nothing
// beyond open savepoints (the caller rolls back per transaction).
func (e *Engine) Abort() {
	e.ctx = nil
}

// Context exposes the current block's execution context to callers that
// inject virtual operations (the mining submission path).
func (e *Engine) Context() *ExecutionContext { return e.ctx }
