package node

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"time"

	"github.com/forumchain/forumchain/chain"
	"github.com/forumchain/forumchain/chain/witness"
	"github.com/forumchain/forumchain/domain"
	"github.com/forumchain/forumchain/hardfork"
	"github.com/forumchain/forumchain/logger"
	"github.com/forumchain/forumchain/mining"
	"github.com/forumchain/forumchain/state"
	"github.com/forumchain/forumchain/types"
	"github.com/forumchain/forumchain/util"
)

type (
	// ProducerConfig wires one block-producing loop.
	ProducerConfig struct {
		Engine    *chain.Engine
		Store     *state.Store
		Snapshots *SnapshotStore
		Account   types.AccountName
		// Miner enables proof-of-work submission when set.
		Miner    *mining.Miner
		Interval time.Duration
		// SnapshotEvery persists a snapshot every N committed blocks.
		SnapshotEvery uint32
		KeepSnapshots int
	}

	// Producer drives the engine on the block interval clock. Without
	// peers it produces empty blocks; the point is advancing time-based
	// processing (payouts, withdrawals, expirations) and carrying
	// locally mined work.
	Producer struct {
		cfg ProducerConfig
		log *slog.Logger
	}
)

func NewProducer(cfg ProducerConfig, log *slog.Logger) (*Producer, error) {
	if cfg.Engine == nil || cfg.Store == nil || cfg.Snapshots == nil {
		return nil, fmt.Errorf("engine, store and snapshot store are required")
	}
	if err := types.ValidateAccountName(cfg.Account); err != nil {
		return nil, fmt.Errorf("producer account: %w", err)
	}
	if cfg.Interval <= 0 {
		cfg.Interval = types.BlockIntervalSeconds * time.Second
	}
	if cfg.SnapshotEvery == 0 {
		cfg.SnapshotEvery = 100
	}
	if cfg.KeepSnapshots < 1 {
		cfg.KeepSnapshots = 3
	}
	return &Producer{cfg: cfg, log: log.With(logger.Module("producer"))}, nil
}

// Run produces blocks until ctx is cancelled. The final head is
// persisted before returning.
func (p *Producer) Run(ctx context.Context, head Head) error {
	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			if err := p.cfg.Snapshots.Save(p.cfg.Store, head); err != nil {
				return fmt.Errorf("persisting head on shutdown: %w", err)
			}
			return nil
		case <-ticker.C:
			next, err := p.produceBlock(ctx, head)
			if err != nil {
				return fmt.Errorf("producing block %d: %w", head.BlockNum+1, err)
			}
			head = next
		}
	}
}

func (p *Producer) produceBlock(ctx context.Context, head Head) (Head, error) {
	blockNum := head.BlockNum + 1
	now := types.Time(time.Now().Unix())
	if !now.After(head.Time) {
		now = head.Time + 1
	}
	if err := p.cfg.Engine.BeginBlock(blockNum, now, p.cfg.Account, true); err != nil {
		return head, err
	}
	if p.cfg.Miner != nil {
		p.submitWork(ctx, head)
	}
	blockID := nextBlockID(head.BlockID, blockNum, now)
	if err := p.cfg.Engine.EndBlock(blockID); err != nil {
		p.cfg.Engine.Abort()
		return head, err
	}
	if err := p.cfg.Engine.Commit(); err != nil {
		return head, err
	}
	head = Head{BlockNum: blockNum, BlockID: blockID, Time: now}
	p.log.Debug("block produced", logger.Block(blockNum), slog.String("id", blockID.String()))
	if blockNum%p.cfg.SnapshotEvery == 0 {
		if err := p.cfg.Snapshots.Save(p.cfg.Store, head); err != nil {
			return head, err
		}
		if err := p.cfg.Snapshots.Prune(p.cfg.KeepSnapshots); err != nil {
			return head, err
		}
	}
	return head, nil
}

// submitWork spends at most one block interval mining against the
// previous block and injects the result into the open block. A rejected
// proof only costs this node its own submission, so rejections are
// logged, not fatal.
func (p *Producer) submitWork(ctx context.Context, head Head) {
	ectx := p.cfg.Engine.Context()
	ws, err := domain.GetWitnessSchedule(ectx.State)
	if err != nil {
		p.log.Warn("reading witness schedule", logger.Error(err))
		return
	}
	mineCtx, cancel := context.WithTimeout(ctx, p.cfg.Interval)
	defer cancel()
	work, err := p.cfg.Miner.Mine(mineCtx, head.BlockID, p.cfg.Account, ws.PowTargetBits)
	if err != nil {
		p.log.Debug("no work found this interval", logger.Error(err))
		return
	}
	props, err := ectx.MedianProps()
	if err != nil {
		p.log.Warn("reading chain properties", logger.Error(err))
		return
	}
	op, err := types.NewOperation(witness.OpPow2, &witness.Pow2Attributes{
		WorkerAccount: p.cfg.Account,
		PrevBlock:     head.BlockID,
		Nonce:         work.Nonce,
		Work:          work.Digest,
		Equihash:      ectx.HF.HasOrProducing(hardfork.HF16),
		Props:         props,
	})
	if err != nil {
		p.log.Warn("encoding mined work", logger.Error(err))
		return
	}
	err = p.cfg.Engine.ApplyTransaction(&types.Transaction{Operations: []types.Operation{op}})
	if err != nil {
		p.log.Warn("mined work rejected", logger.Error(err))
	}
}

// nextBlockID derives the next block identifier: the block number in the
// first four bytes, the rest a digest chaining the previous identifier.
func nextBlockID(prev types.BlockID, blockNum uint32, now types.Time) types.BlockID {
	var buf [20 + 4 + 4]byte
	copy(buf[:], prev[:])
	copy(buf[20:], util.Uint32ToBytes(blockNum))
	copy(buf[24:], util.Uint32ToBytes(uint32(now)))
	digest := sha256.Sum256(buf[:])
	var id types.BlockID
	copy(id[:], digest[:])
	copy(id[:4], util.Uint32ToBytes(blockNum))
	return id
}
