// Package mining searches the proof-of-work nonce space for a digest
// meeting the current difficulty target. The search is fanned out over a
// worker pool on disjoint nonce strides and stops as soon as any worker
// finds a solution or the context is cancelled.
package mining

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"log/slog"
	"math/bits"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/forumchain/forumchain/logger"
	"github.com/forumchain/forumchain/types"
)

// ErrNoSolution is returned when the nonce space is exhausted without a
// digest meeting the target.
var ErrNoSolution = errors.New("nonce space exhausted without a solution")

// Work is one found proof of work.
type Work struct {
	Nonce  uint64
	Digest [32]byte
}

type Miner struct {
	workers int
	log     *slog.Logger
}

func New(workers int, log *slog.Logger) *Miner {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Miner{
		workers: workers,
		log:     log.With(logger.Module("mining")),
	}
}

// Mine searches for a nonce whose digest over (prevBlock, worker, nonce)
// carries at least targetBits leading zero bits. Blocks until a solution
// is found, the nonce space is exhausted, or ctx is cancelled.
func (m *Miner) Mine(ctx context.Context, prevBlock types.BlockID, worker types.AccountName, targetBits uint32) (*Work, error) {
	// own cancel scope so that the first solution stops the siblings
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)
	found := make(chan Work, m.workers)

	var seed [20 + types.MaxAccountNameLength]byte
	copy(seed[:], prevBlock[:])
	copy(seed[20:], worker)

	stride := uint64(m.workers)
	for w := 0; w < m.workers; w++ {
		start := uint64(w)
		g.Go(func() error {
			buf := make([]byte, len(seed)+8)
			copy(buf, seed[:])
			for nonce := start; ; nonce += stride {
				select {
				case <-ctx.Done():
					return ctx.Err()
				default:
				}
				binary.BigEndian.PutUint64(buf[len(seed):], nonce)
				digest := sha256.Sum256(buf)
				if leadingZeroBits(digest) >= targetBits {
					select {
					case found <- Work{Nonce: nonce, Digest: digest}:
					case <-ctx.Done():
					}
					return nil
				}
				// stride wraps before start only once the whole space
				// is spent
				if nonce+stride < nonce {
					return ErrNoSolution
				}
			}
		})
	}

	done := make(chan error, 1)
	go func() { done <- g.Wait() }()

	select {
	case work := <-found:
		m.log.Debug("proof of work found",
			slog.Uint64("nonce", work.Nonce), slog.String("worker", string(worker)))
		return &work, nil
	case err := <-done:
		if err == nil {
			// all workers returned without a solution reaching us
			select {
			case work := <-found:
				return &work, nil
			default:
			}
			err = ErrNoSolution
		}
		return nil, err
	}
}

func leadingZeroBits(digest [32]byte) uint32 {
	var zeros uint32
	for _, b := range digest {
		if b == 0 {
			zeros += 8
			continue
		}
		zeros += uint32(bits.LeadingZeros8(b))
		break
	}
	return zeros
}
