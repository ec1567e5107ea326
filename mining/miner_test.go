package mining

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/forumchain/forumchain/observability"
	"github.com/forumchain/forumchain/types"
)

// digestFor recomputes the digest Mine hashes for one nonce.
func digestFor(prevBlock types.BlockID, worker types.AccountName, nonce uint64) [32]byte {
	var seed [20 + types.MaxAccountNameLength]byte
	copy(seed[:], prevBlock[:])
	copy(seed[20:], worker)
	buf := make([]byte, len(seed)+8)
	copy(buf, seed[:])
	binary.BigEndian.PutUint64(buf[len(seed):], nonce)
	return sha256.Sum256(buf)
}

func TestMineFindsWork(t *testing.T) {
	m := New(4, observability.NOP().Logger())
	prev := types.BlockID{0, 0, 0, 9, 0xEE}

	work, err := m.Mine(context.Background(), prev, "alice", 10)
	require.NoError(t, err)
	require.GreaterOrEqual(t, leadingZeroBits(work.Digest), uint32(10))
	require.Equal(t, digestFor(prev, "alice", work.Nonce), work.Digest)
}

func TestMineSingleWorker(t *testing.T) {
	m := New(1, observability.NOP().Logger())

	work, err := m.Mine(context.Background(), types.BlockID{}, "bob", 8)
	require.NoError(t, err)
	require.GreaterOrEqual(t, leadingZeroBits(work.Digest), uint32(8))
}

func TestMineReleasesWorkers(t *testing.T) {
	m := New(16, observability.NOP().Logger())
	before := runtime.NumGoroutine()

	work, err := m.Mine(context.Background(), types.BlockID{0, 0, 1, 2}, "carol", 20)
	require.NoError(t, err)
	require.NotNil(t, work)

	// the first solution must tear down the sibling strides, not leave
	// them searching for their own
	require.Eventually(t, func() bool {
		return runtime.NumGoroutine() <= before+2
	}, 3*time.Second, 20*time.Millisecond)
}

func TestMineRespectsCancellation(t *testing.T) {
	m := New(2, observability.NOP().Logger())
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	// 256 leading zero bits only ever match the all-zero digest
	work, err := m.Mine(ctx, types.BlockID{}, "alice", 256)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Nil(t, work)
}

func TestLeadingZeroBits(t *testing.T) {
	var d [32]byte
	require.EqualValues(t, 256, leadingZeroBits(d))

	d[0] = 0x80
	require.EqualValues(t, 0, leadingZeroBits(d))

	d[0] = 0x01
	require.EqualValues(t, 7, leadingZeroBits(d))

	d[0] = 0
	d[2] = 0xFF
	require.EqualValues(t, 16, leadingZeroBits(d))
}
