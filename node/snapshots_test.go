package node

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/forumchain/forumchain/internal/chaintest"
	"github.com/forumchain/forumchain/keyvaluedb/memorydb"
	"github.com/forumchain/forumchain/types"
)

func TestSnapshotStoreSaveAndLoad(t *testing.T) {
	s := chaintest.NewState(t, "alice", "bob")
	ss := NewSnapshotStore(memorydb.New())

	head := Head{BlockNum: 7, BlockID: types.BlockID{0, 0, 0, 7, 0xCD}, Time: chaintest.GenesisTime + 21}
	require.NoError(t, ss.Save(s, head))

	got, err := ss.Head()
	require.NoError(t, err)
	require.Equal(t, &head, got)

	restored, err := ss.Load(7)
	require.NoError(t, err)
	require.EqualValues(t, chaintest.InitialBalance, chaintest.CoreBalance(t, restored, "alice"))
	require.EqualValues(t, chaintest.InitialBalance, chaintest.CoreBalance(t, restored, "bob"))

	latest, latestHead, err := ss.LoadLatest()
	require.NoError(t, err)
	require.Equal(t, &head, latestHead)
	require.EqualValues(t, chaintest.InitialBalance, chaintest.CoreBalance(t, latest, "alice"))
}

func TestSnapshotStoreEmptyDatabase(t *testing.T) {
	ss := NewSnapshotStore(memorydb.New())

	head, err := ss.Head()
	require.NoError(t, err)
	require.Nil(t, head)

	_, err = ss.Load(5)
	require.ErrorContains(t, err, "no snapshot of block 5")

	_, _, err = ss.LoadLatest()
	require.ErrorContains(t, err, "no chain")
}

func TestSnapshotStorePrune(t *testing.T) {
	s := chaintest.NewState(t, "alice")
	ss := NewSnapshotStore(memorydb.New())

	for _, n := range []uint32{1, 2, 3} {
		require.NoError(t, ss.Save(s, Head{BlockNum: n, Time: chaintest.GenesisTime + types.Time(n)}))
	}

	require.NoError(t, ss.Prune(1))
	_, err := ss.Load(1)
	require.Error(t, err)
	_, err = ss.Load(2)
	require.Error(t, err)
	_, err = ss.Load(3)
	require.NoError(t, err)

	// the head snapshot survives even an over-eager keep count
	require.NoError(t, ss.Prune(0))
	_, err = ss.Load(3)
	require.NoError(t, err)
}

func TestSnapshotStorePersistenceFailure(t *testing.T) {
	s := chaintest.NewState(t, "alice")
	db := memorydb.New()
	ss := NewSnapshotStore(db)

	db.SetWriteError(errors.New("disk full"))
	err := ss.Save(s, Head{BlockNum: 1, Time: chaintest.GenesisTime})
	require.ErrorContains(t, err, "disk full")
}
