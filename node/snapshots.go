// Package node persists ledger snapshots and head-block metadata in a
// key-value database so a restarted node resumes from its last committed
// block instead of replaying from genesis.
package node

import (
	"bytes"
	"fmt"

	"github.com/forumchain/forumchain/domain"
	"github.com/forumchain/forumchain/keyvaluedb"
	"github.com/forumchain/forumchain/state"
	"github.com/forumchain/forumchain/types"
	"github.com/forumchain/forumchain/util"
)

var (
	headKey        = []byte("head")
	snapshotPrefix = []byte("snapshot-")
)

type (
	// Head records the last committed block.
	Head struct {
		_        struct{} `cbor:",toarray"`
		BlockNum uint32
		BlockID  types.BlockID
		Time     types.Time
	}

	// SnapshotStore keeps full ledger snapshots keyed by block number,
	// plus the head pointer.
	SnapshotStore struct {
		db keyvaluedb.KeyValueDB
	}
)

func NewSnapshotStore(db keyvaluedb.KeyValueDB) *SnapshotStore {
	return &SnapshotStore{db: db}
}

func snapshotKey(blockNum uint32) []byte {
	return append(append([]byte(nil), snapshotPrefix...), util.Uint32ToBytes(blockNum)...)
}

// Save writes a full snapshot of the committed ledger and moves the head
// pointer to it.
func (s *SnapshotStore) Save(store *state.Store, head Head) error {
	var buf bytes.Buffer
	if err := store.WriteSnapshot(&buf, domain.Encode); err != nil {
		return fmt.Errorf("writing snapshot of block %d: %w", head.BlockNum, err)
	}
	if err := s.db.Write(snapshotKey(head.BlockNum), buf.Bytes()); err != nil {
		return fmt.Errorf("persisting snapshot of block %d: %w", head.BlockNum, err)
	}
	if err := s.db.Write(headKey, head); err != nil {
		return fmt.Errorf("persisting head pointer: %w", err)
	}
	return nil
}

// Head returns the last committed block, or nil when the database holds
// no chain yet.
func (s *SnapshotStore) Head() (*Head, error) {
	var head Head
	found, err := s.db.Read(headKey, &head)
	if err != nil {
		return nil, fmt.Errorf("reading head pointer: %w", err)
	}
	if !found {
		return nil, nil
	}
	return &head, nil
}

// Load rebuilds the ledger from the snapshot taken at blockNum.
func (s *SnapshotStore) Load(blockNum uint32) (*state.Store, error) {
	var data []byte
	found, err := s.db.Read(snapshotKey(blockNum), &data)
	if err != nil {
		return nil, fmt.Errorf("reading snapshot of block %d: %w", blockNum, err)
	}
	if !found {
		return nil, fmt.Errorf("no snapshot of block %d", blockNum)
	}
	store, err := state.ReadSnapshot(bytes.NewReader(data), domain.Decode)
	if err != nil {
		return nil, fmt.Errorf("decoding snapshot of block %d: %w", blockNum, err)
	}
	return store, nil
}

// LoadLatest rebuilds the ledger from the head snapshot.
func (s *SnapshotStore) LoadLatest() (*state.Store, *Head, error) {
	head, err := s.Head()
	if err != nil {
		return nil, nil, err
	}
	if head == nil {
		return nil, nil, fmt.Errorf("database holds no chain")
	}
	store, err := s.Load(head.BlockNum)
	if err != nil {
		return nil, nil, err
	}
	return store, head, nil
}

// Prune deletes snapshots older than the newest keep ones. The head
// snapshot is never deleted.
func (s *SnapshotStore) Prune(keep int) error {
	if keep < 1 {
		keep = 1
	}
	var nums []uint32
	it := s.db.Find(snapshotPrefix)
	defer func() { _ = it.Close() }()
	for ; it.Valid(); it.Next() {
		key := it.Key()
		if !bytes.HasPrefix(key, snapshotPrefix) {
			break
		}
		nums = append(nums, util.BytesToUint32(key[len(snapshotPrefix):]))
	}
	if err := it.Close(); err != nil {
		return fmt.Errorf("iterating snapshots: %w", err)
	}
	for _, n := range nums[:max(0, len(nums)-keep)] {
		if err := s.db.Delete(snapshotKey(n)); err != nil {
			return fmt.Errorf("deleting snapshot of block %d: %w", n, err)
		}
	}
	return nil
}
