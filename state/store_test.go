package state

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/require"
)

type counter struct {
	Value int64
}

func (c *counter) Copy() Object {
	cp := *c
	return &cp
}

func addCounter(key string, v int64) Action {
	return AddObject([]byte(key), &counter{Value: v})
}

func incCounter(key string, by int64) Action {
	return UpdateObject([]byte(key), func(obj Object) (Object, error) {
		c := obj.(*counter)
		c.Value += by
		return c, nil
	})
}

func counterValue(t *testing.T, s *Store, key string) int64 {
	t.Helper()
	obj, err := s.GetObject([]byte(key))
	require.NoError(t, err)
	return obj.(*counter).Value
}

func TestStoreBasicActions(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Apply(addCounter("a", 1), addCounter("b", 2)))
	require.Equal(t, int64(1), counterValue(t, s, "a"))

	require.NoError(t, s.Apply(incCounter("a", 10)))
	require.Equal(t, int64(11), counterValue(t, s, "a"))

	require.ErrorContains(t, s.Apply(addCounter("a", 0)), "already exists")
	require.ErrorIs(t, s.Apply(incCounter("missing", 1)), ErrNotFound)

	require.NoError(t, s.Apply(DeleteObject([]byte("b"))))
	require.False(t, s.HasObject([]byte("b")))
	require.ErrorIs(t, s.Apply(DeleteObject([]byte("b"))), ErrNotFound)
}

func TestStoreMutatorGetsPrivateCopy(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Apply(addCounter("a", 1)))

	// a failing mutator must leave the stored object untouched even
	// though it scribbled on the value it was given
	err := s.Apply(UpdateObject([]byte("a"), func(obj Object) (Object, error) {
		obj.(*counter).Value = 999
		return nil, fmt.Errorf("mutator failed")
	}))
	require.ErrorContains(t, err, "mutator failed")
	require.Equal(t, int64(1), counterValue(t, s, "a"))
}

func TestStoreSavepointRollback(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Apply(addCounter("a", 1)))

	sp := s.Savepoint()
	require.NoError(t, s.Apply(incCounter("a", 10), addCounter("b", 2), DeleteObject([]byte("a"))))
	require.False(t, s.HasObject([]byte("a")))

	s.RollbackToSavepoint(sp)
	require.Equal(t, int64(1), counterValue(t, s, "a"))
	require.False(t, s.HasObject([]byte("b")))
	require.False(t, s.InTransaction())
}

func TestStoreNestedSavepoints(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Apply(addCounter("a", 1)))

	outer := s.Savepoint()
	require.NoError(t, s.Apply(incCounter("a", 1)))

	inner := s.Savepoint()
	require.NoError(t, s.Apply(incCounter("a", 100), addCounter("b", 5)))

	// inner rollback keeps outer mutations
	s.RollbackToSavepoint(inner)
	require.Equal(t, int64(2), counterValue(t, s, "a"))
	require.False(t, s.HasObject([]byte("b")))

	// release keeps everything, rollback of outer then undoes it all
	inner2 := s.Savepoint()
	require.NoError(t, s.Apply(incCounter("a", 100)))
	s.ReleaseToSavepoint(inner2)
	require.Equal(t, int64(102), counterValue(t, s, "a"))

	s.RollbackToSavepoint(outer)
	require.Equal(t, int64(1), counterValue(t, s, "a"))
}

func TestStoreCommitClearsJournal(t *testing.T) {
	s := NewStore()
	sp := s.Savepoint()
	require.NoError(t, s.Apply(addCounter("a", 1)))
	s.ReleaseToSavepoint(sp)
	s.Commit()
	require.False(t, s.InTransaction())
	require.Equal(t, int64(1), counterValue(t, s, "a"))
}

func TestStoreIteratePrefix(t *testing.T) {
	s := NewStore()
	for _, k := range []string{"b/2", "a/1", "b/1", "c/1", "b/10"} {
		require.NoError(t, s.Apply(addCounter(k, 0)))
	}
	var seen []string
	require.NoError(t, s.IteratePrefix([]byte("b/"), func(key []byte, _ Object) (bool, error) {
		seen = append(seen, string(key))
		return true, nil
	}))
	require.Equal(t, []string{"b/1", "b/10", "b/2"}, seen)
	require.Equal(t, 3, s.CountPrefix([]byte("b/")))

	// early stop
	seen = nil
	require.NoError(t, s.IteratePrefix([]byte("b/"), func(key []byte, _ Object) (bool, error) {
		seen = append(seen, string(key))
		return false, nil
	}))
	require.Equal(t, []string{"b/1"}, seen)
}

func TestStoreIterationOrderSurvivesRollback(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Apply(addCounter("k1", 0), addCounter("k3", 0)))

	sp := s.Savepoint()
	require.NoError(t, s.Apply(addCounter("k2", 0), DeleteObject([]byte("k1"))))
	s.RollbackToSavepoint(sp)

	var keys []string
	require.NoError(t, s.IteratePrefix([]byte("k"), func(key []byte, _ Object) (bool, error) {
		keys = append(keys, string(key))
		return true, nil
	}))
	require.Equal(t, []string{"k1", "k3"}, keys)
}

func TestSnapshotRoundTrip(t *testing.T) {
	s := NewStore()
	for i := 0; i < 10; i++ {
		require.NoError(t, s.Apply(addCounter(fmt.Sprintf("c/%02d", i), int64(i*i))))
	}

	encode := func(obj Object) ([]byte, error) { return cbor.Marshal(obj.(*counter)) }
	decode := func(key, data []byte) (Object, error) {
		c := &counter{}
		return c, cbor.Unmarshal(data, c)
	}

	var buf bytes.Buffer
	require.NoError(t, s.WriteSnapshot(&buf, encode))

	restored, err := ReadSnapshot(&buf, decode)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		require.Equal(t, int64(i*i), counterValue(t, restored, fmt.Sprintf("c/%02d", i)))
	}

	// a second snapshot of the restored store is byte-identical
	var buf2 bytes.Buffer
	require.NoError(t, restored.WriteSnapshot(&buf2, encode))
	var buf3 bytes.Buffer
	require.NoError(t, s.WriteSnapshot(&buf3, encode))
	require.Equal(t, buf3.Bytes(), buf2.Bytes())
}

func TestSnapshotRejectsOpenSavepoint(t *testing.T) {
	s := NewStore()
	s.Savepoint()
	require.Error(t, s.WriteSnapshot(&bytes.Buffer{}, func(Object) ([]byte, error) { return nil, nil }))
}
