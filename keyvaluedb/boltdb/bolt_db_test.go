package boltdb

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/forumchain/forumchain/keyvaluedb"
)

type record struct {
	_    struct{} `cbor:",toarray"`
	Name string
	N    uint64
}

func newTestDB(t *testing.T) (*BoltDB, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := New(path)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, db.Close()) })
	return db, path
}

func TestBoltReadWriteDelete(t *testing.T) {
	db, _ := newTestDB(t)

	var got record
	found, err := db.Read([]byte("missing"), &got)
	require.NoError(t, err)
	require.False(t, found)

	want := record{Name: "alice", N: 42}
	require.NoError(t, db.Write([]byte("k1"), want))
	found, err = db.Read([]byte("k1"), &got)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, want, got)

	require.NoError(t, db.Delete([]byte("k1")))
	found, err = db.Read([]byte("k1"), &got)
	require.NoError(t, err)
	require.False(t, found)

	require.ErrorIs(t, db.Write(nil, want), keyvaluedb.ErrInvalidKey)
	_, err = db.Read([]byte("k1"), nil)
	require.ErrorIs(t, err, keyvaluedb.ErrInvalidValue)
}

func TestBoltIteration(t *testing.T) {
	db, _ := newTestDB(t)
	for _, k := range []string{"b", "a", "c"} {
		require.NoError(t, db.Write([]byte(k), record{Name: k}))
	}

	var keys []string
	it := db.First()
	defer func() { require.NoError(t, it.Close()) }()
	for ; it.Valid(); it.Next() {
		keys = append(keys, string(it.Key()))
	}
	require.Equal(t, []string{"a", "b", "c"}, keys)

	find := db.Find([]byte("b"))
	defer func() { require.NoError(t, find.Close()) }()
	require.True(t, find.Valid())
	require.Equal(t, []byte("b"), find.Key())
	var got record
	require.NoError(t, find.Value(&got))
	require.Equal(t, "b", got.Name)

	last := db.Last()
	defer func() { require.NoError(t, last.Close()) }()
	require.True(t, last.Valid())
	require.Equal(t, []byte("c"), last.Key())
}

func TestBoltPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := New(path)
	require.NoError(t, err)
	require.NoError(t, db.Write([]byte("k"), record{Name: "kept", N: 7}))
	require.NoError(t, db.Close())

	db, err = New(path)
	require.NoError(t, err)
	defer func() { require.NoError(t, db.Close()) }()
	var got record
	found, err := db.Read([]byte("k"), &got)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, record{Name: "kept", N: 7}, got)
}
