package boltdb

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
	bolt "go.etcd.io/bbolt"
)

// Iterator holds a read transaction open for the duration of the walk;
// Close must always be called.
type Iterator struct {
	tx     *bolt.Tx
	cursor *bolt.Cursor
	key    []byte
	value  []byte
	err    error
}

func newIterator(db *bolt.DB, bucket []byte) *Iterator {
	it := &Iterator{}
	tx, err := db.Begin(false)
	if err != nil {
		it.err = fmt.Errorf("starting bolt read tx: %w", err)
		return it
	}
	it.tx = tx
	it.cursor = tx.Bucket(bucket).Cursor()
	return it
}

func (it *Iterator) first() {
	if it.cursor != nil {
		it.key, it.value = it.cursor.First()
	}
}

func (it *Iterator) last() {
	if it.cursor != nil {
		it.key, it.value = it.cursor.Last()
	}
}

func (it *Iterator) seek(key []byte) {
	if it.cursor != nil {
		it.key, it.value = it.cursor.Seek(key)
	}
}

func (it *Iterator) Valid() bool { return it.err == nil && it.key != nil }

func (it *Iterator) Next() {
	if it.cursor != nil {
		it.key, it.value = it.cursor.Next()
	}
}

func (it *Iterator) Key() []byte { return it.key }

func (it *Iterator) Value(v any) error {
	if !it.Valid() {
		if it.err != nil {
			return it.err
		}
		return fmt.Errorf("iterator exhausted")
	}
	return cbor.Unmarshal(it.value, v)
}

func (it *Iterator) Close() error {
	if it.tx == nil {
		return it.err
	}
	if err := it.tx.Rollback(); err != nil {
		return fmt.Errorf("closing bolt read tx: %w", err)
	}
	it.tx = nil
	return it.err
}
