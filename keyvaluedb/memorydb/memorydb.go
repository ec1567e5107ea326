package memorydb

import (
	"sort"
	"sync"

	"github.com/fxamacker/cbor/v2"

	"github.com/forumchain/forumchain/keyvaluedb"
)

// MemoryDB is the in-memory test double of the bolt store.
type MemoryDB struct {
	mu      sync.RWMutex
	entries map[string][]byte
	// writeErr, when set, fails the next write; lets tests exercise
	// persistence error paths.
	writeErr error
}

func New() *MemoryDB {
	return &MemoryDB{entries: map[string][]byte{}}
}

func (db *MemoryDB) SetWriteError(err error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.writeErr = err
}

func (db *MemoryDB) Read(key []byte, v any) (bool, error) {
	if err := keyvaluedb.CheckKeyAndValue(key, v); err != nil {
		return false, err
	}
	db.mu.RLock()
	defer db.mu.RUnlock()
	data, ok := db.entries[string(key)]
	if !ok {
		return false, nil
	}
	return true, cbor.Unmarshal(data, v)
}

func (db *MemoryDB) Write(key []byte, v any) error {
	if err := keyvaluedb.CheckKeyAndValue(key, v); err != nil {
		return err
	}
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.writeErr != nil {
		return db.writeErr
	}
	data, err := cbor.Marshal(v)
	if err != nil {
		return err
	}
	db.entries[string(key)] = data
	return nil
}

func (db *MemoryDB) Delete(key []byte) error {
	if err := keyvaluedb.CheckKey(key); err != nil {
		return err
	}
	db.mu.Lock()
	defer db.mu.Unlock()
	delete(db.entries, string(key))
	return nil
}

func (db *MemoryDB) sortedKeys() []string {
	keys := make([]string, 0, len(db.entries))
	for k := range db.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (db *MemoryDB) First() keyvaluedb.Iterator {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return &iterator{db: db, keys: db.sortedKeys()}
}

func (db *MemoryDB) Last() keyvaluedb.Iterator {
	db.mu.RLock()
	defer db.mu.RUnlock()
	keys := db.sortedKeys()
	return &iterator{db: db, keys: keys, pos: len(keys) - 1}
}

func (db *MemoryDB) Find(key []byte) keyvaluedb.Iterator {
	db.mu.RLock()
	defer db.mu.RUnlock()
	keys := db.sortedKeys()
	pos := sort.SearchStrings(keys, string(key))
	return &iterator{db: db, keys: keys, pos: pos}
}

func (db *MemoryDB) Close() error { return nil }

type iterator struct {
	db   *MemoryDB
	keys []string
	pos  int
}

func (it *iterator) Valid() bool { return it.pos >= 0 && it.pos < len(it.keys) }

func (it *iterator) Next() { it.pos++ }

func (it *iterator) Key() []byte {
	if !it.Valid() {
		return nil
	}
	return []byte(it.keys[it.pos])
}

func (it *iterator) Value(v any) error {
	ok, err := it.db.Read(it.Key(), v)
	if err != nil {
		return err
	}
	if !ok {
		return keyvaluedb.ErrInvalidKey
	}
	return nil
}

func (it *iterator) Close() error { return nil }
