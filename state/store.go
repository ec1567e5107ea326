package state

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
)

// Object is a ledger object stored by the Store. Copy must return a deep
// copy; the undo journal keeps copies, never aliases.
type Object interface {
	Copy() Object
}

// ErrNotFound is returned by GetObject for unknown keys. Callers that know
// the object kind wrap it into a typed missing-object error.
var ErrNotFound = errors.New("object not found")

type (
	// Action is a single mutation applied to the store. Mutations go
	// through actions only, so every change passes the undo journal.
	Action func(s *Store) error

	undoRecord struct {
		key string
		// prev is the object value before the mutation, nil if the key
		// did not exist.
		prev Object
	}

	frame struct {
		records []undoRecord
		// touched guards against journaling the same key twice within
		// one frame; only the first prev value matters.
		touched map[string]struct{}
	}

	// Store is an ordered keyed object store with nested savepoints.
	// Keys iterate in byte order, which makes every range scan
	// deterministic. Not safe for concurrent use; the apply pipeline
	// owns it exclusively.
	Store struct {
		objects map[string]Object
		keys    sortedKeys
		frames  []*frame
	}
)

func NewStore() *Store {
	return &Store{objects: map[string]Object{}}
}

// Apply runs the given actions in order. An action error aborts the
// remaining actions and is returned as-is; the caller decides the rollback
// boundary via savepoints.
func (s *Store) Apply(actions ...Action) error {
	for _, action := range actions {
		if err := action(s); err != nil {
			return err
		}
	}
	return nil
}

// AddObject creates a new object under key; fails if the key exists.
func AddObject(key []byte, obj Object) Action {
	return func(s *Store) error {
		k := string(key)
		if _, ok := s.objects[k]; ok {
			return fmt.Errorf("add %x: object already exists", key)
		}
		s.journal(k)
		s.objects[k] = obj
		s.keys.insert(k)
		return nil
	}
}

// UpdateObject loads the object under key, passes a private copy to the
// mutator and stores the returned value. The mutator must not retain the
// object past the call.
func UpdateObject(key []byte, mutator func(Object) (Object, error)) Action {
	return func(s *Store) error {
		k := string(key)
		obj, ok := s.objects[k]
		if !ok {
			return fmt.Errorf("update %x: %w", key, ErrNotFound)
		}
		updated, err := mutator(obj.Copy())
		if err != nil {
			return err
		}
		if updated == nil {
			return fmt.Errorf("update %x: mutator returned nil", key)
		}
		s.journal(k)
		s.objects[k] = updated
		return nil
	}
}

// DeleteObject removes the object under key; fails if the key is unknown.
func DeleteObject(key []byte) Action {
	return func(s *Store) error {
		k := string(key)
		if _, ok := s.objects[k]; !ok {
			return fmt.Errorf("delete %x: %w", key, ErrNotFound)
		}
		s.journal(k)
		delete(s.objects, k)
		s.keys.remove(k)
		return nil
	}
}

// GetObject returns the current (uncommitted) object under key. The
// returned value must be treated as read-only; mutations go through
// UpdateObject.
func (s *Store) GetObject(key []byte) (Object, error) {
	obj, ok := s.objects[string(key)]
	if !ok {
		return nil, fmt.Errorf("get %x: %w", key, ErrNotFound)
	}
	return obj, nil
}

func (s *Store) HasObject(key []byte) bool {
	_, ok := s.objects[string(key)]
	return ok
}

// IteratePrefix walks all objects whose key starts with prefix in
// ascending key order. The callback returns false to stop early. The
// callback must not mutate the store.
func (s *Store) IteratePrefix(prefix []byte, fn func(key []byte, obj Object) (bool, error)) error {
	p := string(prefix)
	for i := s.keys.searchFrom(p); i < len(s.keys.keys); i++ {
		k := s.keys.keys[i]
		if !bytes.HasPrefix([]byte(k), prefix) {
			return nil
		}
		cont, err := fn([]byte(k), s.objects[k])
		if err != nil {
			return err
		}
		if !cont {
			return nil
		}
	}
	return nil
}

// CountPrefix returns the number of objects under prefix.
func (s *Store) CountPrefix(prefix []byte) int {
	n := 0
	_ = s.IteratePrefix(prefix, func([]byte, Object) (bool, error) {
		n++
		return true, nil
	})
	return n
}

// Savepoint opens a new undo frame and returns its id.
func (s *Store) Savepoint() int {
	s.frames = append(s.frames, &frame{touched: map[string]struct{}{}})
	return len(s.frames) - 1
}

// RollbackToSavepoint undoes every mutation recorded in frame id and all
// frames above it, restoring the exact state at the Savepoint call.
func (s *Store) RollbackToSavepoint(id int) {
	if id < 0 || id >= len(s.frames) {
		panic(fmt.Sprintf("rollback to unknown savepoint %d", id))
	}
	for fi := len(s.frames) - 1; fi >= id; fi-- {
		f := s.frames[fi]
		for ri := len(f.records) - 1; ri >= 0; ri-- {
			rec := f.records[ri]
			if rec.prev == nil {
				delete(s.objects, rec.key)
				s.keys.remove(rec.key)
			} else {
				if _, ok := s.objects[rec.key]; !ok {
					s.keys.insert(rec.key)
				}
				s.objects[rec.key] = rec.prev
			}
		}
	}
	s.frames = s.frames[:id]
}

// ReleaseToSavepoint folds frame id and all frames above it into the frame
// below, keeping the mutations but collapsing the rollback boundary.
func (s *Store) ReleaseToSavepoint(id int) {
	if id < 0 || id >= len(s.frames) {
		panic(fmt.Sprintf("release of unknown savepoint %d", id))
	}
	if id == 0 {
		s.frames = s.frames[:0]
		return
	}
	parent := s.frames[id-1]
	for _, f := range s.frames[id:] {
		for _, rec := range f.records {
			if _, ok := parent.touched[rec.key]; ok {
				continue
			}
			parent.touched[rec.key] = struct{}{}
			parent.records = append(parent.records, rec)
		}
	}
	s.frames = s.frames[:id]
}

// Commit discards the whole undo journal, making the current contents the
// new baseline. All savepoints must have been released or rolled back.
func (s *Store) Commit() {
	s.frames = s.frames[:0]
}

// InTransaction reports whether any savepoint is open.
func (s *Store) InTransaction() bool { return len(s.frames) > 0 }

func (s *Store) journal(key string) {
	if len(s.frames) == 0 {
		return
	}
	f := s.frames[len(s.frames)-1]
	if _, ok := f.touched[key]; ok {
		return
	}
	f.touched[key] = struct{}{}
	var prev Object
	if obj, ok := s.objects[key]; ok {
		prev = obj.Copy()
	}
	f.records = append(f.records, undoRecord{key: key, prev: prev})
}

// sortedKeys keeps the key index in ascending byte order.
type sortedKeys struct {
	keys []string
}

func (sk *sortedKeys) searchFrom(key string) int {
	return sort.SearchStrings(sk.keys, key)
}

func (sk *sortedKeys) insert(key string) {
	i := sort.SearchStrings(sk.keys, key)
	if i < len(sk.keys) && sk.keys[i] == key {
		return
	}
	sk.keys = append(sk.keys, "")
	copy(sk.keys[i+1:], sk.keys[i:])
	sk.keys[i] = key
}

func (sk *sortedKeys) remove(key string) {
	i := sort.SearchStrings(sk.keys, key)
	if i < len(sk.keys) && sk.keys[i] == key {
		sk.keys = append(sk.keys[:i], sk.keys[i+1:]...)
	}
}
