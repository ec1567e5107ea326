// Package keyvaluedb defines the persistent key-value store used for
// snapshots and applied-block metadata, with bolt and in-memory backends.
package keyvaluedb

import "errors"

type (
	// Iterator walks entries in ascending key order. Valid() must be
	// checked before Key/Value; Close releases the underlying cursor.
	Iterator interface {
		Valid() bool
		Next()
		Key() []byte
		Value(v any) error
		Close() error
	}

	// KeyValueDB is a persistent ordered key-value store. Values are
	// serialized by the implementation.
	KeyValueDB interface {
		Read(key []byte, v any) (bool, error)
		Write(key []byte, v any) error
		Delete(key []byte) error
		First() Iterator
		Last() Iterator
		Find(key []byte) Iterator
		Close() error
	}
)

var (
	ErrInvalidKey   = errors.New("key is invalid")
	ErrInvalidValue = errors.New("value is invalid")
)

func CheckKey(key []byte) error {
	if len(key) == 0 {
		return ErrInvalidKey
	}
	return nil
}

func CheckKeyAndValue(key []byte, v any) error {
	if err := CheckKey(key); err != nil {
		return err
	}
	if v == nil {
		return ErrInvalidValue
	}
	return nil
}
