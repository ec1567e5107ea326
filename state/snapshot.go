package state

import (
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"
)

type (
	// EncodeFn serializes one ledger object.
	EncodeFn func(obj Object) ([]byte, error)
	// DecodeFn rebuilds one ledger object; the key carries the kind tag.
	DecodeFn func(key, data []byte) (Object, error)

	snapshotHeader struct {
		_       struct{} `cbor:",toarray"`
		Version uint8
		Count   uint64
	}

	snapshotRecord struct {
		_    struct{} `cbor:",toarray"`
		Key  []byte
		Data []byte
	}
)

const snapshotVersion = 1

// WriteSnapshot streams the committed contents in key order. Must not be
// called with open savepoints: a snapshot of a half-applied transaction is
// never meaningful.
func (s *Store) WriteSnapshot(w io.Writer, encode EncodeFn) error {
	if s.InTransaction() {
		return fmt.Errorf("snapshot requested with open savepoints")
	}
	enc := cbor.NewEncoder(w)
	if err := enc.Encode(snapshotHeader{Version: snapshotVersion, Count: uint64(len(s.keys.keys))}); err != nil {
		return fmt.Errorf("encoding snapshot header: %w", err)
	}
	for _, k := range s.keys.keys {
		data, err := encode(s.objects[k])
		if err != nil {
			return fmt.Errorf("encoding object %x: %w", k, err)
		}
		if err := enc.Encode(snapshotRecord{Key: []byte(k), Data: data}); err != nil {
			return fmt.Errorf("encoding record %x: %w", k, err)
		}
	}
	return nil
}

// ReadSnapshot rebuilds a store from a snapshot stream.
func ReadSnapshot(r io.Reader, decode DecodeFn) (*Store, error) {
	dec := cbor.NewDecoder(r)
	var hdr snapshotHeader
	if err := dec.Decode(&hdr); err != nil {
		return nil, fmt.Errorf("decoding snapshot header: %w", err)
	}
	if hdr.Version != snapshotVersion {
		return nil, fmt.Errorf("unsupported snapshot version %d", hdr.Version)
	}
	s := NewStore()
	for i := uint64(0); i < hdr.Count; i++ {
		var rec snapshotRecord
		if err := dec.Decode(&rec); err != nil {
			return nil, fmt.Errorf("decoding record %d: %w", i, err)
		}
		obj, err := decode(rec.Key, rec.Data)
		if err != nil {
			return nil, fmt.Errorf("decoding object %x: %w", rec.Key, err)
		}
		k := string(rec.Key)
		s.objects[k] = obj
		// records arrive in key order
		s.keys.keys = append(s.keys.keys, k)
	}
	return s, nil
}
