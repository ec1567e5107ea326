package types

import (
	"encoding/hex"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// BlockID identifies a block; the first four bytes encode the block height.
type BlockID [20]byte

func (id BlockID) BlockNum() uint32 {
	return uint32(id[0])<<24 | uint32(id[1])<<16 | uint32(id[2])<<8 | uint32(id[3])
}

func (id BlockID) String() string { return hex.EncodeToString(id[:]) }

func (id BlockID) IsZero() bool { return id == BlockID{} }

type (
	// Operation is the tagged wire envelope: a type tag plus the
	// CBOR-encoded attribute struct of that operation kind. Dispatch
	// selects the executor by tag; the executor decodes Attributes into
	// its own attribute type.
	Operation struct {
		_          struct{} `cbor:",toarray"`
		Type       string
		Attributes cbor.RawMessage
	}

	// Transaction is an ordered list of operations applied atomically.
	Transaction struct {
		_          struct{} `cbor:",toarray"`
		Operations []Operation
	}
)

var cborEnc cbor.EncMode

func init() {
	var err error
	// Core deterministic encoding: canonical map ordering, no floats in
	// our structs, definite lengths only.
	cborEnc, err = cbor.EncOptions{Sort: cbor.SortCoreDeterministic}.EncMode()
	if err != nil {
		panic(err)
	}
}

// Cbor marshals v with the chain's deterministic encoding options.
func Cbor(v any) ([]byte, error) { return cborEnc.Marshal(v) }

// NewOperation builds an envelope from a typed attribute struct.
func NewOperation(opType string, attributes any) (Operation, error) {
	raw, err := Cbor(attributes)
	if err != nil {
		return Operation{}, fmt.Errorf("encoding %s attributes: %w", opType, err)
	}
	return Operation{Type: opType, Attributes: raw}, nil
}

// MustNewOperation is NewOperation for statically well-formed attribute
// values (tests, virtual operations).
func MustNewOperation(opType string, attributes any) Operation {
	op, err := NewOperation(opType, attributes)
	if err != nil {
		panic(err)
	}
	return op
}

// UnmarshalAttributes decodes the envelope payload into attr.
func (o *Operation) UnmarshalAttributes(attr any) error {
	if o.Attributes == nil {
		return fmt.Errorf("%s operation has no attributes", o.Type)
	}
	if err := cbor.Unmarshal(o.Attributes, attr); err != nil {
		return fmt.Errorf("decoding %s attributes: %w", o.Type, err)
	}
	return nil
}
