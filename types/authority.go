package types

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"sort"
)

// PublicKey is a compressed secp256k1 public key. Signature verification
// happens before the apply pipeline; evaluators only compare and store keys.
type PublicKey []byte

const CompressedPubKeyLength = 33

func (k PublicKey) IsZero() bool {
	for _, b := range k {
		if b != 0 {
			return false
		}
	}
	return true
}

func (k PublicKey) Equal(other PublicKey) bool { return bytes.Equal(k, other) }

func (k PublicKey) String() string { return hex.EncodeToString(k) }

func ValidatePublicKey(k PublicKey) error {
	if len(k) != CompressedPubKeyLength {
		return &InvalidParameterError{Param: "public_key", Reason: fmt.Sprintf("expected %d bytes, got %d", CompressedPubKeyLength, len(k))}
	}
	return nil
}

type (
	// AccountAuth is one weighted account member of an authority.
	AccountAuth struct {
		_       struct{} `cbor:",toarray"`
		Account AccountName
		Weight  uint16
	}

	// KeyAuth is one weighted key member of an authority.
	KeyAuth struct {
		_      struct{} `cbor:",toarray"`
		Key    PublicKey
		Weight uint16
	}

	// Authority is a weighted threshold over account and key members.
	// Member lists are kept sorted so the encoding is canonical.
	Authority struct {
		_               struct{} `cbor:",toarray"`
		WeightThreshold uint32
		AccountAuths    []AccountAuth
		KeyAuths        []KeyAuth
	}
)

const MaxAuthorityMembership = 10

func KeyAuthority(key PublicKey, weight uint16) Authority {
	return Authority{
		WeightThreshold: uint32(weight),
		KeyAuths:        []KeyAuth{{Key: key, Weight: weight}},
	}
}

func (a *Authority) Normalize() {
	sort.Slice(a.AccountAuths, func(i, j int) bool { return a.AccountAuths[i].Account < a.AccountAuths[j].Account })
	sort.Slice(a.KeyAuths, func(i, j int) bool { return bytes.Compare(a.KeyAuths[i].Key, a.KeyAuths[j].Key) < 0 })
}

func (a *Authority) NumAuths() int { return len(a.AccountAuths) + len(a.KeyAuths) }

// IsImpossible reports whether the threshold can never be met by the
// members, i.e. the authority locks the account.
func (a *Authority) IsImpossible() bool {
	var total uint64
	for _, m := range a.AccountAuths {
		total += uint64(m.Weight)
	}
	for _, m := range a.KeyAuths {
		total += uint64(m.Weight)
	}
	return total < uint64(a.WeightThreshold)
}

// HasSingleKey reports whether the authority is exactly one key with a
// matching threshold. Miner accounts are restricted to this shape.
func (a *Authority) HasSingleKey(key PublicKey) bool {
	return len(a.AccountAuths) == 0 && len(a.KeyAuths) == 1 &&
		a.KeyAuths[0].Key.Equal(key) &&
		uint32(a.KeyAuths[0].Weight) == a.WeightThreshold
}

func (a *Authority) Equal(b *Authority) bool {
	if a.WeightThreshold != b.WeightThreshold ||
		len(a.AccountAuths) != len(b.AccountAuths) ||
		len(a.KeyAuths) != len(b.KeyAuths) {
		return false
	}
	for i := range a.AccountAuths {
		if a.AccountAuths[i] != b.AccountAuths[i] {
			return false
		}
	}
	for i := range a.KeyAuths {
		if !a.KeyAuths[i].Key.Equal(b.KeyAuths[i].Key) || a.KeyAuths[i].Weight != b.KeyAuths[i].Weight {
			return false
		}
	}
	return true
}

// Validate rejects member lists that could not have been produced by a
// well-formed client: oversized, unsorted, duplicated, or zero-weight.
func (a *Authority) Validate() error {
	if a.NumAuths() > MaxAuthorityMembership {
		return &InvalidParameterError{Param: "authority", Reason: "too many members"}
	}
	for i, m := range a.AccountAuths {
		if m.Weight == 0 {
			return &InvalidParameterError{Param: "authority", Reason: fmt.Sprintf("account %q has zero weight", m.Account)}
		}
		if i > 0 && a.AccountAuths[i-1].Account >= m.Account {
			return &InvalidParameterError{Param: "authority", Reason: "account members not sorted and unique"}
		}
	}
	for i, m := range a.KeyAuths {
		if err := ValidatePublicKey(m.Key); err != nil {
			return err
		}
		if m.Weight == 0 {
			return &InvalidParameterError{Param: "authority", Reason: fmt.Sprintf("key %s has zero weight", m.Key)}
		}
		if i > 0 && bytes.Compare(a.KeyAuths[i-1].Key, m.Key) >= 0 {
			return &InvalidParameterError{Param: "authority", Reason: "key members not sorted and unique"}
		}
	}
	return nil
}
