package types

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// AccountName is the chain-wide account identifier.
type AccountName string

const (
	MinAccountNameLength = 3
	MaxAccountNameLength = 16
)

// ValidateAccountName enforces the grandfathered naming rule: lowercase
// ascii letters, digits and dashes, dot-separated labels, each label
// starting with a letter and ending with a letter or digit.
func ValidateAccountName(name AccountName) error {
	s := string(name)
	if len(s) < MinAccountNameLength {
		return &InvalidParameterError{Param: "account_name", Reason: fmt.Sprintf("%q is too short", s)}
	}
	if len(s) > MaxAccountNameLength {
		return &InvalidParameterError{Param: "account_name", Reason: fmt.Sprintf("%q is too long", s)}
	}
	for _, label := range strings.Split(s, ".") {
		if len(label) < MinAccountNameLength {
			return &InvalidParameterError{Param: "account_name", Reason: fmt.Sprintf("label in %q is too short", s)}
		}
		if c := label[0]; c < 'a' || c > 'z' {
			return &InvalidParameterError{Param: "account_name", Reason: fmt.Sprintf("%q must start with a letter", s)}
		}
		if c := label[len(label)-1]; !isAccountNameTail(c) {
			return &InvalidParameterError{Param: "account_name", Reason: fmt.Sprintf("%q must end with a letter or digit", s)}
		}
		for i := 1; i < len(label)-1; i++ {
			if c := label[i]; !isAccountNameTail(c) && c != '-' {
				return &InvalidParameterError{Param: "account_name", Reason: fmt.Sprintf("%q contains invalid character %q", s, c)}
			}
		}
	}
	return nil
}

func isAccountNameTail(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9')
}

const MaxPermlinkLength = 256

// ValidatePermlink checks length and UTF-8 well-formedness.
func ValidatePermlink(permlink string) error {
	if len(permlink) > MaxPermlinkLength {
		return &InvalidParameterError{Param: "permlink", Reason: "longer than 256 bytes"}
	}
	if !utf8.ValidString(permlink) {
		return &InvalidParameterError{Param: "permlink", Reason: "not valid UTF-8"}
	}
	return nil
}
