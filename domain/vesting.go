package domain

import (
	"github.com/forumchain/forumchain/state"
	"github.com/forumchain/forumchain/types"
)

// VestingDelegation is the live (delegator, delegatee) stake loan.
type VestingDelegation struct {
	Delegator         types.AccountName
	Delegatee         types.AccountName
	VestingShares     types.Asset // VESTS
	MinDelegationTime types.Time
}

func (d *VestingDelegation) Copy() state.Object {
	cp := *d
	return &cp
}

// DelegationExpiration parks shares returned by a reduced or removed
// delegation until the expiration sweep hands them back to the delegator.
type DelegationExpiration struct {
	Seq           uint64
	Delegator     types.AccountName
	VestingShares types.Asset // VESTS
	Expiration    types.Time
}

func (d *DelegationExpiration) Copy() state.Object {
	cp := *d
	return &cp
}

// WithdrawRoute redirects a slice of each vesting withdrawal to another
// account, optionally re-vesting it there.
type WithdrawRoute struct {
	From     types.AccountName
	To       types.AccountName
	Percent  uint16
	AutoVest bool
}

func (r *WithdrawRoute) Copy() state.Object {
	cp := *r
	return &cp
}
