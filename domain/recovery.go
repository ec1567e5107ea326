package domain

import (
	"github.com/forumchain/forumchain/state"
	"github.com/forumchain/forumchain/types"
)

// RecoveryRequest is an open account recovery initiated by the recovery
// partner; it expires if the owner does not complete it in time.
type RecoveryRequest struct {
	AccountToRecover  types.AccountName
	NewOwnerAuthority types.Authority
	Expires           types.Time
}

func (r *RecoveryRequest) Copy() state.Object {
	cp := *r
	cp.NewOwnerAuthority = copyAuthority(r.NewOwnerAuthority)
	return &cp
}

// ChangeRecoveryRequest is a pending recovery partner change, effective
// after the full recovery period so a compromised owner key cannot
// instantly swap the partner.
type ChangeRecoveryRequest struct {
	AccountToRecover types.AccountName
	RecoveryAccount  types.AccountName
	EffectiveOn      types.Time
}

func (r *ChangeRecoveryRequest) Copy() state.Object {
	cp := *r
	return &cp
}

// DeclineVotingRightsRequest is a pending, irreversible surrender of
// voting rights.
type DeclineVotingRightsRequest struct {
	Account       types.AccountName
	EffectiveDate types.Time
}

func (r *DeclineVotingRightsRequest) Copy() state.Object {
	cp := *r
	return &cp
}
