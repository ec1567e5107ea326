package domain

import (
	"github.com/forumchain/forumchain/state"
	"github.com/forumchain/forumchain/types"
)

// Escrow is a three-party conditional holding of funds, keyed by
// (from, escrow id). Deleted once both balances reach zero.
type Escrow struct {
	From     types.AccountName
	To       types.AccountName
	Agent    types.AccountName
	EscrowID uint32

	CoreBalance types.Asset // CORE
	DebtBalance types.Asset // DEBT
	PendingFee  types.Asset

	RatificationDeadline types.Time
	EscrowExpiration     types.Time

	ToApproved    bool
	AgentApproved bool
	Disputed      bool
}

func (e *Escrow) Copy() state.Object {
	cp := *e
	return &cp
}

// Approved reports full ratification by both counterparties.
func (e *Escrow) Approved() bool { return e.ToApproved && e.AgentApproved }

func (e *Escrow) IsExpired(now types.Time) bool { return !now.Before(e.EscrowExpiration) }

// SavingsWithdraw is a pending three-day withdrawal from a savings
// balance, keyed by (from, request id).
type SavingsWithdraw struct {
	From      types.AccountName
	To        types.AccountName
	Memo      string
	RequestID uint32
	Amount    types.Asset
	Complete  types.Time
}

func (w *SavingsWithdraw) Copy() state.Object {
	cp := *w
	return &cp
}

// ConvertRequest is a pending debt-to-core conversion, settled at the
// median feed price after the conversion delay.
type ConvertRequest struct {
	Owner          types.AccountName
	RequestID      uint32
	Amount         types.Asset // DEBT
	ConversionDate types.Time
}

func (r *ConvertRequest) Copy() state.Object {
	cp := *r
	return &cp
}
