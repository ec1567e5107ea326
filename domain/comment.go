package domain

import (
	"slices"

	"github.com/forumchain/forumchain/state"
	"github.com/forumchain/forumchain/types"
)

// Beneficiary routes a share of a comment's author reward elsewhere.
type Beneficiary struct {
	_       struct{} `cbor:",toarray"`
	Account types.AccountName
	Weight  int16
}

// Comment is one content unit, keyed by (author, permlink). Root posts
// have an empty ParentAuthor.
type Comment struct {
	Author   types.AccountName
	Permlink string

	ParentAuthor   types.AccountName
	ParentPermlink string
	Depth          uint16
	Children       uint32

	Created        types.Time
	LastUpdate     types.Time
	ActiveTime     types.Time
	LastPayout     types.Time
	CashoutTime    types.Time
	MaxCashoutTime types.Time

	NetRshares         int64
	AbsRshares         int64
	VoteRshares        int64
	ChildrenAbsRshares int64
	NetVotes           int32

	TotalVoteWeight     uint64
	AuctionWindowWeight uint64
	// RewardWeight discounts the payout of root posts made faster than
	// the bandwidth target allows.
	RewardWeight int16

	MaxAcceptedPayout    types.Asset // DEBT
	PercentDebt          int16
	AllowReplies         bool
	AllowVotes           bool
	AllowCurationRewards bool
	Beneficiaries        []Beneficiary
}

func (c *Comment) Copy() state.Object {
	cp := *c
	cp.Beneficiaries = slices.Clone(c.Beneficiaries)
	return &cp
}

func (c *Comment) IsRoot() bool { return c.ParentAuthor == "" }

// HasPaidOut reports whether at least one payout has happened.
func (c *Comment) HasPaidOut() bool { return c.LastPayout != types.MinTime }

// CommentVote is the unique (comment, voter) vote record.
type CommentVote struct {
	Voter    types.AccountName
	Author   types.AccountName
	Permlink string

	Rshares     int64
	VotePercent int16
	// Weight is this vote's share of the curation reward denominator.
	Weight     uint64
	LastUpdate types.Time
	// NumChanges counts edits; -1 marks a vote recorded after payout,
	// which is bookkeeping only and carries no reward weight.
	NumChanges int8
}

func (v *CommentVote) Copy() state.Object {
	cp := *v
	return &cp
}

// Archived reports the post-payout bookkeeping mode.
func (v *CommentVote) Archived() bool { return v.NumChanges == -1 }
