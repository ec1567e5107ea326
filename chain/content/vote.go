package content

import (
	"fmt"

	"github.com/forumchain/forumchain/chain"
	"github.com/forumchain/forumchain/domain"
	"github.com/forumchain/forumchain/hardfork"
	"github.com/forumchain/forumchain/state"
	"github.com/forumchain/forumchain/types"
	"github.com/forumchain/forumchain/util"
)

func validateVote(attr *VoteAttributes) error {
	if err := types.ValidateAccountName(attr.Voter); err != nil {
		return err
	}
	if err := types.ValidateAccountName(attr.Author); err != nil {
		return err
	}
	if err := validatePermlink("permlink", attr.Permlink); err != nil {
		return err
	}
	if attr.Weight < -types.Percent100 || attr.Weight > types.Percent100 {
		return &types.InvalidParameterError{Param: "weight", Reason: "weight out of range"}
	}
	return nil
}

func (m *Module) applyVote(ctx *chain.ExecutionContext, attr *VoteAttributes) error {
	c, err := domain.GetComment(ctx.State, attr.Author, attr.Permlink)
	if err != nil {
		return err
	}
	voter, err := domain.GetAccount(ctx.State, attr.Voter)
	if err != nil {
		return err
	}
	if voter.OwnerChallenged || voter.ActiveChallenged {
		return types.Logic(types.LogicAccountChallenged, "operation not allowed while the account is challenged")
	}
	if !voter.CanVote {
		return types.Logic(types.LogicVoterDeclinedVotingRights,
			"account %q has declined its voting rights", attr.Voter)
	}
	// Downvotes stay legal on comments that disabled voting.
	if attr.Weight > 0 && !c.AllowVotes {
		return types.Logic(types.LogicVotesNotAllowed, "votes are not allowed on this comment")
	}
	payout, err := m.discussionPayoutTime(ctx, c)
	if err != nil {
		return err
	}
	if payout == types.MaxTime {
		return m.recordArchivedVote(ctx, attr)
	}
	err = types.CheckBandwidth(ctx.Now, voter.LastVoteTime.AddSeconds(types.MinVoteIntervalSeconds),
		types.VoteBandwidth, "can only vote once every 3 seconds")
	if err != nil {
		return err
	}

	gp, err := ctx.Globals()
	if err != nil {
		return err
	}
	elapsed := ctx.Now.SecondsSince(voter.LastVoteTime)
	currentPower := util.Min(
		int64(voter.VotingPower)+int64(types.Percent100)*elapsed/types.VoteRegenerationSeconds,
		int64(types.Percent100),
	)
	if currentPower <= 0 {
		return types.Logic(types.LogicNoVotingPower, "account does not have any voting power")
	}
	absWeight := int64(attr.Weight)
	if absWeight < 0 {
		absWeight = -absWeight
	}
	usedPower := currentPower * absWeight / int64(types.Percent100)

	// Spreads a full-power voter's budget across the target number of
	// full votes per regeneration period.
	maxVoteDenom := int64(gp.VoteRegenerationPerDay) * types.VoteRegenerationSeconds / (60 * 60 * 24)
	if maxVoteDenom <= 0 {
		return fmt.Errorf("vote power denominator is not positive (vote_regeneration_per_day %d)",
			gp.VoteRegenerationPerDay)
	}
	if ctx.HF.Has(hardfork.HF14) {
		usedPower = (usedPower + maxVoteDenom - 1) / maxVoteDenom
	} else {
		usedPower = usedPower/maxVoteDenom + 1
	}
	if usedPower > currentPower {
		return types.Logic(types.LogicNoVotingPower, "account does not have enough voting power")
	}

	absRshares := types.MulDivWide(voter.EffectiveVestingShares().Amount, usedPower, int64(types.Percent100))
	if !ctx.HF.Has(hardfork.HF14) && absRshares == 0 {
		absRshares = 1
	}
	switch {
	case ctx.HF.Has(hardfork.HF14):
		if absRshares <= types.VoteDustThreshold && attr.Weight != 0 {
			return types.Logic(types.LogicVotingWeightTooSmall, "voting weight is too small, please accumulate more stake")
		}
	case ctx.HF.Has(hardfork.HF13):
		if absRshares <= types.VoteDustThreshold && absRshares != 1 {
			return types.Logic(types.LogicVotingWeightTooSmall, "voting weight is too small, please accumulate more stake")
		}
	}

	if !domain.HasCommentVote(ctx.State, attr.Author, attr.Permlink, attr.Voter) {
		return m.castVote(ctx, c, attr, payout, currentPower, usedPower, absRshares)
	}
	return m.changeVote(ctx, c, attr, payout, currentPower, usedPower, absRshares)
}

func (m *Module) castVote(ctx *chain.ExecutionContext, c *domain.Comment, attr *VoteAttributes, payout types.Time, currentPower, usedPower, absRshares int64) error {
	if attr.Weight == 0 {
		return &types.InvalidParameterError{Param: "weight", Reason: "vote weight cannot be 0"}
	}
	rshares := absRshares
	if attr.Weight < 0 {
		rshares = -rshares
	}
	if rshares > 0 && !ctx.Now.Before(payout.AddSeconds(-types.UpvoteLockoutSeconds)) {
		return types.Logic(types.LogicUpvoteLockout, "cannot increase payout within the last minute before payout")
	}
	if absRshares <= 0 {
		return types.Logic(types.LogicCannotVoteWithZeroRshares, "cannot vote with 0 rshares")
	}

	now := ctx.Now
	err := ctx.State.Apply(domain.UpdateAccount(attr.Voter, func(a *domain.Account) {
		a.VotingPower = int16(currentPower - usedPower)
		a.LastVoteTime = now
	}))
	if err != nil {
		return err
	}

	oldVoteRshares := c.VoteRshares
	err = ctx.State.Apply(domain.UpdateComment(attr.Author, attr.Permlink, func(cm *domain.Comment) {
		cm.NetRshares += rshares
		cm.AbsRshares += absRshares
		if rshares > 0 {
			cm.VoteRshares += rshares
			cm.NetVotes++
		} else {
			cm.NetVotes--
		}
	}))
	if err != nil {
		return err
	}
	if err := m.updateRootCashout(ctx, c, absRshares); err != nil {
		return err
	}
	c, err = domain.GetComment(ctx.State, attr.Author, attr.Permlink)
	if err != nil {
		return err
	}

	// Only votes cast before the first payout earn curation weight. The
	// curve follows the comment's creation time relative to the reverse
	// auction activation, not the block being applied: comments from
	// before it keep the cubic curve for their whole life.
	var weight, maxWeight uint64
	if rshares > 0 && !c.HasPaidOut() && c.AllowCurationRewards {
		auctionStart := ctx.HardforkTime(hardfork.HF6)
		scaled := !ctx.HF.Has(hardfork.HF1)
		if c.Created.Before(auctionStart) {
			maxWeight = cubicWeight(rshares, c.AbsRshares, scaled)
		} else {
			maxWeight = curveWeight(c.VoteRshares, scaled) - curveWeight(oldVoteRshares, scaled)
		}
		weight = maxWeight
		if ctx.Now.After(auctionStart) {
			window := int64(types.ReverseAuctionWindowSeconds)
			if ctx.HF.Has(hardfork.HF19) {
				props, err := ctx.MedianProps()
				if err != nil {
					return err
				}
				window = int64(props.AuctionWindowSize)
			}
			weight = auctionDiscount(maxWeight, now.SecondsSince(c.Created), window)
		}
		discount := maxWeight - weight
		err = ctx.State.Apply(domain.UpdateComment(attr.Author, attr.Permlink, func(cm *domain.Comment) {
			cm.TotalVoteWeight += maxWeight
			if ctx.HF.Has(hardfork.HF19) {
				cm.AuctionWindowWeight += discount
			}
		}))
		if err != nil {
			return err
		}
	}

	return ctx.State.Apply(state.AddObject(
		domain.CommentVoteKey(attr.Author, attr.Permlink, attr.Voter),
		&domain.CommentVote{
			Voter:       attr.Voter,
			Author:      attr.Author,
			Permlink:    attr.Permlink,
			Rshares:     rshares,
			VotePercent: attr.Weight,
			Weight:      weight,
			LastUpdate:  now,
		},
	))
}

func (m *Module) changeVote(ctx *chain.ExecutionContext, c *domain.Comment, attr *VoteAttributes, payout types.Time, currentPower, usedPower, absRshares int64) error {
	v, err := domain.GetCommentVote(ctx.State, attr.Author, attr.Permlink, attr.Voter)
	if err != nil {
		return err
	}
	if int(v.NumChanges) >= types.MaxVoteChanges {
		return types.Logic(types.LogicMaxVoteChangesUsed, "voter has used the maximum number of vote changes")
	}
	if v.VotePercent == attr.Weight {
		return types.Logic(types.LogicAlreadyVotedSimilarly, "the vote is unchanged")
	}
	rshares := absRshares
	if attr.Weight < 0 {
		rshares = -rshares
	}
	if v.Rshares < rshares && !ctx.Now.Before(payout.AddSeconds(-types.UpvoteLockoutSeconds)) {
		return types.Logic(types.LogicUpvoteLockout, "cannot increase payout within the last minute before payout")
	}

	now := ctx.Now
	err = ctx.State.Apply(domain.UpdateAccount(attr.Voter, func(a *domain.Account) {
		a.VotingPower = int16(currentPower - usedPower)
		a.LastVoteTime = now
	}))
	if err != nil {
		return err
	}

	oldRshares, oldWeight := v.Rshares, v.Weight
	err = ctx.State.Apply(domain.UpdateComment(attr.Author, attr.Permlink, func(cm *domain.Comment) {
		cm.NetRshares += rshares - oldRshares
		cm.AbsRshares += absRshares
		cm.TotalVoteWeight -= oldWeight
		switch {
		case rshares > 0 && oldRshares < 0:
			cm.NetVotes += 2
		case rshares > 0 && oldRshares == 0:
			cm.NetVotes++
		case rshares == 0 && oldRshares < 0:
			cm.NetVotes++
		case rshares == 0 && oldRshares > 0:
			cm.NetVotes--
		case rshares < 0 && oldRshares == 0:
			cm.NetVotes--
		case rshares < 0 && oldRshares > 0:
			cm.NetVotes -= 2
		}
	}))
	if err != nil {
		return err
	}
	if err := m.updateRootCashout(ctx, c, absRshares); err != nil {
		return err
	}

	// A changed vote surrenders its curation weight for good.
	return ctx.State.Apply(state.UpdateObject(
		domain.CommentVoteKey(attr.Author, attr.Permlink, attr.Voter),
		func(obj state.Object) (state.Object, error) {
			cv := obj.(*domain.CommentVote)
			cv.Rshares = rshares
			cv.VotePercent = attr.Weight
			cv.Weight = 0
			cv.LastUpdate = now
			cv.NumChanges++
			return cv, nil
		},
	))
}

// updateRootCashout folds a vote's rshares into the root post's payout
// scheduling. From the fixed-window era on, cashout no longer moves with
// votes and only the rolling total is kept.
func (m *Module) updateRootCashout(ctx *chain.ExecutionContext, c *domain.Comment, absRshares int64) error {
	root, err := m.rootOf(ctx, c)
	if err != nil {
		return err
	}
	if ctx.HF.Has(hardfork.HF17) {
		return ctx.State.Apply(domain.UpdateComment(root.Author, root.Permlink, func(r *domain.Comment) {
			r.ChildrenAbsRshares += absRshares
		}))
	}
	window := int64(types.CashoutWindowSecondsPreHF12)
	if ctx.HF.Has(hardfork.HF12) && !ctx.HF.Has(hardfork.HF13) {
		window = types.CashoutWindowSecondsPreHF17
	}
	var cashout types.Time
	if ctx.HF.Has(hardfork.HF12) && root.HasPaidOut() {
		cashout = root.LastPayout.AddSeconds(types.SecondCashoutWindowSeconds)
	} else if ctx.HF.Has(hardfork.HF14) && absRshares == 0 {
		cashout = types.MinOfTime(root.CashoutTime, root.MaxCashoutTime)
	} else {
		avg := weightedAvgCashout(
			root.CashoutTime.Unix(), root.ChildrenAbsRshares,
			ctx.Now.Unix()+window, absRshares,
		)
		cashout = types.MinOfTime(avg, root.MaxCashoutTime)
	}
	maxCashout := root.MaxCashoutTime
	if maxCashout == types.MaxTime {
		maxCashout = ctx.Now.AddSeconds(types.MaxCashoutWindowSeconds)
	}
	return ctx.State.Apply(domain.UpdateComment(root.Author, root.Permlink, func(r *domain.Comment) {
		r.ChildrenAbsRshares += absRshares
		r.CashoutTime = cashout
		r.MaxCashoutTime = maxCashout
	}))
}

func (m *Module) rootOf(ctx *chain.ExecutionContext, c *domain.Comment) (*domain.Comment, error) {
	for !c.IsRoot() {
		parent, err := domain.GetComment(ctx.State, c.ParentAuthor, c.ParentPermlink)
		if err != nil {
			return nil, err
		}
		c = parent
	}
	return c, nil
}

// discussionPayoutTime is the moment the comment's rewards pay out: its
// own cashout time from the fixed-window era on, before that the root
// post's, since replies paid out together with their root.
func (m *Module) discussionPayoutTime(ctx *chain.ExecutionContext, c *domain.Comment) (types.Time, error) {
	if ctx.HF.Has(hardfork.HF17) || c.IsRoot() {
		return c.CashoutTime, nil
	}
	root, err := m.rootOf(ctx, c)
	if err != nil {
		return types.MaxTime, err
	}
	return root.CashoutTime, nil
}

// recordArchivedVote books a vote on a comment past its payout window:
// pure bookkeeping, no power cost, no rshares, no reward weight. The
// vote row is marked for cleanup and only tracks the latest percent.
func (m *Module) recordArchivedVote(ctx *chain.ExecutionContext, attr *VoteAttributes) error {
	now := ctx.Now
	if domain.HasCommentVote(ctx.State, attr.Author, attr.Permlink, attr.Voter) {
		return ctx.State.Apply(state.UpdateObject(
			domain.CommentVoteKey(attr.Author, attr.Permlink, attr.Voter),
			func(obj state.Object) (state.Object, error) {
				cv := obj.(*domain.CommentVote)
				cv.VotePercent = attr.Weight
				cv.LastUpdate = now
				return cv, nil
			},
		))
	}
	return ctx.State.Apply(state.AddObject(
		domain.CommentVoteKey(attr.Author, attr.Permlink, attr.Voter),
		&domain.CommentVote{
			Voter:       attr.Voter,
			Author:      attr.Author,
			Permlink:    attr.Permlink,
			VotePercent: attr.Weight,
			LastUpdate:  now,
			NumChanges:  -1,
		},
	))
}
