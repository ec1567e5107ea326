package content

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/forumchain/forumchain/chain"
	"github.com/forumchain/forumchain/domain"
	"github.com/forumchain/forumchain/hardfork"
	"github.com/forumchain/forumchain/internal/chaintest"
	"github.com/forumchain/forumchain/types"
)

func post(ctx *chain.ExecutionContext, m *Module, author types.AccountName, permlink string) error {
	return chaintest.Apply(ctx, m, OpComment, &CommentAttributes{
		ParentPermlink: "forum",
		Author:         author,
		Permlink:       permlink,
		Title:          "title",
		Body:           "body",
	})
}

func reply(ctx *chain.ExecutionContext, m *Module, parentAuthor types.AccountName, parentPermlink string, author types.AccountName, permlink string) error {
	return chaintest.Apply(ctx, m, OpComment, &CommentAttributes{
		ParentAuthor:   parentAuthor,
		ParentPermlink: parentPermlink,
		Author:         author,
		Permlink:       permlink,
		Body:           "reply body",
	})
}

func TestCommentCreate(t *testing.T) {
	s := chaintest.NewState(t, "alice", "bob")
	ctx := chaintest.NewContext(t, s, hardfork.Latest)
	m := NewModule()

	require.NoError(t, post(ctx, m, "alice", "first-post"))
	c, err := domain.GetComment(s, "alice", "first-post")
	require.NoError(t, err)
	require.True(t, c.IsRoot())
	require.EqualValues(t, 0, c.Depth)
	require.Equal(t, ctx.Now.AddSeconds(types.CashoutWindowSeconds), c.CashoutTime)
	require.EqualValues(t, types.Percent100, c.RewardWeight)

	acc := chaintest.Account(t, s, "alice")
	require.EqualValues(t, 1, acc.PostCount)
	require.Equal(t, ctx.Now, acc.LastRootPost)

	ctx.Now = ctx.Now.AddSeconds(types.MinReplyIntervalSeconds)
	require.NoError(t, reply(ctx, m, "alice", "first-post", "bob", "re-first"))
	c, err = domain.GetComment(s, "bob", "re-first")
	require.NoError(t, err)
	require.EqualValues(t, 1, c.Depth)

	parent, err := domain.GetComment(s, "alice", "first-post")
	require.NoError(t, err)
	require.EqualValues(t, 1, parent.Children)
	require.Equal(t, ctx.Now, parent.ActiveTime)
}

func TestCommentBandwidth(t *testing.T) {
	s := chaintest.NewState(t, "alice")
	ctx := chaintest.NewContext(t, s, hardfork.Latest)
	m := NewModule()

	require.NoError(t, post(ctx, m, "alice", "one"))

	// a second root post inside the five minute window
	ctx.Now = ctx.Now.AddSeconds(60)
	require.ErrorIs(t, post(ctx, m, "alice", "two"), types.ErrBandwidth)

	// replies only wait twenty seconds
	ctx.Now = ctx.Now.AddSeconds(types.MinReplyIntervalSeconds)
	require.NoError(t, reply(ctx, m, "alice", "one", "alice", "re-one"))
	require.ErrorIs(t, reply(ctx, m, "alice", "one", "alice", "re-two"), types.ErrBandwidth)

	ctx.Now = ctx.Now.AddSeconds(types.MinRootCommentIntervalSeconds)
	require.NoError(t, post(ctx, m, "alice", "two"))
}

func TestCommentDepthLimit(t *testing.T) {
	s := chaintest.NewState(t, "alice")
	ctx := chaintest.NewContext(t, s, hardfork.HF16)
	m := NewModule()

	require.NoError(t, post(ctx, m, "alice", "root"))
	parent := "root"
	for i := 0; i < types.LegacyMaxCommentDepth; i++ {
		ctx.Now = ctx.Now.AddSeconds(types.MinReplyIntervalSeconds)
		permlink := "reply-" + string(rune('a'+i))
		require.NoError(t, reply(ctx, m, "alice", parent, "alice", permlink))
		parent = permlink
	}
	ctx.Now = ctx.Now.AddSeconds(types.MinReplyIntervalSeconds)
	err := reply(ctx, m, "alice", parent, "alice", "too-deep")
	require.True(t, types.IsLogic(err, types.LogicMaxCommentDepth))
}

func TestCommentEdit(t *testing.T) {
	s := chaintest.NewState(t, "alice", "bob")
	ctx := chaintest.NewContext(t, s, hardfork.Latest)
	m := NewModule()

	require.NoError(t, post(ctx, m, "alice", "root"))
	ctx.Now = ctx.Now.AddSeconds(types.MinReplyIntervalSeconds)
	require.NoError(t, reply(ctx, m, "alice", "root", "bob", "re-root"))

	// root posts may be re-categorized
	ctx.Now = ctx.Now.AddSeconds(60)
	err := chaintest.Apply(ctx, m, OpComment, &CommentAttributes{
		ParentPermlink: "other-forum",
		Author:         "alice",
		Permlink:       "root",
		Body:           "edited",
	})
	require.NoError(t, err)
	c, err := domain.GetComment(s, "alice", "root")
	require.NoError(t, err)
	require.Equal(t, "other-forum", c.ParentPermlink)
	require.Equal(t, ctx.Now, c.LastUpdate)

	// replies cannot move in the tree
	err = chaintest.Apply(ctx, m, OpComment, &CommentAttributes{
		ParentAuthor:   "bob",
		ParentPermlink: "root",
		Author:         "bob",
		Permlink:       "re-root",
		Body:           "edited",
	})
	require.True(t, types.IsLogic(err, types.LogicParentCannotChange))
}

func TestVote(t *testing.T) {
	s := chaintest.NewState(t, "alice", "bob")
	ctx := chaintest.NewContext(t, s, hardfork.Latest)
	m := NewModule()
	chaintest.Vest(t, s, "bob", 100_000_000)

	require.NoError(t, post(ctx, m, "alice", "root"))
	// voting past the auction window keeps the full curation weight
	ctx.Now = ctx.Now.AddSeconds(types.ReverseAuctionWindowSeconds)

	err := chaintest.Apply(ctx, m, OpVote, &VoteAttributes{
		Voter: "bob", Author: "alice", Permlink: "root", Weight: types.Percent100,
	})
	require.NoError(t, err)

	c, err := domain.GetComment(s, "alice", "root")
	require.NoError(t, err)
	require.EqualValues(t, 500_000_000, c.NetRshares)
	require.EqualValues(t, 500_000_000, c.AbsRshares)
	require.EqualValues(t, 1, c.NetVotes)
	require.EqualValues(t, 500_000_000, c.ChildrenAbsRshares)

	v, err := domain.GetCommentVote(s, "alice", "root", "bob")
	require.NoError(t, err)
	require.EqualValues(t, 500_000_000, v.Rshares)
	require.NotZero(t, v.Weight)
	require.Equal(t, v.Weight, c.TotalVoteWeight)
	require.EqualValues(t, 0, c.AuctionWindowWeight)

	bob := chaintest.Account(t, s, "bob")
	require.EqualValues(t, int16(types.Percent100)-50, bob.VotingPower)
	require.Equal(t, ctx.Now, bob.LastVoteTime)

	// voting twice in the same breath is rate limited
	err = chaintest.Apply(ctx, m, OpVote, &VoteAttributes{
		Voter: "bob", Author: "alice", Permlink: "root", Weight: types.Percent100 / 2,
	})
	require.ErrorIs(t, err, types.ErrBandwidth)
}

func TestVoteInsideAuctionWindow(t *testing.T) {
	s := chaintest.NewState(t, "alice", "bob")
	ctx := chaintest.NewContext(t, s, hardfork.Latest)
	m := NewModule()
	chaintest.Vest(t, s, "bob", 100_000_000)

	require.NoError(t, post(ctx, m, "alice", "root"))
	err := chaintest.Apply(ctx, m, OpVote, &VoteAttributes{
		Voter: "bob", Author: "alice", Permlink: "root", Weight: types.Percent100,
	})
	require.NoError(t, err)

	// an instant vote forfeits all of its curation weight to the comment
	c, err := domain.GetComment(s, "alice", "root")
	require.NoError(t, err)
	v, err := domain.GetCommentVote(s, "alice", "root", "bob")
	require.NoError(t, err)
	require.EqualValues(t, 0, v.Weight)
	require.NotZero(t, c.TotalVoteWeight)
	require.Equal(t, c.TotalVoteWeight, c.AuctionWindowWeight)
}

func TestVoteDustThreshold(t *testing.T) {
	s := chaintest.NewState(t, "alice", "bob")
	ctx := chaintest.NewContext(t, s, hardfork.Latest)
	m := NewModule()
	chaintest.Vest(t, s, "bob", 1000)

	require.NoError(t, post(ctx, m, "alice", "root"))
	err := chaintest.Apply(ctx, m, OpVote, &VoteAttributes{
		Voter: "bob", Author: "alice", Permlink: "root", Weight: types.Percent100,
	})
	require.True(t, types.IsLogic(err, types.LogicVotingWeightTooSmall))
}

func TestVoteChange(t *testing.T) {
	s := chaintest.NewState(t, "alice", "bob")
	ctx := chaintest.NewContext(t, s, hardfork.Latest)
	m := NewModule()
	chaintest.Vest(t, s, "bob", 100_000_000)

	require.NoError(t, post(ctx, m, "alice", "root"))
	vote := func(weight int16) error {
		ctx.Now = ctx.Now.AddSeconds(types.MinVoteIntervalSeconds)
		return chaintest.Apply(ctx, m, OpVote, &VoteAttributes{
			Voter: "bob", Author: "alice", Permlink: "root", Weight: weight,
		})
	}
	require.NoError(t, vote(types.Percent100))

	err := vote(types.Percent100)
	require.True(t, types.IsLogic(err, types.LogicAlreadyVotedSimilarly))

	// flipping the vote surrenders the curation weight
	require.NoError(t, vote(-types.Percent100))
	v, err := domain.GetCommentVote(s, "alice", "root", "bob")
	require.NoError(t, err)
	require.Negative(t, v.Rshares)
	require.EqualValues(t, 0, v.Weight)
	require.EqualValues(t, 1, v.NumChanges)
	c, err := domain.GetComment(s, "alice", "root")
	require.NoError(t, err)
	require.Negative(t, c.NetRshares)
	require.EqualValues(t, -1, c.NetVotes)

	// the change budget is finite
	for i := 0; i < types.MaxVoteChanges-1; i++ {
		weight := types.Percent100
		if i%2 == 1 {
			weight = -types.Percent100
		}
		require.NoError(t, vote(int16(weight)))
	}
	err = vote(-types.Percent100 / 2)
	require.True(t, types.IsLogic(err, types.LogicMaxVoteChangesUsed))
}

func TestVoteUpvoteLockout(t *testing.T) {
	s := chaintest.NewState(t, "alice", "bob")
	ctx := chaintest.NewContext(t, s, hardfork.Latest)
	m := NewModule()
	chaintest.Vest(t, s, "bob", 100_000_000)

	require.NoError(t, post(ctx, m, "alice", "root"))
	c, err := domain.GetComment(s, "alice", "root")
	require.NoError(t, err)

	ctx.Now = c.CashoutTime.AddSeconds(-types.UpvoteLockoutSeconds / 2)
	err = chaintest.Apply(ctx, m, OpVote, &VoteAttributes{
		Voter: "bob", Author: "alice", Permlink: "root", Weight: types.Percent100,
	})
	require.True(t, types.IsLogic(err, types.LogicUpvoteLockout))

	// downvotes are exempt from the lockout
	err = chaintest.Apply(ctx, m, OpVote, &VoteAttributes{
		Voter: "bob", Author: "alice", Permlink: "root", Weight: -types.Percent100,
	})
	require.NoError(t, err)
}

func TestVoteUpvoteLockoutBeforeVoteRework(t *testing.T) {
	s := chaintest.NewState(t, "alice", "bob")
	ctx := chaintest.NewContext(t, s, hardfork.HF13)
	m := NewModule()
	chaintest.Vest(t, s, "bob", 100_000_000)

	require.NoError(t, post(ctx, m, "alice", "root"))
	c, err := domain.GetComment(s, "alice", "root")
	require.NoError(t, err)
	require.Equal(t, ctx.Now.AddSeconds(types.CashoutWindowSecondsPreHF17), c.CashoutTime)

	// the lockout predates the vote rework
	ctx.Now = c.CashoutTime.AddSeconds(-types.UpvoteLockoutSeconds / 2)
	err = chaintest.Apply(ctx, m, OpVote, &VoteAttributes{
		Voter: "bob", Author: "alice", Permlink: "root", Weight: types.Percent100,
	})
	require.True(t, types.IsLogic(err, types.LogicUpvoteLockout))
}

func TestVoteMovesRootCashout(t *testing.T) {
	s := chaintest.NewState(t, "alice", "bob")
	ctx := chaintest.NewContext(t, s, hardfork.HF16)
	m := NewModule()
	chaintest.Vest(t, s, "bob", 100_000_000)

	require.NoError(t, post(ctx, m, "alice", "root"))
	c, err := domain.GetComment(s, "alice", "root")
	require.NoError(t, err)
	require.Equal(t, ctx.Now.AddSeconds(types.CashoutWindowSecondsPreHF17), c.CashoutTime)
	require.Equal(t, types.MaxTime, c.MaxCashoutTime)

	// the first vote drags cashout out to its own full window and pins
	// the hard ceiling
	ctx.Now = ctx.Now.AddSeconds(60)
	err = chaintest.Apply(ctx, m, OpVote, &VoteAttributes{
		Voter: "bob", Author: "alice", Permlink: "root", Weight: types.Percent100,
	})
	require.NoError(t, err)
	c, err = domain.GetComment(s, "alice", "root")
	require.NoError(t, err)
	require.Equal(t, ctx.Now.AddSeconds(types.CashoutWindowSecondsPreHF12), c.CashoutTime)
	require.Equal(t, ctx.Now.AddSeconds(types.MaxCashoutWindowSeconds), c.MaxCashoutTime)
}

func TestVoteBeforeFloatingCashoutEra(t *testing.T) {
	s := chaintest.NewState(t, "alice", "bob")
	ctx := chaintest.NewContext(t, s, hardfork.HF11)
	m := NewModule()
	chaintest.Vest(t, s, "bob", 100_000_000)

	require.NoError(t, post(ctx, m, "alice", "root"))
	c, err := domain.GetComment(s, "alice", "root")
	require.NoError(t, err)
	require.Equal(t, types.MaxTime, c.CashoutTime)

	// posts from before the floating window never pay out, so votes on
	// them are pure bookkeeping
	err = chaintest.Apply(ctx, m, OpVote, &VoteAttributes{
		Voter: "bob", Author: "alice", Permlink: "root", Weight: types.Percent100,
	})
	require.NoError(t, err)
	v, err := domain.GetCommentVote(s, "alice", "root", "bob")
	require.NoError(t, err)
	require.True(t, v.Archived())
}

func TestVoteCurveBeforeAuctionEra(t *testing.T) {
	s := chaintest.NewState(t, "alice", "bob")
	ctx := chaintest.NewContext(t, s, hardfork.Latest)
	m := NewModule()
	chaintest.Vest(t, s, "bob", 100_000_000)

	// the reverse auction activates only later; this comment predates it
	// and keeps the cubic curve for its whole life
	times := make([]types.Time, hardfork.Latest)
	for v := hardfork.HF6; v <= hardfork.Latest; v++ {
		times[v-1] = chaintest.GenesisTime + 3600
	}
	ctx.Schedule = hardfork.NewSchedule(times)

	require.NoError(t, post(ctx, m, "alice", "root"))
	err := chaintest.Apply(ctx, m, OpVote, &VoteAttributes{
		Voter: "bob", Author: "alice", Permlink: "root", Weight: types.Percent100,
	})
	require.NoError(t, err)

	// rshares cubed over the total squared, with rshares == total
	v, err := domain.GetCommentVote(s, "alice", "root", "bob")
	require.NoError(t, err)
	require.EqualValues(t, 500_000_000, v.Weight)
	c, err := domain.GetComment(s, "alice", "root")
	require.NoError(t, err)
	require.Equal(t, v.Weight, c.TotalVoteWeight)
	require.EqualValues(t, 0, c.AuctionWindowWeight)
}

func TestDownvoteAfterVotingDisabled(t *testing.T) {
	s := chaintest.NewState(t, "alice", "bob")
	ctx := chaintest.NewContext(t, s, hardfork.Latest)
	m := NewModule()
	chaintest.Vest(t, s, "bob", 100_000_000)

	require.NoError(t, post(ctx, m, "alice", "root"))
	err := chaintest.Apply(ctx, m, OpCommentOptions, &CommentOptionsAttributes{
		Author:               "alice",
		Permlink:             "root",
		MaxAcceptedPayout:    types.DebtAsset(types.MaxAcceptedPayoutAmount),
		PercentDebt:          types.Percent100,
		AllowVotes:           false,
		AllowCurationRewards: true,
	})
	require.NoError(t, err)

	err = chaintest.Apply(ctx, m, OpVote, &VoteAttributes{
		Voter: "bob", Author: "alice", Permlink: "root", Weight: types.Percent100,
	})
	require.True(t, types.IsLogic(err, types.LogicVotesNotAllowed))

	// downvotes stay legal
	err = chaintest.Apply(ctx, m, OpVote, &VoteAttributes{
		Voter: "bob", Author: "alice", Permlink: "root", Weight: -types.Percent100,
	})
	require.NoError(t, err)
	c, err := domain.GetComment(s, "alice", "root")
	require.NoError(t, err)
	require.Negative(t, c.NetRshares)
}

func TestVoteRegenerationMisconfigured(t *testing.T) {
	s := chaintest.NewState(t, "alice", "bob")
	ctx := chaintest.NewContext(t, s, hardfork.Latest)
	m := NewModule()
	chaintest.Vest(t, s, "bob", 100_000_000)

	require.NoError(t, post(ctx, m, "alice", "root"))
	require.NoError(t, s.Apply(domain.UpdateGlobalProperties(func(g *domain.GlobalProperties) {
		g.VoteRegenerationPerDay = 0
	})))

	err := chaintest.Apply(ctx, m, OpVote, &VoteAttributes{
		Voter: "bob", Author: "alice", Permlink: "root", Weight: types.Percent100,
	})
	require.ErrorContains(t, err, "denominator")
}

func TestChallengedAccountContentFreeze(t *testing.T) {
	s := chaintest.NewState(t, "alice")
	ctx := chaintest.NewContext(t, s, hardfork.Latest)
	m := NewModule()

	require.NoError(t, post(ctx, m, "alice", "root"))
	require.NoError(t, s.Apply(domain.UpdateAccount("alice", func(a *domain.Account) {
		a.OwnerChallenged = true
	})))

	ctx.Now = ctx.Now.AddSeconds(types.MinRootCommentIntervalSeconds)
	err := post(ctx, m, "alice", "other")
	require.True(t, types.IsLogic(err, types.LogicAccountChallenged))

	err = chaintest.Apply(ctx, m, OpCommentOptions, &CommentOptionsAttributes{
		Author:               "alice",
		Permlink:             "root",
		MaxAcceptedPayout:    types.DebtAsset(types.MaxAcceptedPayoutAmount),
		PercentDebt:          types.Percent100,
		AllowVotes:           true,
		AllowCurationRewards: true,
	})
	require.True(t, types.IsLogic(err, types.LogicAccountChallenged))

	err = chaintest.Apply(ctx, m, OpDeleteComment, &DeleteCommentAttributes{
		Author: "alice", Permlink: "root",
	})
	require.True(t, types.IsLogic(err, types.LogicAccountChallenged))

	// the freeze only arrived with the challenge hardfork
	old := chaintest.NewContext(t, s, hardfork.HF6)
	old.Now = ctx.Now
	require.NoError(t, post(old, m, "alice", "vintage"))
}

func TestCommentReferralBeneficiary(t *testing.T) {
	s := chaintest.NewState(t, "alice", "bob", "carol")
	ctx := chaintest.NewContext(t, s, hardfork.Latest)
	m := NewModule()

	require.NoError(t, s.Apply(domain.UpdateAccount("alice", func(a *domain.Account) {
		a.Referrer = "carol"
		a.ReferrerInterestRate = 1000
		a.ReferralEndDate = ctx.Now.AddSeconds(3600)
	})))

	// posts under an active referral contract share rewards with the
	// referrer from the start
	require.NoError(t, post(ctx, m, "alice", "root"))
	c, err := domain.GetComment(s, "alice", "root")
	require.NoError(t, err)
	require.Equal(t, []domain.Beneficiary{{Account: "carol", Weight: 1000}}, c.Beneficiaries)

	// the lone referral share may still be extended with a regular list
	options := func(permlink string, beneficiaries []domain.Beneficiary) error {
		return chaintest.Apply(ctx, m, OpCommentOptions, &CommentOptionsAttributes{
			Author:               "alice",
			Permlink:             permlink,
			MaxAcceptedPayout:    types.DebtAsset(types.MaxAcceptedPayoutAmount),
			PercentDebt:          types.Percent100,
			AllowVotes:           true,
			AllowCurationRewards: true,
			Beneficiaries:        beneficiaries,
		})
	}
	require.NoError(t, options("root", []domain.Beneficiary{{Account: "bob", Weight: 500}}))
	c, err = domain.GetComment(s, "alice", "root")
	require.NoError(t, err)
	require.Equal(t, []domain.Beneficiary{
		{Account: "carol", Weight: 1000},
		{Account: "bob", Weight: 500},
	}, c.Beneficiaries)

	// but never doubled up with the referrer again
	ctx.Now = ctx.Now.AddSeconds(types.MinRootCommentIntervalSeconds)
	require.NoError(t, post(ctx, m, "alice", "second"))
	err = options("second", []domain.Beneficiary{{Account: "carol", Weight: 500}})
	require.True(t, types.IsLogic(err, types.LogicBeneficiariesNotUnique))
}

func TestCommentReferralExpiry(t *testing.T) {
	s := chaintest.NewState(t, "alice", "carol")
	ctx := chaintest.NewContext(t, s, hardfork.Latest)
	m := NewModule()

	require.NoError(t, s.Apply(domain.UpdateAccount("alice", func(a *domain.Account) {
		a.Referrer = "carol"
		a.ReferrerInterestRate = 1000
		a.ReferralEndDate = chaintest.GenesisTime
		a.ReferralBreakFee = types.CoreAsset(50)
	})))

	// the first post past the end date retires the lapsed contract
	require.NoError(t, post(ctx, m, "alice", "root"))
	c, err := domain.GetComment(s, "alice", "root")
	require.NoError(t, err)
	require.Empty(t, c.Beneficiaries)

	acc := chaintest.Account(t, s, "alice")
	require.Empty(t, acc.Referrer)
	require.EqualValues(t, 0, acc.ReferrerInterestRate)
	require.Equal(t, types.MinTime, acc.ReferralEndDate)
	require.EqualValues(t, 0, acc.ReferralBreakFee.Amount)
}

func TestCommentOptionsBeforeFixedCashout(t *testing.T) {
	s := chaintest.NewState(t, "alice", "bob")
	ctx := chaintest.NewContext(t, s, hardfork.HF6)
	m := NewModule()

	require.NoError(t, post(ctx, m, "alice", "root"))
	err := chaintest.Apply(ctx, m, OpCommentOptions, &CommentOptionsAttributes{
		Author:               "alice",
		Permlink:             "root",
		MaxAcceptedPayout:    types.DebtAsset(types.MaxAcceptedPayoutAmount),
		PercentDebt:          types.Percent100,
		AllowVotes:           true,
		AllowCurationRewards: true,
		Beneficiaries:        []domain.Beneficiary{{Account: "bob", Weight: 1000}},
	})
	require.NoError(t, err)
	c, err := domain.GetComment(s, "alice", "root")
	require.NoError(t, err)
	require.Len(t, c.Beneficiaries, 1)
}

func TestVoteOnArchivedComment(t *testing.T) {
	s := chaintest.NewState(t, "alice", "bob")
	ctx := chaintest.NewContext(t, s, hardfork.Latest)
	m := NewModule()
	chaintest.Vest(t, s, "bob", 100_000_000)

	require.NoError(t, post(ctx, m, "alice", "root"))
	require.NoError(t, s.Apply(domain.UpdateComment("alice", "root", func(c *domain.Comment) {
		c.CashoutTime = types.MaxTime
	})))

	powerBefore := chaintest.Account(t, s, "bob").VotingPower
	err := chaintest.Apply(ctx, m, OpVote, &VoteAttributes{
		Voter: "bob", Author: "alice", Permlink: "root", Weight: types.Percent100,
	})
	require.NoError(t, err)

	// bookkeeping only: no power cost, no rshares, no curation weight
	v, err := domain.GetCommentVote(s, "alice", "root", "bob")
	require.NoError(t, err)
	require.True(t, v.Archived())
	require.EqualValues(t, 0, v.Rshares)
	require.Equal(t, powerBefore, chaintest.Account(t, s, "bob").VotingPower)

	// repeating or changing the vote only refreshes the record
	ctx.Now = ctx.Now.AddSeconds(60)
	err = chaintest.Apply(ctx, m, OpVote, &VoteAttributes{
		Voter: "bob", Author: "alice", Permlink: "root", Weight: types.Percent100 / 2,
	})
	require.NoError(t, err)
	v, err = domain.GetCommentVote(s, "alice", "root", "bob")
	require.NoError(t, err)
	require.True(t, v.Archived())
	require.EqualValues(t, types.Percent100/2, v.VotePercent)
	require.Equal(t, ctx.Now, v.LastUpdate)
	require.EqualValues(t, 0, v.Rshares)
}

func TestCommentOptions(t *testing.T) {
	s := chaintest.NewState(t, "alice", "bob", "carol")
	ctx := chaintest.NewContext(t, s, hardfork.Latest)
	m := NewModule()
	chaintest.Vest(t, s, "bob", 100_000_000)

	require.NoError(t, post(ctx, m, "alice", "root"))

	options := func(payout int64, beneficiaries []domain.Beneficiary) error {
		return chaintest.Apply(ctx, m, OpCommentOptions, &CommentOptionsAttributes{
			Author:               "alice",
			Permlink:             "root",
			MaxAcceptedPayout:    types.DebtAsset(payout),
			PercentDebt:          types.Percent100,
			AllowVotes:           true,
			AllowCurationRewards: true,
			Beneficiaries:        beneficiaries,
		})
	}

	require.NoError(t, options(1_000_000, []domain.Beneficiary{{Account: "carol", Weight: 1500}}))
	c, err := domain.GetComment(s, "alice", "root")
	require.NoError(t, err)
	require.EqualValues(t, 1_000_000, c.MaxAcceptedPayout.Amount)
	require.Len(t, c.Beneficiaries, 1)

	// raising the cap back is not allowed
	err = options(2_000_000, nil)
	require.True(t, types.IsLogic(err, types.LogicCannotAcceptGreaterPayout))

	// beneficiaries are write-once
	err = options(1_000_000, []domain.Beneficiary{{Account: "bob", Weight: 100}})
	require.True(t, types.IsLogic(err, types.LogicAlreadyHasBeneficiaries))

	// once votes arrive the terms are frozen
	err = chaintest.Apply(ctx, m, OpVote, &VoteAttributes{
		Voter: "bob", Author: "alice", Permlink: "root", Weight: types.Percent100,
	})
	require.NoError(t, err)
	err = options(500_000, nil)
	require.True(t, types.IsLogic(err, types.LogicOptionsRequireNoRshares))
}

func TestCommentOptionsValidate(t *testing.T) {
	s := chaintest.NewState(t, "alice", "bob", "carol")
	ctx := chaintest.NewContext(t, s, hardfork.Latest)
	m := NewModule()

	require.NoError(t, post(ctx, m, "alice", "root"))
	err := chaintest.Apply(ctx, m, OpCommentOptions, &CommentOptionsAttributes{
		Author:               "alice",
		Permlink:             "root",
		MaxAcceptedPayout:    types.DebtAsset(1000),
		PercentDebt:          types.Percent100,
		AllowVotes:           true,
		AllowCurationRewards: true,
		Beneficiaries: []domain.Beneficiary{
			{Account: "carol", Weight: 100},
			{Account: "bob", Weight: 100},
		},
	})
	require.True(t, types.IsLogic(err, types.LogicBeneficiariesNotUnique))
}

func TestDeleteComment(t *testing.T) {
	s := chaintest.NewState(t, "alice", "bob")
	ctx := chaintest.NewContext(t, s, hardfork.Latest)
	m := NewModule()
	chaintest.Vest(t, s, "bob", 100_000_000)

	require.NoError(t, post(ctx, m, "alice", "root"))
	ctx.Now = ctx.Now.AddSeconds(types.MinReplyIntervalSeconds)
	require.NoError(t, reply(ctx, m, "alice", "root", "bob", "re-root"))

	err := chaintest.Apply(ctx, m, OpDeleteComment, &DeleteCommentAttributes{
		Author: "alice", Permlink: "root",
	})
	require.True(t, types.IsLogic(err, types.LogicCannotDeleteWithReplies))

	// producers refuse deleting an upvoted reply; on replay the operation
	// degrades to a no-op so blocks carrying it stay valid
	err = chaintest.Apply(ctx, m, OpVote, &VoteAttributes{
		Voter: "bob", Author: "bob", Permlink: "re-root", Weight: types.Percent100,
	})
	require.NoError(t, err)
	producing := chaintest.NewContext(t, s, hardfork.Latest)
	producing.HF = hardfork.NewSet(hardfork.Latest, true)
	producing.Now = ctx.Now
	err = chaintest.Apply(producing, m, OpDeleteComment, &DeleteCommentAttributes{
		Author: "bob", Permlink: "re-root",
	})
	require.True(t, types.IsLogic(err, types.LogicCannotDeleteWithVotes))
	err = chaintest.Apply(ctx, m, OpDeleteComment, &DeleteCommentAttributes{
		Author: "bob", Permlink: "re-root",
	})
	require.NoError(t, err)
	require.True(t, domain.HasComment(s, "bob", "re-root"))

	// flipping the vote down clears the obstacle
	ctx.Now = ctx.Now.AddSeconds(types.MinVoteIntervalSeconds)
	err = chaintest.Apply(ctx, m, OpVote, &VoteAttributes{
		Voter: "bob", Author: "bob", Permlink: "re-root", Weight: -types.Percent100,
	})
	require.NoError(t, err)
	err = chaintest.Apply(ctx, m, OpDeleteComment, &DeleteCommentAttributes{
		Author: "bob", Permlink: "re-root",
	})
	require.NoError(t, err)
	require.False(t, domain.HasComment(s, "bob", "re-root"))
	require.False(t, domain.HasCommentVote(s, "bob", "re-root", "bob"))

	c, err := domain.GetComment(s, "alice", "root")
	require.NoError(t, err)
	require.EqualValues(t, 0, c.Children)

	err = chaintest.Apply(ctx, m, OpDeleteComment, &DeleteCommentAttributes{
		Author: "alice", Permlink: "root",
	})
	require.NoError(t, err)
	require.False(t, domain.HasComment(s, "alice", "root"))
}
