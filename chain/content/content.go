// Package content implements the content graph: posts and replies with
// their posting rate limits, payout option restrictions, deletion rules
// and stake-weighted voting with curation reward weights.
package content

import (
	"github.com/forumchain/forumchain/chain"
	"github.com/forumchain/forumchain/domain"
	"github.com/forumchain/forumchain/hardfork"
	"github.com/forumchain/forumchain/state"
	"github.com/forumchain/forumchain/types"
	"github.com/forumchain/forumchain/util"
)

const (
	OpComment        = "comment"
	OpCommentOptions = "comment_options"
	OpDeleteComment  = "delete_comment"
	OpVote           = "vote"

	MaxPermlinkLength = 256
	MaxTitleLength    = 256
)

type (
	CommentAttributes struct {
		_              struct{} `cbor:",toarray"`
		ParentAuthor   types.AccountName
		ParentPermlink string
		Author         types.AccountName
		Permlink       string
		Title          string
		Body           string
		JSONMetadata   string
	}

	CommentOptionsAttributes struct {
		_                    struct{} `cbor:",toarray"`
		Author               types.AccountName
		Permlink             string
		MaxAcceptedPayout    types.Asset // DEBT
		PercentDebt          int16
		AllowVotes           bool
		AllowCurationRewards bool
		Beneficiaries        []domain.Beneficiary
	}

	DeleteCommentAttributes struct {
		_        struct{} `cbor:",toarray"`
		Author   types.AccountName
		Permlink string
	}

	VoteAttributes struct {
		_        struct{} `cbor:",toarray"`
		Voter    types.AccountName
		Author   types.AccountName
		Permlink string
		Weight   int16
	}

	Module struct{}
)

func NewModule() *Module { return &Module{} }

func (m *Module) OpHandlers() map[string]chain.OpExecutor {
	return map[string]chain.OpExecutor{
		OpComment:        chain.NewOpHandler(validateComment, m.applyComment),
		OpCommentOptions: chain.NewOpHandler(validateCommentOptions, m.applyCommentOptions),
		OpDeleteComment:  chain.NewOpHandler(validateDeleteComment, m.applyDeleteComment),
		OpVote:           chain.NewOpHandler(validateVote, m.applyVote),
	}
}

func validatePermlink(param, permlink string) error {
	if permlink == "" || len(permlink) > MaxPermlinkLength {
		return &types.InvalidParameterError{Param: param, Reason: "permlink must be 1 to 256 characters"}
	}
	for i := 0; i < len(permlink); i++ {
		c := permlink[i]
		if (c < 'a' || c > 'z') && (c < '0' || c > '9') && c != '-' {
			return &types.InvalidParameterError{Param: param, Reason: "permlink may only contain lowercase letters, digits and dashes"}
		}
	}
	return nil
}

func validateComment(attr *CommentAttributes) error {
	if err := types.ValidateAccountName(attr.Author); err != nil {
		return err
	}
	if err := validatePermlink("permlink", attr.Permlink); err != nil {
		return err
	}
	if attr.ParentAuthor != "" {
		if err := types.ValidateAccountName(attr.ParentAuthor); err != nil {
			return err
		}
	}
	if err := validatePermlink("parent_permlink", attr.ParentPermlink); err != nil {
		return err
	}
	if len(attr.Title) > MaxTitleLength {
		return &types.InvalidParameterError{Param: "title", Reason: "title is too long"}
	}
	if attr.Body == "" {
		return &types.InvalidParameterError{Param: "body", Reason: "body cannot be empty"}
	}
	if len(attr.JSONMetadata) > types.MaxJSONSize {
		return &types.InvalidParameterError{Param: "json_metadata", Reason: "metadata is too large"}
	}
	return nil
}

// checkNotChallenged rejects content operations from challenged accounts
// once the challenge freeze applies.
func checkNotChallenged(ctx *chain.ExecutionContext, acc *domain.Account) error {
	if ctx.HF.Has(hardfork.HF10) && (acc.OwnerChallenged || acc.ActiveChallenged) {
		return types.Logic(types.LogicAccountChallenged, "operation not allowed while the account is challenged")
	}
	return nil
}

func (m *Module) applyComment(ctx *chain.ExecutionContext, attr *CommentAttributes) error {
	acc, err := domain.GetAccount(ctx.State, attr.Author)
	if err != nil {
		return err
	}
	if err := checkNotChallenged(ctx, acc); err != nil {
		return err
	}

	var parent *domain.Comment
	if attr.ParentAuthor != "" {
		parent, err = domain.GetComment(ctx.State, attr.ParentAuthor, attr.ParentPermlink)
		if err != nil {
			return err
		}
		if err := checkCommentDepth(ctx, parent); err != nil {
			return err
		}
	}

	if domain.HasComment(ctx.State, attr.Author, attr.Permlink) {
		return m.editComment(ctx, attr)
	}
	return m.createComment(ctx, acc, parent, attr)
}

func checkCommentDepth(ctx *chain.ExecutionContext, parent *domain.Comment) error {
	switch {
	case ctx.HF.Has(hardfork.HF17):
		if parent.Depth >= types.MaxCommentDepth {
			return types.Logic(types.LogicMaxCommentDepth, "comment is nested too deeply")
		}
		if ctx.HF.Producing() && parent.Depth >= types.SoftMaxCommentDepth {
			return types.Logic(types.LogicMaxCommentDepth, "comment is nested too deeply")
		}
	default:
		if parent.Depth >= types.LegacyMaxCommentDepth {
			return types.Logic(types.LogicMaxCommentDepth, "comment is nested too deeply")
		}
	}
	return nil
}

func (m *Module) createComment(ctx *chain.ExecutionContext, acc *domain.Account, parent *domain.Comment, attr *CommentAttributes) error {
	rewardWeight, err := m.checkPostingBandwidth(ctx, acc, parent == nil)
	if err != nil {
		return err
	}

	now := ctx.Now
	isRoot := parent == nil
	err = ctx.State.Apply(domain.UpdateAccount(attr.Author, func(a *domain.Account) {
		a.LastPost = now
		a.PostCount++
		if isRoot {
			a.LastRootPost = now
		}
	}))
	if err != nil {
		return err
	}

	c := &domain.Comment{
		Author:               attr.Author,
		Permlink:             attr.Permlink,
		ParentAuthor:         attr.ParentAuthor,
		ParentPermlink:       attr.ParentPermlink,
		Created:              now,
		LastUpdate:           now,
		ActiveTime:           now,
		CashoutTime:          types.MaxTime,
		MaxCashoutTime:       types.MaxTime,
		RewardWeight:         rewardWeight,
		MaxAcceptedPayout:    types.DebtAsset(types.MaxAcceptedPayoutAmount),
		PercentDebt:          types.Percent100,
		AllowReplies:         true,
		AllowVotes:           true,
		AllowCurationRewards: true,
	}
	if parent != nil {
		c.Depth = parent.Depth + 1
		if !parent.AllowReplies {
			return types.Logic(types.LogicRepliesNotAllowed, "replies are not allowed on this comment")
		}
	}
	// Roots of the floating-cashout era start one short window out and
	// get dragged by votes; replies ride their root. The fixed window
	// overrides both.
	if parent == nil && ctx.HF.Has(hardfork.HF12) {
		c.CashoutTime = now.AddSeconds(types.CashoutWindowSecondsPreHF17)
	}
	if ctx.HF.Has(hardfork.HF17) {
		c.CashoutTime = now.AddSeconds(types.CashoutWindowSeconds)
	}
	// An active referral contract takes a standing share of the author's
	// rewards until it ends or is bought out. The first post past the end
	// date retires the contract.
	referrerExpired := false
	if acc.Referrer != "" {
		if now.Before(acc.ReferralEndDate) {
			c.Beneficiaries = []domain.Beneficiary{{Account: acc.Referrer, Weight: acc.ReferrerInterestRate}}
		} else {
			referrerExpired = true
		}
	}
	if err := ctx.State.Apply(state.AddObject(domain.CommentKey(attr.Author, attr.Permlink), c)); err != nil {
		return err
	}
	if referrerExpired {
		err := ctx.State.Apply(domain.UpdateAccount(attr.Author, func(a *domain.Account) {
			a.Referrer = ""
			a.ReferrerInterestRate = 0
			a.ReferralEndDate = types.MinTime
			a.ReferralBreakFee = types.CoreAsset(0)
		}))
		if err != nil {
			return err
		}
	}
	return m.touchAncestors(ctx, parent)
}

// touchAncestors bumps the reply counter and activity time on the whole
// parent chain.
func (m *Module) touchAncestors(ctx *chain.ExecutionContext, parent *domain.Comment) error {
	now := ctx.Now
	for parent != nil {
		err := ctx.State.Apply(domain.UpdateComment(parent.Author, parent.Permlink, func(c *domain.Comment) {
			c.Children++
			c.ActiveTime = now
		}))
		if err != nil {
			return err
		}
		if parent.IsRoot() {
			return nil
		}
		parent, err = domain.GetComment(ctx.State, parent.ParentAuthor, parent.ParentPermlink)
		if err != nil {
			return err
		}
	}
	return nil
}

// checkPostingBandwidth enforces the posting rate limits and, for root
// posts after the bandwidth rework, derives the decayed reward weight of
// posts made faster than the target rate.
func (m *Module) checkPostingBandwidth(ctx *chain.ExecutionContext, acc *domain.Account, isRoot bool) (int16, error) {
	now := ctx.Now
	if !ctx.HF.Has(hardfork.HF6) {
		next := acc.LastPost.AddSeconds(types.LegacyCommentIntervalSeconds)
		if err := types.CheckBandwidth(now, next, types.CommentBandwidth, "can only post once a minute"); err != nil {
			return 0, err
		}
		return types.Percent100, nil
	}
	if !isRoot {
		next := acc.LastPost.AddSeconds(types.MinReplyIntervalSeconds)
		if err := types.CheckBandwidth(now, next, types.CommentBandwidth, "can only reply once every 20 seconds"); err != nil {
			return 0, err
		}
		return types.Percent100, nil
	}
	next := acc.LastRootPost.AddSeconds(types.MinRootCommentIntervalSeconds)
	if err := types.CheckBandwidth(now, next, types.PostBandwidth, "can only post once every 5 minutes"); err != nil {
		return 0, err
	}
	if !ctx.HF.Has(hardfork.HF12) {
		return types.Percent100, nil
	}

	// Exponential average over the post window; posting at full speed
	// quadratically discounts the post's reward weight.
	delta := util.Min(now.SecondsSince(acc.LastRootPost), int64(types.PostAverageWindowSeconds))
	oldWeight := (acc.PostBandwidth * (int64(types.PostAverageWindowSeconds) - delta)) / int64(types.PostAverageWindowSeconds)
	newBandwidth := oldWeight + int64(types.Percent100)
	rewardWeight := util.Min(
		types.PostMaxBandwidth*types.PostMaxBandwidth*int64(types.Percent100)/(newBandwidth*newBandwidth),
		int64(types.Percent100),
	)
	err := ctx.State.Apply(domain.UpdateAccount(acc.Name, func(a *domain.Account) {
		a.PostBandwidth = newBandwidth
	}))
	if err != nil {
		return 0, err
	}
	return int16(rewardWeight), nil
}

func (m *Module) editComment(ctx *chain.ExecutionContext, attr *CommentAttributes) error {
	c, err := domain.GetComment(ctx.State, attr.Author, attr.Permlink)
	if err != nil {
		return err
	}
	if c.ParentAuthor != attr.ParentAuthor {
		return types.Logic(types.LogicParentCannotChange, "the parent of a comment cannot change")
	}
	// Root posts may be re-categorized once cashout no longer depends on
	// the original category.
	if c.ParentPermlink != attr.ParentPermlink && !(c.IsRoot() && ctx.HF.Has(hardfork.HF17)) {
		return types.Logic(types.LogicParentPermlinkCannotChange, "the parent permlink of a comment cannot change")
	}
	now := ctx.Now
	return ctx.State.Apply(domain.UpdateComment(attr.Author, attr.Permlink, func(c *domain.Comment) {
		c.ParentPermlink = attr.ParentPermlink
		c.LastUpdate = now
	}))
}

func validateCommentOptions(attr *CommentOptionsAttributes) error {
	if err := types.ValidateAccountName(attr.Author); err != nil {
		return err
	}
	if err := validatePermlink("permlink", attr.Permlink); err != nil {
		return err
	}
	if attr.MaxAcceptedPayout.Symbol != types.SymbolDebt || attr.MaxAcceptedPayout.IsNegative() {
		return &types.InvalidParameterError{Param: "max_accepted_payout", Reason: "must be a non-negative debt amount"}
	}
	if attr.PercentDebt < 0 || attr.PercentDebt > types.Percent100 {
		return &types.InvalidParameterError{Param: "percent_debt", Reason: "percent out of range"}
	}
	var sum int32
	for i, b := range attr.Beneficiaries {
		if err := types.ValidateAccountName(b.Account); err != nil {
			return err
		}
		if b.Weight <= 0 || b.Weight > types.Percent100 {
			return &types.InvalidParameterError{Param: "beneficiaries", Reason: "beneficiary weight out of range"}
		}
		if i > 0 && attr.Beneficiaries[i-1].Account >= b.Account {
			return types.Logic(types.LogicBeneficiariesNotUnique, "beneficiaries must be sorted and unique")
		}
		sum += int32(b.Weight)
	}
	if sum > int32(types.Percent100) {
		return &types.InvalidParameterError{Param: "beneficiaries", Reason: "beneficiary weights exceed 100 percent"}
	}
	return nil
}

func (m *Module) applyCommentOptions(ctx *chain.ExecutionContext, attr *CommentOptionsAttributes) error {
	acc, err := domain.GetAccount(ctx.State, attr.Author)
	if err != nil {
		return err
	}
	if err := checkNotChallenged(ctx, acc); err != nil {
		return err
	}
	c, err := domain.GetComment(ctx.State, attr.Author, attr.Permlink)
	if err != nil {
		return err
	}
	// Tightening payout terms after votes arrived would retroactively
	// change what voters voted on.
	restricting := !attr.AllowCurationRewards || !attr.AllowVotes ||
		attr.MaxAcceptedPayout.LT(c.MaxAcceptedPayout) || attr.PercentDebt < c.PercentDebt
	if restricting && c.AbsRshares != 0 {
		return types.Logic(types.LogicOptionsRequireNoRshares, "comment options may only be restricted before any votes")
	}
	if !c.AllowCurationRewards && attr.AllowCurationRewards {
		return types.Logic(types.LogicCurationCannotReenable, "curation rewards cannot be re-enabled")
	}
	if !c.AllowVotes && attr.AllowVotes {
		return types.Logic(types.LogicVotingCannotReenable, "voting cannot be re-enabled")
	}
	if attr.MaxAcceptedPayout.GT(c.MaxAcceptedPayout) {
		return types.Logic(types.LogicCannotAcceptGreaterPayout, "a comment cannot accept a greater payout")
	}
	if attr.PercentDebt > c.PercentDebt {
		return types.Logic(types.LogicCannotAcceptGreaterPercent, "a comment cannot accept a greater percent of debt")
	}
	if len(attr.Beneficiaries) > 0 {
		if ctx.HF.Producing() && len(attr.Beneficiaries) > types.MaxCommentBeneficiaries {
			return types.Logic(types.LogicTooManyBeneficiaries,
				"cannot specify more than %d beneficiaries", types.MaxCommentBeneficiaries)
		}
		// A lone referral beneficiary may be extended with a regular
		// list; anything else is write-once.
		total := int32(0)
		if len(c.Beneficiaries) == 1 && acc.Referrer != "" && c.Beneficiaries[0].Account == acc.Referrer {
			total = int32(c.Beneficiaries[0].Weight)
			for _, b := range attr.Beneficiaries {
				if b.Account == acc.Referrer {
					return types.Logic(types.LogicBeneficiariesNotUnique,
						"comment already has %q as a referrer beneficiary", acc.Referrer)
				}
			}
		} else if len(c.Beneficiaries) > 0 {
			return types.Logic(types.LogicAlreadyHasBeneficiaries, "comment already has beneficiaries set")
		}
		if c.AbsRshares != 0 {
			return types.Logic(types.LogicCommentAlreadyVoted, "beneficiaries must be set before any votes")
		}
		for _, b := range attr.Beneficiaries {
			if _, err := domain.GetAccount(ctx.State, b.Account); err != nil {
				return err
			}
			total += int32(b.Weight)
		}
		if total > int32(types.Percent100) {
			return &types.InvalidParameterError{Param: "beneficiaries",
				Reason: "cannot allocate more than 100 percent of rewards to a comment"}
		}
	}
	return ctx.State.Apply(domain.UpdateComment(attr.Author, attr.Permlink, func(c *domain.Comment) {
		c.MaxAcceptedPayout = attr.MaxAcceptedPayout
		c.PercentDebt = attr.PercentDebt
		c.AllowVotes = attr.AllowVotes
		c.AllowCurationRewards = attr.AllowCurationRewards
		c.Beneficiaries = append(c.Beneficiaries, attr.Beneficiaries...)
	}))
}

func validateDeleteComment(attr *DeleteCommentAttributes) error {
	if err := types.ValidateAccountName(attr.Author); err != nil {
		return err
	}
	return validatePermlink("permlink", attr.Permlink)
}

func (m *Module) applyDeleteComment(ctx *chain.ExecutionContext, attr *DeleteCommentAttributes) error {
	acc, err := domain.GetAccount(ctx.State, attr.Author)
	if err != nil {
		return err
	}
	if err := checkNotChallenged(ctx, acc); err != nil {
		return err
	}
	c, err := domain.GetComment(ctx.State, attr.Author, attr.Permlink)
	if err != nil {
		return err
	}
	if c.Children > 0 {
		return types.Logic(types.LogicCannotDeleteWithReplies, "cannot delete a comment with replies")
	}
	// Producers refuse upvoted comments outright; on replay the operation
	// is a silent no-op so blocks that carried it stay valid.
	if ctx.HF.Producing() && c.NetRshares > 0 {
		return types.Logic(types.LogicCannotDeleteWithVotes, "cannot delete a comment with positive votes")
	}
	if c.NetRshares > 0 {
		return nil
	}

	// Vote records for the comment; the permlink trails the voter in the
	// key so the scan covers all votes on the author's comments.
	var voteKeys [][]byte
	err = ctx.State.IteratePrefix(domain.CommentVoteAuthorPrefix(attr.Author), func(key []byte, obj state.Object) (bool, error) {
		if obj.(*domain.CommentVote).Permlink == attr.Permlink {
			voteKeys = append(voteKeys, append([]byte(nil), key...))
		}
		return true, nil
	})
	if err != nil {
		return err
	}
	for _, key := range voteKeys {
		if err := ctx.State.Apply(state.DeleteObject(key)); err != nil {
			return err
		}
	}

	if ctx.HF.Has(hardfork.HF6) && !c.IsRoot() {
		parent, err := domain.GetComment(ctx.State, c.ParentAuthor, c.ParentPermlink)
		if err != nil {
			return err
		}
		for parent != nil {
			err := ctx.State.Apply(domain.UpdateComment(parent.Author, parent.Permlink, func(p *domain.Comment) {
				p.Children--
			}))
			if err != nil {
				return err
			}
			if parent.IsRoot() {
				break
			}
			parent, err = domain.GetComment(ctx.State, parent.ParentAuthor, parent.ParentPermlink)
			if err != nil {
				return err
			}
		}
	}
	return ctx.State.Apply(state.DeleteObject(domain.CommentKey(attr.Author, attr.Permlink)))
}
