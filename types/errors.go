package types

import (
	"errors"
	"fmt"
)

// The error kinds below form the stable taxonomy every evaluator reports
// through. Tests assert on kind and code, never on message text.

// BalanceKind names one of the authority-distinct balances of an account.
type BalanceKind uint8

const (
	MainBalance BalanceKind = iota
	SavingsBalance
	VestingBalance
	EffectiveVesting
	HavingVesting
	AvailableVesting
)

func (k BalanceKind) String() string {
	switch k {
	case MainBalance:
		return "fund"
	case SavingsBalance:
		return "savings"
	case VestingBalance:
		return "vesting shares"
	case EffectiveVesting:
		return "effective vesting shares"
	case HavingVesting:
		return "having vesting shares"
	case AvailableVesting:
		return "available vesting shares"
	}
	return "unknown balance"
}

// InsufficientFundsError reports a balance check failure with full context.
type InsufficientFundsError struct {
	Account  AccountName
	Balance  BalanceKind
	Required Asset
	Actual   Asset
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("account %q does not have enough %s: required %s, has %s",
		e.Account, e.Balance, e.Required, e.Actual)
}

var errInsufficientFunds = errors.New("insufficient funds")

func (e *InsufficientFundsError) Is(target error) bool { return target == ErrInsufficientFunds }

// ErrInsufficientFunds matches any InsufficientFundsError via errors.Is.
var ErrInsufficientFunds = errInsufficientFunds

// InvalidParameterError reports a static (ledger-independent) field
// validation failure.
type InvalidParameterError struct {
	Param  string
	Reason string
}

func (e *InvalidParameterError) Error() string {
	return fmt.Sprintf("invalid parameter %q: %s", e.Param, e.Reason)
}

var ErrInvalidParameter = errors.New("invalid parameter")

func (e *InvalidParameterError) Is(target error) bool { return target == ErrInvalidParameter }

// LogicCode enumerates business rule violations, one stable identifier per
// rule.
type LogicCode string

const (
	LogicAccountChallenged           LogicCode = "account_is_currently_challenged"
	LogicVoterDeclinedVotingRights   LogicCode = "voter_declined_voting_rights"
	LogicVotesNotAllowed             LogicCode = "votes_are_not_allowed"
	LogicNoVotingPower               LogicCode = "does_not_have_voting_power"
	LogicVotingWeightTooSmall        LogicCode = "voting_weight_is_too_small"
	LogicUpvoteLockout               LogicCode = "cannot_vote_within_last_minute_before_payout"
	LogicCannotVoteWithZeroRshares   LogicCode = "cannot_vote_with_zero_rshares"
	LogicMaxVoteChangesUsed          LogicCode = "voter_has_used_maximum_vote_changes"
	LogicAlreadyVotedSimilarly       LogicCode = "already_voted_in_similar_way"
	LogicCannotDeleteWithReplies     LogicCode = "cannot_delete_comment_with_replies"
	LogicCannotDeleteWithVotes       LogicCode = "cannot_delete_comment_with_positive_votes"
	LogicNothingChanged              LogicCode = "cannot_update_comment_because_nothing_changed"
	LogicMaxCommentDepth             LogicCode = "reached_comment_max_depth"
	LogicRepliesNotAllowed           LogicCode = "replies_are_not_allowed"
	LogicParentCannotChange          LogicCode = "parent_of_comment_cannot_change"
	LogicParentPermlinkCannotChange  LogicCode = "parent_permlink_of_comment_cannot_change"
	LogicOptionsRequireNoRshares     LogicCode = "comment_options_requires_no_rshares"
	LogicCurationCannotReenable      LogicCode = "curation_rewards_cannot_be_reenabled"
	LogicVotingCannotReenable        LogicCode = "voting_cannot_be_reenabled"
	LogicCannotAcceptGreaterPayout   LogicCode = "comment_cannot_accept_greater_payout"
	LogicCannotAcceptGreaterPercent  LogicCode = "comment_cannot_accept_greater_percent_debt"
	LogicTooManyBeneficiaries        LogicCode = "cannot_specify_more_beneficiaries"
	LogicBeneficiariesNotUnique      LogicCode = "beneficiaries_should_be_unique"
	LogicAlreadyHasBeneficiaries     LogicCode = "comment_already_has_beneficiaries"
	LogicCommentAlreadyVoted         LogicCode = "comment_must_not_have_been_voted"
	LogicEscrowTimeInPast            LogicCode = "escrow_time_in_past"
	LogicEscrowBadTo                 LogicCode = "escrow_bad_to"
	LogicEscrowBadAgent              LogicCode = "escrow_bad_agent"
	LogicEscrowBadReceiver           LogicCode = "escrow_bad_receiver"
	LogicRatificationDeadlinePassed  LogicCode = "ratification_deadline_passed"
	LogicEscrowAlreadyApproved       LogicCode = "account_already_approved_escrow"
	LogicEscrowNotApproved           LogicCode = "escrow_must_be_approved_first"
	LogicEscrowExpired               LogicCode = "cannot_dispute_expired_escrow"
	LogicEscrowAlreadyDisputed       LogicCode = "escrow_already_disputed"
	LogicEscrowReleaseExceedsBalance LogicCode = "release_amount_exceeds_escrow_balance"
	LogicOnlyAgentReleasesDisputed   LogicCode = "only_agent_can_release_disputed"
	LogicOnlyPartiesReleaseEscrow    LogicCode = "only_from_to_can_release_non_disputed"
	LogicFromReleasesOnlyToTo        LogicCode = "from_can_release_only_to_to"
	LogicToReleasesOnlyToFrom        LogicCode = "to_can_release_only_to_from"
	LogicWithdrawRateUnchanged       LogicCode = "operation_would_not_change_vesting_withdraw_rate"
	LogicPowerdownFeeTooLow          LogicCode = "insufficient_fee_for_powerdown_registered_account"
	LogicZeroPercentRoute            LogicCode = "cannot_create_zero_percent_destination"
	LogicMaxWithdrawRoutes           LogicCode = "reached_maximum_number_of_routes"
	LogicRoutesOver100Percent        LogicCode = "more_100percent_allocated_to_destinations"
	LogicProxyMustChange             LogicCode = "proxy_must_change"
	LogicProxyLoop                   LogicCode = "proxy_would_create_loop"
	LogicProxyChainTooLong           LogicCode = "proxy_chain_is_too_long"
	LogicCannotVoteWithProxySet      LogicCode = "cannot_vote_when_proxy_is_set"
	LogicWitnessVoteMissing          LogicCode = "witness_vote_does_not_exist"
	LogicWitnessVoteExists           LogicCode = "witness_vote_already_exists"
	LogicTooManyWitnessVotes         LogicCode = "account_has_too_many_witness_votes"
	LogicNotEnoughDelegation         LogicCode = "not_enough_delegation"
	LogicDelegationDiffTooLow        LogicCode = "delegation_difference_too_low"
	LogicDelegationBelowMinimum      LogicCode = "cannot_delegate_below_minimum"
	LogicDelegationVotingPowerLimit  LogicCode = "delegation_limited_by_voting_power"
	LogicDuplicateWork               LogicCode = "duplicate_work_discovered"
	LogicMinerSingleKeyAuthority     LogicCode = "miners_can_only_have_one_key_authority"
	LogicWorkBySignedKey             LogicCode = "work_must_be_performed_by_signed_key"
	LogicWorkNotForLastBlock         LogicCode = "work_not_for_last_block"
	LogicWorkTooOld                  LogicCode = "work_for_block_older_last_irreversible_block"
	LogicInsufficientWork            LogicCode = "insufficient_work_difficulty"
	LogicAlreadyScheduledForWork     LogicCode = "account_already_scheduled_for_work"
	LogicOwnerKeyOnlyOnCreate        LogicCode = "cannot_specify_owner_key_unless_creating_account"
	LogicWitnessRequiredBeforeMining LogicCode = "witness_must_be_created_before_mining"
	LogicAccountUpdatedThisBlock     LogicCode = "account_must_not_be_updated_in_this_block"
	LogicNoPriceFeed                 LogicCode = "no_price_feed_yet"
	LogicOrderNotFilled              LogicCode = "cancelling_not_filled_order"
	LogicRecoveryNotPartner          LogicCode = "cannot_recover_if_not_partner"
	LogicRecoveryByTopWitness        LogicCode = "must_be_recovered_by_top_witness"
	LogicNoActiveRecoveryRequest     LogicCode = "no_active_recovery_request"
	LogicAuthorityMismatchesRequest  LogicCode = "authority_does_not_match_request"
	LogicNoRecentAuthority           LogicCode = "no_recent_authority_in_history"
	LogicAccountNotChallenged        LogicCode = "account_is_not_challenged"
	LogicSavingsWithdrawLimit        LogicCode = "reached_limit_for_pending_withdraw_requests"
	LogicNoRightToBreakReferral      LogicCode = "no_right_to_break_referral"
)

// LogicError is a business rule violation during apply.
type LogicError struct {
	Code LogicCode
	Msg  string
}

func (e *LogicError) Error() string {
	if e.Msg == "" {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Msg)
}

var ErrLogic = errors.New("logic error")

func (e *LogicError) Is(target error) bool {
	if target == ErrLogic {
		return true
	}
	if le, ok := target.(*LogicError); ok {
		return le.Code == e.Code && (le.Msg == "" || le.Msg == e.Msg)
	}
	return false
}

func Logic(code LogicCode, format string, args ...any) error {
	return &LogicError{Code: code, Msg: fmt.Sprintf(format, args...)}
}

// IsLogic reports whether err carries the given logic code.
func IsLogic(err error, code LogicCode) bool {
	var le *LogicError
	return errors.As(err, &le) && le.Code == code
}

// BandwidthKind names a rate-limited action.
type BandwidthKind string

const (
	PostBandwidth        BandwidthKind = "post"
	CommentBandwidth     BandwidthKind = "comment"
	VoteBandwidth        BandwidthKind = "vote"
	OwnerUpdateBandwidth BandwidthKind = "change_owner_authority"
)

// BandwidthError reports a rate limit violation.
type BandwidthError struct {
	Kind BandwidthKind
	Now  Time
	Next Time
	Msg  string
}

func (e *BandwidthError) Error() string {
	return fmt.Sprintf("%s bandwidth exceeded: %s (now %s, retry after %s)", e.Kind, e.Msg, e.Now, e.Next)
}

var ErrBandwidth = errors.New("bandwidth exceeded")

func (e *BandwidthError) Is(target error) bool { return target == ErrBandwidth }

// CheckBandwidth enforces now > next-1, the original's off-by-one inclusive
// rule (an action becomes legal exactly at the scheduled second).
func CheckBandwidth(now, next Time, kind BandwidthKind, msg string) error {
	if now.Unix() > next.Unix()-1 {
		return nil
	}
	return &BandwidthError{Kind: kind, Now: now, Next: next, Msg: msg}
}

// MissingObjectError reports a keyed lookup miss.
type MissingObjectError struct {
	Type string
	Key  string
}

func (e *MissingObjectError) Error() string {
	return fmt.Sprintf("%s %q does not exist", e.Type, e.Key)
}

var ErrMissingObject = errors.New("object does not exist")

func (e *MissingObjectError) Is(target error) bool { return target == ErrMissingObject }

func MissingObject(typ, key string) error { return &MissingObjectError{Type: typ, Key: key} }

// ObjectExistsError reports a create colliding with an existing object.
type ObjectExistsError struct {
	Type string
	Key  string
}

func (e *ObjectExistsError) Error() string {
	return fmt.Sprintf("%s %q already exists", e.Type, e.Key)
}

var ErrObjectExists = errors.New("object already exists")

func (e *ObjectExistsError) Is(target error) bool { return target == ErrObjectExists }

func ObjectExists(typ, key string) error { return &ObjectExistsError{Type: typ, Key: key} }

// ErrUnsupportedOperation is returned by evaluators of operations disabled
// by a hardfork.
var ErrUnsupportedOperation = errors.New("unsupported operation")

func Unsupported(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrUnsupportedOperation, fmt.Sprintf(format, args...))
}

// ErrUnknownHardfork is fatal: a node that sees a rule it does not know
// must stop processing blocks rather than risk a silent fork.
var ErrUnknownHardfork = errors.New("unknown hardfork")
