package domain

import (
	"errors"
	"fmt"

	"github.com/forumchain/forumchain/state"
	"github.com/forumchain/forumchain/types"
)

// get loads and type-asserts one object, translating store misses into the
// typed missing-object error of the evaluator error taxonomy.
func get[T state.Object](s *state.Store, key []byte, typ, id string) (T, error) {
	var zero T
	obj, err := s.GetObject(key)
	if err != nil {
		if errors.Is(err, state.ErrNotFound) {
			return zero, types.MissingObject(typ, id)
		}
		return zero, err
	}
	t, ok := obj.(T)
	if !ok {
		return zero, fmt.Errorf("%s %q: unexpected object type %T", typ, id, obj)
	}
	return t, nil
}

func GetAccount(s *state.Store, n types.AccountName) (*Account, error) {
	return get[*Account](s, AccountKey(n), "account", string(n))
}

func HasAccount(s *state.Store, n types.AccountName) bool {
	return s.HasObject(AccountKey(n))
}

func GetAuthority(s *state.Store, n types.AccountName) (*AccountAuthority, error) {
	return get[*AccountAuthority](s, AuthorityKey(n), "account authority", string(n))
}

func GetComment(s *state.Store, author types.AccountName, permlink string) (*Comment, error) {
	return get[*Comment](s, CommentKey(author, permlink), "comment", string(author)+"/"+permlink)
}

func HasComment(s *state.Store, author types.AccountName, permlink string) bool {
	return s.HasObject(CommentKey(author, permlink))
}

func GetCommentVote(s *state.Store, author types.AccountName, permlink string, voter types.AccountName) (*CommentVote, error) {
	return get[*CommentVote](s, CommentVoteKey(author, permlink, voter), "comment vote",
		fmt.Sprintf("%s/%s by %s", author, permlink, voter))
}

func HasCommentVote(s *state.Store, author types.AccountName, permlink string, voter types.AccountName) bool {
	return s.HasObject(CommentVoteKey(author, permlink, voter))
}

func GetEscrow(s *state.Store, from types.AccountName, escrowID uint32) (*Escrow, error) {
	return get[*Escrow](s, EscrowKey(from, escrowID), "escrow", fmt.Sprintf("%s/%d", from, escrowID))
}

func GetDelegation(s *state.Store, delegator, delegatee types.AccountName) (*VestingDelegation, error) {
	return get[*VestingDelegation](s, DelegationKey(delegator, delegatee), "vesting delegation",
		fmt.Sprintf("%s->%s", delegator, delegatee))
}

func HasDelegation(s *state.Store, delegator, delegatee types.AccountName) bool {
	return s.HasObject(DelegationKey(delegator, delegatee))
}

func GetWitness(s *state.Store, owner types.AccountName) (*Witness, error) {
	return get[*Witness](s, WitnessKey(owner), "witness", string(owner))
}

func HasWitness(s *state.Store, owner types.AccountName) bool {
	return s.HasObject(WitnessKey(owner))
}

func GetLimitOrder(s *state.Store, owner types.AccountName, orderID uint32) (*LimitOrder, error) {
	return get[*LimitOrder](s, LimitOrderKey(owner, orderID), "limit order", fmt.Sprintf("%s/%d", owner, orderID))
}

func GetSavingsWithdraw(s *state.Store, from types.AccountName, requestID uint32) (*SavingsWithdraw, error) {
	return get[*SavingsWithdraw](s, SavingsWithdrawKey(from, requestID), "savings withdraw",
		fmt.Sprintf("%s/%d", from, requestID))
}

func GetRecoveryRequest(s *state.Store, n types.AccountName) (*RecoveryRequest, error) {
	return get[*RecoveryRequest](s, RecoveryRequestKey(n), "account recovery request", string(n))
}

func GetGlobalProperties(s *state.Store) (*GlobalProperties, error) {
	return get[*GlobalProperties](s, GlobalPropertiesKey(), "global properties", "singleton")
}

func GetWitnessSchedule(s *state.Store) (*WitnessSchedule, error) {
	return get[*WitnessSchedule](s, WitnessScheduleKey(), "witness schedule", "singleton")
}

func GetHardforkState(s *state.Store) (*HardforkState, error) {
	return get[*HardforkState](s, HardforkStateKey(), "hardfork state", "singleton")
}

func GetFeedHistory(s *state.Store) (*FeedHistory, error) {
	return get[*FeedHistory](s, FeedHistoryKey(), "feed history", "singleton")
}

// TopWitnessByVote returns the highest-voted witness, breaking ties by
// name order. Used by the recovery rules for accounts without a recovery
// partner.
func TopWitnessByVote(s *state.Store) (*Witness, error) {
	var top *Witness
	err := s.IteratePrefix(WitnessPrefix(), func(_ []byte, obj state.Object) (bool, error) {
		w := obj.(*Witness)
		if top == nil || w.Votes > top.Votes {
			top = w
		}
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	if top == nil {
		return nil, types.MissingObject("witness", "any")
	}
	return top, nil
}

// UpdateAccount is shorthand for the common load-mutate-store action.
func UpdateAccount(n types.AccountName, mutate func(*Account)) state.Action {
	return state.UpdateObject(AccountKey(n), func(obj state.Object) (state.Object, error) {
		mutate(obj.(*Account))
		return obj, nil
	})
}

func UpdateComment(author types.AccountName, permlink string, mutate func(*Comment)) state.Action {
	return state.UpdateObject(CommentKey(author, permlink), func(obj state.Object) (state.Object, error) {
		mutate(obj.(*Comment))
		return obj, nil
	})
}

func UpdateWitness(owner types.AccountName, mutate func(*Witness)) state.Action {
	return state.UpdateObject(WitnessKey(owner), func(obj state.Object) (state.Object, error) {
		mutate(obj.(*Witness))
		return obj, nil
	})
}

func UpdateGlobalProperties(mutate func(*GlobalProperties)) state.Action {
	return state.UpdateObject(GlobalPropertiesKey(), func(obj state.Object) (state.Object, error) {
		mutate(obj.(*GlobalProperties))
		return obj, nil
	})
}

// NextSeq draws the next creation-order sequence number.
func NextSeq(s *state.Store) (uint64, error) {
	gp, err := GetGlobalProperties(s)
	if err != nil {
		return 0, err
	}
	seq := gp.NextObjectSeq
	return seq, s.Apply(UpdateGlobalProperties(func(g *GlobalProperties) {
		g.NextObjectSeq++
	}))
}
