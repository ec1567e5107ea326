package domain

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/forumchain/forumchain/state"
	"github.com/forumchain/forumchain/types"
)

// Encode serializes a ledger object for snapshots and the key-value store.
func Encode(obj state.Object) ([]byte, error) {
	return types.Cbor(obj)
}

var factories = map[byte]func() state.Object{
	kindAccount:              func() state.Object { return &Account{} },
	kindAccountAuthority:     func() state.Object { return &AccountAuthority{} },
	kindAccountMetadata:      func() state.Object { return &AccountMetadata{} },
	kindOwnerAuthHistory:     func() state.Object { return &OwnerAuthorityHistory{} },
	kindComment:              func() state.Object { return &Comment{} },
	kindCommentVote:          func() state.Object { return &CommentVote{} },
	kindEscrow:               func() state.Object { return &Escrow{} },
	kindDelegation:           func() state.Object { return &VestingDelegation{} },
	kindDelegationExpiration: func() state.Object { return &DelegationExpiration{} },
	kindWithdrawRoute:        func() state.Object { return &WithdrawRoute{} },
	kindWitness:              func() state.Object { return &Witness{} },
	kindWitnessVote:          func() state.Object { return &WitnessVote{} },
	kindLimitOrder:           func() state.Object { return &LimitOrder{} },
	kindOrderBook:            func() state.Object { return &OrderRef{} },
	kindConvertRequest:       func() state.Object { return &ConvertRequest{} },
	kindConvertSchedule:      func() state.Object { return &ScheduleRef{} },
	kindSavingsWithdraw:      func() state.Object { return &SavingsWithdraw{} },
	kindSavingsSchedule:      func() state.Object { return &ScheduleRef{} },
	kindRecoveryRequest:      func() state.Object { return &RecoveryRequest{} },
	kindRecoverySchedule:     func() state.Object { return &ScheduleRef{} },
	kindChangeRecovery:       func() state.Object { return &ChangeRecoveryRequest{} },
	kindChangeRecoverySched:  func() state.Object { return &ScheduleRef{} },
	kindDeclineVoting:        func() state.Object { return &DeclineVotingRightsRequest{} },
	kindDeclineVotingSched:   func() state.Object { return &ScheduleRef{} },
	kindWithdrawSchedule:     func() state.Object { return &ScheduleRef{} },
	kindOrderExpiration:      func() state.Object { return &ScheduleRef{} },
	kindGlobalProperties:     func() state.Object { return &GlobalProperties{} },
	kindWitnessSchedule:      func() state.Object { return &WitnessSchedule{} },
	kindHardforkState:        func() state.Object { return &HardforkState{} },
	kindFeedHistory:          func() state.Object { return &FeedHistory{} },
}

// Decode rebuilds a ledger object from its key (which carries the kind
// tag) and serialized form.
func Decode(key, data []byte) (state.Object, error) {
	if len(key) == 0 {
		return nil, fmt.Errorf("empty object key")
	}
	factory, ok := factories[key[0]]
	if !ok {
		return nil, fmt.Errorf("unknown object kind 0x%02x", key[0])
	}
	obj := factory()
	if err := cbor.Unmarshal(data, obj); err != nil {
		return nil, fmt.Errorf("decoding object kind 0x%02x: %w", key[0], err)
	}
	return obj, nil
}
