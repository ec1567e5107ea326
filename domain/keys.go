package domain

import (
	"github.com/forumchain/forumchain/types"
	"github.com/forumchain/forumchain/util"
)

// Object kind prefixes. Every ledger key starts with exactly one of these
// bytes; prefix scans over a kind are therefore deterministic byte-ordered
// walks of that kind only. Never renumber: keys are part of the snapshot
// format.
const (
	kindAccount              byte = 0x01
	kindAccountAuthority     byte = 0x02
	kindAccountMetadata      byte = 0x03
	kindOwnerAuthHistory     byte = 0x04
	kindComment              byte = 0x05
	kindCommentVote          byte = 0x06
	kindEscrow               byte = 0x07
	kindDelegation           byte = 0x08
	kindDelegationExpiration byte = 0x09
	kindWithdrawRoute        byte = 0x0a
	kindWitness              byte = 0x0b
	kindWitnessVote          byte = 0x0c
	kindLimitOrder           byte = 0x0d
	kindOrderBook            byte = 0x0e
	kindConvertRequest       byte = 0x0f
	kindConvertSchedule      byte = 0x10
	kindSavingsWithdraw      byte = 0x11
	kindSavingsSchedule      byte = 0x12
	kindRecoveryRequest      byte = 0x13
	kindRecoverySchedule     byte = 0x14
	kindChangeRecovery       byte = 0x15
	kindChangeRecoverySched  byte = 0x16
	kindDeclineVoting        byte = 0x17
	kindDeclineVotingSched   byte = 0x18
	kindGlobalProperties     byte = 0x19
	kindWitnessSchedule      byte = 0x1a
	kindHardforkState        byte = 0x1b
	kindFeedHistory          byte = 0x1c
	kindWithdrawSchedule     byte = 0x1d
	kindOrderExpiration      byte = 0x1e
)

const sep byte = 0x00

// buildKey joins parts with a separator byte. All interior parts are
// account names or fixed-width integers, neither of which can contain the
// separator; free-form parts (permlinks) are always placed last.
func buildKey(kind byte, parts ...[]byte) []byte {
	n := 1
	for _, p := range parts {
		n += len(p) + 1
	}
	key := make([]byte, 0, n)
	key = append(key, kind)
	for i, p := range parts {
		if i > 0 {
			key = append(key, sep)
		}
		key = append(key, p...)
	}
	return key
}

func name(n types.AccountName) []byte { return []byte(n) }

func AccountKey(acc types.AccountName) []byte   { return buildKey(kindAccount, name(acc)) }
func AuthorityKey(acc types.AccountName) []byte { return buildKey(kindAccountAuthority, name(acc)) }
func MetadataKey(acc types.AccountName) []byte  { return buildKey(kindAccountMetadata, name(acc)) }

func OwnerAuthHistoryKey(acc types.AccountName, seq uint64) []byte {
	return buildKey(kindOwnerAuthHistory, name(acc), util.Uint64ToBytes(seq))
}

func OwnerAuthHistoryPrefix(acc types.AccountName) []byte {
	return append(buildKey(kindOwnerAuthHistory, name(acc)), sep)
}

func OwnerAuthHistoryAllPrefix() []byte { return []byte{kindOwnerAuthHistory} }

func CommentKey(author types.AccountName, permlink string) []byte {
	return buildKey(kindComment, name(author), []byte(permlink))
}

func CommentVoteKey(author types.AccountName, permlink string, voter types.AccountName) []byte {
	// permlink last so an embedded separator cannot collide with the
	// voter component
	return buildKey(kindCommentVote, name(author), name(voter), []byte(permlink))
}

func CommentVoteAuthorPrefix(author types.AccountName) []byte {
	return append(buildKey(kindCommentVote, name(author)), sep)
}

func EscrowKey(from types.AccountName, escrowID uint32) []byte {
	return buildKey(kindEscrow, name(from), util.Uint32ToBytes(escrowID))
}

func DelegationKey(delegator, delegatee types.AccountName) []byte {
	return buildKey(kindDelegation, name(delegator), name(delegatee))
}

func DelegationPrefix(delegator types.AccountName) []byte {
	return append(buildKey(kindDelegation, name(delegator)), sep)
}

// DelegationExpirationKey orders records by expiration time so the sweep
// is a prefix walk that stops at the first future entry.
func DelegationExpirationKey(expiration types.Time, seq uint64) []byte {
	return buildKey(kindDelegationExpiration, util.Uint32ToBytes(uint32(expiration)), util.Uint64ToBytes(seq))
}

func DelegationExpirationPrefix() []byte { return []byte{kindDelegationExpiration} }

func WithdrawRouteKey(from, to types.AccountName) []byte {
	return buildKey(kindWithdrawRoute, name(from), name(to))
}

func WithdrawRoutePrefix(from types.AccountName) []byte {
	return append(buildKey(kindWithdrawRoute, name(from)), sep)
}

func WitnessKey(owner types.AccountName) []byte { return buildKey(kindWitness, name(owner)) }

func WitnessPrefix() []byte { return []byte{kindWitness} }

func WitnessVoteKey(account, witness types.AccountName) []byte {
	return buildKey(kindWitnessVote, name(account), name(witness))
}

func WitnessVotePrefix(account types.AccountName) []byte {
	return append(buildKey(kindWitnessVote, name(account)), sep)
}

func LimitOrderKey(owner types.AccountName, orderID uint32) []byte {
	return buildKey(kindLimitOrder, name(owner), util.Uint32ToBytes(orderID))
}

// OrderBookKey orders one side of the book best-price-first, then by
// creation sequence for time priority. price is a normalized big-endian
// fixed-point encoding produced by the market module.
func OrderBookKey(side byte, price []byte, seq uint64) []byte {
	return buildKey(kindOrderBook, []byte{side}, price, util.Uint64ToBytes(seq))
}

func OrderBookPrefix(side byte) []byte {
	return append(buildKey(kindOrderBook, []byte{side}), sep)
}

// OrderExpirationKey orders open limit orders by expiration time for the
// end-of-block refund sweep.
func OrderExpirationKey(expiration types.Time, seq uint64) []byte {
	return buildKey(kindOrderExpiration, util.Uint32ToBytes(uint32(expiration)), util.Uint64ToBytes(seq))
}

func OrderExpirationPrefix() []byte { return []byte{kindOrderExpiration} }

func ConvertRequestKey(owner types.AccountName, requestID uint32) []byte {
	return buildKey(kindConvertRequest, name(owner), util.Uint32ToBytes(requestID))
}

func ConvertScheduleKey(date types.Time, owner types.AccountName, requestID uint32) []byte {
	return buildKey(kindConvertSchedule, util.Uint32ToBytes(uint32(date)), name(owner), util.Uint32ToBytes(requestID))
}

func ConvertSchedulePrefix() []byte { return []byte{kindConvertSchedule} }

func SavingsWithdrawKey(from types.AccountName, requestID uint32) []byte {
	return buildKey(kindSavingsWithdraw, name(from), util.Uint32ToBytes(requestID))
}

func SavingsScheduleKey(complete types.Time, from types.AccountName, requestID uint32) []byte {
	return buildKey(kindSavingsSchedule, util.Uint32ToBytes(uint32(complete)), name(from), util.Uint32ToBytes(requestID))
}

func SavingsSchedulePrefix() []byte { return []byte{kindSavingsSchedule} }

func RecoveryRequestKey(acc types.AccountName) []byte {
	return buildKey(kindRecoveryRequest, name(acc))
}

func RecoveryScheduleKey(expires types.Time, acc types.AccountName) []byte {
	return buildKey(kindRecoverySchedule, util.Uint32ToBytes(uint32(expires)), name(acc))
}

func RecoverySchedulePrefix() []byte { return []byte{kindRecoverySchedule} }

func ChangeRecoveryKey(acc types.AccountName) []byte {
	return buildKey(kindChangeRecovery, name(acc))
}

func ChangeRecoveryScheduleKey(effective types.Time, acc types.AccountName) []byte {
	return buildKey(kindChangeRecoverySched, util.Uint32ToBytes(uint32(effective)), name(acc))
}

func ChangeRecoverySchedulePrefix() []byte { return []byte{kindChangeRecoverySched} }

func DeclineVotingKey(acc types.AccountName) []byte {
	return buildKey(kindDeclineVoting, name(acc))
}

func DeclineVotingScheduleKey(effective types.Time, acc types.AccountName) []byte {
	return buildKey(kindDeclineVotingSched, util.Uint32ToBytes(uint32(effective)), name(acc))
}

func DeclineVotingSchedulePrefix() []byte { return []byte{kindDeclineVotingSched} }

// WithdrawScheduleKey orders in-flight vesting withdrawals by their next
// payout time.
func WithdrawScheduleKey(next types.Time, acc types.AccountName) []byte {
	return buildKey(kindWithdrawSchedule, util.Uint32ToBytes(uint32(next)), name(acc))
}

func WithdrawSchedulePrefix() []byte { return []byte{kindWithdrawSchedule} }

func GlobalPropertiesKey() []byte { return []byte{kindGlobalProperties} }
func WitnessScheduleKey() []byte  { return []byte{kindWitnessSchedule} }
func HardforkStateKey() []byte    { return []byte{kindHardforkState} }
func FeedHistoryKey() []byte      { return []byte{kindFeedHistory} }
