package types

// Consensus constants. Changing any value here is a fork.

const (
	// Percent100 is the fixed-point scale for all percent-typed fields.
	Percent100 = int16(10000)
	Percent1   = Percent100 / 100

	BlockIntervalSeconds = 3
	BlocksPerDay         = 24 * 60 * 60 / BlockIntervalSeconds

	// Voting power regenerates fully over five days.
	VoteRegenerationSeconds = 5 * 24 * 60 * 60
	MinVoteIntervalSeconds  = 3
	MaxVoteChanges          = 5
	// Minimum rshares a vote must carry once dust votes are rejected.
	VoteDustThreshold = int64(30_000_000)

	// Reverse auction: curation weight earned in the first part of a
	// comment's life is discounted linearly.
	ReverseAuctionWindowSeconds = 60 * 30
	// Upvotes are locked out in the final minute before payout.
	UpvoteLockoutSeconds = 60

	// W(R) = 2^64-1 * R / (R + 2*ContentConstant) curation curve shape.
	ContentConstant = int64(2_000_000_000_000)

	CashoutWindowSeconds       = 24 * 60 * 60
	SecondCashoutWindowSeconds = 30 * 24 * 60 * 60
	MaxCashoutWindowSeconds    = 14 * 24 * 60 * 60
	// Windows of the floating-cashout era, when votes dragged the root
	// post's cashout towards now+window instead of it being fixed at
	// creation.
	CashoutWindowSecondsPreHF12 = 24 * 60 * 60
	CashoutWindowSecondsPreHF17 = 12 * 60 * 60

	MinRootCommentIntervalSeconds = 60 * 5
	MinReplyIntervalSeconds       = 20
	// Single spacing rule used before the split into root/reply intervals.
	LegacyCommentIntervalSeconds = 60

	// Root post bandwidth: an exponential average over one day, capped at
	// four full-weight posts worth of bandwidth.
	PostAverageWindowSeconds = 24 * 60 * 60
	PostMaxBandwidth         = int64(4 * 10000)

	MaxCommentDepth       = 0xffff
	SoftMaxCommentDepth   = 0xff
	LegacyMaxCommentDepth = 6

	MaxCommentBeneficiaries = 8
	// Default payout cap of a fresh comment, effectively unlimited.
	MaxAcceptedPayoutAmount = int64(1_000_000_000_000)

	VestingWithdrawIntervals       = 13
	LegacyVestingWithdrawIntervals = 104
	VestingWithdrawIntervalSeconds = 7 * 24 * 60 * 60
	MaxWithdrawRoutes              = 10

	MaxProxyRecursionDepth = 4

	SavingsWithdrawDelaySeconds = 3 * 24 * 60 * 60
	SavingsWithdrawRequestLimit = 100

	ConversionDelaySeconds       = 3*24*60*60 + 12*60*60
	LegacyConversionDelaySeconds = 7 * 24 * 60 * 60

	MaxWitnesses           = 21
	MaxAccountWitnessVotes = 30
	MaxURLLength           = 127

	MinBlockSizeLimit = uint32(65536)

	// Price feed: the median is refreshed hourly over a 3.5 day window.
	FeedIntervalBlocks = uint32(60 * 60 / BlockIntervalSeconds)
	FeedHistoryWindow  = 84

	// Mining.
	MiningRewardAmount    = int64(1000) // 1.000 CORE
	StartMinerVotingBlock = BlocksPerDay * 30
	StartVestingBlockNum  = BlocksPerDay * 7

	// Account creation with delegation.
	CreateAccountWithModifier    = 30
	CreateAccountDelegationRatio = 5
	CreateAccountDelegationTime  = 30 * 24 * 60 * 60
	// Registration fee multiplier charged on first power-down of an
	// account that never paid a creation fee.
	AccountMinedToRegisteredRatio = 10

	// Authority challenges.
	OwnerChallengeFeeAmount  = int64(30_000) // 30.000 CORE
	ActiveChallengeFeeAmount = int64(2_000)  // 2.000 CORE
	OwnerChallengeCooldown   = 24 * 60 * 60
	ActiveChallengeCooldown  = 24 * 60 * 60

	// Recovery.
	OwnerAuthRecoveryPeriodSeconds          = 30 * 24 * 60 * 60
	AccountRecoveryRequestExpirationSeconds = 24 * 60 * 60
	OwnerUpdateLimitSeconds                 = 60 * 60
	OwnerAuthHistoryTrackingSeconds         = OwnerAuthRecoveryPeriodSeconds

	MaxMemoSize       = 2048
	MaxWitnessURLSize = 2048
	MaxJSONSize       = 8192

	// Referral program bounds (witness-tunable values live in median
	// props; these cap them).
	MaxReferralInterestRate   = int16(1000) // 10%
	MaxReferralTermSeconds    = 180 * 24 * 60 * 60
	MaxReferralBreakFeeAmount = int64(100_000) // 100.000 CORE
)
