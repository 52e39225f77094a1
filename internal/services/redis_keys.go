package services

import "time"

const (
	KeyWallet           = "wallet:%d"
	KeyRound            = "round:%s"
	KeyRoundLock        = "round:%s:lock"
	KeyActiveRounds     = "rounds:active"
	KeyUserActiveRounds = "user:%d:active_rounds"
	KeyRecord           = "record:%s"
	KeyUserHistory      = "user:%d:history"
	KeyTransaction      = "transaction:%s"
	KeyUserTransactions = "user:%d:transactions"
	KeyRateLimit        = "ratelimit:%d:%s"
	KeyServerSeed       = "seed:server"
	KeyRevealedSeed     = "seed:revealed:%s"
	KeyPendingSeeds     = "seed:pending"
	KeySeedRounds       = "seed:%s:rounds"

	TTLRoundLock   = 10 * time.Second
	TTLRecord      = 30 * 24 * time.Hour // 30 days
	TTLTransaction = 30 * 24 * time.Hour // 30 days

	// round keys outlive the sweep age so the sweeper can still settle them
	roundKeyTTLFactor = 2

	maxUserEntries   = 100
	maxWalletRetries = 10

	DefaultRateLimitBets    = 30  // Max 30 bets per minute
	DefaultRateLimitActions = 120 // Max 120 hits/stands/draws per minute
)
