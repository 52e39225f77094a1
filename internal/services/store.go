package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"micro-casino/internal/models"
)

// StakeLock describes the wallet right after a bet was moved into the locked balance.
type StakeLock struct {
	ClientSeed    string
	Nonce         int64
	BalanceBefore decimal.Decimal
	BalanceAfter  decimal.Decimal
}

type WalletStore interface {
	GetWallet(ctx context.Context, userID int64) (*models.Wallet, error)
	LockStake(ctx context.Context, userID int64, amount decimal.Decimal) (*StakeLock, error)
	SettleStake(ctx context.Context, userID int64, amount, payout decimal.Decimal) (*models.Wallet, error)
	RefundStake(ctx context.Context, userID int64, amount decimal.Decimal) (*models.Wallet, error)
	SetClientSeed(ctx context.Context, userID int64, seed string) (*models.Wallet, error)
}

type RoundStore interface {
	SaveRound(ctx context.Context, round *models.Round, ttl time.Duration) error
	GetRound(ctx context.Context, roundID string) (*models.Round, error)
	CompleteRound(ctx context.Context, round *models.Round) error
	GetUserActiveRounds(ctx context.Context, userID int64) ([]*models.Round, error)
	StaleRounds(ctx context.Context, before time.Time) ([]string, error)
	// ActiveRoundsForSeed counts unfinished rounds dealt from the seed with this hash.
	ActiveRoundsForSeed(ctx context.Context, serverHash string) (int64, error)
	// AcquireRoundLock returns the token that must be passed to ReleaseRoundLock.
	AcquireRoundLock(ctx context.Context, roundID string) (string, bool, error)
	ReleaseRoundLock(ctx context.Context, roundID, token string) error
}

type HistoryStore interface {
	SaveRecord(ctx context.Context, rec *models.RoundRecord) error
	GetGameHistory(ctx context.Context, userID int64, limit int64) ([]*models.RoundRecord, error)
	SaveTransaction(ctx context.Context, tx *models.Transaction) error
	GetUserTransactions(ctx context.Context, userID int64, limit int64) ([]*models.Transaction, error)
}

// PendingSeed is a retired server seed that has not been published yet.
type PendingSeed struct {
	Seed      string
	RetiredAt time.Time
}

type SeedStore interface {
	ServerSeed(ctx context.Context) (string, error)
	// RotateServerSeed makes next the active seed and queues the previous one
	// for reveal. It never publishes anything.
	RotateServerSeed(ctx context.Context, next string) (string, error)
	PendingSeeds(ctx context.Context) ([]PendingSeed, error)
	RevealSeed(ctx context.Context, seed string) error
	RevealedSeed(ctx context.Context, hash string) (string, error)
}

type RateLimiter interface {
	CheckRateLimit(ctx context.Context, userID int64, action string, limit int, window time.Duration) (bool, error)
}

// Store is everything the GameEngine persists. RedisService implements it.
type Store interface {
	WalletStore
	RoundStore
	HistoryStore
	SeedStore
	RateLimiter
}

var _ Store = (*RedisService)(nil)
