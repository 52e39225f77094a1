package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"micro-casino/internal/models"
)

type MockStore struct {
	mock.Mock
}

var _ Store = (*MockStore)(nil)

func (m *MockStore) GetWallet(ctx context.Context, userID int64) (*models.Wallet, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Wallet), args.Error(1)
}

func (m *MockStore) LockStake(ctx context.Context, userID int64, amount decimal.Decimal) (*StakeLock, error) {
	args := m.Called(ctx, userID, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*StakeLock), args.Error(1)
}

func (m *MockStore) SettleStake(ctx context.Context, userID int64, amount, payout decimal.Decimal) (*models.Wallet, error) {
	args := m.Called(ctx, userID, amount, payout)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Wallet), args.Error(1)
}

func (m *MockStore) RefundStake(ctx context.Context, userID int64, amount decimal.Decimal) (*models.Wallet, error) {
	args := m.Called(ctx, userID, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Wallet), args.Error(1)
}

func (m *MockStore) SetClientSeed(ctx context.Context, userID int64, seed string) (*models.Wallet, error) {
	args := m.Called(ctx, userID, seed)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Wallet), args.Error(1)
}

func (m *MockStore) SaveRound(ctx context.Context, round *models.Round, ttl time.Duration) error {
	return m.Called(ctx, round, ttl).Error(0)
}

func (m *MockStore) GetRound(ctx context.Context, roundID string) (*models.Round, error) {
	args := m.Called(ctx, roundID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Round), args.Error(1)
}

func (m *MockStore) CompleteRound(ctx context.Context, round *models.Round) error {
	return m.Called(ctx, round.ID).Error(0)
}

func (m *MockStore) GetUserActiveRounds(ctx context.Context, userID int64) ([]*models.Round, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Round), args.Error(1)
}

func (m *MockStore) StaleRounds(ctx context.Context, before time.Time) ([]string, error) {
	args := m.Called(ctx, before)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockStore) ActiveRoundsForSeed(ctx context.Context, serverHash string) (int64, error) {
	args := m.Called(ctx, serverHash)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStore) AcquireRoundLock(ctx context.Context, roundID string) (string, bool, error) {
	args := m.Called(ctx, roundID)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *MockStore) ReleaseRoundLock(ctx context.Context, roundID, token string) error {
	return m.Called(ctx, roundID, token).Error(0)
}

func (m *MockStore) SaveRecord(ctx context.Context, rec *models.RoundRecord) error {
	return m.Called(ctx, rec).Error(0)
}

func (m *MockStore) GetGameHistory(ctx context.Context, userID int64, limit int64) ([]*models.RoundRecord, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.RoundRecord), args.Error(1)
}

func (m *MockStore) SaveTransaction(ctx context.Context, tx *models.Transaction) error {
	return m.Called(ctx, tx).Error(0)
}

func (m *MockStore) GetUserTransactions(ctx context.Context, userID int64, limit int64) ([]*models.Transaction, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Transaction), args.Error(1)
}

func (m *MockStore) ServerSeed(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockStore) RotateServerSeed(ctx context.Context, next string) (string, error) {
	args := m.Called(ctx, next)
	return args.String(0), args.Error(1)
}

func (m *MockStore) PendingSeeds(ctx context.Context) ([]PendingSeed, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]PendingSeed), args.Error(1)
}

func (m *MockStore) RevealSeed(ctx context.Context, seed string) error {
	return m.Called(ctx, seed).Error(0)
}

func (m *MockStore) RevealedSeed(ctx context.Context, hash string) (string, error) {
	args := m.Called(ctx, hash)
	return args.String(0), args.Error(1)
}

func (m *MockStore) CheckRateLimit(ctx context.Context, userID int64, action string, limit int, window time.Duration) (bool, error) {
	args := m.Called(ctx, userID, action, limit, window)
	return args.Bool(0), args.Error(1)
}

type recordingBroadcaster struct {
	records []*models.RoundRecord
}

func (b *recordingBroadcaster) BroadcastRoundResult(rec *models.RoundRecord) {
	b.records = append(b.records, rec)
}
