package services_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"micro-casino/internal/config"
	"micro-casino/internal/fairness"
	"micro-casino/internal/games"
	"micro-casino/internal/models"
	"micro-casino/internal/services"
)

func newRedis(t *testing.T) *services.RedisService {
	t.Helper()
	cfg := &config.Config{
		RedisURL:  "localhost:6379",
		RedisPass: "",
		RedisDB:   0,
	}

	redisService, err := services.NewRedisService(cfg)
	if err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	t.Cleanup(func() { redisService.Close() })
	return redisService
}

func TestRedisService_Wallet(t *testing.T) {
	ctx := context.Background()
	redisService := newRedis(t)
	userID := int64(999999)
	redisService.DeleteWallet(ctx, userID)
	defer redisService.DeleteWallet(ctx, userID)

	wallet, err := redisService.GetWallet(ctx, userID)
	require.NoError(t, err)
	assert.True(t, wallet.Balance.Equal(models.StartingBalance))
	assert.NotEmpty(t, wallet.ClientSeed)

	lock, err := redisService.LockStake(ctx, userID, decimal.NewFromInt(1000))
	require.NoError(t, err)
	assert.Equal(t, int64(0), lock.Nonce)
	assert.True(t, lock.BalanceAfter.Equal(decimal.NewFromInt(9000)))

	wallet, err = redisService.GetWallet(ctx, userID)
	require.NoError(t, err)
	assert.True(t, wallet.Balance.Equal(decimal.NewFromInt(9000)))
	assert.True(t, wallet.LockedBalance.Equal(decimal.NewFromInt(1000)))
	assert.Equal(t, int64(1), wallet.Nonce)

	wallet, err = redisService.SettleStake(ctx, userID, decimal.NewFromInt(1000), decimal.RequireFromString("1960.00"))
	require.NoError(t, err)
	assert.True(t, wallet.Balance.Equal(decimal.RequireFromString("10960")))
	assert.True(t, wallet.LockedBalance.IsZero())
	assert.True(t, wallet.TotalWon.Equal(decimal.RequireFromString("1960")))

	_, err = redisService.LockStake(ctx, userID, decimal.NewFromInt(1_000_000))
	assert.True(t, errors.Is(err, services.ErrInsufficientBalance))

	_, err = redisService.LockStake(ctx, userID, decimal.NewFromInt(60))
	require.NoError(t, err)
	wallet, err = redisService.RefundStake(ctx, userID, decimal.NewFromInt(60))
	require.NoError(t, err)
	assert.True(t, wallet.Balance.Equal(decimal.RequireFromString("10960")))
	assert.True(t, wallet.LockedBalance.IsZero())
	assert.True(t, wallet.TotalWagered.Equal(decimal.NewFromInt(1000)))
	assert.Equal(t, int64(2), wallet.Nonce)

	wallet, err = redisService.SetClientSeed(ctx, userID, "my-own-seed")
	require.NoError(t, err)
	assert.Equal(t, "my-own-seed", wallet.ClientSeed)
	assert.Equal(t, int64(2), wallet.Nonce)
}

func TestRedisService_ConcurrentStakes(t *testing.T) {
	ctx := context.Background()
	redisService := newRedis(t)
	userID := int64(999998)
	redisService.DeleteWallet(ctx, userID)
	defer redisService.DeleteWallet(ctx, userID)

	_, err := redisService.GetWallet(ctx, userID)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = redisService.LockStake(ctx, userID, decimal.NewFromInt(10))
		}()
	}
	wg.Wait()

	wallet, err := redisService.GetWallet(ctx, userID)
	require.NoError(t, err)
	spent := models.StartingBalance.Sub(wallet.Balance)
	assert.True(t, spent.Equal(wallet.LockedBalance))
	assert.True(t, spent.Equal(decimal.NewFromInt(10*wallet.Nonce)))
}

func TestRedisService_Rounds(t *testing.T) {
	ctx := context.Background()
	redisService := newRedis(t)
	userID := int64(999997)

	g := games.StartBlackjack(fairness.NewSource("s", "c", 0))
	now := time.Now()
	round := &models.Round{
		ID:         models.GenerateRoundID(),
		UserID:     userID,
		GameType:   models.GameTypeBlackjack,
		BetAmount:  decimal.NewFromInt(5),
		Status:     models.RoundStatusActive,
		ServerHash: fairness.HashSeed("s-" + now.String()),
		Blackjack:  &g,
		CreatedAt:  now.Add(-time.Hour),
		UpdatedAt:  now.Add(-time.Hour),
	}
	require.NoError(t, redisService.SaveRound(ctx, round, time.Minute))
	defer redisService.CompleteRound(ctx, round)

	got, err := redisService.GetRound(ctx, round.ID)
	require.NoError(t, err)
	assert.Equal(t, round.ID, got.ID)
	assert.Equal(t, g.Player.Cards, got.Blackjack.Player.Cards)
	assert.Len(t, got.Blackjack.Deck, len(g.Deck))

	active, err := redisService.GetUserActiveRounds(ctx, userID)
	require.NoError(t, err)
	require.Len(t, active, 1)

	stale, err := redisService.StaleRounds(ctx, now.Add(-time.Minute))
	require.NoError(t, err)
	assert.Contains(t, stale, round.ID)

	live, err := redisService.ActiveRoundsForSeed(ctx, round.ServerHash)
	require.NoError(t, err)
	assert.Equal(t, int64(1), live)

	require.NoError(t, redisService.CompleteRound(ctx, round))
	_, err = redisService.GetRound(ctx, round.ID)
	assert.True(t, errors.Is(err, services.ErrRoundNotFound))

	live, err = redisService.ActiveRoundsForSeed(ctx, round.ServerHash)
	require.NoError(t, err)
	assert.Zero(t, live)
}

func TestRedisService_RoundLock(t *testing.T) {
	ctx := context.Background()
	redisService := newRedis(t)
	roundID := models.GenerateRoundID()

	token, ok, err := redisService.AcquireRoundLock(ctx, roundID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.NotEmpty(t, token)

	_, ok, err = redisService.AcquireRoundLock(ctx, roundID)
	require.NoError(t, err)
	assert.False(t, ok)

	// a holder whose lock expired must not free the next holder's lock
	require.NoError(t, redisService.ReleaseRoundLock(ctx, roundID, "stale-token"))
	_, ok, err = redisService.AcquireRoundLock(ctx, roundID)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, redisService.ReleaseRoundLock(ctx, roundID, token))
	next, ok, err := redisService.AcquireRoundLock(ctx, roundID)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NotEqual(t, token, next)
	require.NoError(t, redisService.ReleaseRoundLock(ctx, roundID, next))
}

func TestRedisService_ServerSeedRotation(t *testing.T) {
	ctx := context.Background()
	redisService := newRedis(t)

	current, err := redisService.ServerSeed(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, current)

	next, err := fairness.NewServerSeed()
	require.NoError(t, err)

	prev, err := redisService.RotateServerSeed(ctx, next)
	require.NoError(t, err)
	assert.Equal(t, current, prev)

	// retired but not yet published
	_, err = redisService.RevealedSeed(ctx, fairness.HashSeed(prev))
	assert.True(t, errors.Is(err, services.ErrSeedNotRevealed))

	pending, err := redisService.PendingSeeds(ctx)
	require.NoError(t, err)
	var queued bool
	for _, p := range pending {
		if p.Seed == prev {
			queued = true
			assert.WithinDuration(t, time.Now(), p.RetiredAt, time.Minute)
		}
	}
	assert.True(t, queued)

	require.NoError(t, redisService.RevealSeed(ctx, prev))
	revealed, err := redisService.RevealedSeed(ctx, fairness.HashSeed(prev))
	require.NoError(t, err)
	assert.Equal(t, prev, revealed)

	pending, err = redisService.PendingSeeds(ctx)
	require.NoError(t, err)
	for _, p := range pending {
		assert.NotEqual(t, prev, p.Seed)
	}

	_, err = redisService.RevealedSeed(ctx, fairness.HashSeed(next))
	assert.True(t, errors.Is(err, services.ErrSeedNotRevealed))
}

func TestRedisService_RateLimit(t *testing.T) {
	ctx := context.Background()
	redisService := newRedis(t)
	userID := int64(999996)
	redisService.ClearRateLimit(ctx, userID, "bet")
	defer redisService.ClearRateLimit(ctx, userID, "bet")

	for i := 0; i < 5; i++ {
		allowed, err := redisService.CheckRateLimit(ctx, userID, "bet", 5, time.Minute)
		require.NoError(t, err)
		assert.True(t, allowed, "request %d should be allowed", i+1)
	}

	allowed, err := redisService.CheckRateLimit(ctx, userID, "bet", 5, time.Minute)
	require.NoError(t, err)
	assert.False(t, allowed)

	ttl, err := redisService.RateLimitTTL(ctx, userID, "bet")
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
	assert.LessOrEqual(t, ttl, time.Minute)
}

func TestRedisService_History(t *testing.T) {
	ctx := context.Background()
	redisService := newRedis(t)
	userID := int64(999995)

	rec := &models.RoundRecord{
		ID:        models.GenerateRoundID(),
		UserID:    userID,
		GameType:  models.GameTypeDice,
		BetAmount: decimal.NewFromInt(1),
		Payout:    decimal.RequireFromString("1.96"),
		CreatedAt: time.Now(),
	}
	require.NoError(t, redisService.SaveRecord(ctx, rec))

	tx := &models.Transaction{
		ID:        models.GenerateTransactionID(),
		UserID:    userID,
		Type:      models.TransactionTypeWin,
		Amount:    rec.Payout,
		RoundID:   rec.ID,
		CreatedAt: rec.CreatedAt,
	}
	require.NoError(t, redisService.SaveTransaction(ctx, tx))

	history, err := redisService.GetGameHistory(ctx, userID, 10)
	require.NoError(t, err)
	require.NotEmpty(t, history)
	assert.Equal(t, rec.ID, history[0].ID)
	assert.True(t, rec.Payout.Equal(history[0].Payout))

	txs, err := redisService.GetUserTransactions(ctx, userID, 10)
	require.NoError(t, err)
	require.NotEmpty(t, txs)
	assert.Equal(t, tx.ID, txs[0].ID)
}
