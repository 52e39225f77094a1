package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"micro-casino/internal/config"
	"micro-casino/internal/fairness"
	"micro-casino/internal/models"
)

type RedisService struct {
	client *redis.Client
}

func NewRedisService(cfg *config.Config) (*RedisService, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisURL,
		Password: cfg.RedisPass,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisService{client: client}, nil
}

func (s *RedisService) Close() error {
	return s.client.Close()
}

func (s *RedisService) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func decodeWallet(data string) (*models.Wallet, error) {
	var wallet models.Wallet
	if err := json.Unmarshal([]byte(data), &wallet); err != nil {
		return nil, fmt.Errorf("failed to unmarshal wallet: %w", err)
	}
	return &wallet, nil
}

// GetWallet returns the user's wallet, creating it with the starting balance on first access.
func (s *RedisService) GetWallet(ctx context.Context, userID int64) (*models.Wallet, error) {
	key := fmt.Sprintf(KeyWallet, userID)

	data, err := s.client.Get(ctx, key).Result()
	if err == nil {
		return decodeWallet(data)
	}
	if !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}

	wallet, err := models.NewWallet(userID)
	if err != nil {
		return nil, err
	}
	encoded, err := json.Marshal(wallet)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal wallet: %w", err)
	}
	created, err := s.client.SetNX(ctx, key, encoded, 0).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to create wallet: %w", err)
	}
	if created {
		return wallet, nil
	}

	// another request created it first
	data, err = s.client.Get(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}
	return decodeWallet(data)
}

// updateWallet applies fn inside WATCH/MULTI and retries when the key changed underneath.
func (s *RedisService) updateWallet(ctx context.Context, userID int64, fn func(*models.Wallet) error) (*models.Wallet, error) {
	if _, err := s.GetWallet(ctx, userID); err != nil {
		return nil, err
	}

	key := fmt.Sprintf(KeyWallet, userID)
	var updated *models.Wallet

	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Result()
		if err != nil {
			return fmt.Errorf("failed to get wallet: %w", err)
		}
		wallet, err := decodeWallet(data)
		if err != nil {
			return err
		}
		if err := fn(wallet); err != nil {
			return err
		}
		encoded, err := json.Marshal(wallet)
		if err != nil {
			return fmt.Errorf("failed to marshal wallet: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, encoded, 0)
			return nil
		})
		if err == nil {
			updated = wallet
		}
		return err
	}

	for i := 0; i < maxWalletRetries; i++ {
		err := s.client.Watch(ctx, txf, key)
		if err == nil {
			return updated, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return nil, err
	}
	return nil, ErrWalletContention
}

// LockStake moves amount from the balance into the locked balance and
// consumes one nonce for the round's fair source.
func (s *RedisService) LockStake(ctx context.Context, userID int64, amount decimal.Decimal) (*StakeLock, error) {
	var lock StakeLock
	_, err := s.updateWallet(ctx, userID, func(w *models.Wallet) error {
		if w.Balance.LessThan(amount) {
			return fmt.Errorf("%w: have %s, need %s", ErrInsufficientBalance, w.Balance.StringFixed(2), amount.StringFixed(2))
		}
		lock = StakeLock{
			ClientSeed:    w.ClientSeed,
			Nonce:         w.Nonce,
			BalanceBefore: w.Balance,
		}
		w.Balance = w.Balance.Sub(amount)
		w.LockedBalance = w.LockedBalance.Add(amount)
		w.TotalWagered = w.TotalWagered.Add(amount)
		w.Nonce++
		lock.BalanceAfter = w.Balance
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &lock, nil
}

// SettleStake releases a locked stake and credits the payout (zero for a loss).
func (s *RedisService) SettleStake(ctx context.Context, userID int64, amount, payout decimal.Decimal) (*models.Wallet, error) {
	return s.updateWallet(ctx, userID, func(w *models.Wallet) error {
		w.LockedBalance = w.LockedBalance.Sub(amount)
		if w.LockedBalance.IsNegative() {
			w.LockedBalance = decimal.Zero
		}
		if payout.IsPositive() {
			w.Balance = w.Balance.Add(payout)
			w.TotalWon = w.TotalWon.Add(payout)
		}
		return nil
	})
}

// RefundStake returns a locked stake to the balance when its round could not be played out.
func (s *RedisService) RefundStake(ctx context.Context, userID int64, amount decimal.Decimal) (*models.Wallet, error) {
	return s.updateWallet(ctx, userID, func(w *models.Wallet) error {
		back := decimal.Min(amount, w.LockedBalance)
		w.LockedBalance = w.LockedBalance.Sub(back)
		w.Balance = w.Balance.Add(back)
		w.TotalWagered = w.TotalWagered.Sub(back)
		return nil
	})
}

func (s *RedisService) SetClientSeed(ctx context.Context, userID int64, seed string) (*models.Wallet, error) {
	return s.updateWallet(ctx, userID, func(w *models.Wallet) error {
		w.ClientSeed = seed
		return nil
	})
}

func (s *RedisService) SaveRound(ctx context.Context, round *models.Round, ttl time.Duration) error {
	data, err := json.Marshal(round)
	if err != nil {
		return fmt.Errorf("failed to marshal round: %w", err)
	}

	keyTTL := ttl * roundKeyTTLFactor
	userKey := fmt.Sprintf(KeyUserActiveRounds, round.UserID)
	seedKey := fmt.Sprintf(KeySeedRounds, round.ServerHash)

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, fmt.Sprintf(KeyRound, round.ID), data, keyTTL)
		pipe.SAdd(ctx, userKey, round.ID)
		pipe.Expire(ctx, userKey, keyTTL)
		pipe.SAdd(ctx, seedKey, round.ID)
		pipe.Expire(ctx, seedKey, keyTTL)
		pipe.ZAdd(ctx, KeyActiveRounds, redis.Z{
			Score:  float64(round.UpdatedAt.Unix()),
			Member: round.ID,
		})
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save round: %w", err)
	}
	return nil
}

func (s *RedisService) GetRound(ctx context.Context, roundID string) (*models.Round, error) {
	data, err := s.client.Get(ctx, fmt.Sprintf(KeyRound, roundID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%w: %s", ErrRoundNotFound, roundID)
		}
		return nil, fmt.Errorf("failed to get round: %w", err)
	}

	var round models.Round
	if err := json.Unmarshal([]byte(data), &round); err != nil {
		return nil, fmt.Errorf("failed to unmarshal round: %w", err)
	}
	return &round, nil
}

func (s *RedisService) CompleteRound(ctx context.Context, round *models.Round) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, fmt.Sprintf(KeyRound, round.ID))
		pipe.SRem(ctx, fmt.Sprintf(KeyUserActiveRounds, round.UserID), round.ID)
		pipe.SRem(ctx, fmt.Sprintf(KeySeedRounds, round.ServerHash), round.ID)
		pipe.ZRem(ctx, KeyActiveRounds, round.ID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to complete round: %w", err)
	}
	return nil
}

func (s *RedisService) GetUserActiveRounds(ctx context.Context, userID int64) ([]*models.Round, error) {
	userKey := fmt.Sprintf(KeyUserActiveRounds, userID)

	ids, err := s.client.SMembers(ctx, userKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get active rounds: %w", err)
	}

	rounds := make([]*models.Round, 0, len(ids))
	for _, id := range ids {
		round, err := s.GetRound(ctx, id)
		if errors.Is(err, ErrRoundNotFound) {
			s.client.SRem(ctx, userKey, id)
			continue
		}
		if err != nil {
			return nil, err
		}
		rounds = append(rounds, round)
	}
	return rounds, nil
}

// StaleRounds lists rounds not updated since before.
func (s *RedisService) StaleRounds(ctx context.Context, before time.Time) ([]string, error) {
	ids, err := s.client.ZRangeByScore(ctx, KeyActiveRounds, &redis.ZRangeBy{
		Min: "-inf",
		Max: fmt.Sprintf("%d", before.Unix()),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list stale rounds: %w", err)
	}
	return ids, nil
}

// ActiveRoundsForSeed counts live rounds dealt from a seed, dropping ids whose round key expired.
func (s *RedisService) ActiveRoundsForSeed(ctx context.Context, serverHash string) (int64, error) {
	seedKey := fmt.Sprintf(KeySeedRounds, serverHash)

	ids, err := s.client.SMembers(ctx, seedKey).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to get seed rounds: %w", err)
	}

	var live int64
	for _, id := range ids {
		n, err := s.client.Exists(ctx, fmt.Sprintf(KeyRound, id)).Result()
		if err != nil {
			return 0, fmt.Errorf("failed to check round: %w", err)
		}
		if n == 0 {
			s.client.SRem(ctx, seedKey, id)
			continue
		}
		live++
	}
	return live, nil
}

// releaseLock deletes the lock only while it still holds the caller's token.
var releaseLock = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

func (s *RedisService) AcquireRoundLock(ctx context.Context, roundID string) (string, bool, error) {
	token := uuid.New().String()
	ok, err := s.client.SetNX(ctx, fmt.Sprintf(KeyRoundLock, roundID), token, TTLRoundLock).Result()
	if err != nil {
		return "", false, fmt.Errorf("failed to lock round: %w", err)
	}
	if !ok {
		return "", false, nil
	}
	return token, true, nil
}

func (s *RedisService) ReleaseRoundLock(ctx context.Context, roundID, token string) error {
	err := releaseLock.Run(ctx, s.client, []string{fmt.Sprintf(KeyRoundLock, roundID)}, token).Err()
	if err != nil {
		return fmt.Errorf("failed to unlock round: %w", err)
	}
	return nil
}

func (s *RedisService) SaveRecord(ctx context.Context, rec *models.RoundRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal round record: %w", err)
	}

	historyKey := fmt.Sprintf(KeyUserHistory, rec.UserID)
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, fmt.Sprintf(KeyRecord, rec.ID), data, TTLRecord)
		pipe.ZAdd(ctx, historyKey, redis.Z{
			Score:  float64(rec.CreatedAt.UnixMilli()),
			Member: rec.ID,
		})
		// Keep only the last 100 rounds
		pipe.ZRemRangeByRank(ctx, historyKey, 0, -maxUserEntries-1)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save round record: %w", err)
	}
	return nil
}

func clampLimit(limit int64) int64 {
	if limit <= 0 || limit > maxUserEntries {
		return 50
	}
	return limit
}

// bulkGet fetches keys in one pipeline and skips the ones that expired.
func (s *RedisService) bulkGet(ctx context.Context, keys []string) ([]string, error) {
	if len(keys) == 0 {
		return nil, nil
	}

	pipe := s.client.Pipeline()
	cmds := make([]*redis.StringCmd, len(keys))
	for i, key := range keys {
		cmds[i] = pipe.Get(ctx, key)
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("pipeline execution failed: %w", err)
	}

	out := make([]string, 0, len(keys))
	for _, cmd := range cmds {
		data, err := cmd.Result()
		if err != nil {
			continue
		}
		out = append(out, data)
	}
	return out, nil
}

func (s *RedisService) GetGameHistory(ctx context.Context, userID int64, limit int64) ([]*models.RoundRecord, error) {
	ids, err := s.client.ZRevRange(ctx, fmt.Sprintf(KeyUserHistory, userID), 0, clampLimit(limit)-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get round ids: %w", err)
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = fmt.Sprintf(KeyRecord, id)
	}
	raw, err := s.bulkGet(ctx, keys)
	if err != nil {
		return nil, err
	}

	records := make([]*models.RoundRecord, 0, len(raw))
	for _, data := range raw {
		var rec models.RoundRecord
		if err := json.Unmarshal([]byte(data), &rec); err != nil {
			continue
		}
		records = append(records, &rec)
	}
	return records, nil
}

func (s *RedisService) SaveTransaction(ctx context.Context, tx *models.Transaction) error {
	data, err := json.Marshal(tx)
	if err != nil {
		return fmt.Errorf("failed to marshal transaction: %w", err)
	}

	userTxKey := fmt.Sprintf(KeyUserTransactions, tx.UserID)
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, fmt.Sprintf(KeyTransaction, tx.ID), data, TTLTransaction)
		pipe.ZAdd(ctx, userTxKey, redis.Z{
			Score:  float64(tx.CreatedAt.UnixMilli()),
			Member: tx.ID,
		})
		// Keep only last 100 transactions
		pipe.ZRemRangeByRank(ctx, userTxKey, 0, -maxUserEntries-1)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save transaction: %w", err)
	}
	return nil
}

func (s *RedisService) GetUserTransactions(ctx context.Context, userID int64, limit int64) ([]*models.Transaction, error) {
	ids, err := s.client.ZRevRange(ctx, fmt.Sprintf(KeyUserTransactions, userID), 0, clampLimit(limit)-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction IDs: %w", err)
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = fmt.Sprintf(KeyTransaction, id)
	}
	raw, err := s.bulkGet(ctx, keys)
	if err != nil {
		return nil, err
	}

	transactions := make([]*models.Transaction, 0, len(raw))
	for _, data := range raw {
		var tx models.Transaction
		if err := json.Unmarshal([]byte(data), &tx); err != nil {
			continue
		}
		transactions = append(transactions, &tx)
	}
	return transactions, nil
}

// ServerSeed returns the active server seed, creating one if none exists yet.
func (s *RedisService) ServerSeed(ctx context.Context) (string, error) {
	seed, err := s.client.Get(ctx, KeyServerSeed).Result()
	if err == nil {
		return seed, nil
	}
	if !errors.Is(err, redis.Nil) {
		return "", fmt.Errorf("failed to get server seed: %w", err)
	}

	fresh, err := fairness.NewServerSeed()
	if err != nil {
		return "", err
	}
	if _, err := s.client.SetNX(ctx, KeyServerSeed, fresh, 0).Result(); err != nil {
		return "", fmt.Errorf("failed to store server seed: %w", err)
	}
	return s.client.Get(ctx, KeyServerSeed).Result()
}

// RotateServerSeed swaps in next and queues the previous seed in seed:pending.
func (s *RedisService) RotateServerSeed(ctx context.Context, next string) (string, error) {
	prev, err := s.client.SetArgs(ctx, KeyServerSeed, next, redis.SetArgs{Get: true}).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return "", fmt.Errorf("failed to rotate server seed: %w", err)
	}
	if prev == "" {
		return "", nil
	}
	err = s.client.ZAdd(ctx, KeyPendingSeeds, redis.Z{
		Score:  float64(time.Now().Unix()),
		Member: prev,
	}).Err()
	if err != nil {
		return "", fmt.Errorf("failed to queue retired server seed: %w", err)
	}
	return prev, nil
}

func (s *RedisService) PendingSeeds(ctx context.Context) ([]PendingSeed, error) {
	entries, err := s.client.ZRangeWithScores(ctx, KeyPendingSeeds, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list pending seeds: %w", err)
	}

	pending := make([]PendingSeed, 0, len(entries))
	for _, z := range entries {
		seed, ok := z.Member.(string)
		if !ok {
			continue
		}
		pending = append(pending, PendingSeed{
			Seed:      seed,
			RetiredAt: time.Unix(int64(z.Score), 0),
		})
	}
	return pending, nil
}

// RevealSeed publishes a retired seed under its hash and drops it from the pending set.
func (s *RedisService) RevealSeed(ctx context.Context, seed string) error {
	hash := fairness.HashSeed(seed)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, fmt.Sprintf(KeyRevealedSeed, hash), seed, 0)
		pipe.ZRem(ctx, KeyPendingSeeds, seed)
		pipe.Del(ctx, fmt.Sprintf(KeySeedRounds, hash))
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to reveal server seed: %w", err)
	}
	return nil
}

func (s *RedisService) RevealedSeed(ctx context.Context, hash string) (string, error) {
	seed, err := s.client.Get(ctx, fmt.Sprintf(KeyRevealedSeed, hash)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrSeedNotRevealed
	}
	if err != nil {
		return "", fmt.Errorf("failed to get revealed seed: %w", err)
	}
	return seed, nil
}

func (s *RedisService) CheckRateLimit(ctx context.Context, userID int64, action string, limit int, window time.Duration) (bool, error) {
	key := fmt.Sprintf(KeyRateLimit, userID, action)

	var incr *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		// NX keeps the first window's deadline and also repairs a key left without a TTL
		pipe.ExpireNX(ctx, key, window)
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to check rate limit: %w", err)
	}

	return incr.Val() <= int64(limit), nil
}

func (s *RedisService) DeleteWallet(ctx context.Context, userID int64) error {
	return s.client.Del(ctx, fmt.Sprintf(KeyWallet, userID)).Err()
}

func (s *RedisService) ClearRateLimit(ctx context.Context, userID int64, action string) error {
	return s.client.Del(ctx, fmt.Sprintf(KeyRateLimit, userID, action)).Err()
}

func (s *RedisService) RateLimitTTL(ctx context.Context, userID int64, action string) (time.Duration, error) {
	return s.client.TTL(ctx, fmt.Sprintf(KeyRateLimit, userID, action)).Result()
}
