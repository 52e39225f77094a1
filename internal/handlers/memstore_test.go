package handlers_test

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"micro-casino/internal/fairness"
	"micro-casino/internal/models"
	"micro-casino/internal/services"
)

// memStore is an in-process services.Store for HTTP tests.
type memStore struct {
	mu       sync.Mutex
	wallets  map[int64]*models.Wallet
	rounds   map[string]models.Round
	locks    map[string]string
	records  map[int64][]*models.RoundRecord
	txs      map[int64][]*models.Transaction
	seed     string
	pending  []services.PendingSeed
	revealed map[string]string
	lockSeq  int
}

var _ services.Store = (*memStore)(nil)

func newMemStore() *memStore {
	return &memStore{
		wallets:  make(map[int64]*models.Wallet),
		rounds:   make(map[string]models.Round),
		locks:    make(map[string]string),
		records:  make(map[int64][]*models.RoundRecord),
		txs:      make(map[int64][]*models.Transaction),
		seed:     "test-server-seed",
		revealed: make(map[string]string),
	}
}

func (m *memStore) wallet(userID int64) *models.Wallet {
	w, ok := m.wallets[userID]
	if !ok {
		w, _ = models.NewWallet(userID)
		m.wallets[userID] = w
	}
	return w
}

func (m *memStore) GetWallet(_ context.Context, userID int64) (*models.Wallet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w := *m.wallet(userID)
	return &w, nil
}

func (m *memStore) LockStake(_ context.Context, userID int64, amount decimal.Decimal) (*services.StakeLock, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w := m.wallet(userID)
	if w.Balance.LessThan(amount) {
		return nil, fmt.Errorf("%w: have %s", services.ErrInsufficientBalance, w.Balance)
	}
	lock := &services.StakeLock{ClientSeed: w.ClientSeed, Nonce: w.Nonce, BalanceBefore: w.Balance}
	w.Balance = w.Balance.Sub(amount)
	w.LockedBalance = w.LockedBalance.Add(amount)
	w.TotalWagered = w.TotalWagered.Add(amount)
	w.Nonce++
	lock.BalanceAfter = w.Balance
	return lock, nil
}

func (m *memStore) SettleStake(_ context.Context, userID int64, amount, payout decimal.Decimal) (*models.Wallet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w := m.wallet(userID)
	w.LockedBalance = w.LockedBalance.Sub(amount)
	w.Balance = w.Balance.Add(payout)
	w.TotalWon = w.TotalWon.Add(payout)
	out := *w
	return &out, nil
}

func (m *memStore) RefundStake(_ context.Context, userID int64, amount decimal.Decimal) (*models.Wallet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w := m.wallet(userID)
	w.LockedBalance = w.LockedBalance.Sub(amount)
	w.Balance = w.Balance.Add(amount)
	w.TotalWagered = w.TotalWagered.Sub(amount)
	out := *w
	return &out, nil
}

func (m *memStore) SetClientSeed(_ context.Context, userID int64, seed string) (*models.Wallet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w := m.wallet(userID)
	w.ClientSeed = seed
	out := *w
	return &out, nil
}

func (m *memStore) SaveRound(_ context.Context, round *models.Round, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rounds[round.ID] = *round
	return nil
}

func (m *memStore) GetRound(_ context.Context, roundID string) (*models.Round, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rounds[roundID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", services.ErrRoundNotFound, roundID)
	}
	return &r, nil
}

func (m *memStore) CompleteRound(_ context.Context, round *models.Round) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rounds, round.ID)
	return nil
}

func (m *memStore) GetUserActiveRounds(_ context.Context, userID int64) ([]*models.Round, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Round
	for _, r := range m.rounds {
		if r.UserID == userID {
			r := r
			out = append(out, &r)
		}
	}
	return out, nil
}

func (m *memStore) StaleRounds(_ context.Context, before time.Time) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []string
	for id, r := range m.rounds {
		if !r.UpdatedAt.After(before) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (m *memStore) ActiveRoundsForSeed(_ context.Context, serverHash string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, r := range m.rounds {
		if r.ServerHash == serverHash {
			n++
		}
	}
	return n, nil
}

func (m *memStore) AcquireRoundLock(_ context.Context, roundID string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, held := m.locks[roundID]; held {
		return "", false, nil
	}
	m.lockSeq++
	token := fmt.Sprintf("lock-%d", m.lockSeq)
	m.locks[roundID] = token
	return token, true, nil
}

func (m *memStore) ReleaseRoundLock(_ context.Context, roundID, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.locks[roundID] == token {
		delete(m.locks, roundID)
	}
	return nil
}

func (m *memStore) SaveRecord(_ context.Context, rec *models.RoundRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[rec.UserID] = append([]*models.RoundRecord{rec}, m.records[rec.UserID]...)
	return nil
}

func (m *memStore) GetGameHistory(_ context.Context, userID int64, limit int64) ([]*models.RoundRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	recs := m.records[userID]
	if int64(len(recs)) > limit {
		recs = recs[:limit]
	}
	return recs, nil
}

func (m *memStore) SaveTransaction(_ context.Context, tx *models.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.txs[tx.UserID] = append([]*models.Transaction{tx}, m.txs[tx.UserID]...)
	return nil
}

func (m *memStore) GetUserTransactions(_ context.Context, userID int64, limit int64) ([]*models.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	txs := m.txs[userID]
	if int64(len(txs)) > limit {
		txs = txs[:limit]
	}
	return txs, nil
}

func (m *memStore) ServerSeed(_ context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.seed, nil
}

func (m *memStore) RotateServerSeed(_ context.Context, next string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	prev := m.seed
	m.seed = next
	m.pending = append(m.pending, services.PendingSeed{Seed: prev, RetiredAt: time.Now()})
	return prev, nil
}

func (m *memStore) PendingSeeds(context.Context) ([]services.PendingSeed, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]services.PendingSeed(nil), m.pending...), nil
}

func (m *memStore) RevealSeed(_ context.Context, seed string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.revealed[fairness.HashSeed(seed)] = seed
	kept := m.pending[:0]
	for _, p := range m.pending {
		if p.Seed != seed {
			kept = append(kept, p)
		}
	}
	m.pending = kept
	return nil
}

func (m *memStore) RevealedSeed(_ context.Context, hash string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seed, ok := m.revealed[hash]
	if !ok {
		return "", services.ErrSeedNotRevealed
	}
	return seed, nil
}

func (m *memStore) CheckRateLimit(context.Context, int64, string, int, time.Duration) (bool, error) {
	return true, nil
}
