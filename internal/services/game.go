package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"micro-casino/internal/fairness"
	"micro-casino/internal/games"
	"micro-casino/internal/models"
)

// GameEngine runs rounds: it locks the stake, draws the outcome from the
// provably fair source, settles the wallet and records history. All round
// state lives in the Store so any instance can serve any step.
type GameEngine struct {
	store       Store
	broadcaster Broadcaster
	limits      models.BetLimits
	roundTTL    time.Duration
	revealDelay time.Duration
	now         func() time.Time
}

// DefaultSeedRevealDelay is how long a retired server seed stays hidden at minimum.
const DefaultSeedRevealDelay = time.Minute

func NewGameEngine(store Store, limits models.BetLimits, roundTTL time.Duration) *GameEngine {
	return &GameEngine{
		store:       store,
		limits:      limits,
		roundTTL:    roundTTL,
		revealDelay: DefaultSeedRevealDelay,
		now:         time.Now,
	}
}

func (ge *GameEngine) SetBroadcaster(b Broadcaster) {
	ge.broadcaster = b
}

// SetSeedRevealDelay sets the grace period a retired seed waits before it can
// be revealed. Stakes placed just before a rotation are saved within it.
func (ge *GameEngine) SetSeedRevealDelay(d time.Duration) {
	ge.revealDelay = d
}

func (ge *GameEngine) Limits() models.BetLimits {
	return ge.limits
}

// stake is a bet that has been moved into the locked balance.
type stake struct {
	amount     decimal.Decimal
	lock       *StakeLock
	serverSeed string
}

func (s *stake) source() games.Source {
	return fairness.NewSource(s.serverSeed, s.lock.ClientSeed, s.lock.Nonce)
}

func (ge *GameEngine) placeStake(ctx context.Context, userID int64, amount decimal.Decimal) (*stake, error) {
	allowed, err := ge.store.CheckRateLimit(ctx, userID, "bet", DefaultRateLimitBets, time.Minute)
	if err != nil {
		return nil, fmt.Errorf("rate limit check failed: %w", err)
	}
	if !allowed {
		return nil, fmt.Errorf("%w: bets", ErrRateLimited)
	}

	serverSeed, err := ge.store.ServerSeed(ctx)
	if err != nil {
		return nil, err
	}

	lock, err := ge.store.LockStake(ctx, userID, amount)
	if err != nil {
		return nil, fmt.Errorf("failed to lock stake: %w", err)
	}

	return &stake{amount: amount, lock: lock, serverSeed: serverSeed}, nil
}

// outcome is what a finished round reduces to before it touches the wallet.
type outcome struct {
	games.PayoutResult
	details any
}

type settlement struct {
	roundID    string
	userID     int64
	gameType   models.GameType
	clientSeed string
	hash       string
	nonce      int64
	bet        decimal.Decimal
	before     decimal.Decimal
	after      decimal.Decimal
}

func (ge *GameEngine) settle(ctx context.Context, s settlement, out outcome) (*models.RoundRecord, error) {
	payout := out.Payout
	if payout.IsNegative() {
		payout = decimal.Zero
	}

	details, err := json.Marshal(out.details)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal round details: %w", err)
	}

	wallet, err := ge.store.SettleStake(ctx, s.userID, s.bet, payout)
	if err != nil {
		return nil, fmt.Errorf("failed to settle round %s: %w", s.roundID, err)
	}

	rec := &models.RoundRecord{
		ID:         s.roundID,
		UserID:     s.userID,
		GameType:   s.gameType,
		BetAmount:  s.bet,
		Payout:     payout,
		Result:     payout.Sub(s.bet),
		Multiplier: out.Multiplier,
		Win:        out.Win,
		Details:    details,
		ClientSeed: s.clientSeed,
		ServerHash: s.hash,
		Nonce:      s.nonce,
		NewBalance: wallet.Balance,
		CreatedAt:  ge.now(),
	}

	logger := log.WithFields(log.Fields{
		"round_id": rec.ID,
		"user_id":  rec.UserID,
		"game":     rec.GameType,
		"bet":      rec.BetAmount.String(),
		"payout":   rec.Payout.String(),
	})

	// The wallet is already settled; history failures are logged, not returned.
	if err := ge.store.SaveRecord(ctx, rec); err != nil {
		logger.WithError(err).Error("failed to save round record")
	}
	ge.recordTransactions(ctx, rec, s, wallet)

	if ge.broadcaster != nil {
		ge.broadcaster.BroadcastRoundResult(rec)
	}

	logger.Info("round settled")
	return rec, nil
}

func (ge *GameEngine) recordTransactions(ctx context.Context, rec *models.RoundRecord, s settlement, wallet *models.Wallet) {
	txs := []*models.Transaction{{
		ID:            models.GenerateTransactionID(),
		UserID:        rec.UserID,
		Type:          models.TransactionTypeBet,
		Amount:        rec.BetAmount.Neg(),
		BalanceBefore: s.before,
		BalanceAfter:  s.after,
		RoundID:       rec.ID,
		Description:   fmt.Sprintf("Placed bet on %s", rec.GameType),
		CreatedAt:     rec.CreatedAt,
	}}
	if rec.Payout.IsPositive() {
		txs = append(txs, &models.Transaction{
			ID:            models.GenerateTransactionID(),
			UserID:        rec.UserID,
			Type:          models.TransactionTypeWin,
			Amount:        rec.Payout,
			BalanceBefore: wallet.Balance.Sub(rec.Payout),
			BalanceAfter:  wallet.Balance,
			RoundID:       rec.ID,
			Description: fmt.Sprintf("Won %s on %s (%.2fx)",
				models.FormatCurrency(rec.Payout), rec.GameType, rec.Multiplier),
			CreatedAt: rec.CreatedAt,
		})
	}

	for _, tx := range txs {
		if err := ge.store.SaveTransaction(ctx, tx); err != nil {
			log.WithError(err).WithField("round_id", rec.ID).Error("failed to save transaction")
		}
	}
}

// refund hands a locked stake back after its round failed before settling.
func (ge *GameEngine) refund(ctx context.Context, userID int64, roundID string, amount decimal.Decimal, cause error) {
	logger := log.WithFields(log.Fields{
		"round_id": roundID,
		"user_id":  userID,
		"amount":   amount.String(),
	}).WithError(cause)

	wallet, err := ge.store.RefundStake(ctx, userID, amount)
	if err != nil {
		logger.WithField("refund_error", err.Error()).Error("failed to refund stake, funds remain locked")
		return
	}

	tx := &models.Transaction{
		ID:            models.GenerateTransactionID(),
		UserID:        userID,
		Type:          models.TransactionTypeRefund,
		Amount:        amount,
		BalanceBefore: wallet.Balance.Sub(amount),
		BalanceAfter:  wallet.Balance,
		RoundID:       roundID,
		Description:   fmt.Sprintf("Refunded %s", models.FormatCurrency(amount)),
		CreatedAt:     ge.now(),
	}
	if err := ge.store.SaveTransaction(ctx, tx); err != nil {
		log.WithError(err).WithField("round_id", roundID).Error("failed to save transaction")
	}
	logger.Warn("round failed, stake refunded")
}

// playInstant runs a single-shot game end to end.
func (ge *GameEngine) playInstant(ctx context.Context, userID int64, gameType models.GameType, amount decimal.Decimal, play func(games.Source) outcome) (*models.RoundRecord, error) {
	st, err := ge.placeStake(ctx, userID, amount)
	if err != nil {
		return nil, err
	}

	out := play(st.source())
	roundID := models.GenerateRoundID()

	rec, err := ge.settle(ctx, settlement{
		roundID:    roundID,
		userID:     userID,
		gameType:   gameType,
		clientSeed: st.lock.ClientSeed,
		hash:       fairness.HashSeed(st.serverSeed),
		nonce:      st.lock.Nonce,
		bet:        amount,
		before:     st.lock.BalanceBefore,
		after:      st.lock.BalanceAfter,
	}, out)
	if err != nil {
		ge.refund(ctx, userID, roundID, amount, err)
		return nil, err
	}
	return rec, nil
}

func (ge *GameEngine) PlayDice(ctx context.Context, userID int64, req *models.DiceRequest) (*models.RoundRecord, error) {
	if err := req.Validate(ge.limits); err != nil {
		return nil, err
	}
	return ge.playInstant(ctx, userID, models.GameTypeDice, req.Amount, func(src games.Source) outcome {
		res := games.PlayDice(src, req.Amount, req.Target, req.Over)
		return outcome{PayoutResult: res.PayoutResult, details: res}
	})
}

func (ge *GameEngine) PlayCrash(ctx context.Context, userID int64, req *models.CrashRequest) (*models.RoundRecord, error) {
	if err := req.Validate(ge.limits); err != nil {
		return nil, err
	}
	return ge.playInstant(ctx, userID, models.GameTypeCrash, req.Amount, func(src games.Source) outcome {
		res := games.PlayCrash(src, req.Amount, req.CashOutAt)
		return outcome{
			PayoutResult: games.PayoutResult{Win: res.Win, Multiplier: res.CashOutMultiplier, Payout: res.Payout},
			details:      res,
		}
	})
}

func (ge *GameEngine) PlayRoulette(ctx context.Context, userID int64, req *models.RouletteRequest) (*models.RoundRecord, error) {
	if err := req.Validate(ge.limits); err != nil {
		return nil, err
	}
	total := req.Total()
	return ge.playInstant(ctx, userID, models.GameTypeRoulette, total, func(src games.Source) outcome {
		res := games.PlayRoulette(src, req.Bets)
		return outcome{
			PayoutResult: games.PayoutResult{
				Win:        res.Win,
				Multiplier: res.TotalPayout.Div(total).InexactFloat64(),
				Payout:     res.TotalPayout,
			},
			details: res,
		}
	})
}

func (ge *GameEngine) PlaySlots(ctx context.Context, userID int64, req *models.StakeRequest) (*models.RoundRecord, error) {
	if err := req.Validate(ge.limits); err != nil {
		return nil, err
	}
	return ge.playInstant(ctx, userID, models.GameTypeSlots, req.Amount, func(src games.Source) outcome {
		res := games.PlaySlots(src, req.Amount)
		return outcome{PayoutResult: res.PayoutResult, details: res}
	})
}

func (ge *GameEngine) newRound(userID int64, gameType models.GameType, st *stake) *models.Round {
	now := ge.now()
	return &models.Round{
		ID:         models.GenerateRoundID(),
		UserID:     userID,
		GameType:   gameType,
		BetAmount:  st.amount,
		ClientSeed: st.lock.ClientSeed,
		ServerHash: fairness.HashSeed(st.serverSeed),
		Nonce:      st.lock.Nonce,
		Status:     models.RoundStatusActive,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// roundOutcome reports whether the round can be settled and, if so, how.
func roundOutcome(r *models.Round) (outcome, bool) {
	switch r.GameType {
	case models.GameTypeBlackjack:
		g := r.Blackjack
		if g == nil || !g.Finished() {
			return outcome{}, false
		}
		mult := games.BlackjackMultiplier(g.Status)
		return outcome{
			PayoutResult: games.PayoutResult{
				Win:        mult > 1,
				Multiplier: mult,
				Payout:     games.Payout(r.BetAmount, mult),
			},
			details: models.NewBlackjackView(g),
		}, true
	case models.GameTypePoker:
		p := r.Poker
		if p == nil || !p.Drawn {
			return outcome{}, false
		}
		res := games.EvaluateHand(p.Hand)
		return outcome{
			PayoutResult: games.PayoutResult{
				Win:        res.Multiplier > 0,
				Multiplier: res.Multiplier,
				Payout:     games.Payout(r.BetAmount, res.Multiplier),
			},
			details: models.NewPokerView(p),
		}, true
	}
	return outcome{}, false
}

// advance settles a finished round or stores it for the next step.
func (ge *GameEngine) advance(ctx context.Context, r *models.Round, st settlement) (*models.RoundOutcome, error) {
	out, done := roundOutcome(r)
	if !done {
		r.UpdatedAt = ge.now()
		if err := ge.store.SaveRound(ctx, r, ge.roundTTL); err != nil {
			return nil, err
		}
		return &models.RoundOutcome{Round: r}, nil
	}

	rec, err := ge.settle(ctx, st, out)
	if err != nil {
		return nil, err
	}
	r.Status = models.RoundStatusCompleted
	r.UpdatedAt = rec.CreatedAt
	if err := ge.store.CompleteRound(ctx, r); err != nil {
		log.WithError(err).WithField("round_id", r.ID).Warn("failed to remove completed round")
	}
	if err := ge.RevealPendingSeeds(ctx); err != nil {
		log.WithError(err).Warn("failed to reveal pending server seeds")
	}
	return &models.RoundOutcome{Round: r, Record: rec}, nil
}

func roundSettlement(r *models.Round) settlement {
	return settlement{
		roundID:    r.ID,
		userID:     r.UserID,
		gameType:   r.GameType,
		clientSeed: r.ClientSeed,
		hash:       r.ServerHash,
		nonce:      r.Nonce,
		bet:        r.BetAmount,
	}
}

func (ge *GameEngine) startRound(ctx context.Context, userID int64, gameType models.GameType, req *models.StakeRequest, deal func(*models.Round, games.Source)) (*models.RoundOutcome, error) {
	if err := req.Validate(ge.limits); err != nil {
		return nil, err
	}
	st, err := ge.placeStake(ctx, userID, req.Amount)
	if err != nil {
		return nil, err
	}

	r := ge.newRound(userID, gameType, st)
	deal(r, st.source())

	s := roundSettlement(r)
	s.before, s.after = st.lock.BalanceBefore, st.lock.BalanceAfter
	res, err := ge.advance(ctx, r, s)
	if err != nil {
		// neither saved nor settled, so nothing else refers to the stake
		ge.refund(ctx, userID, r.ID, st.amount, err)
		return nil, err
	}
	return res, nil
}

func (ge *GameEngine) StartBlackjack(ctx context.Context, userID int64, req *models.StakeRequest) (*models.RoundOutcome, error) {
	return ge.startRound(ctx, userID, models.GameTypeBlackjack, req, func(r *models.Round, src games.Source) {
		g := games.StartBlackjack(src)
		r.Blackjack = &g
	})
}

func (ge *GameEngine) DealPoker(ctx context.Context, userID int64, req *models.StakeRequest) (*models.RoundOutcome, error) {
	return ge.startRound(ctx, userID, models.GameTypePoker, req, func(r *models.Round, src games.Source) {
		hand, deck := games.DealPoker(src)
		r.Poker = &models.PokerState{Hand: hand, Deck: deck}
	})
}

// step loads a round under its lock, applies fn and advances it.
// The lock guarantees one in-flight step per round across instances.
func (ge *GameEngine) step(ctx context.Context, userID int64, roundID string, gameType models.GameType, fn func(*models.Round)) (*models.RoundOutcome, error) {
	allowed, err := ge.store.CheckRateLimit(ctx, userID, "action", DefaultRateLimitActions, time.Minute)
	if err != nil {
		return nil, fmt.Errorf("rate limit check failed: %w", err)
	}
	if !allowed {
		return nil, fmt.Errorf("%w: actions", ErrRateLimited)
	}
	return ge.lockedStep(ctx, roundID, func(r *models.Round) error {
		if r.UserID != userID {
			return ErrUnauthorizedRound
		}
		if r.GameType != gameType {
			return fmt.Errorf("%w: round %s is a %s round", games.ErrInvalidParameters, r.ID, r.GameType)
		}
		fn(r)
		return nil
	})
}

func (ge *GameEngine) lockedStep(ctx context.Context, roundID string, fn func(*models.Round) error) (*models.RoundOutcome, error) {
	token, ok, err := ge.store.AcquireRoundLock(ctx, roundID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrRoundBusy
	}
	defer func() {
		if err := ge.store.ReleaseRoundLock(ctx, roundID, token); err != nil {
			log.WithError(err).WithField("round_id", roundID).Warn("failed to release round lock")
		}
	}()

	r, err := ge.store.GetRound(ctx, roundID)
	if err != nil {
		return nil, err
	}
	if r.Status != models.RoundStatusActive {
		return nil, ErrRoundFinished
	}
	if err := fn(r); err != nil {
		return nil, err
	}
	return ge.advance(ctx, r, roundSettlement(r))
}

func (ge *GameEngine) HitBlackjack(ctx context.Context, userID int64, roundID string) (*models.RoundOutcome, error) {
	return ge.step(ctx, userID, roundID, models.GameTypeBlackjack, func(r *models.Round) {
		next := games.Hit(*r.Blackjack)
		r.Blackjack = &next
	})
}

func (ge *GameEngine) StandBlackjack(ctx context.Context, userID int64, roundID string) (*models.RoundOutcome, error) {
	return ge.step(ctx, userID, roundID, models.GameTypeBlackjack, func(r *models.Round) {
		next := games.Stand(*r.Blackjack)
		r.Blackjack = &next
	})
}

func (ge *GameEngine) DrawPoker(ctx context.Context, userID int64, req *models.PokerDrawRequest) (*models.RoundOutcome, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return ge.step(ctx, userID, req.RoundID, models.GameTypePoker, func(r *models.Round) {
		r.Poker.Hand, r.Poker.Deck = games.Redraw(r.Poker.Hand, r.Poker.Deck, req.Held)
		r.Poker.Held = req.Held
		r.Poker.Drawn = true
	})
}

// CleanupStaleRounds finishes rounds abandoned for longer than the round TTL:
// blackjack hands stand, poker hands are scored as dealt.
func (ge *GameEngine) CleanupStaleRounds(ctx context.Context) {
	ids, err := ge.store.StaleRounds(ctx, ge.now().Add(-ge.roundTTL))
	if err != nil {
		log.WithError(err).Error("failed to list stale rounds")
		return
	}

	for _, id := range ids {
		_, err := ge.lockedStep(ctx, id, func(r *models.Round) error {
			switch r.GameType {
			case models.GameTypeBlackjack:
				next := games.Stand(*r.Blackjack)
				r.Blackjack = &next
			case models.GameTypePoker:
				r.Poker.Held = []int{0, 1, 2, 3, 4}
				r.Poker.Drawn = true
			}
			return nil
		})
		if err != nil {
			log.WithError(err).WithField("round_id", id).Warn("failed to finish stale round")
			continue
		}
		log.WithField("round_id", id).Info("finished stale round")
	}
}

func (ge *GameEngine) GetUserActiveRounds(ctx context.Context, userID int64) ([]*models.Round, error) {
	return ge.store.GetUserActiveRounds(ctx, userID)
}

func (ge *GameEngine) GetVerificationData(ctx context.Context, userID int64) (*models.VerificationData, error) {
	wallet, err := ge.store.GetWallet(ctx, userID)
	if err != nil {
		return nil, err
	}
	seed, err := ge.store.ServerSeed(ctx)
	if err != nil {
		return nil, err
	}

	return &models.VerificationData{
		ClientSeed:   wallet.ClientSeed,
		ServerHash:   fairness.HashSeed(seed),
		CurrentNonce: wallet.Nonce,
	}, nil
}

// RotateServerSeed starts a new server seed and returns the retired one. The
// retired seed is revealed by RevealPendingSeeds once no round dealt from it
// is still open.
func (ge *GameEngine) RotateServerSeed(ctx context.Context) (string, error) {
	next, err := fairness.NewServerSeed()
	if err != nil {
		return "", err
	}
	prev, err := ge.store.RotateServerSeed(ctx, next)
	if err != nil {
		return "", err
	}
	log.WithFields(log.Fields{
		"retired_hash": fairness.HashSeed(prev),
		"active_hash":  fairness.HashSeed(next),
	}).Info("rotated server seed")

	if err := ge.RevealPendingSeeds(ctx); err != nil {
		log.WithError(err).Warn("failed to reveal pending server seeds")
	}
	return prev, nil
}

// RevealPendingSeeds publishes every retired seed that is past the reveal
// delay and has no active rounds left.
func (ge *GameEngine) RevealPendingSeeds(ctx context.Context) error {
	pending, err := ge.store.PendingSeeds(ctx)
	if err != nil {
		return err
	}

	for _, p := range pending {
		if ge.now().Sub(p.RetiredAt) < ge.revealDelay {
			continue
		}
		hash := fairness.HashSeed(p.Seed)
		live, err := ge.store.ActiveRoundsForSeed(ctx, hash)
		if err != nil {
			return err
		}
		if live > 0 {
			log.WithFields(log.Fields{"server_hash": hash, "active_rounds": live}).Debug("server seed still in use")
			continue
		}
		if err := ge.store.RevealSeed(ctx, p.Seed); err != nil {
			return err
		}
		log.WithField("server_hash", hash).Info("revealed server seed")
	}
	return nil
}

func (ge *GameEngine) RevealedSeed(ctx context.Context, hash string) (string, error) {
	return ge.store.RevealedSeed(ctx, hash)
}

// SetClientSeed lets a player change their client seed; it never resets the nonce.
func (ge *GameEngine) SetClientSeed(ctx context.Context, userID int64, seed string) (*models.Wallet, error) {
	return ge.store.SetClientSeed(ctx, userID, seed)
}

// Verify replays the raw draw of a round from revealed seeds. It does not
// need bet parameters because every draw is independent of them.
func Verify(req *models.VerifyRequest) (any, error) {
	src := fairness.NewSource(req.ServerSeed, req.ClientSeed, req.Nonce)

	switch req.GameType {
	case models.GameTypeDice:
		return map[string]any{"roll": games.RollDice(src)}, nil
	case models.GameTypeCrash:
		return map[string]any{"crash_point": games.GenerateCrashPoint(src)}, nil
	case models.GameTypeRoulette:
		n := games.SpinRoulette(src)
		return map[string]any{"number": n, "color": games.NumberColor(n)}, nil
	case models.GameTypeSlots:
		return map[string]any{"grid": games.SpinGrid(src)}, nil
	case models.GameTypeBlackjack:
		g := games.StartBlackjack(src)
		return map[string]any{
			"player": g.Player.Cards,
			"dealer": g.Dealer.Cards,
			"deck":   g.Deck,
		}, nil
	case models.GameTypePoker:
		hand, deck := games.DealPoker(src)
		return map[string]any{"hand": hand, "deck": deck}, nil
	}
	return nil, fmt.Errorf("%w: unknown game type %q", games.ErrInvalidParameters, req.GameType)
}
