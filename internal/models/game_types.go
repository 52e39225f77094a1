package models

import (
	"fmt"

	"github.com/shopspring/decimal"

	"micro-casino/internal/games"
)

type GameType string

const (
	GameTypeDice      GameType = "dice"
	GameTypeCrash     GameType = "crash"
	GameTypeRoulette  GameType = "roulette"
	GameTypeSlots     GameType = "slots"
	GameTypeBlackjack GameType = "blackjack"
	GameTypePoker     GameType = "poker"
)

func (g GameType) Valid() bool {
	switch g {
	case GameTypeDice, GameTypeCrash, GameTypeRoulette, GameTypeSlots, GameTypeBlackjack, GameTypePoker:
		return true
	}
	return false
}

// MultiStep games keep a Round in the store between player actions.
func (g GameType) MultiStep() bool {
	return g == GameTypeBlackjack || g == GameTypePoker
}

type BetLimits struct {
	Min decimal.Decimal
	Max decimal.Decimal
}

func (l BetLimits) Check(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("%w: bet amount must be positive", games.ErrInvalidParameters)
	}
	if !amount.Equal(amount.Truncate(2)) {
		return fmt.Errorf("%w: bet amount has more than two decimals", games.ErrInvalidParameters)
	}
	if amount.LessThan(l.Min) || amount.GreaterThan(l.Max) {
		return fmt.Errorf("%w: bet must be between %s and %s", games.ErrInvalidParameters, l.Min.StringFixed(2), l.Max.StringFixed(2))
	}
	return nil
}

type DiceRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Target int             `json:"target"`
	Over   bool            `json:"is_over"`
}

func (r *DiceRequest) Validate(l BetLimits) error {
	if err := l.Check(r.Amount); err != nil {
		return err
	}
	return games.ValidateDice(r.Target)
}

type CrashRequest struct {
	Amount    decimal.Decimal `json:"amount"`
	CashOutAt float64         `json:"cash_out_at"`
}

func (r *CrashRequest) Validate(l BetLimits) error {
	if err := l.Check(r.Amount); err != nil {
		return err
	}
	return games.ValidateCrash(r.CashOutAt)
}

const maxRouletteBets = 20

type RouletteRequest struct {
	Bets []games.RouletteBet `json:"bets"`
}

func (r *RouletteRequest) Total() decimal.Decimal {
	total := decimal.Zero
	for _, b := range r.Bets {
		total = total.Add(b.Amount)
	}
	return total
}

// Validate applies the limits to the combined stake of the spin.
func (r *RouletteRequest) Validate(l BetLimits) error {
	if len(r.Bets) == 0 || len(r.Bets) > maxRouletteBets {
		return fmt.Errorf("%w: between 1 and %d roulette bets required", games.ErrInvalidParameters, maxRouletteBets)
	}
	for i, b := range r.Bets {
		if err := b.Validate(); err != nil {
			return fmt.Errorf("bet %d: %w", i, err)
		}
	}
	return l.Check(r.Total())
}

// StakeRequest starts slots, blackjack and poker rounds.
type StakeRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

func (r *StakeRequest) Validate(l BetLimits) error {
	return l.Check(r.Amount)
}

type RoundActionRequest struct {
	RoundID string `json:"round_id" binding:"required"`
}

type PokerDrawRequest struct {
	RoundID string `json:"round_id" binding:"required"`
	Held    []int  `json:"held"`
}

func (r *PokerDrawRequest) Validate() error {
	return games.ValidateHeld(r.Held)
}

type ClientSeedRequest struct {
	ClientSeed string `json:"client_seed" binding:"required,min=8,max=64"`
}

type VerificationData struct {
	ClientSeed   string `json:"client_seed"`
	ServerHash   string `json:"server_hash"`
	CurrentNonce int64  `json:"current_nonce"`
}

// VerifyRequest replays a round's opening draw from revealed seeds.
type VerifyRequest struct {
	GameType   GameType `json:"game_type" binding:"required"`
	ServerSeed string   `json:"server_seed" binding:"required"`
	ClientSeed string   `json:"client_seed" binding:"required"`
	Nonce      int64    `json:"nonce"`
}
