package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"micro-casino/internal/games"
)

type RoundStatus string

const (
	RoundStatusActive    RoundStatus = "active"
	RoundStatusCompleted RoundStatus = "completed"
)

type PokerState struct {
	Hand  games.PokerHand `json:"hand"`
	Deck  games.Deck      `json:"deck"`
	Held  []int           `json:"held,omitempty"`
	Drawn bool            `json:"drawn"`
}

// Round is an in-flight multi-step game. It lives in the store under a TTL
// and is only ever advanced by one request at a time.
type Round struct {
	ID         string          `json:"id"`
	UserID     int64           `json:"user_id"`
	GameType   GameType        `json:"game_type"`
	BetAmount  decimal.Decimal `json:"bet_amount"`
	ClientSeed string          `json:"client_seed"`
	ServerHash string          `json:"server_hash"`
	Nonce      int64           `json:"nonce"`
	Status     RoundStatus     `json:"status"`

	Blackjack *games.BlackjackGame `json:"blackjack,omitempty"`
	Poker     *PokerState          `json:"poker,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RoundRecord is the history entry written once a round settles.
type RoundRecord struct {
	ID         string          `json:"id"`
	UserID     int64           `json:"user_id"`
	GameType   GameType        `json:"game_type"`
	BetAmount  decimal.Decimal `json:"bet_amount"`
	Payout     decimal.Decimal `json:"payout"`
	Result     decimal.Decimal `json:"result"`
	Multiplier float64         `json:"multiplier"`
	Win        bool            `json:"win"`
	Details    json.RawMessage `json:"details"`

	ClientSeed string `json:"client_seed"`
	ServerHash string `json:"server_hash"`
	Nonce      int64  `json:"nonce"`

	NewBalance decimal.Decimal `json:"new_balance"`
	CreatedAt  time.Time       `json:"created_at"`
}

// RoundOutcome is returned by every multi-step action. Record is set once
// the round has settled.
type RoundOutcome struct {
	Round  *Round
	Record *RoundRecord
}
