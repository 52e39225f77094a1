package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Wallet struct {
	UserID        int64           `json:"user_id"`
	Balance       decimal.Decimal `json:"balance"`
	LockedBalance decimal.Decimal `json:"locked_balance"`
	TotalWagered  decimal.Decimal `json:"total_wagered"`
	TotalWon      decimal.Decimal `json:"total_won"`

	// Provably fair seeds
	ClientSeed string `json:"client_seed"`
	Nonce      int64  `json:"nonce"`
}

type TransactionType string

const (
	TransactionTypeBet    TransactionType = "bet"
	TransactionTypeWin    TransactionType = "win"
	TransactionTypeRefund TransactionType = "refund"
)

type Transaction struct {
	ID            string          `json:"id"`
	UserID        int64           `json:"user_id"`
	Type          TransactionType `json:"type"`
	Amount        decimal.Decimal `json:"amount"`
	BalanceBefore decimal.Decimal `json:"balance_before"`
	BalanceAfter  decimal.Decimal `json:"balance_after"`
	RoundID       string          `json:"round_id,omitempty"`
	Description   string          `json:"description"`
	CreatedAt     time.Time       `json:"created_at"`
}

type BalanceResponse struct {
	Balance       decimal.Decimal `json:"balance"`
	LockedBalance decimal.Decimal `json:"locked_balance"`
	TotalWagered  decimal.Decimal `json:"total_wagered"`
	TotalWon      decimal.Decimal `json:"total_won"`
}

func (w *Wallet) Response() BalanceResponse {
	return BalanceResponse{
		Balance:       w.Balance,
		LockedBalance: w.LockedBalance,
		TotalWagered:  w.TotalWagered,
		TotalWon:      w.TotalWon,
	}
}
