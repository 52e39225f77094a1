package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"micro-casino/internal/fairness"
)

// StartingBalance is credited to a wallet the first time it is read.
var StartingBalance = decimal.NewFromInt(10000)

func GenerateRoundID() string {
	return fmt.Sprintf("round_%s_%s", time.Now().Format("20060102"), uuid.NewString())
}

func GenerateTransactionID() string {
	return fmt.Sprintf("tx_%s_%s", time.Now().Format("20060102"), uuid.NewString())
}

func NewWallet(userID int64) (*Wallet, error) {
	clientSeed, err := fairness.NewClientSeed()
	if err != nil {
		return nil, fmt.Errorf("failed to generate client seed: %w", err)
	}

	return &Wallet{
		UserID:        userID,
		Balance:       StartingBalance,
		LockedBalance: decimal.Zero,
		TotalWagered:  decimal.Zero,
		TotalWon:      decimal.Zero,
		ClientSeed:    clientSeed,
		Nonce:         0,
	}, nil
}

func FormatCurrency(amount decimal.Decimal) string {
	return "$" + amount.StringFixed(2)
}
