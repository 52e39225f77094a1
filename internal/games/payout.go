package games

import (
	"crypto/rand"
	"encoding/binary"
	"errors"
	"math"
	mrand "math/rand/v2"

	"github.com/shopspring/decimal"
)

// ErrInvalidParameters is returned by every validator in this package.
var ErrInvalidParameters = errors.New("invalid parameters")

// Source supplies uniform randomness to the outcome generators.
// *rand.Rand from math/rand/v2 and fairness.Source both satisfy it.
type Source interface {
	Float64() float64
	IntN(n int) int
}

// NewSource returns a ChaCha8 source seeded from crypto/rand.
func NewSource() Source {
	var seed [32]byte
	if _, err := rand.Read(seed[:]); err != nil {
		binary.LittleEndian.PutUint64(seed[:], mrand.Uint64())
	}
	return mrand.New(mrand.NewChaCha8(seed))
}

// Payout floors bet*multiplier to cents. Anything non-finite or non-positive pays nothing.
func Payout(bet decimal.Decimal, multiplier float64) decimal.Decimal {
	if !bet.IsPositive() || multiplier <= 0 || math.IsNaN(multiplier) || math.IsInf(multiplier, 0) {
		return decimal.Zero
	}
	return bet.Mul(decimal.NewFromFloat(multiplier)).RoundFloor(2)
}

// PayoutResult is the common shape every game reduces to.
type PayoutResult struct {
	Win        bool            `json:"win"`
	Multiplier float64         `json:"multiplier"`
	Payout     decimal.Decimal `json:"payout"`
}
