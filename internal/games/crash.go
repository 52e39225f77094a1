package games

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

const (
	CrashHouseEdge     = 0.03
	CrashMaxMultiplier = 100.0
	CrashMinCashOut    = 1.01

	// exponent applied to the uniform draw; skews points toward low multipliers
	crashSkew = 2.6
)

type CrashResult struct {
	CrashPoint        float64         `json:"crash_point"`
	CashOutAt         float64         `json:"cash_out_at"`
	CashedOut         bool            `json:"cashed_out"`
	CashOutMultiplier float64         `json:"cash_out_multiplier"`
	Win               bool            `json:"win"`
	Payout            decimal.Decimal `json:"payout"`
}

func ValidateCrash(cashOutAt float64) error {
	if math.IsNaN(cashOutAt) || cashOutAt < CrashMinCashOut || cashOutAt > CrashMaxMultiplier {
		return fmt.Errorf("%w: cash-out %.2f outside [%.2f,%.2f]", ErrInvalidParameters, cashOutAt, CrashMinCashOut, CrashMaxMultiplier)
	}
	return nil
}

// GenerateCrashPoint returns a multiplier >= 1.00 truncated to two places.
func GenerateCrashPoint(src Source) float64 {
	if src.Float64() < CrashHouseEdge {
		return 1.00
	}
	u := math.Pow(src.Float64(), crashSkew)
	point := math.Floor((CrashMinCashOut+(CrashMaxMultiplier-CrashMinCashOut)*u)*100) / 100
	return math.Max(point, 1.00)
}

func ScoreCrash(bet decimal.Decimal, cashOutAt, crashPoint float64) CrashResult {
	res := CrashResult{
		CrashPoint: crashPoint,
		CashOutAt:  cashOutAt,
		CashedOut:  cashOutAt <= crashPoint,
		Payout:     decimal.Zero,
	}
	if res.CashedOut {
		res.CashOutMultiplier = cashOutAt
		res.Payout = Payout(bet, cashOutAt)
		res.Win = res.Payout.IsPositive()
	}
	return res
}

func PlayCrash(src Source, bet decimal.Decimal, cashOutAt float64) CrashResult {
	return ScoreCrash(bet, cashOutAt, GenerateCrashPoint(src))
}
