package games

import (
	"fmt"

	"github.com/shopspring/decimal"
)

const (
	DiceHouseEdge = 0.02
	DiceMinTarget = 1
	DiceMaxTarget = 99
)

type DiceResult struct {
	Roll   int  `json:"roll"`
	Target int  `json:"target"`
	Over   bool `json:"is_over"`
	PayoutResult
}

func ValidateDice(target int) error {
	if target < DiceMinTarget || target > DiceMaxTarget {
		return fmt.Errorf("%w: dice target %d outside [%d,%d]", ErrInvalidParameters, target, DiceMinTarget, DiceMaxTarget)
	}
	return nil
}

// DiceWinChance is the advertised probability as a fraction of 1.
func DiceWinChance(target int, over bool) float64 {
	if over {
		return float64(100-target) / 100
	}
	return float64(target) / 100
}

// DiceMultiplier depends only on target and direction so it can be shown before the bet.
func DiceMultiplier(target int, over bool) float64 {
	chance := DiceWinChance(target, over)
	if chance <= 0 {
		return 0
	}
	return (1 - DiceHouseEdge) / chance
}

// RollDice returns an integer in [1,100].
func RollDice(src Source) int {
	return src.IntN(100) + 1
}

func ScoreDice(bet decimal.Decimal, target int, over bool, roll int) DiceResult {
	win := (over && roll > target) || (!over && roll < target)
	res := DiceResult{
		Roll:   roll,
		Target: target,
		Over:   over,
		PayoutResult: PayoutResult{
			Win:        win,
			Multiplier: DiceMultiplier(target, over),
			Payout:     decimal.Zero,
		},
	}
	if win {
		res.Payout = Payout(bet, res.Multiplier)
	}
	return res
}

func PlayDice(src Source, bet decimal.Decimal, target int, over bool) DiceResult {
	return ScoreDice(bet, target, over, RollDice(src))
}
