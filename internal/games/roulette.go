package games

import (
	"fmt"

	"github.com/shopspring/decimal"
)

type RouletteBetType string

const (
	BetStraight RouletteBetType = "straight"
	BetRed      RouletteBetType = "red"
	BetBlack    RouletteBetType = "black"
	BetOdd      RouletteBetType = "odd"
	BetEven     RouletteBetType = "even"
	BetLow      RouletteBetType = "low"
	BetHigh     RouletteBetType = "high"
	BetDozen1   RouletteBetType = "1st12"
	BetDozen2   RouletteBetType = "2nd12"
	BetDozen3   RouletteBetType = "3rd12"
	BetColumn1  RouletteBetType = "col1"
	BetColumn2  RouletteBetType = "col2"
	BetColumn3  RouletteBetType = "col3"
)

const (
	ColorGreen = "green"
	ColorRed   = "red"
	ColorBlack = "black"

	RouletteMaxNumber = 36
)

// rouletteMultipliers include the returned stake.
var rouletteMultipliers = map[RouletteBetType]float64{
	BetStraight: 36,
	BetRed:      2,
	BetBlack:    2,
	BetOdd:      2,
	BetEven:     2,
	BetLow:      2,
	BetHigh:     2,
	BetDozen1:   3,
	BetDozen2:   3,
	BetDozen3:   3,
	BetColumn1:  3,
	BetColumn2:  3,
	BetColumn3:  3,
}

var redNumbers = map[int]bool{
	1: true, 3: true, 5: true, 7: true, 9: true, 12: true,
	14: true, 16: true, 18: true, 19: true, 21: true, 23: true,
	25: true, 27: true, 30: true, 32: true, 34: true, 36: true,
}

type RouletteBet struct {
	Type   RouletteBetType `json:"type"`
	Number *int            `json:"number,omitempty"`
	Amount decimal.Decimal `json:"amount"`
}

type RouletteBetResult struct {
	RouletteBet
	Win        bool            `json:"win"`
	Multiplier float64         `json:"multiplier"`
	Payout     decimal.Decimal `json:"payout"`
}

type RouletteResult struct {
	Number      int                 `json:"number"`
	Color       string              `json:"color"`
	Bets        []RouletteBetResult `json:"bets"`
	TotalBet    decimal.Decimal     `json:"total_bet"`
	TotalPayout decimal.Decimal     `json:"total_payout"`
	Win         bool                `json:"win"`
}

func (b RouletteBet) Validate() error {
	if !b.Amount.IsPositive() {
		return fmt.Errorf("%w: roulette bet amount must be positive", ErrInvalidParameters)
	}
	if _, ok := rouletteMultipliers[b.Type]; !ok {
		return fmt.Errorf("%w: unknown roulette bet type %q", ErrInvalidParameters, b.Type)
	}
	if b.Type == BetStraight {
		if b.Number == nil || *b.Number < 0 || *b.Number > RouletteMaxNumber {
			return fmt.Errorf("%w: straight bet needs a number in [0,%d]", ErrInvalidParameters, RouletteMaxNumber)
		}
	}
	return nil
}

func NumberColor(n int) string {
	switch {
	case n == 0:
		return ColorGreen
	case redNumbers[n]:
		return ColorRed
	default:
		return ColorBlack
	}
}

func RouletteMultiplier(t RouletteBetType) float64 {
	return rouletteMultipliers[t]
}

// Covers reports whether the bet wins when the ball lands on n.
func (b RouletteBet) Covers(n int) bool {
	if n == 0 {
		return b.Type == BetStraight && b.Number != nil && *b.Number == 0
	}
	switch b.Type {
	case BetStraight:
		return b.Number != nil && *b.Number == n
	case BetRed:
		return NumberColor(n) == ColorRed
	case BetBlack:
		return NumberColor(n) == ColorBlack
	case BetOdd:
		return n%2 == 1
	case BetEven:
		return n%2 == 0
	case BetLow:
		return n >= 1 && n <= 18
	case BetHigh:
		return n >= 19 && n <= 36
	case BetDozen1:
		return n >= 1 && n <= 12
	case BetDozen2:
		return n >= 13 && n <= 24
	case BetDozen3:
		return n >= 25 && n <= 36
	case BetColumn1:
		return n%3 == 1
	case BetColumn2:
		return n%3 == 2
	case BetColumn3:
		return n%3 == 0
	}
	return false
}

// SpinRoulette returns a pocket in [0,36].
func SpinRoulette(src Source) int {
	return src.IntN(RouletteMaxNumber + 1)
}

func ScoreRoulette(bets []RouletteBet, number int) RouletteResult {
	res := RouletteResult{
		Number:      number,
		Color:       NumberColor(number),
		Bets:        make([]RouletteBetResult, 0, len(bets)),
		TotalBet:    decimal.Zero,
		TotalPayout: decimal.Zero,
	}
	for _, b := range bets {
		br := RouletteBetResult{RouletteBet: b, Payout: decimal.Zero}
		if b.Covers(number) {
			br.Win = true
			br.Multiplier = RouletteMultiplier(b.Type)
			br.Payout = Payout(b.Amount, br.Multiplier)
		}
		res.TotalBet = res.TotalBet.Add(b.Amount)
		res.TotalPayout = res.TotalPayout.Add(br.Payout)
		res.Bets = append(res.Bets, br)
	}
	res.Win = res.TotalPayout.IsPositive()
	return res
}

func PlayRoulette(src Source, bets []RouletteBet) RouletteResult {
	return ScoreRoulette(bets, SpinRoulette(src))
}
