package games

import (
	"fmt"
	"sort"
)

const PokerHandSize = 5

// Jacks-or-Better paytable.
const (
	RoyalFlush    = "Royal Flush"
	StraightFlush = "Straight Flush"
	FourOfAKind   = "Four of a Kind"
	FullHouse     = "Full House"
	Flush         = "Flush"
	Straight      = "Straight"
	ThreeOfAKind  = "Three of a Kind"
	TwoPair       = "Two Pair"
	JacksOrBetter = "Jacks or Better"
	LowPair       = "Low Pair"
	HighCard      = "High Card"
)

var Paytable = map[string]float64{
	RoyalFlush:    800,
	StraightFlush: 50,
	FourOfAKind:   25,
	FullHouse:     9,
	Flush:         6,
	Straight:      4,
	ThreeOfAKind:  3,
	TwoPair:       2,
	JacksOrBetter: 1,
	LowPair:       0,
	HighCard:      0,
}

type PokerHand [PokerHandSize]Card

type PokerResult struct {
	Rank       string  `json:"rank"`
	Multiplier float64 `json:"multiplier"`
}

// pokerCardValue is ace-high: 2..14.
func pokerCardValue(rank string) int {
	switch rank {
	case "A":
		return 14
	case "K":
		return 13
	case "Q":
		return 12
	case "J":
		return 11
	case "10":
		return 10
	default:
		return int(rank[0] - '0')
	}
}

func EvaluateHand(hand PokerHand) PokerResult {
	values := make([]int, 0, PokerHandSize)
	counts := make(map[int]int, PokerHandSize)
	flush := true
	for _, c := range hand {
		v := pokerCardValue(c.Rank)
		values = append(values, v)
		counts[v]++
		if c.Suit != hand[0].Suit {
			flush = false
		}
	}
	sort.Ints(values)

	straight := len(counts) == PokerHandSize &&
		(values[4]-values[0] == 4 || isWheel(values))

	var pairs, trips, quads, pairValue int
	for v, n := range counts {
		switch n {
		case 2:
			pairs++
			pairValue = v
		case 3:
			trips++
		case 4:
			quads++
		}
	}

	rank := HighCard
	switch {
	case straight && flush && values[0] == 10:
		rank = RoyalFlush
	case straight && flush:
		rank = StraightFlush
	case quads == 1:
		rank = FourOfAKind
	case trips == 1 && pairs == 1:
		rank = FullHouse
	case flush:
		rank = Flush
	case straight:
		rank = Straight
	case trips == 1:
		rank = ThreeOfAKind
	case pairs == 2:
		rank = TwoPair
	case pairs == 1 && pairValue >= 11:
		rank = JacksOrBetter
	case pairs == 1:
		rank = LowPair
	}
	return PokerResult{Rank: rank, Multiplier: Paytable[rank]}
}

// isWheel expects sorted values: A-2-3-4-5.
func isWheel(values []int) bool {
	return values[0] == 2 && values[1] == 3 && values[2] == 4 && values[3] == 5 && values[4] == 14
}

// DealPoker takes the first five cards of a fresh shuffle; the rest is kept for the draw.
func DealPoker(src Source) (PokerHand, Deck) {
	deck := Shuffle(src, NewDeck())
	var hand PokerHand
	for i := range hand {
		hand[i], deck = deck.Draw()
	}
	return hand, deck
}

func ValidateHeld(held []int) error {
	seen := make(map[int]bool, len(held))
	for _, i := range held {
		if i < 0 || i >= PokerHandSize {
			return fmt.Errorf("%w: held index %d outside [0,%d]", ErrInvalidParameters, i, PokerHandSize-1)
		}
		if seen[i] {
			return fmt.Errorf("%w: held index %d repeated", ErrInvalidParameters, i)
		}
		seen[i] = true
	}
	return nil
}

// Redraw replaces every position not in held, in order, from the front of deck.
func Redraw(hand PokerHand, deck Deck, held []int) (PokerHand, Deck) {
	keep := make(map[int]bool, len(held))
	for _, i := range held {
		keep[i] = true
	}
	for i := range hand {
		if !keep[i] {
			hand[i], deck = deck.Draw()
		}
	}
	return hand, deck
}
