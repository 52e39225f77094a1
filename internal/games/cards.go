package games

import "fmt"

type Suit string

const (
	Spades   Suit = "spades"
	Hearts   Suit = "hearts"
	Diamonds Suit = "diamonds"
	Clubs    Suit = "clubs"
)

var suits = [...]Suit{Spades, Hearts, Diamonds, Clubs}

var ranks = [...]string{"2", "3", "4", "5", "6", "7", "8", "9", "10", "J", "Q", "K", "A"}

// Card carries no numeric value; blackjack and poker each map ranks to values themselves.
type Card struct {
	Suit Suit   `json:"suit"`
	Rank string `json:"rank"`
}

func (c Card) String() string {
	return fmt.Sprintf("%s of %s", c.Rank, c.Suit)
}

// Deck is dealt from the front.
type Deck []Card

func NewDeck() Deck {
	d := make(Deck, 0, len(suits)*len(ranks))
	for _, s := range suits {
		for _, r := range ranks {
			d = append(d, Card{Suit: s, Rank: r})
		}
	}
	return d
}

// Shuffle returns a Fisher-Yates permutation of a copy of d.
func Shuffle(src Source, d Deck) Deck {
	out := make(Deck, len(d))
	copy(out, d)
	for i := len(out) - 1; i > 0; i-- {
		j := src.IntN(i + 1)
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// Draw panics on an empty deck: no round consumes 52 cards.
func (d Deck) Draw() (Card, Deck) {
	if len(d) == 0 {
		panic("games: draw from empty deck")
	}
	return d[0], d[1:]
}
