package games

type BlackjackStatus string

const (
	StatusPlaying      BlackjackStatus = "playing"
	StatusPlayerBusted BlackjackStatus = "player_busted"
	StatusDealerBusted BlackjackStatus = "dealer_busted"
	StatusPlayerWin    BlackjackStatus = "player_win"
	StatusDealerWin    BlackjackStatus = "dealer_win"
	StatusPush         BlackjackStatus = "push"
	StatusBlackjack    BlackjackStatus = "blackjack"
)

const (
	blackjackTotal = 21
	dealerStandsOn = 17
)

type Hand struct {
	Cards     []Card `json:"cards"`
	Value     int    `json:"value"`
	Soft      bool   `json:"soft"`
	Busted    bool   `json:"busted"`
	Blackjack bool   `json:"blackjack"`
}

type BlackjackGame struct {
	Deck   Deck            `json:"deck"`
	Player Hand            `json:"player"`
	Dealer Hand            `json:"dealer"`
	Status BlackjackStatus `json:"status"`
}

func blackjackCardValue(rank string) int {
	switch rank {
	case "A":
		return 11
	case "K", "Q", "J", "10":
		return 10
	default:
		return int(rank[0] - '0')
	}
}

// HandValue counts aces as 11 and demotes them to 1 one at a time while over 21.
func HandValue(cards []Card) (value int, soft bool) {
	aces := 0
	for _, c := range cards {
		if c.Rank == "A" {
			aces++
		}
		value += blackjackCardValue(c.Rank)
	}
	for value > blackjackTotal && aces > 0 {
		value -= 10
		aces--
	}
	return value, aces > 0
}

// NewHand copies cards so later appends never alias a previous hand.
func NewHand(cards []Card) Hand {
	own := make([]Card, len(cards))
	copy(own, cards)
	value, soft := HandValue(own)
	return Hand{
		Cards:     own,
		Value:     value,
		Soft:      soft,
		Busted:    value > blackjackTotal,
		Blackjack: len(own) == 2 && value == blackjackTotal,
	}
}

func (h Hand) with(c Card) Hand {
	cards := make([]Card, len(h.Cards), len(h.Cards)+1)
	copy(cards, h.Cards)
	return NewHand(append(cards, c))
}

// StartBlackjack shuffles a fresh deck and deals player, dealer, player, dealer.
func StartBlackjack(src Source) BlackjackGame {
	deck := Shuffle(src, NewDeck())
	var p, d [2]Card
	p[0], deck = deck.Draw()
	d[0], deck = deck.Draw()
	p[1], deck = deck.Draw()
	d[1], deck = deck.Draw()

	g := BlackjackGame{
		Deck:   deck,
		Player: NewHand(p[:]),
		Dealer: NewHand(d[:]),
		Status: StatusPlaying,
	}
	switch {
	case g.Player.Blackjack && g.Dealer.Blackjack:
		g.Status = StatusPush
	case g.Player.Blackjack:
		g.Status = StatusBlackjack
	case g.Dealer.Blackjack:
		g.Status = StatusDealerWin
	}
	return g
}

func Hit(g BlackjackGame) BlackjackGame {
	if g.Status != StatusPlaying {
		return g
	}
	card, deck := g.Deck.Draw()
	g.Deck = deck
	g.Player = g.Player.with(card)
	if g.Player.Busted {
		g.Status = StatusPlayerBusted
	}
	return g
}

// Stand plays out the dealer, who stands on any 17 including soft 17.
func Stand(g BlackjackGame) BlackjackGame {
	if g.Status != StatusPlaying {
		return g
	}
	for g.Dealer.Value < dealerStandsOn {
		var card Card
		card, g.Deck = g.Deck.Draw()
		g.Dealer = g.Dealer.with(card)
	}
	switch {
	case g.Dealer.Busted:
		g.Status = StatusDealerBusted
	case g.Dealer.Value > g.Player.Value:
		g.Status = StatusDealerWin
	case g.Player.Value > g.Dealer.Value:
		g.Status = StatusPlayerWin
	default:
		g.Status = StatusPush
	}
	return g
}

func (g BlackjackGame) Finished() bool {
	return g.Status != StatusPlaying
}

func BlackjackMultiplier(status BlackjackStatus) float64 {
	switch status {
	case StatusBlackjack:
		return 2.5
	case StatusPlayerWin, StatusDealerBusted:
		return 2
	case StatusPush:
		return 1
	default:
		return 0
	}
}
