package models

import "micro-casino/internal/games"

// HandView is a blackjack hand as shown to the player.
type HandView struct {
	Cards      []games.Card `json:"cards"`
	Value      int          `json:"value"`
	Soft       bool         `json:"soft"`
	HiddenCard bool         `json:"hidden_card,omitempty"`
}

type BlackjackView struct {
	Player HandView              `json:"player"`
	Dealer HandView              `json:"dealer"`
	Status games.BlackjackStatus `json:"status"`
}

// NewBlackjackView never exposes the deck and hides the dealer's hole card
// while the hand is still being played.
func NewBlackjackView(g *games.BlackjackGame) BlackjackView {
	v := BlackjackView{
		Player: HandView{Cards: g.Player.Cards, Value: g.Player.Value, Soft: g.Player.Soft},
		Dealer: HandView{Cards: g.Dealer.Cards, Value: g.Dealer.Value, Soft: g.Dealer.Soft},
		Status: g.Status,
	}
	if !g.Finished() && len(g.Dealer.Cards) > 0 {
		up := games.NewHand(g.Dealer.Cards[:1])
		v.Dealer = HandView{Cards: up.Cards, Value: up.Value, Soft: up.Soft, HiddenCard: true}
	}
	return v
}

type PokerView struct {
	Hand       games.PokerHand `json:"hand"`
	Held       []int           `json:"held,omitempty"`
	Rank       string          `json:"rank"`
	Multiplier float64         `json:"multiplier"`
	Drawn      bool            `json:"drawn"`
}

// NewPokerView shows the current hand's rank even before the draw.
func NewPokerView(p *PokerState) PokerView {
	res := games.EvaluateHand(p.Hand)
	return PokerView{
		Hand:       p.Hand,
		Held:       p.Held,
		Rank:       res.Rank,
		Multiplier: res.Multiplier,
		Drawn:      p.Drawn,
	}
}

// RoundView is the client-facing shape of an in-flight or just-finished round.
type RoundView struct {
	ID         string         `json:"id"`
	GameType   GameType       `json:"game_type"`
	BetAmount  string         `json:"bet_amount"`
	Status     RoundStatus    `json:"status"`
	ServerHash string         `json:"server_hash"`
	ClientSeed string         `json:"client_seed"`
	Nonce      int64          `json:"nonce"`
	Blackjack  *BlackjackView `json:"blackjack,omitempty"`
	Poker      *PokerView     `json:"poker,omitempty"`
	Result     *RoundRecord   `json:"result,omitempty"`
}

func NewRoundView(o *RoundOutcome) RoundView {
	r := o.Round
	v := RoundView{
		ID:         r.ID,
		GameType:   r.GameType,
		BetAmount:  r.BetAmount.StringFixed(2),
		Status:     r.Status,
		ServerHash: r.ServerHash,
		ClientSeed: r.ClientSeed,
		Nonce:      r.Nonce,
		Result:     o.Record,
	}
	if r.Blackjack != nil {
		bj := NewBlackjackView(r.Blackjack)
		v.Blackjack = &bj
	}
	if r.Poker != nil {
		pv := NewPokerView(r.Poker)
		v.Poker = &pv
	}
	return v
}
