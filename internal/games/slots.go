package games

import "github.com/shopspring/decimal"

const (
	SlotRows   = 3
	SlotReels  = 5
	minLineRun = 3
)

type Symbol struct {
	ID         int     `json:"id"`
	Name       string  `json:"name"`
	Weight     int     `json:"weight"`
	Multiplier float64 `json:"multiplier"`
}

// Symbols is ordered rarest first; the rarest symbol pays the most.
var Symbols = [...]Symbol{
	{ID: 0, Name: "seven", Weight: 1, Multiplier: 100},
	{ID: 1, Name: "diamond", Weight: 2, Multiplier: 40},
	{ID: 2, Name: "bell", Weight: 3, Multiplier: 20},
	{ID: 3, Name: "bar", Weight: 4, Multiplier: 10},
	{ID: 4, Name: "grape", Weight: 5, Multiplier: 6},
	{ID: 5, Name: "lemon", Weight: 6, Multiplier: 4},
	{ID: 6, Name: "cherry", Weight: 7, Multiplier: 2},
}

var totalSymbolWeight = func() int {
	total := 0
	for _, s := range Symbols {
		total += s.Weight
	}
	return total
}()

type Grid [SlotRows][SlotReels]int

type position struct{ row, reel int }

// payLines are the only lines checked: three rows and one zig-zag.
var payLines = func() [][SlotReels]position {
	lines := make([][SlotReels]position, 0, SlotRows+1)
	for r := 0; r < SlotRows; r++ {
		var line [SlotReels]position
		for c := 0; c < SlotReels; c++ {
			line[c] = position{r, c}
		}
		lines = append(lines, line)
	}
	return append(lines, [SlotReels]position{{0, 0}, {1, 1}, {2, 2}, {1, 3}, {0, 4}})
}()

type WinLine struct {
	Line       int     `json:"line"`
	Symbol     int     `json:"symbol"`
	Count      int     `json:"count"`
	Multiplier float64 `json:"multiplier"`
}

type SlotsResult struct {
	Grid     Grid      `json:"grid"`
	WinLines []WinLine `json:"win_lines"`
	PayoutResult
}

func drawSymbol(src Source) int {
	pick := src.IntN(totalSymbolWeight)
	for _, s := range Symbols {
		if pick < s.Weight {
			return s.ID
		}
		pick -= s.Weight
	}
	return Symbols[len(Symbols)-1].ID
}

func SpinGrid(src Source) Grid {
	var g Grid
	for r := range g {
		for c := range g[r] {
			g[r][c] = drawSymbol(src)
		}
	}
	return g
}

// EvaluateGrid only counts runs anchored at the leftmost reel.
func EvaluateGrid(g Grid) ([]WinLine, float64) {
	var (
		lines []WinLine
		total float64
	)
	for i, line := range payLines {
		first := g[line[0].row][line[0].reel]
		run := 1
		for run < SlotReels && g[line[run].row][line[run].reel] == first {
			run++
		}
		if run < minLineRun || first < 0 || first >= len(Symbols) {
			continue
		}
		m := Symbols[first].Multiplier * float64(run-minLineRun+1)
		lines = append(lines, WinLine{Line: i, Symbol: first, Count: run, Multiplier: m})
		total += m
	}
	return lines, total
}

func ScoreSlots(bet decimal.Decimal, g Grid) SlotsResult {
	lines, total := EvaluateGrid(g)
	payout := Payout(bet, total)
	return SlotsResult{
		Grid:     g,
		WinLines: lines,
		PayoutResult: PayoutResult{
			Win:        total > 0,
			Multiplier: total,
			Payout:     payout,
		},
	}
}

func PlaySlots(src Source, bet decimal.Decimal) SlotsResult {
	return ScoreSlots(bet, SpinGrid(src))
}
