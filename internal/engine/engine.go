// Package engine picks the bot's move in tic-tac-toe.
//
// Hard plays exact minimax and never loses. Medium plays a uniformly random
// empty cell MediumRandomRate of the time and Hard otherwise. Easy always
// plays a random empty cell.
package engine

import (
	"math/rand"
	"sync"
	"time"

	"github.com/jaminalder/codex-game-hub/internal/domain"
)

// MediumRandomRate is the chance a Medium bot ignores the search.
const MediumRandomRate = 0.15

const winScore = 10

// Rand is the random source used by the difficulty policy. *rand.Rand
// satisfies it.
type Rand interface {
	Intn(n int) int
	Float64() float64
}

// Candidate is the minimax value of playing at Index.
type Candidate struct {
	Index int `json:"index"`
	Score int `json:"score"`
}

// Engine wraps ChooseMove with its own random source. It keeps no state
// between searches.
type Engine struct {
	mu  sync.Mutex
	rng Rand
}

// New returns an engine drawing from rng, or from a clock-seeded source
// when rng is nil.
func New(rng Rand) *Engine {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Engine{rng: rng}
}

// ChooseMove is the package-level ChooseMove using the engine's source.
func (e *Engine) ChooseMove(b domain.Board, bot, human domain.Cell, d domain.Difficulty) (int, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return ChooseMove(b, bot, human, d, e.rng)
}

// ChooseMove returns the cell where bot should play. It returns (-1, false)
// when b has no empty cell. bot and human must be the two distinct marks.
func ChooseMove(b domain.Board, bot, human domain.Cell, d domain.Difficulty, rng Rand) (int, bool) {
	checkMarks(bot, human)
	empty := b.EmptyCells()
	if len(empty) == 0 {
		return -1, false
	}

	switch d {
	case domain.Easy:
		return empty[rng.Intn(len(empty))], true
	case domain.Medium:
		if rng.Float64() < MediumRandomRate {
			return empty[rng.Intn(len(empty))], true
		}
	}
	return bestMove(b, bot, human, empty), true
}

// Score returns the minimax value of every empty cell, ascending by index.
func Score(b domain.Board, bot, human domain.Cell) []Candidate {
	checkMarks(bot, human)
	empty := b.EmptyCells()
	out := make([]Candidate, 0, len(empty))
	for _, i := range empty {
		next := b
		next[i] = bot
		out = append(out, Candidate{Index: i, Score: minimax(next, human, bot, human, 0)})
	}
	return out
}

// bestMove keeps the first cell reaching the strict maximum.
func bestMove(b domain.Board, bot, human domain.Cell, empty []int) int {
	best := empty[0]
	bestScore := -winScore - 1
	for _, i := range empty {
		next := b
		next[i] = bot
		score := minimax(next, human, bot, human, 0)
		if score > bestScore {
			bestScore = score
			best = i
		}
	}
	return best
}

// minimax scores b with current to move. b is a copy; every child gets its
// own copy, so siblings never see each other's placements.
func minimax(b domain.Board, current, bot, human domain.Cell, depth int) int {
	if res := domain.Evaluate(b); res.Terminal() {
		switch {
		case res.Status == domain.Draw:
			return 0
		case res.Winner == bot:
			return winScore - depth
		default:
			return depth - winScore
		}
	}

	maximizing := current == bot
	best := winScore + 1
	if maximizing {
		best = -winScore - 1
	}
	for _, i := range b.EmptyCells() {
		next := b
		next[i] = current
		s := minimax(next, current.Opponent(), bot, human, depth+1)
		if maximizing && s > best || !maximizing && s < best {
			best = s
		}
	}
	return best
}

func checkMarks(bot, human domain.Cell) {
	if bot == domain.Empty || human == domain.Empty || bot == human {
		panic("engine: bot and human must be the two distinct marks")
	}
}
