package domain

import "errors"

// Game holds the current state of a Tic-Tac-Toe match.
type Game struct {
	Board  Board
	Turn   Cell
	Result Result
	Moves  int
}

// Errors returned by domain operations.
var (
	ErrOutOfBounds = errors.New("out of bounds")
	ErrOccupied    = errors.New("cell occupied")
	ErrGameOver    = errors.New("game over")
)

// New returns a new game with X to move.
func New() Game {
	return Game{Turn: X, Result: Result{Status: InProgress, Line: -1}}
}

// Over reports whether the game reached a win or a draw.
func (g Game) Over() bool { return g.Result.Terminal() }

// Winner returns the winning mark, or Empty when there is none.
func (g Game) Winner() Cell {
	if g.Result.Status != Win {
		return Empty
	}
	return g.Result.Winner
}

// Play attempts to play the current turn at row r, column c (0..2).
func (g *Game) Play(r, c int) error {
	if r < 0 || r > 2 || c < 0 || c > 2 {
		if g.Over() {
			return ErrGameOver
		}
		return ErrOutOfBounds
	}
	return g.PlayIndex(r*3 + c)
}

// PlayIndex plays the current turn at the row-major cell index i.
func (g *Game) PlayIndex(i int) error {
	if g.Over() {
		return ErrGameOver
	}
	if i < 0 || i >= len(g.Board) {
		return ErrOutOfBounds
	}
	if g.Board[i] != Empty {
		return ErrOccupied
	}

	g.Board[i] = g.Turn
	g.Moves++

	g.Result = Evaluate(g.Board)
	if g.Result.Terminal() {
		return nil
	}
	g.Turn = g.Turn.Opponent()
	return nil
}
