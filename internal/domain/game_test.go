package domain

import (
	"errors"
	"testing"
)

// helper to apply a sequence of cell indexes
func playMoves(t *testing.T, g *Game, moves []int) {
	t.Helper()
	for i, m := range moves {
		if err := g.PlayIndex(m); err != nil {
			t.Fatalf("move %d (%d) failed: %v", i, m, err)
		}
	}
}

func TestNewGameInitialState(t *testing.T) {
	g := New()
	if g.Turn != X {
		t.Fatalf("expected initial turn X, got %v", g.Turn)
	}
	if g.Moves != 0 {
		t.Fatalf("expected 0 moves, got %d", g.Moves)
	}
	if g.Over() {
		t.Fatalf("expected game not over")
	}
	if g.Winner() != Empty {
		t.Fatalf("expected no winner, got %v", g.Winner())
	}
	if g.Result.Line != -1 {
		t.Fatalf("expected no winning line, got %d", g.Result.Line)
	}
	for i, c := range g.Board {
		if c != Empty {
			t.Fatalf("expected empty board, cell %d = %v", i, c)
		}
	}
}

func TestPlayOutOfBounds(t *testing.T) {
	g := New()
	cases := [][2]int{{-1, 0}, {0, -1}, {3, 0}, {0, 3}, {5, 5}}
	for _, m := range cases {
		if err := g.Play(m[0], m[1]); !errors.Is(err, ErrOutOfBounds) {
			t.Fatalf("expected ErrOutOfBounds for %v, got %v", m, err)
		}
	}
	for _, i := range []int{-1, 9, 42} {
		if err := g.PlayIndex(i); !errors.Is(err, ErrOutOfBounds) {
			t.Fatalf("expected ErrOutOfBounds for index %d, got %v", i, err)
		}
	}
}

func TestPlayOccupied(t *testing.T) {
	g := New()
	if err := g.Play(0, 0); err != nil {
		t.Fatalf("first move failed: %v", err)
	}
	if err := g.PlayIndex(0); !errors.Is(err, ErrOccupied) {
		t.Fatalf("expected ErrOccupied on same cell, got %v", err)
	}
	if g.Turn != O || g.Moves != 1 {
		t.Fatalf("rejected move must not change state: turn=%v moves=%d", g.Turn, g.Moves)
	}
}

func TestPlayRowColMatchesIndex(t *testing.T) {
	g := New()
	if err := g.Play(2, 1); err != nil {
		t.Fatalf("move failed: %v", err)
	}
	if g.Board[7] != X {
		t.Fatalf("expected row 2 col 1 at index 7, board=%v", g.Board)
	}
	if g.Turn != O {
		t.Fatalf("expected turn to flip to O, got %v", g.Turn)
	}
}

func TestWinRecordsLineForEitherMark(t *testing.T) {
	for li, line := range Lines {
		// X plays the line, O fills elsewhere.
		var fillers []int
		for i := 0; i < 9 && len(fillers) < 3; i++ {
			if i != line[0] && i != line[1] && i != line[2] {
				fillers = append(fillers, i)
			}
		}
		g := New()
		playMoves(t, &g, []int{line[0], fillers[0], line[1], fillers[1], line[2]})
		if !g.Over() || g.Winner() != X {
			t.Fatalf("expected X to win on line %v; result=%+v", line, g.Result)
		}
		if g.Moves != 5 || g.Turn != X {
			t.Fatalf("expected 5 moves and turn frozen on X, got %d %v", g.Moves, g.Turn)
		}
		if cells, ok := g.Result.Cells(); !ok || cells != line {
			t.Fatalf("expected winning cells %v, got %v (line %d)", line, cells, li)
		}
	}
}

func TestOWins(t *testing.T) {
	g := New()
	// X: 0, 1, 8   O: 2, 4, 6
	playMoves(t, &g, []int{0, 2, 1, 4, 8, 6})
	if !g.Over() || g.Winner() != O {
		t.Fatalf("expected O to win; result=%+v", g.Result)
	}
	if g.Result.Line != 7 {
		t.Fatalf("expected anti-diagonal (line 7), got %d", g.Result.Line)
	}
}

func TestDrawNoWinner(t *testing.T) {
	g := New()
	// X O X / X O O / O X X
	playMoves(t, &g, []int{0, 1, 2, 4, 3, 5, 7, 6, 8})
	if !g.Over() || g.Result.Status != Draw {
		t.Fatalf("expected draw, got %+v", g.Result)
	}
	if g.Winner() != Empty {
		t.Fatalf("expected no winner on draw, got %v", g.Winner())
	}
	if g.Moves != 9 {
		t.Fatalf("expected 9 moves on draw, got %d", g.Moves)
	}
}

func TestGameOverBlocksFurtherMoves(t *testing.T) {
	g := New()
	playMoves(t, &g, []int{0, 3, 1, 4, 2})
	if !g.Over() || g.Winner() != X {
		t.Fatalf("expected X win before extra move")
	}
	if err := g.Play(2, 2); !errors.Is(err, ErrGameOver) {
		t.Fatalf("expected ErrGameOver, got %v", err)
	}
	if err := g.PlayIndex(8); !errors.Is(err, ErrGameOver) {
		t.Fatalf("expected ErrGameOver, got %v", err)
	}
}
