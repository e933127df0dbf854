package domain

import (
	"errors"
	"math/rand"
	"testing"
	"time"
)

func newTestMemory(t *testing.T, d Difficulty) Memory {
	t.Helper()
	return NewMemory(d, rand.New(rand.NewSource(1)))
}

// pairOf returns the index of the other card showing the same symbol as i.
func pairOf(m Memory, i int) int {
	for j, c := range m.Cards {
		if j != i && c.Symbol == m.Cards[i].Symbol {
			return j
		}
	}
	return -1
}

// nonPairOf returns any unmatched card with a different symbol than i.
func nonPairOf(m Memory, i int) int {
	for j, c := range m.Cards {
		if !c.Matched && c.Symbol != m.Cards[i].Symbol {
			return j
		}
	}
	return -1
}

func TestNewMemoryDealsPairs(t *testing.T) {
	for _, d := range []Difficulty{Easy, Medium, Hard} {
		m := newTestMemory(t, d)
		grid := MemoryConfig(d)
		if len(m.Cards) != grid.Pairs*2 || grid.Rows*grid.Cols != len(m.Cards) {
			t.Fatalf("%v: expected %d cards on a %dx%d grid, got %d", d, grid.Pairs*2, grid.Rows, grid.Cols, len(m.Cards))
		}
		counts := map[string]int{}
		ids := map[string]bool{}
		for _, c := range m.Cards {
			counts[c.Symbol]++
			if ids[c.ID] {
				t.Fatalf("%v: duplicate card id %q", d, c.ID)
			}
			ids[c.ID] = true
		}
		for sym, n := range counts {
			if n != 2 {
				t.Fatalf("%v: symbol %s appears %d times", d, sym, n)
			}
		}
	}
}

func TestFlipMatch(t *testing.T) {
	m := newTestMemory(t, Easy)
	now := time.Unix(100, 0)
	out, err := m.Flip(0, now)
	if err != nil || out != FlipRevealed {
		t.Fatalf("first flip: out=%v err=%v", out, err)
	}
	if !m.FaceUp(0) || !m.Started.Equal(now) {
		t.Fatalf("expected card 0 face up and timer started")
	}
	if _, err := m.Flip(0, now); !errors.Is(err, ErrRevealed) {
		t.Fatalf("expected ErrRevealed, got %v", err)
	}
	out, err = m.Flip(pairOf(m, 0), now.Add(time.Second))
	if err != nil || out != FlipMatch {
		t.Fatalf("second flip: out=%v err=%v", out, err)
	}
	if !m.Cards[0].Matched || len(m.Revealed) != 0 || m.Moves != 1 {
		t.Fatalf("expected pair matched and revealed cleared: %+v", m)
	}
	if _, err := m.Flip(0, now); !errors.Is(err, ErrMatched) {
		t.Fatalf("expected ErrMatched, got %v", err)
	}
}

func TestFlipMismatchLocksUntilHide(t *testing.T) {
	m := newTestMemory(t, Medium)
	now := time.Now()
	other := nonPairOf(m, 0)
	if _, err := m.Flip(0, now); err != nil {
		t.Fatalf("flip: %v", err)
	}
	out, err := m.Flip(other, now)
	if err != nil || out != FlipMismatch {
		t.Fatalf("expected mismatch, out=%v err=%v", out, err)
	}
	if !m.Locked || !m.FaceUp(0) || !m.FaceUp(other) || m.Moves != 1 {
		t.Fatalf("expected both shown and locked: %+v", m)
	}
	if _, err := m.Flip(pairOf(m, 0), now); !errors.Is(err, ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}
	m.Hide()
	if m.Locked || m.FaceUp(0) || m.FaceUp(other) {
		t.Fatalf("expected pair hidden and unlocked")
	}
}

func TestFlipOutOfBounds(t *testing.T) {
	m := newTestMemory(t, Easy)
	for _, i := range []int{-1, len(m.Cards)} {
		if _, err := m.Flip(i, time.Now()); !errors.Is(err, ErrOutOfBounds) {
			t.Fatalf("expected ErrOutOfBounds for %d, got %v", i, err)
		}
	}
}

func TestMemoryCompletes(t *testing.T) {
	m := newTestMemory(t, Easy)
	start := time.Unix(0, 0)
	now := start
	for i := range m.Cards {
		if m.Cards[i].Matched {
			continue
		}
		now = now.Add(5 * time.Second)
		if _, err := m.Flip(i, now); err != nil {
			t.Fatalf("flip %d: %v", i, err)
		}
		now = now.Add(5 * time.Second)
		if out, err := m.Flip(pairOf(m, i), now); err != nil || out != FlipMatch {
			t.Fatalf("pair of %d: out=%v err=%v", i, out, err)
		}
	}
	if !m.Done() {
		t.Fatalf("expected all matched")
	}
	if m.Moves != MemoryConfig(Easy).Pairs {
		t.Fatalf("expected one move per pair, got %d", m.Moves)
	}
	if got := FormatElapsed(m.Elapsed(now.Add(time.Hour))); got != "0:55" {
		t.Fatalf("expected elapsed frozen at 0:55, got %s", got)
	}
}

func TestCloneIsDeep(t *testing.T) {
	m := newTestMemory(t, Easy)
	_, _ = m.Flip(0, time.Now())
	cp := m.Clone()
	cp.Cards[0].Matched = true
	cp.Revealed[0] = 5
	if m.Cards[0].Matched || m.Revealed[0] != 0 {
		t.Fatalf("clone shares storage with original")
	}
}

func TestDifficultyCycleAndParse(t *testing.T) {
	if Hard.Next() != Medium || Medium.Next() != Easy || Easy.Next() != Hard {
		t.Fatalf("unexpected cycle order")
	}
	for _, d := range []Difficulty{Easy, Medium, Hard} {
		got, err := ParseDifficulty(d.String())
		if err != nil || got != d {
			t.Fatalf("round trip %v: got %v err=%v", d, got, err)
		}
	}
	if _, err := ParseDifficulty("impossible"); err == nil {
		t.Fatalf("expected error for unknown difficulty")
	}
}

func TestTallyRecord(t *testing.T) {
	var tl Tally
	tl.Record(Result{Status: Win, Winner: X})
	tl.Record(Result{Status: Win, Winner: O})
	tl.Record(Result{Status: Win, Winner: O})
	tl.Record(Result{Status: Draw})
	tl.Record(Result{Status: InProgress})
	if tl != (Tally{XWins: 1, OWins: 2, Draws: 1}) {
		t.Fatalf("unexpected tally %+v", tl)
	}
}
