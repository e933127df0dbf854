package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Symbols is the face set Memory Match decks draw their pairs from.
var Symbols = []string{
	"🍎", "🚗", "⭐", "🐶", "🌙", "⚽", "🎵", "🍩", "🌼", "🧩",
	"🎲", "🍀", "🦄", "🍕", "🎈", "🐱", "🍉", "🚀", "🎮", "🧃",
}

// Errors returned by Memory.Flip.
var (
	ErrLocked   = errors.New("board locked")
	ErrMatched  = errors.New("card already matched")
	ErrRevealed = errors.New("card already revealed")
)

// Shuffler is satisfied by *rand.Rand.
type Shuffler interface {
	Shuffle(n int, swap func(i, j int))
}

// Grid is the deck layout for one difficulty.
type Grid struct {
	Rows  int
	Cols  int
	Pairs int
}

// MemoryConfig returns the layout for d.
func MemoryConfig(d Difficulty) Grid {
	switch d {
	case Easy:
		return Grid{Rows: 3, Cols: 4, Pairs: 6}
	case Hard:
		return Grid{Rows: 4, Cols: 5, Pairs: 10}
	default:
		return Grid{Rows: 4, Cols: 4, Pairs: 8}
	}
}

// Card is one face-down tile.
type Card struct {
	ID      string
	Symbol  string
	Matched bool
}

// FlipOutcome describes what a flip did.
type FlipOutcome uint8

const (
	FlipRevealed FlipOutcome = iota
	FlipMatch
	FlipMismatch
)

// Memory holds a Memory Match round.
type Memory struct {
	Difficulty Difficulty
	Grid       Grid
	Cards      []Card
	// Revealed holds up to two face-up, unmatched card indexes.
	Revealed []int
	// Locked is set while a mismatched pair waits to be hidden.
	Locked   bool
	Moves    int
	Started  time.Time
	Finished time.Time
}

// NewMemory deals a shuffled deck for d.
func NewMemory(d Difficulty, rng Shuffler) Memory {
	grid := MemoryConfig(d)
	picks := append([]string(nil), Symbols...)
	rng.Shuffle(len(picks), func(i, j int) { picks[i], picks[j] = picks[j], picks[i] })
	picks = picks[:grid.Pairs]

	cards := make([]Card, 0, grid.Pairs*2)
	for _, sym := range picks {
		cards = append(cards,
			Card{ID: sym + ":a:" + uuid.NewString()[:8], Symbol: sym},
			Card{ID: sym + ":b:" + uuid.NewString()[:8], Symbol: sym},
		)
	}
	rng.Shuffle(len(cards), func(i, j int) { cards[i], cards[j] = cards[j], cards[i] })
	return Memory{Difficulty: d, Grid: grid, Cards: cards}
}

// Clone returns a deep copy.
func (m Memory) Clone() Memory {
	m.Cards = append([]Card(nil), m.Cards...)
	m.Revealed = append([]int(nil), m.Revealed...)
	return m
}

// FaceUp reports whether card i is shown.
func (m Memory) FaceUp(i int) bool {
	if i < 0 || i >= len(m.Cards) {
		return false
	}
	if m.Cards[i].Matched {
		return true
	}
	for _, r := range m.Revealed {
		if r == i {
			return true
		}
	}
	return false
}

// Done reports whether every card is matched.
func (m Memory) Done() bool {
	for _, c := range m.Cards {
		if !c.Matched {
			return false
		}
	}
	return len(m.Cards) > 0
}

// Elapsed is the time from the first flip until the last match, or until now.
func (m Memory) Elapsed(now time.Time) time.Duration {
	if m.Started.IsZero() {
		return 0
	}
	if !m.Finished.IsZero() {
		return m.Finished.Sub(m.Started)
	}
	return now.Sub(m.Started)
}

// Flip turns card i face up at time now.
func (m *Memory) Flip(i int, now time.Time) (FlipOutcome, error) {
	if m.Locked {
		return 0, ErrLocked
	}
	if i < 0 || i >= len(m.Cards) {
		return 0, ErrOutOfBounds
	}
	if m.Cards[i].Matched {
		return 0, ErrMatched
	}
	for _, r := range m.Revealed {
		if r == i {
			return 0, ErrRevealed
		}
	}
	if m.Started.IsZero() {
		m.Started = now
	}

	if len(m.Revealed) == 0 {
		m.Revealed = []int{i}
		return FlipRevealed, nil
	}

	j := m.Revealed[0]
	m.Moves++
	if m.Cards[i].Symbol == m.Cards[j].Symbol {
		m.Cards[i].Matched = true
		m.Cards[j].Matched = true
		m.Revealed = nil
		if m.Done() {
			m.Finished = now
		}
		return FlipMatch, nil
	}
	m.Revealed = []int{j, i}
	m.Locked = true
	return FlipMismatch, nil
}

// Hide turns a mismatched pair face down again and unlocks the board.
func (m *Memory) Hide() {
	m.Revealed = nil
	m.Locked = false
}

// FormatElapsed renders d as m:ss.
func FormatElapsed(d time.Duration) string {
	sec := int(d / time.Second)
	return fmt.Sprintf("%d:%02d", sec/60, sec%60)
}
