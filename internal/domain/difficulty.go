package domain

import (
	"fmt"
	"strings"
)

// Difficulty selects how sharp the bot plays, or how large the memory deck is.
type Difficulty uint8

const (
	Easy Difficulty = iota
	Medium
	Hard
)

func (d Difficulty) String() string {
	switch d {
	case Easy:
		return "Easy"
	case Medium:
		return "Medium"
	default:
		return "Hard"
	}
}

// Next cycles Hard -> Medium -> Easy -> Hard.
func (d Difficulty) Next() Difficulty {
	switch d {
	case Hard:
		return Medium
	case Medium:
		return Easy
	default:
		return Hard
	}
}

// ParseDifficulty accepts the names returned by String, case-insensitively.
func ParseDifficulty(s string) (Difficulty, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "easy":
		return Easy, nil
	case "medium":
		return Medium, nil
	case "hard":
		return Hard, nil
	}
	return Hard, fmt.Errorf("unknown difficulty %q", s)
}

// Tally counts finished rounds of one session.
type Tally struct {
	XWins int
	OWins int
	Draws int
}

// Record adds a finished round. In-progress results are ignored.
func (t *Tally) Record(r Result) {
	switch r.Status {
	case Win:
		if r.Winner == X {
			t.XWins++
		} else if r.Winner == O {
			t.OWins++
		}
	case Draw:
		t.Draws++
	}
}
