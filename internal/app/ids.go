package app

import "github.com/google/uuid"

// NewPlayerID returns a fresh player identifier for the player cookie.
func NewPlayerID() string { return uuid.NewString() }

// ValidID reports whether s looks like an identifier this package issued.
func ValidID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}

func newID() string { return uuid.NewString() }
