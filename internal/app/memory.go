package app

import (
	"time"

	"go.uber.org/zap"

	"github.com/jaminalder/codex-game-hub/internal/domain"
)

// MemoryState is the in-memory state tracked per Memory Match session.
type MemoryState struct {
	ID      string
	Memory  domain.Memory
	Round   int
	Created time.Time
	Updated time.Time
}

func (m *MemoryState) snapshot() MemoryState {
	cp := *m
	cp.Memory = m.Memory.Clone()
	return cp
}

// CreateMemory deals a new Memory Match session.
func (s *Service) CreateMemory(d domain.Difficulty) (*MemoryState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := newID()
	now := time.Now()
	ms := &MemoryState{ID: id, Memory: domain.NewMemory(d, s.rng), Created: now, Updated: now}
	s.memory[id] = ms
	s.log.Info("memory game created", zap.String("game", id), zap.Stringer("difficulty", d))
	cp := ms.snapshot()
	return &cp, nil
}

// GetMemory returns a copy of the session if present.
func (s *Service) GetMemory(id string) (*MemoryState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ms, ok := s.memory[id]
	if !ok {
		return nil, false
	}
	cp := ms.snapshot()
	return &cp, true
}

// Flip turns card i face up. A mismatched pair is hidden again after the
// configured delay; with no delay it is hidden before Flip returns.
func (s *Service) Flip(id string, i int) (domain.FlipOutcome, *MemoryState, error) {
	s.mu.Lock()
	ms, ok := s.memory[id]
	if !ok {
		s.mu.Unlock()
		return 0, nil, ErrNotFound
	}
	out, err := ms.Memory.Flip(i, time.Now())
	if err != nil {
		s.mu.Unlock()
		return 0, nil, err
	}
	ms.Updated = time.Now()
	if ms.Memory.Done() {
		s.log.Info("memory game finished",
			zap.String("game", id),
			zap.Int("moves", ms.Memory.Moves),
			zap.Duration("elapsed", ms.Memory.Elapsed(ms.Updated)))
	}
	round, moves := ms.Round, ms.Memory.Moves
	cp := ms.snapshot()
	subs := s.copySubsLocked(id)
	payload := s.renderMemory(cp)
	s.mu.Unlock()

	s.fanOut(id, subs, payload)

	if out == domain.FlipMismatch {
		if s.hideDelay <= 0 {
			if next := s.hide(id, round, moves); next != nil {
				return out, next, nil
			}
		} else {
			time.AfterFunc(s.hideDelay, func() { s.hide(id, round, moves) })
		}
	}
	return out, &cp, nil
}

// hide turns the mismatched pair from move number moves face down, unless
// the board moved on since.
func (s *Service) hide(id string, round, moves int) *MemoryState {
	s.mu.Lock()
	ms, ok := s.memory[id]
	if !ok || ms.Round != round || ms.Memory.Moves != moves || !ms.Memory.Locked {
		s.mu.Unlock()
		return nil
	}
	ms.Memory.Hide()
	ms.Updated = time.Now()
	cp := ms.snapshot()
	subs := s.copySubsLocked(id)
	payload := s.renderMemory(cp)
	s.mu.Unlock()

	s.fanOut(id, subs, payload)
	return &cp
}

// NewMemoryRound deals a fresh deck at the current difficulty.
func (s *Service) NewMemoryRound(id string) (*MemoryState, error) {
	return s.updateMemory(id, func(ms *MemoryState) {
		ms.Memory = domain.NewMemory(ms.Memory.Difficulty, s.rng)
	})
}

// CycleMemoryDifficulty steps the difficulty and deals a fresh deck.
func (s *Service) CycleMemoryDifficulty(id string) (*MemoryState, error) {
	return s.updateMemory(id, func(ms *MemoryState) {
		ms.Memory = domain.NewMemory(ms.Memory.Difficulty.Next(), s.rng)
	})
}

func (s *Service) updateMemory(id string, fn func(*MemoryState)) (*MemoryState, error) {
	s.mu.Lock()
	ms, ok := s.memory[id]
	if !ok {
		s.mu.Unlock()
		return nil, ErrNotFound
	}
	fn(ms)
	ms.Round++
	ms.Updated = time.Now()
	cp := ms.snapshot()
	subs := s.copySubsLocked(id)
	payload := s.renderMemory(cp)
	s.mu.Unlock()

	s.fanOut(id, subs, payload)
	return &cp, nil
}
