package app

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jaminalder/codex-game-hub/internal/domain"
	"github.com/jaminalder/codex-game-hub/internal/engine"
)

// Errors exposed by the service layer.
var (
	ErrNotFound    = errors.New("game not found")
	ErrNotYourTurn = errors.New("not your turn")
	ErrNotAPlayer  = errors.New("not a player")
	ErrBotThinking = errors.New("bot is thinking")
)

// In vs-bot games the human holds X and moves first.
const (
	humanMark = domain.X
	botMark   = domain.O
)

// GameState is the in-memory state tracked per tic-tac-toe session.
type GameState struct {
	ID         string
	Game       domain.Game
	X          string
	O          string
	VsBot      bool
	Difficulty domain.Difficulty
	Tally      domain.Tally
	// BotPending is set from the human move until the bot has replied.
	BotPending bool
	// Round increments on every board reset.
	Round   int
	Created time.Time
	Updated time.Time
	// botSeq identifies the most recently scheduled bot reply.
	botSeq int
}

// GameOptions configures a new tic-tac-toe session.
type GameOptions struct {
	VsBot      bool
	Difficulty domain.Difficulty
}

type subscriber struct {
	mu     sync.Mutex
	ch     chan []byte
	closed bool
}

// send never blocks. Payloads are full snapshots, so when the buffer is
// full the oldest unread one is discarded; send reports whether that
// happened. Sends after close are no-ops.
func (s *subscriber) send(b []byte) (replaced bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	for {
		select {
		case s.ch <- b:
			return replaced
		default:
		}
		select {
		case <-s.ch:
			replaced = true
		default:
		}
	}
}

func (s *subscriber) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
}

// Options configures a Service. Zero values fall back to usable defaults.
type Options struct {
	Logger *zap.Logger
	Engine *engine.Engine
	// Rand shuffles memory decks.
	Rand              *rand.Rand
	BotDelay          time.Duration
	MemoryHideDelay   time.Duration
	DefaultDifficulty domain.Difficulty
	SubscriberBuffer  int
	Renderer          func(GameState) []byte
	MemoryRenderer    func(MemoryState) []byte
}

// Service manages game sessions and subscribers.
type Service struct {
	mu         sync.Mutex
	log        *zap.Logger
	engine     *engine.Engine
	rng        *rand.Rand
	botDelay   time.Duration
	hideDelay  time.Duration
	difficulty domain.Difficulty
	subBuffer  int

	games  map[string]*GameState
	memory map[string]*MemoryState
	subs   map[string]map[*subscriber]struct{}

	render       func(GameState) []byte
	renderMemory func(MemoryState) []byte
}

func nopRender(GameState) []byte         { return nil }
func nopRenderMemory(MemoryState) []byte { return nil }

// NewService creates a service with a default renderer (encodes nothing useful).
func NewService() *Service { return NewServiceWithOptions(Options{}) }

// NewServiceWithRenderer allows injecting a renderer for broadcast payloads.
func NewServiceWithRenderer(renderer func(GameState) []byte) *Service {
	return NewServiceWithOptions(Options{Renderer: renderer})
}

// NewServiceWithOptions creates a service from opts.
func NewServiceWithOptions(opts Options) *Service {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if opts.Engine == nil {
		opts.Engine = engine.New(nil)
	}
	if opts.SubscriberBuffer < 1 {
		opts.SubscriberBuffer = 1
	}
	if opts.Renderer == nil {
		opts.Renderer = nopRender
	}
	if opts.MemoryRenderer == nil {
		opts.MemoryRenderer = nopRenderMemory
	}
	return &Service{
		log:          opts.Logger,
		engine:       opts.Engine,
		rng:          opts.Rand,
		botDelay:     opts.BotDelay,
		hideDelay:    opts.MemoryHideDelay,
		difficulty:   opts.DefaultDifficulty,
		subBuffer:    opts.SubscriberBuffer,
		games:        make(map[string]*GameState),
		memory:       make(map[string]*MemoryState),
		subs:         make(map[string]map[*subscriber]struct{}),
		render:       opts.Renderer,
		renderMemory: opts.MemoryRenderer,
	}
}

// DefaultDifficulty is the difficulty new sessions start with when the
// caller has no preference.
func (s *Service) DefaultDifficulty() domain.Difficulty { return s.difficulty }

// SetRenderer replaces the broadcast renderer function.
func (s *Service) SetRenderer(renderer func(GameState) []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if renderer == nil {
		renderer = nopRender
	}
	s.render = renderer
}

// SetMemoryRenderer replaces the memory broadcast renderer function.
func (s *Service) SetMemoryRenderer(renderer func(MemoryState) []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if renderer == nil {
		renderer = nopRenderMemory
	}
	s.renderMemory = renderer
}

// CreateGame creates and registers a new game.
func (s *Service) CreateGame(opts GameOptions) (*GameState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := newID()
	now := time.Now()
	gs := &GameState{
		ID:         id,
		Game:       domain.New(),
		VsBot:      opts.VsBot,
		Difficulty: opts.Difficulty,
		Created:    now,
		Updated:    now,
	}
	s.games[id] = gs
	s.log.Info("game created",
		zap.String("game", id),
		zap.Bool("vs_bot", opts.VsBot),
		zap.Stringer("difficulty", opts.Difficulty))
	cp := *gs
	return &cp, nil
}

// Get returns a copy of the game state if present.
func (s *Service) Get(id string) (*GameState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	gs, ok := s.games[id]
	if !ok {
		return nil, false
	}
	cp := *gs
	return &cp, true
}

// Join assigns a seat to the player if available; returns Empty for spectators.
// In vs-bot games only the X seat is open.
func (s *Service) Join(id, playerID string) (domain.Cell, *GameState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	gs, ok := s.games[id]
	if !ok {
		return domain.Empty, nil, ErrNotFound
	}
	side := domain.Empty
	if gs.X == "" || gs.X == playerID {
		gs.X = playerID
		side = domain.X
	} else if !gs.VsBot && (gs.O == "" || gs.O == playerID) {
		gs.O = playerID
		side = domain.O
	}
	gs.Updated = time.Now()
	cp := *gs
	return side, &cp, nil
}

// Play validates seat and turn, applies a move, updates timestamps, and
// broadcasts. In vs-bot games a move that hands the turn to the bot
// schedules its reply; with a zero bot delay the reply is applied before
// Play returns.
func (s *Service) Play(id, playerID string, r, c int) (*GameState, error) {
	s.mu.Lock()
	gs, ok := s.games[id]
	if !ok {
		s.mu.Unlock()
		return nil, ErrNotFound
	}
	seat := s.seatLocked(gs, playerID)
	if seat == domain.Empty {
		s.mu.Unlock()
		return nil, ErrNotAPlayer
	}
	if gs.Game.Over() {
		s.mu.Unlock()
		return nil, domain.ErrGameOver
	}
	if gs.BotPending {
		s.mu.Unlock()
		return nil, ErrBotThinking
	}
	if seat != gs.Game.Turn {
		s.mu.Unlock()
		return nil, ErrNotYourTurn
	}
	if err := gs.Game.Play(r, c); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.afterMoveLocked(gs)
	botTurn := s.botTurnLocked(gs)
	var seq int
	if botTurn {
		seq = s.markBotPendingLocked(gs)
	}

	cp := *gs
	subs := s.copySubsLocked(id)
	payload := s.render(cp)
	s.mu.Unlock()

	s.log.Debug("move played",
		zap.String("game", id),
		zap.Stringer("mark", seat),
		zap.Int("cell", r*3+c))
	s.fanOut(id, subs, payload)

	if botTurn {
		if next := s.scheduleBot(id, seq); next != nil {
			return next, nil
		}
	}
	return &cp, nil
}

func (s *Service) seatLocked(gs *GameState, playerID string) domain.Cell {
	switch {
	case playerID == "":
		return domain.Empty
	case gs.X == playerID:
		return domain.X
	case !gs.VsBot && gs.O == playerID:
		return domain.O
	}
	return domain.Empty
}

func (s *Service) botTurnLocked(gs *GameState) bool {
	return gs.VsBot && !gs.BotPending && !gs.Game.Over() && gs.Game.Turn == botMark
}

// afterMoveLocked records a finished round in the tally.
func (s *Service) afterMoveLocked(gs *GameState) {
	gs.Updated = time.Now()
	if !gs.Game.Over() {
		return
	}
	gs.Tally.Record(gs.Game.Result)
	s.log.Info("round finished",
		zap.String("game", gs.ID),
		zap.Stringer("status", gs.Game.Result.Status),
		zap.Stringer("winner", gs.Game.Winner()))
}

// markBotPendingLocked flags a pending reply and returns its token.
func (s *Service) markBotPendingLocked(gs *GameState) int {
	gs.BotPending = true
	gs.botSeq++
	return gs.botSeq
}

// scheduleBot runs the bot reply after the configured delay. With no delay
// it runs inline and returns the resulting state.
func (s *Service) scheduleBot(id string, seq int) *GameState {
	if s.botDelay <= 0 {
		return s.botMove(id, seq)
	}
	time.AfterFunc(s.botDelay, func() { s.botMove(id, seq) })
	return nil
}

// botMove asks the engine for one move and applies it. Only the callback
// holding the latest token may move.
func (s *Service) botMove(id string, seq int) *GameState {
	s.mu.Lock()
	gs, ok := s.games[id]
	if !ok || gs.botSeq != seq || !gs.BotPending {
		s.mu.Unlock()
		return nil
	}
	gs.BotPending = false
	if !gs.VsBot || gs.Game.Over() || gs.Game.Turn != botMark {
		cp := *gs
		s.mu.Unlock()
		return &cp
	}

	move, found := s.engine.ChooseMove(gs.Game.Board, botMark, humanMark, gs.Difficulty)
	if found {
		if err := gs.Game.PlayIndex(move); err != nil {
			s.log.Error("bot move rejected", zap.String("game", id), zap.Int("cell", move), zap.Error(err))
		} else {
			s.afterMoveLocked(gs)
		}
	}

	cp := *gs
	subs := s.copySubsLocked(id)
	payload := s.render(cp)
	s.mu.Unlock()

	s.log.Debug("bot played",
		zap.String("game", id),
		zap.Stringer("difficulty", cp.Difficulty),
		zap.Int("cell", move))
	s.fanOut(id, subs, payload)
	return &cp
}

// NewRound clears the board and keeps the tally.
func (s *Service) NewRound(id string) (*GameState, error) {
	return s.update(id, func(gs *GameState) {
		gs.Game = domain.New()
		gs.BotPending = false
		gs.Round++
	})
}

// ResetAll clears the board and the tally.
func (s *Service) ResetAll(id string) (*GameState, error) {
	return s.update(id, func(gs *GameState) {
		gs.Game = domain.New()
		gs.BotPending = false
		gs.Tally = domain.Tally{}
		gs.Round++
	})
}

// CycleDifficulty steps the session difficulty Hard -> Medium -> Easy.
func (s *Service) CycleDifficulty(id string) (*GameState, error) {
	return s.update(id, func(gs *GameState) {
		gs.Difficulty = gs.Difficulty.Next()
	})
}

// SetDifficulty sets the session difficulty.
func (s *Service) SetDifficulty(id string, d domain.Difficulty) (*GameState, error) {
	return s.update(id, func(gs *GameState) {
		gs.Difficulty = d
	})
}

// SetVsBot switches between playing the bot and hot-seat play. Turning the
// bot on while O is to move hands it the turn.
func (s *Service) SetVsBot(id string, on bool) (*GameState, error) {
	var botTurn bool
	var seq int
	gs, err := s.update(id, func(gs *GameState) {
		gs.VsBot = on
		if !on {
			gs.BotPending = false
			return
		}
		gs.O = ""
		if botTurn = s.botTurnLocked(gs); botTurn {
			seq = s.markBotPendingLocked(gs)
		}
	})
	if err != nil || !botTurn {
		return gs, err
	}
	if next := s.scheduleBot(id, seq); next != nil {
		return next, nil
	}
	return gs, nil
}

// Hint scores every empty cell for the side to move.
func (s *Service) Hint(id string) ([]engine.Candidate, error) {
	gs, ok := s.Get(id)
	if !ok {
		return nil, ErrNotFound
	}
	if gs.Game.Over() {
		return nil, domain.ErrGameOver
	}
	return engine.Score(gs.Game.Board, gs.Game.Turn, gs.Game.Turn.Opponent()), nil
}

func (s *Service) update(id string, fn func(*GameState)) (*GameState, error) {
	s.mu.Lock()
	gs, ok := s.games[id]
	if !ok {
		s.mu.Unlock()
		return nil, ErrNotFound
	}
	fn(gs)
	gs.Updated = time.Now()
	cp := *gs
	subs := s.copySubsLocked(id)
	payload := s.render(cp)
	s.mu.Unlock()

	s.fanOut(id, subs, payload)
	return &cp, nil
}

// Subscribe registers a subscriber for a game or memory session. Returns a
// channel and an unsubscribe func.
func (s *Service) Subscribe(ctx context.Context, id string) (<-chan []byte, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set := s.subs[id]
	if set == nil {
		set = make(map[*subscriber]struct{})
		s.subs[id] = set
	}
	sub := &subscriber{ch: make(chan []byte, s.subBuffer)}
	set[sub] = struct{}{}

	unsubOnce := &sync.Once{}
	unsub := func() {
		unsubOnce.Do(func() {
			s.mu.Lock()
			if set, ok := s.subs[id]; ok {
				delete(set, sub)
				if len(set) == 0 {
					delete(s.subs, id)
				}
			}
			s.mu.Unlock()
			sub.close()
		})
	}
	go func() {
		<-ctx.Done()
		unsub()
	}()
	return sub.ch, unsub
}

// fanOut delivers payload without blocking. A subscriber that has not read
// the previous snapshot only sees the latest one.
func (s *Service) fanOut(id string, subs map[*subscriber]struct{}, payload []byte) {
	lagging := 0
	for sub := range subs {
		if sub.send(payload) {
			lagging++
		}
	}
	if lagging > 0 {
		s.log.Debug("replaced stale payloads", zap.String("id", id), zap.Int("count", lagging))
	}
}

func (s *Service) copySubsLocked(id string) map[*subscriber]struct{} {
	out := make(map[*subscriber]struct{})
	if set, ok := s.subs[id]; ok {
		for k := range set {
			out[k] = struct{}{}
		}
	}
	return out
}
