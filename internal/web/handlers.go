package web

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/jaminalder/codex-game-hub/internal/app"
	"github.com/jaminalder/codex-game-hub/internal/domain"
)

type handlers struct {
	svc       *app.Service
	tpl       *templates
	log       *zap.Logger
	heartbeat time.Duration
	upgrader  websocket.Upgrader
}

func (h *handlers) renderBoard(gs app.GameState, errMsg string) []byte {
	return renderTemplate(h.tpl.board, "", newBoardData(gs, errMsg))
}

func (h *handlers) renderMemory(ms app.MemoryState, errMsg string) []byte {
	return renderTemplate(h.tpl.deck, "", newDeckData(ms, errMsg))
}

func writeHTML(w http.ResponseWriter, b []byte) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)
}

// errorMessage maps service and domain errors to player-facing text.
func errorMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, app.ErrNotYourTurn):
		return "Not your turn"
	case errors.Is(err, app.ErrNotAPlayer):
		return "You are a spectator"
	case errors.Is(err, app.ErrBotThinking):
		return "Bot is thinking"
	case errors.Is(err, domain.ErrOccupied):
		return "Cell is occupied"
	case errors.Is(err, domain.ErrOutOfBounds):
		return "Out of bounds"
	case errors.Is(err, domain.ErrGameOver):
		return "Game is over"
	case errors.Is(err, domain.ErrLocked):
		return "Wait for the cards to flip back"
	case errors.Is(err, domain.ErrMatched), errors.Is(err, domain.ErrRevealed):
		return "Card is already face up"
	default:
		return "Invalid move"
	}
}

// formDifficulty reads the "difficulty" form value, falling back to def.
func formDifficulty(r *http.Request, def domain.Difficulty) domain.Difficulty {
	if d, err := domain.ParseDifficulty(r.Form.Get("difficulty")); err == nil {
		return d
	}
	return def
}

func (h *handlers) index(w http.ResponseWriter, r *http.Request) {
	data := indexData{
		Difficulties:     []domain.Difficulty{domain.Easy, domain.Medium, domain.Hard},
		Difficulty:       h.svc.DefaultDifficulty(),
		MemoryDifficulty: domain.Medium,
		Soon:             []string{"⚡ Reaction Tap", "🐍 Snake"},
	}
	writeHTML(w, renderTemplate(h.tpl.index, "", data))
}

func (h *handlers) create(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()
	opts := app.GameOptions{
		VsBot:      r.Form.Get("vsbot") == "on",
		Difficulty: formDifficulty(r, h.svc.DefaultDifficulty()),
	}
	gs, err := h.svc.CreateGame(opts)
	if err != nil {
		http.Error(w, "failed to create", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/game/"+gs.ID, http.StatusSeeOther)
}

func (h *handlers) view(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	// ensure cookie and auto-claim seat
	pid := ensurePlayerCookie(w, r)
	if _, _, err := h.svc.Join(id, pid); err != nil {
		http.NotFound(w, r)
		return
	}
	gs, ok := h.svc.Get(id)
	if !ok {
		http.NotFound(w, r)
		return
	}
	writeHTML(w, renderTemplate(h.tpl.game, "", newBoardData(*gs, "")))
}

func (h *handlers) join(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	pid := ensurePlayerCookie(w, r)
	_, gs, err := h.svc.Join(id, pid)
	if err != nil || gs == nil {
		http.NotFound(w, r)
		return
	}
	writeHTML(w, h.renderBoard(*gs, ""))
}

func (h *handlers) play(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	pid := ensurePlayerCookie(w, r)
	_ = r.ParseForm()
	ri, errR := strconv.Atoi(r.Form.Get("r"))
	ci, errC := strconv.Atoi(r.Form.Get("c"))
	var gs *app.GameState
	var err error
	if errR != nil || errC != nil {
		err = domain.ErrOutOfBounds
	} else {
		gs, err = h.svc.Play(id, pid, ri, ci)
	}
	if err != nil {
		if errors.Is(err, app.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		if g, ok := h.svc.Get(id); ok {
			gs = g
		}
	}
	if gs == nil {
		http.NotFound(w, r)
		return
	}
	writeHTML(w, h.renderBoard(*gs, errorMessage(err)))
}

func (h *handlers) round(w http.ResponseWriter, r *http.Request) {
	h.updateBoard(w, r, h.svc.NewRound)
}

func (h *handlers) reset(w http.ResponseWriter, r *http.Request) {
	h.updateBoard(w, r, h.svc.ResetAll)
}

func (h *handlers) difficulty(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()
	if d, err := domain.ParseDifficulty(r.Form.Get("difficulty")); err == nil {
		h.updateBoard(w, r, func(id string) (*app.GameState, error) { return h.svc.SetDifficulty(id, d) })
		return
	}
	h.updateBoard(w, r, h.svc.CycleDifficulty)
}

func (h *handlers) vsBot(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()
	on := r.Form.Get("vsbot") == "on"
	h.updateBoard(w, r, func(id string) (*app.GameState, error) { return h.svc.SetVsBot(id, on) })
}

func (h *handlers) updateBoard(w http.ResponseWriter, r *http.Request, fn func(string) (*app.GameState, error)) {
	gs, err := fn(chi.URLParam(r, "id"))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	writeHTML(w, h.renderBoard(*gs, ""))
}

func (h *handlers) createMemory(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()
	ms, err := h.svc.CreateMemory(formDifficulty(r, domain.Medium))
	if err != nil {
		http.Error(w, "failed to create", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/memory/"+ms.ID, http.StatusSeeOther)
}

func (h *handlers) viewMemory(w http.ResponseWriter, r *http.Request) {
	ms, ok := h.svc.GetMemory(chi.URLParam(r, "id"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	writeHTML(w, renderTemplate(h.tpl.memory, "", newDeckData(*ms, "")))
}

func (h *handlers) flip(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	_ = r.ParseForm()
	i, convErr := strconv.Atoi(r.Form.Get("i"))
	var ms *app.MemoryState
	var err error
	if convErr != nil {
		err = domain.ErrOutOfBounds
	} else {
		_, ms, err = h.svc.Flip(id, i)
	}
	if err != nil {
		if errors.Is(err, app.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		if m, ok := h.svc.GetMemory(id); ok {
			ms = m
		}
	}
	if ms == nil {
		http.NotFound(w, r)
		return
	}
	writeHTML(w, h.renderMemory(*ms, errorMessage(err)))
}

func (h *handlers) memoryRound(w http.ResponseWriter, r *http.Request) {
	h.updateDeck(w, r, h.svc.NewMemoryRound)
}

func (h *handlers) memoryDifficulty(w http.ResponseWriter, r *http.Request) {
	h.updateDeck(w, r, h.svc.CycleMemoryDifficulty)
}

func (h *handlers) updateDeck(w http.ResponseWriter, r *http.Request, fn func(string) (*app.MemoryState, error)) {
	ms, err := fn(chi.URLParam(r, "id"))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	writeHTML(w, h.renderMemory(*ms, ""))
}

var heartbeatInterval = 15 * time.Second

func (h *handlers) events(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Accel-Buffering", "no")
	// In tests or non-EventSource requests, just acknowledge headers and return
	if r.Header.Get("Accept") != "text/event-stream" {
		w.WriteHeader(http.StatusOK)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		w.WriteHeader(http.StatusOK)
		return
	}
	ctx := r.Context()
	ch, unsub := h.svc.Subscribe(ctx, id)
	defer unsub()
	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()
	flusher.Flush()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = io.WriteString(w, ": ping\n\n")
			flusher.Flush()
		case b, ok := <-ch:
			if !ok {
				return
			}
			_, _ = fmt.Fprintf(w, "event: board\n")
			_, _ = fmt.Fprintf(w, "data: %s\n\n", sseData(b))
			flusher.Flush()
		}
	}
}

// sseData folds a multi-line fragment onto one data field.
func sseData(b []byte) []byte {
	out := make([]byte, 0, len(b))
	for _, c := range b {
		if c == '\n' || c == '\r' {
			c = ' '
		}
		out = append(out, c)
	}
	return out
}
