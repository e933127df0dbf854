package web

import (
	"context"
	"errors"
	"net/http"
	"reflect"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"

	"github.com/jaminalder/codex-game-hub/internal/app"
	"github.com/jaminalder/codex-game-hub/internal/domain"
	"github.com/jaminalder/codex-game-hub/internal/engine"
)

// Message is the JSON envelope exchanged over the game socket.
type Message struct {
	Type     string      `json:"type"`
	Contents interface{} `json:"contents"`
}

type inbound struct {
	Type     string                 `json:"type"`
	Contents map[string]interface{} `json:"contents"`
}

// ToMessage wraps contents in an envelope named after its type.
func ToMessage(contents interface{}) Message {
	return Message{Type: reflect.TypeOf(contents).Name(), Contents: contents}
}

// PlayRequest places the sender's mark on a cell (0..8, row-major).
type PlayRequest struct {
	Index int `mapstructure:"index"`
}

// HintRequest asks for minimax scores for the side to move.
type HintRequest struct{}

// StateBroadcast carries the full game state after every change.
type StateBroadcast struct {
	ID         string       `json:"id"`
	Board      [9]string    `json:"board"`
	Turn       string       `json:"turn"`
	Status     string       `json:"status"`
	Winner     string       `json:"winner,omitempty"`
	Line       int          `json:"line"`
	VsBot      bool         `json:"vsBot"`
	Difficulty string       `json:"difficulty"`
	BotPending bool         `json:"botPending"`
	Tally      domain.Tally `json:"tally"`
	You        string       `json:"you,omitempty"`
}

// HintResponse lists scored candidate cells.
type HintResponse struct {
	Candidates []engine.Candidate `json:"candidates"`
}

// ErrorResponse is returned to the client when a request fails.
type ErrorResponse struct {
	Reason string `json:"reason"`
}

// PingBroadcast keeps idle connections alive.
type PingBroadcast struct{}

func newStateBroadcast(gs app.GameState, you domain.Cell) StateBroadcast {
	sb := StateBroadcast{
		ID:         gs.ID,
		Turn:       gs.Game.Turn.String(),
		Status:     gs.Game.Result.Status.String(),
		Winner:     gs.Game.Winner().String(),
		Line:       gs.Game.Result.Line,
		VsBot:      gs.VsBot,
		Difficulty: gs.Difficulty.String(),
		BotPending: gs.BotPending,
		Tally:      gs.Tally,
		You:        you.String(),
	}
	for i, c := range gs.Game.Board {
		sb.Board[i] = c.String()
	}
	return sb
}

func (h *handlers) socket(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := h.svc.Get(id); !ok {
		http.NotFound(w, r)
		return
	}
	header := http.Header{}
	pid := ""
	if c, err := r.Cookie(playerCookie); err == nil && app.ValidID(c.Value) {
		pid = c.Value
	} else {
		pid = app.NewPlayerID()
		header.Add("Set-Cookie", (&http.Cookie{Name: playerCookie, Value: pid, Path: "/"}).String())
	}
	conn, err := h.upgrader.Upgrade(w, r, header)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.String("game", id), zap.Error(err))
		return
	}
	defer conn.Close()

	// Subscribe before the first snapshot so no change falls between them.
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	updates, unsub := h.svc.Subscribe(ctx, id)
	defer unsub()

	side, gs, err := h.svc.Join(id, pid)
	if err != nil {
		_ = conn.WriteJSON(ToMessage(ErrorResponse{Reason: "game not found"}))
		return
	}
	log := h.log.With(zap.String("game", id), zap.Stringer("side", side))
	log.Debug("socket connected")

	replies := make(chan Message, 4)
	replies <- ToMessage(newStateBroadcast(*gs, side))
	go h.writeLoop(ctx, cancel, conn, id, side, updates, replies)

	for {
		var in inbound
		if err := conn.ReadJSON(&in); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug("socket read failed", zap.Error(err))
			}
			return
		}
		msg, ok := h.handleMessage(id, pid, in)
		if !ok {
			continue
		}
		select {
		case replies <- msg:
		case <-ctx.Done():
			return
		}
	}
}

// handleMessage runs one client request. State changes reach the client
// through the subscription, so successful plays produce no direct reply.
func (h *handlers) handleMessage(id, pid string, in inbound) (Message, bool) {
	switch in.Type {
	case "PlayRequest":
		var req PlayRequest
		if err := mapstructure.Decode(in.Contents, &req); err != nil {
			return ToMessage(ErrorResponse{Reason: "malformed request"}), true
		}
		if req.Index < 0 || req.Index > 8 {
			return ToMessage(ErrorResponse{Reason: errorMessage(domain.ErrOutOfBounds)}), true
		}
		if _, err := h.svc.Play(id, pid, req.Index/3, req.Index%3); err != nil {
			return ToMessage(ErrorResponse{Reason: errorMessage(err)}), true
		}
		return Message{}, false
	case "HintRequest":
		cands, err := h.svc.Hint(id)
		if err != nil {
			return ToMessage(ErrorResponse{Reason: errorMessage(err)}), true
		}
		return ToMessage(HintResponse{Candidates: cands}), true
	default:
		return ToMessage(ErrorResponse{Reason: "unknown message type " + in.Type}), true
	}
}

// writeLoop is the only writer on conn. Closing conn on exit unblocks the
// reader.
func (h *handlers) writeLoop(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, id string, side domain.Cell, updates <-chan []byte, replies <-chan Message) {
	defer conn.Close()
	defer cancel()
	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()
	write := func(m Message) bool {
		_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := conn.WriteJSON(m); err != nil {
			if !errors.Is(err, websocket.ErrCloseSent) {
				h.log.Debug("socket write failed", zap.String("game", id), zap.Error(err))
			}
			return false
		}
		return true
	}
	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
			return
		case _, ok := <-updates:
			if !ok {
				return
			}
			gs, found := h.svc.Get(id)
			if !found {
				return
			}
			if !write(ToMessage(newStateBroadcast(*gs, side))) {
				return
			}
		case m := <-replies:
			if !write(m) {
				return
			}
		case <-ticker.C:
			if !write(ToMessage(PingBroadcast{})) {
				return
			}
		}
	}
}
