package web

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/jaminalder/codex-game-hub/internal/app"
)

// Option customises NewServer.
type Option func(*handlers)

// WithLogger sets the request and connection logger.
func WithLogger(log *zap.Logger) Option {
	return func(h *handlers) {
		if log != nil {
			h.log = log
		}
	}
}

// WithHeartbeat sets the SSE and websocket keepalive interval.
func WithHeartbeat(d time.Duration) Option {
	return func(h *handlers) {
		if d > 0 {
			h.heartbeat = d
		}
	}
}

// WithCheckOrigin sets the websocket origin check. The default accepts all.
func WithCheckOrigin(fn func(*http.Request) bool) Option {
	return func(h *handlers) {
		if fn != nil {
			h.upgrader.CheckOrigin = fn
		}
	}
}

// NewServer wires routes and returns an http.Handler. It installs the
// service's broadcast renderers so SSE clients receive HTML fragments.
func NewServer(s *app.Service, opts ...Option) http.Handler {
	h := &handlers{
		svc:       s,
		tpl:       loadTemplates(),
		log:       zap.NewNop(),
		heartbeat: heartbeatInterval,
		upgrader:  websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
	}
	for _, opt := range opts {
		opt(h)
	}
	s.SetRenderer(func(gs app.GameState) []byte { return h.renderBoard(gs, "") })
	s.SetMemoryRenderer(func(ms app.MemoryState) []byte { return h.renderMemory(ms, "") })

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(h.log))
	r.Use(middleware.Recoverer)

	r.Get("/", h.index)
	r.Post("/game", h.create)
	r.Route("/game/{id}", func(r chi.Router) {
		r.Get("/", h.view)
		r.Post("/join", h.join)
		r.Post("/play", h.play)
		r.Post("/round", h.round)
		r.Post("/reset", h.reset)
		r.Post("/difficulty", h.difficulty)
		r.Post("/vsbot", h.vsBot)
		r.Get("/events", h.events)
		r.Get("/ws", h.socket)
	})
	r.Post("/memory", h.createMemory)
	r.Route("/memory/{id}", func(r chi.Router) {
		r.Get("/", h.viewMemory)
		r.Post("/flip", h.flip)
		r.Post("/round", h.memoryRound)
		r.Post("/difficulty", h.memoryDifficulty)
		r.Get("/events", h.events)
	})
	return r
}

func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.Info("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("took", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())))
		})
	}
}
