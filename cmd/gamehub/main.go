package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/jaminalder/codex-game-hub/internal/app"
	"github.com/jaminalder/codex-game-hub/internal/config"
	"github.com/jaminalder/codex-game-hub/internal/web"
)

var (
	configPath = flag.String("config", os.Getenv("GAMEHUB_CONFIG"), "Path to a YAML config file")
	addr       = flag.String("addr", "", "Listen address, overrides the config file and PORT")
	dev        = flag.Bool("dev", false, "Human-readable debug logging")
	origin     = flag.String("origin", os.Getenv("GAMEHUB_ORIGIN"), "Allowed websocket origin host; empty allows any")
)

// checkOrigin accepts websocket upgrades from the configured origin host.
func checkOrigin(r *http.Request) bool {
	return *origin == "" || strings.Contains(r.Header.Get("Origin"), *origin)
}

func newLogger() *zap.Logger {
	var log *zap.Logger
	var err error
	if *dev {
		log, err = zap.NewDevelopment()
	} else {
		log, err = zap.NewProduction()
	}
	if err != nil {
		return zap.NewNop()
	}
	return log
}

func main() {
	flag.Parse()
	log := newLogger()
	defer log.Sync()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal("loading config", zap.Error(err))
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		log.Fatal("reading environment", zap.Error(err))
	}
	if *addr != "" {
		cfg.Addr = *addr
	}

	svc := app.NewServiceWithOptions(app.Options{
		Logger:            log.Named("service"),
		BotDelay:          cfg.BotDelay,
		MemoryHideDelay:   cfg.MemoryHideDelay,
		DefaultDifficulty: cfg.DefaultDifficulty,
		SubscriberBuffer:  cfg.SubscriberBuffer,
	})
	handler := web.NewServer(svc,
		web.WithLogger(log.Named("http")),
		web.WithHeartbeat(cfg.HeartbeatInterval),
		web.WithCheckOrigin(checkOrigin))

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	serverErrCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrCh <- err
		}
		close(serverErrCh)
	}()

	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	log.Info("game hub listening",
		zap.String("addr", cfg.Addr),
		zap.Duration("bot_delay", cfg.BotDelay),
		zap.Stringer("difficulty", cfg.DefaultDifficulty))

	var runErr error
	select {
	case <-sigCtx.Done():
		log.Info("shutdown signal received")
	case err, ok := <-serverErrCh:
		if ok {
			runErr = err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Warn("graceful shutdown failed", zap.Error(err))
		_ = server.Close()
	}
	if runErr != nil {
		log.Error("server stopped", zap.Error(runErr))
		_ = log.Sync()
		os.Exit(1)
	}
}
