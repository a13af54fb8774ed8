package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/pflag"

	"whiteboard-relay/internal/config"
	"whiteboard-relay/internal/handlers"
	"whiteboard-relay/internal/middleware"
	"whiteboard-relay/internal/payload"
	"whiteboard-relay/internal/presence"
	"whiteboard-relay/internal/room"
	"whiteboard-relay/internal/server"
	"whiteboard-relay/internal/transport"
)

const (
	limiterSweep   = 5 * time.Minute
	limiterMaxIdle = 30 * time.Minute
)

func main() {
	if err := config.LoadEnvFiles(); err != nil {
		slog.Warn("no .env file loaded", "error", err)
	}

	cfg, err := config.FromArgs(os.Args[1:], os.LookupEnv)
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		slog.Error("invalid configuration", "error", err)
		os.Exit(2)
	}

	logger := newLogger(cfg.Log)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("relay stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	wsOpts, limits, err := transport.OptionsFromConfig(cfg)
	if err != nil {
		return err
	}

	registry := room.NewRegistry(room.Options{
		MaxRooms:    cfg.Limits.MaxRooms,
		MaxRoomSize: cfg.Limits.MaxRoomSize,
	})
	broadcaster := room.NewBroadcaster(logger)
	tracker := presence.NewTracker(registry, broadcaster, logger)
	validator := payload.NewValidator()
	router := handlers.NewMessageRouter(validator, registry, tracker, broadcaster,
		handlers.Options{CursorInterval: cfg.Cursor.MinInterval})

	ws := transport.NewHandler(router, tracker, validator, limits, wsOpts, logger)

	ipLimiter := middleware.NewIPRateLimit(cfg.Limits.ConnectionsPerMinute, cfg.Limits.ConnectionBurst)
	go ipLimiter.Run(ctx, limiterSweep, limiterMaxIdle)

	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	srv := &http.Server{
		Addr: cfg.Server.Addr,
		Handler: server.NewRouter(server.Deps{
			WebSocket:   ws,
			Connections: ws.Connections,
			Rooms:       registry,
			Occupancy:   tracker.Occupancy,
			IPLimiter:   ipLimiter,
			Logger:      logger,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("relay starting", "addr", cfg.Server.Addr, "queue", cfg.Queue.Size, "overflow", cfg.Queue.Overflow)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	logger.Info("relay shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newLogger(cfg config.LogConfig) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
