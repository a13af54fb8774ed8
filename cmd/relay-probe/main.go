// relay-probe joins a relay room, mirrors it onto a local board and logs
// every event. On exit it prints the board fingerprint, so two probes in
// the same room can be compared.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"whiteboard-relay/internal/client"
	"whiteboard-relay/internal/codec"
	"whiteboard-relay/internal/domain"
	"whiteboard-relay/internal/whiteboard"
)

func main() {
	flagSet := pflag.NewFlagSet("relay-probe", pflag.ContinueOnError)
	relayURL := flagSet.String("url", "ws://localhost:8080/ws", "relay websocket URL")
	roomID := flagSet.String("room", domain.DefaultRoom, "room to join")
	userID := flagSet.String("user", "", "identity to join with")
	useCBOR := flagSet.Bool("cbor", false, "use the binary subprotocol")
	width := flagSet.Int("width", 1280, "canvas width")
	height := flagSet.Int("height", 720, "canvas height")
	duration := flagSet.Duration("duration", 0, "stop after this long (0 runs until interrupted)")
	verbose := flagSet.BoolP("verbose", "v", false, "log cursor samples too")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		os.Exit(2)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	if err := run(*relayURL, *roomID, *userID, *useCBOR, *width, *height, *duration, *verbose); err != nil {
		slog.Error("probe failed", "error", err)
		os.Exit(1)
	}
}

func run(relayURL, roomID, userID string, useCBOR bool, width, height int, duration time.Duration, verbose bool) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, duration)
		defer cancel()
	}

	u, err := url.Parse(relayURL)
	if err != nil {
		return fmt.Errorf("parse url: %w", err)
	}
	if userID != "" {
		q := u.Query()
		q.Set("userId", userID)
		u.RawQuery = q.Encode()
	}

	subprotocol := codec.SubprotocolJSON
	if useCBOR {
		subprotocol = codec.SubprotocolCBOR
	}
	c, err := client.Dial(ctx, u.String(), client.WithSubprotocol(subprotocol))
	if err != nil {
		return err
	}
	defer c.Close()

	board := whiteboard.NewBoard(roomID, whiteboard.NewCanvas(width, height, nil), whiteboard.Style{})
	if err := board.Attach(c, userID); err != nil {
		return fmt.Errorf("join %s: %w", roomID, err)
	}
	slog.Info("connected", "url", u.Redacted(), "room", roomID, "codec", c.Codec().Name())

	err = c.Run(ctx, func(env *domain.Envelope) {
		if !board.Apply(env) {
			return
		}
		logEvent(env, verbose)
	})
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	fmt.Println(board.Fingerprint())
	return nil
}

func logEvent(env *domain.Envelope, verbose bool) {
	switch env.Type {
	case domain.TypeCursor:
		if verbose {
			slog.Info("cursor", "userId", env.UserID, "x", *env.X, "y", *env.Y, "color", env.Color)
		}
	case domain.TypeDraw:
		slog.Info("draw", "userId", env.UserID, "points", len(env.Stroke.Points), "tool", env.Stroke.Tool)
	case domain.TypePresence:
		slog.Info("presence", "userId", env.UserID, "joined", env.IsJoined())
	default:
		slog.Info(env.Type, "room", env.Room, "userId", env.UserID)
	}
}
