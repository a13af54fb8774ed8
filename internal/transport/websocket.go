// Package transport accepts relay websocket connections and runs the
// per-connection read and write loops.
package transport

import (
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"whiteboard-relay/internal/codec"
	"whiteboard-relay/internal/connection"
	"whiteboard-relay/internal/handlers"
	"whiteboard-relay/internal/middleware"
	"whiteboard-relay/internal/payload"
	"whiteboard-relay/internal/presence"
)

const (
	defaultPongWait  = 60 * time.Second
	defaultWriteWait = 10 * time.Second
	// closeGrace bounds how long a closed connection's writer may stay
	// blocked on a peer that stopped reading
	closeGrace = time.Second
)

// Options: socket tuning and the settings every new Connection gets
type Options struct {
	// AllowedOrigins lists accepted Origin headers; empty accepts any
	AllowedOrigins []string
	ReadLimit      int64
	PongWait       time.Duration
	WriteWait      time.Duration
	Connection     connection.Options
}

// Handler upgrades HTTP requests and serves one relay connection each
type Handler struct {
	upgrader  websocket.Upgrader
	router    *handlers.MessageRouter
	tracker   *presence.Tracker
	validator *payload.Validator
	limits    *middleware.RateLimit
	opts      Options
	logger    *slog.Logger
	active    atomic.Int64
}

func NewHandler(
	router *handlers.MessageRouter,
	tracker *presence.Tracker,
	validator *payload.Validator,
	limits *middleware.RateLimit,
	opts Options,
	logger *slog.Logger,
) *Handler {
	if opts.PongWait <= 0 {
		opts.PongWait = defaultPongWait
	}
	if opts.WriteWait <= 0 {
		opts.WriteWait = defaultWriteWait
	}
	if limits == nil {
		limits = middleware.NewRateLimit(0, 0, 0)
	}
	if logger == nil {
		logger = slog.Default()
	}

	h := &Handler{
		router:    router,
		tracker:   tracker,
		validator: validator,
		limits:    limits,
		opts:      opts,
		logger:    logger,
	}
	h.upgrader = websocket.Upgrader{
		Subprotocols: codec.Subprotocols(),
		CheckOrigin:  h.checkOrigin,
	}
	return h
}

// checkOrigin: CORS against the configured domains. Requests without an
// Origin header come from non-browser clients and are accepted.
func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || len(h.opts.AllowedOrigins) == 0 {
		return true
	}
	for _, allowed := range h.opts.AllowedOrigins {
		if strings.EqualFold(origin, strings.TrimSpace(allowed)) {
			return true
		}
	}
	return false
}

// Connections: number of sockets currently served
func (h *Handler) Connections() int {
	return int(h.active.Load())
}

// ServeHTTP: upgrades, optionally joins ?room=, then runs the socket
// until either side goes away
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	query := r.URL.Query()
	cdc := codec.ForSubprotocol(ws.Subprotocol())
	conn := connection.New(uuid.NewString(), h.validator.Identity(query.Get("userId")), cdc, h.opts.Connection)
	logger := h.logger.With("connId", conn.ID(), "userId", conn.Identity())

	h.active.Add(1)
	defer h.active.Add(-1)
	logger.Info("connection opened", "remote", r.RemoteAddr, "codec", cdc.Name())

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		h.writePump(ws, conn, logger)
	}()
	go func() {
		<-conn.Done()
		select {
		case <-writerDone:
		case <-time.After(closeGrace):
			// unblocks both pumps
			_ = ws.NetConn().Close()
		}
	}()

	if roomID := query.Get("room"); roomID != "" {
		if err := h.router.Join(conn, roomID, ""); err != nil {
			logger.Warn("auto-join failed", "room", roomID, "error", err)
		}
	}

	h.readPump(ws, conn, logger)

	h.tracker.Disconnect(conn)
	conn.Close()
	<-writerDone
	logger.Info("connection closed", "dropped", conn.Queue().Dropped())
}

// readPump: inbound loop, returns when the socket fails or closes
func (h *Handler) readPump(ws *websocket.Conn, conn *connection.Connection, logger *slog.Logger) {
	if h.opts.ReadLimit > 0 {
		ws.SetReadLimit(h.opts.ReadLimit)
	}
	ws.SetReadDeadline(time.Now().Add(h.opts.PongWait))
	ws.SetPongHandler(func(string) error {
		ws.SetReadDeadline(time.Now().Add(h.opts.PongWait))
		return nil
	})

	for {
		_, msg, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Debug("read failed", "error", err)
			}
			return
		}

		// Drop oversized message
		if !h.limits.ValidateMessageSize(len(msg)) {
			logger.Warn("message too large", "bytes", len(msg))
			continue
		}

		if err := h.router.Route(conn, msg); err != nil {
			logger.Debug("event dropped", "error", err)
		}
	}
}

// writePump: sole writer for ws. Drains the queue, pings at 90% of the
// pong deadline and closes the socket once the connection is closed.
func (h *Handler) writePump(ws *websocket.Conn, conn *connection.Connection, logger *slog.Logger) {
	ticker := time.NewTicker(h.opts.PongWait * 9 / 10)
	defer func() {
		ticker.Stop()
		ws.Close()
	}()

	queue := conn.Queue()
	for {
		select {
		case <-conn.Done():
			ws.SetWriteDeadline(time.Now().Add(h.opts.WriteWait))
			_ = ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return

		case <-queue.Ready():
			for {
				data, ok := queue.Pop()
				if !ok {
					break
				}
				ws.SetWriteDeadline(time.Now().Add(h.opts.WriteWait))
				if err := ws.WriteMessage(conn.Codec().FrameType(), data); err != nil {
					logger.Debug("write failed", "error", err)
					conn.Close()
					return
				}
			}

		case <-ticker.C:
			ws.SetWriteDeadline(time.Now().Add(h.opts.WriteWait))
			if err := ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				conn.Close()
				return
			}
		}
	}
}
