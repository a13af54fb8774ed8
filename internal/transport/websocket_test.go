package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"whiteboard-relay/internal/client"
	"whiteboard-relay/internal/codec"
	"whiteboard-relay/internal/config"
	"whiteboard-relay/internal/connection"
	"whiteboard-relay/internal/domain"
	"whiteboard-relay/internal/handlers"
	"whiteboard-relay/internal/middleware"
	"whiteboard-relay/internal/payload"
	"whiteboard-relay/internal/presence"
	"whiteboard-relay/internal/room"
)

func newServer(t *testing.T, opts Options) (*httptest.Server, *Handler) {
	t.Helper()
	reg := room.NewRegistry(room.Options{})
	b := room.NewBroadcaster(nil)
	tr := presence.NewTracker(reg, b, nil)
	v := payload.NewValidator()
	router := handlers.NewMessageRouter(v, reg, tr, b, handlers.Options{})

	if opts.Connection.QueueSize == 0 {
		opts.Connection = connection.Options{QueueSize: 64}
	}
	h := NewHandler(router, tr, v, middleware.NewRateLimit(1<<20, 0, 0), opts, nil)
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv, h
}

// newServerFromConfig wires the relay the way main does
func newServerFromConfig(t *testing.T, cfg config.Config) *httptest.Server {
	t.Helper()
	opts, limits, err := OptionsFromConfig(cfg)
	require.NoError(t, err)

	reg := room.NewRegistry(room.Options{MaxRooms: cfg.Limits.MaxRooms, MaxRoomSize: cfg.Limits.MaxRoomSize})
	b := room.NewBroadcaster(nil)
	tr := presence.NewTracker(reg, b, nil)
	v := payload.NewValidator()
	router := handlers.NewMessageRouter(v, reg, tr, b, handlers.Options{CursorInterval: cfg.Cursor.MinInterval})

	srv := httptest.NewServer(NewHandler(router, tr, v, limits, opts, nil))
	t.Cleanup(srv.Close)
	return srv
}

// nextOfType skips events until one of type typ arrives
func nextOfType(t *testing.T, c *client.Client, typ string) *domain.Envelope {
	t.Helper()
	for {
		if env := next(t, c); env.Type == typ {
			return env
		}
	}
}

func wsURL(srv *httptest.Server, query string) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?" + query
}

func dial(t *testing.T, url string, opts ...client.Option) *client.Client {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c, err := client.Dial(ctx, url, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

// next reads one event or fails the test after a timeout
func next(t *testing.T, c *client.Client) *domain.Envelope {
	t.Helper()
	require.NoError(t, c.SetReadDeadline(time.Now().Add(5*time.Second)))
	env, err := c.Receive()
	require.NoError(t, err)
	return env
}

func TestHandler_RelaysBetweenClients(t *testing.T) {
	srv, h := newServer(t, Options{})

	alice := dial(t, wsURL(srv, "room=math101&userId=alice"))
	ack := next(t, alice)
	assert.Equal(t, domain.TypeJoined, ack.Type)
	assert.Equal(t, "alice", ack.UserID)

	bob := dial(t, wsURL(srv, "room=math101&userId=bob"))
	assert.Equal(t, domain.TypeJoined, next(t, bob).Type)

	p := next(t, alice)
	assert.Equal(t, domain.TypePresence, p.Type)
	assert.Equal(t, "bob", p.UserID)
	assert.True(t, p.IsJoined())

	stroke := &domain.Stroke{Points: []domain.Point{{X: 1, Y: 1}, {X: 5, Y: 5}}, Color: "#112233", Tool: domain.ToolPen, LineWidth: 3}
	require.NoError(t, alice.Send(&domain.Envelope{Type: domain.TypeDraw, Room: "math101", Stroke: stroke}))

	got := next(t, bob)
	assert.Equal(t, domain.TypeDraw, got.Type)
	assert.Equal(t, "alice", got.UserID)
	assert.Equal(t, stroke, got.Stroke)

	assert.Equal(t, 2, h.Connections())

	require.NoError(t, bob.Close())
	left := next(t, alice)
	assert.Equal(t, domain.TypePresence, left.Type)
	assert.Equal(t, "bob", left.UserID)
	assert.False(t, left.IsJoined())

	assert.Eventually(t, func() bool { return h.Connections() == 1 }, 5*time.Second, 10*time.Millisecond)
}

func TestHandler_NegotiatesCBOR(t *testing.T) {
	srv, _ := newServer(t, Options{})

	c := dial(t, wsURL(srv, "userId=carol"), client.WithSubprotocol(codec.SubprotocolCBOR))
	assert.Equal(t, codec.SubprotocolCBOR, c.Codec().Name())

	require.NoError(t, c.Send(&domain.Envelope{Type: domain.TypeJoin, Room: "数学 101"}))
	ack := next(t, c)
	assert.Equal(t, domain.TypeJoined, ack.Type)
	assert.Equal(t, "数学 101", ack.Room)
	assert.Equal(t, "carol", ack.UserID)
}

func TestHandler_MalformedFramesDoNotCloseTheSocket(t *testing.T) {
	srv, _ := newServer(t, Options{})

	c := dial(t, wsURL(srv, ""))
	require.NoError(t, c.Send(&domain.Envelope{Type: domain.TypeDraw, Room: "math101"}))
	require.NoError(t, c.Send(&domain.Envelope{Type: "bogus"}))
	require.NoError(t, c.Send(&domain.Envelope{Type: domain.TypeJoin}))

	ack := next(t, c)
	assert.Equal(t, domain.TypeJoined, ack.Type)
	assert.Equal(t, domain.DefaultRoom, ack.Room)
	assert.NotEmpty(t, ack.UserID, "identity falls back to the connection id")
}

func TestHandler_RejectsForeignOrigin(t *testing.T) {
	srv, _ := newServer(t, Options{AllowedOrigins: []string{"https://class.example"}})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := client.Dial(ctx, wsURL(srv, ""), client.WithHeader(http.Header{"Origin": {"https://evil.example"}}))
	assert.Error(t, err)

	c, err := client.Dial(ctx, wsURL(srv, ""), client.WithHeader(http.Header{"Origin": {"https://class.example"}}))
	require.NoError(t, err)
	c.Close()
}

func TestHandler_DrawAfterCursorBurst(t *testing.T) {
	limited := config.Default()
	limited.Limits.MessagesPerSecond = 5
	limited.Limits.Burst = 2

	for name, cfg := range map[string]config.Config{"defaults": config.Default(), "cursor budget": limited} {
		t.Run(name, func(t *testing.T) {
			srv := newServerFromConfig(t, cfg)

			alice := dial(t, wsURL(srv, "room=math101&userId=alice"))
			assert.Equal(t, domain.TypeJoined, next(t, alice).Type)
			bob := dial(t, wsURL(srv, "room=math101&userId=bob"))
			assert.Equal(t, domain.TypeJoined, next(t, bob).Type)

			for i := 0; i < 30; i++ {
				require.NoError(t, alice.Send(domain.Cursor("math101", "", float64(i), float64(i), "")))
			}
			stroke := &domain.Stroke{Points: []domain.Point{{X: 1, Y: 1}, {X: 9, Y: 9}}, Color: "#112233", Tool: domain.ToolPen, LineWidth: 2}
			require.NoError(t, alice.Send(domain.Draw("math101", "", stroke)))
			require.NoError(t, alice.Send(&domain.Envelope{Type: domain.TypeLeave, Room: "math101"}))

			got := nextOfType(t, bob, domain.TypeDraw)
			assert.Equal(t, "alice", got.UserID)
			assert.Equal(t, stroke, got.Stroke)

			left := nextOfType(t, bob, domain.TypePresence)
			assert.Equal(t, "alice", left.UserID)
			assert.False(t, left.IsJoined())
		})
	}
}

func TestHandler_DefaultsAdmitLargeRooms(t *testing.T) {
	srv := newServerFromConfig(t, config.Default())

	for i := 0; i < 60; i++ {
		c := dial(t, wsURL(srv, "room=lecture&userId=student"))
		ack := next(t, c)
		require.Equal(t, domain.TypeJoined, ack.Type, "join %d", i+1)
		assert.Equal(t, "lecture", ack.Room)
	}
}

func TestHandler_DisconnectPolicyDropsSlowReader(t *testing.T) {
	srv, h := newServer(t, Options{Connection: connection.Options{QueueSize: 2, Overflow: connection.Disconnect}})

	alice := dial(t, wsURL(srv, "room=math101&userId=alice"))
	assert.Equal(t, domain.TypeJoined, next(t, alice).Type)
	carol := dial(t, wsURL(srv, "room=math101&userId=carol"))
	assert.Equal(t, domain.TypeJoined, next(t, carol).Type)
	assert.Equal(t, "carol", next(t, alice).UserID)

	// bob never reads after his ack
	bob := dial(t, wsURL(srv, "room=math101&userId=bob"))
	assert.Equal(t, domain.TypeJoined, next(t, bob).Type)
	assert.Equal(t, "bob", next(t, alice).UserID)
	assert.Equal(t, "bob", next(t, carol).UserID)

	stroke := &domain.Stroke{Color: "#000000", Tool: domain.ToolPen, LineWidth: 1}
	for i := 0; i < 9000; i++ {
		stroke.Points = append(stroke.Points, domain.Point{X: float64(i) + 0.25, Y: float64(i) + 0.75})
	}

	bobLeft := false
	deadline := time.Now().Add(15 * time.Second)
	for !bobLeft && time.Now().Before(deadline) {
		require.NoError(t, alice.Send(domain.Draw("math101", "", stroke)))
		for {
			env := next(t, carol)
			if env.Type == domain.TypePresence && env.UserID == "bob" && !env.IsJoined() {
				bobLeft = true
				continue
			}
			require.Equal(t, domain.TypeDraw, env.Type)
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	require.True(t, bobLeft, "slow reader was never disconnected")

	p := next(t, alice)
	assert.Equal(t, domain.TypePresence, p.Type)
	assert.Equal(t, "bob", p.UserID)
	assert.False(t, p.IsJoined())
	assert.Eventually(t, func() bool { return h.Connections() == 2 }, 5*time.Second, 10*time.Millisecond)

	small := &domain.Stroke{Points: []domain.Point{{X: 1, Y: 1}}, Color: "#ff0000", Tool: domain.ToolPen, LineWidth: 2}
	require.NoError(t, alice.Send(domain.Draw("math101", "", small)))
	got := next(t, carol)
	assert.Equal(t, domain.TypeDraw, got.Type)
	assert.Equal(t, small, got.Stroke)
}
