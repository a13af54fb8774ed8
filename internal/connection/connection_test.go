package connection

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"whiteboard-relay/internal/codec"
	"whiteboard-relay/internal/domain"
)

func TestNew_IdentityDefaultsToID(t *testing.T) {
	c := New("conn-1", "", nil, Options{QueueSize: 4})
	assert.Equal(t, "conn-1", c.Identity())
	assert.Equal(t, codec.JSON, c.Codec())

	named := New("conn-2", "alice", codec.CBOR, Options{QueueSize: 4})
	assert.Equal(t, "alice", named.Identity())
}

func TestConnection_RoomIndex(t *testing.T) {
	c := New("c1", "alice", nil, Options{QueueSize: 4})

	assert.True(t, c.TrackRoom("r2", "alice"))
	assert.True(t, c.TrackRoom("r1", "instructor"))
	assert.False(t, c.TrackRoom("r1", "someone-else"))

	identity, ok := c.RoomIdentity("r1")
	require.True(t, ok)
	assert.Equal(t, "instructor", identity)
	assert.Equal(t, []string{"r1", "r2"}, c.Rooms())

	identity, ok = c.UntrackRoom("r1")
	assert.True(t, ok)
	assert.Equal(t, "instructor", identity)
	_, ok = c.UntrackRoom("r1")
	assert.False(t, ok)
	assert.Equal(t, []string{"r2"}, c.Rooms())
}

func TestConnection_SendCoalescesCursors(t *testing.T) {
	c := New("c1", "", codec.JSON, Options{QueueSize: 8, CoalesceCursors: true})

	require.NoError(t, c.Send(codec.NewFrame(domain.Cursor("r", "bob", 1, 1, ""))))
	require.NoError(t, c.Send(codec.NewFrame(domain.Cursor("r", "bob", 2, 2, ""))))
	assert.Equal(t, 1, c.Queue().Len())

	plain := New("c2", "", codec.JSON, Options{QueueSize: 8})
	require.NoError(t, plain.Send(codec.NewFrame(domain.Cursor("r", "bob", 1, 1, ""))))
	require.NoError(t, plain.Send(codec.NewFrame(domain.Cursor("r", "bob", 2, 2, ""))))
	assert.Equal(t, 2, plain.Queue().Len())
}

func TestConnection_SendAfterClose(t *testing.T) {
	c := New("c1", "", nil, Options{QueueSize: 1})
	assert.True(t, c.Close())

	err := c.Send(codec.NewFrame(domain.Clear("r", "u")))
	assert.True(t, IsClosedErr(err))
	select {
	case <-c.Done():
	default:
		t.Fatal("done not closed")
	}
}

func TestConnection_Allow(t *testing.T) {
	unlimited := New("c1", "", nil, Options{})
	for i := 0; i < 100; i++ {
		require.True(t, unlimited.Allow())
	}

	limited := New("c2", "", nil, Options{MessagesPerSecond: 1, Burst: 2})
	assert.True(t, limited.Allow())
	assert.True(t, limited.Allow())
	assert.False(t, limited.Allow())
}

func TestConnection_CursorDue(t *testing.T) {
	c := New("c1", "", nil, Options{})
	start := time.Now()

	assert.True(t, c.CursorDue(start, 0))
	assert.True(t, c.CursorDue(start, 0), "zero interval never throttles")

	assert.True(t, c.CursorDue(start, 30*time.Millisecond))
	assert.False(t, c.CursorDue(start.Add(10*time.Millisecond), 30*time.Millisecond))
	assert.True(t, c.CursorDue(start.Add(31*time.Millisecond), 30*time.Millisecond))
}
