package room

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"whiteboard-relay/internal/codec"
	"whiteboard-relay/internal/domain"
)

func TestBroadcaster_SkipsFailingRecipient(t *testing.T) {
	ok1 := &mockTarget{id: "ok1"}
	dead := &mockTarget{id: "dead", sendErr: errors.New("gone")}
	ok2 := &mockTarget{id: "ok2"}
	members := []Member{{Conn: ok1}, {Conn: dead}, {Conn: ok2}}

	n := NewBroadcaster(nil).Broadcast(members, codec.NewFrame(domain.Clear("r", "u")))

	assert.Equal(t, 2, n)
	assert.Len(t, ok1.getReceived(), 1)
	assert.Len(t, ok2.getReceived(), 1)
	assert.Empty(t, dead.getReceived())
}

func TestBroadcaster_SharesFrame(t *testing.T) {
	a := &mockTarget{id: "a"}
	b := &mockTarget{id: "b"}
	f := codec.NewFrame(domain.Clear("r", "u"))

	NewBroadcaster(nil).Broadcast([]Member{{Conn: a}, {Conn: b}}, f)

	assert.Same(t, f, a.getReceived()[0])
	assert.Same(t, f, b.getReceived()[0])
}

func TestBroadcaster_NoMembers(t *testing.T) {
	assert.Equal(t, 0, NewBroadcaster(nil).Broadcast(nil, codec.NewFrame(domain.Clear("r", "u"))))
}
