package room

import (
	"errors"
	"sync"
	"time"
)

var (
	ErrRoomFull     = errors.New("room is full")
	ErrTooManyRooms = errors.New("server at maximum room capacity")
	ErrNoRoom       = errors.New("room id missing")
)

// Options bounds the registry; zero means unlimited
type Options struct {
	MaxRooms    int
	MaxRoomSize int
}

// Registry maps room ids to their members. Creation and removal of a
// room happen under the same write lock as the membership change that
// causes them, so a join can never land in a room that is being
// collected.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*Room
	opts  Options
	now   func() time.Time
}

func NewRegistry(opts Options) *Registry {
	return &Registry{
		rooms: make(map[string]*Room),
		opts:  opts,
		now:   time.Now,
	}
}

// Add: puts target in room, creating the room on first use. added is
// false when the target was already a member; the existing membership
// is returned unchanged. others is a snapshot of the remaining members.
func (reg *Registry) Add(roomID string, target Target, identity string) (m Member, others []Member, added bool, err error) {
	if roomID == "" {
		return Member{}, nil, false, ErrNoRoom
	}

	reg.mu.Lock()
	defer reg.mu.Unlock()

	rm := reg.rooms[roomID]
	if rm == nil {
		if reg.opts.MaxRooms > 0 && len(reg.rooms) >= reg.opts.MaxRooms {
			return Member{}, nil, false, ErrTooManyRooms
		}
		rm = newRoom(roomID, reg.now())
		reg.rooms[roomID] = rm
	}

	if existing, ok := rm.members[target.ID()]; ok {
		return existing, rm.others(target.ID()), false, nil
	}

	if reg.opts.MaxRoomSize > 0 && len(rm.members) >= reg.opts.MaxRoomSize {
		return Member{}, nil, false, ErrRoomFull
	}

	m = Member{
		Conn:     target,
		Identity: identity,
		Color:    rm.colorFor(identity),
		JoinedAt: reg.now(),
	}
	rm.members[target.ID()] = m
	return m, rm.others(target.ID()), true, nil
}

// Remove: takes connID out of room. ok is false when it was not a
// member (unknown rooms included). An emptied room is deleted.
func (reg *Registry) Remove(roomID, connID string) (removed Member, others []Member, ok bool) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	rm := reg.rooms[roomID]
	if rm == nil {
		return Member{}, nil, false
	}
	removed, ok = rm.members[connID]
	if !ok {
		return Member{}, nil, false
	}
	delete(rm.members, connID)

	if len(rm.members) == 0 {
		delete(reg.rooms, roomID)
		return removed, nil, true
	}
	return removed, rm.others(connID), true
}

// Members: snapshot of room membership excluding excludeID. An absent
// room has no members.
func (reg *Registry) Members(roomID, excludeID string) []Member {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	rm := reg.rooms[roomID]
	if rm == nil {
		return nil
	}
	return rm.others(excludeID)
}

// Member: looks up one connection's membership
func (reg *Registry) Member(roomID, connID string) (Member, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	rm := reg.rooms[roomID]
	if rm == nil {
		return Member{}, false
	}
	m, ok := rm.members[connID]
	return m, ok
}

// Stats: number of live rooms and total memberships
func (reg *Registry) Stats() (rooms, members int) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	rooms = len(reg.rooms)
	for _, rm := range reg.rooms {
		members += len(rm.members)
	}
	return rooms, members
}

// Occupancy: member count per room
func (reg *Registry) Occupancy() map[string]int {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	out := make(map[string]int, len(reg.rooms))
	for id, rm := range reg.rooms {
		out[id] = len(rm.members)
	}
	return out
}
