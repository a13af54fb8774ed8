package room

import (
	"log/slog"

	"whiteboard-relay/internal/codec"
	"whiteboard-relay/internal/connection"
)

// Broadcaster: handles fan-out of one frame to room members
type Broadcaster struct {
	logger *slog.Logger
}

func NewBroadcaster(logger *slog.Logger) *Broadcaster {
	if logger == nil {
		logger = slog.Default()
	}
	return &Broadcaster{logger: logger}
}

// Broadcast: delivers f to every member. Sends only enqueue, so members
// are visited in turn on the caller's goroutine and one sender's events
// keep their order at each recipient. A member that cannot take the
// frame is skipped. Returns the number of members that accepted it.
func (b *Broadcaster) Broadcast(members []Member, f *codec.Frame) int {
	delivered := 0
	for _, m := range members {
		if err := m.Conn.Send(f); err != nil {
			msg := "broadcast dropped frame"
			if connection.IsClosedErr(err) {
				msg = "broadcast skipped closed recipient"
			}
			b.logger.Debug(msg, "connId", m.Conn.ID(), "userId", m.Identity, "type", f.Envelope.Type, "error", err)
			continue
		}
		delivered++
	}
	return delivered
}
