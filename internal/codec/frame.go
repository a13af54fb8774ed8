package codec

import (
	"sync"

	"whiteboard-relay/internal/domain"
)

// Frame is one outbound event fanned out to many connections. Each
// codec encodes it at most once no matter how many recipients share it.
type Frame struct {
	Envelope *domain.Envelope

	mu      sync.Mutex
	encoded map[string][]byte
}

func NewFrame(env *domain.Envelope) *Frame {
	return &Frame{Envelope: env}
}

// Encode: returns the frame payload for c, encoding on first use
func (f *Frame) Encode(c Codec) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if data, ok := f.encoded[c.Name()]; ok {
		return data, nil
	}
	data, err := c.Marshal(f.Envelope)
	if err != nil {
		return nil, err
	}
	if f.encoded == nil {
		f.encoded = make(map[string][]byte, 2)
	}
	f.encoded[c.Name()] = data
	return data, nil
}

// SupersedeKey identifies events a newer one may replace in an
// outbound queue. Only cursor samples are superseded, keyed per room
// and identity; every other event returns "".
func (f *Frame) SupersedeKey() string {
	if f.Envelope == nil || f.Envelope.Type != domain.TypeCursor {
		return ""
	}
	return f.Envelope.Type + "\x00" + f.Envelope.Room + "\x00" + f.Envelope.UserID
}
