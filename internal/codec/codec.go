// Package codec encodes wire envelopes for a negotiated WebSocket
// subprotocol. JSON is the default; CBOR is offered for clients that
// prefer compact binary frames.
package codec

import (
	"github.com/gorilla/websocket"

	"whiteboard-relay/internal/domain"
)

// Subprotocol names offered during the WebSocket handshake
const (
	SubprotocolJSON = "whiteboard.v1.json"
	SubprotocolCBOR = "whiteboard.v1.cbor"
)

// Codec converts envelopes to and from frame payloads
type Codec interface {
	Name() string
	// FrameType is the websocket message type frames are written with
	FrameType() int
	Marshal(env *domain.Envelope) ([]byte, error)
	Unmarshal(data []byte, env *domain.Envelope) error
}

var (
	JSON Codec = jsonCodec{}
	CBOR Codec = cborCodec{}
)

// Subprotocols returns the subprotocols in server preference order
func Subprotocols() []string {
	return []string{SubprotocolJSON, SubprotocolCBOR}
}

// ForSubprotocol: returns the codec for a negotiated subprotocol.
// An empty or unknown name falls back to JSON.
func ForSubprotocol(name string) Codec {
	if name == SubprotocolCBOR {
		return CBOR
	}
	return JSON
}

var frameKinds = map[string]int{
	SubprotocolJSON: websocket.TextMessage,
	SubprotocolCBOR: websocket.BinaryMessage,
}
