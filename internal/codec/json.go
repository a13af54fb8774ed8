package codec

import (
	"encoding/json"
	"fmt"

	"whiteboard-relay/internal/domain"
)

type jsonCodec struct{}

func (jsonCodec) Name() string   { return SubprotocolJSON }
func (jsonCodec) FrameType() int { return frameKinds[SubprotocolJSON] }

func (jsonCodec) Marshal(env *domain.Envelope) ([]byte, error) {
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("marshal json envelope: %w", err)
	}
	return data, nil
}

func (jsonCodec) Unmarshal(data []byte, env *domain.Envelope) error {
	if err := json.Unmarshal(data, env); err != nil {
		return fmt.Errorf("unmarshal json envelope: %w", err)
	}
	return nil
}
