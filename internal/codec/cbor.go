package codec

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"whiteboard-relay/internal/domain"
)

// Struct fields without a cbor tag use their json tag, so the two
// encodings share key names.
var (
	cborEnc cbor.EncMode
	cborDec cbor.DecMode
)

func init() {
	var err error
	cborEnc, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("codec: CBOR encoder initialization failed: " + err.Error())
	}
	cborDec, err = cbor.DecOptions{
		MaxArrayElements: 131072,
	}.DecMode()
	if err != nil {
		panic("codec: CBOR decoder initialization failed: " + err.Error())
	}
}

type cborCodec struct{}

func (cborCodec) Name() string   { return SubprotocolCBOR }
func (cborCodec) FrameType() int { return frameKinds[SubprotocolCBOR] }

func (cborCodec) Marshal(env *domain.Envelope) ([]byte, error) {
	data, err := cborEnc.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("marshal cbor envelope: %w", err)
	}
	return data, nil
}

func (cborCodec) Unmarshal(data []byte, env *domain.Envelope) error {
	if err := cborDec.Unmarshal(data, env); err != nil {
		return fmt.Errorf("unmarshal cbor envelope: %w", err)
	}
	return nil
}
