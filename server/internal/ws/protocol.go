package ws

import (
	"encoding/json"

	"github.com/cueboard/cueboard/server/internal/registry"
)

// WebSocket subprotocols offered by the hub, in order of preference.
const (
	// ProtocolV2 carries every message as a tagged JSON envelope. It is also
	// used when the client requests no subprotocol.
	ProtocolV2 = "cueboard.v2"

	// ProtocolV1 serves legacy viewers that expect a bare redirect URL as
	// the whole text frame. Other message kinds are not sent to them.
	ProtocolV1 = "cueboard.v1"
)

// encoder turns a message into a text frame. ok is false when the
// protocol has no representation for the message.
type encoder func(registry.Message) (data []byte, ok bool, err error)

func encoderFor(protocol string) encoder {
	if protocol == ProtocolV1 {
		return encodeV1
	}
	return encodeV2
}

func encodeV2(m registry.Message) ([]byte, bool, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

func encodeV1(m registry.Message) ([]byte, bool, error) {
	if m.Kind != registry.KindRedirect {
		return nil, false, nil
	}
	return []byte(m.URL), true, nil
}
