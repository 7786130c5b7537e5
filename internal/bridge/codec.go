package bridge

import (
	"encoding/json"
	"reflect"

	"github.com/coder/websocket"
	"github.com/fxamacker/cbor/v2"
)

// Subprotocols understood by the bridge, in order of preference.
const (
	SubprotocolJSON = "greeter.v1.json"
	SubprotocolCBOR = "greeter.v1.cbor"
)

// Codec encodes outbound messages and decodes inbound frames into a loose
// map so that mistyped fields can be tolerated field by field.
type Codec interface {
	Name() string
	MessageType() websocket.MessageType
	Encode(v any) ([]byte, error)
	Decode(data []byte) (map[string]any, error)
}

type jsonCodec struct{}

func (jsonCodec) Name() string                       { return SubprotocolJSON }
func (jsonCodec) MessageType() websocket.MessageType { return websocket.MessageText }
func (jsonCodec) Encode(v any) ([]byte, error)       { return json.Marshal(v) }

func (jsonCodec) Decode(data []byte) (map[string]any, error) {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}

type cborCodec struct {
	dec cbor.DecMode
}

func newCBORCodec() cborCodec {
	dm, err := cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		// options are static
		panic(err)
	}
	return cborCodec{dec: dm}
}

func (cborCodec) Name() string                       { return SubprotocolCBOR }
func (cborCodec) MessageType() websocket.MessageType { return websocket.MessageBinary }
func (cborCodec) Encode(v any) ([]byte, error)       { return cbor.Marshal(v) }

func (c cborCodec) Decode(data []byte) (map[string]any, error) {
	var m map[string]any
	if err := c.dec.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}

var (
	JSON Codec = jsonCodec{}
	CBOR Codec = newCBORCodec()
)

// CodecFor returns the codec for a negotiated subprotocol; anything
// unrecognized, including no subprotocol, gets JSON.
func CodecFor(subprotocol string) Codec {
	if subprotocol == SubprotocolCBOR {
		return CBOR
	}
	return JSON
}
