// Package bridge connects the greeting widget to a host application.
//
// A host opens a websocket, the widget announces itself with componentReady,
// and every render message the host sends is answered with the frame height
// and the component value, each only when it changed. Messages are JSON by
// default; hosts that negotiate the greeter.v1.cbor subprotocol get CBOR with
// the same field names.
package bridge

// Message types on the wire.
const (
	TypeRender            = "render"
	TypeComponentReady    = "componentReady"
	TypeSetFrameHeight    = "setFrameHeight"
	TypeSetComponentValue = "setComponentValue"
)

// APIVersion is announced in componentReady.
const APIVersion = 1

// ReadyMessage is the first message of every session.
type ReadyMessage struct {
	Type       string `json:"type"`
	APIVersion int    `json:"apiVersion"`
}

// FrameHeightMessage tells the host how tall the widget frame should be.
type FrameHeightMessage struct {
	Type   string `json:"type"`
	Height int    `json:"height"`
}

// ComponentValueMessage reports the widget state back to the host.
type ComponentValueMessage struct {
	Type     string `json:"type"`
	Value    string `json:"value"`
	DataType string `json:"dataType"`
}

func readyMessage() ReadyMessage {
	return ReadyMessage{Type: TypeComponentReady, APIVersion: APIVersion}
}

func frameHeightMessage(height int) FrameHeightMessage {
	return FrameHeightMessage{Type: TypeSetFrameHeight, Height: height}
}

func componentValueMessage(value string) ComponentValueMessage {
	return ComponentValueMessage{Type: TypeSetComponentValue, Value: value, DataType: "json"}
}
