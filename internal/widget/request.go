// Package widget implements the greeting widget: a presentational panel
// that shows a localized "Hello, {name}!" header and a fixed description.
//
// The widget has no failure modes of its own. Whatever the host sends is
// decoded permissively into a GreetingRequest and rendered; a missing or
// mistyped name renders as an empty substitution.
package widget

import (
	"encoding/json"
	"math"
)

// GreetingRequest is the property set pushed by the host for one render.
// Width and Disabled are informational and do not change the markup.
type GreetingRequest struct {
	Name     string `json:"name"`
	Width    int    `json:"width,omitempty"`
	Disabled bool   `json:"disabled,omitempty"`
}

// RequestFromProps decodes the host payload {args: {name}, width, disabled}.
// Fields with the wrong type are treated as absent.
func RequestFromProps(props map[string]any) GreetingRequest {
	var req GreetingRequest
	if props == nil {
		return req
	}

	if args, ok := props["args"].(map[string]any); ok {
		if name, ok := args["name"].(string); ok {
			req.Name = name
		}
	}

	req.Width = toWidth(props["width"])

	if disabled, ok := props["disabled"].(bool); ok {
		req.Disabled = disabled
	}

	return req
}

func toWidth(v any) int {
	var f float64
	switch n := v.(type) {
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case uint64:
		f = float64(n)
	case float64:
		f = n
	case float32:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0
		}
		f = parsed
	default:
		return 0
	}

	if math.IsNaN(f) || f <= 0 {
		return 0
	}
	if f > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(f)
}
