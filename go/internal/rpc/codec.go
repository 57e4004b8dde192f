package rpc

import (
	"encoding/json"

	"connectrpc.com/connect"
)

// jsonCodec replaces connect's protobuf-backed JSON codec so handlers can use
// plain Go structs as messages.
type jsonCodec struct{}

var _ connect.Codec = jsonCodec{}

func (jsonCodec) Name() string { return "json" }

func (jsonCodec) Marshal(msg any) ([]byte, error) {
	return json.Marshal(msg)
}

func (jsonCodec) Unmarshal(data []byte, msg any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, msg)
}

// HandlerOptions are shared by every unary handler in the API.
func HandlerOptions() []connect.HandlerOption {
	return []connect.HandlerOption{connect.WithCodec(jsonCodec{})}
}

// ClientOptions lets Go clients talk to the JSON handlers.
func ClientOptions() []connect.ClientOption {
	return []connect.ClientOption{connect.WithCodec(jsonCodec{})}
}
