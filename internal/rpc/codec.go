package rpc

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

// Codec marshals gRPC messages as JSON.
type Codec struct{}

// Name is the content subtype carried on the wire.
func (Codec) Name() string { return "json" }

func (Codec) Marshal(v any) ([]byte, error) { return json.Marshal(v) }

func (Codec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

func init() {
	encoding.RegisterCodec(Codec{})
}
