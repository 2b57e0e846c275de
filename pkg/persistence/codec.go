package persistence

import (
	"encoding/json"
	"strings"

	"github.com/go-go-golems/angela/pkg/chat"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Codec turns a chat state into the bytes stored under the snapshot key and back.
type Codec interface {
	Marshal(state *chat.State) ([]byte, error)
	Unmarshal(b []byte, state *chat.State) error
	// Extension is the file extension used by the file backend.
	Extension() string
}

type JSONCodec struct{}

func (JSONCodec) Marshal(state *chat.State) ([]byte, error) {
	return json.Marshal(state)
}

func (JSONCodec) Unmarshal(b []byte, state *chat.State) error {
	return json.Unmarshal(b, state)
}

func (JSONCodec) Extension() string { return "json" }

type YAMLCodec struct{}

func (YAMLCodec) Marshal(state *chat.State) ([]byte, error) {
	return yaml.Marshal(state)
}

func (YAMLCodec) Unmarshal(b []byte, state *chat.State) error {
	return yaml.Unmarshal(b, state)
}

func (YAMLCodec) Extension() string { return "yaml" }

// NewCodec returns the codec for a snapshot format name. An empty name selects JSON.
func NewCodec(format string) (Codec, error) {
	switch strings.ToLower(format) {
	case "", "json":
		return JSONCodec{}, nil
	case "yaml", "yml":
		return YAMLCodec{}, nil
	default:
		return nil, errors.Errorf("unknown snapshot format %q", format)
	}
}
