package export

import (
	"encoding/json"
	"io"

	"github.com/go-go-golems/angela/pkg/chat"
)

// JSONExporter writes the session pretty-printed, in the same shape as the persisted snapshot.
type JSONExporter struct{}

func (e *JSONExporter) Export(session *chat.Session, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(session)
}

func (e *JSONExporter) Extension() string {
	return "json"
}

// JSONLExporter writes one message per line.
type JSONLExporter struct{}

func (e *JSONLExporter) Export(session *chat.Session, w io.Writer) error {
	enc := json.NewEncoder(w)
	for _, msg := range session.Messages {
		if err := enc.Encode(msg); err != nil {
			return err
		}
	}
	return nil
}

func (e *JSONLExporter) Extension() string {
	return "jsonl"
}
