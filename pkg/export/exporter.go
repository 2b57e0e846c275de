package export

import (
	"io"
	"strings"

	"github.com/go-go-golems/angela/pkg/chat"
	"github.com/pkg/errors"
)

// Exporter writes one session in a given format.
type Exporter interface {
	Export(session *chat.Session, w io.Writer) error
	Extension() string
}

// Formats lists the accepted format names.
var Formats = []string{"md", "markdown", "json", "jsonl", "yaml"}

func NewExporter(format string) (Exporter, error) {
	switch strings.ToLower(format) {
	case "md", "markdown":
		return &MarkdownExporter{}, nil
	case "json":
		return &JSONExporter{}, nil
	case "jsonl":
		return &JSONLExporter{}, nil
	case "yaml", "yml":
		return &YAMLExporter{}, nil
	default:
		return nil, errors.Errorf("unsupported format: %s (supported: %s)", format, strings.Join(Formats, ", "))
	}
}
