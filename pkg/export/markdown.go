package export

import (
	"fmt"
	"io"

	"github.com/go-go-golems/angela/pkg/chat"
)

type MarkdownExporter struct{}

func (e *MarkdownExporter) Export(session *chat.Session, w io.Writer) error {
	if _, err := fmt.Fprintf(w, "# %s\n\n", session.Title); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(w, "**Session:** %s  \n", session.ID)
	_, _ = fmt.Fprintf(w, "**Messages:** %d\n\n", len(session.Messages))

	for i, msg := range session.Messages {
		_, _ = fmt.Fprintf(w, "---\n\n## %d. %s\n\n%s\n\n", i+1, roleHeading(msg.Role), msg.Content)
	}
	return nil
}

func (e *MarkdownExporter) Extension() string {
	return "md"
}

func roleHeading(role chat.Role) string {
	switch role {
	case chat.RoleUser:
		return "You"
	case chat.RoleAI:
		return "Assistant"
	default:
		return string(role)
	}
}
