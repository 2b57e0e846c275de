package ui

import (
	"strings"

	"github.com/muesli/reflow/wordwrap"
)

func wrapWords(text string, width int) string {
	if width <= 0 {
		return text
	}
	return wordwrap.String(text, width)
}

// roleLabel is the header shown above a message.
func roleLabel(user bool) string {
	if user {
		return "You"
	}
	return "Assistant"
}

func firstLine(text string) string {
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		return text[:i]
	}
	return text
}
