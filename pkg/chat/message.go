package chat

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/huandu/go-clone"
	"github.com/pkg/errors"
)

type Role string

const (
	RoleUser Role = "user"
	RoleAI   Role = "ai"
)

func (r Role) IsValid() bool {
	switch r {
	case RoleUser, RoleAI:
		return true
	default:
		return false
	}
}

const (
	// DefaultTitle is the placeholder a session keeps until its first message arrives.
	DefaultTitle = "New Chat"
	// DefaultModel is used when no snapshot or configuration provides one.
	DefaultModel = "mistralai/mistral-small-3.2-24b-instruct:free"

	titlePreviewLength = 30
	titleEllipsis      = "..."
)

type Message struct {
	Role    Role   `json:"role" yaml:"role"`
	Content string `json:"content" yaml:"content"`
}

func NewUserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

func NewAIMessage(content string) Message {
	return Message{Role: RoleAI, Content: content}
}

func (m Message) String() string {
	return fmt.Sprintf("[%s]: %s", m.Role, strings.TrimRight(m.Content, "\n"))
}

// Session is one titled conversation thread.
type Session struct {
	ID       string    `json:"id" yaml:"id"`
	Title    string    `json:"title" yaml:"title"`
	Messages []Message `json:"messages" yaml:"messages"`
}

type SessionOption func(*Session)

func WithSessionID(id string) SessionOption {
	return func(s *Session) {
		s.ID = id
	}
}

func WithTitle(title string) SessionOption {
	return func(s *Session) {
		s.Title = title
	}
}

func WithMessages(messages ...Message) SessionOption {
	return func(s *Session) {
		s.Messages = append(s.Messages, messages...)
	}
}

func NewSession(options ...SessionOption) *Session {
	ret := &Session{
		ID:       uuid.NewString(),
		Title:    DefaultTitle,
		Messages: []Message{},
	}
	for _, option := range options {
		option(ret)
	}
	return ret
}

func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	return clone.Clone(s).(*Session)
}

// HasDefaultTitle reports whether the title was never derived from a message.
func (s *Session) HasDefaultTitle() bool {
	return s.Title == DefaultTitle
}

// TitlePreview derives a session title from the first user message: the text itself when it
// fits, otherwise its first 30 characters followed by an ellipsis.
func TitlePreview(text string) string {
	runes := []rune(text)
	if len(runes) <= titlePreviewLength {
		return text
	}
	return string(runes[:titlePreviewLength]) + titleEllipsis
}

// State is the whole persisted chat state. ActiveSessionID is empty when no session is
// active and serializes as null.
type State struct {
	Sessions        []*Session `json:"sessions" yaml:"sessions"`
	ActiveSessionID string     `json:"activeSessionId" yaml:"activeSessionId"`
	ActiveModel     string     `json:"activeModel" yaml:"activeModel"`
}

// NewDefaultState returns a state with a single empty session, which is active.
func NewDefaultState(model string) *State {
	if model == "" {
		model = DefaultModel
	}
	session := NewSession()
	return &State{
		Sessions:        []*Session{session},
		ActiveSessionID: session.ID,
		ActiveModel:     model,
	}
}

func (s *State) MarshalJSON() ([]byte, error) {
	type Alias State
	var active *string
	if s.ActiveSessionID != "" {
		id := s.ActiveSessionID
		active = &id
	}
	return json.Marshal(&struct {
		*Alias
		ActiveSessionID *string `json:"activeSessionId"`
	}{
		Alias:           (*Alias)(s),
		ActiveSessionID: active,
	})
}

func (s *State) Clone() *State {
	if s == nil {
		return nil
	}
	return clone.Clone(s).(*State)
}

func (s *State) Session(id string) (*Session, bool) {
	if id == "" {
		return nil, false
	}
	for _, session := range s.Sessions {
		if session.ID == id {
			return session, true
		}
	}
	return nil, false
}

func (s *State) ActiveSession() (*Session, bool) {
	return s.Session(s.ActiveSessionID)
}

// Repair normalizes a decoded snapshot: nil lists become empty, a missing model falls back to
// defaultModel and a dangling active id moves to the first session (or none). A null active
// id stays null.
// It returns an error when the value cannot be a chat state at all.
func (s *State) Repair(defaultModel string) error {
	if defaultModel == "" {
		defaultModel = DefaultModel
	}
	if s.Sessions == nil {
		s.Sessions = []*Session{}
	}

	seen := map[string]struct{}{}
	for i, session := range s.Sessions {
		if session == nil {
			return errors.Errorf("session %d is null", i)
		}
		if session.ID == "" {
			return errors.Errorf("session %d has no id", i)
		}
		if _, ok := seen[session.ID]; ok {
			return errors.Errorf("duplicate session id %q", session.ID)
		}
		seen[session.ID] = struct{}{}
		if session.Messages == nil {
			session.Messages = []Message{}
		}
		for j, message := range session.Messages {
			if !message.Role.IsValid() {
				return errors.Errorf("session %q message %d has unknown role %q", session.ID, j, message.Role)
			}
		}
	}

	if s.ActiveModel == "" {
		s.ActiveModel = defaultModel
	}

	if _, ok := s.ActiveSession(); !ok && s.ActiveSessionID != "" {
		s.ActiveSessionID = ""
		if len(s.Sessions) > 0 {
			s.ActiveSessionID = s.Sessions[0].ID
		}
	}

	return nil
}
