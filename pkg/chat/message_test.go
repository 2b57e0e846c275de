package chat

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTitlePreview(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "short", in: "Hi", want: "Hi"},
		{name: "exactly thirty", in: strings.Repeat("a", 30), want: strings.Repeat("a", 30)},
		{name: "thirty one", in: strings.Repeat("a", 31), want: strings.Repeat("a", 30) + "..."},
		{name: "sentence", in: "Hello there, I need help with X", want: "Hello there, I need help with ..."},
		{name: "multibyte", in: strings.Repeat("é", 35), want: strings.Repeat("é", 30) + "..."},
		{name: "empty", in: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TitlePreview(tt.in))
		})
	}
}

func TestNewSessionDefaults(t *testing.T) {
	s := NewSession()
	assert.NotEmpty(t, s.ID)
	assert.Equal(t, DefaultTitle, s.Title)
	assert.NotNil(t, s.Messages)
	assert.True(t, s.HasDefaultTitle())

	s2 := NewSession(WithSessionID("x"), WithTitle("T"), WithMessages(NewUserMessage("a")))
	assert.Equal(t, "x", s2.ID)
	assert.False(t, s2.HasDefaultTitle())
	assert.Len(t, s2.Messages, 1)
}

func TestStateMarshalsNullActiveSession(t *testing.T) {
	state := &State{Sessions: []*Session{}, ActiveModel: DefaultModel}
	b, err := json.Marshal(state)
	require.NoError(t, err)
	assert.JSONEq(t, `{"sessions":[],"activeSessionId":null,"activeModel":"`+DefaultModel+`"}`, string(b))

	var decoded State
	require.NoError(t, json.Unmarshal(b, &decoded))
	assert.Equal(t, "", decoded.ActiveSessionID)
}

func TestStateMarshalRoundTripKeepsMessageOrder(t *testing.T) {
	state := &State{
		Sessions: []*Session{
			NewSession(WithSessionID("a"), WithTitle("Hi"), WithMessages(
				NewUserMessage("Hi"),
				NewAIMessage("Hello!"),
			)),
		},
		ActiveSessionID: "a",
		ActiveModel:     "openai/gpt-4.1",
	}
	b, err := json.Marshal(state)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"activeSessionId":"a"`)
	assert.Contains(t, string(b), `"role":"ai"`)

	var decoded State
	require.NoError(t, json.Unmarshal(b, &decoded))
	assert.Equal(t, state, &decoded)
}

func TestRepair(t *testing.T) {
	t.Run("fills defaults", func(t *testing.T) {
		s := &State{Sessions: []*Session{{ID: "a", Title: "T"}}}
		require.NoError(t, s.Repair(""))
		assert.Equal(t, DefaultModel, s.ActiveModel)
		assert.NotNil(t, s.Sessions[0].Messages)
		assert.Equal(t, "", s.ActiveSessionID)
	})

	t.Run("dangling active id moves to first session", func(t *testing.T) {
		s := &State{Sessions: []*Session{{ID: "a"}, {ID: "b"}}, ActiveSessionID: "gone", ActiveModel: "m"}
		require.NoError(t, s.Repair("m"))
		assert.Equal(t, "a", s.ActiveSessionID)
	})

	t.Run("dangling active id with no sessions", func(t *testing.T) {
		s := &State{ActiveSessionID: "gone"}
		require.NoError(t, s.Repair("m"))
		assert.Equal(t, "", s.ActiveSessionID)
		assert.NotNil(t, s.Sessions)
		assert.Equal(t, "m", s.ActiveModel)
	})

	t.Run("rejects duplicate ids", func(t *testing.T) {
		s := &State{Sessions: []*Session{{ID: "a"}, {ID: "a"}}}
		assert.Error(t, s.Repair(""))
	})

	t.Run("rejects unknown role", func(t *testing.T) {
		s := &State{Sessions: []*Session{{ID: "a", Messages: []Message{{Role: "system", Content: "x"}}}}}
		assert.Error(t, s.Repair(""))
	})

	t.Run("rejects null session", func(t *testing.T) {
		s := &State{Sessions: []*Session{nil}}
		assert.Error(t, s.Repair(""))
	})
}

func TestStateCloneIsDeep(t *testing.T) {
	s := NewDefaultState("")
	s.Sessions[0].Messages = append(s.Sessions[0].Messages, NewUserMessage("a"))
	c := s.Clone()
	c.Sessions[0].Messages[0].Content = "b"
	assert.Equal(t, "a", s.Sessions[0].Messages[0].Content)
	assert.Equal(t, s.ActiveSessionID, c.ActiveSessionID)
}
