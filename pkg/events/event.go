package events

import (
	"encoding/json"
	"time"

	"github.com/go-go-golems/angela/pkg/chat"
	"github.com/pkg/errors"
)

type EventType string

const (
	EventTypeSessionCreated  = EventType(chat.OpSessionCreated)
	EventTypeSessionSelected = EventType(chat.OpSessionSelected)
	EventTypeSessionDeleted  = EventType(chat.OpSessionDeleted)
	EventTypeSessionRenamed  = EventType(chat.OpSessionRenamed)
	EventTypeSessionReset    = EventType(chat.OpSessionReset)
	EventTypeSessionsCleared = EventType(chat.OpSessionsCleared)
	EventTypeMessageAppended = EventType(chat.OpMessageAppended)
	EventTypeMessageEdited   = EventType(chat.OpMessageEdited)
	EventTypeModelChanged    = EventType(chat.OpModelChanged)
	EventTypeStatePurged     = EventType(chat.OpStatePurged)
	EventTypePendingChanged  = EventType("pending-changed")
)

// Event is the wire form of a store change or a pending transition.
// Sequence and Timestamp are filled in by the sink that publishes it.
type Event struct {
	Type      EventType `json:"type"`
	SessionID string    `json:"sessionId,omitempty"`
	Index     *int      `json:"index,omitempty"`
	ModelID   string    `json:"modelId,omitempty"`
	Pending   *bool     `json:"pending,omitempty"`
	Sequence  uint64    `json:"seq"`
	Timestamp time.Time `json:"timestamp"`
}

func NewChangeEvent(change chat.Change) *Event {
	ret := &Event{
		Type:      EventType(change.Op),
		SessionID: change.SessionID,
		ModelID:   change.ModelID,
	}
	if change.Index >= 0 {
		index := change.Index
		ret.Index = &index
	}
	return ret
}

func NewPendingEvent(pending bool) *Event {
	return &Event{
		Type:    EventTypePendingChanged,
		Pending: &pending,
	}
}

func NewEventFromJson(b []byte) (*Event, error) {
	e := &Event{}
	if err := json.Unmarshal(b, e); err != nil {
		return nil, errors.Wrap(err, "could not decode event")
	}
	if e.Type == "" {
		return nil, errors.New("event has no type")
	}
	return e, nil
}
