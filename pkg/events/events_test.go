package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/go-go-golems/angela/pkg/chat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewChangeEvent(t *testing.T) {
	e := NewChangeEvent(chat.Change{Op: chat.OpMessageAppended, SessionID: "s", Index: 0})
	assert.Equal(t, EventTypeMessageAppended, e.Type)
	require.NotNil(t, e.Index)
	assert.Equal(t, 0, *e.Index)

	e = NewChangeEvent(chat.Change{Op: chat.OpModelChanged, Index: -1, ModelID: "m"})
	assert.Nil(t, e.Index)
	assert.Equal(t, "m", e.ModelID)
}

func TestEventJSON(t *testing.T) {
	e := NewPendingEvent(true)
	e.Sequence = 3
	e.Timestamp = time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	b, err := json.Marshal(e)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"pending-changed","pending":true,"seq":3,"timestamp":"2025-01-02T03:04:05Z"}`, string(b))

	decoded, err := NewEventFromJson(b)
	require.NoError(t, err)
	assert.Equal(t, e, decoded)

	_, err = NewEventFromJson([]byte(`{"seq":1}`))
	assert.Error(t, err)
	_, err = NewEventFromJson([]byte(`nope`))
	assert.Error(t, err)
}

func TestSinkPublishesInSequenceThroughRouter(t *testing.T) {
	router, err := NewEventRouter()
	require.NoError(t, err)

	received := make(chan *Event, 10)
	router.AddHandler("collect", TopicChat, func(msg *message.Message) error {
		defer msg.Ack()
		e, err := NewEventFromJson(msg.Payload)
		if err != nil {
			return err
		}
		assert.Equal(t, string(e.Type), msg.Metadata.Get("event_type"))
		received <- e
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- router.Run(ctx) }()
	<-router.Running()

	sink := NewWatermillSink(router.Publisher, TopicChat)
	store := chat.NewStore(nil, chat.WithListener(sink))
	id := store.ActiveSessionID()
	store.AppendMessage(ctx, id, chat.NewUserMessage("hi"))
	sink.OnPendingChanged(true)
	store.RenameSession(ctx, id, "hi")

	var got []*Event
	for i := 0; i < 3; i++ {
		select {
		case e := <-received:
			got = append(got, e)
		case <-time.After(5 * time.Second):
			t.Fatalf("timed out waiting for event %d", i)
		}
	}

	assert.Equal(t, EventTypeMessageAppended, got[0].Type)
	assert.Equal(t, id, got[0].SessionID)
	assert.Equal(t, EventTypePendingChanged, got[1].Type)
	assert.True(t, *got[1].Pending)
	assert.Equal(t, EventTypeSessionRenamed, got[2].Type)
	for i, e := range got {
		assert.Equal(t, uint64(i), e.Sequence)
		assert.False(t, e.Timestamp.IsZero())
	}

	cancel()
	require.NoError(t, <-done)
	require.NoError(t, router.Close())
}

func TestSubscribeReceivesEvents(t *testing.T) {
	router, err := NewEventRouter()
	require.NoError(t, err)
	defer func() { _ = router.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	messages, err := router.Subscribe(ctx, TopicChat)
	require.NoError(t, err)

	sink := NewWatermillSink(router.Publisher, TopicChat)
	go sink.OnChange(chat.Change{Op: chat.OpSessionCreated, SessionID: "x", Index: -1})

	select {
	case msg := <-messages:
		msg.Ack()
		e, err := NewEventFromJson(msg.Payload)
		require.NoError(t, err)
		assert.Equal(t, EventTypeSessionCreated, e.Type)
		assert.Equal(t, "0", msg.Metadata.Get("sequence_number"))
		assert.NoError(t, router.LogEvents(msg))
	case <-time.After(5 * time.Second):
		t.Fatal("timed out")
	}
}
