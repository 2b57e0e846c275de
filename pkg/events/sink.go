package events

import (
	"encoding/json"
	"strconv"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/go-go-golems/angela/pkg/chat"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// WatermillSink publishes chat changes and pending transitions as JSON events on a topic.
// It numbers events in the order they are published.
type WatermillSink struct {
	publisher message.Publisher
	topic     string

	mu             sync.Mutex
	sequenceNumber uint64
	now            func() time.Time
}

var _ chat.ChangeListener = (*WatermillSink)(nil)

func NewWatermillSink(publisher message.Publisher, topic string) *WatermillSink {
	return &WatermillSink{
		publisher: publisher,
		topic:     topic,
		now:       time.Now,
	}
}

func (w *WatermillSink) PublishEvent(event *Event) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	event.Sequence = w.sequenceNumber
	event.Timestamp = w.now()

	payload, err := json.Marshal(event)
	if err != nil {
		return errors.Wrap(err, "could not encode event")
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set("sequence_number", strconv.FormatUint(w.sequenceNumber, 10))
	msg.Metadata.Set("event_type", string(event.Type))
	w.sequenceNumber++

	if err := w.publisher.Publish(w.topic, msg); err != nil {
		return errors.Wrapf(err, "could not publish event to %s", w.topic)
	}

	log.Trace().Str("topic", w.topic).Str("event_type", string(event.Type)).Uint64("seq", event.Sequence).Msg("published event")
	return nil
}

func (w *WatermillSink) PublishBlind(event *Event) {
	if err := w.PublishEvent(event); err != nil {
		log.Warn().Err(err).Str("event_type", string(event.Type)).Msg("failed to publish")
	}
}

func (w *WatermillSink) OnChange(change chat.Change) {
	w.PublishBlind(NewChangeEvent(change))
}

func (w *WatermillSink) OnPendingChanged(pending bool) {
	w.PublishBlind(NewPendingEvent(pending))
}
