package orchestrator

import (
	"context"
	"strings"
	"sync"

	"github.com/go-go-golems/angela/pkg/chat"
	"github.com/go-go-golems/angela/pkg/completion"
	"github.com/go-go-golems/angela/pkg/models"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const (
	DefaultFallbackReply       = "❌ Gagal menjawab."
	DefaultFallbackResendReply = "❌ Gagal menjawab ulang."
)

// PendingListener is told when the orchestrator starts waiting for its first in-flight
// completion and when the last one has finished.
type PendingListener interface {
	OnPendingChanged(pending bool)
}

type PendingListenerFunc func(pending bool)

func (f PendingListenerFunc) OnPendingChanged(pending bool) {
	f(pending)
}

// Orchestrator runs the send and edit-and-resend workflows on top of a chat.Store and a
// completion.Client. Completion failures never surface as errors: a fallback reply is
// appended instead.
type Orchestrator struct {
	store    *chat.Store
	client   completion.Client
	registry *models.Registry

	fallbackReply       string
	fallbackResendReply string

	inputMu sync.Mutex
	input   string

	pendingMu        sync.Mutex
	pending          int
	pendingListeners []registeredPendingListener
	nextListenerID   int
}

type registeredPendingListener struct {
	id       int
	listener PendingListener
}

type Option func(*Orchestrator)

func WithRegistry(registry *models.Registry) Option {
	return func(o *Orchestrator) {
		o.registry = registry
	}
}

func WithFallbackReply(reply string) Option {
	return func(o *Orchestrator) {
		if reply != "" {
			o.fallbackReply = reply
		}
	}
}

func WithFallbackResendReply(reply string) Option {
	return func(o *Orchestrator) {
		if reply != "" {
			o.fallbackResendReply = reply
		}
	}
}

func WithPendingListener(listener PendingListener) Option {
	return func(o *Orchestrator) {
		o.nextListenerID++
		o.pendingListeners = append(o.pendingListeners, registeredPendingListener{id: o.nextListenerID, listener: listener})
	}
}

func New(store *chat.Store, client completion.Client, options ...Option) *Orchestrator {
	ret := &Orchestrator{
		store:               store,
		client:              client,
		registry:            models.NewDefaultRegistry(),
		fallbackReply:       DefaultFallbackReply,
		fallbackResendReply: DefaultFallbackResendReply,
	}
	for _, option := range options {
		option(ret)
	}
	return ret
}

func (o *Orchestrator) Store() *chat.Store {
	return o.store
}

func (o *Orchestrator) Registry() *models.Registry {
	return o.registry
}

// EnsureActiveSession creates a session when none is active and returns the active id.
func (o *Orchestrator) EnsureActiveSession(ctx context.Context) string {
	if session, ok := o.store.ActiveSession(); ok {
		return session.ID
	}
	id := o.store.CreateSession(ctx)
	log.Debug().Str("session_id", id).Msg("created session because none was active")
	return id
}

func (o *Orchestrator) SetInput(text string) {
	o.inputMu.Lock()
	defer o.inputMu.Unlock()
	o.input = text
}

func (o *Orchestrator) Input() string {
	o.inputMu.Lock()
	defer o.inputMu.Unlock()
	return o.input
}

// Submit sends the current input buffer.
func (o *Orchestrator) Submit(ctx context.Context) (string, bool) {
	return o.Send(ctx, o.Input())
}

// Send appends text as a user message to the active session, asks for a reply and appends
// it (or the fallback reply) to the same session, even if another session became active in
// the meantime. It returns the session id and false when nothing was sent.
func (o *Orchestrator) Send(ctx context.Context, text string) (string, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", false
	}
	sessionID := o.store.ActiveSessionID()
	if sessionID == "" {
		log.Debug().Msg("send ignored, no active session")
		return "", false
	}

	storeCtx := context.WithoutCancel(ctx)
	index, ok := o.store.AppendMessage(storeCtx, sessionID, chat.NewUserMessage(text))
	if !ok {
		log.Debug().Str("session_id", sessionID).Msg("send ignored, active session does not exist")
		return "", false
	}
	if index == 0 {
		o.store.RenameSession(storeCtx, sessionID, chat.TitlePreview(text))
	}
	o.SetInput("")

	o.complete(ctx, sessionID, text, o.fallbackReply)
	return sessionID, true
}

// EditAndResend rewrites the user message at index in the active session and appends a
// fresh reply to the end of the session. Later messages are kept. The content is stored as
// given; only blank content is rejected.
func (o *Orchestrator) EditAndResend(ctx context.Context, index int, content string) (string, error) {
	if strings.TrimSpace(content) == "" {
		return "", errors.Wrap(ErrInvalidEdit, "empty content")
	}

	session, ok := o.store.ActiveSession()
	if !ok {
		return "", ErrNoActiveSession
	}
	if index < 0 || index >= len(session.Messages) {
		return "", errors.Wrapf(ErrInvalidEdit, "index %d out of range", index)
	}
	if session.Messages[index].Role != chat.RoleUser {
		return "", errors.Wrapf(ErrInvalidEdit, "message %d is not a user message", index)
	}

	if !o.store.EditMessage(context.WithoutCancel(ctx), session.ID, index, content) {
		return "", errors.Wrapf(ErrInvalidEdit, "message %d no longer exists", index)
	}

	o.complete(ctx, session.ID, content, o.fallbackResendReply)
	return session.ID, nil
}

func (o *Orchestrator) complete(ctx context.Context, sessionID string, prompt string, fallback string) {
	o.enterPending()
	defer o.leavePending()

	modelID := o.store.ActiveModel()
	reply, err := o.client.Complete(ctx, prompt, modelID)
	if err != nil {
		log.Warn().Err(err).Str("session_id", sessionID).Str("model", modelID).Msg("completion failed")
		reply = fallback
	}

	o.store.AppendMessage(context.WithoutCancel(ctx), sessionID, chat.NewAIMessage(reply))
}

// Pending is true while at least one completion is in flight.
func (o *Orchestrator) Pending() bool {
	o.pendingMu.Lock()
	defer o.pendingMu.Unlock()
	return o.pending > 0
}

// AddPendingListener registers listener and returns a function that unregisters it.
func (o *Orchestrator) AddPendingListener(listener PendingListener) func() {
	o.pendingMu.Lock()
	defer o.pendingMu.Unlock()
	o.nextListenerID++
	id := o.nextListenerID
	o.pendingListeners = append(o.pendingListeners, registeredPendingListener{id: id, listener: listener})

	return func() {
		o.pendingMu.Lock()
		defer o.pendingMu.Unlock()
		for i, l := range o.pendingListeners {
			if l.id == id {
				o.pendingListeners = append(o.pendingListeners[:i], o.pendingListeners[i+1:]...)
				return
			}
		}
	}
}

func (o *Orchestrator) enterPending() {
	o.pendingMu.Lock()
	o.pending++
	changed := o.pending == 1
	listeners := append([]registeredPendingListener(nil), o.pendingListeners...)
	o.pendingMu.Unlock()

	if changed {
		for _, l := range listeners {
			l.listener.OnPendingChanged(true)
		}
	}
}

func (o *Orchestrator) leavePending() {
	o.pendingMu.Lock()
	o.pending--
	changed := o.pending == 0
	listeners := append([]registeredPendingListener(nil), o.pendingListeners...)
	o.pendingMu.Unlock()

	if changed {
		for _, l := range listeners {
			l.listener.OnPendingChanged(false)
		}
	}
}
