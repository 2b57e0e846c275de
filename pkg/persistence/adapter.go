package persistence

import (
	"bytes"
	"context"

	"github.com/go-go-golems/angela/pkg/chat"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Adapter loads and saves the whole chat state as one snapshot under StorageKey.
// It never returns errors: failures are logged and the in-memory state stays authoritative.
type Adapter struct {
	backend      Backend
	codec        Codec
	key          string
	defaultModel string
}

var _ chat.Saver = (*Adapter)(nil)

type AdapterOption func(*Adapter)

func WithCodec(codec Codec) AdapterOption {
	return func(a *Adapter) {
		a.codec = codec
	}
}

func WithKey(key string) AdapterOption {
	return func(a *Adapter) {
		a.key = key
	}
}

// WithDefaultModel sets the model filled into snapshots that carry none.
func WithDefaultModel(model string) AdapterOption {
	return func(a *Adapter) {
		if model != "" {
			a.defaultModel = model
		}
	}
}

func NewAdapter(backend Backend, options ...AdapterOption) *Adapter {
	ret := &Adapter{
		backend:      backend,
		codec:        JSONCodec{},
		key:          StorageKey,
		defaultModel: chat.DefaultModel,
	}
	for _, option := range options {
		option(ret)
	}
	return ret
}

// Load returns the persisted state, repaired, or false when there is nothing usable.
func (a *Adapter) Load(ctx context.Context) (*chat.State, bool) {
	b, err := a.backend.Read(ctx, a.key)
	if err != nil {
		if !errors.Is(err, ErrKeyNotFound) {
			log.Warn().Err(err).Str("key", a.key).Msg("could not read chat snapshot")
		}
		return nil, false
	}
	if len(bytes.TrimSpace(b)) == 0 {
		log.Warn().Str("key", a.key).Msg("chat snapshot is empty")
		return nil, false
	}

	state := &chat.State{}
	if err := a.codec.Unmarshal(b, state); err != nil {
		log.Warn().Err(err).Str("key", a.key).Msg("could not decode chat snapshot")
		return nil, false
	}
	if err := state.Repair(a.defaultModel); err != nil {
		log.Warn().Err(err).Str("key", a.key).Msg("chat snapshot is not a valid state")
		return nil, false
	}

	log.Debug().
		Str("key", a.key).
		Int("sessions", len(state.Sessions)).
		Str("active_session_id", state.ActiveSessionID).
		Msg("loaded chat snapshot")
	return state, true
}

func (a *Adapter) Save(ctx context.Context, state *chat.State) {
	if state == nil {
		return
	}
	b, err := a.codec.Marshal(state)
	if err != nil {
		log.Warn().Err(err).Str("key", a.key).Msg("could not encode chat snapshot")
		return
	}
	if err := a.backend.Write(ctx, a.key, b); err != nil {
		log.Warn().Err(err).Str("key", a.key).Msg("could not write chat snapshot")
		return
	}
	log.Trace().Str("key", a.key).Int("bytes", len(b)).Msg("saved chat snapshot")
}

func (a *Adapter) Clear(ctx context.Context) {
	if err := a.backend.Delete(ctx, a.key); err != nil {
		log.Warn().Err(err).Str("key", a.key).Msg("could not remove chat snapshot")
	}
}

// LoadOrDefault returns the persisted state or a fresh default one.
func (a *Adapter) LoadOrDefault(ctx context.Context) *chat.State {
	if state, ok := a.Load(ctx); ok {
		return state
	}
	return chat.NewDefaultState(a.defaultModel)
}
