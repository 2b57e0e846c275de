package orchestrator

import (
	"context"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

func (o *Orchestrator) NewSession(ctx context.Context) string {
	return o.store.CreateSession(ctx)
}

func (o *Orchestrator) SelectSession(ctx context.Context, id string) error {
	if _, ok := o.store.Session(id); !ok {
		return errors.Wrapf(ErrSessionNotFound, "session %q", id)
	}
	o.store.SetActiveSession(ctx, id)
	return nil
}

// DeleteSession removes a session and makes sure some session is active afterwards.
func (o *Orchestrator) DeleteSession(ctx context.Context, id string) error {
	if !o.store.DeleteSession(ctx, id) {
		return errors.Wrapf(ErrSessionNotFound, "session %q", id)
	}
	o.EnsureActiveSession(ctx)
	return nil
}

func (o *Orchestrator) ResetActiveSession(ctx context.Context) error {
	if !o.store.ResetActiveSession(ctx) {
		return ErrNoActiveSession
	}
	return nil
}

func (o *Orchestrator) ClearAllSessions(ctx context.Context) string {
	return o.store.ClearAllSessions(ctx)
}

// Purge wipes the persisted state and starts over with one fresh session.
func (o *Orchestrator) Purge(ctx context.Context) string {
	o.store.Purge(ctx)
	log.Info().Msg("chat state purged")
	return o.EnsureActiveSession(ctx)
}

// SelectModel switches the active model and starts a new session for it.
func (o *Orchestrator) SelectModel(ctx context.Context, modelID string) (string, error) {
	if !o.registry.Contains(modelID) {
		return "", errors.Wrapf(ErrUnknownModel, "model %q", modelID)
	}
	o.store.SetActiveModel(ctx, modelID)
	return o.store.CreateSession(ctx), nil
}

// NextModel selects the model listed after the active one.
func (o *Orchestrator) NextModel(ctx context.Context) (string, error) {
	next := o.registry.Next(o.store.ActiveModel())
	return o.SelectModel(ctx, next.ID)
}
