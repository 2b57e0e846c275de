package orchestrator

import "github.com/pkg/errors"

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrNoActiveSession = errors.New("no active session")
	ErrUnknownModel    = errors.New("unknown model")
	ErrInvalidEdit     = errors.New("invalid edit")
)
