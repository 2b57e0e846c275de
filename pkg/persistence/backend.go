package persistence

import (
	"context"
	"github.com/pkg/errors"
)

// StorageKey is the single key the chat state snapshot lives under.
const StorageKey = "chat-sessions"

var ErrKeyNotFound = errors.New("key not found")

// Backend is a minimal byte-oriented key/value store. Write replaces the whole value in one
// step. Read returns ErrKeyNotFound when the key was never written or has been deleted.
type Backend interface {
	Read(ctx context.Context, key string) ([]byte, error)
	Write(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}
