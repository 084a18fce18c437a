package session

import (
	"context"

	"github.com/pkg/errors"
)

// Durable storage keys.
const (
	KeyToken    = "token"
	KeyRole     = "userRole"
	KeyUsername = "username"
)

var Keys = []string{KeyToken, KeyRole, KeyUsername}

// ErrNoItem is returned by Storage.GetItem for a key that was never set or was removed.
var ErrNoItem = errors.New("storage: no such item")

// Storage is the durable key/value storage of one client (one browser profile).
// It outlives tab sessions and server restarts, depending on the backend.
type Storage interface {
	GetItem(ctx context.Context, key string) (string, error)
	SetItem(ctx context.Context, key, value string) error
	RemoveItem(ctx context.Context, key string) error
}

// Opener returns the durable storage of a client.
type Opener func(clientID string) Storage
