package tokenstore

import (
	"context"
	"errors"
)

// Storage keys, fixed by the platform contract.
const (
	KeyAccessToken  = "access_token"
	KeyRefreshToken = "refresh_token"
)

// ErrUnavailable is returned when the backing store cannot be reached.
var ErrUnavailable = errors.New("tokenstore: backend unavailable")

// Pair is the persisted token pair. Empty strings mean "not stored".
type Pair struct {
	AccessToken  string
	RefreshToken string
}

// Empty reports whether no access token is stored, i.e. the unauthenticated
// state.
func (p Pair) Empty() bool {
	return p.AccessToken == ""
}

// Store persists a token pair. Implementations must be safe for concurrent
// use.
type Store interface {
	// Load returns the stored pair. A store with nothing in it returns the
	// zero Pair and no error.
	Load(ctx context.Context) (Pair, error)
	// Save overwrites the stored pair. An empty field clears that slot.
	Save(ctx context.Context, pair Pair) error
	// Clear removes both tokens. Clearing an empty store is a no-op.
	Clear(ctx context.Context) error
}
