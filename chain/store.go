package chain

import (
	"context"
	"errors"
)

var (
	ErrNotFound = errors.New("chain: not found")
	ErrConflict = errors.New("chain: conflict")
)

// Store is the chain repository the engine depends on. Implementations must
// treat routing tokens as unique across chains.
type Store interface {
	Save(ctx context.Context, c Chain) error
	Get(ctx context.Context, id string) (Chain, error)
	Delete(ctx context.Context, id string) error
	ListByOwner(ctx context.Context, ownerID string) ([]Chain, error)
	GetByRoutingToken(ctx context.Context, token string) (Chain, error)
	ListActiveScheduled(ctx context.Context) ([]Chain, error)
	Close() error
}
