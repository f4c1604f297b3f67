package execution

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("execution: not found")

// Store is the append-only execution repository. ListByChain returns records
// newest first.
type Store interface {
	Save(ctx context.Context, record Record) error
	Get(ctx context.Context, id string) (Record, error)
	ListByChain(ctx context.Context, chainID string, limit int) ([]Record, error)
	Close() error
}
