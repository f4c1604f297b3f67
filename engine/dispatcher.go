package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chainwork/chainwork/chain"
	"github.com/chainwork/chainwork/execution"
)

// Dispatcher turns trigger firings into RunRequests. It is the only place
// that rejects dispatch attempts before a run starts: an unknown chain or
// token is ErrNotFound, a deactivated chain is ErrChainInactive. Everything
// past dispatch is absorbed into the execution record.
type Dispatcher struct {
	chains chain.Store
	now    func() time.Time
}

func NewDispatcher(chains chain.Store) (*Dispatcher, error) {
	if chains == nil {
		return nil, fmt.Errorf("chain store is required")
	}
	return &Dispatcher{chains: chains, now: time.Now}, nil
}

// Invoke fires a manual trigger for the given chain.
func (d *Dispatcher) Invoke(ctx context.Context, chainID string, triggerData map[string]any) (execution.RunRequest, error) {
	c, err := d.chains.Get(ctx, chainID)
	if err != nil {
		if errors.Is(err, chain.ErrNotFound) {
			return execution.RunRequest{}, fmt.Errorf("%w: chain %q", ErrNotFound, chainID)
		}
		return execution.RunRequest{}, fmt.Errorf("failed to load chain %q: %w", chainID, err)
	}
	if !c.IsActive {
		return execution.RunRequest{}, fmt.Errorf("%w: chain %q", ErrChainInactive, chainID)
	}
	return execution.RunRequest{
		ChainID:     c.ID,
		TriggerData: triggerData,
		RequestedAt: d.now().UTC(),
	}, nil
}

// HandleWebhook fires the chain owning the routing token. The inbound
// payload becomes the run's trigger data verbatim.
func (d *Dispatcher) HandleWebhook(ctx context.Context, token string, payload map[string]any) (execution.RunRequest, error) {
	c, err := d.chains.GetByRoutingToken(ctx, token)
	if err != nil {
		if errors.Is(err, chain.ErrNotFound) {
			return execution.RunRequest{}, fmt.Errorf("%w: routing token", ErrNotFound)
		}
		return execution.RunRequest{}, fmt.Errorf("failed to resolve routing token: %w", err)
	}
	if !c.IsActive {
		return execution.RunRequest{}, fmt.Errorf("%w: chain %q", ErrChainInactive, c.ID)
	}
	return execution.RunRequest{
		ChainID:     c.ID,
		TriggerData: payload,
		RequestedAt: d.now().UTC(),
	}, nil
}
