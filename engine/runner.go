package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/chainwork/chainwork/actions"
	"github.com/chainwork/chainwork/chain"
	"github.com/chainwork/chainwork/event"
	"github.com/chainwork/chainwork/execution"
	"github.com/chainwork/chainwork/ledger"
	"github.com/chainwork/chainwork/template"
)

// Runner executes one chain run end to end: it walks the action list in
// order, interpolating each config against the accumulated context, stops at
// the first failed action, charges the owner on full success, and persists
// exactly one terminal execution record.
type Runner struct {
	chains     chain.Store
	executions execution.Store
	ledger     *ledger.Ledger
	registry   *actions.Registry
	observer   event.Sink
	now        func() time.Time
}

type RunnerOption func(*Runner)

func WithObserver(observer event.Sink) RunnerOption {
	return func(r *Runner) {
		if observer != nil {
			r.observer = observer
		}
	}
}

func WithClock(now func() time.Time) RunnerOption {
	return func(r *Runner) {
		if now != nil {
			r.now = now
		}
	}
}

func NewRunner(chains chain.Store, executions execution.Store, billing *ledger.Ledger, registry *actions.Registry, opts ...RunnerOption) (*Runner, error) {
	if chains == nil {
		return nil, fmt.Errorf("chain store is required")
	}
	if executions == nil {
		return nil, fmt.Errorf("execution store is required")
	}
	if billing == nil {
		return nil, fmt.Errorf("ledger is required")
	}
	if registry == nil {
		return nil, fmt.Errorf("action registry is required")
	}
	r := &Runner{
		chains:     chains,
		executions: executions,
		ledger:     billing,
		registry:   registry,
		observer:   event.NoopSink{},
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Run consumes one RunRequest and returns the terminal execution record.
// Action failures do not produce an error; they are recorded on the failed
// record. An error is returned only when the chain cannot be resolved or the
// record cannot be persisted.
func (r *Runner) Run(ctx context.Context, req execution.RunRequest) (execution.Record, error) {
	c, err := r.chains.Get(ctx, req.ChainID)
	if err != nil {
		if errors.Is(err, chain.ErrNotFound) {
			return execution.Record{}, fmt.Errorf("%w: chain %q", ErrNotFound, req.ChainID)
		}
		return execution.Record{}, fmt.Errorf("failed to load chain %q: %w", req.ChainID, err)
	}

	now := r.now().UTC()
	record := execution.Record{
		ID:          uuid.NewString(),
		ChainID:     c.ID,
		Status:      execution.StatusPending,
		TriggerData: req.TriggerData,
		CreatedAt:   now,
	}
	if err := r.executions.Save(ctx, record); err != nil {
		return execution.Record{}, fmt.Errorf("failed to create execution record: %w", err)
	}

	startedAt := r.now().UTC()
	record.Status = execution.StatusRunning
	record.StartedAt = &startedAt
	if err := r.executions.Save(ctx, record); err != nil {
		return execution.Record{}, fmt.Errorf("failed to mark execution running: %w", err)
	}
	r.emit(ctx, event.Event{
		ExecutionID: record.ID,
		ChainID:     c.ID,
		Kind:        event.KindRun,
		Status:      event.StatusStarted,
		Name:        c.Name,
	})

	record = r.runActions(ctx, c, record)

	if record.Status == execution.StatusSuccess {
		record = r.charge(ctx, c, record)
	}

	completedAt := r.now().UTC()
	record.CompletedAt = &completedAt
	if err := r.executions.Save(ctx, record); err != nil {
		return execution.Record{}, fmt.Errorf("failed to persist execution record: %w", err)
	}

	status := event.StatusCompleted
	if record.Status == execution.StatusFailed {
		status = event.StatusFailed
	}
	r.emit(ctx, event.Event{
		ExecutionID: record.ID,
		ChainID:     c.ID,
		Kind:        event.KindRun,
		Status:      status,
		Name:        c.Name,
		Error:       record.Result.Summary,
		Attributes:  map[string]any{"charged": record.Charged, "actions": len(record.Result.Actions)},
	})
	return record, nil
}

// runActions walks the chain's actions strictly in order. Action N+1 never
// starts before N's result is recorded, since its config may reference
// {{action.N.*}}.
func (r *Runner) runActions(ctx context.Context, c chain.Chain, record execution.Record) execution.Record {
	for i, action := range c.Actions {
		tmplCtx := template.Context{
			Trigger: record.TriggerData,
			Actions: record.Result.Actions,
		}
		resolvedConfig, unresolved := template.ResolveConfig(action.Config, tmplCtx)

		result := r.executeAction(ctx, chain.Action{Type: action.Type, Config: resolvedConfig})
		result.Unresolved = unresolved
		record.Result.Actions = append(record.Result.Actions, result)

		status := event.StatusCompleted
		if !result.Success {
			status = event.StatusFailed
		}
		r.emit(ctx, event.Event{
			ExecutionID: record.ID,
			ChainID:     c.ID,
			Kind:        event.KindAction,
			Status:      status,
			Name:        string(action.Type),
			Error:       result.Error,
			Attributes:  map[string]any{"index": i},
		})

		if !result.Success {
			record.Status = execution.StatusFailed
			record.Result.Summary = fmt.Sprintf("action %d (%s) failed: %s", i, action.Type, result.Error)
			return record
		}
	}
	record.Status = execution.StatusSuccess
	return record
}

func (r *Runner) executeAction(ctx context.Context, action chain.Action) execution.ActionResult {
	cfg, err := chain.ParseConfig(action)
	if err != nil {
		return execution.ActionResult{
			ActionType: action.Type,
			Success:    false,
			Error:      fmt.Sprintf("invalid action config: %v", err),
		}
	}
	executor, ok := r.registry.Get(action.Type)
	if !ok {
		return execution.ActionResult{
			ActionType: action.Type,
			Success:    false,
			Error:      fmt.Sprintf("no executor registered for %q", action.Type),
		}
	}
	return executor.Execute(ctx, cfg)
}

// charge debits the owner for a successful run. Insufficient funds leaves
// the run successful but uncharged; a ledger fault does the same so the
// audit trail always gets its terminal record.
func (r *Runner) charge(ctx context.Context, c chain.Chain, record execution.Record) execution.Record {
	description := "Execution of chain: " + c.Name
	applied, err := r.ledger.Charge(ctx, c.OwnerID, c.ExecutionCost, description, record.ID)
	if err != nil {
		record.Result.Summary = fmt.Sprintf("charge failed: %v", err)
		r.emit(ctx, event.Event{
			ExecutionID: record.ID,
			ChainID:     c.ID,
			Kind:        event.KindCharge,
			Status:      event.StatusFailed,
			Error:       err.Error(),
		})
		return record
	}
	record.Charged = applied
	if applied {
		record.Cost = c.ExecutionCost
		r.emit(ctx, event.Event{
			ExecutionID: record.ID,
			ChainID:     c.ID,
			Kind:        event.KindCharge,
			Status:      event.StatusCompleted,
			Attributes:  map[string]any{"amount": c.ExecutionCost},
		})
		return record
	}
	record.Result.Summary = "insufficient balance to charge for execution"
	r.emit(ctx, event.Event{
		ExecutionID: record.ID,
		ChainID:     c.ID,
		Kind:        event.KindCharge,
		Status:      event.StatusFailed,
		Error:       "insufficient balance",
		Attributes:  map[string]any{"amount": c.ExecutionCost},
	})
	return record
}

func (r *Runner) emit(ctx context.Context, e event.Event) {
	if r == nil || r.observer == nil {
		return
	}
	e.Normalize()
	_ = r.observer.Emit(ctx, e)
}
