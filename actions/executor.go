// Package actions contains one executor per action kind. Executors convert
// every channel-level fault into a failed ActionResult; they never surface a
// raw error to the runner.
package actions

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/chainwork/chainwork/chain"
	"github.com/chainwork/chainwork/execution"
)

// Executor runs one resolved action config and reports the outcome.
type Executor interface {
	Type() chain.ActionType
	Execute(ctx context.Context, cfg chain.ActionConfig) execution.ActionResult
}

// Registry maps action types to their executors.
type Registry struct {
	mu        sync.RWMutex
	executors map[chain.ActionType]Executor
}

func NewRegistry(executors ...Executor) *Registry {
	r := &Registry{executors: map[chain.ActionType]Executor{}}
	for _, e := range executors {
		r.Register(e)
	}
	return r
}

func (r *Registry) Register(e Executor) {
	if e == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.executors[e.Type()] = e
}

func (r *Registry) Get(t chain.ActionType) (Executor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.executors[t]
	return e, ok
}

func (r *Registry) Types() []chain.ActionType {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]chain.ActionType, 0, len(r.executors))
	for t := range r.executors {
		out = append(out, t)
	}
	sort.Slice(out, func(i, k int) bool { return out[i] < out[k] })
	return out
}

func failure(t chain.ActionType, format string, args ...any) execution.ActionResult {
	return execution.ActionResult{
		ActionType: t,
		Success:    false,
		Error:      fmt.Sprintf(format, args...),
	}
}

func wrongConfig(t chain.ActionType, cfg chain.ActionConfig) execution.ActionResult {
	return failure(t, "unexpected config type %T", cfg)
}
