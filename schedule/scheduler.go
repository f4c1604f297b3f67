// Package schedule drives schedule-type triggers. A minute-resolution tick
// scans active scheduled chains and enqueues at most one RunRequest per
// chain per matching period. The last-fired bookkeeping lives in process
// memory: after a restart a period at the boundary may fire twice or not at
// all, which is accepted for a single-node engine rather than masked.
package schedule

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	robcron "github.com/robfig/cron/v3"

	"github.com/chainwork/chainwork/chain"
	"github.com/chainwork/chainwork/execution"
)

// EnqueueFunc hands a due RunRequest to the execution side. The scheduler
// itself never executes actions; the tick loop must stay non-blocking.
type EnqueueFunc func(ctx context.Context, req execution.RunRequest) error

type Scheduler struct {
	chains  chain.Store
	enqueue EnqueueFunc
	cron    *robcron.Cron
	now     func() time.Time

	mu        sync.Mutex
	lastFired map[string]string
	started   bool
}

type Option func(*Scheduler)

func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		if now != nil {
			s.now = now
		}
	}
}

func New(chains chain.Store, enqueue EnqueueFunc, opts ...Option) (*Scheduler, error) {
	if chains == nil {
		return nil, fmt.Errorf("chain store is required")
	}
	if enqueue == nil {
		return nil, fmt.Errorf("enqueue func is required")
	}
	s := &Scheduler{
		chains:    chains,
		enqueue:   enqueue,
		cron:      robcron.New(),
		now:       time.Now,
		lastFired: map[string]string{},
	}
	for _, opt := range opts {
		opt(s)
	}
	if _, err := s.cron.AddFunc("* * * * *", func() {
		s.Tick(context.Background(), s.now())
	}); err != nil {
		return nil, fmt.Errorf("failed to register scheduler tick: %w", err)
	}
	return s, nil
}

// Start begins ticking. Non-blocking.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		s.cron.Start()
		s.started = true
	}
}

// Stop halts the tick loop.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		s.cron.Stop()
		s.started = false
	}
}

// Tick evaluates every active scheduled chain against the given instant and
// enqueues the runs whose period is due and not yet fired.
func (s *Scheduler) Tick(ctx context.Context, now time.Time) {
	now = now.UTC().Truncate(time.Minute)
	scheduled, err := s.chains.ListActiveScheduled(ctx)
	if err != nil {
		log.Printf("[scheduler] failed to list scheduled chains: %v", err)
		return
	}
	for _, c := range scheduled {
		spec, err := chain.ParseScheduleSpec(c.TriggerConfig)
		if err != nil {
			log.Printf("[scheduler] chain %q has invalid schedule config: %v", c.ID, err)
			continue
		}
		period, due := spec.Matches(now)
		if !due {
			continue
		}
		if !s.claim(c.ID, period) {
			continue
		}
		req := execution.RunRequest{
			ChainID:     c.ID,
			TriggerData: map[string]any{"scheduled_time": now.Format(time.RFC3339)},
			RequestedAt: now,
		}
		if err := s.enqueue(ctx, req); err != nil {
			// Give the period back so the next tick inside it can retry.
			s.release(c.ID, period)
			log.Printf("[scheduler] failed to enqueue run for chain %q: %v", c.ID, err)
		}
	}
}

// claim marks the period as fired for the chain, returning false when it
// already was.
func (s *Scheduler) claim(chainID, period string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastFired[chainID] == period {
		return false
	}
	s.lastFired[chainID] = period
	return true
}

func (s *Scheduler) release(chainID, period string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastFired[chainID] == period {
		delete(s.lastFired, chainID)
	}
}
