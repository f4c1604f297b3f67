// Package worker consumes queued RunRequests and drives them through the
// execution runner. Each delivery is handled independently; runs for
// different chains proceed concurrently up to the worker's capacity.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/chainwork/chainwork/engine"
	"github.com/chainwork/chainwork/execution"
	"github.com/chainwork/chainwork/runtime/queue"
)

// Runner is the slice of the engine the worker needs.
type Runner interface {
	Run(ctx context.Context, req execution.RunRequest) (execution.Record, error)
}

type Config struct {
	ConsumerID   string
	Capacity     int
	PollInterval time.Duration
	ClaimBlock   time.Duration
}

func (c Config) normalize() Config {
	if strings.TrimSpace(c.ConsumerID) == "" {
		c.ConsumerID = "runner-" + uuid.NewString()
	}
	if c.Capacity <= 0 {
		c.Capacity = 4
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 200 * time.Millisecond
	}
	if c.ClaimBlock < 0 {
		c.ClaimBlock = 0
	}
	return c
}

type Worker struct {
	cfg    Config
	queue  queue.Queue
	runner Runner

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	done    chan struct{}
}

func New(cfg Config, q queue.Queue, runner Runner) (*Worker, error) {
	if q == nil {
		return nil, fmt.Errorf("queue is required")
	}
	if runner == nil {
		return nil, fmt.Errorf("runner is required")
	}
	return &Worker{cfg: cfg.normalize(), queue: q, runner: runner}, nil
}

// Start claims and processes deliveries until the context is canceled or
// Stop is called. It blocks; run it on its own goroutine.
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return fmt.Errorf("worker already started")
	}
	runCtx, cancel := context.WithCancel(ctx)
	w.started = true
	w.cancel = cancel
	w.done = make(chan struct{})
	done := w.done
	w.mu.Unlock()

	defer func() {
		cancel()
		w.mu.Lock()
		w.started = false
		w.cancel = nil
		if w.done == done {
			close(done)
			w.done = nil
		}
		w.mu.Unlock()
	}()

	var inflight sync.WaitGroup
	defer inflight.Wait()

	for {
		if err := runCtx.Err(); err != nil {
			return err
		}
		deliveries, err := w.queue.Claim(runCtx, w.cfg.ConsumerID, w.cfg.ClaimBlock, w.cfg.Capacity)
		if err != nil {
			if runCtx.Err() != nil {
				return runCtx.Err()
			}
			log.Printf("[worker] claim failed: %v", err)
			select {
			case <-runCtx.Done():
				return runCtx.Err()
			case <-time.After(w.cfg.PollInterval):
			}
			continue
		}
		if len(deliveries) == 0 {
			select {
			case <-runCtx.Done():
				return runCtx.Err()
			case <-time.After(w.cfg.PollInterval):
			}
			continue
		}
		for _, delivery := range deliveries {
			inflight.Add(1)
			go func(d queue.Delivery) {
				defer inflight.Done()
				w.handleDelivery(runCtx, d)
			}(delivery)
		}
	}
}

func (w *Worker) Stop(ctx context.Context) error {
	if w == nil {
		return nil
	}
	w.mu.Lock()
	cancel := w.cancel
	done := w.done
	w.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	if done == nil {
		return nil
	}
	if ctx == nil {
		<-done
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Worker) handleDelivery(ctx context.Context, delivery queue.Delivery) {
	record, err := w.runner.Run(ctx, delivery.Task.RunRequest())
	switch {
	case err == nil:
		log.Printf("[worker] chain %s execution %s finished %s", record.ChainID, record.ID, record.Status)
		_ = w.queue.Ack(ctx, w.cfg.ConsumerID, delivery.ID)
	case errors.Is(err, engine.ErrNotFound):
		// Chain deleted after enqueue. Nothing to run against.
		log.Printf("[worker] dropping run for chain %s: %v", delivery.Task.ChainID, err)
		_ = w.queue.Ack(ctx, w.cfg.ConsumerID, delivery.ID)
	default:
		log.Printf("[worker] run for chain %s failed: %v", delivery.Task.ChainID, err)
		if _, dlqErr := w.queue.DeadLetter(ctx, delivery, err.Error()); dlqErr != nil {
			log.Printf("[worker] dead-letter failed: %v", dlqErr)
		}
	}
}
