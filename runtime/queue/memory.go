package queue

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Memory is the in-process Queue used when no broker is configured, and in
// tests. Claimed tasks stay pending until acked or dead-lettered.
type Memory struct {
	mu      sync.Mutex
	ready   []Delivery
	pending map[string]Delivery
	dlq     []Delivery
	wake    chan struct{}
	closed  bool
}

func NewMemory() *Memory {
	return &Memory{
		pending: map[string]Delivery{},
		wake:    make(chan struct{}, 1),
	}
}

func (m *Memory) Enqueue(ctx context.Context, task Task) (string, error) {
	_ = ctx
	if task.ChainID == "" {
		return "", fmt.Errorf("chain id is required")
	}
	if task.EnqueuedAt.IsZero() {
		task.EnqueuedAt = time.Now().UTC()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return "", fmt.Errorf("queue is closed")
	}
	id := uuid.NewString()
	m.ready = append(m.ready, Delivery{ID: id, Stream: "runs", Task: task})
	select {
	case m.wake <- struct{}{}:
	default:
	}
	return id, nil
}

func (m *Memory) Claim(ctx context.Context, consumer string, block time.Duration, count int) ([]Delivery, error) {
	if strings.TrimSpace(consumer) == "" {
		return nil, fmt.Errorf("consumer is required")
	}
	if count <= 0 {
		count = 1
	}
	deadline := time.Now().Add(block)
	for {
		m.mu.Lock()
		if m.closed {
			m.mu.Unlock()
			return nil, fmt.Errorf("queue is closed")
		}
		if len(m.ready) > 0 {
			n := count
			if n > len(m.ready) {
				n = len(m.ready)
			}
			out := make([]Delivery, 0, n)
			now := time.Now().UTC()
			for _, d := range m.ready[:n] {
				d.Received = now
				m.pending[d.ID] = d
				out = append(out, d)
			}
			m.ready = append([]Delivery(nil), m.ready[n:]...)
			m.mu.Unlock()
			return out, nil
		}
		m.mu.Unlock()

		if block <= 0 {
			return []Delivery{}, nil
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return []Delivery{}, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-m.wake:
		case <-time.After(remaining):
			return []Delivery{}, nil
		}
	}
}

func (m *Memory) Ack(ctx context.Context, consumer string, messageIDs ...string) error {
	_ = ctx
	_ = consumer
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range messageIDs {
		delete(m.pending, id)
	}
	return nil
}

func (m *Memory) DeadLetter(ctx context.Context, delivery Delivery, reason string) (string, error) {
	_ = ctx
	m.mu.Lock()
	defer m.mu.Unlock()
	if delivery.Task.Metadata == nil {
		delivery.Task.Metadata = map[string]any{}
	}
	delivery.Task.Metadata["dead_letter_reason"] = reason
	delete(m.pending, delivery.ID)
	id := uuid.NewString()
	m.dlq = append(m.dlq, Delivery{ID: id, Stream: "runs:dlq", Task: delivery.Task, Received: time.Now().UTC()})
	return id, nil
}

func (m *Memory) ListDLQ(ctx context.Context, limit int) ([]Delivery, error) {
	_ = ctx
	if limit <= 0 {
		limit = 50
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Delivery, 0, limit)
	for i := len(m.dlq) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.dlq[i])
	}
	return out, nil
}

func (m *Memory) Stats(ctx context.Context) (Stats, error) {
	_ = ctx
	m.mu.Lock()
	defer m.mu.Unlock()
	return Stats{
		StreamLength: int64(len(m.ready)),
		DLQLength:    int64(len(m.dlq)),
		Pending:      int64(len(m.pending)),
	}, nil
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

var _ Queue = (*Memory)(nil)
