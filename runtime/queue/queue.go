// Package queue carries RunRequests from trigger dispatch to the worker
// that executes them.
package queue

import (
	"context"
	"time"

	"github.com/chainwork/chainwork/execution"
)

// Task is the queued envelope around one RunRequest.
type Task struct {
	ChainID     string         `json:"chainId"`
	TriggerData map[string]any `json:"triggerData,omitempty"`
	RequestedAt time.Time      `json:"requestedAt"`
	EnqueuedAt  time.Time      `json:"enqueuedAt"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

func FromRunRequest(req execution.RunRequest) Task {
	return Task{
		ChainID:     req.ChainID,
		TriggerData: req.TriggerData,
		RequestedAt: req.RequestedAt,
	}
}

func (t Task) RunRequest() execution.RunRequest {
	return execution.RunRequest{
		ChainID:     t.ChainID,
		TriggerData: t.TriggerData,
		RequestedAt: t.RequestedAt,
	}
}

// Delivery is one claimed task awaiting an Ack or DeadLetter.
type Delivery struct {
	ID       string    `json:"id"`
	Stream   string    `json:"stream"`
	Task     Task      `json:"task"`
	Received time.Time `json:"received"`
}

type Stats struct {
	StreamLength int64 `json:"streamLength"`
	DLQLength    int64 `json:"dlqLength"`
	Pending      int64 `json:"pending"`
}

type Queue interface {
	Enqueue(ctx context.Context, task Task) (string, error)
	Claim(ctx context.Context, consumer string, block time.Duration, count int) ([]Delivery, error)
	Ack(ctx context.Context, consumer string, messageIDs ...string) error
	DeadLetter(ctx context.Context, delivery Delivery, reason string) (string, error)
	ListDLQ(ctx context.Context, limit int) ([]Delivery, error)
	Stats(ctx context.Context) (Stats, error)
	Close() error
}
