package event

import "time"

type Kind string

type Status string

const (
	KindRun    Kind = "run"
	KindAction Kind = "action"
	KindCharge Kind = "charge"
	KindCustom Kind = "custom"
)

const (
	StatusStarted   Status = "started"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Event is one observable moment in the life of a chain run.
type Event struct {
	ID          string         `json:"id,omitempty"`
	Timestamp   time.Time      `json:"timestamp"`
	ExecutionID string         `json:"executionId,omitempty"`
	ChainID     string         `json:"chainId,omitempty"`
	Kind        Kind           `json:"kind"`
	Status      Status         `json:"status,omitempty"`
	Name        string         `json:"name,omitempty"`
	Error       string         `json:"error,omitempty"`
	Attributes  map[string]any `json:"attributes,omitempty"`
}

func (e *Event) Normalize() {
	if e == nil {
		return
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	if e.Kind == "" {
		e.Kind = KindCustom
	}
	if e.Attributes == nil {
		e.Attributes = map[string]any{}
	}
}
