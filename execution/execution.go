package execution

import (
	"time"

	"github.com/chainwork/chainwork/chain"
)

type Status string

const (
	StatusPending Status = "pending"
	StatusRunning Status = "running"
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// Terminal reports whether a status can no longer change.
func (s Status) Terminal() bool {
	return s == StatusSuccess || s == StatusFailed
}

// RunRequest asks the engine to execute one chain. It is ephemeral: whoever
// fires a trigger owns the request until the runner consumes it.
type RunRequest struct {
	ChainID     string         `json:"chainId"`
	TriggerData map[string]any `json:"triggerData,omitempty"`
	RequestedAt time.Time      `json:"requestedAt"`
}

// ActionResult is the recorded outcome of one action within a run. Output
// fields become addressable to later actions as {{action.N.<field>}}.
type ActionResult struct {
	ActionType chain.ActionType `json:"actionType"`
	Success    bool             `json:"success"`
	Output     map[string]any   `json:"output,omitempty"`
	Error      string           `json:"error,omitempty"`
	// Unresolved lists placeholders in this action's config that degraded
	// to empty strings during interpolation.
	Unresolved []string `json:"unresolved,omitempty"`
}

// Result is the per-run aggregate stored on the record.
type Result struct {
	Actions []ActionResult `json:"actions"`
	Summary string         `json:"summary,omitempty"`
}

// Record is the append-only audit entry for one run. It is created pending,
// moves through running to exactly one terminal status, and is immutable
// afterwards. Records are never deleted by the engine.
type Record struct {
	ID          string         `json:"id"`
	ChainID     string         `json:"chainId"`
	Status      Status         `json:"status"`
	TriggerData map[string]any `json:"triggerData,omitempty"`
	Result      Result         `json:"result"`
	Cost        float64        `json:"cost"`
	Charged     bool           `json:"charged"`
	StartedAt   *time.Time     `json:"startedAt,omitempty"`
	CompletedAt *time.Time     `json:"completedAt,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
}
