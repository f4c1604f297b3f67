package chain

import (
	"fmt"
	"strings"
	"time"
)

type TriggerType string

const (
	TriggerManual   TriggerType = "manual"
	TriggerWebhook  TriggerType = "webhook"
	TriggerSchedule TriggerType = "schedule"
)

type ActionType string

const (
	ActionHTTPRequest     ActionType = "http_request"
	ActionSendEmail       ActionType = "send_email"
	ActionTelegramMessage ActionType = "telegram_message"
)

// Chain is one user-defined workflow: a trigger plus an ordered list of
// actions. Chains are mutated only through explicit save operations; the
// execution engine treats them as read-only.
type Chain struct {
	ID            string         `json:"id"`
	OwnerID       string         `json:"ownerId"`
	Name          string         `json:"name"`
	Description   string         `json:"description,omitempty"`
	TriggerType   TriggerType    `json:"triggerType"`
	TriggerConfig map[string]any `json:"triggerConfig,omitempty"`
	Actions       []Action       `json:"actions"`
	IsActive      bool           `json:"isActive"`
	ExecutionCost float64        `json:"executionCost"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
}

// Action is one effect-producing step. Config values may contain
// {{trigger.x}} / {{action.N.y}} placeholders that are resolved per run.
// A chain update replaces the whole action list; individual actions are
// never patched in place.
type Action struct {
	Type   ActionType        `json:"type"`
	Config map[string]string `json:"config"`
}

// RoutingToken returns the webhook routing token configured on the chain,
// or "" when absent.
func (c Chain) RoutingToken() string {
	raw, ok := c.TriggerConfig["token"]
	if !ok {
		return ""
	}
	token, _ := raw.(string)
	return strings.TrimSpace(token)
}

// Validate checks the structural invariants a chain must satisfy before it
// may be persisted: a non-empty action list, parseable action configs, and a
// trigger config carrying the fields its trigger type requires.
func Validate(c Chain) error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("chain name is required")
	}
	if strings.TrimSpace(c.OwnerID) == "" {
		return fmt.Errorf("chain owner is required")
	}
	if c.ExecutionCost < 0 {
		return fmt.Errorf("execution cost must not be negative")
	}
	if len(c.Actions) == 0 {
		return fmt.Errorf("chain requires at least one action")
	}
	for i, action := range c.Actions {
		if _, err := ParseConfig(action); err != nil {
			return fmt.Errorf("action %d: %w", i, err)
		}
	}
	switch c.TriggerType {
	case TriggerManual:
	case TriggerWebhook:
		if c.RoutingToken() == "" {
			return fmt.Errorf("webhook trigger requires a routing token")
		}
	case TriggerSchedule:
		if err := validateScheduleConfig(c.TriggerConfig); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown trigger type %q", c.TriggerType)
	}
	return nil
}
