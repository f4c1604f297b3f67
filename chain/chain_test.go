package chain

import (
	"strings"
	"testing"
	"time"
)

func validChain() Chain {
	return Chain{
		ID:          "c1",
		OwnerID:     "user-1",
		Name:        "notify",
		TriggerType: TriggerManual,
		Actions: []Action{
			{Type: ActionHTTPRequest, Config: map[string]string{"url": "https://example.com"}},
		},
		IsActive:      true,
		ExecutionCost: 0.10,
	}
}

func TestValidateAcceptsMinimalChain(t *testing.T) {
	if err := Validate(validChain()); err != nil {
		t.Fatalf("expected valid chain, got %v", err)
	}
}

func TestValidateRejectsEmptyActions(t *testing.T) {
	c := validChain()
	c.Actions = nil
	if err := Validate(c); err == nil {
		t.Fatal("expected error for chain without actions")
	}
}

func TestValidateRejectsNegativeCost(t *testing.T) {
	c := validChain()
	c.ExecutionCost = -1
	if err := Validate(c); err == nil {
		t.Fatal("expected error for negative execution cost")
	}
}

func TestValidateRejectsInvalidActionConfig(t *testing.T) {
	c := validChain()
	c.Actions = []Action{{Type: ActionSendEmail, Config: map[string]string{"to": "a@b.c"}}}
	err := Validate(c)
	if err == nil {
		t.Fatal("expected error for incomplete email config")
	}
	if !strings.Contains(err.Error(), "action 0") {
		t.Fatalf("error should name the failing action index: %v", err)
	}
}

func TestValidateWebhookRequiresToken(t *testing.T) {
	c := validChain()
	c.TriggerType = TriggerWebhook
	if err := Validate(c); err == nil {
		t.Fatal("expected error for webhook chain without token")
	}
	c.TriggerConfig = map[string]any{"token": "tok-1"}
	if err := Validate(c); err != nil {
		t.Fatalf("expected valid webhook chain, got %v", err)
	}
}

func TestValidateScheduleRequiresParsableSpec(t *testing.T) {
	c := validChain()
	c.TriggerType = TriggerSchedule
	c.TriggerConfig = map[string]any{"cadence": "daily"}
	if err := Validate(c); err == nil {
		t.Fatal("expected error for daily schedule without time of day")
	}
	c.TriggerConfig = map[string]any{"cadence": "daily", "at": "09:30"}
	if err := Validate(c); err != nil {
		t.Fatalf("expected valid schedule chain, got %v", err)
	}
}

func TestParseConfigHTTPDefaults(t *testing.T) {
	cfg, err := ParseConfig(Action{
		Type: ActionHTTPRequest,
		Config: map[string]string{
			"url":                  "https://example.com",
			"header.Authorization": "Bearer x",
			"header.Accept":        "application/json",
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	httpCfg, ok := cfg.(HTTPRequestConfig)
	if !ok {
		t.Fatalf("unexpected config type %T", cfg)
	}
	if httpCfg.Method != "GET" {
		t.Fatalf("method should default to GET, got %q", httpCfg.Method)
	}
	if httpCfg.Headers["Authorization"] != "Bearer x" || httpCfg.Headers["Accept"] != "application/json" {
		t.Fatalf("unexpected headers: %v", httpCfg.Headers)
	}
}

func TestParseConfigRejectsUnknownType(t *testing.T) {
	if _, err := ParseConfig(Action{Type: "launch_rocket"}); err == nil {
		t.Fatal("expected error for unknown action type")
	}
}

func TestParseScheduleSpec(t *testing.T) {
	spec, err := ParseScheduleSpec(map[string]any{"cadence": "daily", "at": "07:45"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if spec.Hour != 7 || spec.Minute != 45 {
		t.Fatalf("unexpected spec: %+v", spec)
	}

	if _, err := ParseScheduleSpec(map[string]any{"cadence": "interval"}); err == nil {
		t.Fatal("expected error for interval without every_minutes")
	}
	spec, err = ParseScheduleSpec(map[string]any{"cadence": "interval", "every_minutes": float64(15)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if spec.EveryMinutes != 15 {
		t.Fatalf("unexpected spec: %+v", spec)
	}

	if _, err := ParseScheduleSpec(map[string]any{"cadence": "fortnightly"}); err == nil {
		t.Fatal("expected error for unknown cadence")
	}
}

func TestScheduleMatchesDaily(t *testing.T) {
	spec := ScheduleSpec{Cadence: CadenceDaily, Hour: 9, Minute: 30}

	at := time.Date(2026, 3, 14, 9, 30, 42, 0, time.UTC)
	period, due := spec.Matches(at)
	if !due {
		t.Fatal("expected daily schedule to match at its configured minute")
	}
	if period != "daily:2026-03-14" {
		t.Fatalf("unexpected period: %q", period)
	}

	if _, due := spec.Matches(at.Add(time.Minute)); due {
		t.Fatal("expected no match one minute later")
	}
}

func TestScheduleMatchesHourly(t *testing.T) {
	spec := ScheduleSpec{Cadence: CadenceHourly}
	period, due := spec.Matches(time.Date(2026, 3, 14, 11, 0, 0, 0, time.UTC))
	if !due || period != "hourly:2026-03-14T11" {
		t.Fatalf("unexpected match: %q %v", period, due)
	}
	if _, due := spec.Matches(time.Date(2026, 3, 14, 11, 1, 0, 0, time.UTC)); due {
		t.Fatal("expected no match off the hour")
	}
}

func TestScheduleMatchesInterval(t *testing.T) {
	spec := ScheduleSpec{Cadence: CadenceInterval, EveryMinutes: 15}

	matched := 0
	start := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	seen := map[string]bool{}
	for i := 0; i < 60; i++ {
		period, due := spec.Matches(start.Add(time.Duration(i) * time.Minute))
		if due {
			matched++
			if seen[period] {
				t.Fatalf("period %q matched twice", period)
			}
			seen[period] = true
		}
	}
	if matched != 4 {
		t.Fatalf("expected 4 matches per hour for a 15 minute interval, got %d", matched)
	}
}

func TestRoutingToken(t *testing.T) {
	c := Chain{TriggerConfig: map[string]any{"token": "  tok-9  "}}
	if got := c.RoutingToken(); got != "tok-9" {
		t.Fatalf("unexpected token: %q", got)
	}
	if got := (Chain{}).RoutingToken(); got != "" {
		t.Fatalf("expected empty token, got %q", got)
	}
}
