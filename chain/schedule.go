package chain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

type Cadence string

const (
	CadenceDaily    Cadence = "daily"
	CadenceHourly   Cadence = "hourly"
	CadenceInterval Cadence = "interval"
)

// ScheduleSpec is the parsed form of a schedule trigger config. Supported
// shapes:
//
//	{"cadence": "daily", "at": "09:30"}
//	{"cadence": "hourly"}
//	{"cadence": "interval", "every_minutes": 15}
type ScheduleSpec struct {
	Cadence      Cadence
	Hour         int
	Minute       int
	EveryMinutes int
}

func ParseScheduleSpec(cfg map[string]any) (ScheduleSpec, error) {
	cadence := Cadence(strings.ToLower(strings.TrimSpace(stringValue(cfg["cadence"]))))
	switch cadence {
	case CadenceDaily:
		at := strings.TrimSpace(stringValue(cfg["at"]))
		if at == "" {
			return ScheduleSpec{}, fmt.Errorf("daily schedule requires an %q time of day", "at")
		}
		t, err := time.Parse("15:04", at)
		if err != nil {
			return ScheduleSpec{}, fmt.Errorf("invalid daily schedule time %q: %w", at, err)
		}
		return ScheduleSpec{Cadence: CadenceDaily, Hour: t.Hour(), Minute: t.Minute()}, nil
	case CadenceHourly:
		return ScheduleSpec{Cadence: CadenceHourly}, nil
	case CadenceInterval:
		every := intValue(cfg["every_minutes"])
		if every <= 0 {
			return ScheduleSpec{}, fmt.Errorf("interval schedule requires a positive %q", "every_minutes")
		}
		return ScheduleSpec{Cadence: CadenceInterval, EveryMinutes: every}, nil
	case "":
		return ScheduleSpec{}, fmt.Errorf("schedule trigger requires a cadence")
	default:
		return ScheduleSpec{}, fmt.Errorf("unknown schedule cadence %q", cadence)
	}
}

// Matches reports whether a tick at the given time falls on this schedule,
// and if so returns the identifier of the period the tick belongs to. Ticks
// are truncated to minute resolution before evaluation.
func (s ScheduleSpec) Matches(now time.Time) (string, bool) {
	now = now.UTC().Truncate(time.Minute)
	switch s.Cadence {
	case CadenceDaily:
		if now.Hour() != s.Hour || now.Minute() != s.Minute {
			return "", false
		}
		return "daily:" + now.Format("2006-01-02"), true
	case CadenceHourly:
		if now.Minute() != 0 {
			return "", false
		}
		return "hourly:" + now.Format("2006-01-02T15"), true
	case CadenceInterval:
		minutes := now.Unix() / 60
		if minutes%int64(s.EveryMinutes) != 0 {
			return "", false
		}
		period := minutes / int64(s.EveryMinutes)
		return fmt.Sprintf("interval:%d:%d", s.EveryMinutes, period), true
	default:
		return "", false
	}
}

func validateScheduleConfig(cfg map[string]any) error {
	_, err := ParseScheduleSpec(cfg)
	return err
}

func stringValue(v any) string {
	s, _ := v.(string)
	return s
}

func intValue(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	case string:
		parsed, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			return 0
		}
		return parsed
	default:
		return 0
	}
}
