// Package template resolves {{trigger.x}} and {{action.N.y}} placeholders
// against the data accumulated during a chain run. Resolution is best
// effort: placeholders that cannot be resolved become empty strings and are
// reported back so the run record stays debuggable.
package template

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/chainwork/chainwork/execution"
)

var placeholderPattern = regexp.MustCompile(`\{\{\s*([a-zA-Z0-9_][a-zA-Z0-9_.-]*)\s*\}\}`)

// Context exposes the data addressable from a template: the trigger payload
// and the outputs of actions that already completed. Actions holds results
// in chain order, so index N is only addressable once action N has run.
type Context struct {
	Trigger map[string]any
	Actions []execution.ActionResult
}

// Resolve replaces every placeholder in tmpl with its value from ctx.
// Unknown references, forward action references, and out-of-range indices
// resolve to "" rather than failing; each such reference is returned in the
// second value.
func Resolve(tmpl string, ctx Context) (string, []string) {
	var unresolved []string
	resolved := placeholderPattern.ReplaceAllStringFunc(tmpl, func(match string) string {
		ref := placeholderPattern.FindStringSubmatch(match)[1]
		value, ok := lookup(ref, ctx)
		if !ok {
			unresolved = append(unresolved, ref)
			return ""
		}
		return value
	})
	return resolved, unresolved
}

// ResolveConfig interpolates every value of an action config map, merging
// the unresolved references across all keys.
func ResolveConfig(config map[string]string, ctx Context) (map[string]string, []string) {
	out := make(map[string]string, len(config))
	var unresolved []string
	for key, value := range config {
		resolved, missing := Resolve(value, ctx)
		out[key] = resolved
		unresolved = append(unresolved, missing...)
	}
	return out, unresolved
}

func lookup(ref string, ctx Context) (string, bool) {
	parts := strings.Split(ref, ".")
	switch parts[0] {
	case "trigger":
		if len(parts) < 2 {
			return "", false
		}
		return walk(ctx.Trigger, parts[1:])
	case "action":
		if len(parts) < 3 {
			return "", false
		}
		index, err := strconv.Atoi(parts[1])
		if err != nil || index < 0 || index >= len(ctx.Actions) {
			return "", false
		}
		return walk(ctx.Actions[index].Output, parts[2:])
	default:
		return "", false
	}
}

func walk(data map[string]any, path []string) (string, bool) {
	var current any = data
	for _, key := range path {
		m, ok := current.(map[string]any)
		if !ok {
			return "", false
		}
		current, ok = m[key]
		if !ok {
			return "", false
		}
	}
	return stringify(current)
}

func stringify(v any) (string, bool) {
	switch value := v.(type) {
	case nil:
		return "", false
	case string:
		return value, true
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64), true
	case int:
		return strconv.Itoa(value), true
	case int64:
		return strconv.FormatInt(value, 10), true
	case bool:
		return strconv.FormatBool(value), true
	default:
		raw, err := json.Marshal(value)
		if err != nil {
			return "", false
		}
		return string(raw), true
	}
}
