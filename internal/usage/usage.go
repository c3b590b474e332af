// Package usage turns loosely typed tool actions reported by dashboard clients
// into canonical usage events. Normalization is a pure transform; delivery is
// left to an EventLogger.
package usage

import (
	"context"
	"fmt"
	"strings"

	"github.com/devflowhub/engine/internal/onboarding"
	"github.com/devflowhub/engine/internal/toolmap"
	appErr "github.com/devflowhub/engine/pkg/errors"
)

// Action is the fixed vocabulary of tool actions.
type Action string

const (
	ActionOpen     Action = "open"
	ActionEdit     Action = "edit"
	ActionRun      Action = "run"
	ActionGenerate Action = "generate"
	ActionDeploy   Action = "deploy"
	ActionChat     Action = "chat"
	ActionOther    Action = "other"
)

var actions = map[Action]struct{}{
	ActionOpen: {}, ActionEdit: {}, ActionRun: {}, ActionGenerate: {},
	ActionDeploy: {}, ActionChat: {}, ActionOther: {},
}

// Metadata keys with a documented meaning.
const (
	// KeyUnresolved is set to true when the tool matched no known vocabulary.
	KeyUnresolved = "unresolved"
	// KeyRawTool keeps the client's spelling when it differs from the module id.
	KeyRawTool = "raw_tool"
	// KeyRawAction keeps the client's action when it was folded into ActionOther.
	KeyRawAction = "raw_action"
	// KeyEnvironment names the deploy target (e.g. "staging").
	KeyEnvironment = "environment"
	// KeyModel names the assistant model used for a chat action.
	KeyModel = "model"
	// KeyExitCode is the process exit code of a sandbox run.
	KeyExitCode = "exit_code"
)

const maxMetadataKeys = 32

// Metadata is an open key/value map attached to an event.
type Metadata map[string]any

// Event is a normalized usage record. Tool holds a module id when the client's
// tool resolved, otherwise the client's string verbatim.
type Event struct {
	ProjectID  string   `json:"project_id"`
	Tool       string   `json:"tool"`
	Action     Action   `json:"action"`
	DurationMs *int64   `json:"duration_ms,omitempty"`
	Metadata   Metadata `json:"metadata,omitempty"`
}

// Resolved reports whether the tool mapped to a known module.
func (e Event) Resolved() bool {
	v, ok := e.Metadata[KeyUnresolved].(bool)
	return !ok || !v
}

// EventLogger delivers normalized events to durable storage. Implementations
// must not block the caller on slow backends.
type EventLogger interface {
	Log(ctx context.Context, userID string, e Event) error
}

// ValidateMetadata checks client-supplied metadata before normalization.
func ValidateMetadata(md Metadata) error {
	if len(md) > maxMetadataKeys {
		return appErr.Invalid("metadata has %d keys, at most %d allowed", len(md), maxMetadataKeys)
	}
	for k, v := range md {
		if strings.TrimSpace(k) == "" {
			return appErr.Invalid("metadata keys must not be empty")
		}
		switch k {
		case KeyEnvironment, KeyModel:
			if _, ok := v.(string); !ok {
				return appErr.Invalid("metadata %q must be a string", k)
			}
		case KeyExitCode:
			if _, ok := v.(float64); !ok {
				if _, ok := v.(int); !ok {
					return appErr.Invalid("metadata %q must be a number", k)
				}
			}
		}
	}
	return nil
}

// NormalizeAction folds a raw action into the fixed vocabulary.
func NormalizeAction(raw string) (Action, bool) {
	a := Action(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := actions[a]; ok {
		return a, true
	}
	return ActionOther, false
}

// Normalize resolves the raw tool and action into an Event. Unknown tools are
// kept verbatim and flagged; they are never dropped. md is copied, not mutated.
//
// NUL characters are stripped from every string, metadata included: Postgres
// rejects them in text and jsonb, so such an event could never be stored.
func Normalize(projectID, rawTool, rawAction string, durationMs *int64, md Metadata) Event {
	rawTool, rawAction = stripNUL(rawTool), stripNUL(rawAction)
	out := Metadata{}
	for k, v := range md {
		k = stripNUL(k)
		switch k {
		case "", KeyUnresolved, KeyRawTool, KeyRawAction:
			// reserved for the normalizer
		default:
			out[k] = stripNULValue(v)
		}
	}

	e := Event{ProjectID: strings.TrimSpace(stripNUL(projectID))}

	if m, ok := toolmap.ToModuleID(rawTool); ok {
		e.Tool = string(m)
		if rawTool != string(m) {
			out[KeyRawTool] = rawTool
		}
	} else {
		e.Tool = rawTool
		out[KeyUnresolved] = true
	}

	a, ok := NormalizeAction(rawAction)
	if !ok {
		out[KeyRawAction] = rawAction
	}
	e.Action = a

	if durationMs != nil && *durationMs >= 0 {
		d := *durationMs
		e.DurationMs = &d
	}
	if len(out) > 0 {
		e.Metadata = out
	}
	return e
}

func stripNUL(s string) string {
	if strings.IndexByte(s, 0) < 0 {
		return s
	}
	return strings.ReplaceAll(s, "\x00", "")
}

// stripNULValue cleans strings inside decoded JSON values. Maps and slices are
// copied so the caller's metadata is left untouched.
func stripNULValue(v any) any {
	switch t := v.(type) {
	case string:
		return stripNUL(t)
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, vv := range t {
			m[stripNUL(k)] = stripNULValue(vv)
		}
		return m
	case []any:
		out := make([]any, len(t))
		for i, vv := range t {
			out[i] = stripNULValue(vv)
		}
		return out
	default:
		return v
	}
}

// StepFor maps an event to the onboarding milestone it satisfies, if any.
func StepFor(e Event) (onboarding.Step, bool) {
	switch {
	case e.Action == ActionChat:
		return onboarding.UsedAssistant, true
	case e.Tool == string(toolmap.Sandbox) && e.Action == ActionRun:
		return onboarding.RanInSandbox, true
	case e.Tool == string(toolmap.Deployer) && e.Action == ActionDeploy:
		if env, _ := e.Metadata[KeyEnvironment].(string); strings.EqualFold(env, "staging") {
			return onboarding.DeployedToStaging, true
		}
	}
	return "", false
}

// String is used in log fields.
func (e Event) String() string {
	return fmt.Sprintf("%s/%s", e.Tool, e.Action)
}
