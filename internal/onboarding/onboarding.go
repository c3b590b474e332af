// Package onboarding defines the five onboarding milestones and the pure
// reducer over a user's progress record. Each milestone is an independent
// pending/done flag; steps may complete in any order and completing a done
// step is a no-op.
package onboarding

import (
	"errors"
	"fmt"

	"github.com/devflowhub/engine/internal/models"
	appErr "github.com/devflowhub/engine/pkg/errors"
)

// Step names one onboarding milestone.
type Step string

const (
	CreatedFirstProject  Step = "createdFirstProject"
	ConnectedIntegration Step = "connectedIntegration"
	RanInSandbox         Step = "ranInSandbox"
	DeployedToStaging    Step = "deployedToStaging"
	UsedAssistant        Step = "usedAssistant"
)

// TotalSteps is the number of milestones.
const TotalSteps = 5

// ErrInvalidStep is wrapped by ParseStep for names outside the fixed set.
var ErrInvalidStep = errors.New("invalid onboarding step")

var steps = []Step{CreatedFirstProject, ConnectedIntegration, RanInSandbox, DeployedToStaging, UsedAssistant}

var columns = map[Step]string{
	CreatedFirstProject:  "created_first_project",
	ConnectedIntegration: "connected_integration",
	RanInSandbox:         "ran_in_sandbox",
	DeployedToStaging:    "deployed_to_staging",
	UsedAssistant:        "used_assistant",
}

var byColumn = map[string]Step{}

func init() {
	for s, c := range columns {
		byColumn[c] = s
	}
}

// Steps returns the milestones in display order.
func Steps() []Step {
	out := make([]Step, len(steps))
	copy(out, steps)
	return out
}

// Valid reports whether s is one of the five milestones.
func (s Step) Valid() bool {
	_, ok := columns[s]
	return ok
}

// Column is the database column backing s. Empty for invalid steps.
func (s Step) Column() string { return columns[s] }

// ParseStep accepts the camelCase step name or its snake_case column name.
func ParseStep(name string) (Step, error) {
	if s := Step(name); s.Valid() {
		return s, nil
	}
	if s, ok := byColumn[name]; ok {
		return s, nil
	}
	return "", appErr.Wrap(ErrInvalidStep, appErr.CodeInvalid, fmt.Sprintf("unknown onboarding step %q", name)).
		WithMeta("step", name)
}

// Done reports whether step is complete in p.
func Done(p *models.OnboardingProgress, step Step) bool {
	if f := flag(p, step); f != nil {
		return *f
	}
	return false
}

// Apply marks step complete in p and reports whether p changed. It never
// clears a flag.
func Apply(p *models.OnboardingProgress, step Step) (bool, error) {
	f := flag(p, step)
	if f == nil {
		return false, appErr.Wrap(ErrInvalidStep, appErr.CodeInvalid, fmt.Sprintf("unknown onboarding step %q", step))
	}
	if *f {
		return false, nil
	}
	*f = true
	return true, nil
}

func flag(p *models.OnboardingProgress, step Step) *bool {
	switch step {
	case CreatedFirstProject:
		return &p.CreatedFirstProject
	case ConnectedIntegration:
		return &p.ConnectedIntegration
	case RanInSandbox:
		return &p.RanInSandbox
	case DeployedToStaging:
		return &p.DeployedToStaging
	case UsedAssistant:
		return &p.UsedAssistant
	}
	return nil
}

// Completion is the derived summary of a progress record.
type Completion struct {
	Completed  int     `json:"completed"`
	Total      int     `json:"total"`
	Percentage float64 `json:"percentage"`
}

// ComputeCompletion counts completed milestones.
func ComputeCompletion(p *models.OnboardingProgress) Completion {
	n := 0
	for _, s := range steps {
		if Done(p, s) {
			n++
		}
	}
	return Completion{
		Completed:  n,
		Total:      TotalSteps,
		Percentage: 100 * float64(n) / float64(TotalSteps),
	}
}

// Complete reports whether every milestone is done.
func Complete(p *models.OnboardingProgress) bool {
	return ComputeCompletion(p).Completed == TotalSteps
}
