package plan

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/gray-logic-conductor/internal/environment"
	"github.com/nerrad567/gray-logic-conductor/internal/goal"
)

// SpecialistKind names the domain specialist that owns a step.
type SpecialistKind string

// The fixed set of specialists.
const (
	Ambiance SpecialistKind = "ambiance"
	Security SpecialistKind = "security"
	Energy   SpecialistKind = "energy"
	Wellness SpecialistKind = "wellness"
)

// AllSpecialists returns every specialist kind.
func AllSpecialists() []SpecialistKind {
	return []SpecialistKind{Ambiance, Security, Energy, Wellness}
}

// IsValid reports whether k is one of the known specialists.
func (k SpecialistKind) IsValid() bool {
	switch k {
	case Ambiance, Security, Energy, Wellness:
		return true
	}
	return false
}

// ParseSpecialist resolves a specialist name, ignoring case.
func ParseSpecialist(s string) (SpecialistKind, error) {
	k := SpecialistKind(strings.ToLower(strings.TrimSpace(s)))
	if !k.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownSpecialist, s)
	}
	return k, nil
}

// Step is one unit of work produced by the orchestrator.
type Step struct {
	Order       int            `json:"order" yaml:"order"`
	Specialist  SpecialistKind `json:"specialist" yaml:"specialist"`
	Action      string         `json:"action" yaml:"action"`
	Description string         `json:"description" yaml:"description"`
	DeviceHints []string       `json:"device_hints" yaml:"devices"`
	Params      map[string]any `json:"params" yaml:"params"`
}

// Clone returns an independent copy of s.
func (s Step) Clone() Step {
	cpy := s
	if s.DeviceHints != nil {
		cpy.DeviceHints = append([]string(nil), s.DeviceHints...)
	}
	cpy.Params = CloneParams(s.Params)
	return cpy
}

// RetryPolicy bounds the attempts the coordinator makes for a step.
// Backoff between attempts is fixed, not exponential.
type RetryPolicy struct {
	MaxAttempts int `json:"max_attempts"`
	BackoffMS   int `json:"backoff_ms"`
}

// Backoff returns the delay between attempts.
func (r RetryPolicy) Backoff() time.Duration {
	return time.Duration(r.BackoffMS) * time.Millisecond
}

// Validation selects the state checks made around a command.
type Validation struct {
	PreCheck  bool `json:"pre_check"`
	PostCheck bool `json:"post_check"`
}

// Fallback is a single alternative action tried once retries are exhausted.
type Fallback struct {
	Action string         `json:"action"`
	Params map[string]any `json:"params"`
}

// EnrichedStep is a Step with the execution policy its specialist attached.
type EnrichedStep struct {
	Step
	Retry      RetryPolicy `json:"retry"`
	Validation Validation  `json:"validation"`
	Fallback   *Fallback   `json:"fallback,omitempty"`
}

// Clone returns an independent copy of e.
func (e EnrichedStep) Clone() EnrichedStep {
	cpy := e
	cpy.Step = e.Step.Clone()
	if e.Fallback != nil {
		fb := Fallback{Action: e.Fallback.Action, Params: CloneParams(e.Fallback.Params)}
		cpy.Fallback = &fb
	}
	return cpy
}

// FallbackStep returns the step to run in place of e once its retries are
// exhausted: e's action and params replaced by the fallback's, one attempt,
// no further fallback. It reports false when e has no fallback.
func (e EnrichedStep) FallbackStep() (EnrichedStep, bool) {
	if e.Fallback == nil {
		return EnrichedStep{}, false
	}
	fb := e.Clone()
	fb.Action = e.Fallback.Action
	fb.Params = CloneParams(e.Fallback.Params)
	fb.Fallback = nil
	fb.Retry = RetryPolicy{MaxAttempts: 1}
	return fb, true
}

// Plan is an ordered set of enriched steps built for one goal.
type Plan struct {
	ID                   string               `json:"plan_id"`
	Goal                 string               `json:"goal"`
	GoalType             goal.Type            `json:"goal_type"`
	UserID               string               `json:"user_id"`
	Steps                []EnrichedStep       `json:"steps"`
	RequiresConfirmation bool                 `json:"requires_confirmation"`
	Context              environment.Snapshot `json:"context"`
	CreatedAt            time.Time            `json:"created_at"`
}

// Clone returns an independent copy of p.
func (p *Plan) Clone() *Plan {
	if p == nil {
		return nil
	}
	cpy := *p
	if p.Steps != nil {
		cpy.Steps = make([]EnrichedStep, len(p.Steps))
		for i := range p.Steps {
			cpy.Steps[i] = p.Steps[i].Clone()
		}
	}
	return &cpy
}

// Validate checks the plan's structural invariants.
func (p *Plan) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidPlan)
	}
	prev := 0
	for i, s := range p.Steps {
		if i > 0 && s.Order <= prev {
			return fmt.Errorf("%w: step order %d does not follow %d", ErrInvalidPlan, s.Order, prev)
		}
		prev = s.Order
		if !s.Specialist.IsValid() {
			return fmt.Errorf("%w: step %d: %w: %q", ErrInvalidPlan, s.Order, ErrUnknownSpecialist, s.Specialist)
		}
		if s.Retry.MaxAttempts < 1 || s.Retry.BackoffMS < 0 {
			return fmt.Errorf("%w: step %d: retry policy %+v", ErrInvalidPlan, s.Order, s.Retry)
		}
	}
	return nil
}

// NewID returns a new plan identifier.
func NewID() string {
	return uuid.New().String()
}

// CloneParams deep-copies a params map.
func CloneParams(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	cpy := make(map[string]any, len(m))
	for k, v := range m {
		cpy[k] = cloneValue(v)
	}
	return cpy
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return CloneParams(val)
	case []any:
		cpy := make([]any, len(val))
		for i, elem := range val {
			cpy[i] = cloneValue(elem)
		}
		return cpy
	default:
		return v
	}
}
