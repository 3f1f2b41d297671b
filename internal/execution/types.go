package execution

import (
	"fmt"
	"time"

	"github.com/nerrad567/gray-logic-conductor/internal/goal"
	"github.com/nerrad567/gray-logic-conductor/internal/plan"
)

// StepStatus is the lifecycle state of one step.
type StepStatus string

// Step states. Completed and failed are terminal.
const (
	StepPending   StepStatus = "pending"
	StepRunning   StepStatus = "running"
	StepCompleted StepStatus = "completed"
	StepFailed    StepStatus = "failed"
)

// OverallStatus is the aggregate outcome of an execution.
type OverallStatus string

// A plan is a success only when every step completed. Anything else,
// including every step failing, is partial.
const (
	StatusSuccess OverallStatus = "success"
	StatusPartial OverallStatus = "partial"
)

// Phase identifies which side of a step a notification describes.
type Phase string

// Notification phases.
const (
	PhaseExecuting Phase = "executing"
	PhaseCompleted Phase = "completed"
	PhaseFailed    Phase = "failed"
)

// StepResult records how one step ended.
type StepResult struct {
	Order      int                 `json:"order"`
	Specialist plan.SpecialistKind `json:"specialist"`
	Action     string              `json:"action"`
	Status     StepStatus          `json:"status"`
	Error      string              `json:"error,omitempty"`

	// Attempts counts primary attempts that reached a device. A step that
	// failed without reaching one (no device resolved) records zero.
	Attempts int `json:"attempts"`

	DurationMS   int64     `json:"duration_ms"`
	Timestamp    time.Time `json:"timestamp"`
	Simulated    bool      `json:"simulated,omitempty"`
	FallbackUsed bool      `json:"fallback_used,omitempty"`
}

// ExecutionLog is the record of one plan execution. Steps are in plan order.
type ExecutionLog struct {
	ID            string        `json:"execution_id"`
	PlanID        string        `json:"plan_id"`
	UserID        string        `json:"user_id"`
	Goal          string        `json:"goal"`
	GoalType      goal.Type     `json:"goal_type"`
	DryRun        bool          `json:"dry_run"`
	StartedAt     time.Time     `json:"started_at"`
	CompletedAt   time.Time     `json:"completed_at"`
	OverallStatus OverallStatus `json:"status"`
	Steps         []StepResult  `json:"steps"`
}

// Summary counts step outcomes.
type Summary struct {
	TotalSteps int `json:"total_steps"`
	Successful int `json:"successful"`
	Failed     int `json:"failed"`
}

// Summary counts the log's step outcomes.
func (l *ExecutionLog) Summary() Summary {
	s := Summary{TotalSteps: len(l.Steps)}
	for _, r := range l.Steps {
		if r.Status == StepCompleted {
			s.Successful++
		} else {
			s.Failed++
		}
	}
	return s
}

// Duration returns the wall time the execution took.
func (l *ExecutionLog) Duration() time.Duration {
	return l.CompletedAt.Sub(l.StartedAt)
}

// aggregate derives the overall status from step results.
func aggregate(results []StepResult) OverallStatus {
	for _, r := range results {
		if r.Status != StepCompleted {
			return StatusPartial
		}
	}
	return StatusSuccess
}

// StepEvent describes a step for notification sinks. Result is nil while the
// step is executing.
type StepEvent struct {
	ExecutionID string              `json:"execution_id"`
	PlanID      string              `json:"plan_id"`
	Order       int                 `json:"order"`
	Specialist  plan.SpecialistKind `json:"specialist"`
	Action      string              `json:"action"`
	Description string              `json:"description,omitempty"`
	DryRun      bool                `json:"dry_run,omitempty"`
	Result      *StepResult         `json:"result,omitempty"`
	Timestamp   time.Time           `json:"timestamp"`
}

// stepState enforces pending -> running -> {completed | failed}.
type stepState struct {
	status StepStatus
}

var allowedTransitions = map[StepStatus][]StepStatus{
	StepPending: {StepRunning},
	StepRunning: {StepCompleted, StepFailed},
}

func newStepState() *stepState {
	return &stepState{status: StepPending}
}

func (s *stepState) transition(to StepStatus) error {
	for _, next := range allowedTransitions[s.status] {
		if next == to {
			s.status = to
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s.status, to)
}
