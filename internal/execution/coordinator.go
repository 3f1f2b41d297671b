package execution

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/gray-logic-conductor/internal/plan"
	"github.com/nerrad567/gray-logic-conductor/internal/specialist"
)

// DefaultSettleDelay is the pause between two completed steps.
const DefaultSettleDelay = 300 * time.Millisecond

// StepRunner makes one attempt at a step. *specialist.Registry satisfies it.
type StepRunner interface {
	Execute(ctx context.Context, step plan.EnrichedStep) error
}

// Logger is the logging interface used by the coordinator.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Deps holds the coordinator's collaborators. Runner and Plans are required;
// the rest are optional.
type Deps struct {
	Runner   StepRunner
	Plans    plan.Store
	Logs     LogStore
	Sink     NotificationSink
	Recorder Recorder
	Logger   Logger

	// SettleDelay is the pause between completed steps. Zero selects
	// DefaultSettleDelay; a negative value disables it.
	SettleDelay time.Duration
}

// Coordinator drives plans to completion one step at a time.
//
// Thread Safety: Execute is safe for concurrent use. Each call runs its
// plan on the calling goroutine; steps of one plan never overlap.
type Coordinator struct {
	runner   StepRunner
	plans    plan.Store
	logs     LogStore
	sink     NotificationSink
	recorder Recorder
	logger   Logger
	settle   time.Duration

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error

	stats counters
}

// New creates a coordinator.
func New(d Deps) *Coordinator {
	settle := d.SettleDelay
	switch {
	case settle == 0:
		settle = DefaultSettleDelay
	case settle < 0:
		settle = 0
	}

	c := &Coordinator{
		runner:   d.Runner,
		plans:    d.Plans,
		logs:     d.Logs,
		sink:     d.Sink,
		recorder: d.Recorder,
		logger:   d.Logger,
		settle:   settle,
		now:      func() time.Time { return time.Now().UTC() },
		sleep:    sleep,
	}
	if c.logger == nil {
		c.logger = noopLogger{}
	}
	if c.recorder == nil {
		c.recorder = nopRecorder{}
	}
	return c
}

// Execute takes the plan out of the store and runs it.
//
// The plan is removed atomically, so a second Execute for the same ID
// returns ErrPlanNotFound. Step failures never produce an error: they are
// reported in the returned log. The run is detached from ctx cancellation
// so a caller going away cannot leave a plan half applied.
func (c *Coordinator) Execute(ctx context.Context, planID, userID string, dryRun bool) (*ExecutionLog, error) {
	if c.plans == nil {
		return nil, fmt.Errorf("%w: no plan store", ErrPlanNotFound)
	}
	p, err := c.plans.Take(ctx, planID)
	if err != nil {
		return nil, err
	}
	return c.ExecutePlan(ctx, p, userID, dryRun), nil
}

// ExecutePlan runs a plan the caller already holds. userID overrides the
// plan's owner when set.
func (c *Coordinator) ExecutePlan(ctx context.Context, p *plan.Plan, userID string, dryRun bool) *ExecutionLog {
	ctx = context.WithoutCancel(ctx)

	if userID == "" {
		userID = p.UserID
	}
	log := &ExecutionLog{
		ID:        uuid.NewString(),
		PlanID:    p.ID,
		UserID:    userID,
		Goal:      p.Goal,
		GoalType:  p.GoalType,
		DryRun:    dryRun,
		StartedAt: c.now(),
		Steps:     make([]StepResult, 0, len(p.Steps)),
	}

	c.logger.Info("plan execution started",
		"plan_id", p.ID,
		"execution_id", log.ID,
		"user_id", userID,
		"steps", len(p.Steps),
		"dry_run", dryRun,
	)

	for i, step := range p.Steps {
		result := c.runStep(ctx, log, step)
		log.Steps = append(log.Steps, result)
		c.recorder.StepFinished(result)

		last := i == len(p.Steps)-1
		if !dryRun && !last && result.Status == StepCompleted && c.settle > 0 {
			_ = c.sleep(ctx, c.settle) //nolint:errcheck // ctx never cancels
		}
	}

	log.CompletedAt = c.now()
	log.OverallStatus = aggregate(log.Steps)
	c.stats.observe(log)
	c.recorder.ExecutionFinished(log)

	if c.logs != nil {
		if err := c.logs.Insert(ctx, log); err != nil {
			c.logger.Error("failed to store execution log",
				"execution_id", log.ID,
				"error", err,
			)
		}
	}

	summary := log.Summary()
	c.logger.Info("plan execution complete",
		"plan_id", p.ID,
		"execution_id", log.ID,
		"status", log.OverallStatus,
		"successful", summary.Successful,
		"failed", summary.Failed,
		"duration_ms", log.Duration().Milliseconds(),
	)
	return log
}

// runStep takes one step through its state machine and returns its result.
func (c *Coordinator) runStep(ctx context.Context, log *ExecutionLog, step plan.EnrichedStep) StepResult {
	st := newStepState()
	result := StepResult{
		Order:      step.Order,
		Specialist: step.Specialist,
		Action:     step.Action,
		Status:     StepPending,
	}
	event := StepEvent{
		ExecutionID: log.ID,
		PlanID:      log.PlanID,
		Order:       step.Order,
		Specialist:  step.Specialist,
		Action:      step.Action,
		Description: step.Description,
		DryRun:      log.DryRun,
	}

	c.mustTransition(st, StepRunning, &result)
	started := c.now()
	event.Timestamp = started
	c.notify(ctx, log.UserID, event, PhaseExecuting)

	var err error
	if log.DryRun {
		result.Simulated = true
	} else {
		result.Attempts, err = c.attempt(ctx, step)
		if err != nil && specialist.IsRetryable(err) {
			if fb, ok := step.FallbackStep(); ok {
				result.FallbackUsed = true
				err = c.runFallback(ctx, fb, err)
			}
		}
	}

	phase := PhaseCompleted
	if err != nil {
		result.Error = err.Error()
		c.mustTransition(st, StepFailed, &result)
		phase = PhaseFailed
	} else {
		c.mustTransition(st, StepCompleted, &result)
	}

	result.Timestamp = c.now()
	result.DurationMS = result.Timestamp.Sub(started).Milliseconds()

	event.Result = &result
	event.Timestamp = result.Timestamp
	c.notify(ctx, log.UserID, event, phase)
	return result
}

// attempt runs step up to its retry budget with a fixed backoff between
// attempts. It returns the number of attempts that reached a device and the
// last error.
func (c *Coordinator) attempt(ctx context.Context, step plan.EnrichedStep) (int, error) {
	maxAttempts := step.Retry.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastErr error
	for n := 1; n <= maxAttempts; n++ {
		if n > 1 {
			_ = c.sleep(ctx, step.Retry.Backoff()) //nolint:errcheck // ctx never cancels
		}
		lastErr = c.runner.Execute(ctx, step)
		if lastErr == nil {
			return n, nil
		}
		if !specialist.IsRetryable(lastErr) {
			c.logger.Warn("step failed without retry",
				"order", step.Order,
				"specialist", step.Specialist,
				"error", lastErr,
			)
			return n - 1, lastErr
		}
		c.logger.Warn("step attempt failed",
			"order", step.Order,
			"specialist", step.Specialist,
			"attempt", n,
			"max_attempts", maxAttempts,
			"error", lastErr,
		)
	}
	return maxAttempts, lastErr
}

// runFallback makes the single fallback attempt. On failure the primary error
// is kept alongside the fallback's.
func (c *Coordinator) runFallback(ctx context.Context, fb plan.EnrichedStep, primary error) error {
	c.logger.Info("trying fallback",
		"order", fb.Order,
		"specialist", fb.Specialist,
		"action", fb.Action,
	)
	if err := c.runner.Execute(ctx, fb); err != nil {
		return fmt.Errorf("%w; fallback %s: %w", primary, fb.Action, err)
	}
	return nil
}

func (c *Coordinator) mustTransition(st *stepState, to StepStatus, result *StepResult) {
	if err := st.transition(to); err != nil {
		// Unreachable with the fixed sequence in runStep.
		c.logger.Error("step state machine violated", "order", result.Order, "error", err)
		return
	}
	result.Status = st.status
}

func (c *Coordinator) notify(ctx context.Context, userID string, event StepEvent, phase Phase) {
	if c.sink == nil {
		return
	}
	if err := c.sink.Notify(ctx, userID, event, phase); err != nil {
		c.logger.Warn("step notification failed",
			"execution_id", event.ExecutionID,
			"order", event.Order,
			"phase", phase,
			"error", err,
		)
	}
}

// Stats returns running totals since start-up.
func (c *Coordinator) Stats() Stats {
	return c.stats.snapshot()
}

// Stats are cumulative execution counters.
type Stats struct {
	Executions     int64 `json:"executions"`
	Successful     int64 `json:"successful"`
	Partial        int64 `json:"partial"`
	DryRuns        int64 `json:"dry_runs"`
	StepsCompleted int64 `json:"steps_completed"`
	StepsFailed    int64 `json:"steps_failed"`
}

type counters struct {
	executions, successful, partial, dryRuns atomic.Int64
	stepsCompleted, stepsFailed              atomic.Int64
}

func (c *counters) observe(log *ExecutionLog) {
	c.executions.Add(1)
	if log.OverallStatus == StatusSuccess {
		c.successful.Add(1)
	} else {
		c.partial.Add(1)
	}
	if log.DryRun {
		c.dryRuns.Add(1)
	}
	s := log.Summary()
	c.stepsCompleted.Add(int64(s.Successful))
	c.stepsFailed.Add(int64(s.Failed))
}

func (c *counters) snapshot() Stats {
	return Stats{
		Executions:     c.executions.Load(),
		Successful:     c.successful.Load(),
		Partial:        c.partial.Load(),
		DryRuns:        c.dryRuns.Load(),
		StepsCompleted: c.stepsCompleted.Load(),
		StepsFailed:    c.stepsFailed.Load(),
	}
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

var _ StepRunner = (*specialist.Registry)(nil)
