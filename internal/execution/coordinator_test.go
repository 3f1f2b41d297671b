package execution

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-conductor/internal/goal"
	"github.com/nerrad567/gray-logic-conductor/internal/plan"
	"github.com/nerrad567/gray-logic-conductor/internal/specialist"
)

// mockRunner returns scripted errors per step order. Once a script is
// exhausted the step succeeds.
type mockRunner struct {
	mu      sync.Mutex
	scripts map[int][]error
	always  map[int]error
	calls   []plan.EnrichedStep
	ctxErrs []error
}

func newMockRunner() *mockRunner {
	return &mockRunner{scripts: map[int][]error{}, always: map[int]error{}}
}

func (m *mockRunner) Execute(ctx context.Context, step plan.EnrichedStep) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, step)
	m.ctxErrs = append(m.ctxErrs, ctx.Err())

	if err, ok := m.always[step.Order]; ok && step.Action == "primary" {
		return err
	}
	if q := m.scripts[step.Order]; len(q) > 0 {
		m.scripts[step.Order] = q[1:]
		return q[0]
	}
	return nil
}

func (m *mockRunner) callsFor(order int) []plan.EnrichedStep {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []plan.EnrichedStep
	for _, c := range m.calls {
		if c.Order == order {
			out = append(out, c)
		}
	}
	return out
}

func (m *mockRunner) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

type sentNotification struct {
	userID string
	event  StepEvent
	phase  Phase
}

type mockSink struct {
	mu   sync.Mutex
	sent []sentNotification
	err  error
}

func (m *mockSink) Notify(_ context.Context, userID string, event StepEvent, phase Phase) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentNotification{userID: userID, event: event, phase: phase})
	return m.err
}

func (m *mockSink) all() []sentNotification {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]sentNotification, len(m.sent))
	copy(out, m.sent)
	return out
}

type mockLogStore struct {
	mu   sync.Mutex
	logs []*ExecutionLog
	err  error
}

func (m *mockLogStore) Insert(_ context.Context, log *ExecutionLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.logs = append(m.logs, log)
	return nil
}

type logEntry struct {
	level string
	msg   string
}

type recordingLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

func (l *recordingLogger) add(level, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, logEntry{level: level, msg: msg})
}

func (l *recordingLogger) Debug(msg string, _ ...any) { l.add("debug", msg) }
func (l *recordingLogger) Info(msg string, _ ...any)  { l.add("info", msg) }
func (l *recordingLogger) Warn(msg string, _ ...any)  { l.add("warn", msg) }
func (l *recordingLogger) Error(msg string, _ ...any) { l.add("error", msg) }

func (l *recordingLogger) has(level, msg string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.entries {
		if e.level == level && e.msg == msg {
			return true
		}
	}
	return false
}

// recordingSleeper replaces real delays.
type recordingSleeper struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *recordingSleeper) sleep(_ context.Context, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delays = append(s.delays, d)
	return nil
}

func (s *recordingSleeper) count(d time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, got := range s.delays {
		if got == d {
			n++
		}
	}
	return n
}

func testStep(order int, k plan.SpecialistKind, attempts, backoffMS int) plan.EnrichedStep {
	return plan.EnrichedStep{
		Step: plan.Step{
			Order:       order,
			Specialist:  k,
			Action:      "primary",
			DeviceHints: []string{fmt.Sprintf("Device %d", order)},
			Params:      map[string]any{},
		},
		Retry: plan.RetryPolicy{MaxAttempts: attempts, BackoffMS: backoffMS},
	}
}

func testPlan(id string, steps ...plan.EnrichedStep) *plan.Plan {
	return &plan.Plan{
		ID:       id,
		Goal:     "Movie time",
		GoalType: goal.TypeMovieTime,
		UserID:   "alice",
		Steps:    steps,
	}
}

type testEnv struct {
	coord   *Coordinator
	runner  *mockRunner
	sink    *mockSink
	logs    *mockLogStore
	logger  *recordingLogger
	store   *plan.MemoryStore
	sleeper *recordingSleeper
}

// newTestEnv builds a coordinator with mocks. Delays are recorded, not slept.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		runner:  newMockRunner(),
		sink:    &mockSink{},
		logs:    &mockLogStore{},
		logger:  &recordingLogger{},
		store:   plan.NewMemoryStore(time.Minute),
		sleeper: &recordingSleeper{},
	}
	env.coord = New(Deps{
		Runner: env.runner,
		Plans:  env.store,
		Logs:   env.logs,
		Sink:   env.sink,
		Logger: env.logger,
	})
	env.coord.sleep = env.sleeper.sleep
	return env
}

func (e *testEnv) save(t *testing.T, p *plan.Plan) {
	t.Helper()
	if err := e.store.Save(context.Background(), p); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
}

func (e *testEnv) execute(t *testing.T, id string, dryRun bool) *ExecutionLog {
	t.Helper()
	log, err := e.coord.Execute(context.Background(), id, "alice", dryRun)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	return log
}

func TestCoordinator_AllStepsSucceed(t *testing.T) {
	env := newTestEnv(t)
	env.save(t, testPlan("p1",
		testStep(1, plan.Ambiance, 3, 500),
		testStep(2, plan.Security, 3, 1000),
		testStep(5, plan.Energy, 2, 1000),
	))

	log := env.execute(t, "p1", false)

	if log.OverallStatus != StatusSuccess {
		t.Errorf("OverallStatus = %q, want success", log.OverallStatus)
	}
	wantOrders := []int{1, 2, 5}
	if len(log.Steps) != len(wantOrders) {
		t.Fatalf("len(Steps) = %d, want %d", len(log.Steps), len(wantOrders))
	}
	for i, r := range log.Steps {
		if r.Order != wantOrders[i] {
			t.Errorf("Steps[%d].Order = %d, want %d", i, r.Order, wantOrders[i])
		}
		if r.Status != StepCompleted || r.Attempts != 1 || r.Simulated {
			t.Errorf("Steps[%d] = %+v, want completed after one real attempt", i, r)
		}
	}
	if s := log.Summary(); s != (Summary{TotalSteps: 3, Successful: 3}) {
		t.Errorf("Summary() = %+v", s)
	}
	if log.PlanID != "p1" || log.UserID != "alice" || log.ID == "" {
		t.Errorf("log identity = (%q, %q, %q)", log.ID, log.PlanID, log.UserID)
	}

	// Settle only between steps, not after the last one.
	if got := env.sleeper.count(DefaultSettleDelay); got != 2 {
		t.Errorf("settle delays = %d, want 2", got)
	}

	if len(env.logs.logs) != 1 || env.logs.logs[0] != log {
		t.Errorf("log store received %d logs", len(env.logs.logs))
	}
}

func TestCoordinator_Notifications(t *testing.T) {
	env := newTestEnv(t)
	env.runner.scripts[2] = []error{specialist.ErrDeviceNotFound}
	env.save(t, testPlan("p1",
		testStep(1, plan.Ambiance, 1, 0),
		testStep(2, plan.Security, 1, 0),
	))

	env.execute(t, "p1", false)

	sent := env.sink.all()
	want := []struct {
		order int
		phase Phase
	}{
		{1, PhaseExecuting}, {1, PhaseCompleted},
		{2, PhaseExecuting}, {2, PhaseFailed},
	}
	if len(sent) != len(want) {
		t.Fatalf("notifications = %d, want %d", len(sent), len(want))
	}
	for i, w := range want {
		got := sent[i]
		if got.event.Order != w.order || got.phase != w.phase || got.userID != "alice" {
			t.Errorf("notification %d = (order %d, %s, %q), want (order %d, %s, alice)",
				i, got.event.Order, got.phase, got.userID, w.order, w.phase)
		}
		if w.phase == PhaseExecuting && got.event.Result != nil {
			t.Errorf("notification %d: executing event carries a result", i)
		}
		if w.phase != PhaseExecuting && got.event.Result == nil {
			t.Errorf("notification %d: end event has no result", i)
		}
	}
}

func TestCoordinator_RetryBound(t *testing.T) {
	const (
		attempts  = 3
		backoffMS = 20
	)
	runner := newMockRunner()
	runner.always[1] = fmt.Errorf("%w: light offline", specialist.ErrCommandFailed)
	store := plan.NewMemoryStore(time.Minute)
	coord := New(Deps{Runner: runner, Plans: store, SettleDelay: -1})

	if err := store.Save(context.Background(), testPlan("p1", testStep(1, plan.Ambiance, attempts, backoffMS))); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	start := time.Now()
	log, err := coord.Execute(context.Background(), "p1", "alice", false)
	elapsed := time.Since(start)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	r := log.Steps[0]
	if r.Status != StepFailed || r.Attempts != attempts {
		t.Errorf("step = %+v, want failed after %d attempts", r, attempts)
	}
	if !strings.Contains(r.Error, "light offline") {
		t.Errorf("Error = %q, want last error", r.Error)
	}
	if got := len(runner.callsFor(1)); got != attempts {
		t.Errorf("runner calls = %d, want %d", got, attempts)
	}
	minElapsed := time.Duration(attempts-1) * backoffMS * time.Millisecond
	if elapsed < minElapsed {
		t.Errorf("elapsed = %v, want >= %v", elapsed, minElapsed)
	}
	if log.OverallStatus != StatusPartial {
		t.Errorf("OverallStatus = %q, want partial", log.OverallStatus)
	}
}

func TestCoordinator_Retries(t *testing.T) {
	failed := fmt.Errorf("%w: timeout", specialist.ErrCommandFailed)
	mismatch := fmt.Errorf("%w: brightness", specialist.ErrValidationMismatch)

	tests := []struct {
		name         string
		script       []error
		maxAttempts  int
		wantStatus   StepStatus
		wantAttempts int
		wantCalls    int
		wantBackoffs int
	}{
		{"first attempt", nil, 3, StepCompleted, 1, 1, 0},
		{"succeeds on retry", []error{failed, mismatch}, 3, StepCompleted, 3, 3, 2},
		{"exhausted", []error{failed, mismatch, failed}, 3, StepFailed, 3, 3, 2},
		{"single attempt", []error{failed}, 1, StepFailed, 1, 1, 0},
		{"device not found is not retried", []error{specialist.ErrDeviceNotFound}, 3, StepFailed, 0, 1, 0},
		{"unknown specialist is not retried", []error{plan.ErrUnknownSpecialist}, 3, StepFailed, 0, 1, 0},
		{"late device loss keeps prior attempts", []error{failed, specialist.ErrDeviceNotFound}, 3, StepFailed, 1, 2, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.runner.scripts[1] = tt.script
			env.save(t, testPlan("p1", testStep(1, plan.Energy, tt.maxAttempts, 250)))

			r := env.execute(t, "p1", false).Steps[0]

			if r.Status != tt.wantStatus || r.Attempts != tt.wantAttempts {
				t.Errorf("step = (%s, %d attempts), want (%s, %d)", r.Status, r.Attempts, tt.wantStatus, tt.wantAttempts)
			}
			if got := len(env.runner.callsFor(1)); got != tt.wantCalls {
				t.Errorf("runner calls = %d, want %d", got, tt.wantCalls)
			}
			if got := env.sleeper.count(250 * time.Millisecond); got != tt.wantBackoffs {
				t.Errorf("backoffs = %d, want %d", got, tt.wantBackoffs)
			}
			if tt.wantStatus == StepFailed && r.Error == "" {
				t.Error("failed step has no error")
			}
		})
	}
}

func TestCoordinator_DeviceNotFoundDoesNotStopPlan(t *testing.T) {
	env := newTestEnv(t)
	env.runner.scripts[1] = []error{fmt.Errorf("%w: Garage Light", specialist.ErrDeviceNotFound)}
	env.save(t, testPlan("p1",
		testStep(1, plan.Ambiance, 3, 500),
		testStep(2, plan.Security, 3, 1000),
		testStep(3, plan.Energy, 2, 1000),
	))

	log := env.execute(t, "p1", false)

	if log.Steps[0].Status != StepFailed || log.Steps[0].Attempts != 0 {
		t.Errorf("step 1 = %+v, want failed with 0 attempts", log.Steps[0])
	}
	for _, r := range log.Steps[1:] {
		if r.Status != StepCompleted {
			t.Errorf("step %d status = %q, want completed", r.Order, r.Status)
		}
	}
	if log.OverallStatus != StatusPartial {
		t.Errorf("OverallStatus = %q, want partial", log.OverallStatus)
	}
	if s := log.Summary(); s.Successful != 2 || s.Failed != 1 {
		t.Errorf("Summary() = %+v", s)
	}
}

func TestCoordinator_AllFailedIsPartial(t *testing.T) {
	env := newTestEnv(t)
	env.runner.always[1] = specialist.ErrCommandFailed
	env.runner.always[2] = specialist.ErrCommandFailed
	env.save(t, testPlan("p1",
		testStep(1, plan.Security, 2, 0),
		testStep(2, plan.Energy, 2, 0),
	))

	log := env.execute(t, "p1", false)

	if log.OverallStatus != StatusPartial {
		t.Errorf("OverallStatus = %q, want partial", log.OverallStatus)
	}
	if s := log.Summary(); s.Successful != 0 || s.Failed != 2 {
		t.Errorf("Summary() = %+v", s)
	}
	// No settle delay after failed steps.
	if got := env.sleeper.count(DefaultSettleDelay); got != 0 {
		t.Errorf("settle delays = %d, want 0", got)
	}
}

func TestCoordinator_Fallback(t *testing.T) {
	withFallback := func() plan.EnrichedStep {
		s := testStep(1, plan.Ambiance, 2, 0)
		s.Fallback = &plan.Fallback{Action: "set_brightness", Params: map[string]any{"brightness": 30}}
		return s
	}

	t.Run("fallback succeeds", func(t *testing.T) {
		env := newTestEnv(t)
		env.runner.always[1] = specialist.ErrValidationMismatch
		env.save(t, testPlan("p1", withFallback()))

		r := env.execute(t, "p1", false).Steps[0]

		if r.Status != StepCompleted || !r.FallbackUsed || r.Attempts != 2 {
			t.Errorf("step = %+v, want completed via fallback after 2 attempts", r)
		}
		calls := env.runner.callsFor(1)
		if len(calls) != 3 || calls[2].Action != "set_brightness" {
			t.Fatalf("calls = %d, last action %q", len(calls), calls[len(calls)-1].Action)
		}
		if calls[2].Params["brightness"] != 30 || calls[2].Retry.MaxAttempts != 1 {
			t.Errorf("fallback step = %+v", calls[2])
		}
	})

	t.Run("fallback fails", func(t *testing.T) {
		env := newTestEnv(t)
		env.runner.always[1] = specialist.ErrCommandFailed
		env.runner.scripts[1] = []error{errors.New("colour unsupported")}
		env.save(t, testPlan("p1", withFallback()))

		r := env.execute(t, "p1", false).Steps[0]

		if r.Status != StepFailed || !r.FallbackUsed {
			t.Errorf("step = %+v, want failed with fallback used", r)
		}
		if !strings.Contains(r.Error, "command failed") || !strings.Contains(r.Error, "colour unsupported") {
			t.Errorf("Error = %q, want both errors", r.Error)
		}
	})

	t.Run("no fallback when device missing", func(t *testing.T) {
		env := newTestEnv(t)
		env.runner.always[1] = specialist.ErrDeviceNotFound
		env.save(t, testPlan("p1", withFallback()))

		r := env.execute(t, "p1", false).Steps[0]

		if r.FallbackUsed || r.Attempts != 0 {
			t.Errorf("step = %+v, want no fallback and 0 attempts", r)
		}
		if got := len(env.runner.callsFor(1)); got != 1 {
			t.Errorf("runner calls = %d, want 1", got)
		}
	})
}

func TestCoordinator_DryRun(t *testing.T) {
	env := newTestEnv(t)
	env.runner.always[1] = specialist.ErrCommandFailed
	env.save(t, testPlan("p1",
		testStep(1, plan.Ambiance, 3, 500),
		testStep(2, plan.Security, 3, 1000),
	))

	log := env.execute(t, "p1", true)

	if !log.DryRun || log.OverallStatus != StatusSuccess {
		t.Errorf("log = dry %v status %q, want dry success", log.DryRun, log.OverallStatus)
	}
	for _, r := range log.Steps {
		if r.Status != StepCompleted || !r.Simulated || r.Attempts != 0 {
			t.Errorf("step %d = %+v, want simulated completion", r.Order, r)
		}
	}
	if n := env.runner.callCount(); n != 0 {
		t.Errorf("runner calls = %d, want 0", n)
	}
	if len(env.sleeper.delays) != 0 {
		t.Errorf("delays = %v, want none", env.sleeper.delays)
	}
}

func TestCoordinator_ExecuteTakesPlan(t *testing.T) {
	env := newTestEnv(t)
	env.save(t, testPlan("p1", testStep(1, plan.Wellness, 1, 0)))

	env.execute(t, "p1", false)

	if _, err := env.coord.Execute(context.Background(), "p1", "alice", false); !errors.Is(err, ErrPlanNotFound) {
		t.Errorf("second Execute() error = %v, want ErrPlanNotFound", err)
	}
	if _, err := env.coord.Execute(context.Background(), "missing", "alice", false); !errors.Is(err, ErrPlanNotFound) {
		t.Errorf("Execute(missing) error = %v, want ErrPlanNotFound", err)
	}
}

func TestCoordinator_ConcurrentExecuteRunsOnce(t *testing.T) {
	env := newTestEnv(t)
	env.save(t, testPlan("p1", testStep(1, plan.Wellness, 1, 0)))

	const callers = 8
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		runs int
	)
	for range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := env.coord.Execute(context.Background(), "p1", "alice", false); err == nil {
				mu.Lock()
				runs++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if runs != 1 {
		t.Errorf("successful executions = %d, want 1", runs)
	}
	if n := env.runner.callCount(); n != 1 {
		t.Errorf("runner calls = %d, want 1", n)
	}
}

func TestCoordinator_SideEffectFailuresIgnored(t *testing.T) {
	env := newTestEnv(t)
	env.logs.err = errors.New("disk full")
	env.sink.err = errors.New("hub closed")
	env.save(t, testPlan("p1", testStep(1, plan.Ambiance, 1, 0)))

	log := env.execute(t, "p1", false)

	if log.OverallStatus != StatusSuccess {
		t.Errorf("OverallStatus = %q, want success", log.OverallStatus)
	}
	if !env.logger.has("error", "failed to store execution log") {
		t.Error("log store failure not logged")
	}
	if !env.logger.has("warn", "step notification failed") {
		t.Error("notification failure not logged at warn")
	}
}

func TestCoordinator_IgnoresCallerCancellation(t *testing.T) {
	env := newTestEnv(t)
	env.save(t, testPlan("p1",
		testStep(1, plan.Ambiance, 1, 0),
		testStep(2, plan.Security, 1, 0),
	))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	log, err := env.coord.Execute(ctx, "p1", "", false)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if log.OverallStatus != StatusSuccess {
		t.Errorf("OverallStatus = %q, want success", log.OverallStatus)
	}
	for i, e := range env.runner.ctxErrs {
		if e != nil {
			t.Errorf("call %d saw context error %v", i, e)
		}
	}
	// Empty userID falls back to the plan owner.
	if log.UserID != "alice" {
		t.Errorf("UserID = %q, want plan owner", log.UserID)
	}
}

func TestCoordinator_Stats(t *testing.T) {
	env := newTestEnv(t)
	env.runner.always[2] = specialist.ErrCommandFailed
	env.save(t, testPlan("p1", testStep(1, plan.Ambiance, 1, 0), testStep(2, plan.Energy, 1, 0)))
	env.save(t, testPlan("p2", testStep(1, plan.Ambiance, 1, 0)))

	env.execute(t, "p1", false)
	env.execute(t, "p2", true)

	want := Stats{Executions: 2, Successful: 1, Partial: 1, DryRuns: 1, StepsCompleted: 2, StepsFailed: 1}
	if got := env.coord.Stats(); got != want {
		t.Errorf("Stats() = %+v, want %+v", got, want)
	}
}

func TestStepState_Transition(t *testing.T) {
	tests := []struct {
		name    string
		path    []StepStatus
		wantErr bool
	}{
		{"complete", []StepStatus{StepRunning, StepCompleted}, false},
		{"fail", []StepStatus{StepRunning, StepFailed}, false},
		{"skip running", []StepStatus{StepCompleted}, true},
		{"re-enter running", []StepStatus{StepRunning, StepCompleted, StepRunning}, true},
		{"failed to completed", []StepStatus{StepRunning, StepFailed, StepCompleted}, true},
		{"back to pending", []StepStatus{StepRunning, StepPending}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := newStepState()
			var err error
			for _, to := range tt.path {
				if err = st.transition(to); err != nil {
					break
				}
			}
			if (err != nil) != tt.wantErr {
				t.Fatalf("transition error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidTransition) {
				t.Errorf("error = %v, want ErrInvalidTransition", err)
			}
		})
	}
}

func TestAggregate(t *testing.T) {
	tests := []struct {
		name     string
		statuses []StepStatus
		want     OverallStatus
	}{
		{"empty", nil, StatusSuccess},
		{"all completed", []StepStatus{StepCompleted, StepCompleted}, StatusSuccess},
		{"one failed", []StepStatus{StepCompleted, StepFailed}, StatusPartial},
		{"all failed", []StepStatus{StepFailed, StepFailed}, StatusPartial},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results := make([]StepResult, len(tt.statuses))
			for i, s := range tt.statuses {
				results[i] = StepResult{Status: s}
			}
			if got := aggregate(results); got != tt.want {
				t.Errorf("aggregate() = %q, want %q", got, tt.want)
			}
		})
	}
}
