package specialist

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"testing"

	"github.com/nerrad567/gray-logic-conductor/internal/device"
	"github.com/nerrad567/gray-logic-conductor/internal/plan"
)

// mockDevices is an in-memory Devices backed by the default catalog.
type mockDevices struct {
	mu      sync.Mutex
	devices map[string]*device.Device
	sendErr map[string]error
	// ignore makes SendCommands succeed without changing state.
	ignore map[string]bool
	sends  []string
}

func newMockDevices() *mockDevices {
	m := &mockDevices{
		devices: make(map[string]*device.Device),
		sendErr: make(map[string]error),
		ignore:  make(map[string]bool),
	}
	for _, d := range device.DefaultCatalog() {
		m.devices[d.ID] = d.DeepCopy()
	}
	return m
}

func (m *mockDevices) GetDeviceByName(_ context.Context, name string) (*device.Device, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range m.devices {
		if strings.EqualFold(d.Name, strings.TrimSpace(name)) {
			return d.DeepCopy(), nil
		}
	}
	return nil, fmt.Errorf("%w: %q", device.ErrDeviceNotFound, name)
}

func (m *mockDevices) ListByType(_ context.Context, t device.DeviceType) ([]device.Device, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []device.Device
	for _, d := range m.devices {
		if d.Type == t {
			out = append(out, *d.DeepCopy())
		}
	}
	return out, nil
}

func (m *mockDevices) GetDeviceState(_ context.Context, id string) (device.State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.devices[id]
	if !ok {
		return nil, device.ErrDeviceNotFound
	}
	return d.State.Clone(), nil
}

func (m *mockDevices) SendCommands(_ context.Context, id string, cmds []device.Command) (device.CommandResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sends = append(m.sends, id)
	if err := m.sendErr[id]; err != nil {
		return device.CommandResult{DeviceID: id, Status: device.CommandStatusError}, err
	}
	if !m.ignore[id] {
		for _, c := range cmds {
			m.devices[id].State[c.Name] = c.Value
		}
	}
	return device.CommandResult{DeviceID: id, Status: device.CommandStatusOK}, nil
}

func (m *mockDevices) state(id, key string) any {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.devices[id].State[key]
}

func (m *mockDevices) sendCount(id string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, s := range m.sends {
		if s == id {
			n++
		}
	}
	return n
}

// recordingLogger captures warnings.
type recordingLogger struct {
	mu    sync.Mutex
	warns []string
}

func (l *recordingLogger) Debug(string, ...any) {}
func (l *recordingLogger) Info(string, ...any)  {}
func (l *recordingLogger) Warn(msg string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warns = append(l.warns, msg)
}
func (l *recordingLogger) Error(string, ...any) {}

func newTestRegistry(t *testing.T) (*Registry, *mockDevices, *recordingLogger) {
	t.Helper()
	devs := newMockDevices()
	logger := &recordingLogger{}
	return NewDefaultRegistry(devs, Options{SettleDelay: -1, Logger: logger}), devs, logger
}

func enrich(t *testing.T, r *Registry, step plan.Step) plan.EnrichedStep {
	t.Helper()
	e, err := r.Enrich(step)
	if err != nil {
		t.Fatalf("Enrich() error = %v", err)
	}
	return e
}

func TestEnrich_Defaults(t *testing.T) {
	r, _, _ := newTestRegistry(t)

	tests := []struct {
		step     plan.Step
		retry    plan.RetryPolicy
		valid    plan.Validation
		fallback bool
	}{
		{
			plan.Step{Specialist: plan.Ambiance, Action: ActionDim, Params: map[string]any{"brightness": 30, "color_temp": 2700}},
			plan.RetryPolicy{MaxAttempts: 3, BackoffMS: 500}, plan.Validation{PostCheck: true}, true,
		},
		{
			plan.Step{Specialist: plan.Ambiance, Action: ActionStatusCheck},
			plan.RetryPolicy{MaxAttempts: 3, BackoffMS: 500}, plan.Validation{}, false,
		},
		{
			plan.Step{Specialist: plan.Security, Action: ActionLock},
			plan.RetryPolicy{MaxAttempts: 3, BackoffMS: 1000}, plan.Validation{PreCheck: true, PostCheck: true}, false,
		},
		{
			plan.Step{Specialist: plan.Energy, Action: ActionSetTemperature, Params: map[string]any{"target": 70}},
			plan.RetryPolicy{MaxAttempts: 2, BackoffMS: 1000}, plan.Validation{PostCheck: true}, false,
		},
		{
			plan.Step{Specialist: plan.Wellness, Action: ActionPlaySound},
			plan.RetryPolicy{MaxAttempts: 2, BackoffMS: 250}, plan.Validation{}, false,
		},
	}
	for _, tt := range tests {
		t.Run(string(tt.step.Specialist)+"/"+tt.step.Action, func(t *testing.T) {
			e := enrich(t, r, tt.step)
			if e.Retry != tt.retry {
				t.Errorf("Retry = %+v, want %+v", e.Retry, tt.retry)
			}
			if e.Validation != tt.valid {
				t.Errorf("Validation = %+v, want %+v", e.Validation, tt.valid)
			}
			if (e.Fallback != nil) != tt.fallback {
				t.Errorf("Fallback = %+v, want present=%v", e.Fallback, tt.fallback)
			}
		})
	}
}

func TestEnrich_Clamps(t *testing.T) {
	r, _, _ := newTestRegistry(t)

	tests := []struct {
		name string
		step plan.Step
		key  string
		want any
	}{
		{"brightness high", plan.Step{Specialist: plan.Ambiance, Action: ActionDim, Params: map[string]any{"brightness": 150}}, "brightness", 100},
		{"brightness night", plan.Step{Specialist: plan.Ambiance, Action: ActionDim, Params: map[string]any{"brightness": 80, "night": true}}, "brightness", 30},
		{"brightness float", plan.Step{Specialist: plan.Ambiance, Action: ActionDim, Params: map[string]any{"brightness": -5.5}}, "brightness", 0.0},
		{"color temp low", plan.Step{Specialist: plan.Ambiance, Action: ActionDim, Params: map[string]any{"color_temp": 1000}}, "color_temp", 2000},
		{"color temp high", plan.Step{Specialist: plan.Ambiance, Action: ActionDim, Params: map[string]any{"color_temp": 9000}}, "color_temp", 6500},
		{"target low", plan.Step{Specialist: plan.Energy, Action: ActionSetTemperature, Params: map[string]any{"target": 40}}, "target", 50},
		{"target high", plan.Step{Specialist: plan.Energy, Action: ActionSetTemperature, Params: map[string]any{"target": 90}}, "target", 85},
		{"target in range", plan.Step{Specialist: plan.Energy, Action: ActionSetTemperature, Params: map[string]any{"target": 72}}, "target", 72},
		{"volume", plan.Step{Specialist: plan.Wellness, Action: ActionPlaySound, Params: map[string]any{"volume": 140}}, "volume", 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := enrich(t, r, tt.step)
			if got := e.Params[tt.key]; got != tt.want {
				t.Errorf("Params[%q] = %v (%T), want %v (%T)", tt.key, got, got, tt.want, tt.want)
			}
		})
	}
}

func TestEnrich_DoesNotMutateInput(t *testing.T) {
	r, _, _ := newTestRegistry(t)
	params := map[string]any{"brightness": 150}
	_ = enrich(t, r, plan.Step{Specialist: plan.Ambiance, Action: ActionDim, Params: params})
	if params["brightness"] != 150 {
		t.Errorf("input params mutated: %v", params)
	}
}

func TestEnrich_Idempotent(t *testing.T) {
	r, _, _ := newTestRegistry(t)

	steps := []plan.Step{
		{Order: 1, Specialist: plan.Ambiance, Action: ActionDim, DeviceHints: []string{"Living Room Light"},
			Params: map[string]any{"brightness": 130, "color_temp": 1500, "night": true}},
		{Order: 2, Specialist: plan.Security, Action: ActionVerifyLock, DeviceHints: []string{"Front Door Lock"},
			Params: map[string]any{"locked": true}},
		{Order: 3, Specialist: plan.Energy, Action: ActionSetTemperature, Params: map[string]any{"target": 99}},
		{Order: 4, Specialist: plan.Wellness, Action: ActionPlaySound, Params: map[string]any{"volume": -3}},
		{Order: 5, Specialist: plan.Ambiance, Action: ActionStatusCheck},
	}
	for _, s := range steps {
		once := enrich(t, r, s)
		twice := enrich(t, r, once.Step)
		if !reflect.DeepEqual(once, twice) {
			t.Errorf("step %d: Enrich not idempotent:\n once  %+v\n twice %+v", s.Order, once, twice)
		}
	}
}

func TestRegistry_UnknownSpecialist(t *testing.T) {
	r := NewRegistry(NewAmbiance(newMockDevices(), Options{}))

	if _, err := r.Enrich(plan.Step{Specialist: plan.Security}); !errors.Is(err, plan.ErrUnknownSpecialist) {
		t.Errorf("Enrich(unregistered) error = %v, want ErrUnknownSpecialist", err)
	}
	if _, err := r.Enrich(plan.Step{Specialist: "gardening"}); !errors.Is(err, plan.ErrUnknownSpecialist) {
		t.Errorf("Enrich(unknown) error = %v, want ErrUnknownSpecialist", err)
	}
	if err := r.Execute(context.Background(), plan.EnrichedStep{Step: plan.Step{Specialist: plan.Energy}}); !errors.Is(err, plan.ErrUnknownSpecialist) {
		t.Errorf("Execute(unregistered) error = %v, want ErrUnknownSpecialist", err)
	}
	if got := r.Kinds(); !reflect.DeepEqual(got, []plan.SpecialistKind{plan.Ambiance}) {
		t.Errorf("Kinds() = %v", got)
	}
}

func TestExecute_AmbianceDim(t *testing.T) {
	r, devs, _ := newTestRegistry(t)
	step := enrich(t, r, plan.Step{
		Order: 1, Specialist: plan.Ambiance, Action: ActionDim,
		DeviceHints: []string{"living room light"},
		Params:      map[string]any{"brightness": 30, "color_temp": 2700},
	})

	if err := r.Execute(context.Background(), step); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if got := devs.state("light-living", "bright_value"); got != 30 {
		t.Errorf("bright_value = %v, want 30", got)
	}
	if got := devs.state("light-living", "temp_value"); got != 2700 {
		t.Errorf("temp_value = %v, want 2700", got)
	}
	if got := devs.state("light-living", "switch_led"); got != true {
		t.Errorf("switch_led = %v, want true", got)
	}
}

func TestExecute_AmbianceClosesWindows(t *testing.T) {
	r, devs, _ := newTestRegistry(t)
	step := enrich(t, r, plan.Step{
		Order: 1, Specialist: plan.Ambiance, Action: ActionLightsOff,
		DeviceHints: []string{"Living Room Light"},
		Params:      map[string]any{"close_windows": true},
	})

	if err := r.Execute(context.Background(), step); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if got := devs.state("window-living", "control_closed"); got != true {
		t.Errorf("control_closed = %v, want true", got)
	}
	if got := devs.state("light-living", "switch_led"); got != false {
		t.Errorf("switch_led = %v, want false", got)
	}
	// Directives never reach lights.
	if _, ok := devs.devices["light-living"].State["close_windows"]; ok {
		t.Error("close_windows sent to a light")
	}
}

func TestExecute_DeviceNotFound(t *testing.T) {
	r, devs, _ := newTestRegistry(t)
	step := enrich(t, r, plan.Step{
		Order: 1, Specialist: plan.Security, Action: ActionLock,
		DeviceHints: []string{"Garage Door"},
	})

	err := r.Execute(context.Background(), step)
	if !errors.Is(err, ErrDeviceNotFound) {
		t.Fatalf("Execute() error = %v, want ErrDeviceNotFound", err)
	}
	if IsRetryable(err) {
		t.Error("IsRetryable(ErrDeviceNotFound) = true")
	}
	if len(devs.sends) != 0 {
		t.Errorf("commands sent = %v, want none", devs.sends)
	}
}

func TestExecute_PartialHintsResolve(t *testing.T) {
	r, devs, logger := newTestRegistry(t)
	step := enrich(t, r, plan.Step{
		Order: 1, Specialist: plan.Security, Action: ActionLock,
		DeviceHints: []string{"Garage Door", "Back Door Lock"},
	})

	if err := r.Execute(context.Background(), step); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if devs.state("lock-back", "lock_motor_state") != true {
		t.Error("back door not locked")
	}
	if len(logger.warns) == 0 {
		t.Error("no warning for unresolved hint")
	}
}

func TestExecute_CommandFailed(t *testing.T) {
	r, devs, _ := newTestRegistry(t)
	devs.sendErr["thermostat-bedroom"] = fmt.Errorf("%w: timeout", device.ErrCommandFailed)
	step := enrich(t, r, plan.Step{
		Order: 3, Specialist: plan.Energy, Action: ActionSetTemperature,
		DeviceHints: []string{"Bedroom Thermostat"}, Params: map[string]any{"target": 70},
	})

	err := r.Execute(context.Background(), step)
	if !errors.Is(err, ErrCommandFailed) {
		t.Fatalf("Execute() error = %v, want ErrCommandFailed", err)
	}
	if !IsRetryable(err) {
		t.Error("IsRetryable(ErrCommandFailed) = false")
	}
}

func TestExecute_PostCheckMismatch(t *testing.T) {
	r, devs, _ := newTestRegistry(t)
	devs.ignore["thermostat-bedroom"] = true
	step := enrich(t, r, plan.Step{
		Order: 1, Specialist: plan.Energy, Action: ActionSetTemperature,
		DeviceHints: []string{"Bedroom Thermostat"}, Params: map[string]any{"target": 72},
	})

	err := r.Execute(context.Background(), step)
	if !errors.Is(err, ErrValidationMismatch) {
		t.Fatalf("Execute() error = %v, want ErrValidationMismatch", err)
	}
	if !IsRetryable(err) {
		t.Error("IsRetryable(ErrValidationMismatch) = false")
	}
}

func TestExecute_NoPostCheckIgnoresMismatch(t *testing.T) {
	r, devs, _ := newTestRegistry(t)
	devs.ignore["speaker-bedroom"] = true
	step := enrich(t, r, plan.Step{
		Order: 1, Specialist: plan.Wellness, Action: ActionPlaySound,
		DeviceHints: []string{"Bedroom Speaker"}, Params: map[string]any{"sound": "white_noise", "volume": 20},
	})

	if err := r.Execute(context.Background(), step); err != nil {
		t.Errorf("Execute() error = %v, want nil without post-check", err)
	}
}

func TestExecute_PreCheckSkipsDevicesAtTarget(t *testing.T) {
	r, devs, _ := newTestRegistry(t)
	devs.devices["lock-front"].State["lock_motor_state"] = true
	step := enrich(t, r, plan.Step{
		Order: 2, Specialist: plan.Security, Action: ActionVerifyLock,
		DeviceHints: []string{"Front Door Lock"},
	})

	if err := r.Execute(context.Background(), step); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if n := devs.sendCount("lock-front"); n != 0 {
		t.Errorf("commands sent to already-locked door = %d, want 0", n)
	}
}

func TestExecute_MissingMappingUsesSemanticName(t *testing.T) {
	r, devs, logger := newTestRegistry(t)
	step := enrich(t, r, plan.Step{
		Order: 1, Specialist: plan.Wellness, Action: "set_equalizer",
		DeviceHints: []string{"Living Room Speaker"}, Params: map[string]any{"bass": 4},
	})

	if err := r.Execute(context.Background(), step); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if got := devs.state("speaker-living", "bass"); got != 4 {
		t.Errorf("bass = %v, want 4 under its semantic name", got)
	}
	if len(logger.warns) == 0 {
		t.Error("no warning for missing provider mapping")
	}
}

func TestExecute_StatusCheckSendsNothing(t *testing.T) {
	r, devs, _ := newTestRegistry(t)
	step := enrich(t, r, plan.Step{
		Order: 1, Specialist: plan.Ambiance, Action: ActionStatusCheck,
		DeviceHints: []string{"Living Room Light"},
	})

	if err := r.Execute(context.Background(), step); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if len(devs.sends) != 0 {
		t.Errorf("status check sent commands: %v", devs.sends)
	}
}

func TestExecute_FallbackStep(t *testing.T) {
	r, devs, _ := newTestRegistry(t)
	step := enrich(t, r, plan.Step{
		Order: 1, Specialist: plan.Ambiance, Action: ActionDim,
		DeviceHints: []string{"Living Room Light"},
		Params:      map[string]any{"brightness": 30, "color": "ff0000"},
	})

	fb, ok := step.FallbackStep()
	if !ok {
		t.Fatal("no fallback for colour step")
	}
	if err := r.Execute(context.Background(), fb); err != nil {
		t.Fatalf("Execute(fallback) error = %v", err)
	}
	if devs.state("light-living", "bright_value") != 30 {
		t.Error("fallback did not set brightness")
	}
	if _, ok := devs.devices["light-living"].State["colour_data"]; ok {
		t.Error("fallback sent colour")
	}
}
