package specialist

import (
	"context"
	"fmt"
	"time"

	"github.com/nerrad567/gray-logic-conductor/internal/device"
	"github.com/nerrad567/gray-logic-conductor/internal/plan"
)

// DefaultSettleDelay is the pause before a post-check re-reads state.
const DefaultSettleDelay = 500 * time.Millisecond

// Specialist enriches and executes the steps of one domain.
type Specialist interface {
	Kind() plan.SpecialistKind
	Enrich(step plan.Step) plan.EnrichedStep
	// Execute makes a single attempt at the step.
	Execute(ctx context.Context, step plan.EnrichedStep) error
}

// Devices is the device actuation boundary as seen by specialists.
type Devices interface {
	GetDeviceByName(ctx context.Context, name string) (*device.Device, error)
	ListByType(ctx context.Context, t device.DeviceType) ([]device.Device, error)
	GetDeviceState(ctx context.Context, deviceID string) (device.State, error)
	SendCommands(ctx context.Context, deviceID string, cmds []device.Command) (device.CommandResult, error)
}

// Logger defines the logging interface used by this package.
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

// Options configures the built-in specialists.
type Options struct {
	// SettleDelay is waited before a post-check. Zero uses DefaultSettleDelay;
	// negative disables the wait.
	SettleDelay time.Duration
	Logger      Logger
}

// Registry maps each specialist kind to its implementation.
type Registry struct {
	specialists map[plan.SpecialistKind]Specialist
}

// NewRegistry registers the given specialists. A later specialist of the
// same kind replaces an earlier one.
func NewRegistry(specialists ...Specialist) *Registry {
	r := &Registry{specialists: make(map[plan.SpecialistKind]Specialist, len(specialists))}
	for _, s := range specialists {
		r.specialists[s.Kind()] = s
	}
	return r
}

// NewDefaultRegistry registers all four built-in specialists.
func NewDefaultRegistry(devices Devices, opts Options) *Registry {
	return NewRegistry(
		NewAmbiance(devices, opts),
		NewSecurity(devices, opts),
		NewEnergy(devices, opts),
		NewWellness(devices, opts),
	)
}

// Get returns the specialist for kind.
func (r *Registry) Get(kind plan.SpecialistKind) (Specialist, bool) {
	s, ok := r.specialists[kind]
	return s, ok
}

// Kinds returns the registered kinds in canonical order.
func (r *Registry) Kinds() []plan.SpecialistKind {
	kinds := make([]plan.SpecialistKind, 0, len(r.specialists))
	for _, k := range plan.AllSpecialists() {
		if _, ok := r.specialists[k]; ok {
			kinds = append(kinds, k)
		}
	}
	return kinds
}

// Enrich enriches step with its specialist. It returns plan.ErrUnknownSpecialist
// when the step names a specialist that is not registered.
func (r *Registry) Enrich(step plan.Step) (plan.EnrichedStep, error) {
	s, ok := r.specialists[step.Specialist]
	if !ok {
		return plan.EnrichedStep{}, fmt.Errorf("%w: %q (step %d)", plan.ErrUnknownSpecialist, step.Specialist, step.Order)
	}
	return s.Enrich(step), nil
}

// Execute runs one attempt of step with its specialist.
func (r *Registry) Execute(ctx context.Context, step plan.EnrichedStep) error {
	s, ok := r.specialists[step.Specialist]
	if !ok {
		return fmt.Errorf("%w: %q (step %d)", plan.ErrUnknownSpecialist, step.Specialist, step.Order)
	}
	return s.Execute(ctx, step)
}
