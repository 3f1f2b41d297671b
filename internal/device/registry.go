package device

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

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

const maxNameLength = 100

// Registry is the device catalog: a Repository fronted by an in-memory cache.
//
// The cache is populated by RefreshCache at start-up and kept in sync by the
// registry's own writes. Returned devices are deep copies.
//
// All public methods are thread-safe.
type Registry struct {
	repo    Repository
	cache   map[string]*Device
	cacheMu sync.RWMutex
	logger  Logger
}

// NewRegistry creates a registry over repo.
func NewRegistry(repo Repository) *Registry {
	return &Registry{
		repo:   repo,
		cache:  make(map[string]*Device),
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// RefreshCache reloads all devices from the repository.
func (r *Registry) RefreshCache(ctx context.Context) error {
	devices, err := r.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("loading devices: %w", err)
	}

	r.cacheMu.Lock()
	defer r.cacheMu.Unlock()

	r.cache = make(map[string]*Device, len(devices))
	for i := range devices {
		r.cache[devices[i].ID] = devices[i].DeepCopy()
	}

	r.logger.Info("device cache refreshed", "count", len(devices))
	return nil
}

// Seed creates every catalog device that is not already registered.
// Existing devices keep their persisted state.
func (r *Registry) Seed(ctx context.Context, devices []Device) (created int, err error) {
	for i := range devices {
		d := devices[i].DeepCopy()
		err := r.CreateDevice(ctx, d)
		switch {
		case err == nil:
			created++
		case errors.Is(err, ErrDeviceExists):
			continue
		default:
			return created, fmt.Errorf("seeding %q: %w", devices[i].Name, err)
		}
	}
	if created > 0 {
		r.logger.Info("device catalog seeded", "created", created, "total", r.GetDeviceCount())
	}
	return created, nil
}

// GetDevice retrieves a device by ID.
func (r *Registry) GetDevice(ctx context.Context, id string) (*Device, error) {
	r.cacheMu.RLock()
	cached, ok := r.cache[id]
	r.cacheMu.RUnlock()
	if ok {
		return cached.DeepCopy(), nil
	}

	d, err := r.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	r.cacheMu.Lock()
	r.cache[id] = d.DeepCopy()
	r.cacheMu.Unlock()

	return d, nil
}

// GetDeviceByName retrieves a device by display name, ignoring case and
// surrounding whitespace.
func (r *Registry) GetDeviceByName(_ context.Context, name string) (*Device, error) {
	want := strings.TrimSpace(name)

	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()

	for _, d := range r.cache {
		if strings.EqualFold(d.Name, want) {
			return d.DeepCopy(), nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrDeviceNotFound, name)
}

// ListDevices returns all cached devices ordered by name.
func (r *Registry) ListDevices(_ context.Context) ([]Device, error) {
	return r.filter(func(*Device) bool { return true }), nil
}

// ListByType returns devices of the given type ordered by name.
func (r *Registry) ListByType(_ context.Context, t DeviceType) ([]Device, error) {
	return r.filter(func(d *Device) bool { return d.Type == t }), nil
}

func (r *Registry) filter(keep func(*Device) bool) []Device {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()

	devices := make([]Device, 0, len(r.cache))
	for _, d := range r.cache {
		if keep(d) {
			devices = append(devices, *d.DeepCopy())
		}
	}
	sort.Slice(devices, func(i, j int) bool { return devices[i].Name < devices[j].Name })
	return devices
}

// CreateDevice validates and persists a device, generating an ID if needed.
func (r *Registry) CreateDevice(ctx context.Context, d *Device) error {
	if d.ID == "" {
		d.ID = GenerateID()
	}
	if err := ValidateDevice(d); err != nil {
		return err
	}
	if d.State == nil {
		d.State = State{}
	}

	if err := r.repo.Create(ctx, d); err != nil {
		return err
	}

	r.cacheMu.Lock()
	r.cache[d.ID] = d.DeepCopy()
	r.cacheMu.Unlock()

	r.logger.Info("device created", "id", d.ID, "name", d.Name)
	return nil
}

// DeleteDevice removes a device.
func (r *Registry) DeleteDevice(ctx context.Context, id string) error {
	if err := r.repo.Delete(ctx, id); err != nil {
		return err
	}

	r.cacheMu.Lock()
	delete(r.cache, id)
	r.cacheMu.Unlock()

	r.logger.Info("device deleted", "id", id)
	return nil
}

// SetDeviceState persists a state snapshot and refreshes the cached copy.
func (r *Registry) SetDeviceState(ctx context.Context, id string, state State) error {
	if err := r.repo.UpdateState(ctx, id, state); err != nil {
		return err
	}

	r.cacheMu.Lock()
	if cached, ok := r.cache[id]; ok {
		updated := cached.DeepCopy()
		updated.State = state.Clone()
		now := time.Now().UTC()
		updated.StateUpdatedAt = &now
		r.cache[id] = updated
	}
	r.cacheMu.Unlock()

	r.logger.Debug("device state persisted", "id", id)
	return nil
}

// GetDeviceCount returns the number of cached devices.
func (r *Registry) GetDeviceCount() int {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()
	return len(r.cache)
}

// ValidateDevice checks the catalog fields of a device.
func ValidateDevice(d *Device) error {
	name := strings.TrimSpace(d.Name)
	if name == "" || len(name) > maxNameLength {
		return fmt.Errorf("%w: name must be 1-%d characters", ErrInvalidDevice, maxNameLength)
	}
	if !d.Type.IsValid() {
		return fmt.Errorf("%w: unknown type %q", ErrInvalidDevice, d.Type)
	}
	for semantic, code := range d.Commands {
		if semantic == "" || code == "" {
			return fmt.Errorf("%w: empty command mapping on %q", ErrInvalidDevice, d.Name)
		}
	}
	return nil
}
