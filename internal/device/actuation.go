package device

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Service is the device actuation boundary: it lists devices, sends command
// batches through a Transport and serves current state.
//
// State lives in the StateStore. After a successful send the applied
// commands are written to the store, then persisted to the registry and
// state history best-effort (failures are logged, never returned).
type Service struct {
	registry  *Registry
	store     *StateStore
	transport Transport
	history   StateHistoryRepository
	logger    Logger
}

// NewService creates an actuation service. The store is seeded from the
// registry's current devices.
func NewService(ctx context.Context, registry *Registry, store *StateStore, transport Transport) (*Service, error) {
	devices, err := registry.ListDevices(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading device states: %w", err)
	}
	store.Load(devices)

	return &Service{
		registry:  registry,
		store:     store,
		transport: transport,
		logger:    noopLogger{},
	}, nil
}

// SetLogger sets the logger for the service.
func (s *Service) SetLogger(logger Logger) {
	s.logger = logger
}

// SetHistory enables state history recording.
func (s *Service) SetHistory(history StateHistoryRepository) {
	s.history = history
}

// ListDevices returns every device with its live state.
func (s *Service) ListDevices(ctx context.Context) ([]Device, error) {
	devices, err := s.registry.ListDevices(ctx)
	if err != nil {
		return nil, err
	}
	for i := range devices {
		s.overlay(&devices[i])
	}
	return devices, nil
}

// ListByType returns devices of one type with live state.
func (s *Service) ListByType(ctx context.Context, t DeviceType) ([]Device, error) {
	devices, err := s.registry.ListByType(ctx, t)
	if err != nil {
		return nil, err
	}
	for i := range devices {
		s.overlay(&devices[i])
	}
	return devices, nil
}

// GetDevice returns a device by ID with live state.
func (s *Service) GetDevice(ctx context.Context, id string) (*Device, error) {
	d, err := s.registry.GetDevice(ctx, id)
	if err != nil {
		return nil, err
	}
	s.overlay(d)
	return d, nil
}

// GetDeviceByName returns a device by display name with live state.
func (s *Service) GetDeviceByName(ctx context.Context, name string) (*Device, error) {
	d, err := s.registry.GetDeviceByName(ctx, name)
	if err != nil {
		return nil, err
	}
	s.overlay(d)
	return d, nil
}

func (s *Service) overlay(d *Device) {
	if st, ok := s.store.Get(d.ID); ok {
		d.State = st
	}
}

// GetDeviceState returns a copy of a device's current state.
func (s *Service) GetDeviceState(ctx context.Context, deviceID string) (State, error) {
	if st, ok := s.store.Get(deviceID); ok {
		return st, nil
	}
	// Device registered after start-up.
	d, err := s.registry.GetDevice(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	s.store.Load([]Device{*d})
	return d.State.Clone(), nil
}

// SendCommands delivers a batch of provider commands to one device.
//
// Calls for the same device are serialised. The returned error wraps
// ErrDeviceNotFound, ErrNoCommands or ErrCommandFailed; the CommandResult
// is filled in either way.
func (s *Service) SendCommands(ctx context.Context, deviceID string, cmds []Command) (CommandResult, error) {
	result := CommandResult{DeviceID: deviceID, CommandID: GenerateID(), Status: CommandStatusError}

	if len(cmds) == 0 {
		result.Error = ErrNoCommands.Error()
		return result, ErrNoCommands
	}

	d, err := s.registry.GetDevice(ctx, deviceID)
	if err != nil {
		result.Error = err.Error()
		return result, err
	}

	unlock := s.store.Lock(deviceID)
	defer unlock()

	start := time.Now()
	applied, err := s.transport.Send(ctx, d, cmds)
	result.Latency = time.Since(start)
	if err != nil {
		if !errors.Is(err, ErrCommandFailed) {
			err = fmt.Errorf("%w: %w", ErrCommandFailed, err)
		}
		result.Error = err.Error()
		s.logger.Warn("device command failed",
			"device_id", deviceID,
			"command_id", result.CommandID,
			"error", err,
		)
		return result, err
	}

	if _, seeded := s.store.Get(deviceID); !seeded {
		s.store.Load([]Device{*d})
	}
	newState := s.store.Apply(deviceID, applied)
	result.Status = CommandStatusOK

	s.logger.Debug("device command applied",
		"device_id", deviceID,
		"command_id", result.CommandID,
		"commands", len(cmds),
		"applied", len(applied),
		"latency_ms", result.Latency.Milliseconds(),
	)

	s.persist(ctx, deviceID, newState)
	return result, nil
}

func (s *Service) persist(ctx context.Context, deviceID string, st State) {
	if err := s.registry.SetDeviceState(ctx, deviceID, st); err != nil {
		s.logger.Warn("persisting device state failed", "device_id", deviceID, "error", err)
	}
	if s.history == nil {
		return
	}
	if err := s.history.RecordStateChange(ctx, deviceID, st, StateHistorySourceCommand); err != nil {
		s.logger.Warn("recording state history failed", "device_id", deviceID, "error", err)
	}
}
