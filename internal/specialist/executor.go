package specialist

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/nerrad567/gray-logic-conductor/internal/device"
	"github.com/nerrad567/gray-logic-conductor/internal/plan"
)

// target is one device and the semantic values it should end up with.
type target struct {
	dev      *device.Device
	semantic map[string]any
}

// sent records commands that were accepted, for the post-check.
type sent struct {
	deviceID string
	cmds     []device.Command
}

// executor holds the execution path shared by every specialist.
type executor struct {
	kind    plan.SpecialistKind
	devices Devices
	settle  time.Duration
	logger  Logger
}

func newExecutor(kind plan.SpecialistKind, devices Devices, opts Options) executor {
	settle := opts.SettleDelay
	switch {
	case settle == 0:
		settle = DefaultSettleDelay
	case settle < 0:
		settle = 0
	}
	logger := opts.Logger
	if logger == nil {
		logger = noopLogger{}
	}
	return executor{kind: kind, devices: devices, settle: settle, logger: logger}
}

// resolve looks up each device hint. Unresolvable hints are logged and
// skipped; if none resolve the step fails with ErrDeviceNotFound.
func (x *executor) resolve(ctx context.Context, step plan.EnrichedStep) ([]*device.Device, error) {
	devs := make([]*device.Device, 0, len(step.DeviceHints))
	var missing []string
	for _, hint := range step.DeviceHints {
		d, err := x.devices.GetDeviceByName(ctx, hint)
		if err != nil {
			missing = append(missing, hint)
			continue
		}
		devs = append(devs, d)
	}
	if len(devs) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrDeviceNotFound, strings.Join(step.DeviceHints, ", "))
	}
	if len(missing) > 0 {
		x.logger.Warn("device hints not resolved",
			"specialist", x.kind,
			"order", step.Order,
			"missing", missing,
		)
	}
	return devs, nil
}

// translate maps semantic names to the device's provider identifiers, in
// sorted semantic-name order.
func (x *executor) translate(d *device.Device, semantic map[string]any) []device.Command {
	keys := make([]string, 0, len(semantic))
	for k := range semantic {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	cmds := make([]device.Command, 0, len(keys))
	for _, k := range keys {
		code, mapped := d.ProviderCode(k)
		if !mapped {
			x.logger.Warn("no provider mapping, using semantic name",
				"specialist", x.kind,
				"device_id", d.ID,
				"param", k,
			)
		}
		cmds = append(cmds, device.Command{Name: code, Value: semantic[k]})
	}
	return cmds
}

// run makes one attempt at applying targets.
func (x *executor) run(ctx context.Context, step plan.EnrichedStep, targets []target) error {
	var accepted []sent

	for _, t := range targets {
		cmds := x.translate(t.dev, t.semantic)
		if len(cmds) == 0 {
			// Read-only step: confirm the device answers.
			if _, err := x.devices.GetDeviceState(ctx, t.dev.ID); err != nil {
				return fmt.Errorf("%w: reading %s: %w", ErrCommandFailed, t.dev.Name, err)
			}
			continue
		}

		if step.Validation.PreCheck {
			st, err := x.devices.GetDeviceState(ctx, t.dev.ID)
			if err == nil && atTarget(st, cmds) {
				x.logger.Debug("device already at target, skipping",
					"specialist", x.kind,
					"order", step.Order,
					"device_id", t.dev.ID,
				)
				continue
			}
		}

		if _, err := x.devices.SendCommands(ctx, t.dev.ID, cmds); err != nil {
			if errors.Is(err, device.ErrDeviceNotFound) {
				return fmt.Errorf("%w: %s: %w", ErrDeviceNotFound, t.dev.Name, err)
			}
			return fmt.Errorf("%w: %s: %w", ErrCommandFailed, t.dev.Name, err)
		}
		accepted = append(accepted, sent{deviceID: t.dev.ID, cmds: cmds})
	}

	if !step.Validation.PostCheck || len(accepted) == 0 {
		return nil
	}
	return x.verify(ctx, accepted)
}

// verify waits the settle delay and checks every accepted command took effect.
func (x *executor) verify(ctx context.Context, accepted []sent) error {
	if x.settle > 0 {
		timer := time.NewTimer(x.settle)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %w", ErrValidationMismatch, ctx.Err())
		case <-timer.C:
		}
	}

	for _, s := range accepted {
		st, err := x.devices.GetDeviceState(ctx, s.deviceID)
		if err != nil {
			return fmt.Errorf("%w: reading %s: %w", ErrValidationMismatch, s.deviceID, err)
		}
		for _, c := range s.cmds {
			if !device.ValuesEqual(st[c.Name], c.Value) {
				return fmt.Errorf("%w: %s %s = %v, want %v",
					ErrValidationMismatch, s.deviceID, c.Name, st[c.Name], c.Value)
			}
		}
	}
	return nil
}

func atTarget(st device.State, cmds []device.Command) bool {
	for _, c := range cmds {
		if !device.ValuesEqual(st[c.Name], c.Value) {
			return false
		}
	}
	return true
}

// targetsFor applies the same semantic values to every device.
func targetsFor(devs []*device.Device, semantic map[string]any) []target {
	targets := make([]target, len(devs))
	for i, d := range devs {
		targets[i] = target{dev: d, semantic: semantic}
	}
	return targets
}

// enrichBase clones step and attaches the policy shared by every enrichment.
func enrichBase(step plan.Step, retry plan.RetryPolicy, v plan.Validation) plan.EnrichedStep {
	cpy := step.Clone()
	if cpy.Params == nil {
		cpy.Params = map[string]any{}
	}
	return plan.EnrichedStep{Step: cpy, Retry: retry, Validation: v}
}
