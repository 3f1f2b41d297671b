package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gray-logic-conductor/internal/device"
)

// DeviceStateChannel carries device state changes made through the API.
const DeviceStateChannel = "device.state_changed"

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
)

// setStateRequest is the body of PUT /devices/{id}/state.
type setStateRequest struct {
	Commands []device.Command `json:"commands"`
}

// handleListDevices returns all devices, optionally filtered by ?type=.
func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var (
		devices []device.Device
		err     error
	)
	if typ := r.URL.Query().Get("type"); typ != "" {
		t := device.DeviceType(typ)
		if !t.IsValid() {
			writeBadRequest(w, "unknown device type: "+typ)
			return
		}
		devices, err = s.devices.ListByType(ctx, t)
	} else {
		devices, err = s.devices.ListDevices(ctx)
	}
	if err != nil {
		s.logger.Error("failed to list devices", "error", err)
		writeInternalError(w, "failed to list devices")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"devices": devices, "count": len(devices)})
}

// handleGetDevice returns a single device by ID.
func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	dev, err := s.devices.GetDevice(r.Context(), id)
	if err != nil {
		if errors.Is(err, device.ErrDeviceNotFound) {
			writeNotFound(w, "device not found")
			return
		}
		writeInternalError(w, "failed to get device")
		return
	}

	writeJSON(w, http.StatusOK, dev)
}

// handleGetDeviceState returns the live state of a device.
func (s *Server) handleGetDeviceState(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	state, err := s.devices.GetDeviceState(r.Context(), id)
	if err != nil {
		if errors.Is(err, device.ErrDeviceNotFound) {
			writeNotFound(w, "device not found")
			return
		}
		writeInternalError(w, "failed to get device state")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"device_id": id,
		"state":     state,
	})
}

// handleSetDeviceState sends provider commands straight to a device,
// bypassing planning. The call returns once the transport has answered.
func (s *Server) handleSetDeviceState(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" || len(id) > maxQueryParamLen {
		writeBadRequest(w, "invalid device ID")
		return
	}

	var req setStateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	for _, cmd := range req.Commands {
		if cmd.Name == "" {
			writeBadRequest(w, "command name is required")
			return
		}
	}

	result, err := s.devices.SendCommands(r.Context(), id, req.Commands)
	if err != nil {
		if errors.Is(err, device.ErrCommandFailed) {
			writeJSON(w, http.StatusBadGateway, result)
			return
		}
		if writeDomainError(w, err) {
			return
		}
		s.logger.Error("failed to send device commands", "error", err, "device_id", id)
		writeInternalError(w, "failed to send commands")
		return
	}

	if state, stateErr := s.devices.GetDeviceState(r.Context(), id); stateErr == nil && s.hub != nil {
		s.hub.Broadcast(DeviceStateChannel, map[string]any{
			"device_id":  id,
			"state":      state,
			"command_id": result.CommandID,
		})
	}

	writeJSON(w, http.StatusOK, result)
}

// handleGetDeviceHistory returns recorded state snapshots for a device, newest first.
func (s *Server) handleGetDeviceHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	deviceID := chi.URLParam(r, "id")
	if deviceID == "" || len(deviceID) > maxQueryParamLen {
		writeBadRequest(w, "invalid device ID")
		return
	}

	limit, err := parseLimit(r.URL.Query().Get("limit"), defaultHistoryLimit, maxHistoryLimit)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	if s.history == nil {
		writeError(w, http.StatusServiceUnavailable, "service_unavailable", "state history unavailable")
		return
	}

	if _, err := s.devices.GetDevice(ctx, deviceID); err != nil {
		if errors.Is(err, device.ErrDeviceNotFound) {
			writeNotFound(w, "device not found")
			return
		}
		writeInternalError(w, "failed to get device")
		return
	}

	entries, err := s.history.GetHistory(ctx, deviceID, limit)
	if err != nil {
		s.logger.Error("failed to load device history", "error", err, "device_id", deviceID)
		writeInternalError(w, "failed to load device history")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"device_id": deviceID,
		"history":   entries,
		"count":     len(entries),
	})
}

// parseLimit parses a positive ?limit= value, applying def when empty.
func parseLimit(raw string, def, maxLimit int) (int, error) {
	if raw == "" {
		return def, nil
	}

	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return 0, fmt.Errorf("invalid limit")
	}
	if limit > maxLimit {
		return 0, fmt.Errorf("limit exceeds maximum of %d", maxLimit)
	}

	return limit, nil
}
