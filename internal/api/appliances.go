package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gray-logic-fresco/internal/bridge"
	"github.com/nerrad567/gray-logic-fresco/internal/kitchenos"
)

const (
	maxQueryParamLen    = 100
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200

	// executeTimeout bounds one cloud command issued over the REST surface,
	// matching the budget the MQTT command path uses.
	executeTimeout = 60 * time.Second
)

// ApplianceSummary is one configured appliance with live status attached.
type ApplianceSummary struct {
	DeviceID    string     `json:"device_id"`
	ModuleIdx   int        `json:"module_idx"`
	Name        string     `json:"name,omitempty"`
	Available   bool       `json:"available"`
	DeviceState string     `json:"device_state,omitempty"`
	LastSeenAt  *time.Time `json:"last_seen_at,omitempty"`
}

// ApplianceState is a live snapshot plus the availability flag.
type ApplianceState struct {
	kitchenos.Snapshot
	Available bool `json:"available"`
}

// ExecuteCommandRequest is the body for POST /appliances/{id}/execute.
// Command and parameter vocabulary match the MQTT command surface.
type ExecuteCommandRequest struct {
	Command    string         `json:"command"`
	Parameters map[string]any `json:"parameters"`
}

// handleListAppliances returns all configured appliances with their
// availability and last known state.
func (s *Server) handleListAppliances(w http.ResponseWriter, _ *http.Request) {
	appliances := s.bridge.Appliances()

	summaries := make([]ApplianceSummary, 0, len(appliances))
	for _, app := range appliances {
		summary := ApplianceSummary{
			DeviceID:  app.DeviceID,
			ModuleIdx: app.ModuleIdx,
			Name:      app.Name,
			Available: s.source.Available(app.DeviceID),
		}
		if snap, ok := s.source.State(app.DeviceID); ok {
			summary.DeviceState = snap.DeviceState
			seen := snap.ReceivedAt
			summary.LastSeenAt = &seen
		}
		summaries = append(summaries, summary)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"appliances": summaries,
		"count":      len(summaries),
	})
}

// handleApplianceState returns the current snapshot for one appliance.
//
// Returns 404 when the appliance is not configured or no push frame has
// been received for it yet.
func (s *Server) handleApplianceState(w http.ResponseWriter, r *http.Request) {
	deviceID := chi.URLParam(r, "id")
	if deviceID == "" || len(deviceID) > maxQueryParamLen {
		writeBadRequest(w, "invalid appliance ID")
		return
	}

	if _, ok := s.bridge.Appliance(deviceID); !ok {
		writeNotFound(w, "appliance not found")
		return
	}

	snap, ok := s.source.State(deviceID)
	if !ok {
		writeNotFound(w, "no state received for appliance")
		return
	}

	writeJSON(w, http.StatusOK, ApplianceState{
		Snapshot:  snap,
		Available: s.source.Available(deviceID),
	})
}

// handleApplianceHistory returns recorded snapshot history for an appliance.
func (s *Server) handleApplianceHistory(w http.ResponseWriter, r *http.Request) {
	deviceID := chi.URLParam(r, "id")
	if deviceID == "" || len(deviceID) > maxQueryParamLen {
		writeBadRequest(w, "invalid appliance ID")
		return
	}

	limit, err := parseHistoryLimit(r.URL.Query().Get("limit"))
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	if _, ok := s.bridge.Appliance(deviceID); !ok {
		writeNotFound(w, "appliance not found")
		return
	}

	if s.history == nil {
		writeUnavailable(w, "state history unavailable")
		return
	}

	entries, err := s.history.History(r.Context(), deviceID, limit)
	if err != nil {
		s.logger.Error("failed to load appliance history", "device_id", deviceID, "error", err)
		writeInternalError(w, "failed to load appliance history")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"device_id": deviceID,
		"history":   entries,
		"count":     len(entries),
	})
}

// handleExecuteCommand executes a cooking command against the cloud.
//
// The request body carries the same verbs and parameters as the MQTT
// command topic. The cloud is consulted synchronously; a 202 response
// carries the cloud's result payload.
func (s *Server) handleExecuteCommand(w http.ResponseWriter, r *http.Request) {
	deviceID := chi.URLParam(r, "id")
	if deviceID == "" || len(deviceID) > maxQueryParamLen {
		writeBadRequest(w, "invalid appliance ID")
		return
	}

	var req ExecuteCommandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Command == "" {
		writeBadRequest(w, "command is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), executeTimeout)
	defer cancel()

	result, err := s.bridge.Execute(ctx, deviceID, req.Command, req.Parameters)
	if err != nil {
		s.writeExecuteError(w, deviceID, req.Command, err)
		return
	}

	writeJSON(w, http.StatusAccepted, result)
}

// writeExecuteError maps command execution failures onto HTTP responses.
//
// The mapping mirrors the ack error codes on the MQTT surface: validation
// problems are client errors, cloud failures are gateway errors.
func (s *Server) writeExecuteError(w http.ResponseWriter, deviceID, command string, err error) {
	switch {
	case errors.Is(err, bridge.ErrNotConfigured):
		writeNotFound(w, "appliance not found")
	case errors.Is(err, bridge.ErrUnknownCommand):
		writeBadRequest(w, err.Error())
	case errors.Is(err, bridge.ErrInvalidParameters), errors.Is(err, kitchenos.ErrInvalidCommand):
		writeError(w, http.StatusBadRequest, ErrCodeValidation, err.Error())
	case errors.Is(err, kitchenos.ErrAuthFailed):
		writeError(w, http.StatusBadGateway, ErrCodeAuthFailed, "cloud authentication failed")
	case errors.Is(err, kitchenos.ErrRequestRejected):
		writeError(w, http.StatusBadGateway, ErrCodeRejected, err.Error())
	default:
		s.logger.Warn("command execution failed",
			"device_id", deviceID,
			"command", command,
			"error", err,
		)
		writeError(w, http.StatusBadGateway, ErrCodeUnreachable, "cloud unreachable")
	}
}

// parseHistoryLimit parses the limit query parameter with bounds enforcement.
func parseHistoryLimit(raw string) (int, error) {
	if raw == "" {
		return defaultHistoryLimit, nil
	}

	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return 0, fmt.Errorf("invalid limit")
	}
	if limit > maxHistoryLimit {
		return 0, fmt.Errorf("limit exceeds maximum")
	}

	return limit, nil
}
