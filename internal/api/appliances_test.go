package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-fresco/internal/bridge"
	"github.com/nerrad567/gray-logic-fresco/internal/history"
	"github.com/nerrad567/gray-logic-fresco/internal/kitchenos"
)

// ─── Appliance List Tests ──────────────────────────────────────────

func TestListAppliances(t *testing.T) {
	deps, fb, fs, _ := testDeps()
	fb.appliances = []bridge.Appliance{
		{DeviceID: "pot-1", ModuleIdx: 0, Name: "Kitchen Pot"},
		{DeviceID: "pot-2", ModuleIdx: 0, Name: "Garage Pot"},
	}
	fs.setSnapshot(kitchenos.Snapshot{
		DeviceID:    "pot-1",
		DeviceState: "pressure_cook",
		ReceivedAt:  time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC),
	}, true)
	srv := testServer(t, deps)

	w := doRequest(srv, http.MethodGet, "/api/v1/appliances", nil)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var resp struct {
		Appliances []ApplianceSummary `json:"appliances"`
		Count      int                `json:"count"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if resp.Count != 2 {
		t.Fatalf("count = %d, want 2", resp.Count)
	}

	seen := resp.Appliances[0]
	if seen.DeviceID != "pot-1" {
		t.Errorf("device_id = %q, want pot-1", seen.DeviceID)
	}
	if !seen.Available {
		t.Error("expected pot-1 to be available")
	}
	if seen.DeviceState != "pressure_cook" {
		t.Errorf("device_state = %q, want pressure_cook", seen.DeviceState)
	}
	if seen.LastSeenAt == nil || !seen.LastSeenAt.Equal(time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)) {
		t.Errorf("last_seen_at = %v, want 2026-08-25T12:00:00Z", seen.LastSeenAt)
	}

	unseen := resp.Appliances[1]
	if unseen.DeviceID != "pot-2" {
		t.Errorf("device_id = %q, want pot-2", unseen.DeviceID)
	}
	if unseen.Available {
		t.Error("expected pot-2 to be unavailable")
	}
	if unseen.DeviceState != "" || unseen.LastSeenAt != nil {
		t.Error("expected pot-2 to carry no state fields")
	}
}

func TestListAppliances_Empty(t *testing.T) {
	deps, fb, _, _ := testDeps()
	fb.appliances = nil
	srv := testServer(t, deps)

	w := doRequest(srv, http.MethodGet, "/api/v1/appliances", nil)

	var resp struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Count != 0 {
		t.Errorf("count = %d, want 0", resp.Count)
	}
}

// ─── Appliance State Tests ─────────────────────────────────────────

func TestApplianceState(t *testing.T) {
	deps, _, fs, _ := testDeps()
	fs.setSnapshot(kitchenos.Snapshot{
		DeviceID:    "pot-1",
		DeviceState: "keep_warm",
		Capability: &kitchenos.CapabilityState{
			Name:     "KeepWarm",
			Progress: 0.4,
		},
		ReceivedAt: time.Date(2026, 8, 25, 12, 30, 0, 0, time.UTC),
	}, true)
	srv := testServer(t, deps)

	w := doRequest(srv, http.MethodGet, "/api/v1/appliances/pot-1/state", nil)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", w.Code, http.StatusOK, w.Body.String())
	}

	var resp ApplianceState
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if resp.DeviceState != "keep_warm" {
		t.Errorf("device_state = %q, want keep_warm", resp.DeviceState)
	}
	if resp.Capability == nil || resp.Capability.Progress != 0.4 {
		t.Errorf("capability = %+v, want progress 0.4", resp.Capability)
	}
	if !resp.Available {
		t.Error("expected available true")
	}
}

func TestApplianceState_NeverSeen(t *testing.T) {
	deps, _, _, _ := testDeps()
	srv := testServer(t, deps)

	w := doRequest(srv, http.MethodGet, "/api/v1/appliances/pot-1/state", nil)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestApplianceState_UnknownAppliance(t *testing.T) {
	deps, _, _, _ := testDeps()
	srv := testServer(t, deps)

	w := doRequest(srv, http.MethodGet, "/api/v1/appliances/ghost/state", nil)

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusNotFound)
	}

	var resp Error
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Message != "appliance not found" {
		t.Errorf("message = %q, want appliance not found", resp.Message)
	}
}

func TestApplianceState_OversizedID(t *testing.T) {
	deps, _, _, _ := testDeps()
	srv := testServer(t, deps)

	longID := strings.Repeat("x", maxQueryParamLen+1)
	w := doRequest(srv, http.MethodGet, "/api/v1/appliances/"+longID+"/state", nil)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

// ─── Appliance History Tests ───────────────────────────────────────

func TestApplianceHistory(t *testing.T) {
	db := setupTestDB(t)
	recorder := history.NewRecorder(db)
	ctx := context.Background()

	base := time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC)
	for i, state := range []string{"idle", "pressure_cook", "keep_warm"} {
		snap := kitchenos.Snapshot{
			DeviceID:    "pot-1",
			DeviceState: state,
			ReceivedAt:  base.Add(time.Duration(i) * time.Minute),
		}
		if err := recorder.Record(ctx, snap, history.SourcePush); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	deps, _, _, _ := testDeps()
	deps.History = recorder
	srv := testServer(t, deps)

	w := doRequest(srv, http.MethodGet, "/api/v1/appliances/pot-1/history?limit=2", nil)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", w.Code, http.StatusOK, w.Body.String())
	}

	var resp struct {
		DeviceID string          `json:"device_id"`
		History  []history.Entry `json:"history"`
		Count    int             `json:"count"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if resp.DeviceID != "pot-1" {
		t.Errorf("device_id = %q, want pot-1", resp.DeviceID)
	}
	if resp.Count != 2 {
		t.Fatalf("count = %d, want 2", resp.Count)
	}
	// Newest first.
	if resp.History[0].DeviceState != "keep_warm" {
		t.Errorf("history[0].device_state = %q, want keep_warm", resp.History[0].DeviceState)
	}
	if resp.History[1].DeviceState != "pressure_cook" {
		t.Errorf("history[1].device_state = %q, want pressure_cook", resp.History[1].DeviceState)
	}
}

func TestApplianceHistory_DefaultLimit(t *testing.T) {
	db := setupTestDB(t)
	recorder := history.NewRecorder(db)

	if err := recorder.Record(context.Background(), kitchenos.Snapshot{
		DeviceID:    "pot-1",
		DeviceState: "idle",
		ReceivedAt:  time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC),
	}, history.SourcePush); err != nil {
		t.Fatalf("Record: %v", err)
	}

	deps, _, _, _ := testDeps()
	deps.History = recorder
	srv := testServer(t, deps)

	w := doRequest(srv, http.MethodGet, "/api/v1/appliances/pot-1/history", nil)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestApplianceHistory_LimitValidation(t *testing.T) {
	deps, _, _, _ := testDeps()
	deps.History = history.NewRecorder(setupTestDB(t))
	srv := testServer(t, deps)

	tests := []struct {
		name  string
		limit string
	}{
		{"zero", "0"},
		{"negative", "-5"},
		{"not a number", "abc"},
		{"over maximum", "999"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(srv, http.MethodGet, "/api/v1/appliances/pot-1/history?limit="+tt.limit, nil)
			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
			}
		})
	}
}

func TestApplianceHistory_UnknownAppliance(t *testing.T) {
	deps, _, _, _ := testDeps()
	deps.History = history.NewRecorder(setupTestDB(t))
	srv := testServer(t, deps)

	w := doRequest(srv, http.MethodGet, "/api/v1/appliances/ghost/history", nil)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestApplianceHistory_NoStore(t *testing.T) {
	deps, _, _, _ := testDeps()
	deps.History = nil
	srv := testServer(t, deps)

	w := doRequest(srv, http.MethodGet, "/api/v1/appliances/pot-1/history", nil)

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusServiceUnavailable)
	}

	var resp Error
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Code != ErrCodeUnavailable {
		t.Errorf("code = %q, want %q", resp.Code, ErrCodeUnavailable)
	}
}

// ─── Execute Command Tests ─────────────────────────────────────────

func TestExecuteCommand(t *testing.T) {
	deps, fb, _, _ := testDeps()
	fb.result = &kitchenos.ExecuteResult{
		Status: 200,
		Body:   json.RawMessage(`{"accepted":true}`),
	}
	srv := testServer(t, deps)

	body := `{"command":"start_pressure_cook","parameters":{"pressure":"high","cook_time_seconds":600}}`
	w := doRequest(srv, http.MethodPost, "/api/v1/appliances/pot-1/execute", strings.NewReader(body))

	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want %d: %s", w.Code, http.StatusAccepted, w.Body.String())
	}

	var resp kitchenos.ExecuteResult
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Status != 200 {
		t.Errorf("result status = %d, want 200", resp.Status)
	}

	executed := fb.executedCommands()
	if len(executed) != 1 {
		t.Fatalf("executed %d commands, want 1", len(executed))
	}
	if executed[0].DeviceID != "pot-1" || executed[0].Command != "start_pressure_cook" {
		t.Errorf("executed = %+v", executed[0])
	}
	if executed[0].Params["pressure"] != "high" {
		t.Errorf("params = %+v, want pressure high", executed[0].Params)
	}
}

func TestExecuteCommand_InvalidJSON(t *testing.T) {
	deps, fb, _, _ := testDeps()
	srv := testServer(t, deps)

	w := doRequest(srv, http.MethodPost, "/api/v1/appliances/pot-1/execute", strings.NewReader(`{not json`))

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	if len(fb.executedCommands()) != 0 {
		t.Error("executor should not have been called")
	}
}

func TestExecuteCommand_MissingCommand(t *testing.T) {
	deps, fb, _, _ := testDeps()
	srv := testServer(t, deps)

	w := doRequest(srv, http.MethodPost, "/api/v1/appliances/pot-1/execute", strings.NewReader(`{"parameters":{}}`))

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	if len(fb.executedCommands()) != 0 {
		t.Error("executor should not have been called")
	}
}

func TestExecuteCommand_UnknownAppliance(t *testing.T) {
	deps, _, _, _ := testDeps()
	srv := testServer(t, deps)

	body := `{"command":"cancel"}`
	w := doRequest(srv, http.MethodPost, "/api/v1/appliances/ghost/execute", strings.NewReader(body))

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestExecuteCommand_CloudErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "unknown command",
			err:        fmt.Errorf("%w: %q", bridge.ErrUnknownCommand, "make_toast"),
			wantStatus: http.StatusBadRequest,
			wantCode:   ErrCodeBadRequest,
		},
		{
			name:       "invalid parameters",
			err:        fmt.Errorf("%w: pressure must be a string", bridge.ErrInvalidParameters),
			wantStatus: http.StatusBadRequest,
			wantCode:   ErrCodeValidation,
		},
		{
			name:       "builder rejected value",
			err:        fmt.Errorf("%w: pressure %q", kitchenos.ErrInvalidCommand, "ultra"),
			wantStatus: http.StatusBadRequest,
			wantCode:   ErrCodeValidation,
		},
		{
			name:       "auth failure",
			err:        fmt.Errorf("executing command: %w", kitchenos.ErrAuthFailed),
			wantStatus: http.StatusBadGateway,
			wantCode:   ErrCodeAuthFailed,
		},
		{
			name:       "cloud rejected",
			err:        &kitchenos.APIError{Status: 409, Body: "appliance busy"},
			wantStatus: http.StatusBadGateway,
			wantCode:   ErrCodeRejected,
		},
		{
			name:       "transport failure",
			err:        fmt.Errorf("executing command: %w", kitchenos.ErrTransport),
			wantStatus: http.StatusBadGateway,
			wantCode:   ErrCodeUnreachable,
		},
		{
			name:       "timeout",
			err:        context.DeadlineExceeded,
			wantStatus: http.StatusBadGateway,
			wantCode:   ErrCodeUnreachable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deps, fb, _, _ := testDeps()
			fb.err = tt.err
			srv := testServer(t, deps)

			body := `{"command":"cancel"}`
			w := doRequest(srv, http.MethodPost, "/api/v1/appliances/pot-1/execute", strings.NewReader(body))

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d: %s", w.Code, tt.wantStatus, w.Body.String())
			}

			var resp Error
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if resp.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", resp.Code, tt.wantCode)
			}
		})
	}
}
