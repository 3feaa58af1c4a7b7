package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/nerrad567/gray-logic-fresco/internal/kitchenos"
)

// HealthResponse is the payload for GET /health.
type HealthResponse struct {
	Status         string     `json:"status"`
	Version        string     `json:"version"`
	UptimeSeconds  int64      `json:"uptime_seconds"`
	MQTTConnected  bool       `json:"mqtt_connected"`
	PushRunning    bool       `json:"push_running"`
	PushConnected  bool       `json:"push_connected"`
	Authenticated  bool       `json:"authenticated"`
	TokenExpiresAt *time.Time `json:"token_expires_at,omitempty"`
	Appliances     int        `json:"appliances"`
}

// handleHealth returns the bridge health status.
//
// Status is "ok" when every transport leg is up, "degraded" otherwise.
// The response is always 200; callers inspect the status field.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	stats := s.source.Stats()

	resp := HealthResponse{
		Version:       s.version,
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		PushRunning:   stats.Running,
		PushConnected: stats.Connected,
		Authenticated: s.tokens.Authenticated(),
		Appliances:    len(s.bridge.Appliances()),
	}
	if s.mqtt != nil {
		resp.MQTTConnected = s.mqtt.IsConnected()
	}
	if expiry := s.tokens.ExpiresAt(); !expiry.IsZero() {
		utc := expiry.UTC()
		resp.TokenExpiresAt = &utc
	}

	resp.Status = "ok"
	if !resp.PushRunning || !resp.PushConnected || !resp.Authenticated {
		resp.Status = "degraded"
	}
	if s.mqtt != nil && !resp.MQTTConnected {
		resp.Status = "degraded"
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleSession returns unverified identity-token claims for diagnostics.
func (s *Server) handleSession(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.tokens.SessionInfo())
}

// handleCloudSessions proxies the cloud cooking-sessions endpoint.
//
// The vendor payload is returned untouched. This is a debugging aid for
// inspecting what the cloud records about recent cooks.
func (s *Server) handleCloudSessions(w http.ResponseWriter, r *http.Request) {
	if s.cloud == nil {
		writeUnavailable(w, "cloud client unavailable")
		return
	}

	sessions, err := s.cloud.FetchCookingSessions(r.Context())
	if err != nil {
		if errors.Is(err, kitchenos.ErrAuthFailed) {
			writeError(w, http.StatusBadGateway, ErrCodeAuthFailed, "cloud authentication failed")
			return
		}
		s.logger.Warn("failed to fetch cooking sessions", "error", err)
		writeError(w, http.StatusBadGateway, ErrCodeUnreachable, "cloud unreachable")
		return
	}

	writeJSON(w, http.StatusOK, sessions)
}
