package api

import (
	"net/http"
	"runtime"
	"time"
)

// SystemMetrics represents the complete bridge metrics response.
type SystemMetrics struct {
	Timestamp     string         `json:"timestamp"`
	Version       string         `json:"version"`
	UptimeSeconds int64          `json:"uptime_seconds"`
	Runtime       RuntimeMetrics `json:"runtime"`
	MQTT          MQTTMetrics    `json:"mqtt"`
	Push          PushMetrics    `json:"push"`
	Commands      CommandMetrics `json:"commands"`
	Appliances    int            `json:"appliances"`
}

// RuntimeMetrics contains Go runtime statistics.
type RuntimeMetrics struct {
	Goroutines    int     `json:"goroutines"`
	MemoryAllocMB float64 `json:"memory_alloc_mb"`
	MemoryTotalMB float64 `json:"memory_total_mb"`
	NumGC         uint32  `json:"num_gc"`
}

// MQTTMetrics contains MQTT client statistics.
type MQTTMetrics struct {
	Connected bool `json:"connected"`
}

// PushMetrics contains push channel statistics.
type PushMetrics struct {
	Running        bool       `json:"running"`
	Connected      bool       `json:"connected"`
	ConnectedSince *time.Time `json:"connected_since,omitempty"`
	FramesReceived uint64     `json:"frames_received"`
	FramesDropped  uint64     `json:"frames_dropped"`
	AdvisoryFrames uint64     `json:"advisory_frames"`
	ListenerPanics uint64     `json:"listener_panics"`
	Reconnects     uint64     `json:"reconnects"`
	DevicesSeen    int        `json:"devices_seen"`
}

// CommandMetrics contains command execution counters.
type CommandMetrics struct {
	Executed uint64 `json:"executed"`
	Failed   uint64 `json:"failed"`
}

// handleMetrics returns comprehensive bridge metrics.
func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	// Collect runtime stats
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	pushStats := s.source.Stats()
	bridgeStats := s.bridge.Statistics()

	metrics := SystemMetrics{
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Version:       s.version,
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		Runtime: RuntimeMetrics{
			Goroutines:    runtime.NumGoroutine(),
			MemoryAllocMB: float64(memStats.Alloc) / 1024 / 1024,
			MemoryTotalMB: float64(memStats.TotalAlloc) / 1024 / 1024,
			NumGC:         memStats.NumGC,
		},
		Push: PushMetrics{
			Running:        pushStats.Running,
			Connected:      pushStats.Connected,
			ConnectedSince: pushStats.ConnectedSince,
			FramesReceived: pushStats.FramesReceived,
			FramesDropped:  pushStats.FramesDropped,
			AdvisoryFrames: pushStats.AdvisoryFrames,
			ListenerPanics: pushStats.ListenerPanics,
			Reconnects:     pushStats.ReconnectsTotal,
			DevicesSeen:    pushStats.DevicesSeen,
		},
		Commands: CommandMetrics{
			Executed: bridgeStats.CommandsExecuted,
			Failed:   bridgeStats.CommandsFailed,
		},
		Appliances: len(s.bridge.Appliances()),
	}

	// MQTT metrics (if available)
	if s.mqtt != nil {
		metrics.MQTT = MQTTMetrics{
			Connected: s.mqtt.IsConnected(),
		}
	}

	writeJSON(w, http.StatusOK, metrics)
}
