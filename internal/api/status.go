package api

import (
	"net/http"
	"runtime"
	"time"
)

// SystemStatus is the response of GET /status.
type SystemStatus struct {
	Timestamp     string           `json:"timestamp"`
	Version       string           `json:"version"`
	UptimeSeconds int64            `json:"uptime_seconds"`
	Runtime       RuntimeMetrics   `json:"runtime"`
	Bridge        BridgeMetrics    `json:"bridge"`
	MQTT          *BackendStatus   `json:"mqtt,omitempty"`
	InfluxDB      *BackendStatus   `json:"influxdb,omitempty"`
	Database      *DatabaseMetrics `json:"database,omitempty"`
}

// RuntimeMetrics contains Go runtime statistics.
type RuntimeMetrics struct {
	Goroutines    int     `json:"goroutines"`
	MemoryAllocMB float64 `json:"memory_alloc_mb"`
	MemoryTotalMB float64 `json:"memory_total_mb"`
	NumGC         uint32  `json:"num_gc"`
}

// BridgeMetrics counts connected broker bridges.
type BridgeMetrics struct {
	ConnectedBrokers int `json:"connected_brokers"`
}

// BackendStatus reports an optional backend connection.
type BackendStatus struct {
	Connected bool `json:"connected"`
}

// DatabaseMetrics contains audit database connection pool statistics.
type DatabaseMetrics struct {
	OpenConnections int   `json:"open_connections"`
	InUse           int   `json:"in_use"`
	Idle            int   `json:"idle"`
	WaitCount       int64 `json:"wait_count"`
}

// handleStatus returns runtime and backend status.
func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	status := SystemStatus{
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Version:       s.version,
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		Runtime: RuntimeMetrics{
			Goroutines:    runtime.NumGoroutine(),
			MemoryAllocMB: float64(memStats.Alloc) / 1024 / 1024,
			MemoryTotalMB: float64(memStats.TotalAlloc) / 1024 / 1024,
			NumGC:         memStats.NumGC,
		},
		Bridge: BridgeMetrics{
			ConnectedBrokers: s.hub.ClientCount(),
		},
	}

	if s.mqtt != nil {
		status.MQTT = &BackendStatus{Connected: s.mqtt.IsConnected()}
	}
	if s.influx != nil {
		status.InfluxDB = &BackendStatus{Connected: s.influx.IsConnected()}
	}

	if s.db != nil {
		dbStats := s.db.Stats()
		status.Database = &DatabaseMetrics{
			OpenConnections: dbStats.OpenConnections,
			InUse:           dbStats.InUse,
			Idle:            dbStats.Idle,
			WaitCount:       dbStats.WaitCount,
		}
	}

	writeJSON(w, http.StatusOK, status)
}
