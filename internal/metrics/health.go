package metrics

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// HealthStatus is the JSON body served by the health/ready/live
// endpoints of the HTTP driver demo.
type HealthStatus struct {
	Status        string    `json:"status"`
	Timestamp     time.Time `json:"timestamp"`
	Version       string    `json:"version"`
	UptimeSeconds float64   `json:"uptime_seconds"`
}

var (
	startTime = time.Now()
	version   = "dev"
)

// SetVersion sets the version string reported by every health endpoint.
func SetVersion(v string) {
	version = v
}

func newStatus(status string) HealthStatus {
	return HealthStatus{
		Status:        status,
		Timestamp:     time.Now(),
		Version:       version,
		UptimeSeconds: time.Since(startTime).Seconds(),
	}
}

func writeStatus(w http.ResponseWriter, code int, status HealthStatus) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(status)
}

// HealthHandler reports unconditional process health.
func HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusOK, newStatus("healthy"))
	}
}

// ReadinessHandler reports readiness, additionally consulting
// keyManagerHealthCheck (typically keymanager.Manager.HealthCheck) when
// one is supplied, since a transform can't obtain key material if the
// configured key source is unreachable.
func ReadinessHandler(keyManagerHealthCheck func(context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if keyManagerHealthCheck != nil {
			if err := keyManagerHealthCheck(r.Context()); err != nil {
				status := newStatus("not_ready")
				writeStatus(w, http.StatusServiceUnavailable, status)
				return
			}
		}
		writeStatus(w, http.StatusOK, newStatus("ready"))
	}
}

// LivenessHandler reports unconditional liveness.
func LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusOK, newStatus("alive"))
	}
}
