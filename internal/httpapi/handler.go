package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/kenneth/xmlenc-transform/internal/audit"
	"github.com/kenneth/xmlenc-transform/internal/blockcipher"
	"github.com/kenneth/xmlenc-transform/internal/cipherprov"
	"github.com/kenneth/xmlenc-transform/internal/keymanager"
	"github.com/kenneth/xmlenc-transform/internal/keys"
	"github.com/kenneth/xmlenc-transform/internal/metrics"
	"github.com/kenneth/xmlenc-transform/internal/registry"
)

// Handler serves the streaming encrypt/decrypt HTTP demo.
type Handler struct {
	registry   *registry.Registry
	keyManager keymanager.Manager
	logger     *logrus.Logger
	metrics    *metrics.Metrics
	audit      audit.Logger
}

// NewHandler creates a Handler wired to its collaborators.
func NewHandler(reg *registry.Registry, keyManager keymanager.Manager, logger *logrus.Logger, m *metrics.Metrics, auditLogger audit.Logger) *Handler {
	return &Handler{
		registry:   reg,
		keyManager: keyManager,
		logger:     logger,
		metrics:    m,
		audit:      auditLogger,
	}
}

// RegisterRoutes wires every endpoint this handler serves onto r.
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/health", h.wrap("GET", "/health", metrics.HealthHandler())).Methods("GET")
	r.HandleFunc("/ready", h.wrap("GET", "/ready", metrics.ReadinessHandler(h.keyManager.HealthCheck))).Methods("GET")
	r.HandleFunc("/live", h.wrap("GET", "/live", metrics.LivenessHandler())).Methods("GET")

	r.HandleFunc("/objects/{key}", h.handleEncrypt).Methods("PUT")
	r.HandleFunc("/objects/{key}", h.handleDecrypt).Methods("GET")
	r.HandleFunc("/algorithms", h.handleListAlgorithms).Methods("GET")
}

// wrap records RecordHTTPRequest around a plain http.HandlerFunc, for
// the endpoints (health/ready/live) that don't otherwise touch metrics.
func (h *Handler) wrap(method, path string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next(sw, r)
		h.metrics.RecordHTTPRequest(method, path, sw.status, time.Since(start))
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// handleEncrypt streams the request body through an encrypt Transform
// and writes IV‖ciphertext straight back to the client.
func (h *Handler) handleEncrypt(w http.ResponseWriter, r *http.Request) {
	h.runTransform(w, r, cipherprov.Encrypt)
}

// handleDecrypt streams the request body (IV‖ciphertext) through a
// decrypt Transform and writes the recovered plaintext back.
func (h *Handler) handleDecrypt(w http.ResponseWriter, r *http.Request) {
	h.runTransform(w, r, cipherprov.Decrypt)
}

func (h *Handler) runTransform(w http.ResponseWriter, r *http.Request, dir cipherprov.Direction) {
	start := time.Now()
	streamID := mux.Vars(r)["key"]
	algName := r.URL.Query().Get("alg")
	keyID := r.URL.Query().Get("key_id")

	directionLabel := "encrypt"
	if dir == cipherprov.Decrypt {
		directionLabel = "decrypt"
	}

	desc, err := h.registry.Lookup(algName)
	if err != nil {
		h.fail(w, r, streamID, algName, keyID, directionLabel, start, http.StatusBadRequest, err, 0)
		return
	}

	t, err := blockcipher.New(desc.Algorithm, dir)
	if err != nil {
		h.fail(w, r, streamID, algName, keyID, directionLabel, start, http.StatusInternalServerError, err, 0)
		return
	}
	defer t.Finalize()

	req := keys.Request{KeyID: keyID}
	if err := t.SetKeyReq(&req); err != nil {
		h.fail(w, r, streamID, algName, keyID, directionLabel, start, http.StatusInternalServerError, err, 0)
		return
	}
	key, err := h.keyManager.Resolve(r.Context(), req)
	if err != nil {
		h.fail(w, r, streamID, algName, keyID, directionLabel, start, http.StatusForbidden, err, 0)
		return
	}
	defer key.Zero()
	if err := t.SetKey(key); err != nil {
		h.fail(w, r, streamID, algName, keyID, directionLabel, start, http.StatusBadRequest, err, 0)
		return
	}
	if err := t.Initialize(); err != nil {
		h.fail(w, r, streamID, algName, keyID, directionLabel, start, http.StatusInternalServerError, err, 0)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("X-Stream-Algorithm", algName)
	w.WriteHeader(http.StatusOK)

	n, err := pump(t, r.Body, w)
	duration := time.Since(start)
	if err != nil {
		h.logger.WithError(err).WithFields(logrus.Fields{
			"stream_id": streamID,
			"algorithm": algName,
			"direction": directionLabel,
		}).Error("transform failed mid-stream")
		h.metrics.RecordTransformError(algName, directionLabel, blockcipherKind(err))
		h.logAudit(streamID, algName, keyID, key.ID, directionLabel, n, false, err, duration)
		return
	}

	h.metrics.RecordTransform(r.Context(), algName, directionLabel, duration, n)
	h.logAudit(streamID, algName, keyID, key.ID, directionLabel, n, true, nil, duration)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, streamID, algName, keyID, direction string, start time.Time, status int, err error, bytes int64) {
	h.logger.WithError(err).WithFields(logrus.Fields{
		"stream_id": streamID,
		"algorithm": algName,
		"direction": direction,
	}).Error("transform setup failed")
	h.metrics.RecordTransformError(algName, direction, blockcipherKind(err))
	h.metrics.RecordHTTPRequest(r.Method, "/objects/{key}", status, time.Since(start))
	h.logAudit(streamID, algName, keyID, "", direction, bytes, false, err, time.Since(start))
	http.Error(w, err.Error(), status)
}

func (h *Handler) logAudit(streamID, algName, keyIDRequested, keyIDResolved, direction string, bytesProcessed int64, success bool, err error, duration time.Duration) {
	if h.audit == nil {
		return
	}
	keyID := keyIDResolved
	if keyID == "" {
		keyID = keyIDRequested
	}
	metadata := map[string]interface{}{"requested_key_id": keyIDRequested}
	if direction == "encrypt" {
		h.audit.LogEncrypt(streamID, algName, keyID, 0, bytesProcessed, success, err, duration, metadata)
	} else {
		h.audit.LogDecrypt(streamID, algName, keyID, 0, bytesProcessed, success, err, duration, metadata)
	}
}

func blockcipherKind(err error) string {
	var bcErr *blockcipher.Error
	if errors.As(err, &bcErr) {
		return bcErr.Kind.String()
	}
	return "unknown"
}

// handleListAlgorithms reports the transforms this deployment's
// registry allow-list permits.
func (h *Handler) handleListAlgorithms(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, `{"algorithms":[`)
	for i, d := range h.registry.List() {
		if i > 0 {
			fmt.Fprint(w, ",")
		}
		fmt.Fprintf(w, `"%s"`, d.Name)
	}
	fmt.Fprint(w, `]}`)
	h.metrics.RecordHTTPRequest("GET", "/algorithms", http.StatusOK, time.Since(start))
}
