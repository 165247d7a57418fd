// Package audit records a durable trail of transform operations —
// which stream was encrypted or decrypted, with which algorithm and
// key version, and whether it succeeded — independent of the
// Prometheus counters in internal/metrics, which aggregate and don't
// retain per-operation detail.
package audit

import (
	"fmt"
	"sync"
	"time"

	"github.com/kenneth/xmlenc-transform/internal/config"
)

// EventType identifies the kind of operation an AuditEvent describes.
type EventType string

const (
	// EventTypeEncrypt records a completed or failed encrypt transform.
	EventTypeEncrypt EventType = "encrypt"
	// EventTypeDecrypt records a completed or failed decrypt transform.
	EventTypeDecrypt EventType = "decrypt"
	// EventTypeKeyRotation records a key manager active-version change.
	EventTypeKeyRotation EventType = "key_rotation"
	// EventTypeAccess records a key resolution or other access event.
	EventTypeAccess EventType = "access"
)

// AuditEvent is a single recorded operation.
type AuditEvent struct {
	Timestamp      time.Time              `json:"timestamp"`
	EventType      EventType              `json:"event_type"`
	Operation      string                 `json:"operation"`
	StreamID       string                 `json:"stream_id,omitempty"`
	Algorithm      string                 `json:"algorithm,omitempty"`
	KeyID          string                 `json:"key_id,omitempty"`
	KeyVersion     int                    `json:"key_version,omitempty"`
	BytesProcessed int64                  `json:"bytes_processed,omitempty"`
	ClientIP       string                 `json:"client_ip,omitempty"`
	RequestID      string                 `json:"request_id,omitempty"`
	Success        bool                   `json:"success"`
	Error          string                 `json:"error,omitempty"`
	Duration       time.Duration          `json:"duration_ms"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
}

// Logger records transform, key-management, and access events.
type Logger interface {
	// Log records an arbitrary event.
	Log(event *AuditEvent) error

	// LogEncrypt records a completed or failed encrypt transform on streamID.
	LogEncrypt(streamID, algorithm, keyID string, keyVersion int, bytesProcessed int64, success bool, err error, duration time.Duration, metadata map[string]interface{})

	// LogDecrypt records a completed or failed decrypt transform on streamID.
	LogDecrypt(streamID, algorithm, keyID string, keyVersion int, bytesProcessed int64, success bool, err error, duration time.Duration, metadata map[string]interface{})

	// LogKeyRotation records a key manager active-version change.
	LogKeyRotation(keyID string, keyVersion int, success bool, err error)

	// LogAccess records a key resolution or other non-transform access.
	LogAccess(eventType, keyID, clientIP, requestID string, success bool, err error, duration time.Duration)

	// GetEvents returns a snapshot of the in-memory event ring buffer.
	GetEvents() []*AuditEvent

	// Close closes the logger and its underlying writer.
	Close() error
}

type auditLogger struct {
	mu         sync.Mutex
	events     []*AuditEvent
	maxEvents  int
	writer     EventWriter
	redactKeys []string
}

// EventWriter writes audit events to a durable sink.
type EventWriter interface {
	WriteEvent(event *AuditEvent) error
}

// NewLogger creates a logger with no metadata redaction.
func NewLogger(maxEvents int, writer EventWriter) Logger {
	return NewLoggerWithRedaction(maxEvents, writer, nil)
}

// NewLoggerWithRedaction creates a logger that masks the named
// metadata keys (e.g. "passphrase") on events built by LogEncrypt and
// LogDecrypt before writing or retaining them. Events passed to Log
// directly are written and retained as given.
func NewLoggerWithRedaction(maxEvents int, writer EventWriter, redactKeys []string) Logger {
	if writer == nil {
		writer = &StdoutSink{}
	}

	return &auditLogger{
		events:     make([]*AuditEvent, 0, maxEvents),
		maxEvents:  maxEvents,
		writer:     writer,
		redactKeys: redactKeys,
	}
}

// NewLoggerFromConfig builds a logger and its sink from cfg.
func NewLoggerFromConfig(cfg config.AuditConfig) (Logger, error) {
	var writer EventWriter

	switch cfg.Sink.Type {
	case "http":
		writer = NewHTTPSink(cfg.Sink.Endpoint, cfg.Sink.Headers)
	case "file":
		writer = NewFileSink(cfg.Sink.FilePath)
	case "stdout", "":
		writer = &StdoutSink{}
	default:
		return nil, fmt.Errorf("audit: unknown sink type %q", cfg.Sink.Type)
	}

	if cfg.Sink.BatchSize > 0 || cfg.Sink.FlushInterval > 0 {
		writer = NewBatchSink(writer, cfg.Sink.BatchSize, cfg.Sink.FlushInterval, cfg.Sink.RetryCount, cfg.Sink.RetryBackoff)
	}

	return NewLoggerWithRedaction(cfg.MaxEvents, writer, cfg.RedactMetadataKeys), nil
}

// Log records event, writing it to the underlying sink and retaining
// it in the bounded in-memory ring buffer.
func (l *auditLogger) Log(event *AuditEvent) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.writer != nil {
		_ = l.writer.WriteEvent(event)
	}

	l.events = append(l.events, event)
	if len(l.events) > l.maxEvents {
		l.events = l.events[len(l.events)-l.maxEvents:]
	}

	return nil
}

// Close closes the underlying writer, if it supports closing.
func (l *auditLogger) Close() error {
	if closer, ok := l.writer.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}

func (l *auditLogger) redactMetadata(metadata map[string]interface{}) map[string]interface{} {
	if len(l.redactKeys) == 0 || len(metadata) == 0 {
		return metadata
	}

	needsRedaction := false
	for _, k := range l.redactKeys {
		if _, ok := metadata[k]; ok {
			needsRedaction = true
			break
		}
	}
	if !needsRedaction {
		return metadata
	}

	clone := make(map[string]interface{}, len(metadata))
	for k, v := range metadata {
		clone[k] = v
	}
	for _, key := range l.redactKeys {
		if _, ok := clone[key]; ok {
			clone[key] = "[REDACTED]"
		}
	}
	return clone
}

// LogEncrypt records a completed or failed encrypt transform on streamID.
func (l *auditLogger) LogEncrypt(streamID, algorithm, keyID string, keyVersion int, bytesProcessed int64, success bool, err error, duration time.Duration, metadata map[string]interface{}) {
	event := &AuditEvent{
		Timestamp:      time.Now(),
		EventType:      EventTypeEncrypt,
		Operation:      "encrypt",
		StreamID:       streamID,
		Algorithm:      algorithm,
		KeyID:          keyID,
		KeyVersion:     keyVersion,
		BytesProcessed: bytesProcessed,
		Success:        success,
		Duration:       duration,
		Metadata:       l.redactMetadata(metadata),
	}
	if err != nil {
		event.Error = err.Error()
	}
	l.Log(event)
}

// LogDecrypt records a completed or failed decrypt transform on streamID.
func (l *auditLogger) LogDecrypt(streamID, algorithm, keyID string, keyVersion int, bytesProcessed int64, success bool, err error, duration time.Duration, metadata map[string]interface{}) {
	event := &AuditEvent{
		Timestamp:      time.Now(),
		EventType:      EventTypeDecrypt,
		Operation:      "decrypt",
		StreamID:       streamID,
		Algorithm:      algorithm,
		KeyID:          keyID,
		KeyVersion:     keyVersion,
		BytesProcessed: bytesProcessed,
		Success:        success,
		Duration:       duration,
		Metadata:       l.redactMetadata(metadata),
	}
	if err != nil {
		event.Error = err.Error()
	}
	l.Log(event)
}

// LogKeyRotation records a key manager active-version change.
func (l *auditLogger) LogKeyRotation(keyID string, keyVersion int, success bool, err error) {
	event := &AuditEvent{
		Timestamp:  time.Now(),
		EventType:  EventTypeKeyRotation,
		Operation:  "key_rotation",
		KeyID:      keyID,
		KeyVersion: keyVersion,
		Success:    success,
	}
	if err != nil {
		event.Error = err.Error()
	}
	l.Log(event)
}

// LogAccess records a key resolution or other non-transform access.
func (l *auditLogger) LogAccess(eventType, keyID, clientIP, requestID string, success bool, err error, duration time.Duration) {
	event := &AuditEvent{
		Timestamp: time.Now(),
		EventType: EventType(eventType),
		Operation: eventType,
		KeyID:     keyID,
		ClientIP:  clientIP,
		RequestID: requestID,
		Success:   success,
		Duration:  duration,
	}
	if err != nil {
		event.Error = err.Error()
	}
	l.Log(event)
}

// GetEvents returns a copy of the retained events, newest last.
func (l *auditLogger) GetEvents() []*AuditEvent {
	l.mu.Lock()
	defer l.mu.Unlock()

	events := make([]*AuditEvent, len(l.events))
	copy(events, l.events)
	return events
}
