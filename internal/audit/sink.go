package audit

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Sink is a durable destination for audit events that can be closed
// once a logger is done with it.
type Sink interface {
	EventWriter
	Close() error
}

// BatchSink wraps an EventWriter and coalesces writes into batches,
// flushing either when the buffer fills or on a timer, whichever comes
// first. A stream's encrypt/decrypt events and its key-rotation events
// may land in different batches; ordering within the wrapped writer is
// not guaranteed across a flush boundary.
type BatchSink struct {
	wrapped       EventWriter
	buffer        []*AuditEvent
	bufferSize    int
	flushInterval time.Duration
	mu            sync.Mutex
	closeChan     chan struct{}
	wg            sync.WaitGroup
	retryCount    int
	retryBackoff  time.Duration
}

// NewBatchSink creates a batching sink over wrapped. size and interval
// fall back to sane defaults when non-positive, so a zero-value
// config.AuditSinkConfig still produces a working batch loop.
func NewBatchSink(wrapped EventWriter, size int, interval time.Duration, retryCount int, retryBackoff time.Duration) *BatchSink {
	if size <= 0 {
		size = 100
	}
	if interval <= 0 {
		interval = 5 * time.Second
	}

	s := &BatchSink{
		wrapped:       wrapped,
		buffer:        make([]*AuditEvent, 0, size),
		bufferSize:    size,
		flushInterval: interval,
		closeChan:     make(chan struct{}),
		retryCount:    retryCount,
		retryBackoff:  retryBackoff,
	}

	s.wg.Add(1)
	go s.run()

	return s
}

// WriteEvent appends event to the pending batch, flushing immediately
// (in the background) once the batch reaches its configured size.
func (s *BatchSink) WriteEvent(event *AuditEvent) error {
	s.mu.Lock()
	full := false
	s.buffer = append(s.buffer, event)
	if len(s.buffer) >= s.bufferSize {
		full = true
	}
	s.mu.Unlock()

	if full {
		go s.flush()
	}
	return nil
}

// Close stops the flush loop after one last flush of whatever is
// still pending.
func (s *BatchSink) Close() error {
	close(s.closeChan)
	s.wg.Wait()
	return nil
}

func (s *BatchSink) run() {
	defer s.wg.Done()
	ticker := time.NewTicker(s.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.flush()
		case <-s.closeChan:
			s.flush()
			return
		}
	}
}

func (s *BatchSink) flush() {
	s.mu.Lock()
	events := s.swapBuffer()
	s.mu.Unlock()

	if len(events) > 0 {
		s.writeWithRetry(events)
	}
}

// swapBuffer returns the buffered events and resets the buffer.
// Caller must hold s.mu.
func (s *BatchSink) swapBuffer() []*AuditEvent {
	if len(s.buffer) == 0 {
		return nil
	}

	events := make([]*AuditEvent, len(s.buffer))
	copy(events, s.buffer)
	s.buffer = s.buffer[:0]
	return events
}

func (s *BatchSink) writeWithRetry(events []*AuditEvent) error {
	if len(events) == 0 {
		return nil
	}

	var err error
	for attempt := 0; attempt <= s.retryCount; attempt++ {
		if bw, ok := s.wrapped.(BatchWriter); ok {
			err = bw.WriteBatch(events)
		} else {
			err = nil
			for _, event := range events {
				if e := s.wrapped.WriteEvent(event); e != nil {
					err = e
				}
			}
		}

		if err == nil {
			return nil
		}

		if attempt < s.retryCount {
			time.Sleep(s.retryBackoff * time.Duration(uint(1)<<uint(attempt)))
		}
	}

	logrus.WithFields(logrus.Fields{
		"dropped_events": len(events),
		"algorithms":     algorithmSet(events),
		"retries":        s.retryCount,
	}).WithError(err).Error("audit: giving up on batch after exhausting retries")
	return err
}

// algorithmSet returns the distinct algorithm names seen across
// events, for failure-log context — a single flush batch often mixes
// operations from several concurrent streams.
func algorithmSet(events []*AuditEvent) []string {
	seen := make(map[string]struct{}, len(events))
	var algs []string
	for _, e := range events {
		if e.Algorithm == "" {
			continue
		}
		if _, ok := seen[e.Algorithm]; !ok {
			seen[e.Algorithm] = struct{}{}
			algs = append(algs, e.Algorithm)
		}
	}
	return algs
}

// BatchWriter is implemented by sinks that can write a batch of events
// in one round trip instead of one call per event.
type BatchWriter interface {
	WriteBatch(events []*AuditEvent) error
}

// HTTPSink POSTs events to a webhook — an audit aggregator or SIEM
// ingest endpoint, not something this core talks to on its own; it is
// the remote sink config.AuditSinkConfig{Type: "http"} selects.
type HTTPSink struct {
	endpoint string
	client   *http.Client
	headers  map[string]string
}

// NewHTTPSink creates a sink that posts to endpoint with the given
// extra headers (e.g. an auth token for the receiving aggregator).
func NewHTTPSink(endpoint string, headers map[string]string) *HTTPSink {
	return &HTTPSink{
		endpoint: endpoint,
		client:   &http.Client{Timeout: 10 * time.Second},
		headers:  headers,
	}
}

// WriteEvent posts a single-element batch.
func (s *HTTPSink) WriteEvent(event *AuditEvent) error {
	return s.WriteBatch([]*AuditEvent{event})
}

// WriteBatch posts events as a JSON array in one request.
func (s *HTTPSink) WriteBatch(events []*AuditEvent) error {
	data, err := json.Marshal(events)
	if err != nil {
		return fmt.Errorf("audit: marshal %d events: %w", len(events), err)
	}

	req, err := http.NewRequest(http.MethodPost, s.endpoint, bytes.NewReader(data))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "xmlenc-transform-audit/1")
	for k, v := range s.headers {
		req.Header.Set(k, v)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("audit: post %d events to %s: %w", len(events), s.endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("audit: sink %s rejected batch of %d events: %s", s.endpoint, len(events), resp.Status)
	}

	return nil
}

// FileSink appends one JSON object per line to a file — a local audit
// trail an operator can tail or ship with their own log collector.
type FileSink struct {
	path string
	mu   sync.Mutex
}

// NewFileSink creates a sink that appends newline-delimited JSON to path.
func NewFileSink(path string) *FileSink {
	return &FileSink{path: path}
}

// WriteEvent appends event to the file, creating it if necessary.
func (s *FileSink) WriteEvent(event *AuditEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("audit: open %s: %w", s.path, err)
	}
	defer f.Close()

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("audit: marshal event for stream %s: %w", event.StreamID, err)
	}
	data = append(data, '\n')

	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("audit: write %s: %w", s.path, err)
	}

	return nil
}

// StdoutSink logs one structured line per event through logrus,
// keeping the sink's output on the same ambient logging stack as the
// rest of the service rather than a bare os.Stdout write.
type StdoutSink struct{}

// WriteEvent logs event's key fields at info level.
func (s *StdoutSink) WriteEvent(event *AuditEvent) error {
	logrus.WithFields(logrus.Fields{
		"event_type":      event.EventType,
		"stream_id":       event.StreamID,
		"algorithm":       event.Algorithm,
		"key_id":          event.KeyID,
		"key_version":     event.KeyVersion,
		"bytes_processed": event.BytesProcessed,
		"success":         event.Success,
	}).Info("audit event")
	return nil
}
