package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

func TestLoggingMiddlewareRecordsStatusAndDuration(t *testing.T) {
	logger, hook := test.NewNullLogger()

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ciphertext"))
	})

	wrapped := LoggingMiddleware(logger)(handler)

	req := httptest.NewRequest(http.MethodGet, "/objects/doc-1?alg=aes256-cbc", nil)
	w := httptest.NewRecorder()
	wrapped.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
	}

	entry := hook.LastEntry()
	if entry == nil {
		t.Fatal("expected a log entry")
	}
	if entry.Data["status"] != http.StatusOK {
		t.Errorf("expected status field %d, got %v", http.StatusOK, entry.Data["status"])
	}
	if _, ok := entry.Data["duration_ms"].(int64); !ok {
		t.Errorf("expected an int64 duration_ms field, got %v", entry.Data["duration_ms"])
	}
	if entry.Data["algorithm"] != "aes256-cbc" {
		t.Errorf("expected algorithm field %q, got %v", "aes256-cbc", entry.Data["algorithm"])
	}
}

func TestLoggingMiddlewareRecordsStreamKeyFromRoute(t *testing.T) {
	logger, hook := test.NewNullLogger()

	router := mux.NewRouter()
	router.Use(LoggingMiddleware(logger))
	router.HandleFunc("/objects/{key}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}).Methods(http.MethodPut)

	req := httptest.NewRequest(http.MethodPut, "/objects/report-42", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	entry := hook.LastEntry()
	if entry == nil {
		t.Fatal("expected a log entry")
	}
	if entry.Data["stream_key"] != "report-42" {
		t.Errorf("expected stream_key field %q, got %v", "report-42", entry.Data["stream_key"])
	}
}

func TestLoggingMiddlewareUsesContentLengthForPut(t *testing.T) {
	logger, hook := test.NewNullLogger()

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	wrapped := LoggingMiddleware(logger)(handler)

	req := httptest.NewRequest(http.MethodPut, "/objects/doc-1", nil)
	req.ContentLength = 4096
	req.Header.Set("Content-Length", "4096")
	w := httptest.NewRecorder()
	wrapped.ServeHTTP(w, req)

	entry := hook.LastEntry()
	if entry == nil {
		t.Fatal("expected a log entry")
	}
	if entry.Data["bytes"] != int64(4096) {
		t.Errorf("expected bytes field %d, got %v", 4096, entry.Data["bytes"])
	}
}

func TestResponseWriterCapturesStatusAndByteCount(t *testing.T) {
	w := httptest.NewRecorder()
	rw := &responseWriter{
		ResponseWriter: w,
		statusCode:     http.StatusOK,
	}

	rw.WriteHeader(http.StatusNotFound)
	if rw.statusCode != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, rw.statusCode)
	}

	n, err := rw.Write([]byte("test"))
	if err != nil {
		t.Errorf("Write returned error: %v", err)
	}
	if n != 4 {
		t.Errorf("expected to write 4 bytes, wrote %d", n)
	}
	if rw.bytesWritten != 4 {
		t.Errorf("expected bytesWritten to be 4, got %d", rw.bytesWritten)
	}
}
