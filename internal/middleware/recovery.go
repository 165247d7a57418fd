package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// RecoveryMiddleware recovers from a panic anywhere downstream —
// notably a blockcipher.Transform.Execute call running inline in the
// request goroutine while internal/httpapi pumps a stream — and turns
// it into a 500 instead of taking the whole server down.
func RecoveryMiddleware(logger *logrus.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					fields := logrus.Fields{
						"error":  err,
						"method": r.Method,
						"path":   r.URL.Path,
						"stack":  string(debug.Stack()),
					}
					if key := mux.Vars(r)["key"]; key != "" {
						fields["stream_key"] = key
					}
					if alg := r.URL.Query().Get("alg"); alg != "" {
						fields["algorithm"] = alg
					}
					logger.WithFields(fields).Error("panic recovered")

					http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}