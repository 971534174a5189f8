// Package httpapi implements the matcher daemon's HTTP surface: a JSON match
// endpoint, a Prometheus /metrics endpoint, and a /healthz endpoint, wrapping
// a matcher.Handle the way the wider corpus wraps its search/index engines
// behind a thin net/http layer (SPEC_FULL §4.4, "Matcher daemon").
package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/cognicore/phrasefind/pkg/phrasefind/logging"
)

// RequestID stamps every request with a request ID — the caller's
// X-Request-ID header when present, otherwise a fresh UUID (SPEC_FULL DOMAIN
// STACK, "github.com/google/uuid | matcherd | HTTP request-id middleware") —
// propagates it via logging.WithRequestID, and echoes it back in the
// response so callers can correlate a response with server-side logs.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		ctx := logging.WithRequestID(r.Context(), id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// statusWriter captures the response status for access logging, following
// the wider corpus's pkg/middleware.statusWriter shape.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (sw *statusWriter) WriteHeader(code int) {
	sw.status = code
	sw.ResponseWriter.WriteHeader(code)
}

// AccessLog logs one line per request at completion, in the daemon's
// structured JSON format.
func AccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		logging.FromContext(r.Context()).Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", strconv.Itoa(sw.status),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}
