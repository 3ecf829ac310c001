package observability

import (
	"net/http"
	"strconv"
	"time"
)

// StreamingRoutes lists the paths whose responses are counted in ActiveStreams.
var StreamingRoutes = map[string]bool{
	"/api/chat": true,
}

// MetricsMiddleware wraps an HTTP handler to record request metrics.
//
// It captures:
//   - chatrelay_requests_total (counter): per request with method, route, and status class labels
//   - chatrelay_request_duration_seconds (histogram): request duration with method and route labels
//   - chatrelay_streams_active (gauge): incremented while a chat stream is in flight
//
// Unknown paths are reported under the "other" route to bound label cardinality.
func MetricsMiddleware(routes []string) func(http.Handler) http.Handler {
	known := make(map[string]bool, len(routes))
	for _, r := range routes {
		known[r] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			route := "other"
			if known[r.URL.Path] {
				route = r.URL.Path
			}

			if StreamingRoutes[route] {
				ActiveStreams.Inc()
				defer ActiveStreams.Dec()
			}

			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r)

			statusStr := strconv.Itoa(sw.status/100) + "xx"
			RequestsTotal.WithLabelValues(r.Method, route, statusStr).Inc()
			RequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		})
	}
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status  int
	written bool
}

// WriteHeader captures the status code and delegates to the underlying writer.
func (w *statusWriter) WriteHeader(status int) {
	if !w.written {
		w.status = status
		w.written = true
	}
	w.ResponseWriter.WriteHeader(status)
}

// Write delegates to the underlying writer and marks the status as written.
func (w *statusWriter) Write(b []byte) (int, error) {
	w.written = true
	return w.ResponseWriter.Write(b)
}

// Flush delegates to the underlying writer if it implements http.Flusher.
func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap returns the underlying ResponseWriter for http.ResponseController.
func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
