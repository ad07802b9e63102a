package httpserver

import (
	"log"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/milad/octosync/internal/metrics"
)

const requestIDHeader = "X-Request-Id"

// quietPaths are served without an access log line.
var quietPaths = map[string]bool{"/healthz": true, "/metrics": true}

// routeLabels maps mux patterns to metric labels.
var routeLabels = map[string]string{
	"/api/readings":        "api_readings",
	"/api/readings/latest": "api_readings_latest",
	"/healthz":             "healthz",
	"/metrics":             "metrics",
}

// instrument assigns a request ID, recovers panics, records metrics and
// writes the access log.
func instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		reqID := r.Header.Get(requestIDHeader)
		if reqID == "" {
			reqID = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, reqID)
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		defer func() {
			if p := recover(); p != nil {
				rec.status = http.StatusInternalServerError
				if !rec.wroteHeader {
					notFoundOrError(rec, r, http.StatusInternalServerError, "internal_error", "internal error")
				}
				log.Printf("panic serving %s %s req_id=%s: %v\n%s", r.Method, r.URL.Path, reqID, p, debug.Stack())
			}

			dur := time.Since(start)
			metrics.ObserveGatewayRequest(routeLabel(r), r.Method, rec.status, dur)
			if !quietPaths[r.URL.Path] {
				log.Printf("%s %s -> %d (%s) req_id=%s", r.Method, r.URL.RequestURI(), rec.status, dur.Truncate(time.Millisecond), reqID)
			}
		}()

		next.ServeHTTP(rec, r)
	})
}

// routeLabel relies on ServeMux having set r.Pattern.
func routeLabel(r *http.Request) string {
	if l, ok := routeLabels[r.Pattern]; ok {
		return l
	}
	if r.Pattern == "/" && r.URL.Path == "/" {
		return "index"
	}
	return "other"
}

// getOnly rejects every method but GET (and HEAD).
func getOnly(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", http.MethodGet)
			notFoundOrError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
			return
		}
		h(w, r)
	}
}

// notFoundOrError keeps /api responses JSON and everything else plain text.
func notFoundOrError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	if strings.HasPrefix(r.URL.Path, "/api/") || r.URL.Path == "/api" {
		writeAPIError(w, status, code, message)
		return
	}
	http.Error(w, message, status)
}

type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (r *statusRecorder) WriteHeader(status int) {
	if r.wroteHeader {
		return
	}
	r.status = status
	r.wroteHeader = true
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Write(p []byte) (int, error) {
	if !r.wroteHeader {
		r.WriteHeader(http.StatusOK)
	}
	return r.ResponseWriter.Write(p)
}
