package server

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/comigor/resume-chat/internal/logger"
)

const requestIDHeader = "X-Request-ID"

// slowRequestThreshold is the duration above which requests are logged at WARN level.
const slowRequestThreshold = 5 * time.Second

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Flush keeps streaming responses working through the recorder.
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (r *statusRecorder) Unwrap() http.ResponseWriter { return r.ResponseWriter }

// requestLogger tags every request with an ID and logs it once it completes.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		duration := time.Since(start)
		attrs := []any{
			"request_id", id,
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", duration.Milliseconds(),
		}
		switch {
		case rec.status >= http.StatusInternalServerError:
			logger.L.Error("request failed", attrs...)
		case duration > slowRequestThreshold:
			logger.L.Warn("slow request", attrs...)
		default:
			logger.L.Info("request completed", attrs...)
		}
	})
}
