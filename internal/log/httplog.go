package log

import (
	"net/http"
	"time"

	"github.com/felixge/httpsnoop"
)

// LogHTTPRequest logs a completed HTTP request. Server errors are logged at
// error level, everything else at debug.
func LogHTTPRequest(method, path string, status int, duration time.Duration, size int64, remoteAddr, userAgent string) {
	fields := []any{
		"method", method,
		"path", path,
		"status", status,
		"duration_ms", duration.Milliseconds(),
		"size", size,
		"remote_addr", remoteAddr,
		"user_agent", userAgent,
	}

	if status >= http.StatusInternalServerError {
		GetSugaredLogger().Errorw("http request", fields...)
		return
	}
	GetSugaredLogger().Debugw("http request", fields...)
}

// HTTPMiddleware logs every request passing through next
func HTTPMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m := httpsnoop.CaptureMetrics(next, w, r)
		LogHTTPRequest(r.Method, r.URL.Path, m.Code, m.Duration, m.Written, r.RemoteAddr, r.UserAgent())
	})
}
