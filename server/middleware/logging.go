package middleware

import (
	"net/http"
	"time"

	"github.com/tienminhktvn/dataops-project/logger"
)

// probePaths are polled by orchestrators and never logged.
var probePaths = map[string]struct{}{
	"/health": {},
	"/alive":  {},
	"/ready":  {},
}

// RequestLogger logs method, path, status and duration for every request
// except probes.
func RequestLogger(log *logger.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, probe := probePaths[r.URL.Path]; probe {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			sw := newStatusWriter(w)
			next.ServeHTTP(sw, r)
			duration := time.Since(start)

			fields := logger.Fields(
				"method", r.Method,
				"path", r.URL.Path,
				logger.FieldStatus, sw.status,
				logger.FieldDuration, duration.Milliseconds(),
			)
			if id := r.Header.Get(RequestIDHeader); id != "" {
				fields["request_id"] = id
			}
			logByStatus(log, fields, sw.status)
		})
	}
}

func logByStatus(log *logger.Logger, fields map[string]interface{}, status int) {
	switch {
	case status >= 500:
		log.Error("request completed", fields)
	case status >= 400:
		log.Warn("request completed", fields)
	default:
		log.Debug("request completed", fields)
	}
}
