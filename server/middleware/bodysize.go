package middleware

import (
	"net/http"

	"github.com/tienminhktvn/dataops-project/util"
)

const defaultMaxBodySize = 1 << 20

// BodySizeLimit caps request bodies at maxSize ("512KB", "1MB", or plain
// bytes). An unparseable size falls back to 1MB.
func BodySizeLimit(maxSize string) Middleware {
	size := util.ParseSize(maxSize, defaultMaxBodySize)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, size)
			}
			next.ServeHTTP(w, r)
		})
	}
}
