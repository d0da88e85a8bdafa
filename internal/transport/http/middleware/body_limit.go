package middleware

import (
	"net/http"

	"attendance/internal/requestctx"
	"attendance/internal/transport/http/api"
)

// DefaultMaxBodyBytes fits a report request with a few thousand PINs.
const DefaultMaxBodyBytes = 64 << 10

// BodyLimit rejects report and login payloads with a declared size over
// maxBytes and caps the rest while they are read.
func BodyLimit(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if maxBytes <= 0 || r.Method != http.MethodPost {
				next.ServeHTTP(w, r)
				return
			}
			if r.ContentLength > maxBytes {
				api.Fail(w, http.StatusRequestEntityTooLarge, "payload_too_large", "request body is too large", requestctx.GetRequestID(r.Context()))
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}
