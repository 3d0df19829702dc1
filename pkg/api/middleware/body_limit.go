package middleware

import (
	"net/http"

	"github.com/qinglingtaxue/youtube--sub001/pkg/errcode"
)

// BodySizeLimit rejects requests whose declared body exceeds maxBytes and
// caps the bytes a handler can read from the rest.
func BodySizeLimit(maxBytes int64, ew ErrorWriter) func(http.Handler) http.Handler {
	ew = orPlain(ew)
	return func(next http.Handler) http.Handler {
		if maxBytes <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > maxBytes {
				ew(w, r, errcode.InvalidRequest, "request body too large")
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}
