package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/qinglingtaxue/youtube--sub001/pkg/errcode"
	"github.com/qinglingtaxue/youtube--sub001/pkg/logging"
)

// PanicRecovery turns a handler panic into an INTERNAL error response. The
// panic value and stack are logged, never returned to the client.
func PanicRecovery(logger logging.Logger, ew ErrorWriter) func(http.Handler) http.Handler {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	ew = orPlain(ew)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					logger.Error("panic in HTTP handler",
						logging.String("method", r.Method),
						logging.String("path", r.URL.Path),
						logging.String("request_id", GetRequestID(r)),
						logging.String("panic", fmt.Sprint(rec)),
						logging.String("stack", string(debug.Stack())))
					ew(w, r, errcode.Internal, "internal server error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
