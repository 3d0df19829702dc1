// Package middleware provides the HTTP middleware of the query API.
//
// Every middleware has the form func(http.Handler) http.Handler so it can be
// installed with chi's Router.Use:
//
//	r := chi.NewRouter()
//	r.Use(middleware.RequestID())
//	r.Use(middleware.PanicRecovery(logger, writeErr))
//	r.Use(middleware.Logging(logger))
//	r.Use(middleware.Metrics(registry))
//
// Middleware that rejects a request reports it through an ErrorWriter so
// rejections share the API's JSON error body.
package middleware

import (
	"net/http"

	"github.com/qinglingtaxue/youtube--sub001/pkg/errcode"
)

// ErrorWriter writes an error response.
type ErrorWriter func(w http.ResponseWriter, r *http.Request, code errcode.Code, message string)

// PlainErrorWriter writes the status text of code as plain text.
func PlainErrorWriter(w http.ResponseWriter, _ *http.Request, code errcode.Code, message string) {
	http.Error(w, message, errcode.HTTPStatus(code))
}

func orPlain(ew ErrorWriter) ErrorWriter {
	if ew == nil {
		return PlainErrorWriter
	}
	return ew
}
