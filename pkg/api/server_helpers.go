package api

import (
	"net/http"

	"github.com/goccy/go-json"

	"github.com/qinglingtaxue/youtube--sub001/pkg/errcode"
	"github.com/qinglingtaxue/youtube--sub001/pkg/logging"
)

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Warn("encoding JSON response", logging.Error(err))
	}
}

// respondError writes the JSON error body for code. It has the shape of
// middleware.ErrorWriter so middleware rejections share the body.
func (s *Server) respondError(w http.ResponseWriter, _ *http.Request, code errcode.Code, message string) {
	s.respondStatus(w, errcode.HTTPStatus(code), code, message)
}

func (s *Server) respondStatus(w http.ResponseWriter, status int, code errcode.Code, message string) {
	s.respondJSON(w, status, ErrorResponse{
		Error:   http.StatusText(status),
		Code:    string(code),
		Message: message,
	})
}

// respondServiceError maps a service error to its status. Internal errors
// are logged and replaced by a generic message.
func (s *Server) respondServiceError(w http.ResponseWriter, r *http.Request, err error, operation string) {
	code := errcode.Of(err)
	if code == errcode.Internal {
		s.respondError(w, r, code, s.sanitizeError(r, err, operation))
		return
	}
	s.respondError(w, r, code, err.Error())
}
