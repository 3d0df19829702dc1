package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/qinglingtaxue/youtube--sub001/pkg/api/middleware"
	"github.com/qinglingtaxue/youtube--sub001/pkg/errcode"
	"github.com/qinglingtaxue/youtube--sub001/pkg/logging"
)

// sanitizeError converts an internal error to a user-safe message.
// Internal details are logged but not exposed.
func (s *Server) sanitizeError(r *http.Request, err error, operation string) string {
	if err == nil {
		return ""
	}

	s.logger.Error("request failed",
		logging.Operation(operation),
		logging.String("request_id", middleware.GetRequestID(r)),
		logging.Error(err))

	return fmt.Sprintf("%s failed", operation)
}

// queryParams reads typed query-string parameters and remembers the first
// malformed one.
type queryParams struct {
	r   *http.Request
	err error
}

func newQueryParams(r *http.Request) *queryParams {
	return &queryParams{r: r}
}

// String returns the trimmed parameter, empty when absent.
func (q *queryParams) String(name string) string {
	return strings.TrimSpace(q.r.URL.Query().Get(name))
}

// Int returns the parameter as an integer, zero when absent.
func (q *queryParams) Int(name string) int {
	raw := q.String(name)
	if raw == "" || q.err != nil {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		q.err = errcode.New(errcode.InvalidRequest, fmt.Sprintf("%s: must be an integer, got %q", name, raw))
		return 0
	}
	return n
}

// Err returns the first parse error.
func (q *queryParams) Err() error { return q.err }
