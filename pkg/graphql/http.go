package graphql

import (
	"net/http"

	"github.com/goccy/go-json"
	"github.com/graphql-go/graphql/gqlerrors"

	"github.com/qinglingtaxue/youtube--sub001/pkg/errcode"
)

// Response is the GraphQL HTTP response body.
type Response struct {
	Data   any                        `json:"data,omitempty"`
	Errors []gqlerrors.FormattedError `json:"errors,omitempty"`
}

// Handler serves GraphQL operations over HTTP POST.
type Handler struct {
	executor *Executor
}

// NewHandler creates a GraphQL HTTP handler.
func NewHandler(executor *Executor) *Handler {
	return &Handler{executor: executor}
}

// ServeHTTP handles HTTP requests for GraphQL queries
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeResponse(w, http.StatusMethodNotAllowed, requestError("method not allowed"))
		return
	}

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeResponse(w, http.StatusBadRequest, requestError("invalid request body"))
		return
	}
	if req.Query == "" {
		writeResponse(w, http.StatusBadRequest, requestError("query is required"))
		return
	}

	result := h.executor.Execute(r.Context(), req)
	writeResponse(w, http.StatusOK, Response{Data: result.Data, Errors: result.Errors})
}

func requestError(msg string) Response {
	return Response{Errors: []gqlerrors.FormattedError{{
		Message:    msg,
		Extensions: map[string]any{"code": string(errcode.InvalidRequest)},
	}}}
}

func writeResponse(w http.ResponseWriter, status int, resp Response) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}
