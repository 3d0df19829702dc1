package errcode

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Code
	}{
		{"nil", nil, ""},
		{"coded", New(NotFound, "missing"), NotFound},
		{"wrapped coded", fmt.Errorf("outer: %w", New(InvalidRequest, "bad")), InvalidRequest},
		{"deadline", fmt.Errorf("run: %w", context.DeadlineExceeded), ComputationTimeout},
		{"plain", errors.New("boom"), Internal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Of(tt.err))
		})
	}
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(InvalidRequest))
	assert.Equal(t, http.StatusNotFound, HTTPStatus(NotFound))
	assert.Equal(t, http.StatusServiceUnavailable, HTTPStatus(SourceUnavailable))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(Internal))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus("SOMETHING_ELSE"))
}

func TestWrapUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(SourceUnavailable, "load snapshot", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "load snapshot: connection refused", err.Error())
	assert.Equal(t, Warning{Code: SourceUnavailable, Message: err.Error()}, AsWarning(err))
}
