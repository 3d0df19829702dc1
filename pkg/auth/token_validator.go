// Package auth verifies the bearer tokens presented to the query API.
package auth

import (
	"context"
	"errors"
	"strings"
)

// TokenValidator abstracts token verification so the API can accept more
// than one token issuer.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (*Claims, error)
	Name() string
}

// ErrNoValidatorMatched is returned when no validator accepts the token.
var ErrNoValidatorMatched = errors.New("no validator could validate the token")

// CompositeTokenValidator tries each validator in order.
type CompositeTokenValidator struct {
	validators []TokenValidator
}

// NewCompositeTokenValidator creates a validator chain.
func NewCompositeTokenValidator(validators ...TokenValidator) *CompositeTokenValidator {
	return &CompositeTokenValidator{validators: validators}
}

// ValidateToken returns the claims of the first validator that accepts the
// token, or the last error.
func (c *CompositeTokenValidator) ValidateToken(ctx context.Context, token string) (*Claims, error) {
	var lastErr error = ErrNoValidatorMatched
	for _, v := range c.validators {
		claims, err := v.ValidateToken(ctx, token)
		if err == nil {
			return claims, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

func (c *CompositeTokenValidator) Name() string {
	names := make([]string, 0, len(c.validators))
	for _, v := range c.validators {
		names = append(names, v.Name())
	}
	return "composite(" + strings.Join(names, ",") + ")"
}

// BearerToken extracts the token of an "Authorization: Bearer <token>"
// header value.
func BearerToken(header string) (string, bool) {
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	return strings.TrimSpace(header[len(prefix):]), true
}

type contextKey struct{}

// WithClaims stores claims in ctx.
func WithClaims(ctx context.Context, c *Claims) context.Context {
	return context.WithValue(ctx, contextKey{}, c)
}

// ClaimsFrom returns the claims stored in ctx.
func ClaimsFrom(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(contextKey{}).(*Claims)
	return c, ok
}
