package api

import (
	"errors"
	"net/http"

	"github.com/qinglingtaxue/youtube--sub001/pkg/api/middleware"
	"github.com/qinglingtaxue/youtube--sub001/pkg/auth"
	"github.com/qinglingtaxue/youtube--sub001/pkg/errcode"
	"github.com/qinglingtaxue/youtube--sub001/pkg/logging"
)

// requireAuth validates the bearer token and stores its claims in the
// request context. Without a validator every request passes.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.validator == nil {
			next.ServeHTTP(w, r)
			return
		}

		token, ok := auth.BearerToken(r.Header.Get("Authorization"))
		if !ok {
			w.Header().Set("WWW-Authenticate", `Bearer realm="api"`)
			s.respondError(w, r, errcode.Unauthorized, "missing bearer token")
			return
		}

		claims, err := s.validator.ValidateToken(r.Context(), token)
		if err != nil {
			s.logger.Debug("token rejected",
				logging.String("validator", s.validator.Name()),
				logging.String("ip", middleware.RemoteIP(r)),
				logging.Error(err))
			msg := "invalid token"
			if errors.Is(err, auth.ErrExpiredToken) {
				msg = "token expired"
			}
			w.Header().Set("WWW-Authenticate", `Bearer realm="api", error="invalid_token"`)
			s.respondError(w, r, errcode.Unauthorized, msg)
			return
		}

		next.ServeHTTP(w, r.WithContext(auth.WithClaims(r.Context(), claims)))
	})
}

// requireAdmin rejects authenticated callers without the admin role. It
// has no effect when authentication is disabled.
func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.validator == nil {
			next.ServeHTTP(w, r)
			return
		}
		claims, ok := auth.ClaimsFrom(r.Context())
		if !ok {
			s.respondError(w, r, errcode.Unauthorized, "authentication required")
			return
		}
		if !claims.IsAdmin() {
			s.logger.Warn("admin access denied",
				logging.String("subject", claims.Subject),
				logging.String("path", r.URL.Path))
			s.respondStatus(w, http.StatusForbidden, errcode.Unauthorized, "admin role required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientID keys rate limiting by token subject, falling back to the
// client address.
func (s *Server) clientID(r *http.Request) string {
	if claims, ok := auth.ClaimsFrom(r.Context()); ok && claims.Subject != "" {
		return "sub:" + claims.Subject
	}
	return "ip:" + middleware.RemoteIP(r)
}
