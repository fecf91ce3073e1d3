package middlewares

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/geocoder89/coursehub/internal/actorctx"
	"github.com/geocoder89/coursehub/internal/auth"
	"github.com/geocoder89/coursehub/internal/domain/identity"
	"github.com/gin-gonic/gin"
)

// Keep this small interface so tests can fake it easily.
type TokenVerifier interface {
	Verify(token string) (auth.Claims, error)
}

// GateMetrics counts requests stopped by RequireAuth or RequireRoles.
type GateMetrics interface {
	ObserveRejection(stage, reason string)
}

type nopGateMetrics struct{}

func (nopGateMetrics) ObserveRejection(string, string) {}

type AuthMiddleware struct {
	tokens  TokenVerifier
	metrics GateMetrics
	log     *slog.Logger
}

func NewAuthMiddleware(tokens TokenVerifier, metrics GateMetrics, log *slog.Logger) *AuthMiddleware {
	if metrics == nil {
		metrics = nopGateMetrics{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &AuthMiddleware{tokens: tokens, metrics: metrics, log: log}
}

// RequireAuth verifies the bearer token and attaches the caller's Principal
// to the request context. A request that already carries one passes through.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := actorctx.PrincipalFrom(c.Request.Context()); ok {
			c.Next()
			return
		}

		authHeader := c.GetHeader("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			m.metrics.ObserveRejection("auth", "missing_header")
			abortJSON(c, http.StatusUnauthorized, "unauthorized", "Missing or invalid Authorization header")
			return
		}

		raw := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer"))
		if raw == "" {
			m.metrics.ObserveRejection("auth", "missing_token")
			abortJSON(c, http.StatusUnauthorized, "unauthorized", "Missing or invalid access token")
			return
		}

		claims, err := m.tokens.Verify(raw)
		if err != nil {
			m.metrics.ObserveRejection("auth", rejectReason(err))
			abortJSON(c, http.StatusUnauthorized, "unauthorized", "Invalid or expired access token")
			return
		}

		p := actorctx.FromClaims(claims)
		c.Request = c.Request.WithContext(actorctx.WithPrincipal(c.Request.Context(), p))
		c.Set(CtxPrincipal, p)

		c.Next()
	}
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, auth.ErrExpired):
		return "expired"
	case errors.Is(err, auth.ErrBadSignature):
		return "bad_signature"
	default:
		return "malformed"
	}
}

// RequireRoles admits callers whose role is in allowed. It must run after
// RequireAuth; a missing principal is a wiring bug and answers 500.
func (m *AuthMiddleware) RequireRoles(allowed ...identity.Role) gin.HandlerFunc {
	set := make(map[identity.Role]struct{}, len(allowed))
	for _, r := range allowed {
		set[r] = struct{}{}
	}

	return func(c *gin.Context) {
		p, ok := actorctx.PrincipalFrom(c.Request.Context())
		if !ok {
			m.log.ErrorContext(c.Request.Context(), "role gate reached without principal",
				"route", c.FullPath(),
				"request_id", c.GetString(CtxRequestID),
			)
			m.metrics.ObserveRejection("role", "identity_missing")
			abortJSON(c, http.StatusInternalServerError, "identity_missing", "Missing identity context")
			return
		}

		if _, ok := set[p.Role]; !ok {
			m.metrics.ObserveRejection("role", "forbidden")
			abortJSON(c, http.StatusForbidden, "forbidden", "Your role cannot access this resource")
			return
		}
		c.Next()
	}
}

// PrincipalFrom is the handler-side accessor for the authenticated caller.
func PrincipalFrom(c *gin.Context) (actorctx.Principal, bool) {
	return actorctx.PrincipalFrom(c.Request.Context())
}
