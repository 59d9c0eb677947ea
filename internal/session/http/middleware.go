package http

import (
	"context"
	"log/slog"
	"strings"

	"github.com/gin-gonic/gin"

	apperrors "github.com/allisson/authcore/internal/errors"
	"github.com/allisson/authcore/internal/httputil"
	sessionUsecase "github.com/allisson/authcore/internal/session/usecase"
	tokenDomain "github.com/allisson/authcore/internal/token/domain"
)

type claimsContextKey struct{}

// WithClaims stores verified access-token claims in the context.
func WithClaims(ctx context.Context, claims *tokenDomain.Claims) context.Context {
	return context.WithValue(ctx, claimsContextKey{}, claims)
}

// GetClaims retrieves verified access-token claims from the context.
func GetClaims(ctx context.Context) (*tokenDomain.Claims, bool) {
	claims, ok := ctx.Value(claimsContextKey{}).(*tokenDomain.Claims)
	return claims, ok
}

// AccessTokenMiddleware authenticates requests via a Bearer access token in
// the Authorization header. Verification is stateless: signature and expiry
// only, no database lookup. On success the claims are stored in the request
// context for downstream handlers.
func AccessTokenMiddleware(sessionUseCase sessionUsecase.UseCase, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			logger.Debug("authentication failed: missing authorization header")
			httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, logger)
			c.Abort()
			return
		}

		const bearerPrefix = "bearer "
		if len(authHeader) < len(bearerPrefix) ||
			!strings.EqualFold(authHeader[:len(bearerPrefix)], bearerPrefix) {
			logger.Debug("authentication failed: malformed authorization header")
			httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, logger)
			c.Abort()
			return
		}

		accessToken := authHeader[len(bearerPrefix):]
		if accessToken == "" {
			logger.Debug("authentication failed: empty bearer token")
			httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, logger)
			c.Abort()
			return
		}

		claims, err := sessionUseCase.VerifyAccess(c.Request.Context(), accessToken)
		if err != nil {
			logger.Debug("authentication failed", slog.String("error", err.Error()))
			httputil.HandleErrorGin(c, err, logger)
			c.Abort()
			return
		}

		c.Request = c.Request.WithContext(WithClaims(c.Request.Context(), claims))
		c.Next()
	}
}

// RequireRole allows the request through only when the authenticated claims
// carry the role. MUST be mounted after AccessTokenMiddleware.
func RequireRole(role string, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := GetClaims(c.Request.Context())
		if !ok {
			httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, logger)
			c.Abort()
			return
		}

		for _, r := range claims.Roles {
			if r == role {
				c.Next()
				return
			}
		}

		logger.Debug("authorization failed: missing role",
			slog.String("subject_id", claims.SubjectID.String()),
			slog.String("role", role),
		)
		httputil.HandleErrorGin(c, apperrors.ErrForbidden, logger)
		c.Abort()
	}
}
