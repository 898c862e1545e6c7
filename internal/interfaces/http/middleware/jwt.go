package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/storeops/backend/internal/infrastructure/auth"
	"github.com/storeops/backend/internal/infrastructure/logger"
	"github.com/storeops/backend/internal/interfaces/http/dto"
)

// JWT context keys
const (
	JWTClaimsKey  = "jwt_claims"
	JWTSubjectKey = "jwt_subject"
	AuthHeaderKey = "Authorization"
	BearerPrefix  = "Bearer "
)

// TokenValidator checks a bearer token and returns its claims
type TokenValidator interface {
	Validate(token string) (*auth.Claims, error)
}

// JWTAuth rejects requests without a valid admin bearer token. On success
// the claims and subject are stored in the gin context and the subject is
// added to the request-scoped logger.
func JWTAuth(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader(AuthHeaderKey)
		if header == "" {
			abortUnauthorized(c, dto.ErrCodeUnauthorized, "Missing authorization header")
			return
		}
		if len(header) < len(BearerPrefix) || !strings.EqualFold(header[:len(BearerPrefix)], BearerPrefix) {
			abortUnauthorized(c, dto.ErrCodeUnauthorized, "Invalid authorization header format")
			return
		}

		claims, err := validator.Validate(header[len(BearerPrefix):])
		if err != nil {
			logger.GetGinLogger(c).Warn("Rejected admin token", zap.Error(err))
			switch {
			case errors.Is(err, auth.ErrExpiredToken):
				abortUnauthorized(c, dto.ErrCodeTokenExpired, "Token has expired")
			case errors.Is(err, auth.ErrNoSecret):
				c.AbortWithStatusJSON(http.StatusServiceUnavailable, dto.NewErrorResponse(
					dto.ErrCodeConfiguration, "Admin authentication is not configured", GetRequestID(c),
				))
			default:
				abortUnauthorized(c, dto.ErrCodeTokenInvalid, "Invalid token")
			}
			return
		}

		c.Set(JWTClaimsKey, claims)
		c.Set(JWTSubjectKey, claims.Subject)

		ctx, log := logger.WithSubject(c.Request.Context(), logger.GetGinLogger(c), claims.Subject)
		c.Request = c.Request.WithContext(ctx)
		logger.SetGinLogger(c, log)

		c.Next()
	}
}

// GetSubject returns the authenticated admin subject, if any
func GetSubject(c *gin.Context) string {
	return c.GetString(JWTSubjectKey)
}

// GetClaims returns the validated token claims, if any
func GetClaims(c *gin.Context) *auth.Claims {
	if v, ok := c.Get(JWTClaimsKey); ok {
		if claims, ok := v.(*auth.Claims); ok {
			return claims
		}
	}
	return nil
}

func abortUnauthorized(c *gin.Context, code, message string) {
	c.Header("WWW-Authenticate", `Bearer realm="storeops"`)
	c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponse(code, message, GetRequestID(c)))
}
