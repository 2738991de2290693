package middleware

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/festa-dev/festa-backend/internal/auth"
	pkgerrors "github.com/festa-dev/festa-backend/internal/pkg/errors"
	"github.com/festa-dev/festa-backend/internal/pkg/logger"
	"github.com/festa-dev/festa-backend/internal/pkg/response"
)

// OwnerIDKey is the gin context key carrying the authenticated guest ID.
const OwnerIDKey = "owner_id"

// JWTAuth verifies the bearer token and injects the owner identity into the
// request context.
func JWTAuth(jwtManager *auth.JWTManager, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.ErrorWithCode(c, pkgerrors.ErrUnauthorized, "missing authorization")
			c.Abort()
			return
		}

		token, err := auth.ExtractTokenFromHeader(authHeader)
		if err != nil {
			response.ErrorWithCode(c, pkgerrors.ErrUnauthorized, "invalid authorization header format")
			c.Abort()
			return
		}

		claims, err := jwtManager.VerifyAccessToken(token)
		if err != nil {
			log.Warn("invalid access token",
				zap.Error(err),
				zap.String("ip", c.ClientIP()))
			response.ErrorWithCode(c, pkgerrors.ErrAuthInvalidToken)
			c.Abort()
			return
		}

		c.Set(OwnerIDKey, claims.OwnerID)
		c.Request = c.Request.WithContext(
			logger.WithOwnerID(c.Request.Context(), claims.OwnerID))

		c.Next()
	}
}

// OwnerID returns the authenticated guest ID set by JWTAuth.
func OwnerID(c *gin.Context) string {
	if v, ok := c.Get(OwnerIDKey); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
