package middleware

import (
	"errors"
	"strings"

	"paydesk_backend/internal/auth"
	"paydesk_backend/internal/logger"
	"paydesk_backend/pkg/apperrors"
	"paydesk_backend/pkg/contextkeys"

	"github.com/gin-gonic/gin"
)

// AuthMiddleware - middleware проверки JWT. Кладет структуру и пользователя
// в gin-контекст и в контекст логгера.
func AuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := bearerToken(c)
		if tokenStr == "" {
			apperrors.HandleError(c, apperrors.NewUnauthorizedError("Authorization header missing or invalid"))
			c.Abort()
			return
		}

		claims, err := auth.ParseToken(tokenStr, secret)
		if err != nil {
			if errors.Is(err, auth.ErrMissingStructure) {
				apperrors.HandleError(c, apperrors.ErrMissingStructure)
			} else {
				apperrors.HandleError(c, apperrors.ErrInvalidToken)
			}
			c.Abort()
			return
		}

		c.Set(contextkeys.UserIDKey, claims.UserID)
		c.Set(contextkeys.StructureIDKey, claims.StructureID)
		c.Set(contextkeys.StructureNameKey, claims.StructureName)
		c.Set(contextkeys.RoleKey, claims.Role)

		ctx := logger.WithStructureID(c.Request.Context(), claims.StructureID)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// RequirePermission - middleware ограничения по разрешениям роли
func RequirePermission(permission string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString(contextkeys.RoleKey)
		if !auth.HasPermission(role, permission) {
			apperrors.HandleError(c, apperrors.NewForbiddenError("Access denied: insufficient permissions"))
			c.Abort()
			return
		}
		c.Next()
	}
}

// bearerToken reads the Authorization header, or the access_token query
// parameter for websocket upgrades where browsers cannot set headers.
func bearerToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	}
	if c.IsWebsocket() {
		return c.Query("access_token")
	}
	return ""
}
