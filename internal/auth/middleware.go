package auth

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/SAP-F-2025/quiz-service/internal/utils"
)

// Gin context keys set by Middleware.
const (
	ContextUserID   = "user_id"
	ContextUserRole = "user_role"
	ContextUserName = "user_name"
)

// UserSyncer records the caller in the local user directory.
type UserSyncer interface {
	Sync(ctx context.Context, user *models.User) error
}

// Middleware authenticates every request and stores the caller in the gin
// context. Directory sync is best effort; a failure is logged and the request
// continues.
func Middleware(authenticator Authenticator, users UserSyncer, logger utils.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, err := authenticator.Authenticate(c.Request)
		if err != nil {
			logger.Warn("Authentication failed",
				"path", c.Request.URL.Path,
				"remote_addr", c.ClientIP(),
				"error", err)
			abort(c, http.StatusUnauthorized, "Authentication required")
			return
		}

		c.Set(ContextUserID, identity.UserID)
		c.Set(ContextUserRole, identity.Role)
		c.Set(ContextUserName, identity.Name)

		if users != nil {
			if err := users.Sync(c.Request.Context(), identity.User()); err != nil {
				logger.Warn("Failed to sync user", "user_id", identity.UserID, "error", err)
			}
		}

		c.Next()
	}
}

// RequireRoles rejects callers whose role is not listed.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	allowed := make(map[models.UserRole]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		role, ok := RoleFrom(c)
		if !ok {
			abort(c, http.StatusUnauthorized, "Authentication required")
			return
		}
		if _, ok := allowed[role]; !ok {
			abort(c, http.StatusForbidden, "Insufficient permissions")
			return
		}
		c.Next()
	}
}

// UserIDFrom returns the authenticated user id.
func UserIDFrom(c *gin.Context) (string, bool) {
	v, ok := c.Get(ContextUserID)
	if !ok {
		return "", false
	}
	id, ok := v.(string)
	return id, ok && id != ""
}

// RoleFrom returns the authenticated user role.
func RoleFrom(c *gin.Context) (models.UserRole, bool) {
	v, ok := c.Get(ContextUserRole)
	if !ok {
		return "", false
	}
	role, ok := v.(models.UserRole)
	return role, ok
}

func abort(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"success": false,
		"message": message,
	})
}
