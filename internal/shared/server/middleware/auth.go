package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"internship-matcher/internal/shared/auth"
	"internship-matcher/internal/shared/server/respond"
)

const (
	userIDKey   = "userId"
	userRoleKey = "userRole"
	userOrgKey  = "userOrg"
)

// Auth validates Bearer JWTs and stores identity in context. When allowDevHeader
// is set, requests without a token may identify themselves with X-User-Id and
// an optional X-User-Role and X-User-Org.
func Auth(allowDevHeader bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Status(http.StatusNoContent)
			return
		}

		authHeader := strings.TrimSpace(c.GetHeader("Authorization"))

		if authHeader != "" {
			if !strings.HasPrefix(authHeader, "Bearer ") {
				respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token", nil)
				return
			}

			token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer"))
			if token == "" {
				respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token", nil)
				return
			}

			claims, err := auth.VerifyJWT(token)
			if err != nil {
				respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token", nil)
				return
			}

			c.Set(userIDKey, claims.Sub)
			c.Set(userRoleKey, claims.Role)
			if claims.Org != "" {
				c.Set(userOrgKey, claims.Org)
			}
			c.Next()
			return
		}

		devID := strings.TrimSpace(c.GetHeader("X-User-Id"))
		if !allowDevHeader || devID == "" {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "Missing identity", nil)
			return
		}

		c.Set(userIDKey, devID)
		c.Set(userRoleKey, auth.NormalizeRole(c.GetHeader("X-User-Role")))
		if org := strings.TrimSpace(c.GetHeader("X-User-Org")); org != "" {
			c.Set(userOrgKey, org)
		}
		c.Next()
	}
}

// UserIDFromContext fetches the user ID set by the auth middleware.
func UserIDFromContext(c *gin.Context) string {
	return stringFromContext(c, userIDKey)
}

// UserRoleFromContext fetches the caller role, defaulting to student.
func UserRoleFromContext(c *gin.Context) string {
	if role := stringFromContext(c, userRoleKey); role != "" {
		return role
	}
	return auth.RoleStudent
}

// UserOrgFromContext fetches the employer organization claim, if any.
func UserOrgFromContext(c *gin.Context) string {
	return stringFromContext(c, userOrgKey)
}

// RequireRole rejects callers whose role is not in roles.
func RequireRole(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		if _, ok := allowed[UserRoleFromContext(c)]; !ok {
			respond.Error(c, http.StatusForbidden, "forbidden", "role not permitted", nil)
			return
		}
		c.Next()
	}
}

func stringFromContext(c *gin.Context, key string) string {
	if c == nil {
		return ""
	}
	val, _ := c.Get(key)
	if s, ok := val.(string); ok {
		return s
	}
	return ""
}
