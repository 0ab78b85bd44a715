package httpx

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const actorKey = "actor_id"

// AdminAuth verifies a bearer token and requires an admin role claim. The
// subject claim becomes the actor id for audit trails.
func AdminAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
		if raw == "" || raw == c.GetHeader("Authorization") {
			Fail(c, http.StatusUnauthorized, "missing bearer token")
			c.Abort()
			return
		}

		tok, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
			return []byte(secret), nil
		}, jwt.WithValidMethods([]string{"HS256"}))
		if err != nil || !tok.Valid {
			Fail(c, http.StatusUnauthorized, "invalid token")
			c.Abort()
			return
		}

		claims, ok := tok.Claims.(jwt.MapClaims)
		if !ok {
			Fail(c, http.StatusUnauthorized, "invalid token claims")
			c.Abort()
			return
		}
		role, _ := claims["role"].(string)
		if role != "ADMIN" && role != "SUPER_ADMIN" {
			Fail(c, http.StatusForbidden, "admin role required")
			c.Abort()
			return
		}
		sub, _ := claims["sub"].(string)
		if sub == "" {
			Fail(c, http.StatusUnauthorized, "token missing subject")
			c.Abort()
			return
		}
		c.Set(actorKey, sub)
		c.Next()
	}
}

// ActorID returns the authenticated actor set by AdminAuth.
func ActorID(c *gin.Context) string {
	return c.GetString(actorKey)
}
