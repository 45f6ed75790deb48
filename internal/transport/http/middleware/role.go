package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/socraticschool/accounts/internal/domain"
)

// RequireRole runs after Auth and rejects sessions whose role claim
// does not match.
func RequireRole(role domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString("role") != string(role) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
			return
		}
		c.Next()
	}
}
