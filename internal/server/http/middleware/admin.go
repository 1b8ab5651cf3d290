package middleware

import (
	"crypto/hmac"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// AdminRequired guards operator endpoints with a static bearer token.
// An unconfigured token disables the surface entirely.
func AdminRequired(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token == "" {
			c.AbortWithStatus(http.StatusServiceUnavailable)
			return
		}

		header := c.GetHeader("Authorization")
		provided, found := strings.CutPrefix(header, "Bearer ")
		if !found || !hmac.Equal([]byte(provided), []byte(token)) {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}

		c.Next()
	}
}
