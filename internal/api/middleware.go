package api

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/forge/composer/engine/core"
)

// bearerAuth compares the Authorization header's bearer token against
// apiKey using constant-time comparison. When apiKey is empty,
// authentication is skipped entirely (development mode).
func bearerAuth(apiKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if apiKey == "" {
			c.Next()
			return
		}
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(token), []byte(apiKey)) != 1 {
			RespondProblem(c, &core.Problem{
				Status: http.StatusUnauthorized,
				Title:  "Authentication",
				Detail: "missing or invalid bearer token",
			})
			return
		}
		c.Next()
	}
}
