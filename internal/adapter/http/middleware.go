package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// RequireAPIToken validates the bearer token on API requests.
// If the token is missing or invalid, the request is aborted with 401.
func RequireAPIToken(validToken string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			respondError(c, http.StatusUnauthorized, "missing_authorization", errors.New("missing authorization header"))
			c.Abort()
			return
		}

		token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
		if token != validToken {
			respondError(c, http.StatusUnauthorized, "invalid_token", errors.New("invalid API token"))
			c.Abort()
			return
		}

		c.Next()
	}
}
