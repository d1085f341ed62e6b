package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// CorsMiddleware answers CORS preflight and marks responses for the
// configured frontend origin. Credentials are allowed so the session
// cookie survives cross-origin calls; with the wildcard origin the
// request's own origin is echoed back, since "*" cannot be combined with
// credentials.
func CorsMiddleware(origin string) gin.HandlerFunc {
	return func(c *gin.Context) {
		allowed := origin
		if allowed == "*" {
			allowed = c.GetHeader("Origin")
		}
		if allowed != "" {
			c.Header("Access-Control-Allow-Origin", allowed)
			c.Header("Access-Control-Allow-Credentials", "true")
			c.Header("Vary", "Origin")
		}

		if c.Request.Method == http.MethodOptions {
			c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Content-Type, X-Requested-With")
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
