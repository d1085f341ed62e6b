package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// RedirectMiddleware maps route names from earlier iterations of the API
// onto their current equivalents.
func RedirectMiddleware(basePath string) gin.HandlerFunc {
	return func(c *gin.Context) {
		// '/signup' predates '/register'; '/whoami' predates '/me'.
		redirects := map[string]string{
			"signup": "register",
			"whoami": "me",
		}

		path := c.Request.URL.Path
		for from, to := range redirects {
			from, to = basePath+from, basePath+to

			if strings.HasPrefix(path, from) {
				newPath := to + path[len(from):]

				c.Redirect(http.StatusPermanentRedirect, newPath)
				c.Abort()
				return
			}
		}

		c.Next()
	}
}
