package middleware

import "github.com/gin-gonic/gin"

// CacheControlMiddleware marks dashboard reads as cacheable; analytics
// snapshots tolerate short staleness.
func CacheControlMiddleware(duration string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Cache-Control", "public, max-age="+duration)
		c.Next()
	}
}
