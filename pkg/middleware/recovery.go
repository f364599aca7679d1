package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/manzanit0/smartcity/pkg/alert"
)

func Recovery(n alert.Notifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Re-panicking lets the notifier do the recover while the request is
		// still aborted with a 500.
		defer n.Recover(c.Request.Context())
		defer func() {
			if r := recover(); r != nil {
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
				panic(r)
			}
		}()

		c.Next()
	}
}
