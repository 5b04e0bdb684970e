package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"
)

func CORS(allowedOrigins []string) gin.HandlerFunc {
	handler := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", requestIDHeader},
		ExposedHeaders: []string{
			"Content-Disposition",
			requestIDHeader,
			headerRateLimit,
			headerRateRemaining,
			headerRateReset,
		},
	})

	return func(c *gin.Context) {
		handler.HandlerFunc(c.Writer, c.Request)

		// Ответ на preflight (204) уже записан rs/cors
		if c.Request.Method == http.MethodOptions && c.GetHeader("Access-Control-Request-Method") != "" {
			c.Abort()
			return
		}
		c.Next()
	}
}
