package middleware

import (
	"bytes"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
)

type responseBodyWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (r responseBodyWriter) Write(b []byte) (int, error) {
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}

// Logger logs every inbound request. Response bodies are only logged with
// debug enabled.
func Logger(debug bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		w := &responseBodyWriter{body: &bytes.Buffer{}, ResponseWriter: c.Writer}
		c.Writer = w

		t0 := time.Now()

		c.Next()

		body := "<redacted>"
		if debug {
			body = w.body.String()
		}

		level := slog.LevelInfo
		if c.Writer.Status() >= 500 {
			level = slog.LevelError
		}

		logFields := []any{
			slog.Group("http",
				slog.Group("request",
					"duration_ms", time.Since(t0).Milliseconds(),
					"method", c.Request.Method,
					"route", c.FullPath(),
					slog.Group("url",
						"path", c.Request.URL.Path,
						"query_params", c.Request.URL.Query(),
					),
					"client_ip", c.ClientIP(),
					"user_agent", c.Request.UserAgent(),
				),
				slog.Group("response",
					"status", c.Writer.Status(),
					"size", c.Writer.Size(),
					"body", body,
				),
			),
		}

		if len(c.Errors) > 0 {
			logFields = append(logFields, "errors", c.Errors.String())
		}

		slog.Log(c.Request.Context(), level, "inbound request", logFields...)
	}
}
