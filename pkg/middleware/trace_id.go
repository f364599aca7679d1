package middleware

import (
	"context"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	"github.com/segmentio/ksuid"
)

type CtxKey string

const CtxKeyTraceID CtxKey = "trace_id"

const HeaderTraceID = "X-Trace-Id"

// TraceID tags every request with a ksuid, reusing the caller's X-Trace-Id
// when present. The id is also set on a per-request sentry hub so alerts can
// be correlated with logs.
func TraceID() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := c.GetHeader(HeaderTraceID)
		if traceID == "" {
			traceID = ksuid.New().String()
		}

		hub := sentry.CurrentHub().Clone()
		hub.Scope().SetTag(string(CtxKeyTraceID), traceID)

		ctx := context.WithValue(c.Request.Context(), CtxKeyTraceID, traceID)
		ctx = sentry.SetHubOnContext(ctx, hub)
		c.Request = c.Request.Clone(ctx)
		c.Header(HeaderTraceID, traceID)

		c.Next()
	}
}

func GetTraceID(ctx context.Context) string {
	if s, ok := ctx.Value(CtxKeyTraceID).(string); ok {
		return s
	}

	return ""
}
