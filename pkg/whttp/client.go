package whttp

import (
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

const DefaultTimeout = 10 * time.Second

// redactedParams never reach the logs. google maps authenticates with "key".
var redactedParams = []string{"key", "access_key", "api_key", "appid"}

type LoggingRoundTripper struct {
	Proxied http.RoundTripper
}

func (lrt LoggingRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	t0 := time.Now()

	res, err := lrt.Proxied.RoundTrip(req)
	if err != nil {
		slog.ErrorContext(ctx, "outbound request failed",
			slog.Group("http",
				"method", req.Method,
				"url", RedactURL(req.URL),
				"duration_ms", time.Since(t0).Milliseconds(),
			),
			"error", err.Error())
		return res, err
	}

	slog.InfoContext(ctx, "outbound request",
		slog.Group("http",
			"method", req.Method,
			"url", RedactURL(req.URL),
			"status", res.StatusCode,
			"duration_ms", time.Since(t0).Milliseconds(),
		))

	return res, nil
}

// RedactURL returns u as a string with credentials in the query masked.
func RedactURL(u *url.URL) string {
	q := u.Query()
	changed := false
	for _, p := range redactedParams {
		if q.Has(p) {
			q.Set(p, "*****")
			changed = true
		}
	}

	if !changed {
		return u.String()
	}

	redacted := *u
	redacted.RawQuery = q.Encode()
	return redacted.String()
}

// NewLoggingClient returns a client that logs every outbound request. A
// timeout of zero means DefaultTimeout.
func NewLoggingClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &http.Client{
		Transport: LoggingRoundTripper{Proxied: http.DefaultTransport},
		Timeout:   timeout,
	}
}
