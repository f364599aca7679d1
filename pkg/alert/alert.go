package alert

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
)

type Notifier interface {
	Msg(ctx context.Context, msg string, args ...interface{}) error
	Error(ctx context.Context, err error, tags map[string]string)
	Recover(ctx context.Context)
}

type sentryNotifier struct{}

var _ Notifier = (*sentryNotifier)(nil)

// NewSentryNotifier initialises the global sentry client. Call Flush before
// the process exits so buffered events are delivered.
func NewSentryNotifier(dsn, env, version string) (*sentryNotifier, error) {
	err := sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		Environment:      env,
		Release:          version,
		AttachStacktrace: true,
	})
	if err != nil {
		return nil, fmt.Errorf("sentry init: %w", err)
	}

	sentry.ConfigureScope(func(scope *sentry.Scope) {
		scope.SetTag("go_version", runtime.Version())
		scope.SetTag("goarch", runtime.GOARCH)
		scope.SetContext("host_info", map[string]interface{}{
			"hostname": hostname(),
		})
	})

	return &sentryNotifier{}, nil
}

func (n *sentryNotifier) Msg(ctx context.Context, msg string, args ...interface{}) error {
	hub(ctx).CaptureMessage(fmt.Sprintf(msg, args...))
	return nil
}

func (n *sentryNotifier) Error(ctx context.Context, err error, tags map[string]string) {
	if err == nil {
		return
	}

	h := hub(ctx)
	h.WithScope(func(scope *sentry.Scope) {
		for k, v := range tags {
			scope.SetTag(k, v)
		}
		h.CaptureException(err)
	})
}

func (n *sentryNotifier) Recover(ctx context.Context) {
	if r := recover(); r != nil {
		slog.ErrorContext(ctx, "recovered from panic", "panic", fmt.Sprint(r), "callstack", getCallstack())
		hub(ctx).RecoverWithContext(ctx, r)
	}
}

func (n *sentryNotifier) Flush() {
	sentry.Flush(2 * time.Second)
}

func hub(ctx context.Context) *sentry.Hub {
	if h := sentry.GetHubFromContext(ctx); h != nil {
		return h
	}

	return sentry.CurrentHub()
}

func hostname() string {
	h, err := os.Hostname()
	if err != nil {
		return "unknown"
	}

	return h
}

// logNotifier is used when no sentry DSN is configured.
type logNotifier struct{}

var _ Notifier = (*logNotifier)(nil)

func NewLogNotifier() *logNotifier {
	return &logNotifier{}
}

func (n *logNotifier) Msg(ctx context.Context, msg string, args ...interface{}) error {
	slog.WarnContext(ctx, fmt.Sprintf(msg, args...))
	return nil
}

func (n *logNotifier) Error(ctx context.Context, err error, tags map[string]string) {
	if err == nil {
		return
	}

	attrs := []any{"error", err.Error()}
	for k, v := range tags {
		attrs = append(attrs, k, v)
	}

	slog.ErrorContext(ctx, "reported error", attrs...)
}

func (n *logNotifier) Recover(ctx context.Context) {
	if r := recover(); r != nil {
		slog.ErrorContext(ctx, "recovered from panic", "panic", fmt.Sprint(r), "callstack", getCallstack())
	}
}

func getCallstack() string {
	pcs := make([]uintptr, 20)
	depth := runtime.Callers(3, pcs)
	frames := runtime.CallersFrames(pcs[:depth])

	var sb strings.Builder
	for f, more := frames.Next(); more; f, more = frames.Next() {
		sb.WriteString(fmt.Sprintf("%s: %d\n", f.Function, f.Line))
	}

	return sb.String()
}
