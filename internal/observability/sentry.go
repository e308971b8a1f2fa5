// Package observability wires error reporting to Sentry.
package observability

import (
	"context"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/dmitrijs2005/authentify/internal/logging"
)

// InitSentry does nothing when dsn is empty.
func InitSentry(dsn, environment string) error {
	if dsn == "" {
		return nil
	}

	return sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		Environment:      environment,
		AttachStacktrace: true,
	})
}

func FlushSentry() {
	sentry.Flush(2 * time.Second)
}

// ViolationReporter returns a hook for corrupt registry data. It logs the
// message, sends it to Sentry and flushes, since the registry panics right
// after the hook returns.
func ViolationReporter(logger logging.Logger) func(msg string) {
	return func(msg string) {
		logger.Error(context.Background(), "registry invariant violated", "detail", msg)

		sentry.WithScope(func(scope *sentry.Scope) {
			scope.SetLevel(sentry.LevelFatal)
			scope.SetTag("component", "registry")
			sentry.CaptureMessage(msg)
		})
		FlushSentry()
	}
}
