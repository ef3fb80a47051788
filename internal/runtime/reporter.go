package runtime

import (
	"context"
	"time"

	"github.com/getsentry/sentry-go"
)

// ErrorReporter forwards handler errors to an error-tracking service.
type ErrorReporter interface {
	Report(ctx context.Context, err error, tags map[string]string)
}

// ErrorReporterFunc adapts a function to ErrorReporter.
type ErrorReporterFunc func(ctx context.Context, err error, tags map[string]string)

func (f ErrorReporterFunc) Report(ctx context.Context, err error, tags map[string]string) {
	f(ctx, err, tags)
}

// SentryReporter captures handler errors as Sentry exceptions.
type SentryReporter struct {
	hub *sentry.Hub
}

// NewSentryReporter creates a reporter with its own Sentry client.
func NewSentryReporter(options sentry.ClientOptions) (*SentryReporter, error) {
	client, err := sentry.NewClient(options)
	if err != nil {
		return nil, err
	}
	return NewSentryReporterFromHub(sentry.NewHub(client, sentry.NewScope())), nil
}

// NewSentryReporterFromHub reports through an existing hub. A nil hub falls
// back to the global Sentry hub.
func NewSentryReporterFromHub(hub *sentry.Hub) *SentryReporter {
	if hub == nil {
		hub = sentry.CurrentHub()
	}
	return &SentryReporter{hub: hub}
}

func (r *SentryReporter) Report(ctx context.Context, err error, tags map[string]string) {
	if r == nil || err == nil {
		return
	}
	hub := r.hub
	if ctx != nil {
		if ctxHub := sentry.GetHubFromContext(ctx); ctxHub != nil {
			hub = ctxHub
		}
	}
	hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTags(tags)
		hub.CaptureException(err)
	})
}

// Flush waits for buffered events to be sent.
func (r *SentryReporter) Flush(timeout time.Duration) bool {
	if r == nil {
		return true
	}
	return r.hub.Flush(timeout)
}
