package runtime

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errspkg "github.com/drblury/skinos/internal/runtime/errors"
)

type capturedEvents struct {
	mu     sync.Mutex
	events []*sentry.Event
}

func (c *capturedEvents) beforeSend(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
	// Dropping the event keeps the test offline.
	return nil
}

func (c *capturedEvents) Events() []*sentry.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*sentry.Event(nil), c.events...)
}

func TestSentryReporterCapturesWithTags(t *testing.T) {
	captured := &capturedEvents{}
	reporter, err := NewSentryReporter(sentry.ClientOptions{BeforeSend: captured.beforeSend})
	require.NoError(t, err)

	execErr := &errspkg.HandlerExecutionError{Handler: "task", Exchange: "test", Queue: "test.hello", Err: errBoom}
	reporter.Report(context.Background(), execErr, map[string]string{"task": "task", "queue": "test.hello"})
	reporter.Flush(time.Second)

	events := captured.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "task", events[0].Tags["task"])
	assert.Equal(t, "test.hello", events[0].Tags["queue"])
	require.NotEmpty(t, events[0].Exception)
}

func TestSentryReporterPrefersContextHub(t *testing.T) {
	own := &capturedEvents{}
	reporter, err := NewSentryReporter(sentry.ClientOptions{BeforeSend: own.beforeSend})
	require.NoError(t, err)

	fromCtx := &capturedEvents{}
	client, err := sentry.NewClient(sentry.ClientOptions{BeforeSend: fromCtx.beforeSend})
	require.NoError(t, err)
	ctx := sentry.SetHubOnContext(context.Background(), sentry.NewHub(client, sentry.NewScope()))

	reporter.Report(ctx, errBoom, nil)

	assert.Empty(t, own.Events())
	assert.Len(t, fromCtx.Events(), 1)
}

func TestSentryReporterIgnoresNil(t *testing.T) {
	var reporter *SentryReporter
	assert.NotPanics(t, func() {
		reporter.Report(context.Background(), errBoom, nil)
		assert.True(t, reporter.Flush(time.Millisecond))
	})

	captured := &capturedEvents{}
	r, err := NewSentryReporter(sentry.ClientOptions{BeforeSend: captured.beforeSend})
	require.NoError(t, err)
	r.Report(context.Background(), nil, nil)
	assert.Empty(t, captured.Events())
}

func TestErrorReporterFunc(t *testing.T) {
	var got error
	var reporter ErrorReporter = ErrorReporterFunc(func(_ context.Context, err error, _ map[string]string) { got = err })
	reporter.Report(context.Background(), errBoom, nil)
	assert.ErrorIs(t, got, errBoom)
}
