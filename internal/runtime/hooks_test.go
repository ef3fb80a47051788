package runtime

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConsumerHooksMerge(t *testing.T) {
	var calls []string
	first := ConsumerHooks{
		OnStart: func(DeliveryContext) { calls = append(calls, "first.start") },
		OnError: func(DeliveryContext, error) { calls = append(calls, "first.error") },
	}
	second := ConsumerHooks{
		OnStart: func(DeliveryContext) { calls = append(calls, "second.start") },
		OnDone:  func(DeliveryContext) { calls = append(calls, "second.done") },
	}

	merged := first.Merge(second)
	merged.start(DeliveryContext{})
	merged.done(DeliveryContext{})
	merged.fail(DeliveryContext{}, errBoom)

	assert.Equal(t, []string{"first.start", "second.start", "second.done", "first.error"}, calls)
}

func TestConsumerHooksZeroValue(t *testing.T) {
	var hooks ConsumerHooks
	assert.NotPanics(t, func() {
		hooks.start(DeliveryContext{})
		hooks.done(DeliveryContext{})
		hooks.fail(DeliveryContext{}, errBoom)
	})
}

func TestWithHooksAccumulates(t *testing.T) {
	var count int
	hook := ConsumerHooks{OnDone: func(DeliveryContext) { count++ }}
	r := newTestRegistry(WithHooks(hook), WithHooks(hook))
	r.hooks.done(DeliveryContext{})
	assert.Equal(t, 2, count)
}

func TestMetricsHooks(t *testing.T) {
	var started, failed []string
	var outcomes []string
	hooks := MetricsHooks(
		func(exchange, queue string) { started = append(started, exchange+"|"+queue) },
		func(exchange, queue, outcome string) { outcomes = append(outcomes, outcome) },
		func(exchange, queue string) { failed = append(failed, queue) },
	)
	dc := DeliveryContext{Exchange: "test", Queue: "test.test", Outcome: DeliveryAcked}
	hooks.start(dc)
	hooks.done(dc)
	hooks.fail(dc, errors.New("x"))

	assert.Equal(t, []string{"test|test.test"}, started)
	assert.Equal(t, []string{DeliveryAcked}, outcomes)
	assert.Equal(t, []string{"test.test"}, failed)

	assert.NotPanics(t, func() {
		MetricsHooks(nil, nil, nil).done(dc)
	})
}

func TestAlertingHooks(t *testing.T) {
	var alerted error
	hooks := AlertingHooks(func(_ DeliveryContext, err error) { alerted = err })
	hooks.fail(DeliveryContext{}, errBoom)
	require.ErrorIs(t, alerted, errBoom)
	assert.Nil(t, hooks.OnStart)
}

func TestLoggingHooks(t *testing.T) {
	logger := newRecordingLogger()
	hooks := LoggingHooks(logger)

	dc := DeliveryContext{Consumer: "skinos-test|q", Exchange: "test", Queue: "q", MessageUUID: "m", Outcome: DeliveryPending}
	hooks.start(dc)
	hooks.done(dc)
	hooks.fail(dc, errBoom)

	entries := logger.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, "Delivery started", entries[0].msg)
	assert.Equal(t, DeliveryPending, entries[1].fields["outcome"])
	assert.ErrorIs(t, entries[2].err, errBoom)
}
