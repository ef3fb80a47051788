package runtime

import (
	"context"
	"testing"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"

	metadatapkg "github.com/drblury/skinos/internal/runtime/metadata"
)

func passThrough(msg *message.Message) ([]*message.Message, error) {
	return nil, nil
}

func TestCorrelationIDMiddleware(t *testing.T) {
	msg := message.NewMessage("1", nil)
	_, err := correlationIDMiddleware(passThrough)(msg)
	require.NoError(t, err)
	assert.Len(t, msg.Metadata.Get(metadatapkg.KeyCorrelationID), 26)

	kept := message.NewMessage("2", nil)
	kept.Metadata.Set(metadatapkg.KeyCorrelationID, "corr-1")
	_, err = correlationIDMiddleware(passThrough)(kept)
	require.NoError(t, err)
	assert.Equal(t, "corr-1", kept.Metadata.Get(metadatapkg.KeyCorrelationID))
}

func TestLogMessagesMiddleware(t *testing.T) {
	logger := newRecordingLogger()
	msg := message.NewMessage("1", []byte(`{"a":1}`))
	_, err := logMessagesMiddleware(logger)(passThrough)(msg)
	require.NoError(t, err)

	entry, ok := logger.Find("Processing message")
	require.True(t, ok)
	assert.Equal(t, "debug", entry.level)
	assert.Equal(t, `{"a":1}`, entry.fields["payload"])
}

func TestTracerMiddlewareStartsConsumerSpan(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	msg := message.NewMessage("1", nil)
	msg.Metadata.Set(metadatapkg.KeyRoutingKey, "test.test.a")
	msg.Metadata.Set(metadatapkg.KeyCorrelationID, "corr-1")

	var inner trace.SpanContext
	_, err := tracerMiddleware(provider.Tracer("test"))(func(m *message.Message) ([]*message.Message, error) {
		inner = trace.SpanContextFromContext(m.Context())
		return nil, nil
	})(msg)
	require.NoError(t, err)

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	span := ended[0]
	assert.Equal(t, "ProcessMessage", span.Name())
	assert.Equal(t, trace.SpanKindConsumer, span.SpanKind())
	assert.Equal(t, span.SpanContext().SpanID(), inner.SpanID(), "handlers see the span")
	assert.Contains(t, span.Attributes(), attribute.String("messaging.rabbitmq.destination.routing_key", "test.test.a"))
	assert.Contains(t, span.Attributes(), attribute.String("messaging.message.conversation_id", "corr-1"))
}

func TestRegisterMiddleware(t *testing.T) {
	svc := newTestService(t, demoRegistry(t), nil)

	assert.ErrorContains(t, svc.RegisterMiddleware(MiddlewareRegistration{Name: "empty"}), "requires Middleware or Builder")
	assert.NoError(t, svc.RegisterMiddleware(MiddlewareRegistration{
		Name:    "skipped",
		Builder: func(*Service) (message.HandlerMiddleware, error) { return nil, nil },
	}))
	assert.NoError(t, svc.RegisterMiddleware(CorrelationIDMiddleware()))

	var nilRouter Service
	assert.ErrorContains(t, nilRouter.RegisterMiddleware(CorrelationIDMiddleware()), "router is not initialised")
}

func TestMetricsMiddlewareDisabled(t *testing.T) {
	svc := newTestService(t, demoRegistry(t), nil)
	mw, err := MetricsMiddleware().Builder(svc)
	require.NoError(t, err)
	assert.Nil(t, mw)
	assert.Nil(t, svc.registry.metrics)
}

func TestDefaultMiddlewares(t *testing.T) {
	var names []string
	for _, m := range DefaultMiddlewares() {
		names = append(names, m.Name)
	}
	assert.Equal(t, []string{"correlation_id", "log_messages", "tracer", "metrics", "recoverer"}, names)
}

func TestTracerMiddlewareUsesMessageContext(t *testing.T) {
	type key struct{}
	msg := message.NewMessage("1", nil)
	msg.SetContext(context.WithValue(context.Background(), key{}, "v"))

	var got any
	_, err := tracerMiddleware(sdktrace.NewTracerProvider().Tracer("test"))(func(m *message.Message) ([]*message.Message, error) {
		got = m.Context().Value(key{})
		return nil, nil
	})(msg)
	require.NoError(t, err)
	assert.Equal(t, "v", got)
}
