package runtime

import (
	"context"
	"time"

	loggingpkg "github.com/drblury/skinos/internal/runtime/logging"
	metadatapkg "github.com/drblury/skinos/internal/runtime/metadata"
)

// DeliveryContext describes one message delivery to hooks.
type DeliveryContext struct {
	// Consumer is the router handler name of the consumer.
	Consumer string
	// Tasks are the task names of the handlers attached to the consumer.
	Tasks       []string
	Exchange    string
	Queue       string
	BindingKey  string
	MessageUUID string
	Metadata    metadatapkg.Metadata
	Context     context.Context
	Redelivered bool
	StartedAt   time.Time
	// Duration is only set in OnDone and OnError.
	Duration time.Duration
	// Outcome is one of DeliveryAcked, DeliveryPending or DeliveryRejected.
	// It is only set in OnDone.
	Outcome string
}

// ConsumerHooks defines callbacks for delivery lifecycle events.
// All hooks are optional - nil hooks are simply not called.
type ConsumerHooks struct {
	// OnStart is called before the first handler runs.
	OnStart func(ctx DeliveryContext)

	// OnDone is called once the delivery has been settled without a
	// propagated error, whatever the outcome.
	OnDone func(ctx DeliveryContext)

	// OnError is called when a handler error was re-raised. The message is
	// left for redelivery.
	OnError func(ctx DeliveryContext, err error)
}

// Merge combines two ConsumerHooks, creating a new ConsumerHooks that calls both.
// The hooks from 'other' are called after the hooks from 'h'.
func (h ConsumerHooks) Merge(other ConsumerHooks) ConsumerHooks {
	return ConsumerHooks{
		OnStart: chainHooks(h.OnStart, other.OnStart),
		OnDone:  chainHooks(h.OnDone, other.OnDone),
		OnError: chainErrorHooks(h.OnError, other.OnError),
	}
}

func chainHooks(a, b func(DeliveryContext)) func(DeliveryContext) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ctx DeliveryContext) {
		a(ctx)
		b(ctx)
	}
}

func chainErrorHooks(a, b func(DeliveryContext, error)) func(DeliveryContext, error) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ctx DeliveryContext, err error) {
		a(ctx, err)
		b(ctx, err)
	}
}

func (h ConsumerHooks) start(ctx DeliveryContext) {
	if h.OnStart != nil {
		h.OnStart(ctx)
	}
}

func (h ConsumerHooks) done(ctx DeliveryContext) {
	if h.OnDone != nil {
		h.OnDone(ctx)
	}
}

func (h ConsumerHooks) fail(ctx DeliveryContext, err error) {
	if h.OnError != nil {
		h.OnError(ctx, err)
	}
}

// LoggingHooks returns pre-built hooks that log delivery lifecycle events.
func LoggingHooks(logger loggingpkg.ServiceLogger) ConsumerHooks {
	return ConsumerHooks{
		OnStart: func(ctx DeliveryContext) {
			logger.Info("Delivery started", loggingpkg.LogFields{
				"consumer":     ctx.Consumer,
				"exchange":     ctx.Exchange,
				"queue":        ctx.Queue,
				"message_uuid": ctx.MessageUUID,
				"redelivered":  ctx.Redelivered,
			})
		},
		OnDone: func(ctx DeliveryContext) {
			logger.Info("Delivery settled", loggingpkg.LogFields{
				"consumer":     ctx.Consumer,
				"exchange":     ctx.Exchange,
				"queue":        ctx.Queue,
				"message_uuid": ctx.MessageUUID,
				"outcome":      ctx.Outcome,
				"duration_ms":  ctx.Duration.Milliseconds(),
			})
		},
		OnError: func(ctx DeliveryContext, err error) {
			logger.Error("Delivery failed", err, loggingpkg.LogFields{
				"consumer":     ctx.Consumer,
				"exchange":     ctx.Exchange,
				"queue":        ctx.Queue,
				"message_uuid": ctx.MessageUUID,
				"duration_ms":  ctx.Duration.Milliseconds(),
			})
		},
	}
}

// MetricsHooks returns pre-built hooks that feed an external metrics sink.
// onDone receives the delivery outcome.
func MetricsHooks(onStart func(exchange, queue string), onDone func(exchange, queue, outcome string), onError func(exchange, queue string)) ConsumerHooks {
	return ConsumerHooks{
		OnStart: func(ctx DeliveryContext) {
			if onStart != nil {
				onStart(ctx.Exchange, ctx.Queue)
			}
		},
		OnDone: func(ctx DeliveryContext) {
			if onDone != nil {
				onDone(ctx.Exchange, ctx.Queue, ctx.Outcome)
			}
		},
		OnError: func(ctx DeliveryContext, err error) {
			if onError != nil {
				onError(ctx.Exchange, ctx.Queue)
			}
		},
	}
}

// AlertingHooks returns pre-built hooks that trigger alerts on re-raised errors.
func AlertingHooks(alertFunc func(ctx DeliveryContext, err error)) ConsumerHooks {
	return ConsumerHooks{
		OnError: alertFunc,
	}
}
