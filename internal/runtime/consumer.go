package runtime

import (
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"

	codecpkg "github.com/drblury/skinos/internal/runtime/codec"
	errspkg "github.com/drblury/skinos/internal/runtime/errors"
	handlerpkg "github.com/drblury/skinos/internal/runtime/handlers"
	idspkg "github.com/drblury/skinos/internal/runtime/ids"
	loggingpkg "github.com/drblury/skinos/internal/runtime/logging"
	metadatapkg "github.com/drblury/skinos/internal/runtime/metadata"
	"github.com/drblury/skinos/transport"
)

// Channel is the broker connection consumers are built for. Publisher is
// optional; without it rejected deliveries are not forwarded to the
// failure exchange.
type Channel struct {
	Subscriber message.Subscriber
	Publisher  message.Publisher
}

// Consumer consumes one queue and runs every handler registered for it.
type Consumer struct {
	// Name is the router handler name, unique per queue.
	Name      string
	Tag       string
	Queue     *Queue
	Accept    []string
	Callbacks []*WrappedHandler
	Channel   Channel

	registration *Registration
	logger       loggingpkg.ServiceLogger
	hooks        ConsumerHooks
	metrics      *ConsumerMetrics
	policy       ErrorPolicy
	reporter     ErrorReporter
}

// Consumers freezes the registry and builds one consumer per registration
// for ch, in registration order. Calling it again, for instance after a
// reconnect, builds fresh consumers over the same frozen topology.
func (r *Registry) Consumers(ch Channel) ([]*Consumer, error) {
	if ch.Subscriber == nil {
		return nil, errspkg.ErrChannelRequired
	}
	if err := r.Freeze(); err != nil {
		return nil, err
	}

	regs := r.Registrations()
	consumers := make([]*Consumer, 0, len(regs))
	for _, reg := range regs {
		c := &Consumer{
			Name:         "skinos-" + reg.Queue.Topic(),
			Tag:          idspkg.ConsumerTag(reg.Queue.Name),
			Queue:        reg.Queue,
			Accept:       append([]string(nil), reg.Accept...),
			Callbacks:    append([]*WrappedHandler(nil), reg.Handlers...),
			Channel:      ch,
			registration: reg,
			hooks:        r.hooks,
			metrics:      r.metrics,
			policy:       r.policy,
			reporter:     r.reporter,
		}
		c.logger = r.logger.With(loggingpkg.LogFields{
			"consumer":    c.Name,
			"exchange":    reg.Exchange(),
			"queue":       reg.Queue.Name,
			"binding_key": reg.BindingKey,
		})
		consumers = append(consumers, c)
		c.logger.Debug("Consumer created", loggingpkg.LogFields{
			"tag":      c.Tag,
			"handlers": len(c.Callbacks),
		})
	}
	return consumers, nil
}

// Topic is the router topic the consumer subscribes to.
func (c *Consumer) Topic() string {
	return c.Queue.Topic()
}

// Registration returns the registration the consumer was built from.
func (c *Consumer) Registration() *Registration {
	return c.registration
}

// Handle processes one delivery. Every callback runs in order with the
// decoded body. The delivery is acked when at least one callback acked it
// and nacked (left for redelivery) otherwise. A re-raised handler error
// stops the remaining callbacks and is returned so the router nacks, unless
// an earlier callback already acked the delivery.
// Deliveries that cannot be decoded are rejected: forwarded to the
// failure.reject queue when possible, then acked.
func (c *Consumer) Handle(msg *message.Message) error {
	start := time.Now()
	md := metadatapkg.FromWatermill(msg.Metadata)
	dc := DeliveryContext{
		Consumer:    c.Name,
		Tasks:       c.registration.Tasks(),
		Exchange:    c.Queue.Exchange.Name,
		Queue:       c.Queue.Name,
		BindingKey:  c.Queue.BindingKey,
		MessageUUID: msg.UUID,
		Metadata:    md,
		Context:     msg.Context(),
		Redelivered: md.Redelivered(),
		StartedAt:   start,
	}
	c.hooks.start(dc)
	c.registration.stats.onMessageStart()
	c.metrics.deliveryStarted(dc.Exchange, dc.Queue)

	body, err := c.decode(msg, md)
	if err != nil {
		c.reject(msg, md, err)
		msg.Ack()
		c.settle(dc, DeliveryRejected, start, err)
		return nil
	}

	handle := handlerpkg.FromWatermill(msg)
	handle.Exchange = c.Queue.Exchange.Name
	handle.Queue = c.Queue.Name
	handle.Logger = c.logger

	var swallowed []error
	for _, cb := range c.Callbacks {
		res, err := cb.Call(body, handle)
		if err != nil {
			c.metrics.handlerFailed(dc.Exchange, dc.Queue, cb.Task)
			dc.Duration = time.Since(start)
			c.registration.stats.onMessageFinish(DeliveryFailed, dc.Duration, append(swallowed, err)...)
			c.metrics.deliverySettled(dc.Exchange, dc.Queue, DeliveryFailed, dc.Duration)
			// An earlier callback already acked: settle it so the router's
			// nack does not redeliver to that callback.
			if handle.Acked() {
				msg.Ack()
			}
			c.hooks.fail(dc, err)
			return err
		}
		if res.Err != nil {
			c.metrics.handlerFailed(dc.Exchange, dc.Queue, cb.Task)
			swallowed = append(swallowed, res.Err)
		}
	}

	outcome := DeliveryPending
	if handle.Acked() {
		outcome = DeliveryAcked
		msg.Ack()
	} else {
		msg.Nack()
	}
	c.settle(dc, outcome, start, swallowed...)
	return nil
}

func (c *Consumer) settle(dc DeliveryContext, outcome string, start time.Time, errs ...error) {
	dc.Duration = time.Since(start)
	dc.Outcome = outcome
	c.registration.stats.onMessageFinish(outcome, dc.Duration, errs...)
	c.metrics.deliverySettled(dc.Exchange, dc.Queue, outcome, dc.Duration)
	c.hooks.done(dc)
}

func (c *Consumer) decode(msg *message.Message, md metadatapkg.Metadata) (any, error) {
	ct := codecpkg.Normalize(md.ContentType())
	if !codecpkg.Accepts(c.Accept, ct) {
		return nil, fmt.Errorf("%w: %s", errspkg.ErrContentDisallowed, ct)
	}
	return codecpkg.DecodeBody(ct, msg.Payload)
}

// reject logs and reports a delivery the consumer cannot accept and
// forwards it to the failure.reject queue. Failure consumers never forward,
// so a bad message cannot loop.
func (c *Consumer) reject(msg *message.Message, md metadatapkg.Metadata, cause error) {
	c.logger.Error("Message rejected", cause, loggingpkg.LogFields{
		"message_uuid": msg.UUID,
		"content_type": md.ContentType(),
	})
	if c.policy.Report && c.reporter != nil {
		c.reporter.Report(msg.Context(), cause, map[string]string{
			"exchange": c.Queue.Exchange.Name,
			"queue":    c.Queue.Name,
			"reason":   "rejected",
		})
	}
	if c.registration.Failure || c.Channel.Publisher == nil {
		return
	}

	out, err := newRejectedMessage(msg, md, c.Queue, cause)
	if err == nil {
		err = c.Channel.Publisher.Publish(transport.JoinTopic(FailureExchange, FailureReject.Queue()), out)
	}
	if err != nil {
		c.logger.Error("Could not forward rejected message", err, loggingpkg.LogFields{"message_uuid": msg.UUID})
		return
	}
	c.metrics.rejectForwarded(c.Queue.Exchange.Name, c.Queue.Name)
}

func newRejectedMessage(msg *message.Message, md metadatapkg.Metadata, queue *Queue, cause error) (*message.Message, error) {
	payload, err := codecpkg.Marshal(RejectedMessage{
		MessageUUID: msg.UUID,
		Reason:      cause.Error(),
		Exchange:    queue.Exchange.Name,
		Queue:       queue.Name,
		RoutingKey:  md.RoutingKey(),
		ContentType: md.ContentType(),
		Payload:     msg.Payload,
	})
	if err != nil {
		return nil, fmt.Errorf("encode rejected message: %w", err)
	}
	out := message.NewMessage(idspkg.CreateULID(), payload)
	out.Metadata = metadatapkg.ToWatermill(metadatapkg.New(metadatapkg.KeyContentType, codecpkg.ContentTypeJSON))
	if corr := md.CorrelationID(); corr != "" {
		out.Metadata.Set(metadatapkg.KeyCorrelationID, corr)
	}
	out.SetContext(msg.Context())
	return out, nil
}
