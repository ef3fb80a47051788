package handlers

import (
	"context"

	"github.com/ThreeDotsLabs/watermill/message"

	codecpkg "github.com/drblury/skinos/internal/runtime/codec"
	loggingpkg "github.com/drblury/skinos/internal/runtime/logging"
	metadatapkg "github.com/drblury/skinos/internal/runtime/metadata"
)

// Acknowledger is the broker-facing half of a message handle.
type Acknowledger interface {
	Ack() bool
}

// Message is the handle passed to every handler next to the decoded body. It
// carries the raw payload, the negotiated content type and the broker
// metadata, and exposes Ack. Calling Ack more than once is harmless.
type Message struct {
	UUID     string
	Payload  []byte
	Metadata metadatapkg.Metadata
	Exchange string
	Queue    string
	Logger   loggingpkg.ServiceLogger

	ctx   context.Context
	acker Acknowledger
	acked bool
}

// NewMessage builds a handle. acker may be nil, in which case Ack only
// records the decision.
func NewMessage(ctx context.Context, uuid string, payload []byte, md metadatapkg.Metadata, acker Acknowledger) *Message {
	if ctx == nil {
		ctx = context.Background()
	}
	if md == nil {
		md = metadatapkg.Metadata{}
	}
	return &Message{
		UUID:     uuid,
		Payload:  payload,
		Metadata: md,
		ctx:      ctx,
		acker:    acker,
	}
}

// FromWatermill wraps a router message. Ack is only recorded on the handle;
// the consumer settles the router message once every callback has run.
func FromWatermill(msg *message.Message) *Message {
	return NewMessage(msg.Context(), msg.UUID, msg.Payload, metadatapkg.FromWatermill(msg.Metadata), nil)
}

// Ack acknowledges the message. It returns false when the underlying
// acknowledger refused the ack.
func (m *Message) Ack() bool {
	if m.acked {
		return true
	}
	if m.acker != nil && !m.acker.Ack() {
		return false
	}
	m.acked = true
	return true
}

// Acked reports whether Ack has been called successfully.
func (m *Message) Acked() bool {
	return m.acked
}

func (m *Message) Context() context.Context {
	if m.ctx == nil {
		return context.Background()
	}
	return m.ctx
}

// ContentType returns the normalised content type; missing means JSON.
func (m *Message) ContentType() string {
	return codecpkg.Normalize(m.Metadata.ContentType())
}

// CorrelationID returns the correlation ID from metadata, if present.
func (m *Message) CorrelationID() string {
	return m.Metadata.CorrelationID()
}

// RoutingKey returns the routing key the message was published with.
func (m *Message) RoutingKey() string {
	return m.Metadata.RoutingKey()
}

// Redelivered reports whether the broker flagged this delivery as a retry.
func (m *Message) Redelivered() bool {
	return m.Metadata.Redelivered()
}

// Decode decodes the payload into v according to the content type.
func (m *Message) Decode(v any) error {
	return codecpkg.DecodeBodyInto(m.ContentType(), m.Payload, v)
}
