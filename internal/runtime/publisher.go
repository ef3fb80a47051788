package runtime

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ThreeDotsLabs/watermill/message"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"

	codecpkg "github.com/drblury/skinos/internal/runtime/codec"
	errspkg "github.com/drblury/skinos/internal/runtime/errors"
	idspkg "github.com/drblury/skinos/internal/runtime/ids"
	metadatapkg "github.com/drblury/skinos/internal/runtime/metadata"
	"github.com/drblury/skinos/transport"
)

var protoJSONMarshalOptions = protojson.MarshalOptions{
	EmitUnpopulated: true,
}

// PublishOption customises one published message.
type PublishOption func(*message.Message)

// WithCorrelationID sets the correlation ID instead of generating one.
func WithCorrelationID(id string) PublishOption {
	return func(msg *message.Message) {
		if id != "" {
			msg.Metadata.Set(metadatapkg.KeyCorrelationID, id)
		}
	}
}

// WithHeaders adds application headers.
func WithHeaders(md metadatapkg.Metadata) PublishOption {
	return func(msg *message.Message) {
		for k, v := range md {
			msg.Metadata.Set(k, v)
		}
	}
}

// WithContentType overrides the content type, for raw []byte bodies.
func WithContentType(contentType string) PublishOption {
	return func(msg *message.Message) {
		msg.Metadata.Set(metadatapkg.KeyContentType, contentType)
	}
}

// Producer publishes bodies to topic exchanges.
type Producer struct {
	publisher message.Publisher
	registry  *Registry
}

// NewProducer creates a producer. registry is optional; when set, an empty
// routing key falls back to the routing key the exchange was declared with.
func NewProducer(publisher message.Publisher, registry *Registry) *Producer {
	return &Producer{publisher: publisher, registry: registry}
}

// NewMessage encodes body into a message. Strings are sent as text/plain,
// []byte as is (JSON unless overridden), proto messages as protobuf JSON and
// everything else as JSON.
func NewMessage(body any, opts ...PublishOption) (*message.Message, error) {
	payload, contentType, err := encodePublishBody(body)
	if err != nil {
		return nil, err
	}
	msg := message.NewMessage(idspkg.CreateULID(), payload)
	msg.Metadata.Set(metadatapkg.KeyContentType, contentType)
	for _, opt := range opts {
		opt(msg)
	}
	if msg.Metadata.Get(metadatapkg.KeyCorrelationID) == "" {
		msg.Metadata.Set(metadatapkg.KeyCorrelationID, idspkg.CreateULID())
	}
	return msg, nil
}

func encodePublishBody(body any) ([]byte, string, error) {
	switch v := body.(type) {
	case []byte:
		return v, codecpkg.ContentTypeJSON, nil
	case proto.Message:
		payload, err := protoJSONMarshalOptions.Marshal(v)
		if err != nil {
			return nil, "", fmt.Errorf("failed to marshal proto body: %w", err)
		}
		return payload, codecpkg.ContentTypeJSON, nil
	default:
		return codecpkg.EncodeBody(body)
	}
}

// Publish sends body to exchange with routingKey.
func (p *Producer) Publish(ctx context.Context, exchange, routingKey string, body any, opts ...PublishOption) error {
	if p == nil || p.publisher == nil {
		return errspkg.ErrPublisherRequired
	}
	exchange = strings.TrimSpace(exchange)
	if exchange == "" {
		return errspkg.ErrExchangeRequired
	}
	if routingKey == "" && p.registry != nil {
		if ex, ok := p.registry.Exchange(exchange); ok {
			routingKey = ex.RoutingKey
		}
	}

	msg, err := NewMessage(body, opts...)
	if err != nil {
		return err
	}
	if ctx != nil {
		msg.SetContext(ctx)
	}
	return p.publisher.Publish(transport.JoinTopic(exchange, routingKey), msg)
}

// Publish sends body through the service transport.
func (s *Service) Publish(ctx context.Context, exchange, routingKey string, body any, opts ...PublishOption) error {
	if s == nil {
		return errors.New("worker service is nil")
	}
	return s.producer.Publish(ctx, exchange, routingKey, body, opts...)
}
