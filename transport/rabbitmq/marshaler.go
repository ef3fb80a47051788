package rabbitmq

import (
	"fmt"
	"strconv"

	"github.com/ThreeDotsLabs/watermill-amqp/v3/pkg/amqp"
	"github.com/ThreeDotsLabs/watermill/message"
	amqp091 "github.com/rabbitmq/amqp091-go"

	codecpkg "github.com/drblury/skinos/internal/runtime/codec"
	metadatapkg "github.com/drblury/skinos/internal/runtime/metadata"
)

// Marshaler carries the AMQP content type and delivery properties across
// the router boundary. Headers and message UUIDs are handled by the
// watermill default marshaler.
type Marshaler struct {
	base amqp.DefaultMarshaler
}

func (m Marshaler) Marshal(msg *message.Message) (amqp091.Publishing, error) {
	publishing, err := m.base.Marshal(msg)
	if err != nil {
		return publishing, err
	}
	publishing.ContentType = codecpkg.Normalize(msg.Metadata.Get(metadatapkg.KeyContentType))
	if corr := msg.Metadata.Get(metadatapkg.KeyCorrelationID); corr != "" {
		publishing.CorrelationId = corr
	}
	for _, key := range []string{metadatapkg.KeyContentType, metadatapkg.KeyExchange, metadatapkg.KeyRoutingKey, metadatapkg.KeyRedelivered, metadatapkg.KeyConsumerTag} {
		delete(publishing.Headers, key)
	}
	return publishing, nil
}

// Unmarshal accepts deliveries from foreign publishers too: headers that are
// not strings are formatted instead of failing the delivery.
func (m Marshaler) Unmarshal(delivery amqp091.Delivery) (*message.Message, error) {
	msg, err := m.base.Unmarshal(delivery)
	if err != nil {
		msg = unmarshalLoose(delivery)
	}
	msg.Metadata.Set(metadatapkg.KeyContentType, delivery.ContentType)
	msg.Metadata.Set(metadatapkg.KeyExchange, delivery.Exchange)
	msg.Metadata.Set(metadatapkg.KeyRoutingKey, delivery.RoutingKey)
	msg.Metadata.Set(metadatapkg.KeyRedelivered, strconv.FormatBool(delivery.Redelivered))
	if delivery.ConsumerTag != "" {
		msg.Metadata.Set(metadatapkg.KeyConsumerTag, delivery.ConsumerTag)
	}
	if delivery.CorrelationId != "" && msg.Metadata.Get(metadatapkg.KeyCorrelationID) == "" {
		msg.Metadata.Set(metadatapkg.KeyCorrelationID, delivery.CorrelationId)
	}
	return msg, nil
}

func unmarshalLoose(delivery amqp091.Delivery) *message.Message {
	uuid := delivery.MessageId
	md := make(message.Metadata, len(delivery.Headers))
	for key, value := range delivery.Headers {
		if key == amqp.DefaultMessageUUIDHeaderKey {
			if s, ok := value.(string); ok {
				uuid = s
			}
			continue
		}
		md[key] = fmt.Sprint(value)
	}
	msg := message.NewMessage(uuid, delivery.Body)
	msg.Metadata = md
	return msg
}
