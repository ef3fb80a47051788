// Package rabbitmq provides the AMQP 0-9-1 transport. Consumer topics
// ("exchange|queue") are mapped onto durable topic exchanges and queues
// bound with the binding key taken from the worker topology. Publish topics
// are "exchange|routingKey".
package rabbitmq

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-amqp/v3/pkg/amqp"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/drblury/skinos/transport"
)

// TransportName is the name used to register this transport.
const TransportName = "rabbitmq"

// ConnectionFactory allows overriding the connection creation for testing.
var ConnectionFactory = func(cfg amqp.ConnectionConfig, logger watermill.LoggerAdapter) (*amqp.ConnectionWrapper, error) {
	return amqp.NewConnection(cfg, logger)
}

// PublisherFactory allows overriding the publisher creation for testing.
var PublisherFactory = func(cfg amqp.Config, logger watermill.LoggerAdapter, conn *amqp.ConnectionWrapper) (message.Publisher, error) {
	return amqp.NewPublisherWithConnection(cfg, logger, conn)
}

// SubscriberFactory allows overriding the subscriber creation for testing.
var SubscriberFactory = func(cfg amqp.Config, logger watermill.LoggerAdapter, conn *amqp.ConnectionWrapper) (message.Subscriber, error) {
	return amqp.NewSubscriberWithConnection(cfg, logger, conn)
}

func init() {
	Register()
}

// Register registers the RabbitMQ transport with the default registry.
func Register() {
	transport.RegisterWithCapabilities(TransportName, Build, transport.RabbitMQCapabilities)
}

// Build creates a new RabbitMQ transport.
func Build(ctx context.Context, cfg transport.Config, topology transport.Topology, logger watermill.LoggerAdapter) (transport.Transport, error) {
	url := cfg.GetRabbitMQURL()
	if url == "" {
		return transport.Transport{}, fmt.Errorf("rabbitmq: URL is required")
	}

	amqpConfig := NewConfig(url, cfg.GetPrefetch(), topology)

	conn, err := ConnectionFactory(amqpConfig.Connection, logger)
	if err != nil {
		return transport.Transport{}, err
	}

	publisher, err := PublisherFactory(amqpConfig, logger, conn)
	if err != nil {
		return transport.Transport{}, err
	}

	subscriber, err := SubscriberFactory(amqpConfig, logger, conn)
	if err != nil {
		return transport.Transport{}, err
	}

	return transport.Transport{
		Publisher:  publisher,
		Subscriber: subscriber,
	}, nil
}

// NewConfig derives the watermill-amqp configuration from the topology:
// durable topic exchanges, durable queues named after the registered queue
// and bound with its binding key.
func NewConfig(url string, prefetch int, topology transport.Topology) amqp.Config {
	cfg := amqp.NewDurablePubSubConfig(url, QueueName)

	cfg.Connection.Reconnect = amqp.DefaultReconnectConfig()
	cfg.Marshaler = Marshaler{}

	cfg.Exchange.GenerateName = ExchangeName
	cfg.Exchange.Type = "topic"
	cfg.Exchange.Durable = true

	cfg.Queue.GenerateName = QueueName
	cfg.Queue.Durable = true

	cfg.QueueBind.GenerateRoutingKey = func(topic string) string {
		if b, ok := topology.Binding(topic); ok {
			return b.BindingKey
		}
		_, queue := transport.SplitTopic(topic)
		return queue
	}

	cfg.Publish.GenerateRoutingKey = RoutingKey

	if prefetch > 0 {
		cfg.Consume.Qos.PrefetchCount = prefetch
	}
	return cfg
}

// ExchangeName extracts the exchange part of a topic.
func ExchangeName(topic string) string {
	exchange, _ := transport.SplitTopic(topic)
	return exchange
}

// QueueName extracts the queue part of a consumer topic.
func QueueName(topic string) string {
	_, queue := transport.SplitTopic(topic)
	return queue
}

// RoutingKey extracts the routing key part of a publish topic.
func RoutingKey(topic string) string {
	_, key := transport.SplitTopic(topic)
	return key
}

// Capabilities returns the capabilities of this transport.
func Capabilities() transport.Capabilities {
	return transport.RabbitMQCapabilities
}
