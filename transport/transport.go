// Package transport defines the broker transports the worker can consume
// from. Each transport lives in its own sub-package and registers a Builder
// with the transport registry under the name used in configuration.
package transport

import (
	"context"
	"strings"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

// TopicSeparator joins an exchange name and a queue name (when consuming)
// or a routing key (when publishing) into a single router topic.
const TopicSeparator = "|"

// Transport combines a publisher and subscriber pair produced by a builder.
type Transport struct {
	Publisher  message.Publisher
	Subscriber message.Subscriber
}

// Binding describes the broker objects behind one consumer topic.
type Binding struct {
	Exchange           string
	ExchangeType       string
	ExchangeRoutingKey string
	Queue              string
	BindingKey         string
}

// Topology resolves consumer topics to bindings. The worker registry
// implements it once frozen.
type Topology interface {
	// Binding resolves a consumer topic ("exchange|queue").
	Binding(topic string) (Binding, bool)
	// Bindings lists every queue binding in declaration order.
	Bindings() []Binding
}

// Topic returns the consumer topic of b.
func (b Binding) Topic() string {
	return JoinTopic(b.Exchange, b.Queue)
}

// Builder is the function signature for creating a transport from config.
type Builder func(ctx context.Context, cfg Config, topology Topology, logger watermill.LoggerAdapter) (Transport, error)

// Config provides the configuration values needed by transports without
// depending on the full config package.
type Config interface {
	// GetPubSubSystem returns the transport type name.
	GetPubSubSystem() string
	GetRabbitMQURL() string
	// GetPrefetch returns the per-consumer prefetch count, zero for the
	// transport default.
	GetPrefetch() int
}

// JoinTopic builds "exchange|key".
func JoinTopic(exchange, key string) string {
	return exchange + TopicSeparator + key
}

// SplitTopic splits "exchange|key". A topic without separator is returned
// as the key with an empty exchange.
func SplitTopic(topic string) (exchange, key string) {
	exchange, key, ok := strings.Cut(topic, TopicSeparator)
	if !ok {
		return "", topic
	}
	return exchange, key
}
