// Package channel provides an in-memory transport built on Watermill's Go
// channel pub/sub. Topic exchange routing is emulated in process from the
// worker topology, which makes it suitable for tests and local development.
package channel

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	metadatapkg "github.com/drblury/skinos/internal/runtime/metadata"
	"github.com/drblury/skinos/transport"
)

// TransportName is the name used to register this transport.
const TransportName = "channel"

// Factory allows overriding the channel creation for testing.
var Factory = func(cfg gochannel.Config, logger watermill.LoggerAdapter) (message.Publisher, message.Subscriber) {
	pubSub := gochannel.NewGoChannel(cfg, logger)
	return pubSub, pubSub
}

func init() {
	Register()
}

// Register registers the channel transport with the default registry.
func Register() {
	transport.RegisterWithCapabilities(TransportName, Build, transport.ChannelCapabilities)
}

// Build creates a new in-memory transport. Published topics are
// "exchange|routingKey" and are fanned out to every bound queue topic.
func Build(ctx context.Context, cfg transport.Config, topology transport.Topology, logger watermill.LoggerAdapter) (transport.Transport, error) {
	pub, sub := Factory(gochannel.Config{}, logger)
	return transport.Transport{
		Publisher:  &routingPublisher{next: pub, topology: topology, logger: logger},
		Subscriber: sub,
	}, nil
}

// Capabilities returns the capabilities of this transport.
func Capabilities() transport.Capabilities {
	return transport.ChannelCapabilities
}

type routingPublisher struct {
	next     message.Publisher
	topology transport.Topology
	logger   watermill.LoggerAdapter
}

func (p *routingPublisher) Publish(topic string, messages ...*message.Message) error {
	exchange, routingKey := transport.SplitTopic(topic)
	targets := transport.Route(p.topology, exchange, routingKey)
	if len(targets) == 0 && p.logger != nil {
		p.logger.Debug("Message not routed to any queue", watermill.LogFields{
			"exchange":    exchange,
			"routing_key": routingKey,
		})
	}
	for _, target := range targets {
		copies := make([]*message.Message, len(messages))
		for i, msg := range messages {
			copies[i] = msg.Copy()
			copies[i].Metadata.Set(metadatapkg.KeyExchange, exchange)
			copies[i].Metadata.Set(metadatapkg.KeyRoutingKey, routingKey)
		}
		if err := p.next.Publish(target, copies...); err != nil {
			return err
		}
	}
	return nil
}

func (p *routingPublisher) Close() error {
	return p.next.Close()
}
