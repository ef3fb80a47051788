package transport

// Capabilities describes the features supported by a transport backend.
type Capabilities struct {
	// Name is the human-readable name of the transport.
	Name string

	// SupportsTopicRouting indicates the broker itself routes messages from
	// topic exchanges to bound queues. Otherwise routing is emulated in
	// process.
	SupportsTopicRouting bool

	// SupportsAck indicates the transport supports explicit message acknowledgment.
	SupportsAck bool

	// SupportsNack indicates unacknowledged messages are redelivered.
	SupportsNack bool

	// Durable indicates queued messages survive a worker restart.
	Durable bool
}

// SupportsReliableDelivery returns true if the transport supports at-least-once
// delivery semantics (ack + nack).
func (c Capabilities) SupportsReliableDelivery() bool {
	return c.SupportsAck && c.SupportsNack
}

var (
	// ChannelCapabilities for the in-memory transport.
	ChannelCapabilities = Capabilities{
		Name:                 "channel",
		SupportsTopicRouting: false,
		SupportsAck:          true,
		SupportsNack:         true,
		Durable:              false,
	}

	// RabbitMQCapabilities for the AMQP 0-9-1 transport.
	RabbitMQCapabilities = Capabilities{
		Name:                 "rabbitmq",
		SupportsTopicRouting: true,
		SupportsAck:          true,
		SupportsNack:         true,
		Durable:              true,
	}
)
