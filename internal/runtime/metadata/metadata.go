package metadata

import "strconv"

// Reserved keys. The AMQP marshaler copies broker delivery properties into
// these so handlers can inspect them without touching amqp091 types.
const (
	KeyContentType   = "skinos_content_type"
	KeyExchange      = "skinos_exchange"
	KeyRoutingKey    = "skinos_routing_key"
	KeyRedelivered   = "skinos_redelivered"
	KeyConsumerTag   = "skinos_consumer_tag"
	KeyCorrelationID = "correlation_id"
)

// Metadata represents the headers carried alongside a message.
type Metadata map[string]string

func (m Metadata) cloneWithExtra(extra int) Metadata {
	size := len(m) + extra
	if size <= 0 {
		return Metadata{}
	}

	cloned := make(Metadata, size)
	for k, v := range m {
		cloned[k] = v
	}
	return cloned
}

// Clone returns a shallow copy of the metadata map.
func (m Metadata) Clone() Metadata {
	return m.cloneWithExtra(0)
}

// With returns a cloned metadata map containing the provided key/value pair.
func (m Metadata) With(key, value string) Metadata {
	cloned := m.cloneWithExtra(1)
	cloned[key] = value
	return cloned
}

// WithAll returns a cloned metadata map containing the supplied entries.
func (m Metadata) WithAll(entries Metadata) Metadata {
	cloned := m.cloneWithExtra(len(entries))
	for k, v := range entries {
		cloned[k] = v
	}
	return cloned
}

func (m Metadata) ContentType() string   { return m[KeyContentType] }
func (m Metadata) Exchange() string      { return m[KeyExchange] }
func (m Metadata) RoutingKey() string    { return m[KeyRoutingKey] }
func (m Metadata) CorrelationID() string { return m[KeyCorrelationID] }

// Redelivered reports whether the broker flagged the delivery as a redelivery.
func (m Metadata) Redelivered() bool {
	v, err := strconv.ParseBool(m[KeyRedelivered])
	return err == nil && v
}

// New constructs a Metadata map from alternating key/value pairs.
func New(pairs ...string) Metadata {
	md := make(Metadata, len(pairs)/2)
	for i := 0; i < len(pairs)-1; i += 2 {
		md[pairs[i]] = pairs[i+1]
	}
	return md
}
