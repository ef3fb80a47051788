package runtime

import (
	errspkg "github.com/drblury/skinos/internal/runtime/errors"
	loggingpkg "github.com/drblury/skinos/internal/runtime/logging"
	"github.com/drblury/skinos/transport"
)

// Exchange is a durable topic exchange. RoutingKey is the key the exchange
// itself is bound with and the default key used when publishing to it.
type Exchange struct {
	Name       string
	Type       string
	RoutingKey string
}

// QueueKey identifies a queue by its exchange and name.
type QueueKey struct {
	Exchange string
	Queue    string
}

func (k QueueKey) String() string {
	return transport.JoinTopic(k.Exchange, k.Queue)
}

// Queue is a durable queue bound to one exchange. A queue is created once per
// (exchange, name); later registrations reuse it and its binding key.
type Queue struct {
	Name       string
	Exchange   *Exchange
	BindingKey string
}

func (q *Queue) Key() QueueKey {
	return QueueKey{Exchange: q.Exchange.Name, Queue: q.Name}
}

// Topic is the router topic consumers of q subscribe to.
func (q *Queue) Topic() string {
	return q.Key().String()
}

func (q *Queue) binding() transport.Binding {
	return transport.Binding{
		Exchange:           q.Exchange.Name,
		ExchangeType:       q.Exchange.Type,
		ExchangeRoutingKey: q.Exchange.RoutingKey,
		Queue:              q.Name,
		BindingKey:         q.BindingKey,
	}
}

// DeclareExchange registers a durable topic exchange. routingKey defaults to
// "#". Declaring the same name twice is a configuration error.
func (r *Registry) DeclareExchange(name, routingKey string) (*Exchange, error) {
	const op = "declare exchange"
	if err := r.checkOpen(op); err != nil {
		return nil, err
	}
	name = normalizeName(name)
	if name == "" {
		return nil, r.fail(&errspkg.ConfigurationError{Op: op, Err: errspkg.ErrExchangeRequired})
	}
	if !validName(name) {
		return nil, r.fail(&errspkg.ConfigurationError{Op: op, Exchange: name, Err: errspkg.ErrInvalidName})
	}
	if _, ok := r.exchanges[name]; ok {
		return nil, r.fail(&errspkg.ConfigurationError{Op: op, Exchange: name, Err: errspkg.ErrExchangeExists})
	}
	if routingKey == "" {
		routingKey = DefaultRoutingKey
	}
	ex := &Exchange{Name: name, Type: ExchangeTypeTopic, RoutingKey: routingKey}
	r.exchanges[name] = ex
	r.exchangeOrder = append(r.exchangeOrder, name)
	r.logger.Debug("Exchange declared", loggingpkg.LogFields{
		"exchange":    name,
		"routing_key": routingKey,
	})
	return ex, nil
}

// Exchange returns a declared exchange by name.
func (r *Registry) Exchange(name string) (*Exchange, bool) {
	ex, ok := r.exchanges[name]
	return ex, ok
}

// Exchanges returns every declared exchange in declaration order.
func (r *Registry) Exchanges() []*Exchange {
	out := make([]*Exchange, 0, len(r.exchangeOrder))
	for _, name := range r.exchangeOrder {
		out = append(out, r.exchanges[name])
	}
	return out
}

// Queue returns a queue by exchange and name.
func (r *Registry) Queue(exchange, name string) (*Queue, bool) {
	q, ok := r.queues[QueueKey{Exchange: exchange, Queue: name}]
	return q, ok
}

// Queues returns every queue in creation order.
func (r *Registry) Queues() []*Queue {
	out := make([]*Queue, 0, len(r.queueOrder))
	for _, key := range r.queueOrder {
		out = append(out, r.queues[key])
	}
	return out
}

// ensureQueue returns the queue for (exchange, name), creating it bound with
// bindingKey on first use.
func (r *Registry) ensureQueue(exchange, name, bindingKey string) (*Queue, bool) {
	key := QueueKey{Exchange: exchange, Queue: name}
	if q, ok := r.queues[key]; ok {
		if q.BindingKey != bindingKey {
			r.logger.Debug("Queue already bound, binding key ignored", loggingpkg.LogFields{
				"exchange":    exchange,
				"queue":       name,
				"binding_key": q.BindingKey,
				"ignored_key": bindingKey,
			})
		}
		return q, false
	}
	q := &Queue{Name: name, Exchange: r.exchanges[exchange], BindingKey: bindingKey}
	r.queues[key] = q
	r.queueOrder = append(r.queueOrder, key)
	r.logger.Debug("Queue declared", loggingpkg.LogFields{
		"exchange":    exchange,
		"queue":       name,
		"binding_key": bindingKey,
	})
	return q, true
}
