package runtime

import (
	errspkg "github.com/drblury/skinos/internal/runtime/errors"
	loggingpkg "github.com/drblury/skinos/internal/runtime/logging"
)

const (
	// FailureExchange is the topic exchange failure queues are bound to.
	FailureExchange = "failure"
	// FailureRoutingKey is the routing key of the failure exchange.
	FailureRoutingKey = "failure.#"
)

// FailureKind names one of the fixed failure queues.
type FailureKind string

const (
	// FailureReject receives deliveries a consumer could not accept: a
	// disallowed content type or an undecodable body.
	FailureReject FailureKind = "reject"
	// FailureRetry receives messages applications want to process again later.
	FailureRetry FailureKind = "retry"
	// FailureError receives messages applications gave up on.
	FailureError FailureKind = "error"
)

// Queue is the queue name for k, which is also its binding key.
func (k FailureKind) Queue() string {
	return FailureExchange + "." + string(k)
}

// Valid reports whether k is one of the fixed failure kinds.
func (k FailureKind) Valid() bool {
	switch k {
	case FailureReject, FailureRetry, FailureError:
		return true
	}
	return false
}

// RejectedMessage is the JSON body forwarded to the failure.reject queue.
type RejectedMessage struct {
	MessageUUID string `json:"message_uuid"`
	Reason      string `json:"reason"`
	Exchange    string `json:"exchange"`
	Queue       string `json:"queue"`
	RoutingKey  string `json:"routing_key,omitempty"`
	ContentType string `json:"content_type"`
	// Payload is the original body, base64 encoded in JSON.
	Payload []byte `json:"payload"`
}

// OnFailure starts a handler registration for one of the failure queues. The
// failure exchange is declared on first use. Only one handler may consume a
// failure queue, whatever the registry mode, and it always acknowledges
// unless its error is re-raised.
func (r *Registry) OnFailure(kind FailureKind) *Binding {
	b := &Binding{
		registry:   r,
		exchange:   FailureExchange,
		queue:      kind.Queue(),
		bindingKey: kind.Queue(),
		failure:    true,
	}
	if !kind.Valid() {
		b.err = errspkg.ErrFailureKind
	}
	return b
}

func (r *Registry) ensureFailureExchange() {
	if _, ok := r.exchanges[FailureExchange]; ok {
		return
	}
	r.exchanges[FailureExchange] = &Exchange{Name: FailureExchange, Type: ExchangeTypeTopic, RoutingKey: FailureRoutingKey}
	r.exchangeOrder = append(r.exchangeOrder, FailureExchange)
	r.logger.Debug("Exchange declared", loggingpkg.LogFields{
		"exchange":    FailureExchange,
		"routing_key": FailureRoutingKey,
	})
}
