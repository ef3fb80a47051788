/*
Package runtime holds the registry, consumer and service machinery behind skinos.

# Registry

Registry (registry.go, topology.go) owns the declared exchanges and queues.
Registration (registration.go) attaches handlers to a queue keyed by
exchange and queue name; in SingleHandler mode a second handler for the
same key is a ConfigurationError, in MultiHandler mode it is appended.
The first configuration error is latched and blocks Freeze and Build.

failure.go declares the "failure" exchange with its reject, retry and
error queues on first use of OnFailure.

# Consumers

Every handler is wrapped (wrapper.go) with panic recovery, logging, error
reporting and the ack decision. Consumer (consumer.go) runs the wrapped
callbacks of one queue, settles the delivery, and forwards undecodable or
disallowed messages to failure.reject. ConsumerStep (step.go) is the
bootstep handed to the App that hosts the consumers.

# Service

Service (service.go) is the App implementation backed by a Watermill
router. It builds the transport from Config, installs the middleware
chain (middleware.go), exposes Prometheus metrics (metrics.go) and the
/api/consumers listing (webui.go), and publishes through Producer
(publisher.go).

# Sub-packages

  - codec/: sonic JSON encoding and content type negotiation
  - config/: koanf backed Config with validation
  - errors/: sentinel errors and error types
  - handlers/: handler signatures, message handles and typed adapters
  - ids/: ULID based names
  - logging/: ServiceLogger and slog/Watermill adapters
  - metadata/: message metadata keys and helpers
  - transport/: factory resolving the configured transport
*/
package runtime
