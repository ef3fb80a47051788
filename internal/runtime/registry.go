package runtime

import (
	"io"
	"os"
	"strings"

	codecpkg "github.com/drblury/skinos/internal/runtime/codec"
	errspkg "github.com/drblury/skinos/internal/runtime/errors"
	loggingpkg "github.com/drblury/skinos/internal/runtime/logging"
	"github.com/drblury/skinos/transport"
)

// ExchangeTypeTopic is the only exchange type the registry declares.
const ExchangeTypeTopic = "topic"

// DefaultRoutingKey is used when an exchange is declared without one.
const DefaultRoutingKey = "#"

// Mode selects how many handlers may share one (exchange, queue) pair.
type Mode int

const (
	// SingleHandler allows one handler per queue. A second registration is
	// a configuration error.
	SingleHandler Mode = iota
	// MultiHandler lets several handlers share one consumer. They run in
	// registration order for every message.
	MultiHandler
)

func (m Mode) String() string {
	if m == MultiHandler {
		return "multi-handler"
	}
	return "single-handler"
}

// Registry is the declarative topology of a worker: its exchanges, queues and
// handler registrations. It is populated during a single-threaded
// registration phase and becomes read-only once frozen, which happens when
// the consumers are first built. A configuration mistake is latched and
// stops the worker from starting.
type Registry struct {
	mode            Mode
	logger          loggingpkg.ServiceLogger
	acceptTextPlain bool
	policy          ErrorPolicy
	reporter        ErrorReporter
	summary         io.Writer
	hooks           ConsumerHooks
	metrics         *ConsumerMetrics

	exchanges     map[string]*Exchange
	exchangeOrder []string
	queues        map[QueueKey]*Queue
	queueOrder    []QueueKey
	registrations map[QueueKey]*Registration
	regOrder      []QueueKey
	handlerCount  int

	frozen bool
	err    error
}

// Option configures a Registry.
type Option func(*Registry)

// WithMode selects single or multi handler mode.
func WithMode(mode Mode) Option {
	return func(r *Registry) { r.mode = mode }
}

// WithLogger sets the logger used for topology and consumer logs.
func WithLogger(logger loggingpkg.ServiceLogger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithAcceptTextPlain makes every consumer accept text/plain next to JSON.
func WithAcceptTextPlain(enabled bool) Option {
	return func(r *Registry) { r.acceptTextPlain = enabled }
}

// WithErrorPolicy sets the error policy applied to handlers wrapped from now on.
func WithErrorPolicy(policy ErrorPolicy) Option {
	return func(r *Registry) { r.policy = policy }
}

// WithErrorReporter sets the sink used when error reporting is enabled.
func WithErrorReporter(reporter ErrorReporter) Option {
	return func(r *Registry) { r.reporter = reporter }
}

// WithSummaryWriter sets where the startup summary is printed. A nil writer
// disables the banner; the structured summary log is always emitted.
func WithSummaryWriter(w io.Writer) Option {
	return func(r *Registry) { r.summary = w }
}

// WithHooks installs consumer lifecycle hooks.
func WithHooks(hooks ConsumerHooks) Option {
	return func(r *Registry) { r.hooks = r.hooks.Merge(hooks) }
}

// WithMetrics records per-consumer Prometheus metrics.
func WithMetrics(metrics *ConsumerMetrics) Option {
	return func(r *Registry) { r.metrics = metrics }
}

// NewRegistry creates an empty registry in single-handler mode.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		logger:        loggingpkg.Discard(),
		summary:       os.Stdout,
		exchanges:     make(map[string]*Exchange),
		queues:        make(map[QueueKey]*Queue),
		registrations: make(map[QueueKey]*Registration),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Registry) Mode() Mode {
	return r.mode
}

// Err returns the first configuration error recorded, if any.
func (r *Registry) Err() error {
	return r.err
}

// Frozen reports whether the registry has become read-only.
func (r *Registry) Frozen() bool {
	return r.frozen
}

// Freeze ends the registration phase. It returns the latched configuration
// error, in which case the registry stays open and the worker must not start.
func (r *Registry) Freeze() error {
	if r.frozen {
		return nil
	}
	if r.err != nil {
		return r.err
	}
	r.frozen = true
	return nil
}

// SetErrorPolicy changes the policy for handlers registered afterwards.
// Handlers already wrapped keep the policy they were created with.
func (r *Registry) SetErrorPolicy(policy ErrorPolicy) error {
	if err := r.checkOpen("set error policy"); err != nil {
		return err
	}
	r.policy = policy
	return nil
}

// ErrorPolicy returns the policy applied to newly wrapped handlers.
func (r *Registry) ErrorPolicy() ErrorPolicy {
	return r.policy
}

// Accept lists the content types consumers accept.
func (r *Registry) Accept() []string {
	if r.acceptTextPlain {
		return []string{codecpkg.ContentTypeJSON, codecpkg.ContentTypeText}
	}
	return []string{codecpkg.ContentTypeJSON}
}

// HandlerCount is the number of handlers registered so far, failure
// handlers included.
func (r *Registry) HandlerCount() int {
	return r.handlerCount
}

// Registrations returns every registration in creation order.
func (r *Registry) Registrations() []*Registration {
	out := make([]*Registration, 0, len(r.regOrder))
	for _, key := range r.regOrder {
		out = append(out, r.registrations[key])
	}
	return out
}

// Binding resolves a consumer topic ("exchange|queue") to its broker binding.
func (r *Registry) Binding(topic string) (transport.Binding, bool) {
	exchange, queue := transport.SplitTopic(topic)
	q, ok := r.queues[QueueKey{Exchange: exchange, Queue: queue}]
	if !ok {
		return transport.Binding{}, false
	}
	return q.binding(), true
}

// Bindings lists every queue binding in declaration order.
func (r *Registry) Bindings() []transport.Binding {
	out := make([]transport.Binding, 0, len(r.queueOrder))
	for _, key := range r.queueOrder {
		out = append(out, r.queues[key].binding())
	}
	return out
}

// checkOpen refuses changes once frozen. The refusal is not latched: the
// frozen topology is still valid and keeps producing consumers.
func (r *Registry) checkOpen(op string) error {
	if !r.frozen {
		return nil
	}
	err := &errspkg.ConfigurationError{Op: op, Err: errspkg.ErrRegistryFrozen}
	r.logger.Error("Registry change refused", err, loggingpkg.LogFields{"op": op})
	return err
}

// validName reports whether name can be part of a router topic.
func validName(name string) bool {
	return !strings.Contains(name, transport.TopicSeparator)
}

// fail latches the first configuration error and logs every one of them.
func (r *Registry) fail(err *errspkg.ConfigurationError) error {
	if r.err == nil {
		r.err = err
	}
	r.logger.Error("Configuration error", err, loggingpkg.LogFields{
		"op":          err.Op,
		"exchange":    err.Exchange,
		"queue":       err.Queue,
		"binding_key": err.BindingKey,
		"handler":     err.Handler,
	})
	return err
}

func normalizeName(name string) string {
	return strings.TrimSpace(name)
}
