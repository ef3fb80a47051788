package runtime

import (
	"reflect"
	goruntime "runtime"
	"strings"

	errspkg "github.com/drblury/skinos/internal/runtime/errors"
	handlerpkg "github.com/drblury/skinos/internal/runtime/handlers"
	loggingpkg "github.com/drblury/skinos/internal/runtime/logging"
)

// Registration groups the handlers attached to one (exchange, queue) pair.
// Exactly one consumer is built per registration.
type Registration struct {
	ID         int
	Queue      *Queue
	BindingKey string
	Task       string
	Accept     []string
	Handlers   []*WrappedHandler
	Failure    bool

	stats *ConsumerStats
}

func (r *Registration) Key() QueueKey {
	return r.Queue.Key()
}

func (r *Registration) Exchange() string {
	return r.Queue.Exchange.Name
}

// Tasks lists the task names of every attached handler in call order.
func (r *Registration) Tasks() []string {
	out := make([]string, 0, len(r.Handlers))
	for _, h := range r.Handlers {
		out = append(out, h.Task)
	}
	return out
}

// Stats returns the live processing statistics of the registration's consumer.
func (r *Registration) Stats() *ConsumerStats {
	return r.stats
}

// Binding registers handlers for one (exchange, queue, binding key). It is
// returned by Registry.OnMessage and Registry.OnFailure.
type Binding struct {
	registry   *Registry
	exchange   string
	queue      string
	bindingKey string
	failure    bool
	err        error
}

// OnMessage starts a handler registration for messages routed to queue on
// exchange with bindingKey. The exchange must already be declared.
func (r *Registry) OnMessage(exchange, queue, bindingKey string) *Binding {
	return &Binding{
		registry:   r,
		exchange:   normalizeName(exchange),
		queue:      normalizeName(queue),
		bindingKey: bindingKey,
	}
}

// Handle registers h under the name of its function and returns h unchanged.
func (b *Binding) Handle(h handlerpkg.Handler) (handlerpkg.Handler, error) {
	return b.HandleNamed(taskName(h), h)
}

// HandleFunc registers any function taking (body, *handlers.Message). The
// body parameter may be a concrete type; the payload is decoded into it.
func (b *Binding) HandleFunc(fn any) error {
	name := taskName(fn)
	h, err := handlerpkg.Func(fn)
	if err != nil {
		return b.registry.fail(b.configError(name, err))
	}
	_, err = b.HandleNamed(name, h)
	return err
}

// HandleNamed registers h with an explicit task name.
func (b *Binding) HandleNamed(name string, h handlerpkg.Handler) (handlerpkg.Handler, error) {
	r := b.registry
	if err := r.checkOpen("register"); err != nil {
		return nil, err
	}
	if b.err != nil {
		return nil, r.fail(b.configError(name, b.err))
	}
	if h == nil {
		return nil, r.fail(b.configError(name, errspkg.ErrHandlerRequired))
	}
	if b.failure {
		r.ensureFailureExchange()
	}
	if b.exchange == "" {
		return nil, r.fail(b.configError(name, errspkg.ErrExchangeRequired))
	}
	if b.queue == "" {
		return nil, r.fail(b.configError(name, errspkg.ErrQueueRequired))
	}
	if !validName(b.exchange) || !validName(b.queue) {
		return nil, r.fail(b.configError(name, errspkg.ErrInvalidName))
	}
	if _, ok := r.exchanges[b.exchange]; !ok {
		return nil, r.fail(b.configError(name, errspkg.ErrExchangeUndefined))
	}

	key := QueueKey{Exchange: b.exchange, Queue: b.queue}
	reg, exists := r.registrations[key]
	if exists {
		switch {
		case b.failure || reg.Failure:
			return nil, r.fail(b.configError(name, errspkg.ErrFailureExists))
		case r.mode == SingleHandler:
			return nil, r.fail(b.configError(name, errspkg.ErrHandlerExists))
		}
	}

	queue, _ := r.ensureQueue(b.exchange, b.queue, b.bindingKey)
	if !exists {
		reg = &Registration{
			ID:         r.handlerCount,
			Queue:      queue,
			BindingKey: queue.BindingKey,
			Task:       name,
			Accept:     r.Accept(),
			Failure:    b.failure,
			stats:      newConsumerStats(queue.Topic()),
		}
		r.registrations[key] = reg
		r.regOrder = append(r.regOrder, key)
	}

	wrapped := r.wrap(name, queue, h, b.failure)
	reg.Handlers = append(reg.Handlers, wrapped)
	r.handlerCount++

	r.logger.Debug("Handler registered", loggingpkg.LogFields{
		"task":        name,
		"wrapper":     wrapped.Name,
		"exchange":    b.exchange,
		"queue":       b.queue,
		"binding_key": queue.BindingKey,
		"position":    len(reg.Handlers),
	})
	return h, nil
}

func (b *Binding) configError(name string, err error) *errspkg.ConfigurationError {
	return &errspkg.ConfigurationError{
		Op:         "register",
		Exchange:   b.exchange,
		Queue:      b.queue,
		BindingKey: b.bindingKey,
		Handler:    name,
		Err:        err,
	}
}

// taskName derives a short, readable name from a function value, such as
// "main.hello" or "orders.(*Service).Created-fm".
func taskName(fn any) string {
	if fn == nil {
		return ""
	}
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func {
		return reflect.TypeOf(fn).String()
	}
	f := goruntime.FuncForPC(v.Pointer())
	if f == nil {
		return v.Type().String()
	}
	name := f.Name()
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	return name
}
