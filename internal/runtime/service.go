package runtime

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/plugin"
	"github.com/getsentry/sentry-go"
	"golang.org/x/sync/errgroup"

	configpkg "github.com/drblury/skinos/internal/runtime/config"
	errspkg "github.com/drblury/skinos/internal/runtime/errors"
	loggingpkg "github.com/drblury/skinos/internal/runtime/logging"
	transportpkg "github.com/drblury/skinos/internal/runtime/transport"
)

var routerRun = func(router *message.Router, ctx context.Context) error {
	return router.Run(ctx)
}

const reporterFlushTimeout = 2 * time.Second

// ServiceDependencies holds the optional collaborators that the Service can use.
type ServiceDependencies struct {
	Middlewares               []MiddlewareRegistration // Appended after the default middleware chain.
	DisableDefaultMiddlewares bool                     // Skips registering the default middleware chain when true.
	DisableSignalHandler      bool                     // Leaves SIGINT/SIGTERM handling to the caller.
	TransportFactory          transportpkg.Factory
}

// Service hosts a registry on a Watermill router. It is the worker
// framework of this module: the registry installs its consumer step through
// AddConsumerStep and the step produces the consumers when the router starts.
type Service struct {
	Conf   *configpkg.Config
	Logger loggingpkg.ServiceLogger

	registry   *Registry
	publisher  message.Publisher
	subscriber message.Subscriber
	router     *message.Router
	producer   *Producer

	steps       []*ConsumerStep
	consumers   []*Consumer
	consumersMu sync.RWMutex

	httpServers   map[int]*http.ServeMux
	httpServersMu sync.Mutex

	resourceTracker *resourceTracker
}

// RegistryOptions maps the consumer settings of conf onto registry options:
// mode, accepted content types, error policy and, when error reporting is
// on and a DSN is set, a Sentry reporter.
func RegistryOptions(conf *configpkg.Config) ([]Option, error) {
	if conf == nil {
		return nil, errspkg.ErrConfigRequired
	}
	opts := []Option{
		WithAcceptTextPlain(conf.AcceptTextPlain),
		WithErrorPolicy(ErrorPolicy{Report: conf.ErrorReporting, Reraise: conf.ReraiseErrors}),
	}
	if conf.MultiHandler {
		opts = append(opts, WithMode(MultiHandler))
	}
	if conf.ErrorReporting && conf.SentryDSN != "" {
		reporter, err := NewSentryReporter(sentry.ClientOptions{
			Dsn:         conf.SentryDSN,
			Environment: conf.SentryEnvironment,
		})
		if err != nil {
			return nil, fmt.Errorf("create sentry reporter: %w", err)
		}
		opts = append(opts, WithErrorReporter(reporter))
	}
	return opts, nil
}

// NewService validates conf, builds the transport for the registry's
// topology and installs the registry's consumers on a new router. The
// registry is frozen by this call.
func NewService(conf *configpkg.Config, log loggingpkg.ServiceLogger, registry *Registry, deps ServiceDependencies) (*Service, error) {
	switch {
	case conf == nil:
		return nil, errspkg.ErrConfigRequired
	case log == nil:
		return nil, errspkg.ErrLoggerRequired
	case registry == nil:
		return nil, errspkg.ErrRegistryRequired
	}
	if err := configpkg.ValidateConfig(conf); err != nil {
		return nil, err
	}
	if err := registry.Err(); err != nil {
		return nil, err
	}

	wmLogger := loggingpkg.NewWatermillAdapter(log)
	log.Info("Creating worker service",
		loggingpkg.LogFields{
			"pubsub_system": conf.GetPubSubSystem(),
			"config":        conf,
		})

	s := &Service{
		Conf:            conf,
		Logger:          log,
		registry:        registry,
		resourceTracker: newResourceTracker(),
	}

	factory := deps.TransportFactory
	if factory == nil {
		factory = transportpkg.DefaultFactory()
	}
	transport, err := factory.Build(context.Background(), conf, registry, wmLogger)
	if err != nil {
		return nil, fmt.Errorf("build transport: %w", err)
	}
	s.publisher = transport.Publisher
	s.subscriber = transport.Subscriber
	s.producer = NewProducer(s.publisher, registry)

	router, err := message.NewRouter(message.RouterConfig{}, wmLogger)
	if err != nil {
		return nil, err
	}
	s.router = router
	if !deps.DisableSignalHandler {
		s.router.AddPlugin(plugin.SignalsHandler)
	}

	if err := s.registerConfiguredMiddlewares(deps); err != nil {
		return nil, err
	}
	if err := registry.Build(s); err != nil {
		return nil, err
	}
	return s, nil
}

// AddConsumerStep installs step as a router plugin. Plugins run when the
// router starts, before its handlers, which is when the broker channel is
// available.
func (s *Service) AddConsumerStep(step *ConsumerStep) error {
	if step == nil {
		return errors.New("consumer step is required")
	}
	s.steps = append(s.steps, step)
	s.router.AddPlugin(func(*message.Router) error {
		return s.installConsumers(step)
	})
	return nil
}

func (s *Service) installConsumers(step *ConsumerStep) error {
	consumers, err := step.GetConsumers(Channel{Subscriber: s.subscriber, Publisher: s.publisher})
	if err != nil {
		return err
	}
	for _, c := range consumers {
		s.router.AddNoPublisherHandler(c.Name, c.Topic(), c.Channel.Subscriber, c.Handle)
		s.Logger.Info("Consumer started", loggingpkg.LogFields{
			"consumer":    c.Name,
			"exchange":    c.Queue.Exchange.Name,
			"queue":       c.Queue.Name,
			"binding_key": c.Queue.BindingKey,
			"tasks":       c.Registration().Tasks(),
		})
	}

	s.consumersMu.Lock()
	s.consumers = append(s.consumers, consumers...)
	s.consumersMu.Unlock()
	return nil
}

// Start runs the HTTP side servers and the router until ctx is cancelled.
// Buffered error reports are flushed before it returns.
func (s *Service) Start(ctx context.Context) error {
	s.StartWebUIServer()
	s.startHTTPServers()
	err := routerRun(s.router, ctx)
	if flusher, ok := s.registry.reporter.(interface{ Flush(time.Duration) bool }); ok {
		flusher.Flush(reporterFlushTimeout)
	}
	return err
}

// Running is closed once every consumer is subscribed.
func (s *Service) Running() chan struct{} {
	return s.router.Running()
}

// Close stops the router and closes the transport.
func (s *Service) Close() error {
	var errs []error
	if err := s.router.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := s.publisher.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := s.subscriber.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Registry returns the registry hosted by the service.
func (s *Service) Registry() *Registry {
	return s.registry
}

// Consumers lists the consumers installed on the router.
func (s *Service) Consumers() []*Consumer {
	s.consumersMu.RLock()
	defer s.consumersMu.RUnlock()
	return append([]*Consumer(nil), s.consumers...)
}

// Producer publishes onto the service transport.
func (s *Service) Producer() *Producer {
	return s.producer
}

func (s *Service) registerConfiguredMiddlewares(deps ServiceDependencies) error {
	var defaults []MiddlewareRegistration
	if !deps.DisableDefaultMiddlewares {
		defaults = DefaultMiddlewares()
	}
	registrations := make([]MiddlewareRegistration, 0, len(defaults)+len(deps.Middlewares))
	registrations = append(registrations, defaults...)
	registrations = append(registrations, deps.Middlewares...)

	for _, reg := range registrations {
		if err := s.RegisterMiddleware(reg); err != nil {
			name := reg.Name
			if name == "" {
				name = "anonymous_middleware"
			}
			return fmt.Errorf("failed to register middleware %s: %w", name, err)
		}
	}
	return nil
}

func (s *Service) getResourceTracker() *resourceTracker {
	if s.resourceTracker == nil {
		s.resourceTracker = newResourceTracker()
	}
	return s.resourceTracker
}

func (s *Service) RegisterHTTPHandler(port int, pattern string, handler http.Handler) {
	s.httpServersMu.Lock()
	defer s.httpServersMu.Unlock()

	if s.httpServers == nil {
		s.httpServers = make(map[int]*http.ServeMux)
	}

	mux, ok := s.httpServers[port]
	if !ok {
		mux = http.NewServeMux()
		s.httpServers[port] = mux
	}

	mux.Handle(pattern, handler)
}

func (s *Service) startHTTPServers() {
	s.httpServersMu.Lock()
	defer s.httpServersMu.Unlock()

	for port, mux := range s.httpServers {
		addr := fmt.Sprintf(":%d", port)
		s.Logger.Info("Starting HTTP server", loggingpkg.LogFields{"address": addr})
		go func(addr string, handler http.Handler) {
			if err := http.ListenAndServe(addr, handler); err != nil {
				s.Logger.Error("Failed to start HTTP server", err, loggingpkg.LogFields{"address": addr})
			}
		}(addr, mux)
	}
}

// Run starts the service and stops it when ctx is done. It is a
// convenience for programs that do not manage the lifecycle themselves.
func Run(ctx context.Context, s *Service) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer cancel()
		return s.Start(ctx)
	})
	g.Go(func() error {
		<-ctx.Done()
		return s.Close()
	})
	return g.Wait()
}
