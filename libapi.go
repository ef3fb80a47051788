package skinos

import (
	"google.golang.org/protobuf/proto"

	runtimepkg "github.com/drblury/skinos/internal/runtime"
	codecpkg "github.com/drblury/skinos/internal/runtime/codec"
	configpkg "github.com/drblury/skinos/internal/runtime/config"
	errspkg "github.com/drblury/skinos/internal/runtime/errors"
	handlerpkg "github.com/drblury/skinos/internal/runtime/handlers"
	idspkg "github.com/drblury/skinos/internal/runtime/ids"
	loggingpkg "github.com/drblury/skinos/internal/runtime/logging"
	metadatapkg "github.com/drblury/skinos/internal/runtime/metadata"
	transportpkg "github.com/drblury/skinos/internal/runtime/transport"
	newtransport "github.com/drblury/skinos/transport"
)

type (
	Config              = configpkg.Config
	Registry            = runtimepkg.Registry
	Option              = runtimepkg.Option
	Mode                = runtimepkg.Mode
	Exchange            = runtimepkg.Exchange
	Queue               = runtimepkg.Queue
	QueueKey            = runtimepkg.QueueKey
	Binding             = runtimepkg.Binding
	Registration        = runtimepkg.Registration
	WrappedHandler      = runtimepkg.WrappedHandler
	Result              = runtimepkg.Result
	ErrorPolicy         = runtimepkg.ErrorPolicy
	ErrorReporter       = runtimepkg.ErrorReporter
	ErrorReporterFunc   = runtimepkg.ErrorReporterFunc
	SentryReporter      = runtimepkg.SentryReporter
	Consumer            = runtimepkg.Consumer
	Channel             = runtimepkg.Channel
	ConsumerStep        = runtimepkg.ConsumerStep
	App                 = runtimepkg.App
	FailureKind         = runtimepkg.FailureKind
	RejectedMessage     = runtimepkg.RejectedMessage
	Service             = runtimepkg.Service
	ServiceDependencies = runtimepkg.ServiceDependencies
	Producer            = runtimepkg.Producer
	PublishOption       = runtimepkg.PublishOption

	Handler = handlerpkg.Handler
	Message = handlerpkg.Message
	Outcome = handlerpkg.Outcome

	MiddlewareBuilder      = runtimepkg.MiddlewareBuilder
	MiddlewareRegistration = runtimepkg.MiddlewareRegistration

	ConsumerHooks   = runtimepkg.ConsumerHooks
	DeliveryContext = runtimepkg.DeliveryContext
	ConsumerMetrics = runtimepkg.ConsumerMetrics
	ConsumerStats   = runtimepkg.ConsumerStats
	StatsSnapshot   = runtimepkg.StatsSnapshot
	ConsumerInfo    = runtimepkg.ConsumerInfo
	ErrorCategory   = runtimepkg.ErrorCategory

	Metadata = metadatapkg.Metadata

	LogFields     = loggingpkg.LogFields
	ServiceLogger = loggingpkg.ServiceLogger

	ConfigurationError    = errspkg.ConfigurationError
	HandlerExecutionError = errspkg.HandlerExecutionError
	ConfigValidationError = errspkg.ConfigValidationError

	Transport             = transportpkg.Transport
	TransportFactory      = transportpkg.Factory
	TransportFactoryFunc  = transportpkg.FactoryFunc
	TransportBuilder      = newtransport.Builder
	TransportConfig       = newtransport.Config
	TransportRegistry     = newtransport.Registry
	TransportCapabilities = newtransport.Capabilities
	TransportBinding      = newtransport.Binding
	Topology              = newtransport.Topology
)

const (
	SingleHandler = runtimepkg.SingleHandler
	MultiHandler  = runtimepkg.MultiHandler

	DefaultRoutingKey = runtimepkg.DefaultRoutingKey

	FailureExchange   = runtimepkg.FailureExchange
	FailureRoutingKey = runtimepkg.FailureRoutingKey
	FailureReject     = runtimepkg.FailureReject
	FailureRetry      = runtimepkg.FailureRetry
	FailureError      = runtimepkg.FailureError

	OutcomeAck     = handlerpkg.OutcomeAck
	OutcomePending = handlerpkg.OutcomePending

	DeliveryAcked    = runtimepkg.DeliveryAcked
	DeliveryPending  = runtimepkg.DeliveryPending
	DeliveryFailed   = runtimepkg.DeliveryFailed
	DeliveryRejected = runtimepkg.DeliveryRejected

	ContentTypeJSON = codecpkg.ContentTypeJSON
	ContentTypeText = codecpkg.ContentTypeText

	MetadataKeyContentType   = metadatapkg.KeyContentType
	MetadataKeyRoutingKey    = metadatapkg.KeyRoutingKey
	MetadataKeyCorrelationID = metadatapkg.KeyCorrelationID
)

var (
	NewRegistry              = runtimepkg.NewRegistry
	WithMode                 = runtimepkg.WithMode
	WithLogger               = runtimepkg.WithLogger
	WithAcceptTextPlain      = runtimepkg.WithAcceptTextPlain
	WithErrorPolicy          = runtimepkg.WithErrorPolicy
	WithErrorReporter        = runtimepkg.WithErrorReporter
	WithSummaryWriter        = runtimepkg.WithSummaryWriter
	WithHooks                = runtimepkg.WithHooks
	WithMetrics              = runtimepkg.WithMetrics
	RegistryOptions          = runtimepkg.RegistryOptions
	NewSentryReporter        = runtimepkg.NewSentryReporter
	NewSentryReporterFromHub = runtimepkg.NewSentryReporterFromHub
	NewConsumerMetrics       = runtimepkg.NewConsumerMetrics

	NewService = runtimepkg.NewService
	Run        = runtimepkg.Run

	NewProducer       = runtimepkg.NewProducer
	NewMessage        = runtimepkg.NewMessage
	WithCorrelationID = runtimepkg.WithCorrelationID
	WithHeaders       = runtimepkg.WithHeaders
	WithContentType   = runtimepkg.WithContentType

	HandlerFunc = handlerpkg.Func
	Decide      = handlerpkg.Decide

	DefaultMiddlewares      = runtimepkg.DefaultMiddlewares
	CorrelationIDMiddleware = runtimepkg.CorrelationIDMiddleware
	LogMessagesMiddleware   = runtimepkg.LogMessagesMiddleware
	TracerMiddleware        = runtimepkg.TracerMiddleware
	MetricsMiddleware       = runtimepkg.MetricsMiddleware
	RecovererMiddleware     = runtimepkg.RecovererMiddleware

	LoggingHooks  = runtimepkg.LoggingHooks
	MetricsHooks  = runtimepkg.MetricsHooks
	AlertingHooks = runtimepkg.AlertingHooks

	LoadConfig     = configpkg.Load
	ValidateConfig = configpkg.ValidateConfig

	DefaultTransportFactory  = transportpkg.DefaultFactory
	DefaultTransportRegistry = newtransport.DefaultRegistry
	RegisterTransport        = newtransport.Register
	BuildTransport           = newtransport.Build
	GetCapabilities          = newtransport.GetCapabilities
	MatchRoutingKey          = newtransport.MatchRoutingKey

	Marshal       = codecpkg.Marshal
	MarshalIndent = codecpkg.MarshalIndent
	Unmarshal     = codecpkg.Unmarshal
	Encode        = codecpkg.Encode
	Decode        = codecpkg.Decode

	ErrRegistryRequired  = errspkg.ErrRegistryRequired
	ErrRegistryFrozen    = errspkg.ErrRegistryFrozen
	ErrHandlerRequired   = errspkg.ErrHandlerRequired
	ErrHandlerArity      = errspkg.ErrHandlerArity
	ErrHandlerSignature  = errspkg.ErrHandlerSignature
	ErrHandlerExists     = errspkg.ErrHandlerExists
	ErrExchangeRequired  = errspkg.ErrExchangeRequired
	ErrExchangeExists    = errspkg.ErrExchangeExists
	ErrExchangeUndefined = errspkg.ErrExchangeUndefined
	ErrQueueRequired     = errspkg.ErrQueueRequired
	ErrInvalidName       = errspkg.ErrInvalidName
	ErrFailureKind       = errspkg.ErrFailureKind
	ErrFailureExists     = errspkg.ErrFailureExists
	ErrChannelRequired   = errspkg.ErrChannelRequired
	ErrContentDisallowed = errspkg.ErrContentDisallowed
	ErrUndecodable       = codecpkg.ErrUndecodable
	ErrPublisherRequired = errspkg.ErrPublisherRequired
	ErrConfigRequired    = errspkg.ErrConfigRequired
	ErrLoggerRequired    = errspkg.ErrLoggerRequired
	ErrAppRequired       = errspkg.ErrAppRequired
	IsConfigurationError = errspkg.IsConfigurationError
	NewSlogServiceLogger = loggingpkg.NewSlogServiceLogger
	NewDefaultSlog       = loggingpkg.NewDefaultSlog
	DiscardLogger        = loggingpkg.Discard
	NewMetadata          = metadatapkg.New
	CreateULID           = idspkg.CreateULID
)

// JSON adapts a handler with a typed body decoded from JSON.
func JSON[T any](fn func(body T, msg *Message) (any, error)) Handler {
	return handlerpkg.JSON(fn)
}

// Proto adapts a handler whose body is a protobuf message published as
// protobuf JSON.
func Proto[T proto.Message](fn func(body T, msg *Message) (any, error)) Handler {
	return handlerpkg.Proto(fn)
}
