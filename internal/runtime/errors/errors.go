package errors

import (
	sterrors "errors"
	"fmt"
	"strings"
)

var (
	ErrRegistryRequired  = sterrors.New("skinos: registry is required")
	ErrRegistryFrozen    = sterrors.New("skinos: registry is frozen")
	ErrHandlerRequired   = sterrors.New("skinos: handler function is required")
	ErrHandlerArity      = sterrors.New("skinos: handler takes too few arguments")
	ErrHandlerSignature  = sterrors.New("skinos: handler signature is not supported")
	ErrHandlerExists     = sterrors.New("skinos: a task already exists for this configuration")
	ErrExchangeRequired  = sterrors.New("skinos: exchange name is required")
	ErrExchangeExists    = sterrors.New("skinos: exchange is already declared")
	ErrExchangeUndefined = sterrors.New("skinos: exchange is not declared")
	ErrQueueRequired     = sterrors.New("skinos: queue name is required")
	ErrInvalidName       = sterrors.New("skinos: exchange and queue names must not contain '|'")
	ErrFailureKind       = sterrors.New("skinos: unknown failure queue")
	ErrFailureExists     = sterrors.New("skinos: only one consumer is allowed for a failure queue")
	ErrChannelRequired   = sterrors.New("skinos: broker channel is required")
	ErrContentDisallowed = sterrors.New("skinos: content type is not accepted")
	ErrPublisherRequired = sterrors.New("skinos: publisher is required")
	ErrConfigRequired    = sterrors.New("skinos: configuration is required")
	ErrLoggerRequired    = sterrors.New("skinos: logger is required")
	ErrAppRequired       = sterrors.New("skinos: worker app is required")
)

// ConfigurationError describes a registration mistake detected while the
// registry is being populated. It is always fatal: the worker must not start.
type ConfigurationError struct {
	Op         string
	Exchange   string
	Queue      string
	BindingKey string
	Handler    string
	Err        error
}

func (e *ConfigurationError) Error() string {
	var b strings.Builder
	b.WriteString("skinos: configuration error")
	if e.Op != "" {
		b.WriteString(" in ")
		b.WriteString(e.Op)
	}
	if e.Handler != "" {
		fmt.Fprintf(&b, " for function %q", e.Handler)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(strings.TrimPrefix(e.Err.Error(), "skinos: "))
	}
	if e.Exchange != "" || e.Queue != "" || e.BindingKey != "" {
		fmt.Fprintf(&b, " (ex: %s, q: %s, binding_key: %s)", e.Exchange, e.Queue, e.BindingKey)
	}
	return b.String()
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// HandlerExecutionError wraps an error returned (or a panic raised) by
// application handler code while processing a message.
type HandlerExecutionError struct {
	Handler  string
	Exchange string
	Queue    string
	Err      error
}

func (e *HandlerExecutionError) Error() string {
	return fmt.Sprintf("skinos: handler %s failed on %s|%s: %v", e.Handler, e.Exchange, e.Queue, e.Err)
}

func (e *HandlerExecutionError) Unwrap() error {
	return e.Err
}

// ConfigValidationError wraps the joined validation errors of a Config.
type ConfigValidationError struct {
	Err error
}

func (e ConfigValidationError) Error() string {
	return "skinos: invalid configuration: " + e.Err.Error()
}

func (e ConfigValidationError) Unwrap() error {
	return e.Err
}

// NewConfigValidationError returns nil when err is nil.
func NewConfigValidationError(err error) error {
	if err == nil {
		return nil
	}
	return ConfigValidationError{Err: err}
}

// IsConfigurationError reports whether err carries a *ConfigurationError.
func IsConfigurationError(err error) bool {
	var cfgErr *ConfigurationError
	return sterrors.As(err, &cfgErr)
}
