package runtime

import (
	errspkg "github.com/drblury/skinos/internal/runtime/errors"
)

// App is the worker framework a registry installs its consumers into.
type App interface {
	AddConsumerStep(step *ConsumerStep) error
}

// ConsumerStep is the startup step that produces the registry's consumers
// whenever the worker opens a broker channel.
type ConsumerStep struct {
	registry *Registry
}

// Name identifies the step in the worker's startup sequence.
func (s *ConsumerStep) Name() string {
	return "skinos.consumers"
}

// GetConsumers returns one consumer per registration for ch.
func (s *ConsumerStep) GetConsumers(ch Channel) ([]*Consumer, error) {
	return s.registry.Consumers(ch)
}

// Registry returns the frozen registry behind the step.
func (s *ConsumerStep) Registry() *Registry {
	return s.registry
}

// Build freezes the registry, prints the startup summary and installs the
// consumer step into app. It fails without touching app when a
// configuration error was recorded during registration.
func (r *Registry) Build(app App) error {
	if app == nil {
		return errspkg.ErrAppRequired
	}
	if err := r.Freeze(); err != nil {
		return err
	}
	r.writeSummary()
	return app.AddConsumerStep(&ConsumerStep{registry: r})
}
