package transport

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"

	"github.com/drblury/skinos/internal/runtime/config"
	newtransport "github.com/drblury/skinos/transport"

	// Import all transport packages to register them.
	_ "github.com/drblury/skinos/transport/transports"
)

// Transport is the publisher/subscriber pair the worker runs on.
type Transport = newtransport.Transport

// Topology resolves consumer topics to broker bindings.
type Topology = newtransport.Topology

// Factory abstracts how the worker initialises message transports.
type Factory interface {
	Build(ctx context.Context, conf *config.Config, topology Topology, logger watermill.LoggerAdapter) (Transport, error)
}

// FactoryFunc adapts a function to Factory.
type FactoryFunc func(ctx context.Context, conf *config.Config, topology Topology, logger watermill.LoggerAdapter) (Transport, error)

func (f FactoryFunc) Build(ctx context.Context, conf *config.Config, topology Topology, logger watermill.LoggerAdapter) (Transport, error) {
	return f(ctx, conf, topology, logger)
}

// DefaultFactory returns the built-in transport factory that uses the
// modular transport registry.
func DefaultFactory() Factory {
	return defaultFactory{}
}

type defaultFactory struct{}

func (defaultFactory) Build(ctx context.Context, conf *config.Config, topology Topology, logger watermill.LoggerAdapter) (Transport, error) {
	if conf == nil {
		return Transport{}, fmt.Errorf("config is required")
	}
	return newtransport.Build(ctx, conf, topology, logger)
}

// Capabilities reports what the configured transport supports.
func Capabilities(conf *config.Config) newtransport.Capabilities {
	if conf == nil {
		return newtransport.GetCapabilities("")
	}
	return newtransport.GetCapabilities(conf.PubSubSystem)
}
