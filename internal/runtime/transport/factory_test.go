package transport

import (
	"context"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drblury/skinos/internal/runtime/config"
	newtransport "github.com/drblury/skinos/transport"
)

type emptyTopology struct{}

func (emptyTopology) Binding(string) (newtransport.Binding, bool) {
	return newtransport.Binding{}, false
}

func (emptyTopology) Bindings() []newtransport.Binding { return nil }

func TestDefaultFactoryBuildsChannel(t *testing.T) {
	tr, err := DefaultFactory().Build(context.Background(), &config.Config{PubSubSystem: "channel"}, emptyTopology{}, watermill.NopLogger{})
	require.NoError(t, err)
	assert.NotNil(t, tr.Publisher)
	assert.NotNil(t, tr.Subscriber)
}

func TestDefaultFactoryEmptySystemIsChannel(t *testing.T) {
	_, err := DefaultFactory().Build(context.Background(), &config.Config{}, emptyTopology{}, watermill.NopLogger{})
	assert.NoError(t, err)
}

func TestDefaultFactoryNilConfig(t *testing.T) {
	_, err := DefaultFactory().Build(context.Background(), nil, emptyTopology{}, watermill.NopLogger{})
	assert.ErrorContains(t, err, "config is required")
}

func TestDefaultFactoryUnknownTransport(t *testing.T) {
	_, err := DefaultFactory().Build(context.Background(), &config.Config{PubSubSystem: "kafka"}, emptyTopology{}, watermill.NopLogger{})
	assert.ErrorContains(t, err, "unknown transport")
}

func TestFactoryFunc(t *testing.T) {
	called := false
	f := FactoryFunc(func(context.Context, *config.Config, Topology, watermill.LoggerAdapter) (Transport, error) {
		called = true
		return Transport{}, nil
	})
	_, err := f.Build(context.Background(), &config.Config{}, emptyTopology{}, nil)
	require.NoError(t, err)
	assert.True(t, called)
}

func TestCapabilities(t *testing.T) {
	assert.Equal(t, newtransport.RabbitMQCapabilities, Capabilities(&config.Config{PubSubSystem: "rabbitmq"}))
	assert.Equal(t, newtransport.ChannelCapabilities, Capabilities(&config.Config{}))
	assert.Equal(t, newtransport.ChannelCapabilities, Capabilities(nil))
}
