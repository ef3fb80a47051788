package channel

import (
	"context"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	metadatapkg "github.com/drblury/skinos/internal/runtime/metadata"
	"github.com/drblury/skinos/transport"
)

type mockConfig struct{}

func (mockConfig) GetPubSubSystem() string { return TransportName }
func (mockConfig) GetRabbitMQURL() string  { return "" }
func (mockConfig) GetPrefetch() int        { return 0 }

type topology []transport.Binding

func (t topology) Binding(topic string) (transport.Binding, bool) {
	for _, b := range t {
		if b.Topic() == topic {
			return b, true
		}
	}
	return transport.Binding{}, false
}

func (t topology) Bindings() []transport.Binding { return t }

type recordingPublisher struct {
	topics []string
	msgs   []*message.Message
}

func (r *recordingPublisher) Publish(topic string, messages ...*message.Message) error {
	for _, m := range messages {
		r.topics = append(r.topics, topic)
		r.msgs = append(r.msgs, m)
	}
	return nil
}

func (r *recordingPublisher) Close() error { return nil }

func TestRegisterAddsCapabilities(t *testing.T) {
	Register()

	caps := transport.GetCapabilities(TransportName)
	assert.Equal(t, transport.ChannelCapabilities, caps)
	assert.Equal(t, transport.ChannelCapabilities, Capabilities())
}

func TestPublishFansOutToBoundQueues(t *testing.T) {
	original := Factory
	defer func() { Factory = original }()

	rec := &recordingPublisher{}
	Factory = func(gochannel.Config, watermill.LoggerAdapter) (message.Publisher, message.Subscriber) {
		return rec, nil
	}

	topo := topology{
		{Exchange: "test", Queue: "test.test", BindingKey: "test.test.*"},
		{Exchange: "test", Queue: "test.hello", BindingKey: "test.hello.*"},
		{Exchange: "test", Queue: "test.audit", BindingKey: "#"},
	}
	tr, err := Build(context.Background(), mockConfig{}, topo, watermill.NopLogger{})
	require.NoError(t, err)

	msg := message.NewMessage("1", []byte(`{}`))
	require.NoError(t, tr.Publisher.Publish("test|test.test.go", msg))

	assert.Equal(t, []string{"test|test.test", "test|test.audit"}, rec.topics)
	assert.NotSame(t, rec.msgs[0], rec.msgs[1])
	assert.Equal(t, "1", rec.msgs[0].UUID)
	assert.Equal(t, "test", rec.msgs[0].Metadata.Get(metadatapkg.KeyExchange))
	assert.Equal(t, "test.test.go", rec.msgs[0].Metadata.Get(metadatapkg.KeyRoutingKey))
	assert.Empty(t, msg.Metadata.Get(metadatapkg.KeyRoutingKey), "the published message is not modified")

	require.NoError(t, tr.Publisher.Publish("test|nothing.bound", message.NewMessage("2", nil)))
	assert.Len(t, rec.topics, 3)
}

func TestEndToEndDelivery(t *testing.T) {
	topo := topology{{Exchange: "test", Queue: "test.test", BindingKey: "test.test.*"}}
	tr, err := Build(context.Background(), mockConfig{}, topo, watermill.NopLogger{})
	require.NoError(t, err)
	defer tr.Publisher.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	messages, err := tr.Subscriber.Subscribe(ctx, "test|test.test")
	require.NoError(t, err)

	require.NoError(t, tr.Publisher.Publish("test|test.test.x", message.NewMessage("42", []byte(`10`))))

	select {
	case got := <-messages:
		assert.Equal(t, "42", got.UUID)
		assert.Equal(t, []byte(`10`), []byte(got.Payload))
		got.Ack()
	case <-ctx.Done():
		t.Fatal("message was not delivered")
	}
}
