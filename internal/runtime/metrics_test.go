package runtime

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConsumerMetricsRegisterIsIdempotent(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewConsumerMetrics(reg)

	require.NoError(t, m.Register())
	require.NoError(t, m.Register())

	// A second instance on the same registerer tolerates the duplicates.
	require.NoError(t, NewConsumerMetrics(reg).Register())

	var nilMetrics *ConsumerMetrics
	assert.NoError(t, nilMetrics.Register())
}

func TestConsumerMetricsRecordDeliveries(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewConsumerMetrics(reg)
	require.NoError(t, m.Register())

	r := newTestTopology(t, WithMetrics(m))
	_, err := r.OnMessage("test", "test.test", "#").Handle(hello)
	require.NoError(t, err)
	_, err = r.OnMessage("test", "test.hello", "#").Handle(world)
	require.NoError(t, err)

	pub := &testPublisher{}
	consumers := buildConsumers(t, r, pub)
	require.NoError(t, consumers[0].Handle(newDelivery(`{}`, "")))
	require.NoError(t, consumers[0].Handle(newDelivery("<a/>", "application/xml")))
	require.NoError(t, consumers[1].Handle(newDelivery(`{}`, "")))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.deliveriesTotal.WithLabelValues("test", "test.hello", DeliveryAcked)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.deliveriesTotal.WithLabelValues("test", "test.test", DeliveryAcked)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.deliveriesTotal.WithLabelValues("test", "test.test", DeliveryRejected)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rejectedTotal.WithLabelValues("test", "test.test")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.handlerErrors.WithLabelValues("test", "test.hello", "runtime.world")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.inFlight.WithLabelValues("test", "test.test")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.durationSeconds))

	m.Reset()
	assert.Equal(t, 0, testutil.CollectAndCount(m.deliveriesTotal))
}

func TestNilConsumerMetricsIsNoop(t *testing.T) {
	var m *ConsumerMetrics
	assert.NotPanics(t, func() {
		m.deliveryStarted("ex", "q")
		m.deliverySettled("ex", "q", DeliveryAcked, 0)
		m.handlerFailed("ex", "q", "task")
		m.rejectForwarded("ex", "q")
		m.Reset()
	})
}
