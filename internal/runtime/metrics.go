package runtime

import (
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricsNamespace = "skinos"
	metricsSubsystem = "consumer"
)

// ConsumerMetrics exports per-queue delivery metrics to Prometheus.
// A nil *ConsumerMetrics records nothing.
type ConsumerMetrics struct {
	mu sync.Mutex

	deliveriesTotal *prometheus.CounterVec
	handlerErrors   *prometheus.CounterVec
	rejectedTotal   *prometheus.CounterVec
	inFlight        *prometheus.GaugeVec
	durationSeconds *prometheus.HistogramVec

	registerer prometheus.Registerer
	registered bool
}

func newConsumerCounterVec(name, help string, labels []string) *prometheus.CounterVec {
	return prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      name,
			Help:      help,
		},
		labels,
	)
}

// NewConsumerMetrics creates the collectors. A nil registerer means the
// Prometheus default registerer.
func NewConsumerMetrics(registerer prometheus.Registerer) *ConsumerMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &ConsumerMetrics{
		registerer:      registerer,
		deliveriesTotal: newConsumerCounterVec("deliveries_total", "Deliveries settled by a consumer, by outcome", []string{"exchange", "queue", "outcome"}),
		handlerErrors:   newConsumerCounterVec("handler_errors_total", "Errors raised by handler code, swallowed or re-raised", []string{"exchange", "queue", "task"}),
		rejectedTotal:   newConsumerCounterVec("rejected_forwarded_total", "Rejected deliveries forwarded to the failure exchange", []string{"exchange", "queue"}),
		inFlight: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "in_flight",
			Help:      "Deliveries currently being processed",
		}, []string{"exchange", "queue"}),
		durationSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "delivery_duration_seconds",
			Help:      "Time spent running every handler of a delivery",
			Buckets:   prometheus.DefBuckets,
		}, []string{"exchange", "queue"}),
	}
}

// Register registers the Prometheus collectors. Safe to call multiple times.
func (m *ConsumerMetrics) Register() error {
	if m == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.registered {
		return nil
	}

	for _, c := range m.collectors() {
		if err := m.registerer.Register(c); err != nil {
			var already prometheus.AlreadyRegisteredError
			if !errors.As(err, &already) {
				return err
			}
		}
	}

	m.registered = true
	return nil
}

func (m *ConsumerMetrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.deliveriesTotal,
		m.handlerErrors,
		m.rejectedTotal,
		m.inFlight,
		m.durationSeconds,
	}
}

func (m *ConsumerMetrics) deliveryStarted(exchange, queue string) {
	if m == nil {
		return
	}
	m.inFlight.WithLabelValues(exchange, queue).Inc()
}

func (m *ConsumerMetrics) deliverySettled(exchange, queue, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.inFlight.WithLabelValues(exchange, queue).Dec()
	m.deliveriesTotal.WithLabelValues(exchange, queue, outcome).Inc()
	m.durationSeconds.WithLabelValues(exchange, queue).Observe(duration.Seconds())
}

func (m *ConsumerMetrics) handlerFailed(exchange, queue, task string) {
	if m == nil {
		return
	}
	m.handlerErrors.WithLabelValues(exchange, queue, task).Inc()
}

func (m *ConsumerMetrics) rejectForwarded(exchange, queue string) {
	if m == nil {
		return
	}
	m.rejectedTotal.WithLabelValues(exchange, queue).Inc()
}

// Reset clears every series (useful for testing).
func (m *ConsumerMetrics) Reset() {
	if m == nil {
		return
	}
	m.deliveriesTotal.Reset()
	m.handlerErrors.Reset()
	m.rejectedTotal.Reset()
	m.inFlight.Reset()
	m.durationSeconds.Reset()
}
