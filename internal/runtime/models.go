package runtime

import (
	"context"
	"errors"
	"math"
	"sort"
	"sync"
	"time"

	codecpkg "github.com/drblury/skinos/internal/runtime/codec"
	errspkg "github.com/drblury/skinos/internal/runtime/errors"
)

const (
	latencySampleSize    = 256
	throughputWindowSize = time.Minute
)

// Delivery outcomes as reported by stats, hooks and metrics. They extend
// the handler outcomes with the two ways a delivery can end without one.
const (
	DeliveryAcked    = "ack"
	DeliveryPending  = "pending"
	DeliveryFailed   = "error"
	DeliveryRejected = "rejected"
)

// ConsumerStats are the live processing statistics of one consumer. They
// survive channel reconnects because they belong to the registration.
type ConsumerStats struct {
	mu    sync.Mutex
	topic string
	data  StatsSnapshot

	latencyWindow    *latencyWindow
	throughputWindow *throughputWindow
}

// StatsSnapshot is a point-in-time copy of ConsumerStats.
type StatsSnapshot struct {
	Topic               string    `json:"topic"`
	MessagesProcessed   uint64    `json:"messages_processed"`
	MessagesAcked       uint64    `json:"messages_acked"`
	MessagesPending     uint64    `json:"messages_pending"`
	MessagesFailed      uint64    `json:"messages_failed"`
	MessagesRejected    uint64    `json:"messages_rejected"`
	TotalProcessingTime int64     `json:"total_processing_time_ns"`
	LastProcessedAt     time.Time `json:"last_processed_at"`

	Latency    LatencyMetrics    `json:"latency"`
	Throughput ThroughputMetrics `json:"throughput"`
	Errors     ErrorBreakdown    `json:"errors"`
	Backlog    BacklogMetrics    `json:"backlog"`
}

type LatencyMetrics struct {
	AverageNs  int64 `json:"average_ns"`
	P50Ns      int64 `json:"p50_ns"`
	P95Ns      int64 `json:"p95_ns"`
	P99Ns      int64 `json:"p99_ns"`
	LastNs     int64 `json:"last_ns"`
	SampleSize int   `json:"sample_size"`
}

type ThroughputMetrics struct {
	CurrentRPS       float64 `json:"current_rps"`
	WindowSeconds    float64 `json:"window_seconds"`
	MessagesInWindow uint64  `json:"messages_in_window"`
	TotalMessages    uint64  `json:"total_messages"`
}

// ErrorBreakdown counts errors by category. Swallowed handler errors are
// counted too, even though their message was acked.
type ErrorBreakdown struct {
	Content   uint64 `json:"content"`
	Handler   uint64 `json:"handler"`
	Cancelled uint64 `json:"cancelled"`
	Other     uint64 `json:"other"`
	LastError string `json:"last_error,omitempty"`
}

type BacklogMetrics struct {
	InFlight    uint64 `json:"in_flight"`
	MaxInFlight uint64 `json:"max_in_flight"`
}

type ErrorCategory string

const (
	ErrorCategoryNone      ErrorCategory = "none"
	ErrorCategoryContent   ErrorCategory = "content"
	ErrorCategoryHandler   ErrorCategory = "handler"
	ErrorCategoryCancelled ErrorCategory = "cancelled"
	ErrorCategoryOther     ErrorCategory = "other"
)

func newConsumerStats(topic string) *ConsumerStats {
	return &ConsumerStats{
		topic:            topic,
		data:             StatsSnapshot{Topic: topic},
		latencyWindow:    newLatencyWindow(latencySampleSize),
		throughputWindow: newThroughputWindow(throughputWindowSize),
	}
}

func (s *ConsumerStats) onMessageStart() {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	d := &s.data
	d.Backlog.InFlight++
	if d.Backlog.InFlight > d.Backlog.MaxInFlight {
		d.Backlog.MaxInFlight = d.Backlog.InFlight
	}
}

// onMessageFinish records one delivery. errs holds every handler error seen
// while processing it, swallowed ones included.
func (s *ConsumerStats) onMessageFinish(outcome string, duration time.Duration, errs ...error) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	d := &s.data
	if d.Backlog.InFlight > 0 {
		d.Backlog.InFlight--
	}

	d.MessagesProcessed++
	switch outcome {
	case DeliveryAcked:
		d.MessagesAcked++
	case DeliveryPending:
		d.MessagesPending++
	case DeliveryFailed:
		d.MessagesFailed++
	case DeliveryRejected:
		d.MessagesRejected++
	}
	d.TotalProcessingTime += int64(duration)
	now := time.Now()
	d.LastProcessedAt = now.UTC()

	if s.latencyWindow != nil {
		s.latencyWindow.Add(duration)
		snapshot := s.latencyWindow.Snapshot()
		snapshot.LastNs = int64(duration)
		snapshot.AverageNs = d.TotalProcessingTime / int64(d.MessagesProcessed)
		d.Latency = snapshot
	}

	if s.throughputWindow != nil {
		snapshot := s.throughputWindow.AddAndSnapshot(now)
		d.Throughput.CurrentRPS = snapshot.CurrentRPS
		d.Throughput.WindowSeconds = snapshot.WindowSeconds
		d.Throughput.MessagesInWindow = uint64(snapshot.Count)
	}
	d.Throughput.TotalMessages = d.MessagesProcessed

	for _, err := range errs {
		d.Errors.Record(classifyError(err), err)
	}
}

// Snapshot returns a copy that is safe to read and encode.
func (s *ConsumerStats) Snapshot() StatsSnapshot {
	if s == nil {
		return StatsSnapshot{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data
}

func (e *ErrorBreakdown) Record(category ErrorCategory, err error) {
	switch category {
	case ErrorCategoryNone:
		if err == nil {
			return
		}
		e.Other++
	case ErrorCategoryContent:
		e.Content++
	case ErrorCategoryHandler:
		e.Handler++
	case ErrorCategoryCancelled:
		e.Cancelled++
	default:
		e.Other++
	}
	if err != nil {
		e.LastError = err.Error()
	}
}

func classifyError(err error) ErrorCategory {
	if err == nil {
		return ErrorCategoryNone
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return ErrorCategoryCancelled
	}
	if errors.Is(err, errspkg.ErrContentDisallowed) || errors.Is(err, codecpkg.ErrUndecodable) {
		return ErrorCategoryContent
	}
	var execErr *errspkg.HandlerExecutionError
	if errors.As(err, &execErr) {
		return ErrorCategoryHandler
	}
	return ErrorCategoryOther
}

type latencyWindow struct {
	samples []int64
	next    int
	filled  int
	last    int64
}

func newLatencyWindow(size int) *latencyWindow {
	if size <= 0 {
		size = latencySampleSize
	}
	return &latencyWindow{samples: make([]int64, size)}
}

func (lw *latencyWindow) Add(d time.Duration) {
	if lw == nil || len(lw.samples) == 0 {
		return
	}
	lw.samples[lw.next] = int64(d)
	lw.last = int64(d)
	lw.next = (lw.next + 1) % len(lw.samples)
	if lw.filled < len(lw.samples) {
		lw.filled++
	}
}

func (lw *latencyWindow) Snapshot() LatencyMetrics {
	var metrics LatencyMetrics
	if lw == nil {
		return metrics
	}
	if lw.filled == 0 {
		metrics.LastNs = lw.last
		return metrics
	}
	samples := make([]int64, lw.filled)
	for i := 0; i < lw.filled; i++ {
		idx := lw.next - lw.filled + i
		if idx < 0 {
			idx += len(lw.samples)
		}
		samples[i] = lw.samples[idx]
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	metrics.SampleSize = lw.filled
	metrics.P50Ns = percentile(samples, 0.50)
	metrics.P95Ns = percentile(samples, 0.95)
	metrics.P99Ns = percentile(samples, 0.99)
	var sum int64
	for _, v := range samples {
		sum += v
	}
	metrics.AverageNs = sum / int64(len(samples))
	metrics.LastNs = lw.last
	return metrics
}

func percentile(samples []int64, quantile float64) int64 {
	if len(samples) == 0 {
		return 0
	}
	if quantile <= 0 {
		return samples[0]
	}
	if quantile >= 1 {
		return samples[len(samples)-1]
	}
	pos := quantile * float64(len(samples)-1)
	lower := int(math.Floor(pos))
	upper := int(math.Ceil(pos))
	if lower == upper {
		return samples[lower]
	}
	frac := pos - float64(lower)
	return samples[lower] + int64(float64(samples[upper]-samples[lower])*frac)
}

type throughputWindow struct {
	horizon time.Duration
	samples []time.Time
}

type throughputSnapshot struct {
	Count         int
	WindowSeconds float64
	CurrentRPS    float64
}

func newThroughputWindow(horizon time.Duration) *throughputWindow {
	return &throughputWindow{
		horizon: horizon,
		samples: make([]time.Time, 0, 64),
	}
}

func (tw *throughputWindow) AddAndSnapshot(now time.Time) throughputSnapshot {
	if tw == nil {
		return throughputSnapshot{}
	}
	tw.samples = append(tw.samples, now)
	tw.cleanup(now)
	return tw.snapshot(now)
}

func (tw *throughputWindow) cleanup(now time.Time) {
	if len(tw.samples) == 0 {
		return
	}
	cutoff := now.Add(-tw.horizon)
	idx := 0
	for idx < len(tw.samples) && tw.samples[idx].Before(cutoff) {
		idx++
	}
	if idx > 0 {
		copy(tw.samples, tw.samples[idx:])
		tw.samples = tw.samples[:len(tw.samples)-idx]
	}
}

func (tw *throughputWindow) snapshot(now time.Time) throughputSnapshot {
	if len(tw.samples) == 0 {
		return throughputSnapshot{}
	}
	span := now.Sub(tw.samples[0])
	if span <= 0 {
		span = time.Nanosecond
	}
	count := len(tw.samples)
	return throughputSnapshot{
		Count:         count,
		WindowSeconds: span.Seconds(),
		CurrentRPS:    float64(count) / span.Seconds(),
	}
}
