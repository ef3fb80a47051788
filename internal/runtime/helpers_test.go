package runtime

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stretchr/testify/require"

	handlerpkg "github.com/drblury/skinos/internal/runtime/handlers"
	loggingpkg "github.com/drblury/skinos/internal/runtime/logging"
	metadatapkg "github.com/drblury/skinos/internal/runtime/metadata"
)

type publishedMessage struct {
	topic string
	msg   *message.Message
}

type testPublisher struct {
	mu        sync.Mutex
	published []publishedMessage
	err       error
}

func (p *testPublisher) Publish(topic string, messages ...*message.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	for _, msg := range messages {
		p.published = append(p.published, publishedMessage{topic: topic, msg: msg})
	}
	return nil
}

func (p *testPublisher) Close() error { return nil }

func (p *testPublisher) Messages() []publishedMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]publishedMessage(nil), p.published...)
}

type testSubscriber struct {
	err error
}

func (s *testSubscriber) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	if s.err != nil {
		return nil, s.err
	}
	ch := make(chan *message.Message)
	close(ch)
	return ch, nil
}

func (s *testSubscriber) Close() error { return nil }

type reportedError struct {
	err  error
	tags map[string]string
}

type recordingReporter struct {
	mu      sync.Mutex
	reports []reportedError
}

func (r *recordingReporter) Report(_ context.Context, err error, tags map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports = append(r.reports, reportedError{err: err, tags: tags})
}

func (r *recordingReporter) Reports() []reportedError {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]reportedError(nil), r.reports...)
}

type recordingApp struct {
	steps []*ConsumerStep
	err   error
}

func (a *recordingApp) AddConsumerStep(step *ConsumerStep) error {
	if a.err != nil {
		return a.err
	}
	a.steps = append(a.steps, step)
	return nil
}

type logEntry struct {
	level  string
	msg    string
	err    error
	fields loggingpkg.LogFields
}

type recordingLogger struct {
	mu      *sync.Mutex
	entries *[]logEntry
	fields  loggingpkg.LogFields
}

func newRecordingLogger() *recordingLogger {
	return &recordingLogger{mu: &sync.Mutex{}, entries: &[]logEntry{}}
}

func (l *recordingLogger) With(fields loggingpkg.LogFields) loggingpkg.ServiceLogger {
	merged := loggingpkg.LogFields{}
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &recordingLogger{mu: l.mu, entries: l.entries, fields: merged}
}

func (l *recordingLogger) record(level, msg string, err error, fields loggingpkg.LogFields) {
	l.mu.Lock()
	defer l.mu.Unlock()
	merged := loggingpkg.LogFields{}
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	*l.entries = append(*l.entries, logEntry{level: level, msg: msg, err: err, fields: merged})
}

func (l *recordingLogger) Debug(msg string, fields loggingpkg.LogFields) {
	l.record("debug", msg, nil, fields)
}

func (l *recordingLogger) Info(msg string, fields loggingpkg.LogFields) {
	l.record("info", msg, nil, fields)
}

func (l *recordingLogger) Error(msg string, err error, fields loggingpkg.LogFields) {
	l.record("error", msg, err, fields)
}

func (l *recordingLogger) Trace(msg string, fields loggingpkg.LogFields) {
	l.record("trace", msg, nil, fields)
}

func (l *recordingLogger) Entries() []logEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]logEntry(nil), (*l.entries)...)
}

// Find returns the first entry logged with msg.
func (l *recordingLogger) Find(msg string) (logEntry, bool) {
	for _, e := range l.Entries() {
		if e.msg == msg {
			return e, true
		}
	}
	return logEntry{}, false
}

var errBoom = errors.New("boom")

func hello(body any, msg *handlerpkg.Message) (any, error) {
	return 10, nil
}

func world(body any, msg *handlerpkg.Message) (any, error) {
	return nil, errBoom
}

func keep(body any, msg *handlerpkg.Message) (any, error) {
	return false, nil
}

func returning(v any) handlerpkg.Handler {
	return func(any, *handlerpkg.Message) (any, error) { return v, nil }
}

func newTestRegistry(opts ...Option) *Registry {
	return NewRegistry(append([]Option{WithSummaryWriter(io.Discard)}, opts...)...)
}

// newTestTopology declares the "test" exchange used by most tests.
func newTestTopology(t *testing.T, opts ...Option) *Registry {
	t.Helper()
	r := newTestRegistry(opts...)
	_, err := r.DeclareExchange("test", "test.*.*")
	require.NoError(t, err)
	return r
}

func newDelivery(payload string, contentType string) *message.Message {
	msg := message.NewMessage("msg-1", []byte(payload))
	if contentType != "" {
		msg.Metadata.Set(metadatapkg.KeyContentType, contentType)
	}
	msg.Metadata.Set(metadatapkg.KeyRoutingKey, "test.test.one")
	msg.Metadata.Set(metadatapkg.KeyCorrelationID, "corr-1")
	msg.SetContext(context.Background())
	return msg
}

func ackState(msg *message.Message) string {
	select {
	case <-msg.Acked():
		return "ack"
	case <-msg.Nacked():
		return "nack"
	default:
		return "none"
	}
}

func buildConsumers(t *testing.T, r *Registry, pub *testPublisher) []*Consumer {
	t.Helper()
	ch := Channel{Subscriber: &testSubscriber{}}
	if pub != nil {
		ch.Publisher = pub
	}
	consumers, err := r.Consumers(ch)
	require.NoError(t, err)
	return consumers
}
