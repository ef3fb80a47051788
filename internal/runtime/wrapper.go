package runtime

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	errspkg "github.com/drblury/skinos/internal/runtime/errors"
	handlerpkg "github.com/drblury/skinos/internal/runtime/handlers"
	idspkg "github.com/drblury/skinos/internal/runtime/ids"
	loggingpkg "github.com/drblury/skinos/internal/runtime/logging"
)

// ErrorPolicy decides what happens to an error raised by handler code.
type ErrorPolicy struct {
	// Report forwards the error to the configured ErrorReporter.
	Report bool
	// Reraise propagates the error so the message stays unacknowledged.
	// When false the error is swallowed and the message is acked.
	Reraise bool
}

// Result is what one wrapped handler invocation produced.
type Result struct {
	Value   any
	Outcome handlerpkg.Outcome
	// Err holds a handler error that the policy swallowed.
	Err error
}

// Acked reports whether the invocation acknowledged the message.
func (r Result) Acked() bool {
	return r.Outcome == handlerpkg.OutcomeAck
}

// WrappedHandler adapts a raw handler to the worker: it contains panics,
// applies the error policy captured at wrap time and turns the handler's
// return value into an ack decision.
type WrappedHandler struct {
	Name     string
	Task     string
	Exchange string
	Queue    string

	handler   handlerpkg.Handler
	policy    ErrorPolicy
	reporter  ErrorReporter
	logger    loggingpkg.ServiceLogger
	alwaysAck bool
}

func (r *Registry) wrap(task string, queue *Queue, h handlerpkg.Handler, alwaysAck bool) *WrappedHandler {
	w := &WrappedHandler{
		Name:      idspkg.WrapperName(),
		Task:      task,
		Exchange:  queue.Exchange.Name,
		Queue:     queue.Name,
		handler:   h,
		policy:    r.policy,
		reporter:  r.reporter,
		alwaysAck: alwaysAck,
	}
	w.logger = r.logger.With(loggingpkg.LogFields{
		"task":     task,
		"wrapper":  w.Name,
		"exchange": w.Exchange,
		"queue":    w.Queue,
	})
	return w
}

// Policy returns the error policy captured when the handler was wrapped.
func (w *WrappedHandler) Policy() ErrorPolicy {
	return w.policy
}

// Call runs the handler with body and msg. A returned error is always a
// *errors.HandlerExecutionError and means the policy asked for it to be
// re-raised; msg has not been acknowledged in that case.
func (w *WrappedHandler) Call(body any, msg *handlerpkg.Message) (Result, error) {
	if msg == nil {
		msg = handlerpkg.NewMessage(context.Background(), "", nil, nil, nil)
	}

	value, err := w.invoke(body, msg)
	var res Result
	if err != nil {
		execErr := &errspkg.HandlerExecutionError{
			Handler:  w.Task,
			Exchange: w.Exchange,
			Queue:    w.Queue,
			Err:      err,
		}
		w.logger.Error("Handler failed", execErr, loggingpkg.LogFields{
			"message_uuid": msg.UUID,
			"reraise":      w.policy.Reraise,
		})

		span := trace.SpanFromContext(msg.Context())
		span.RecordError(execErr)
		span.SetStatus(codes.Error, execErr.Error())

		if w.policy.Report && w.reporter != nil {
			w.reporter.Report(msg.Context(), execErr, map[string]string{
				"task":     w.Task,
				"exchange": w.Exchange,
				"queue":    w.Queue,
			})
		}
		if w.policy.Reraise {
			return Result{Outcome: handlerpkg.OutcomePending, Err: execErr}, execErr
		}
		value = nil
		res.Err = execErr
	}

	res.Value = value
	res.Outcome = handlerpkg.Decide(value)
	if w.alwaysAck {
		res.Outcome = handlerpkg.OutcomeAck
	}
	if res.Outcome == handlerpkg.OutcomeAck && !msg.Ack() {
		w.logger.Info("Broker refused acknowledgement", loggingpkg.LogFields{"message_uuid": msg.UUID})
	}
	return res, nil
}

// invoke runs the raw handler and converts a panic into an error.
func (w *WrappedHandler) invoke(body any, msg *handlerpkg.Message) (value any, err error) {
	defer func() {
		if p := recover(); p != nil {
			value = nil
			if e, ok := p.(error); ok {
				err = fmt.Errorf("panic: %w", e)
				return
			}
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return w.handler(body, msg)
}
