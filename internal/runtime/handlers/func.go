package handlers

import (
	"fmt"
	"reflect"

	codecpkg "github.com/drblury/skinos/internal/runtime/codec"
	errspkg "github.com/drblury/skinos/internal/runtime/errors"
)

var (
	messageType = reflect.TypeOf((*Message)(nil))
	errorType   = reflect.TypeOf((*error)(nil)).Elem()
)

// Func adapts an arbitrary function to Handler. The function must take the
// body followed by *Message. The body parameter may be any, []byte, string
// or a concrete type the payload is decoded into. It may return nothing, a
// value, an error, or a value and an error.
func Func(fn any) (Handler, error) {
	if fn == nil {
		return nil, errspkg.ErrHandlerRequired
	}
	if h, ok := fn.(Handler); ok {
		return h, nil
	}
	if h, ok := fn.(func(any, *Message) (any, error)); ok {
		return h, nil
	}

	v := reflect.ValueOf(fn)
	t := v.Type()
	if t.Kind() != reflect.Func {
		return nil, fmt.Errorf("%w: %T is not a function", errspkg.ErrHandlerSignature, fn)
	}
	if t.IsVariadic() || t.NumIn() < 2 {
		return nil, errspkg.ErrHandlerArity
	}
	if t.NumIn() > 2 {
		return nil, fmt.Errorf("%w: expected 2 parameters, got %d", errspkg.ErrHandlerSignature, t.NumIn())
	}
	if t.In(1) != messageType {
		return nil, fmt.Errorf("%w: second parameter must be *handlers.Message, got %s", errspkg.ErrHandlerSignature, t.In(1))
	}
	collect, err := resultCollector(t)
	if err != nil {
		return nil, err
	}
	bodyType := t.In(0)

	return func(body any, msg *Message) (any, error) {
		arg, err := bodyArgument(bodyType, body, msg)
		if err != nil {
			return nil, err
		}
		return collect(v.Call([]reflect.Value{arg, reflect.ValueOf(msg)}))
	}, nil
}

func resultCollector(t reflect.Type) (func([]reflect.Value) (any, error), error) {
	switch t.NumOut() {
	case 0:
		return func([]reflect.Value) (any, error) { return nil, nil }, nil
	case 1:
		if t.Out(0) == errorType {
			return func(out []reflect.Value) (any, error) { return nil, asError(out[0]) }, nil
		}
		return func(out []reflect.Value) (any, error) { return out[0].Interface(), nil }, nil
	case 2:
		if t.Out(1) != errorType {
			return nil, fmt.Errorf("%w: second result must be error, got %s", errspkg.ErrHandlerSignature, t.Out(1))
		}
		return func(out []reflect.Value) (any, error) {
			return out[0].Interface(), asError(out[1])
		}, nil
	default:
		return nil, fmt.Errorf("%w: too many results (%d)", errspkg.ErrHandlerSignature, t.NumOut())
	}
}

func asError(v reflect.Value) error {
	if v.IsNil() {
		return nil
	}
	return v.Interface().(error)
}

// bodyArgument builds the first call argument. An already decoded body is
// used when it fits the parameter; otherwise the raw payload is decoded.
func bodyArgument(typ reflect.Type, body any, msg *Message) (reflect.Value, error) {
	if body != nil && reflect.TypeOf(body).AssignableTo(typ) {
		return reflect.ValueOf(body), nil
	}
	if typ.Kind() == reflect.Interface && body == nil {
		return reflect.Zero(typ), nil
	}
	if msg == nil || len(msg.Payload) == 0 {
		return reflect.Zero(typ), nil
	}

	switch {
	case typ.Kind() == reflect.Slice && typ.Elem().Kind() == reflect.Uint8:
		return reflect.ValueOf(msg.Payload).Convert(typ), nil
	case typ.Kind() == reflect.String && msg.ContentType() != codecpkg.ContentTypeJSON:
		return reflect.ValueOf(string(msg.Payload)).Convert(typ), nil
	case typ.Kind() == reflect.Pointer:
		target := reflect.New(typ.Elem())
		if err := msg.Decode(target.Interface()); err != nil {
			return reflect.Value{}, err
		}
		return target, nil
	default:
		target := reflect.New(typ)
		if err := msg.Decode(target.Interface()); err != nil {
			return reflect.Value{}, err
		}
		return target.Elem(), nil
	}
}
