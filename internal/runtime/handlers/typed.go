package handlers

import (
	"fmt"
	"reflect"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
)

// JSON adapts a handler with a typed body. The payload is decoded into a
// fresh T for every message unless the caller already supplied a T.
func JSON[T any](fn func(body T, msg *Message) (any, error)) Handler {
	return func(body any, msg *Message) (any, error) {
		if typed, ok := body.(T); ok {
			return fn(typed, msg)
		}
		var typed T
		if msg != nil && len(msg.Payload) > 0 {
			if err := msg.Decode(&typed); err != nil {
				return nil, err
			}
		}
		return fn(typed, msg)
	}
}

var protoUnmarshal = protojson.UnmarshalOptions{DiscardUnknown: true}

// Proto adapts a handler whose body is a protobuf message published as
// protobuf JSON.
func Proto[T proto.Message](fn func(body T, msg *Message) (any, error)) Handler {
	var zero T
	elem := reflect.TypeOf(zero)
	if elem == nil || elem.Kind() != reflect.Pointer {
		panic("skinos: Proto requires a pointer message type")
	}
	elem = elem.Elem()

	return func(body any, msg *Message) (any, error) {
		if typed, ok := body.(T); ok {
			return fn(typed, msg)
		}
		typed := reflect.New(elem).Interface().(T)
		if msg != nil && len(msg.Payload) > 0 {
			if err := protoUnmarshal.Unmarshal(msg.Payload, typed); err != nil {
				return nil, fmt.Errorf("decode protobuf json body: %w", err)
			}
		}
		return fn(typed, msg)
	}
}
