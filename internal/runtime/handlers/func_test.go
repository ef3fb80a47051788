package handlers

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errspkg "github.com/drblury/skinos/internal/runtime/errors"
	metadatapkg "github.com/drblury/skinos/internal/runtime/metadata"
)

type order struct {
	ID    int    `json:"id"`
	Label string `json:"label"`
}

func jsonMessage(payload string) *Message {
	return NewMessage(context.Background(), "id", []byte(payload), nil, nil)
}

func textMessage(payload string) *Message {
	md := metadatapkg.New(metadatapkg.KeyContentType, "text/plain")
	return NewMessage(context.Background(), "id", []byte(payload), md, nil)
}

func TestFuncRejectsBadShapes(t *testing.T) {
	tests := []struct {
		name string
		fn   any
		want error
	}{
		{"nil", nil, errspkg.ErrHandlerRequired},
		{"not a function", 42, errspkg.ErrHandlerSignature},
		{"no parameters", func() {}, errspkg.ErrHandlerArity},
		{"one parameter", func(body any) any { return body }, errspkg.ErrHandlerArity},
		{"variadic", func(args ...any) {}, errspkg.ErrHandlerArity},
		{"three parameters", func(any, *Message, int) {}, errspkg.ErrHandlerSignature},
		{"wrong handle type", func(any, string) {}, errspkg.ErrHandlerSignature},
		{"second result not error", func(any, *Message) (int, int) { return 0, 0 }, errspkg.ErrHandlerSignature},
		{"three results", func(any, *Message) (int, int, error) { return 0, 0, nil }, errspkg.ErrHandlerSignature},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Func(tt.fn)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestFuncPassesThroughHandler(t *testing.T) {
	h, err := Func(func(body any, msg *Message) (any, error) { return body, nil })
	require.NoError(t, err)

	got, err := h(10, nil)
	require.NoError(t, err)
	assert.Equal(t, 10, got)
}

func TestFuncResultShapes(t *testing.T) {
	boom := errors.New("boom")

	noResult, err := Func(func(any, *Message) {})
	require.NoError(t, err)
	got, err := noResult(nil, jsonMessage(`{}`))
	assert.NoError(t, err)
	assert.Nil(t, got)

	onlyValue, err := Func(func(any, *Message) bool { return false })
	require.NoError(t, err)
	got, err = onlyValue(nil, jsonMessage(`{}`))
	assert.NoError(t, err)
	assert.Equal(t, false, got)

	onlyError, err := Func(func(any, *Message) error { return boom })
	require.NoError(t, err)
	_, err = onlyError(nil, jsonMessage(`{}`))
	assert.ErrorIs(t, err, boom)

	both, err := Func(func(any, *Message) (int, error) { return 10, nil })
	require.NoError(t, err)
	got, err = both(nil, jsonMessage(`{}`))
	assert.NoError(t, err)
	assert.Equal(t, 10, got)
}

func TestFuncDecodesTypedBodies(t *testing.T) {
	byValue, err := Func(func(body order, _ *Message) (any, error) { return body.ID, nil })
	require.NoError(t, err)
	got, err := byValue(map[string]any{"id": float64(7)}, jsonMessage(`{"id":7,"label":"x"}`))
	require.NoError(t, err)
	assert.Equal(t, 7, got)

	byPointer, err := Func(func(body *order, _ *Message) (any, error) { return body.Label, nil })
	require.NoError(t, err)
	got, err = byPointer(nil, jsonMessage(`{"id":7,"label":"x"}`))
	require.NoError(t, err)
	assert.Equal(t, "x", got)

	_, err = byValue(nil, jsonMessage(`{"id":"not a number"}`))
	assert.Error(t, err)
}

func TestFuncRawAndTextBodies(t *testing.T) {
	raw, err := Func(func(body []byte, _ *Message) (any, error) { return len(body), nil })
	require.NoError(t, err)
	got, err := raw(nil, jsonMessage(`{"a":1}`))
	require.NoError(t, err)
	assert.Equal(t, 7, got)

	text, err := Func(func(body string, _ *Message) (any, error) { return body, nil })
	require.NoError(t, err)
	got, err = text(nil, textMessage("hello"))
	require.NoError(t, err)
	assert.Equal(t, "hello", got)

	got, err = text(nil, jsonMessage(`"quoted"`))
	require.NoError(t, err)
	assert.Equal(t, "quoted", got)
}

func TestFuncUsesDecodedBodyWhenAssignable(t *testing.T) {
	h, err := Func(func(body map[string]any, _ *Message) (any, error) { return body["k"], nil })
	require.NoError(t, err)

	got, err := h(map[string]any{"k": "v"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "v", got)
}

func TestFuncZeroBodyWithoutPayload(t *testing.T) {
	h, err := Func(func(body order, _ *Message) (any, error) { return body.ID, nil })
	require.NoError(t, err)

	got, err := h(nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, got)
}
