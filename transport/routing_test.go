package transport

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchRoutingKey(t *testing.T) {
	tests := []struct {
		binding string
		key     string
		want    bool
	}{
		{"test.test.*", "test.test.x", true},
		{"test.test.*", "test.test", false},
		{"test.test.*", "test.test.x.y", false},
		{"test.*.*", "test.a.b", true},
		{"#", "anything.at.all", true},
		{"#", "", true},
		{"failure.#", "failure", true},
		{"failure.#", "failure.reject", true},
		{"failure.#", "failed.reject", false},
		{"a.#.z", "a.z", true},
		{"a.#.z", "a.b.c.z", true},
		{"a.#.z", "a.b.c", false},
		{"failure.reject", "failure.reject", true},
		{"failure.reject", "failure.retry", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, MatchRoutingKey(tt.binding, tt.key), "%s vs %s", tt.binding, tt.key)
	}
}

type listTopology []Binding

func (l listTopology) Binding(topic string) (Binding, bool) {
	for _, b := range l {
		if b.Topic() == topic {
			return b, true
		}
	}
	return Binding{}, false
}

func (l listTopology) Bindings() []Binding { return l }

func TestRoute(t *testing.T) {
	topo := listTopology{
		{Exchange: "test", Queue: "test.test", BindingKey: "test.test.*"},
		{Exchange: "test", Queue: "test.hello", BindingKey: "test.hello.*"},
		{Exchange: "test", Queue: "test.all", BindingKey: "test.#"},
		{Exchange: "other", Queue: "other.all", BindingKey: "#"},
	}

	assert.Equal(t, []string{"test|test.test", "test|test.all"}, Route(topo, "test", "test.test.x"))
	assert.Equal(t, []string{"test|test.all"}, Route(topo, "test", "test.nothing"))
	assert.Empty(t, Route(topo, "missing", "test.test.x"))
}
