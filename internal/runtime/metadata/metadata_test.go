package metadata

import (
	"testing"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stretchr/testify/assert"
)

func TestCloneDoesNotAlias(t *testing.T) {
	original := Metadata{"a": "1", "b": "2"}
	clone := original.Clone()
	clone["a"] = "changed"

	assert.Equal(t, "1", original["a"])
	assert.Len(t, clone, len(original))
}

func TestCloneEmpty(t *testing.T) {
	var m Metadata
	cloned := m.Clone()
	assert.NotNil(t, cloned)
	assert.Empty(t, cloned)
}

func TestWithAndWithAll(t *testing.T) {
	base := Metadata{"foo": "bar"}
	enriched := base.With("baz", "qux")
	assert.Empty(t, base["baz"])
	assert.Equal(t, "qux", enriched["baz"])

	merged := enriched.WithAll(Metadata{"alpha": "beta"})
	assert.Equal(t, "beta", merged["alpha"])
	assert.Equal(t, "qux", merged["baz"])
}

func TestNewPairs(t *testing.T) {
	md := New("key", "value", "another", "entry", "dangling")
	assert.Equal(t, Metadata{"key": "value", "another": "entry"}, md)
}

func TestDeliveryAccessors(t *testing.T) {
	md := New(
		KeyContentType, "text/plain",
		KeyExchange, "test",
		KeyRoutingKey, "test.test.1",
		KeyRedelivered, "true",
		KeyCorrelationID, "abc",
	)

	assert.Equal(t, "text/plain", md.ContentType())
	assert.Equal(t, "test", md.Exchange())
	assert.Equal(t, "test.test.1", md.RoutingKey())
	assert.Equal(t, "abc", md.CorrelationID())
	assert.True(t, md.Redelivered())
	assert.False(t, Metadata{}.Redelivered())
	assert.False(t, New(KeyRedelivered, "nope").Redelivered())
}

func TestToAndFromWatermill(t *testing.T) {
	md := Metadata{"source": "api"}
	wm := ToWatermill(md)
	assert.Equal(t, "api", wm["source"])
	wm["source"] = "mutation"
	assert.Equal(t, "api", md["source"])

	assert.Empty(t, ToWatermill(nil))

	roundTrip := FromWatermill(message.Metadata{"event": "order"})
	assert.Equal(t, "order", roundTrip["event"])
}

func TestFromWatermillEmpty(t *testing.T) {
	md := FromWatermill(nil)
	assert.NotNil(t, md)
	assert.Empty(t, md)
}
