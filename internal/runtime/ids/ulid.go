package ids

import (
	"crypto/rand"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// CreateULID returns a time-sortable ULID encoded as a 26-character string.
func CreateULID() string {
	return newULID().String()
}

// WrapperName returns a unique, lowercase identifier for a wrapped message
// handler, e.g. "wrapper_01j9z3...".
func WrapperName() string {
	return "wrapper_" + strings.ToLower(newULID().String())
}

// ConsumerTag returns a broker consumer tag that embeds the queue name so
// the consumer can be recognised in the management UI.
func ConsumerTag(queue string) string {
	return "skinos." + queue + "." + strings.ToLower(newULID().String())
}

func newULID() ulid.ULID {
	entropyMu.Lock()
	defer entropyMu.Unlock()

	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy)
}
