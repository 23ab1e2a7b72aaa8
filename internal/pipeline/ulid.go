package pipeline

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid"
)

// Job ids are ULIDs, so lexical order is submission order. The outbox
// relies on that to replay oldest first.

var (
	ulidMu      sync.Mutex
	ulidEntropy = ulid.Monotonic(rand.Reader, 0)
	lastMs      uint64
)

func generateULID() string {
	ulidMu.Lock()
	defer ulidMu.Unlock()

	ms := ulid.Timestamp(time.Now())
	if ms < lastMs {
		// Clock stepped back: stay in the last millisecond.
		ms = lastMs
	}
	lastMs = ms
	return ulid.MustNew(ms, ulidEntropy).String()
}
