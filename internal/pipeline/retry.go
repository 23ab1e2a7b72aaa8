package pipeline

import (
	"math/rand/v2"
	"time"

	"github.com/dgallion1/closereader/internal/pathstore"
)

const (
	// MaxRetries is the number of remote attempts a job gets before it is
	// parked in the outbox.
	MaxRetries = 3

	retryBase = 500 * time.Millisecond
	retryCap  = 8 * time.Second
)

// IsRetryable reports whether a remote failure is transient: throttling,
// 5xx responses and transport errors.
func IsRetryable(err error) bool {
	return pathstore.IsRetryable(err)
}

// Backoff returns the delay before retry n (0-indexed): doubling from
// half a second, capped at retryCap, plus up to 50% jitter.
func Backoff(attempt int) time.Duration {
	d := retryBase << min(attempt, 5)
	d = min(d, retryCap)
	return d + time.Duration(rand.Int64N(int64(d)/2+1))
}
