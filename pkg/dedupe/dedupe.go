// Package dedupe suppresses repeat alerts for the same message. A message
// is fingerprinted from its raw text plus a coarse time bucket, so the same
// scam blast re-triaged within the window is reported once, while a repeat
// in a later window alerts again.
package dedupe

import (
	"fmt"
	"time"

	"github.com/cespare/xxhash/v2"
)

// DefaultWindow is the suppression window. A fingerprint seen inside one
// window is a duplicate; the next window starts fresh.
const DefaultWindow = 10 * time.Minute

// DefaultCapacity bounds the in-memory cache.
const DefaultCapacity = 50

// Cache records message fingerprints and answers whether one was already
// seen in the current window.
type Cache interface {
	// Seen records the message and reports whether it was already present
	// in the current time bucket. The first call for a fingerprint returns
	// false, subsequent calls in the same bucket return true.
	Seen(text string, now time.Time) bool
}

// Fingerprint hashes the raw message text together with its time bucket.
// Hashing the raw (not normalized) text keeps the check cheap enough to run
// before any pipeline stage.
func Fingerprint(text string, now time.Time, window time.Duration) string {
	bucket := now.UnixNano() / int64(window)
	return fmt.Sprintf("%016x-%d", xxhash.Sum64String(text), bucket)
}
