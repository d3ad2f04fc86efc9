package harnessports

import (
	"time"

	"github.com/lightningnetwork/lnd/fn/v2"
)

// CacheStats is the snapshot reported by health checks.
type CacheStats struct {
	Entries int           `json:"entries"` // includes expired entries not yet cleaned up
	Hits    uint64        `json:"hits"`
	Misses  uint64        `json:"misses"`
	Expiry  time.Duration `json:"-"`

	ExpirySeconds int64 `json:"expiry_seconds"`
}

// ResultCache memoizes raw provider replies by summary content.
type ResultCache interface {
	Lookup(summary string) fn.Option[string]
	Store(summary, reply string)
	Cleanup() int
	Clear() int
	Size() int
	Stats() CacheStats
}
