package harnessports

import "context"

// RateLimiter bounds how many upstream generations may be in flight.
type RateLimiter interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}
