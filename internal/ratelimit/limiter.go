// Package ratelimit paces outbound deliveries so a burst of notifications
// cannot flood an email relay or push gateway.
package ratelimit

import "context"

// RateLimiter grants send credits per delivery channel. Limits are shared
// across worker replicas, so the key space is the channel name, not the
// worker instance.
type RateLimiter interface {
	// Allow reports whether a send credit is available right now.
	Allow(ctx context.Context, channel string) (bool, error)
	// Wait blocks until a credit is available or the context ends.
	Wait(ctx context.Context, channel string) error
}
