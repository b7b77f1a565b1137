package ratelimit

import "context"

// RateLimiter caps how many notifications one recipient gets per window.
type RateLimiter interface {
	Allow(ctx context.Context, recipient string) (bool, error)
}
