package ratelimit

import "context"

// RateLimiter throttles outbound delivery attempts per endpoint.
type RateLimiter interface {
	Allow(ctx context.Context, endpointID string) (bool, error)
	Wait(ctx context.Context, endpointID string) error
}
