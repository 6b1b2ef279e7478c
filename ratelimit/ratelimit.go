// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package ratelimit provides client-side rate limiting for publish calls.
package ratelimit

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// PublishLimiter rate-limits publish calls per destination. Each
// destination (URL or topic name) gets its own token bucket, so a chatty
// destination cannot starve the others.
type PublishLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rate     rate.Limit
	burst    int
}

// NewPublishLimiter creates a limiter allowing r publishes per second to
// each destination, with the given burst allowance.
func NewPublishLimiter(r float64, burst int) *PublishLimiter {
	return &PublishLimiter{
		limiters: make(map[string]*rate.Limiter),
		rate:     rate.Limit(r),
		burst:    burst,
	}
}

func (l *PublishLimiter) limiter(dest string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	lim, ok := l.limiters[dest]
	if !ok {
		lim = rate.NewLimiter(l.rate, l.burst)
		l.limiters[dest] = lim
	}
	return lim
}

// Allow reports whether a publish to dest may proceed without blocking.
func (l *PublishLimiter) Allow(dest string) bool {
	return l.limiter(dest).Allow()
}

// Wait blocks until a publish to dest is allowed or ctx is done.
func (l *PublishLimiter) Wait(ctx context.Context, dest string) error {
	return l.limiter(dest).Wait(ctx)
}

// Remove drops the limiter state for a destination that is no longer
// published to.
func (l *PublishLimiter) Remove(dest string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.limiters, dest)
}
