// Copyright Chatstream Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package http

import (
	"sync"
	"time"
)

// RateLimiter enforces a sliding-window request cap per conversation.
type RateLimiter struct {
	mu       sync.Mutex
	requests int
	window   time.Duration
	seen     map[string][]time.Time
	now      func() time.Time
}

// NewRateLimiter creates a limiter allowing `requests` requests per
// conversation within `window`.
func NewRateLimiter(requests int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		requests: requests,
		window:   window,
		seen:     make(map[string][]time.Time),
		now:      time.Now,
	}
}

// Allow records a request for the conversation and reports whether it is
// within the window budget.
func (l *RateLimiter) Allow(conversationID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-l.window)

	stamps := l.seen[conversationID]
	kept := stamps[:0]
	for _, ts := range stamps {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}

	if len(kept) >= l.requests {
		l.seen[conversationID] = kept
		return false
	}

	l.seen[conversationID] = append(kept, now)
	return true
}
