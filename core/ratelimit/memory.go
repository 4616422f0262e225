package ratelimit

import (
	"sync"
	"time"
)

// MemoryLimiter keeps sliding windows of request timestamps per user. The
// mutex makes check-and-record atomic: two concurrent requests can never
// both see "one slot remaining".
type MemoryLimiter struct {
	mu         sync.Mutex
	global     Limit
	categories map[string]Limit
	history    map[string]map[string][]time.Time
	now        func() time.Time
}

func NewMemoryLimiter(global Limit, categories map[string]Limit) *MemoryLimiter {
	return &MemoryLimiter{
		global:     global,
		categories: categories,
		history:    make(map[string]map[string][]time.Time),
		now:        time.Now,
	}
}

func (l *MemoryLimiter) Check(userID, category string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()

	user := l.history[userID]
	if user == nil {
		user = make(map[string][]time.Time)
		l.history[userID] = user
	}

	// each category keeps its history for its own window (or the global
	// one, whichever is longer); traffic elsewhere must not erase it
	for cat, stamps := range user {
		window := l.global.Window
		if limit, ok := l.categories[cat]; ok && limit.Window > window {
			window = limit.Window
		}
		user[cat] = prune(stamps, now.Add(-window))
		if len(user[cat]) == 0 {
			delete(user, cat)
		}
	}

	if limit, ok := l.categories[category]; ok && category != "" {
		recent := prune(user[category], now.Add(-limit.Window))
		if len(recent) >= limit.MaxCalls {
			return &DeniedError{
				Category:   category,
				RetryAfter: retryAfter(recent, limit.Window, now),
			}
		}
	}

	cutoff := now.Add(-l.global.Window)
	var all []time.Time
	for _, stamps := range user {
		all = append(all, prune(stamps, cutoff)...)
	}
	if len(all) >= l.global.MaxCalls {
		return &DeniedError{
			Category:   CategoryGlobal,
			RetryAfter: retryAfter(all, l.global.Window, now),
		}
	}

	user[category] = append(user[category], now)
	return nil
}

func prune(stamps []time.Time, cutoff time.Time) []time.Time {
	res := stamps[:0:0]
	for _, t := range stamps {
		if t.After(cutoff) {
			res = append(res, t)
		}
	}
	return res
}

// time until the oldest counted request exits the window
func retryAfter(stamps []time.Time, window time.Duration, now time.Time) time.Duration {
	oldest := stamps[0]
	for _, t := range stamps[1:] {
		if t.Before(oldest) {
			oldest = t
		}
	}
	wait := oldest.Add(window).Sub(now)
	if wait < time.Second {
		wait = time.Second
	}
	return wait
}
