package ratelimit

import (
	"fmt"
	"time"

	"github.com/YingqiDuan/trading-telegram-bot/config"
)

// CategoryGlobal is the window every command counts against, on top of its
// own category window (if it has one).
const CategoryGlobal = "global"

// DeniedError reports how long the user has to wait before the request
// would be admitted again.
type DeniedError struct {
	Category   string
	RetryAfter time.Duration
}

func (e *DeniedError) Error() string {
	return fmt.Sprintf("rate limit exceeded for %s, retry after %s", e.Category, e.RetryAfter)
}

// Limiter admits or rejects one request for (user, category). The check and
// the record are a single atomic step; category may be empty for commands
// that only count against the global window.
type Limiter interface {
	Check(userID, category string) error
}

type noopLimiter struct{}

func (noopLimiter) Check(string, string) error { return nil }

// Limit is one window configuration.
type Limit struct {
	MaxCalls int
	Window   time.Duration
}

// spec defaults, used when the config leaves a category out
func defaultLimits() (Limit, map[string]Limit) {
	global := Limit{MaxCalls: 30, Window: time.Minute}
	categories := map[string]Limit{
		"balance":      {MaxCalls: 15, Window: time.Minute},
		"token_info":   {MaxCalls: 15, Window: time.Minute},
		"transactions": {MaxCalls: 15, Window: time.Minute},
		"validators":   {MaxCalls: 5, Window: time.Minute},
	}
	return global, categories
}

// FromConfig builds the limiter the config asks for.
func FromConfig(cfg config.RateLimitConfig) Limiter {
	if !cfg.Enabled {
		return noopLimiter{}
	}

	global, categories := defaultLimits()
	if cfg.MaxCalls > 0 {
		global.MaxCalls = cfg.MaxCalls
	}
	if cfg.WindowSeconds > 0 {
		global.Window = time.Duration(cfg.WindowSeconds) * time.Second
	}
	for name, c := range cfg.Categories {
		limit := Limit{MaxCalls: c.MaxCalls, Window: global.Window}
		if c.WindowSeconds > 0 {
			limit.Window = time.Duration(c.WindowSeconds) * time.Second
		}
		categories[name] = limit
	}

	if cfg.Backend == "redis" {
		return NewRedisLimiter(global, categories)
	}
	return NewMemoryLimiter(global, categories)
}
