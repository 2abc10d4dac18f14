package http

import (
	"time"

	"golang.org/x/time/rate"
)

// newRateLimiter budgets inbound websocket messages per connection: perMinute
// messages a minute, with bursts of up to perMinute. It returns nil when disabled.
func newRateLimiter(perMinute int) *rate.Limiter {
	if perMinute <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), perMinute)
}

func allowMessage(l *rate.Limiter) bool {
	return l == nil || l.Allow()
}
