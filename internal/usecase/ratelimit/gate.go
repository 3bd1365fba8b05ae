// Package ratelimit holds the single-token gates used to throttle
// automatic replies.
package ratelimit

import (
	"time"

	"golang.org/x/time/rate"
)

// Gate admits at most one action per interval. Safe for concurrent use.
type Gate struct {
	limiter  *rate.Limiter
	interval time.Duration
}

func NewGate(interval time.Duration) *Gate {
	if interval <= 0 {
		return &Gate{limiter: rate.NewLimiter(rate.Inf, 1)}
	}
	return &Gate{
		limiter:  rate.NewLimiter(rate.Every(interval), 1),
		interval: interval,
	}
}

// TryAcquire consumes the token if one is available at now.
func (g *Gate) TryAcquire(now time.Time) bool {
	return g.limiter.AllowN(now, 1)
}

func (g *Gate) Interval() time.Duration {
	return g.interval
}
