package ratelimit

import (
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const defaultIdleTTL = 10 * time.Minute

type entry struct {
	lim      *rate.Limiter
	lastSeen atomic.Int64
}

// Limiter hands out one token bucket per key (client IP for HTTP routes).
// Buckets idle for longer than idleTTL are dropped on a later call.
type Limiter struct {
	limiters  sync.Map
	rps       rate.Limit
	burst     int
	idleTTL   time.Duration
	lastSweep atomic.Int64
	now       func() time.Time
}

// New creates a Limiter allowing rps requests per second with the given burst.
// A non-positive burst defaults to 5.
func New(rps float64, burst int) *Limiter {
	if burst <= 0 {
		burst = 5
	}

	// An evicted bucket comes back full, so only evict once it would have refilled anyway.
	idle := defaultIdleTTL
	if rps > 0 {
		if refill := time.Duration(float64(burst) / rps * float64(time.Second)); refill > idle {
			idle = refill
		}
	} else {
		idle = 0
	}

	return &Limiter{rps: rate.Limit(rps), burst: burst, idleTTL: idle, now: time.Now}
}

func (l *Limiter) get(key string) *rate.Limiter {
	now := l.now()
	l.sweep(now)

	v, ok := l.limiters.Load(key)
	if !ok {
		v, _ = l.limiters.LoadOrStore(key, &entry{lim: rate.NewLimiter(l.rps, l.burst)})
	}
	e := v.(*entry)
	e.lastSeen.Store(now.UnixNano())
	return e.lim
}

// sweep runs at most once per idleTTL.
func (l *Limiter) sweep(now time.Time) {
	if l.idleTTL <= 0 {
		return
	}
	last := l.lastSweep.Load()
	if now.UnixNano()-last < int64(l.idleTTL) || !l.lastSweep.CompareAndSwap(last, now.UnixNano()) {
		return
	}

	cutoff := now.Add(-l.idleTTL).UnixNano()
	l.limiters.Range(func(k, v any) bool {
		if v.(*entry).lastSeen.Load() < cutoff {
			l.limiters.Delete(k)
		}
		return true
	})
}

// Allow reports whether a request for key may proceed now.
func (l *Limiter) Allow(key string) bool {
	return l.get(key).Allow()
}

// Middleware rejects requests over the limit with 429, keyed by client IP.
func (l *Limiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.Allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
			return
		}
		c.Next()
	}
}
