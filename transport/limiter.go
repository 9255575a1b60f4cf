package transport

import (
	"net"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// AcceptLimiter applies a token bucket per remote IP so that one flooding peer
// cannot exhaust the connection handlers. Idle buckets are evicted periodically.
type AcceptLimiter struct {
	limit   rate.Limit
	burst   int
	idleTTL time.Duration

	mu     sync.Mutex
	byHost map[string]*limiterEntry
	hits   uint64
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewAcceptLimiter creates a per-IP limiter; it returns nil (allow everything)
// when rps or burst is not positive.
func NewAcceptLimiter(rps float64, burst int) *AcceptLimiter {
	if rps <= 0 || burst <= 0 {
		return nil
	}
	return &AcceptLimiter{
		limit:   rate.Limit(rps),
		burst:   burst,
		idleTTL: 10 * time.Minute,
		byHost:  make(map[string]*limiterEntry),
	}
}

// Allow reports whether a new connection from addr may be served at now.
func (l *AcceptLimiter) Allow(addr net.Addr, now time.Time) bool {
	if l == nil || addr == nil {
		return true
	}
	host := addr.String()
	if tcp, ok := addr.(*net.TCPAddr); ok {
		host = tcp.IP.String()
	} else if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.byHost[host]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.byHost[host] = e
	}
	e.lastSeen = now
	allowed := e.limiter.AllowN(now, 1)

	l.hits++
	if l.hits%512 == 0 {
		cutoff := now.Add(-l.idleTTL)
		for k, v := range l.byHost {
			if v.lastSeen.Before(cutoff) {
				delete(l.byHost, k)
			}
		}
	}

	return allowed
}
