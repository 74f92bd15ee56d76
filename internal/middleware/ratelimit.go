package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/castusphanik/lucky-backend-sub000/internal/config"
	"golang.org/x/time/rate"
)

const limiterIdleTimeout = 10 * time.Minute

type clientLimiter struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// limiterPool hands out one rate.Limiter per client key. Entries idle past
// the timeout are evicted on lookup so the map stays bounded by the active
// client set instead of growing with every IP ever seen.
type limiterPool struct {
	mu        sync.Mutex
	cfg       config.FeedConfig
	limiters  map[string]*clientLimiter
	lastSweep time.Time
}

func newLimiterPool(cfg config.FeedConfig) *limiterPool {
	return &limiterPool{
		cfg:       cfg,
		limiters:  make(map[string]*clientLimiter),
		lastSweep: time.Now(),
	}
}

func (p *limiterPool) get(key string, now time.Time) *rate.Limiter {
	p.mu.Lock()
	defer p.mu.Unlock()
	if now.Sub(p.lastSweep) >= limiterIdleTimeout {
		for k, cl := range p.limiters {
			if now.Sub(cl.lastSeen) >= limiterIdleTimeout {
				delete(p.limiters, k)
			}
		}
		p.lastSweep = now
	}
	cl, ok := p.limiters[key]
	if !ok {
		cl = &clientLimiter{lim: rate.NewLimiter(rate.Limit(p.cfg.RatePerSecond), p.cfg.Burst)}
		p.limiters[key] = cl
	}
	cl.lastSeen = now
	return cl.lim
}

func (p *limiterPool) size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.limiters)
}

// RateLimit throttles per client IP. Telematics boxes retry aggressively
// when a report fails; the limiter keeps a misbehaving unit from starving
// the feed for everyone else.
func RateLimit(cfg config.FeedConfig) func(http.Handler) http.Handler {
	pool := newLimiterPool(cfg)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				ip = r.RemoteAddr
			}
			if !pool.get(ip, time.Now()).Allow() {
				w.Header().Set("Retry-After", "1")
				http.Error(w, "Too many requests", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
