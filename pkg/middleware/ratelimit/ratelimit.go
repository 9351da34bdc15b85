// Package ratelimit limits requests per client IP with a token bucket per visitor.
package ratelimit

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/Vishnukv66991/pyshort/pkg/middleware"
	"github.com/go-chi/render"
	"golang.org/x/time/rate"
)

const defaultIdleTTL = 10 * time.Minute

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter hands out one rate.Limiter per client IP. Idle visitors are dropped
// lazily while handling requests, so no goroutine is needed.
type Limiter struct {
	mu        sync.Mutex
	visitors  map[string]*visitor
	rps       rate.Limit
	burst     int
	idleTTL   time.Duration
	lastSweep time.Time
	now       func() time.Time
}

type Option func(*Limiter)

// WithIdleTTL sets how long a visitor is kept after its last request.
func WithIdleTTL(ttl time.Duration) Option {
	return func(l *Limiter) {
		if ttl > 0 {
			l.idleTTL = ttl
		}
	}
}

func New(rps float64, burst int, opts ...Option) *Limiter {
	if burst < 1 {
		burst = 1
	}

	l := &Limiter{
		visitors: make(map[string]*visitor),
		rps:      rate.Limit(rps),
		burst:    burst,
		idleTTL:  defaultIdleTTL,
		now:      time.Now,
	}

	for _, opt := range opts {
		opt(l)
	}

	l.lastSweep = l.now()

	return l
}

// Allow reports whether a request from ip may proceed now.
func (l *Limiter) Allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()

	if now.Sub(l.lastSweep) > l.idleTTL {
		for k, v := range l.visitors {
			if now.Sub(v.lastSeen) > l.idleTTL {
				delete(l.visitors, k)
			}
		}
		l.lastSweep = now
	}

	v, ok := l.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.rps, l.burst)}
		l.visitors[ip] = v
	}
	v.lastSeen = now

	return v.limiter.AllowN(now, 1)
}

// Handler rejects requests over the limit with 429 Too Many Requests.
// The client IP is the host part of RemoteAddr. A proxy-header rewrite such as
// middleware.RealIP makes that value client-controlled.
func (l *Limiter) Handler() middleware.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !l.Allow(clientIP(r)) {
				w.Header().Set("Retry-After", strconv.Itoa(l.retryAfter()))
				render.Status(r, http.StatusTooManyRequests)
				render.PlainText(w, r, "Too many requests, please try again later.")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func (l *Limiter) retryAfter() int {
	if l.rps <= 0 {
		return 1
	}
	secs := int(1 / float64(l.rps))
	if secs < 1 {
		secs = 1
	}
	return secs
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
