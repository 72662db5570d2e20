package middleware

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"
)

const idleBucketTTL = 10 * time.Minute

// ConnLimiter throttles connection attempts per client host with a token
// bucket. It guards the WebSocket upgrade endpoint against reconnect storms.
type ConnLimiter struct {
	buckets sync.Map // host -> *bucket
	stop    chan struct{}
	once    sync.Once
	now     func() time.Time
}

type bucket struct {
	mu         sync.Mutex
	tokens     float64
	maxTokens  float64
	refillRate float64 // tokens per second
	lastRefill time.Time
}

// NewConnLimiter starts a limiter that forgets idle hosts every
// cleanupInterval. Call Stop on shutdown.
func NewConnLimiter(cleanupInterval time.Duration) *ConnLimiter {
	l := &ConnLimiter{stop: make(chan struct{}), now: time.Now}
	go l.cleanup(cleanupInterval)
	return l
}

// Stop terminates the cleanup goroutine. Safe to call more than once.
func (l *ConnLimiter) Stop() {
	l.once.Do(func() { close(l.stop) })
}

// Limit allows up to perMinute attempts per host. A non-positive value
// disables limiting.
func (l *ConnLimiter) Limit(perMinute int) Middleware {
	return func(next http.Handler) http.Handler {
		if perMinute <= 0 {
			return next
		}
		retryAfter := strconv.Itoa(60/perMinute + 1)

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !l.bucketFor(clientHost(r), perMinute).take(l.now()) {
				w.Header().Set("Retry-After", retryAfter)
				writeError(w, http.StatusTooManyRequests, "too many connection attempts")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (l *ConnLimiter) bucketFor(host string, perMinute int) *bucket {
	capacity := float64(perMinute)
	val, _ := l.buckets.LoadOrStore(host, &bucket{
		tokens:     capacity,
		maxTokens:  capacity,
		refillRate: capacity / 60,
		lastRefill: l.now(),
	})
	return val.(*bucket)
}

func (b *bucket) take(now time.Time) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.tokens += now.Sub(b.lastRefill).Seconds() * b.refillRate
	if b.tokens > b.maxTokens {
		b.tokens = b.maxTokens
	}
	b.lastRefill = now

	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

func (l *ConnLimiter) cleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
			now := l.now()
			l.buckets.Range(func(key, value any) bool {
				b := value.(*bucket)
				b.mu.Lock()
				idle := now.Sub(b.lastRefill)
				b.mu.Unlock()
				if idle > idleBucketTTL {
					l.buckets.Delete(key)
				}
				return true
			})
		}
	}
}

func clientHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
