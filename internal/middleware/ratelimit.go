package middleware

import (
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// RateLimits - запросов в минуту на IP. Клиенты доски опрашивают её
// несколькими GET за цикл, и за одним офисным NAT их много, поэтому
// чтение доски считается отдельно от изменений. Значение <= 0 снимает лимит.
type RateLimits struct {
	Writes int
	Polls  int
}

// pollPaths - чтения, которые делает каждый цикл опроса клиента
var pollPaths = map[string]bool{
	"/health":     true,
	"/api/groups": true,
	"/api/users":  true,
	"/api/logs":   true,
}

func isPoll(r *http.Request) bool {
	return (r.Method == http.MethodGet || r.Method == http.MethodHead) && pollPaths[r.URL.Path]
}

type window struct {
	count   int
	resetAt time.Time
}

// limiter - фиксированное окно на ключ. Истёкшие окна удаляются не реже
// раза за период, поэтому карта не растёт от разовых адресов.
type limiter struct {
	mu        sync.Mutex
	rpm       int
	period    time.Duration
	clients   map[string]*window
	lastSweep time.Time
}

func newLimiter(rpm int, period time.Duration) *limiter {
	return &limiter{rpm: rpm, period: period, clients: make(map[string]*window)}
}

// allow возвращает остаток и конец окна; ok=false - лимит исчерпан
func (l *limiter) allow(key string, now time.Time) (remaining int, resetAt time.Time, ok bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastSweep) >= l.period {
		l.sweep(now)
	}

	w, exists := l.clients[key]
	if !exists || now.After(w.resetAt) {
		w = &window{resetAt: now.Add(l.period)}
		l.clients[key] = w
	}
	if w.count >= l.rpm {
		return 0, w.resetAt, false
	}
	w.count++
	return l.rpm - w.count, w.resetAt, true
}

func (l *limiter) sweep(now time.Time) {
	for key, w := range l.clients {
		if now.After(w.resetAt) {
			delete(l.clients, key)
		}
	}
	l.lastSweep = now
}

func (l *limiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}

type rateLimiter struct {
	writes *limiter
	polls  *limiter
	now    func() time.Time
}

func newRateLimiter(limits RateLimits, now func() time.Time) *rateLimiter {
	rl := &rateLimiter{now: now}
	if limits.Writes > 0 {
		rl.writes = newLimiter(limits.Writes, time.Minute)
	}
	if limits.Polls > 0 {
		rl.polls = newLimiter(limits.Polls, time.Minute)
	}
	return rl
}

func RateLimit(limits RateLimits) func(http.Handler) http.Handler {
	return newRateLimiter(limits, time.Now).middleware
}

func (rl *rateLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		l, budget := rl.writes, "writes"
		if isPoll(r) {
			l, budget = rl.polls, "polls"
		}
		if l == nil {
			next.ServeHTTP(w, r)
			return
		}

		now := rl.now()
		remaining, resetAt, ok := l.allow(clientIP(r), now)
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(l.rpm))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))
		if !ok {
			retryAfter := max(int(resetAt.Sub(now).Seconds()), 1)
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"error":       "RATE_LIMITED",
				"message":     "Слишком много запросов. Попробуйте позже.",
				"budget":      budget,
				"retry_after": retryAfter,
				"request_id":  GetRequestID(r.Context()),
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
