package middleware

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// LoginRateLimiter limits sign-in attempts per client address
type LoginRateLimiter struct {
	attempts    map[string][]time.Time
	mutex       sync.Mutex
	maxAttempts int
	window      time.Duration
	now         func() time.Time
	done        chan struct{}
	stopOnce    sync.Once
}

// NewLoginRateLimiter creates a new login rate limiter
func NewLoginRateLimiter(maxAttempts int, window time.Duration) *LoginRateLimiter {
	rl := newLoginRateLimiter(maxAttempts, window, time.Now)
	go rl.cleanup()
	return rl
}

func newLoginRateLimiter(maxAttempts int, window time.Duration, now func() time.Time) *LoginRateLimiter {
	return &LoginRateLimiter{
		attempts:    make(map[string][]time.Time),
		maxAttempts: maxAttempts,
		window:      window,
		now:         now,
		done:        make(chan struct{}),
	}
}

// IsAllowed checks if a login attempt from the given IP is allowed
func (rl *LoginRateLimiter) IsAllowed(ip string) bool {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	valid := rl.prune(ip)
	return len(valid) < rl.maxAttempts
}

// RecordAttempt records a login attempt for the given IP
func (rl *LoginRateLimiter) RecordAttempt(ip string) {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	rl.attempts[ip] = append(rl.prune(ip), rl.now())
}

// TimeUntilAllowed returns how long the IP must wait before its next attempt
func (rl *LoginRateLimiter) TimeUntilAllowed(ip string) time.Duration {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	valid := rl.prune(ip)
	if len(valid) < rl.maxAttempts {
		return 0
	}
	return valid[len(valid)-rl.maxAttempts].Add(rl.window).Sub(rl.now())
}

// Stop ends the cleanup goroutine
func (rl *LoginRateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.done) })
}

// prune drops attempts outside the window; callers hold the mutex
func (rl *LoginRateLimiter) prune(ip string) []time.Time {
	cutoff := rl.now().Add(-rl.window)

	var valid []time.Time
	for _, attempt := range rl.attempts[ip] {
		if attempt.After(cutoff) {
			valid = append(valid, attempt)
		}
	}

	if len(valid) == 0 {
		delete(rl.attempts, ip)
	} else {
		rl.attempts[ip] = valid
	}
	return valid
}

func (rl *LoginRateLimiter) cleanup() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-rl.done:
			return
		case <-ticker.C:
			rl.mutex.Lock()
			for ip := range rl.attempts {
				rl.prune(ip)
			}
			rl.mutex.Unlock()
		}
	}
}

// LoginRateLimit rejects POST requests once the client has used up its attempts
func LoginRateLimit(rateLimiter *LoginRateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				next.ServeHTTP(w, r)
				return
			}

			ip := getClientIP(r)
			if !rateLimiter.IsAllowed(ip) {
				wait := rateLimiter.TimeUntilAllowed(ip).Round(time.Second)
				w.Header().Set("Retry-After", strconv.Itoa(int(wait.Seconds())))
				writeAlert(w, r, http.StatusTooManyRequests, "Too many login attempts. Please try again in "+wait.String()+".")
				return
			}

			rateLimiter.RecordAttempt(ip)
			next.ServeHTTP(w, r)
		})
	}
}

// getClientIP gets the real client IP address
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
