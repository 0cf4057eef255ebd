package auth

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

const rateLimitWindow = 1 * time.Minute

// RateLimiter tracks failed API key attempts per client address.
type RateLimiter struct {
	mu       sync.Mutex
	attempts map[string][]time.Time
	maxFail  int
	now      func() time.Time
}

// NewRateLimiter allows maxFail failed attempts per client per minute.
func NewRateLimiter(maxFail int) *RateLimiter {
	return &RateLimiter{
		attempts: make(map[string][]time.Time),
		maxFail:  maxFail,
		now:      time.Now,
	}
}

// prune drops attempts outside the window. Callers hold mu.
func (rl *RateLimiter) prune(client string) []time.Time {
	cutoff := rl.now().Add(-rateLimitWindow)
	valid := rl.attempts[client][:0]
	for _, t := range rl.attempts[client] {
		if t.After(cutoff) {
			valid = append(valid, t)
		}
	}
	if len(valid) == 0 {
		delete(rl.attempts, client)
		return nil
	}
	rl.attempts[client] = valid
	return valid
}

// Blocked reports whether the client has used up its failures for the window.
func (rl *RateLimiter) Blocked(client string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.prune(client)) >= rl.maxFail
}

// RecordFailure records a failed attempt.
func (rl *RateLimiter) RecordFailure(client string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.attempts[client] = append(rl.prune(client), rl.now())
}

type contextKey struct{}

// KeyName returns the name of the API key that authenticated the request.
func KeyName(ctx context.Context) string {
	name, _ := ctx.Value(contextKey{}).(string)
	return name
}

// WithKeyName returns a context carrying an API key name.
func WithKeyName(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, contextKey{}, name)
}

// RequireAPIKey returns middleware that validates Bearer token auth.
// Responds 401 for missing/invalid keys and 429 once a client has
// exceeded its failed attempts.
func RequireAPIKey(keys *APIKeyStore, limiter *RateLimiter, logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			client := clientAddr(r)

			if limiter.Blocked(client) {
				writeError(w, http.StatusTooManyRequests, "too many requests")
				return
			}

			key, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || key == "" {
				writeError(w, http.StatusUnauthorized, "authorization required")
				return
			}

			name, err := keys.Validate(key)
			if err != nil {
				logger.Error("validating api key", "error", err)
				writeError(w, http.StatusInternalServerError, "internal error")
				return
			}
			if name == "" {
				limiter.RecordFailure(client)
				logger.Warn("invalid api key", "client", client)
				writeError(w, http.StatusUnauthorized, "invalid API key")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithKeyName(r.Context(), name)))
		})
	}
}

func clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
