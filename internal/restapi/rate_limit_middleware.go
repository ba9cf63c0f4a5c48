package restapi

import (
	"encoding/json"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
	"timetable.intermodal.org/internal/clock"
	"timetable.intermodal.org/internal/models"
)

const (
	anonymousClient   = "__no_key__"
	limiterIdleExpiry = 10 * time.Minute
	limiterSweepEvery = 5 * time.Minute
)

type rateLimitClient struct {
	limiter  *rate.Limiter
	lastSeen atomic.Int64 // unix nanoseconds
}

// RateLimitMiddleware limits requests per API key. Requests without a key
// share one bucket.
type RateLimitMiddleware struct {
	limiters   map[string]*rateLimitClient
	mu         sync.RWMutex
	rateLimit  rate.Limit
	burstSize  int
	sweep      *time.Ticker
	exemptKeys map[string]bool
	stopChan   chan struct{}
	stopOnce   sync.Once
	clock      clock.Clock
}

// NewRateLimitMiddleware allows perInterval requests per interval for each
// key. A negative perInterval disables limiting; zero rejects everything.
func NewRateLimitMiddleware(perInterval int, interval time.Duration, exemptKeys []string, c clock.Clock) *RateLimitMiddleware {
	var limit rate.Limit
	switch {
	case perInterval < 0:
		limit = rate.Inf
	case perInterval == 0:
		limit = 0
	default:
		limit = rate.Every(interval / time.Duration(perInterval))
	}

	exempt := make(map[string]bool)
	for _, key := range exemptKeys {
		if k := strings.TrimSpace(key); k != "" {
			exempt[k] = true
		}
	}

	rl := &RateLimitMiddleware{
		limiters:   make(map[string]*rateLimitClient),
		rateLimit:  limit,
		burstSize:  max(perInterval, 0),
		sweep:      time.NewTicker(limiterSweepEvery),
		exemptKeys: exempt,
		stopChan:   make(chan struct{}),
		clock:      c,
	}
	go rl.cleanup()
	return rl
}

func (rl *RateLimitMiddleware) Handler() func(http.Handler) http.Handler {
	return rl.rateLimitHandler
}

func (rl *RateLimitMiddleware) getLimiter(apiKey string) *rate.Limiter {
	now := rl.clock.Now().UnixNano()

	rl.mu.RLock()
	if client, ok := rl.limiters[apiKey]; ok {
		client.lastSeen.Store(now)
		rl.mu.RUnlock()
		return client.limiter
	}
	rl.mu.RUnlock()

	rl.mu.Lock()
	defer rl.mu.Unlock()
	if client, ok := rl.limiters[apiKey]; ok {
		client.lastSeen.Store(now)
		return client.limiter
	}
	client := &rateLimitClient{limiter: rate.NewLimiter(rl.rateLimit, rl.burstSize)}
	client.lastSeen.Store(now)
	rl.limiters[apiKey] = client
	return client.limiter
}

func (rl *RateLimitMiddleware) rateLimitHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apiKey := r.URL.Query().Get("key")
		if apiKey == "" {
			apiKey = anonymousClient
		}
		if rl.exemptKeys[apiKey] {
			next.ServeHTTP(w, r)
			return
		}
		if !rl.getLimiter(apiKey).AllowN(rl.clock.Now(), 1) {
			rl.sendRateLimitExceeded(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (rl *RateLimitMiddleware) retryAfter() time.Duration {
	switch rl.rateLimit {
	case 0:
		return time.Hour
	case rate.Inf:
		return time.Second
	}
	return time.Duration(math.Ceil(float64(time.Second) / float64(rl.rateLimit)))
}

func (rl *RateLimitMiddleware) sendRateLimitExceeded(w http.ResponseWriter) {
	seconds := max(int(math.Ceil(rl.retryAfter().Seconds())), 1)

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Retry-After", strconv.Itoa(seconds))
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.burstSize))
	w.Header().Set("X-RateLimit-Remaining", "0")
	w.WriteHeader(http.StatusTooManyRequests)

	response := models.ResponseModel{
		Code:        http.StatusTooManyRequests,
		CurrentTime: models.ResponseCurrentTime(rl.clock),
		Text:        "rate limit exceeded",
		Version:     models.ResponseVersion,
	}
	if err := json.NewEncoder(w).Encode(response); err != nil {
		slog.Error("failed to encode rate limit response", "error", err)
	}
}

// cleanupOnce evicts limiters idle for longer than limiterIdleExpiry.
func (rl *RateLimitMiddleware) cleanupOnce() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.clock.Now().Add(-limiterIdleExpiry).UnixNano()
	for key, client := range rl.limiters {
		if rl.exemptKeys[key] {
			continue
		}
		if seen := client.lastSeen.Load(); seen != 0 && seen < cutoff {
			delete(rl.limiters, key)
		}
	}
}

func (rl *RateLimitMiddleware) cleanup() {
	for {
		select {
		case <-rl.sweep.C:
			rl.cleanupOnce()
		case <-rl.stopChan:
			return
		}
	}
}

// Stop ends the background sweep. It is safe to call more than once.
func (rl *RateLimitMiddleware) Stop() {
	rl.stopOnce.Do(func() {
		close(rl.stopChan)
		rl.sweep.Stop()
	})
}
