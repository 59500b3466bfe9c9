package workerpool

import (
	"math/rand"
	"net/http"
	"strings"
	"time"
)

// RetryPolicy is the standard retry policy workers apply to their own
// external calls (not the pool itself, which never retries a worker).
type RetryPolicy struct {
	MaxAttempts int // including the initial attempt
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Jitter      time.Duration
}

// DefaultRetryPolicy matches the heavier providers: up to 3 retries, 1s
// base, 16s cap, +-750ms jitter.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 4, BaseDelay: time.Second, MaxDelay: 16 * time.Second, Jitter: 750 * time.Millisecond}
}

// LightRetryPolicy matches lighter providers with a lower delay cap (8s).
func LightRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 4, BaseDelay: time.Second, MaxDelay: 8 * time.Second, Jitter: 500 * time.Millisecond}
}

// ComputeBackoff returns the delay before retry attempt `attempt` (0-based,
// 0 = delay before the first retry): base*2^attempt capped at maxDelay,
// plus a random additive jitter in [-jitter, +jitter].
func ComputeBackoff(attempt int, base, maxDelay, jitter time.Duration, rng *rand.Rand) time.Duration {
	delay := base * time.Duration(uint64(1)<<uint(attempt))
	if delay > maxDelay {
		delay = maxDelay
	}
	if jitter <= 0 {
		return delay
	}

	var signedJitter time.Duration
	if rng != nil {
		signedJitter = time.Duration(rng.Int63n(int64(2*jitter))) - jitter
	} else {
		signedJitter = time.Duration(rand.Int63n(int64(2*jitter))) - jitter // #nosec G404 -- retry timing jitter, not security
	}

	d := delay + signedJitter
	if d < 0 {
		d = 0
	}
	return d
}

// IsRetryableHTTPStatus reports whether an HTTP status code should be
// retried: 429 and 500/502/503/504. Other 4xx codes are not retryable.
func IsRetryableHTTPStatus(status int) bool {
	switch status {
	case http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

// IsRetryableNetworkError reports whether err's message indicates a
// transient network condition (connection reset/refused, timeout).
func IsRetryableNetworkError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, needle := range []string{"connection reset", "connection refused", "network", "timeout", "i/o timeout"} {
		if strings.Contains(msg, needle) {
			return true
		}
	}
	return false
}
