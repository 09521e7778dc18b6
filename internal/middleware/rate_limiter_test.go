package middleware

import (
	"testing"
	"time"
)

func TestIPRateLimiterEnforcesBurst(t *testing.T) {
	// One request per hour with a burst of 2: the third immediate attempt
	// must be rejected.
	limiter := NewIPRateLimiter(1, time.Hour, 2, time.Hour)

	if !limiter.Allow("10.0.0.1") {
		t.Fatal("first request must be allowed")
	}
	if !limiter.Allow("10.0.0.1") {
		t.Fatal("second request must be allowed within burst")
	}
	if limiter.Allow("10.0.0.1") {
		t.Fatal("third request must be rejected")
	}
}

func TestIPRateLimiterIsolatesKeys(t *testing.T) {
	limiter := NewIPRateLimiter(1, time.Hour, 1, time.Hour)

	if !limiter.Allow("login:10.0.0.1") {
		t.Fatal("first key must be allowed")
	}
	if limiter.Allow("login:10.0.0.1") {
		t.Fatal("first key must be drained")
	}
	if !limiter.Allow("login:10.0.0.2") {
		t.Fatal("a different key must not share the drained bucket")
	}
	if !limiter.Allow("refresh:10.0.0.1") {
		t.Fatal("a different scope for the same address must not share the bucket")
	}
}

func TestIPRateLimiterSweepsIdleBuckets(t *testing.T) {
	current := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	limiter := NewIPRateLimiter(1, time.Hour, 1, time.Minute)
	limiter.WithNowFunc(func() time.Time { return current })

	if !limiter.Allow("10.0.0.1") {
		t.Fatal("first request must be allowed")
	}
	if limiter.Allow("10.0.0.1") {
		t.Fatal("bucket must be drained")
	}

	// After the ttl elapses the idle bucket is swept, so the key starts a
	// fresh bucket with full burst.
	current = current.Add(2 * time.Minute)
	if !limiter.Allow("10.0.0.1") {
		t.Fatal("request must be allowed after the idle bucket is swept")
	}
}

func TestIPRateLimiterNormalizesBlankKey(t *testing.T) {
	limiter := NewIPRateLimiter(1, time.Hour, 1, time.Hour)

	if !limiter.Allow("") {
		t.Fatal("blank key must be allowed once")
	}
	if limiter.Allow("") {
		t.Fatal("blank keys must share one bucket")
	}
}
