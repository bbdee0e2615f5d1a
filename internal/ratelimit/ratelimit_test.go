package ratelimit

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"
)

func TestWindowKey(t *testing.T) {
	l := &Limiter{window: time.Minute}

	base := time.Date(2026, 1, 1, 12, 0, 5, 0, time.UTC)
	k1 := l.windowKey("10.0.0.1", base)
	k2 := l.windowKey("10.0.0.1", base.Add(30*time.Second))
	k3 := l.windowKey("10.0.0.1", base.Add(61*time.Second))
	other := l.windowKey("10.0.0.2", base)

	if !strings.HasPrefix(k1, keyPrefix+"10.0.0.1:") {
		t.Errorf("unexpected key format %q", k1)
	}
	if k1 != k2 {
		t.Errorf("expected same bucket within a window: %q vs %q", k1, k2)
	}
	if k1 == k3 {
		t.Errorf("expected a new bucket after the window rolls over")
	}
	if k1 == other {
		t.Errorf("expected different clients to get different keys")
	}
}

func TestNewValidatesArguments(t *testing.T) {
	if _, err := New("redis://localhost:6379", 0, time.Minute); err == nil {
		t.Error("expected error for zero limit")
	}
	if _, err := New("redis://localhost:6379", 10, 0); err == nil {
		t.Error("expected error for zero window")
	}
	if _, err := New("not a url", 10, time.Minute); err == nil {
		t.Error("expected error for invalid redis URL")
	}
}

// TestAllowAgainstRedis runs only when TEST_REDIS_URL points at a scratch Redis.
func TestAllowAgainstRedis(t *testing.T) {
	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		t.Skip("TEST_REDIS_URL not set")
	}

	l, err := New(url, 2, time.Minute)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer l.Close()

	ctx := context.Background()
	key := "test-" + time.Now().Format(time.RFC3339Nano)

	for i := 0; i < 2; i++ {
		ok, err := l.Allow(ctx, key)
		if err != nil {
			t.Fatalf("Allow failed: %v", err)
		}
		if !ok {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}

	ok, err := l.Allow(ctx, key)
	if err != nil {
		t.Fatalf("Allow failed: %v", err)
	}
	if ok {
		t.Error("third request should be rejected")
	}
}
