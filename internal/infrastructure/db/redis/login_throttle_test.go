package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func setupThrottleTest(t *testing.T, maxAttempts int, window time.Duration) (*LoginThrottle, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewLoginThrottle(client, maxAttempts, window), mr
}

func TestLoginThrottle_AllowsWithinBudget(t *testing.T) {
	throttle, _ := setupThrottleTest(t, 3, time.Minute)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		allowed, err := throttle.Allow(ctx, "ana@example.com")
		if err != nil {
			t.Fatalf("Allow attempt %d: %v", i, err)
		}
		if !allowed {
			t.Fatalf("attempt %d should be within budget", i)
		}
	}

	allowed, err := throttle.Allow(ctx, "ana@example.com")
	if err != nil {
		t.Fatalf("Allow: %v", err)
	}
	if allowed {
		t.Fatalf("attempt 4 of 3 should be rejected")
	}
}

func TestLoginThrottle_CountersArePerEmail(t *testing.T) {
	throttle, _ := setupThrottleTest(t, 1, time.Minute)
	ctx := context.Background()

	if allowed, _ := throttle.Allow(ctx, "ana@example.com"); !allowed {
		t.Fatalf("first attempt for ana should pass")
	}
	if allowed, _ := throttle.Allow(ctx, "ana@example.com"); allowed {
		t.Fatalf("second attempt for ana should be rejected")
	}
	if allowed, _ := throttle.Allow(ctx, "bob@example.com"); !allowed {
		t.Fatalf("bob's budget must not be affected by ana's attempts")
	}
}

func TestLoginThrottle_ResetClearsCounter(t *testing.T) {
	throttle, _ := setupThrottleTest(t, 1, time.Minute)
	ctx := context.Background()

	if _, err := throttle.Allow(ctx, "ana@example.com"); err != nil {
		t.Fatalf("Allow: %v", err)
	}
	if allowed, _ := throttle.Allow(ctx, "ana@example.com"); allowed {
		t.Fatalf("budget should be exhausted")
	}

	if err := throttle.Reset(ctx, "ana@example.com"); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if allowed, _ := throttle.Allow(ctx, "ana@example.com"); !allowed {
		t.Fatalf("budget should be restored after reset")
	}
}

func TestLoginThrottle_WindowExpires(t *testing.T) {
	throttle, mr := setupThrottleTest(t, 1, time.Minute)
	ctx := context.Background()

	if _, err := throttle.Allow(ctx, "ana@example.com"); err != nil {
		t.Fatalf("Allow: %v", err)
	}
	if allowed, _ := throttle.Allow(ctx, "ana@example.com"); allowed {
		t.Fatalf("budget should be exhausted")
	}

	// A quiet account unlocks itself when the window passes.
	mr.FastForward(time.Minute + time.Second)

	if allowed, _ := throttle.Allow(ctx, "ana@example.com"); !allowed {
		t.Fatalf("budget should reset after the window expires")
	}
}

func TestLoginThrottle_BackendDownSurfacesError(t *testing.T) {
	throttle, mr := setupThrottleTest(t, 3, time.Minute)
	mr.Close()

	if _, err := throttle.Allow(context.Background(), "ana@example.com"); err == nil {
		t.Fatalf("expected error when redis is unreachable")
	}
}
