package rate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestLimiter(t *testing.T, cfg Config) (*Limiter, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return New(client, cfg), mr
}

func TestLoginBudget(t *testing.T) {
	limiter, _ := newTestLimiter(t, Config{
		MaxLoginAttempts:      3,
		LoginCooldownDuration: time.Minute,
	})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := limiter.CheckLogin(ctx, "alice", ""); err != nil {
			t.Fatalf("check %d: %v", i, err)
		}
		if err := limiter.IncrementLogin(ctx, "alice", ""); err != nil && !errors.Is(err, ErrRateLimited) {
			t.Fatalf("increment %d: %v", i, err)
		}
	}

	if err := limiter.CheckLogin(ctx, "alice", ""); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}

	// Other identifiers are unaffected.
	if err := limiter.CheckLogin(ctx, "bob", ""); err != nil {
		t.Fatalf("unrelated identifier throttled: %v", err)
	}
}

func TestWindowExpiry(t *testing.T) {
	limiter, mr := newTestLimiter(t, Config{
		MaxLoginAttempts:      1,
		LoginCooldownDuration: time.Minute,
	})
	ctx := context.Background()

	if err := limiter.IncrementLogin(ctx, "alice", ""); err != nil && !errors.Is(err, ErrRateLimited) {
		t.Fatalf("increment: %v", err)
	}
	if err := limiter.CheckLogin(ctx, "alice", ""); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}

	mr.FastForward(2 * time.Minute)

	if err := limiter.CheckLogin(ctx, "alice", ""); err != nil {
		t.Fatalf("expected budget restored after window, got %v", err)
	}
}

func TestResetLogin(t *testing.T) {
	limiter, _ := newTestLimiter(t, Config{
		MaxLoginAttempts:      1,
		LoginCooldownDuration: time.Minute,
	})
	ctx := context.Background()

	if err := limiter.IncrementLogin(ctx, "alice", ""); err != nil && !errors.Is(err, ErrRateLimited) {
		t.Fatalf("increment: %v", err)
	}
	if err := limiter.ResetLogin(ctx, "alice", ""); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if err := limiter.CheckLogin(ctx, "alice", ""); err != nil {
		t.Fatalf("expected budget restored after reset, got %v", err)
	}
}

func TestIPThrottle(t *testing.T) {
	limiter, _ := newTestLimiter(t, Config{
		EnableIPThrottle:      true,
		MaxLoginAttempts:      2,
		LoginCooldownDuration: time.Minute,
	})
	ctx := context.Background()

	// Same IP hammering different identifiers still exhausts the IP budget.
	for i := 0; i < 2; i++ {
		if err := limiter.IncrementLogin(ctx, "victim-a", "10.0.0.1"); err != nil && !errors.Is(err, ErrRateLimited) {
			t.Fatalf("increment %d: %v", i, err)
		}
	}

	if err := limiter.CheckLogin(ctx, "victim-b", "10.0.0.1"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected IP rate limit, got %v", err)
	}
	if err := limiter.CheckLogin(ctx, "victim-b", "10.0.0.2"); err != nil {
		t.Fatalf("other IP throttled: %v", err)
	}
}

func TestLoginAttempts(t *testing.T) {
	limiter, _ := newTestLimiter(t, Config{
		MaxLoginAttempts:      5,
		LoginCooldownDuration: time.Minute,
	})
	ctx := context.Background()

	n, err := limiter.LoginAttempts(ctx, "alice")
	if err != nil {
		t.Fatalf("LoginAttempts: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected 0 attempts, got %d", n)
	}

	_ = limiter.IncrementLogin(ctx, "alice", "")
	_ = limiter.IncrementLogin(ctx, "alice", "")

	n, err = limiter.LoginAttempts(ctx, "alice")
	if err != nil {
		t.Fatalf("LoginAttempts: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 attempts, got %d", n)
	}
}
