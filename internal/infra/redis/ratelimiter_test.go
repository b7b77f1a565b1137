package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
)

func TestRedisRateLimiterAllow(t *testing.T) {
	t.Parallel()

	rdb := newTestRedisClient(t)

	now := time.Unix(1_700_000_000, 0)
	limiter, err := newRedisRateLimiter(rdb, 2, time.Minute, func() time.Time { return now })
	if err != nil {
		t.Fatalf("newRedisRateLimiter() error = %v", err)
	}

	for i := 1; i <= 2; i++ {
		allowed, err := limiter.Allow(context.Background(), "ops@x.com")
		if err != nil {
			t.Fatalf("Allow() error = %v", err)
		}
		if !allowed {
			t.Fatalf("call %d should be allowed", i)
		}
	}

	allowed, err := limiter.Allow(context.Background(), "ops@x.com")
	if err != nil {
		t.Fatalf("Allow() error = %v", err)
	}
	if allowed {
		t.Fatal("third call should be rejected by rate limit")
	}

	now = now.Add(time.Minute)
	allowed, err = limiter.Allow(context.Background(), "ops@x.com")
	if err != nil {
		t.Fatalf("Allow() error = %v", err)
	}
	if !allowed {
		t.Fatal("next window should allow call")
	}
}

func TestRedisRateLimiterAllowPerRecipient(t *testing.T) {
	t.Parallel()

	rdb := newTestRedisClient(t)

	now := time.Unix(1_700_000_100, 0)
	limiter, err := newRedisRateLimiter(rdb, 1, time.Minute, func() time.Time { return now })
	if err != nil {
		t.Fatalf("newRedisRateLimiter() error = %v", err)
	}

	allowed, err := limiter.Allow(context.Background(), "ops@x.com")
	if err != nil || !allowed {
		t.Fatalf("Allow(ops) = %v, %v; want true, nil", allowed, err)
	}

	allowed, err = limiter.Allow(context.Background(), "dev@x.com")
	if err != nil || !allowed {
		t.Fatalf("Allow(dev) = %v, %v; want true, nil", allowed, err)
	}

	allowed, err = limiter.Allow(context.Background(), " OPS@x.com ")
	if err != nil {
		t.Fatalf("Allow(ops) error = %v", err)
	}
	if allowed {
		t.Fatal("recipient keys must be case-insensitive")
	}
}

func TestRedisRateLimiterRejectsBlankRecipient(t *testing.T) {
	t.Parallel()

	limiter, err := newRedisRateLimiter(newTestRedisClient(t), 1, time.Minute, nil)
	if err != nil {
		t.Fatalf("newRedisRateLimiter() error = %v", err)
	}
	if _, err := limiter.Allow(context.Background(), "  "); err == nil {
		t.Fatal("expected error for blank recipient")
	}
}

func TestRedisRateLimiterRedisDown(t *testing.T) {
	t.Parallel()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run() error = %v", err)
	}
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })
	mr.Close()

	limiter, err := NewRedisRateLimiter(rdb, 1, time.Minute)
	if err != nil {
		t.Fatalf("NewRedisRateLimiter() error = %v", err)
	}
	if _, err := limiter.Allow(context.Background(), "ops@x.com"); err == nil {
		t.Fatal("expected error when redis is unreachable")
	}
}

func TestNewRedisRateLimiterRequiresClient(t *testing.T) {
	t.Parallel()

	if _, err := NewRedisRateLimiter(nil, 1, time.Minute); err == nil {
		t.Fatal("expected error for nil client")
	}
}

func newTestRedisClient(t *testing.T) *goredis.Client {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run() error = %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := goredis.NewClient(&goredis.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() {
		_ = rdb.Close()
	})

	return rdb
}

func TestNewRedis(t *testing.T) {
	t.Parallel()

	client, err := NewRedis(context.Background(), "")
	if err != nil || client != nil {
		t.Fatalf("NewRedis(\"\") = %v, %v; want nil, nil", client, err)
	}

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run() error = %v", err)
	}
	t.Cleanup(mr.Close)

	client, err = NewRedis(context.Background(), "redis://"+mr.Addr())
	if err != nil {
		t.Fatalf("NewRedis() error = %v", err)
	}
	_ = client.Close()

	if _, err := NewRedis(context.Background(), "://bad"); err == nil {
		t.Fatal("expected parse error")
	}
}
