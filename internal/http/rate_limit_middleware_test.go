package httpx

import (
	"testing"
	"time"

	redis "github.com/redis/go-redis/v9"
)

func TestMemoryRateLimiterWindow(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	rl := &memoryRateLimiter{
		entries: make(map[string]rateState),
		stopCh:  make(chan struct{}),
		now:     func() time.Time { return now },
	}
	defer rl.Close()

	for i := 1; i <= 3; i++ {
		d := rl.Allow("ip:1.2.3.4", 3, time.Minute)
		if !d.Allowed || d.Count != i {
			t.Fatalf("hit %d: unexpected decision %+v", i, d)
		}
	}
	if d := rl.Allow("ip:1.2.3.4", 3, time.Minute); d.Allowed {
		t.Fatalf("expected fourth hit to be rejected, got %+v", d)
	}
	if d := rl.Allow("ip:5.6.7.8", 3, time.Minute); !d.Allowed {
		t.Fatal("expected other keys to be independent")
	}

	now = now.Add(time.Minute + time.Second)
	if d := rl.Allow("ip:1.2.3.4", 3, time.Minute); !d.Allowed || d.Count != 1 {
		t.Fatalf("expected new window, got %+v", d)
	}

	rl.cleanup(now.Add(2 * time.Minute))
	if len(rl.entries) != 0 {
		t.Fatalf("expected expired entries to be swept, got %d", len(rl.entries))
	}
}

func TestMemoryRateLimiterUnlimited(t *testing.T) {
	rl := NewMemoryRateLimiter()
	defer rl.Close()
	if d := rl.Allow("k", 0, time.Minute); !d.Allowed {
		t.Fatal("expected zero limit to allow everything")
	}
}

func TestRedisRateLimiterFailsOpen(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1})
	rl := newRedisRateLimiter(client, newLogger())
	defer rl.Close()
	if d := rl.Allow("ip:1.2.3.4", 1, time.Minute); !d.Allowed {
		t.Fatalf("expected unreachable redis to allow requests, got %+v", d)
	}
}

func TestRateMetricKey(t *testing.T) {
	if got := rateMetricKey("ip:1.2.3.4"); got != "ip" {
		t.Fatalf("unexpected key %q", got)
	}
	if got := rateMetricKey(""); got != "unknown" {
		t.Fatalf("unexpected key %q", got)
	}
}
