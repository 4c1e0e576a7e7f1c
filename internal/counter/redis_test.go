package counter

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestStore(t *testing.T) (*miniredis.Miniredis, *Redis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})
	return mr, NewRedis(rdb)
}

func TestRedisGetMissingKeyIsNotAnError(t *testing.T) {
	_, store := newTestStore(t)

	value, ok, err := store.Get(context.Background(), "missing")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if ok || value != "" {
		t.Fatalf("expected absent key, got ok=%v value=%q", ok, value)
	}
}

func TestRedisSetIfAbsentStartsWindow(t *testing.T) {
	mr, store := newTestStore(t)
	ctx := context.Background()

	created, err := store.SetIfAbsentWithTTL(ctx, "k", "1", time.Minute)
	if err != nil || !created {
		t.Fatalf("expected creation, created=%v err=%v", created, err)
	}
	created, err = store.SetIfAbsentWithTTL(ctx, "k", "1", time.Minute)
	if err != nil || created {
		t.Fatalf("expected second set to be rejected, created=%v err=%v", created, err)
	}

	ttl, err := store.TTL(ctx, "k")
	if err != nil {
		t.Fatalf("TTL failed: %v", err)
	}
	if ttl != time.Minute {
		t.Fatalf("expected ttl of one window, got %v", ttl)
	}

	mr.FastForward(time.Minute)
	if _, ok, _ := store.Get(ctx, "k"); ok {
		t.Fatal("expected key to expire with its window")
	}
}

func TestRedisTTLReportsNegativeForAbsentKey(t *testing.T) {
	_, store := newTestStore(t)

	ttl, err := store.TTL(context.Background(), "nope")
	if err != nil {
		t.Fatalf("TTL failed: %v", err)
	}
	if ttl >= 0 {
		t.Fatalf("expected negative ttl, got %v", ttl)
	}
}

func TestRedisConcurrentFirstUseCreatesOneCounter(t *testing.T) {
	_, store := newTestStore(t)
	ctx := context.Background()

	var (
		wg      sync.WaitGroup
		created atomic.Int64
	)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := store.SetIfAbsentWithTTL(ctx, "race", "1", time.Minute)
			if err != nil {
				t.Errorf("SetIfAbsentWithTTL failed: %v", err)
				return
			}
			if ok {
				created.Add(1)
				return
			}
			if _, err := store.Increment(ctx, "race"); err != nil {
				t.Errorf("Increment failed: %v", err)
			}
		}()
	}
	wg.Wait()

	if created.Load() != 1 {
		t.Fatalf("expected exactly one creation, got %d", created.Load())
	}
	value, _, err := store.Get(ctx, "race")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if value != "32" {
		t.Fatalf("expected 32 accounted uses, got %s", value)
	}
}

func TestRedisFailureIsUnavailable(t *testing.T) {
	mr, store := newTestStore(t)
	mr.SetError("ERR simulated outage")
	ctx := context.Background()

	if _, _, err := store.Get(ctx, "k"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("Get: expected ErrUnavailable, got %v", err)
	}
	if _, err := store.SetIfAbsentWithTTL(ctx, "k", "1", time.Second); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("SetIfAbsentWithTTL: expected ErrUnavailable, got %v", err)
	}
	if _, err := store.Increment(ctx, "k"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("Increment: expected ErrUnavailable, got %v", err)
	}
	if _, err := store.TTL(ctx, "k"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("TTL: expected ErrUnavailable, got %v", err)
	}
}

func TestNilRedisStoreIsUnavailable(t *testing.T) {
	var store *Redis
	if _, _, err := store.Get(context.Background(), "k"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}
