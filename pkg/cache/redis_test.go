package cache

import (
	"context"
	"os"
	"testing"
	"time"
)

// redisAddr returns the address of a live Redis for integration tests.
func redisAddr(t *testing.T) string {
	t.Helper()
	addr := os.Getenv("WATERFALL_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("WATERFALL_TEST_REDIS_ADDR not set")
	}
	return addr
}

func TestNewRedisCacheRequiresAddr(t *testing.T) {
	if _, err := NewRedisCache(context.Background(), RedisConfig{}); err == nil {
		t.Error("empty address should fail")
	}
}

func TestRedisCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	c, err := NewRedisCache(ctx, RedisConfig{Addr: redisAddr(t), Prefix: "waterfall-test:"})
	if err != nil {
		t.Fatalf("NewRedisCache: %v", err)
	}
	defer c.Close()

	key := "layout:" + time.Now().Format(time.RFC3339Nano)
	defer c.Delete(ctx, key)

	if _, hit, err := c.Get(ctx, key); hit || err != nil {
		t.Fatalf("fresh key: hit %v err %v", hit, err)
	}
	if err := c.Set(ctx, key, []byte("payload"), time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	data, hit, err := c.Get(ctx, key)
	if err != nil || !hit || string(data) != "payload" {
		t.Fatalf("Get = %q hit %v err %v", data, hit, err)
	}
	if err := c.Delete(ctx, key); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, hit, _ := c.Get(ctx, key); hit {
		t.Error("deleted key should miss")
	}
}
