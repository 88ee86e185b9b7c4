package cache

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// redisClient connects to TEST_REDIS_URL, skipping the test when it is unset.
func redisClient(t *testing.T) *redis.Client {
	t.Helper()
	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		t.Skip("TEST_REDIS_URL not set")
	}
	opt, err := redis.ParseURL(url)
	require.NoError(t, err)

	client := redis.NewClient(opt)
	require.NoError(t, client.Ping(context.Background()).Err())
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRedisCache_RoundTrip(t *testing.T) {
	client := redisClient(t)
	ctx := context.Background()
	cacheService := NewRedisCache(client, discardLogger())

	type payload struct {
		Name string `json:"name"`
	}
	require.NoError(t, cacheService.Set(ctx, "quiz-engine:test:a", payload{Name: "x"}, time.Minute))

	var got payload
	require.NoError(t, cacheService.Get(ctx, "quiz-engine:test:a", &got))
	assert.Equal(t, "x", got.Name)

	require.NoError(t, cacheService.DeletePattern(ctx, "quiz-engine:test:*"))
	assert.ErrorIs(t, cacheService.Get(ctx, "quiz-engine:test:a", &got), ErrCacheMiss)
}

func TestRedisLocker_MutualExclusion(t *testing.T) {
	client := redisClient(t)
	locker := NewRedisLocker(client, 2*time.Second, discardLogger())
	ctx := context.Background()

	var mu sync.Mutex
	inside, maxInside := 0, 0
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := locker.Lock(ctx, "attempt:test")
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			inside++
			if inside > maxInside {
				maxInside = inside
			}
			mu.Unlock()

			time.Sleep(10 * time.Millisecond)

			mu.Lock()
			inside--
			mu.Unlock()
			unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxInside)
}
