package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	redisClient "llmontreal/internal/platform/redis"
)

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	client, err := redisClient.New(context.Background(), redisClient.Options{Addr: addr})
	require.NoError(t, err)

	prefix := "llmontreal-test-" + time.Now().Format("150405.000000")
	s := NewRedisStore(client, prefix, time.Minute)
	defer s.Close()
	defer s.Delete(context.Background(), KeyAuthToken, KeyTheme, KeyCurrentUser)

	exerciseStore(t, s)

	ttl, err := client.TTL(context.Background(), prefix+":state:"+KeyTheme).Result()
	require.NoError(t, err)
	require.Greater(t, ttl, time.Duration(0))
}

func TestRedisUnreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := redisClient.New(ctx, redisClient.Options{Addr: "127.0.0.1:1"})
	require.Error(t, err)
}
