//go:build integration

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

func setupRedisContainer(t *testing.T) *RedisRepository {
	t.Helper()
	ctx := context.Background()

	container, err := tcredis.Run(ctx, "redis:7-alpine")
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: endpoint})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisRepositoryWithClient(client)
}

// 真实Redis中集合参与ZINTERSTORE时分值按1计算
func TestIntegration_IntersectWithSet(t *testing.T) {
	repo := setupRedisContainer(t)
	ctx := context.Background()

	require.NoError(t, repo.SortedMapSet(ctx, "score:", "article:1", 1432))
	require.NoError(t, repo.SortedMapSet(ctx, "score:", "article:2", 1500))
	_, err := repo.SetInsert(ctx, "group:go", "article:1")
	require.NoError(t, err)

	n, err := repo.SortedMapIntersectStore(ctx, "score:go", AggregateMax, "group:go", "score:")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	score, ok, err := repo.SortedMapScore(ctx, "score:go", "article:1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1432.0, score)

	require.NoError(t, repo.Expire(ctx, "score:go", time.Second))
	assert.Eventually(t, func() bool {
		exists, err := repo.KeyExists(ctx, "score:go")
		return err == nil && !exists
	}, 5*time.Second, 100*time.Millisecond)
}
