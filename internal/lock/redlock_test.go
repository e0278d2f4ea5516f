package lock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newNodes(t *testing.T, n int) []*miniredis.Miniredis {
	t.Helper()
	nodes := make([]*miniredis.Miniredis, n)
	for i := range nodes {
		nodes[i] = miniredis.RunT(t)
	}
	return nodes
}

func newRedLock(t *testing.T, nodes []*miniredis.Miniredis) *RedLock {
	t.Helper()
	clients := make([]*redis.Client, len(nodes))
	for i, node := range nodes {
		clients[i] = redis.NewClient(&redis.Options{Addr: node.Addr()})
	}
	l := NewRedLockWithClients(clients, 1)
	t.Cleanup(func() { _ = l.Close() })
	return l
}

func TestRedLock_MutualExclusion(t *testing.T) {
	nodes := newNodes(t, 3)
	first := newRedLock(t, nodes)
	second := newRedLock(t, nodes)
	ctx := context.Background()

	ok, err := first.AcquireLock(ctx, ArchiverLockName, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = second.AcquireLock(ctx, ArchiverLockName, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	// 重复获取自己持有的锁报错
	_, err = first.AcquireLock(ctx, ArchiverLockName, time.Minute)
	assert.Error(t, err)

	require.NoError(t, first.ReleaseLock(ctx, ArchiverLockName))

	ok, err = second.AcquireLock(ctx, ArchiverLockName, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedLock_QuorumWithNodeDown(t *testing.T) {
	nodes := newNodes(t, 3)
	l := newRedLock(t, nodes)
	nodes[2].Close()

	ok, err := l.AcquireLock(context.Background(), "job", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedLock_Refresh(t *testing.T) {
	nodes := newNodes(t, 3)
	l := newRedLock(t, nodes)
	ctx := context.Background()

	_, err := l.RefreshLock(ctx, "job", time.Minute)
	assert.Error(t, err)

	ok, err := l.AcquireLock(ctx, "job", time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = l.RefreshLock(ctx, "job", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	for _, node := range nodes {
		assert.Equal(t, time.Minute, node.TTL("job"))
	}

	// 锁在所有节点过期后刷新失败
	for _, node := range nodes {
		node.FastForward(time.Minute)
	}
	ok, err = l.RefreshLock(ctx, "job", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedLock_ReleaseUnknown(t *testing.T) {
	l := newRedLock(t, newNodes(t, 1))

	assert.Error(t, l.ReleaseLock(context.Background(), "nothing"))
}
