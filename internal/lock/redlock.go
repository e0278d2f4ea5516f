package lock

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/lvdashuaibi/littlerank/config"
)

// 只刷新自己持有的锁
var refreshScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
else
	return 0
end
`)

// 只释放自己持有的锁
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
else
	return 0
end
`)

var _ Lock = (*RedLock)(nil)

// RedLock 多个独立Redis节点上的Redlock实现
type RedLock struct {
	clients []*redis.Client
	mu      sync.Mutex
	locks   map[string]string // key是锁名，value是token值
	retries int
}

// NewRedLock 创建新的分布式锁客户端
func NewRedLock(ctx context.Context, redisCfg config.RedisConfig, lockCfg config.LockConfig) (*RedLock, error) {
	// 创建多个独立的Redis客户端
	var clients []*redis.Client

	for _, addr := range redisCfg.LockAddresses {
		client := redis.NewClient(&redis.Options{
			Addr:         addr,
			Password:     redisCfg.Password,
			DB:           redisCfg.DB,
			PoolSize:     redisCfg.PoolSize,
			MaxRetries:   redisCfg.MaxRetries,
			DialTimeout:  redisCfg.Timeout,
			ReadTimeout:  redisCfg.Timeout,
			WriteTimeout: redisCfg.Timeout,
		})

		// 测试连接
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			// 关闭已创建的客户端
			for _, c := range clients {
				c.Close()
			}
			return nil, fmt.Errorf("Redis锁节点 %s 连接测试失败: %w", addr, err)
		}

		clients = append(clients, client)
	}

	if len(clients) == 0 {
		return nil, fmt.Errorf("未配置Redis锁节点")
	}

	return NewRedLockWithClients(clients, lockCfg.RetryCount), nil
}

func NewRedLockWithClients(clients []*redis.Client, retries int) *RedLock {
	if retries < 1 {
		retries = 1
	}
	return &RedLock{
		clients: clients,
		locks:   make(map[string]string),
		retries: retries,
	}
}

func (r *RedLock) quorum() int {
	return len(r.clients)/2 + 1
}

// AcquireLock 获取分布式锁
func (r *RedLock) AcquireLock(ctx context.Context, lockName string, ttl time.Duration) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.locks[lockName]; ok {
		return false, fmt.Errorf("锁 %s 已被当前实例持有", lockName)
	}

	token := uuid.NewString()

	// Redlock算法: 尝试在多个节点上获取锁
	for attempt := 0; attempt < r.retries; attempt++ {
		success := 0
		start := time.Now()

		for i, client := range r.clients {
			ok, err := client.SetNX(ctx, lockName, token, ttl).Result()
			if err != nil {
				slog.Warn("在节点获取锁失败", "node", i, "lock", lockName, "error", err)
				continue
			}
			if ok {
				success++
			}
		}

		// 判断是否在多数节点获取成功
		validity := ttl - time.Since(start)
		if success >= r.quorum() && validity > 0 {
			r.locks[lockName] = token
			return true, nil
		}

		// 获取失败，释放所有节点上的锁
		r.unlockAll(ctx, lockName, token)

		if attempt < r.retries-1 {
			select {
			case <-time.After(100 * time.Millisecond):
			case <-ctx.Done():
				return false, ctx.Err()
			}
		}
	}

	return false, nil
}

// RefreshLock 刷新锁的过期时间
func (r *RedLock) RefreshLock(ctx context.Context, lockName string, ttl time.Duration) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	token, exists := r.locks[lockName]
	if !exists {
		return false, fmt.Errorf("锁 %s 不存在或未持有", lockName)
	}

	success := 0
	for i, client := range r.clients {
		result, err := refreshScript.Run(ctx, client, []string{lockName}, token, ttl.Milliseconds()).Int64()
		if err != nil {
			slog.Warn("在节点刷新锁失败", "node", i, "lock", lockName, "error", err)
			continue
		}
		if result == 1 {
			success++
		}
	}

	if success >= r.quorum() {
		return true, nil
	}

	delete(r.locks, lockName)
	return false, nil
}

// ReleaseLock 释放分布式锁
func (r *RedLock) ReleaseLock(ctx context.Context, lockName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	token, exists := r.locks[lockName]
	if !exists {
		return fmt.Errorf("锁 %s 不存在或未持有", lockName)
	}

	r.unlockAll(ctx, lockName, token)
	delete(r.locks, lockName)
	return nil
}

// unlockAll 在所有节点上释放锁
func (r *RedLock) unlockAll(ctx context.Context, lockName string, token string) {
	for i, client := range r.clients {
		if err := unlockScript.Run(ctx, client, []string{lockName}, token).Err(); err != nil {
			slog.Warn("在节点释放锁失败", "node", i, "lock", lockName, "error", err)
		}
	}
}

// ReleaseAllLocks 释放所有持有的锁
func (r *RedLock) ReleaseAllLocks(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for name, token := range r.locks {
		r.unlockAll(ctx, name, token)
	}
	r.locks = make(map[string]string)
}

// Close 关闭分布式锁客户端
func (r *RedLock) Close() error {
	r.ReleaseAllLocks(context.Background())

	for _, client := range r.clients {
		if err := client.Close(); err != nil {
			slog.Warn("关闭Redis客户端失败", "error", err)
		}
	}
	return nil
}
