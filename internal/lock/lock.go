package lock

import (
	"context"
	"time"
)

// ArchiverLockName 归档节点锁，持有者负责消费文章事件并写入MySQL
const ArchiverLockName = "littlerank:archiver:lock"

// Lock 分布式锁接口
type Lock interface {
	// AcquireLock 获取分布式锁
	// 返回值：bool表示是否成功获取锁，error表示获取过程中的错误
	AcquireLock(ctx context.Context, lockName string, ttl time.Duration) (bool, error)

	// RefreshLock 刷新锁的过期时间
	RefreshLock(ctx context.Context, lockName string, ttl time.Duration) (bool, error)

	// ReleaseLock 释放分布式锁
	ReleaseLock(ctx context.Context, lockName string) error

	// ReleaseAllLocks 释放所有持有的锁
	ReleaseAllLocks(ctx context.Context)

	// Close 关闭分布式锁客户端
	Close() error
}
