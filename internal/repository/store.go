package repository

import (
	"context"
	"time"
)

// Aggregate 有序集合交集的聚合方式
type Aggregate string

// AggregateMax 群组排名只需要MAX：群组集合的隐含分值为1，交集结果等于文章评分
const AggregateMax Aggregate = "MAX"

// KeyedStore 排名协议依赖的原子键值存储能力
// 每个方法都是一次独立的原子操作，调用方不持有任何进程内锁
type KeyedStore interface {
	// Increment 原子自增，key不存在时从0开始
	Increment(ctx context.Context, key string) (int64, error)

	// SetInsert 向集合添加成员，true表示新插入，false表示已存在
	SetInsert(ctx context.Context, key, member string) (bool, error)
	SetExpire(ctx context.Context, key string, ttl time.Duration) error
	SetMembers(ctx context.Context, key string) ([]string, error)

	HashPut(ctx context.Context, key string, fields map[string]string) error
	// HashGetAll key不存在时返回空map
	HashGetAll(ctx context.Context, key string) (map[string]string, error)

	SortedMapSet(ctx context.Context, key, member string, score float64) error
	// SortedMapScore 第二个返回值为false表示成员不存在
	SortedMapScore(ctx context.Context, key, member string) (float64, bool, error)
	// SortedMapRangeDescending 按分值从高到低返回 [start, end] 区间的成员
	SortedMapRangeDescending(ctx context.Context, key string, start, end int64) ([]string, error)
	SortedMapIntersectStore(ctx context.Context, dest string, aggregate Aggregate, sources ...string) (int64, error)

	// IncrementScoreAndField 在同一个事务中执行ZINCRBY与HINCRBY，返回新的分值与字段值
	IncrementScoreAndField(ctx context.Context, zkey, member string, zdelta float64, hkey, field string, hdelta int64) (float64, int64, error)

	KeyExists(ctx context.Context, key string) (bool, error)
	Expire(ctx context.Context, key string, ttl time.Duration) error
}
