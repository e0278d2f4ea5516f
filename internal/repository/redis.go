package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/lvdashuaibi/littlerank/config"
	"github.com/lvdashuaibi/littlerank/internal/model"
)

// RedisRepository 基于Redis实现KeyedStore
type RedisRepository struct {
	client *redis.Client
}

var _ KeyedStore = (*RedisRepository)(nil)

func NewRedisRepository(ctx context.Context, cfg config.RedisConfig) (*RedisRepository, error) {
	// 创建Redis客户端（普通客户端，用于数据存储）
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.DataAddress,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MaxRetries:   cfg.MaxRetries,
		DialTimeout:  cfg.Timeout,
		ReadTimeout:  cfg.Timeout,
		WriteTimeout: cfg.Timeout,
	})

	// 测试连接
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("Redis数据节点连接测试失败: %w", err)
	}

	return NewRedisRepositoryWithClient(client), nil
}

// NewRedisRepositoryWithClient 使用已有客户端创建仓库
func NewRedisRepositoryWithClient(client *redis.Client) *RedisRepository {
	return &RedisRepository{client: client}
}

func storeErr(op, key string, err error) error {
	return fmt.Errorf("%w: %s %s 失败: %w", model.ErrStoreUnavailable, op, key, err)
}

func (r *RedisRepository) Increment(ctx context.Context, key string) (int64, error) {
	n, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, storeErr("INCR", key, err)
	}
	return n, nil
}

func (r *RedisRepository) SetInsert(ctx context.Context, key, member string) (bool, error) {
	added, err := r.client.SAdd(ctx, key, member).Result()
	if err != nil {
		return false, storeErr("SADD", key, err)
	}
	return added == 1, nil
}

func (r *RedisRepository) SetExpire(ctx context.Context, key string, ttl time.Duration) error {
	return r.Expire(ctx, key, ttl)
}

func (r *RedisRepository) SetMembers(ctx context.Context, key string) ([]string, error) {
	members, err := r.client.SMembers(ctx, key).Result()
	if err != nil {
		return nil, storeErr("SMEMBERS", key, err)
	}
	return members, nil
}

func (r *RedisRepository) HashPut(ctx context.Context, key string, fields map[string]string) error {
	values := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		values[k] = v
	}
	if err := r.client.HSet(ctx, key, values).Err(); err != nil {
		return storeErr("HSET", key, err)
	}
	return nil
}

func (r *RedisRepository) HashGetAll(ctx context.Context, key string) (map[string]string, error) {
	data, err := r.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, storeErr("HGETALL", key, err)
	}
	return data, nil
}

func (r *RedisRepository) SortedMapSet(ctx context.Context, key, member string, score float64) error {
	if err := r.client.ZAdd(ctx, key, &redis.Z{Score: score, Member: member}).Err(); err != nil {
		return storeErr("ZADD", key, err)
	}
	return nil
}

func (r *RedisRepository) SortedMapScore(ctx context.Context, key, member string) (float64, bool, error) {
	score, err := r.client.ZScore(ctx, key, member).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, false, nil // 成员不存在
		}
		return 0, false, storeErr("ZSCORE", key, err)
	}
	return score, true, nil
}

func (r *RedisRepository) SortedMapRangeDescending(ctx context.Context, key string, start, end int64) ([]string, error) {
	members, err := r.client.ZRevRange(ctx, key, start, end).Result()
	if err != nil {
		return nil, storeErr("ZREVRANGE", key, err)
	}
	return members, nil
}

func (r *RedisRepository) SortedMapIntersectStore(ctx context.Context, dest string, aggregate Aggregate, sources ...string) (int64, error) {
	n, err := r.client.ZInterStore(ctx, dest, &redis.ZStore{
		Keys:      sources,
		Aggregate: string(aggregate),
	}).Result()
	if err != nil {
		return 0, storeErr("ZINTERSTORE", dest, err)
	}
	return n, nil
}

func (r *RedisRepository) IncrementScoreAndField(ctx context.Context, zkey, member string, zdelta float64, hkey, field string, hdelta int64) (float64, int64, error) {
	var zcmd *redis.FloatCmd
	var hcmd *redis.IntCmd
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		zcmd = pipe.ZIncrBy(ctx, zkey, zdelta, member)
		hcmd = pipe.HIncrBy(ctx, hkey, field, hdelta)
		return nil
	})
	if err != nil {
		return 0, 0, storeErr("MULTI ZINCRBY/HINCRBY", zkey+" "+hkey, err)
	}
	return zcmd.Val(), hcmd.Val(), nil
}

func (r *RedisRepository) KeyExists(ctx context.Context, key string) (bool, error) {
	n, err := r.client.Exists(ctx, key).Result()
	if err != nil {
		return false, storeErr("EXISTS", key, err)
	}
	return n > 0, nil
}

func (r *RedisRepository) Expire(ctx context.Context, key string, ttl time.Duration) error {
	if err := r.client.Expire(ctx, key, ttl).Err(); err != nil {
		return storeErr("EXPIRE", key, err)
	}
	return nil
}

// Ping 检查Redis连接
func (r *RedisRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close 关闭Redis连接
func (r *RedisRepository) Close() error {
	return r.client.Close()
}
