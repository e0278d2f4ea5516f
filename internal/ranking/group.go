package ranking

import (
	"context"
	"fmt"
	"time"

	"github.com/lvdashuaibi/littlerank/internal/model"
	"github.com/lvdashuaibi/littlerank/internal/repository"
)

// CacheRecorder 记录群组排名缓存命中情况
type CacheRecorder interface {
	GroupCacheHit(order model.Order)
	GroupCacheMiss(order model.Order)
}

// Groups 维护群组成员以及群组排名缓存
type Groups struct {
	store    repository.KeyedStore
	index    *Index
	ttl      time.Duration
	recorder CacheRecorder
}

// NewGroups recorder可以为nil
func NewGroups(store repository.KeyedStore, index *Index, ttl time.Duration, recorder CacheRecorder) *Groups {
	return &Groups{
		store:    store,
		index:    index,
		ttl:      ttl,
		recorder: recorder,
	}
}

// AddToGroup 将文章加入群组，重复添加不改变成员
func (g *Groups) AddToGroup(ctx context.Context, id uint64, groups ...string) error {
	ref := ArticleRef(id)
	for _, group := range groups {
		if group == "" {
			return fmt.Errorf("%w: 群组名不能为空", model.ErrInvalidArgument)
		}
		if _, err := g.store.SetInsert(ctx, groupKey(group), ref); err != nil {
			return fmt.Errorf("将文章 %d 加入群组 %s 失败: %w", id, group, err)
		}
	}
	return nil
}

// Members 返回群组内的全部文章引用
func (g *Groups) Members(ctx context.Context, group string) ([]string, error) {
	members, err := g.store.SetMembers(ctx, groupKey(group))
	if err != nil {
		return nil, fmt.Errorf("获取群组 %s 成员失败: %w", group, err)
	}
	return members, nil
}

// RankedMembers 群组内文章分页
//
// 缓存存在时直接分页；否则对群组集合与排序索引做交集（聚合取MAX），
// 结果缓存ttl时长。并发的缓存重算不加锁，重算结果只取决于当前数据，重复写入无害。
func (g *Groups) RankedMembers(ctx context.Context, group string, order model.Order, page, pageSize int) ([]string, error) {
	if group == "" {
		return nil, fmt.Errorf("%w: 群组名不能为空", model.ErrInvalidArgument)
	}
	key := groupCacheKey(group, order)

	exists, err := g.store.KeyExists(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("检查群组 %s 排名缓存失败: %w", group, err)
	}

	if exists {
		g.recordHit(order)
	} else {
		g.recordMiss(order)
		if err := g.refresh(ctx, key, group, order); err != nil {
			return nil, err
		}
	}

	return g.index.PageKey(ctx, key, page, pageSize)
}

func (g *Groups) refresh(ctx context.Context, key, group string, order model.Order) error {
	if _, err := g.store.SortedMapIntersectStore(ctx, key, repository.AggregateMax, groupKey(group), orderKey(order)); err != nil {
		return fmt.Errorf("计算群组 %s 排名失败: %w", group, err)
	}
	if err := g.store.Expire(ctx, key, g.ttl); err != nil {
		return fmt.Errorf("设置群组 %s 排名缓存过期时间失败: %w", group, err)
	}
	return nil
}

func (g *Groups) recordHit(order model.Order) {
	if g.recorder != nil {
		g.recorder.GroupCacheHit(order)
	}
}

func (g *Groups) recordMiss(order model.Order) {
	if g.recorder != nil {
		g.recorder.GroupCacheMiss(order)
	}
}
