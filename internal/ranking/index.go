package ranking

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lvdashuaibi/littlerank/internal/model"
	"github.com/lvdashuaibi/littlerank/internal/repository"
)

// Index 维护评分与发布时间两个有序索引
type Index struct {
	store repository.KeyedStore
}

func NewIndex(store repository.KeyedStore) *Index {
	return &Index{store: store}
}

// Seed 新文章加入两个索引，时间索引最后写入
func (x *Index) Seed(ctx context.Context, ref string, createdAt int64, score float64) error {
	if err := x.store.SortedMapSet(ctx, scoreKey, ref, score); err != nil {
		return fmt.Errorf("写入评分索引 %s 失败: %w", ref, err)
	}
	if err := x.store.SortedMapSet(ctx, timeKey, ref, float64(createdAt)); err != nil {
		return fmt.Errorf("写入时间索引 %s 失败: %w", ref, err)
	}
	return nil
}

// CreatedAt 读取文章发布时间，第二个返回值为false表示文章不存在
func (x *Index) CreatedAt(ctx context.Context, ref string) (int64, bool, error) {
	t, ok, err := x.store.SortedMapScore(ctx, timeKey, ref)
	if err != nil || !ok {
		return 0, ok, err
	}
	return int64(t), true, nil
}

// Score 读取文章评分
func (x *Index) Score(ctx context.Context, ref string) (float64, bool, error) {
	return x.store.SortedMapScore(ctx, scoreKey, ref)
}

// Page 按指定顺序分页，页码从1开始，越界返回空列表
func (x *Index) Page(ctx context.Context, order model.Order, page, pageSize int) ([]string, error) {
	return x.PageKey(ctx, orderKey(order), page, pageSize)
}

// PageKey 对任意有序集合按分值从高到低分页
func (x *Index) PageKey(ctx context.Context, key string, page, pageSize int) ([]string, error) {
	if page < 1 || pageSize < 1 {
		return []string{}, nil
	}
	start := int64(page-1) * int64(pageSize)
	end := start + int64(pageSize) - 1

	refs, err := x.store.SortedMapRangeDescending(ctx, key, start, end)
	if err != nil {
		return nil, fmt.Errorf("读取 %s 第 %d 页失败: %w", key, page, err)
	}
	return refs, nil
}

// Hydrate 根据索引成员读取完整文章
func (x *Index) Hydrate(ctx context.Context, refs []string) ([]model.ArticleView, error) {
	views := make([]model.ArticleView, 0, len(refs))
	for _, ref := range refs {
		id, err := ParseArticleRef(ref)
		if err != nil {
			return nil, err
		}

		data, err := x.store.HashGetAll(ctx, ref)
		if err != nil {
			return nil, fmt.Errorf("获取文章 %d 失败: %w", id, err)
		}
		if len(data) == 0 {
			slog.Warn("索引中的文章缺少属性记录", "article_id", id)
			continue
		}

		article, err := articleFromFields(id, data)
		if err != nil {
			return nil, err
		}
		views = append(views, article.View())
	}
	return views, nil
}
