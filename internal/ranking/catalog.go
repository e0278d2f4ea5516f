package ranking

import (
	"context"
	"fmt"
	"strconv"

	"github.com/jonboulle/clockwork"
	"github.com/lvdashuaibi/littlerank/internal/model"
	"github.com/lvdashuaibi/littlerank/internal/repository"
)

// 文章hash字段
const (
	fieldTitle  = "title"
	fieldLink   = "link"
	fieldPoster = "poster"
	fieldTime   = "time"
	fieldVotes  = "votes"
)

// Catalog 负责文章的创建与读取
type Catalog struct {
	store     repository.KeyedStore
	ledger    *Ledger
	index     *Index
	clock     clockwork.Clock
	voteBonus float64
}

func NewCatalog(store repository.KeyedStore, ledger *Ledger, index *Index, clock clockwork.Clock, voteBonus float64) *Catalog {
	return &Catalog{
		store:     store,
		ledger:    ledger,
		index:     index,
		clock:     clock,
		voteBonus: voteBonus,
	}
}

// PostArticle 发布文章
// 时间索引最后写入：在此之前投票只会得到NotFound，投票不会先于文章创建完成
func (c *Catalog) PostArticle(ctx context.Context, author, title, link string) (*model.Article, error) {
	// 1. 通过计数器获取文章ID
	n, err := c.store.Increment(ctx, articleCounterKey)
	if err != nil {
		return nil, fmt.Errorf("分配文章ID失败: %w", err)
	}
	id := uint64(n)

	// 2. 作者本人视为已投票
	if err := c.ledger.Seed(ctx, id, author); err != nil {
		return nil, err
	}

	// 3. 保存文章属性
	article := &model.Article{
		ID:        id,
		Title:     title,
		Link:      link,
		Author:    author,
		CreatedAt: c.clock.Now().Unix(),
		Votes:     1,
	}
	if err := c.store.HashPut(ctx, articleKey(id), articleFields(article)); err != nil {
		return nil, fmt.Errorf("保存文章 %d 失败: %w", id, err)
	}

	// 4. 加入评分索引与时间索引
	if err := c.index.Seed(ctx, ArticleRef(id), article.CreatedAt, float64(article.CreatedAt)+c.voteBonus); err != nil {
		return nil, err
	}

	return article, nil
}

// GetArticle 获取文章
func (c *Catalog) GetArticle(ctx context.Context, id uint64) (*model.Article, error) {
	data, err := c.store.HashGetAll(ctx, articleKey(id))
	if err != nil {
		return nil, fmt.Errorf("获取文章 %d 失败: %w", id, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("文章 %d: %w", id, model.ErrArticleNotFound)
	}
	return articleFromFields(id, data)
}

// ApplyVote 在同一个事务中增加评分与票数，返回最新评分与票数
func (c *Catalog) ApplyVote(ctx context.Context, id uint64) (float64, int64, error) {
	ref := ArticleRef(id)
	score, votes, err := c.store.IncrementScoreAndField(ctx, scoreKey, ref, c.voteBonus, articleKey(id), fieldVotes, 1)
	if err != nil {
		return 0, 0, fmt.Errorf("更新文章 %d 评分与票数失败: %w", id, err)
	}
	return score, votes, nil
}

func articleKey(id uint64) string {
	return ArticleRef(id)
}

func articleFields(a *model.Article) map[string]string {
	return map[string]string{
		fieldTitle:  a.Title,
		fieldLink:   a.Link,
		fieldPoster: a.Author,
		fieldTime:   strconv.FormatInt(a.CreatedAt, 10),
		fieldVotes:  strconv.FormatInt(a.Votes, 10),
	}
}

func articleFromFields(id uint64, data map[string]string) (*model.Article, error) {
	article := &model.Article{
		ID:     id,
		Title:  data[fieldTitle],
		Link:   data[fieldLink],
		Author: data[fieldPoster],
	}

	createdAt, err := strconv.ParseInt(data[fieldTime], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("解析文章 %d 发布时间失败: %w", id, err)
	}
	article.CreatedAt = createdAt

	votes, err := strconv.ParseInt(data[fieldVotes], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("解析文章 %d 票数失败: %w", id, err)
	}
	article.Votes = votes

	return article, nil
}
