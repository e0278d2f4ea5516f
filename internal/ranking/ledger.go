package ranking

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/lvdashuaibi/littlerank/internal/model"
	"github.com/lvdashuaibi/littlerank/internal/repository"
)

// Ledger 记录每篇文章的投票用户，负责投票窗口与去重
//
// voted:{id} 的TTL等于投票窗口，只在发布时设置一次，投票时不刷新。
// 如果该集合先于窗口检查过期，已投票用户可以再次投票；
// 这是保留下来的已知行为，TTL只用于回收内存，窗口判断始终以时间索引为准。
type Ledger struct {
	store  repository.KeyedStore
	index  *Index
	clock  clockwork.Clock
	window time.Duration
}

func NewLedger(store repository.KeyedStore, index *Index, clock clockwork.Clock, window time.Duration) *Ledger {
	return &Ledger{
		store:  store,
		index:  index,
		clock:  clock,
		window: window,
	}
}

// Seed 创建投票用户集合，作者本人计为已投票
func (l *Ledger) Seed(ctx context.Context, id uint64, author string) error {
	key := votedKey(id)
	if _, err := l.store.SetInsert(ctx, key, author); err != nil {
		return fmt.Errorf("初始化文章 %d 投票集合失败: %w", id, err)
	}
	if err := l.store.SetExpire(ctx, key, l.window); err != nil {
		return fmt.Errorf("设置文章 %d 投票集合过期时间失败: %w", id, err)
	}
	return nil
}

// WindowState 根据发布时间计算投票窗口状态，每次调用都重新计算
func (l *Ledger) WindowState(createdAt int64) model.WindowState {
	cutoff := l.clock.Now().Unix() - int64(l.window/time.Second)
	if createdAt < cutoff {
		return model.WindowClosed
	}
	return model.WindowOpen
}

// RegisterVote 登记投票
// 返回Accepted时由调用方负责更新评分与票数
func (l *Ledger) RegisterVote(ctx context.Context, user string, id uint64) (model.VoteOutcome, error) {
	createdAt, ok, err := l.index.CreatedAt(ctx, ArticleRef(id))
	if err != nil {
		return 0, fmt.Errorf("读取文章 %d 发布时间失败: %w", id, err)
	}
	if !ok {
		return model.VoteNotFound, nil
	}

	// 窗口已关闭时不修改任何投票记录
	if l.WindowState(createdAt) == model.WindowClosed {
		return model.VoteWindowClosed, nil
	}

	added, err := l.store.SetInsert(ctx, votedKey(id), user)
	if err != nil {
		return 0, fmt.Errorf("记录用户 %s 对文章 %d 的投票失败: %w", user, id, err)
	}
	if !added {
		return model.VoteAlreadyVoted, nil
	}

	return model.VoteAccepted, nil
}

// Voters 返回文章的投票用户，集合过期后为空
func (l *Ledger) Voters(ctx context.Context, id uint64) ([]string, error) {
	voters, err := l.store.SetMembers(ctx, votedKey(id))
	if err != nil {
		return nil, fmt.Errorf("获取文章 %d 投票用户失败: %w", id, err)
	}
	return voters, nil
}
