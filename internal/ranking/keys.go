package ranking

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/lvdashuaibi/littlerank/internal/model"
)

// Redis键布局
//
//	article:            计数器，最近分配的文章ID
//	article:{id}        hash: title, link, poster, time, votes
//	voted:{id}          set: 已投票用户，TTL等于投票窗口
//	score:              zset: article:{id} -> 发布时间 + 票数*每票分值
//	time:               zset: article:{id} -> 发布时间
//	group:{name}        set: article:{id}
//	score:{name}        zset: 群组评分排名缓存，TTL为群组缓存时长
//	time:{name}         zset: 群组时间排名缓存
const (
	articleCounterKey = "article:"
	articlePrefix     = "article:"
	votedPrefix       = "voted:"
	groupPrefix       = "group:"
	scoreKey          = "score:"
	timeKey           = "time:"
)

// ArticleRef 返回文章在索引中的成员名
func ArticleRef(id uint64) string {
	return articlePrefix + strconv.FormatUint(id, 10)
}

// ParseArticleRef 从索引成员名解析文章ID
func ParseArticleRef(ref string) (uint64, error) {
	raw, ok := strings.CutPrefix(ref, articlePrefix)
	if !ok {
		return 0, fmt.Errorf("无效的文章引用: %s", ref)
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("无效的文章引用: %s", ref)
	}
	return id, nil
}

func votedKey(id uint64) string {
	return votedPrefix + strconv.FormatUint(id, 10)
}

func groupKey(group string) string {
	return groupPrefix + group
}

func orderKey(order model.Order) string {
	if order == model.OrderByTime {
		return timeKey
	}
	return scoreKey
}

// groupCacheKey 群组排名缓存键，例如 score:tech
func groupCacheKey(group string, order model.Order) string {
	return orderKey(order) + group
}
