package model

import (
	"fmt"
	"strconv"
	"time"
)

// Article 文章模型
type Article struct {
	ID        uint64 `json:"id"`
	Title     string `json:"title"`
	Link      string `json:"link"`
	Author    string `json:"author"`
	CreatedAt int64  `json:"createdAt"` // unix 秒
	Votes     int64  `json:"votes"`     // 发布本身计 1 票
}

// View 转换为对外展示的文章视图
func (a *Article) View() ArticleView {
	return ArticleView{
		ID:        strconv.FormatUint(a.ID, 10),
		Title:     a.Title,
		Link:      a.Link,
		Author:    a.Author,
		CreatedAt: a.CreatedAt,
		VoteCount: a.Votes,
	}
}

// ArticleView 文章视图
type ArticleView struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Link      string `json:"link"`
	Author    string `json:"author"`
	CreatedAt int64  `json:"createdAt"`
	VoteCount int64  `json:"voteCount"`
}

// Order 排序方式
type Order string

const (
	OrderByScore Order = "score"
	OrderByTime  Order = "time"
)

// ParseOrder 解析排序方式，空字符串按评分排序
func ParseOrder(s string) (Order, error) {
	switch Order(s) {
	case "", OrderByScore:
		return OrderByScore, nil
	case OrderByTime:
		return OrderByTime, nil
	default:
		return "", fmt.Errorf("%w: 未知的排序方式 %q", ErrInvalidArgument, s)
	}
}

// VoteOutcome 投票结果，零值表示未知
type VoteOutcome int

const (
	VoteAccepted VoteOutcome = iota + 1
	VoteAlreadyVoted
	VoteWindowClosed
	VoteNotFound
)

func (o VoteOutcome) String() string {
	switch o {
	case VoteAccepted:
		return "accepted"
	case VoteAlreadyVoted:
		return "already_voted"
	case VoteWindowClosed:
		return "window_closed"
	case VoteNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

// WindowState 文章投票窗口状态，Open 只会单向变为 Closed
type WindowState int

const (
	WindowOpen WindowState = iota
	WindowClosed
)

func (s WindowState) String() string {
	if s == WindowOpen {
		return "open"
	}
	return "closed"
}

// EventType 文章事件类型
type EventType string

const (
	EventArticlePosted  EventType = "article_posted"
	EventVoteAccepted   EventType = "vote_accepted"
	EventArticleGrouped EventType = "article_grouped"
)

// Event Kafka文章事件
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	ArticleID string    `json:"articleId"`
	User      string    `json:"user,omitempty"`
	Title     string    `json:"title,omitempty"`
	Link      string    `json:"link,omitempty"`
	Groups    []string  `json:"groups,omitempty"`
	At        time.Time `json:"at"`
}
