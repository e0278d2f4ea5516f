package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/lvdashuaibi/littlerank/internal/model"
)

// Archiver 文章归档存储
type Archiver interface {
	SaveArticle(ctx context.Context, article *model.Article) error
	RecordVote(ctx context.Context, articleID uint64, user string, votedAt time.Time) error
	RecordGroups(ctx context.Context, articleID uint64, groups []string) error
}

// ArchiveService 消费文章事件并写入归档
type ArchiveService struct {
	archiver Archiver
}

func NewArchiveService(archiver Archiver) *ArchiveService {
	return &ArchiveService{archiver: archiver}
}

// ProcessEvent 处理文章事件（消费者使用）
func (s *ArchiveService) ProcessEvent(ctx context.Context, event *model.Event) error {
	id, err := strconv.ParseUint(event.ArticleID, 10, 64)
	if err != nil {
		return fmt.Errorf("事件 %s 文章ID无效: %w", event.ID, err)
	}

	switch event.Type {
	case model.EventArticlePosted:
		article := &model.Article{
			ID:        id,
			Title:     event.Title,
			Link:      event.Link,
			Author:    event.User,
			CreatedAt: event.At.Unix(),
			Votes:     1,
		}
		if err := s.archiver.SaveArticle(ctx, article); err != nil {
			return fmt.Errorf("归档文章 %d 失败: %w", id, err)
		}
	case model.EventVoteAccepted:
		if err := s.archiver.RecordVote(ctx, id, event.User, event.At); err != nil {
			return fmt.Errorf("归档文章 %d 投票失败: %w", id, err)
		}
	case model.EventArticleGrouped:
		if err := s.archiver.RecordGroups(ctx, id, event.Groups); err != nil {
			return fmt.Errorf("归档文章 %d 群组失败: %w", id, err)
		}
	default:
		return fmt.Errorf("未知的事件类型: %s", event.Type)
	}
	return nil
}
