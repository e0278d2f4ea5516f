package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/lvdashuaibi/littlerank/config"
	"github.com/lvdashuaibi/littlerank/internal/logging"
	"github.com/lvdashuaibi/littlerank/internal/model"
	"github.com/lvdashuaibi/littlerank/internal/ranking"
	"github.com/lvdashuaibi/littlerank/internal/repository"
)

// EventPublisher 发布文章事件
type EventPublisher interface {
	Publish(ctx context.Context, event *model.Event) error
}

// Recorder 业务指标
type Recorder interface {
	ranking.CacheRecorder
	ArticlePosted()
	VoteRegistered(outcome model.VoteOutcome)
	EventPublishFailed()
}

type Option func(*ArticleService)

// WithPublisher 通过消息队列发布事件
func WithPublisher(p EventPublisher) Option {
	return func(s *ArticleService) { s.publisher = p }
}

// WithArchive 事件发布失败（或未配置发布者）时直接归档
func WithArchive(a *ArchiveService) Option {
	return func(s *ArticleService) { s.archive = a }
}

func WithRecorder(r Recorder) Option {
	return func(s *ArticleService) { s.recorder = r }
}

// ArticleService 组合文章目录、投票账本、排名索引与群组索引
type ArticleService struct {
	catalog *ranking.Catalog
	ledger  *ranking.Ledger
	index   *ranking.Index
	groups  *ranking.Groups
	clock   clockwork.Clock
	cfg     config.RankingConfig

	publisher EventPublisher
	archive   *ArchiveService
	recorder  Recorder
}

func NewArticleService(store repository.KeyedStore, clock clockwork.Clock, cfg config.RankingConfig, opts ...Option) *ArticleService {
	s := &ArticleService{
		clock:    clock,
		cfg:      cfg,
		recorder: nopRecorder{},
	}
	for _, opt := range opts {
		opt(s)
	}

	s.index = ranking.NewIndex(store)
	s.ledger = ranking.NewLedger(store, s.index, clock, cfg.VotingWindow)
	s.catalog = ranking.NewCatalog(store, s.ledger, s.index, clock, cfg.VoteBonus)
	s.groups = ranking.NewGroups(store, s.index, cfg.GroupCacheTTL, s.recorder)
	return s
}

// PostArticle 发布文章，返回文章ID
func (s *ArticleService) PostArticle(ctx context.Context, author, title, link string) (string, error) {
	if author == "" || title == "" || link == "" {
		return "", fmt.Errorf("%w: 作者、标题与链接不能为空", model.ErrInvalidArgument)
	}

	article, err := s.catalog.PostArticle(ctx, author, title, link)
	if err != nil {
		return "", fmt.Errorf("发布文章失败: %w", err)
	}
	s.recorder.ArticlePosted()

	id := strconv.FormatUint(article.ID, 10)
	s.publish(ctx, &model.Event{
		Type:      model.EventArticlePosted,
		ArticleID: id,
		User:      author,
		Title:     title,
		Link:      link,
		At:        time.Unix(article.CreatedAt, 0),
	})
	return id, nil
}

// Vote 为文章投票
// AlreadyVoted、WindowClosed、NotFound 都是正常结果，error只表示存储失败。
// 评分与票数在同一个事务中更新；投票用户集合先于它们写入，
// 若事务失败，该用户已记为投票但评分与票数未变，重试会得到AlreadyVoted。
func (s *ArticleService) Vote(ctx context.Context, user, articleID string) (model.VoteOutcome, error) {
	if user == "" {
		return 0, fmt.Errorf("%w: 用户名不能为空", model.ErrInvalidArgument)
	}

	id, ok := parseArticleID(articleID)
	if !ok {
		s.recorder.VoteRegistered(model.VoteNotFound)
		return model.VoteNotFound, nil
	}

	outcome, err := s.ledger.RegisterVote(ctx, user, id)
	if err != nil {
		return 0, fmt.Errorf("投票失败: %w", err)
	}

	if outcome == model.VoteAccepted {
		_, votes, err := s.catalog.ApplyVote(ctx, id)
		if err != nil {
			return 0, fmt.Errorf("投票失败: %w", err)
		}
		logging.WithUser(user).Debug("投票成功", "article_id", id, "votes", votes)
		s.publish(ctx, &model.Event{
			Type:      model.EventVoteAccepted,
			ArticleID: strconv.FormatUint(id, 10),
			User:      user,
			At:        s.clock.Now(),
		})
	}

	s.recorder.VoteRegistered(outcome)
	return outcome, nil
}

// GetArticle 获取单篇文章
func (s *ArticleService) GetArticle(ctx context.Context, articleID string) (*model.ArticleView, error) {
	id, ok := parseArticleID(articleID)
	if !ok {
		return nil, fmt.Errorf("文章 %q: %w", articleID, model.ErrArticleNotFound)
	}

	article, err := s.catalog.GetArticle(ctx, id)
	if err != nil {
		return nil, err
	}
	view := article.View()
	return &view, nil
}

// ListArticles 按评分或发布时间分页获取文章
func (s *ArticleService) ListArticles(ctx context.Context, page int, order model.Order) ([]model.ArticleView, error) {
	refs, err := s.index.Page(ctx, order, page, s.cfg.PageSize)
	if err != nil {
		return nil, fmt.Errorf("获取文章列表失败: %w", err)
	}
	return s.index.Hydrate(ctx, refs)
}

// AddToGroup 将文章加入一个或多个群组
func (s *ArticleService) AddToGroup(ctx context.Context, articleID string, groups []string) error {
	id, ok := parseArticleID(articleID)
	if !ok {
		return fmt.Errorf("文章 %q: %w", articleID, model.ErrArticleNotFound)
	}

	_, exists, err := s.index.CreatedAt(ctx, ranking.ArticleRef(id))
	if err != nil {
		return fmt.Errorf("添加群组失败: %w", err)
	}
	if !exists {
		return fmt.Errorf("文章 %d: %w", id, model.ErrArticleNotFound)
	}

	groups, err = uniqueGroups(groups)
	if err != nil {
		return err
	}
	if len(groups) == 0 {
		return nil
	}
	if err := s.groups.AddToGroup(ctx, id, groups...); err != nil {
		return fmt.Errorf("添加群组失败: %w", err)
	}

	s.publish(ctx, &model.Event{
		Type:      model.EventArticleGrouped,
		ArticleID: strconv.FormatUint(id, 10),
		Groups:    groups,
		At:        s.clock.Now(),
	})
	return nil
}

// ListGroupArticles 分页获取群组内文章，结果可能落后最多一个缓存周期
func (s *ArticleService) ListGroupArticles(ctx context.Context, group string, page int, order model.Order) ([]model.ArticleView, error) {
	refs, err := s.groups.RankedMembers(ctx, group, order, page, s.cfg.PageSize)
	if err != nil {
		return nil, fmt.Errorf("获取群组 %s 文章失败: %w", group, err)
	}
	return s.index.Hydrate(ctx, refs)
}

// publish 发布事件，失败时记录日志并尝试同步归档，不影响主流程
func (s *ArticleService) publish(ctx context.Context, event *model.Event) {
	event.ID = uuid.NewString()

	if s.publisher == nil {
		s.archiveDirectly(ctx, event)
		return
	}

	if err := s.publisher.Publish(ctx, event); err != nil {
		s.recorder.EventPublishFailed()
		logging.WithArticle(event.ArticleID).Warn("发送文章事件失败", "type", event.Type, "error", err)
		// 即使消息发送失败，也直接写入归档，保证归档完整
		s.archiveDirectly(ctx, event)
	}
}

func (s *ArticleService) archiveDirectly(ctx context.Context, event *model.Event) {
	if s.archive == nil {
		return
	}
	if err := s.archive.ProcessEvent(ctx, event); err != nil {
		logging.WithArticle(event.ArticleID).Error("同步归档文章事件失败", "type", event.Type, "error", err)
	}
}

func parseArticleID(articleID string) (uint64, bool) {
	id, err := strconv.ParseUint(strings.TrimSpace(articleID), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}

func uniqueGroups(groups []string) ([]string, error) {
	seen := make(map[string]struct{}, len(groups))
	out := make([]string, 0, len(groups))
	for _, g := range groups {
		if g == "" {
			return nil, fmt.Errorf("%w: 群组名不能为空", model.ErrInvalidArgument)
		}
		if _, ok := seen[g]; ok {
			continue
		}
		seen[g] = struct{}{}
		out = append(out, g)
	}
	return out, nil
}

type nopRecorder struct{}

func (nopRecorder) GroupCacheHit(model.Order)        {}
func (nopRecorder) GroupCacheMiss(model.Order)       {}
func (nopRecorder) ArticlePosted()                   {}
func (nopRecorder) VoteRegistered(model.VoteOutcome) {}
func (nopRecorder) EventPublishFailed()              {}
