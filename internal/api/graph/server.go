package graph

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	graphql "github.com/graph-gophers/graphql-go"
	"github.com/graph-gophers/graphql-go/relay"
	"github.com/lvdashuaibi/littlerank/internal/model"
	"github.com/lvdashuaibi/littlerank/internal/service"
)

// GraphQLServer GraphQL服务
type GraphQLServer struct {
	schema  *graphql.Schema
	handler *relay.Handler
}

func NewGraphQLServer(articleService *service.ArticleService) *GraphQLServer {
	schema := graphql.MustParseSchema(schemaString, NewResolver(articleService))

	return &GraphQLServer{
		schema:  schema,
		handler: &relay.Handler{Schema: schema},
	}
}

// Handler 返回GraphQL HTTP处理器，由外层路由挂载
func (s *GraphQLServer) Handler() http.Handler {
	return s.handler
}

// Exec 直接执行查询
func (s *GraphQLServer) Exec(ctx context.Context, query string, variables map[string]interface{}) *graphql.Response {
	return s.schema.Exec(ctx, query, "", variables)
}

// Resolver GraphQL解析器
type Resolver struct {
	articleService *service.ArticleService
}

func NewResolver(articleService *service.ArticleService) *Resolver {
	return &Resolver{articleService: articleService}
}

func (r *Resolver) Article(ctx context.Context, args struct{ ID graphql.ID }) (*ArticleResolver, error) {
	view, err := r.articleService.GetArticle(ctx, string(args.ID))
	if err != nil {
		if errors.Is(err, model.ErrArticleNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &ArticleResolver{view: *view}, nil
}

func (r *Resolver) Articles(ctx context.Context, args struct {
	Page  int32
	Order *string
}) ([]*ArticleResolver, error) {
	order, err := parseOrder(args.Order)
	if err != nil {
		return nil, err
	}

	views, err := r.articleService.ListArticles(ctx, int(args.Page), order)
	if err != nil {
		return nil, err
	}
	return toResolvers(views), nil
}

func (r *Resolver) GroupArticles(ctx context.Context, args struct {
	Group string
	Page  int32
	Order *string
}) ([]*ArticleResolver, error) {
	order, err := parseOrder(args.Order)
	if err != nil {
		return nil, err
	}

	views, err := r.articleService.ListGroupArticles(ctx, args.Group, int(args.Page), order)
	if err != nil {
		return nil, err
	}
	return toResolvers(views), nil
}

func (r *Resolver) PostArticle(ctx context.Context, args struct {
	Author string
	Title  string
	Link   string
}) (graphql.ID, error) {
	id, err := r.articleService.PostArticle(ctx, args.Author, args.Title, args.Link)
	if err != nil {
		return "", err
	}
	return graphql.ID(id), nil
}

func (r *Resolver) Vote(ctx context.Context, args struct {
	User      string
	ArticleID graphql.ID
}) (string, error) {
	outcome, err := r.articleService.Vote(ctx, args.User, string(args.ArticleID))
	if err != nil {
		return "", err
	}
	return strings.ToUpper(outcome.String()), nil
}

func (r *Resolver) AddToGroup(ctx context.Context, args struct {
	ArticleID graphql.ID
	Groups    []string
}) (bool, error) {
	if err := r.articleService.AddToGroup(ctx, string(args.ArticleID), args.Groups); err != nil {
		return false, err
	}
	return true, nil
}

// ArticleResolver 文章解析器
type ArticleResolver struct {
	view model.ArticleView
}

func (r *ArticleResolver) ID() graphql.ID {
	return graphql.ID(r.view.ID)
}

func (r *ArticleResolver) Title() string {
	return r.view.Title
}

func (r *ArticleResolver) Link() string {
	return r.view.Link
}

func (r *ArticleResolver) Poster() string {
	return r.view.Author
}

func (r *ArticleResolver) CreatedAt() string {
	return time.Unix(r.view.CreatedAt, 0).UTC().Format(time.RFC3339)
}

// Votes GraphQL Int为32位，超出范围时取math.MaxInt32
func (r *ArticleResolver) Votes() int32 {
	if r.view.VoteCount > math.MaxInt32 {
		return math.MaxInt32
	}
	return int32(r.view.VoteCount)
}

func toResolvers(views []model.ArticleView) []*ArticleResolver {
	resolvers := make([]*ArticleResolver, len(views))
	for i, view := range views {
		resolvers[i] = &ArticleResolver{view: view}
	}
	return resolvers
}

// parseOrder GraphQL枚举转换为排序方式，未指定时按评分排序
func parseOrder(order *string) (model.Order, error) {
	if order == nil {
		return model.OrderByScore, nil
	}
	switch *order {
	case "SCORE":
		return model.OrderByScore, nil
	case "TIME":
		return model.OrderByTime, nil
	default:
		return "", fmt.Errorf("%w: 未知的排序方式 %q", model.ErrInvalidArgument, *order)
	}
}
