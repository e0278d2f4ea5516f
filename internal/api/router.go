package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lvdashuaibi/littlerank/internal/api/graph"
	"github.com/lvdashuaibi/littlerank/internal/model"
	"github.com/lvdashuaibi/littlerank/internal/service"
)

// Pinger 健康检查依赖
type Pinger interface {
	Ping(ctx context.Context) error
}

// Dependencies HTTP层依赖，Metrics、GraphQL与Store可以为nil
type Dependencies struct {
	Service     *service.ArticleService
	GraphQL     *graph.GraphQLServer
	GraphQLPath string
	Metrics     http.Handler
	Store       Pinger
}

type handler struct {
	svc   *service.ArticleService
	store Pinger
}

type postArticleRequest struct {
	Author string `json:"author" binding:"required"`
	Title  string `json:"title" binding:"required"`
	Link   string `json:"link" binding:"required"`
}

type voteRequest struct {
	User string `json:"user" binding:"required"`
}

type groupRequest struct {
	Groups []string `json:"groups" binding:"required,min=1"`
}

// NewRouter 注册REST、GraphQL与运维路由
func NewRouter(deps Dependencies) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())

	h := &handler{svc: deps.Service, store: deps.Store}

	r.GET("/healthz", h.health)
	if deps.Metrics != nil {
		r.GET("/metrics", gin.WrapH(deps.Metrics))
	}
	if deps.GraphQL != nil {
		r.POST(deps.GraphQLPath, gin.WrapH(deps.GraphQL.Handler()))
	}

	articles := r.Group("/articles")
	articles.POST("", h.postArticle)
	articles.GET("", h.listArticles)
	articles.GET("/:id", h.getArticle)
	articles.POST("/:id/votes", h.vote)
	articles.POST("/:id/groups", h.addToGroup)

	r.GET("/groups/:group/articles", h.listGroupArticles)
	return r
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		slog.Debug("HTTP请求",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

func (h *handler) health(c *gin.Context) {
	if h.store != nil {
		if err := h.store.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *handler) postArticle(c *gin.Context) {
	var req postArticleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	id, err := h.svc.PostArticle(c.Request.Context(), req.Author, req.Title, req.Link)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

func (h *handler) getArticle(c *gin.Context) {
	view, err := h.svc.GetArticle(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *handler) listArticles(c *gin.Context) {
	page, order, err := pageQuery(c)
	if err != nil {
		writeError(c, err)
		return
	}

	views, err := h.svc.ListArticles(c.Request.Context(), page, order)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"articles": views})
}

func (h *handler) vote(c *gin.Context) {
	var req voteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	outcome, err := h.svc.Vote(c.Request.Context(), req.User, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"outcome": outcome.String()})
}

func (h *handler) addToGroup(c *gin.Context) {
	var req groupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.svc.AddToGroup(c.Request.Context(), c.Param("id"), req.Groups); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handler) listGroupArticles(c *gin.Context) {
	page, order, err := pageQuery(c)
	if err != nil {
		writeError(c, err)
		return
	}

	views, err := h.svc.ListGroupArticles(c.Request.Context(), c.Param("group"), page, order)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"articles": views})
}

// pageQuery 解析 ?page=&order=，页码默认为1
func pageQuery(c *gin.Context) (int, model.Order, error) {
	page := 1
	if raw := c.Query("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return 0, "", errors.Join(model.ErrInvalidArgument, err)
		}
		page = n
	}

	order, err := model.ParseOrder(c.Query("order"))
	if err != nil {
		return 0, "", err
	}
	return page, order, nil
}

func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, model.ErrArticleNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, model.ErrInvalidArgument):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		slog.Error("请求处理失败", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
