package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lvdashuaibi/littlerank/config"
	"github.com/lvdashuaibi/littlerank/internal/api"
	"github.com/lvdashuaibi/littlerank/internal/api/graph"
	intkafka "github.com/lvdashuaibi/littlerank/internal/kafka"
	"github.com/lvdashuaibi/littlerank/internal/lock"
	"github.com/lvdashuaibi/littlerank/internal/metrics"
	"github.com/lvdashuaibi/littlerank/internal/service"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST and GraphQL server",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	// 启用Kafka且配置了归档库时，通过分布式锁选出唯一的归档消费者
	if a.producer != nil && a.archive != nil {
		l, err := newLock(ctx, cfg)
		if err != nil {
			return err
		}
		defer l.Close()

		election, err := service.NewArchiverElection(l, a.archive, func() service.EventConsumer {
			return intkafka.NewConsumer(cfg.Kafka)
		}, cfg.Lock.Timeout)
		if err != nil {
			return err
		}
		done := make(chan struct{})
		go func() {
			defer close(done)
			election.Run(ctx)
		}()
		defer func() { <-done }()
	}

	gin.SetMode(gin.ReleaseMode)
	router := api.NewRouter(api.Dependencies{
		Service:     a.service,
		GraphQL:     graph.NewGraphQLServer(a.service),
		GraphQLPath: cfg.GraphQL.Path,
		Metrics:     metrics.Handler(a.registry),
		Store:       a.redis,
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	slog.Info("Little Rank 服务已启动", "port", cfg.Server.Port, "graphql", cfg.GraphQL.Path)

	select {
	case <-ctx.Done():
	case err := <-errCh:
		stop()
		return fmt.Errorf("HTTP服务异常退出: %w", err)
	}

	slog.Info("正在关闭服务...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newLock(ctx context.Context, cfg *config.Config) (lock.Lock, error) {
	switch cfg.Lock.Backend {
	case "redis":
		l, err := lock.NewRedLock(ctx, cfg.Redis, cfg.Lock)
		if err != nil {
			return nil, fmt.Errorf("初始化Redlock失败: %w", err)
		}
		return l, nil
	case "etcd", "":
		l, err := lock.NewETCDLock(cfg.ETCD)
		if err != nil {
			return nil, fmt.Errorf("初始化ETCD分布式锁失败: %w", err)
		}
		return l, nil
	default:
		return nil, fmt.Errorf("未知的分布式锁类型: %s", cfg.Lock.Backend)
	}
}
