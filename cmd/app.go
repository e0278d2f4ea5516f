package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jonboulle/clockwork"
	"github.com/lvdashuaibi/littlerank/config"
	intkafka "github.com/lvdashuaibi/littlerank/internal/kafka"
	"github.com/lvdashuaibi/littlerank/internal/metrics"
	"github.com/lvdashuaibi/littlerank/internal/repository"
	"github.com/lvdashuaibi/littlerank/internal/service"
	"github.com/prometheus/client_golang/prometheus"
)

// app 命令共用的依赖
type app struct {
	cfg      *config.Config
	redis    *repository.RedisRepository
	mysql    *repository.MySQLRepository
	producer *intkafka.Producer
	archive  *service.ArchiveService
	registry *prometheus.Registry
	service  *service.ArticleService
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{cfg: cfg, registry: metrics.NewRegistry()}

	redisRepo, err := repository.NewRedisRepository(ctx, cfg.Redis)
	if err != nil {
		return nil, fmt.Errorf("初始化Redis仓库失败: %w", err)
	}
	a.redis = redisRepo
	slog.Info("Redis仓库初始化成功", "addr", cfg.Redis.DataAddress)

	opts := []service.Option{service.WithRecorder(metrics.New(a.registry))}

	// MySQL归档可选
	if cfg.MySQL.Master != "" {
		mysqlRepo, err := repository.NewMySQLRepository(cfg.MySQL)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("初始化MySQL仓库失败: %w", err)
		}
		a.mysql = mysqlRepo
		if err := mysqlRepo.EnsureSchema(ctx); err != nil {
			a.Close()
			return nil, err
		}
		a.archive = service.NewArchiveService(mysqlRepo)
		opts = append(opts, service.WithArchive(a.archive))
		slog.Info("MySQL归档初始化成功")
	}

	if cfg.Kafka.Enabled {
		producer, err := intkafka.NewProducer(cfg.Kafka)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("初始化Kafka生产者失败: %w", err)
		}
		a.producer = producer
		opts = append(opts, service.WithPublisher(producer))
		slog.Info("Kafka生产者初始化成功", "topic", cfg.Kafka.Topic)
	}

	a.service = service.NewArticleService(redisRepo, clockwork.NewRealClock(), cfg.Ranking, opts...)
	return a, nil
}

func (a *app) Close() {
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			slog.Warn("关闭Kafka生产者失败", "error", err)
		}
	}
	if a.mysql != nil {
		a.mysql.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			slog.Warn("关闭Redis连接失败", "error", err)
		}
	}
}
