package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lvdashuaibi/littlerank/internal/kafka"
	"github.com/lvdashuaibi/littlerank/internal/lock"
	"github.com/lvdashuaibi/littlerank/internal/model"
)

// EventConsumer 事件消费者
type EventConsumer interface {
	StartConsuming(handler kafka.MessageHandler)
	Stop() error
}

// ArchiverElection 多实例部署时只有持有归档锁的实例消费事件并写入归档
type ArchiverElection struct {
	lock        lock.Lock
	archive     *ArchiveService
	newConsumer func() EventConsumer
	ttl         time.Duration
	interval    time.Duration
}

// NewArchiverElection ttl为锁有效期，每隔ttl/2尝试获取或续约
func NewArchiverElection(l lock.Lock, archive *ArchiveService, newConsumer func() EventConsumer, ttl time.Duration) (*ArchiverElection, error) {
	if ttl/2 <= 0 {
		return nil, fmt.Errorf("%w: 归档锁有效期过短: %s", model.ErrInvalidArgument, ttl)
	}
	return &ArchiverElection{
		lock:        l,
		archive:     archive,
		newConsumer: newConsumer,
		ttl:         ttl,
		interval:    ttl / 2,
	}, nil
}

// Run 阻塞直到ctx取消，退出时停止消费并释放锁
func (e *ArchiverElection) Run(ctx context.Context) {
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	var consumer EventConsumer
	defer func() {
		if consumer != nil {
			e.resign(consumer)
		}
	}()

	for {
		if consumer == nil {
			consumer = e.campaign(ctx)
		} else if !e.refresh(ctx) {
			e.resign(consumer)
			consumer = nil
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (e *ArchiverElection) campaign(ctx context.Context) EventConsumer {
	acquired, err := e.lock.AcquireLock(ctx, lock.ArchiverLockName, e.ttl)
	if err != nil {
		slog.Warn("获取归档锁失败", "error", err)
		return nil
	}
	if !acquired {
		return nil
	}

	consumer := e.newConsumer()
	consumer.StartConsuming(e.archive.ProcessEvent)
	slog.Info("当前实例成为归档节点")
	return consumer
}

func (e *ArchiverElection) refresh(ctx context.Context) bool {
	ok, err := e.lock.RefreshLock(ctx, lock.ArchiverLockName, e.ttl)
	if err != nil {
		slog.Warn("归档锁续约失败", "error", err)
		return false
	}
	if !ok {
		slog.Warn("归档锁已丢失")
	}
	return ok
}

func (e *ArchiverElection) resign(consumer EventConsumer) {
	if err := consumer.Stop(); err != nil {
		slog.Warn("停止Kafka消费者失败", "error", err)
	}
	// 锁可能已经过期，释放失败只记录日志
	if err := e.lock.ReleaseLock(context.Background(), lock.ArchiverLockName); err != nil {
		slog.Debug("释放归档锁失败", "error", err)
	}
	slog.Info("当前实例退出归档节点")
}
