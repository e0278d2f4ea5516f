package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/lvdashuaibi/littlerank/config"
	"github.com/lvdashuaibi/littlerank/internal/model"
	"github.com/segmentio/kafka-go"
)

// messageReader kafka.Reader 的最小接口
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type MessageHandler func(ctx context.Context, event *model.Event) error

type Consumer struct {
	reader messageReader
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewConsumer 使用消费者组模式，分区由Kafka分配
func NewConsumer(cfg config.KafkaConfig) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		Topic:    cfg.Topic,
		GroupID:  cfg.GroupID,
		MinBytes: 10e3, // 10KB
		MaxBytes: 10e6, // 10MB
	})
	return newConsumer(reader)
}

func newConsumer(reader messageReader) *Consumer {
	ctx, cancel := context.WithCancel(context.Background())
	return &Consumer{
		reader: reader,
		ctx:    ctx,
		cancel: cancel,
	}
}

// StartConsuming 开始消费消息
func (c *Consumer) StartConsuming(handler MessageHandler) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.consumeMessages(handler)
	}()
	slog.Info("Kafka消费者已启动")
}

func (c *Consumer) consumeMessages(handler MessageHandler) {
	for {
		m, err := c.reader.FetchMessage(c.ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || c.ctx.Err() != nil {
				return
			}
			slog.Warn("读取消息失败", "error", err)
			select {
			case <-time.After(time.Second):
			case <-c.ctx.Done():
				return
			}
			continue
		}

		var event model.Event
		if err := json.Unmarshal(m.Value, &event); err != nil {
			// 无法解析的消息直接提交，避免阻塞分区
			slog.Error("解析消息失败", "partition", m.Partition, "offset", m.Offset, "error", err)
		} else if err := handler(c.ctx, &event); err != nil {
			slog.Error("处理文章事件失败", "event_id", event.ID, "type", event.Type, "error", err)
		}

		if err := c.reader.CommitMessages(c.ctx, m); err != nil && c.ctx.Err() == nil {
			slog.Warn("提交消息偏移量失败", "offset", m.Offset, "error", err)
		}
	}
}

// Stop 停止消费
func (c *Consumer) Stop() error {
	c.cancel()
	c.wg.Wait()
	return c.reader.Close()
}
