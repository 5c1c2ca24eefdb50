package messaging

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/wyfcoding/optionlab/pkg/db"
	"github.com/wyfcoding/optionlab/pkg/logger"
	"github.com/wyfcoding/optionlab/pkg/metrics"
	"github.com/wyfcoding/optionlab/pkg/mq"
)

// cleanupEvery 清理已投递消息的周期
const cleanupEvery = 10 * time.Minute

// Sender 由 mq.KafkaProducer 实现
type Sender interface {
	Send(ctx context.Context, topic string, messages ...mq.Message) error
}

// RelayConfig 投递参数
type RelayConfig struct {
	Topic     string
	Interval  time.Duration
	BatchSize int
	Retention time.Duration
}

// Relay 轮询 outbox 表，把待投递事件发送到 Kafka
type Relay struct {
	db      *gorm.DB
	sender  Sender
	cfg     RelayConfig
	metrics metrics.Collector
}

func NewRelay(gdb *gorm.DB, sender Sender, cfg RelayConfig, collector metrics.Collector) *Relay {
	if collector == nil {
		collector = metrics.Noop{}
	}
	return &Relay{db: gdb, sender: sender, cfg: cfg, metrics: collector}
}

// Run 阻塞直到 ctx 结束
func (r *Relay) Run(ctx context.Context) error {
	logger.Info(ctx, "outbox relay started", "topic", r.cfg.Topic, "interval", r.cfg.Interval)
	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()
	cleanup := time.NewTicker(cleanupEvery)
	defer cleanup.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info(context.Background(), "outbox relay stopped")
			return nil
		case <-ticker.C:
			if _, err := r.RelayOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error(ctx, "outbox relay failed", "error", err)
			}
		case <-cleanup.C:
			if err := r.Cleanup(ctx, time.Now().Add(-r.cfg.Retention)); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error(ctx, "outbox cleanup failed", "error", err)
			}
		}
	}
}

// RelayOnce 投递一批待发送消息，返回成功条数。发送失败的消息累加重试次数后留待下一轮。
func (r *Relay) RelayOnce(ctx context.Context) (int, error) {
	var pending []OutboxMessage
	if err := db.Conn(ctx, r.db).
		Where("status = ?", StatusPending).
		Order("created_at asc").
		Limit(r.cfg.BatchSize).
		Find(&pending).Error; err != nil {
		return 0, err
	}
	if len(pending) == 0 {
		return 0, nil
	}

	ids := make([]string, len(pending))
	messages := make([]mq.Message, len(pending))
	for i := range pending {
		ids[i] = pending[i].ID
		messages[i] = toKafkaMessage(&pending[i])
	}

	if err := r.sender.Send(ctx, r.cfg.Topic, messages...); err != nil {
		r.metrics.RecordOutboxRelay("failed", len(pending))
		if uerr := db.Conn(ctx, r.db).Model(&OutboxMessage{}).
			Where("id IN ?", ids).
			Updates(map[string]any{
				"attempts":   gorm.Expr("attempts + 1"),
				"last_error": truncate(err.Error(), 512),
			}).Error; uerr != nil {
			logger.Error(ctx, "failed to record outbox attempt", "error", uerr)
		}
		return 0, err
	}

	if err := db.Conn(ctx, r.db).Model(&OutboxMessage{}).
		Where("id IN ?", ids).
		Update("status", StatusSent).Error; err != nil {
		// 消息已发出但未标记，下一轮会重复投递
		return 0, err
	}
	r.metrics.RecordOutboxRelay("sent", len(pending))
	logger.Debug(ctx, "outbox messages relayed", "count", len(pending))
	return len(pending), nil
}

// Cleanup 删除 before 之前已投递的消息
func (r *Relay) Cleanup(ctx context.Context, before time.Time) error {
	res := db.Conn(ctx, r.db).
		Where("status = ? AND updated_at < ?", StatusSent, before).
		Delete(&OutboxMessage{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		logger.Info(ctx, "outbox messages cleaned up", "count", res.RowsAffected)
	}
	return nil
}

func toKafkaMessage(m *OutboxMessage) mq.Message {
	key := m.EventKey
	if key == "" {
		key = m.ID
	}
	return mq.Message{
		Key:   key,
		Value: []byte(m.Payload),
		Headers: map[string]string{
			"event_id":   m.ID,
			"event_type": m.EventType,
		},
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
