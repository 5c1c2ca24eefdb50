package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/wyfcoding/optionlab/pkg/db"
)

// outbox 消息状态
const (
	StatusPending = "pending"
	StatusSent    = "sent"
)

// ErrNoTransaction PublishInTx 调用时 ctx 中没有事务
var ErrNoTransaction = errors.New("outbox: no transaction in context")

// OutboxMessage 待投递事件
type OutboxMessage struct {
	ID        string    `gorm:"type:char(36);primaryKey"`
	EventType string    `gorm:"type:varchar(100);index"`
	EventKey  string    `gorm:"type:varchar(64)"`
	Payload   string    `gorm:"type:text"`
	Status    string    `gorm:"type:varchar(20);index:idx_status_created,priority:1;default:'pending'"`
	Attempts  int       `gorm:"default:0"`
	LastError string    `gorm:"type:varchar(512)"`
	CreatedAt time.Time `gorm:"index:idx_status_created,priority:2"`
	UpdatedAt time.Time
}

// TableName 指定表名
func (OutboxMessage) TableName() string {
	return "pricing_outbox_messages"
}

// OutboxEventPublisher 实现 domain.EventPublisher，事件先落库再由 Relay 投递
type OutboxEventPublisher struct {
	db  *gorm.DB
	now func() time.Time
}

func NewOutboxEventPublisher(gdb *gorm.DB) *OutboxEventPublisher {
	return &OutboxEventPublisher{db: gdb, now: time.Now}
}

// Publish 写入 outbox。ctx 中有事务时随事务提交。
func (p *OutboxEventPublisher) Publish(ctx context.Context, eventType, key string, event any) error {
	msg, err := newOutboxMessage(eventType, key, event, p.now())
	if err != nil {
		return err
	}
	return db.Conn(ctx, p.db).Create(msg).Error
}

// PublishInTx 必须与业务写入处于同一事务
func (p *OutboxEventPublisher) PublishInTx(ctx context.Context, eventType, key string, event any) error {
	tx, ok := db.TxFromContext(ctx)
	if !ok {
		return ErrNoTransaction
	}
	msg, err := newOutboxMessage(eventType, key, event, p.now())
	if err != nil {
		return err
	}
	return tx.WithContext(ctx).Create(msg).Error
}

func newOutboxMessage(eventType, key string, event any, now time.Time) (*OutboxMessage, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("encode %s event: %w", eventType, err)
	}
	return &OutboxMessage{
		ID:        uuid.NewString(),
		EventType: eventType,
		EventKey:  key,
		Payload:   string(payload),
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}
