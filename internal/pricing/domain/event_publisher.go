package domain

import "context"

// EventPublisher 事件发布者接口
type EventPublisher interface {
	// Publish 在独立事务中写入事件
	Publish(ctx context.Context, eventType, key string, event any) error

	// PublishInTx 使用 ctx 中携带的事务写入事件，与业务数据同时提交
	PublishInTx(ctx context.Context, eventType, key string, event any) error
}
