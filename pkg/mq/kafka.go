// Package mq Kafka 生产者封装
package mq

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/wyfcoding/optionlab/pkg/logger"
)

// KafkaConfig Kafka 配置
type KafkaConfig struct {
	Brokers      []string
	MaxRetries   int
	RetryBackoff time.Duration
}

// Message 待发送消息，Value 为已序列化的负载
type Message struct {
	Key     string
	Value   []byte
	Headers map[string]string
}

// KafkaProducer Kafka 生产者
type KafkaProducer struct {
	writer *kafka.Writer
}

// NewProducer 创建生产者，要求全部副本确认
func NewProducer(cfg KafkaConfig) *KafkaProducer {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
		Compression:            kafka.Gzip,
		RequiredAcks:           kafka.RequireAll,
		MaxAttempts:            cfg.MaxRetries,
		WriteBackoffMin:        cfg.RetryBackoff,
		WriteBackoffMax:        10 * cfg.RetryBackoff,
	}
	logger.Info(context.Background(), "kafka producer created", "brokers", cfg.Brokers)
	return &KafkaProducer{writer: writer}
}

// Send 同步发送一批消息到 topic，同 key 的消息进入同一分区
func (kp *KafkaProducer) Send(ctx context.Context, topic string, messages ...Message) error {
	if len(messages) == 0 {
		return nil
	}
	batch := make([]kafka.Message, len(messages))
	for i, m := range messages {
		headers := make([]kafka.Header, 0, len(m.Headers))
		for k, v := range m.Headers {
			headers = append(headers, kafka.Header{Key: k, Value: []byte(v)})
		}
		batch[i] = kafka.Message{
			Topic:   topic,
			Key:     []byte(m.Key),
			Value:   m.Value,
			Headers: headers,
		}
	}
	if err := kp.writer.WriteMessages(ctx, batch...); err != nil {
		logger.Error(ctx, "failed to send kafka messages", "topic", topic, "count", len(batch), "error", err)
		return err
	}
	logger.Debug(ctx, "kafka messages sent", "topic", topic, "count", len(batch))
	return nil
}

// Close 关闭生产者
func (kp *KafkaProducer) Close() error {
	return kp.writer.Close()
}
