package kafka

import (
	"EnterpriseAgent/backend/go/internal/models"
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/segmentio/kafka-go"
)

// messageWriter 是 *kafka.Writer 中被用到的部分。
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// EventPublisher 封装了向 Kafka 发送查询记录事件的逻辑。
type EventPublisher struct {
	writer messageWriter
}

// NewEventPublisher 创建一个新的 EventPublisher 实例。
func NewEventPublisher(w messageWriter) *EventPublisher {
	return &EventPublisher{writer: w}
}

// PublishQueryRecorded 将事件序列化为 JSON 并发送到 Kafka。
// 以用户 ID 作为消息键，同一用户的事件落在同一分区上保持顺序。
func (p *EventPublisher) PublishQueryRecorded(ctx context.Context, event *models.QueryRecordedEvent) error {
	jsonData, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal query event: %w", err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(strconv.FormatUint(uint64(event.UserID), 10)),
		Value: jsonData,
	})
	if err != nil {
		return fmt.Errorf("failed to write message to kafka: %w", err)
	}
	return nil
}

// Close 关闭底层的 writer 连接。
func (p *EventPublisher) Close() error {
	return p.writer.Close()
}
