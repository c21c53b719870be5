package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"pitchforge-ai-api/internal/domain/entity"
	"pitchforge-ai-api/pkg/logger"
)

var tracer = otel.Tracer("messaging")

// Producer 消息生产者
type Producer struct {
	client *redis.Client
	maxLen int64
}

// NewProducer 创建消息生产者
func NewProducer(client *redis.Client, maxLen int64) *Producer {
	if maxLen <= 0 {
		maxLen = 100000
	}
	return &Producer{
		client: client,
		maxLen: maxLen,
	}
}

// Publish 发布消息到指定流
func (p *Producer) Publish(ctx context.Context, stream Stream, msg *Message) (string, error) {
	ctx, span := tracer.Start(ctx, "producer.Publish",
		trace.WithAttributes(
			attribute.String("stream", string(stream)),
			attribute.String("message.id", msg.ID),
			attribute.String("message.type", msg.Type),
		))
	defer span.End()

	data, err := json.Marshal(msg)
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("failed to marshal message: %w", err)
	}

	result, err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: string(stream),
		MaxLen: p.maxLen,
		Approx: true,
		Values: map[string]interface{}{
			"data": string(data),
		},
	}).Result()

	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("failed to publish message: %w", err)
	}

	span.SetAttributes(attribute.String("stream.message_id", result))
	return result, nil
}

// PublishDeckJob 发布演示文稿生成任务
func (p *Producer) PublishDeckJob(ctx context.Context, job *entity.DeckJob) (string, error) {
	msg, err := newDeckJobMessage(ctx, job)
	if err != nil {
		return "", err
	}
	return p.Publish(ctx, StreamDeckJobs, msg)
}

func newDeckJobMessage(ctx context.Context, job *entity.DeckJob) (*Message, error) {
	payload := DeckJobMessage{JobID: job.ID}
	if reqID, ok := ctx.Value(logger.RequestIDKey).(string); ok {
		payload.RequestID = reqID
	}

	msg, err := NewMessage(job.ID, MessageTypeDeckJob, payload)
	if err != nil {
		return nil, err
	}
	if payload.RequestID != "" {
		msg.SetMetadata("request_id", payload.RequestID)
	}
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		msg.SetMetadata("trace_id", sc.TraceID().String())
	}
	return msg, nil
}
