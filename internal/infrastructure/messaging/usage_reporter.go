// Package messaging 提供消息队列实现
package messaging

import (
	"context"
	"time"

	"seo-article-api/internal/domain/entity"
)

// UsageReporter 将用量事件发布到 Redis Stream，供归档 worker 消费
type UsageReporter struct {
	producer *Producer
}

// NewUsageReporter 创建用量事件上报器
func NewUsageReporter(producer *Producer) *UsageReporter {
	return &UsageReporter{producer: producer}
}

// Report 发布一条用量事件
func (r *UsageReporter) Report(ctx context.Context, usage entity.ProviderUsage, at time.Time) error {
	_, err := r.producer.PublishUsageEvent(ctx, &UsageEventMessage{
		Provider:   usage.Provider,
		Model:      usage.Model,
		SessionID:  usage.SessionID,
		ClientID:   usage.ClientID,
		TokensUsed: usage.TokensUsed,
		Cost:       usage.Cost,
		DurationMs: usage.DurationMs,
		OccurredAt: at,
	})
	return err
}
