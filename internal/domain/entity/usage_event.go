// Package entity 定义领域实体
package entity

import "time"

// UsageEvent 提供商用量事件，异步归档到 Postgres
type UsageEvent struct {
	ID         string    `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Provider   string    `json:"provider" gorm:"type:varchar(32);index;not null"`
	Model      string    `json:"model" gorm:"type:varchar(64);not null"`
	SessionID  string    `json:"session_id,omitempty" gorm:"type:uuid"`
	ClientID   string    `json:"client_id,omitempty" gorm:"type:varchar(64);index"`
	TokensUsed int64     `json:"tokens_used" gorm:"not null;default:0"`
	Cost       float64   `json:"cost" gorm:"type:numeric(12,6);not null;default:0"`
	DurationMs int64     `json:"duration_ms" gorm:"not null;default:0"`
	OccurredAt time.Time `json:"occurred_at" gorm:"index;not null"`
	CreatedAt  time.Time `json:"created_at" gorm:"autoCreateTime"`
}

func (UsageEvent) TableName() string {
	return "provider_usage_events"
}

// ProviderUsage 一次成功调用的用量记录
type ProviderUsage struct {
	Provider   string  `json:"provider"`
	Model      string  `json:"model"`
	SessionID  string  `json:"session_id,omitempty"`
	ClientID   string  `json:"client_id,omitempty"`
	TokensUsed int64   `json:"tokens_used"`
	Cost       float64 `json:"cost"`
	DurationMs int64   `json:"duration_ms"`
}
