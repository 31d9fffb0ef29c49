// Package dto 提供 HTTP 层数据传输对象
package dto

import (
	"seo-article-api/internal/domain/entity"
)

// GenerateContentRequest 单次内容生成请求
type GenerateContentRequest struct {
	Prompt      string  `json:"prompt" binding:"required"`
	Provider    string  `json:"provider,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
}

// GenerateContentResponse 单次内容生成响应
type GenerateContentResponse struct {
	Content      string                   `json:"content"`
	Provider     string                   `json:"provider"`
	Model        string                   `json:"model"`
	TokensUsed   int64                    `json:"tokens_used"`
	CostEstimate float64                  `json:"cost_estimate"`
	DurationMs   int64                    `json:"duration_ms"`
	Attempts     []entity.ProviderAttempt `json:"attempts,omitempty"`
}
