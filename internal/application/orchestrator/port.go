// Package orchestrator 提供多提供商 LLM 调度与故障转移能力
package orchestrator

import (
	"context"

	"seo-article-api/internal/domain/entity"
)

// GenerateOptions 单次生成的调用参数
type GenerateOptions struct {
	MaxTokens   int
	Temperature float64
}

// Output 适配器返回的生成结果
type Output struct {
	Content    string
	TokensUsed int64
}

// Adapter 单个 LLM 提供商的统一调用接口
// Generate 失败时返回 pkg/errors 中的提供商错误码，
// 以便编排器归类为 rate_limited / auth_failed / transient_error / unknown_error
type Adapter interface {
	// Name 返回提供商名称 (gemini / anthropic / openai)
	Name() string
	// Model 返回当前配置的模型名
	Model() string
	// Generate 执行一次文本生成
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (*Output, error)
}

// QuotaTracker 提供商配额检查与用量记录接口
type QuotaTracker interface {
	// IsWithinQuota 检查提供商是否仍有日/月配额
	IsWithinQuota(provider string) bool
	// Record 记录一次成功调用的用量
	Record(ctx context.Context, usage entity.ProviderUsage)
}
