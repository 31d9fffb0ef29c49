package provider

import (
	"context"
	"fmt"

	"seo-article-api/internal/application/orchestrator"
)

// Mock 本地开发用的假提供商，返回确定性的占位内容
type Mock struct {
	name  string
	model string
}

// NewMock 创建 Mock 适配器
func NewMock(name, model string) *Mock {
	if model == "" {
		model = "mock-v1"
	}
	return &Mock{name: name, model: model}
}

// Name 实现 orchestrator.Adapter
func (a *Mock) Name() string { return a.name }

// Model 实现 orchestrator.Adapter
func (a *Mock) Model() string { return a.model }

// Generate 返回基于提示词前缀的占位内容
func (a *Mock) Generate(ctx context.Context, prompt string, opts orchestrator.GenerateOptions) (*orchestrator.Output, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	preview := prompt
	if len(preview) > 80 {
		preview = preview[:80]
	}
	return &orchestrator.Output{
		Content:    fmt.Sprintf("[mock response] %s", preview),
		TokensUsed: int64(len(prompt) / 4),
	}, nil
}
