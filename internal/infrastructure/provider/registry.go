package provider

import (
	"context"
	"fmt"
	"strings"

	"seo-article-api/internal/application/orchestrator"
	"seo-article-api/internal/application/quota"
	"seo-article-api/internal/config"
	"seo-article-api/pkg/logger"
)

// NewAdapters 根据配置构建提供商适配器集合
// 缺少 API Key 的提供商会被跳过并告警，mock 提供商不需要 Key
func NewAdapters(ctx context.Context, cfg config.LLMConfig) (map[string]orchestrator.Adapter, error) {
	adapters := make(map[string]orchestrator.Adapter, len(cfg.Providers))

	for name, pc := range cfg.Providers {
		if name != "mock" && strings.TrimSpace(pc.APIKey) == "" {
			logger.Warn(ctx, "provider skipped: missing api key", "provider", name)
			continue
		}

		switch name {
		case "openai":
			adapters[name] = NewOpenAI(pc)
		case "gemini":
			a, err := NewGemini(ctx, pc)
			if err != nil {
				return nil, err
			}
			adapters[name] = a
		case "anthropic":
			adapters[name] = NewAnthropic(pc)
		case "mock":
			adapters[name] = NewMock(name, pc.Model)
		default:
			logger.Warn(ctx, "unknown provider in config", "provider", name)
		}
	}

	if len(adapters) == 0 {
		return nil, fmt.Errorf("no llm providers configured")
	}
	return adapters, nil
}

// Specs 提取编排器所需的提供商静态参数
func Specs(cfg config.LLMConfig) map[string]orchestrator.ProviderSpec {
	specs := make(map[string]orchestrator.ProviderSpec, len(cfg.Providers))
	for name, pc := range cfg.Providers {
		specs[name] = orchestrator.ProviderSpec{
			Priority:       pc.Priority,
			CostPerRequest: pc.CostPerRequest,
			Timeout:        pc.Timeout,
			MaxTokens:      pc.MaxTokens,
			Temperature:    pc.Temperature,
		}
	}
	return specs
}

// QuotaLimits 提取配额跟踪器所需的限额配置
func QuotaLimits(cfg config.LLMConfig) map[string]quota.Limits {
	limits := make(map[string]quota.Limits, len(cfg.Providers))
	for name, pc := range cfg.Providers {
		limits[name] = quota.Limits{
			Daily:          pc.DailyQuota,
			Monthly:        pc.MonthlyQuota,
			CostPerRequest: pc.CostPerRequest,
		}
	}
	return limits
}
