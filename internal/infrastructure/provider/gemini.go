package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"seo-article-api/internal/application/orchestrator"
	"seo-article-api/internal/config"
)

// Gemini Google Gemini 适配器
type Gemini struct {
	client *genai.Client
	model  string
}

// NewGemini 创建 Gemini 适配器
func NewGemini(ctx context.Context, cfg config.ProviderConfig) (*Gemini, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &Gemini{
		client: client,
		model:  cfg.Model,
	}, nil
}

// Name 实现 orchestrator.Adapter
func (a *Gemini) Name() string { return "gemini" }

// Model 实现 orchestrator.Adapter
func (a *Gemini) Model() string { return a.model }

// Generate 执行一次文本生成
func (a *Gemini) Generate(ctx context.Context, prompt string, opts orchestrator.GenerateOptions) (*orchestrator.Output, error) {
	model := a.client.GenerativeModel(a.model)
	if opts.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(opts.MaxTokens))
	}
	if opts.Temperature > 0 {
		model.SetTemperature(float32(opts.Temperature))
	}

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) {
			return nil, classify(a.Name(), apiErr.Code, err)
		}
		return nil, classify(a.Name(), 0, err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, classify(a.Name(), 0, fmt.Errorf("empty generation response"))
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}

	var tokens int64
	if resp.UsageMetadata != nil {
		tokens = int64(resp.UsageMetadata.TotalTokenCount)
	}

	return &orchestrator.Output{
		Content:    b.String(),
		TokensUsed: tokens,
	}, nil
}

// Close 释放底层 gRPC 连接
func (a *Gemini) Close() error {
	return a.client.Close()
}
