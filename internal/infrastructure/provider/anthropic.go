package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"seo-article-api/internal/application/orchestrator"
	"seo-article-api/internal/config"
)

// Anthropic Anthropic Messages API 适配器
type Anthropic struct {
	client anthropic.Client
	model  string
}

// NewAnthropic 创建 Anthropic 适配器
func NewAnthropic(cfg config.ProviderConfig) *Anthropic {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &Anthropic{
		client: anthropic.NewClient(opts...),
		model:  cfg.Model,
	}
}

// Name 实现 orchestrator.Adapter
func (a *Anthropic) Name() string { return "anthropic" }

// Model 实现 orchestrator.Adapter
func (a *Anthropic) Model() string { return a.model }

// Generate 执行一次文本生成
func (a *Anthropic) Generate(ctx context.Context, prompt string, opts orchestrator.GenerateOptions) (*orchestrator.Output, error) {
	maxTokens := int64(opts.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(a.model),
		MaxTokens: maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}
	if opts.Temperature > 0 {
		params.Temperature = anthropic.Float(opts.Temperature)
	}

	msg, err := a.client.Messages.New(ctx, params)
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			return nil, classify(a.Name(), apiErr.StatusCode, err)
		}
		return nil, classify(a.Name(), 0, err)
	}

	if len(msg.Content) == 0 {
		return nil, classify(a.Name(), 0, fmt.Errorf("empty message response"))
	}

	var b strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}

	return &orchestrator.Output{
		Content:    b.String(),
		TokensUsed: msg.Usage.InputTokens + msg.Usage.OutputTokens,
	}, nil
}
