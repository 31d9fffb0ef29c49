package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"seo-article-api/internal/application/orchestrator"
	"seo-article-api/internal/config"
)

// OpenAI OpenAI Chat Completions 适配器
type OpenAI struct {
	client openai.Client
	model  string
}

// NewOpenAI 创建 OpenAI 适配器
func NewOpenAI(cfg config.ProviderConfig) *OpenAI {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &OpenAI{
		client: openai.NewClient(opts...),
		model:  cfg.Model,
	}
}

// Name 实现 orchestrator.Adapter
func (a *OpenAI) Name() string { return "openai" }

// Model 实现 orchestrator.Adapter
func (a *OpenAI) Model() string { return a.model }

// Generate 执行一次文本生成
func (a *OpenAI) Generate(ctx context.Context, prompt string, opts orchestrator.GenerateOptions) (*orchestrator.Output, error) {
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(a.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
	}
	if opts.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(opts.MaxTokens))
	}
	if opts.Temperature > 0 {
		params.Temperature = openai.Float(opts.Temperature)
	}

	resp, err := a.client.Chat.Completions.New(ctx, params)
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return nil, classify(a.Name(), apiErr.StatusCode, err)
		}
		return nil, classify(a.Name(), 0, err)
	}

	if len(resp.Choices) == 0 {
		return nil, classify(a.Name(), 0, fmt.Errorf("empty completion response"))
	}

	return &orchestrator.Output{
		Content:    resp.Choices[0].Message.Content,
		TokensUsed: resp.Usage.TotalTokens,
	}, nil
}
