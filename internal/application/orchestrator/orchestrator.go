package orchestrator

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"seo-article-api/internal/domain/entity"
	apperrors "seo-article-api/pkg/errors"
	"seo-article-api/pkg/logger"
	"seo-article-api/pkg/metrics"
	"seo-article-api/pkg/tracer"
)

// 失败原因，记录在尝试日志中
const (
	ReasonOverQuota   = "over_quota"
	ReasonRateLimited = "rate_limited"
	ReasonAuthFailed  = "auth_failed"
	ReasonTransient   = "transient_error"
	ReasonUnknown     = "unknown_error"
)

// DefaultCallTimeout 单次提供商调用的默认超时
const DefaultCallTimeout = 30 * time.Second

// ProviderSpec 提供商在编排器中的静态参数
type ProviderSpec struct {
	Priority       int
	CostPerRequest float64
	Timeout        time.Duration
	MaxTokens      int
	Temperature    float64
}

// Request 一次编排生成请求
type Request struct {
	Prompt            string
	PreferredProvider string
	MaxTokens         int
	Temperature       float64
	SessionID         string
	ClientID          string
}

// Result 编排生成结果
// Success 为 false 时 Attempts 记录按尝试顺序排列的全部失败原因
type Result struct {
	Success      bool                     `json:"success"`
	Provider     string                   `json:"provider,omitempty"`
	Model        string                   `json:"model,omitempty"`
	Content      string                   `json:"content,omitempty"`
	TokensUsed   int64                    `json:"tokens_used,omitempty"`
	CostEstimate float64                  `json:"cost_estimate,omitempty"`
	DurationMs   int64                    `json:"duration_ms,omitempty"`
	Attempts     []entity.ProviderAttempt `json:"attempts,omitempty"`
}

// Orchestrator 多提供商调度器
// 按首选 -> 优先级升序依次尝试，每个提供商至多一次
type Orchestrator struct {
	adapters       map[string]Adapter
	specs          map[string]ProviderSpec
	tracker        QuotaTracker
	defaultTimeout time.Duration
}

// NewOrchestrator 创建编排器
func NewOrchestrator(adapters map[string]Adapter, specs map[string]ProviderSpec, tracker QuotaTracker, defaultTimeout time.Duration) *Orchestrator {
	if defaultTimeout <= 0 {
		defaultTimeout = DefaultCallTimeout
	}
	return &Orchestrator{
		adapters:       adapters,
		specs:          specs,
		tracker:        tracker,
		defaultTimeout: defaultTimeout,
	}
}

// Providers 返回已注册的提供商名称，按优先级升序
func (o *Orchestrator) Providers() []string {
	return o.candidateOrder("")
}

// Generate 执行一次带故障转移的生成
// 成功时恰好记录一次用量；全部失败时返回 Success=false 的结果而非 error，
// error 仅用于请求本身非法（空 prompt、未知首选提供商）
func (o *Orchestrator) Generate(ctx context.Context, req Request) (*Result, error) {
	ctx, span := tracer.Start(ctx, "orchestrator.Generate")
	defer span.End()

	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return nil, apperrors.New(apperrors.CodeInvalidRequest, "prompt is empty")
	}
	if req.PreferredProvider != "" {
		if _, ok := o.adapters[req.PreferredProvider]; !ok {
			return nil, apperrors.New(apperrors.CodeProviderNotConfigured, "provider not configured").WithDetail(req.PreferredProvider)
		}
	}

	attempts := make([]entity.ProviderAttempt, 0, len(o.adapters))
	for _, name := range o.candidateOrder(req.PreferredProvider) {
		if o.tracker != nil && !o.tracker.IsWithinQuota(name) {
			attempts = append(attempts, entity.ProviderAttempt{Provider: name, Reason: ReasonOverQuota})
			metrics.ProviderSkippedTotal.WithLabelValues(name, ReasonOverQuota).Inc()
			logger.Debug(ctx, "provider skipped", "provider", name, "reason", ReasonOverQuota)
			continue
		}

		adapter := o.adapters[name]
		spec := o.specs[name]
		out, elapsed, err := o.callOnce(ctx, adapter, spec, prompt, req)
		if err != nil {
			reason := attemptReason(err)
			attempts = append(attempts, entity.ProviderAttempt{Provider: name, Reason: reason})
			metrics.ProviderCallTotal.WithLabelValues(name, reason).Inc()
			logger.Warn(ctx, "provider call failed",
				"provider", name, "reason", reason, "error", err.Error())
			continue
		}

		durationMs := elapsed.Milliseconds()
		metrics.ProviderCallTotal.WithLabelValues(name, "success").Inc()
		metrics.ProviderCallDuration.WithLabelValues(name).Observe(elapsed.Seconds())
		metrics.ProviderTokensUsed.WithLabelValues(name).Add(float64(out.TokensUsed))
		span.SetAttributes(
			attribute.String("llm.provider", name),
			attribute.Int64("llm.tokens_used", out.TokensUsed),
		)

		if o.tracker != nil {
			o.tracker.Record(ctx, entity.ProviderUsage{
				Provider:   name,
				Model:      adapter.Model(),
				SessionID:  req.SessionID,
				ClientID:   req.ClientID,
				TokensUsed: out.TokensUsed,
				Cost:       spec.CostPerRequest,
				DurationMs: durationMs,
			})
		}

		return &Result{
			Success:      true,
			Provider:     name,
			Model:        adapter.Model(),
			Content:      out.Content,
			TokensUsed:   out.TokensUsed,
			CostEstimate: spec.CostPerRequest,
			DurationMs:   durationMs,
			Attempts:     attempts,
		}, nil
	}

	logger.Warn(ctx, "all providers exhausted", "attempts", len(attempts))
	return &Result{Success: false, Attempts: attempts}, nil
}

// callOnce 以单次超时执行一个提供商调用
func (o *Orchestrator) callOnce(ctx context.Context, adapter Adapter, spec ProviderSpec, prompt string, req Request) (*Output, time.Duration, error) {
	timeout := spec.Timeout
	if timeout <= 0 {
		timeout = o.defaultTimeout
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	callCtx, span := tracer.Start(callCtx, "provider.Generate",
		trace.WithAttributes(attribute.String("llm.provider", adapter.Name())))
	defer span.End()

	opts := GenerateOptions{
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = spec.MaxTokens
	}
	if opts.Temperature <= 0 {
		opts.Temperature = spec.Temperature
	}

	start := time.Now()
	out, err := adapter.Generate(callCtx, prompt, opts)
	return out, time.Since(start), err
}

// candidateOrder 计算尝试顺序：首选提供商在前，其余按优先级升序
func (o *Orchestrator) candidateOrder(preferred string) []string {
	rest := make([]string, 0, len(o.adapters))
	for name := range o.adapters {
		if name != preferred {
			rest = append(rest, name)
		}
	}
	sort.Slice(rest, func(i, j int) bool {
		pi, pj := o.specs[rest[i]].Priority, o.specs[rest[j]].Priority
		if pi != pj {
			return pi < pj
		}
		return rest[i] < rest[j]
	})

	if preferred == "" {
		return rest
	}
	if _, ok := o.adapters[preferred]; !ok {
		return rest
	}
	return append([]string{preferred}, rest...)
}

// attemptReason 将适配器错误归类为尝试日志中的失败原因
func attemptReason(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return ReasonTransient
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		switch appErr.Code {
		case apperrors.CodeProviderRateLimited:
			return ReasonRateLimited
		case apperrors.CodeProviderAuthFailed:
			return ReasonAuthFailed
		case apperrors.CodeProviderTransient:
			return ReasonTransient
		}
	}
	return ReasonUnknown
}
