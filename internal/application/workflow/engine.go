package workflow

import (
	"context"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"seo-article-api/internal/application/orchestrator"
	"seo-article-api/internal/domain/entity"
	"seo-article-api/internal/domain/repository"
	apperrors "seo-article-api/pkg/errors"
	"seo-article-api/pkg/logger"
	"seo-article-api/pkg/metrics"
	"seo-article-api/pkg/tracer"
)

// Engine 内容生成工作流引擎
// 每个会话由独立 goroutine 顺序执行全部步骤，会话间并发受信号量约束
type Engine struct {
	store repository.SessionStore
	orch  *orchestrator.Orchestrator
	sem   *semaphore.Weighted
	wg    sync.WaitGroup
}

// NewEngine 创建工作流引擎
func NewEngine(store repository.SessionStore, orch *orchestrator.Orchestrator, maxConcurrentSessions int64) *Engine {
	if maxConcurrentSessions <= 0 {
		maxConcurrentSessions = 32
	}
	return &Engine{
		store: store,
		orch:  orch,
		sem:   semaphore.NewWeighted(maxConcurrentSessions),
	}
}

// StartSession 创建会话并在后台启动执行
func (e *Engine) StartSession(ctx context.Context, topic, clientID string) (*entity.WorkflowSession, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, apperrors.New(apperrors.CodeInvalidRequest, "topic is empty")
	}

	sess := entity.NewWorkflowSession(topic, clientID)
	if err := e.store.Create(ctx, sess); err != nil {
		return nil, err
	}

	logger.Info(ctx, "workflow session started", "session_id", sess.ID, "topic", topic)

	e.wg.Add(1)
	go e.run(sess.ID)

	return sess.Clone(), nil
}

// GetStatus 获取会话当前状态快照
func (e *Engine) GetStatus(ctx context.Context, sessionID string) (*entity.WorkflowSession, error) {
	return e.store.Get(ctx, sessionID)
}

// GetResults 获取已完成会话的全部步骤结果
// 未完成的会话返回冲突错误
func (e *Engine) GetResults(ctx context.Context, sessionID string) (*entity.WorkflowSession, error) {
	sess, err := e.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Status != entity.WorkflowStatusCompleted {
		return nil, apperrors.ErrSessionNotCompleted.WithDetail(string(sess.Status))
	}
	return sess, nil
}

// Cancel 请求取消会话，在下一个步骤边界生效
func (e *Engine) Cancel(ctx context.Context, sessionID string) error {
	sess, err := e.store.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	if sess.IsTerminal() {
		return apperrors.ErrSessionTerminal.WithDetail(string(sess.Status))
	}
	return e.store.RequestCancel(ctx, sessionID)
}

// DeleteSession 删除会话
func (e *Engine) DeleteSession(ctx context.Context, sessionID string) error {
	return e.store.Delete(ctx, sessionID)
}

// Shutdown 等待所有运行中的会话结束，超时后放弃等待
func (e *Engine) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// run 在后台执行一个会话的全部步骤
// 使用独立 context，不随发起请求的结束而取消
func (e *Engine) run(sessionID string) {
	defer e.wg.Done()

	ctx := logger.WithContext(context.Background(), logger.SessionIDKey, sessionID)
	ctx, span := tracer.Start(ctx, "workflow.run")
	defer span.End()

	if err := e.sem.Acquire(ctx, 1); err != nil {
		logger.Error(ctx, "failed to acquire session slot", err)
		return
	}
	defer e.sem.Release(1)

	metrics.ActiveSessions.Inc()
	defer metrics.ActiveSessions.Dec()

	sess, err := e.store.Get(ctx, sessionID)
	if err != nil {
		logger.Error(ctx, "session disappeared before execution", err)
		return
	}
	topic, clientID := sess.Topic, sess.ClientID

	total := len(stepSpecs)
	for i, spec := range stepSpecs {
		// 取消在步骤边界生效，重新读取快照以观察取消标记
		cur, err := e.store.Get(ctx, sessionID)
		if err != nil {
			logger.Error(ctx, "failed to load session", err)
			return
		}
		if cur.CancelRequested {
			cur.MarkCancelled(spec.step)
			if err := e.store.Update(ctx, cur); err != nil {
				logger.Error(ctx, "failed to persist cancelled session", err)
			}
			metrics.WorkflowSessionsTotal.WithLabelValues("cancelled").Inc()
			logger.Info(ctx, "workflow session cancelled", "step", spec.step)
			return
		}

		cur.Begin(spec.step)
		if err := e.store.Update(ctx, cur); err != nil {
			logger.Error(ctx, "failed to persist session step", err)
			return
		}

		start := time.Now()
		result, err := e.orch.Generate(ctx, orchestrator.Request{
			Prompt:    spec.buildPrompt(topic, cur.StepResults),
			SessionID: sessionID,
			ClientID:  clientID,
		})
		if err != nil {
			e.fail(ctx, cur, spec.step, err.Error(), nil)
			return
		}
		if !result.Success {
			e.fail(ctx, cur, spec.step, "all providers exhausted", result.Attempts)
			return
		}

		metrics.WorkflowStepTotal.WithLabelValues(string(spec.step), "success").Inc()
		metrics.WorkflowStepDuration.WithLabelValues(string(spec.step)).Observe(time.Since(start).Seconds())

		cur.SetStepResult(spec.step, entity.StepResult{
			Content:     result.Content,
			Provider:    result.Provider,
			TokensUsed:  result.TokensUsed,
			DurationMs:  result.DurationMs,
			CompletedAt: time.Now(),
		}, (i+1)*100/total)
		if err := e.store.Update(ctx, cur); err != nil {
			logger.Error(ctx, "failed to persist step result", err)
			return
		}

		logger.Info(ctx, "workflow step completed",
			"step", spec.step,
			"provider", result.Provider,
			"progress", cur.Progress,
		)
	}

	final, err := e.store.Get(ctx, sessionID)
	if err != nil {
		logger.Error(ctx, "failed to load session for completion", err)
		return
	}
	// 最后一步执行期间到达的取消在完成边界生效
	if final.CancelRequested {
		final.MarkCancelled(final.CurrentStep)
		if err := e.store.Update(ctx, final); err != nil {
			logger.Error(ctx, "failed to persist cancelled session", err)
		}
		metrics.WorkflowSessionsTotal.WithLabelValues("cancelled").Inc()
		logger.Info(ctx, "workflow session cancelled", "step", final.CurrentStep)
		return
	}
	final.MarkCompleted()
	if err := e.store.Update(ctx, final); err != nil {
		logger.Error(ctx, "failed to persist completed session", err)
		return
	}
	metrics.WorkflowSessionsTotal.WithLabelValues("completed").Inc()
	logger.Info(ctx, "workflow session completed", "topic", topic)
}

// fail 将会话标记为失败态并落库
func (e *Engine) fail(ctx context.Context, sess *entity.WorkflowSession, step entity.WorkflowStep, reason string, attempts []entity.ProviderAttempt) {
	metrics.WorkflowStepTotal.WithLabelValues(string(step), "error").Inc()
	metrics.WorkflowSessionsTotal.WithLabelValues("error").Inc()

	sess.MarkFailed(step, reason, attempts)
	if err := e.store.Update(ctx, sess); err != nil {
		logger.Error(ctx, "failed to persist failed session", err)
		return
	}
	logger.Warn(ctx, "workflow session failed", "step", step, "reason", reason)
}
