package workflow

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"seo-article-api/internal/application/orchestrator"
	"seo-article-api/internal/domain/entity"
	"seo-article-api/internal/infrastructure/persistence/memory"
	apperrors "seo-article-api/pkg/errors"
)

// scriptedAdapter 按调用顺序返回预设内容的提供商桩
type scriptedAdapter struct {
	mu      sync.Mutex
	name    string
	calls   int
	failAt  int // 第 N 次调用返回错误，0 表示不失败
	gate    chan struct{}
	prompts []string
}

func (a *scriptedAdapter) Name() string  { return a.name }
func (a *scriptedAdapter) Model() string { return a.name + "-v1" }

func (a *scriptedAdapter) Generate(ctx context.Context, prompt string, _ orchestrator.GenerateOptions) (*orchestrator.Output, error) {
	a.mu.Lock()
	a.calls++
	n := a.calls
	a.prompts = append(a.prompts, prompt)
	gate := a.gate
	a.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if a.failAt > 0 && n >= a.failAt {
		return nil, apperrors.New(apperrors.CodeProviderTransient, "upstream unavailable")
	}
	return &orchestrator.Output{
		Content:    fmt.Sprintf("step output %d", n),
		TokensUsed: 50,
	}, nil
}

func (a *scriptedAdapter) callCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls
}

func newTestEngine(adapter *scriptedAdapter) (*Engine, *memory.SessionStore) {
	store := memory.NewSessionStore(time.Hour)
	orch := orchestrator.NewOrchestrator(
		map[string]orchestrator.Adapter{adapter.name: adapter},
		map[string]orchestrator.ProviderSpec{adapter.name: {Priority: 1, Timeout: 5 * time.Second}},
		nil, 0,
	)
	return NewEngine(store, orch, 4), store
}

func waitForTerminal(t *testing.T, engine *Engine, sessionID string) *entity.WorkflowSession {
	t.Helper()
	var sess *entity.WorkflowSession
	require.Eventually(t, func() bool {
		got, err := engine.GetStatus(context.Background(), sessionID)
		if err != nil {
			return false
		}
		sess = got
		return sess.IsTerminal()
	}, 5*time.Second, 10*time.Millisecond)
	return sess
}

func TestEngineRunsAllStepsToCompletion(t *testing.T) {
	adapter := &scriptedAdapter{name: "mock"}
	engine, _ := newTestEngine(adapter)

	sess, err := engine.StartSession(context.Background(), "march birth flowers", "client-1")
	require.NoError(t, err)
	assert.Equal(t, entity.WorkflowStatusStarted, sess.Status)

	final := waitForTerminal(t, engine, sess.ID)
	require.Equal(t, entity.WorkflowStatusCompleted, final.Status)
	assert.Equal(t, 100, final.Progress)
	assert.NotNil(t, final.CompletedAt)
	assert.Equal(t, len(entity.StepSequence), adapter.callCount())

	for _, step := range entity.StepSequence {
		result, ok := final.StepResults[step]
		require.True(t, ok, "missing result for step %s", step)
		assert.NotEmpty(t, result.Content)
		assert.Equal(t, "mock", result.Provider)
	}

	// 编辑和分析步骤的提示词只消费前序产出，其余步骤包含主题
	topicSteps := map[entity.WorkflowStep]bool{
		entity.StepResearch:    true,
		entity.StepPlanning:    true,
		entity.StepWriting:     true,
		entity.StepPublishing:  true,
		entity.StepImprovement: true,
	}
	for i, step := range entity.StepSequence {
		if topicSteps[step] {
			assert.Contains(t, adapter.prompts[i], "march birth flowers", "step %s", step)
		} else {
			assert.NotContains(t, adapter.prompts[i], "march birth flowers", "step %s", step)
		}
	}

	results, err := engine.GetResults(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.Len(t, results.StepResults, len(entity.StepSequence))
}

func TestEngineProgressMilestones(t *testing.T) {
	gate := make(chan struct{})
	adapter := &scriptedAdapter{name: "mock", gate: gate}
	engine, _ := newTestEngine(adapter)

	sess, err := engine.StartSession(context.Background(), "tulip care", "")
	require.NoError(t, err)

	milestones := []int{14, 28, 42, 57, 71, 85, 100}
	for i := range entity.StepSequence {
		gate <- struct{}{}
		want := milestones[i]
		require.Eventually(t, func() bool {
			cur, err := engine.GetStatus(context.Background(), sess.ID)
			return err == nil && cur.Progress >= want
		}, 5*time.Second, 5*time.Millisecond, "step %d never reached progress %d", i, want)

		cur, err := engine.GetStatus(context.Background(), sess.ID)
		require.NoError(t, err)
		assert.Equal(t, want, cur.Progress)
	}

	final := waitForTerminal(t, engine, sess.ID)
	assert.Equal(t, entity.WorkflowStatusCompleted, final.Status)
}

func TestEngineHaltsOnStepFailure(t *testing.T) {
	adapter := &scriptedAdapter{name: "mock", failAt: 3}
	engine, _ := newTestEngine(adapter)

	sess, err := engine.StartSession(context.Background(), "rose pruning", "")
	require.NoError(t, err)

	final := waitForTerminal(t, engine, sess.ID)
	require.Equal(t, entity.WorkflowStatusError, final.Status)
	require.NotNil(t, final.ErrorDetail)

	// 第三步 writing 失败，前两步结果保留
	assert.Equal(t, entity.StepWriting, final.ErrorDetail.Step)
	assert.Equal(t, "all providers exhausted", final.ErrorDetail.Reason)
	require.Len(t, final.ErrorDetail.Attempts, 1)
	assert.Equal(t, "mock", final.ErrorDetail.Attempts[0].Provider)

	assert.Len(t, final.StepResults, 2)
	assert.Contains(t, final.StepResults, entity.StepResearch)
	assert.Contains(t, final.StepResults, entity.StepPlanning)
	assert.NotContains(t, final.StepResults, entity.StepWriting)

	// 失败后不再执行后续步骤
	assert.Equal(t, 3, adapter.callCount())

	_, err = engine.GetResults(context.Background(), sess.ID)
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeSessionNotCompleted, apperrors.AsAppError(err).Code)
}

func TestEngineCancelAtStepBoundary(t *testing.T) {
	gate := make(chan struct{})
	adapter := &scriptedAdapter{name: "mock", gate: gate}
	engine, _ := newTestEngine(adapter)

	sess, err := engine.StartSession(context.Background(), "orchid watering", "")
	require.NoError(t, err)

	// 等待第一步进入执行
	require.Eventually(t, func() bool {
		return adapter.callCount() == 1
	}, 5*time.Second, 5*time.Millisecond)

	require.NoError(t, engine.Cancel(context.Background(), sess.ID))

	// 放行第一步，取消应在第二步边界生效
	gate <- struct{}{}

	final := waitForTerminal(t, engine, sess.ID)
	require.Equal(t, entity.WorkflowStatusError, final.Status)
	require.NotNil(t, final.ErrorDetail)
	assert.Equal(t, "cancelled", final.ErrorDetail.Reason)
	assert.Equal(t, entity.StepPlanning, final.ErrorDetail.Step)

	// 已完成的第一步结果保留，后续步骤未执行
	assert.Contains(t, final.StepResults, entity.StepResearch)
	assert.Equal(t, 1, adapter.callCount())
}

func TestEngineCancelDuringFinalStep(t *testing.T) {
	gate := make(chan struct{})
	adapter := &scriptedAdapter{name: "mock", gate: gate}
	engine, _ := newTestEngine(adapter)

	sess, err := engine.StartSession(context.Background(), "lavender drying", "")
	require.NoError(t, err)

	// 放行前六步，等待最后一步进入执行
	for i := 0; i < len(entity.StepSequence)-1; i++ {
		gate <- struct{}{}
	}
	require.Eventually(t, func() bool {
		return adapter.callCount() == len(entity.StepSequence)
	}, 5*time.Second, 5*time.Millisecond)

	require.NoError(t, engine.Cancel(context.Background(), sess.ID))

	// 最后一步执行中到达的取消在完成边界生效
	gate <- struct{}{}

	final := waitForTerminal(t, engine, sess.ID)
	require.Equal(t, entity.WorkflowStatusError, final.Status)
	require.NotNil(t, final.ErrorDetail)
	assert.Equal(t, "cancelled", final.ErrorDetail.Reason)
	assert.Equal(t, entity.StepImprovement, final.ErrorDetail.Step)

	// 全部步骤已执行完毕，结果保留
	assert.Equal(t, len(entity.StepSequence), adapter.callCount())
	assert.Len(t, final.StepResults, len(entity.StepSequence))
}

func TestEngineCancelTerminalSession(t *testing.T) {
	adapter := &scriptedAdapter{name: "mock"}
	engine, _ := newTestEngine(adapter)

	sess, err := engine.StartSession(context.Background(), "daffodil facts", "")
	require.NoError(t, err)
	waitForTerminal(t, engine, sess.ID)

	err = engine.Cancel(context.Background(), sess.ID)
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeSessionTerminal, apperrors.AsAppError(err).Code)
}

func TestEngineStartSessionEmptyTopic(t *testing.T) {
	adapter := &scriptedAdapter{name: "mock"}
	engine, _ := newTestEngine(adapter)

	_, err := engine.StartSession(context.Background(), "   ", "")
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeInvalidRequest, apperrors.AsAppError(err).Code)
}

func TestEngineGetStatusUnknownSession(t *testing.T) {
	adapter := &scriptedAdapter{name: "mock"}
	engine, _ := newTestEngine(adapter)

	_, err := engine.GetStatus(context.Background(), "no-such-session")
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeSessionNotFound, apperrors.AsAppError(err).Code)
}

func TestEngineDeleteSession(t *testing.T) {
	adapter := &scriptedAdapter{name: "mock"}
	engine, _ := newTestEngine(adapter)

	sess, err := engine.StartSession(context.Background(), "peony season", "")
	require.NoError(t, err)
	waitForTerminal(t, engine, sess.ID)

	require.NoError(t, engine.DeleteSession(context.Background(), sess.ID))
	_, err = engine.GetStatus(context.Background(), sess.ID)
	require.Error(t, err)
}

func TestEngineShutdownWaitsForSessions(t *testing.T) {
	adapter := &scriptedAdapter{name: "mock"}
	engine, _ := newTestEngine(adapter)

	for i := 0; i < 3; i++ {
		_, err := engine.StartSession(context.Background(), fmt.Sprintf("topic %d", i), "")
		require.NoError(t, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, engine.Shutdown(ctx))
}

func TestEngineConcurrentSessions(t *testing.T) {
	adapter := &scriptedAdapter{name: "mock"}
	engine, _ := newTestEngine(adapter)

	ids := make([]string, 0, 5)
	for i := 0; i < 5; i++ {
		sess, err := engine.StartSession(context.Background(), fmt.Sprintf("flower %d", i), "")
		require.NoError(t, err)
		ids = append(ids, sess.ID)
	}

	for _, id := range ids {
		final := waitForTerminal(t, engine, id)
		assert.Equal(t, entity.WorkflowStatusCompleted, final.Status)
	}
}
