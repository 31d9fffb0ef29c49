package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"seo-article-api/internal/domain/entity"
	apperrors "seo-article-api/pkg/errors"
)

func TestSessionStoreCreateAndGet(t *testing.T) {
	store := NewSessionStore(time.Hour)
	ctx := context.Background()

	sess := entity.NewWorkflowSession("winter gardening", "client-1")
	require.NoError(t, store.Create(ctx, sess))

	got, err := store.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, sess.ID, got.ID)
	assert.Equal(t, "winter gardening", got.Topic)
	assert.Equal(t, entity.WorkflowStatusStarted, got.Status)
}

func TestSessionStoreCreateConflict(t *testing.T) {
	store := NewSessionStore(time.Hour)
	ctx := context.Background()

	sess := entity.NewWorkflowSession("topic", "")
	require.NoError(t, store.Create(ctx, sess))

	err := store.Create(ctx, sess)
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeConflict, apperrors.AsAppError(err).Code)
}

func TestSessionStoreGetNotFound(t *testing.T) {
	store := NewSessionStore(time.Hour)

	_, err := store.Get(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeSessionNotFound, apperrors.AsAppError(err).Code)
}

func TestSessionStoreSnapshotIsolation(t *testing.T) {
	store := NewSessionStore(time.Hour)
	ctx := context.Background()

	sess := entity.NewWorkflowSession("topic", "")
	require.NoError(t, store.Create(ctx, sess))

	// 修改调用方持有的对象不应影响存储内容
	sess.Topic = "mutated"
	sess.StepResults[entity.StepResearch] = entity.StepResult{Content: "local only"}

	got, err := store.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, "topic", got.Topic)
	assert.Empty(t, got.StepResults)

	// 修改读取到的快照同样不影响存储
	got.Status = entity.WorkflowStatusError
	again, err := store.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.WorkflowStatusStarted, again.Status)
}

func TestSessionStoreUpdate(t *testing.T) {
	store := NewSessionStore(time.Hour)
	ctx := context.Background()

	sess := entity.NewWorkflowSession("topic", "")
	require.NoError(t, store.Create(ctx, sess))

	cur, err := store.Get(ctx, sess.ID)
	require.NoError(t, err)
	cur.Begin(entity.StepResearch)
	require.NoError(t, store.Update(ctx, cur))

	got, err := store.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.WorkflowStatusInProgress, got.Status)
	assert.Equal(t, entity.StepResearch, got.CurrentStep)
}

func TestSessionStoreUpdateTerminalRejected(t *testing.T) {
	store := NewSessionStore(time.Hour)
	ctx := context.Background()

	sess := entity.NewWorkflowSession("topic", "")
	require.NoError(t, store.Create(ctx, sess))

	cur, err := store.Get(ctx, sess.ID)
	require.NoError(t, err)
	cur.MarkCompleted()
	require.NoError(t, store.Update(ctx, cur))

	// 终态会话不可再修改
	cur.Status = entity.WorkflowStatusInProgress
	err = store.Update(ctx, cur)
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeSessionTerminal, apperrors.AsAppError(err).Code)
}

func TestSessionStoreUpdatePreservesCancelFlag(t *testing.T) {
	store := NewSessionStore(time.Hour)
	ctx := context.Background()

	sess := entity.NewWorkflowSession("topic", "")
	require.NoError(t, store.Create(ctx, sess))

	// 调用方先读快照，随后取消请求到达
	stale, err := store.Get(ctx, sess.ID)
	require.NoError(t, err)
	require.NoError(t, store.RequestCancel(ctx, sess.ID))

	// 回写旧快照不应覆盖取消标记
	stale.Begin(entity.StepResearch)
	require.NoError(t, store.Update(ctx, stale))

	got, err := store.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.True(t, got.CancelRequested)
}

func TestSessionStoreRequestCancel(t *testing.T) {
	store := NewSessionStore(time.Hour)
	ctx := context.Background()

	sess := entity.NewWorkflowSession("topic", "")
	require.NoError(t, store.Create(ctx, sess))
	require.NoError(t, store.RequestCancel(ctx, sess.ID))

	got, err := store.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.True(t, got.CancelRequested)

	// 终态会话的取消请求被拒绝
	cur, err := store.Get(ctx, sess.ID)
	require.NoError(t, err)
	cur.MarkCompleted()
	require.NoError(t, store.Update(ctx, cur))

	err = store.RequestCancel(ctx, sess.ID)
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeSessionTerminal, apperrors.AsAppError(err).Code)
}

func TestSessionStoreDelete(t *testing.T) {
	store := NewSessionStore(time.Hour)
	ctx := context.Background()

	sess := entity.NewWorkflowSession("topic", "")
	require.NoError(t, store.Create(ctx, sess))
	require.NoError(t, store.Delete(ctx, sess.ID))

	_, err := store.Get(ctx, sess.ID)
	require.Error(t, err)

	err = store.Delete(ctx, sess.ID)
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeSessionNotFound, apperrors.AsAppError(err).Code)
}

func TestSessionStorePurgeExpired(t *testing.T) {
	store := NewSessionStore(time.Hour)
	ctx := context.Background()

	running := entity.NewWorkflowSession("running", "")
	require.NoError(t, store.Create(ctx, running))

	finished := entity.NewWorkflowSession("finished", "")
	finished.MarkCompleted()
	past := time.Now().Add(-2 * time.Hour)
	finished.CompletedAt = &past
	require.NoError(t, store.Create(ctx, finished))

	fresh := entity.NewWorkflowSession("fresh", "")
	fresh.MarkCompleted()
	require.NoError(t, store.Create(ctx, fresh))

	purged := store.purgeExpired(time.Now())
	assert.Equal(t, 1, purged)
	assert.Equal(t, 2, store.Len())

	// 运行中与未超期的终态会话保留
	_, err := store.Get(ctx, running.ID)
	assert.NoError(t, err)
	_, err = store.Get(ctx, fresh.ID)
	assert.NoError(t, err)
	_, err = store.Get(ctx, finished.ID)
	assert.Error(t, err)
}
