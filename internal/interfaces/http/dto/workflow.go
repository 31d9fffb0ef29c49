// Package dto 提供 HTTP 层数据传输对象
package dto

import (
	"time"

	"seo-article-api/internal/domain/entity"
)

// StartWorkflowRequest 启动工作流请求
type StartWorkflowRequest struct {
	Topic string `json:"topic" binding:"required"`
}

// StartWorkflowResponse 启动工作流响应
type StartWorkflowResponse struct {
	SessionID string `json:"session_id"`
	Status    string `json:"status"`
	Topic     string `json:"topic"`
	CreatedAt string `json:"created_at"`
}

// StepResultView 步骤结果视图
type StepResultView struct {
	Step        string    `json:"step"`
	Content     string    `json:"content"`
	Provider    string    `json:"provider_used"`
	TokensUsed  int64     `json:"tokens_used"`
	DurationMs  int64     `json:"duration_ms"`
	CompletedAt time.Time `json:"completed_at"`
}

// SessionErrorView 会话错误视图
type SessionErrorView struct {
	Step     string                   `json:"step"`
	Reason   string                   `json:"reason"`
	Attempts []entity.ProviderAttempt `json:"attempts,omitempty"`
}

// WorkflowStatusResponse 会话状态响应
type WorkflowStatusResponse struct {
	SessionID      string            `json:"session_id"`
	Topic          string            `json:"topic"`
	Status         string            `json:"status"`
	CurrentStep    string            `json:"current_step"`
	Progress       int               `json:"progress"`
	CompletedSteps []string          `json:"completed_steps"`
	Error          *SessionErrorView `json:"error,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

// WorkflowResultsResponse 已完成会话的全部结果
type WorkflowResultsResponse struct {
	SessionID   string           `json:"session_id"`
	Topic       string           `json:"topic"`
	Status      string           `json:"status"`
	Steps       []StepResultView `json:"steps"`
	CompletedAt *time.Time       `json:"completed_at,omitempty"`
}

// NewWorkflowStatusResponse 从会话实体构建状态响应
func NewWorkflowStatusResponse(sess *entity.WorkflowSession) WorkflowStatusResponse {
	completed := make([]string, 0, len(sess.StepResults))
	for _, step := range entity.StepSequence {
		if _, ok := sess.StepResults[step]; ok {
			completed = append(completed, string(step))
		}
	}

	resp := WorkflowStatusResponse{
		SessionID:      sess.ID,
		Topic:          sess.Topic,
		Status:         string(sess.Status),
		CurrentStep:    string(sess.CurrentStep),
		Progress:       sess.Progress,
		CompletedSteps: completed,
		CreatedAt:      sess.CreatedAt,
		UpdatedAt:      sess.UpdatedAt,
	}
	if sess.ErrorDetail != nil {
		resp.Error = &SessionErrorView{
			Step:     string(sess.ErrorDetail.Step),
			Reason:   sess.ErrorDetail.Reason,
			Attempts: sess.ErrorDetail.Attempts,
		}
	}
	return resp
}

// NewWorkflowResultsResponse 从会话实体构建结果响应
func NewWorkflowResultsResponse(sess *entity.WorkflowSession) WorkflowResultsResponse {
	steps := make([]StepResultView, 0, len(sess.StepResults))
	for _, step := range entity.StepSequence {
		r, ok := sess.StepResults[step]
		if !ok {
			continue
		}
		steps = append(steps, StepResultView{
			Step:        string(step),
			Content:     r.Content,
			Provider:    r.Provider,
			TokensUsed:  r.TokensUsed,
			DurationMs:  r.DurationMs,
			CompletedAt: r.CompletedAt,
		})
	}

	return WorkflowResultsResponse{
		SessionID:   sess.ID,
		Topic:       sess.Topic,
		Status:      string(sess.Status),
		Steps:       steps,
		CompletedAt: sess.CompletedAt,
	}
}
