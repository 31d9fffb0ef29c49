// Package entity 定义领域实体
package entity

import (
	"time"

	"github.com/google/uuid"
)

// WorkflowStatus 工作流会话状态
type WorkflowStatus string

const (
	WorkflowStatusStarted    WorkflowStatus = "started"
	WorkflowStatusInProgress WorkflowStatus = "in_progress"
	WorkflowStatusCompleted  WorkflowStatus = "completed"
	WorkflowStatusError      WorkflowStatus = "error"
)

// WorkflowStep 工作流步骤
type WorkflowStep string

const (
	StepPending     WorkflowStep = "pending"
	StepResearch    WorkflowStep = "research"
	StepPlanning    WorkflowStep = "planning"
	StepWriting     WorkflowStep = "writing"
	StepEditing     WorkflowStep = "editing"
	StepPublishing  WorkflowStep = "publishing"
	StepAnalysis    WorkflowStep = "analysis"
	StepImprovement WorkflowStep = "improvement"
)

// StepSequence 步骤执行顺序
var StepSequence = []WorkflowStep{
	StepResearch,
	StepPlanning,
	StepWriting,
	StepEditing,
	StepPublishing,
	StepAnalysis,
	StepImprovement,
}

// StepResult 单步执行结果
type StepResult struct {
	Content     string    `json:"content"`
	Provider    string    `json:"provider_used"`
	TokensUsed  int64     `json:"tokens_used"`
	DurationMs  int64     `json:"duration_ms"`
	CompletedAt time.Time `json:"completed_at"`
}

// ProviderAttempt 单个提供商的尝试记录
type ProviderAttempt struct {
	Provider string `json:"provider"`
	Reason   string `json:"reason"`
}

// SessionError 会话失败详情
type SessionError struct {
	Step     WorkflowStep      `json:"step"`
	Reason   string            `json:"reason"`
	Attempts []ProviderAttempt `json:"attempts,omitempty"`
}

// WorkflowSession 内容生成工作流会话
type WorkflowSession struct {
	ID              string                      `json:"session_id"`
	Topic           string                      `json:"topic"`
	ClientID        string                      `json:"client_id,omitempty"`
	Status          WorkflowStatus              `json:"status"`
	CurrentStep     WorkflowStep                `json:"current_step"`
	Progress        int                         `json:"progress"` // 会话进度 (0-100)
	StepResults     map[WorkflowStep]StepResult `json:"step_results"`
	ErrorDetail     *SessionError               `json:"error_detail,omitempty"`
	CancelRequested bool                        `json:"cancel_requested"`
	CreatedAt       time.Time                   `json:"created_at"`
	UpdatedAt       time.Time                   `json:"updated_at"`
	CompletedAt     *time.Time                  `json:"completed_at,omitempty"`
}

// NewWorkflowSession 创建新的工作流会话
func NewWorkflowSession(topic, clientID string) *WorkflowSession {
	now := time.Now()
	return &WorkflowSession{
		ID:          uuid.NewString(),
		Topic:       topic,
		ClientID:    clientID,
		Status:      WorkflowStatusStarted,
		CurrentStep: StepPending,
		Progress:    0,
		StepResults: make(map[WorkflowStep]StepResult),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Begin 进入执行态
func (s *WorkflowSession) Begin(step WorkflowStep) {
	s.Status = WorkflowStatusInProgress
	s.CurrentStep = step
	s.UpdatedAt = time.Now()
}

// SetStepResult 记录步骤结果并推进进度
// 进度只增不减
func (s *WorkflowSession) SetStepResult(step WorkflowStep, result StepResult, progress int) {
	s.StepResults[step] = result
	if progress > s.Progress {
		s.Progress = progress
	}
	s.UpdatedAt = time.Now()
}

// MarkCompleted 标记会话完成
func (s *WorkflowSession) MarkCompleted() {
	now := time.Now()
	s.Status = WorkflowStatusCompleted
	s.Progress = 100
	s.UpdatedAt = now
	s.CompletedAt = &now
}

// MarkFailed 标记会话失败
func (s *WorkflowSession) MarkFailed(step WorkflowStep, reason string, attempts []ProviderAttempt) {
	now := time.Now()
	s.Status = WorkflowStatusError
	s.CurrentStep = step
	s.ErrorDetail = &SessionError{
		Step:     step,
		Reason:   reason,
		Attempts: attempts,
	}
	s.UpdatedAt = now
	s.CompletedAt = &now
}

// MarkCancelled 标记会话被取消
// 取消后的会话以 error 态终止，错误原因为 cancelled
func (s *WorkflowSession) MarkCancelled(step WorkflowStep) {
	s.MarkFailed(step, "cancelled", nil)
}

// IsTerminal 检查会话是否处于终态
func (s *WorkflowSession) IsTerminal() bool {
	return s.Status == WorkflowStatusCompleted || s.Status == WorkflowStatusError
}

// Clone 返回会话的深拷贝快照
func (s *WorkflowSession) Clone() *WorkflowSession {
	cp := *s
	cp.StepResults = make(map[WorkflowStep]StepResult, len(s.StepResults))
	for k, v := range s.StepResults {
		cp.StepResults[k] = v
	}
	if s.ErrorDetail != nil {
		ed := *s.ErrorDetail
		ed.Attempts = append([]ProviderAttempt(nil), s.ErrorDetail.Attempts...)
		cp.ErrorDetail = &ed
	}
	if s.CompletedAt != nil {
		t := *s.CompletedAt
		cp.CompletedAt = &t
	}
	return &cp
}
