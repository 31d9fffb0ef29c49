// Package repository 定义数据访问层接口
package repository

import (
	"context"

	"seo-article-api/internal/domain/entity"
)

// SessionStore 工作流会话存储接口
// Get 返回会话快照；修改须通过 Update 回写
type SessionStore interface {
	// Create 创建会话，ID 冲突时返回错误
	Create(ctx context.Context, session *entity.WorkflowSession) error
	// Get 按 ID 获取会话快照
	Get(ctx context.Context, id string) (*entity.WorkflowSession, error)
	// Update 回写会话，已终态的会话不可再修改
	Update(ctx context.Context, session *entity.WorkflowSession) error
	// Delete 删除会话
	Delete(ctx context.Context, id string) error
	// RequestCancel 标记会话请求取消，引擎在下一个步骤边界生效
	RequestCancel(ctx context.Context, id string) error
}
