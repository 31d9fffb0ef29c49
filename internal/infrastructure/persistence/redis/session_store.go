// Package redis 提供 Redis 会话存储实现
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"seo-article-api/internal/domain/entity"
	apperrors "seo-article-api/pkg/errors"
)

// SessionStore 基于 Redis 的工作流会话存储
// 会话以 JSON 形式保存，终态会话由 TTL 自动清理
// 全部访问走 Client 的带追踪方法
type SessionStore struct {
	client *Client
	ttl    time.Duration
}

// NewSessionStore 创建 Redis 会话存储
func NewSessionStore(client *Client, ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &SessionStore{client: client, ttl: ttl}
}

func sessionKey(id string) string {
	return fmt.Sprintf("workflow:session:%s", id)
}

// Create 创建会话
func (s *SessionStore) Create(ctx context.Context, session *entity.WorkflowSession) error {
	data, err := json.Marshal(session)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeInternalError, "failed to marshal session")
	}

	ok, err := s.client.SetNX(ctx, sessionKey(session.ID), data, s.ttl)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeCacheError, "failed to create session")
	}
	if !ok {
		return apperrors.ErrConflict.WithDetail(session.ID)
	}
	return nil
}

// Get 获取会话快照
func (s *SessionStore) Get(ctx context.Context, id string) (*entity.WorkflowSession, error) {
	data, err := s.client.Get(ctx, sessionKey(id))
	if err != nil {
		if IsNil(err) {
			return nil, apperrors.ErrSessionNotFound.WithDetail(id)
		}
		return nil, apperrors.Wrap(err, apperrors.CodeCacheError, "failed to load session")
	}

	var session entity.WorkflowSession
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternalError, "failed to unmarshal session")
	}
	return &session, nil
}

// Update 回写会话，已终态的会话不可再修改
func (s *SessionStore) Update(ctx context.Context, session *entity.WorkflowSession) error {
	stored, err := s.Get(ctx, session.ID)
	if err != nil {
		return err
	}
	if stored.IsTerminal() {
		return apperrors.ErrSessionTerminal.WithDetail(session.ID)
	}

	// 保留存储侧的取消标记，避免回写旧快照时丢失取消请求
	cp := session.Clone()
	if stored.CancelRequested {
		cp.CancelRequested = true
	}

	data, err := json.Marshal(cp)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeInternalError, "failed to marshal session")
	}
	if err := s.client.Set(ctx, sessionKey(session.ID), data, s.ttl); err != nil {
		return apperrors.Wrap(err, apperrors.CodeCacheError, "failed to update session")
	}
	return nil
}

// Delete 删除会话
func (s *SessionStore) Delete(ctx context.Context, id string) error {
	n, err := s.client.Del(ctx, sessionKey(id))
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeCacheError, "failed to delete session")
	}
	if n == 0 {
		return apperrors.ErrSessionNotFound.WithDetail(id)
	}
	return nil
}

// RequestCancel 标记会话请求取消
func (s *SessionStore) RequestCancel(ctx context.Context, id string) error {
	session, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if session.IsTerminal() {
		return apperrors.ErrSessionTerminal.WithDetail(id)
	}

	session.CancelRequested = true
	data, err := json.Marshal(session)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeInternalError, "failed to marshal session")
	}
	if err := s.client.Set(ctx, sessionKey(id), data, s.ttl); err != nil {
		return apperrors.Wrap(err, apperrors.CodeCacheError, "failed to request cancel")
	}
	return nil
}
