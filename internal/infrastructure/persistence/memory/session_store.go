// Package memory 提供进程内的工作流会话存储，用于开发与测试
package memory

import (
	"context"
	"sync"
	"time"

	"seo-article-api/internal/domain/entity"
	apperrors "seo-article-api/pkg/errors"
	"seo-article-api/pkg/logger"
)

// SessionStore 进程内会话存储
// 读写均基于深拷贝快照，调用方持有的会话对象与存储内部状态隔离
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*entity.WorkflowSession
	ttl      time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewSessionStore 创建进程内会话存储
func NewSessionStore(ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &SessionStore{
		sessions: make(map[string]*entity.WorkflowSession),
		ttl:      ttl,
		stopCh:   make(chan struct{}),
	}
}

// Create 创建会话，ID 冲突时返回错误
func (s *SessionStore) Create(_ context.Context, session *entity.WorkflowSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[session.ID]; exists {
		return apperrors.ErrConflict.WithDetail(session.ID)
	}
	s.sessions[session.ID] = session.Clone()
	return nil
}

// Get 获取会话快照
func (s *SessionStore) Get(_ context.Context, id string) (*entity.WorkflowSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, apperrors.ErrSessionNotFound.WithDetail(id)
	}
	return sess.Clone(), nil
}

// Update 回写会话，已终态的会话不可再修改
func (s *SessionStore) Update(_ context.Context, session *entity.WorkflowSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.sessions[session.ID]
	if !ok {
		return apperrors.ErrSessionNotFound.WithDetail(session.ID)
	}
	if stored.IsTerminal() {
		return apperrors.ErrSessionTerminal.WithDetail(session.ID)
	}

	// 保留存储侧的取消标记，避免回写旧快照时丢失取消请求
	cp := session.Clone()
	if stored.CancelRequested {
		cp.CancelRequested = true
	}
	s.sessions[session.ID] = cp
	return nil
}

// Delete 删除会话
func (s *SessionStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[id]; !ok {
		return apperrors.ErrSessionNotFound.WithDetail(id)
	}
	delete(s.sessions, id)
	return nil
}

// RequestCancel 标记会话请求取消
func (s *SessionStore) RequestCancel(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return apperrors.ErrSessionNotFound.WithDetail(id)
	}
	if sess.IsTerminal() {
		return apperrors.ErrSessionTerminal.WithDetail(id)
	}
	sess.CancelRequested = true
	return nil
}

// StartJanitor 启动后台清理，周期性移除超过 TTL 的终态会话
func (s *SessionStore) StartJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 10 * time.Minute
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopCh:
				return
			case <-ticker.C:
				if n := s.purgeExpired(time.Now()); n > 0 {
					logger.Info(ctx, "purged expired sessions", "count", n)
				}
			}
		}
	}()
}

// Stop 停止后台清理
func (s *SessionStore) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
}

// purgeExpired 移除超过 TTL 的终态会话，返回清理数量
func (s *SessionStore) purgeExpired(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	purged := 0
	for id, sess := range s.sessions {
		if !sess.IsTerminal() || sess.CompletedAt == nil {
			continue
		}
		if now.Sub(*sess.CompletedAt) > s.ttl {
			delete(s.sessions, id)
			purged++
		}
	}
	return purged
}

// Len 返回当前存储的会话数
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
