// Package operation
package operation

import (
	"errors"

	"github.com/half-nothing/strip-sync/internal/interfaces/strips"
)

var (
	// ErrSessionNotFound 会话不存在
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionClosed 会话已关闭
	ErrSessionClosed = errors.New("session closed")
	// ErrAccessDenied 访问凭据与会话不匹配
	ErrAccessDenied = errors.New("access id mismatch")
)

// SessionOperationInterface 会话操作接口定义
type SessionOperationInterface interface {
	// GetSessionByID 通过主键获取会话, 当err为nil时返回值session有效
	GetSessionByID(id string) (session *Session, err error)
	// VerifySessionAccess 校验访问凭据, 通过时返回会话
	VerifySessionAccess(id string, accessID string) (session *Session, err error)
	// GetActiveSessions 获取全部未关闭会话
	GetActiveSessions() (sessions []*Session, err error)
	// NewSession 创建会话, accessID为空时自动生成
	NewSession(airport string, accessID string) (session *Session, err error)
	// UpdateSession 应用部分更新
	UpdateSession(id string, update *strips.SessionUpdate) (session *Session, err error)
	// CloseSession 标记会话关闭
	CloseSession(id string) (err error)
}
