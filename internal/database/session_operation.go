package database

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	. "github.com/half-nothing/strip-sync/internal/interfaces/operation"
	"github.com/half-nothing/strip-sync/internal/interfaces/strips"
	"github.com/thanhpk/randstr"
	"gorm.io/gorm"
)

type SessionOperation struct {
	db           *gorm.DB
	queryTimeout time.Duration
}

func NewSessionOperation(db *gorm.DB, queryTimeout time.Duration) *SessionOperation {
	return &SessionOperation{db: db, queryTimeout: queryTimeout}
}

func (sessionOperation *SessionOperation) GetSessionByID(id string) (session *Session, err error) {
	session = &Session{}
	ctx, cancel := context.WithTimeout(context.Background(), sessionOperation.queryTimeout)
	defer cancel()
	err = sessionOperation.db.WithContext(ctx).
		Where("id = ?", id).
		First(session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		err = ErrSessionNotFound
	}
	return
}

// VerifySessionAccess 凭据不匹配与会话不存在返回不同的错误,
// 上层据此决定是拒绝连接还是重建会话.
func (sessionOperation *SessionOperation) VerifySessionAccess(id string, accessID string) (session *Session, err error) {
	session, err = sessionOperation.GetSessionByID(id)
	if err != nil {
		return nil, err
	}
	if session.Closed {
		return nil, ErrSessionClosed
	}
	if session.AccessID != accessID {
		return nil, ErrAccessDenied
	}
	return session, nil
}

func (sessionOperation *SessionOperation) GetActiveSessions() (sessions []*Session, err error) {
	sessions = make([]*Session, 0)
	ctx, cancel := context.WithTimeout(context.Background(), sessionOperation.queryTimeout)
	defer cancel()
	err = sessionOperation.db.WithContext(ctx).
		Where("closed = ?", false).
		Order("created_at").
		Find(&sessions).Error
	return
}

func (sessionOperation *SessionOperation) NewSession(airport string, accessID string) (session *Session, err error) {
	if accessID == "" {
		accessID = randstr.String(32)
	}
	session = &Session{
		ID:       uuid.NewString(),
		AccessID: accessID,
		Airport:  airport,
	}
	ctx, cancel := context.WithTimeout(context.Background(), sessionOperation.queryTimeout)
	defer cancel()
	err = sessionOperation.db.WithContext(ctx).Create(session).Error
	return
}

func (sessionOperation *SessionOperation) UpdateSession(id string, update *strips.SessionUpdate) (session *Session, err error) {
	columns := make(map[string]interface{}, 2)
	if update.ActiveRunway != nil {
		columns["active_runway"] = *update.ActiveRunway
	}
	if update.Pfatc != nil {
		columns["pfatc"] = *update.Pfatc
	}
	if len(columns) == 0 {
		return sessionOperation.GetSessionByID(id)
	}
	ctx, cancel := context.WithTimeout(context.Background(), sessionOperation.queryTimeout)
	defer cancel()
	result := sessionOperation.db.WithContext(ctx).
		Model(&Session{}).
		Where("id = ?", id).
		Updates(columns)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrSessionNotFound
	}
	return sessionOperation.GetSessionByID(id)
}

func (sessionOperation *SessionOperation) CloseSession(id string) (err error) {
	ctx, cancel := context.WithTimeout(context.Background(), sessionOperation.queryTimeout)
	defer cancel()
	result := sessionOperation.db.WithContext(ctx).
		Model(&Session{}).
		Where("id = ?", id).
		Update("closed", true)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrSessionNotFound
	}
	return nil
}
