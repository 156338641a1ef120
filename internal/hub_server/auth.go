// Package hub_server 进程单同步中心服务端
package hub_server

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	c "github.com/half-nothing/strip-sync/internal/interfaces/config"
)

// StripClaims 通道连接凭据. Elevated授予总览通道访问权.
type StripClaims struct {
	UserID   string `json:"uid"`
	Username string `json:"username"`
	Elevated bool   `json:"elevated"`
	jwt.RegisteredClaims
}

func NewStripClaims(userID, username string, elevated bool, expiresDuration time.Duration) *StripClaims {
	return &StripClaims{
		UserID:   userID,
		Username: username,
		Elevated: elevated,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresDuration)),
		},
	}
}

// SignToken 生成通道访问令牌
func SignToken(config *c.JWTConfig, userID, username string, elevated bool) (string, error) {
	claims := NewStripClaims(userID, username, elevated, config.ExpiresDuration)
	token := jwt.NewWithClaims(jwt.SigningMethodHS512, claims)
	return token.SignedString([]byte(config.Secret))
}
