// Package strip_client 管制席位客户端: 四条通道适配器与本地同步状态
package strip_client

import (
	"time"

	"github.com/half-nothing/strip-sync/internal/interfaces/global"
)

type ChannelSettings struct {
	HandshakeTimeout     time.Duration
	WriteTimeout         time.Duration
	PingInterval         time.Duration
	PongTimeout          time.Duration
	ReconnectBackoff     time.Duration
	MaxReconnectAttempts int
	SendBufferSize       int
}

func DefaultChannelSettings() *ChannelSettings {
	return &ChannelSettings{
		HandshakeTimeout:     2 * time.Second,
		WriteTimeout:         5 * time.Second,
		PingInterval:         15 * time.Second,
		PongTimeout:          60 * time.Second,
		ReconnectBackoff:     2 * time.Second,
		MaxReconnectAttempts: 10,
		SendBufferSize:       64,
	}
}

type SyncSettings struct {
	DebounceDelay  time.Duration
	PendingTimeout time.Duration
	SweepInterval  time.Duration
	PresenceTTL    time.Duration
}

func DefaultSyncSettings() *SyncSettings {
	return &SyncSettings{
		DebounceDelay:  global.DebounceDelay,
		PendingTimeout: global.PendingEditTimeout,
		SweepInterval:  global.PendingEditTimeout,
		PresenceTTL:    global.PresenceEntryTTL,
	}
}
