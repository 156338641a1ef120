// Package config
package config

import (
	"errors"
	"runtime"
	"time"

	"github.com/half-nothing/strip-sync/internal/interfaces/log"
)

type HubConfig struct {
	SnapshotInterval    string        `json:"snapshot_interval"` // 总览快照推送间隔
	SnapshotDuration    time.Duration `json:"-"`
	SnapshotCacheTime   string        `json:"snapshot_cache_time"` // 快照重建的最小间隔
	SnapshotCacheDur    time.Duration `json:"-"`
	MaxBroadcastWorkers int           `json:"max_broadcast_workers"` // 广播并发线程数
	MaxClientsPerRoom   int           `json:"max_clients_per_room"`
	SendBufferSize      int           `json:"send_buffer_size"` // 每连接出站队列长度
	PresenceTTL         string        `json:"presence_ttl"`     // 在场标记过期时间
	PresenceDuration    time.Duration `json:"-"`
	WriteTimeout        string        `json:"write_timeout"`
	WriteDuration       time.Duration `json:"-"`
	PongTimeout         string        `json:"pong_timeout"`
	PongDuration        time.Duration `json:"-"`
}

func defaultHubConfig() *HubConfig {
	return &HubConfig{
		SnapshotInterval:    "5s",
		SnapshotCacheTime:   "1s",
		MaxBroadcastWorkers: 64,
		MaxClientsPerRoom:   32,
		SendBufferSize:      64,
		PresenceTTL:         "30s",
		WriteTimeout:        "5s",
		PongTimeout:         "60s",
	}
}

func (config *HubConfig) checkValid(_ log.LoggerInterface) *ValidResult {
	if config.MaxBroadcastWorkers > runtime.NumCPU()*50 {
		config.MaxBroadcastWorkers = runtime.NumCPU() * 50
	}
	if config.MaxBroadcastWorkers <= 0 {
		return ValidFail(errors.New("invalid json field max_broadcast_workers, must be larger than 0"))
	}
	if config.MaxClientsPerRoom <= 0 {
		return ValidFail(errors.New("invalid json field max_clients_per_room, must be larger than 0"))
	}
	if config.SendBufferSize <= 0 {
		return ValidFail(errors.New("invalid json field send_buffer_size, must be larger than 0"))
	}

	durations := []struct {
		field  string
		source string
		target *time.Duration
	}{
		{"snapshot_interval", config.SnapshotInterval, &config.SnapshotDuration},
		{"snapshot_cache_time", config.SnapshotCacheTime, &config.SnapshotCacheDur},
		{"presence_ttl", config.PresenceTTL, &config.PresenceDuration},
		{"write_timeout", config.WriteTimeout, &config.WriteDuration},
		{"pong_timeout", config.PongTimeout, &config.PongDuration},
	}
	for _, d := range durations {
		duration, err := time.ParseDuration(d.source)
		if err != nil {
			return ValidFailWith(errors.New("invalid json field "+d.field+", duration parse error"), err)
		}
		*d.target = duration
	}
	return ValidPass()
}
