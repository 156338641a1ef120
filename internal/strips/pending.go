package strips

import (
	"sync"
	"time"
)

type editKey struct {
	flightID string
	field    string
}

// PendingEdit 本地已发送但尚未确认的编辑标记.
// Previous保留发送前的值, 供服务端拒绝时回滚.
type PendingEdit struct {
	FlightID string
	Field    string
	Value    interface{}
	Previous interface{}
	SentAt   time.Time
}

// PendingTracker 按(flight id, field)记录待确认编辑, 用于在合并时保护
// 本地输入不被陈旧或并发的广播覆盖. 条目超过timeout后按"视为已生效"
// 处理并丢弃, 保证丢失回声时系统能自愈, 不会永久冻结某个字段.
type PendingTracker struct {
	mu      sync.RWMutex
	entries map[editKey]*PendingEdit
	timeout time.Duration
}

func NewPendingTracker(timeout time.Duration) *PendingTracker {
	return &PendingTracker{
		entries: make(map[editKey]*PendingEdit),
		timeout: timeout,
	}
}

func (tracker *PendingTracker) Mark(flightID, field string, value, previous interface{}) {
	tracker.mu.Lock()
	defer tracker.mu.Unlock()
	tracker.entries[editKey{flightID, field}] = &PendingEdit{
		FlightID: flightID,
		Field:    field,
		Value:    value,
		Previous: previous,
		SentAt:   time.Now(),
	}
}

// Lookup 查询标记, 过期条目在访问时顺带清除
func (tracker *PendingTracker) Lookup(flightID, field string) (*PendingEdit, bool) {
	tracker.mu.Lock()
	defer tracker.mu.Unlock()
	key := editKey{flightID, field}
	entry, exists := tracker.entries[key]
	if !exists {
		return nil, false
	}
	if time.Since(entry.SentAt) > tracker.timeout {
		delete(tracker.entries, key)
		return nil, false
	}
	return entry, true
}

func (tracker *PendingTracker) Clear(flightID, field string) {
	tracker.mu.Lock()
	defer tracker.mu.Unlock()
	delete(tracker.entries, editKey{flightID, field})
}

// Take 取出并移除标记, 用于操作错误回滚
func (tracker *PendingTracker) Take(flightID, field string) (*PendingEdit, bool) {
	tracker.mu.Lock()
	defer tracker.mu.Unlock()
	key := editKey{flightID, field}
	entry, exists := tracker.entries[key]
	if exists {
		delete(tracker.entries, key)
	}
	return entry, exists
}

// TakeFlight 取出并移除某记录的全部标记
func (tracker *PendingTracker) TakeFlight(flightID string) []*PendingEdit {
	tracker.mu.Lock()
	defer tracker.mu.Unlock()
	taken := make([]*PendingEdit, 0)
	for key, entry := range tracker.entries {
		if key.flightID == flightID {
			taken = append(taken, entry)
			delete(tracker.entries, key)
		}
	}
	return taken
}

func (tracker *PendingTracker) HasFlight(flightID string) bool {
	tracker.mu.RLock()
	defer tracker.mu.RUnlock()
	for key, entry := range tracker.entries {
		if key.flightID == flightID && time.Since(entry.SentAt) <= tracker.timeout {
			return true
		}
	}
	return false
}

// Sweep 清除过期条目, 返回清除数量
func (tracker *PendingTracker) Sweep() int {
	tracker.mu.Lock()
	defer tracker.mu.Unlock()
	swept := 0
	for key, entry := range tracker.entries {
		if time.Since(entry.SentAt) > tracker.timeout {
			delete(tracker.entries, key)
			swept++
		}
	}
	return swept
}

func (tracker *PendingTracker) Len() int {
	tracker.mu.RLock()
	defer tracker.mu.RUnlock()
	return len(tracker.entries)
}
