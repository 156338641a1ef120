package strips

import (
	"sync"
	"time"

	. "github.com/half-nothing/strip-sync/internal/interfaces/strips"
)

// PresenceTable 字段级"谁在编辑"在场标记, 纯内存短TTL广播表.
// 与进程单的持久值完全无关, 按到达顺序后写覆盖, 不参与合并算法,
// 由显式停止事件或连接断开清除, 过期条目在读取时跳过.
type PresenceTable struct {
	mu      sync.RWMutex
	entries map[editKey]*FieldEditingState
	ttl     time.Duration
}

func NewPresenceTable(ttl time.Duration) *PresenceTable {
	return &PresenceTable{
		entries: make(map[editKey]*FieldEditingState),
		ttl:     ttl,
	}
}

func (table *PresenceTable) Start(state *FieldEditingState) {
	if state == nil || state.FlightID == "" || state.FieldName == "" {
		return
	}
	table.mu.Lock()
	defer table.mu.Unlock()
	if state.Timestamp.IsZero() {
		state.Timestamp = time.Now()
	}
	table.entries[editKey{state.FlightID, state.FieldName}] = state
}

func (table *PresenceTable) Stop(flightID, field string) {
	table.mu.Lock()
	defer table.mu.Unlock()
	delete(table.entries, editKey{flightID, field})
}

// DropUser 连接断开时清除该用户的全部标记, 返回被清除的条目
func (table *PresenceTable) DropUser(userID string) []*FieldEditingState {
	table.mu.Lock()
	defer table.mu.Unlock()
	dropped := make([]*FieldEditingState, 0)
	for key, state := range table.entries {
		if state.UserID == userID {
			dropped = append(dropped, state)
			delete(table.entries, key)
		}
	}
	return dropped
}

// ReplaceAll 用一次fieldEditingUpdate广播的全量内容替换本地表
func (table *PresenceTable) ReplaceAll(states []*FieldEditingState) {
	table.mu.Lock()
	defer table.mu.Unlock()
	table.entries = make(map[editKey]*FieldEditingState, len(states))
	for _, state := range states {
		if state == nil || state.FlightID == "" || state.FieldName == "" {
			continue
		}
		table.entries[editKey{state.FlightID, state.FieldName}] = state
	}
}

// Snapshot 当前有效标记, 过期条目被跳过
func (table *PresenceTable) Snapshot() []*FieldEditingState {
	table.mu.RLock()
	defer table.mu.RUnlock()
	states := make([]*FieldEditingState, 0, len(table.entries))
	for _, state := range table.entries {
		if time.Since(state.Timestamp) > table.ttl {
			continue
		}
		states = append(states, state)
	}
	return states
}

// Sweep 物理清除过期条目
func (table *PresenceTable) Sweep() int {
	table.mu.Lock()
	defer table.mu.Unlock()
	swept := 0
	for key, state := range table.entries {
		if time.Since(state.Timestamp) > table.ttl {
			delete(table.entries, key)
			swept++
		}
	}
	return swept
}

func (table *PresenceTable) findEntry(flightID, field string) (*FieldEditingState, bool) {
	table.mu.RLock()
	defer table.mu.RUnlock()
	state, exists := table.entries[editKey{flightID, field}]
	return state, exists
}

func (table *PresenceTable) Len() int {
	table.mu.RLock()
	defer table.mu.RUnlock()
	return len(table.entries)
}
