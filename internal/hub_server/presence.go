package hub_server

import (
	"sort"
	"sync"
	"time"

	. "github.com/half-nothing/strip-sync/internal/interfaces/strips"
)

type presenceKey struct {
	flightID string
	field    string
}

type sessionUser struct {
	user        *UserDescriptor
	position    string
	lastActive  time.Time
	connections int
}

// PresenceRegistry 服务端在场状态. 纯内存, 不落库,
// 连接断开或超时即消失.
type PresenceRegistry struct {
	lock    sync.Mutex
	ttl     time.Duration
	editing map[string]map[presenceKey]*FieldEditingState
	users   map[string]map[string]*sessionUser
}

func NewPresenceRegistry(ttl time.Duration) *PresenceRegistry {
	return &PresenceRegistry{
		ttl:     ttl,
		editing: make(map[string]map[presenceKey]*FieldEditingState),
		users:   make(map[string]map[string]*sessionUser),
	}
}

// StartEditing 登记编辑标记, 同一字段后到者覆盖先到者
func (registry *PresenceRegistry) StartEditing(sessionID string, state *FieldEditingState) {
	registry.lock.Lock()
	defer registry.lock.Unlock()

	room, exists := registry.editing[sessionID]
	if !exists {
		room = make(map[presenceKey]*FieldEditingState)
		registry.editing[sessionID] = room
	}
	if state.Timestamp.IsZero() {
		state.Timestamp = time.Now()
	}
	room[presenceKey{state.FlightID, state.FieldName}] = state
}

func (registry *PresenceRegistry) StopEditing(sessionID, flightID, field string) {
	registry.lock.Lock()
	defer registry.lock.Unlock()

	if room, exists := registry.editing[sessionID]; exists {
		delete(room, presenceKey{flightID, field})
	}
}

// EditingSnapshot 取某会话的全量在场标记, 顺带剔除过期项
func (registry *PresenceRegistry) EditingSnapshot(sessionID string) []*FieldEditingState {
	registry.lock.Lock()
	defer registry.lock.Unlock()

	room := registry.editing[sessionID]
	states := make([]*FieldEditingState, 0, len(room))
	deadline := time.Now().Add(-registry.ttl)
	for key, state := range room {
		if state.Timestamp.Before(deadline) {
			delete(room, key)
			continue
		}
		states = append(states, state)
	}
	sort.Slice(states, func(i, j int) bool {
		return states[i].Timestamp.Before(states[j].Timestamp)
	})
	return states
}

// UserJoin 计数同一用户的多条连接, 返回该用户是否首次加入
func (registry *PresenceRegistry) UserJoin(sessionID string, user *UserDescriptor) bool {
	registry.lock.Lock()
	defer registry.lock.Unlock()

	room, exists := registry.users[sessionID]
	if !exists {
		room = make(map[string]*sessionUser)
		registry.users[sessionID] = room
	}
	entry, exists := room[user.ID]
	if !exists {
		room[user.ID] = &sessionUser{user: user, lastActive: time.Now(), connections: 1}
		return true
	}
	entry.connections++
	entry.lastActive = time.Now()
	return false
}

// UserLeave 连接计数归零时移除用户并清掉其全部编辑标记,
// 返回该用户是否彻底离开
func (registry *PresenceRegistry) UserLeave(sessionID, userID string) bool {
	registry.lock.Lock()
	defer registry.lock.Unlock()

	room, exists := registry.users[sessionID]
	if !exists {
		return false
	}
	entry, exists := room[userID]
	if !exists {
		return false
	}
	entry.connections--
	if entry.connections > 0 {
		return false
	}
	delete(room, userID)
	if len(room) == 0 {
		delete(registry.users, sessionID)
	}
	if editingRoom, exists := registry.editing[sessionID]; exists {
		for key, state := range editingRoom {
			if state.UserID == userID {
				delete(editingRoom, key)
			}
		}
	}
	return true
}

func (registry *PresenceRegistry) SetPosition(sessionID, userID, position string) {
	registry.lock.Lock()
	defer registry.lock.Unlock()

	if room, exists := registry.users[sessionID]; exists {
		if entry, exists := room[userID]; exists {
			entry.position = position
			entry.lastActive = time.Now()
		}
	}
}

// Touch 活跃心跳, 刷新用户的最后活跃时间
func (registry *PresenceRegistry) Touch(sessionID, userID string) {
	registry.lock.Lock()
	defer registry.lock.Unlock()

	if room, exists := registry.users[sessionID]; exists {
		if entry, exists := room[userID]; exists {
			entry.lastActive = time.Now()
		}
	}
}

func (registry *PresenceRegistry) Users(sessionID string) []*UserDescriptor {
	registry.lock.Lock()
	defer registry.lock.Unlock()

	room := registry.users[sessionID]
	users := make([]*UserDescriptor, 0, len(room))
	for _, entry := range room {
		users = append(users, entry.user)
	}
	sort.Slice(users, func(i, j int) bool {
		return users[i].Username < users[j].Username
	})
	return users
}
