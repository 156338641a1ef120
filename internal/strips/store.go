// Package strips 进程单同步核心: 记录存储, 合并算法, 待确认追踪与防抖
package strips

import (
	"sync"

	. "github.com/half-nothing/strip-sync/internal/interfaces/strips"
)

type StoreEventKind byte

const (
	FlightAddedEvent StoreEventKind = iota
	FlightUpdatedEvent
	FlightDeletedEvent
)

// StoreEvent 存储层事件. Added/Updated按id插入或整体替换,
// Deleted无条件移除(删除永远胜过任何待确认编辑).
type StoreEvent struct {
	Kind     StoreEventKind
	Flight   *Flight
	FlightID string
}

// Store 每个客户端持有的同一组进程单的本地副本, 渲染的唯一数据源.
// 字段级的合并决策在Engine中完成, 到达这一层的事件不再做部分应用.
type Store struct {
	mu      sync.RWMutex
	flights map[string]*Flight
}

func NewStore() *Store {
	return &Store{
		flights: make(map[string]*Flight),
	}
}

func (store *Store) Apply(event *StoreEvent) {
	store.mu.Lock()
	defer store.mu.Unlock()

	switch event.Kind {
	case FlightAddedEvent, FlightUpdatedEvent:
		if event.Flight == nil || event.Flight.ID == "" {
			return
		}
		store.flights[event.Flight.ID] = event.Flight.Clone()
	case FlightDeletedEvent:
		delete(store.flights, event.FlightID)
	}
}

// Get 返回记录的拷贝, 调用方不能借此修改存储内容
func (store *Store) Get(id string) (*Flight, bool) {
	store.mu.RLock()
	defer store.mu.RUnlock()
	flight, exists := store.flights[id]
	if !exists {
		return nil, false
	}
	return flight.Clone(), true
}

func (store *Store) Has(id string) bool {
	store.mu.RLock()
	defer store.mu.RUnlock()
	_, exists := store.flights[id]
	return exists
}

func (store *Store) Len() int {
	store.mu.RLock()
	defer store.mu.RUnlock()
	return len(store.flights)
}

// Snapshot 只读快照, 供渲染层遍历
func (store *Store) Snapshot() []*Flight {
	store.mu.RLock()
	defer store.mu.RUnlock()
	flights := make([]*Flight, 0, len(store.flights))
	for _, flight := range store.flights {
		flights = append(flights, flight.Clone())
	}
	return flights
}
