package strips

import (
	"time"

	"github.com/half-nothing/strip-sync/internal/interfaces/log"
	. "github.com/half-nothing/strip-sync/internal/interfaces/strips"
)

// Engine 实现进程单合并算法, 这是整个同步协议的正确性核心.
//
// 对于某条记录的入站更新(增量或快照), 按字段决策:
//  1. 本地没有该记录时整条插入(首次可见);
//  2. 本地标记为custom的记录完全忽略入站更新;
//  3. 字段存在待确认标记时比较时间戳, 本地发送时间不早于负载的
//     updated_at则保留本地值(管制员自己的输入赢过被超越的广播),
//     否则接受入站值并清除标记; 入站值与已发送值相等说明观察到了
//     回声, 直接清除标记;
//  4. 无标记字段仅在负载的updated_at严格新于本地updated_at时接受,
//     时间相同保留现值, 重复投递因此是无操作;
//  5. 负载中缺失的字段保持原样, 不做整条替换.
//
// 各通道投递顺序互相之间没有保证, 正因如此合并完全依赖时间戳与
// 待确认标记, 而不依赖任何通道顺序.
type Engine struct {
	logger  log.LoggerInterface
	store   *Store
	pending *PendingTracker
	// shield 额外的字段保护判断, 用于覆盖仍处于防抖窗口中,
	// 还没来得及打上待确认标记的本地输入
	shield func(flightID, field string) bool
}

func NewEngine(logger log.LoggerInterface, store *Store, pending *PendingTracker) *Engine {
	return &Engine{
		logger:  logger,
		store:   store,
		pending: pending,
	}
}

// SetShield 注入防抖窗口判断, 返回true的字段在合并时保留本地值
func (engine *Engine) SetShield(shield func(flightID, field string) bool) {
	engine.shield = shield
}

// MergeFlight 合并一条完整记录, 会话增量/到达增量/总览快照共用此入口
func (engine *Engine) MergeFlight(incoming *Flight) {
	if incoming == nil || incoming.ID == "" {
		return
	}

	engine.store.mu.Lock()
	defer engine.store.mu.Unlock()

	current, exists := engine.store.flights[incoming.ID]
	if !exists {
		engine.store.flights[incoming.ID] = incoming.Clone()
		return
	}
	if current.Custom {
		return
	}
	engine.mergeFields(current, incoming.Fields(), incoming.UpdatedAt)
}

// MergeFields 合并部分更新负载. 记录不存在时按首次可见处理,
// 仅以负载携带的字段构造骨架记录.
func (engine *Engine) MergeFields(flightID string, fields FieldSet, updatedAt time.Time) {
	if flightID == "" || len(fields) == 0 {
		return
	}

	engine.store.mu.Lock()
	defer engine.store.mu.Unlock()

	current, exists := engine.store.flights[flightID]
	if !exists {
		flight := &Flight{ID: flightID, Timestamp: updatedAt, UpdatedAt: updatedAt}
		for field, value := range fields {
			flight.SetField(field, value)
		}
		engine.store.flights[flightID] = flight
		return
	}
	if current.Custom {
		return
	}
	engine.mergeFields(current, fields, updatedAt)
}

func (engine *Engine) mergeFields(current *Flight, fields FieldSet, updatedAt time.Time) {
	for field, value := range fields {
		if entry, pending := engine.pending.Lookup(current.ID, field); pending {
			if value == entry.Value {
				// 观察到本地编辑的回声
				engine.pending.Clear(current.ID, field)
				continue
			}
			if !entry.SentAt.Before(updatedAt) {
				// 广播已被本地输入超越, 保留本地值
				engine.logger.DebugF("[merge] %s.%s keeps local value against stale broadcast", current.ID, field)
				continue
			}
			engine.pending.Clear(current.ID, field)
			current.SetField(field, value)
			continue
		}
		if engine.shield != nil && engine.shield(current.ID, field) {
			continue
		}
		if updatedAt.After(current.UpdatedAt) {
			current.SetField(field, value)
		}
	}
	// 单客户端观察到的updated_at保持单调不减
	if updatedAt.After(current.UpdatedAt) {
		current.UpdatedAt = updatedAt
	}
}

// Delete 权威删除: 无视待确认标记, 立即移除记录.
// 其后到达的同id更新按首次可见重新插入.
func (engine *Engine) Delete(flightID string) {
	engine.store.Apply(&StoreEvent{Kind: FlightDeletedEvent, FlightID: flightID})
	engine.pending.TakeFlight(flightID)
}

// ApplyLocal 乐观应用本地编辑, 不推进updated_at(陈旧判断以服务端
// 时间戳为准). 返回修改前的值供回滚, 记录不存在时ok为false.
func (engine *Engine) ApplyLocal(flightID, field string, value interface{}) (previous interface{}, ok bool) {
	engine.store.mu.Lock()
	defer engine.store.mu.Unlock()

	current, exists := engine.store.flights[flightID]
	if !exists {
		return nil, false
	}
	previous, _ = current.FieldValue(field)
	if !current.SetField(field, value) {
		return nil, false
	}
	return previous, true
}

// RevertField 回滚一次被服务端拒绝的乐观修改
func (engine *Engine) RevertField(flightID, field string, value interface{}) {
	engine.store.mu.Lock()
	defer engine.store.mu.Unlock()

	if current, exists := engine.store.flights[flightID]; exists {
		current.SetField(field, value)
	}
}
