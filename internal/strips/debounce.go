package strips

import (
	"sync"
	"time"
)

// EmitFunc 防抖窗口收口后发出的出站更新回调
type EmitFunc func(flightID, field string, value interface{})

type debounceEntry struct {
	timer *time.Timer
	value interface{}
}

// Debouncer 将同一(flight id, field)上的连续击键合并为静默期后的
// 一条出站更新. 不同字段的计时器彼此独立, 可以并发收口.
// 计时器句柄由Debouncer统一持有, Close时全部销毁, 避免跨重连泄漏.
type Debouncer struct {
	mu      sync.Mutex
	delay   time.Duration
	entries map[editKey]*debounceEntry
	emit    EmitFunc
	closed  bool
}

func NewDebouncer(delay time.Duration, emit EmitFunc) *Debouncer {
	return &Debouncer{
		delay:   delay,
		entries: make(map[editKey]*debounceEntry),
		emit:    emit,
	}
}

// OnLocalChange 重置该字段的静默计时, 记录最新值
func (debouncer *Debouncer) OnLocalChange(flightID, field string, value interface{}) {
	debouncer.mu.Lock()
	defer debouncer.mu.Unlock()

	if debouncer.closed {
		return
	}

	key := editKey{flightID, field}
	if entry, exists := debouncer.entries[key]; exists {
		entry.value = value
		entry.timer.Reset(debouncer.delay)
		return
	}

	entry := &debounceEntry{value: value}
	entry.timer = time.AfterFunc(debouncer.delay, func() {
		debouncer.fire(key)
	})
	debouncer.entries[key] = entry
}

// EmitNow 离散控件(勾选框, 下拉选择)没有连续击键可合并, 立即发出
func (debouncer *Debouncer) EmitNow(flightID, field string, value interface{}) {
	debouncer.mu.Lock()
	if debouncer.closed {
		debouncer.mu.Unlock()
		return
	}
	key := editKey{flightID, field}
	if entry, exists := debouncer.entries[key]; exists {
		entry.timer.Stop()
		delete(debouncer.entries, key)
	}
	debouncer.mu.Unlock()

	debouncer.emit(flightID, field, value)
}

func (debouncer *Debouncer) fire(key editKey) {
	debouncer.mu.Lock()
	entry, exists := debouncer.entries[key]
	if !exists || debouncer.closed {
		debouncer.mu.Unlock()
		return
	}
	delete(debouncer.entries, key)
	value := entry.value
	debouncer.mu.Unlock()

	debouncer.emit(key.flightID, key.field, value)
}

// CancelFlight 撤销某记录的全部计时器, 记录被删除时调用,
// 防止窗口期内的编辑复活已删除的记录
func (debouncer *Debouncer) CancelFlight(flightID string) {
	debouncer.mu.Lock()
	defer debouncer.mu.Unlock()

	for key, entry := range debouncer.entries {
		if key.flightID == flightID {
			entry.timer.Stop()
			delete(debouncer.entries, key)
		}
	}
}

// Pending 该字段是否处于防抖窗口中
func (debouncer *Debouncer) Pending(flightID, field string) bool {
	debouncer.mu.Lock()
	defer debouncer.mu.Unlock()
	_, exists := debouncer.entries[editKey{flightID, field}]
	return exists
}

// Close 销毁全部计时器, 此后的本地编辑被忽略
func (debouncer *Debouncer) Close() {
	debouncer.mu.Lock()
	defer debouncer.mu.Unlock()

	debouncer.closed = true
	for key, entry := range debouncer.entries {
		entry.timer.Stop()
		delete(debouncer.entries, key)
	}
}
