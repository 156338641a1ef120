package strip_client

import (
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/half-nothing/strip-sync/internal/interfaces/log"
	. "github.com/half-nothing/strip-sync/internal/interfaces/strips"
	core "github.com/half-nothing/strip-sync/internal/strips"
	"github.com/half-nothing/strip-sync/internal/utils"
)

type fieldKey struct {
	flightID string
	field    string
}

// ClientHooks 非合并类事件的外部回调, 全部可选
type ClientHooks struct {
	OnPdcRequest     func(notice *PdcRequest)
	OnAtisUpdate     func(atis string)
	OnSessionUpdated func(update *SessionUpdate)
	OnSessionUsers   func(users []*UserDescriptor)
	OnStatusChange   StatusListener
	OnOverview       func(snapshot *OverviewSnapshot)
}

// Client 单个管制席位的同步客户端. 持有本地存储与各追踪器,
// 并将四条通道的入站事件统一路由进合并算法.
type Client struct {
	logger   log.LoggerInterface
	baseURL  string
	session  *Session
	user     *UserDescriptor
	token    string
	elevated bool

	settings     *ChannelSettings
	syncSettings *SyncSettings
	hooks        *ClientHooks

	store     *core.Store
	pending   *core.PendingTracker
	engine    *core.Engine
	debouncer *core.Debouncer
	presence  *core.PresenceTable

	flightChannel   *FlightChannel
	arrivalsChannel *ArrivalsChannel
	overviewChannel *OverviewChannel
	presenceChannel *PresenceChannel

	stagedMu sync.Mutex
	staged   map[fieldKey]interface{}

	sweepStop chan struct{}
	closeOnce sync.Once
}

func NewClient(
	logger log.LoggerInterface,
	baseURL string,
	session *Session,
	user *UserDescriptor,
	token string,
	elevated bool,
	settings *ChannelSettings,
	syncSettings *SyncSettings,
	hooks *ClientHooks,
) *Client {
	if settings == nil {
		settings = DefaultChannelSettings()
	}
	if syncSettings == nil {
		syncSettings = DefaultSyncSettings()
	}
	if hooks == nil {
		hooks = &ClientHooks{}
	}

	client := &Client{
		logger:       logger,
		baseURL:      baseURL,
		session:      session,
		user:         user,
		token:        token,
		elevated:     elevated,
		settings:     settings,
		syncSettings: syncSettings,
		hooks:        hooks,
		store:        core.NewStore(),
		pending:      core.NewPendingTracker(syncSettings.PendingTimeout),
		presence:     core.NewPresenceTable(syncSettings.PresenceTTL),
		staged:       make(map[fieldKey]interface{}),
		sweepStop:    make(chan struct{}),
	}

	client.engine = core.NewEngine(logger, client.store, client.pending)
	client.debouncer = core.NewDebouncer(syncSettings.DebounceDelay, client.emitFieldUpdate)
	client.engine.SetShield(client.debouncer.Pending)

	client.flightChannel = newFlightChannel(client)
	client.arrivalsChannel = newArrivalsChannel(client)
	client.presenceChannel = newPresenceChannel(client)
	if elevated {
		client.overviewChannel = newOverviewChannel(client)
	}

	return client
}

// endpoint 构造带会话参数的通道地址
func (client *Client) endpoint(path string) string {
	userJSON, _ := json.Marshal(client.user)
	query := url.Values{}
	query.Set("sessionId", client.session.ID)
	query.Set("accessId", client.session.AccessID)
	query.Set("token", client.token)
	query.Set("user", string(userJSON))
	if client.elevated {
		query.Set("elevated", "true")
	}
	return client.baseURL + path + "?" + query.Encode()
}

// Open 建立全部通道连接并启动追踪器清扫
func (client *Client) Open() error {
	if err := client.flightChannel.Open(); err != nil {
		return err
	}
	if err := client.arrivalsChannel.Open(); err != nil {
		return err
	}
	if err := client.presenceChannel.Open(); err != nil {
		return err
	}
	if client.overviewChannel != nil {
		if err := client.overviewChannel.Open(); err != nil {
			return err
		}
	}
	go client.sweepLoop()
	return nil
}

func (client *Client) sweepLoop() {
	ticker := time.NewTicker(client.syncSettings.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-client.sweepStop:
			return
		case <-ticker.C:
			if swept := client.pending.Sweep(); swept > 0 {
				client.logger.DebugF("[sync] %d pending edit(s) timed out, assumed applied", swept)
			}
			client.presence.Sweep()
		}
	}
}

// Flights 渲染层使用的只读快照
func (client *Client) Flights() []*Flight {
	return client.store.Snapshot()
}

func (client *Client) Flight(id string) (*Flight, bool) {
	return client.store.Get(id)
}

// FlightByCallsign 按呼号查找进程单, 未命中返回nil
func (client *Client) FlightByCallsign(callsign string) *Flight {
	return utils.Find(client.store.Snapshot(), func(flight *Flight) bool {
		return flight.Callsign == callsign
	})
}

func (client *Client) Editing() []*FieldEditingState {
	return client.presence.Snapshot()
}

func (client *Client) FlightChannel() *FlightChannel     { return client.flightChannel }
func (client *Client) ArrivalsChannel() *ArrivalsChannel { return client.arrivalsChannel }
func (client *Client) OverviewChannel() *OverviewChannel { return client.overviewChannel }
func (client *Client) PresenceChannel() *PresenceChannel { return client.presenceChannel }

// EditField 连续输入型编辑: 本地乐观应用, 防抖后发出
func (client *Client) EditField(flightID, field string, value interface{}) error {
	previous, ok := client.engine.ApplyLocal(flightID, field, value)
	if !ok {
		return fmt.Errorf("flight %s has no editable field %s", flightID, field)
	}
	client.stageOnce(flightID, field, previous)
	client.debouncer.OnLocalChange(flightID, field, value)
	return nil
}

// SetField 离散控件编辑: 本地乐观应用, 立即发出
func (client *Client) SetField(flightID, field string, value interface{}) error {
	previous, ok := client.engine.ApplyLocal(flightID, field, value)
	if !ok {
		return fmt.Errorf("flight %s has no editable field %s", flightID, field)
	}
	client.stageOnce(flightID, field, previous)
	client.debouncer.EmitNow(flightID, field, value)
	return nil
}

// stageOnce 记录一轮编辑开始前的原值, 供服务端拒绝时回滚
func (client *Client) stageOnce(flightID, field string, previous interface{}) {
	client.stagedMu.Lock()
	defer client.stagedMu.Unlock()
	key := fieldKey{flightID, field}
	if _, exists := client.staged[key]; !exists {
		client.staged[key] = previous
	}
}

func (client *Client) takeStaged(flightID, field string) interface{} {
	client.stagedMu.Lock()
	defer client.stagedMu.Unlock()
	key := fieldKey{flightID, field}
	previous := client.staged[key]
	delete(client.staged, key)
	return previous
}

// emitFieldUpdate 防抖收口后的出站路径. 到达类进程单归属他人会话,
// 必须走到达通道的updateArrival而不是会话通道的updateFlight.
func (client *Client) emitFieldUpdate(flightID, field string, value interface{}) {
	flight, ok := client.store.Get(flightID)
	if !ok {
		// 防抖窗口期间记录已被删除, 静默放弃
		return
	}
	if flight.Custom {
		return
	}

	previous := client.takeStaged(flightID, field)
	client.pending.Mark(flightID, field, value, previous)

	updates := FieldSet{field: value}
	var err error
	if flight.SessionID != client.session.ID {
		err = client.arrivalsChannel.UpdateArrival(flightID, updates)
	} else {
		err = client.flightChannel.UpdateFlight(flightID, updates)
	}
	if err != nil {
		client.logger.WarnF("[sync] update for %s.%s not sent: %v", flightID, field, err)
	}
}

// AddCustomStrip 本地自定义进程单, 完全不走通道
func (client *Client) AddCustomStrip(flight *Flight) {
	flight.Custom = true
	if flight.Timestamp.IsZero() {
		flight.Timestamp = time.Now()
	}
	flight.UpdatedAt = flight.Timestamp
	client.store.Apply(&core.StoreEvent{Kind: core.FlightAddedEvent, Flight: flight})
}

// DeleteFlight 本地删除并通知服务端
func (client *Client) DeleteFlight(flightID string) error {
	flight, ok := client.store.Get(flightID)
	if !ok {
		return fmt.Errorf("flight %s not found", flightID)
	}
	client.handleDelete(flightID)
	if flight.Custom {
		return nil
	}
	return client.flightChannel.DeleteFlight(flightID)
}

// handleDelete 权威删除路径: 移除记录, 撤销所有窗口期编辑
func (client *Client) handleDelete(flightID string) {
	client.engine.Delete(flightID)
	client.debouncer.CancelFlight(flightID)
	client.stagedMu.Lock()
	for key := range client.staged {
		if key.flightID == flightID {
			delete(client.staged, key)
		}
	}
	client.stagedMu.Unlock()
}

// rollbackFlight 服务端拒绝后的回滚: 清标记并恢复乐观修改前的值
func (client *Client) rollbackFlight(flightID string) {
	for _, entry := range client.pending.TakeFlight(flightID) {
		client.engine.RevertField(flightID, entry.Field, entry.Previous)
	}
}

// applySessionUpdate 会话元数据按到达顺序覆盖, 不走字段合并
func (client *Client) applySessionUpdate(update *SessionUpdate) {
	if update.ActiveRunway != nil {
		client.session.ActiveRunway = *update.ActiveRunway
	}
	if update.Pfatc != nil {
		client.session.Pfatc = *update.Pfatc
	}
	if client.hooks.OnSessionUpdated != nil {
		client.hooks.OnSessionUpdated(update)
	}
}

func (client *Client) onStatus(status ConnectionStatus) {
	if client.hooks.OnStatusChange != nil {
		client.hooks.OnStatusChange(status)
	}
}

// Close 拆除全部通道与计时器. 没有阻塞中的操作需要取消,
// 断开即完成.
func (client *Client) Close() {
	client.closeOnce.Do(func() {
		close(client.sweepStop)
		client.debouncer.Close()
		_ = client.flightChannel.Close()
		_ = client.arrivalsChannel.Close()
		_ = client.presenceChannel.Close()
		if client.overviewChannel != nil {
			_ = client.overviewChannel.Close()
		}
	})
}
