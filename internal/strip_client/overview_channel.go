package strip_client

import (
	"encoding/json"
	"sync"

	. "github.com/half-nothing/strip-sync/internal/interfaces/strips"
	"github.com/half-nothing/strip-sync/internal/utils"
)

// OverviewChannel 多会话总览通道, 仅提权用户可用.
// 快照中的每个进程单同样逐条走字段级合并, 快照到达不会覆盖
// 本地的待确认编辑.
type OverviewChannel struct {
	client  *Client
	channel *socketChannel

	mu       sync.RWMutex
	snapshot *OverviewSnapshot
}

func newOverviewChannel(client *Client) *OverviewChannel {
	overviewChannel := &OverviewChannel{client: client}
	overviewChannel.channel = newSocketChannel(
		client.logger,
		"overview",
		client.endpoint("/ws/overview"),
		client.settings,
		overviewChannel.handle,
	)
	overviewChannel.channel.SetStatusListener(client.onStatus)
	return overviewChannel
}

func (overviewChannel *OverviewChannel) Open() error { return overviewChannel.channel.Open() }

func (overviewChannel *OverviewChannel) State() ChannelState { return overviewChannel.channel.State() }

func (overviewChannel *OverviewChannel) Close() error { return overviewChannel.channel.Close() }

// Snapshot 最近一次收到的总览快照, 可能为nil
func (overviewChannel *OverviewChannel) Snapshot() *OverviewSnapshot {
	overviewChannel.mu.RLock()
	defer overviewChannel.mu.RUnlock()
	return overviewChannel.snapshot
}

func (overviewChannel *OverviewChannel) handle(event EventKind, data json.RawMessage) {
	client := overviewChannel.client
	switch event {
	case EventOverviewSnapshot:
		var snapshot OverviewSnapshot
		if err := json.Unmarshal(data, &snapshot); err != nil {
			client.logger.WarnF("[overview] malformed snapshot: %v", err)
			return
		}
		overviewChannel.mu.Lock()
		overviewChannel.snapshot = &snapshot
		overviewChannel.mu.Unlock()
		for _, sessionFlights := range snapshot.ActiveSessions {
			utils.ForEach(sessionFlights.Flights, client.engine.MergeFlight)
		}
		for _, arrivals := range snapshot.ArrivalsByAirport {
			utils.ForEach(arrivals, client.engine.MergeFlight)
		}
		if client.hooks.OnOverview != nil {
			client.hooks.OnOverview(&snapshot)
		}
	case EventFlightUpdated:
		var flight Flight
		if err := json.Unmarshal(data, &flight); err != nil {
			client.logger.WarnF("[overview] malformed flight payload: %v", err)
			return
		}
		client.engine.MergeFlight(&flight)
	case EventFlightDeleted:
		var notice DeleteNotice
		if err := json.Unmarshal(data, &notice); err != nil {
			client.logger.WarnF("[overview] malformed delete notice: %v", err)
			return
		}
		client.handleDelete(notice.FlightID)
	case EventOperationError:
		var opError OperationError
		if err := json.Unmarshal(data, &opError); err != nil {
			client.logger.WarnF("[overview] malformed error payload: %v", err)
			return
		}
		client.logger.WarnF("[overview] %s rejected for %s: %s",
			opError.Action, opError.FlightID, opError.Errno)
		client.rollbackFlight(opError.FlightID)
	default:
		client.logger.DebugF("[overview] unhandled event %s", event)
	}
}

// UpdateFlight 跨会话字段级更新. 本地先乐观应用并打待确认标记,
// 服务端拒绝时由operationError回滚.
func (overviewChannel *OverviewChannel) UpdateFlight(sessionID, flightID string, updates FieldSet) error {
	client := overviewChannel.client
	for field, value := range updates {
		previous, ok := client.engine.ApplyLocal(flightID, field, value)
		if ok {
			client.pending.Mark(flightID, field, value, previous)
		}
	}
	return overviewChannel.channel.Publish(EventOverviewUpdateFlight, &OverviewUpdateRequest{
		SessionID: sessionID,
		FlightID:  flightID,
		Updates:   updates,
	})
}
