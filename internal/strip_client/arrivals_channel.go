package strip_client

import (
	"encoding/json"

	. "github.com/half-nothing/strip-sync/internal/interfaces/strips"
	"github.com/half-nothing/strip-sync/internal/utils"
)

// ArrivalsChannel 跨会话到达通道. 接收以本会话机场为目的地,
// 但归属其他会话的进程单, 与会话通道共用同一个本地存储与合并算法.
type ArrivalsChannel struct {
	client  *Client
	channel *socketChannel
}

func newArrivalsChannel(client *Client) *ArrivalsChannel {
	arrivalsChannel := &ArrivalsChannel{client: client}
	arrivalsChannel.channel = newSocketChannel(
		client.logger,
		"arrivals",
		client.endpoint("/ws/arrivals"),
		client.settings,
		arrivalsChannel.handle,
	)
	arrivalsChannel.channel.SetStatusListener(client.onStatus)
	return arrivalsChannel
}

func (arrivalsChannel *ArrivalsChannel) Open() error { return arrivalsChannel.channel.Open() }

func (arrivalsChannel *ArrivalsChannel) State() ChannelState { return arrivalsChannel.channel.State() }

func (arrivalsChannel *ArrivalsChannel) Close() error { return arrivalsChannel.channel.Close() }

func (arrivalsChannel *ArrivalsChannel) handle(event EventKind, data json.RawMessage) {
	client := arrivalsChannel.client
	switch event {
	case EventInitialExternalArrivals:
		var flights []*Flight
		if err := json.Unmarshal(data, &flights); err != nil {
			client.logger.WarnF("[arrivals] malformed arrival list: %v", err)
			return
		}
		utils.ForEach(flights, client.engine.MergeFlight)
	case EventArrivalUpdated:
		var flight Flight
		if err := json.Unmarshal(data, &flight); err != nil {
			client.logger.WarnF("[arrivals] malformed arrival payload: %v", err)
			return
		}
		client.engine.MergeFlight(&flight)
	case EventFlightDeleted:
		var notice DeleteNotice
		if err := json.Unmarshal(data, &notice); err != nil {
			return
		}
		client.handleDelete(notice.FlightID)
	case EventArrivalError:
		var opError OperationError
		if err := json.Unmarshal(data, &opError); err != nil {
			client.logger.WarnF("[arrivals] malformed error payload: %v", err)
			return
		}
		client.logger.WarnF("[arrivals] %s rejected for %s: %s",
			opError.Action, opError.FlightID, opError.Errno)
		client.rollbackFlight(opError.FlightID)
	default:
		client.logger.DebugF("[arrivals] unhandled event %s", event)
	}
}

// UpdateArrival 对他人会话进程单的字段级更新. 服务端校验归属后
// 广播给归属会话, 拒绝时通过arrivalError回滚.
func (arrivalsChannel *ArrivalsChannel) UpdateArrival(flightID string, updates FieldSet) error {
	return arrivalsChannel.channel.Publish(EventUpdateArrival, &UpdateFlightRequest{
		FlightID: flightID,
		Updates:  updates,
	})
}
