package strip_client

import (
	"encoding/json"

	. "github.com/half-nothing/strip-sync/internal/interfaces/strips"
	"github.com/half-nothing/strip-sync/internal/utils"
)

// FlightChannel 会话进程单通道. 承载本会话全部进程单的双向同步,
// 以及PDC与ATIS等会话内通知.
type FlightChannel struct {
	client  *Client
	channel *socketChannel
}

func newFlightChannel(client *Client) *FlightChannel {
	flightChannel := &FlightChannel{client: client}
	flightChannel.channel = newSocketChannel(
		client.logger,
		"session",
		client.endpoint("/ws/session"),
		client.settings,
		flightChannel.handle,
	)
	flightChannel.channel.SetOnOpen(flightChannel.onOpen)
	flightChannel.channel.SetStatusListener(client.onStatus)
	return flightChannel
}

func (flightChannel *FlightChannel) Open() error { return flightChannel.channel.Open() }

func (flightChannel *FlightChannel) State() ChannelState { return flightChannel.channel.State() }

func (flightChannel *FlightChannel) Close() error { return flightChannel.channel.Close() }

// onOpen 重连成功后主动请求全量列表. 返回的列表逐条走合并算法,
// 断线期间的本地编辑不会被整体替换掉.
func (flightChannel *FlightChannel) onOpen(reconnected bool) {
	if !reconnected {
		return
	}
	if err := flightChannel.channel.Publish(EventRequestFlights, nil); err != nil {
		flightChannel.client.logger.WarnF("[session] flight list refresh not requested: %v", err)
	}
}

func (flightChannel *FlightChannel) handle(event EventKind, data json.RawMessage) {
	client := flightChannel.client
	switch event {
	case EventFullFlightList:
		var flights []*Flight
		if err := json.Unmarshal(data, &flights); err != nil {
			client.logger.WarnF("[session] malformed flight list: %v", err)
			return
		}
		utils.ForEach(flights, client.engine.MergeFlight)
	case EventFlightAdded, EventFlightUpdated:
		var flight Flight
		if err := json.Unmarshal(data, &flight); err != nil {
			client.logger.WarnF("[session] malformed flight payload: %v", err)
			return
		}
		client.engine.MergeFlight(&flight)
	case EventFlightDeleted:
		var notice DeleteNotice
		if err := json.Unmarshal(data, &notice); err != nil {
			client.logger.WarnF("[session] malformed delete notice: %v", err)
			return
		}
		client.handleDelete(notice.FlightID)
	case EventSessionUpdated:
		var update SessionUpdate
		if err := json.Unmarshal(data, &update); err != nil {
			client.logger.WarnF("[session] malformed session update: %v", err)
			return
		}
		client.applySessionUpdate(&update)
	case EventOperationError:
		var opError OperationError
		if err := json.Unmarshal(data, &opError); err != nil {
			client.logger.WarnF("[session] malformed error payload: %v", err)
			return
		}
		client.logger.WarnF("[session] %s rejected for %s: %s",
			opError.Action, opError.FlightID, opError.Errno)
		client.rollbackFlight(opError.FlightID)
	case EventPdcRequest:
		var notice PdcRequest
		if err := json.Unmarshal(data, &notice); err != nil {
			return
		}
		if client.hooks.OnPdcRequest != nil {
			client.hooks.OnPdcRequest(&notice)
		}
	case EventAtisUpdate:
		var atis AtisUpdate
		if err := json.Unmarshal(data, &atis); err != nil {
			return
		}
		if client.hooks.OnAtisUpdate != nil {
			client.hooks.OnAtisUpdate(atis.Atis)
		}
	default:
		client.logger.DebugF("[session] unhandled event %s", event)
	}
}

func (flightChannel *FlightChannel) UpdateFlight(flightID string, updates FieldSet) error {
	return flightChannel.channel.Publish(EventUpdateFlight, &UpdateFlightRequest{
		FlightID: flightID,
		Updates:  updates,
	})
}

func (flightChannel *FlightChannel) DeleteFlight(flightID string) error {
	return flightChannel.channel.Publish(EventDeleteFlight, &DeleteNotice{FlightID: flightID})
}

func (flightChannel *FlightChannel) UpdateSession(update *SessionUpdate) error {
	return flightChannel.channel.Publish(EventUpdateSession, update)
}

func (flightChannel *FlightChannel) IssuePDC(flightID, pdcText string) error {
	return flightChannel.channel.Publish(EventIssuePDC, &IssuePdcRequest{
		FlightID: flightID,
		PdcText:  pdcText,
	})
}

func (flightChannel *FlightChannel) ContactMe(flightID, message string) error {
	return flightChannel.channel.Publish(EventContactMe, &ContactMeRequest{
		FlightID: flightID,
		Message:  message,
	})
}
