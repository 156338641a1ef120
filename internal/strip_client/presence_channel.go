package strip_client

import (
	"encoding/json"

	. "github.com/half-nothing/strip-sync/internal/interfaces/strips"
)

// PresenceChannel 字段在场通道. 承载"谁正在编辑哪个字段"的瞬态
// 标记与会话用户列表, 不参与进程单数据的合并.
type PresenceChannel struct {
	client  *Client
	channel *socketChannel
}

func newPresenceChannel(client *Client) *PresenceChannel {
	presenceChannel := &PresenceChannel{client: client}
	presenceChannel.channel = newSocketChannel(
		client.logger,
		"presence",
		client.endpoint("/ws/presence"),
		client.settings,
		presenceChannel.handle,
	)
	presenceChannel.channel.SetStatusListener(client.onStatus)
	return presenceChannel
}

func (presenceChannel *PresenceChannel) Open() error { return presenceChannel.channel.Open() }

func (presenceChannel *PresenceChannel) State() ChannelState { return presenceChannel.channel.State() }

func (presenceChannel *PresenceChannel) Close() error { return presenceChannel.channel.Close() }

func (presenceChannel *PresenceChannel) handle(event EventKind, data json.RawMessage) {
	client := presenceChannel.client
	switch event {
	case EventFieldEditingUpdate:
		// 服务端每次下发全量在场状态, 整表替换
		var states []*FieldEditingState
		if err := json.Unmarshal(data, &states); err != nil {
			client.logger.WarnF("[presence] malformed editing update: %v", err)
			return
		}
		client.presence.ReplaceAll(states)
	case EventSessionUsersUpdate:
		var users []*UserDescriptor
		if err := json.Unmarshal(data, &users); err != nil {
			client.logger.WarnF("[presence] malformed user list: %v", err)
			return
		}
		if client.hooks.OnSessionUsers != nil {
			client.hooks.OnSessionUsers(users)
		}
	default:
		client.logger.DebugF("[presence] unhandled event %s", event)
	}
}

// StartEditing 本地同步登记, 不等服务端回包, 界面即时高亮
func (presenceChannel *PresenceChannel) StartEditing(flightID, field string) error {
	client := presenceChannel.client
	client.presence.Start(&FieldEditingState{
		FlightID:  flightID,
		FieldName: field,
		UserID:    client.user.ID,
		Username:  client.user.Username,
		Avatar:    client.user.Avatar,
	})
	return presenceChannel.channel.Publish(EventFieldEditingStart, &FieldEditingNotice{
		FlightID:  flightID,
		FieldName: field,
	})
}

func (presenceChannel *PresenceChannel) StopEditing(flightID, field string) error {
	presenceChannel.client.presence.Stop(flightID, field)
	return presenceChannel.channel.Publish(EventFieldEditingStop, &FieldEditingNotice{
		FlightID:  flightID,
		FieldName: field,
	})
}

func (presenceChannel *PresenceChannel) ChangePosition(position string) error {
	return presenceChannel.channel.Publish(EventPositionChange, &PositionChange{Position: position})
}

func (presenceChannel *PresenceChannel) Ping() error {
	return presenceChannel.channel.Publish(EventActivityPing, nil)
}
