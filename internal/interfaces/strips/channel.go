// Package strips
package strips

type ChannelState byte

const (
	StateConnecting ChannelState = iota
	StateOpen
	StateReconnecting
	StateClosed
)

var channelStateString = []string{"Connecting", "Open", "Reconnecting", "Closed"}

func (s ChannelState) String() string {
	return channelStateString[s]
}

// ConnectionStatus 对用户可见的连接状态徽标
type ConnectionStatus byte

const (
	StatusConnected ConnectionStatus = iota
	StatusReconnecting
	StatusDisconnected
)

var connectionStatusString = []string{"Connected", "Reconnecting", "Disconnected"}

func (s ConnectionStatus) String() string {
	return connectionStatusString[s]
}

// StatusListener 连接状态变化回调
type StatusListener func(status ConnectionStatus)

// ChannelInterface 四条通道适配器的公共契约.
// Publish是即发即弃的, 任何通道操作都不会阻塞等待服务端确认.
type ChannelInterface interface {
	// Open 建立连接并启动读循环, 返回后状态机进入Connecting
	Open() error
	// Publish 发送一个出站事件, 连接不可用时返回错误但不会阻塞
	Publish(event EventKind, payload interface{}) error
	// State 当前连接状态
	State() ChannelState
	// Close 主动断开, 此后状态机停在Closed
	Close() error
}
