package strip_client

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/half-nothing/strip-sync/internal/interfaces/log"
	. "github.com/half-nothing/strip-sync/internal/interfaces/strips"
)

// EventHandler 入站事件分发回调, 在通道的读循环goroutine上执行
type EventHandler func(event EventKind, data json.RawMessage)

// socketChannel 四条通道共用的websocket连接状态机:
//
//	Connecting → Open → {Reconnecting ⇄ Open} → Closed
//
// 读循环遇到错误进入Reconnecting, 以固定退避重拨, 次数耗尽停在Closed.
// 重连期间本地存储不清空(界面在网络抖动时保持可见), 回到Open后由
// onOpen回调重新请求全量列表并走合并算法, 不做裸替换.
type socketChannel struct {
	logger   log.LoggerInterface
	name     string
	url      string
	settings *ChannelSettings
	handler  EventHandler
	onOpen   func(reconnected bool)
	status   StatusListener

	mu     sync.Mutex
	conn   *websocket.Conn
	state  ChannelState
	closed chan struct{}
}

func newSocketChannel(logger log.LoggerInterface, name, url string, settings *ChannelSettings, handler EventHandler) *socketChannel {
	if settings == nil {
		settings = DefaultChannelSettings()
	}
	return &socketChannel{
		logger:   logger,
		name:     name,
		url:      url,
		settings: settings,
		handler:  handler,
		state:    StateConnecting,
		closed:   make(chan struct{}),
	}
}

func (channel *socketChannel) SetOnOpen(onOpen func(reconnected bool)) {
	channel.onOpen = onOpen
}

func (channel *socketChannel) SetStatusListener(listener StatusListener) {
	channel.status = listener
}

func (channel *socketChannel) Open() error {
	conn, err := channel.dial()
	if err != nil {
		channel.setState(StateClosed)
		return fmt.Errorf("channel %s dial failed: %w", channel.name, err)
	}

	channel.mu.Lock()
	channel.conn = conn
	channel.mu.Unlock()
	channel.setState(StateOpen)

	if channel.onOpen != nil {
		channel.onOpen(false)
	}

	go channel.run(conn)
	go channel.pingLoop(conn)
	return nil
}

func (channel *socketChannel) dial() (*websocket.Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: channel.settings.HandshakeTimeout}
	conn, _, err := dialer.Dial(channel.url, nil)
	if err != nil {
		return nil, err
	}
	_ = conn.SetReadDeadline(time.Now().Add(channel.settings.PongTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(channel.settings.PongTimeout))
	})
	return conn, nil
}

func (channel *socketChannel) run(conn *websocket.Conn) {
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if channel.isClosed() {
				return
			}
			channel.logger.WarnF("[%s] connection lost: %v", channel.name, err)
			channel.reconnect()
			return
		}

		envelope := Envelope{}
		if err := json.Unmarshal(message, &envelope); err != nil {
			channel.logger.WarnF("[%s] malformed frame dropped: %v", channel.name, err)
			continue
		}
		channel.handler(envelope.Event, envelope.Data)
	}
}

func (channel *socketChannel) pingLoop(conn *websocket.Conn) {
	ticker := time.NewTicker(channel.settings.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-channel.closed:
			return
		case <-ticker.C:
			channel.mu.Lock()
			current := channel.conn
			channel.mu.Unlock()
			if current != conn {
				return
			}
			deadline := time.Now().Add(channel.settings.WriteTimeout)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				return
			}
		}
	}
}

// reconnect 有界固定退避重拨, 成功回到Open并触发onOpen(true)
func (channel *socketChannel) reconnect() {
	channel.setState(StateReconnecting)

	for attempt := 1; attempt <= channel.settings.MaxReconnectAttempts; attempt++ {
		select {
		case <-channel.closed:
			return
		case <-time.After(channel.settings.ReconnectBackoff):
		}

		conn, err := channel.dial()
		if err != nil {
			channel.logger.DebugF("[%s] reconnect attempt %d/%d failed: %v",
				channel.name, attempt, channel.settings.MaxReconnectAttempts, err)
			continue
		}

		if channel.isClosed() {
			_ = conn.Close()
			return
		}

		channel.mu.Lock()
		channel.conn = conn
		channel.mu.Unlock()
		channel.setState(StateOpen)
		channel.logger.InfoF("[%s] reconnected after %d attempt(s)", channel.name, attempt)

		if channel.onOpen != nil {
			channel.onOpen(true)
		}
		go channel.run(conn)
		go channel.pingLoop(conn)
		return
	}

	channel.logger.ErrorF("[%s] reconnect attempts exhausted, channel closed", channel.name)
	channel.setState(StateClosed)
}

// Publish 即发即弃: 连接不可用立即报错, 从不阻塞等待确认
func (channel *socketChannel) Publish(event EventKind, payload interface{}) error {
	envelope, err := NewEnvelope(event, payload)
	if err != nil {
		return err
	}
	frame, err := json.Marshal(envelope)
	if err != nil {
		return err
	}

	channel.mu.Lock()
	defer channel.mu.Unlock()
	if channel.state != StateOpen || channel.conn == nil {
		return fmt.Errorf("channel %s is %s", channel.name, channel.state)
	}
	_ = channel.conn.SetWriteDeadline(time.Now().Add(channel.settings.WriteTimeout))
	return channel.conn.WriteMessage(websocket.TextMessage, frame)
}

func (channel *socketChannel) State() ChannelState {
	channel.mu.Lock()
	defer channel.mu.Unlock()
	return channel.state
}

func (channel *socketChannel) setState(state ChannelState) {
	channel.mu.Lock()
	if channel.state == StateClosed && state != StateClosed {
		channel.mu.Unlock()
		return
	}
	channel.state = state
	listener := channel.status
	channel.mu.Unlock()

	if listener == nil {
		return
	}
	switch state {
	case StateOpen:
		listener(StatusConnected)
	case StateReconnecting:
		listener(StatusReconnecting)
	case StateClosed:
		listener(StatusDisconnected)
	}
}

func (channel *socketChannel) isClosed() bool {
	select {
	case <-channel.closed:
		return true
	default:
		return false
	}
}

func (channel *socketChannel) Close() error {
	channel.mu.Lock()
	if channel.state == StateClosed {
		channel.mu.Unlock()
		return nil
	}
	conn := channel.conn
	channel.conn = nil
	channel.mu.Unlock()

	close(channel.closed)
	channel.setState(StateClosed)
	if conn != nil {
		return conn.Close()
	}
	return nil
}
