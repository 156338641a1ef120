package hub_server

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/half-nothing/strip-sync/internal/interfaces/log"
	. "github.com/half-nothing/strip-sync/internal/interfaces/strips"
)

// ChannelKind 连接所属的通道类型, 决定房间归属与事件集合
type ChannelKind byte

const (
	SessionChannel ChannelKind = iota
	ArrivalsChannel
	OverviewChannel
	PresenceChannel
)

type envelopeHandler func(client *HubClient, envelope *Envelope)

// HubClient 单条websocket连接. 出站消息经由带缓冲的发送队列,
// 队列满视为慢消费者, 直接断开.
type HubClient struct {
	id        string
	kind      ChannelKind
	sessionID string
	airport   string
	user      *UserDescriptor
	elevated  bool

	logger       log.LoggerInterface
	conn         *websocket.Conn
	send         chan []byte
	handler      envelopeHandler
	onClose      func(client *HubClient)
	writeTimeout time.Duration
	pongTimeout  time.Duration

	disconnected atomic.Bool
	closeOnce    sync.Once
}

func NewHubClient(
	logger log.LoggerInterface,
	conn *websocket.Conn,
	kind ChannelKind,
	sessionID string,
	airport string,
	user *UserDescriptor,
	elevated bool,
	sendBufferSize int,
	writeTimeout time.Duration,
	pongTimeout time.Duration,
) *HubClient {
	return &HubClient{
		id:           uuid.NewString(),
		kind:         kind,
		sessionID:    sessionID,
		airport:      airport,
		user:         user,
		elevated:     elevated,
		logger:       logger,
		conn:         conn,
		send:         make(chan []byte, sendBufferSize),
		writeTimeout: writeTimeout,
		pongTimeout:  pongTimeout,
	}
}

func (client *HubClient) ID() string            { return client.id }
func (client *HubClient) SessionID() string     { return client.sessionID }
func (client *HubClient) Airport() string       { return client.airport }
func (client *HubClient) User() *UserDescriptor { return client.user }
func (client *HubClient) Disconnected() bool    { return client.disconnected.Load() }

// Send 入队一帧已编码消息, 队列满时断开该连接
func (client *HubClient) Send(message []byte) {
	if client.disconnected.Load() {
		return
	}
	select {
	case client.send <- message:
	default:
		client.logger.WarnF("[hub] client %s send queue full, disconnecting", client.id)
		client.Close()
	}
}

// SendEvent 编码并入队一个事件
func (client *HubClient) SendEvent(event EventKind, payload interface{}) {
	envelope, err := NewEnvelope(event, payload)
	if err != nil {
		client.logger.ErrorF("[hub] encode %s: %v", event, err)
		return
	}
	data, err := json.Marshal(envelope)
	if err != nil {
		client.logger.ErrorF("[hub] encode %s: %v", event, err)
		return
	}
	client.Send(data)
}

// Run 启动读写泵, 读泵退出即视为连接终结
func (client *HubClient) Run(handler envelopeHandler, onClose func(client *HubClient)) {
	client.handler = handler
	client.onClose = onClose
	go client.writePump()
	go client.readPump()
}

func (client *HubClient) readPump() {
	defer client.Close()
	_ = client.conn.SetReadDeadline(time.Now().Add(client.pongTimeout))
	client.conn.SetPongHandler(func(string) error {
		return client.conn.SetReadDeadline(time.Now().Add(client.pongTimeout))
	})
	for {
		_, data, err := client.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				client.logger.DebugF("[hub] client %s read error: %v", client.id, err)
			}
			return
		}
		envelope := &Envelope{}
		if err := json.Unmarshal(data, envelope); err != nil {
			client.logger.WarnF("[hub] client %s sent malformed frame: %v", client.id, err)
			continue
		}
		client.handler(client, envelope)
	}
}

func (client *HubClient) writePump() {
	ticker := time.NewTicker(client.pongTimeout * 8 / 10)
	defer func() {
		ticker.Stop()
		client.Close()
	}()
	for {
		select {
		case message, ok := <-client.send:
			if !ok {
				return
			}
			_ = client.conn.SetWriteDeadline(time.Now().Add(client.writeTimeout))
			if err := client.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = client.conn.SetWriteDeadline(time.Now().Add(client.writeTimeout))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (client *HubClient) Close() {
	client.closeOnce.Do(func() {
		client.disconnected.Store(true)
		_ = client.conn.Close()
		if client.onClose != nil {
			client.onClose(client)
		}
	})
}
