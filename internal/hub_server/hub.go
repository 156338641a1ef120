package hub_server

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	c "github.com/half-nothing/strip-sync/internal/interfaces/config"
	"github.com/half-nothing/strip-sync/internal/interfaces/log"
	. "github.com/half-nothing/strip-sync/internal/interfaces/strips"
	"github.com/half-nothing/strip-sync/internal/utils"
)

// Hub 连接编组中心. 会话与在场通道按会话编房, 到达通道按机场编房,
// 总览通道为单一集合.
type Hub struct {
	logger log.LoggerInterface
	config *c.HubConfig

	lock            sync.RWMutex
	sessionRooms    map[string]map[string]*HubClient
	presenceRooms   map[string]map[string]*HubClient
	arrivalRooms    map[string]map[string]*HubClient
	overviewClients map[string]*HubClient

	shuttingDown    atomic.Bool
	clientSlicePool sync.Pool
}

func NewHub(logger log.LoggerInterface, config *c.HubConfig) *Hub {
	return &Hub{
		logger:          logger,
		config:          config,
		sessionRooms:    make(map[string]map[string]*HubClient),
		presenceRooms:   make(map[string]map[string]*HubClient),
		arrivalRooms:    make(map[string]map[string]*HubClient),
		overviewClients: make(map[string]*HubClient),
		clientSlicePool: sync.Pool{
			New: func() interface{} {
				return make([]*HubClient, 0, 128)
			},
		},
	}
}

func (hub *Hub) PutSlice(clients []*HubClient) {
	hub.clientSlicePool.Put(clients)
}

func (hub *Hub) roomFor(client *HubClient) (map[string]map[string]*HubClient, string) {
	switch client.kind {
	case SessionChannel:
		return hub.sessionRooms, client.sessionID
	case PresenceChannel:
		return hub.presenceRooms, client.sessionID
	case ArrivalsChannel:
		return hub.arrivalRooms, client.airport
	default:
		return nil, ""
	}
}

func (hub *Hub) AddClient(client *HubClient) error {
	if hub.shuttingDown.Load() {
		return fmt.Errorf("hub shutting down")
	}
	hub.lock.Lock()
	defer hub.lock.Unlock()

	if client.kind == OverviewChannel {
		hub.overviewClients[client.id] = client
		return nil
	}

	rooms, key := hub.roomFor(client)
	room, exists := rooms[key]
	if !exists {
		room = make(map[string]*HubClient)
		rooms[key] = room
	}
	if len(room) >= hub.config.MaxClientsPerRoom {
		return fmt.Errorf("room %s is full", key)
	}
	room[client.id] = client
	return nil
}

func (hub *Hub) RemoveClient(client *HubClient) {
	hub.lock.Lock()
	defer hub.lock.Unlock()

	if client.kind == OverviewChannel {
		delete(hub.overviewClients, client.id)
		return
	}

	rooms, key := hub.roomFor(client)
	if room, exists := rooms[key]; exists {
		delete(room, client.id)
		if len(room) == 0 {
			delete(rooms, key)
		}
	}
}

func (hub *Hub) snapshotRoom(rooms map[string]map[string]*HubClient, key string) []*HubClient {
	hub.lock.RLock()
	defer hub.lock.RUnlock()

	clients := hub.clientSlicePool.Get().([]*HubClient)
	clients = clients[:0]
	for _, client := range rooms[key] {
		clients = append(clients, client)
	}
	return clients
}

func (hub *Hub) snapshotOverview() []*HubClient {
	hub.lock.RLock()
	defer hub.lock.RUnlock()

	clients := hub.clientSlicePool.Get().([]*HubClient)
	clients = clients[:0]
	for _, client := range hub.overviewClients {
		clients = append(clients, client)
	}
	return clients
}

// broadcast 并发扇出一帧消息, except为不接收方(通常是事件来源)
func (hub *Hub) broadcast(clients []*HubClient, message []byte, except *HubClient) {
	if hub.shuttingDown.Load() || len(message) == 0 || len(clients) == 0 {
		return
	}

	var wg sync.WaitGroup
	sem := make(chan struct{}, hub.config.MaxBroadcastWorkers)

	for _, client := range clients {
		if client == except || client.Disconnected() {
			continue
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(cl *HubClient) {
			defer func() {
				<-sem
				wg.Done()
			}()
			cl.Send(message)
		}(client)
	}
	wg.Wait()
}

func (hub *Hub) encode(event EventKind, payload interface{}) []byte {
	envelope, err := NewEnvelope(event, payload)
	if err != nil {
		hub.logger.ErrorF("[hub] encode %s: %v", event, err)
		return nil
	}
	data, err := json.Marshal(envelope)
	if err != nil {
		hub.logger.ErrorF("[hub] encode %s: %v", event, err)
		return nil
	}
	return data
}

// BroadcastToSession 向某会话的全部会话通道连接广播
func (hub *Hub) BroadcastToSession(sessionID string, event EventKind, payload interface{}, except *HubClient) {
	message := hub.encode(event, payload)
	clients := hub.snapshotRoom(hub.sessionRooms, sessionID)
	defer hub.PutSlice(clients)
	hub.broadcast(clients, message, except)
}

// BroadcastToPresence 向某会话的全部在场通道连接广播
func (hub *Hub) BroadcastToPresence(sessionID string, event EventKind, payload interface{}, except *HubClient) {
	message := hub.encode(event, payload)
	clients := hub.snapshotRoom(hub.presenceRooms, sessionID)
	defer hub.PutSlice(clients)
	hub.broadcast(clients, message, except)
}

// BroadcastToArrivalWatchers 向关注某到达机场的连接广播,
// 跳过进程单归属会话自身的观察者(它们从会话通道收到同一变更)
func (hub *Hub) BroadcastToArrivalWatchers(airport string, owningSessionID string, event EventKind, payload interface{}) {
	message := hub.encode(event, payload)
	clients := hub.snapshotRoom(hub.arrivalRooms, airport)
	defer hub.PutSlice(clients)
	if len(clients) == 0 {
		return
	}
	watchers := utils.Filter(clients, func(client *HubClient) bool {
		return client.sessionID != owningSessionID
	})
	hub.broadcast(watchers, message, nil)
}

// BroadcastToOverview 向全部总览连接广播
func (hub *Hub) BroadcastToOverview(event EventKind, payload interface{}, except *HubClient) {
	message := hub.encode(event, payload)
	clients := hub.snapshotOverview()
	defer hub.PutSlice(clients)
	hub.broadcast(clients, message, except)
}

func (hub *Hub) Shutdown(ctx context.Context) error {
	if !hub.shuttingDown.CompareAndSwap(false, true) {
		return fmt.Errorf("shutting down already in progress")
	}
	timeoutCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	hub.lock.RLock()
	clients := make([]*HubClient, 0, 128)
	for _, room := range hub.sessionRooms {
		for _, client := range room {
			clients = append(clients, client)
		}
	}
	for _, room := range hub.presenceRooms {
		for _, client := range room {
			clients = append(clients, client)
		}
	}
	for _, room := range hub.arrivalRooms {
		for _, client := range room {
			clients = append(clients, client)
		}
	}
	for _, client := range hub.overviewClients {
		clients = append(clients, client)
	}
	hub.lock.RUnlock()

	done := make(chan struct{})
	go func() {
		defer close(done)
		hub.disconnectClients(clients)
	}()

	select {
	case <-done:
		return nil
	case <-timeoutCtx.Done():
		return timeoutCtx.Err()
	}
}

// 并发断开所有客户端连接
func (hub *Hub) disconnectClients(clients []*HubClient) {
	if len(clients) == 0 {
		return
	}

	sem := make(chan struct{}, hub.config.MaxBroadcastWorkers)
	var wg sync.WaitGroup

	for _, client := range clients {
		wg.Add(1)
		sem <- struct{}{}
		go func(cl *HubClient) {
			defer func() {
				<-sem
				wg.Done()
			}()
			cl.Close()
		}(client)
	}
	wg.Wait()
}
