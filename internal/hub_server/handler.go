package hub_server

import (
	"encoding/json"
	"errors"

	"github.com/half-nothing/strip-sync/internal/interfaces/log"
	"github.com/half-nothing/strip-sync/internal/interfaces/operation"
	. "github.com/half-nothing/strip-sync/internal/interfaces/strips"
)

// HubService 通道事件处理. 每个入站事件在这里完成持久化,
// 然后以服务端时间戳为权威向相关房间扇出.
type HubService struct {
	logger     log.LoggerInterface
	operations *operation.DatabaseOperations
	hub        *Hub
	presence   *PresenceRegistry
	snapshots  *SnapshotBuilder
}

func NewHubService(
	logger log.LoggerInterface,
	operations *operation.DatabaseOperations,
	hub *Hub,
	presence *PresenceRegistry,
	snapshots *SnapshotBuilder,
) *HubService {
	return &HubService{
		logger:     logger,
		operations: operations,
		hub:        hub,
		presence:   presence,
		snapshots:  snapshots,
	}
}

func errnoFor(err error) OperationErrno {
	switch {
	case errors.Is(err, operation.ErrFlightNotFound):
		return FlightNotFound
	case errors.Is(err, operation.ErrFieldInvalid):
		return FieldInvalid
	case errors.Is(err, operation.ErrSessionNotFound):
		return SessionNotFound
	case errors.Is(err, operation.ErrSessionClosed):
		return SessionClosed
	case errors.Is(err, operation.ErrAccessDenied):
		return PermissionDenied
	default:
		return FieldInvalid
	}
}

func (service *HubService) sendError(client *HubClient, event EventKind, action, flightID string, err error) {
	errno := errnoFor(err)
	service.logger.WarnF("[hub] %s for %s rejected: %v", action, flightID, err)
	client.SendEvent(event, &OperationError{
		Action:   action,
		FlightID: flightID,
		Errno:    errno,
		Error:    errno.String(),
	})
}

// HandleEnvelope 入站事件统一入口
func (service *HubService) HandleEnvelope(client *HubClient, envelope *Envelope) {
	switch client.kind {
	case SessionChannel:
		service.handleSessionEvent(client, envelope)
	case ArrivalsChannel:
		service.handleArrivalsEvent(client, envelope)
	case OverviewChannel:
		service.handleOverviewEvent(client, envelope)
	case PresenceChannel:
		service.handlePresenceEvent(client, envelope)
	}
}

func (service *HubService) handleSessionEvent(client *HubClient, envelope *Envelope) {
	switch envelope.Event {
	case EventUpdateFlight:
		request := &UpdateFlightRequest{}
		if err := json.Unmarshal(envelope.Data, request); err != nil {
			service.logger.WarnF("[hub] malformed updateFlight from %s: %v", client.id, err)
			return
		}
		service.applyFlightUpdate(client, EventOperationError, "updateFlight", request.FlightID, request.Updates)
	case EventDeleteFlight:
		notice := &DeleteNotice{}
		if err := json.Unmarshal(envelope.Data, notice); err != nil {
			return
		}
		service.deleteFlight(client, notice.FlightID)
	case EventUpdateSession:
		update := &SessionUpdate{}
		if err := json.Unmarshal(envelope.Data, update); err != nil {
			return
		}
		session, err := service.operations.SessionOperation().UpdateSession(client.sessionID, update)
		if err != nil {
			service.sendError(client, EventOperationError, "updateSession", "", err)
			return
		}
		service.hub.BroadcastToSession(session.ID, EventSessionUpdated, update, nil)
		service.snapshots.MarkDirty()
	case EventIssuePDC:
		request := &IssuePdcRequest{}
		if err := json.Unmarshal(envelope.Data, request); err != nil {
			return
		}
		service.applyFlightUpdate(client, EventOperationError, "issuePDC", request.FlightID,
			FieldSet{FieldPdcRemarks: request.PdcText})
	case EventContactMe:
		request := &ContactMeRequest{}
		if err := json.Unmarshal(envelope.Data, request); err != nil {
			return
		}
		service.logger.InfoF("[hub] contact-me for %s from %s: %s",
			request.FlightID, client.user.Username, request.Message)
	case EventRequestFlights:
		service.SendFlightList(client)
	default:
		service.logger.DebugF("[hub] unhandled session event %s from %s", envelope.Event, client.id)
	}
}

func (service *HubService) handleArrivalsEvent(client *HubClient, envelope *Envelope) {
	switch envelope.Event {
	case EventUpdateArrival:
		request := &UpdateFlightRequest{}
		if err := json.Unmarshal(envelope.Data, request); err != nil {
			service.logger.WarnF("[hub] malformed updateArrival from %s: %v", client.id, err)
			return
		}
		service.applyFlightUpdate(client, EventArrivalError, "updateArrival", request.FlightID, request.Updates)
	default:
		service.logger.DebugF("[hub] unhandled arrivals event %s from %s", envelope.Event, client.id)
	}
}

func (service *HubService) handleOverviewEvent(client *HubClient, envelope *Envelope) {
	switch envelope.Event {
	case EventOverviewUpdateFlight:
		request := &OverviewUpdateRequest{}
		if err := json.Unmarshal(envelope.Data, request); err != nil {
			return
		}
		if !client.elevated {
			service.sendError(client, EventOperationError, "overviewUpdateFlight", request.FlightID,
				operation.ErrAccessDenied)
			return
		}
		service.applyFlightUpdate(client, EventOperationError, "overviewUpdateFlight", request.FlightID, request.Updates)
	default:
		service.logger.DebugF("[hub] unhandled overview event %s from %s", envelope.Event, client.id)
	}
}

func (service *HubService) handlePresenceEvent(client *HubClient, envelope *Envelope) {
	switch envelope.Event {
	case EventFieldEditingStart:
		notice := &FieldEditingNotice{}
		if err := json.Unmarshal(envelope.Data, notice); err != nil {
			return
		}
		service.presence.StartEditing(client.sessionID, &FieldEditingState{
			FlightID:  notice.FlightID,
			FieldName: notice.FieldName,
			UserID:    client.user.ID,
			Username:  client.user.Username,
			Avatar:    client.user.Avatar,
		})
		service.broadcastEditing(client.sessionID)
	case EventFieldEditingStop:
		notice := &FieldEditingNotice{}
		if err := json.Unmarshal(envelope.Data, notice); err != nil {
			return
		}
		service.presence.StopEditing(client.sessionID, notice.FlightID, notice.FieldName)
		service.broadcastEditing(client.sessionID)
	case EventPositionChange:
		change := &PositionChange{}
		if err := json.Unmarshal(envelope.Data, change); err != nil {
			return
		}
		service.presence.SetPosition(client.sessionID, client.user.ID, change.Position)
		service.broadcastUsers(client.sessionID)
	case EventActivityPing:
		service.presence.Touch(client.sessionID, client.user.ID)
	default:
		service.logger.DebugF("[hub] unhandled presence event %s from %s", envelope.Event, client.id)
	}
}

// applyFlightUpdate 字段级更新的统一路径: 持久化, 然后向归属会话,
// 到达观察者与总览各扇出一次. 回给来源会话的那一帧就是确认回声.
func (service *HubService) applyFlightUpdate(origin *HubClient, errorEvent EventKind, action, flightID string, updates FieldSet) {
	model, err := service.operations.FlightOperation().UpdateFlightFields(flightID, updates)
	if err != nil {
		service.sendError(origin, errorEvent, action, flightID, err)
		return
	}
	wire := model.ToWire()
	service.hub.BroadcastToSession(wire.SessionID, EventFlightUpdated, wire, nil)
	service.hub.BroadcastToArrivalWatchers(wire.Arrival, wire.SessionID, EventArrivalUpdated, wire)
	service.hub.BroadcastToOverview(EventFlightUpdated, wire, nil)
	service.snapshots.MarkDirty()
}

func (service *HubService) deleteFlight(origin *HubClient, flightID string) {
	model, err := service.operations.FlightOperation().GetFlightByID(flightID)
	if err != nil {
		service.sendError(origin, EventOperationError, "deleteFlight", flightID, err)
		return
	}
	if err := service.operations.FlightOperation().DeleteFlight(flightID); err != nil {
		service.sendError(origin, EventOperationError, "deleteFlight", flightID, err)
		return
	}
	notice := &DeleteNotice{FlightID: flightID}
	service.hub.BroadcastToSession(model.SessionID, EventFlightDeleted, notice, nil)
	service.hub.BroadcastToArrivalWatchers(model.Arrival, model.SessionID, EventFlightDeleted, notice)
	service.hub.BroadcastToOverview(EventFlightDeleted, notice, nil)
	service.snapshots.MarkDirty()
}

// SendFlightList 向单个连接发送其会话的全量进程单
func (service *HubService) SendFlightList(client *HubClient) {
	models, err := service.operations.FlightOperation().GetFlightsBySession(client.sessionID)
	if err != nil {
		service.sendError(client, EventOperationError, "requestFlights", "", err)
		return
	}
	flights := make([]*Flight, 0, len(models))
	for _, model := range models {
		flights = append(flights, model.ToWire())
	}
	client.SendEvent(EventFullFlightList, flights)
}

// SendArrivalList 向单个到达通道连接发送初始到达列表
func (service *HubService) SendArrivalList(client *HubClient) {
	models, err := service.operations.FlightOperation().GetArrivalsByAirport(client.airport, client.sessionID)
	if err != nil {
		service.sendError(client, EventArrivalError, "initialExternalArrivals", "", err)
		return
	}
	flights := make([]*Flight, 0, len(models))
	for _, model := range models {
		flights = append(flights, model.ToWire())
	}
	client.SendEvent(EventInitialExternalArrivals, flights)
}

func (service *HubService) broadcastEditing(sessionID string) {
	service.hub.BroadcastToPresence(sessionID, EventFieldEditingUpdate,
		service.presence.EditingSnapshot(sessionID), nil)
}

func (service *HubService) broadcastUsers(sessionID string) {
	service.hub.BroadcastToPresence(sessionID, EventSessionUsersUpdate,
		service.presence.Users(sessionID), nil)
}

// OnClientClosed 连接终结的收尾: 出房间, 在场通道额外做用户退出
func (service *HubService) OnClientClosed(client *HubClient) {
	service.hub.RemoveClient(client)
	if client.kind != PresenceChannel {
		return
	}
	if service.presence.UserLeave(client.sessionID, client.user.ID) {
		service.broadcastEditing(client.sessionID)
		service.broadcastUsers(client.sessionID)
	}
}

// OnPresenceJoined 在场通道接入: 登记用户并同步当前全量状态
func (service *HubService) OnPresenceJoined(client *HubClient) {
	service.presence.UserJoin(client.sessionID, client.user)
	client.SendEvent(EventFieldEditingUpdate, service.presence.EditingSnapshot(client.sessionID))
	service.broadcastUsers(client.sessionID)
}
