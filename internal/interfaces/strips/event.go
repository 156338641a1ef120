// Package strips 通道事件与负载定义
package strips

import (
	"encoding/json"
	"time"
)

type EventKind string

// Session flight channel events.
const (
	EventFlightUpdated  EventKind = "flightUpdated"
	EventFlightAdded    EventKind = "flightAdded"
	EventFlightDeleted  EventKind = "flightDeleted"
	EventSessionUpdated EventKind = "sessionUpdated"
	EventPdcRequest     EventKind = "pdcRequest"
	EventAtisUpdate     EventKind = "atisUpdate"
	EventFullFlightList EventKind = "fullFlightList"

	EventUpdateFlight   EventKind = "updateFlight"
	EventDeleteFlight   EventKind = "deleteFlight"
	EventUpdateSession  EventKind = "updateSession"
	EventIssuePDC       EventKind = "issuePDC"
	EventContactMe      EventKind = "contactMe"
	EventRequestFlights EventKind = "requestFlights"
)

// Cross-session arrivals channel events.
const (
	EventInitialExternalArrivals EventKind = "initialExternalArrivals"
	EventArrivalUpdated          EventKind = "arrivalUpdated"
	EventArrivalError            EventKind = "arrivalError"

	EventUpdateArrival EventKind = "updateArrival"
)

// Overview aggregation channel events.
const (
	EventOverviewSnapshot     EventKind = "overviewSnapshot"
	EventOverviewUpdateFlight EventKind = "overviewUpdateFlight"
	EventOperationError       EventKind = "operationError"
)

// Field presence channel events.
const (
	EventFieldEditingUpdate EventKind = "fieldEditingUpdate"
	EventSessionUsersUpdate EventKind = "sessionUsersUpdate"

	EventFieldEditingStart EventKind = "fieldEditingStart"
	EventFieldEditingStop  EventKind = "fieldEditingStop"
	EventPositionChange    EventKind = "positionChange"
	EventActivityPing      EventKind = "activityPing"
)

// Envelope 线上帧格式, 所有通道共用
type Envelope struct {
	Event EventKind       `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

func NewEnvelope(event EventKind, payload interface{}) (*Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Envelope{Event: event, Data: data}, nil
}

type DeleteNotice struct {
	FlightID string `json:"flightId"`
}

type PdcRequest struct {
	FlightID string `json:"flightId"`
}

type AtisUpdate struct {
	Atis string `json:"atis"`
}

type IssuePdcRequest struct {
	FlightID string `json:"flightId"`
	PdcText  string `json:"pdcText"`
}

type ContactMeRequest struct {
	FlightID string `json:"flightId"`
	Message  string `json:"message"`
}

// UpdateFlightRequest 带字段级负载的部分更新请求
type UpdateFlightRequest struct {
	FlightID string   `json:"flightId"`
	Updates  FieldSet `json:"updates"`
}

// OverviewUpdateRequest 总览通道的跨会话更新请求
type OverviewUpdateRequest struct {
	SessionID string   `json:"sessionId"`
	FlightID  string   `json:"flightId"`
	Updates   FieldSet `json:"updates"`
}

// OverviewSnapshot 多会话全量快照负载
type OverviewSnapshot struct {
	ActiveSessions      []*SessionFlights    `json:"activeSessions"`
	ArrivalsByAirport   map[string][]*Flight `json:"arrivalsByAirport"`
	TotalActiveSessions int                  `json:"totalActiveSessions"`
	TotalFlights        int                  `json:"totalFlights"`
	LastUpdated         time.Time            `json:"lastUpdated"`
}

type SessionFlights struct {
	Session *Session  `json:"session"`
	Flights []*Flight `json:"flights"`
}

// FieldEditingState 字段级"正在编辑"在场标记, 不持久化
type FieldEditingState struct {
	FlightID  string    `json:"flightId"`
	FieldName string    `json:"fieldName"`
	UserID    string    `json:"userId"`
	Username  string    `json:"username"`
	Avatar    string    `json:"avatar,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type FieldEditingNotice struct {
	FlightID  string `json:"flightId"`
	FieldName string `json:"fieldName"`
}

type PositionChange struct {
	Position string `json:"position"`
}
