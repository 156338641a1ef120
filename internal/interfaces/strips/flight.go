// Package strips 飞行进程单同步协议的线上数据结构定义
package strips

import (
	"time"
)

type FlightRule string

const (
	RuleIFR  FlightRule = "IFR"
	RuleVFR  FlightRule = "VFR"
	RuleSVFR FlightRule = "SVFR"
)

type FlightStatus string

const (
	StatusPending  FlightStatus = "PENDING"
	StatusStartup  FlightStatus = "STUP"
	StatusPushback FlightStatus = "PUSH"
	StatusTaxi     FlightStatus = "TAXI"
	StatusDeparted FlightStatus = "DEPA"
	StatusArrival  FlightStatus = "ARR"
)

// Field names as they appear on the wire. The merge algorithm, the pending
// tracker and the presence table all key on these strings.
const (
	FieldCallsign     = "callsign"
	FieldAircraftType = "aircraftType"
	FieldFlightRule   = "flightRule"
	FieldDeparture    = "departure"
	FieldArrival      = "arrival"
	FieldSid          = "sid"
	FieldStar         = "star"
	FieldRoute        = "route"
	FieldAlternate    = "alternate"
	FieldRunway       = "runway"
	FieldClearedLevel = "clearedLevel"
	FieldCruiseLevel  = "cruiseLevel"
	FieldSquawk       = "squawk"
	FieldStatus       = "status"
	FieldCleared      = "cleared"
	FieldHidden       = "hidden"
	FieldRemark       = "remark"
	FieldPdcRemarks   = "pdcRemarks"
)

// MergeableFields 参与逐字段合并的字段集合
var MergeableFields = []string{
	FieldCallsign, FieldAircraftType, FieldFlightRule,
	FieldDeparture, FieldArrival,
	FieldSid, FieldStar, FieldRoute, FieldAlternate,
	FieldRunway, FieldClearedLevel, FieldCruiseLevel, FieldSquawk,
	FieldStatus, FieldCleared, FieldHidden,
	FieldRemark, FieldPdcRemarks,
}

// Flight 单架航空器的进程单记录
type Flight struct {
	ID           string       `json:"id"`
	SessionID    string       `json:"sessionId"`
	Callsign     string       `json:"callsign"`
	AircraftType string       `json:"aircraftType"`
	FlightRule   FlightRule   `json:"flightRule"`
	Departure    string       `json:"departure"`
	Arrival      string       `json:"arrival"`
	Sid          string       `json:"sid"`
	Star         string       `json:"star"`
	Route        string       `json:"route"`
	Alternate    string       `json:"alternate"`
	Runway       string       `json:"runway"`
	ClearedLevel string       `json:"clearedLevel"`
	CruiseLevel  string       `json:"cruiseLevel"`
	Squawk       string       `json:"squawk"`
	Status       FlightStatus `json:"status"`
	Cleared      bool         `json:"cleared"`
	Hidden       bool         `json:"hidden"`
	Remark       string       `json:"remark"`
	PdcRemarks   string       `json:"pdcRemarks,omitempty"`
	// Custom marks a locally-owned mock strip that never travels over the
	// wire. Inbound updates for a custom id are discarded wholesale.
	Custom    bool      `json:"custom,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// FieldSet 部分更新负载, 键为线上字段名
type FieldSet map[string]interface{}

func (flight *Flight) Clone() *Flight {
	clone := *flight
	return &clone
}

// FieldValue 按字段名取值, 未知字段返回false
func (flight *Flight) FieldValue(field string) (interface{}, bool) {
	switch field {
	case FieldCallsign:
		return flight.Callsign, true
	case FieldAircraftType:
		return flight.AircraftType, true
	case FieldFlightRule:
		return string(flight.FlightRule), true
	case FieldDeparture:
		return flight.Departure, true
	case FieldArrival:
		return flight.Arrival, true
	case FieldSid:
		return flight.Sid, true
	case FieldStar:
		return flight.Star, true
	case FieldRoute:
		return flight.Route, true
	case FieldAlternate:
		return flight.Alternate, true
	case FieldRunway:
		return flight.Runway, true
	case FieldClearedLevel:
		return flight.ClearedLevel, true
	case FieldCruiseLevel:
		return flight.CruiseLevel, true
	case FieldSquawk:
		return flight.Squawk, true
	case FieldStatus:
		return string(flight.Status), true
	case FieldCleared:
		return flight.Cleared, true
	case FieldHidden:
		return flight.Hidden, true
	case FieldRemark:
		return flight.Remark, true
	case FieldPdcRemarks:
		return flight.PdcRemarks, true
	default:
		return nil, false
	}
}

// SetField 按字段名写值, 类型不符或未知字段返回false
func (flight *Flight) SetField(field string, value interface{}) bool {
	switch field {
	case FieldCleared:
		if v, ok := value.(bool); ok {
			flight.Cleared = v
			return true
		}
		return false
	case FieldHidden:
		if v, ok := value.(bool); ok {
			flight.Hidden = v
			return true
		}
		return false
	}
	v, ok := value.(string)
	if !ok {
		return false
	}
	switch field {
	case FieldCallsign:
		flight.Callsign = v
	case FieldAircraftType:
		flight.AircraftType = v
	case FieldFlightRule:
		flight.FlightRule = FlightRule(v)
	case FieldDeparture:
		flight.Departure = v
	case FieldArrival:
		flight.Arrival = v
	case FieldSid:
		flight.Sid = v
	case FieldStar:
		flight.Star = v
	case FieldRoute:
		flight.Route = v
	case FieldAlternate:
		flight.Alternate = v
	case FieldRunway:
		flight.Runway = v
	case FieldClearedLevel:
		flight.ClearedLevel = v
	case FieldCruiseLevel:
		flight.CruiseLevel = v
	case FieldSquawk:
		flight.Squawk = v
	case FieldStatus:
		flight.Status = FlightStatus(v)
	case FieldRemark:
		flight.Remark = v
	case FieldPdcRemarks:
		flight.PdcRemarks = v
	default:
		return false
	}
	return true
}

// Fields 将整条记录展开为字段集, 供快照经由逐字段合并处理
func (flight *Flight) Fields() FieldSet {
	fields := make(FieldSet, len(MergeableFields))
	for _, name := range MergeableFields {
		value, _ := flight.FieldValue(name)
		fields[name] = value
	}
	return fields
}
