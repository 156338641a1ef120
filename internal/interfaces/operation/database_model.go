package operation

import (
	"time"

	"github.com/half-nothing/strip-sync/internal/interfaces/strips"
)

// Flight 进程单持久化模型, 字段与线上记录一一对应
type Flight struct {
	ID           string `gorm:"primarykey;size:36" json:"id"`
	SessionID    string `gorm:"size:36;index;not null" json:"session_id"`
	Callsign     string `gorm:"size:16;index;not null" json:"callsign"`
	AircraftType string `gorm:"size:16" json:"aircraft_type"`
	FlightRule   string `gorm:"size:4" json:"flight_rule"`
	Departure    string `gorm:"size:4;index" json:"departure"`
	Arrival      string `gorm:"size:4;index" json:"arrival"`
	Sid          string `gorm:"size:16" json:"sid"`
	Star         string `gorm:"size:16" json:"star"`
	Route        string `gorm:"type:text" json:"route"`
	Alternate    string `gorm:"size:4" json:"alternate"`
	Runway       string `gorm:"size:8" json:"runway"`
	ClearedLevel string `gorm:"size:8" json:"cleared_level"`
	CruiseLevel  string `gorm:"size:8" json:"cruise_level"`
	Squawk       string `gorm:"size:4" json:"squawk"`
	Status       string `gorm:"size:8;default:PENDING" json:"status"`
	Cleared      bool   `gorm:"default:false" json:"cleared"`
	Hidden       bool   `gorm:"default:false" json:"hidden"`
	Remark       string `gorm:"type:text" json:"remark"`
	PdcRemarks   string `gorm:"type:text" json:"pdc_remarks"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Session 席位持久化模型
type Session struct {
	ID           string `gorm:"primarykey;size:36" json:"id"`
	AccessID     string `gorm:"size:64;uniqueIndex;not null" json:"access_id"`
	Airport      string `gorm:"size:4;index;not null" json:"airport"`
	ActiveRunway string `gorm:"size:8" json:"active_runway"`
	Pfatc        bool   `gorm:"default:false" json:"pfatc"`
	Closed       bool   `gorm:"default:false" json:"closed"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ToWire 转换为线上记录. 时间戳以服务端为准.
func (flight *Flight) ToWire() *strips.Flight {
	return &strips.Flight{
		ID:           flight.ID,
		SessionID:    flight.SessionID,
		Callsign:     flight.Callsign,
		AircraftType: flight.AircraftType,
		FlightRule:   strips.FlightRule(flight.FlightRule),
		Departure:    flight.Departure,
		Arrival:      flight.Arrival,
		Sid:          flight.Sid,
		Star:         flight.Star,
		Route:        flight.Route,
		Alternate:    flight.Alternate,
		Runway:       flight.Runway,
		ClearedLevel: flight.ClearedLevel,
		CruiseLevel:  flight.CruiseLevel,
		Squawk:       flight.Squawk,
		Status:       strips.FlightStatus(flight.Status),
		Cleared:      flight.Cleared,
		Hidden:       flight.Hidden,
		Remark:       flight.Remark,
		PdcRemarks:   flight.PdcRemarks,
		Timestamp:    flight.CreatedAt,
		UpdatedAt:    flight.UpdatedAt,
	}
}

func (session *Session) ToWire() *strips.Session {
	return &strips.Session{
		ID:           session.ID,
		AccessID:     session.AccessID,
		Airport:      session.Airport,
		ActiveRunway: session.ActiveRunway,
		Pfatc:        session.Pfatc,
	}
}
