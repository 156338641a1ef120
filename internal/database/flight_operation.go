package database

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	. "github.com/half-nothing/strip-sync/internal/interfaces/operation"
	"github.com/half-nothing/strip-sync/internal/interfaces/strips"
	"gorm.io/gorm"
)

// fieldColumns 线上字段名到数据库列名的映射
var fieldColumns = map[string]string{
	strips.FieldCallsign:     "callsign",
	strips.FieldAircraftType: "aircraft_type",
	strips.FieldFlightRule:   "flight_rule",
	strips.FieldDeparture:    "departure",
	strips.FieldArrival:      "arrival",
	strips.FieldSid:          "sid",
	strips.FieldStar:         "star",
	strips.FieldRoute:        "route",
	strips.FieldAlternate:    "alternate",
	strips.FieldRunway:       "runway",
	strips.FieldClearedLevel: "cleared_level",
	strips.FieldCruiseLevel:  "cruise_level",
	strips.FieldSquawk:       "squawk",
	strips.FieldStatus:       "status",
	strips.FieldCleared:      "cleared",
	strips.FieldHidden:       "hidden",
	strips.FieldRemark:       "remark",
	strips.FieldPdcRemarks:   "pdc_remarks",
}

type FlightOperation struct {
	db           *gorm.DB
	queryTimeout time.Duration
}

func NewFlightOperation(db *gorm.DB, queryTimeout time.Duration) *FlightOperation {
	return &FlightOperation{db: db, queryTimeout: queryTimeout}
}

func (flightOperation *FlightOperation) GetFlightByID(id string) (flight *Flight, err error) {
	flight = &Flight{}
	ctx, cancel := context.WithTimeout(context.Background(), flightOperation.queryTimeout)
	defer cancel()
	err = flightOperation.db.WithContext(ctx).
		Where("id = ?", id).
		First(flight).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		err = ErrFlightNotFound
	}
	return
}

func (flightOperation *FlightOperation) GetFlightsBySession(sessionID string) (flights []*Flight, err error) {
	flights = make([]*Flight, 0)
	ctx, cancel := context.WithTimeout(context.Background(), flightOperation.queryTimeout)
	defer cancel()
	err = flightOperation.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at").
		Find(&flights).Error
	return
}

func (flightOperation *FlightOperation) GetArrivalsByAirport(airport string, excludeSessionID string) (flights []*Flight, err error) {
	flights = make([]*Flight, 0)
	ctx, cancel := context.WithTimeout(context.Background(), flightOperation.queryTimeout)
	defer cancel()
	err = flightOperation.db.WithContext(ctx).
		Where("arrival = ? AND session_id <> ? AND hidden = ?", airport, excludeSessionID, false).
		Order("created_at").
		Find(&flights).Error
	return
}

func (flightOperation *FlightOperation) NewFlight(sessionID string, flight *strips.Flight) (created *Flight, err error) {
	if flight.ID == "" {
		flight.ID = uuid.NewString()
	}
	created = &Flight{
		ID:           flight.ID,
		SessionID:    sessionID,
		Callsign:     flight.Callsign,
		AircraftType: flight.AircraftType,
		FlightRule:   string(flight.FlightRule),
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
		Status:       string(flight.Status),
		Cleared:      flight.Cleared,
		Hidden:       flight.Hidden,
		Remark:       flight.Remark,
		PdcRemarks:   flight.PdcRemarks,
	}
	if created.Status == "" {
		created.Status = string(strips.StatusPending)
	}
	ctx, cancel := context.WithTimeout(context.Background(), flightOperation.queryTimeout)
	defer cancel()
	err = flightOperation.db.WithContext(ctx).Create(created).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		err = ErrFlightExists
	}
	return
}

// UpdateFlightFields 字段级部分更新. 服务端时间戳在这里推进,
// 之后的广播以返回记录的UpdatedAt为权威.
func (flightOperation *FlightOperation) UpdateFlightFields(id string, fields strips.FieldSet) (flight *Flight, err error) {
	if len(fields) == 0 {
		return flightOperation.GetFlightByID(id)
	}
	columns := make(map[string]interface{}, len(fields))
	for field, value := range fields {
		column, ok := fieldColumns[field]
		if !ok {
			return nil, ErrFieldInvalid
		}
		columns[column] = value
	}
	ctx, cancel := context.WithTimeout(context.Background(), flightOperation.queryTimeout)
	defer cancel()
	result := flightOperation.db.WithContext(ctx).
		Model(&Flight{}).
		Where("id = ?", id).
		Updates(columns)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrFlightNotFound
	}
	return flightOperation.GetFlightByID(id)
}

func (flightOperation *FlightOperation) DeleteFlight(id string) (err error) {
	ctx, cancel := context.WithTimeout(context.Background(), flightOperation.queryTimeout)
	defer cancel()
	result := flightOperation.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&Flight{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrFlightNotFound
	}
	return nil
}
