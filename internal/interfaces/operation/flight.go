// Package operation
package operation

import (
	"errors"

	"github.com/half-nothing/strip-sync/internal/interfaces/strips"
)

var (
	// ErrFlightNotFound 进程单不存在
	ErrFlightNotFound = errors.New("flight not found")
	// ErrFlightExists 进程单已存在
	ErrFlightExists = errors.New("flight already exists")
	// ErrFieldInvalid 字段名或字段值非法
	ErrFieldInvalid = errors.New("invalid flight field")
)

// FlightOperationInterface 进程单操作接口定义
type FlightOperationInterface interface {
	// GetFlightByID 通过主键获取进程单, 当err为nil时返回值flight有效
	GetFlightByID(id string) (flight *Flight, err error)
	// GetFlightsBySession 获取某会话拥有的全部进程单
	GetFlightsBySession(sessionID string) (flights []*Flight, err error)
	// GetArrivalsByAirport 获取到达机场匹配且不属于该会话的进程单
	GetArrivalsByAirport(airport string, excludeSessionID string) (flights []*Flight, err error)
	// NewFlight 创建进程单并写入数据库, 当err为nil时返回值flight有效
	NewFlight(sessionID string, flight *strips.Flight) (created *Flight, err error)
	// UpdateFlightFields 按字段集更新进程单并推进UpdatedAt, 当err为nil时返回更新后的记录
	UpdateFlightFields(id string, fields strips.FieldSet) (flight *Flight, err error)
	// DeleteFlight 删除进程单, 删除是权威操作, 不存在时返回ErrFlightNotFound
	DeleteFlight(id string) (err error)
}
