package hub_server

import (
	"time"

	c "github.com/half-nothing/strip-sync/internal/interfaces/config"
	"github.com/half-nothing/strip-sync/internal/interfaces/log"
	"github.com/half-nothing/strip-sync/internal/interfaces/operation"
	. "github.com/half-nothing/strip-sync/internal/interfaces/strips"
	"github.com/half-nothing/strip-sync/internal/utils"
)

// SnapshotBuilder 总览快照构建与推送. 快照构建要扫全部活跃会话,
// 用缓存值合并密集变更下的重建压力, 周期推送兜底.
type SnapshotBuilder struct {
	logger     log.LoggerInterface
	config     *c.HubConfig
	operations *operation.DatabaseOperations
	hub        *Hub

	cached *utils.CachedValue[OverviewSnapshot]
	notify chan struct{}
	stop   chan struct{}
}

func NewSnapshotBuilder(
	logger log.LoggerInterface,
	config *c.HubConfig,
	operations *operation.DatabaseOperations,
	hub *Hub,
) *SnapshotBuilder {
	builder := &SnapshotBuilder{
		logger:     logger,
		config:     config,
		operations: operations,
		hub:        hub,
		notify:     make(chan struct{}, 1),
		stop:       make(chan struct{}),
	}
	builder.cached = utils.NewCachedValue[OverviewSnapshot](config.SnapshotCacheDur, builder.build)
	return builder
}

func (builder *SnapshotBuilder) build() *OverviewSnapshot {
	sessionOperation := builder.operations.SessionOperation()
	flightOperation := builder.operations.FlightOperation()

	sessions, err := sessionOperation.GetActiveSessions()
	if err != nil {
		builder.logger.ErrorF("[snapshot] list sessions: %v", err)
		return &OverviewSnapshot{LastUpdated: time.Now()}
	}

	snapshot := &OverviewSnapshot{
		ActiveSessions:      make([]*SessionFlights, 0, len(sessions)),
		ArrivalsByAirport:   make(map[string][]*Flight),
		TotalActiveSessions: len(sessions),
		LastUpdated:         time.Now(),
	}

	for _, session := range sessions {
		flightModels, err := flightOperation.GetFlightsBySession(session.ID)
		if err != nil {
			builder.logger.ErrorF("[snapshot] list flights of %s: %v", session.ID, err)
			continue
		}
		flights := make([]*Flight, 0, len(flightModels))
		for _, model := range flightModels {
			flights = append(flights, model.ToWire())
		}
		snapshot.ActiveSessions = append(snapshot.ActiveSessions, &SessionFlights{
			Session: session.ToWire(),
			Flights: flights,
		})
		snapshot.TotalFlights += len(flights)

		if _, seen := snapshot.ArrivalsByAirport[session.Airport]; !seen {
			arrivalModels, err := flightOperation.GetArrivalsByAirport(session.Airport, session.ID)
			if err != nil {
				builder.logger.ErrorF("[snapshot] list arrivals of %s: %v", session.Airport, err)
				continue
			}
			arrivals := make([]*Flight, 0, len(arrivalModels))
			for _, model := range arrivalModels {
				arrivals = append(arrivals, model.ToWire())
			}
			snapshot.ArrivalsByAirport[session.Airport] = arrivals
		}
	}
	return snapshot
}

// Snapshot 当前快照, 命中缓存时不重建
func (builder *SnapshotBuilder) Snapshot() *OverviewSnapshot {
	return builder.cached.GetValue()
}

// MarkDirty 标记数据已变化, 尽快向总览连接推送一版新快照
func (builder *SnapshotBuilder) MarkDirty() {
	builder.cached.Invalidate()
	select {
	case builder.notify <- struct{}{}:
	default:
	}
}

// Run 推送循环: 变更触发即推, 周期推送兜底
func (builder *SnapshotBuilder) Run() {
	ticker := time.NewTicker(builder.config.SnapshotDuration)
	defer ticker.Stop()
	for {
		select {
		case <-builder.stop:
			return
		case <-builder.notify:
		case <-ticker.C:
		}
		builder.hub.BroadcastToOverview(EventOverviewSnapshot, builder.Snapshot(), nil)
	}
}

func (builder *SnapshotBuilder) Stop() {
	close(builder.stop)
}
