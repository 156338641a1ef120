package hub_server

import (
	"encoding/json"
	"testing"
	"time"

	c "github.com/half-nothing/strip-sync/internal/interfaces/config"
	"github.com/half-nothing/strip-sync/internal/interfaces/global"
	"github.com/half-nothing/strip-sync/internal/interfaces/operation"
	. "github.com/half-nothing/strip-sync/internal/interfaces/strips"
)

type nopLogger struct{}

func (nopLogger) Init(_ bool)                       {}
func (nopLogger) ShutdownCallback() global.Callable { return nil }
func (nopLogger) Debug(_ string, _ ...interface{})  {}
func (nopLogger) DebugF(_ string, _ ...interface{}) {}
func (nopLogger) Info(_ string, _ ...interface{})   {}
func (nopLogger) InfoF(_ string, _ ...interface{})  {}
func (nopLogger) Warn(_ string, _ ...interface{})   {}
func (nopLogger) WarnF(_ string, _ ...interface{})  {}
func (nopLogger) Error(_ string, _ ...interface{})  {}
func (nopLogger) ErrorF(_ string, _ ...interface{}) {}
func (nopLogger) Fatal(_ string, _ ...interface{})  {}
func (nopLogger) FatalF(_ string, _ ...interface{}) {}

type fakeFlightOperation struct {
	flights  map[string]*operation.Flight
	failWith error
}

func newFakeFlightOperation() *fakeFlightOperation {
	return &fakeFlightOperation{flights: make(map[string]*operation.Flight)}
}

func (f *fakeFlightOperation) GetFlightByID(id string) (*operation.Flight, error) {
	flight, exists := f.flights[id]
	if !exists {
		return nil, operation.ErrFlightNotFound
	}
	clone := *flight
	return &clone, nil
}

func (f *fakeFlightOperation) GetFlightsBySession(sessionID string) ([]*operation.Flight, error) {
	flights := make([]*operation.Flight, 0)
	for _, flight := range f.flights {
		if flight.SessionID == sessionID {
			clone := *flight
			flights = append(flights, &clone)
		}
	}
	return flights, nil
}

func (f *fakeFlightOperation) GetArrivalsByAirport(airport string, excludeSessionID string) ([]*operation.Flight, error) {
	flights := make([]*operation.Flight, 0)
	for _, flight := range f.flights {
		if flight.Arrival == airport && flight.SessionID != excludeSessionID {
			clone := *flight
			flights = append(flights, &clone)
		}
	}
	return flights, nil
}

func (f *fakeFlightOperation) NewFlight(sessionID string, flight *Flight) (*operation.Flight, error) {
	model := &operation.Flight{
		ID:        flight.ID,
		SessionID: sessionID,
		Callsign:  flight.Callsign,
		Arrival:   flight.Arrival,
		Status:    string(flight.Status),
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	f.flights[model.ID] = model
	return model, nil
}

func (f *fakeFlightOperation) UpdateFlightFields(id string, fields FieldSet) (*operation.Flight, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	flight, exists := f.flights[id]
	if !exists {
		return nil, operation.ErrFlightNotFound
	}
	for field, value := range fields {
		text, _ := value.(string)
		switch field {
		case FieldRunway:
			flight.Runway = text
		case FieldSquawk:
			flight.Squawk = text
		case FieldPdcRemarks:
			flight.PdcRemarks = text
		default:
			return nil, operation.ErrFieldInvalid
		}
	}
	flight.UpdatedAt = time.Now()
	clone := *flight
	return &clone, nil
}

func (f *fakeFlightOperation) DeleteFlight(id string) error {
	if _, exists := f.flights[id]; !exists {
		return operation.ErrFlightNotFound
	}
	delete(f.flights, id)
	return nil
}

type fakeSessionOperation struct {
	sessions map[string]*operation.Session
}

func newFakeSessionOperation() *fakeSessionOperation {
	return &fakeSessionOperation{sessions: make(map[string]*operation.Session)}
}

func (f *fakeSessionOperation) GetSessionByID(id string) (*operation.Session, error) {
	session, exists := f.sessions[id]
	if !exists {
		return nil, operation.ErrSessionNotFound
	}
	return session, nil
}

func (f *fakeSessionOperation) VerifySessionAccess(id string, accessID string) (*operation.Session, error) {
	session, err := f.GetSessionByID(id)
	if err != nil {
		return nil, err
	}
	if session.AccessID != accessID {
		return nil, operation.ErrAccessDenied
	}
	return session, nil
}

func (f *fakeSessionOperation) GetActiveSessions() ([]*operation.Session, error) {
	sessions := make([]*operation.Session, 0, len(f.sessions))
	for _, session := range f.sessions {
		if !session.Closed {
			sessions = append(sessions, session)
		}
	}
	return sessions, nil
}

func (f *fakeSessionOperation) NewSession(airport string, accessID string) (*operation.Session, error) {
	session := &operation.Session{ID: airport + "-session", AccessID: accessID, Airport: airport}
	f.sessions[session.ID] = session
	return session, nil
}

func (f *fakeSessionOperation) UpdateSession(id string, update *SessionUpdate) (*operation.Session, error) {
	session, err := f.GetSessionByID(id)
	if err != nil {
		return nil, err
	}
	if update.ActiveRunway != nil {
		session.ActiveRunway = *update.ActiveRunway
	}
	if update.Pfatc != nil {
		session.Pfatc = *update.Pfatc
	}
	return session, nil
}

func (f *fakeSessionOperation) CloseSession(id string) error {
	session, err := f.GetSessionByID(id)
	if err != nil {
		return err
	}
	session.Closed = true
	return nil
}

func testHubConfig() *c.HubConfig {
	return &c.HubConfig{
		SnapshotDuration:    time.Hour,
		SnapshotCacheDur:    time.Millisecond,
		MaxBroadcastWorkers: 4,
		MaxClientsPerRoom:   4,
		SendBufferSize:      16,
		PresenceDuration:    time.Minute,
		WriteDuration:       time.Second,
		PongDuration:        time.Minute,
	}
}

type serviceFixture struct {
	service  *HubService
	hub      *Hub
	flights  *fakeFlightOperation
	sessions *fakeSessionOperation
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	logger := nopLogger{}
	flights := newFakeFlightOperation()
	sessions := newFakeSessionOperation()
	operations := operation.NewDatabaseOperations(flights, sessions)
	hubConfig := testHubConfig()
	hub := NewHub(logger, hubConfig)
	presence := NewPresenceRegistry(hubConfig.PresenceDuration)
	snapshots := NewSnapshotBuilder(logger, hubConfig, operations, hub)
	return &serviceFixture{
		service:  NewHubService(logger, operations, hub, presence, snapshots),
		hub:      hub,
		flights:  flights,
		sessions: sessions,
	}
}

func (fixture *serviceFixture) addClient(t *testing.T, kind ChannelKind, sessionID, airport, userID string) *HubClient {
	t.Helper()
	client := NewHubClient(nopLogger{}, nil, kind, sessionID, airport,
		&UserDescriptor{ID: userID, Username: userID}, kind == OverviewChannel,
		16, time.Second, time.Minute)
	if err := fixture.hub.AddClient(client); err != nil {
		t.Fatalf("add client: %v", err)
	}
	return client
}

func receiveEvent(t *testing.T, client *HubClient) *Envelope {
	t.Helper()
	select {
	case data := <-client.send:
		envelope := &Envelope{}
		if err := json.Unmarshal(data, envelope); err != nil {
			t.Fatalf("decode frame: %v", err)
		}
		return envelope
	default:
		t.Fatal("expected a queued frame")
		return nil
	}
}

func mustEnvelope(t *testing.T, event EventKind, payload interface{}) *Envelope {
	t.Helper()
	envelope, err := NewEnvelope(event, payload)
	if err != nil {
		t.Fatalf("encode envelope: %v", err)
	}
	return envelope
}

func TestUpdateFlightFansOutToAllWatchers(t *testing.T) {
	fixture := newServiceFixture(t)
	fixture.flights.flights["f1"] = &operation.Flight{
		ID: "f1", SessionID: "s1", Callsign: "CES1001", Arrival: "ZBAA",
	}

	owner := fixture.addClient(t, SessionChannel, "s1", "ZSSS", "u1")
	peer := fixture.addClient(t, SessionChannel, "s1", "ZSSS", "u2")
	watcher := fixture.addClient(t, ArrivalsChannel, "s2", "ZBAA", "u3")
	observer := fixture.addClient(t, OverviewChannel, "", "", "admin")

	fixture.service.HandleEnvelope(owner, mustEnvelope(t, EventUpdateFlight,
		&UpdateFlightRequest{FlightID: "f1", Updates: FieldSet{FieldRunway: "36L"}}))

	for _, client := range []*HubClient{owner, peer} {
		envelope := receiveEvent(t, client)
		if envelope.Event != EventFlightUpdated {
			t.Fatalf("expected flightUpdated on session channel, got %s", envelope.Event)
		}
		flight := &Flight{}
		if err := json.Unmarshal(envelope.Data, flight); err != nil {
			t.Fatalf("decode flight: %v", err)
		}
		if flight.Runway != "36L" {
			t.Fatalf("expected runway 36L on the wire, got %q", flight.Runway)
		}
		if flight.UpdatedAt.IsZero() {
			t.Fatal("server must stamp the authoritative timestamp")
		}
	}

	if envelope := receiveEvent(t, watcher); envelope.Event != EventArrivalUpdated {
		t.Fatalf("expected arrivalUpdated for watcher, got %s", envelope.Event)
	}
	if envelope := receiveEvent(t, observer); envelope.Event != EventFlightUpdated {
		t.Fatalf("expected flightUpdated for overview, got %s", envelope.Event)
	}
}

func TestArrivalWatchersOfOwningSessionAreSkipped(t *testing.T) {
	fixture := newServiceFixture(t)
	fixture.flights.flights["f1"] = &operation.Flight{
		ID: "f1", SessionID: "s1", Callsign: "CES1001", Arrival: "ZSSS",
	}

	owner := fixture.addClient(t, SessionChannel, "s1", "ZSSS", "u1")
	// 归属会话自己的到达观察者, 同一变更不应收到两份
	selfWatcher := fixture.addClient(t, ArrivalsChannel, "s1", "ZSSS", "u1")

	fixture.service.HandleEnvelope(owner, mustEnvelope(t, EventUpdateFlight,
		&UpdateFlightRequest{FlightID: "f1", Updates: FieldSet{FieldRunway: "18L"}}))

	receiveEvent(t, owner)
	select {
	case <-selfWatcher.send:
		t.Fatal("arrival watcher of the owning session must be skipped")
	default:
	}
}

func TestUpdateFlightErrorGoesToOriginOnly(t *testing.T) {
	fixture := newServiceFixture(t)
	origin := fixture.addClient(t, SessionChannel, "s1", "ZSSS", "u1")
	peer := fixture.addClient(t, SessionChannel, "s1", "ZSSS", "u2")

	fixture.service.HandleEnvelope(origin, mustEnvelope(t, EventUpdateFlight,
		&UpdateFlightRequest{FlightID: "missing", Updates: FieldSet{FieldRunway: "18L"}}))

	envelope := receiveEvent(t, origin)
	if envelope.Event != EventOperationError {
		t.Fatalf("expected operationError, got %s", envelope.Event)
	}
	opError := &OperationError{}
	if err := json.Unmarshal(envelope.Data, opError); err != nil {
		t.Fatalf("decode error payload: %v", err)
	}
	if opError.Errno != FlightNotFound || opError.FlightID != "missing" {
		t.Fatalf("unexpected error payload %+v", opError)
	}

	select {
	case <-peer.send:
		t.Fatal("errors are addressed to the origin, not broadcast")
	default:
	}
}

func TestArrivalUpdateErrorUsesArrivalErrorEvent(t *testing.T) {
	fixture := newServiceFixture(t)
	watcher := fixture.addClient(t, ArrivalsChannel, "s2", "ZBAA", "u3")

	fixture.service.HandleEnvelope(watcher, mustEnvelope(t, EventUpdateArrival,
		&UpdateFlightRequest{FlightID: "missing", Updates: FieldSet{FieldRunway: "01"}}))

	if envelope := receiveEvent(t, watcher); envelope.Event != EventArrivalError {
		t.Fatalf("expected arrivalError, got %s", envelope.Event)
	}
}

func TestDeleteFlightNotifiesSessionAndWatchers(t *testing.T) {
	fixture := newServiceFixture(t)
	fixture.flights.flights["f1"] = &operation.Flight{
		ID: "f1", SessionID: "s1", Callsign: "CES1001", Arrival: "ZBAA",
	}
	owner := fixture.addClient(t, SessionChannel, "s1", "ZSSS", "u1")
	watcher := fixture.addClient(t, ArrivalsChannel, "s2", "ZBAA", "u3")
	supervisor := fixture.addClient(t, OverviewChannel, "s3", "", "u4")

	fixture.service.HandleEnvelope(owner, mustEnvelope(t, EventDeleteFlight,
		&DeleteNotice{FlightID: "f1"}))

	if envelope := receiveEvent(t, owner); envelope.Event != EventFlightDeleted {
		t.Fatalf("expected flightDeleted, got %s", envelope.Event)
	}
	if envelope := receiveEvent(t, watcher); envelope.Event != EventFlightDeleted {
		t.Fatalf("expected flightDeleted for watcher, got %s", envelope.Event)
	}
	if envelope := receiveEvent(t, supervisor); envelope.Event != EventFlightDeleted {
		t.Fatalf("expected flightDeleted for overview, got %s", envelope.Event)
	}
	if _, err := fixture.flights.GetFlightByID("f1"); err == nil {
		t.Fatal("flight must be gone after delete")
	}
}

func TestRequestFlightsSendsFullListToOrigin(t *testing.T) {
	fixture := newServiceFixture(t)
	fixture.flights.flights["f1"] = &operation.Flight{ID: "f1", SessionID: "s1"}
	fixture.flights.flights["f2"] = &operation.Flight{ID: "f2", SessionID: "s1"}
	fixture.flights.flights["other"] = &operation.Flight{ID: "other", SessionID: "s2"}
	client := fixture.addClient(t, SessionChannel, "s1", "ZSSS", "u1")

	fixture.service.HandleEnvelope(client, mustEnvelope(t, EventRequestFlights, nil))

	envelope := receiveEvent(t, client)
	if envelope.Event != EventFullFlightList {
		t.Fatalf("expected fullFlightList, got %s", envelope.Event)
	}
	var flights []*Flight
	if err := json.Unmarshal(envelope.Data, &flights); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(flights) != 2 {
		t.Fatalf("expected 2 session flights, got %d", len(flights))
	}
}

func TestPresenceEventsFanOutToRoom(t *testing.T) {
	fixture := newServiceFixture(t)
	editor := fixture.addClient(t, PresenceChannel, "s1", "ZSSS", "u1")
	viewer := fixture.addClient(t, PresenceChannel, "s1", "ZSSS", "u2")
	fixture.service.presence.UserJoin("s1", editor.user)
	fixture.service.presence.UserJoin("s1", viewer.user)

	fixture.service.HandleEnvelope(editor, mustEnvelope(t, EventFieldEditingStart,
		&FieldEditingNotice{FlightID: "f1", FieldName: FieldRunway}))

	for _, client := range []*HubClient{editor, viewer} {
		envelope := receiveEvent(t, client)
		if envelope.Event != EventFieldEditingUpdate {
			t.Fatalf("expected fieldEditingUpdate, got %s", envelope.Event)
		}
		var states []*FieldEditingState
		if err := json.Unmarshal(envelope.Data, &states); err != nil {
			t.Fatalf("decode states: %v", err)
		}
		if len(states) != 1 || states[0].UserID != "u1" {
			t.Fatalf("unexpected states %+v", states)
		}
	}
}

func TestClientDisconnectClearsPresence(t *testing.T) {
	fixture := newServiceFixture(t)
	editor := fixture.addClient(t, PresenceChannel, "s1", "ZSSS", "u1")
	viewer := fixture.addClient(t, PresenceChannel, "s1", "ZSSS", "u2")
	fixture.service.presence.UserJoin("s1", editor.user)
	fixture.service.presence.UserJoin("s1", viewer.user)
	fixture.service.presence.StartEditing("s1", &FieldEditingState{
		FlightID: "f1", FieldName: FieldRunway, UserID: "u1", Username: "u1",
	})

	fixture.service.OnClientClosed(editor)

	envelope := receiveEvent(t, viewer)
	if envelope.Event != EventFieldEditingUpdate {
		t.Fatalf("expected fieldEditingUpdate after leave, got %s", envelope.Event)
	}
	var states []*FieldEditingState
	if err := json.Unmarshal(envelope.Data, &states); err != nil {
		t.Fatalf("decode states: %v", err)
	}
	if len(states) != 0 {
		t.Fatalf("expected editing marks of the leaver dropped, got %+v", states)
	}
}

func TestSnapshotBuilderAggregatesSessions(t *testing.T) {
	fixture := newServiceFixture(t)
	fixture.sessions.sessions["s1"] = &operation.Session{ID: "s1", Airport: "ZSSS"}
	fixture.flights.flights["f1"] = &operation.Flight{ID: "f1", SessionID: "s1"}
	fixture.flights.flights["f2"] = &operation.Flight{ID: "f2", SessionID: "s1"}
	fixture.flights.flights["inbound"] = &operation.Flight{ID: "inbound", SessionID: "s2", Arrival: "ZSSS"}

	snapshot := fixture.service.snapshots.Snapshot()
	if snapshot.TotalActiveSessions != 1 || snapshot.TotalFlights != 2 {
		t.Fatalf("unexpected totals %+v", snapshot)
	}
	if len(snapshot.ArrivalsByAirport["ZSSS"]) != 1 {
		t.Fatalf("expected 1 external arrival for ZSSS, got %d", len(snapshot.ArrivalsByAirport["ZSSS"]))
	}
}

func TestSnapshotCacheInvalidation(t *testing.T) {
	fixture := newServiceFixture(t)
	fixture.sessions.sessions["s1"] = &operation.Session{ID: "s1", Airport: "ZSSS"}

	first := fixture.service.snapshots.Snapshot()
	fixture.flights.flights["f1"] = &operation.Flight{ID: "f1", SessionID: "s1"}
	if cached := fixture.service.snapshots.Snapshot(); cached.TotalFlights != first.TotalFlights {
		t.Fatal("expected cached snapshot within the cache window")
	}

	fixture.service.snapshots.MarkDirty()
	if rebuilt := fixture.service.snapshots.Snapshot(); rebuilt.TotalFlights != 1 {
		t.Fatalf("expected rebuild after invalidation, got %d flights", rebuilt.TotalFlights)
	}
}
