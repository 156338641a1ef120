package strips

import (
	"context"
	"testing"
	"time"

	"github.com/half-nothing/strip-sync/internal/interfaces/global"
	. "github.com/half-nothing/strip-sync/internal/interfaces/strips"
)

type nopCallable struct{}

func (nopCallable) Invoke(_ context.Context) error { return nil }

type nopLogger struct{}

func (nopLogger) Init(_ bool)                       {}
func (nopLogger) ShutdownCallback() global.Callable { return nopCallable{} }
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

func newTestEngine(timeout time.Duration) (*Engine, *Store, *PendingTracker) {
	store := NewStore()
	pending := NewPendingTracker(timeout)
	return NewEngine(nopLogger{}, store, pending), store, pending
}

func baseFlight(updatedAt time.Time) *Flight {
	return &Flight{
		ID:        "1",
		SessionID: "s1",
		Callsign:  "ABC123",
		Departure: "ZSPD",
		Arrival:   "ZBAA",
		Status:    StatusPending,
		Timestamp: updatedAt,
		UpdatedAt: updatedAt,
	}
}

func TestMergeFirstSightInserts(t *testing.T) {
	engine, store, _ := newTestEngine(time.Second)
	t0 := time.Now()

	engine.MergeFlight(baseFlight(t0))

	flight, ok := store.Get("1")
	if !ok {
		t.Fatal("flight not inserted on first sight")
	}
	if flight.Callsign != "ABC123" {
		t.Errorf("callsign = %q; expected ABC123", flight.Callsign)
	}
}

func TestMergeIdempotence(t *testing.T) {
	engine, store, _ := newTestEngine(time.Second)
	t0 := time.Now()

	update := baseFlight(t0)
	update.Runway = "35L"

	engine.MergeFlight(update)
	first, _ := store.Get("1")

	engine.MergeFlight(update)
	second, _ := store.Get("1")

	if *first != *second {
		t.Errorf("repeated apply changed state: %+v != %+v", first, second)
	}
}

func TestMergeRejectsOlderWrites(t *testing.T) {
	engine, store, _ := newTestEngine(time.Second)
	t0 := time.Now()

	newer := baseFlight(t0.Add(time.Second))
	newer.Runway = "17R"
	engine.MergeFlight(newer)

	older := baseFlight(t0)
	older.Runway = "35L"
	engine.MergeFlight(older)

	flight, _ := store.Get("1")
	if flight.Runway != "17R" {
		t.Errorf("runway = %q; stale broadcast must not regress a newer value", flight.Runway)
	}
	if !flight.UpdatedAt.Equal(t0.Add(time.Second)) {
		t.Errorf("updated_at regressed to %v", flight.UpdatedAt)
	}
}

func TestMergeCustomStripIgnoresInbound(t *testing.T) {
	engine, store, _ := newTestEngine(time.Second)
	t0 := time.Now()

	custom := baseFlight(t0)
	custom.Custom = true
	store.Apply(&StoreEvent{Kind: FlightAddedEvent, Flight: custom})

	update := baseFlight(t0.Add(time.Minute))
	update.Callsign = "HACKED"
	engine.MergeFlight(update)

	flight, _ := store.Get("1")
	if flight.Callsign != "ABC123" {
		t.Errorf("custom strip accepted inbound update: callsign = %q", flight.Callsign)
	}
}

// Scenario A: a stale snapshot must not clobber a keystroke still in flight.
func TestPendingWinsAgainstStaleBroadcast(t *testing.T) {
	engine, store, pending := newTestEngine(time.Second)
	t0 := time.Now().Add(-time.Second)

	engine.MergeFlight(baseFlight(t0))

	previous, ok := engine.ApplyLocal("1", FieldStatus, string(StatusStartup))
	if !ok {
		t.Fatal("local apply failed")
	}
	pending.Mark("1", FieldStatus, string(StatusStartup), previous)

	stale := baseFlight(t0)
	engine.MergeFlight(stale)

	flight, _ := store.Get("1")
	if flight.Status != StatusStartup {
		t.Errorf("status = %q; local edit lost to stale broadcast", flight.Status)
	}
	if _, exists := pending.Lookup("1", FieldStatus); !exists {
		t.Error("pending marker cleared by a stale broadcast")
	}
}

// Scenario B: the matching echo clears the marker and keeps the value.
func TestEchoClearsPendingMarker(t *testing.T) {
	engine, store, pending := newTestEngine(time.Second)
	t0 := time.Now().Add(-time.Second)
	t1 := time.Now()

	engine.MergeFlight(baseFlight(t0))
	previous, _ := engine.ApplyLocal("1", FieldStatus, string(StatusStartup))
	pending.Mark("1", FieldStatus, string(StatusStartup), previous)

	echo := baseFlight(t1)
	echo.Status = StatusStartup
	engine.MergeFlight(echo)

	flight, _ := store.Get("1")
	if flight.Status != StatusStartup {
		t.Errorf("status = %q after echo", flight.Status)
	}
	if _, exists := pending.Lookup("1", FieldStatus); exists {
		t.Error("pending marker survived its echo")
	}
}

// Scenario C: snapshot merge is per-field, a pending remark shields only itself.
func TestSnapshotKeepsPendingFieldOnly(t *testing.T) {
	engine, store, pending := newTestEngine(time.Second)
	t0 := time.Now().Add(-time.Second)

	engine.MergeFlight(baseFlight(t0))
	previous, _ := engine.ApplyLocal("1", FieldRemark, "hold short 35L")
	pending.Mark("1", FieldRemark, "hold short 35L", previous)

	snapshot := baseFlight(time.Now().Add(time.Second))
	snapshot.Remark = "old remark"
	snapshot.Runway = "35L"
	snapshot.Hidden = false
	engine.MergeFlight(snapshot)

	flight, _ := store.Get("1")
	if flight.Remark != "hold short 35L" {
		t.Errorf("remark = %q; pending field overwritten by snapshot", flight.Remark)
	}
	if flight.Runway != "35L" {
		t.Errorf("runway = %q; non-pending field must follow a newer snapshot", flight.Runway)
	}
}

func TestDeleteWinsOverPendingEdit(t *testing.T) {
	engine, store, pending := newTestEngine(time.Second)
	t0 := time.Now()

	engine.MergeFlight(baseFlight(t0))
	previous, _ := engine.ApplyLocal("1", FieldRunway, "35L")
	pending.Mark("1", FieldRunway, "35L", previous)

	engine.Delete("1")

	if store.Has("1") {
		t.Fatal("deleted flight still in store")
	}
	if pending.HasFlight("1") {
		t.Error("pending markers survived delete")
	}

	// A later update for the same id is a first-sight re-insert.
	engine.MergeFlight(baseFlight(t0.Add(time.Second)))
	if !store.Has("1") {
		t.Error("post-delete update was not treated as first sight")
	}
}

func TestFieldIndependence(t *testing.T) {
	engine, store, pending := newTestEngine(time.Second)
	t0 := time.Now().Add(-time.Second)

	engine.MergeFlight(baseFlight(t0))

	prevRunway, _ := engine.ApplyLocal("1", FieldRunway, "35L")
	pending.Mark("1", FieldRunway, "35L", prevRunway)
	prevSquawk, _ := engine.ApplyLocal("1", FieldSquawk, "4201")
	pending.Mark("1", FieldSquawk, "4201", prevSquawk)

	// Echoes arrive interleaved with each other's values already applied
	// server-side, in either order.
	echoSquawk := baseFlight(time.Now())
	echoSquawk.Squawk = "4201"
	echoSquawk.Runway = "35L"
	engine.MergeFlight(echoSquawk)

	echoRunway := baseFlight(time.Now())
	echoRunway.Runway = "35L"
	echoRunway.Squawk = "4201"
	engine.MergeFlight(echoRunway)

	flight, _ := store.Get("1")
	if flight.Runway != "35L" || flight.Squawk != "4201" {
		t.Errorf("concurrent field edits lost: runway=%q squawk=%q", flight.Runway, flight.Squawk)
	}
	if pending.HasFlight("1") {
		t.Error("markers not cleared after both echoes")
	}
}

func TestPendingTimeoutSelfHeals(t *testing.T) {
	engine, store, pending := newTestEngine(20 * time.Millisecond)
	t0 := time.Now().Add(-time.Second)

	engine.MergeFlight(baseFlight(t0))
	previous, _ := engine.ApplyLocal("1", FieldRunway, "35L")
	pending.Mark("1", FieldRunway, "35L", previous)

	time.Sleep(40 * time.Millisecond)

	// The echo never arrived; after the window the field accepts newer
	// values again instead of staying frozen.
	update := baseFlight(time.Now())
	update.Runway = "17R"
	engine.MergeFlight(update)

	flight, _ := store.Get("1")
	if flight.Runway != "17R" {
		t.Errorf("runway = %q; field still masked after pending timeout", flight.Runway)
	}
}

func TestMergeFieldsPartialPayload(t *testing.T) {
	engine, store, _ := newTestEngine(time.Second)
	t0 := time.Now().Add(-time.Second)

	engine.MergeFlight(baseFlight(t0))

	engine.MergeFields("1", FieldSet{FieldRunway: "35L", FieldCleared: true}, time.Now())

	flight, _ := store.Get("1")
	if flight.Runway != "35L" || !flight.Cleared {
		t.Errorf("partial payload not applied: %+v", flight)
	}
	if flight.Callsign != "ABC123" {
		t.Errorf("field absent from payload was touched: callsign = %q", flight.Callsign)
	}
}

func TestShieldProtectsDebounceWindow(t *testing.T) {
	engine, store, _ := newTestEngine(time.Second)
	t0 := time.Now().Add(-time.Second)

	engine.MergeFlight(baseFlight(t0))
	engine.ApplyLocal("1", FieldRemark, "typing…")
	// The keystroke sits in the debounce window: no pending marker yet.
	engine.SetShield(func(flightID, field string) bool {
		return flightID == "1" && field == FieldRemark
	})

	snapshot := baseFlight(time.Now())
	snapshot.Remark = "server remark"
	snapshot.Runway = "35L"
	engine.MergeFlight(snapshot)

	flight, _ := store.Get("1")
	if flight.Remark != "typing…" {
		t.Errorf("remark = %q; snapshot reverted a keystroke still being typed", flight.Remark)
	}
	if flight.Runway != "35L" {
		t.Errorf("runway = %q; unshielded field must follow the snapshot", flight.Runway)
	}
}

func TestRevertFieldRestoresPrevious(t *testing.T) {
	engine, store, pending := newTestEngine(time.Second)
	t0 := time.Now()

	engine.MergeFlight(baseFlight(t0))
	previous, _ := engine.ApplyLocal("1", FieldRunway, "35L")
	pending.Mark("1", FieldRunway, "35L", previous)

	// Server rejected the update: roll the optimistic mutation back.
	if entry, ok := pending.Take("1", FieldRunway); ok {
		engine.RevertField("1", FieldRunway, entry.Previous)
	}

	flight, _ := store.Get("1")
	if flight.Runway != "" {
		t.Errorf("runway = %q; rollback did not restore previous value", flight.Runway)
	}
}
