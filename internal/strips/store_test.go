package strips

import (
	"testing"
	"time"

	. "github.com/half-nothing/strip-sync/internal/interfaces/strips"
)

func TestStoreApplyInsertAndReplace(t *testing.T) {
	store := NewStore()
	t0 := time.Now()

	store.Apply(&StoreEvent{Kind: FlightAddedEvent, Flight: baseFlight(t0)})
	if store.Len() != 1 {
		t.Fatalf("store len = %d; expected 1", store.Len())
	}

	replaced := baseFlight(t0.Add(time.Second))
	replaced.Callsign = "DEF456"
	store.Apply(&StoreEvent{Kind: FlightUpdatedEvent, Flight: replaced})

	flight, _ := store.Get("1")
	if flight.Callsign != "DEF456" {
		t.Errorf("callsign = %q; Updated must replace by id", flight.Callsign)
	}
	if store.Len() != 1 {
		t.Errorf("store len = %d after replace; expected 1", store.Len())
	}
}

func TestStoreDeleteUnconditional(t *testing.T) {
	store := NewStore()
	store.Apply(&StoreEvent{Kind: FlightAddedEvent, Flight: baseFlight(time.Now())})

	store.Apply(&StoreEvent{Kind: FlightDeletedEvent, FlightID: "1"})
	if store.Has("1") {
		t.Error("delete did not remove the record")
	}

	// Deleting a missing id is a no-op, not an error.
	store.Apply(&StoreEvent{Kind: FlightDeletedEvent, FlightID: "1"})
}

func TestStoreSnapshotIsACopy(t *testing.T) {
	store := NewStore()
	store.Apply(&StoreEvent{Kind: FlightAddedEvent, Flight: baseFlight(time.Now())})

	snapshot := store.Snapshot()
	if len(snapshot) != 1 {
		t.Fatalf("snapshot len = %d; expected 1", len(snapshot))
	}
	snapshot[0].Callsign = "MUTATED"

	flight, _ := store.Get("1")
	if flight.Callsign != "ABC123" {
		t.Error("mutating a snapshot leaked into the store")
	}
}

func TestStoreGetReturnsCopy(t *testing.T) {
	store := NewStore()
	store.Apply(&StoreEvent{Kind: FlightAddedEvent, Flight: baseFlight(time.Now())})

	first, _ := store.Get("1")
	first.Runway = "35L"

	second, _ := store.Get("1")
	if second.Runway != "" {
		t.Error("mutating a Get result leaked into the store")
	}
}

func TestStoreIgnoresEmptyFlight(t *testing.T) {
	store := NewStore()
	store.Apply(&StoreEvent{Kind: FlightAddedEvent, Flight: &Flight{}})
	store.Apply(&StoreEvent{Kind: FlightAddedEvent, Flight: nil})
	if store.Len() != 0 {
		t.Errorf("store len = %d; empty events must be ignored", store.Len())
	}
}
