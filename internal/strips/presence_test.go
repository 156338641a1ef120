package strips

import (
	"testing"
	"time"

	. "github.com/half-nothing/strip-sync/internal/interfaces/strips"
)

func editingState(flightID, field, userID string) *FieldEditingState {
	return &FieldEditingState{
		FlightID:  flightID,
		FieldName: field,
		UserID:    userID,
		Username:  "controller-" + userID,
		Timestamp: time.Now(),
	}
}

func TestPresenceStartStop(t *testing.T) {
	table := NewPresenceTable(time.Minute)

	table.Start(editingState("1", "runway", "u1"))
	if len(table.Snapshot()) != 1 {
		t.Fatal("start did not record the entry")
	}

	table.Stop("1", "runway")
	if len(table.Snapshot()) != 0 {
		t.Error("stop did not clear the entry")
	}
}

func TestPresenceLastWriteWinsByArrival(t *testing.T) {
	table := NewPresenceTable(time.Minute)

	table.Start(editingState("1", "runway", "u1"))
	table.Start(editingState("1", "runway", "u2"))

	snapshot := table.Snapshot()
	if len(snapshot) != 1 {
		t.Fatalf("snapshot len = %d; expected 1", len(snapshot))
	}
	if snapshot[0].UserID != "u2" {
		t.Errorf("user = %s; later arrival must win", snapshot[0].UserID)
	}
}

func TestPresenceDropUser(t *testing.T) {
	table := NewPresenceTable(time.Minute)

	table.Start(editingState("1", "runway", "u1"))
	table.Start(editingState("2", "remark", "u1"))
	table.Start(editingState("1", "squawk", "u2"))

	dropped := table.DropUser("u1")
	if len(dropped) != 2 {
		t.Errorf("dropped %d entries; expected 2", len(dropped))
	}
	if len(table.Snapshot()) != 1 {
		t.Error("other users' entries were dropped too")
	}
}

func TestPresenceExpiry(t *testing.T) {
	table := NewPresenceTable(10 * time.Millisecond)

	table.Start(editingState("1", "runway", "u1"))
	time.Sleep(25 * time.Millisecond)

	if len(table.Snapshot()) != 0 {
		t.Error("expired entry still visible in snapshot")
	}
	if swept := table.Sweep(); swept != 1 {
		t.Errorf("swept %d; expected 1", swept)
	}
}

func TestPresenceReplaceAll(t *testing.T) {
	table := NewPresenceTable(time.Minute)

	table.Start(editingState("1", "runway", "u1"))
	table.ReplaceAll([]*FieldEditingState{
		editingState("2", "remark", "u2"),
		editingState("3", "squawk", "u3"),
	})

	if table.Len() != 2 {
		t.Errorf("len = %d after replace; expected 2", table.Len())
	}
	if _, found := table.findEntry("1", "runway"); found {
		t.Error("replaced table still holds the old entry")
	}
}
