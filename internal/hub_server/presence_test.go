package hub_server

import (
	"testing"
	"time"

	. "github.com/half-nothing/strip-sync/internal/interfaces/strips"
)

func TestPresenceRegistryEditingLifecycle(t *testing.T) {
	registry := NewPresenceRegistry(time.Minute)

	registry.StartEditing("s1", &FieldEditingState{
		FlightID: "f1", FieldName: FieldRunway, UserID: "u1", Username: "tower",
	})
	registry.StartEditing("s1", &FieldEditingState{
		FlightID: "f1", FieldName: FieldSquawk, UserID: "u2", Username: "ground",
	})

	states := registry.EditingSnapshot("s1")
	if len(states) != 2 {
		t.Fatalf("expected 2 editing states, got %d", len(states))
	}

	registry.StopEditing("s1", "f1", FieldRunway)
	states = registry.EditingSnapshot("s1")
	if len(states) != 1 || states[0].UserID != "u2" {
		t.Fatalf("expected only u2 editing, got %+v", states)
	}
}

func TestPresenceRegistryLastWriterWinsPerField(t *testing.T) {
	registry := NewPresenceRegistry(time.Minute)

	registry.StartEditing("s1", &FieldEditingState{
		FlightID: "f1", FieldName: FieldRunway, UserID: "u1", Username: "tower",
	})
	registry.StartEditing("s1", &FieldEditingState{
		FlightID: "f1", FieldName: FieldRunway, UserID: "u2", Username: "ground",
	})

	states := registry.EditingSnapshot("s1")
	if len(states) != 1 || states[0].UserID != "u2" {
		t.Fatalf("expected u2 to replace u1 on the same field, got %+v", states)
	}
}

func TestPresenceRegistryExpiry(t *testing.T) {
	registry := NewPresenceRegistry(10 * time.Millisecond)

	registry.StartEditing("s1", &FieldEditingState{
		FlightID: "f1", FieldName: FieldRunway, UserID: "u1", Username: "tower",
	})
	time.Sleep(25 * time.Millisecond)

	if states := registry.EditingSnapshot("s1"); len(states) != 0 {
		t.Fatalf("expected expired state dropped, got %+v", states)
	}
}

func TestPresenceRegistryUserConnectionCounting(t *testing.T) {
	registry := NewPresenceRegistry(time.Minute)
	user := &UserDescriptor{ID: "u1", Username: "tower"}

	if !registry.UserJoin("s1", user) {
		t.Fatal("first join must report a new user")
	}
	if registry.UserJoin("s1", user) {
		t.Fatal("second connection of the same user is not a new join")
	}

	if registry.UserLeave("s1", "u1") {
		t.Fatal("user still has one connection, must not leave yet")
	}
	if !registry.UserLeave("s1", "u1") {
		t.Fatal("last connection gone, user must leave")
	}
	if users := registry.Users("s1"); len(users) != 0 {
		t.Fatalf("expected empty user list, got %+v", users)
	}
}

func TestPresenceRegistryLeaveDropsEditingMarks(t *testing.T) {
	registry := NewPresenceRegistry(time.Minute)
	registry.UserJoin("s1", &UserDescriptor{ID: "u1", Username: "tower"})
	registry.StartEditing("s1", &FieldEditingState{
		FlightID: "f1", FieldName: FieldRunway, UserID: "u1", Username: "tower",
	})
	registry.StartEditing("s1", &FieldEditingState{
		FlightID: "f2", FieldName: FieldSquawk, UserID: "u2", Username: "ground",
	})

	registry.UserLeave("s1", "u1")

	states := registry.EditingSnapshot("s1")
	if len(states) != 1 || states[0].UserID != "u2" {
		t.Fatalf("expected only u2 marks to survive, got %+v", states)
	}
}
