package core

import (
	"errors"
	"testing"
)

func TestRoomMembership(t *testing.T) {
	room := NewRoom("lobby", "Main room", 12)
	if room.ID() != NoRoomID {
		t.Fatalf("expected sentinel id, got %q", room.ID())
	}

	alice := &User{ID: 1, Name: "alice"}
	if !room.AddUser(alice) {
		t.Fatalf("expected alice to be added")
	}
	if room.AddUser(&User{ID: 1, Name: "alice2"}) {
		t.Fatalf("same id must not be added twice")
	}
	if room.UserByName("alice") != alice {
		t.Fatalf("lookup by name failed")
	}
	if !room.RemoveUser(&User{ID: 1}) {
		t.Fatalf("expected removal by id")
	}
	if len(room.Users()) != 0 {
		t.Fatalf("expected empty member list")
	}
}

func TestRoomInfoSnapshot(t *testing.T) {
	room := NewRoom("lobby", "Main room", 0)
	room.SetID("42")
	room.SetAdmins([]string{"root"})
	room.SetOperatorID(7)

	info := room.Info()
	room.SetAdmins(nil)

	if info.ID != "42" || info.OperatorID != 7 {
		t.Fatalf("unexpected snapshot: %+v", info)
	}
	if !info.IsAdmin("root") || info.IsAdmin("bob") {
		t.Fatalf("admin snapshot mismatch: %+v", info.Admins)
	}
}

func TestErrorKinds(t *testing.T) {
	err := MessageError("rate limited")
	if !errors.Is(err, ErrMessage) {
		t.Fatalf("expected ErrMessage kind")
	}
	if errors.Is(err, ErrRoom) {
		t.Fatalf("unexpected ErrRoom kind")
	}

	cause := errors.New("connection reset")
	netErr := NetworkError(cause, "post %s", "/json/getText")
	if !errors.Is(netErr, ErrNetwork) || !errors.Is(netErr, cause) {
		t.Fatalf("expected kind and cause to match: %v", netErr)
	}
	if Reason(netErr) != "post /json/getText" {
		t.Fatalf("unexpected reason %q", Reason(netErr))
	}
}
