package irc

import (
	"strings"
	"testing"
)

func TestNamesRoundTripThroughNBSP(t *testing.T) {
	name := "Pokec u kávy"
	wire := ToWire(name)
	if strings.Contains(wire, " ") || !strings.Contains(wire, "\u00a0") {
		t.Fatalf("spaces must become NBSP: %q", wire)
	}
	if got := FromWire(wire); got != name {
		t.Fatalf("round trip changed the name: %q", got)
	}
}

func TestChannelAndRoomName(t *testing.T) {
	if got := Channel("night owls"); got != "#night\u00a0owls" {
		t.Fatalf("unexpected channel: %q", got)
	}
	if got := RoomName("#night\u00a0owls"); got != "night owls" {
		t.Fatalf("unexpected room: %q", got)
	}
	if !IsChannel("#lobby") || IsChannel("alice") {
		t.Fatalf("IsChannel misclassified a target")
	}
}

func TestSplitListDropsEmptyItems(t *testing.T) {
	got := splitList("#a,,#b, ")
	if strings.Join(got, "|") != "#a|#b" {
		t.Fatalf("unexpected split: %q", got)
	}
	if splitList("") != nil {
		t.Fatalf("empty parameter must yield no items")
	}
}
