package irc

import "strings"

// nbsp stands in for spaces in room and user names, which IRC cannot carry.
const nbsp = "\u00a0"

// ToWire encodes a backend name for use as an IRC nick or channel name.
func ToWire(name string) string {
	return strings.ReplaceAll(name, " ", nbsp)
}

// FromWire decodes a name received from the IRC client.
func FromWire(name string) string {
	return strings.ReplaceAll(name, nbsp, " ")
}

// Channel returns the IRC channel for a backend room name.
func Channel(room string) string {
	return "#" + ToWire(room)
}

// RoomName returns the backend room name for an IRC channel.
func RoomName(channel string) string {
	return FromWire(strings.TrimPrefix(channel, "#"))
}

// IsChannel reports whether target names a channel.
func IsChannel(target string) bool {
	return strings.HasPrefix(target, "#")
}

// splitList splits a comma separated parameter, dropping empty items.
func splitList(param string) []string {
	var out []string
	for _, p := range strings.Split(param, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
