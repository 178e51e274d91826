package core

// EventSink receives what the synchronization engine observes in joined rooms.
//
// Methods are called from the polling goroutine or from a command goroutine while
// the session's room locks are held, so implementations must not call back into
// the session. Event order within one poll or send response is preserved.
type EventSink interface {
	// NewMessage is a chat line from another user. whisper marks a private message.
	NewMessage(room RoomInfo, from User, text string, whisper bool)
	// UserJoined is called when a user enters the room.
	UserJoined(room RoomInfo, user User)
	// UserLeft is called when a user leaves the room or is auto-removed.
	UserLeft(room RoomInfo, user User)
	// SystemMessage carries backend notices and gateway warnings.
	SystemMessage(room RoomInfo, text string)
	// UserMode reports a privilege change such as "+h".
	UserMode(room RoomInfo, user User, mode string)
	// Kicked is called once when the backend stops recognizing the session as a room member.
	Kicked(room RoomInfo)
}
