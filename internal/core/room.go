package core

import (
	"sync"
	"time"
)

// NoRoomID marks a room that has not been joined yet.
const NoRoomID = "-1"

// Room is a backend chat room. Fields below the mutex are guarded by it;
// the embedded lock is taken by whoever mutates the chat index or the member list.
type Room struct {
	Name        string
	Description string
	UsersCount  int

	sync.Mutex
	id          string
	chatIndex   string
	operatorID  int64
	admins      []string
	users       []*User
	lastMessage string
	timestamp   time.Time
}

// NewRoom constructs a room skeleton as found in the room listing.
func NewRoom(name, description string, usersCount int) *Room {
	return &Room{
		Name:        name,
		Description: description,
		UsersCount:  usersCount,
		id:          NoRoomID,
		operatorID:  -1,
	}
}

// RoomInfo is an immutable snapshot of the parts of a room that event sinks need.
type RoomInfo struct {
	ID          string
	Name        string
	Description string
	OperatorID  int64
	Admins      []string
}

// IsAdmin reports whether name is on the room's admin list.
func (ri RoomInfo) IsAdmin(name string) bool {
	for _, a := range ri.Admins {
		if a == name {
			return true
		}
	}
	return false
}

// The methods below expect the caller to hold the room lock.

// ID returns the backend room id, NoRoomID before join.
func (r *Room) ID() string { return r.id }

// SetID records the backend room id.
func (r *Room) SetID(id string) { r.id = id }

// ChatIndex returns the opaque message log cursor.
func (r *Room) ChatIndex() string { return r.chatIndex }

// SetChatIndex stores the cursor returned by the backend.
func (r *Room) SetChatIndex(idx string) { r.chatIndex = idx }

// OperatorID returns the id of the room's current operator, -1 when unknown.
func (r *Room) OperatorID() int64 { return r.operatorID }

// SetOperatorID records the current operator.
func (r *Room) SetOperatorID(id int64) { r.operatorID = id }

// SetAdmins replaces the admin list.
func (r *Room) SetAdmins(names []string) {
	r.admins = append([]string(nil), names...)
}

// LastMessage returns the text of the last message sent to the room by this session.
func (r *Room) LastMessage() string { return r.lastMessage }

// SetLastMessage records the last sent text.
func (r *Room) SetLastMessage(text string) { r.lastMessage = text }

// Timestamp returns the time of the last send attempt (or the join).
func (r *Room) Timestamp() time.Time { return r.timestamp }

// Touch sets the activity timestamp.
func (r *Room) Touch(t time.Time) { r.timestamp = t }

// Info returns a snapshot for event delivery.
func (r *Room) Info() RoomInfo {
	return RoomInfo{
		ID:          r.id,
		Name:        r.Name,
		Description: r.Description,
		OperatorID:  r.operatorID,
		Admins:      append([]string(nil), r.admins...),
	}
}

// SetUsers replaces the member list.
func (r *Room) SetUsers(users []*User) {
	r.users = append([]*User(nil), users...)
}

// Users returns a copy of the member list in arrival order.
func (r *Room) Users() []*User {
	return append([]*User(nil), r.users...)
}

// HasUser reports whether a member with the same id is present.
func (r *Room) HasUser(u *User) bool {
	return r.UserByID(u.ID) != nil
}

// AddUser appends u to the member list. Returns false if already present.
func (r *Room) AddUser(u *User) bool {
	if r.HasUser(u) {
		return false
	}
	r.users = append(r.users, u)
	return true
}

// RemoveUser deletes the member with u's id. Returns true if removed.
func (r *Room) RemoveUser(u *User) bool {
	for i, m := range r.users {
		if m.ID == u.ID {
			r.users = append(r.users[:i], r.users[i+1:]...)
			return true
		}
	}
	return false
}

// UserByID finds a member by backend id.
func (r *Room) UserByID(id int64) *User {
	for _, m := range r.users {
		if m.ID == id {
			return m
		}
	}
	return nil
}

// UserByName finds a member by nickname.
func (r *Room) UserByName(name string) *User {
	for _, m := range r.users {
		if m.Name == name {
			return m
		}
	}
	return nil
}
