// Package chat keeps a logged-in backend session in sync: it owns the joined
// rooms, polls them on a fixed tick and turns backend messages into events.
package chat

import (
	"context"

	"github.com/vovakirdan/ircgate/internal/backend"
	"github.com/vovakirdan/ircgate/internal/core"
)

// Backend is the set of backend calls a session needs. *backend.Client implements it.
type Backend interface {
	Login(ctx context.Context, identifier, secret string) error
	LoginAnonymous(ctx context.Context, nickname string, gender core.Gender) error
	Logout(ctx context.Context) error

	FetchRoomListing(ctx context.Context) ([]*core.Room, error)
	FetchRoom(ctx context.Context, name string) (*backend.RoomPage, error)
	LeaveRoom(ctx context.Context, roomID string) error

	PollHeader(ctx context.Context) error
	PollMessages(ctx context.Context, roomID, chatIndex string) (*backend.Envelope, error)
	PollUserActivity(ctx context.Context, roomID string) (*backend.Envelope, error)
	PostText(ctx context.Context, roomID, chatIndex, text string) (*backend.Envelope, error)

	FetchProfile(ctx context.Context, nick string) (*backend.Profile, error)
}

var _ Backend = (*backend.Client)(nil)
