// Package store persists the records shared by every server in the fleet:
// arenas, game rooms, invites and user accounts. Queries are field-equality lookups only and
// saves are insert-or-replace, so concurrent writers to the same record resolve
// last-write-wins.
package store

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("not found")

type ArenaStore interface {
	UpsertArena(ctx context.Context, a Arena) error
	GetArena(ctx context.Context, id string) (*Arena, error)
	GetArenaByRoom(ctx context.Context, roomID string) (*Arena, error)
	ListArenasByGameType(ctx context.Context, gameType string) ([]Arena, error)
	ListArenasByServer(ctx context.Context, serverName string) ([]Arena, error)
	DeleteArena(ctx context.Context, id string) error
}

type RoomStore interface {
	UpsertRoom(ctx context.Context, r Room) error
	GetRoom(ctx context.Context, id string) (*Room, error)
	GetRoomByOwner(ctx context.Context, ownerID string) (*Room, error)
	ListRooms(ctx context.Context) ([]Room, error)
	DeleteRoom(ctx context.Context, id string) error
}

type InviteStore interface {
	CreateInvite(ctx context.Context, inv Invite) error
	GetInvite(ctx context.Context, id string) (*Invite, error)
	FindInvite(ctx context.Context, roomID, playerID string) (*Invite, error)
	ListInvitesByPlayer(ctx context.Context, playerID string) ([]Invite, error)
	ListInvitesByRoom(ctx context.Context, roomID string) ([]Invite, error)
	DeleteInvite(ctx context.Context, id string) error
	DeleteInvitesByRoom(ctx context.Context, roomID string) error
}

// UserStore keeps player accounts. UpsertUser sets the balance only when it
// creates the account; afterwards SetPaws and AddPaws own it and report
// ErrNotFound for an unknown player.
type UserStore interface {
	UpsertUser(ctx context.Context, u User) error
	GetUser(ctx context.Context, id string) (*User, error)
	SetPaws(ctx context.Context, id string, amount int64) error
	AddPaws(ctx context.Context, id string, delta int64) (int64, error)
}

// Records is the full record store handed to a node.
type Records interface {
	ArenaStore
	RoomStore
	InviteStore
	UserStore

	// Disabled reports the degraded mode in which nothing is persisted.
	Disabled() bool
	Ping(ctx context.Context) error
	Close()
}
