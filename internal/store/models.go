package store

import (
	"slices"
	"time"
)

type Arena struct {
	ID          string
	ServerName  string
	GameType    string
	RoomID      string
	MinPlayers  int
	MaxPlayers  int
	DisplayItem string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Room struct {
	ID        string
	OwnerID   string
	PlayerIDs []string
	GameType  string
	Private   bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Clone returns a copy whose member list does not alias r's.
func (r Room) Clone() Room {
	r.PlayerIDs = slices.Clone(r.PlayerIDs)
	if r.PlayerIDs == nil {
		r.PlayerIDs = []string{}
	}
	return r
}

// User is a player's account record. Paws is the fleet-wide currency balance;
// AddPaws with a negative delta may take it below zero.
type User struct {
	ID        string
	Name      string
	Paws      int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Invite struct {
	ID        string
	RoomID    string
	PlayerID  string
	CreatedAt time.Time
}
