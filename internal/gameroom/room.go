// Package gameroom manages groups of players who want to play together and
// the invites between them. Rooms live in shared storage and belong to no
// server; the arena a room plays in is bound through the arena registry.
package gameroom

import (
	"slices"
	"time"

	"gamefleet/internal/arena"
	"gamefleet/internal/id"
	"gamefleet/internal/store"
)

type Room struct {
	ID       string         `json:"id"`
	OwnerID  string         `json:"owner_id"`
	Players  []string       `json:"players"`
	GameType arena.GameType `json:"game_type"`
	Private  bool           `json:"private"`
	// CreatedAt is zero until the room is first saved.
	CreatedAt time.Time `json:"created_at"`
}

// NewRoom returns an unsaved public room whose only member is owner.
func NewRoom(owner string, gameType arena.GameType) *Room {
	return &Room{
		ID:       id.NewPrefixed("room"),
		OwnerID:  owner,
		Players:  []string{owner},
		GameType: gameType,
	}
}

// AddPlayer appends p without checking membership.
func (r *Room) AddPlayer(p string) {
	r.Players = append(r.Players, p)
}

// RemovePlayer drops the first occurrence of p.
func (r *Room) RemovePlayer(p string) {
	if i := slices.Index(r.Players, p); i >= 0 {
		r.Players = slices.Delete(r.Players, i, i+1)
	}
}

// SetOwner makes p the owner and moves it to the front of the member list.
// The previous owner stays a member.
func (r *Room) SetOwner(p string) {
	r.RemovePlayer(p)
	r.Players = slices.Insert(r.Players, 0, p)
	r.OwnerID = p
}

func (r *Room) SetPrivate(private bool) { r.Private = private }

func (r *Room) HasPlayer(p string) bool { return slices.Contains(r.Players, p) }

func (r *Room) IsEmpty() bool { return len(r.Players) == 0 }

func (r *Room) Size() int { return len(r.Players) }

func (r *Room) record() store.Room {
	return store.Room{
		ID:        r.ID,
		OwnerID:   r.OwnerID,
		PlayerIDs: slices.Clone(r.Players),
		GameType:  string(r.GameType),
		Private:   r.Private,
	}
}

func roomFromRecord(rec store.Room) *Room {
	players := slices.Clone(rec.PlayerIDs)
	if players == nil {
		players = []string{}
	}
	return &Room{
		ID:        rec.ID,
		OwnerID:   rec.OwnerID,
		Players:   players,
		GameType:  arena.GameType(rec.GameType),
		Private:   rec.Private,
		CreatedAt: rec.CreatedAt,
	}
}

type Invite struct {
	ID        string    `json:"id"`
	RoomID    string    `json:"room_id"`
	PlayerID  string    `json:"player_id"`
	CreatedAt time.Time `json:"created_at"`
}

func inviteFromRecord(rec store.Invite) Invite {
	return Invite{ID: rec.ID, RoomID: rec.RoomID, PlayerID: rec.PlayerID, CreatedAt: rec.CreatedAt}
}
