// Package arena tracks hostable game locations. The Directory is the
// fleet-wide view read from shared storage; the Registry holds the arenas
// this server hosts and runs the activation state machine for them.
package arena

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gamefleet/internal/store"
)

var (
	ErrArenaNotFound   = errors.New("arena not found")
	ErrNotHosted       = errors.New("arena not hosted on this server")
	ErrAlreadyHosted   = errors.New("arena already hosted on this server")
	ErrArenaBusy       = errors.New("arena already activated")
	ErrNoHost          = errors.New("no server completed the arena request")
	ErrEmptyRoom       = errors.New("room id is required")
	ErrUnknownGameType = errors.New("unknown game type")
)

type GameType string

const (
	TNTRun       GameType = "TNT_RUN"
	BedWars      GameType = "BED_WARS"
	Spleef       GameType = "SPLEEF"
	HideAndSeek  GameType = "HIDE_AND_SEEK"
	TowerDefence GameType = "TOWER_DEFENCE"
)

var GameTypes = []GameType{TNTRun, BedWars, Spleef, HideAndSeek, TowerDefence}

var gameTypeInfo = map[GameType]struct{ title, item string }{
	TNTRun:       {"Tnt Run", "TNT"},
	BedWars:      {"Bed Wars", "RED_BED"},
	Spleef:       {"Spleef", "IRON_SHOVEL"},
	HideAndSeek:  {"Hide and Seek", "CRAFTING_TABLE"},
	TowerDefence: {"Tower Defence", "IRON_AXE"},
}

func ParseGameType(v string) (GameType, error) {
	g := GameType(strings.ToUpper(strings.TrimSpace(v)))
	if !g.Known() {
		return "", fmt.Errorf("%w: %q", ErrUnknownGameType, v)
	}
	return g, nil
}

func (g GameType) Known() bool {
	_, ok := gameTypeInfo[g]
	return ok
}

// Title is the menu name of the game type.
func (g GameType) Title() string {
	if info, ok := gameTypeInfo[g]; ok {
		return info.title
	}
	return string(g)
}

// DisplayItem is the material shown for the game type in selection menus.
func (g GameType) DisplayItem() string {
	return gameTypeInfo[g].item
}

type Arena struct {
	ID          string   `json:"id"`
	ServerName  string   `json:"server_name"`
	GameType    GameType `json:"game_type"`
	RoomID      string   `json:"room_id,omitempty"`
	MinPlayers  int      `json:"min_players"`
	MaxPlayers  int      `json:"max_players"`
	DisplayItem string   `json:"display_item,omitempty"`
}

// IsActivated reports whether a room is bound to the arena.
func (a Arena) IsActivated() bool { return a.RoomID != "" }

func (a Arena) IsDeactivated() bool { return !a.IsActivated() }

// Fits reports whether players lies within the capacity bounds.
func (a Arena) Fits(players int) bool {
	return players >= a.MinPlayers && players <= a.MaxPlayers
}

// Bucket is the availability group of the arena, "min-max".
func (a Arena) Bucket() string {
	return fmt.Sprintf("%d-%d", a.MinPlayers, a.MaxPlayers)
}

func fromRecord(rec store.Arena) Arena {
	return Arena{
		ID:          rec.ID,
		ServerName:  rec.ServerName,
		GameType:    GameType(rec.GameType),
		RoomID:      rec.RoomID,
		MinPlayers:  rec.MinPlayers,
		MaxPlayers:  rec.MaxPlayers,
		DisplayItem: rec.DisplayItem,
	}
}

func (a Arena) record() store.Arena {
	return store.Arena{
		ID:          a.ID,
		ServerName:  a.ServerName,
		GameType:    string(a.GameType),
		RoomID:      a.RoomID,
		MinPlayers:  a.MinPlayers,
		MaxPlayers:  a.MaxPlayers,
		DisplayItem: a.DisplayItem,
	}
}

// Hooks are the side effects of a local arena's transitions, such as
// preparing or resetting the game world.
type Hooks interface {
	Activate(ctx context.Context, a Arena) error
	Deactivate(ctx context.Context, a Arena) error
}

// NopHooks does nothing on either transition.
type NopHooks struct{}

func (NopHooks) Activate(context.Context, Arena) error   { return nil }
func (NopHooks) Deactivate(context.Context, Arena) error { return nil }

// Observer is told about transitions of local arenas after their hooks ran.
// Observers must not start a transition of the same arena synchronously.
type Observer interface {
	ArenaActivated(ctx context.Context, a Arena)
	ArenaDeactivated(ctx context.Context, a Arena)
}
