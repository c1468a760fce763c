package arena

import (
	"context"
	"errors"

	"gamefleet/internal/store"
)

// Directory answers fleet-wide arena queries from shared storage. Results are
// snapshots and may trail a transition until its broadcast lands.
type Directory struct {
	records store.ArenaStore
}

func NewDirectory(records store.ArenaStore) *Directory {
	return &Directory{records: records}
}

func (d *Directory) Get(ctx context.Context, arenaID string) (Arena, error) {
	rec, err := d.records.GetArena(ctx, arenaID)
	if err != nil {
		return Arena{}, mapNotFound(err)
	}
	return fromRecord(*rec), nil
}

// Arenas lists every arena of a game type in directory order.
func (d *Directory) Arenas(ctx context.Context, gameType GameType) ([]Arena, error) {
	recs, err := d.records.ListArenasByGameType(ctx, string(gameType))
	if err != nil {
		return nil, err
	}
	out := make([]Arena, 0, len(recs))
	for _, rec := range recs {
		out = append(out, fromRecord(rec))
	}
	return out, nil
}

// Available lists the deactivated arenas of a game type.
func (d *Directory) Available(ctx context.Context, gameType GameType) ([]Arena, error) {
	all, err := d.Arenas(ctx, gameType)
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, a := range all {
		if a.IsDeactivated() {
			out = append(out, a)
		}
	}
	return out, nil
}

// FirstAvailable returns the first deactivated arena that fits players, in
// directory order.
func (d *Directory) FirstAvailable(ctx context.Context, gameType GameType, players int) (Arena, bool, error) {
	avail, err := d.Available(ctx, gameType)
	if err != nil {
		return Arena{}, false, err
	}
	for _, a := range avail {
		if a.Fits(players) {
			return a, true, nil
		}
	}
	return Arena{}, false, nil
}

type Bucket struct {
	Range      string `json:"range"`
	MinPlayers int    `json:"min_players"`
	MaxPlayers int    `json:"max_players"`
	Activated  int    `json:"activated"`
	Total      int    `json:"total"`
}

// Available is the count of free arenas in the bucket.
func (b Bucket) Available() int { return b.Total - b.Activated }

// Availability groups a game type's arenas by capacity bounds, in order of
// first appearance.
func (d *Directory) Availability(ctx context.Context, gameType GameType) ([]Bucket, error) {
	all, err := d.Arenas(ctx, gameType)
	if err != nil {
		return nil, err
	}
	out := []Bucket{}
	index := map[string]int{}
	for _, a := range all {
		key := a.Bucket()
		i, ok := index[key]
		if !ok {
			i = len(out)
			index[key] = i
			out = append(out, Bucket{Range: key, MinPlayers: a.MinPlayers, MaxPlayers: a.MaxPlayers})
		}
		out[i].Total++
		if a.IsActivated() {
			out[i].Activated++
		}
	}
	return out, nil
}

// ArenaForRoom finds the arena a room is bound to.
func (d *Directory) ArenaForRoom(ctx context.Context, roomID string) (Arena, error) {
	if roomID == "" {
		return Arena{}, ErrArenaNotFound
	}
	rec, err := d.records.GetArenaByRoom(ctx, roomID)
	if err != nil {
		return Arena{}, mapNotFound(err)
	}
	return fromRecord(*rec), nil
}

// ServerArenas lists the arenas a server registered.
func (d *Directory) ServerArenas(ctx context.Context, server string) ([]Arena, error) {
	recs, err := d.records.ListArenasByServer(ctx, server)
	if err != nil {
		return nil, err
	}
	out := make([]Arena, 0, len(recs))
	for _, rec := range recs {
		out = append(out, fromRecord(rec))
	}
	return out, nil
}

func mapNotFound(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return ErrArenaNotFound
	}
	return err
}
