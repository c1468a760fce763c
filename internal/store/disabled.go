package store

import "context"

// DisabledStore is the degraded mode: reads find nothing and writes are
// dropped. Callers check Disabled before writing so they can skip work.
type DisabledStore struct{}

var _ Records = DisabledStore{}

func (DisabledStore) Disabled() bool               { return true }
func (DisabledStore) Ping(_ context.Context) error { return nil }
func (DisabledStore) Close()                       {}

func (DisabledStore) UpsertArena(context.Context, Arena) error { return nil }
func (DisabledStore) GetArena(context.Context, string) (*Arena, error) {
	return nil, ErrNotFound
}
func (DisabledStore) GetArenaByRoom(context.Context, string) (*Arena, error) {
	return nil, ErrNotFound
}
func (DisabledStore) ListArenasByGameType(context.Context, string) ([]Arena, error) {
	return []Arena{}, nil
}
func (DisabledStore) ListArenasByServer(context.Context, string) ([]Arena, error) {
	return []Arena{}, nil
}
func (DisabledStore) DeleteArena(context.Context, string) error { return nil }

func (DisabledStore) UpsertRoom(context.Context, Room) error { return nil }
func (DisabledStore) GetRoom(context.Context, string) (*Room, error) {
	return nil, ErrNotFound
}
func (DisabledStore) GetRoomByOwner(context.Context, string) (*Room, error) {
	return nil, ErrNotFound
}
func (DisabledStore) ListRooms(context.Context) ([]Room, error) { return []Room{}, nil }
func (DisabledStore) DeleteRoom(context.Context, string) error  { return nil }

func (DisabledStore) CreateInvite(context.Context, Invite) error { return nil }
func (DisabledStore) GetInvite(context.Context, string) (*Invite, error) {
	return nil, ErrNotFound
}
func (DisabledStore) FindInvite(context.Context, string, string) (*Invite, error) {
	return nil, ErrNotFound
}
func (DisabledStore) ListInvitesByPlayer(context.Context, string) ([]Invite, error) {
	return []Invite{}, nil
}
func (DisabledStore) ListInvitesByRoom(context.Context, string) ([]Invite, error) {
	return []Invite{}, nil
}
func (DisabledStore) DeleteInvite(context.Context, string) error        { return nil }
func (DisabledStore) DeleteInvitesByRoom(context.Context, string) error { return nil }

func (DisabledStore) UpsertUser(context.Context, User) error { return nil }
func (DisabledStore) GetUser(context.Context, string) (*User, error) {
	return nil, ErrNotFound
}
func (DisabledStore) SetPaws(context.Context, string, int64) error { return ErrNotFound }
func (DisabledStore) AddPaws(context.Context, string, int64) (int64, error) {
	return 0, ErrNotFound
}
