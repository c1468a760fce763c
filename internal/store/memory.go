package store

import (
	"context"
	"slices"
	"sync"
	"time"
)

// MemoryStore is a process-local Records implementation. Several nodes of one
// test can share a single MemoryStore to stand in for the shared database.
type MemoryStore struct {
	mu      sync.RWMutex
	arenas  map[string]Arena
	rooms   map[string]Room
	invites map[string]Invite
	users   map[string]User
	// insertion order; lists are returned in this order like the SQL backends
	arenaOrder  []string
	roomOrder   []string
	inviteOrder []string
}

var _ Records = (*MemoryStore)(nil)

func NewMemory() *MemoryStore {
	return &MemoryStore{
		arenas:  map[string]Arena{},
		rooms:   map[string]Room{},
		invites: map[string]Invite{},
		users:   map[string]User{},
	}
}

func (s *MemoryStore) Disabled() bool               { return false }
func (s *MemoryStore) Ping(_ context.Context) error { return nil }
func (s *MemoryStore) Close()                       {}

func (s *MemoryStore) UpsertArena(_ context.Context, a Arena) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	if prev, ok := s.arenas[a.ID]; ok {
		a.CreatedAt = prev.CreatedAt
	} else {
		a.CreatedAt = now
		s.arenaOrder = append(s.arenaOrder, a.ID)
	}
	a.UpdatedAt = now
	s.arenas[a.ID] = a
	return nil
}

func (s *MemoryStore) GetArena(_ context.Context, id string) (*Arena, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.arenas[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &a, nil
}

func (s *MemoryStore) GetArenaByRoom(_ context.Context, roomID string) (*Arena, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, id := range s.arenaOrder {
		if a := s.arenas[id]; a.RoomID != "" && a.RoomID == roomID {
			return &a, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) ListArenasByGameType(_ context.Context, gameType string) ([]Arena, error) {
	return s.filterArenas(func(a Arena) bool { return a.GameType == gameType }), nil
}

func (s *MemoryStore) ListArenasByServer(_ context.Context, serverName string) ([]Arena, error) {
	return s.filterArenas(func(a Arena) bool { return a.ServerName == serverName }), nil
}

func (s *MemoryStore) filterArenas(keep func(Arena) bool) []Arena {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []Arena{}
	for _, id := range s.arenaOrder {
		if a := s.arenas[id]; keep(a) {
			out = append(out, a)
		}
	}
	return out
}

func (s *MemoryStore) DeleteArena(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.arenas[id]; !ok {
		return nil
	}
	delete(s.arenas, id)
	s.arenaOrder = removeID(s.arenaOrder, id)
	return nil
}

func (s *MemoryStore) UpsertRoom(_ context.Context, r Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r = r.Clone()
	now := time.Now()
	if prev, ok := s.rooms[r.ID]; ok {
		r.CreatedAt = prev.CreatedAt
	} else {
		r.CreatedAt = now
		s.roomOrder = append(s.roomOrder, r.ID)
	}
	r.UpdatedAt = now
	s.rooms[r.ID] = r
	return nil
}

func (s *MemoryStore) GetRoom(_ context.Context, id string) (*Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rooms[id]
	if !ok {
		return nil, ErrNotFound
	}
	r = r.Clone()
	return &r, nil
}

func (s *MemoryStore) GetRoomByOwner(_ context.Context, ownerID string) (*Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, id := range s.roomOrder {
		if r := s.rooms[id]; r.OwnerID == ownerID {
			r = r.Clone()
			return &r, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) ListRooms(_ context.Context) ([]Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Room, 0, len(s.roomOrder))
	for _, id := range s.roomOrder {
		out = append(out, s.rooms[id].Clone())
	}
	return out, nil
}

func (s *MemoryStore) DeleteRoom(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[id]; !ok {
		return nil
	}
	delete(s.rooms, id)
	s.roomOrder = removeID(s.roomOrder, id)
	return nil
}

func (s *MemoryStore) CreateInvite(_ context.Context, inv Invite) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.invites[inv.ID]; !ok {
		s.inviteOrder = append(s.inviteOrder, inv.ID)
	}
	inv.CreatedAt = time.Now()
	s.invites[inv.ID] = inv
	return nil
}

func (s *MemoryStore) GetInvite(_ context.Context, id string) (*Invite, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	inv, ok := s.invites[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &inv, nil
}

func (s *MemoryStore) FindInvite(_ context.Context, roomID, playerID string) (*Invite, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, id := range s.inviteOrder {
		if inv := s.invites[id]; inv.RoomID == roomID && inv.PlayerID == playerID {
			return &inv, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) ListInvitesByPlayer(_ context.Context, playerID string) ([]Invite, error) {
	return s.filterInvites(func(inv Invite) bool { return inv.PlayerID == playerID }), nil
}

func (s *MemoryStore) ListInvitesByRoom(_ context.Context, roomID string) ([]Invite, error) {
	return s.filterInvites(func(inv Invite) bool { return inv.RoomID == roomID }), nil
}

func (s *MemoryStore) filterInvites(keep func(Invite) bool) []Invite {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []Invite{}
	for _, id := range s.inviteOrder {
		if inv := s.invites[id]; keep(inv) {
			out = append(out, inv)
		}
	}
	return out
}

func (s *MemoryStore) DeleteInvite(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.invites[id]; !ok {
		return nil
	}
	delete(s.invites, id)
	s.inviteOrder = removeID(s.inviteOrder, id)
	return nil
}

func (s *MemoryStore) DeleteInvitesByRoom(_ context.Context, roomID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.inviteOrder[:0]
	for _, id := range s.inviteOrder {
		if s.invites[id].RoomID == roomID {
			delete(s.invites, id)
			continue
		}
		kept = append(kept, id)
	}
	s.inviteOrder = kept
	return nil
}

func (s *MemoryStore) UpsertUser(_ context.Context, u User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	if prev, ok := s.users[u.ID]; ok {
		u.CreatedAt = prev.CreatedAt
		u.Paws = prev.Paws
	} else {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	s.users[u.ID] = u
	return nil
}

func (s *MemoryStore) GetUser(_ context.Context, id string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (s *MemoryStore) SetPaws(_ context.Context, id string, amount int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return ErrNotFound
	}
	u.Paws = amount
	u.UpdatedAt = time.Now()
	s.users[id] = u
	return nil
}

func (s *MemoryStore) AddPaws(_ context.Context, id string, delta int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return 0, ErrNotFound
	}
	u.Paws += delta
	u.UpdatedAt = time.Now()
	s.users[id] = u
	return u.Paws, nil
}

func removeID(ids []string, id string) []string {
	if i := slices.Index(ids, id); i >= 0 {
		return slices.Delete(ids, i, i+1)
	}
	return ids
}
