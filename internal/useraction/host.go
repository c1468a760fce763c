package useraction

import (
	"context"
	"errors"
	"slices"
	"sync"
)

var ErrPlayerOffline = errors.New("player not connected")

type localPlayer struct {
	vanished bool
	perms    map[string]bool
	inbox    []string
	location Location
}

// MemoryHost is a PlayerHost that keeps its players in memory. A node with no
// game platform attached uses it; players are connected through the admin
// API.
type MemoryHost struct {
	mu      sync.Mutex
	players map[string]*localPlayer
	order   []string
}

var _ PlayerHost = (*MemoryHost)(nil)

func NewMemoryHost() *MemoryHost {
	return &MemoryHost{players: map[string]*localPlayer{}}
}

// Connect marks a player online here with the given permissions.
func (h *MemoryHost) Connect(playerID string, perms ...string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	p, ok := h.players[playerID]
	if !ok {
		p = &localPlayer{perms: map[string]bool{}}
		h.players[playerID] = p
		h.order = append(h.order, playerID)
	}
	for _, perm := range perms {
		p.perms[perm] = true
	}
}

func (h *MemoryHost) Disconnect(playerID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.players[playerID]; !ok {
		return
	}
	delete(h.players, playerID)
	if i := slices.Index(h.order, playerID); i >= 0 {
		h.order = slices.Delete(h.order, i, i+1)
	}
}

func (h *MemoryHost) SetVanished(playerID string, vanished bool) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	p, ok := h.players[playerID]
	if !ok {
		return ErrPlayerOffline
	}
	p.vanished = vanished
	return nil
}

func (h *MemoryHost) IsOnline(playerID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.players[playerID]
	return ok
}

func (h *MemoryHost) IsVanished(playerID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	p, ok := h.players[playerID]
	return ok && p.vanished
}

func (h *MemoryHost) HasPermission(playerID, perm string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	p, ok := h.players[playerID]
	return ok && p.perms[perm]
}

func (h *MemoryHost) SendMessage(_ context.Context, playerID, text string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	p, ok := h.players[playerID]
	if !ok {
		return ErrPlayerOffline
	}
	p.inbox = append(p.inbox, text)
	return nil
}

func (h *MemoryHost) Teleport(_ context.Context, playerID string, loc Location) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	p, ok := h.players[playerID]
	if !ok {
		return ErrPlayerOffline
	}
	p.location = loc
	return nil
}

func (h *MemoryHost) OnlinePlayers() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return slices.Clone(h.order)
}

// Inbox returns the messages delivered to a player here.
func (h *MemoryHost) Inbox(playerID string) []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if p, ok := h.players[playerID]; ok {
		return slices.Clone(p.inbox)
	}
	return nil
}

// Location returns where a player was last teleported.
func (h *MemoryHost) Location(playerID string) (Location, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	p, ok := h.players[playerID]
	if !ok {
		return Location{}, false
	}
	return p.location, true
}
