package arena

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"

	"gamefleet/internal/dispatch"
	"gamefleet/internal/id"
	"gamefleet/internal/store"

	"github.com/rs/zerolog/log"
)

const (
	KindActivate   = "arena.activate"
	KindDeactivate = "arena.deactivate"
	KindAssign     = "arena.assign"
	KindRelease    = "arena.release"
)

// transition is the body of activate and deactivate broadcasts. Seq orders
// the transitions of one arena; a receiver ignores anything not newer than
// what it applied.
type transition struct {
	ArenaID string `json:"arena_id"`
	RoomID  string `json:"room_id,omitempty"`
	Server  string `json:"server"`
	Seq     uint64 `json:"seq"`
}

type assignment struct {
	ArenaID string `json:"arena_id"`
	RoomID  string `json:"room_id,omitempty"`
}

const (
	statusDone = "done"
	statusBusy = "busy"
)

type localArena struct {
	// mu serializes transitions, hooks included.
	mu    sync.Mutex
	arena Arena
	hooks Hooks
	seq   uint64

	// view is the last applied arena, readable while a transition runs.
	view atomic.Pointer[Arena]
}

func newLocalArena(a Arena, hooks Hooks) *localArena {
	la := &localArena{arena: a, hooks: hooks}
	la.publish()
	return la
}

func (la *localArena) publish() {
	a := la.arena
	la.view.Store(&a)
}

// Registry holds the arenas hosted by this server. Only the host writes an
// arena's room id; other servers go through Assign and Release, which the
// host answers.
type Registry struct {
	server  string
	records store.Records
	disp    *dispatch.Dispatcher

	mu        sync.RWMutex
	local     map[string]*localArena
	order     []string
	observers []Observer
}

func NewRegistry(records store.Records, disp *dispatch.Dispatcher) *Registry {
	r := &Registry{
		server:  disp.Server(),
		records: records,
		disp:    disp,
		local:   map[string]*localArena{},
	}
	disp.Handle(dispatch.High, KindActivate, r.onActivate)
	disp.Handle(dispatch.High, KindDeactivate, r.onDeactivate)
	disp.Handle(dispatch.High, KindAssign, r.onAssign)
	disp.Handle(dispatch.High, KindRelease, r.onRelease)
	return r
}

func (r *Registry) AddObserver(o Observer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.observers = append(r.observers, o)
}

// Register starts hosting a. The arena is stamped with this server's name,
// given an id when it has none, and saved deactivated. An id that is already
// hosted here must be unregistered first.
func (r *Registry) Register(ctx context.Context, a Arena, hooks Hooks) (Arena, error) {
	if a.ID == "" {
		a.ID = id.NewPrefixed("arena")
	}
	if r.lookup(a.ID) != nil {
		return Arena{}, fmt.Errorf("%w: %s", ErrAlreadyHosted, a.ID)
	}
	if !a.GameType.Known() {
		return Arena{}, fmt.Errorf("%w: %q", ErrUnknownGameType, a.GameType)
	}
	if a.DisplayItem == "" {
		a.DisplayItem = a.GameType.DisplayItem()
	}
	a.ServerName = r.server
	a.RoomID = ""
	if hooks == nil {
		hooks = NopHooks{}
	}
	if !r.records.Disabled() {
		if err := r.records.UpsertArena(ctx, a.record()); err != nil {
			return Arena{}, fmt.Errorf("save arena %s: %w", a.ID, err)
		}
	}

	r.mu.Lock()
	if _, ok := r.local[a.ID]; ok {
		r.mu.Unlock()
		return Arena{}, fmt.Errorf("%w: %s", ErrAlreadyHosted, a.ID)
	}
	r.order = append(r.order, a.ID)
	r.local[a.ID] = newLocalArena(a, hooks)
	metricLocalHosted.Add(1)
	r.mu.Unlock()
	log.Info().Str("server", r.server).Str("arena_id", a.ID).Str("game_type", string(a.GameType)).Msg("arena registered")
	return a, nil
}

// Unregister stops hosting an arena. An activated arena is deactivated
// locally first so its hooks and observers run.
func (r *Registry) Unregister(ctx context.Context, arenaID string) error {
	la := r.lookup(arenaID)
	if la == nil {
		return ErrNotHosted
	}
	la.mu.Lock()
	var err error
	if la.arena.IsActivated() {
		la.seq++
		err = r.apply(ctx, la, "", la.seq)
	}
	la.mu.Unlock()

	r.mu.Lock()
	if _, ok := r.local[arenaID]; ok {
		delete(r.local, arenaID)
		if i := slices.Index(r.order, arenaID); i >= 0 {
			r.order = slices.Delete(r.order, i, i+1)
		}
		metricLocalHosted.Add(-1)
	}
	r.mu.Unlock()

	if !r.records.Disabled() {
		if delErr := r.records.DeleteArena(ctx, arenaID); delErr != nil {
			err = errors.Join(err, fmt.Errorf("delete arena %s: %w", arenaID, delErr))
		}
	}
	log.Info().Str("server", r.server).Str("arena_id", arenaID).Msg("arena unregistered")
	return err
}

// UnregisterAll drops every local arena, for shutdown.
func (r *Registry) UnregisterAll(ctx context.Context) error {
	r.mu.RLock()
	ids := slices.Clone(r.order)
	r.mu.RUnlock()
	var errs []error
	for _, arenaID := range ids {
		if err := r.Unregister(ctx, arenaID); err != nil && !errors.Is(err, ErrNotHosted) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Local returns the local copy of a hosted arena. Hooks and observers may
// call it; during a transition they see the state being applied.
func (r *Registry) Local(arenaID string) (Arena, bool) {
	la := r.lookup(arenaID)
	if la == nil {
		return Arena{}, false
	}
	return *la.view.Load(), true
}

// LocalArenas lists hosted arenas in registration order.
func (r *Registry) LocalArenas() []Arena {
	r.mu.RLock()
	entries := make([]*localArena, 0, len(r.order))
	for _, arenaID := range r.order {
		entries = append(entries, r.local[arenaID])
	}
	r.mu.RUnlock()
	out := make([]Arena, 0, len(entries))
	for _, la := range entries {
		out = append(out, *la.view.Load())
	}
	return out
}

// Activate binds roomID to a hosted arena: the directory is written first,
// the local copy and hooks follow, then the fleet is told. An arena bound to
// another room is deactivated before the new binding is applied.
func (r *Registry) Activate(ctx context.Context, arenaID, roomID string) error {
	if roomID == "" {
		return ErrEmptyRoom
	}
	la := r.lookup(arenaID)
	if la == nil {
		return ErrNotHosted
	}
	la.mu.Lock()
	defer la.mu.Unlock()
	var err error
	if la.arena.IsActivated() && la.arena.RoomID != roomID {
		if err = r.transition(ctx, la, "", KindDeactivate); la.arena.IsActivated() {
			return err
		}
	}
	return errors.Join(err, r.transition(ctx, la, roomID, KindActivate))
}

// Deactivate clears the room of a hosted arena.
func (r *Registry) Deactivate(ctx context.Context, arenaID string) error {
	la := r.lookup(arenaID)
	if la == nil {
		return ErrNotHosted
	}
	la.mu.Lock()
	defer la.mu.Unlock()
	return r.transition(ctx, la, "", KindDeactivate)
}

// transition runs with la.mu held.
func (r *Registry) transition(ctx context.Context, la *localArena, roomID, kind string) error {
	next := la.arena
	next.RoomID = roomID
	if !r.records.Disabled() {
		if err := r.records.UpsertArena(ctx, next.record()); err != nil {
			return fmt.Errorf("save arena %s: %w", next.ID, err)
		}
	}
	la.seq++
	seq := la.seq
	hookErr := r.apply(ctx, la, roomID, seq)
	msg := transition{ArenaID: next.ID, RoomID: roomID, Server: r.server, Seq: seq}
	if err := r.disp.Broadcast(ctx, kind, msg); err != nil {
		return errors.Join(hookErr, err)
	}
	return hookErr
}

// apply sets the local state and runs hooks then observers, with la.mu held.
func (r *Registry) apply(ctx context.Context, la *localArena, roomID string, seq uint64) error {
	la.seq = seq
	if la.arena.RoomID == roomID {
		return nil
	}
	la.arena.RoomID = roomID
	la.publish()
	a := la.arena
	logger := log.With().Str("server", r.server).Str("arena_id", a.ID).Str("room_id", roomID).Logger()

	r.mu.RLock()
	observers := slices.Clone(r.observers)
	r.mu.RUnlock()

	var err error
	if a.IsActivated() {
		metricActivationsTotal.Add(1)
		err = la.hooks.Activate(ctx, a)
		for _, o := range observers {
			o.ArenaActivated(ctx, a)
		}
		logger.Info().Msg("arena activated")
	} else {
		metricDeactivationsTotal.Add(1)
		err = la.hooks.Deactivate(ctx, a)
		for _, o := range observers {
			o.ArenaDeactivated(ctx, a)
		}
		logger.Info().Msg("arena deactivated")
	}
	if err != nil {
		metricHookErrorsTotal.Add(1)
		return fmt.Errorf("arena %s hook: %w", a.ID, err)
	}
	return nil
}

func (r *Registry) lookup(arenaID string) *localArena {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.local[arenaID]
}

func (r *Registry) onActivate(ctx context.Context, ev *dispatch.Event) error {
	return r.onTransition(ctx, ev)
}

func (r *Registry) onDeactivate(ctx context.Context, ev *dispatch.Event) error {
	return r.onTransition(ctx, ev)
}

func (r *Registry) onTransition(ctx context.Context, ev *dispatch.Event) error {
	var msg transition
	if err := ev.Decode(&msg); err != nil {
		return err
	}
	la := r.lookup(msg.ArenaID)
	if la == nil {
		return nil
	}
	la.mu.Lock()
	defer la.mu.Unlock()
	if msg.Seq <= la.seq {
		return nil
	}
	if ev.Kind == KindDeactivate {
		msg.RoomID = ""
	}
	return r.apply(ctx, la, msg.RoomID, msg.Seq)
}

// Assign binds roomID to a free arena wherever it is hosted. The host refuses
// an arena that is already activated with ErrArenaBusy; ErrNoHost means no
// server answered before the deadline.
func (r *Registry) Assign(ctx context.Context, arenaID, roomID string) error {
	if roomID == "" {
		return ErrEmptyRoom
	}
	if la := r.lookup(arenaID); la != nil {
		return r.claim(ctx, la, roomID)
	}
	return r.remote(ctx, KindAssign, assignment{ArenaID: arenaID, RoomID: roomID})
}

// Release clears the room of an arena wherever it is hosted.
func (r *Registry) Release(ctx context.Context, arenaID string) error {
	if r.lookup(arenaID) != nil {
		return r.Deactivate(ctx, arenaID)
	}
	return r.remote(ctx, KindRelease, assignment{ArenaID: arenaID})
}

func (r *Registry) claim(ctx context.Context, la *localArena, roomID string) error {
	la.mu.Lock()
	defer la.mu.Unlock()
	if la.arena.IsActivated() && la.arena.RoomID != roomID {
		return ErrArenaBusy
	}
	return r.transition(ctx, la, roomID, KindActivate)
}

// remote asks the host. The host always sets a status, so the first answer
// is final.
func (r *Registry) remote(ctx context.Context, kind string, msg assignment) error {
	rs, err := r.disp.Request(ctx, dispatch.Call{Kind: kind, Payload: msg, Shape: dispatch.Settable})
	if err != nil {
		return err
	}
	if rs.ContainsCompleted() {
		return nil
	}
	if rs.ContainsSettable(statusBusy) {
		return ErrArenaBusy
	}
	return ErrNoHost
}

func (r *Registry) onAssign(ctx context.Context, ev *dispatch.Event) error {
	var msg assignment
	if err := ev.Decode(&msg); err != nil {
		return err
	}
	la := r.lookup(msg.ArenaID)
	if la == nil {
		return nil
	}
	err := r.claim(ctx, la, msg.RoomID)
	if errors.Is(err, ErrArenaBusy) {
		return ev.Set(statusBusy)
	}
	// a failing hook still leaves the arena bound
	if a, _ := r.Local(msg.ArenaID); a.RoomID != msg.RoomID {
		return err
	}
	ev.MarkCompleted()
	return errors.Join(err, ev.Set(statusDone))
}

func (r *Registry) onRelease(ctx context.Context, ev *dispatch.Event) error {
	var msg assignment
	if err := ev.Decode(&msg); err != nil {
		return err
	}
	if r.lookup(msg.ArenaID) == nil {
		return nil
	}
	err := r.Deactivate(ctx, msg.ArenaID)
	if a, ok := r.Local(msg.ArenaID); !ok || a.IsActivated() {
		return err
	}
	ev.MarkCompleted()
	return errors.Join(err, ev.Set(statusDone))
}
