package gameroom

import (
	"context"
	"errors"
	"fmt"

	"gamefleet/internal/arena"
	"gamefleet/internal/dispatch"
	"gamefleet/internal/id"
	"gamefleet/internal/store"

	"github.com/rs/zerolog/log"
)

var (
	ErrRoomNotFound     = errors.New("room not found")
	ErrInviteNotFound   = errors.New("invite not found")
	ErrAlreadyInvited   = errors.New("player already invited to room")
	ErrInviteStale      = errors.New("invite room no longer exists")
	ErrNoArenaAvailable = errors.New("no arena available for room")
)

const (
	KindRoomCreated   = "room.created"
	KindRoomJoined    = "room.joined"
	KindRoomLeft      = "room.left"
	KindRoomDisbanded = "room.disbanded"
	KindRoomInvite    = "room.invite"
	KindRoomLaunched  = "room.launched"
)

// RoomEvent announces a membership change or a room lifecycle step.
type RoomEvent struct {
	RoomID   string         `json:"room_id"`
	PlayerID string         `json:"player_id,omitempty"`
	OwnerID  string         `json:"owner_id,omitempty"`
	GameType arena.GameType `json:"game_type,omitempty"`
	ArenaID  string         `json:"arena_id,omitempty"`
}

type InviteEvent struct {
	InviteID string         `json:"invite_id"`
	RoomID   string         `json:"room_id"`
	PlayerID string         `json:"player_id"`
	From     string         `json:"from,omitempty"`
	GameType arena.GameType `json:"game_type,omitempty"`
}

// launchAttempts bounds how many free arenas Launch tries when hosts refuse.
const launchAttempts = 3

type Service struct {
	records  store.Records
	disp     *dispatch.Dispatcher
	arenas   *arena.Directory
	registry *arena.Registry
}

func NewService(records store.Records, disp *dispatch.Dispatcher, arenas *arena.Directory, registry *arena.Registry) *Service {
	return &Service{records: records, disp: disp, arenas: arenas, registry: registry}
}

// Save persists room. The first save of a room is announced.
func (s *Service) Save(ctx context.Context, room *Room) error {
	_, err := s.records.GetRoom(ctx, room.ID)
	created := errors.Is(err, store.ErrNotFound)
	if err != nil && !created {
		return err
	}
	if err := s.records.UpsertRoom(ctx, room.record()); err != nil {
		return fmt.Errorf("save room %s: %w", room.ID, err)
	}
	if !created {
		return nil
	}
	metricRoomsCreatedTotal.Add(1)
	log.Info().Str("room_id", room.ID).Str("player_id", room.OwnerID).Str("game_type", string(room.GameType)).Msg("room created")
	return s.disp.Broadcast(ctx, KindRoomCreated, RoomEvent{RoomID: room.ID, OwnerID: room.OwnerID, GameType: room.GameType})
}

// Create builds and saves a new room owned by owner.
func (s *Service) Create(ctx context.Context, owner string, gameType arena.GameType) (*Room, error) {
	if !gameType.Known() {
		return nil, fmt.Errorf("%w: %q", arena.ErrUnknownGameType, gameType)
	}
	room := NewRoom(owner, gameType)
	if err := s.Save(ctx, room); err != nil {
		return nil, err
	}
	return room, nil
}

func (s *Service) Get(ctx context.Context, roomID string) (*Room, error) {
	rec, err := s.records.GetRoom(ctx, roomID)
	if err != nil {
		return nil, mapRoomNotFound(err)
	}
	return roomFromRecord(*rec), nil
}

func (s *Service) RoomOfOwner(ctx context.Context, owner string) (*Room, error) {
	rec, err := s.records.GetRoomByOwner(ctx, owner)
	if err != nil {
		return nil, mapRoomNotFound(err)
	}
	return roomFromRecord(*rec), nil
}

// RoomOfPlayer scans every room for one that has player as a member.
func (s *Service) RoomOfPlayer(ctx context.Context, player string) (*Room, error) {
	recs, err := s.records.ListRooms(ctx)
	if err != nil {
		return nil, err
	}
	for _, rec := range recs {
		room := roomFromRecord(rec)
		if room.HasPlayer(player) {
			return room, nil
		}
	}
	return nil, ErrRoomNotFound
}

// Join adds player to a room. Joining twice is a no-op.
func (s *Service) Join(ctx context.Context, roomID, player string) (*Room, error) {
	room, err := s.Get(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if room.HasPlayer(player) {
		return room, nil
	}
	room.AddPlayer(player)
	if err := s.records.UpsertRoom(ctx, room.record()); err != nil {
		return nil, fmt.Errorf("save room %s: %w", room.ID, err)
	}
	log.Info().Str("room_id", room.ID).Str("player_id", player).Msg("room joined")
	if err := s.disp.Broadcast(ctx, KindRoomJoined, RoomEvent{RoomID: room.ID, PlayerID: player, GameType: room.GameType}); err != nil {
		return room, err
	}
	return room, nil
}

// Leave removes player from a room. When the owner leaves, the next member
// becomes owner. When the last member leaves, the room is disbanded and nil
// is returned.
func (s *Service) Leave(ctx context.Context, roomID, player string) (*Room, error) {
	room, err := s.Get(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if !room.HasPlayer(player) {
		return room, nil
	}
	room.RemovePlayer(player)
	if room.IsEmpty() {
		return nil, s.disband(ctx, room)
	}
	if room.OwnerID == player {
		room.SetOwner(room.Players[0])
	}
	if err := s.records.UpsertRoom(ctx, room.record()); err != nil {
		return nil, fmt.Errorf("save room %s: %w", room.ID, err)
	}
	log.Info().Str("room_id", room.ID).Str("player_id", player).Str("owner_id", room.OwnerID).Msg("room left")
	if err := s.disp.Broadcast(ctx, KindRoomLeft, RoomEvent{RoomID: room.ID, PlayerID: player, OwnerID: room.OwnerID}); err != nil {
		return room, err
	}
	return room, nil
}

// TransferOwner hands a room to newOwner, who joins it if needed.
func (s *Service) TransferOwner(ctx context.Context, roomID, newOwner string) (*Room, error) {
	room, err := s.Get(ctx, roomID)
	if err != nil {
		return nil, err
	}
	room.SetOwner(newOwner)
	if err := s.records.UpsertRoom(ctx, room.record()); err != nil {
		return nil, fmt.Errorf("save room %s: %w", room.ID, err)
	}
	return room, nil
}

func (s *Service) SetPrivate(ctx context.Context, roomID string, private bool) (*Room, error) {
	room, err := s.Get(ctx, roomID)
	if err != nil {
		return nil, err
	}
	room.SetPrivate(private)
	if err := s.records.UpsertRoom(ctx, room.record()); err != nil {
		return nil, fmt.Errorf("save room %s: %w", room.ID, err)
	}
	return room, nil
}

// Disband deletes a room with its invites and frees its arena.
func (s *Service) Disband(ctx context.Context, roomID string) error {
	room, err := s.Get(ctx, roomID)
	if err != nil {
		return err
	}
	return s.disband(ctx, room)
}

func (s *Service) disband(ctx context.Context, room *Room) error {
	var errs []error
	if bound, err := s.arenas.ArenaForRoom(ctx, room.ID); err == nil {
		if err := s.registry.Release(ctx, bound.ID); err != nil {
			errs = append(errs, fmt.Errorf("release arena %s: %w", bound.ID, err))
		}
	} else if !errors.Is(err, arena.ErrArenaNotFound) {
		errs = append(errs, err)
	}
	if err := s.records.DeleteInvitesByRoom(ctx, room.ID); err != nil {
		errs = append(errs, fmt.Errorf("delete invites of %s: %w", room.ID, err))
	}
	if err := s.records.DeleteRoom(ctx, room.ID); err != nil {
		errs = append(errs, fmt.Errorf("delete room %s: %w", room.ID, err))
	}
	log.Info().Str("room_id", room.ID).Msg("room disbanded")
	if err := s.disp.Broadcast(ctx, KindRoomDisbanded, RoomEvent{RoomID: room.ID, GameType: room.GameType}); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (s *Service) HasBeenInvited(ctx context.Context, player, roomID string) (bool, error) {
	_, err := s.records.FindInvite(ctx, roomID, player)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

// SendInvite invites player to a room on behalf of from. A second invite for
// the same pair is rejected with ErrAlreadyInvited.
func (s *Service) SendInvite(ctx context.Context, roomID, from, player string) (Invite, error) {
	room, err := s.Get(ctx, roomID)
	if err != nil {
		return Invite{}, err
	}
	invited, err := s.HasBeenInvited(ctx, player, roomID)
	if err != nil {
		return Invite{}, err
	}
	if invited {
		return Invite{}, ErrAlreadyInvited
	}
	inv := Invite{ID: id.NewPrefixed("inv"), RoomID: roomID, PlayerID: player}
	if err := s.records.CreateInvite(ctx, store.Invite{ID: inv.ID, RoomID: inv.RoomID, PlayerID: inv.PlayerID}); err != nil {
		return Invite{}, fmt.Errorf("save invite: %w", err)
	}
	metricInvitesSentTotal.Add(1)
	log.Info().Str("room_id", roomID).Str("player_id", player).Str("from", from).Msg("invite sent")
	ev := InviteEvent{InviteID: inv.ID, RoomID: roomID, PlayerID: player, From: from, GameType: room.GameType}
	if err := s.disp.Broadcast(ctx, KindRoomInvite, ev); err != nil {
		return inv, err
	}
	return inv, nil
}

// IsValid reports whether the invite's room still exists.
func (s *Service) IsValid(ctx context.Context, inv Invite) (bool, error) {
	_, err := s.records.GetRoom(ctx, inv.RoomID)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (s *Service) GetInvite(ctx context.Context, inviteID string) (Invite, error) {
	rec, err := s.records.GetInvite(ctx, inviteID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Invite{}, ErrInviteNotFound
		}
		return Invite{}, err
	}
	return inviteFromRecord(*rec), nil
}

// Accept joins the invited player to the room and consumes the invite. A
// stale invite is deleted and reported as ErrInviteStale.
func (s *Service) Accept(ctx context.Context, inviteID string) (*Room, error) {
	inv, err := s.GetInvite(ctx, inviteID)
	if err != nil {
		return nil, err
	}
	room, err := s.Join(ctx, inv.RoomID, inv.PlayerID)
	if errors.Is(err, ErrRoomNotFound) {
		s.dropStaleInvite(ctx, inv)
		return nil, ErrInviteStale
	}
	if err != nil {
		return nil, err
	}
	if err := s.records.DeleteInvite(ctx, inv.ID); err != nil {
		return room, fmt.Errorf("delete invite %s: %w", inv.ID, err)
	}
	return room, nil
}

func (s *Service) Decline(ctx context.Context, inviteID string) error {
	if _, err := s.GetInvite(ctx, inviteID); err != nil {
		return err
	}
	return s.records.DeleteInvite(ctx, inviteID)
}

// dropStaleInvite is best effort; a failed delete is retried on the next read.
func (s *Service) dropStaleInvite(ctx context.Context, inv Invite) {
	if err := s.records.DeleteInvite(ctx, inv.ID); err != nil && !errors.Is(err, store.ErrNotFound) {
		metricStaleInviteErrorsTotal.Add(1)
		log.Warn().Err(err).Str("invite_id", inv.ID).Str("room_id", inv.RoomID).Msg("stale invite not deleted")
	}
}

// InvitesFor lists a player's valid invites, deleting stale ones on the way.
func (s *Service) InvitesFor(ctx context.Context, player string) ([]Invite, error) {
	recs, err := s.records.ListInvitesByPlayer(ctx, player)
	if err != nil {
		return nil, err
	}
	out := make([]Invite, 0, len(recs))
	for _, rec := range recs {
		inv := inviteFromRecord(rec)
		ok, err := s.IsValid(ctx, inv)
		if err != nil {
			return nil, err
		}
		if !ok {
			s.dropStaleInvite(ctx, inv)
			continue
		}
		out = append(out, inv)
	}
	return out, nil
}

// Launch binds a room to the first free arena that fits its members. A room
// that is already bound gets its current arena back.
func (s *Service) Launch(ctx context.Context, roomID string) (arena.Arena, error) {
	room, err := s.Get(ctx, roomID)
	if err != nil {
		return arena.Arena{}, err
	}
	if bound, err := s.arenas.ArenaForRoom(ctx, room.ID); err == nil {
		return bound, nil
	}

	tried := map[string]bool{}
	for attempt := 0; attempt < launchAttempts; attempt++ {
		candidates, err := s.arenas.Available(ctx, room.GameType)
		if err != nil {
			return arena.Arena{}, err
		}
		var pick *arena.Arena
		for i := range candidates {
			if candidates[i].Fits(room.Size()) && !tried[candidates[i].ID] {
				pick = &candidates[i]
				break
			}
		}
		if pick == nil {
			break
		}
		tried[pick.ID] = true
		err = s.registry.Assign(ctx, pick.ID, room.ID)
		if errors.Is(err, arena.ErrArenaBusy) || errors.Is(err, arena.ErrNoHost) {
			log.Warn().Err(err).Str("room_id", room.ID).Str("arena_id", pick.ID).Msg("launch candidate refused")
			continue
		}
		if err != nil {
			return arena.Arena{}, err
		}
		metricLaunchesTotal.Add(1)
		pick.RoomID = room.ID
		log.Info().Str("room_id", room.ID).Str("arena_id", pick.ID).Str("server", pick.ServerName).Msg("room launched")
		if err := s.disp.Broadcast(ctx, KindRoomLaunched, RoomEvent{RoomID: room.ID, GameType: room.GameType, ArenaID: pick.ID}); err != nil {
			return *pick, err
		}
		return *pick, nil
	}
	return arena.Arena{}, ErrNoArenaAvailable
}

// OnInvite registers fn for invite announcements from any server.
func (s *Service) OnInvite(fn func(ctx context.Context, ev InviteEvent) error) {
	s.disp.Handle(dispatch.Low, KindRoomInvite, func(ctx context.Context, e *dispatch.Event) error {
		var ev InviteEvent
		if err := e.Decode(&ev); err != nil {
			return err
		}
		return fn(ctx, ev)
	})
}

func mapRoomNotFound(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return ErrRoomNotFound
	}
	return err
}
