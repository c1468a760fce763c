package gameroom

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"gamefleet/internal/arena"
	"gamefleet/internal/bus"
	"gamefleet/internal/dispatch"
	"gamefleet/internal/store"
)

type testServer struct {
	disp     *dispatch.Dispatcher
	registry *arena.Registry
	rooms    *Service
}

func startServer(t *testing.T, hub *bus.Hub, st store.Records, name string) *testServer {
	t.Helper()
	tr := hub.Connect()
	disp := dispatch.New(name, tr, 300*time.Millisecond)
	dir := arena.NewDirectory(st)
	reg := arena.NewRegistry(st, disp)
	srv := &testServer{disp: disp, registry: reg, rooms: NewService(st, disp, dir, reg)}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = disp.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
		_ = tr.Close()
	})
	return srv
}

func mustCreate(t *testing.T, s *Service, owner string, gt arena.GameType) *Room {
	t.Helper()
	room, err := s.Create(context.Background(), owner, gt)
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	return room
}

func TestCreateJoinAndLookups(t *testing.T) {
	srv := startServer(t, bus.NewHub(), store.NewMemory(), "s1")
	ctx := context.Background()
	room := mustCreate(t, srv.rooms, "p1", arena.Spleef)

	if _, err := srv.rooms.Join(ctx, room.ID, "p2"); err != nil {
		t.Fatalf("join: %v", err)
	}
	again, err := srv.rooms.Join(ctx, room.ID, "p2")
	if err != nil {
		t.Fatalf("rejoin: %v", err)
	}
	if again.Size() != 2 {
		t.Fatalf("rejoin duplicated member: %v", again.Players)
	}

	byOwner, err := srv.rooms.RoomOfOwner(ctx, "p1")
	if err != nil || byOwner.ID != room.ID {
		t.Fatalf("room of owner: %+v %v", byOwner, err)
	}
	byPlayer, err := srv.rooms.RoomOfPlayer(ctx, "p2")
	if err != nil || byPlayer.ID != room.ID {
		t.Fatalf("room of player: %+v %v", byPlayer, err)
	}
	if _, err := srv.rooms.RoomOfPlayer(ctx, "nobody"); !errors.Is(err, ErrRoomNotFound) {
		t.Fatalf("expected ErrRoomNotFound, got %v", err)
	}
	if _, err := srv.rooms.Join(ctx, "room_missing", "p3"); !errors.Is(err, ErrRoomNotFound) {
		t.Fatalf("expected ErrRoomNotFound, got %v", err)
	}
}

func TestOwnerLeavingPassesOwnership(t *testing.T) {
	srv := startServer(t, bus.NewHub(), store.NewMemory(), "s1")
	ctx := context.Background()
	room := mustCreate(t, srv.rooms, "p1", arena.TNTRun)
	if _, err := srv.rooms.Join(ctx, room.ID, "p2"); err != nil {
		t.Fatalf("join: %v", err)
	}
	left, err := srv.rooms.Leave(ctx, room.ID, "p1")
	if err != nil {
		t.Fatalf("leave: %v", err)
	}
	if left.OwnerID != "p2" || left.Size() != 1 {
		t.Fatalf("expected p2 to own the room, got %+v", left)
	}
}

func TestLastMemberLeavingDisbandsRoom(t *testing.T) {
	st := store.NewMemory()
	srv := startServer(t, bus.NewHub(), st, "s1")
	ctx := context.Background()
	room := mustCreate(t, srv.rooms, "p1", arena.TNTRun)
	if _, err := srv.rooms.SendInvite(ctx, room.ID, "p1", "p9"); err != nil {
		t.Fatalf("invite: %v", err)
	}

	left, err := srv.rooms.Leave(ctx, room.ID, "p1")
	if err != nil {
		t.Fatalf("leave: %v", err)
	}
	if left != nil {
		t.Fatalf("expected room to be gone, got %+v", left)
	}
	if _, err := srv.rooms.Get(ctx, room.ID); !errors.Is(err, ErrRoomNotFound) {
		t.Fatalf("expected ErrRoomNotFound, got %v", err)
	}
	if invites, _ := st.ListInvitesByRoom(ctx, room.ID); len(invites) != 0 {
		t.Fatalf("invites survived disband: %+v", invites)
	}
}

func TestDuplicateInviteIsRejected(t *testing.T) {
	srv := startServer(t, bus.NewHub(), store.NewMemory(), "s1")
	ctx := context.Background()
	room := mustCreate(t, srv.rooms, "p1", arena.BedWars)

	invited, err := srv.rooms.HasBeenInvited(ctx, "p2", room.ID)
	if err != nil || invited {
		t.Fatalf("fresh pair reported invited=%v err=%v", invited, err)
	}
	if _, err := srv.rooms.SendInvite(ctx, room.ID, "p1", "p2"); err != nil {
		t.Fatalf("first invite: %v", err)
	}
	if _, err := srv.rooms.SendInvite(ctx, room.ID, "p1", "p2"); !errors.Is(err, ErrAlreadyInvited) {
		t.Fatalf("expected ErrAlreadyInvited, got %v", err)
	}
	invites, err := srv.rooms.InvitesFor(ctx, "p2")
	if err != nil || len(invites) != 1 {
		t.Fatalf("expected exactly one invite, got %+v %v", invites, err)
	}
}

func TestAcceptAndDecline(t *testing.T) {
	srv := startServer(t, bus.NewHub(), store.NewMemory(), "s1")
	ctx := context.Background()
	room := mustCreate(t, srv.rooms, "p1", arena.BedWars)
	inv, err := srv.rooms.SendInvite(ctx, room.ID, "p1", "p2")
	if err != nil {
		t.Fatalf("invite: %v", err)
	}
	joined, err := srv.rooms.Accept(ctx, inv.ID)
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if !joined.HasPlayer("p2") {
		t.Fatalf("accept did not join: %v", joined.Players)
	}
	if _, err := srv.rooms.GetInvite(ctx, inv.ID); !errors.Is(err, ErrInviteNotFound) {
		t.Fatalf("accepted invite not consumed: %v", err)
	}

	inv2, err := srv.rooms.SendInvite(ctx, room.ID, "p1", "p3")
	if err != nil {
		t.Fatalf("invite p3: %v", err)
	}
	if err := srv.rooms.Decline(ctx, inv2.ID); err != nil {
		t.Fatalf("decline: %v", err)
	}
	if err := srv.rooms.Decline(ctx, inv2.ID); !errors.Is(err, ErrInviteNotFound) {
		t.Fatalf("expected ErrInviteNotFound, got %v", err)
	}
}

func TestStaleInviteIsInvalidatedOnRead(t *testing.T) {
	st := store.NewMemory()
	srv := startServer(t, bus.NewHub(), st, "s1")
	ctx := context.Background()
	room := mustCreate(t, srv.rooms, "p1", arena.Spleef)
	inv, err := srv.rooms.SendInvite(ctx, room.ID, "p1", "p2")
	if err != nil {
		t.Fatalf("invite: %v", err)
	}
	// drop the room behind the service's back so the invite goes stale
	if err := st.DeleteRoom(ctx, room.ID); err != nil {
		t.Fatalf("delete room: %v", err)
	}
	ok, err := srv.rooms.IsValid(ctx, inv)
	if err != nil || ok {
		t.Fatalf("expected stale invite, got valid=%v err=%v", ok, err)
	}
	if _, err := srv.rooms.Accept(ctx, inv.ID); !errors.Is(err, ErrInviteStale) {
		t.Fatalf("expected ErrInviteStale, got %v", err)
	}
	if _, err := srv.rooms.GetInvite(ctx, inv.ID); !errors.Is(err, ErrInviteNotFound) {
		t.Fatalf("stale invite not deleted: %v", err)
	}

	if err := st.CreateInvite(ctx, store.Invite{ID: "inv_stale", RoomID: "room_gone", PlayerID: "p2"}); err != nil {
		t.Fatalf("seed stale invite: %v", err)
	}
	list, err := srv.rooms.InvitesFor(ctx, "p2")
	if err != nil || len(list) != 0 {
		t.Fatalf("expected no valid invites, got %+v %v", list, err)
	}
	if _, err := st.GetInvite(ctx, "inv_stale"); !errors.Is(err, store.ErrNotFound) {
		t.Fatal("InvitesFor should delete stale invites")
	}
}

type stickyInvites struct {
	*store.MemoryStore
}

func (stickyInvites) DeleteInvite(context.Context, string) error {
	return errors.New("invites table locked")
}

func TestStaleInviteCleanupFailureIsCounted(t *testing.T) {
	st := stickyInvites{store.NewMemory()}
	srv := startServer(t, bus.NewHub(), st, "s1")
	ctx := context.Background()
	if err := st.CreateInvite(ctx, store.Invite{ID: "inv_stale", RoomID: "room_gone", PlayerID: "p2"}); err != nil {
		t.Fatalf("seed stale invite: %v", err)
	}

	before := metricStaleInviteErrorsTotal.Value()
	list, err := srv.rooms.InvitesFor(ctx, "p2")
	if err != nil || len(list) != 0 {
		t.Fatalf("expected no valid invites, got %+v %v", list, err)
	}
	if _, err := srv.rooms.Accept(ctx, "inv_stale"); !errors.Is(err, ErrInviteStale) {
		t.Fatalf("expected ErrInviteStale, got %v", err)
	}
	if got := metricStaleInviteErrorsTotal.Value() - before; got != 2 {
		t.Fatalf("expected 2 failed cleanups, got %d", got)
	}
	if _, err := st.GetInvite(ctx, "inv_stale"); err != nil {
		t.Fatalf("invite should survive a failed delete: %v", err)
	}
}

func TestInviteIsAnnouncedToOtherServers(t *testing.T) {
	hub := bus.NewHub()
	st := store.NewMemory()
	lobby := startServer(t, hub, st, "lobby")
	game := startServer(t, hub, st, "game-1")

	got := make(chan InviteEvent, 1)
	game.rooms.OnInvite(func(_ context.Context, ev InviteEvent) error {
		got <- ev
		return nil
	})
	room := mustCreate(t, lobby.rooms, "p1", arena.HideAndSeek)
	if _, err := lobby.rooms.SendInvite(context.Background(), room.ID, "p1", "p2"); err != nil {
		t.Fatalf("invite: %v", err)
	}
	select {
	case ev := <-got:
		if ev.RoomID != room.ID || ev.PlayerID != "p2" || ev.From != "p1" || ev.GameType != arena.HideAndSeek {
			t.Fatalf("unexpected invite event %+v", ev)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("invite not announced")
	}
}

func TestRoomCreatedAnnouncedOnce(t *testing.T) {
	srv := startServer(t, bus.NewHub(), store.NewMemory(), "s1")
	var mu sync.Mutex
	count := 0
	srv.disp.Handle(dispatch.Low, KindRoomCreated, func(context.Context, *dispatch.Event) error {
		mu.Lock()
		count++
		mu.Unlock()
		return nil
	})
	room := mustCreate(t, srv.rooms, "p1", arena.Spleef)
	room.SetPrivate(true)
	if err := srv.rooms.Save(context.Background(), room); err != nil {
		t.Fatalf("save: %v", err)
	}
	time.Sleep(50 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	if count != 1 {
		t.Fatalf("expected one created announcement, got %d", count)
	}
	saved, _ := srv.rooms.Get(context.Background(), room.ID)
	if !saved.Private {
		t.Fatal("privacy not persisted")
	}
}

func TestLaunchBindsFreeArenaOnHost(t *testing.T) {
	hub := bus.NewHub()
	st := store.NewMemory()
	lobby := startServer(t, hub, st, "lobby")
	host := startServer(t, hub, st, "game-1")
	ctx := context.Background()
	if _, err := host.registry.Register(ctx, arena.Arena{ID: "a1", GameType: arena.Spleef, MinPlayers: 2, MaxPlayers: 4}, nil); err != nil {
		t.Fatalf("register: %v", err)
	}

	room := mustCreate(t, lobby.rooms, "p1", arena.Spleef)
	if _, err := lobby.rooms.Join(ctx, room.ID, "p2"); err != nil {
		t.Fatalf("join: %v", err)
	}
	a, err := lobby.rooms.Launch(ctx, room.ID)
	if err != nil {
		t.Fatalf("launch: %v", err)
	}
	if a.ID != "a1" || a.RoomID != room.ID {
		t.Fatalf("unexpected launch arena %+v", a)
	}
	if local, _ := host.registry.Local("a1"); local.RoomID != room.ID {
		t.Fatalf("host arena not activated: %+v", local)
	}
	again, err := lobby.rooms.Launch(ctx, room.ID)
	if err != nil || again.ID != "a1" {
		t.Fatalf("relaunch should return bound arena: %+v %v", again, err)
	}

	other := mustCreate(t, lobby.rooms, "p5", arena.Spleef)
	if _, err := lobby.rooms.Join(ctx, other.ID, "p6"); err != nil {
		t.Fatalf("join: %v", err)
	}
	if _, err := lobby.rooms.Launch(ctx, other.ID); !errors.Is(err, ErrNoArenaAvailable) {
		t.Fatalf("expected ErrNoArenaAvailable, got %v", err)
	}

	if err := lobby.rooms.Disband(ctx, room.ID); err != nil {
		t.Fatalf("disband: %v", err)
	}
	if local, _ := host.registry.Local("a1"); local.IsActivated() {
		t.Fatalf("disband did not free the arena: %+v", local)
	}
}

func TestLaunchRejectsTooFewPlayers(t *testing.T) {
	hub := bus.NewHub()
	st := store.NewMemory()
	srv := startServer(t, hub, st, "s1")
	ctx := context.Background()
	if _, err := srv.registry.Register(ctx, arena.Arena{ID: "a1", GameType: arena.TNTRun, MinPlayers: 2, MaxPlayers: 4}, nil); err != nil {
		t.Fatalf("register: %v", err)
	}
	room := mustCreate(t, srv.rooms, "p1", arena.TNTRun)
	if _, err := srv.rooms.Launch(ctx, room.ID); !errors.Is(err, ErrNoArenaAvailable) {
		t.Fatalf("expected ErrNoArenaAvailable, got %v", err)
	}
}
